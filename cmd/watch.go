package cmd

import (
	"context"
	"dirmirror/internal/config"
	"dirmirror/internal/daemon"
	"dirmirror/internal/db"
	"dirmirror/internal/logger"
	"dirmirror/internal/mirror"
	"dirmirror/internal/repository"
	"dirmirror/internal/watch"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var initialSync bool

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Mirror the source into the destination until stopped",
	Args:  cobra.NoArgs,
	RunE:  runWatch,
}

func newWatchSource() (watch.Source, error) {
	if cfg.Watcher == config.WatcherPoll {
		return watch.NewPoller(cfg.ScanInterval), nil
	}
	return watch.NewNotify(cfg.Latency, cfg.BufferSize)
}

func runWatch(cmd *cobra.Command, args []string) error {
	defer logger.Sync()
	defer func() { _ = db.Close() }()

	mc, err := mirrorConfig()
	if err != nil {
		return err
	}

	source, err := newWatchSource()
	if err != nil {
		return err
	}

	opts := sessionOptions()
	opts.Source = source
	opts.InitialSync = initialSync

	session, err := mirror.NewSession(mc, opts)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var stopCh <-chan struct{}
	var srv *daemon.Server
	if cfg.DaemonPort != 0 {
		var hist daemon.HistoryReader
		if db.DB != nil {
			hist = repository.NewHistoryRepository()
		}
		srv = daemon.NewServer(session, hist, cfg.DaemonPort)
		srv.Start()
		stopCh = srv.StopCh()
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- session.Run(ctx)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	var runErr error
	select {
	case sig := <-sigCh:
		logger.Log.Info("shutting down",
			zap.String("signal", sig.String()))
	case <-stopCh:
		logger.Log.Info("stop requested via API")
	case runErr = <-errCh:
		errCh = nil
	}

	cancel()
	if errCh != nil {
		runErr = <-errCh
	}

	if srv != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := srv.Stop(shutdownCtx); err != nil {
			logger.Log.Warn("failed to stop control server", zap.Error(err))
		}
	}

	return runErr
}

func init() {
	watchCmd.Flags().BoolVar(&initialSync, "initial-sync", false, "copy the whole source once before watching")
	rootCmd.AddCommand(watchCmd)
}
