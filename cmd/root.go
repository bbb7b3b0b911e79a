package cmd

import (
	"dirmirror/internal/config"
	"dirmirror/internal/db"
	"dirmirror/internal/fsops"
	"dirmirror/internal/logger"
	"dirmirror/internal/mirror"
	"dirmirror/internal/repository"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfg   *config.Config
	debug bool
)

var rootCmd = &cobra.Command{
	Use:          "dirmirror",
	Short:        "Mirror a directory into another in real time",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}

		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}

		logger.Init(logger.Options{Debug: debug, File: cfg.LogFile})

		localCmds := map[string]bool{"watch": true, "sync": true}
		if localCmds[cmd.Name()] && cfg.DBPath != "" {
			if err := db.Init(cfg.DBPath); err != nil {
				return err
			}
		}

		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func daemonURL(path string) string {
	return fmt.Sprintf("http://localhost:%d%s", cfg.DaemonPort, path)
}

// mirrorConfig validates the configured roots and policy.
func mirrorConfig() (mirror.Config, error) {
	policy, err := cfg.DeletionPolicy()
	if err != nil {
		return mirror.Config{}, err
	}

	mc, err := mirror.NewConfig(cfg.Source, cfg.Dest, policy, cfg.Verbose)
	if err != nil {
		return mirror.Config{}, err
	}

	if cfg.Marker != "" {
		mc.Marker = cfg.Marker
	}
	mc.IgnoreList = cfg.IgnoreList

	return mc, nil
}

func sessionOptions() mirror.SessionOptions {
	opts := mirror.SessionOptions{
		Ops:          fsops.Local{},
		PollInterval: cfg.PollInterval,
	}
	if db.DB != nil {
		opts.Recorder = repository.NewHistoryRepository()
	}
	return opts
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringP("source", "s", "", "source directory to watch")
	flags.StringP("dest", "d", "", "destination directory")
	flags.StringP("mode", "m", "mirror", "deletion policy: mirror, keep or move")
	flags.BoolP("keep", "k", false, "never delete from the destination (same as --mode keep)")
	flags.BoolP("verbose", "v", false, "log every copy and delete")
	flags.BoolVar(&debug, "debug", false, "Enable debug mode")

	for _, key := range []string{"source", "dest", "mode", "keep", "verbose"} {
		_ = viper.BindPFlag(key, flags.Lookup(key))
	}
}
