package cmd

import (
	"context"
	"dirmirror/internal/db"
	"dirmirror/internal/logger"
	"dirmirror/internal/mirror"
	"dirmirror/internal/model"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync all files once",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		defer logger.Sync()
		defer func() { _ = db.Close() }()

		mc, err := mirrorConfig()
		if err != nil {
			return err
		}

		session, err := mirror.NewSession(mc, sessionOptions())
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		decisions, err := session.FullSync(ctx)
		if err != nil {
			return err
		}

		var copied, deleted, skipped, failed int
		for _, d := range decisions {
			switch {
			case d.Failed():
				failed++
			case d.Kind == model.DecisionCopy:
				copied++
			case d.Kind == model.DecisionDelete:
				deleted++
			default:
				skipped++
			}
		}

		fmt.Printf("done: %d copied, %d deleted, %d skipped, %d failed\n", copied, deleted, skipped, failed)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
}
