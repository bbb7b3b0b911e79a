package cmd

import (
	"dirmirror/internal/autostart"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Register the watch command to run at login",
	RunE: func(cmd *cobra.Command, args []string) error {
		mc, err := mirrorConfig()
		if err != nil {
			return err
		}

		execPath, err := os.Executable()
		if err != nil {
			return fmt.Errorf("failed to get executable path: %w", err)
		}

		watchArgs := []string{
			"watch",
			"--source", mc.SourceRoot,
			"--dest", mc.DestRoot,
			"--mode", string(mc.Policy),
		}
		if mc.Verbose {
			watchArgs = append(watchArgs, "--verbose")
		}

		as := autostart.New()
		if err := as.Install(execPath, watchArgs); err != nil {
			return err
		}

		fmt.Printf("registered for autostart: %s -> %s\n", mc.SourceRoot, mc.DestRoot)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(installCmd)
}
