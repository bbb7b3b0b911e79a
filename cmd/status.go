package cmd

import (
	"dirmirror/internal/model"
	"dirmirror/internal/repository"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "View the running mirror",
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := http.Get(daemonURL("/status"))
		if err != nil {
			return fmt.Errorf("daemon not running: %w", err)
		}

		defer func(Body io.ReadCloser) {
			_ = Body.Close()
		}(resp.Body)

		var result struct {
			Session model.SessionSnapshot `json:"session"`
			History *repository.Stats     `json:"history"`
		}

		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			return fmt.Errorf("failed to decode status response: %w", err)
		}

		snap := result.Session
		lastSync := "-"
		if snap.LastSync != nil {
			lastSync = snap.LastSync.Format("2006-01-02 15:04:05")
		}

		fmt.Printf("%-12s %s\n", "source", snap.Source)
		fmt.Printf("%-12s %s (%s)\n", "destination", snap.Dest, snap.State)
		fmt.Printf("%-12s %s\n", "mode", snap.Policy)
		fmt.Printf("%-12s %s\n", "uptime", time.Since(snap.StartedAt).Round(time.Second))
		fmt.Printf("%-12s %s\n", "last sync", lastSync)
		fmt.Printf("%-12s %d copied, %d deleted, %d skipped, %d failed, %d batches dropped\n",
			"counts", snap.Copied, snap.Deleted, snap.Skipped, snap.Failed, snap.Dropped)

		if result.History != nil {
			fmt.Printf("%-12s %d total, %d failed\n", "history", result.History.Total, result.History.Failed)
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
