package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/aapatcall/roadassist/config"
)

var (
	dispatchJobID string
	dispatchLat   float64
	dispatchLng   float64
	dispatchVType string
)

var dispatchCmd = &cobra.Command{
	Use:   "dispatch",
	Short: "Start a dispatch for a job against a running service",
	RunE:  startDispatch,
}

func init() {
	dispatchCmd.Flags().StringVar(&dispatchJobID, "job", "", "job identifier")
	dispatchCmd.Flags().Float64Var(&dispatchLat, "lat", 0, "requester latitude")
	dispatchCmd.Flags().Float64Var(&dispatchLng, "lng", 0, "requester longitude")
	dispatchCmd.Flags().StringVar(&dispatchVType, "vehicle-type", "", "vehicle type filter (2W, 4W, EV)")
	rootCmd.AddCommand(dispatchCmd)
}

func startDispatch(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	body, err := json.Marshal(map[string]any{
		"job_id":       dispatchJobID,
		"latitude":     dispatchLat,
		"longitude":    dispatchLng,
		"vehicle_type": dispatchVType,
	})
	if err != nil {
		return err
	}

	client := &http.Client{Timeout: 10 * time.Second}
	url := fmt.Sprintf("http://localhost%s/api/dispatch", cfg.HTTP.Addr)
	resp, err := client.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("dispatch request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	var result map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("dispatch failed: %v (%d)", result, resp.StatusCode)
	}
	cmd.Printf("request %s offered to %v candidates\n", result["request_id"], result["nearby_count"])
	return nil
}
