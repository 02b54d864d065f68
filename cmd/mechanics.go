package cmd

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/spf13/cobra"

	"github.com/aapatcall/roadassist/config"
)

var (
	mechanicsAvailable bool
	mechanicsVType     string
)

var mechanicsCmd = &cobra.Command{
	Use:   "mechanics",
	Short: "List mechanics registered with a running service",
	RunE:  listMechanics,
}

func init() {
	mechanicsCmd.Flags().BoolVar(&mechanicsAvailable, "available", false, "only available mechanics")
	mechanicsCmd.Flags().StringVar(&mechanicsVType, "vehicle-type", "", "vehicle type filter (2W, 4W, EV)")
	rootCmd.AddCommand(mechanicsCmd)
}

func listMechanics(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	q := url.Values{}
	if mechanicsAvailable {
		q.Set("available", "true")
	}
	if mechanicsVType != "" {
		q.Set("vehicle_type", mechanicsVType)
	}
	endpoint := fmt.Sprintf("http://localhost%s/api/mechanics?%s", cfg.HTTP.Addr, q.Encode())

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(endpoint)
	if err != nil {
		return fmt.Errorf("mechanics request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("mechanics list failed: %d", resp.StatusCode)
	}
	var views []struct {
		MechanicID  string  `json:"mechanic_id"`
		Name        string  `json:"name"`
		Available   bool    `json:"available"`
		Latitude    float64 `json:"latitude"`
		Longitude   float64 `json:"longitude"`
		VehicleType string  `json:"vehicle_type"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&views); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	for _, v := range views {
		state := "off duty"
		if v.Available {
			state = "available"
		}
		cmd.Printf("%-12s %-20s %-10s %s (%.5f, %.5f)\n",
			v.MechanicID, v.Name, v.VehicleType, state, v.Latitude, v.Longitude)
	}
	cmd.Printf("%d mechanics\n", len(views))
	return nil
}
