package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/picloud/picloud/internal/presentation/tui"
	httpAdapter "github.com/picloud/picloud/pkg/adapters/http"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the counter of a running server",
	RunE: func(cmd *cobra.Command, args []string) error {
		url, _ := cmd.Flags().GetString("url")
		url = strings.TrimSuffix(url, "/")
		client := &http.Client{Timeout: 5 * time.Second}

		var info map[string]any
		if err := getJSON(client, url+"/info", &info); err != nil {
			return err
		}
		var status httpAdapter.Status
		if err := getJSON(client, url+"/status", &status); err != nil {
			return err
		}

		return render(cmd, tui.Report("Status",
			tui.Field{Name: "server", Value: url},
			tui.Field{Name: "store", Value: info["store"]},
			tui.Field{Name: "version", Value: info["version"]},
			tui.Field{Name: "callsInProgress", Value: status.CallsInProgress},
			tui.Field{Name: "loading", Value: status.Loading},
		))
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().String("url", "http://localhost:5000", "Base URL of the server")
}

func getJSON(client *http.Client, url string, v any) error {
	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("failed to reach %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s returned %s", url, resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid response from %s: %w", url, err)
	}
	return nil
}

// render prints markdown through glamour, or as is with --plain.
func render(cmd *cobra.Command, markdown string) error {
	plain, _ := cmd.Flags().GetBool("plain")
	out := markdown
	if !plain {
		rendered, err := tui.NewRenderer()(markdown)
		if err != nil {
			return err
		}
		out = rendered
	}
	_, err := fmt.Fprint(cmd.OutOrStdout(), out)
	return err
}
