package cli

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var healthcheckCmd = &cobra.Command{
	Use:   "healthcheck",
	Short: "Check if the server is healthy",
	Long:  "Performs an HTTP request to the /up endpoint to verify the server and its database are operational",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runHealthcheck(fmt.Sprintf("http://localhost:%s", healthcheckPort()))
	},
}

func healthcheckPort() string {
	if flagPort != "" {
		return flagPort
	}
	if port := os.Getenv("PORT"); port != "" {
		return port
	}
	return "3000"
}

func runHealthcheck(baseURL string) error {
	client := &http.Client{
		Timeout: 2 * time.Second,
	}

	resp, err := client.Get(baseURL + "/up")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Healthcheck failed: %v\n", err)
		return fmt.Errorf("healthcheck failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		fmt.Fprintf(os.Stderr, "Healthcheck failed: status %d\n", resp.StatusCode)
		return fmt.Errorf("healthcheck failed: status %d", resp.StatusCode)
	}

	return nil
}
