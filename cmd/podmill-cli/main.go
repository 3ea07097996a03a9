package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/podmill/podmill-go/internal/client"
)

var serverURL string

// rootCmd is the base command. Every subcommand talks to a running
// podmill server over its REST API.
var rootCmd = &cobra.Command{
	Use:           "podmill-cli",
	Short:         "Command line client for a podmill server",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", defaultServerURL(), "Base URL of the podmill server (or set PODMILL_SERVER)")

	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(trackCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(sourcesCmd)
}

func defaultServerURL() string {
	if v := os.Getenv("PODMILL_SERVER"); v != "" {
		return v
	}
	return "http://localhost:8080"
}

func apiClient() *client.Client {
	return client.New(serverURL)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
