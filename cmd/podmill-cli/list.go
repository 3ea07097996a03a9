package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all podcasts on the server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		podcasts, err := apiClient().ListPodcasts(cmd.Context())
		if err != nil {
			return err
		}
		if len(podcasts) == 0 {
			fmt.Println("No podcasts yet.")
			return nil
		}
		fmt.Printf("%-36s  %-10s  %5s  %s\n", "ID", "STATUS", "PROG", "TITLE")
		for _, p := range podcasts {
			fmt.Printf("%-36s  %-10s  %4d%%  %s\n", p.ID, p.Status, p.Progress, p.Title)
		}
		return nil
	},
}
