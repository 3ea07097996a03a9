package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List the content sources the server accepts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sourceList, err := apiClient().Sources(cmd.Context())
		if err != nil {
			return err
		}
		for _, s := range sourceList {
			if s.Description != "" {
				fmt.Printf("%-12s  %s. %s\n", s.ID, s.Name, s.Description)
			} else {
				fmt.Printf("%-12s  %s\n", s.ID, s.Name)
			}
		}
		return nil
	},
}
