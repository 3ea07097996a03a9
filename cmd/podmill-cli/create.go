package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/podmill/podmill-go/internal/client"
)

var (
	createTitle  string
	createSource string
	createRef    string
	createVoice  string
	createWait   bool
)

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Submit a new podcast generation job",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c := apiClient()
		podcast, err := c.CreatePodcast(cmd.Context(), client.CreatePodcastRequest{
			Title:      createTitle,
			SourceType: createSource,
			SourceRef:  createRef,
			Voice:      createVoice,
		})
		if err != nil {
			return err
		}
		fmt.Printf("Created podcast %s (%s)\n", podcast.ID, podcast.Status)
		if !createWait {
			return nil
		}
		return trackPodcast(cmd.Context(), c, podcast.ID)
	},
}

func init() {
	createCmd.Flags().StringVar(&createTitle, "title", "", "Podcast title")
	createCmd.Flags().StringVar(&createSource, "source", "", "Content source type (see 'podmill-cli sources')")
	createCmd.Flags().StringVar(&createRef, "ref", "", "Source reference, e.g. a URL or an inbox file name")
	createCmd.Flags().StringVar(&createVoice, "voice", "", "Voice to narrate with (server default when empty)")
	createCmd.Flags().BoolVar(&createWait, "wait", false, "Follow generation progress until it finishes")
	createCmd.MarkFlagRequired("title")
	createCmd.MarkFlagRequired("source")
	createCmd.MarkFlagRequired("ref")
}
