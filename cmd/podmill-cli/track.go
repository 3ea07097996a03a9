package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/podmill/podmill-go/internal/client"
	"github.com/podmill/podmill-go/internal/models"
	"github.com/podmill/podmill-go/internal/tracker"
)

var trackCmd = &cobra.Command{
	Use:   "track <podcastId>",
	Short: "Follow a podcast's generation progress until it finishes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return trackPodcast(cmd.Context(), apiClient(), args[0])
	},
}

// trackPodcast polls the server until the podcast reaches a terminal
// state, printing each progress change. It returns nil on completion
// and an error on failure, which main turns into exit code 1.
func trackPodcast(ctx context.Context, c *client.Client, id string) error {
	tr := tracker.New(c, id)
	tr.Start()
	defer tr.Stop()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	var lastLine string
	printSnapshot := func(snap *models.StatusSnapshot) {
		line := fmt.Sprintf("[%3d%%] %s", snap.Progress, snap.DisplayStep())
		if line != lastLine {
			fmt.Println(line)
			lastLine = line
		}
	}

	for {
		select {
		case <-ctx.Done():
			return errors.New("interrupted")
		case <-ticker.C:
			if snap := tr.Snapshot(); snap != nil {
				printSnapshot(snap)
			}
		case res := <-tr.Result():
			if res.Err != nil {
				return fmt.Errorf("generation failed: %w", res.Err)
			}
			if res.Snapshot != nil {
				printSnapshot(res.Snapshot)
			}
			if res.Podcast != nil {
				fmt.Printf("Completed %q", res.Podcast.Title)
				if res.Podcast.DurationSeconds > 0 {
					fmt.Printf(" (%s)", time.Duration(res.Podcast.DurationSeconds)*time.Second)
				}
				fmt.Println()
				if res.Podcast.AudioURL != "" {
					fmt.Printf("Audio: %s%s\n", strings.TrimRight(serverURL, "/"), res.Podcast.AudioURL)
				}
			} else {
				fmt.Println("Completed.")
			}
			return nil
		}
	}
}
