package jobs

import (
	"fmt"
	"log"
	"time"

	"github.com/podmill/podmill-go/internal/models"
	"github.com/podmill/podmill-go/internal/store"
)

// RunClaimSweep is the "claim-sweep" job. It releases generation claims
// held longer than the configured timeout so another worker can pick
// the podcast up, e.g. after a crash mid-generation.
func RunClaimSweep(ctx JobContext) {
	const jobID = "claim-sweep"
	timeout := time.Duration(ctx.Config().ClaimTimeout) * time.Minute

	st := store.New(ctx.DB())
	released, err := st.ResetStalledClaims(timeout)
	if err != nil {
		log.Printf("Claim sweep failed: %v", err)
		ctx.WsHub().BroadcastJSON(models.ProgressUpdate{
			JobID:    jobID,
			Message:  fmt.Sprintf("Claim sweep failed: %v", err),
			Progress: 100,
			Done:     true,
		})
		return
	}

	if released > 0 {
		log.Printf("Released %d stalled generation claim(s)", released)
	}
	ctx.WsHub().BroadcastJSON(models.ProgressUpdate{
		JobID:    jobID,
		Message:  fmt.Sprintf("Released %d stalled claim(s)", released),
		Progress: 100,
		Done:     true,
	})
}
