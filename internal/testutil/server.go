// Shared test assembly helpers: a full core.App and api.Server wired
// the same way main.go wires them, backed by an in-memory database.

package testutil

import (
	"database/sql"
	"testing"

	"github.com/podmill/podmill-go/internal/api"
	"github.com/podmill/podmill-go/internal/artifacts"
	"github.com/podmill/podmill-go/internal/config"
	"github.com/podmill/podmill-go/internal/core"
	"github.com/podmill/podmill-go/internal/generator/sources"
	"github.com/podmill/podmill-go/internal/generator/sources/mocktape"
	"github.com/podmill/podmill-go/internal/jobs"
	"github.com/podmill/podmill-go/internal/websocket"
)

// SetupTestApp assembles a core.App with an in-memory database,
// temporary artifact and script directories, a running hub and the
// mocktape source registered. Background services (worker pool,
// watcher, schedulers) are not started; tests start what they need.
func SetupTestApp(t *testing.T) *core.App {
	t.Helper()
	db := SetupTestDB(t)

	cfg := &config.Config{}
	cfg.Artifacts.Path = t.TempDir()
	cfg.Scripts.Path = t.TempDir()
	cfg.SyncInterval = 60
	cfg.FeedCheckInterval = 360
	cfg.ClaimTimeout = 30
	cfg.Generation.Workers = 1
	cfg.Generation.DefaultVoice = "narrator"
	cfg.Generation.SampleRate = 8000

	hub := websocket.NewHub()
	go hub.Run()
	app := core.NewFromComponents(cfg, db, hub, "test")

	app.JobManager().Register("artifact-sync", "Artifact Sync", artifacts.RunSync)
	app.JobManager().Register("claim-sweep", "Stalled Claim Sweep", jobs.RunClaimSweep)

	t.Cleanup(sources.UnregisterAll)
	sources.Register(mocktape.New())
	return app
}

// SetupTestServer initializes a full core.App and api.Server for
// integration testing.
func SetupTestServer(t *testing.T) (*api.Server, *sql.DB) {
	t.Helper()
	app := SetupTestApp(t)
	server := api.NewServer(app)
	return server, app.DB()
}
