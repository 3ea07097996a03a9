package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/podmill/podmill-go/internal/api"
	"github.com/podmill/podmill-go/internal/artifacts"
	"github.com/podmill/podmill-go/internal/core"
	"github.com/podmill/podmill-go/internal/feeds"
	"github.com/podmill/podmill-go/internal/generator"
	"github.com/podmill/podmill-go/internal/generator/sources"
	"github.com/podmill/podmill-go/internal/generator/sources/article"
	"github.com/podmill/podmill-go/internal/generator/sources/document"
	"github.com/podmill/podmill-go/internal/generator/sources/text"
	"github.com/podmill/podmill-go/internal/jobs"
	"github.com/podmill/podmill-go/internal/scripts"
)

// Overridden at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	log.SetOutput(os.Stdout)
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	// Initialize the core application components
	app, err := core.New(version)
	if err != nil {
		log.Fatalf("Fatal error during application setup: %v", err)
	}
	defer app.Close()

	// The inbox holds dropped source files (PDFs, text) under the
	// artifacts directory. It has to exist before the sources and the
	// watcher reference it.
	inboxDir := artifacts.InboxPath(app.Config().Artifacts.Path)
	if err := os.MkdirAll(inboxDir, 0755); err != nil {
		log.Fatalf("Could not create inbox directory: %v", err)
	}

	// Register all built-in content sources here.
	sources.Register(article.New())
	sources.Register(document.New(inboxDir))
	sources.Register(text.New(inboxDir))

	// Load script sources and register them alongside the built-ins.
	scriptManager := scripts.NewScriptManager(app.Config().Scripts.Path)
	if err := scriptManager.LoadAll(); err != nil {
		log.Printf("Warning: failed to load scripts: %v", err)
	}

	// Register the background jobs and run an initial sync so the
	// database reflects the artifacts directory from the start.
	app.JobManager().Register("artifact-sync", "Artifact Sync", artifacts.RunSync)
	app.JobManager().Register("claim-sweep", "Stalled Claim Sweep", jobs.RunClaimSweep)
	go app.JobManager().RunJob("artifact-sync", app)

	// Start the scheduled job runner
	jobs.StartJobs(app)

	// Start the generation worker pool
	generator.StartWorkerPool(app)

	// Watch the artifacts directory so external changes trigger a sync.
	watcher := artifacts.NewWatcherService(app)
	if err := watcher.Start(); err != nil {
		log.Printf("Warning: could not start artifacts watcher: %v", err)
	}

	// Start the feed service
	feedService := feeds.NewService(app)
	feedService.Start()

	// Setup the API server
	server := api.NewServer(app)
	addr := fmt.Sprintf(":%d", app.Config().Port)
	httpServer := &http.Server{
		Addr:    addr,
		Handler: server.Router(),
	}
	// --- Graceful Shutdown ---
	// Start the server in a goroutine so it doesn't block.
	go func() {
		log.Printf("Starting web server on %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not start server: %v", err)
		}
	}()

	// Wait for an interrupt signal.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	if err := watcher.Stop(); err != nil {
		log.Printf("Error stopping artifacts watcher: %v", err)
	}

	// Create a context with a timeout to allow existing connections to finish.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Attempt a graceful shutdown.
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting.")
}
