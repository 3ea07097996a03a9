package core

import (
	"database/sql"
	"fmt"
	"log"

	"github.com/podmill/podmill-go/internal/assets"
	"github.com/podmill/podmill-go/internal/config"
	"github.com/podmill/podmill-go/internal/db"
	"github.com/podmill/podmill-go/internal/jobs"
	"github.com/podmill/podmill-go/internal/websocket"
)

// App holds the core components of the application that are shared
// between the server, the background jobs and the API layer.
type App struct {
	config     *config.Config
	db         *sql.DB
	wsHub      *websocket.Hub
	jobManager *jobs.JobManager
	version    string
}

// New sets up and returns a new App instance. It handles loading the
// configuration, initializing the database connection, running
// migrations and starting the progress hub.
func New(version string) (*App, error) {
	// Load configuration from config.yml
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize the database connection
	database, err := db.InitDB(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// Run database migrations
	if err := db.RunMigrations(database, assets.MigrationsFS); err != nil {
		// We can't proceed without a valid database schema.
		// Close the DB connection before failing.
		database.Close()
		return nil, fmt.Errorf("failed to run database migrations: %w", err)
	}

	hub := websocket.NewHub()
	go hub.Run()

	app := &App{
		config:  cfg,
		db:      database,
		wsHub:   hub,
		version: version,
	}
	app.jobManager = jobs.NewManager(app)

	log.Println("Core application setup complete.")
	return app, nil
}

// NewFromComponents assembles an App from pre-built parts. Tests use it
// to inject an in-memory database and their own hub.
func NewFromComponents(cfg *config.Config, database *sql.DB, hub *websocket.Hub, version string) *App {
	app := &App{
		config:  cfg,
		db:      database,
		wsHub:   hub,
		version: version,
	}
	app.jobManager = jobs.NewManager(app)
	return app
}

func (a *App) Config() *config.Config       { return a.config }
func (a *App) DB() *sql.DB                  { return a.db }
func (a *App) WsHub() *websocket.Hub        { return a.wsHub }
func (a *App) JobManager() *jobs.JobManager { return a.jobManager }
func (a *App) Version() string              { return a.version }

// Close gracefully closes the application's resources, like the DB connection.
func (a *App) Close() {
	if a.db != nil {
		a.db.Close()
	}
}
