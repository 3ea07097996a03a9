// This file contains shared test utilities for job context mocking.

package testutil

import (
	"database/sql"
	"testing"

	"github.com/podmill/podmill-go/internal/config"
	"github.com/podmill/podmill-go/internal/jobs"
	"github.com/podmill/podmill-go/internal/websocket"
)

// MockJobContext implements jobs.JobContext for testing. Its hub is not
// running, so broadcasts pile up in the buffered Broadcast channel
// where tests can inspect them.
type MockJobContext struct {
	db  *sql.DB
	cfg *config.Config
	hub *websocket.Hub
	jm  *jobs.JobManager
}

// NewMockJobContext builds a JobContext backed by an in-memory database
// and a quiet hub. The config starts empty; tests fill in the paths
// they need.
func NewMockJobContext(t *testing.T) *MockJobContext {
	t.Helper()
	ctx := &MockJobContext{
		db:  SetupTestDB(t),
		cfg: &config.Config{},
		hub: websocket.NewHub(),
	}
	ctx.jm = jobs.NewManager(ctx)
	return ctx
}

func (m *MockJobContext) DB() *sql.DB                  { return m.db }
func (m *MockJobContext) Config() *config.Config       { return m.cfg }
func (m *MockJobContext) WsHub() *websocket.Hub        { return m.hub }
func (m *MockJobContext) JobManager() *jobs.JobManager { return m.jm }
