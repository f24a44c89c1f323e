package service

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/erp-approvals/internal/application/workflow"
	"github.com/garyjia/erp-approvals/internal/domain/approval"
	"github.com/garyjia/erp-approvals/internal/domain/entity"
	"github.com/garyjia/erp-approvals/internal/infrastructure/persistence/docstore"
	"github.com/garyjia/erp-approvals/pkg/database"
)

// mockLogger implements Logger for testing
type mockLogger struct {
	mu     sync.Mutex
	infos  []string
	errors []string
}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.infos = append(m.infos, msg)
}

func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors = append(m.errors, fmt.Sprint(append([]interface{}{msg}, keysAndValues...)...))
}

// testClock is a settable time source shared by coordinator and services
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func newTestStore(t *testing.T) *docstore.Store {
	t.Helper()
	db, err := database.New(database.Config{Path: filepath.Join(t.TempDir(), "erp.db")}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = database.NewMigrator(db, zap.NewNop()).Run(database.EmbeddedMigrations())
	require.NoError(t, err)
	return docstore.New(db.DB, zap.NewNop())
}

func createRequest(t *testing.T, c workflow.Coordinator, kind entity.Kind, owner, title string, a approval.Approvers) entity.RequestRef {
	t.Helper()
	cmd := workflow.CreateCommand{Kind: kind, Owner: owner, Title: title, Approvers: &a}
	if kind == entity.KindVacation {
		cmd.Vacation = &entity.VacationDetail{Type: "annual", StartDate: "2024-05-02", EndDate: "2024-05-02", Days: 1}
	}
	req, err := c.Create(context.Background(), cmd)
	require.NoError(t, err)
	return req.Ref()
}

func decide(t *testing.T, c workflow.Coordinator, ref entity.RequestRef, actor string, action approval.Action) {
	t.Helper()
	_, err := c.Submit(context.Background(), workflow.SubmitCommand{Ref: ref, Actor: actor, Action: action})
	require.NoError(t, err)
}
