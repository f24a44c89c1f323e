package worker

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockWorker struct {
	name      string
	startFunc func(ctx context.Context) error
	stopFunc  func() error
	order     *[]string
	mu        *sync.Mutex
}

func (m *mockWorker) Start(ctx context.Context) error {
	if m.startFunc != nil {
		return m.startFunc(ctx)
	}
	return nil
}

func (m *mockWorker) Stop() error {
	if m.order != nil {
		m.mu.Lock()
		*m.order = append(*m.order, m.name)
		m.mu.Unlock()
	}
	if m.stopFunc != nil {
		return m.stopFunc()
	}
	return nil
}

func (m *mockWorker) Name() string { return m.name }

func TestWorkerManager_Lifecycle(t *testing.T) {
	var mu sync.Mutex
	var stopped []string
	m := NewWorkerManager(zap.NewNop())

	var gotCtx context.Context
	m.Register(&mockWorker{name: "first", order: &stopped, mu: &mu, startFunc: func(ctx context.Context) error {
		gotCtx = ctx
		return nil
	}})
	m.Register(&mockWorker{name: "second", order: &stopped, mu: &mu})
	assert.Equal(t, 2, m.GetWorkerCount())

	require.NoError(t, m.StartAll(context.Background()))
	assert.True(t, m.IsRunning())
	assert.ErrorIs(t, m.StartAll(context.Background()), ErrAlreadyRunning)

	require.NoError(t, m.StopAll())
	assert.False(t, m.IsRunning())
	assert.Equal(t, []string{"second", "first"}, stopped)
	assert.Error(t, gotCtx.Err(), "worker context is cancelled on stop")

	assert.NoError(t, m.StopAll(), "stopping twice is a no-op")
}

func TestWorkerManager_StartFailure(t *testing.T) {
	var mu sync.Mutex
	var stopped []string
	m := NewWorkerManager(zap.NewNop())
	m.Register(&mockWorker{name: "broken", order: &stopped, mu: &mu, startFunc: func(context.Context) error {
		return errors.New("bad schedule")
	}})
	m.Register(&mockWorker{name: "healthy", order: &stopped, mu: &mu})

	err := m.StartAll(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
	assert.True(t, m.IsRunning())

	require.NoError(t, m.StopAll())
	assert.Equal(t, []string{"healthy"}, stopped, "only started workers are stopped")
}

func TestWorkerManager_StopFailure(t *testing.T) {
	m := NewWorkerManager(zap.NewNop())
	boom := errors.New("stuck")
	m.Register(&mockWorker{name: "stuck", stopFunc: func() error { return boom }})

	require.NoError(t, m.StartAll(context.Background()))
	assert.ErrorIs(t, m.StopAll(), boom)
}
