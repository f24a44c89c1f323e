package routing

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/erp-approvals/internal/domain/entity"
)

const sample = `
defaults:
  first: [lead@example.com]
kinds:
  vacation:
    first: [lead@example.com]
    second: [hr@example.com]
    shared: [payroll@example.com]
  purchase:
    first: [lead@example.com]
    third: [cfo@example.com]
`

func TestParse(t *testing.T) {
	table, err := Parse([]byte(sample))
	require.NoError(t, err)
	assert.Equal(t, 2, table.Len())

	a, ok := table.Approvers(entity.KindVacation)
	require.True(t, ok)
	assert.Equal(t, []string{"lead@example.com"}, a.First)
	assert.Equal(t, []string{"hr@example.com"}, a.Second)
	assert.Equal(t, []string{"payroll@example.com"}, a.Shared)

	a, ok = table.Approvers(entity.KindPurchase)
	require.True(t, ok)
	assert.Empty(t, a.Second)
	assert.Equal(t, []string{"cfo@example.com"}, a.Third)

	a, ok = table.Approvers(entity.KindDailyReport)
	require.True(t, ok, "falls back to defaults")
	assert.Equal(t, []string{"lead@example.com"}, a.First)
}

func TestParse_ReturnsCopies(t *testing.T) {
	table, err := Parse([]byte(sample))
	require.NoError(t, err)

	a, _ := table.Approvers(entity.KindVacation)
	a.First[0] = "mallory@example.com"

	again, _ := table.Approvers(entity.KindVacation)
	assert.Equal(t, "lead@example.com", again.First[0])
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{name: "unknown kind", yaml: "kinds:\n  holiday:\n    first: [a]\n"},
		{name: "empty route", yaml: "kinds:\n  sales:\n    shared: [a]\n"},
		{name: "unknown field", yaml: "kinds:\n  sales:\n    fourth: [a]\n"},
		{name: "malformed", yaml: "kinds: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestParse_EmptyDocument(t *testing.T) {
	table, err := Parse(nil)
	require.NoError(t, err)
	_, ok := table.Approvers(entity.KindSales)
	assert.False(t, ok)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "routing.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))

	table, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, table.Len())

	empty, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Len())

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
