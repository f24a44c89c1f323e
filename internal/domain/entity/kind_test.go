package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKind_Location(t *testing.T) {
	tests := []struct {
		kind       Kind
		collection string
		sub        string
	}{
		{KindVacation, "vacations", "requests"},
		{KindPurchase, "approvals", "purchase"},
		{KindSales, "approvals", "sales"},
		{KindVehicle, "approvals", "vehicle"},
		{KindExpense, "approvals", "expense"},
		{KindDailyReport, "reports", "daily"},
		{KindWeeklyReport, "reports", "weekly"},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			assert.Equal(t, tt.collection, tt.kind.Collection())
			assert.Equal(t, tt.sub, tt.kind.Subcollection())

			k, ok := KindAt(tt.collection, tt.sub)
			require.True(t, ok)
			assert.Equal(t, tt.kind, k)
		})
	}
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("weekly_report")
	require.NoError(t, err)
	assert.True(t, k.IsReport())

	_, err = ParseKind("invoice")
	assert.Error(t, err)
}

func TestKindAt_Unknown(t *testing.T) {
	_, ok := KindAt("notifications", "items")
	assert.False(t, ok)
}
