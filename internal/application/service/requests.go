package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/garyjia/erp-approvals/internal/application/port"
	"github.com/garyjia/erp-approvals/internal/application/workflow"
	"github.com/garyjia/erp-approvals/internal/domain/approval"
	"github.com/garyjia/erp-approvals/internal/domain/entity"
)

// requestCollections lists every collection holding requests
var requestCollections = []string{
	entity.CollectionVacations,
	entity.CollectionApprovals,
	entity.CollectionReports,
}

// RequestSummary is the list view of a request
type RequestSummary struct {
	Kind           entity.Kind         `json:"kind"`
	Owner          string              `json:"owner"`
	ID             string              `json:"id"`
	Title          string              `json:"title"`
	Status         string              `json:"status"`
	ActiveTier     string              `json:"activeTier,omitempty"`
	Visibility     approval.Visibility `json:"visibility,omitempty"`
	CreatedAt      time.Time           `json:"createdAt"`
	LastApprovedAt *time.Time          `json:"lastApprovedAt,omitempty"`
	Link           string              `json:"link"`
}

func summarize(req *entity.Request, vis approval.Visibility) RequestSummary {
	s := RequestSummary{
		Kind:           req.Kind,
		Owner:          req.Owner,
		ID:             req.ID,
		Title:          req.Title,
		Status:         req.Status.String(),
		Visibility:     vis,
		CreatedAt:      req.CreatedAt,
		LastApprovedAt: req.LastApprovedAt,
		Link:           req.Ref().Link(),
	}
	if !req.IsTerminal() {
		s.ActiveTier = req.Status.Stage.Tier().String()
	}
	return s
}

// sortNewestFirst orders summaries by creation time, newest first
func sortNewestFirst(items []RequestSummary) {
	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.After(items[j].CreatedAt)
		}
		return items[i].ID > items[j].ID
	})
}

// queryRequests runs a query and decodes the results. Documents that cannot be
// decoded are logged and skipped so one corrupt record does not hide the rest.
func queryRequests(ctx context.Context, store port.DocumentStore, logger Logger, q port.Query) ([]*entity.Request, error) {
	snaps, err := store.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", q.Collection, err)
	}

	reqs := make([]*entity.Request, 0, len(snaps))
	for _, snap := range snaps {
		req, err := workflow.DecodeRequest(snap)
		if err != nil {
			logger.Error("Skipping unreadable request", "path", snap.Path.String(), "error", err)
			continue
		}
		reqs = append(reqs, req)
	}
	return reqs, nil
}
