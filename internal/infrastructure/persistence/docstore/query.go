package docstore

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/erp-approvals/internal/application/port"
)

var fieldPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*$`)

var comparisonOps = map[port.Operator]string{
	port.OpEqual:          "=",
	port.OpNotEqual:       "!=",
	port.OpLessThan:       "<",
	port.OpLessOrEqual:    "<=",
	port.OpGreaterThan:    ">",
	port.OpGreaterOrEqual: ">=",
}

// Query implements port.DocumentStore
func (s *Store) Query(ctx context.Context, q port.Query) ([]*port.Snapshot, error) {
	query, args, err := buildQuery(q)
	if err != nil {
		return nil, err
	}

	var exec executor = s.db
	if t := txnFrom(ctx); t != nil {
		exec = t.tx
	}

	rows, err := exec.QueryContext(ctx, query, args...)
	if err != nil {
		s.logger.Error("Document query failed",
			zap.String("collection", q.Collection),
			zap.Error(err))
		return nil, fmt.Errorf("failed to query %s: %w", q.Collection, err)
	}
	defer rows.Close()

	var snaps []*port.Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		snaps = append(snaps, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate documents: %w", err)
	}
	return snaps, nil
}

func buildQuery(q port.Query) (string, []interface{}, error) {
	if q.Collection == "" {
		return "", nil, fmt.Errorf("query requires a collection")
	}

	var (
		where = []string{"collection = ?"}
		args  = []interface{}{q.Collection}
	)
	if q.Owner != "" {
		where = append(where, "owner = ?")
		args = append(args, q.Owner)
	}
	if q.Sub != "" {
		where = append(where, "subcollection = ?")
		args = append(args, q.Sub)
	}

	for _, f := range q.Filters {
		if !fieldPattern.MatchString(f.Field) {
			return "", nil, fmt.Errorf("invalid field path %q", f.Field)
		}
		jsonPath := "$." + f.Field

		if f.Op == port.OpArrayContains {
			where = append(where, "EXISTS (SELECT 1 FROM json_each(documents.body, ?) WHERE json_each.value = ?)")
			args = append(args, jsonPath, sqlValue(f.Value))
			continue
		}

		op, ok := comparisonOps[f.Op]
		if !ok {
			return "", nil, fmt.Errorf("unsupported operator %q", f.Op)
		}
		if t, ok := f.Value.(time.Time); ok {
			where = append(where, fmt.Sprintf("julianday(json_extract(body, ?)) %s julianday(?)", op))
			args = append(args, jsonPath, t.UTC().Format(time.RFC3339Nano))
			continue
		}
		where = append(where, fmt.Sprintf("json_extract(body, ?) %s ?", op))
		args = append(args, jsonPath, sqlValue(f.Value))
	}

	query := `SELECT ` + selectColumns + ` FROM documents WHERE ` + strings.Join(where, " AND ")

	if q.OrderBy != "" {
		if !fieldPattern.MatchString(q.OrderBy) {
			return "", nil, fmt.Errorf("invalid order field %q", q.OrderBy)
		}
		direction := "ASC"
		if q.Descending {
			direction = "DESC"
		}
		query += fmt.Sprintf(" ORDER BY json_extract(body, ?) %s, doc_id %s", direction, direction)
		args = append(args, "$."+q.OrderBy)
	}
	if q.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, q.Limit)
	}
	return query, args, nil
}

// sqlValue maps Go values to what json_extract returns for them
func sqlValue(v interface{}) interface{} {
	switch val := v.(type) {
	case bool:
		if val {
			return 1
		}
		return 0
	case fmt.Stringer:
		return val.String()
	default:
		return v
	}
}
