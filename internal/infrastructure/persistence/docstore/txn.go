package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/garyjia/erp-approvals/internal/application/port"
)

// txn implements port.Txn on an open SQL transaction
type txn struct {
	ctx   context.Context
	tx    *sql.Tx
	now   time.Time
	wrote bool
}

// Get reads a document inside the transaction
func (t *txn) Get(p port.Path) (*port.Snapshot, error) {
	if t.wrote {
		return nil, fmt.Errorf("%w: get %s", port.ErrReadAfterWrite, p)
	}
	return getDocument(t.ctx, t.tx, p)
}

// Set creates or replaces a document
func (t *txn) Set(p port.Path, data interface{}) error {
	if err := p.Validate(); err != nil {
		return err
	}

	doc, err := toDocument(data)
	if err != nil {
		return fmt.Errorf("encode %s: %w", p, err)
	}
	if err := applyFields(doc, topLevelSentinels(doc), t.now); err != nil {
		return fmt.Errorf("set %s: %w", p, err)
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode %s: %w", p, err)
	}

	t.wrote = true
	_, err = t.tx.ExecContext(t.ctx,
		`INSERT INTO documents (collection, owner, subcollection, doc_id, body, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, 1, ?, ?)
		ON CONFLICT (collection, owner, subcollection, doc_id)
		DO UPDATE SET body = excluded.body, version = documents.version + 1, updated_at = excluded.updated_at`,
		p.Collection, p.Owner, p.Sub, p.ID, string(body), t.now, t.now,
	)
	if err != nil {
		return fmt.Errorf("failed to set %s: %w", p, err)
	}
	return nil
}

// Update merges fields into an existing document. Field keys are dotted paths.
func (t *txn) Update(p port.Path, fields map[string]interface{}) error {
	current, err := getDocument(t.ctx, t.tx, p)
	if err != nil {
		return err
	}

	var doc map[string]interface{}
	if err := json.Unmarshal(current.Data, &doc); err != nil {
		return fmt.Errorf("decode %s: %w", p, err)
	}
	if doc == nil {
		doc = make(map[string]interface{})
	}

	if err := applyFields(doc, fields, t.now); err != nil {
		return fmt.Errorf("update %s: %w", p, err)
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode %s: %w", p, err)
	}

	t.wrote = true
	res, err := t.tx.ExecContext(t.ctx,
		`UPDATE documents SET body = ?, version = version + 1, updated_at = ?
		WHERE collection = ? AND owner = ? AND subcollection = ? AND doc_id = ? AND version = ?`,
		string(body), t.now, p.Collection, p.Owner, p.Sub, p.ID, current.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", p, err)
	}
	if n, _ := res.RowsAffected(); n != 1 {
		return fmt.Errorf("%w: %s changed during transaction", port.ErrTransientStore, p)
	}
	return nil
}

// Delete removes a document. Deleting a missing document is not an error.
func (t *txn) Delete(p port.Path) error {
	if err := p.Validate(); err != nil {
		return err
	}

	t.wrote = true
	_, err := t.tx.ExecContext(t.ctx,
		`DELETE FROM documents WHERE collection = ? AND owner = ? AND subcollection = ? AND doc_id = ?`,
		p.Collection, p.Owner, p.Sub, p.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", p, err)
	}
	return nil
}

var _ port.Txn = (*txn)(nil)
