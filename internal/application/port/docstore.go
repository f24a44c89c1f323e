package port

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/garyjia/erp-approvals/internal/domain/entity"
)

var (
	// ErrDocumentNotFound is returned when a path has no document
	ErrDocumentNotFound = errors.New("document not found")

	// ErrTransientStore is returned when a transaction kept conflicting or the store was unavailable.
	// Callers may retry with a fresh read.
	ErrTransientStore = errors.New("document store temporarily unavailable")

	// ErrReadAfterWrite is returned when a transaction reads after it has buffered a write
	ErrReadAfterWrite = errors.New("transaction reads must precede writes")
)

// Path addresses a document as {collection}/{owner}/{subcollection}/{id}
type Path struct {
	Collection string
	Owner      string
	Sub        string
	ID         string
}

// String returns the slash-separated form
func (p Path) String() string {
	return fmt.Sprintf("%s/%s/%s/%s", p.Collection, p.Owner, p.Sub, p.ID)
}

// Validate checks that every segment is present
func (p Path) Validate() error {
	if p.Collection == "" || p.Owner == "" || p.Sub == "" || p.ID == "" {
		return fmt.Errorf("incomplete document path %q", p.String())
	}
	return nil
}

// RequestPath returns the storage path of a request
func RequestPath(ref entity.RequestRef) Path {
	return Path{
		Collection: ref.Kind.Collection(),
		Owner:      ref.Owner,
		Sub:        ref.Kind.Subcollection(),
		ID:         ref.ID,
	}
}

// NotificationPath returns the storage path of a notification
func NotificationPath(target, id string) Path {
	return Path{
		Collection: entity.CollectionNotifications,
		Owner:      target,
		Sub:        entity.SubcollectionItems,
		ID:         id,
	}
}

// BalancePath returns the storage path of a vacation balance
func BalancePath(owner string, year int) Path {
	return Path{
		Collection: entity.CollectionUsers,
		Owner:      owner,
		Sub:        entity.SubcollectionBalances,
		ID:         strconv.Itoa(year),
	}
}

// Snapshot is a document read at a point in time
type Snapshot struct {
	Path       Path
	Data       json.RawMessage
	Version    int64
	CreateTime time.Time
	UpdateTime time.Time
}

// DataTo decodes the document body into v
func (s *Snapshot) DataTo(v interface{}) error {
	if err := json.Unmarshal(s.Data, v); err != nil {
		return fmt.Errorf("decode %s: %w", s.Path, err)
	}
	return nil
}

// Txn is a read-modify-write unit. All reads must happen before the first write.
type Txn interface {
	Get(p Path) (*Snapshot, error)
	Set(p Path, data interface{}) error
	Update(p Path, fields map[string]interface{}) error
	Delete(p Path) error
}

// TxnFunc is the body of a transaction. It may run more than once.
type TxnFunc func(ctx context.Context, tx Txn) error

// DocumentStore provides hierarchical JSON documents with atomic transactions
type DocumentStore interface {
	// RunTransaction runs fn and commits its writes atomically. Conflicting
	// transactions are retried from the start; exhausting retries yields ErrTransientStore.
	RunTransaction(ctx context.Context, fn TxnFunc) error

	// Get reads one document outside any transaction
	Get(ctx context.Context, p Path) (*Snapshot, error)

	// Query returns documents of a collection matching all filters
	Query(ctx context.Context, q Query) ([]*Snapshot, error)
}

// Operator is a query comparison
type Operator string

const (
	OpEqual          Operator = "=="
	OpNotEqual       Operator = "!="
	OpLessThan       Operator = "<"
	OpLessOrEqual    Operator = "<="
	OpGreaterThan    Operator = ">"
	OpGreaterOrEqual Operator = ">="
	OpArrayContains  Operator = "array-contains"
)

// Filter restricts a query on a dotted field path
type Filter struct {
	Field string
	Op    Operator
	Value interface{}
}

// Query selects documents within one collection. Empty Owner or Sub match every owner or subcollection.
type Query struct {
	Collection string
	Owner      string
	Sub        string
	Filters    []Filter
	OrderBy    string
	Descending bool
	Limit      int
}

// Where appends a filter and returns the query
func (q Query) Where(field string, op Operator, value interface{}) Query {
	q.Filters = append(append([]Filter(nil), q.Filters...), Filter{Field: field, Op: op, Value: value})
	return q
}

// ArrayUnionValue appends elements not already present in an array field
type ArrayUnionValue struct {
	Elements []interface{}
}

// IncrementValue adds to a numeric field, treating a missing field as zero
type IncrementValue struct {
	By float64
}

// ServerTimestampValue is replaced by the commit time
type ServerTimestampValue struct{}

// DeleteFieldValue removes a field
type DeleteFieldValue struct{}

// ArrayUnion returns an update value appending elements to an array field
func ArrayUnion(elements ...interface{}) ArrayUnionValue {
	return ArrayUnionValue{Elements: elements}
}

// Increment returns an update value adding n to a numeric field
func Increment(n float64) IncrementValue {
	return IncrementValue{By: n}
}

var (
	// ServerTimestamp is replaced by the transaction's commit time
	ServerTimestamp = ServerTimestampValue{}

	// DeleteField removes the field from the document
	DeleteField = DeleteFieldValue{}
)
