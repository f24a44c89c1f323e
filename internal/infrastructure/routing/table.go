package routing

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/garyjia/erp-approvals/internal/domain/approval"
	"github.com/garyjia/erp-approvals/internal/domain/entity"
)

// file is the on-disk layout of the routing file
type file struct {
	Defaults *approval.Approvers                `yaml:"defaults"`
	Kinds    map[entity.Kind]approval.Approvers `yaml:"kinds"`
}

// Table implements port.RoutingTable from a YAML file
type Table struct {
	defaults *approval.Approvers
	kinds    map[entity.Kind]approval.Approvers
}

// Empty returns a table with no routes
func Empty() *Table {
	return &Table{kinds: map[entity.Kind]approval.Approvers{}}
}

// Load reads a routing file. An empty path yields an empty table.
func Load(path string) (*Table, error) {
	if path == "" {
		return Empty(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read routing file: %w", err)
	}
	t, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("routing file %s: %w", path, err)
	}
	return t, nil
}

// Parse decodes routing YAML and rejects unknown kinds and fields
func Parse(data []byte) (*Table, error) {
	var f file
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode routing: %w", err)
	}

	t := Empty()
	if f.Defaults != nil && f.Defaults.HasApprovers() {
		d := *f.Defaults
		t.defaults = &d
	}
	for kind, a := range f.Kinds {
		if !kind.IsValid() {
			return nil, fmt.Errorf("unknown kind %q", kind)
		}
		if !a.HasApprovers() {
			return nil, fmt.Errorf("kind %q has no approvers", kind)
		}
		t.kinds[kind] = a
	}
	return t, nil
}

// Approvers returns the route for kind, falling back to the defaults
func (t *Table) Approvers(kind entity.Kind) (approval.Approvers, bool) {
	if a, ok := t.kinds[kind]; ok {
		return clone(a), true
	}
	if t.defaults != nil {
		return clone(*t.defaults), true
	}
	return approval.Approvers{}, false
}

// Len returns the number of kind-specific routes
func (t *Table) Len() int {
	return len(t.kinds)
}

func clone(a approval.Approvers) approval.Approvers {
	return approval.Approvers{
		First:  append([]string(nil), a.First...),
		Second: append([]string(nil), a.Second...),
		Third:  append([]string(nil), a.Third...),
		Shared: append([]string(nil), a.Shared...),
	}
}
