package docstore

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/garyjia/erp-approvals/internal/application/port"
)

// toDocument converts any JSON-encodable value into a generic object. Update
// sentinels survive the conversion so Set can resolve them.
func toDocument(data interface{}) (map[string]interface{}, error) {
	if m, ok := data.(map[string]interface{}); ok {
		out := make(map[string]interface{}, len(m))
		for k, v := range m {
			if isSentinel(v) {
				out[k] = v
				continue
			}
			nv, err := normalize(v)
			if err != nil {
				return nil, err
			}
			out[k] = nv
		}
		return out, nil
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	var doc map[string]interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("document must encode to a JSON object: %w", err)
	}
	if doc == nil {
		doc = make(map[string]interface{})
	}
	return doc, nil
}

func topLevelSentinels(doc map[string]interface{}) map[string]interface{} {
	fields := make(map[string]interface{})
	for k, v := range doc {
		if isSentinel(v) {
			fields[k] = v
			delete(doc, k)
		}
	}
	return fields
}

func isSentinel(v interface{}) bool {
	switch v.(type) {
	case port.ArrayUnionValue, port.IncrementValue, port.ServerTimestampValue, port.DeleteFieldValue:
		return true
	default:
		return false
	}
}

// normalize round-trips a value through JSON so it compares like stored data
func normalize(v interface{}) (interface{}, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// applyFields writes each dotted field path into doc, resolving update sentinels
func applyFields(doc map[string]interface{}, fields map[string]interface{}, now time.Time) error {
	for field, value := range fields {
		if !fieldPattern.MatchString(field) {
			return fmt.Errorf("invalid field path %q", field)
		}

		parent, key, err := walk(doc, field)
		if err != nil {
			return err
		}

		switch v := value.(type) {
		case port.DeleteFieldValue:
			delete(parent, key)

		case port.ServerTimestampValue:
			parent[key] = now.Format(time.RFC3339Nano)

		case port.IncrementValue:
			var current float64
			if existing, ok := parent[key]; ok && existing != nil {
				n, ok := existing.(float64)
				if !ok {
					return fmt.Errorf("field %q is not numeric", field)
				}
				current = n
			}
			parent[key] = current + v.By

		case port.ArrayUnionValue:
			var arr []interface{}
			if existing, ok := parent[key]; ok && existing != nil {
				a, ok := existing.([]interface{})
				if !ok {
					return fmt.Errorf("field %q is not an array", field)
				}
				arr = a
			}
			for _, e := range v.Elements {
				ne, err := normalize(e)
				if err != nil {
					return fmt.Errorf("encode element of %q: %w", field, err)
				}
				if !containsValue(arr, ne) {
					arr = append(arr, ne)
				}
			}
			if arr == nil {
				arr = []interface{}{}
			}
			parent[key] = arr

		default:
			nv, err := normalize(v)
			if err != nil {
				return fmt.Errorf("encode %q: %w", field, err)
			}
			parent[key] = nv
		}
	}
	return nil
}

// walk returns the map holding the last segment of field, creating
// intermediate objects as needed
func walk(doc map[string]interface{}, field string) (map[string]interface{}, string, error) {
	segments := strings.Split(field, ".")
	current := doc
	for _, seg := range segments[:len(segments)-1] {
		next, ok := current[seg]
		if !ok || next == nil {
			m := make(map[string]interface{})
			current[seg] = m
			current = m
			continue
		}
		m, ok := next.(map[string]interface{})
		if !ok {
			return nil, "", fmt.Errorf("field %q traverses a non-object at %q", field, seg)
		}
		current = m
	}
	return current, segments[len(segments)-1], nil
}

func containsValue(arr []interface{}, v interface{}) bool {
	for _, e := range arr {
		if reflect.DeepEqual(e, v) {
			return true
		}
	}
	return false
}
