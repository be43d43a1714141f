package repository

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// jsonColumn stores a slice as a JSON document (JSONB on Postgres, TEXT elsewhere).
type jsonColumn[T any] struct {
	V []T
}

func (c jsonColumn[T]) Value() (driver.Value, error) {
	v := c.V
	if v == nil {
		v = []T{}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	// string rather than []byte: lib/pq would send []byte as bytea
	return string(data), nil
}

func (c *jsonColumn[T]) Scan(src any) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		c.V = []T{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("json column: unsupported type %T", src)
	}

	out := []T{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &out); err != nil {
			return fmt.Errorf("json column: %w", err)
		}
	}
	c.V = out
	return nil
}
