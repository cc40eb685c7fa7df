package sqltypes

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// JSONStringSlice stores a list of strings as a JSON array in a text column.
type JSONStringSlice []string

func (s JSONStringSlice) Value() (driver.Value, error) {
	if len(s) == 0 {
		return "[]", nil
	}

	d, err := json.Marshal([]string(s))
	if err != nil {
		return nil, fmt.Errorf("sqltypes.JSONStringSlice: could not encode value as JSON: %w", err)
	}

	return string(d), nil
}

func (s *JSONStringSlice) Scan(src interface{}) error {
	switch src := src.(type) {
	case nil:
		*s = nil
		return nil
	case []byte:
		if err := json.Unmarshal(src, s); err != nil {
			return fmt.Errorf("sqltypes.JSONStringSlice: could not decode input (%T) as JSON: %w", src, err)
		}
		return nil
	case string:
		if err := json.Unmarshal([]byte(src), s); err != nil {
			return fmt.Errorf("sqltypes.JSONStringSlice: could not decode input (%T) as JSON: %w", src, err)
		}
		return nil
	default:
		return fmt.Errorf("sqltypes.JSONStringSlice: could not scan input type of %T", src)
	}
}
