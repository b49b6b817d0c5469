package loam

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// NodeMetadata is the frontmatter of a node document.
//
//	---
//	id: 2
//	destinations: [3, 4]
//	entry: true
//	---
//	The party reaches the bridge.
//
// Numeric fields are untyped because Loam's strict mode yields json.Number while
// hand-written YAML yields int.
type NodeMetadata struct {
	ID           any   `json:"id" mapstructure:"id"`
	Destinations []any `json:"destinations" mapstructure:"destinations"`
	Entry        bool  `json:"entry" mapstructure:"entry"`
}

func toInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case uint64:
		return int(n), nil
	case float64:
		if n != float64(int(n)) {
			return 0, fmt.Errorf("%v is not an integer", n)
		}
		return int(n), nil
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, fmt.Errorf("%q is not an integer", n.String())
		}
		return int(i), nil
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0, fmt.Errorf("%q is not an integer", n)
		}
		return i, nil
	default:
		return 0, fmt.Errorf("expected integer, got %T", v)
	}
}
