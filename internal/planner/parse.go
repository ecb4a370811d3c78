package planner

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// planDocument is the JSON shape the planning model must produce.
type planDocument struct {
	Description string      `json:"description"`
	Agents      []agentSpec `json:"agents"`
}

type agentSpec struct {
	Role      string  `json:"role"`
	Task      string  `json:"task"`
	DependsOn depList `json:"depends_on"`
}

// depList tolerates the shapes models actually emit for depends_on: a
// JSON array of numbers or numeric strings, a bare number, or a bare
// string. Entries that cannot be coerced to an integer are dropped.
type depList []int

func (d *depList) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" {
		*d = nil
		return nil
	}

	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		*d = nil
		return nil
	}

	switch v := raw.(type) {
	case []interface{}:
		deps := make([]int, 0, len(v))
		for _, item := range v {
			if n, ok := coerceInt(item); ok {
				deps = append(deps, n)
			}
		}
		*d = deps
	default:
		if n, ok := coerceInt(v); ok {
			*d = []int{n}
		} else {
			*d = nil
		}
	}
	return nil
}

func coerceInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}

// parsePlanDocument parses a planning response, tolerating prose or code
// fences around the JSON object.
func parsePlanDocument(content string) (*planDocument, error) {
	var doc planDocument
	if err := json.Unmarshal([]byte(content), &doc); err == nil {
		return &doc, nil
	}

	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object in planning response")
	}

	if err := json.Unmarshal([]byte(content[start:end+1]), &doc); err != nil {
		return nil, fmt.Errorf("parsing extracted planning JSON: %w", err)
	}
	return &doc, nil
}
