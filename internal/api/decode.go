package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/jionychiow/cmss/internal/domain"
)

// decodeRecords accepts a bare JSON array or a paginated {"results": [...]}.
func decodeRecords(body []byte) ([]domain.Record, error) {
	body = bytes.TrimSpace(body)
	var items []map[string]any
	if len(body) > 0 && body[0] == '{' {
		var page struct {
			Results []map[string]any `json:"results"`
		}
		if err := unmarshalNumbers(body, &page); err != nil {
			return nil, fmt.Errorf("decoding records: %w", err)
		}
		items = page.Results
	} else if err := unmarshalNumbers(body, &items); err != nil {
		return nil, fmt.Errorf("decoding records: %w", err)
	}

	out := make([]domain.Record, len(items))
	for i, item := range items {
		out[i] = toRecord(item)
	}
	return out, nil
}

func decodeRecord(body []byte) (domain.Record, error) {
	var item map[string]any
	if err := unmarshalNumbers(body, &item); err != nil {
		return nil, fmt.Errorf("decoding record: %w", err)
	}
	return toRecord(item), nil
}

func unmarshalNumbers(body []byte, out any) error {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	return dec.Decode(out)
}

func toRecord(m map[string]any) domain.Record {
	r := make(domain.Record, len(m))
	for k, v := range m {
		r[k] = stringify(v)
	}
	return r
}

// stringify flattens a JSON value into a record string. Lists are joined
// the way implementers are; user objects collapse to their username.
func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			if s := stringify(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	case map[string]any:
		if name, ok := t["username"].(string); ok {
			return name
		}
		data, _ := json.Marshal(t)
		return string(data)
	}
	return fmt.Sprint(v)
}
