package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/jionychiow/cmss/internal/domain"
	"github.com/spf13/pflag"
)

// monthValue is a --month flag holding YYYY-MM or "all".
type monthValue struct {
	month string
}

var _ pflag.Value = (*monthValue)(nil)

func (m *monthValue) String() string { return m.month }

func (m *monthValue) Set(s string) error {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "all") {
		m.month = "all"
		return nil
	}
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return fmt.Errorf("month must be YYYY-MM or all, got %q", s)
	}
	m.month = t.Format("2006-01")
	return nil
}

func (m *monthValue) Type() string { return "month" }

// setValue collects repeated --set key=value pairs into a record. A later
// pair for the same key wins.
type setValue struct {
	values domain.Record
}

var _ pflag.Value = (*setValue)(nil)

func newSetValue() *setValue {
	return &setValue{values: domain.Record{}}
}

func (s *setValue) String() string {
	if len(s.values) == 0 {
		return ""
	}
	keys := s.values.Keys()
	pairs := make([]string, len(keys))
	for i, k := range keys {
		pairs[i] = k + "=" + s.values[k]
	}
	return strings.Join(pairs, ",")
}

func (s *setValue) Set(pair string) error {
	key, value, ok := strings.Cut(pair, "=")
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return fmt.Errorf("expected key=value, got %q", pair)
	}
	s.values[key] = strings.TrimSpace(value)
	return nil
}

func (s *setValue) Type() string { return "key=value" }
