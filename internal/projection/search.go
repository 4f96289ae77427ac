package projection

import (
	"strings"

	"github.com/jionychiow/cmss/internal/domain"
)

// Search keeps the records with any value containing term, ignoring case.
// An empty term keeps everything.
func Search(records []domain.Record, term string) []domain.Record {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return records
	}
	var out []domain.Record
	for _, r := range records {
		for _, v := range r {
			if strings.Contains(strings.ToLower(v), term) {
				out = append(out, r)
				break
			}
		}
	}
	return out
}
