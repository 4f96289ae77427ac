package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jionychiow/cmss/internal/api"
	"github.com/jionychiow/cmss/internal/domain"
	"github.com/jionychiow/cmss/internal/schema"
)

var (
	ErrPermissionDenied = errors.New("permission denied")
	ErrNoSelection      = errors.New("no records selected")
)

// resolveVariant looks up a schema variant and the endpoints of its resource.
func resolveVariant(catalog *schema.Catalog, code string) (*schema.Variant, api.Resource, error) {
	v, err := catalog.Variant(code)
	if err != nil {
		return nil, api.Resource{}, err
	}
	res, err := api.ResourceFor(v.Resource)
	if err != nil {
		return nil, api.Resource{}, fmt.Errorf("variant %s: %w", code, err)
	}
	return v, res, nil
}

// scoped narrows a phase or shift type request to what the actor may see.
func scoped(actor *domain.UserProfile, key, requested string) string {
	switch key {
	case domain.KeyPhase:
		return actor.EffectivePhase(requested)
	case domain.KeyShiftType:
		return actor.EffectiveShiftType(requested)
	}
	return requested
}

func username(actor *domain.UserProfile) string {
	if actor == nil {
		return ""
	}
	return actor.Username
}

// uniqueIDs drops blanks and repeats while keeping the first occurrence.
func uniqueIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// ValidationError lists every problem found in a record before submission.
type ValidationError struct {
	Errs []error
}

func (e *ValidationError) Error() string {
	if len(e.Errs) == 1 {
		return e.Errs[0].Error()
	}
	msg := fmt.Sprintf("validation failed (%d errors):", len(e.Errs))
	for _, err := range e.Errs {
		msg += "\n  - " + err.Error()
	}
	return msg
}

func (e *ValidationError) Unwrap() []error { return e.Errs }

func formatValidationErrors(errs []error) error {
	return &ValidationError{Errs: errs}
}
