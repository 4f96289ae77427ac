// Package implementer enforces that the acting user is always the first
// implementer of a record they edit.
package implementer

import "strings"

// Separator joins implementer names in the submitted payload.
const Separator = ", "

// Apply returns newSelection with currentUser at index 0. Blank names and
// duplicates are dropped; the order of the remaining names is kept. An
// empty currentUser leaves the (deduplicated) selection unchanged.
func Apply(newSelection []string, currentUser string) []string {
	currentUser = strings.TrimSpace(currentUser)
	out := make([]string, 0, len(newSelection)+1)
	seen := make(map[string]bool, len(newSelection)+1)
	if currentUser != "" {
		out = append(out, currentUser)
		seen[currentUser] = true
	}
	for _, name := range newSelection {
		name = strings.TrimSpace(name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}

// Join renders a selection for submission.
func Join(names []string) string {
	return strings.Join(names, Separator)
}

// Split parses a submitted implementer string. Both ", " and bare "," are
// accepted since spreadsheet users type either.
func Split(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
