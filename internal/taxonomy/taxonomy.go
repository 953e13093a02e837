package taxonomy

import (
	"fmt"
	"strings"
)

// Label is the canonical recycling category for a classifier tag.
type Label string

const (
	LabelRecyclable    Label = "recyclable"
	LabelNonRecyclable Label = "non-recyclable"
	LabelUnknown       Label = "unknown"
)

// ParseLabel converts a configuration value into a Label.
func ParseLabel(value string) (Label, error) {
	switch Label(strings.ToLower(strings.TrimSpace(value))) {
	case LabelRecyclable:
		return LabelRecyclable, nil
	case LabelNonRecyclable:
		return LabelNonRecyclable, nil
	case LabelUnknown:
		return LabelUnknown, nil
	default:
		return LabelUnknown, fmt.Errorf("invalid taxonomy label %q", value)
	}
}

// Mapper resolves raw classifier tags to canonical labels. The underlying
// table is built once at startup and never mutated, so a single Mapper is
// safe for concurrent use across requests.
type Mapper struct {
	table map[string]Label
}

// NewMapper builds a mapper from a tag table. Keys are canonicalized so
// lookups are case-insensitive and whitespace-tolerant.
func NewMapper(table map[string]Label) (*Mapper, error) {
	if len(table) == 0 {
		return nil, fmt.Errorf("taxonomy table is empty")
	}
	canonical := make(map[string]Label, len(table))
	for tag, label := range table {
		key := CanonicalTag(tag)
		if key == "" {
			return nil, fmt.Errorf("taxonomy table contains an empty tag")
		}
		if _, err := ParseLabel(string(label)); err != nil {
			return nil, fmt.Errorf("tag %q: %w", tag, err)
		}
		canonical[key] = label
	}
	return &Mapper{table: canonical}, nil
}

// Map returns the canonical label for a raw classifier tag. Tags absent from
// the table resolve to LabelUnknown so vocabulary drift in the external
// classifier degrades gracefully instead of failing the request.
func (m *Mapper) Map(tag string) Label {
	if label, ok := m.table[CanonicalTag(tag)]; ok {
		return label
	}
	return LabelUnknown
}

// CanonicalTag normalizes a raw tag for table lookup and display.
func CanonicalTag(tag string) string {
	return strings.ToLower(strings.TrimSpace(tag))
}
