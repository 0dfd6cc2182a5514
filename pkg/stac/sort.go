package stac

import (
	"fmt"
	"strings"
)

// SortDirection is a sort order.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// SortField is one field of a sort specification.
type SortField struct {
	Field     string        `json:"field"     yaml:"field"`
	Direction SortDirection `json:"direction" yaml:"direction"`
}

// SortSpec is an ordered sort specification; the first field is the
// primary sort key.
type SortSpec []SortField

// Three input shapes are accepted for sorting: a comma-joined string of
// prefixed fields, a list of prefixed fields, and explicit SortField
// records. One normalizer per shape, all converging on SortSpec.

// SortFromString parses "-datetime,+id". Fields default to ascending.
func SortFromString(value string) (SortSpec, error) {
	return SortFromStrings(strings.Split(value, ","))
}

// SortFromStrings parses a list of optionally +/- prefixed field names.
func SortFromStrings(parts []string) (SortSpec, error) {
	spec := make(SortSpec, 0, len(parts))

	for _, part := range parts {
		field, err := sortPartToField(part)
		if err != nil {
			return nil, err
		}

		spec = append(spec, field)
	}

	return spec, nil
}

func sortPartToField(part string) (SortField, error) {
	direction := SortAsc
	name := part

	switch {
	case strings.HasPrefix(part, "-"):
		direction = SortDesc
		name = part[1:]
	case strings.HasPrefix(part, "+"):
		name = part[1:]
	}

	if name == "" {
		return SortField{}, fmt.Errorf("%w: empty field name in %q", ErrInvalidSortSyntax, part)
	}

	return SortField{Field: name, Direction: direction}, nil
}

// Validate checks explicit SortField records: empty field names and
// unrecognized direction tokens are rejected.
func (s SortSpec) Validate() error {
	for _, field := range s {
		if field.Field == "" {
			return fmt.Errorf("%w: empty field name", ErrInvalidSortSyntax)
		}

		if field.Direction != SortAsc && field.Direction != SortDesc {
			return fmt.Errorf("%w: unknown direction %q for field %q", ErrInvalidSortSyntax, field.Direction, field.Field)
		}
	}

	return nil
}

// String renders the compact GET form, "+field" for ascending and
// "-field" for descending.
func (s SortSpec) String() string {
	parts := make([]string, 0, len(s))

	for _, field := range s {
		prefix := "+"
		if field.Direction == SortDesc {
			prefix = "-"
		}

		parts = append(parts, prefix+field.Field)
	}

	return strings.Join(parts, ",")
}
