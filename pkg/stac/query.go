package stac

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Filter languages sent alongside filter payloads so the server knows
// which grammar was used.
const (
	FilterLangJSON = "cql2-json"
	FilterLangText = "cql2-text"
)

// Comparison operators accepted in shorthand filters. Order matters:
// multi-character operators must be tried before their prefixes or
// "a>=b" would split on ">".
var shorthandOps = []string{">=", "<=", "<>", "=", ">", "<"}

// numericProperties lists the properties whose shorthand literals are
// cast to numbers. Everything else is sent as a string even when it
// looks numeric: servers have historically compared common properties
// lexically, and changing the literal type breaks them. Widening this
// list is a compatibility decision, not a local convenience.
var numericProperties = map[string]bool{
	"gsd": true,
}

// Expression is a node in the canonical boolean filter tree. Comparison
// nodes carry Op, Property, and Value; logical nodes carry Op ("and",
// "or") and Children.
type Expression struct {
	Op       string        `json:"op"`
	Property string        `json:"property,omitempty"`
	Value    any           `json:"value,omitempty"`
	Children []*Expression `json:"children,omitempty"`
}

// Filter is a per-item-property filter in exactly one of two forms: a
// canonical expression tree, or a raw payload in a textual or structured
// grammar that is passed through unparsed, tagged with its language.
type Filter struct {
	lang string
	expr *Expression
	raw  any
}

// Lang returns the filter's wire language identifier.
func (f *Filter) Lang() string {
	return f.lang
}

// Expression returns the canonical tree, or nil for a pass-through
// filter.
func (f *Filter) Expression() *Expression {
	return f.expr
}

// Payload returns the value serialized on the wire: the tree for
// canonical filters, the raw payload otherwise.
func (f *Filter) Payload() any {
	if f.expr != nil {
		return f.expr
	}

	return f.raw
}

// NewExpressionFilter wraps an already-structured expression tree.
func NewExpressionFilter(expr *Expression) *Filter {
	return &Filter{lang: FilterLangJSON, expr: expr}
}

// NewTextFilter wraps raw cql2-text. The text is not parsed, only tagged.
func NewTextFilter(text string) *Filter {
	return &Filter{lang: FilterLangText, raw: text}
}

// NewJSONFilter wraps a raw structured payload in the cql2-json grammar.
// The payload is not validated, only tagged.
func NewJSONFilter(raw json.RawMessage) *Filter {
	return &Filter{lang: FilterLangJSON, raw: raw}
}

// ParseShorthand translates compact "property op literal" entries into
// the canonical tree. Operators are >=, <=, <>, =, > and <. Multiple
// entries combine with logical AND, so a closed range is two entries on
// the same property. An entry repeating a property with the same
// operator overwrites the earlier literal.
func ParseShorthand(entries ...string) (*Filter, error) {
	var comparisons []*Expression

	for _, entry := range entries {
		comp, err := parseShorthandEntry(entry)
		if err != nil {
			return nil, err
		}

		if prev := findComparison(comparisons, comp.Property, comp.Op); prev != nil {
			prev.Value = comp.Value

			continue
		}

		comparisons = append(comparisons, comp)
	}

	switch len(comparisons) {
	case 0:
		return nil, fmt.Errorf("%w: no entries", ErrInvalidFilterSyntax)
	case 1:
		return &Filter{lang: FilterLangJSON, expr: comparisons[0]}, nil
	default:
		return &Filter{
			lang: FilterLangJSON,
			expr: &Expression{Op: "and", Children: comparisons},
		}, nil
	}
}

func parseShorthandEntry(entry string) (*Expression, error) {
	for _, op := range shorthandOps {
		idx := strings.Index(entry, op)
		if idx < 0 {
			continue
		}

		property := entry[:idx]
		literal := entry[idx+len(op):]

		if property == "" {
			return nil, fmt.Errorf("%w: missing property in %q", ErrInvalidFilterSyntax, entry)
		}

		value, err := typeLiteral(property, literal)
		if err != nil {
			return nil, err
		}

		return &Expression{Op: op, Property: property, Value: value}, nil
	}

	return nil, fmt.Errorf("%w: no operator found in %q", ErrInvalidFilterSyntax, entry)
}

// typeLiteral applies the numeric-cast allowlist.
func typeLiteral(property, literal string) (any, error) {
	if !numericProperties[property] {
		return literal, nil
	}

	value, err := strconv.ParseFloat(literal, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %q is not numeric for property %q", ErrInvalidFilterSyntax, literal, property)
	}

	return value, nil
}

func findComparison(comparisons []*Expression, property, op string) *Expression {
	for _, comp := range comparisons {
		if comp.Property == property && comp.Op == op {
			return comp
		}
	}

	return nil
}
