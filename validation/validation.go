package validation

import (
	"net/mail"
	"sort"
	"strings"
)

// Violations maps a field name to a snake_case violation code.
type Violations map[string]string

func (v Violations) Empty() bool { return len(v) == 0 }

// Fields returns the violated field names in sorted order.
func (v Violations) Fields() []string {
	out := make([]string, 0, len(v))
	for k := range v {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// String renders the violations as "field=code" pairs, sorted by field.
func (v Violations) String() string {
	parts := make([]string, 0, len(v))
	for _, f := range v.Fields() {
		parts = append(parts, f+"="+v[f])
	}
	return strings.Join(parts, ", ")
}

// Basic validators. A field keeps its first violation.
func Required(field, value string, v Violations) {
	if strings.TrimSpace(value) == "" {
		add(field, "required", v)
	}
}

func MaxLen(field, value string, n int, v Violations) {
	if len([]rune(value)) > n {
		add(field, "too_long", v)
	}
}

// Email checks a bare address (no display name). Empty values pass; pair with Required.
func Email(field, value string, v Violations) {
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}
	addr, err := mail.ParseAddress(value)
	if err != nil || addr.Address != value {
		add(field, "invalid_email", v)
	}
}

// OneOf checks value against an allow-list.
func OneOf(field, value string, allowed []string, v Violations) {
	for _, a := range allowed {
		if value == a {
			return
		}
	}
	add(field, "invalid_choice", v)
}

func NonNegativeFloat(field string, val float64, v Violations) {
	if val < 0 {
		add(field, "must_not_be_negative", v)
	}
}

func RangeFloat(field string, val, minVal, maxVal float64, v Violations) {
	if val < minVal || val > maxVal {
		add(field, "out_of_range", v)
	}
}

func add(field, code string, v Violations) {
	if _, exists := v[field]; !exists {
		v[field] = code
	}
}
