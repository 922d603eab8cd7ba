package domain

import (
	"sort"

	"github.com/ingenieria-del-software-2/kiosko-fiuba/pkg/money"
)

// Attribute is one name/value pair of a variant's configuration,
// e.g. {Name: "color", Value: "Negro"}.
type Attribute struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// AttributeSet is an ordered list of attributes. Order carries display
// intent only; equality and subset checks treat it as a set keyed by
// attribute name. A name appears at most once.
type AttributeSet []Attribute

// NewAttributeSet builds a set from a map, sorted by attribute name so
// the result is deterministic.
func NewAttributeSet(m map[string]string) AttributeSet {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)

	set := make(AttributeSet, 0, len(m))
	for _, name := range names {
		set = append(set, Attribute{Name: name, Value: m[name]})
	}
	return set
}

// Value returns the value for the named attribute and whether it is set.
func (s AttributeSet) Value(name string) (string, bool) {
	for _, a := range s {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// With returns a copy of the set with the named attribute set to value,
// replacing any existing entry with the same name.
func (s AttributeSet) With(name, value string) AttributeSet {
	out := make(AttributeSet, 0, len(s)+1)
	replaced := false
	for _, a := range s {
		if a.Name == name {
			out = append(out, Attribute{Name: name, Value: value})
			replaced = true
			continue
		}
		out = append(out, a)
	}
	if !replaced {
		out = append(out, Attribute{Name: name, Value: value})
	}
	return out
}

// SubsetOf reports whether every attribute in s appears in other with
// the same value.
func (s AttributeSet) SubsetOf(other AttributeSet) bool {
	for _, a := range s {
		v, ok := other.Value(a.Name)
		if !ok || v != a.Value {
			return false
		}
	}
	return true
}

// Equal reports whether both sets contain exactly the same attribute
// names with the same values, regardless of order.
func (s AttributeSet) Equal(other AttributeSet) bool {
	return len(s) == len(other) && s.SubsetOf(other) && other.SubsetOf(s)
}

// Variant is one purchasable configuration of a product. IsAvailable is
// a merchandising flag independent of stock: a variant can hold units
// and still be withdrawn from sale.
type Variant struct {
	ID             string       `json:"id"`
	SKU            string       `json:"sku"`
	Attributes     AttributeSet `json:"attributes"`
	Price          money.Money  `json:"price"`
	CompareAtPrice *money.Money `json:"compare_at_price,omitempty"`
	Stock          int          `json:"stock"`
	IsAvailable    bool         `json:"is_available"`
	Position       int          `json:"position"`
	Images         []Image      `json:"images,omitempty"`
}

// InStock reports whether the variant has units available.
func (v *Variant) InStock() bool {
	return v.Stock > 0
}

// Purchasable reports whether the variant can be bought right now: it
// must be offered for sale and hold stock.
func (v *Variant) Purchasable() bool {
	return v.IsAvailable && v.InStock()
}

// VariantMatch is the result of an exact variant lookup. Duplicate is
// set when more than one variant carried the same attribute set; the
// first one in catalog order is returned and callers should surface the
// condition as a data integrity problem rather than fail the lookup.
type VariantMatch struct {
	Variant   *Variant
	Duplicate bool
}

// FindCompatibleVariants returns the variants whose attributes contain
// every selected attribute with a matching value. An empty selection
// matches all variants. Catalog order is preserved.
func FindCompatibleVariants(variants []Variant, selection AttributeSet) []*Variant {
	var out []*Variant
	for i := range variants {
		if selection.SubsetOf(variants[i].Attributes) {
			out = append(out, &variants[i])
		}
	}
	return out
}

// FindExactVariant returns the variant whose attribute set equals the
// selection. A partial selection never matches a variant with more
// attributes. When no variant matches, Variant is nil.
func FindExactVariant(variants []Variant, selection AttributeSet) VariantMatch {
	var match VariantMatch
	for i := range variants {
		if !variants[i].Attributes.Equal(selection) {
			continue
		}
		if match.Variant != nil {
			match.Duplicate = true
			break
		}
		match.Variant = &variants[i]
	}
	return match
}

// IsOptionValueAvailable reports whether setting the named option to
// value, keeping the rest of the selection, leads to at least one
// compatible variant. Stock does not factor in: a reachable zero-stock
// configuration is still a valid selection.
func IsOptionValueAvailable(variants []Variant, selection AttributeSet, option, value string) bool {
	return len(FindCompatibleVariants(variants, selection.With(option, value))) > 0
}

// PriceDifference returns how much the exact variant for the selection
// with the named option switched to value costs relative to the exact
// variant for the current selection. It is only defined when both exact
// variants exist; ok is false otherwise.
func PriceDifference(variants []Variant, selection AttributeSet, option, value string) (money.Money, bool) {
	current := FindExactVariant(variants, selection)
	if current.Variant == nil {
		return money.Money{}, false
	}
	candidate := FindExactVariant(variants, selection.With(option, value))
	if candidate.Variant == nil {
		return money.Money{}, false
	}
	diff, err := candidate.Variant.Price.Sub(current.Variant.Price)
	if err != nil {
		return money.Money{}, false
	}
	return diff, true
}
