package model

import "strings"

// Category is the name of a spending category.
type Category string

// Taxonomy members, in declared order.
const (
	CategoryFood          Category = "Food"
	CategoryTravel        Category = "Travel"
	CategoryRent          Category = "Rent"
	CategoryUtilities     Category = "Utilities"
	CategoryEntertainment Category = "Entertainment"
	CategoryHealth        Category = "Health"
	CategoryEducation     Category = "Education"
	CategoryShopping      Category = "Shopping"
	CategoryOther         Category = "Other"
)

// CategoryUncategorized marks an expense that has not been through categorization.
// It is never a taxonomy member.
const CategoryUncategorized Category = "Uncategorized"

// String implements fmt.Stringer.
func (c Category) String() string {
	return string(c)
}

// IsUnresolved reports whether the category is a low-confidence marker that the
// re-categorization sweep should revisit.
func (c Category) IsUnresolved() bool {
	return c == CategoryUncategorized || c == CategoryOther || c == ""
}

// Taxonomy is the closed, ordered set of valid categories.
type Taxonomy []Category

// DefaultTaxonomy returns the built-in category list.
func DefaultTaxonomy() Taxonomy {
	return Taxonomy{
		CategoryFood,
		CategoryTravel,
		CategoryRent,
		CategoryUtilities,
		CategoryEntertainment,
		CategoryHealth,
		CategoryEducation,
		CategoryShopping,
		CategoryOther,
	}
}

// Contains reports whether c is a member, compared exactly.
func (t Taxonomy) Contains(c Category) bool {
	for _, member := range t {
		if member == c {
			return true
		}
	}
	return false
}

// Lookup matches text against the taxonomy case-insensitively and returns the
// canonical spelling of the member.
func (t Taxonomy) Lookup(text string) (Category, bool) {
	needle := strings.ToLower(strings.TrimSpace(text))
	if needle == "" {
		return "", false
	}
	for _, member := range t {
		if strings.ToLower(string(member)) == needle {
			return member, true
		}
	}
	return "", false
}

// Names returns the member names as plain strings.
func (t Taxonomy) Names() []string {
	names := make([]string, len(t))
	for i, member := range t {
		names[i] = string(member)
	}
	return names
}
