package rules

import (
	"testing"

	"github.com/Veraticus/pennywise/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestMatcher_Match(t *testing.T) {
	matcher := NewMatcher(DefaultTable())

	tests := []struct {
		name        string
		title       string
		description string
		want        model.Category
		wantOK      bool
	}{
		{name: "coffee shop", title: "Starbucks Coffee", want: model.CategoryFood, wantOK: true},
		{name: "case insensitive", title: "UBER TRIP", want: model.CategoryTravel, wantOK: true},
		{name: "keyword in description", title: "Monthly payment", description: "apartment lease", want: model.CategoryRent, wantOK: true},
		{name: "multi-word keyword", title: "Whole Foods Market", want: model.CategoryFood, wantOK: true},
		{name: "streaming", title: "Netflix", want: model.CategoryEntertainment, wantOK: true},
		{name: "pharmacy", title: "CVS Pharmacy", want: model.CategoryHealth, wantOK: true},
		{name: "online course", title: "Udemy", description: "Go course", want: model.CategoryEducation, wantOK: true},
		{name: "retail", title: "Walmart", want: model.CategoryShopping, wantOK: true},
		{name: "no keyword", title: "XYZ Corp Invoice #4821", description: "consulting", wantOK: false},
		{name: "mystery", title: "Mystery Gadget", wantOK: false},
		{name: "empty", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := matcher.Match(tt.title, tt.description)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMatcher_DeclaredOrderWinsTies(t *testing.T) {
	// "gas bill" hits Travel ("gas") and Utilities ("bill"); Travel is declared first.
	matcher := NewMatcher(DefaultTable())
	got, ok := matcher.Match("Gas bill", "")
	assert.True(t, ok)
	assert.Equal(t, model.CategoryTravel, got)

	reordered := Table{
		{Category: model.CategoryUtilities, Keywords: []string{"bill"}},
		{Category: model.CategoryTravel, Keywords: []string{"gas"}},
	}
	got, ok = NewMatcher(reordered).Match("Gas bill", "")
	assert.True(t, ok)
	assert.Equal(t, model.CategoryUtilities, got)
}

func TestMatcher_NormalizesKeywords(t *testing.T) {
	matcher := NewMatcher(Table{
		{Category: model.CategoryHealth, Keywords: []string{"  Yoga Studio ", ""}},
	})

	got, ok := matcher.Match("Downtown yoga studio", "")
	assert.True(t, ok)
	assert.Equal(t, model.CategoryHealth, got)

	_, ok = matcher.Match("anything", "")
	assert.False(t, ok, "blank keyword must not match everything")
}

func TestMatcher_Categories(t *testing.T) {
	matcher := NewMatcher(DefaultTable())
	cats := matcher.Categories()
	assert.Len(t, cats, 8)
	assert.Equal(t, model.CategoryFood, cats[0])
	assert.Equal(t, model.CategoryShopping, cats[len(cats)-1])
}
