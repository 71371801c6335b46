package telegram

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cityhelper/backend/internal/catalog"
)

func TestCategoriesKeyboardLayout(t *testing.T) {
	kb := CategoriesKeyboard()

	var buttons int
	for _, row := range kb.InlineKeyboard {
		assert.LessOrEqual(t, len(row), 2)
		for _, btn := range row {
			require.NotNil(t, btn.CallbackData)
			assert.True(t, strings.HasPrefix(*btn.CallbackData, callbackCategoryPrefix),
				"unexpected callback data %q", *btn.CallbackData)
			buttons++
		}
	}
	assert.Equal(t, len(catalog.All()), buttons)
}

func TestSubcategoriesKeyboardCarriesIndices(t *testing.T) {
	kb, ok := SubcategoriesKeyboard("roads")
	require.True(t, ok)

	cat, _ := catalog.Lookup("roads")
	// One row per subcategory plus the back button.
	require.Len(t, kb.InlineKeyboard, len(cat.Subs)+1)

	first := kb.InlineKeyboard[0][0]
	require.NotNil(t, first.CallbackData)
	assert.Equal(t, callbackSubPrefix+"0", *first.CallbackData)
	assert.Equal(t, cat.Subs[0], first.Text)

	back := kb.InlineKeyboard[len(kb.InlineKeyboard)-1][0]
	require.NotNil(t, back.CallbackData)
	assert.Equal(t, callbackBackToCats, *back.CallbackData)
}

func TestSubcategoriesKeyboardUnknownCategory(t *testing.T) {
	_, ok := SubcategoriesKeyboard("bogus")
	assert.False(t, ok)
}

func TestGeoKeyboardSkipOnlyWhenOptional(t *testing.T) {
	optional := GeoKeyboard(false)
	require.Len(t, optional.Keyboard, 2)
	assert.True(t, optional.Keyboard[0][0].RequestLocation)

	mandatory := GeoKeyboard(true)
	require.Len(t, mandatory.Keyboard, 1)
	assert.True(t, mandatory.Keyboard[0][0].RequestLocation)
}

func TestPhoneKeyboardRequestsContact(t *testing.T) {
	kb := PhoneKeyboard()
	require.Len(t, kb.Keyboard, 2)
	assert.True(t, kb.Keyboard[0][0].RequestContact)
}
