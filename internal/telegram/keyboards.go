package telegram

import (
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"cityhelper/backend/internal/catalog"
	"cityhelper/backend/internal/intake"
)

// Callback data prefixes for the inline keyboards.
const (
	callbackCategoryPrefix = "cat_"
	callbackSubPrefix      = "sub_"
	callbackBackToCats     = "back_to_cats"
)

// MainMenuKeyboard is the persistent two-button menu.
func MainMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(BtnNewComplaint),
			tgbotapi.NewKeyboardButton(BtnMyComplaints),
		),
	)
	kb.ResizeKeyboard = true
	return kb
}

// CategoriesKeyboard lays the catalog out as inline buttons, two per row.
func CategoriesKeyboard() tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton
	for _, cat := range catalog.All() {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(
			cat.Emoji+" "+cat.Name, callbackCategoryPrefix+cat.Key))
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// SubcategoriesKeyboard lists a category's subcategories one per row. The
// callback data carries the index, not the label: labels repeat across
// categories and must never be matched by text.
func SubcategoriesKeyboard(categoryKey string) (tgbotapi.InlineKeyboardMarkup, bool) {
	cat, ok := catalog.Lookup(categoryKey)
	if !ok {
		return tgbotapi.InlineKeyboardMarkup{}, false
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	for i, sub := range cat.Subs {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(sub, callbackSubPrefix+strconv.Itoa(i))))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("🔙 Назад", callbackBackToCats)))
	return tgbotapi.NewInlineKeyboardMarkup(rows...), true
}

// SkipKeyboard is the single skip button shown at the photo step.
func SkipKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(intake.SkipLabel)),
	)
	kb.ResizeKeyboard = true
	return kb
}

// GeoKeyboard offers the send-location button; skip appears only when the
// category does not mandate a map point.
func GeoKeyboard(required bool) tgbotapi.ReplyKeyboardMarkup {
	rows := [][]tgbotapi.KeyboardButton{
		{tgbotapi.NewKeyboardButtonLocation("📍 Отправить геопозицию")},
	}
	if !required {
		rows = append(rows, []tgbotapi.KeyboardButton{tgbotapi.NewKeyboardButton(intake.SkipLabel)})
	}
	kb := tgbotapi.NewReplyKeyboard(rows...)
	kb.ResizeKeyboard = true
	return kb
}

// PhoneKeyboard offers the share-contact button and a skip.
func PhoneKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButtonContact("📱 Отправить мой номер")),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(intake.SkipLabel)),
	)
	kb.ResizeKeyboard = true
	return kb
}
