package telegram

import (
	"fmt"
	"strings"

	"cityhelper/backend/internal/models"
)

// Main menu button labels, matched verbatim against incoming text.
const (
	BtnNewComplaint = "📝 Новая заявка"
	BtnMyComplaints = "📂 Мои заявки"
)

const (
	msgGreeting     = "Добро пожаловать в Городской Помощник! 🏙️\nЧто вы хотите сделать?"
	msgMenuHint     = "Что вы хотите сделать?"
	msgNoComplaints = "У вас пока нет активных заявок."
	msgBackendDown  = "⚠️ Произошла ошибка. Попробуйте позже."
)

// historyLimit caps the «Мои заявки» view.
const historyLimit = 5

var statusLabels = map[string]string{
	models.StatusNew:           "🔴 Новая",
	models.StatusInWork:        "🟡 В работе",
	models.StatusResolved:      "🟢 Решено",
	models.StatusRejected:      "⚪ Отклонено",
	models.StatusClarification: "🟠 Уточнение",
}

// FormatHistory renders the recent-complaints view (HTML parse mode).
func FormatHistory(items []models.Complaint) string {
	var b strings.Builder
	b.WriteString("📂 <b>Ваши последние заявки:</b>\n\n")
	for _, item := range items {
		status, ok := statusLabels[item.Status]
		if !ok {
			status = item.Status
		}
		fmt.Fprintf(&b, "▪️ %s (%s)\n<i>%s</i>\n\n", item.Category, status, truncate(item.Description, 30))
	}
	return b.String()
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit]) + "..."
}
