// Package intake drives a citizen through the multi-step complaint flow:
// category → subcategory → (extra data) → photos → location → description →
// phone → submit. Each inbound turn mutates the draft at most once; input
// that fails the current step's acceptance check re-prompts without touching
// the draft.
package intake

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"

	"cityhelper/backend/internal/catalog"
	"cityhelper/backend/internal/models"
	"cityhelper/backend/internal/session"
)

// SkipLabel is the reply-keyboard button that skips an optional step.
const SkipLabel = "Пропустить"

const (
	msgChooseCategory  = "Выберите категорию обращения:"
	msgUnknownCategory = "Неизвестная категория. Выберите категорию обращения:"
	msgUseButtons      = "Пожалуйста, выберите вариант с помощью кнопок выше."
	msgAskSimpleText   = "📝 Напишите ваш текст:"
	msgAskExtra        = "🚌 Укажите номер маршрута и госномер (если есть):"
	msgAskPhoto        = "📸 Пришлите фото (можно до 3-х штук) или нажмите Пропустить:"
	msgPhotoRejected   = "Пожалуйста, пришлите фото или нажмите кнопку Пропустить."
	msgTextNotPhoto    = "Пожалуйста, отправьте текст, а не фото."
	msgAskLocation     = "📍 Где это произошло?\n(Отправьте геопозицию или напишите адрес)"
	msgAskLocationGeo  = "📍 <b>ОБЯЗАТЕЛЬНО</b> отправьте геопозицию (скрепка -> геопозиция). Текстовые адреса в этой категории не принимаются."
	msgGeoRejected     = "⛔ Для этой категории нужна именно Геопозиция (точка на карте). Попробуйте еще раз."
	msgAskDescription  = "📝 Опишите проблему подробно:"
	msgAskPhone        = "📞 Оставьте номер для связи:"
	msgSubmitOK        = "✅ <b>Заявка принята!</b>\nСпасибо за ваше обращение."
	msgSubmitFailed    = "❌ Ошибка при сохранении. Попробуйте позже."
)

// Repository is the slice of the complaint store the machine needs: the
// terminal action of a completed flow.
type Repository interface {
	CreateComplaint(ctx context.Context, complaint *models.Complaint) error
}

// Machine runs the intake flow over a draft store and the complaint
// repository. It holds no per-citizen state itself; the dispatcher serializes
// turns per citizen.
type Machine struct {
	Drafts session.Store
	Repo   Repository
}

// NewMachine creates an intake machine.
func NewMachine(drafts session.Store, repo Repository) *Machine {
	return &Machine{Drafts: drafts, Repo: repo}
}

// Start begins a fresh complaint, overwriting any unfinished draft.
func (m *Machine) Start(ctx context.Context, citizen *models.Citizen) (Reply, error) {
	draft := &models.Draft{Step: models.StepCategory}
	if err := m.Drafts.Put(ctx, citizen.TelegramID, draft); err != nil {
		return Reply{}, err
	}
	return Reply{Text: msgChooseCategory, Keyboard: KeyboardCategories}, nil
}

// SelectCategory handles a category button tap.
func (m *Machine) SelectCategory(ctx context.Context, citizen *models.Citizen, key string) (Reply, error) {
	cat, ok := catalog.Lookup(key)
	if !ok {
		// Stale or forged callback data: offer the catalog again.
		return m.restart(ctx, citizen, msgUnknownCategory)
	}

	draft := &models.Draft{
		Step:         models.StepSubcategory,
		CategoryKey:  cat.Key,
		CategoryName: cat.Name,
	}
	if err := m.Drafts.Put(ctx, citizen.TelegramID, draft); err != nil {
		return Reply{}, err
	}

	return Reply{
		Text:        fmt.Sprintf("Категория: <b>%s</b>.\nУточните проблему:", cat.Name),
		Keyboard:    KeyboardSubcategories,
		CategoryKey: cat.Key,
		HTML:        true,
		EditMessage: true,
	}, nil
}

// SelectSubcategory handles a subcategory button tap. The index is validated
// against the draft's category; labels are never matched by text.
func (m *Machine) SelectSubcategory(ctx context.Context, citizen *models.Citizen, index int) (Reply, error) {
	draft, err := m.Drafts.Get(ctx, citizen.TelegramID)
	if err != nil {
		return Reply{}, err
	}
	if draft == nil || draft.CategoryKey == "" {
		return m.restart(ctx, citizen, msgChooseCategory)
	}

	cat, ok := catalog.Lookup(draft.CategoryKey)
	if !ok {
		return m.restart(ctx, citizen, msgChooseCategory)
	}
	sub, ok := cat.Sub(index)
	if !ok {
		return Reply{
			Text:        msgUseButtons,
			Keyboard:    KeyboardSubcategories,
			CategoryKey: cat.Key,
		}, nil
	}
	draft.SubCategory = sub

	switch {
	case cat.Simple:
		draft.Step = models.StepDescription
		if err := m.Drafts.Put(ctx, citizen.TelegramID, draft); err != nil {
			return Reply{}, err
		}
		return Reply{Text: msgAskSimpleText, Keyboard: KeyboardRemove}, nil
	case cat.RequiresExtra:
		draft.Step = models.StepExtra
		if err := m.Drafts.Put(ctx, citizen.TelegramID, draft); err != nil {
			return Reply{}, err
		}
		return Reply{Text: msgAskExtra, Keyboard: KeyboardRemove}, nil
	default:
		return m.askPhoto(ctx, citizen, draft)
	}
}

// Handle processes a regular message for whatever step the draft is at. The
// zero Reply means the citizen has no active draft and the dispatcher should
// fall back to the menu.
func (m *Machine) Handle(ctx context.Context, citizen *models.Citizen, input Input) (Reply, error) {
	draft, err := m.Drafts.Get(ctx, citizen.TelegramID)
	if err != nil {
		return Reply{}, err
	}
	if draft == nil {
		return Reply{}, nil
	}

	switch draft.Step {
	case models.StepCategory, models.StepSubcategory:
		return Reply{Text: msgUseButtons}, nil
	case models.StepExtra:
		return m.handleExtra(ctx, citizen, draft, input)
	case models.StepPhoto:
		return m.handlePhoto(ctx, citizen, draft, input)
	case models.StepLocation:
		return m.handleLocation(ctx, citizen, draft, input)
	case models.StepDescription:
		return m.handleDescription(ctx, citizen, draft, input)
	case models.StepPhone:
		return m.handlePhone(ctx, citizen, draft, input)
	default:
		// A step this build does not know: start over rather than trap the
		// citizen in a dead draft.
		log.Printf("WARN: unknown draft step %q for chat %d, restarting", draft.Step, citizen.TelegramID)
		return m.restart(ctx, citizen, msgChooseCategory)
	}
}

func (m *Machine) handleExtra(ctx context.Context, citizen *models.Citizen, draft *models.Draft, input Input) (Reply, error) {
	if input.PhotoID != "" {
		return Reply{Text: msgTextNotPhoto}, nil
	}
	text := strings.TrimSpace(input.Text)
	if text == "" {
		return Reply{Text: msgAskExtra}, nil
	}
	draft.ExtraText = text
	return m.askPhoto(ctx, citizen, draft)
}

func (m *Machine) handlePhoto(ctx context.Context, citizen *models.Citizen, draft *models.Draft, input Input) (Reply, error) {
	if input.PhotoID != "" {
		if len(draft.Photos) >= models.MaxPhotos {
			// Should be unreachable: the step advances at the cap.
			return m.askLocation(ctx, citizen, draft)
		}
		draft.Photos = append(draft.Photos, input.PhotoID)
		if len(draft.Photos) >= models.MaxPhotos {
			return m.askLocation(ctx, citizen, draft)
		}
		if err := m.Drafts.Put(ctx, citizen.TelegramID, draft); err != nil {
			return Reply{}, err
		}
		return Reply{
			Text:     fmt.Sprintf("Фото добавлено (%d/%d). Еще?", len(draft.Photos), models.MaxPhotos),
			Keyboard: KeyboardSkip,
		}, nil
	}

	if strings.TrimSpace(input.Text) == SkipLabel {
		return m.askLocation(ctx, citizen, draft)
	}
	return Reply{Text: msgPhotoRejected}, nil
}

func (m *Machine) handleLocation(ctx context.Context, citizen *models.Citizen, draft *models.Draft, input Input) (Reply, error) {
	if input.PhotoID != "" {
		// A captioned photo must not smuggle its caption in as the address.
		return Reply{Text: msgTextNotPhoto}, nil
	}

	cat, _ := catalog.Lookup(draft.CategoryKey)
	text := strings.TrimSpace(input.Text)

	var location string
	switch {
	case input.Location != nil:
		location = formatGeo(*input.Location)
	case cat.RequiresGeo:
		// Mandatory geo: everything else, including skip, is rejected and the
		// draft stays untouched.
		return Reply{Text: msgGeoRejected}, nil
	case text == SkipLabel:
		location = models.LocationUnspecified
	case text != "":
		location = text
	default:
		return Reply{Text: msgGeoRejected}, nil
	}

	draft.Location = location
	draft.Step = models.StepDescription
	if err := m.Drafts.Put(ctx, citizen.TelegramID, draft); err != nil {
		return Reply{}, err
	}
	return Reply{Text: msgAskDescription, Keyboard: KeyboardRemove}, nil
}

func (m *Machine) handleDescription(ctx context.Context, citizen *models.Citizen, draft *models.Draft, input Input) (Reply, error) {
	if input.PhotoID != "" {
		return Reply{Text: msgTextNotPhoto}, nil
	}
	text := strings.TrimSpace(input.Text)
	if text == "" {
		return Reply{Text: msgAskDescription}, nil
	}
	draft.Description = text
	draft.Step = models.StepPhone
	if err := m.Drafts.Put(ctx, citizen.TelegramID, draft); err != nil {
		return Reply{}, err
	}
	return Reply{Text: msgAskPhone, Keyboard: KeyboardPhone}, nil
}

func (m *Machine) handlePhone(ctx context.Context, citizen *models.Citizen, draft *models.Draft, input Input) (Reply, error) {
	if input.PhotoID != "" {
		return Reply{Text: msgAskPhone, Keyboard: KeyboardPhone}, nil
	}

	phone := input.Phone
	if phone == "" {
		phone = strings.TrimSpace(input.Text)
	}
	if phone == SkipLabel {
		phone = ""
	} else if phone == "" {
		return Reply{Text: msgAskPhone, Keyboard: KeyboardPhone}, nil
	}

	extra := models.ExtraData{}
	if draft.ExtraText != "" {
		extra["info"] = draft.ExtraText
	}
	complaint := &models.Complaint{
		CitizenID:    citizen.ID,
		Username:     citizen.DisplayName(),
		ContactPhone: phone,
		Category:     draft.CategoryName,
		SubCategory:  draft.SubCategory,
		Location:     draft.Location,
		Description:  draft.Description,
		ExtraData:    extra,
		Photos:       draft.Photos,
		Status:       models.StatusNew,
		Priority:     "medium",
	}

	if err := m.Repo.CreateComplaint(ctx, complaint); err != nil {
		// Draft stays intact so the citizen only retries the phone step.
		return Reply{Text: msgSubmitFailed, Keyboard: KeyboardPhone}, nil
	}

	if err := m.Drafts.Clear(ctx, citizen.TelegramID); err != nil {
		log.Printf("WARN: complaint %d saved but draft for chat %d not cleared: %v",
			complaint.ID, citizen.TelegramID, err)
	}
	return Reply{Text: msgSubmitOK, Keyboard: KeyboardMain, HTML: true}, nil
}

func (m *Machine) askPhoto(ctx context.Context, citizen *models.Citizen, draft *models.Draft) (Reply, error) {
	draft.Step = models.StepPhoto
	if err := m.Drafts.Put(ctx, citizen.TelegramID, draft); err != nil {
		return Reply{}, err
	}
	return Reply{Text: msgAskPhoto, Keyboard: KeyboardSkip}, nil
}

func (m *Machine) askLocation(ctx context.Context, citizen *models.Citizen, draft *models.Draft) (Reply, error) {
	cat, _ := catalog.Lookup(draft.CategoryKey)
	draft.Step = models.StepLocation
	if err := m.Drafts.Put(ctx, citizen.TelegramID, draft); err != nil {
		return Reply{}, err
	}

	text := msgAskLocation
	if cat.RequiresGeo {
		text = msgAskLocationGeo
	}
	return Reply{
		Text:        text,
		Keyboard:    KeyboardGeo,
		CategoryKey: draft.CategoryKey,
		GeoRequired: cat.RequiresGeo,
		HTML:        cat.RequiresGeo,
	}, nil
}

func (m *Machine) restart(ctx context.Context, citizen *models.Citizen, text string) (Reply, error) {
	if err := m.Drafts.Put(ctx, citizen.TelegramID, &models.Draft{Step: models.StepCategory}); err != nil {
		return Reply{}, err
	}
	return Reply{Text: text, Keyboard: KeyboardCategories}, nil
}

func formatGeo(g Geo) string {
	return strconv.FormatFloat(g.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(g.Long, 'f', -1, 64)
}
