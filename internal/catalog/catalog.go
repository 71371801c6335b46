// Package catalog holds the static complaint category catalog. It is loaded
// once at startup and never mutated afterwards; components receive it by
// reference instead of reading global state.
package catalog

// Definition describes one complaint category and its intake requirements.
type Definition struct {
	// Key is the stable identifier used in callback data and drafts.
	Key string
	// Name is the display name shown to citizens and stored in complaints.
	Name string
	// Emoji decorates the category button.
	Emoji string
	// Subs is the ordered list of subcategory labels. Selection is always by
	// index into this list, never by label text: labels collide across
	// categories ("Мусор", "Повреждено покрытие").
	Subs []string
	// RequiresGeo forces a map point at the location step; text addresses are
	// rejected for these categories.
	RequiresGeo bool
	// RequiresExtra inserts an extra free-text step (route number, plate).
	RequiresExtra bool
	// Simple skips the extra/photo/location steps entirely (feedback flows).
	Simple bool
}

var definitions = []Definition{
	{
		Key:         "roads",
		Name:        "Дороги",
		Emoji:       "🛣",
		Subs:        []string{"Яма на дороге", "Стертая разметка", "Отсутствует знак", "Не работает светофор", "Открытый люк"},
		RequiresGeo: true,
	},
	{
		Key:         "trash",
		Name:        "Мусор",
		Emoji:       "🗑",
		Subs:        []string{"Невывоз мусора", "Переполненная урна", "Свалка", "Грязь на контейнерной площадке"},
		RequiresGeo: true,
	},
	{
		Key:           "transport",
		Name:          "Транспорт",
		Emoji:         "🚌",
		Subs:          []string{"Нарушение графика", "Хамство водителя", "Грязный салон", "Проезд остановки", "Неисправность ТС"},
		RequiresExtra: true,
	},
	{
		Key:   "light",
		Name:  "Освещение",
		Emoji: "💡",
		Subs:  []string{"Не горит фонарь", "Мигает свет", "Поврежден столб", "Оголенные провода"},
	},
	{
		Key:   "green",
		Name:  "Зеленые насаждения",
		Emoji: "🌳",
		Subs:  []string{"Упавшее дерево", "Необходим покос травы", "Сухостой", "Сломаны ветки"},
	},
	{
		Key:   "facades",
		Name:  "Фасады и крыши",
		Emoji: "🏢",
		Subs:  []string{"Граффити/Надписи", "Осыпается фасад", "Сосульки/Снег на крыше", "Незаконная реклама"},
	},
	{
		Key:   "cleaning",
		Name:  "Уборка снега",
		Emoji: "❄️",
		Subs:  []string{"Нечищеный двор", "Гололед", "Снежный вал", "Нечищеный тротуар"},
	},
	{
		Key:   "kids",
		Name:  "Детские площадки",
		Emoji: "🧸",
		Subs:  []string{"Сломаны качели/горка", "Мусор на площадке", "Нет песка", "Повреждено покрытие"},
	},
	{
		Key:         "animals",
		Name:        "Животные",
		Emoji:       "🐕",
		Subs:        []string{"Стая бездомных собак", "Агрессивное животное", "Заявка на биркование"},
		RequiresGeo: true,
	},
	{
		Key:   "water",
		Name:  "Водоснабжение",
		Emoji: "🚿",
		Subs:  []string{"Нет холодной воды", "Нет горячей воды", "Ржавая вода", "Слабый напор"},
	},
	{
		Key:   "heating",
		Name:  "Отопление",
		Emoji: "🌡",
		Subs:  []string{"Холодно в квартире", "Слишком жарко (перетоп)", "Течь батареи"},
	},
	{
		Key:   "electricity",
		Name:  "Электричество",
		Emoji: "🔌",
		Subs:  []string{"Отключение света", "Искрит щиток", "Открыт щиток в подъезде"},
	},
	{
		Key:   "sport",
		Name:  "Спортплощадки",
		Emoji: "🏃",
		Subs:  []string{"Сломан инвентарь", "Повреждено покрытие", "Мусор"},
	},
	{
		Key:   "ads",
		Name:  "Реклама",
		Emoji: "📢",
		Subs:  []string{"Незаконная вывеска", "Расклейка листовок", "Штендер на тротуаре"},
	},
	{
		Key:    "feedback",
		Name:   "Обратная связь",
		Emoji:  "📢",
		Subs:   []string{"💬 Предложение по улучшению", "🗣️ Сообщить об ошибке в боте"},
		Simple: true,
	},
	{
		Key:    "gratitude",
		Name:   "Благодарность",
		Emoji:  "✅",
		Subs:   []string{"✅ Благодарность"},
		Simple: true,
	},
	{
		Key:   "other",
		Name:  "Прочее",
		Emoji: "❓",
		Subs:  []string{"Иное"},
	},
}

var byKey = buildIndex()

func buildIndex() map[string]int {
	idx := make(map[string]int, len(definitions))
	for i, d := range definitions {
		idx[d.Key] = i
	}
	return idx
}

// All returns the catalog in display order. Callers must not modify it.
func All() []Definition {
	return definitions
}

// Lookup finds a category by its key.
func Lookup(key string) (Definition, bool) {
	i, ok := byKey[key]
	if !ok {
		return Definition{}, false
	}
	return definitions[i], true
}

// Sub returns the subcategory label at the given index, validating the bounds.
func (d Definition) Sub(index int) (string, bool) {
	if index < 0 || index >= len(d.Subs) {
		return "", false
	}
	return d.Subs[index], true
}
