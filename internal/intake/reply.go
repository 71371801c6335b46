package intake

// KeyboardKind tells the transport layer which keyboard to attach to a reply.
// The machine stays free of Telegram types so it can be tested in isolation.
type KeyboardKind int

const (
	// KeyboardNone leaves the current keyboard as is.
	KeyboardNone KeyboardKind = iota
	// KeyboardRemove hides the reply keyboard.
	KeyboardRemove
	// KeyboardMain shows the main menu («Новая заявка» / «Мои заявки»).
	KeyboardMain
	// KeyboardCategories shows the inline category grid.
	KeyboardCategories
	// KeyboardSubcategories shows the inline subcategory list for CategoryKey.
	KeyboardSubcategories
	// KeyboardSkip shows the single «Пропустить» button.
	KeyboardSkip
	// KeyboardGeo shows the send-location button, plus «Пропустить» unless
	// GeoRequired is set.
	KeyboardGeo
	// KeyboardPhone shows the share-contact button.
	KeyboardPhone
)

// Reply is one outbound bot turn.
type Reply struct {
	Text        string
	Keyboard    KeyboardKind
	CategoryKey string
	GeoRequired bool
	// HTML enables HTML parse mode for Text.
	HTML bool
	// EditMessage asks the transport to edit the inline-keyboard message the
	// citizen tapped instead of sending a new one.
	EditMessage bool
}

// Handled reports whether the machine produced something to send.
func (r Reply) Handled() bool {
	return r.Text != ""
}

// Geo is a latitude/longitude pair from a shared location.
type Geo struct {
	Lat  float64
	Long float64
}

// Input is one inbound citizen turn, already stripped of transport details.
// At most one of PhotoID/Location/Phone is set alongside or instead of Text.
type Input struct {
	Text     string
	PhotoID  string
	Location *Geo
	Phone    string
}
