package models

// Step is the current position of a citizen inside the intake flow.
type Step string

const (
	StepCategory    Step = "category"
	StepSubcategory Step = "subcategory"
	StepExtra       Step = "extra"
	StepPhoto       Step = "photo"
	StepLocation    Step = "location"
	StepDescription Step = "description"
	StepPhone       Step = "phone"
)

// MaxPhotos caps the photo list on a draft.
const MaxPhotos = 3

// LocationUnspecified is stored when a citizen skips the optional location
// step. An explicit sentinel, never an empty string.
const LocationUnspecified = "Не указано"

// Draft is the in-progress complaint of one citizen. It lives in the session
// store (JSON value keyed by chat ID), not in the database, and is cleared on
// submission or overwritten when a new complaint is started.
type Draft struct {
	Step         Step     `json:"step"`
	CategoryKey  string   `json:"category_key,omitempty"`
	CategoryName string   `json:"category_name,omitempty"`
	SubCategory  string   `json:"sub_category,omitempty"`
	ExtraText    string   `json:"extra_text,omitempty"`
	Photos       []string `json:"photos,omitempty"`
	Location     string   `json:"location,omitempty"`
	Description  string   `json:"description,omitempty"`
}
