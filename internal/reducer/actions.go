// Package reducer implements the pure state-transition function over documents.
package reducer

import "git.home.luguber.info/inful/pagesmith/internal/document"

// ActionType is one member of the closed action vocabulary.
type ActionType string

const (
	SetMode              ActionType = "SET_MODE"
	AddSection           ActionType = "ADD_SECTION"
	AddSectionsBulk      ActionType = "ADD_SECTIONS_BULK"
	RemoveSection        ActionType = "REMOVE_SECTION"
	ToggleSection        ActionType = "TOGGLE_SECTION"
	SelectSection        ActionType = "SELECT_SECTION"
	UpdateSection        ActionType = "UPDATE_SECTION"
	UpdateSectionVariant ActionType = "UPDATE_SECTION_VARIANT"
	Reorder              ActionType = "REORDER"
	MoveSection          ActionType = "MOVE_SECTION"
	UpdateSpacing        ActionType = "UPDATE_SPACING"
	ApplySpacingPreset   ActionType = "APPLY_SPACING_PRESET"
	SetLogo              ActionType = "SET_LOGO"
	SetColors            ActionType = "SET_COLORS"
	SetFont              ActionType = "SET_FONT"
	SetRadius            ActionType = "SET_RADIUS"
	UpdateContent        ActionType = "UPDATE_CONTENT"
	ReplaceContent       ActionType = "REPLACE_CONTENT"
	RemoveContent        ActionType = "REMOVE_CONTENT"
	UpdateSettings       ActionType = "UPDATE_SETTINGS"
	UpdateConsent        ActionType = "UPDATE_CONSENT"
	UpdateFeatures       ActionType = "UPDATE_FEATURES"
	ToggleGrid           ActionType = "TOGGLE_GRID"
	Toggle8px            ActionType = "TOGGLE_8PX"
	SetSidebarTab        ActionType = "SET_SIDEBAR_TAB"
	SetBuilderTheme      ActionType = "SET_BUILDER_THEME"
	SetActiveElementPath ActionType = "SET_ACTIVE_ELEMENT_PATH"
	LoadState            ActionType = "LOAD_STATE"
	ResetProject         ActionType = "RESET_PROJECT"
	Undo                 ActionType = "UNDO"
	Redo                 ActionType = "REDO"
)

var knownTypes = map[ActionType]struct{}{
	SetMode: {}, AddSection: {}, AddSectionsBulk: {}, RemoveSection: {}, ToggleSection: {},
	SelectSection: {}, UpdateSection: {}, UpdateSectionVariant: {}, Reorder: {}, MoveSection: {},
	UpdateSpacing: {}, ApplySpacingPreset: {}, SetLogo: {}, SetColors: {}, SetFont: {},
	SetRadius: {}, UpdateContent: {}, ReplaceContent: {}, RemoveContent: {}, UpdateSettings: {},
	UpdateConsent: {}, UpdateFeatures: {}, ToggleGrid: {}, Toggle8px: {}, SetSidebarTab: {},
	SetBuilderTheme: {}, SetActiveElementPath: {}, LoadState: {}, ResetProject: {}, Undo: {}, Redo: {},
}

// Known reports whether t belongs to the action vocabulary.
func (t ActionType) Known() bool {
	_, ok := knownTypes[t]
	return ok
}

// Action is a dispatchable state transition request.
//
// Payload holds one of the typed payloads below, a plain string for id- or
// name-only actions, a []string for Reorder, or nil.
type Action struct {
	Type    ActionType
	Payload any
	Meta    *Meta
}

// Meta carries dispatch options.
type Meta struct {
	SkipHistory bool `json:"skipHistory,omitempty"`
}

// SkipsHistory reports whether the action asked not to be recorded.
func (a Action) SkipsHistory() bool {
	return a.Meta != nil && a.Meta.SkipHistory
}

// NewSection is the payload of AddSection and one element of AddSectionsBulk.
type NewSection struct {
	Type    string `json:"type"`
	ID      string `json:"id,omitempty"`
	Variant string `json:"variant,omitempty"`
	Enabled *bool  `json:"enabled,omitempty"`
}

// SectionPatch updates fields of an existing section. Nil fields are left unchanged.
type SectionPatch struct {
	ID      string  `json:"id"`
	Type    *string `json:"type,omitempty"`
	Variant *string `json:"variant,omitempty"`
	Enabled *bool   `json:"enabled,omitempty"`
}

// SectionVariant is the payload of UpdateSectionVariant.
type SectionVariant struct {
	ID      string `json:"id"`
	Variant string `json:"variant"`
}

// Move is the payload of MoveSection: indexes into the visible order.
type Move struct {
	From int `json:"fromIndex"`
	To   int `json:"toIndex"`
}

// SpacingPatch is the payload of UpdateSpacing. Nil values keep the previous padding.
type SpacingPatch struct {
	ID string   `json:"id"`
	PT *float64 `json:"pt,omitempty"`
	PB *float64 `json:"pb,omitempty"`
}

// SpacingPresetRef is the payload of ApplySpacingPreset.
type SpacingPresetRef struct {
	ID     string `json:"id"`
	Preset string `json:"preset"`
}

// SpacingPresets are the named padding pairs offered to authors.
var SpacingPresets = map[string]document.Spacing{
	"compact":  {PT: 32, PB: 32},
	"balanced": {PT: 64, PB: 64},
	"spacious": {PT: 96, PB: 96},
	"hero":     {PT: 80, PB: 120},
}

// ColorsPatch is the payload of SetColors.
type ColorsPatch struct {
	Primary    *string `json:"primary,omitempty"`
	Accent     *string `json:"accent,omitempty"`
	Background *string `json:"background,omitempty"`
	Surface    *string `json:"surface,omitempty"`
	Text       *string `json:"text,omitempty"`
	TextLight  *string `json:"textLight,omitempty"`
	Border     *string `json:"border,omitempty"`
}

// ContentPatch is the payload of UpdateContent. On the wire it is a flat object:
// {"id": "hero-1", "headline": "..."}.
type ContentPatch struct {
	ID     string
	Values map[string]any
}

// ContentReplacement is the payload of ReplaceContent.
type ContentReplacement struct {
	ID    string         `json:"id"`
	Value map[string]any `json:"value"`
}

// SettingsPatch is the payload of UpdateSettings.
type SettingsPatch struct {
	SiteName        *string        `json:"siteName,omitempty"`
	SiteDescription *string        `json:"siteDescription,omitempty"`
	Favicon         *string        `json:"favicon,omitempty"`
	Language        *string        `json:"language,omitempty"`
	Consent         *ConsentPatch  `json:"consent,omitempty"`
	Features        *FeaturesPatch `json:"features,omitempty"`
	Legal           *LegalPatch    `json:"legal,omitempty"`
}

// ConsentPatch is the payload of UpdateConsent.
type ConsentPatch struct {
	Enabled     *bool            `json:"enabled,omitempty"`
	Analytics   *string          `json:"analytics,omitempty"`
	PrivacyLink *string          `json:"privacyLink,omitempty"`
	Categories  *CategoriesPatch `json:"categories,omitempty"`
}

// CategoriesPatch updates the default consent categories.
type CategoriesPatch struct {
	Necessary  *bool `json:"necessary,omitempty"`
	Statistics *bool `json:"statistics,omitempty"`
	Marketing  *bool `json:"marketing,omitempty"`
}

// FeaturesPatch is the payload of UpdateFeatures.
type FeaturesPatch struct {
	DarkModeToggle *bool `json:"darkModeToggle,omitempty"`
	StickyHeader   *bool `json:"stickyHeader,omitempty"`
	SmoothScroll   *bool `json:"smoothScroll,omitempty"`
}

// LegalPatch updates the operator details.
type LegalPatch struct {
	Company *string `json:"company,omitempty"`
	Address *string `json:"address,omitempty"`
	Email   *string `json:"email,omitempty"`
	Phone   *string `json:"phone,omitempty"`
}
