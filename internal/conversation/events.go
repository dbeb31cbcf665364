package conversation

import "github.com/fraolBatole/AuraLab/internal/domain"

// Event is the closed set of inputs the router understands. The transport
// adapter translates raw updates into these before dispatch; anything it
// cannot translate never reaches the router.
type Event interface {
	isEvent()
}

// MenuAction identifies a top-level menu entry.
type MenuAction string

const (
	ActionGenerateImage MenuAction = "generate_image"
	ActionGenerateVideo MenuAction = "generate_video"
	ActionBalance       MenuAction = "balance"
	ActionHelp          MenuAction = "help"
	ActionSettings      MenuAction = "settings"
)

// MenuSelection is a top-level menu press. Menu entries take effect in every
// mode; selecting one abandons whatever flow was in progress.
type MenuSelection struct {
	Action MenuAction
}

// ModeChoice picks how a generation flow proceeds after its menu entry.
type ModeChoice struct {
	Kind    domain.Kind
	Variant domain.Variant
}

// FreeText is an ordinary chat message.
type FreeText struct {
	Text string
}

// ReferenceImageUploaded reports that a photo was stored under Key.
type ReferenceImageUploaded struct {
	Key string
}

// PresetSelected picks a catalog prompt instead of typing one.
type PresetSelected struct {
	ID string
}

// Retry asks to run a previous preset generation again as a brand-new request.
type Retry struct {
	PromptID string
}

func (MenuSelection) isEvent()          {}
func (ModeChoice) isEvent()             {}
func (FreeText) isEvent()               {}
func (ReferenceImageUploaded) isEvent() {}
func (PresetSelected) isEvent()         {}
func (Retry) isEvent()                  {}
