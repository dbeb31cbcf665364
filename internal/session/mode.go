package session

// Mode is the single tagged conversation state per account. Exactly one mode
// is active at a time; the transition table below is the only way modes move.
type Mode string

const (
	ModeIdle                    Mode = "idle"
	ModeAwaitingImageModeChoice Mode = "awaiting_image_mode_choice"
	ModeAwaitingImagePrompt     Mode = "awaiting_image_prompt"
	ModeAwaitingImageReference  Mode = "awaiting_image_reference_upload"
	ModeAwaitingVideoModeChoice Mode = "awaiting_video_mode_choice"
	ModeAwaitingVideoPrompt     Mode = "awaiting_video_prompt"
	ModeAwaitingVideoReference  Mode = "awaiting_video_reference_upload"
)

var transitions = map[Mode][]Mode{
	ModeIdle:                    {ModeAwaitingImageModeChoice, ModeAwaitingVideoModeChoice},
	ModeAwaitingImageModeChoice: {ModeAwaitingImagePrompt, ModeAwaitingImageReference},
	ModeAwaitingImageReference:  {ModeAwaitingImagePrompt},
	ModeAwaitingVideoModeChoice: {ModeAwaitingVideoPrompt, ModeAwaitingVideoReference},
	ModeAwaitingVideoReference:  {ModeAwaitingVideoPrompt},
}

// CanTransition reports whether moving from one mode to another is legal.
// Returning to idle is always legal: every terminal job outcome resets the
// session.
func CanTransition(from, to Mode) bool {
	if to == ModeIdle {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Known reports whether m belongs to the closed mode set.
func (m Mode) Known() bool {
	switch m {
	case ModeIdle, ModeAwaitingImageModeChoice, ModeAwaitingImagePrompt,
		ModeAwaitingImageReference, ModeAwaitingVideoModeChoice,
		ModeAwaitingVideoPrompt, ModeAwaitingVideoReference:
		return true
	}
	return false
}
