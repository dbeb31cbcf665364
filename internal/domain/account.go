package domain

import "time"

// Kind enumerates the two generation categories credits are tracked for.
type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
)

// Variant enumerates how a generation is driven.
type Variant string

const (
	VariantTextOnly      Variant = "text_only"
	VariantWithReference Variant = "with_reference"
)

// AspectRatio is the output-shape preference for generated media.
type AspectRatio string

const (
	Ratio1x1  AspectRatio = "1:1"
	Ratio9x16 AspectRatio = "9:16"
	Ratio16x9 AspectRatio = "16:9"
	Ratio4x3  AspectRatio = "4:3"
	Ratio3x4  AspectRatio = "3:4"
)

// DefaultAspectRatio is applied to new accounts for both media kinds.
const DefaultAspectRatio = Ratio9x16

// ValidImageRatio reports whether the ratio is accepted for image output.
func ValidImageRatio(r AspectRatio) bool {
	switch r {
	case Ratio1x1, Ratio9x16, Ratio16x9, Ratio4x3, Ratio3x4:
		return true
	}
	return false
}

// ValidVideoRatio reports whether the ratio is accepted for video output.
func ValidVideoRatio(r AspectRatio) bool {
	switch r {
	case Ratio1x1, Ratio9x16, Ratio16x9:
		return true
	}
	return false
}

// Account represents one end user: persisted identity, preferences and the
// two independent credit counters.
type Account struct {
	ID           int64
	FirstName    string
	Username     string
	ChatID       int64
	ImageCredits int
	VideoCredits int
	Language     string
	ImageRatio   AspectRatio
	VideoRatio   AspectRatio
	Plan         string
	PlanExpiry   *time.Time
	CreatedAt    time.Time
}

// Initial credit grants for accounts created on first contact.
const (
	InitialImageCredits = 10
	InitialVideoCredits = 5
)
