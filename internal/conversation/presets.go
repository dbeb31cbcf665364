package conversation

import "github.com/fraolBatole/AuraLab/internal/domain"

// Preset is a catalog prompt addressable by a stable identifier. Retries
// resolve through this catalog so a rerun always starts from the canonical
// prompt, not from whatever state the failed attempt left behind.
type Preset struct {
	ID     string
	Kind   domain.Kind
	Prompt string
}

var presets = []Preset{
	{ID: "sunset-street", Kind: domain.KindImage, Prompt: "A quiet city street at sunset, warm light reflecting off wet asphalt, cinematic"},
	{ID: "studio-portrait", Kind: domain.KindImage, Prompt: "A studio portrait with soft key lighting and a neutral gray backdrop"},
	{ID: "product-shot", Kind: domain.KindImage, Prompt: "A minimalist product photo on a white pedestal with soft shadows"},
	{ID: "mountain-mist", Kind: domain.KindImage, Prompt: "Misty mountains at dawn, layered ridgelines fading into fog"},
	{ID: "city-timelapse", Kind: domain.KindVideo, Prompt: "A timelapse of a city skyline from day to night, clouds streaking overhead"},
	{ID: "ocean-drone", Kind: domain.KindVideo, Prompt: "A slow drone shot gliding over turquoise ocean waves toward a rocky coastline"},
}

// LookupPreset resolves a preset by id.
func LookupPreset(id string) (Preset, bool) {
	for _, p := range presets {
		if p.ID == id {
			return p, true
		}
	}
	return Preset{}, false
}

// PresetsForKind lists catalog prompts for one media kind, in catalog order.
func PresetsForKind(kind domain.Kind) []Preset {
	var out []Preset
	for _, p := range presets {
		if p.Kind == kind {
			out = append(out, p)
		}
	}
	return out
}
