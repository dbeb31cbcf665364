package domain

// GenerationRequest carries everything the job manager needs to run one
// generation attempt. It is immutable once submitted.
type GenerationRequest struct {
	AccountID      int64
	Kind           Kind
	Variant        Variant
	Prompt         string
	AspectRatio    AspectRatio
	ReferenceImage string // storage key of an uploaded reference, empty for text-only
	PromptID       string // preset identifier when the prompt came from the catalog
	RequestID      string // correlation id assigned at submission
}
