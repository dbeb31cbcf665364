package conversation

import (
	"context"
	"strings"
	"sync"

	"github.com/fraolBatole/AuraLab/internal/domain"
	"github.com/fraolBatole/AuraLab/internal/i18n"
	"github.com/fraolBatole/AuraLab/internal/infra"
	"github.com/fraolBatole/AuraLab/internal/jobs"
	"github.com/fraolBatole/AuraLab/internal/ledger"
	"github.com/fraolBatole/AuraLab/internal/session"
)

// Submitter is the job manager surface the router drives.
type Submitter interface {
	Submit(req domain.GenerationRequest, notifier jobs.Notifier) *jobs.Handle
}

// Router turns events into session transitions and job submissions. Events for
// the same account are handled strictly one at a time; different accounts do
// not contend.
type Router struct {
	mu    sync.Mutex
	locks map[int64]*sync.Mutex

	sessions *session.Store
	ledger   *ledger.Ledger
	jobs     Submitter
	logger   infra.Logger
}

func NewRouter(sessions *session.Store, credits *ledger.Ledger, submitter Submitter, logger infra.Logger) *Router {
	return &Router{
		locks:    make(map[int64]*sync.Mutex),
		sessions: sessions,
		ledger:   credits,
		jobs:     submitter,
		logger:   logger,
	}
}

func (r *Router) accountLock(id int64) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.locks[id]
	if !ok {
		l = &sync.Mutex{}
		r.locks[id] = l
	}
	return l
}

// Handle dispatches one event for one account. Precedence: menu selections
// always apply, mode-matched events apply only in their expected mode, and
// everything else is a silent no-op.
func (r *Router) Handle(ctx context.Context, accountID int64, ev Event, notifier jobs.Notifier) {
	l := r.accountLock(accountID)
	l.Lock()
	defer l.Unlock()

	lang := r.sessions.Language(ctx, accountID)

	switch e := ev.(type) {
	case MenuSelection:
		r.handleMenu(ctx, accountID, lang, e, notifier)
	case ModeChoice:
		r.handleModeChoice(ctx, accountID, lang, e, notifier)
	case ReferenceImageUploaded:
		r.handleReference(ctx, accountID, lang, e, notifier)
	case FreeText:
		r.handleFreeText(ctx, accountID, lang, e, notifier)
	case PresetSelected:
		r.handlePreset(ctx, accountID, lang, e, notifier)
	case Retry:
		r.handleRetry(ctx, accountID, lang, e, notifier)
	}
}

func (r *Router) handleMenu(ctx context.Context, accountID int64, lang string, e MenuSelection, notifier jobs.Notifier) {
	switch e.Action {
	case ActionGenerateImage:
		r.sessions.ResetToIdle(accountID)
		r.sessions.SetMode(accountID, session.ModeAwaitingImageModeChoice)
		r.replyChoices(ctx, accountID, i18n.T(lang, "choose_image_mode"), modeChoices(domain.KindImage, lang), notifier)
	case ActionGenerateVideo:
		r.sessions.ResetToIdle(accountID)
		if !r.ledger.HasCredit(ctx, accountID, domain.KindVideo) {
			r.reply(ctx, accountID, i18n.T(lang, "no_video_credits"), notifier)
			return
		}
		r.sessions.SetMode(accountID, session.ModeAwaitingVideoModeChoice)
		r.replyChoices(ctx, accountID, i18n.T(lang, "choose_video_mode"), modeChoices(domain.KindVideo, lang), notifier)
	case ActionBalance:
		img, vid := r.ledger.Balances(ctx, accountID)
		r.reply(ctx, accountID, i18n.T(lang, "balance", img, vid), notifier)
	case ActionHelp:
		r.reply(ctx, accountID, i18n.T(lang, "help"), notifier)
	case ActionSettings:
		r.replyChoices(ctx, accountID, i18n.T(lang, "choose_language"), []jobs.Choice{
			{Label: "English", Data: "lang:" + i18n.LangEnglish},
			{Label: "አማርኛ", Data: "lang:" + i18n.LangAmharic},
		}, notifier)
		r.replyChoices(ctx, accountID, i18n.T(lang, "choose_ratio"), ratioChoices(), notifier)
	}
}

func (r *Router) handleModeChoice(ctx context.Context, accountID int64, lang string, e ModeChoice, notifier jobs.Notifier) {
	mode := r.sessions.Mode(accountID)
	expected := session.ModeAwaitingImageModeChoice
	if e.Kind == domain.KindVideo {
		expected = session.ModeAwaitingVideoModeChoice
	}
	if mode != expected {
		// Stale button press from an abandoned flow.
		return
	}

	r.sessions.SetVariant(accountID, e.Variant)
	if e.Variant == domain.VariantWithReference {
		if e.Kind == domain.KindVideo {
			r.sessions.SetMode(accountID, session.ModeAwaitingVideoReference)
		} else {
			r.sessions.SetMode(accountID, session.ModeAwaitingImageReference)
		}
		r.reply(ctx, accountID, i18n.T(lang, "send_reference"), notifier)
		return
	}

	if e.Kind == domain.KindVideo {
		r.sessions.SetMode(accountID, session.ModeAwaitingVideoPrompt)
		r.replyChoices(ctx, accountID, i18n.T(lang, "send_prompt_video"), presetChoices(domain.KindVideo), notifier)
	} else {
		r.sessions.SetMode(accountID, session.ModeAwaitingImagePrompt)
		r.replyChoices(ctx, accountID, i18n.T(lang, "send_prompt_image"), presetChoices(domain.KindImage), notifier)
	}
}

func (r *Router) handleReference(ctx context.Context, accountID int64, lang string, e ReferenceImageUploaded, notifier jobs.Notifier) {
	switch r.sessions.Mode(accountID) {
	case session.ModeAwaitingImageReference:
		r.sessions.SetReferenceImage(accountID, e.Key)
		r.sessions.SetMode(accountID, session.ModeAwaitingImagePrompt)
		r.reply(ctx, accountID, i18n.T(lang, "reference_saved"), notifier)
	case session.ModeAwaitingVideoReference:
		r.sessions.SetReferenceImage(accountID, e.Key)
		r.sessions.SetMode(accountID, session.ModeAwaitingVideoPrompt)
		r.reply(ctx, accountID, i18n.T(lang, "reference_saved"), notifier)
	}
}

func (r *Router) handleFreeText(ctx context.Context, accountID int64, lang string, e FreeText, notifier jobs.Notifier) {
	mode := r.sessions.Mode(accountID)
	var kind domain.Kind
	switch mode {
	case session.ModeAwaitingImagePrompt:
		kind = domain.KindImage
	case session.ModeAwaitingVideoPrompt:
		kind = domain.KindVideo
	default:
		// Text outside a prompt mode carries no meaning here.
		return
	}

	prompt := strings.TrimSpace(e.Text)
	if prompt == "" {
		r.logger.Debug().Err(domain.ErrValidation).Int64("account", accountID).Msg("conversation: empty prompt")
		r.sessions.ResetToIdle(accountID)
		r.reply(ctx, accountID, i18n.T(lang, "prompt_empty"), notifier)
		return
	}

	r.submit(ctx, accountID, lang, kind, prompt, "", notifier)
}

func (r *Router) handlePreset(ctx context.Context, accountID int64, lang string, e PresetSelected, notifier jobs.Notifier) {
	mode := r.sessions.Mode(accountID)
	preset, ok := LookupPreset(e.ID)
	if !ok {
		return
	}
	if preset.Kind == domain.KindImage && mode != session.ModeAwaitingImagePrompt {
		return
	}
	if preset.Kind == domain.KindVideo && mode != session.ModeAwaitingVideoPrompt {
		return
	}

	r.sessions.RememberPrompt(accountID, preset.ID)
	r.submit(ctx, accountID, lang, preset.Kind, preset.Prompt, preset.ID, notifier)
}

// handleRetry reruns a catalog prompt as a brand-new request. It re-checks
// credits and resolves the prompt fresh; nothing from the failed attempt is
// reused.
func (r *Router) handleRetry(ctx context.Context, accountID int64, lang string, e Retry, notifier jobs.Notifier) {
	promptID := e.PromptID
	if promptID == "" {
		promptID = r.sessions.LastPromptID(accountID)
	}
	preset, ok := LookupPreset(promptID)
	if !ok {
		return
	}

	r.sessions.ResetToIdle(accountID)
	r.sessions.RememberPrompt(accountID, preset.ID)

	if !r.ledger.HasCredit(ctx, accountID, preset.Kind) {
		r.logger.Debug().Err(domain.ErrInsufficientCredits).Int64("account", accountID).Str("kind", string(preset.Kind)).Msg("conversation: retry gated")
		key := "no_image_credits"
		if preset.Kind == domain.KindVideo {
			key = "no_video_credits"
		}
		r.reply(ctx, accountID, i18n.T(lang, key), notifier)
		return
	}

	req := domain.GenerationRequest{
		AccountID:   accountID,
		Kind:        preset.Kind,
		Variant:     domain.VariantTextOnly,
		Prompt:      preset.Prompt,
		AspectRatio: r.ratioFor(ctx, accountID, preset.Kind),
		PromptID:    preset.ID,
	}
	r.reply(ctx, accountID, i18n.T(lang, "generation_started"), notifier)
	r.jobs.Submit(req, notifier)
}

func (r *Router) submit(ctx context.Context, accountID int64, lang string, kind domain.Kind, prompt, promptID string, notifier jobs.Notifier) {
	if !r.ledger.HasCredit(ctx, accountID, kind) {
		r.logger.Debug().Err(domain.ErrInsufficientCredits).Int64("account", accountID).Str("kind", string(kind)).Msg("conversation: generation gated")
		r.sessions.ResetToIdle(accountID)
		key := "no_image_credits"
		if kind == domain.KindVideo {
			key = "no_video_credits"
		}
		r.reply(ctx, accountID, i18n.T(lang, key), notifier)
		return
	}

	variant := r.sessions.Variant(accountID)
	if variant == "" {
		variant = domain.VariantTextOnly
	}
	// The job takes sole ownership of the upload. The session hands the key
	// over here so no later request can carry the same file, which would let
	// one job's cleanup delete another job's reference.
	req := domain.GenerationRequest{
		AccountID:      accountID,
		Kind:           kind,
		Variant:        variant,
		Prompt:         prompt,
		AspectRatio:    r.ratioFor(ctx, accountID, kind),
		ReferenceImage: r.sessions.ClearReferenceImage(accountID),
		PromptID:       promptID,
	}
	r.reply(ctx, accountID, i18n.T(lang, "generation_started"), notifier)
	r.jobs.Submit(req, notifier)
}

func (r *Router) ratioFor(ctx context.Context, accountID int64, kind domain.Kind) domain.AspectRatio {
	if kind == domain.KindVideo {
		return r.sessions.VideoRatio(ctx, accountID)
	}
	return r.sessions.ImageRatio(ctx, accountID)
}

func (r *Router) reply(ctx context.Context, accountID int64, text string, notifier jobs.Notifier) {
	if err := notifier.Reply(ctx, accountID, text); err != nil {
		r.logger.Warn().Err(err).Int64("account", accountID).Msg("conversation: reply failed")
	}
}

func (r *Router) replyChoices(ctx context.Context, accountID int64, text string, choices []jobs.Choice, notifier jobs.Notifier) {
	if err := jobs.ReplyWithChoiceFallback(ctx, notifier, accountID, text, choices); err != nil {
		r.logger.Warn().Err(err).Int64("account", accountID).Msg("conversation: reply failed")
	}
}

func modeChoices(kind domain.Kind, lang string) []jobs.Choice {
	prefix := "image_choice:"
	if kind == domain.KindVideo {
		prefix = "video_choice:"
	}
	return []jobs.Choice{
		{Label: i18n.T(lang, "btn_text_only"), Data: prefix + string(domain.VariantTextOnly)},
		{Label: i18n.T(lang, "btn_with_reference"), Data: prefix + string(domain.VariantWithReference)},
	}
}

// ratioChoices lists the output-shape options for both media kinds. Image
// shapes use the iratio prefix, video shapes vratio; video supports a subset.
func ratioChoices() []jobs.Choice {
	image := []domain.AspectRatio{domain.Ratio1x1, domain.Ratio9x16, domain.Ratio16x9, domain.Ratio4x3, domain.Ratio3x4}
	video := []domain.AspectRatio{domain.Ratio1x1, domain.Ratio9x16, domain.Ratio16x9}
	var out []jobs.Choice
	for _, ratio := range image {
		out = append(out, jobs.Choice{Label: "🖼 " + string(ratio), Data: "iratio:" + string(ratio)})
	}
	for _, ratio := range video {
		out = append(out, jobs.Choice{Label: "🎬 " + string(ratio), Data: "vratio:" + string(ratio)})
	}
	return out
}

func presetChoices(kind domain.Kind) []jobs.Choice {
	var out []jobs.Choice
	for _, p := range PresetsForKind(kind) {
		out = append(out, jobs.Choice{Label: p.ID, Data: "preset:" + p.ID})
	}
	return out
}
