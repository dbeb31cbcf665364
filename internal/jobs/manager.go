package jobs

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fraolBatole/AuraLab/internal/domain"
	"github.com/fraolBatole/AuraLab/internal/i18n"
	"github.com/fraolBatole/AuraLab/internal/infra"
	"github.com/fraolBatole/AuraLab/internal/ledger"
	"github.com/fraolBatole/AuraLab/internal/providers/image"
	"github.com/fraolBatole/AuraLab/internal/providers/video"
	"github.com/fraolBatole/AuraLab/internal/session"
	"github.com/fraolBatole/AuraLab/internal/storage"
)

type job struct {
	handle    *Handle
	accountID int64
	cancel    context.CancelFunc
}

// Manager runs generation jobs. Each account has at most one live job; a new
// submission supersedes the previous one instead of queueing behind it.
type Manager struct {
	mu   sync.Mutex
	live map[int64]*job

	ledger   *ledger.Ledger
	sessions *session.Store
	images   image.Generator
	videos   video.Generator
	store    *storage.FileStore
	logger   infra.Logger

	progressEvery time.Duration
}

// Config wires the manager's collaborators.
type Config struct {
	Ledger   *ledger.Ledger
	Sessions *session.Store
	Images   image.Generator
	Videos   video.Generator
	Store    *storage.FileStore
	Logger   infra.Logger

	// ProgressEvery is the minimum gap between progress messages for one job.
	ProgressEvery time.Duration
}

func NewManager(cfg Config) *Manager {
	every := cfg.ProgressEvery
	if every <= 0 {
		every = 2 * time.Minute
	}
	return &Manager{
		live:          make(map[int64]*job),
		ledger:        cfg.Ledger,
		sessions:      cfg.Sessions,
		images:        cfg.Images,
		videos:        cfg.Videos,
		store:         cfg.Store,
		logger:        cfg.Logger,
		progressEvery: every,
	}
}

// Submit starts a job for the request. An existing live job for the same
// account is cancelled first; the new job starts immediately without waiting
// for the old one to unwind.
func (m *Manager) Submit(req domain.GenerationRequest, notifier Notifier) *Handle {
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}
	ctx, cancel := context.WithCancel(context.Background())
	j := &job{
		handle:    &Handle{id: req.RequestID, done: make(chan struct{})},
		accountID: req.AccountID,
		cancel:    cancel,
	}

	m.mu.Lock()
	if prev, ok := m.live[req.AccountID]; ok {
		m.logger.Info().
			Int64("account", req.AccountID).
			Str("superseded", prev.handle.id).
			Str("job", j.handle.id).
			Msg("jobs: superseding live job")
		prev.cancel()
	}
	m.live[req.AccountID] = j
	m.mu.Unlock()

	go m.run(ctx, j, req, notifier)
	return j.handle
}

// Cancel stops the account's live job if one exists.
func (m *Manager) Cancel(accountID int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.live[accountID]
	if !ok {
		return false
	}
	j.cancel()
	return true
}

// Live reports whether the account currently has a job in flight.
func (m *Manager) Live(accountID int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.live[accountID]
	return ok
}

func (m *Manager) run(ctx context.Context, j *job, req domain.GenerationRequest, notifier Notifier) {
	var outcome Outcome

	defer func() {
		if r := recover(); r != nil {
			outcome = OutcomeFailed
			m.logger.Error().
				Int64("account", req.AccountID).
				Str("job", j.handle.id).
				Interface("panic", r).
				Msg("jobs: worker panicked")
		}
		m.cleanup(j, req)
		j.handle.outcome = outcome
		close(j.handle.done)
	}()

	lang := m.sessions.Language(ctx, req.AccountID)

	var reference []byte
	if req.Variant == domain.VariantWithReference && req.ReferenceImage != "" {
		data, err := m.store.Read(ctx, req.ReferenceImage)
		if err != nil {
			m.logger.Error().Err(err).
				Int64("account", req.AccountID).
				Str("job", j.handle.id).
				Msg("jobs: reference image unreadable")
			outcome = OutcomeFailed
			m.reply(req.AccountID, i18n.T(lang, "generation_failed"), notifier)
			return
		}
		reference = data
	}

	asset, format, err := m.generate(ctx, req, reference, lang, notifier)
	if err != nil {
		outcome = m.failureOutcome(ctx, req, lang, err, notifier)
		return
	}

	// A cancellation that lands after the render finishes still wins: the
	// superseding job owns the conversation from here on.
	if ctx.Err() != nil {
		m.logger.Debug().Err(domain.ErrCancelled).
			Int64("account", req.AccountID).
			Str("job", j.handle.id).
			Msg("jobs: cancelled after render")
		outcome = OutcomeCancelled
		return
	}

	if err := notifier.ReplyWithMedia(ctx, req.AccountID, req.Kind, asset, format); err != nil {
		m.logger.Error().Err(err).
			Int64("account", req.AccountID).
			Str("job", j.handle.id).
			Msg("jobs: media delivery failed")
		outcome = OutcomeFailed
		m.reply(req.AccountID, i18n.T(lang, "generation_failed"), notifier)
		return
	}

	outcome = OutcomeDelivered
	if !m.ledger.TryDeduct(context.Background(), req.AccountID, req.Kind) {
		// Media already went out; the account raced itself to zero between the
		// advisory gate and completion. Charge nothing and skip the receipt.
		m.logger.Warn().
			Int64("account", req.AccountID).
			Str("job", j.handle.id).
			Str("kind", string(req.Kind)).
			Msg("jobs: credit gone at completion, delivery not charged")
		return
	}

	img, vid := m.ledger.Balances(context.Background(), req.AccountID)
	if req.Kind == domain.KindVideo {
		m.reply(req.AccountID, i18n.T(lang, "video_ready", vid), notifier)
	} else {
		m.reply(req.AccountID, i18n.T(lang, "image_ready", img), notifier)
	}
}

func (m *Manager) generate(ctx context.Context, req domain.GenerationRequest, reference []byte, lang string, notifier Notifier) ([]byte, string, error) {
	if req.Kind == domain.KindVideo {
		relay := newProgressRelay(m.progressEvery, func(text string) {
			m.progress(req.AccountID, text, notifier)
		})
		asset, err := m.videos.Generate(ctx, req, reference, func(elapsed time.Duration, completed bool) {
			if completed {
				relay.Deliver(i18n.T(lang, "video_complete"))
				return
			}
			minutes := int(elapsed.Minutes())
			relay.Deliver(i18n.T(lang, "video_progress", minutes))
		})
		if err != nil {
			return nil, "", err
		}
		return asset.Data, asset.Format, nil
	}

	asset, err := m.images.Generate(ctx, req, reference)
	if err != nil {
		return nil, "", err
	}
	return asset.Data, asset.Format, nil
}

// failureOutcome maps a generation error onto a terminal outcome and tells the
// user what happened. Cancellation stays silent: either the account asked for
// it or a newer job already took over the conversation.
func (m *Manager) failureOutcome(ctx context.Context, req domain.GenerationRequest, lang string, err error, notifier Notifier) Outcome {
	switch {
	case ctx.Err() != nil, errors.Is(err, context.Canceled):
		m.logger.Debug().Err(domain.ErrCancelled).
			Int64("account", req.AccountID).
			Str("kind", string(req.Kind)).
			Msg("jobs: generation cancelled")
		return OutcomeCancelled
	case errors.Is(err, domain.ErrUpstreamTimeout):
		m.replyRetryable(req, lang, i18n.T(lang, "generation_timeout"), notifier)
		return OutcomeTimedOut
	case errors.Is(err, domain.ErrUpstreamQuota):
		m.replyRetryable(req, lang, i18n.T(lang, "quota_exhausted"), notifier)
		return OutcomeQuota
	default:
		m.logger.Error().Err(err).
			Int64("account", req.AccountID).
			Str("kind", string(req.Kind)).
			Msg("jobs: generation failed")
		m.replyRetryable(req, lang, i18n.T(lang, "generation_failed"), notifier)
		return OutcomeFailed
	}
}

// replyRetryable attaches a retry option when the failed request came from the
// preset catalog, so a rerun can be rebuilt from the prompt id alone.
func (m *Manager) replyRetryable(req domain.GenerationRequest, lang, text string, notifier Notifier) {
	var choices []Choice
	if req.PromptID != "" {
		choices = []Choice{{Label: i18n.T(lang, "btn_retry"), Data: "retry:" + req.PromptID}}
	}
	if err := ReplyWithChoiceFallback(context.Background(), notifier, req.AccountID, text, choices); err != nil {
		m.logger.Warn().Err(err).Int64("account", req.AccountID).Msg("jobs: reply failed")
	}
}

// cleanup runs for every terminal path. It releases the live slot only if this
// job still owns it, returns the session to idle, and removes the job's files.
func (m *Manager) cleanup(j *job, req domain.GenerationRequest) {
	m.mu.Lock()
	current := m.live[req.AccountID] == j
	if current {
		delete(m.live, req.AccountID)
	}
	m.mu.Unlock()

	if current {
		m.sessions.ResetToIdle(req.AccountID)
	}
	m.sessionReferenceCleanup(req)

	ctx := context.Background()
	if req.ReferenceImage != "" {
		if err := m.store.Remove(ctx, req.ReferenceImage); err != nil {
			m.logger.Warn().Err(err).Str("key", req.ReferenceImage).Msg("jobs: reference cleanup failed")
		}
	}
	if err := m.store.RemoveAll(ctx, storage.JobDir(j.handle.id)); err != nil {
		m.logger.Warn().Err(err).Str("job", j.handle.id).Msg("jobs: artifact cleanup failed")
	}
}

func (m *Manager) sessionReferenceCleanup(req domain.GenerationRequest) {
	if req.ReferenceImage == "" {
		return
	}
	// Clear the handle only if the session still points at this job's upload;
	// a superseding job may have stored a new one already.
	if m.sessions.ReferenceImage(req.AccountID) == req.ReferenceImage {
		m.sessions.ClearReferenceImage(req.AccountID)
	}
}

// progress delivers a status update, rewriting the previous reply in place
// when the transport supports editing so milestones do not stack up as new
// messages.
func (m *Manager) progress(accountID int64, text string, notifier Notifier) {
	if editor, ok := notifier.(ReplyEditor); ok {
		if err := editor.EditReply(context.Background(), accountID, text); err == nil {
			return
		}
	}
	m.reply(accountID, text, notifier)
}

func (m *Manager) reply(accountID int64, text string, notifier Notifier) {
	if err := notifier.Reply(context.Background(), accountID, text); err != nil {
		m.logger.Warn().Err(err).Int64("account", accountID).Msg("jobs: reply failed")
	}
}
