package session

import (
	"context"
	"sync"

	"github.com/fraolBatole/AuraLab/internal/domain"
	"github.com/fraolBatole/AuraLab/internal/infra"
)

// PreferenceStore is the persistent side of the session: language and aspect
// ratios survive restarts, everything else is in-memory only.
type PreferenceStore interface {
	GetPreferences(ctx context.Context, id int64) (language string, imageRatio, videoRatio domain.AspectRatio, err error)
	SetLanguage(ctx context.Context, id int64, language string) error
	SetAspectRatios(ctx context.Context, id int64, imageRatio, videoRatio domain.AspectRatio) error
}

type state struct {
	mu sync.Mutex

	mode           Mode
	variant        domain.Variant
	referenceImage string
	lastPromptID   string

	// Preferences are read through from the store on first access and written
	// through on every change. Mutations fail open: the in-memory value is
	// updated even when the write-behind fails.
	synced     bool
	language   string
	imageRatio domain.AspectRatio
	videoRatio domain.AspectRatio
}

// Store holds per-account conversation state. Each account has its own lock;
// operations on different accounts never contend.
type Store struct {
	mu       sync.Mutex
	sessions map[int64]*state

	prefs           PreferenceStore
	logger          infra.Logger
	defaultLanguage string
}

func NewStore(prefs PreferenceStore, logger infra.Logger, defaultLanguage string) *Store {
	return &Store{
		sessions:        make(map[int64]*state),
		prefs:           prefs,
		logger:          logger,
		defaultLanguage: defaultLanguage,
	}
}

func (s *Store) get(id int64) *state {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.sessions[id]
	if !ok {
		st = &state{
			mode:       ModeIdle,
			language:   s.defaultLanguage,
			imageRatio: domain.DefaultAspectRatio,
			videoRatio: domain.DefaultAspectRatio,
		}
		s.sessions[id] = st
	}
	return st
}

// ensureSynced loads persisted preferences into st. Called with st.mu held.
// A missing row or a read failure leaves the defaults in place; failures stay
// unsynced so the next access retries.
func (s *Store) ensureSynced(ctx context.Context, id int64, st *state) {
	if st.synced {
		return
	}
	lang, imgRatio, vidRatio, err := s.prefs.GetPreferences(ctx, id)
	if err != nil {
		if err == domain.ErrNotFound {
			st.synced = true
			return
		}
		s.logger.Warn().Err(err).Int64("account", id).Msg("session: preference read failed, using defaults")
		return
	}
	if lang != "" {
		st.language = lang
	}
	if imgRatio != "" {
		st.imageRatio = imgRatio
	}
	if vidRatio != "" {
		st.videoRatio = vidRatio
	}
	st.synced = true
}

// Mode returns the current conversation mode for an account.
func (s *Store) Mode(id int64) Mode {
	st := s.get(id)
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.mode
}

// SetMode moves the account to a new mode if the transition table allows it.
// Illegal moves are refused and leave the session untouched.
func (s *Store) SetMode(id int64, to Mode) bool {
	st := s.get(id)
	st.mu.Lock()
	defer st.mu.Unlock()
	if !to.Known() || !CanTransition(st.mode, to) {
		s.logger.Debug().Int64("account", id).
			Str("from", string(st.mode)).Str("to", string(to)).
			Msg("session: refused mode transition")
		return false
	}
	st.mode = to
	return true
}

// ResetToIdle returns the account to idle and clears in-flight choice state.
// Preferences and the last prompt survive the reset.
func (s *Store) ResetToIdle(id int64) {
	st := s.get(id)
	st.mu.Lock()
	defer st.mu.Unlock()
	st.mode = ModeIdle
	st.variant = ""
}

// Variant returns the generation variant picked earlier in the flow.
func (s *Store) Variant(id int64) domain.Variant {
	st := s.get(id)
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.variant
}

func (s *Store) SetVariant(id int64, v domain.Variant) {
	st := s.get(id)
	st.mu.Lock()
	defer st.mu.Unlock()
	st.variant = v
}

// ReferenceImage returns the stored upload handle, or "" when none is held.
func (s *Store) ReferenceImage(id int64) string {
	st := s.get(id)
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.referenceImage
}

func (s *Store) SetReferenceImage(id int64, handle string) {
	st := s.get(id)
	st.mu.Lock()
	defer st.mu.Unlock()
	st.referenceImage = handle
}

// ClearReferenceImage drops the handle and returns the previous value so the
// caller can release the underlying file.
func (s *Store) ClearReferenceImage(id int64) string {
	st := s.get(id)
	st.mu.Lock()
	defer st.mu.Unlock()
	prev := st.referenceImage
	st.referenceImage = ""
	return prev
}

// RememberPrompt records the preset behind the most recent generation so a
// retry can rebuild the request from scratch.
func (s *Store) RememberPrompt(id int64, promptID string) {
	st := s.get(id)
	st.mu.Lock()
	defer st.mu.Unlock()
	st.lastPromptID = promptID
}

func (s *Store) LastPromptID(id int64) string {
	st := s.get(id)
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.lastPromptID
}

// Language returns the account's reply language, loading the persisted value
// on first access.
func (s *Store) Language(ctx context.Context, id int64) string {
	st := s.get(id)
	st.mu.Lock()
	defer st.mu.Unlock()
	s.ensureSynced(ctx, id, st)
	return st.language
}

// SetLanguage updates the reply language in memory and writes it through. A
// failed write is logged and otherwise ignored; the session keeps the new value.
func (s *Store) SetLanguage(ctx context.Context, id int64, language string) {
	st := s.get(id)
	st.mu.Lock()
	defer st.mu.Unlock()
	st.language = language
	st.synced = true
	if err := s.prefs.SetLanguage(ctx, id, language); err != nil {
		s.logger.Warn().Err(err).Int64("account", id).Msg("session: language write-through failed")
	}
}

// ImageRatio returns the preferred output shape for images.
func (s *Store) ImageRatio(ctx context.Context, id int64) domain.AspectRatio {
	st := s.get(id)
	st.mu.Lock()
	defer st.mu.Unlock()
	s.ensureSynced(ctx, id, st)
	return st.imageRatio
}

// VideoRatio returns the preferred output shape for videos.
func (s *Store) VideoRatio(ctx context.Context, id int64) domain.AspectRatio {
	st := s.get(id)
	st.mu.Lock()
	defer st.mu.Unlock()
	s.ensureSynced(ctx, id, st)
	return st.videoRatio
}

// SetImageRatio updates the image output shape and persists both ratios.
func (s *Store) SetImageRatio(ctx context.Context, id int64, ratio domain.AspectRatio) bool {
	if !domain.ValidImageRatio(ratio) {
		return false
	}
	st := s.get(id)
	st.mu.Lock()
	defer st.mu.Unlock()
	s.ensureSynced(ctx, id, st)
	st.imageRatio = ratio
	s.persistRatios(ctx, id, st)
	return true
}

// SetVideoRatio updates the video output shape and persists both ratios.
func (s *Store) SetVideoRatio(ctx context.Context, id int64, ratio domain.AspectRatio) bool {
	if !domain.ValidVideoRatio(ratio) {
		return false
	}
	st := s.get(id)
	st.mu.Lock()
	defer st.mu.Unlock()
	s.ensureSynced(ctx, id, st)
	st.videoRatio = ratio
	s.persistRatios(ctx, id, st)
	return true
}

func (s *Store) persistRatios(ctx context.Context, id int64, st *state) {
	if err := s.prefs.SetAspectRatios(ctx, id, st.imageRatio, st.videoRatio); err != nil {
		s.logger.Warn().Err(err).Int64("account", id).Msg("session: ratio write-through failed")
	}
}
