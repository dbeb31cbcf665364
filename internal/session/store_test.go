package session

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/fraolBatole/AuraLab/internal/domain"
	"github.com/fraolBatole/AuraLab/internal/infra"
)

type fakePrefs struct {
	mu         sync.Mutex
	language   string
	imageRatio domain.AspectRatio
	videoRatio domain.AspectRatio
	exists     bool
	readErr    error
	writeErr   error
	reads      int
}

func (f *fakePrefs) GetPreferences(ctx context.Context, id int64) (string, domain.AspectRatio, domain.AspectRatio, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	if f.readErr != nil {
		return "", "", "", f.readErr
	}
	if !f.exists {
		return "", "", "", domain.ErrNotFound
	}
	return f.language, f.imageRatio, f.videoRatio, nil
}

func (f *fakePrefs) SetLanguage(ctx context.Context, id int64, language string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.language = language
	f.exists = true
	return nil
}

func (f *fakePrefs) SetAspectRatios(ctx context.Context, id int64, imageRatio, videoRatio domain.AspectRatio) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.imageRatio = imageRatio
	f.videoRatio = videoRatio
	f.exists = true
	return nil
}

func newTestStore(prefs PreferenceStore) *Store {
	return NewStore(prefs, infra.NewLogger("test"), "en")
}

func TestModeTransitions(t *testing.T) {
	tests := []struct {
		name string
		from Mode
		to   Mode
		want bool
	}{
		{"idle to image choice", ModeIdle, ModeAwaitingImageModeChoice, true},
		{"idle to video choice", ModeIdle, ModeAwaitingVideoModeChoice, true},
		{"idle straight to prompt", ModeIdle, ModeAwaitingImagePrompt, false},
		{"image choice to prompt", ModeAwaitingImageModeChoice, ModeAwaitingImagePrompt, true},
		{"image choice to reference", ModeAwaitingImageModeChoice, ModeAwaitingImageReference, true},
		{"image reference to prompt", ModeAwaitingImageReference, ModeAwaitingImagePrompt, true},
		{"image choice to video prompt", ModeAwaitingImageModeChoice, ModeAwaitingVideoPrompt, false},
		{"video choice to prompt", ModeAwaitingVideoModeChoice, ModeAwaitingVideoPrompt, true},
		{"video reference to prompt", ModeAwaitingVideoReference, ModeAwaitingVideoPrompt, true},
		{"any mode back to idle", ModeAwaitingVideoPrompt, ModeIdle, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := CanTransition(tc.from, tc.to); got != tc.want {
				t.Fatalf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
			}
		})
	}
}

func TestSetModeRefusesIllegalMove(t *testing.T) {
	s := newTestStore(&fakePrefs{})

	if s.Mode(1) != ModeIdle {
		t.Fatalf("fresh session mode = %s, want idle", s.Mode(1))
	}
	if s.SetMode(1, ModeAwaitingImagePrompt) {
		t.Fatal("idle should not jump straight to awaiting prompt")
	}
	if s.Mode(1) != ModeIdle {
		t.Fatalf("refused transition changed mode to %s", s.Mode(1))
	}

	if !s.SetMode(1, ModeAwaitingImageModeChoice) {
		t.Fatal("idle to image choice should be allowed")
	}
	if !s.SetMode(1, ModeAwaitingImagePrompt) {
		t.Fatal("image choice to prompt should be allowed")
	}
}

func TestSetModeRefusesUnknownMode(t *testing.T) {
	s := newTestStore(&fakePrefs{})
	if s.SetMode(1, Mode("awaiting_audio_prompt")) {
		t.Fatal("unknown mode must be refused")
	}
}

func TestResetToIdleKeepsPreferencesAndPrompt(t *testing.T) {
	s := newTestStore(&fakePrefs{})
	ctx := context.Background()

	s.SetLanguage(ctx, 1, "am")
	s.SetMode(1, ModeAwaitingImageModeChoice)
	s.SetVariant(1, domain.VariantWithReference)
	s.RememberPrompt(1, "sunset-street")

	s.ResetToIdle(1)

	if s.Mode(1) != ModeIdle {
		t.Fatalf("mode after reset = %s, want idle", s.Mode(1))
	}
	if s.Variant(1) != "" {
		t.Fatalf("variant after reset = %q, want empty", s.Variant(1))
	}
	if s.Language(ctx, 1) != "am" {
		t.Fatal("reset must not touch the language preference")
	}
	if s.LastPromptID(1) != "sunset-street" {
		t.Fatal("reset must not forget the last prompt")
	}
}

func TestPreferencesSurviveRestart(t *testing.T) {
	prefs := &fakePrefs{}
	ctx := context.Background()

	s := newTestStore(prefs)
	s.SetLanguage(ctx, 9, "am")
	if !s.SetImageRatio(ctx, 9, domain.Ratio16x9) {
		t.Fatal("SetImageRatio rejected a valid ratio")
	}

	// A new store over the same persistence simulates a process restart.
	restarted := newTestStore(prefs)
	if got := restarted.Language(ctx, 9); got != "am" {
		t.Fatalf("language after restart = %q, want am", got)
	}
	if got := restarted.ImageRatio(ctx, 9); got != domain.Ratio16x9 {
		t.Fatalf("image ratio after restart = %q, want 16:9", got)
	}
	if got := restarted.VideoRatio(ctx, 9); got != domain.DefaultAspectRatio {
		t.Fatalf("video ratio after restart = %q, want default", got)
	}
}

func TestPreferenceReadFailsOpen(t *testing.T) {
	prefs := &fakePrefs{readErr: errors.New("connection refused")}
	s := newTestStore(prefs)
	ctx := context.Background()

	if got := s.Language(ctx, 3); got != "en" {
		t.Fatalf("language on read failure = %q, want default en", got)
	}
	if got := s.ImageRatio(ctx, 3); got != domain.DefaultAspectRatio {
		t.Fatalf("ratio on read failure = %q, want default", got)
	}

	// Once the store recovers the next access picks up the persisted values.
	prefs.mu.Lock()
	prefs.readErr = nil
	prefs.exists = true
	prefs.language = "am"
	prefs.imageRatio = domain.Ratio1x1
	prefs.videoRatio = domain.Ratio16x9
	prefs.mu.Unlock()

	if got := s.Language(ctx, 3); got != "am" {
		t.Fatalf("language after recovery = %q, want am", got)
	}
}

func TestPreferenceWriteFailsOpen(t *testing.T) {
	prefs := &fakePrefs{writeErr: errors.New("timeout")}
	s := newTestStore(prefs)
	ctx := context.Background()

	s.SetLanguage(ctx, 5, "am")
	if got := s.Language(ctx, 5); got != "am" {
		t.Fatalf("language after failed write-through = %q, want am", got)
	}
}

func TestSetRatioRejectsInvalidShape(t *testing.T) {
	s := newTestStore(&fakePrefs{})
	ctx := context.Background()

	if s.SetImageRatio(ctx, 2, domain.AspectRatio("2:1")) {
		t.Fatal("unsupported image ratio must be rejected")
	}
	if s.SetVideoRatio(ctx, 2, domain.AspectRatio("")) {
		t.Fatal("empty video ratio must be rejected")
	}
}

func TestReferenceImageHandle(t *testing.T) {
	s := newTestStore(&fakePrefs{})

	if s.ReferenceImage(4) != "" {
		t.Fatal("fresh session should hold no reference")
	}
	s.SetReferenceImage(4, "uploads/4/ref.jpg")
	if prev := s.ClearReferenceImage(4); prev != "uploads/4/ref.jpg" {
		t.Fatalf("ClearReferenceImage returned %q", prev)
	}
	if s.ReferenceImage(4) != "" {
		t.Fatal("reference should be gone after clear")
	}
}

func TestAccountsAreIndependent(t *testing.T) {
	s := newTestStore(&fakePrefs{})
	var wg sync.WaitGroup
	for i := int64(1); i <= 8; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			s.SetMode(id, ModeAwaitingVideoModeChoice)
			s.SetVariant(id, domain.VariantTextOnly)
			s.ResetToIdle(id)
		}(i)
	}
	wg.Wait()
	for i := int64(1); i <= 8; i++ {
		if s.Mode(i) != ModeIdle {
			t.Fatalf("account %d mode = %s, want idle", i, s.Mode(i))
		}
	}
}
