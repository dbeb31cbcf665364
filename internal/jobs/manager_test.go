package jobs

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/fraolBatole/AuraLab/internal/domain"
	"github.com/fraolBatole/AuraLab/internal/infra"
	"github.com/fraolBatole/AuraLab/internal/ledger"
	"github.com/fraolBatole/AuraLab/internal/providers/image"
	"github.com/fraolBatole/AuraLab/internal/providers/video"
	"github.com/fraolBatole/AuraLab/internal/session"
	"github.com/fraolBatole/AuraLab/internal/storage"
)

type nopPrefs struct{}

func (nopPrefs) GetPreferences(ctx context.Context, id int64) (string, domain.AspectRatio, domain.AspectRatio, error) {
	return "", "", "", domain.ErrNotFound
}
func (nopPrefs) SetLanguage(ctx context.Context, id int64, language string) error { return nil }
func (nopPrefs) SetAspectRatios(ctx context.Context, id int64, imageRatio, videoRatio domain.AspectRatio) error {
	return nil
}

type memStore struct {
	mu           sync.Mutex
	imageCredits map[int64]int
	videoCredits map[int64]int
}

func newMemStore() *memStore {
	return &memStore{imageCredits: make(map[int64]int), videoCredits: make(map[int64]int)}
}

func (s *memStore) GetBalances(ctx context.Context, id int64) (int, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.imageCredits[id], s.videoCredits[id], nil
}

func (s *memStore) TryDeduct(ctx context.Context, id int64, kind domain.Kind) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	credits := s.imageCredits
	if kind == domain.KindVideo {
		credits = s.videoCredits
	}
	if credits[id] <= 0 {
		return false, nil
	}
	credits[id]--
	return true, nil
}

type recordedReply struct {
	media bool
	text  string
}

type fakeNotifier struct {
	mu      sync.Mutex
	replies []recordedReply
}

func (n *fakeNotifier) Reply(ctx context.Context, accountID int64, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.replies = append(n.replies, recordedReply{text: text})
	return nil
}

func (n *fakeNotifier) ReplyWithMedia(ctx context.Context, accountID int64, kind domain.Kind, data []byte, format string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.replies = append(n.replies, recordedReply{media: true})
	return nil
}

func (n *fakeNotifier) all() []recordedReply {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]recordedReply, len(n.replies))
	copy(out, n.replies)
	return out
}

func (n *fakeNotifier) texts() []string {
	var out []string
	for _, r := range n.all() {
		if !r.media {
			out = append(out, r.text)
		}
	}
	return out
}

type editingNotifier struct {
	fakeNotifier
	edits []string
}

func (n *editingNotifier) EditReply(ctx context.Context, accountID int64, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.edits = append(n.edits, text)
	return nil
}

func (n *editingNotifier) allEdits() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.edits))
	copy(out, n.edits)
	return out
}

type fakeImageGen struct {
	fn func(ctx context.Context, req domain.GenerationRequest, reference []byte) (*image.Asset, error)
}

func (g *fakeImageGen) Generate(ctx context.Context, req domain.GenerationRequest, reference []byte) (*image.Asset, error) {
	if g.fn != nil {
		return g.fn(ctx, req, reference)
	}
	return &image.Asset{Data: []byte("png"), Format: "image/png"}, nil
}

type fakeVideoGen struct {
	fn func(ctx context.Context, req domain.GenerationRequest, reference []byte, progress video.ProgressFunc) (*video.Asset, error)
}

func (g *fakeVideoGen) Generate(ctx context.Context, req domain.GenerationRequest, reference []byte, progress video.ProgressFunc) (*video.Asset, error) {
	if g.fn != nil {
		return g.fn(ctx, req, reference, progress)
	}
	return &video.Asset{Data: []byte("mp4"), Format: "video/mp4"}, nil
}

type fixture struct {
	manager  *Manager
	sessions *session.Store
	store    *storage.FileStore
	credits  *memStore
	images   *fakeImageGen
	videos   *fakeVideoGen
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := infra.NewLogger("test")
	credits := newMemStore()
	sessions := session.NewStore(nopPrefs{}, logger, "en")
	store, err := storage.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	images := &fakeImageGen{}
	videos := &fakeVideoGen{}
	m := NewManager(Config{
		Ledger:        ledger.New(credits, logger),
		Sessions:      sessions,
		Images:        images,
		Videos:        videos,
		Store:         store,
		Logger:        logger,
		ProgressEvery: time.Millisecond,
	})
	return &fixture{manager: m, sessions: sessions, store: store, credits: credits, images: images, videos: videos}
}

func imageReq(accountID int64) domain.GenerationRequest {
	return domain.GenerationRequest{
		AccountID:   accountID,
		Kind:        domain.KindImage,
		Variant:     domain.VariantTextOnly,
		Prompt:      "a quiet street after rain",
		AspectRatio: domain.DefaultAspectRatio,
	}
}

func waitDone(t *testing.T, h *Handle) Outcome {
	t.Helper()
	select {
	case <-h.Done():
		return h.Outcome()
	case <-time.After(5 * time.Second):
		t.Fatal("job did not finish")
		return ""
	}
}

func TestSuccessDeliversMediaThenCharges(t *testing.T) {
	f := newFixture(t)
	f.credits.imageCredits[1] = 3
	n := &fakeNotifier{}

	h := f.manager.Submit(imageReq(1), n)
	if got := waitDone(t, h); got != OutcomeDelivered {
		t.Fatalf("outcome = %s, want delivered", got)
	}

	replies := n.all()
	if len(replies) != 2 || !replies[0].media || replies[1].media {
		t.Fatalf("want media then receipt, got %+v", replies)
	}
	if !strings.Contains(replies[1].text, "2") {
		t.Fatalf("receipt should carry remaining balance 2, got %q", replies[1].text)
	}

	img, _, _ := f.credits.GetBalances(context.Background(), 1)
	if img != 2 {
		t.Fatalf("image credits = %d, want 2", img)
	}
	if f.manager.Live(1) {
		t.Fatal("job should have left the live set")
	}
	if f.sessions.Mode(1) != session.ModeIdle {
		t.Fatalf("session mode = %s, want idle", f.sessions.Mode(1))
	}
}

func TestFailureDoesNotCharge(t *testing.T) {
	f := newFixture(t)
	f.credits.imageCredits[1] = 3
	f.images.fn = func(ctx context.Context, req domain.GenerationRequest, reference []byte) (*image.Asset, error) {
		return nil, errors.New("model exploded")
	}
	n := &fakeNotifier{}

	h := f.manager.Submit(imageReq(1), n)
	if got := waitDone(t, h); got != OutcomeFailed {
		t.Fatalf("outcome = %s, want failed", got)
	}

	img, _, _ := f.credits.GetBalances(context.Background(), 1)
	if img != 3 {
		t.Fatalf("failed job must not charge, balance = %d", img)
	}
	texts := n.texts()
	if len(texts) != 1 || !strings.Contains(texts[0], "not charged") {
		t.Fatalf("want one failure message mentioning no charge, got %v", texts)
	}
	if f.sessions.Mode(1) != session.ModeIdle {
		t.Fatal("session must return to idle on failure")
	}
}

func TestTimeoutAndQuotaOutcomes(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		outcome Outcome
		keyword string
	}{
		{"timeout", domain.ErrUpstreamTimeout, OutcomeTimedOut, "too long"},
		{"quota", domain.ErrUpstreamQuota, OutcomeQuota, "capacity"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			f.credits.videoCredits[1] = 1
			f.videos.fn = func(ctx context.Context, req domain.GenerationRequest, reference []byte, progress video.ProgressFunc) (*video.Asset, error) {
				return nil, tc.err
			}
			n := &fakeNotifier{}

			req := imageReq(1)
			req.Kind = domain.KindVideo
			h := f.manager.Submit(req, n)
			if got := waitDone(t, h); got != tc.outcome {
				t.Fatalf("outcome = %s, want %s", got, tc.outcome)
			}

			_, vid, _ := f.credits.GetBalances(context.Background(), 1)
			if vid != 1 {
				t.Fatalf("balance = %d, want untouched 1", vid)
			}
			texts := n.texts()
			if len(texts) != 1 || !strings.Contains(texts[0], tc.keyword) {
				t.Fatalf("want message containing %q, got %v", tc.keyword, texts)
			}
		})
	}
}

func TestSupersedeCancelsPreviousJob(t *testing.T) {
	f := newFixture(t)
	f.credits.imageCredits[1] = 5

	started := make(chan struct{})
	f.images.fn = func(ctx context.Context, req domain.GenerationRequest, reference []byte) (*image.Asset, error) {
		if req.Prompt == "slow" {
			close(started)
			<-ctx.Done()
			return nil, ctx.Err()
		}
		return &image.Asset{Data: []byte("png"), Format: "image/png"}, nil
	}

	n1 := &fakeNotifier{}
	req1 := imageReq(1)
	req1.Prompt = "slow"
	h1 := f.manager.Submit(req1, n1)
	<-started

	n2 := &fakeNotifier{}
	h2 := f.manager.Submit(imageReq(1), n2)

	if got := waitDone(t, h1); got != OutcomeCancelled {
		t.Fatalf("superseded job outcome = %s, want cancelled", got)
	}
	if got := waitDone(t, h2); got != OutcomeDelivered {
		t.Fatalf("new job outcome = %s, want delivered", got)
	}

	// A superseded job unwinds silently.
	if texts := n1.texts(); len(texts) != 0 {
		t.Fatalf("superseded job sent %v, want silence", texts)
	}

	img, _, _ := f.credits.GetBalances(context.Background(), 1)
	if img != 4 {
		t.Fatalf("only the delivered job may charge, balance = %d, want 4", img)
	}
}

func TestCancelIsSilent(t *testing.T) {
	f := newFixture(t)
	f.credits.imageCredits[1] = 1

	started := make(chan struct{})
	f.images.fn = func(ctx context.Context, req domain.GenerationRequest, reference []byte) (*image.Asset, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	}
	n := &fakeNotifier{}

	h := f.manager.Submit(imageReq(1), n)
	<-started
	if !f.manager.Cancel(1) {
		t.Fatal("Cancel should find the live job")
	}
	if got := waitDone(t, h); got != OutcomeCancelled {
		t.Fatalf("outcome = %s, want cancelled", got)
	}
	if texts := n.texts(); len(texts) != 0 {
		t.Fatalf("cancelled job sent %v, want silence", texts)
	}
	if f.manager.Cancel(1) {
		t.Fatal("second Cancel should find nothing")
	}
}

func TestCreditGoneAtCompletionSkipsReceipt(t *testing.T) {
	f := newFixture(t)
	// Advisory checks happened earlier at the router; by completion the
	// balance is zero.
	n := &fakeNotifier{}

	h := f.manager.Submit(imageReq(1), n)
	if got := waitDone(t, h); got != OutcomeDelivered {
		t.Fatalf("outcome = %s, want delivered", got)
	}

	replies := n.all()
	if len(replies) != 1 || !replies[0].media {
		t.Fatalf("want media only, no receipt, got %+v", replies)
	}
}

func TestCleanupRemovesReferenceAndArtifacts(t *testing.T) {
	f := newFixture(t)
	f.credits.imageCredits[1] = 1
	ctx := context.Background()

	key, err := f.store.Write(ctx, storage.UploadKey(1, "ref.jpg"), []byte("jpeg"))
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	f.sessions.SetReferenceImage(1, key)

	req := imageReq(1)
	req.Variant = domain.VariantWithReference
	req.ReferenceImage = key
	n := &fakeNotifier{}

	h := f.manager.Submit(req, n)
	if got := waitDone(t, h); got != OutcomeDelivered {
		t.Fatalf("outcome = %s, want delivered", got)
	}

	if _, err := f.store.Read(ctx, key); err == nil {
		t.Fatal("reference upload should be deleted after the job")
	}
	if f.sessions.ReferenceImage(1) != "" {
		t.Fatal("session reference handle should be cleared")
	}
}

func TestPanicInGeneratorIsContained(t *testing.T) {
	f := newFixture(t)
	f.credits.imageCredits[1] = 1
	f.images.fn = func(ctx context.Context, req domain.GenerationRequest, reference []byte) (*image.Asset, error) {
		panic("boom")
	}
	n := &fakeNotifier{}

	h := f.manager.Submit(imageReq(1), n)
	if got := waitDone(t, h); got != OutcomeFailed {
		t.Fatalf("outcome = %s, want failed", got)
	}
	if f.manager.Live(1) {
		t.Fatal("live slot must be released after a panic")
	}
	if f.sessions.Mode(1) != session.ModeIdle {
		t.Fatal("session must return to idle after a panic")
	}
}

func TestVideoProgressIsRelayed(t *testing.T) {
	f := newFixture(t)
	f.credits.videoCredits[1] = 1
	f.videos.fn = func(ctx context.Context, req domain.GenerationRequest, reference []byte, progress video.ProgressFunc) (*video.Asset, error) {
		progress(3*time.Minute, false)
		time.Sleep(5 * time.Millisecond)
		progress(6*time.Minute, false)
		time.Sleep(5 * time.Millisecond)
		progress(7*time.Minute, true)
		return &video.Asset{Data: []byte("mp4"), Format: "video/mp4"}, nil
	}
	n := &fakeNotifier{}

	req := imageReq(1)
	req.Kind = domain.KindVideo
	h := f.manager.Submit(req, n)
	if got := waitDone(t, h); got != OutcomeDelivered {
		t.Fatalf("outcome = %s, want delivered", got)
	}

	texts := n.texts()
	var sawProgress, sawComplete bool
	for _, text := range texts {
		if strings.Contains(text, "3 minutes") {
			sawProgress = true
		}
		if strings.Contains(strings.ToLower(text), "complete") {
			sawComplete = true
		}
	}
	if !sawProgress || !sawComplete {
		t.Fatalf("want progress and completion updates, got %v", texts)
	}
}

func TestVideoProgressEditsInPlace(t *testing.T) {
	f := newFixture(t)
	f.credits.videoCredits[1] = 1
	f.videos.fn = func(ctx context.Context, req domain.GenerationRequest, reference []byte, progress video.ProgressFunc) (*video.Asset, error) {
		progress(3*time.Minute, false)
		time.Sleep(5 * time.Millisecond)
		progress(7*time.Minute, true)
		return &video.Asset{Data: []byte("mp4"), Format: "video/mp4"}, nil
	}
	n := &editingNotifier{}

	req := imageReq(1)
	req.Kind = domain.KindVideo
	h := f.manager.Submit(req, n)
	if got := waitDone(t, h); got != OutcomeDelivered {
		t.Fatalf("outcome = %s, want delivered", got)
	}

	edits := n.allEdits()
	if len(edits) != 2 {
		t.Fatalf("progress should rewrite one message, got edits %v", edits)
	}
	if !strings.Contains(edits[0], "3 minutes") || !strings.Contains(strings.ToLower(edits[1]), "complete") {
		t.Fatalf("edits = %v, want progress then completion", edits)
	}
	// The receipt is still a fresh message, not an edit.
	if texts := n.texts(); len(texts) != 1 {
		t.Fatalf("want only the receipt as a new message, got %v", texts)
	}
}

func TestCancelledJobLogsSentinel(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	credits := newMemStore()
	credits.imageCredits[1] = 1
	store, err := storage.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	started := make(chan struct{})
	images := &fakeImageGen{fn: func(ctx context.Context, req domain.GenerationRequest, reference []byte) (*image.Asset, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	m := NewManager(Config{
		Ledger:        ledger.New(credits, logger),
		Sessions:      session.NewStore(nopPrefs{}, logger, "en"),
		Images:        images,
		Videos:        &fakeVideoGen{},
		Store:         store,
		Logger:        logger,
		ProgressEvery: time.Millisecond,
	})

	h := m.Submit(imageReq(1), &fakeNotifier{})
	<-started
	m.Cancel(1)
	if got := waitDone(t, h); got != OutcomeCancelled {
		t.Fatalf("outcome = %s, want cancelled", got)
	}
	if !strings.Contains(buf.String(), domain.ErrCancelled.Error()) {
		t.Fatalf("cancellation should log the cancelled sentinel, got %s", buf.String())
	}
}

func TestAccountsRunInParallel(t *testing.T) {
	f := newFixture(t)
	f.credits.imageCredits[1] = 1
	f.credits.imageCredits[2] = 1

	gate := make(chan struct{})
	f.images.fn = func(ctx context.Context, req domain.GenerationRequest, reference []byte) (*image.Asset, error) {
		<-gate
		return &image.Asset{Data: []byte("png"), Format: "image/png"}, nil
	}

	h1 := f.manager.Submit(imageReq(1), &fakeNotifier{})
	h2 := f.manager.Submit(imageReq(2), &fakeNotifier{})
	if !f.manager.Live(1) || !f.manager.Live(2) {
		t.Fatal("both accounts should hold live jobs at once")
	}
	close(gate)

	if got := waitDone(t, h1); got != OutcomeDelivered {
		t.Fatalf("account 1 outcome = %s", got)
	}
	if got := waitDone(t, h2); got != OutcomeDelivered {
		t.Fatalf("account 2 outcome = %s", got)
	}
}
