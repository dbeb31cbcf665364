package jobs

import (
	"strings"
	"sync"
	"time"
)

// completionWords bypass the throttle so a final status is never swallowed by
// an earlier update that happened to land inside the window. Both reply
// languages are covered.
var completionWords = []string{"complete", "ready", "finished", "ተጠናቋል", "ይኸውና"}

// progressRelay rate-limits progress messages to one per interval. The first
// message always passes; completion announcements always pass.
type progressRelay struct {
	mu    sync.Mutex
	every time.Duration
	last  time.Time
	now   func() time.Time
	send  func(text string)
}

func newProgressRelay(every time.Duration, send func(text string)) *progressRelay {
	return &progressRelay{every: every, now: time.Now, send: send}
}

// Deliver forwards text to the user unless a message was already sent within
// the throttle window.
func (r *progressRelay) Deliver(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if !r.last.IsZero() && now.Sub(r.last) < r.every && !announcesCompletion(text) {
		return
	}
	r.last = now
	r.send(text)
}

func announcesCompletion(text string) bool {
	lower := strings.ToLower(text)
	for _, w := range completionWords {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}
