package jobs

import (
	"context"

	"github.com/fraolBatole/AuraLab/internal/domain"
)

// Notifier delivers replies back to the account's chat.
type Notifier interface {
	Reply(ctx context.Context, accountID int64, text string) error
	ReplyWithMedia(ctx context.Context, accountID int64, kind domain.Kind, data []byte, format string) error
}

// Choice is one tappable option offered alongside a reply.
type Choice struct {
	Label string
	Data  string
}

// ChoiceNotifier is implemented by transports that can render inline options.
// Callers fall back to a plain Reply when the notifier cannot.
type ChoiceNotifier interface {
	ReplyWithChoices(ctx context.Context, accountID int64, text string, choices []Choice) error
}

// ReplyEditor is implemented by transports that can rewrite their most recent
// reply in place. Progress relays prefer it over sending a fresh message.
type ReplyEditor interface {
	EditReply(ctx context.Context, accountID int64, text string) error
}

// ReplyWithChoiceFallback sends text with choices when the transport supports
// them, and a plain message otherwise.
func ReplyWithChoiceFallback(ctx context.Context, n Notifier, accountID int64, text string, choices []Choice) error {
	if cn, ok := n.(ChoiceNotifier); ok && len(choices) > 0 {
		return cn.ReplyWithChoices(ctx, accountID, text, choices)
	}
	return n.Reply(ctx, accountID, text)
}
