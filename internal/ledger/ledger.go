package ledger

import (
	"context"

	"github.com/fraolBatole/AuraLab/internal/domain"
	"github.com/fraolBatole/AuraLab/internal/infra"
)

// AccountStore is the persistence surface the ledger spends against.
type AccountStore interface {
	GetBalances(ctx context.Context, id int64) (imageCredits, videoCredits int, err error)
	TryDeduct(ctx context.Context, id int64, kind domain.Kind) (bool, error)
}

// Ledger mediates all credit reads and spends. Balance reads fail closed: a
// storage error is reported as a zero balance so the system never spends on
// uncertain state.
type Ledger struct {
	store  AccountStore
	logger infra.Logger
}

func New(store AccountStore, logger infra.Logger) *Ledger {
	return &Ledger{store: store, logger: logger}
}

// Balances returns both counters. On storage failure it returns zeros.
func (l *Ledger) Balances(ctx context.Context, id int64) (imageCredits, videoCredits int) {
	img, vid, err := l.store.GetBalances(ctx, id)
	if err != nil {
		l.logger.Warn().Err(err).Int64("account", id).Msg("ledger: balance read failed, treating as zero")
		return 0, 0
	}
	return img, vid
}

// HasCredit is the advisory pre-submission check. It must never substitute
// for TryDeduct at the point credit is actually consumed.
func (l *Ledger) HasCredit(ctx context.Context, id int64, kind domain.Kind) bool {
	img, vid := l.Balances(ctx, id)
	if kind == domain.KindVideo {
		return vid > 0
	}
	return img > 0
}

// TryDeduct consumes exactly one credit of the given kind, atomically against
// the persistent store. It reports false both when the balance is exhausted
// and when the store fails.
func (l *Ledger) TryDeduct(ctx context.Context, id int64, kind domain.Kind) bool {
	ok, err := l.store.TryDeduct(ctx, id, kind)
	if err != nil {
		l.logger.Error().Err(err).Int64("account", id).Str("kind", string(kind)).Msg("ledger: deduct failed")
		return false
	}
	return ok
}
