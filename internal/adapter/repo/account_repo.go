package repo

import (
	"context"
	"fmt"

	"github.com/fraolBatole/AuraLab/internal/domain"
	"github.com/fraolBatole/AuraLab/internal/infra"
	"github.com/fraolBatole/AuraLab/internal/sqlinline"
)

// AccountRepositoryPG persists accounts in PostgreSQL through the
// marker-audited SQL runner.
type AccountRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewAccountRepository creates a new AccountRepositoryPG.
func NewAccountRepository(sql infra.SQLExecutor) *AccountRepositoryPG {
	return &AccountRepositoryPG{sql: sql}
}

// EnsureSchema creates the accounts table if it does not exist yet.
func (r *AccountRepositoryPG) EnsureSchema(ctx context.Context) error {
	if _, err := r.sql.Exec(ctx, sqlinline.QEnsureAccountsSchema); err != nil {
		return fmt.Errorf("ensure accounts schema: %w", err)
	}
	return nil
}

// GetByID fetches an account by its identifier.
func (r *AccountRepositoryPG) GetByID(ctx context.Context, id int64) (*domain.Account, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QSelectAccount, id)
	var a domain.Account
	if err := row.Scan(&a.ID, &a.FirstName, &a.Username, &a.ChatID,
		&a.ImageCredits, &a.VideoCredits, &a.Language,
		&a.ImageRatio, &a.VideoRatio, &a.Plan, &a.PlanExpiry, &a.CreatedAt); err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("select account %d: %w", id, err)
	}
	return &a, nil
}

// Create provisions an account on first contact with the initial credit
// grants. Concurrent first contacts are harmless: the insert is a no-op when
// the row already exists.
func (r *AccountRepositoryPG) Create(ctx context.Context, a *domain.Account) error {
	_, err := r.sql.Exec(ctx, sqlinline.QInsertAccount,
		a.ID, a.FirstName, a.Username, a.ChatID,
		domain.InitialImageCredits, domain.InitialVideoCredits,
		a.Language, a.ImageRatio, a.VideoRatio)
	if err != nil {
		return fmt.Errorf("insert account %d: %w", a.ID, err)
	}
	return nil
}

// UpdateContact refreshes display name, username and chat id on returning contact.
func (r *AccountRepositoryPG) UpdateContact(ctx context.Context, id int64, firstName, username string, chatID int64) error {
	_, err := r.sql.Exec(ctx, sqlinline.QUpdateAccountContact, id, firstName, username, chatID)
	if err != nil {
		return fmt.Errorf("update account contact %d: %w", id, err)
	}
	return nil
}

// GetPreferences returns the persisted preference triple for an account.
func (r *AccountRepositoryPG) GetPreferences(ctx context.Context, id int64) (language string, imageRatio, videoRatio domain.AspectRatio, err error) {
	row := r.sql.QueryRow(ctx, sqlinline.QSelectPreferences, id)
	if err := row.Scan(&language, &imageRatio, &videoRatio); err != nil {
		if infra.IsNoRows(err) {
			return "", "", "", domain.ErrNotFound
		}
		return "", "", "", fmt.Errorf("select preferences %d: %w", id, err)
	}
	return language, imageRatio, videoRatio, nil
}

// SetLanguage writes the language preference through to the account row.
func (r *AccountRepositoryPG) SetLanguage(ctx context.Context, id int64, language string) error {
	_, err := r.sql.Exec(ctx, sqlinline.QUpdateLanguage, id, language)
	if err != nil {
		return fmt.Errorf("update language %d: %w", id, err)
	}
	return nil
}

// SetAspectRatios writes both output-shape preferences through to the account row.
func (r *AccountRepositoryPG) SetAspectRatios(ctx context.Context, id int64, imageRatio, videoRatio domain.AspectRatio) error {
	_, err := r.sql.Exec(ctx, sqlinline.QUpdateAspectRatios, id, imageRatio, videoRatio)
	if err != nil {
		return fmt.Errorf("update aspect ratios %d: %w", id, err)
	}
	return nil
}

// GetBalances returns the two credit counters for an account.
func (r *AccountRepositoryPG) GetBalances(ctx context.Context, id int64) (imageCredits, videoCredits int, err error) {
	row := r.sql.QueryRow(ctx, sqlinline.QSelectBalances, id)
	if err := row.Scan(&imageCredits, &videoCredits); err != nil {
		if infra.IsNoRows(err) {
			return 0, 0, domain.ErrNotFound
		}
		return 0, 0, fmt.Errorf("select balances %d: %w", id, err)
	}
	return imageCredits, videoCredits, nil
}

// TryDeduct performs the atomic conditional decrement for one credit of the
// given kind. The affected-row count is the only success signal; there is no
// separate read, so concurrent callers race to zero with at most one winner
// per remaining credit.
func (r *AccountRepositoryPG) TryDeduct(ctx context.Context, id int64, kind domain.Kind) (bool, error) {
	query := sqlinline.QDeductImageCredit
	if kind == domain.KindVideo {
		query = sqlinline.QDeductVideoCredit
	}
	tag, err := r.sql.Exec(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("deduct %s credit %d: %w", kind, id, err)
	}
	return tag.RowsAffected() == 1, nil
}
