package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fraolBatole/AuraLab/internal/domain"
	"github.com/fraolBatole/AuraLab/internal/sqlinline"
)

type accountRow struct {
	ID           int64     `json:"id"`
	FirstName    string    `json:"first_name"`
	Username     string    `json:"username"`
	ImageCredits int       `json:"image_credits"`
	VideoCredits int       `json:"video_credits"`
	Language     string    `json:"language"`
	ImageRatio   string    `json:"image_aspect_ratio"`
	VideoRatio   string    `json:"video_aspect_ratio"`
	Plan         string    `json:"plan"`
	CreatedAt    time.Time `json:"created_at"`
}

// ListAccounts returns the newest accounts, capped at the limit query
// parameter (default 50).
func (a *App) ListAccounts(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 500 {
			a.error(w, http.StatusBadRequest, "bad_request", "limit must be between 1 and 500")
			return
		}
		limit = n
	}

	rows, err := a.SQL.Query(r.Context(), sqlinline.QListAccounts, limit)
	if err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to list accounts")
		return
	}
	defer rows.Close()

	accounts := make([]accountRow, 0, limit)
	for rows.Next() {
		var row accountRow
		if err := rows.Scan(&row.ID, &row.FirstName, &row.Username,
			&row.ImageCredits, &row.VideoCredits, &row.Language,
			&row.ImageRatio, &row.VideoRatio, &row.Plan, &row.CreatedAt); err != nil {
			a.error(w, http.StatusInternalServerError, "internal", "failed to scan account")
			return
		}
		accounts = append(accounts, row)
	}
	if err := rows.Err(); err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to list accounts")
		return
	}

	a.json(w, http.StatusOK, map[string]any{"accounts": accounts})
}

type resetRequest struct {
	ImageCredits *int `json:"image_credits"`
	VideoCredits *int `json:"video_credits"`
}

func (req *resetRequest) counters() (int, int) {
	img, vid := domain.InitialImageCredits, domain.InitialVideoCredits
	if req.ImageCredits != nil {
		img = *req.ImageCredits
	}
	if req.VideoCredits != nil {
		vid = *req.VideoCredits
	}
	return img, vid
}

// ResetAllCredits sets every account's counters, defaulting to the initial
// grants when the body omits them.
func (a *App) ResetAllCredits(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if r.Body != nil {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			a.error(w, http.StatusBadRequest, "bad_request", "invalid json body")
			return
		}
	}
	img, vid := req.counters()
	if img < 0 || vid < 0 {
		a.error(w, http.StatusBadRequest, "bad_request", "credits must not be negative")
		return
	}

	tag, err := a.SQL.Exec(r.Context(), sqlinline.QResetAllCredits, img, vid)
	if err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to reset credits")
		return
	}
	a.json(w, http.StatusOK, map[string]any{"accounts_updated": tag.RowsAffected()})
}

// ResetAccountCredits sets one account's counters.
func (a *App) ResetAccountCredits(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid account id")
		return
	}

	var req resetRequest
	if r.Body != nil {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			a.error(w, http.StatusBadRequest, "bad_request", "invalid json body")
			return
		}
	}
	img, vid := req.counters()
	if img < 0 || vid < 0 {
		a.error(w, http.StatusBadRequest, "bad_request", "credits must not be negative")
		return
	}

	tag, err := a.SQL.Exec(r.Context(), sqlinline.QResetAccountCredits, id, img, vid)
	if err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to reset credits")
		return
	}
	if tag.RowsAffected() == 0 {
		a.error(w, http.StatusNotFound, "not_found", "account not found")
		return
	}
	a.json(w, http.StatusOK, map[string]any{"id": id, "image_credits": img, "video_credits": vid})
}

// DeleteAccount removes an account row entirely.
func (a *App) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid account id")
		return
	}

	tag, err := a.SQL.Exec(r.Context(), sqlinline.QDeleteAccount, id)
	if err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to delete account")
		return
	}
	if tag.RowsAffected() == 0 {
		a.error(w, http.StatusNotFound, "not_found", "account not found")
		return
	}
	a.json(w, http.StatusOK, map[string]any{"id": id, "deleted": true})
}
