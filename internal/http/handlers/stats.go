package handlers

import (
	"net/http"

	"github.com/fraolBatole/AuraLab/internal/sqlinline"
)

func (a *App) StatsSummary(w http.ResponseWriter, r *http.Request) {
	row := a.SQL.QueryRow(r.Context(), sqlinline.QStatsSummary)
	var totalAccounts, imageOutstanding, videoOutstanding, newLast24 int64
	if err := row.Scan(&totalAccounts, &imageOutstanding, &videoOutstanding, &newLast24); err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to load stats")
		return
	}
	a.json(w, http.StatusOK, map[string]any{
		"total_accounts":            totalAccounts,
		"image_credits_outstanding": imageOutstanding,
		"video_credits_outstanding": videoOutstanding,
		"accounts_created_last_24h": newLast24,
	})
}
