package stub

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pribylovaa/go-quiz-client/internal/apierrors"
	"github.com/pribylovaa/go-quiz-client/internal/models"
	"github.com/pribylovaa/go-quiz-client/internal/stub/middleware"
	logctx "github.com/pribylovaa/go-quiz-client/pkg/log"
)

var errNotRanked = apierrors.Detail(apierrors.ErrNotFound, "User not found in leaderboard")

// Leaderboard — GET /leaderboard/?top: топ-N и позиция текущего пользователя.
func (h *Handlers) Leaderboard(w http.ResponseWriter, r *http.Request) {
	top, err := queryInt(r, "top", 10, 1, 100)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	ctx := r.Context()
	entries, err := h.board.Top(ctx, top)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}
	total, err := h.board.Total(ctx)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	resp := models.LeaderboardResponse{Entries: entries, TotalUsers: total}

	uid := middleware.UserIDFrom(ctx)
	score, rank, err := h.board.Rank(ctx, uid)
	switch {
	case err == nil:
		resp.CurrentUserRank, resp.CurrentUserScore = &rank, &score
		for i := range resp.Entries {
			resp.Entries[i].IsCurrentUser = resp.Entries[i].UserID == uid
		}
	case !errors.Is(err, ErrNotRanked):
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// UserScore — GET /leaderboard/user/{user_id}/score.
func (h *Handlers) UserScore(w http.ResponseWriter, r *http.Request) {
	uid := chi.URLParam(r, "user_id")

	score, rank, err := h.board.Rank(r.Context(), uid)
	if errors.Is(err, ErrNotRanked) {
		apierrors.WriteError(w, r, errNotRanked)
		return
	}
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, models.UserScore{UserID: uid, Score: score, Rank: &rank})
}

// Around — GET /leaderboard/user/{user_id}/around?range_size.
// Пользователь вне рейтинга — пустой список.
func (h *Handlers) Around(w http.ResponseWriter, r *http.Request) {
	rangeSize, err := queryInt(r, "range_size", 5, 1, 20)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	out, err := h.board.Around(r.Context(), chi.URLParam(r, "user_id"), rangeSize)
	if errors.Is(err, ErrNotRanked) {
		writeJSON(w, http.StatusOK, []models.LeaderboardEntry{})
		return
	}
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, out)
}

// SetScore — POST /leaderboard/user/{user_id}/score: только свои баллы.
func (h *Handlers) SetScore(w http.ResponseWriter, r *http.Request) {
	uid := chi.URLParam(r, "user_id")
	if uid != middleware.UserIDFrom(r.Context()) {
		apierrors.WriteError(w, r, apierrors.Detail(apierrors.ErrPermissionDenied, "You can only update your own score"))
		return
	}

	var in models.UserScoreUpdate
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	if err := h.board.SetScore(r.Context(), uid, in.Score, in.UserData); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	logctx.From(r.Context()).Info("score_updated",
		slog.String("user_id", uid),
		slog.Int("score", in.Score),
	)

	writeJSON(w, http.StatusOK, models.MessageResponse{Message: "Score updated successfully"})
}

// RemoveUser — DELETE /leaderboard/user/{user_id}: только себя.
func (h *Handlers) RemoveUser(w http.ResponseWriter, r *http.Request) {
	uid := chi.URLParam(r, "user_id")
	if uid != middleware.UserIDFrom(r.Context()) {
		apierrors.WriteError(w, r, apierrors.Detail(apierrors.ErrPermissionDenied, "You can only remove your own account from leaderboard"))
		return
	}

	err := h.board.Remove(r.Context(), uid)
	if errors.Is(err, ErrNotRanked) {
		apierrors.WriteError(w, r, errNotRanked)
		return
	}
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, models.MessageResponse{Message: "User removed from leaderboard successfully"})
}

// ClearLeaderboard — DELETE /leaderboard/clear.
func (h *Handlers) ClearLeaderboard(w http.ResponseWriter, r *http.Request) {
	if err := h.board.Clear(r.Context()); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	logctx.From(r.Context()).Warn("leaderboard_cleared", slog.String("user_id", middleware.UserIDFrom(r.Context())))
	writeJSON(w, http.StatusOK, models.MessageResponse{Message: "Leaderboard cleared successfully"})
}
