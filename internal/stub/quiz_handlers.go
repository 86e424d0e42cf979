package stub

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/pribylovaa/go-quiz-client/internal/apierrors"
	"github.com/pribylovaa/go-quiz-client/internal/models"
	"github.com/pribylovaa/go-quiz-client/internal/stub/middleware"
	logctx "github.com/pribylovaa/go-quiz-client/pkg/log"
)

var errQuizNotFound = apierrors.Detail(apierrors.ErrNotFound, "Quiz not found")

// quizError переводит ошибки хранилища в ошибки API.
func quizError(err error, action string) error {
	switch {
	case errors.Is(err, ErrQuizNotFound):
		return errQuizNotFound
	case errors.Is(err, ErrNotOwner):
		return apierrors.Detail(apierrors.ErrPermissionDenied, "You can only "+action+" your own quizzes")
	case errors.Is(err, ErrInvalidQuiz):
		return apierrors.Detail(apierrors.ErrInvalidArgument, err.Error())
	default:
		return err
	}
}

// CreateQuiz — POST /quiz/.
func (h *Handlers) CreateQuiz(w http.ResponseWriter, r *http.Request) {
	var in models.QuizInput
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	uid := middleware.UserIDFrom(r.Context())
	q, err := h.quizzes.Create(uid, in)
	if err != nil {
		apierrors.WriteError(w, r, quizError(err, "create"))
		return
	}

	logctx.From(r.Context()).Info("quiz_created",
		slog.String("quiz_id", q.ID),
		slog.String("user_id", uid),
		slog.Int("questions", len(q.Questions)),
	)

	writeJSON(w, http.StatusCreated, q)
}

// GetQuiz — GET /quiz/{quiz_id}.
func (h *Handlers) GetQuiz(w http.ResponseWriter, r *http.Request) {
	q, err := h.quizzes.Get(chi.URLParam(r, "quiz_id"))
	if err != nil {
		apierrors.WriteError(w, r, quizError(err, "view"))
		return
	}

	writeJSON(w, http.StatusOK, q)
}

// UpdateQuiz — PUT /quiz/{quiz_id}; менять можно только свои квизы.
func (h *Handlers) UpdateQuiz(w http.ResponseWriter, r *http.Request) {
	var in models.QuizInput
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	q, err := h.quizzes.Update(middleware.UserIDFrom(r.Context()), chi.URLParam(r, "quiz_id"), in)
	if err != nil {
		apierrors.WriteError(w, r, quizError(err, "update"))
		return
	}

	writeJSON(w, http.StatusOK, q)
}

// DeleteQuiz — DELETE /quiz/{quiz_id}: 204 без тела.
func (h *Handlers) DeleteQuiz(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "quiz_id")
	if err := h.quizzes.Delete(middleware.UserIDFrom(r.Context()), id); err != nil {
		apierrors.WriteError(w, r, quizError(err, "delete"))
		return
	}

	logctx.From(r.Context()).Info("quiz_deleted", slog.String("quiz_id", id))
	w.WriteHeader(http.StatusNoContent)
}

// SearchQuizzes — GET /quiz/search/.
func (h *Handlers) SearchQuizzes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	page, err := queryInt(r, "page", 1, 1, 1<<20)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}
	size, err := queryInt(r, "size", defaultPageSize, 1, maxPageSize)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	f := SearchFilter{
		Query:         q.Get("q"),
		Tags:          q["tags"],
		UserID:        q.Get("user_id"),
		ExcludeUserID: q.Get("exclude_user_id"),
		SortBy:        q.Get("sort_by"),
		SortOrder:     q.Get("sort_order"),
		Page:          page,
		Size:          size,
	}
	if raw := q.Get("is_ai_generated"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			apierrors.WriteError(w, r, apierrors.Detail(apierrors.ErrInvalidArgument, "is_ai_generated must be a boolean"))
			return
		}
		f.IsAIGenerated = &v
	}
	switch f.SortBy {
	case "", "created_at", "title", "updated_at":
	default:
		apierrors.WriteError(w, r, apierrors.Detail(apierrors.ErrInvalidArgument, "sort_by must be one of created_at, title, updated_at"))
		return
	}
	switch f.SortOrder {
	case "", "asc", "desc":
	default:
		apierrors.WriteError(w, r, apierrors.Detail(apierrors.ErrInvalidArgument, "sort_order must be asc or desc"))
		return
	}

	writeJSON(w, http.StatusOK, h.quizzes.Search(f))
}

// Tags — GET /quiz/tags/?search&limit.
func (h *Handlers) Tags(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", defaultTagLimit, 1, 1000)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, h.quizzes.Tags(r.URL.Query().Get("search"), limit))
}

// UserQuizzes — GET /quiz/user/{user_id}?page&size.
func (h *Handlers) UserQuizzes(w http.ResponseWriter, r *http.Request) {
	page, err := queryInt(r, "page", 1, 1, 1<<20)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}
	size, err := queryInt(r, "size", defaultPageSize, 1, maxPageSize)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, h.quizzes.ByUser(chi.URLParam(r, "user_id"), page, size))
}

// UserQuizCount — GET /quiz/user/{user_id}/count.
func (h *Handlers) UserQuizCount(w http.ResponseWriter, r *http.Request) {
	uid := chi.URLParam(r, "user_id")
	writeJSON(w, http.StatusOK, models.QuizCountResponse{
		UserID:    uid,
		QuizCount: h.quizzes.CountByUser(uid),
		Status:    "success",
	})
}

// CalculateResult — POST /quiz/{quiz_id}/calculate-result.
func (h *Handlers) CalculateResult(w http.ResponseWriter, r *http.Request) {
	var in models.QuizResult
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	q, err := h.quizzes.Get(chi.URLParam(r, "quiz_id"))
	if err != nil {
		apierrors.WriteError(w, r, quizError(err, "view"))
		return
	}

	res := Score(q, in)
	logctx.From(r.Context()).Info("quiz_scored",
		slog.String("quiz_id", q.ID),
		slog.Int("score", res.Score),
	)

	writeJSON(w, http.StatusOK, res)
}

// GenerateWithAI — POST /quiz/generate-with-ai: в стабе генерации нет.
func (h *Handlers) GenerateWithAI(w http.ResponseWriter, r *http.Request) {
	apierrors.WriteError(w, r, apierrors.Detail(apierrors.ErrUnimplemented, "AI generation is not available"))
}
