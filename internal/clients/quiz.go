package clients

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/pribylovaa/go-quiz-client/internal/gateway"
	"github.com/pribylovaa/go-quiz-client/internal/models"
)

// QuizClient — ресурсные эндпоинты квизов (префикс по умолчанию /api/quiz).
type QuizClient struct {
	gw     *gateway.Gateway
	prefix string
}

func NewQuizClient(gw *gateway.Gateway, prefix string) *QuizClient {
	return &QuizClient{gw: gw, prefix: strings.TrimRight(prefix, "/")}
}

func (q *QuizClient) path(parts ...string) string {
	var b strings.Builder
	b.WriteString(q.prefix)
	for _, p := range parts {
		b.WriteByte('/')
		b.WriteString(p)
	}
	return b.String()
}

// Search — GET /search/ с фильтрами; пустые поля не передаются.
func (q *QuizClient) Search(ctx context.Context, p models.QuizSearchParams) (*models.QuizPage, error) {
	const op = "clients.QuizClient.Search"

	v := url.Values{}
	if p.Query != "" {
		v.Set("q", p.Query)
	}
	for _, t := range p.Tags {
		v.Add("tags", t)
	}
	if p.UserID != "" {
		v.Set("user_id", p.UserID)
	}
	if p.ExcludeUserID != "" {
		v.Set("exclude_user_id", p.ExcludeUserID)
	}
	if p.IsAIGenerated != nil {
		v.Set("is_ai_generated", strconv.FormatBool(*p.IsAIGenerated))
	}
	if p.SortBy != "" {
		v.Set("sort_by", p.SortBy)
	}
	if p.SortOrder != "" {
		v.Set("sort_order", p.SortOrder)
	}
	if p.Page > 0 {
		v.Set("page", strconv.Itoa(p.Page))
	}
	if p.Size > 0 {
		v.Set("size", strconv.Itoa(p.Size))
	}

	path := q.path("search") + "/"
	if len(v) > 0 {
		path += "?" + v.Encode()
	}

	var out models.QuizPage
	if err := q.getJSON(ctx, path, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &out, nil
}

func (q *QuizClient) Get(ctx context.Context, id string) (*models.Quiz, error) {
	const op = "clients.QuizClient.Get"

	if id == "" {
		return nil, fmt.Errorf("%s: %w: empty quiz id", op, ErrInvalidArgument)
	}

	var out models.Quiz
	if err := q.getJSON(ctx, q.path(url.PathEscape(id)), &out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &out, nil
}

func (q *QuizClient) Create(ctx context.Context, in models.QuizInput) (*models.Quiz, error) {
	const op = "clients.QuizClient.Create"

	if err := validateQuizInput(in); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	resp, err := q.gw.Post(ctx, q.prefix+"/", in, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var out models.Quiz
	if err := decode(resp, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &out, nil
}

func (q *QuizClient) Update(ctx context.Context, id string, in models.QuizInput) (*models.Quiz, error) {
	const op = "clients.QuizClient.Update"

	if id == "" {
		return nil, fmt.Errorf("%s: %w: empty quiz id", op, ErrInvalidArgument)
	}

	resp, err := q.gw.Put(ctx, q.path(url.PathEscape(id)), in, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var out models.Quiz
	if err := decode(resp, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &out, nil
}

func (q *QuizClient) Delete(ctx context.Context, id string) error {
	const op = "clients.QuizClient.Delete"

	if id == "" {
		return fmt.Errorf("%s: %w: empty quiz id", op, ErrInvalidArgument)
	}

	resp, err := q.gw.Delete(ctx, q.path(url.PathEscape(id)), nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := decode(resp, nil); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// CalculateResult отправляет ответы на подсчёт; сам подсчёт — на стороне API.
func (q *QuizClient) CalculateResult(ctx context.Context, id string, result models.QuizResult) (*models.QuizResultResponse, error) {
	const op = "clients.QuizClient.CalculateResult"

	if id == "" {
		return nil, fmt.Errorf("%s: %w: empty quiz id", op, ErrInvalidArgument)
	}
	if result.QuizID == "" {
		result.QuizID = id
	}
	for i := range result.Answers {
		if result.Answers[i].Answers == nil {
			result.Answers[i].Answers = []string{}
		}
	}

	resp, err := q.gw.Post(ctx, q.path(url.PathEscape(id), "calculate-result"), result, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var out models.QuizResultResponse
	if err := decode(resp, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &out, nil
}

func (q *QuizClient) GenerateWithAI(ctx context.Context, req models.QuizGenerationRequest) (*models.Quiz, error) {
	const op = "clients.QuizClient.GenerateWithAI"

	if strings.TrimSpace(req.Topic) == "" {
		return nil, fmt.Errorf("%s: %w: empty topic", op, ErrInvalidArgument)
	}

	resp, err := q.gw.Post(ctx, q.path("generate-with-ai"), req, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var out models.Quiz
	if err := decode(resp, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &out, nil
}

// Tags — GET /tags/?search&limit; limit <= 0 — значение сервера по умолчанию.
func (q *QuizClient) Tags(ctx context.Context, search string, limit int) ([]models.Tag, error) {
	const op = "clients.QuizClient.Tags"

	v := url.Values{}
	if search != "" {
		v.Set("search", search)
	}
	if limit > 0 {
		v.Set("limit", strconv.Itoa(limit))
	}

	path := q.path("tags") + "/"
	if len(v) > 0 {
		path += "?" + v.Encode()
	}

	var out []models.Tag
	if err := q.getJSON(ctx, path, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

func (q *QuizClient) UserQuizzes(ctx context.Context, userID string, page, size int) (*models.QuizPage, error) {
	const op = "clients.QuizClient.UserQuizzes"

	if userID == "" {
		return nil, fmt.Errorf("%s: %w: empty user id", op, ErrInvalidArgument)
	}

	v := url.Values{}
	if page > 0 {
		v.Set("page", strconv.Itoa(page))
	}
	if size > 0 {
		v.Set("size", strconv.Itoa(size))
	}

	path := q.path("user", url.PathEscape(userID))
	if len(v) > 0 {
		path += "?" + v.Encode()
	}

	var out models.QuizPage
	if err := q.getJSON(ctx, path, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &out, nil
}

func (q *QuizClient) UserQuizCount(ctx context.Context, userID string) (*models.QuizCountResponse, error) {
	const op = "clients.QuizClient.UserQuizCount"

	if userID == "" {
		return nil, fmt.Errorf("%s: %w: empty user id", op, ErrInvalidArgument)
	}

	var out models.QuizCountResponse
	if err := q.getJSON(ctx, q.path("user", url.PathEscape(userID), "count"), &out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &out, nil
}

func (q *QuizClient) getJSON(ctx context.Context, path string, out any) error {
	resp, err := q.gw.Get(ctx, path, nil)
	if err != nil {
		return err
	}

	return decode(resp, out)
}

// validateQuizInput — минимальная локальная проверка перед отправкой.
// Детальная валидация остаётся за API.
func validateQuizInput(in models.QuizInput) error {
	if strings.TrimSpace(in.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidArgument)
	}
	if len(in.Questions) == 0 {
		return fmt.Errorf("%w: at least one question is required", ErrInvalidArgument)
	}
	for i, qu := range in.Questions {
		if !qu.QuestionType.Valid() {
			return fmt.Errorf("%w: question %d: unknown type %q", ErrInvalidArgument, i+1, qu.QuestionType)
		}
		if strings.TrimSpace(qu.QuestionText) == "" {
			return fmt.Errorf("%w: question %d: empty text", ErrInvalidArgument, i+1)
		}
	}

	return nil
}
