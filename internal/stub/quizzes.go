package stub

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pribylovaa/go-quiz-client/internal/models"
)

var (
	ErrQuizNotFound = errors.New("quiz not found")
	ErrNotOwner     = errors.New("not the quiz owner")
	ErrInvalidQuiz  = errors.New("invalid quiz")
)

// Значения по умолчанию и пределы пагинации и поиска тегов.
const (
	defaultPageSize = 10
	maxPageSize     = 50
	defaultTagLimit = 50
)

// SearchFilter — нормализованные параметры поиска квизов.
type SearchFilter struct {
	Query         string
	Tags          []string
	UserID        string
	ExcludeUserID string
	IsAIGenerated *bool
	SortBy        string
	SortOrder     string
	Page          int
	Size          int
}

// Quizzes — in-memory хранилище квизов и тегов.
type Quizzes struct {
	mu      sync.RWMutex
	quizzes map[string]*models.Quiz
	tags    map[string]models.Tag // name -> tag
	now     func() time.Time
}

func NewQuizzes() *Quizzes {
	return &Quizzes{
		quizzes: make(map[string]*models.Quiz),
		tags:    make(map[string]models.Tag),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// ValidateQuizInput — ограничения на поля квиза.
func ValidateQuizInput(in models.QuizInput) error {
	title := strings.TrimSpace(in.Title)
	if title == "" || len([]rune(title)) > 200 {
		return fmt.Errorf("%w: title must be 1..200 characters", ErrInvalidQuiz)
	}
	if len([]rune(in.Description)) > 1000 {
		return fmt.Errorf("%w: description must be at most 1000 characters", ErrInvalidQuiz)
	}
	if len(in.Questions) == 0 {
		return fmt.Errorf("%w: at least one question is required", ErrInvalidQuiz)
	}

	for i, q := range in.Questions {
		if !q.QuestionType.Valid() {
			return fmt.Errorf("%w: question %d: unknown type %q", ErrInvalidQuiz, i+1, q.QuestionType)
		}
		if n := len([]rune(strings.TrimSpace(q.QuestionText))); n == 0 || n > 1000 {
			return fmt.Errorf("%w: question %d: text must be 1..1000 characters", ErrInvalidQuiz, i+1)
		}
		if q.Points < 0 || q.Points > 100 {
			return fmt.Errorf("%w: question %d: points must be 1..100", ErrInvalidQuiz, i+1)
		}
		for j, a := range q.Answers {
			if n := len([]rune(a.AnswerText)); n == 0 || n > 500 {
				return fmt.Errorf("%w: question %d answer %d: text must be 1..500 characters", ErrInvalidQuiz, i+1, j+1)
			}
		}
	}

	for _, t := range in.Tags {
		if n := len([]rune(strings.TrimSpace(t))); n == 0 || n > 50 {
			return fmt.Errorf("%w: tag must be 1..50 characters", ErrInvalidQuiz)
		}
	}

	return nil
}

// Create сохраняет квиз пользователя ownerID.
func (s *Quizzes) Create(ownerID string, in models.QuizInput) (models.Quiz, error) {
	const op = "stub.Quizzes.Create"

	if err := ValidateQuizInput(in); err != nil {
		return models.Quiz{}, fmt.Errorf("%s: %w", op, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	q := &models.Quiz{
		ID:            uuid.NewString(),
		Title:         strings.TrimSpace(in.Title),
		Description:   in.Description,
		IsAIGenerated: in.IsAIGenerated,
		UserID:        ownerID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	q.Tags = s.tagsLocked(in.Tags, now)
	q.Questions = buildQuestions(q.ID, in.Questions, now)

	s.quizzes[q.ID] = q

	return cloneQuiz(q), nil
}

func (s *Quizzes) Get(id string) (models.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q, ok := s.quizzes[id]
	if !ok {
		return models.Quiz{}, ErrQuizNotFound
	}

	return cloneQuiz(q), nil
}

// Update меняет квиз владельца. Пустые title/description и nil-списки
// tags/questions оставляют прежние значения.
func (s *Quizzes) Update(ownerID, id string, in models.QuizInput) (models.Quiz, error) {
	const op = "stub.Quizzes.Update"

	s.mu.Lock()
	defer s.mu.Unlock()

	q, ok := s.quizzes[id]
	if !ok {
		return models.Quiz{}, fmt.Errorf("%s: %w", op, ErrQuizNotFound)
	}
	if q.UserID != ownerID {
		return models.Quiz{}, fmt.Errorf("%s: %w", op, ErrNotOwner)
	}

	merged := models.QuizInput{
		Title:         in.Title,
		Description:   in.Description,
		IsAIGenerated: in.IsAIGenerated,
		Tags:          in.Tags,
		Questions:     in.Questions,
	}
	if strings.TrimSpace(merged.Title) == "" {
		merged.Title = q.Title
	}
	if merged.Description == "" {
		merged.Description = q.Description
	}
	if merged.Questions == nil {
		// для валидации достаточно непустого списка; вопросы не пересоздаются.
		merged.Questions = questionInputs(q.Questions)
	}
	if err := ValidateQuizInput(merged); err != nil {
		return models.Quiz{}, fmt.Errorf("%s: %w", op, err)
	}

	now := s.now()
	q.Title = strings.TrimSpace(merged.Title)
	q.Description = merged.Description
	q.IsAIGenerated = merged.IsAIGenerated
	if in.Tags != nil {
		q.Tags = s.tagsLocked(in.Tags, now)
	}
	if in.Questions != nil {
		q.Questions = buildQuestions(q.ID, in.Questions, now)
	}
	q.UpdatedAt = now

	return cloneQuiz(q), nil
}

func (s *Quizzes) Delete(ownerID, id string) error {
	const op = "stub.Quizzes.Delete"

	s.mu.Lock()
	defer s.mu.Unlock()

	q, ok := s.quizzes[id]
	if !ok {
		return fmt.Errorf("%s: %w", op, ErrQuizNotFound)
	}
	if q.UserID != ownerID {
		return fmt.Errorf("%s: %w", op, ErrNotOwner)
	}

	delete(s.quizzes, id)
	return nil
}

// Search фильтрует, сортирует и режет на страницы.
func (s *Quizzes) Search(f SearchFilter) models.QuizPage {
	f = normalizeFilter(f)
	needle := strings.ToLower(f.Query)

	s.mu.RLock()
	matched := make([]*models.Quiz, 0, len(s.quizzes))
	for _, q := range s.quizzes {
		if needle != "" &&
			!strings.Contains(strings.ToLower(q.Title), needle) &&
			!strings.Contains(strings.ToLower(q.Description), needle) {
			continue
		}
		if f.UserID != "" && q.UserID != f.UserID {
			continue
		}
		if f.ExcludeUserID != "" && q.UserID == f.ExcludeUserID {
			continue
		}
		if f.IsAIGenerated != nil && q.IsAIGenerated != *f.IsAIGenerated {
			continue
		}
		if !hasAllTags(q, f.Tags) {
			continue
		}
		matched = append(matched, q)
	}
	s.mu.RUnlock()

	sortQuizzes(matched, f.SortBy, f.SortOrder)

	return paginate(matched, f.Page, f.Size)
}

// ByUser — квизы пользователя постранично.
func (s *Quizzes) ByUser(userID string, page, size int) models.QuizPage {
	return s.Search(SearchFilter{UserID: userID, Page: page, Size: size})
}

func (s *Quizzes) CountByUser(userID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, q := range s.quizzes {
		if q.UserID == userID {
			n++
		}
	}

	return n
}

// Tags — теги по подстроке имени (без учёта регистра), по алфавиту.
func (s *Quizzes) Tags(search string, limit int) []models.Tag {
	if limit <= 0 {
		limit = defaultTagLimit
	}
	needle := strings.ToLower(search)

	s.mu.RLock()
	out := make([]models.Tag, 0, len(s.tags))
	for _, t := range s.tags {
		if needle == "" || strings.Contains(strings.ToLower(t.Name), needle) {
			out = append(out, t)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	if len(out) > limit {
		out = out[:limit]
	}

	return out
}

// Score подсчитывает результат прохождения квиза.
//
// Вопросы с выбором засчитываются при точном совпадении множества выбранных
// ответов с множеством правильных. Текстовый ответ засчитывается, если он
// (без учёта регистра) содержит правильный ответ или содержится в нём; при
// отсутствии правильных ответов засчитывается любой непустой текст.
func Score(q models.Quiz, result models.QuizResult) models.QuizResultResponse {
	byQuestion := make(map[string]models.QuizAnswer, len(result.Answers))
	for _, a := range result.Answers {
		if _, dup := byQuestion[a.QuestionID]; !dup {
			byQuestion[a.QuestionID] = a
		}
	}

	var correct, totalPoints, earned int
	for _, question := range q.Questions {
		totalPoints += question.Points

		ans, ok := byQuestion[question.ID]
		if !ok {
			continue
		}

		var hit bool
		if question.QuestionType == models.QuestionLongAnswer {
			hit = textAnswerCorrect(question, ans.TextAnswer)
		} else {
			hit = choiceAnswerCorrect(question, ans.Answers)
		}

		if hit {
			correct++
			earned += question.Points
		}
	}

	score := 0
	if n := len(q.Questions); n > 0 {
		score = int(math.Round(float64(correct) / float64(n) * 100))
	}

	answers := result.Answers
	if answers == nil {
		answers = []models.QuizAnswer{}
	}

	return models.QuizResultResponse{
		Score:          score,
		TotalQuestions: len(q.Questions),
		CorrectAnswers: correct,
		TotalPoints:    totalPoints,
		EarnedPoints:   earned,
		Answers:        answers,
		Details:        []map[string]any{},
	}
}

func textAnswerCorrect(q models.Question, text *string) bool {
	if text == nil {
		return false
	}
	given := strings.ToLower(strings.TrimSpace(*text))
	if given == "" {
		return false
	}

	var hasCorrect bool
	for _, a := range q.Answers {
		if !a.IsCorrect {
			continue
		}
		hasCorrect = true

		want := strings.ToLower(strings.TrimSpace(a.AnswerText))
		if strings.Contains(given, want) || strings.Contains(want, given) {
			return true
		}
	}

	return !hasCorrect
}

func choiceAnswerCorrect(q models.Question, chosen []string) bool {
	if len(chosen) == 0 {
		return false
	}

	want := make(map[string]struct{})
	for _, a := range q.Answers {
		if a.IsCorrect {
			want[a.ID] = struct{}{}
		}
	}

	got := make(map[string]struct{}, len(chosen))
	for _, id := range chosen {
		got[id] = struct{}{}
	}

	if len(got) != len(want) {
		return false
	}
	for id := range got {
		if _, ok := want[id]; !ok {
			return false
		}
	}

	return true
}

func (s *Quizzes) tagsLocked(names []string, now time.Time) []models.Tag {
	out := make([]models.Tag, 0, len(names))
	seen := make(map[string]struct{}, len(names))

	for _, raw := range names {
		name := strings.TrimSpace(raw)
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}

		t, ok := s.tags[name]
		if !ok {
			t = models.Tag{ID: uuid.NewString(), Name: name, CreatedAt: now, UpdatedAt: now}
			s.tags[name] = t
		}
		out = append(out, t)
	}

	return out
}

func buildQuestions(quizID string, in []models.QuestionInput, now time.Time) []models.Question {
	out := make([]models.Question, 0, len(in))
	for _, qi := range in {
		points := qi.Points
		if points == 0 {
			points = 1
		}

		answers := make([]models.Answer, 0, len(qi.Answers))
		for _, a := range qi.Answers {
			answers = append(answers, models.Answer{ID: uuid.NewString(), AnswerText: a.AnswerText, IsCorrect: a.IsCorrect})
		}

		out = append(out, models.Question{
			ID:           uuid.NewString(),
			QuizID:       quizID,
			QuestionType: qi.QuestionType,
			QuestionText: qi.QuestionText,
			Points:       points,
			Answers:      answers,
			CreatedAt:    now,
			UpdatedAt:    now,
		})
	}

	return out
}

func questionInputs(qs []models.Question) []models.QuestionInput {
	out := make([]models.QuestionInput, 0, len(qs))
	for _, q := range qs {
		in := models.QuestionInput{QuestionType: q.QuestionType, QuestionText: q.QuestionText, Points: q.Points}
		for _, a := range q.Answers {
			in.Answers = append(in.Answers, models.AnswerInput{AnswerText: a.AnswerText, IsCorrect: a.IsCorrect})
		}
		out = append(out, in)
	}

	return out
}

func hasAllTags(q *models.Quiz, tags []string) bool {
	for _, want := range tags {
		found := false
		for _, t := range q.Tags {
			if t.Name == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	return true
}

func normalizeFilter(f SearchFilter) SearchFilter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Size < 1 {
		f.Size = defaultPageSize
	}
	if f.Size > maxPageSize {
		f.Size = maxPageSize
	}
	switch f.SortBy {
	case "title", "updated_at", "created_at":
	default:
		f.SortBy = "created_at"
	}
	if f.SortOrder != "asc" {
		f.SortOrder = "desc"
	}

	return f
}

func sortQuizzes(qs []*models.Quiz, by, order string) {
	// при равенстве ключа порядок задаёт ID: выдача стабильна между страницами.
	less := func(a, b *models.Quiz) bool {
		switch by {
		case "title":
			if a.Title != b.Title {
				return a.Title < b.Title
			}
		case "updated_at":
			if !a.UpdatedAt.Equal(b.UpdatedAt) {
				return a.UpdatedAt.Before(b.UpdatedAt)
			}
		default:
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.Before(b.CreatedAt)
			}
		}
		return a.ID < b.ID
	}

	sort.Slice(qs, func(i, j int) bool {
		if order == "asc" {
			return less(qs[i], qs[j])
		}
		return less(qs[j], qs[i])
	})
}

func paginate(qs []*models.Quiz, page, size int) models.QuizPage {
	total := len(qs)
	offset := (page - 1) * size

	items := make([]models.Quiz, 0, size)
	for i := offset; i < total && i < offset+size; i++ {
		items = append(items, cloneQuiz(qs[i]))
	}

	totalPages := (total + size - 1) / size

	return models.QuizPage{
		Items:   items,
		Total:   total,
		Limit:   size,
		Offset:  offset,
		HasNext: page < totalPages,
		HasPrev: page > 1,
	}
}

func cloneQuiz(q *models.Quiz) models.Quiz {
	out := *q
	out.Tags = append([]models.Tag{}, q.Tags...)
	out.Questions = make([]models.Question, len(q.Questions))
	for i, qu := range q.Questions {
		qu.Answers = append([]models.Answer{}, qu.Answers...)
		out.Questions[i] = qu
	}

	return out
}
