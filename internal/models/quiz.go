package models

import "time"

type QuestionType string

const (
	QuestionMultipleChoice QuestionType = "multiple_choice"
	QuestionSingleChoice   QuestionType = "single_choice"
	QuestionLongAnswer     QuestionType = "long_answer"
)

// Valid — тип вопроса из известного набора.
func (t QuestionType) Valid() bool {
	switch t {
	case QuestionMultipleChoice, QuestionSingleChoice, QuestionLongAnswer:
		return true
	}
	return false
}

type Tag struct {
	ID        string    `json:"id" yaml:"id"`
	Name      string    `json:"name" yaml:"name"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

type Answer struct {
	ID         string `json:"id" yaml:"id"`
	AnswerText string `json:"answer_text" yaml:"answer_text"`
	IsCorrect  bool   `json:"is_correct" yaml:"is_correct"`
}

type Question struct {
	ID           string       `json:"id" yaml:"id"`
	QuizID       string       `json:"quiz_id" yaml:"quiz_id"`
	QuestionType QuestionType `json:"question_type" yaml:"question_type"`
	QuestionText string       `json:"question_text" yaml:"question_text"`
	Points       int          `json:"points" yaml:"points"`
	Answers      []Answer     `json:"answers" yaml:"answers"`
	CreatedAt    time.Time    `json:"created_at" yaml:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at" yaml:"updated_at"`
}

type Quiz struct {
	ID            string     `json:"id" yaml:"id"`
	Title         string     `json:"title" yaml:"title"`
	Description   string     `json:"description" yaml:"description"`
	IsAIGenerated bool       `json:"is_ai_generated" yaml:"is_ai_generated"`
	UserID        string     `json:"user_id" yaml:"user_id"`
	CreatedAt     time.Time  `json:"created_at" yaml:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" yaml:"updated_at"`
	Tags          []Tag      `json:"tags" yaml:"tags"`
	Questions     []Question `json:"questions" yaml:"questions"`
}

// AnswerInput / QuestionInput / QuizInput — тела create/update.
// Формат совпадает с YAML-файлами квизов, которые принимает quizctl.
type AnswerInput struct {
	AnswerText string `json:"answer_text" yaml:"answer_text"`
	IsCorrect  bool   `json:"is_correct" yaml:"is_correct"`
}

type QuestionInput struct {
	QuestionType QuestionType  `json:"question_type" yaml:"question_type"`
	QuestionText string        `json:"question_text" yaml:"question_text"`
	Points       int           `json:"points" yaml:"points"`
	Answers      []AnswerInput `json:"answers" yaml:"answers"`
}

type QuizInput struct {
	Title         string          `json:"title" yaml:"title"`
	Description   string          `json:"description" yaml:"description"`
	IsAIGenerated bool            `json:"is_ai_generated" yaml:"is_ai_generated"`
	Tags          []string        `json:"tags" yaml:"tags"`
	Questions     []QuestionInput `json:"questions" yaml:"questions"`
}

// QuizPage — постраничный ответ search и user/{id}.
type QuizPage struct {
	Items   []Quiz `json:"items" yaml:"items"`
	Total   int    `json:"total" yaml:"total"`
	Limit   int    `json:"limit" yaml:"limit"`
	Offset  int    `json:"offset" yaml:"offset"`
	HasNext bool   `json:"has_next" yaml:"has_next"`
	HasPrev bool   `json:"has_prev" yaml:"has_prev"`
}

// QuizSearchParams — фильтры /search/. Нулевые значения не попадают в query.
type QuizSearchParams struct {
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

type QuizAnswer struct {
	QuestionID string   `json:"question_id" yaml:"question_id"`
	Answers    []string `json:"answers" yaml:"answers"`
	TextAnswer *string  `json:"text_answer,omitempty" yaml:"text_answer,omitempty"`
}

// QuizResult — ответы пользователя, отправляемые на подсчёт.
type QuizResult struct {
	QuizID  string       `json:"quiz_id" yaml:"quiz_id"`
	Answers []QuizAnswer `json:"answers" yaml:"answers"`
}

type QuizResultResponse struct {
	Score          int              `json:"score" yaml:"score"`
	TotalQuestions int              `json:"total_questions" yaml:"total_questions"`
	CorrectAnswers int              `json:"correct_answers" yaml:"correct_answers"`
	TotalPoints    int              `json:"total_points" yaml:"total_points"`
	EarnedPoints   int              `json:"earned_points" yaml:"earned_points"`
	Answers        []QuizAnswer     `json:"answers" yaml:"answers"`
	Details        []map[string]any `json:"details" yaml:"details"`
}

// QuizGenerationRequest — параметры AI-генерации.
type QuizGenerationRequest struct {
	Topic         string         `json:"topic" yaml:"topic"`
	Difficulty    string         `json:"difficulty" yaml:"difficulty"`
	QuestionCount int            `json:"question_count" yaml:"question_count"`
	QuestionTypes []QuestionType `json:"question_types" yaml:"question_types"`
	Language      string         `json:"language" yaml:"language"`
}

type QuizCountResponse struct {
	UserID    string `json:"user_id" yaml:"user_id"`
	QuizCount int    `json:"quiz_count" yaml:"quiz_count"`
	Status    string `json:"status" yaml:"status"`
}
