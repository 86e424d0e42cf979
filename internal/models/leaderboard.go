package models

type UserData struct {
	Email string `json:"email,omitempty" yaml:"email,omitempty"`
	Name  string `json:"name,omitempty" yaml:"name,omitempty"`
}

type LeaderboardEntry struct {
	UserID        string    `json:"user_id" yaml:"user_id"`
	Score         int       `json:"score" yaml:"score"`
	Rank          int       `json:"rank" yaml:"rank"`
	UserData      *UserData `json:"user_data,omitempty" yaml:"user_data,omitempty"`
	IsCurrentUser bool      `json:"is_current_user,omitempty" yaml:"is_current_user,omitempty"`
}

type LeaderboardResponse struct {
	Entries          []LeaderboardEntry `json:"entries" yaml:"entries"`
	TotalUsers       int                `json:"total_users" yaml:"total_users"`
	CurrentUserRank  *int               `json:"current_user_rank" yaml:"current_user_rank"`
	CurrentUserScore *int               `json:"current_user_score" yaml:"current_user_score"`
}

type UserScore struct {
	UserID string `json:"user_id" yaml:"user_id"`
	Score  int    `json:"score" yaml:"score"`
	Rank   *int   `json:"rank" yaml:"rank"`
}

type UserScoreUpdate struct {
	Score    int       `json:"score" yaml:"score"`
	UserData *UserData `json:"user_data,omitempty" yaml:"user_data,omitempty"`
}
