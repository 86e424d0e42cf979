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

// LeaderboardClient — эндпоинты рейтинга (префикс по умолчанию /api/leaderboard).
type LeaderboardClient struct {
	gw     *gateway.Gateway
	prefix string
}

func NewLeaderboardClient(gw *gateway.Gateway, prefix string) *LeaderboardClient {
	return &LeaderboardClient{gw: gw, prefix: strings.TrimRight(prefix, "/")}
}

func (l *LeaderboardClient) userPath(userID string, rest ...string) string {
	p := l.prefix + "/user/" + url.PathEscape(userID)
	for _, r := range rest {
		p += "/" + r
	}
	return p
}

// Top — топ-N пользователей и позиция текущего пользователя.
func (l *LeaderboardClient) Top(ctx context.Context, top int) (*models.LeaderboardResponse, error) {
	const op = "clients.LeaderboardClient.Top"

	path := l.prefix + "/"
	if top > 0 {
		path += "?top=" + strconv.Itoa(top)
	}

	resp, err := l.gw.Get(ctx, path, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var out models.LeaderboardResponse
	if err := decode(resp, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &out, nil
}

func (l *LeaderboardClient) UserScore(ctx context.Context, userID string) (*models.UserScore, error) {
	const op = "clients.LeaderboardClient.UserScore"

	if userID == "" {
		return nil, fmt.Errorf("%s: %w: empty user id", op, ErrInvalidArgument)
	}

	resp, err := l.gw.Get(ctx, l.userPath(userID, "score"), nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var out models.UserScore
	if err := decode(resp, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &out, nil
}

// Around — соседи пользователя в рейтинге: rangeSize с каждой стороны.
func (l *LeaderboardClient) Around(ctx context.Context, userID string, rangeSize int) ([]models.LeaderboardEntry, error) {
	const op = "clients.LeaderboardClient.Around"

	if userID == "" {
		return nil, fmt.Errorf("%s: %w: empty user id", op, ErrInvalidArgument)
	}

	path := l.userPath(userID, "around")
	if rangeSize > 0 {
		path += "?range_size=" + strconv.Itoa(rangeSize)
	}

	resp, err := l.gw.Get(ctx, path, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var out []models.LeaderboardEntry
	if err := decode(resp, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

// UpdateScore — выставить баллы пользователя (API разрешает только свои).
func (l *LeaderboardClient) UpdateScore(ctx context.Context, userID string, score int, data *models.UserData) error {
	const op = "clients.LeaderboardClient.UpdateScore"

	if userID == "" {
		return fmt.Errorf("%s: %w: empty user id", op, ErrInvalidArgument)
	}

	resp, err := l.gw.Post(ctx, l.userPath(userID, "score"), models.UserScoreUpdate{Score: score, UserData: data}, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := decode(resp, nil); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (l *LeaderboardClient) Remove(ctx context.Context, userID string) error {
	const op = "clients.LeaderboardClient.Remove"

	if userID == "" {
		return fmt.Errorf("%s: %w: empty user id", op, ErrInvalidArgument)
	}

	resp, err := l.gw.Delete(ctx, l.userPath(userID), nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := decode(resp, nil); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
