package stub

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/pribylovaa/go-quiz-client/internal/models"
)

// ErrNotRanked — пользователя нет в рейтинге.
var ErrNotRanked = errors.New("user not found in leaderboard")

// Board — рейтинг пользователей. Ранги 1-based; порядок — по убыванию баллов,
// при равенстве — по убыванию ID пользователя (как ZREVRANGE в Redis).
type Board interface {
	SetScore(ctx context.Context, userID string, score int, data *models.UserData) error
	// Rank возвращает баллы и ранг; ErrNotRanked, если пользователя нет.
	Rank(ctx context.Context, userID string) (score, rank int, err error)
	Top(ctx context.Context, n int) ([]models.LeaderboardEntry, error)
	// Around — до rangeSize соседей с каждой стороны; ErrNotRanked, если пользователя нет.
	Around(ctx context.Context, userID string, rangeSize int) ([]models.LeaderboardEntry, error)
	Total(ctx context.Context) (int, error)
	// Remove — ErrNotRanked, если удалять нечего.
	Remove(ctx context.Context, userID string) error
	Clear(ctx context.Context) error
	Close() error
}

type memberScore struct {
	userID string
	score  int
	data   *models.UserData
}

// MemoryBoard — Board в памяти процесса.
type MemoryBoard struct {
	mu      sync.RWMutex
	members map[string]memberScore
}

func NewMemoryBoard() *MemoryBoard {
	return &MemoryBoard{members: make(map[string]memberScore)}
}

func (b *MemoryBoard) SetScore(_ context.Context, userID string, score int, data *models.UserData) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	m := memberScore{userID: userID, score: score, data: b.members[userID].data}
	if data != nil {
		d := *data
		m.data = &d
	}
	b.members[userID] = m

	return nil
}

// ordered — участники в порядке рейтинга; вызывается под RLock.
func (b *MemoryBoard) ordered() []memberScore {
	out := make([]memberScore, 0, len(b.members))
	for _, m := range b.members {
		out = append(out, m)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].score != out[j].score {
			return out[i].score > out[j].score
		}
		return out[i].userID > out[j].userID
	})

	return out
}

func (b *MemoryBoard) Rank(_ context.Context, userID string) (int, int, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if _, ok := b.members[userID]; !ok {
		return 0, 0, ErrNotRanked
	}

	for i, m := range b.ordered() {
		if m.userID == userID {
			return m.score, i + 1, nil
		}
	}

	return 0, 0, ErrNotRanked
}

func (b *MemoryBoard) Top(_ context.Context, n int) ([]models.LeaderboardEntry, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	ordered := b.ordered()
	if n < len(ordered) {
		ordered = ordered[:n]
	}

	return entries(ordered, 0, ""), nil
}

func (b *MemoryBoard) Around(_ context.Context, userID string, rangeSize int) ([]models.LeaderboardEntry, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	ordered := b.ordered()
	idx := -1
	for i, m := range ordered {
		if m.userID == userID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, ErrNotRanked
	}

	start := max(0, idx-rangeSize)
	end := min(len(ordered), idx+rangeSize+1)

	return entries(ordered[start:end], start, userID), nil
}

func (b *MemoryBoard) Total(context.Context) (int, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return len(b.members), nil
}

func (b *MemoryBoard) Remove(_ context.Context, userID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.members[userID]; !ok {
		return ErrNotRanked
	}
	delete(b.members, userID)

	return nil
}

func (b *MemoryBoard) Clear(context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.members = make(map[string]memberScore)
	return nil
}

func (b *MemoryBoard) Close() error { return nil }

// entries переводит участников в записи рейтинга начиная с ранга offset+1.
func entries(ms []memberScore, offset int, current string) []models.LeaderboardEntry {
	out := make([]models.LeaderboardEntry, 0, len(ms))
	for i, m := range ms {
		e := models.LeaderboardEntry{
			UserID:        m.userID,
			Score:         m.score,
			Rank:          offset + i + 1,
			IsCurrentUser: current != "" && m.userID == current,
		}
		if m.data != nil {
			d := *m.data
			e.UserData = &d
		}
		out = append(out, e)
	}

	return out
}
