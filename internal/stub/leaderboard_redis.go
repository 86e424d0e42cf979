package stub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/pribylovaa/go-quiz-client/internal/models"
)

// Ключи Redis: ZSET баллов и HASH с данными пользователей.
const (
	leaderboardKey = "quiz_leaderboard"
	userDataKey    = "user_data"
)

// RedisBoard — Board поверх Redis ZSET + HASH.
type RedisBoard struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisBoard создаёт клиент из URL и проверяет соединение (fail-fast).
// prefix добавляется к обоим ключам; пустой — ключи без префикса.
func NewRedisBoard(ctx context.Context, redisURL, prefix string) (*RedisBoard, error) {
	const op = "stub.NewRedisBoard"

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &RedisBoard{rdb: rdb, prefix: prefix}, nil
}

func (b *RedisBoard) zkey() string { return b.prefix + leaderboardKey }
func (b *RedisBoard) hkey() string { return b.prefix + userDataKey }

func (b *RedisBoard) SetScore(ctx context.Context, userID string, score int, data *models.UserData) error {
	const op = "stub.RedisBoard.SetScore"

	var raw []byte
	if data != nil {
		var err error
		if raw, err = json.Marshal(data); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	_, err := b.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.ZAdd(ctx, b.zkey(), redis.Z{Score: float64(score), Member: userID})
		if raw != nil {
			p.HSet(ctx, b.hkey(), userID, raw)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (b *RedisBoard) Rank(ctx context.Context, userID string) (int, int, error) {
	const op = "stub.RedisBoard.Rank"

	score, err := b.rdb.ZScore(ctx, b.zkey(), userID).Result()
	if errors.Is(err, redis.Nil) {
		return 0, 0, ErrNotRanked
	}
	if err != nil {
		return 0, 0, fmt.Errorf("%s: %w", op, err)
	}

	rank, err := b.rdb.ZRevRank(ctx, b.zkey(), userID).Result()
	if errors.Is(err, redis.Nil) {
		return 0, 0, ErrNotRanked
	}
	if err != nil {
		return 0, 0, fmt.Errorf("%s: %w", op, err)
	}

	return int(score), int(rank) + 1, nil
}

func (b *RedisBoard) Top(ctx context.Context, n int) ([]models.LeaderboardEntry, error) {
	const op = "stub.RedisBoard.Top"

	if n <= 0 {
		return []models.LeaderboardEntry{}, nil
	}

	out, err := b.rangeEntries(ctx, 0, int64(n-1), "")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

func (b *RedisBoard) Around(ctx context.Context, userID string, rangeSize int) ([]models.LeaderboardEntry, error) {
	const op = "stub.RedisBoard.Around"

	rank, err := b.rdb.ZRevRank(ctx, b.zkey(), userID).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotRanked
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	start := max(0, rank-int64(rangeSize))
	out, err := b.rangeEntries(ctx, start, rank+int64(rangeSize), userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

func (b *RedisBoard) rangeEntries(ctx context.Context, start, stop int64, current string) ([]models.LeaderboardEntry, error) {
	zs, err := b.rdb.ZRevRangeWithScores(ctx, b.zkey(), start, stop).Result()
	if err != nil {
		return nil, err
	}
	if len(zs) == 0 {
		return []models.LeaderboardEntry{}, nil
	}

	ids := make([]string, len(zs))
	for i, z := range zs {
		ids[i], _ = z.Member.(string)
	}

	raw, err := b.rdb.HMGet(ctx, b.hkey(), ids...).Result()
	if err != nil {
		return nil, err
	}

	ms := make([]memberScore, len(zs))
	for i, z := range zs {
		ms[i] = memberScore{userID: ids[i], score: int(z.Score)}
		if s, ok := raw[i].(string); ok {
			var d models.UserData
			// повреждённые данные пользователя не ломают рейтинг.
			if json.Unmarshal([]byte(s), &d) == nil {
				ms[i].data = &d
			}
		}
	}

	return entries(ms, int(start), current), nil
}

func (b *RedisBoard) Total(ctx context.Context) (int, error) {
	n, err := b.rdb.ZCard(ctx, b.zkey()).Result()
	if err != nil {
		return 0, fmt.Errorf("stub.RedisBoard.Total: %w", err)
	}

	return int(n), nil
}

func (b *RedisBoard) Remove(ctx context.Context, userID string) error {
	const op = "stub.RedisBoard.Remove"

	var removed *redis.IntCmd
	_, err := b.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		removed = p.ZRem(ctx, b.zkey(), userID)
		p.HDel(ctx, b.hkey(), userID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if removed.Val() == 0 {
		return ErrNotRanked
	}

	return nil
}

func (b *RedisBoard) Clear(ctx context.Context) error {
	if err := b.rdb.Del(ctx, b.zkey(), b.hkey()).Err(); err != nil {
		return fmt.Errorf("stub.RedisBoard.Clear: %w", err)
	}

	return nil
}

func (b *RedisBoard) Close() error { return b.rdb.Close() }
