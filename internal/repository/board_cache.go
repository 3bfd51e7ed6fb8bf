package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/DanielFbr1/Dashboard-Docente-y-Feedback-sub000/internal/lifecycle"
)

// BoardCache keeps board projections in Redis as JSON, guarded by a per-team generation
// counter that Invalidate bumps.
type BoardCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewBoardCache(rdb *redis.Client, ttl time.Duration) *BoardCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &BoardCache{rdb: rdb, ttl: ttl}
}

func boardKey(teamID string) string {
	return "board:" + teamID
}

func generationKey(teamID string) string {
	return "board:gen:" + teamID
}

func (c *BoardCache) GetBoard(ctx context.Context, teamID string) (*lifecycle.Board, bool, error) {
	raw, err := c.rdb.Get(ctx, boardKey(teamID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var board lifecycle.Board
	if err := json.Unmarshal(raw, &board); err != nil {
		// A stale layout is treated as a miss and dropped by the next Invalidate.
		return nil, false, nil
	}
	return &board, true, nil
}

// Generation returns the team's invalidation counter; zero when it was never bumped.
func (c *BoardCache) Generation(ctx context.Context, teamID string) (int64, error) {
	return readGeneration(ctx, c.rdb, teamID)
}

func readGeneration(ctx context.Context, cmd redis.Cmdable, teamID string) (int64, error) {
	gen, err := cmd.Get(ctx, generationKey(teamID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

// SetBoard stores board only if the generation still equals gen and no entry exists. The
// check and the write run under WATCH on the generation key, so an Invalidate landing in
// between aborts the write.
func (c *BoardCache) SetBoard(ctx context.Context, board *lifecycle.Board, gen int64) error {
	raw, err := json.Marshal(board)
	if err != nil {
		return err
	}

	err = c.rdb.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := readGeneration(ctx, tx, board.TeamID)
		if err != nil {
			return err
		}
		if cur != gen {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.SetNX(ctx, boardKey(board.TeamID), raw, c.ttl)
			return nil
		})
		return err
	}, generationKey(board.TeamID))

	if errors.Is(err, redis.TxFailedErr) {
		return nil
	}
	return err
}

// Invalidate bumps the generation first, then drops the entry. A fill that passed its
// generation check just before the bump is removed by the delete.
func (c *BoardCache) Invalidate(ctx context.Context, teamID string) error {
	if err := c.rdb.Incr(ctx, generationKey(teamID)).Err(); err != nil {
		return err
	}
	return c.rdb.Del(ctx, boardKey(teamID)).Err()
}
