package redisc

import (
	"context"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const presenceTTL = 24 * time.Hour

func presenceKey(roomID string) string {
	return "presence:room:" + roomID
}

// Presence keeps a per-room hash of display name -> open connection count,
// shared by all instances.
type Presence struct {
	client *redis.Client
}

func NewPresence(client *redis.Client) *Presence {
	return &Presence{client: client}
}

func (p *Presence) Join(ctx context.Context, roomID, name string) error {
	key := presenceKey(roomID)
	pipe := p.client.Pipeline()
	pipe.HIncrBy(ctx, key, name, 1)
	pipe.Expire(ctx, key, presenceTTL)
	_, err := pipe.Exec(ctx)
	return err
}

func (p *Presence) Leave(ctx context.Context, roomID, name string) error {
	key := presenceKey(roomID)
	n, err := p.client.HIncrBy(ctx, key, name, -1).Result()
	if err != nil {
		return err
	}
	if n <= 0 {
		return p.client.HDel(ctx, key, name).Err()
	}
	return nil
}

func (p *Presence) Members(ctx context.Context, roomID string) ([]string, error) {
	counts, err := p.client.HGetAll(ctx, presenceKey(roomID)).Result()
	if err != nil {
		return nil, err
	}
	names := []string{}
	for name, raw := range counts {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}
