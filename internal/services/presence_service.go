package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const roomChannelPrefix = "board:room:"

// PresenceService tracks which connections are online and in which room, and
// carries the pub/sub bus that fans room events out across instances. All of
// it is best-effort: the drawing core works the same with Redis gone.
type PresenceService struct {
	client *redis.Client
	logger *slog.Logger
}

func NewPresenceService(client *redis.Client, logger *slog.Logger) *PresenceService {
	if logger == nil {
		logger = slog.Default()
	}
	return &PresenceService{client: client, logger: logger}
}

// SetConnectionOnline registers a connection as online and a member of its
// room. Status keys expire so crashed instances cannot leak members forever.
func (p *PresenceService) SetConnectionOnline(ctx context.Context, connID, roomID, username string) error {
	pipe := p.client.Pipeline()

	pipe.SAdd(ctx, "online_connections", connID)
	pipe.SAdd(ctx, fmt.Sprintf("room:%s:members", roomID), connID)
	pipe.HSet(ctx, fmt.Sprintf("conn:%s:info", connID), map[string]interface{}{
		"room":         roomID,
		"username":     username,
		"connected_at": time.Now().Unix(),
	})
	pipe.Expire(ctx, fmt.Sprintf("conn:%s:info", connID), 24*time.Hour)

	if _, err := pipe.Exec(ctx); err != nil {
		p.logger.Error("failed to set connection online", "connID", connID, "error", err)
		return err
	}
	return nil
}

// SetConnectionOffline removes the connection from the online set and its
// room member set.
func (p *PresenceService) SetConnectionOffline(ctx context.Context, connID, roomID string) error {
	pipe := p.client.Pipeline()

	pipe.SRem(ctx, "online_connections", connID)
	pipe.SRem(ctx, fmt.Sprintf("room:%s:members", roomID), connID)
	pipe.Del(ctx, fmt.Sprintf("conn:%s:info", connID))

	if _, err := pipe.Exec(ctx); err != nil {
		p.logger.Error("failed to set connection offline", "connID", connID, "error", err)
		return err
	}
	return nil
}

// RoomMembers lists connection ids currently in a room across all instances.
func (p *PresenceService) RoomMembers(ctx context.Context, roomID string) ([]string, error) {
	return p.client.SMembers(ctx, fmt.Sprintf("room:%s:members", roomID)).Result()
}

// PublishRoomEvent puts an already-encoded bus message on the room's pub/sub
// channel so sibling instances can forward it to their local members.
func (p *PresenceService) PublishRoomEvent(ctx context.Context, roomID string, payload []byte) error {
	return p.client.Publish(ctx, roomChannelPrefix+roomID, payload).Err()
}

// SubscribeRooms subscribes to every room channel on this Redis.
func (p *PresenceService) SubscribeRooms(ctx context.Context) *redis.PubSub {
	return p.client.PSubscribe(ctx, roomChannelPrefix+"*")
}

// CheckRateLimit implements a sliding-window limiter over a sorted set.
// Returns true when the request is allowed.
func (p *PresenceService) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	now := time.Now()
	windowStart := now.Add(-window).Unix()

	pipe := p.client.Pipeline()
	pipe.ZRemRangeByScore(ctx, key, "0", fmt.Sprintf("%d", windowStart))
	countCmd := pipe.ZCard(ctx, key)
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(now.Unix()), Member: now.UnixNano()})
	pipe.Expire(ctx, key, window)

	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}
	return countCmd.Val() < int64(limit), nil
}
