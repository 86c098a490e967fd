package redisc

import (
	"context"
	"log/slog"
	"strings"

	"github.com/redis/go-redis/v9"
)

const roomChannelPrefix = "chat:room:"

func roomChannel(roomID string) string {
	return roomChannelPrefix + roomID
}

// RoomPublisher fans room payloads out through Redis so every instance can
// deliver to its own connections.
type RoomPublisher struct {
	client *redis.Client
}

func NewRoomPublisher(client *redis.Client) *RoomPublisher {
	return &RoomPublisher{client: client}
}

func (p *RoomPublisher) Publish(ctx context.Context, roomID string, payload []byte) error {
	return p.client.Publish(ctx, roomChannel(roomID), payload).Err()
}

// SubscribeRooms hands every room payload published by any instance to
// deliver, until ctx is cancelled.
func SubscribeRooms(ctx context.Context, client *redis.Client, deliver func(roomID string, data []byte)) error {
	pubsub := client.PSubscribe(ctx, roomChannelPrefix+"*")
	defer pubsub.Close()

	// wait for the subscription to be confirmed before reporting ready
	if _, err := pubsub.Receive(ctx); err != nil {
		return err
	}

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			roomID := strings.TrimPrefix(msg.Channel, roomChannelPrefix)
			slog.Debug("pubsub message", "room_id", roomID)
			deliver(roomID, []byte(msg.Payload))
		}
	}
}
