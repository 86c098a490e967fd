package chat

import "context"

// Publisher fans a payload out to every connection on a room, wherever it is
// connected.
type Publisher interface {
	Publish(ctx context.Context, roomID string, payload []byte) error
}

// LocalPublisher delivers straight into this instance's registry.
type LocalPublisher struct {
	Registry *Registry
}

func (p LocalPublisher) Publish(_ context.Context, roomID string, payload []byte) error {
	p.Registry.Broadcast(roomID, payload)
	return nil
}
