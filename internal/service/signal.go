package service

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	mediflow "github.com/singhaditya73/MediFlow"
	"github.com/singhaditya73/MediFlow/internal/domain"
	"github.com/singhaditya73/MediFlow/internal/usecase"
)

// SignalService fans access events out over redis pub/sub so every node
// serving realtime connections sees every confirmed mutation.
type SignalService struct {
	rdb *redis.Client
}

func NewSignalService(redisClient *redis.Client) *SignalService {
	return &SignalService{
		rdb: redisClient,
	}
}

func (s *SignalService) Publish(ctx context.Context, event mediflow.Event) error {

	jsonstr, err := json.Marshal(event)
	if err != nil {
		return err
	}

	err = s.rdb.Publish(ctx, domain.EventChannel, jsonstr).Err()
	if err != nil {
		return err
	}

	return nil
}

// Subscribe bridges the event channel into a Go channel. The returned cancel
// func closes the subscription; the event channel closes after it.
func (s *SignalService) Subscribe(ctx context.Context) (<-chan mediflow.Event, func()) {
	pubsub := s.rdb.Subscribe(ctx, domain.EventChannel)
	events := make(chan mediflow.Event, 16)

	go func() {
		defer close(events)
		for msg := range pubsub.Channel() {
			var event mediflow.Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				continue
			}
			select {
			case events <- event:
			case <-ctx.Done():
				return
			}
		}
	}()

	return events, func() {
		pubsub.Close()
	}
}

var _ usecase.EventPublisher = (*SignalService)(nil)
