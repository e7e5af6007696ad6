package mq

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"jobconnect/models"
)

// InboxChannel carries message-created events.
const InboxChannel = "inbox-events"

// Event is what travels over the channel.
type Event struct {
	Name    string          `json:"name"`
	Message *models.Message `json:"message"`
}

// Emitter publishes inbox events. Handlers call it after the messages are
// stored; failures are logged and never surface to the client.
type Emitter interface {
	Emit(ctx context.Context, evt Event) error
}

// Handler consumes events on the subscriber side.
type Handler func(Event)

// RedisEmitter publishes to a Redis pub/sub channel.
type RedisEmitter struct {
	Conn *redis.Client
}

func (e RedisEmitter) Emit(ctx context.Context, evt Event) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	return e.Conn.Publish(ctx, InboxChannel, data).Err()
}

// Direct hands events straight to a handler in-process; used without Redis.
type Direct struct {
	Handle Handler
}

func (d Direct) Emit(_ context.Context, evt Event) error {
	if d.Handle != nil {
		d.Handle(evt)
	}
	return nil
}

// EmitMessages publishes one message-created event per message.
func EmitMessages(ctx context.Context, e Emitter, msgs ...*models.Message) {
	if e == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	for _, m := range msgs {
		if err := e.Emit(ctx, Event{Name: "message-created", Message: m}); err != nil {
			log.Warn().Err(err).Str("message", m.ID).Msg("[Emit] failed to publish inbox event")
		}
	}
}

// StartInboxWorker subscribes to InboxChannel until ctx is done.
func StartInboxWorker(ctx context.Context, conn *redis.Client, handle Handler) {
	sub := conn.Subscribe(ctx, InboxChannel)
	defer sub.Close()
	ch := sub.Channel()

	log.Info().Msg("[InboxWorker] listening for inbox events")
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var evt Event
			if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
				log.Warn().Err(err).Msg("[InboxWorker] failed to parse event")
				continue
			}
			handle(evt)
		}
	}
}
