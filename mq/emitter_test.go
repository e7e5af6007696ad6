package mq

import (
	"context"
	"testing"

	"jobconnect/models"
)

func TestEmitMessagesDirect(t *testing.T) {
	var got []Event
	d := Direct{Handle: func(e Event) { got = append(got, e) }}

	EmitMessages(context.Background(), d,
		&models.Message{ID: "m1", ReceiverID: "u1"},
		&models.Message{ID: "m2", ReceiverID: "u2"},
	)

	if len(got) != 2 {
		t.Fatalf("expected 2 events, got %d", len(got))
	}
	if got[0].Name != "message-created" || got[1].Message.ID != "m2" {
		t.Errorf("unexpected events %+v", got)
	}
}

func TestEmitMessagesNilEmitter(t *testing.T) {
	// must not panic
	EmitMessages(context.Background(), nil, &models.Message{ID: "m1"})
}
