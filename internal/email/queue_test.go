package email

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type captureSender struct {
	mu   sync.Mutex
	sent []Message
	err  error
}

func (s *captureSender) Send(msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, msg)
	return nil
}

func (s *captureSender) delivered() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message{}, s.sent...)
}

func TestQueueDeliversBufferedMessages(t *testing.T) {
	sender := &captureSender{}
	queue := NewQueue(sender, zap.NewNop(), 8)

	queue.Start(context.Background())
	queue.Enqueue(Message{To: "a@example.test", Template: TemplateRequestCreated})
	queue.Enqueue(Message{To: "b@example.test", Template: TemplateNoteAdded})
	queue.Close()

	delivered := sender.delivered()
	require.Len(t, delivered, 2)
	assert.Equal(t, "a@example.test", delivered[0].To)
	assert.Equal(t, "b@example.test", delivered[1].To)
}

func TestQueueDropsWhenFull(t *testing.T) {
	sender := &captureSender{}
	queue := NewQueue(sender, zap.NewNop(), 1)

	// Worker not started: the buffer holds one message, the second drops.
	queue.Enqueue(Message{To: "kept@example.test", Template: TemplateRequestCreated})
	done := make(chan struct{})
	go func() {
		defer close(done)
		queue.Enqueue(Message{To: "dropped@example.test", Template: TemplateRequestCreated})
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Enqueue blocked on a full queue")
	}

	queue.Start(context.Background())
	queue.Close()

	delivered := sender.delivered()
	require.Len(t, delivered, 1)
	assert.Equal(t, "kept@example.test", delivered[0].To)
}

func TestQueueSurvivesSenderFailure(t *testing.T) {
	sender := &captureSender{err: errors.New("smtp unreachable")}
	queue := NewQueue(sender, zap.NewNop(), 8)

	queue.Start(context.Background())
	queue.Enqueue(Message{To: "a@example.test", Template: TemplateRequestCreated})
	queue.Close()

	assert.Empty(t, sender.delivered())
}
