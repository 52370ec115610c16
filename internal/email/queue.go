package email

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Mailer accepts messages for asynchronous delivery.
type Mailer interface {
	Enqueue(msg Message)
}

// Queue decouples email dispatch from request handling: messages are buffered
// and drained by a single worker goroutine, so a slow SMTP provider never
// blocks the primary response path. When the buffer is full the message is
// dropped and logged; there is no retry.
type Queue struct {
	sender Sender
	logger *zap.Logger
	ch     chan Message
	wg     sync.WaitGroup
	once   sync.Once
}

// NewQueue builds a mail queue with the given buffer size.
func NewQueue(sender Sender, logger *zap.Logger, size int) *Queue {
	if size <= 0 {
		size = 256
	}
	return &Queue{
		sender: sender,
		logger: logger,
		ch:     make(chan Message, size),
	}
}

// Start launches the delivery worker. It drains until Close is called or the
// context is cancelled.
func (q *Queue) Start(ctx context.Context) {
	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		for {
			select {
			case msg, ok := <-q.ch:
				if !ok {
					return
				}
				q.deliver(msg)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Enqueue queues a message without blocking the caller.
func (q *Queue) Enqueue(msg Message) {
	select {
	case q.ch <- msg:
	default:
		q.logger.Warn("mail queue full, dropping message",
			zap.String("template", string(msg.Template)),
			zap.String("to", msg.To))
	}
}

// Close stops accepting messages and waits for the worker to finish the
// remaining buffer.
func (q *Queue) Close() {
	q.once.Do(func() {
		close(q.ch)
	})
	q.wg.Wait()
}

func (q *Queue) deliver(msg Message) {
	if err := q.sender.Send(msg); err != nil {
		q.logger.Warn("email delivery failed",
			zap.String("template", string(msg.Template)),
			zap.String("to", msg.To),
			zap.Error(err))
	}
}
