package utils

import (
	"github.com/sasha-s/go-deadlock"
)

type Topic[T any] struct {
	subscribers map[*Subscriber[T]]struct{}
	mutex       deadlock.Mutex
}

func NewTopic[T any]() *Topic[T] {
	return &Topic[T]{
		subscribers: make(map[*Subscriber[T]]struct{}),
	}
}

// Publish delivers value to every current subscriber. The topic mutex is not
// held while sending, so a subscriber leaving mid-publish unblocks the
// publisher rather than deadlocking it.
func (t *Topic[T]) Publish(value T) {
	t.mutex.Lock()
	subscribers := make([]*Subscriber[T], 0, len(t.subscribers))
	for subscriber := range t.subscribers {
		subscribers = append(subscribers, subscriber)
	}
	t.mutex.Unlock()

	for _, subscriber := range subscribers {
		select {
		case subscriber.channel <- value:
		case <-subscriber.done:
		}
	}
}

type Subscriber[T any] struct {
	channel chan T
	done    chan struct{}
	topic   *Topic[T]
}

func (t *Topic[T]) Subscribe() *Subscriber[T] {
	subscriber := &Subscriber[T]{
		channel: make(chan T),
		done:    make(chan struct{}),
		topic:   t,
	}

	t.mutex.Lock()
	t.subscribers[subscriber] = struct{}{}
	t.mutex.Unlock()

	return subscriber
}

func (s *Subscriber[T]) Recv() <-chan T {
	return s.channel
}

// Done leaves the topic. Idempotent; any publish waiting on this subscriber
// gives up on it.
func (s *Subscriber[T]) Done() {
	topic := s.topic
	topic.mutex.Lock()
	if _, ok := topic.subscribers[s]; ok {
		delete(topic.subscribers, s)
		close(s.done)
	}
	topic.mutex.Unlock()
}
