package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopicDelivers(t *testing.T) {
	topic := NewTopic[int]()
	a := topic.Subscribe()
	b := topic.Subscribe()
	defer a.Done()
	defer b.Done()

	go topic.Publish(42)

	assert.Equal(t, 42, <-a.Recv())
	assert.Equal(t, 42, <-b.Recv())
}

func TestDoneUnblocksPublish(t *testing.T) {
	topic := NewTopic[int]()
	idle := topic.Subscribe()

	published := make(chan struct{})
	go func() {
		topic.Publish(1)
		close(published)
	}()

	// The subscriber never reads; leaving the topic must release the
	// publisher no matter which side got there first.
	idle.Done()

	select {
	case <-published:
	case <-time.After(time.Second):
		t.Fatal("publish stayed parked on a departed subscriber")
	}

	// Done is idempotent.
	idle.Done()
}

func TestDeparturesDoNotAffectOthers(t *testing.T) {
	topic := NewTopic[int]()
	gone := topic.Subscribe()
	alive := topic.Subscribe()
	defer alive.Done()

	gone.Done()

	published := make(chan struct{})
	go func() {
		topic.Publish(7)
		close(published)
	}()

	require.Equal(t, 7, <-alive.Recv())

	select {
	case <-published:
	case <-time.After(time.Second):
		t.Fatal("publish never completed")
	}
}
