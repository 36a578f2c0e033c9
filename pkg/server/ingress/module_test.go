package ingress

import (
	"context"
	"testing"

	"github.com/cfoust/mines/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTCPSendDropsSlowClient(t *testing.T) {
	client := &TCPClient{
		session: utils.NewSession(context.Background()),
		host:    "test",
		send:    make(chan []byte, 2),
	}

	require.NoError(t, client.Send([]byte("a\n")))
	require.NoError(t, client.Send([]byte("b\n")))

	// The buffer is full and nothing is draining it; the send must fail
	// right away instead of waiting for the client.
	err := client.Send([]byte("c\n"))
	assert.Error(t, err)
	assert.True(t, client.Session().IsDone())

	// Once dropped, the client stays dropped.
	assert.Error(t, client.Send([]byte("d\n")))
}

func TestWSSendDropsSlowClient(t *testing.T) {
	client := &WSClient{
		session: utils.NewSession(context.Background()),
		host:    "test",
		send:    make(chan []byte, 1),
	}

	require.NoError(t, client.Send([]byte("a\n")))

	err := client.Send([]byte("b\n"))
	assert.Error(t, err)
	assert.True(t, client.Session().IsDone())
}
