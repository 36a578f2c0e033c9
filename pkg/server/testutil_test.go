package server

import (
	"context"
	"testing"
	"time"

	"github.com/cfoust/mines/pkg/game"
	"github.com/cfoust/mines/pkg/protocol"
	"github.com/cfoust/mines/pkg/server/ingress"
	"github.com/cfoust/mines/pkg/utils"

	"github.com/jonboulle/clockwork"
	"github.com/sasha-s/go-deadlock"
	"github.com/stretchr/testify/require"
)

// fakeConnection records every message the server sends so tests can assert
// on the outbound stream.
type fakeConnection struct {
	session utils.Session
	receive chan []byte

	mutex deadlock.Mutex
	sent  []protocol.Message
}

var _ ingress.Connection = (*fakeConnection)(nil)

func newFakeConnection(ctx context.Context) *fakeConnection {
	return &fakeConnection{
		session: utils.NewSession(ctx),
		receive: make(chan []byte, ingress.CLIENT_MESSAGE_LIMIT),
	}
}

func (c *fakeConnection) Session() *utils.Session  { return &c.session }
func (c *fakeConnection) Host() string             { return "test" }
func (c *fakeConnection) Type() ingress.ClientType { return ingress.ClientTypeTCP }
func (c *fakeConnection) Receive() <-chan []byte   { return c.receive }

func (c *fakeConnection) Send(data []byte) error {
	message, err := protocol.Decode(data[:len(data)-1])
	if err != nil {
		return err
	}

	c.mutex.Lock()
	c.sent = append(c.sent, message)
	c.mutex.Unlock()
	return nil
}

func (c *fakeConnection) Disconnect(reason string) {
	c.session.Cancel()
}

// sendLine feeds one raw line to the server as if the client had written it.
func (c *fakeConnection) sendLine(t *testing.T, line string) {
	select {
	case c.receive <- []byte(line):
	case <-time.After(time.Second):
		t.Fatal("timed out feeding line to server")
	}
}

func (c *fakeConnection) sendMessage(t *testing.T, message protocol.Message) {
	data, err := protocol.Encode(message)
	require.NoError(t, err)
	c.sendLine(t, string(data[:len(data)-1]))
}

func (c *fakeConnection) messages() []protocol.Message {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return append([]protocol.Message{}, c.sent...)
}

func (c *fakeConnection) ofType(kind protocol.MessageType) []protocol.Message {
	var matched []protocol.Message
	for _, message := range c.messages() {
		if message.Type() == kind {
			matched = append(matched, message)
		}
	}
	return matched
}

func (c *fakeConnection) gameOver() *protocol.GameOver {
	over := c.ofType(protocol.GameOverType)
	if len(over) == 0 {
		return nil
	}
	return over[len(over)-1].(*protocol.GameOver)
}

// testSession builds a started session with two fake users and a fake clock.
func testSession(
	t *testing.T,
	mode game.Mode,
	board *game.Board,
) (*GameSession, [2]*User, [2]*fakeConnection, *clockwork.FakeClock, *utils.Topic[SessionResult]) {
	ctx := context.Background()
	clock := clockwork.NewFakeClock()
	results := utils.NewTopic[SessionResult]()

	connections := [2]*fakeConnection{
		newFakeConnection(ctx),
		newFakeConnection(ctx),
	}
	users := [2]*User{
		{Id: 1, Connection: connections[0]},
		{Id: 2, Connection: connections[1]},
	}

	session := NewGameSession(
		ctx,
		mode,
		board,
		users,
		clock,
		10*time.Second,
		results,
	)

	for _, user := range users {
		user.setSession(session)
	}

	session.Start()
	return session, users, connections, clock, results
}
