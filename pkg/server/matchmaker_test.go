package server

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/cfoust/mines/pkg/config"
	"github.com/cfoust/mines/pkg/game"
	"github.com/cfoust/mines/pkg/protocol"
	"github.com/cfoust/mines/pkg/server/ingress"
	"github.com/cfoust/mines/pkg/utils"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMatchmaker(t *testing.T) (*Matchmaker, func() *User) {
	ctx := context.Background()
	defaults, err := config.Process([]string{})
	require.NoError(t, err)

	matches := NewMatchmaker(
		defaults.Server.Matchmaking,
		clockwork.NewFakeClock(),
		utils.NewTopic[SessionResult](),
	)

	var nextId uint32
	newUser := func() *User {
		nextId++
		return &User{
			Id:         ingress.ClientID(nextId),
			Connection: newFakeConnection(ctx),
		}
	}

	return matches, newUser
}

func TestFIFOPairing(t *testing.T) {
	ctx := context.Background()
	matches, newUser := testMatchmaker(t)

	a, b, c, d := newUser(), newUser(), newUser(), newUser()

	require.NoError(t, matches.Queue(ctx, a, "survival"))
	assert.Nil(t, a.GetSession())
	assert.Equal(t, 1, matches.QueueLen(game.ModeSurvival))

	require.NoError(t, matches.Queue(ctx, b, "survival"))

	// The two oldest waiters were paired, first-in as player 0.
	first := a.GetSession()
	require.NotNil(t, first)
	assert.Equal(t, first, b.GetSession())
	assert.Equal(t, 0, first.playerFor(a))
	assert.Equal(t, 1, first.playerFor(b))
	assert.Equal(t, 0, matches.QueueLen(game.ModeSurvival))

	matched := a.Connection.(*fakeConnection).ofType(protocol.MatchedType)
	require.Len(t, matched, 1)
	assert.Equal(t, 0, matched[0].(*protocol.Matched).Player)

	starts := a.Connection.(*fakeConnection).ofType(protocol.TurnStartType)
	require.Len(t, starts, 1)
	assert.Equal(t, 0, starts[0].(*protocol.TurnStart).Player)

	// C and D wait until a fourth joiner shows up.
	require.NoError(t, matches.Queue(ctx, c, "survival"))
	assert.Nil(t, c.GetSession())

	require.NoError(t, matches.Queue(ctx, d, "survival"))
	second := c.GetSession()
	require.NotNil(t, second)
	assert.NotEqual(t, first, second)
	assert.Equal(t, 0, second.playerFor(c))
}

func TestQueuesAreSeparatePerMode(t *testing.T) {
	ctx := context.Background()
	matches, newUser := testMatchmaker(t)

	a, b := newUser(), newUser()

	require.NoError(t, matches.Queue(ctx, a, "survival"))
	require.NoError(t, matches.Queue(ctx, b, "scoring"))

	assert.Nil(t, a.GetSession())
	assert.Nil(t, b.GetSession())
}

func TestRejoinRejected(t *testing.T) {
	ctx := context.Background()
	matches, newUser := testMatchmaker(t)

	a, b := newUser(), newUser()

	require.NoError(t, matches.Queue(ctx, a, "survival"))
	assert.ErrorIs(t, matches.Queue(ctx, a, "survival"), ErrAlreadyQueued)
	assert.ErrorIs(t, matches.Queue(ctx, a, "scoring"), ErrAlreadyQueued)

	// The rejection had no side effects.
	assert.Equal(t, 1, matches.QueueLen(game.ModeSurvival))
	assert.Equal(t, 0, matches.QueueLen(game.ModeScoring))

	require.NoError(t, matches.Queue(ctx, b, "survival"))
	require.NotNil(t, a.GetSession())

	assert.ErrorIs(t, matches.Queue(ctx, a, "survival"), ErrAlreadyInSession)
}

func TestUnknownMode(t *testing.T) {
	ctx := context.Background()
	matches, newUser := testMatchmaker(t)

	assert.ErrorIs(t, matches.Queue(ctx, newUser(), "speedrun"), ErrUnknownMode)
}

// A connection that stopped keeping up. Its sends fail immediately, the way
// an ingress connection with a full buffer does.
type slowConnection struct {
	*fakeConnection
}

func (c *slowConnection) Send(data []byte) error {
	c.session.Cancel()
	return fmt.Errorf("client too slow to keep up with messages")
}

func TestSlowClientDoesNotStallMatchmaker(t *testing.T) {
	ctx := context.Background()
	matches, newUser := testMatchmaker(t)

	stalled := &User{
		Id:         ingress.ClientID(100),
		Connection: &slowConnection{newFakeConnection(ctx)},
	}
	require.NoError(t, matches.Queue(ctx, stalled, "survival"))

	// Joins for other modes settle within bounded time no matter what
	// state the stalled client's connection is in.
	joined := make(chan error, 1)
	go func() {
		joined <- matches.Queue(ctx, newUser(), "scoring")
	}()

	select {
	case err := <-joined:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("join stalled behind a slow client")
	}

	// Pairing against the stalled client still settles; its failed sends
	// never leak into matchmaker state.
	partner := newUser()
	require.NoError(t, matches.Queue(ctx, partner, "survival"))
	require.NotNil(t, partner.GetSession())
	assert.Equal(t, 0, matches.QueueLen(game.ModeSurvival))
}

func TestDequeue(t *testing.T) {
	ctx := context.Background()
	matches, newUser := testMatchmaker(t)

	a, b, c := newUser(), newUser(), newUser()

	require.NoError(t, matches.Queue(ctx, a, "survival"))
	matches.Dequeue(a)
	assert.Equal(t, 0, matches.QueueLen(game.ModeSurvival))

	// Dequeueing someone who is not waiting is a no-op.
	matches.Dequeue(a)

	// A is gone, so B and C pair with B as player 0.
	require.NoError(t, matches.Queue(ctx, b, "survival"))
	require.NoError(t, matches.Queue(ctx, c, "survival"))
	session := b.GetSession()
	require.NotNil(t, session)
	assert.Equal(t, 0, session.playerFor(b))
	assert.Nil(t, a.GetSession())
}
