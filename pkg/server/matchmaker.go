package server

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/cfoust/mines/pkg/config"
	"github.com/cfoust/mines/pkg/game"
	"github.com/cfoust/mines/pkg/protocol"
	"github.com/cfoust/mines/pkg/utils"

	"github.com/jonboulle/clockwork"
	opt "github.com/repeale/fp-go/option"
	"github.com/sasha-s/go-deadlock"
)

var (
	ErrAlreadyQueued    = errors.New("user is already queued")
	ErrAlreadyInSession = errors.New("user is already in a session")
	ErrUnknownMode      = errors.New("no such game mode")
)

// Matchmaker pairs waiting users into sessions. Each mode has its own FIFO
// queue: the two oldest entries are paired, and the older of the two is
// player 0, so pairing order is reproducible.
type Matchmaker struct {
	settings config.Matchmaking
	clock    clockwork.Clock
	results  *utils.Topic[SessionResult]

	mutex  deadlock.Mutex
	queues map[game.Mode][]*User
	rng    *rand.Rand
}

func NewMatchmaker(
	settings config.Matchmaking,
	clock clockwork.Clock,
	results *utils.Topic[SessionResult],
) *Matchmaker {
	return &Matchmaker{
		settings: settings,
		clock:    clock,
		results:  results,
		queues:   make(map[game.Mode][]*User),
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Queue adds a user to the waiting queue for a mode and pairs them off
// immediately if an opponent is already waiting. A user can wait in at most
// one queue and can never be queued while playing.
func (m *Matchmaker) Queue(ctx context.Context, user *User, modeName string) error {
	preset := m.settings.FindMode(modeName)
	if opt.IsNone(preset) {
		return ErrUnknownMode
	}

	mode, err := game.ParseMode(modeName)
	if err != nil {
		return ErrUnknownMode
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	if user.GetSession() != nil {
		return ErrAlreadyInSession
	}
	if user.getQueued() != nil {
		return ErrAlreadyQueued
	}

	user.setQueued(&mode)
	m.queues[mode] = append(m.queues[mode], user)

	logger := user.Logger()
	logger.Info().Str("mode", mode.String()).Msg("queued for game")
	user.Send(protocol.Queued{Mode: mode.String()})

	queue := m.queues[mode]
	if len(queue) < 2 {
		return nil
	}

	a, b := queue[0], queue[1]
	m.queues[mode] = queue[2:]

	m.startSession(ctx, mode, preset.Value, [2]*User{a, b})
	return nil
}

// Caller must hold the matchmaker mutex; both users leave their queue and
// enter the session in the same critical section, so no user can be paired
// twice.
func (m *Matchmaker) startSession(
	ctx context.Context,
	mode game.Mode,
	preset config.ModePreset,
	users [2]*User,
) {
	board := game.NewBoard(preset.Mines, m.rng)

	session := NewGameSession(
		ctx,
		mode,
		board,
		users,
		m.clock,
		m.settings.TurnDuration(),
		m.results,
	)

	for player, user := range users {
		user.setSession(session)
		user.Send(protocol.Matched{
			Mode:   mode.String(),
			Player: player,
		})
	}

	logger := session.Logger()
	logger.Info().Int("mines", board.NumMines()).Msg("session started")

	session.Start()
}

// Dequeue removes a still-waiting user from their queue. It is a no-op for
// users that are not waiting.
func (m *Matchmaker) Dequeue(user *User) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	queued := user.getQueued()
	if queued == nil {
		return
	}

	cleaned := make([]*User, 0, len(m.queues[*queued]))
	for _, waiting := range m.queues[*queued] {
		if waiting == user {
			continue
		}
		cleaned = append(cleaned, waiting)
	}
	m.queues[*queued] = cleaned
	user.setQueued(nil)

	logger := user.Logger()
	logger.Info().Str("mode", queued.String()).Msg("left queue")
}

// QueueLen reports how many users are waiting for a mode.
func (m *Matchmaker) QueueLen(mode game.Mode) int {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return len(m.queues[mode])
}
