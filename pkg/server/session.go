package server

import (
	"context"
	"errors"
	"time"

	"github.com/cfoust/mines/pkg/game"
	"github.com/cfoust/mines/pkg/protocol"
	"github.com/cfoust/mines/pkg/utils"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sasha-s/go-deadlock"
)

var (
	ErrNotYourTurn     = errors.New("not your turn")
	ErrSessionFinished = errors.New("session already finished")
)

type SessionStatus uint8

const (
	SessionActive SessionStatus = iota
	SessionFinished
)

// SessionResult is published when a session reaches a terminal outcome.
type SessionResult struct {
	Session *GameSession
	Mode    game.Mode
	Users   [2]*User
	Outcome game.Outcome
}

// GameSession runs one game between exactly two players, from pairing to a
// terminal outcome. All state transitions happen under one mutex so a pick
// and a timeout for the same turn can never both take effect.
type GameSession struct {
	utils.Session
	Id   uuid.UUID
	Mode game.Mode

	clock   *TurnClock
	results *utils.Topic[SessionResult]

	mutex      deadlock.Mutex
	board      *game.Board
	users      [2]*User
	status     SessionStatus
	outcome    game.Outcome
	turnPlayer int
	// Incremented every time a new turn begins. A timeout that fires with
	// an older token lost the race against a pick and is discarded.
	turnToken uint64
	scores    [2]int
}

func NewGameSession(
	ctx context.Context,
	mode game.Mode,
	board *game.Board,
	users [2]*User,
	clock clockwork.Clock,
	turnDuration time.Duration,
	results *utils.Topic[SessionResult],
) *GameSession {
	session := GameSession{
		Session: utils.NewSession(ctx),
		Id:      uuid.New(),
		Mode:    mode,
		board:   board,
		users:   users,
		results: results,
	}
	session.clock = NewTurnClock(clock, turnDuration)
	return &session
}

func (s *GameSession) Logger() zerolog.Logger {
	return log.With().
		Str("session", s.Id.String()).
		Str("mode", s.Mode.String()).
		Str("player0", s.users[0].Reference()).
		Str("player1", s.users[1].Reference()).
		Logger()
}

// Start begins the first turn. Player 0 always moves first.
func (s *GameSession) Start() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.broadcast(protocol.TurnStart{Player: s.turnPlayer})
	s.clock.Arm(s.Ctx(), s.turnToken, s.handleTimeout)
}

func (s *GameSession) broadcast(message protocol.Message) {
	for _, user := range s.users {
		// A failed send means the connection is going away; the
		// disconnect path settles the game.
		user.Send(message)
	}
}

func (s *GameSession) playerFor(user *User) int {
	for i, u := range s.users {
		if u == user {
			return i
		}
	}
	return -1
}

// Pick reveals a cell on behalf of user. Invalid picks leave the turn (and
// its clock) untouched.
func (s *GameSession) Pick(user *User, row int, col int) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.status != SessionActive {
		return ErrSessionFinished
	}

	player := s.playerFor(user)
	if player != s.turnPlayer {
		return ErrNotYourTurn
	}

	isMine, err := s.board.Reveal(row, col)
	if err != nil {
		return err
	}

	s.broadcast(protocol.Reveal{
		Row:      row,
		Col:      col,
		IsMine:   isMine,
		ByPlayer: player,
	})

	if s.Mode == game.ModeSurvival && isMine {
		s.finish(game.Win(1-player, game.ReasonMineHit))
		return nil
	}

	if s.Mode == game.ModeScoring {
		if isMine {
			s.scores[player]--
		} else {
			s.scores[player]++
		}
		s.broadcast(protocol.ScoreUpdate{Scores: s.scores})
	}

	if s.board.Exhausted() {
		s.finish(s.scoreOutcome())
		return nil
	}

	s.advanceTurn()
	return nil
}

// handleTimeout is delivered by the turn clock. Caller does not hold the
// session mutex.
func (s *GameSession) handleTimeout(token uint64) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.status != SessionActive || token != s.turnToken {
		// A pick already advanced this turn; the timer fired for
		// nothing.
		return
	}

	logger := s.Logger()
	logger.Info().Int("player", s.turnPlayer).Msg("turn timed out")

	if s.Mode == game.ModeSurvival {
		s.finish(game.Win(1-s.turnPlayer, game.ReasonTimeout))
		return
	}

	// Scoring: the turn passes, nobody scores.
	s.broadcast(protocol.ScoreUpdate{Scores: s.scores})
	s.advanceTurn()
}

// Disconnect immediately finishes an active session in the other player's
// favor. There is no grace period; reconnection is not supported.
func (s *GameSession) Disconnect(user *User) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.status != SessionActive {
		return
	}

	player := s.playerFor(user)
	if player == -1 {
		return
	}

	s.finish(game.Win(1-player, game.ReasonDisconnect))
}

// advanceTurn starts the next turn. Callers must hold the mutex.
func (s *GameSession) advanceTurn() {
	s.turnToken++
	s.turnPlayer = 1 - s.turnPlayer
	s.broadcast(protocol.TurnStart{Player: s.turnPlayer})
	s.clock.Arm(s.Ctx(), s.turnToken, s.handleTimeout)
}

// scoreOutcome settles an exhausted board: higher score wins, ties draw.
func (s *GameSession) scoreOutcome() game.Outcome {
	if s.scores[0] > s.scores[1] {
		return game.Win(0, game.ReasonBoardExhausted)
	}
	if s.scores[1] > s.scores[0] {
		return game.Win(1, game.ReasonBoardExhausted)
	}
	return game.Draw(game.ReasonBoardExhausted)
}

// finish moves the session to its terminal state. Callers must hold the
// mutex. Finished is final: no pick or timeout is accepted afterwards.
func (s *GameSession) finish(outcome game.Outcome) {
	s.status = SessionFinished
	s.outcome = outcome

	over := protocol.GameOver{
		Reason:  outcome.Reason.String(),
		Outcome: "win",
	}
	if outcome.Draw {
		over.Outcome = "draw"
	} else {
		winner := outcome.Winner
		over.Winner = &winner
	}
	s.broadcast(over)

	for _, user := range s.users {
		user.clearSession()
	}

	logger := s.Logger()
	logger.Info().
		Str("reason", outcome.Reason.String()).
		Bool("draw", outcome.Draw).
		Int("winner", outcome.Winner).
		Msg("session finished")

	// The lifecycle context stops any armed timer goroutine.
	s.Cancel()

	result := SessionResult{
		Session: s,
		Mode:    s.Mode,
		Users:   s.users,
		Outcome: outcome,
	}

	// Publishing synchronously would hold the session mutex while every
	// subscriber drains the result.
	go s.results.Publish(result)
}

func (s *GameSession) Status() SessionStatus {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.status
}

// Outcome is meaningful only once the session is finished.
func (s *GameSession) Outcome() game.Outcome {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.outcome
}

func (s *GameSession) Scores() [2]int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.scores
}

func (s *GameSession) TurnPlayer() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.turnPlayer
}
