// Package server contains the whole core of the mines server: user
// bookkeeping, matchmaking, sessions, and the turn clock. Routing is pure
// plumbing; every rule lives in the session or the matchmaker.
package server

import (
	"context"
	"errors"

	"github.com/cfoust/mines/pkg/config"
	"github.com/cfoust/mines/pkg/game"
	"github.com/cfoust/mines/pkg/protocol"
	"github.com/cfoust/mines/pkg/server/ingress"
	"github.com/cfoust/mines/pkg/utils"

	"github.com/jonboulle/clockwork"
)

type Server struct {
	utils.Session

	Users   *UserOrchestrator
	Matches *Matchmaker
	Stats   *Stats

	settings config.Server
	results  *utils.Topic[SessionResult]
	finished *utils.Subscriber[SessionResult]
}

func NewServer(
	ctx context.Context,
	settings config.Server,
	clock clockwork.Clock,
) *Server {
	results := utils.NewTopic[SessionResult]()

	return &Server{
		Session:  utils.NewSession(ctx),
		Users:    NewUserOrchestrator(),
		Matches:  NewMatchmaker(settings.Matchmaking, clock, results),
		Stats:    NewStats(),
		settings: settings,
		results:  results,
		// Subscribed before any session can exist, so a session that
		// finishes before PollResults runs still reaches the ratings.
		finished: results.Subscribe(),
	}
}

// PollUsers picks up new connections from every ingress and gives each one
// its own routing goroutine.
func (server *Server) PollUsers(ctx context.Context, connections chan ingress.Connection) {
	for {
		select {
		case connection := <-connections:
			user := server.Users.AddUser(connection)
			go server.pollUser(ctx, user)
		case <-ctx.Done():
			return
		}
	}
}

func (server *Server) pollUser(ctx context.Context, user *User) {
	logger := user.Logger()
	logger.Info().Msg("user connected")

	defer func() {
		// Whatever the user was doing, connection loss settles it
		// right away.
		server.Matches.Dequeue(user)
		if session := user.GetSession(); session != nil {
			session.Disconnect(user)
		}
		server.Users.RemoveUser(user)
		logger.Info().Msg("user disconnected")
	}()

	receive := user.Connection.Receive()

	for {
		select {
		case line := <-receive:
			message, err := protocol.Decode(line)
			if err != nil {
				user.SendError(protocol.CodeBadMessage, err.Error())
				continue
			}

			server.handleMessage(ctx, user, message)
		case <-user.Context().Done():
			return
		case <-ctx.Done():
			return
		}
	}
}

// handleMessage routes one inbound message. Failures only ever go back to
// the connection that caused them.
func (server *Server) handleMessage(ctx context.Context, user *User, message protocol.Message) {
	switch message := message.(type) {
	case *protocol.Join:
		err := server.Matches.Queue(ctx, user, message.Mode)
		if err != nil {
			user.SendError(errorCode(err), err.Error())
		}
	case *protocol.Pick:
		session := user.GetSession()
		if session == nil {
			user.SendError(protocol.CodeNotInSession, "you are not in a game")
			return
		}

		err := session.Pick(user, message.Row, message.Col)
		if err != nil {
			user.SendError(errorCode(err), err.Error())
		}
	case *protocol.Leave:
		user.Connection.Disconnect("user left")
	default:
		user.SendError(protocol.CodeBadMessage, "unexpected message type")
	}
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, ErrNotYourTurn):
		return protocol.CodeNotYourTurn
	case errors.Is(err, game.ErrOutOfBounds):
		return protocol.CodeOutOfBounds
	case errors.Is(err, game.ErrAlreadyRevealed):
		return protocol.CodeAlreadyRevealed
	case errors.Is(err, ErrAlreadyQueued):
		return protocol.CodeAlreadyQueued
	case errors.Is(err, ErrAlreadyInSession):
		return protocol.CodeAlreadyInSession
	case errors.Is(err, ErrSessionFinished):
		return protocol.CodeNotInSession
	}
	return protocol.CodeBadMessage
}

// PollResults watches for finished sessions and folds them into the
// process-lifetime ratings.
func (server *Server) PollResults(ctx context.Context) {
	defer server.finished.Done()

	for {
		select {
		case result := <-server.finished.Recv():
			server.Stats.Record(result)

			for _, user := range result.Users {
				rating := server.Stats.Get(user.Reference())
				logger := user.Logger()
				logger.Info().
					Int("rating", rating.Rating).
					Int("wins", rating.Wins).
					Int("losses", rating.Losses).
					Int("draws", rating.Draws).
					Msg("rating updated")
			}
		case <-ctx.Done():
			return
		}
	}
}

func (server *Server) Shutdown() {
	server.Cancel()
}
