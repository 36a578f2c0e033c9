package server

import (
	"context"
	"fmt"

	"github.com/cfoust/mines/pkg/game"
	"github.com/cfoust/mines/pkg/protocol"
	"github.com/cfoust/mines/pkg/server/ingress"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sasha-s/go-deadlock"
)

// User is the server's handle for one connected player. It only lives as
// long as the connection does; there is no account behind it.
type User struct {
	Id         ingress.ClientID
	Connection ingress.Connection

	mutex deadlock.Mutex
	// Non-nil while the user is waiting for an opponent.
	queued *game.Mode
	// Non-nil while the user is playing.
	session *GameSession
}

// Valid for the duration of the user's connection.
func (u *User) Context() context.Context {
	return u.Connection.Session().Ctx()
}

func (u *User) Reference() string {
	return fmt.Sprintf("%s:%d", u.Connection.Host(), u.Id)
}

func (u *User) Logger() zerolog.Logger {
	logger := log.With().
		Uint32("client", uint32(u.Id)).
		Str("host", u.Connection.Host()).
		Logger()

	if session := u.GetSession(); session != nil {
		logger = logger.With().Str("session", session.Id.String()).Logger()
	}

	return logger
}

func (u *User) Send(message protocol.Message) error {
	data, err := protocol.Encode(message)
	if err != nil {
		return err
	}

	return u.Connection.Send(data)
}

// SendError reports a problem with this user's last message. Nothing else
// hears about it.
func (u *User) SendError(code string, message string) {
	u.Send(protocol.Error{
		Code:    code,
		Message: message,
	})
}

func (u *User) GetSession() *GameSession {
	u.mutex.Lock()
	session := u.session
	u.mutex.Unlock()
	return session
}

func (u *User) setSession(session *GameSession) {
	u.mutex.Lock()
	u.session = session
	u.queued = nil
	u.mutex.Unlock()
}

func (u *User) clearSession() {
	u.mutex.Lock()
	u.session = nil
	u.mutex.Unlock()
}

func (u *User) getQueued() *game.Mode {
	u.mutex.Lock()
	queued := u.queued
	u.mutex.Unlock()
	return queued
}

func (u *User) setQueued(mode *game.Mode) {
	u.mutex.Lock()
	u.queued = mode
	u.mutex.Unlock()
}

type UserOrchestrator struct {
	Users map[ingress.ClientID]*User
	Mutex deadlock.RWMutex

	nextId ingress.ClientID
}

func NewUserOrchestrator() *UserOrchestrator {
	return &UserOrchestrator{
		Users: make(map[ingress.ClientID]*User),
	}
}

func (o *UserOrchestrator) AddUser(connection ingress.Connection) *User {
	o.Mutex.Lock()
	defer o.Mutex.Unlock()

	o.nextId++
	user := User{
		Id:         o.nextId,
		Connection: connection,
	}
	o.Users[user.Id] = &user
	return &user
}

func (o *UserOrchestrator) RemoveUser(user *User) {
	o.Mutex.Lock()
	delete(o.Users, user.Id)
	o.Mutex.Unlock()
}
