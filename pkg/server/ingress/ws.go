package ingress

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/cfoust/mines/pkg/utils"

	"github.com/rs/zerolog/log"
	"github.com/sasha-s/go-deadlock"
	"golang.org/x/time/rate"
	"nhooyr.io/websocket"
)

// One protocol message per text frame; the newline delimiter is implied by
// the framing.
type WSClient struct {
	session utils.Session
	host    string
	receive chan []byte
	send    chan []byte
}

func (c *WSClient) Session() *utils.Session { return &c.session }
func (c *WSClient) Host() string            { return c.host }
func (c *WSClient) Type() ClientType        { return ClientTypeWS }
func (c *WSClient) Receive() <-chan []byte  { return c.receive }

func (c *WSClient) Send(data []byte) error {
	if c.session.IsDone() {
		return fmt.Errorf("client disconnected")
	}

	select {
	case c.send <- data:
		return nil
	default:
		log.Warn().Str("host", c.host).Msg("disconnecting ws client too slow to keep up with messages")
		c.session.Cancel()
		return fmt.Errorf("client too slow to keep up with messages")
	}
}

func (c *WSClient) Disconnect(reason string) {
	c.session.Cancel()
}

type WSIngress struct {
	connections chan Connection
	clients     map[*WSClient]struct{}
	mutex       deadlock.Mutex
}

func NewWSIngress(connections chan Connection) *WSIngress {
	return &WSIngress{
		connections: connections,
		clients:     make(map[*WSClient]struct{}),
	}
}

func (server *WSIngress) AddClient(s *WSClient) {
	server.mutex.Lock()
	server.clients[s] = struct{}{}
	server.mutex.Unlock()
}

func (server *WSIngress) RemoveClient(client *WSClient) {
	server.mutex.Lock()
	delete(server.clients, client)
	server.mutex.Unlock()
}

func WriteTimeout(ctx context.Context, timeout time.Duration, c *websocket.Conn, msg []byte) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.Write(ctx, websocket.MessageText, msg)
}

func (server *WSIngress) HandleClient(ctx context.Context, c *websocket.Conn, host string) error {
	client := &WSClient{
		session: utils.NewSession(ctx),
		host:    host,
		receive: make(chan []byte, CLIENT_MESSAGE_LIMIT),
		send:    make(chan []byte, CLIENT_MESSAGE_LIMIT),
	}

	server.AddClient(client)
	defer server.RemoveClient(client)
	defer client.session.Cancel()

	logger := log.With().Str("host", host).Logger()
	logger.Info().Msg("ws client joined")

	clientCtx := client.session.Ctx()

	go func() {
		for {
			select {
			case data := <-client.send:
				err := WriteTimeout(clientCtx, WRITE_TIMEOUT, c, data)
				if err != nil {
					client.session.Cancel()
					return
				}
			case <-clientCtx.Done():
				return
			}
		}
	}()

	go func() {
		defer client.session.Cancel()

		limiter := rate.NewLimiter(rate.Limit(INBOUND_RATE_LIMIT), INBOUND_RATE_BURST)

		for {
			typ, message, err := c.Read(clientCtx)
			if err != nil {
				return
			}
			if typ != websocket.MessageText {
				continue
			}

			if !limiter.Allow() {
				logger.Warn().Msg("disconnecting ws client for flooding")
				c.Close(websocket.StatusPolicyViolation, "too many messages")
				return
			}

			select {
			case client.receive <- message:
			case <-clientCtx.Done():
				return
			}
		}
	}()

	server.connections <- client

	<-clientCtx.Done()
	c.Close(websocket.StatusNormalClosure, "")
	logger.Info().Msg("ws client left")
	return nil
}

func (server *WSIngress) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		log.Error().Err(err).Msg("error accepting client connection")
		return
	}

	defer c.Close(websocket.StatusInternalError, "operational fault during relay")

	err = server.HandleClient(r.Context(), c, r.RemoteAddr)
	if err != nil {
		log.Error().Err(err).Msg("error handling ws client")
	}
}

func (server *WSIngress) Shutdown() {
	server.mutex.Lock()
	for client := range server.clients {
		client.session.Cancel()
	}
	server.mutex.Unlock()
}
