// Package ingress accepts client connections and turns them into a stream of
// newline-delimited protocol messages, one Connection per client.
package ingress

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"time"

	"github.com/cfoust/mines/pkg/protocol"
	"github.com/cfoust/mines/pkg/utils"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// A unique identifier for this client for the lifetime of their session.
type ClientID uint32

type ClientType uint8

const (
	ClientTypeTCP = iota
	ClientTypeWS
)

const (
	CLIENT_MESSAGE_LIMIT int = 16

	// Inbound lines per second before we consider a client abusive. A
	// human playing one turn every ten seconds never gets close.
	INBOUND_RATE_LIMIT = 10
	INBOUND_RATE_BURST = 20
)

const WRITE_TIMEOUT = 5 * time.Second

type Connection interface {
	// Lasts for the duration of the client's connection to its ingress.
	Session() *utils.Session
	Host() string
	Type() ClientType
	// One encoded line going to the client. Never blocks: a client that
	// stops keeping up is disconnected instead of applying backpressure
	// to the caller.
	Send(data []byte) error
	// Lines going to the server.
	Receive() <-chan []byte
	// Forcibly disconnect this client.
	Disconnect(reason string)
}

var _ Connection = (*TCPClient)(nil)
var _ Connection = (*WSClient)(nil)

type TCPClient struct {
	session utils.Session
	host    string
	conn    net.Conn
	receive chan []byte
	send    chan []byte
}

func (c *TCPClient) Session() *utils.Session { return &c.session }
func (c *TCPClient) Host() string            { return c.host }
func (c *TCPClient) Type() ClientType        { return ClientTypeTCP }
func (c *TCPClient) Receive() <-chan []byte  { return c.receive }

func (c *TCPClient) Send(data []byte) error {
	if c.session.IsDone() {
		return fmt.Errorf("client disconnected")
	}

	select {
	case c.send <- data:
		return nil
	default:
		// The buffer is full, so the client stopped reading. Callers
		// hold locks; dropping the client here is the only option
		// that never blocks them.
		log.Warn().Str("host", c.host).Msg("disconnecting client too slow to keep up with messages")
		c.session.Cancel()
		return fmt.Errorf("client too slow to keep up with messages")
	}
}

func (c *TCPClient) Disconnect(reason string) {
	c.session.Cancel()
}

type TCPIngress struct {
	listener    net.Listener
	connections chan Connection
}

func NewTCPIngress(connections chan Connection) *TCPIngress {
	return &TCPIngress{
		connections: connections,
	}
}

func (t *TCPIngress) Serve(port int) error {
	listener, err := net.Listen("tcp", fmt.Sprintf("0.0.0.0:%d", port))
	if err != nil {
		return err
	}

	t.listener = listener
	log.Info().Msgf("listening for tcp clients on %s", listener.Addr())
	return nil
}

func (t *TCPIngress) Poll(ctx context.Context) {
	for {
		conn, err := t.listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Error().Err(err).Msg("failed to accept tcp client")
			continue
		}

		client := &TCPClient{
			session: utils.NewSession(ctx),
			host:    conn.RemoteAddr().String(),
			conn:    conn,
			receive: make(chan []byte, CLIENT_MESSAGE_LIMIT),
			send:    make(chan []byte, CLIENT_MESSAGE_LIMIT),
		}

		go client.pollWrites()
		go client.pollReads()

		t.connections <- client
	}
}

func (t *TCPIngress) Shutdown() {
	if t.listener != nil {
		t.listener.Close()
	}
}

func (c *TCPClient) pollWrites() {
	defer c.conn.Close()

	for {
		select {
		case data := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(WRITE_TIMEOUT))
			if _, err := c.conn.Write(data); err != nil {
				c.session.Cancel()
				return
			}
		case <-c.session.Ctx().Done():
			return
		}
	}
}

func (c *TCPClient) pollReads() {
	defer c.session.Cancel()

	limiter := rate.NewLimiter(rate.Limit(INBOUND_RATE_LIMIT), INBOUND_RATE_BURST)

	scanner := bufio.NewScanner(c.conn)
	scanner.Buffer(make([]byte, 0, 1024), protocol.MaxMessageSize)

	for scanner.Scan() {
		if c.session.IsDone() {
			return
		}

		if !limiter.Allow() {
			log.Warn().Str("host", c.host).Msg("disconnecting client for flooding")
			return
		}

		line := make([]byte, len(scanner.Bytes()))
		copy(line, scanner.Bytes())

		select {
		case c.receive <- line:
		case <-c.session.Ctx().Done():
			return
		}
	}
}
