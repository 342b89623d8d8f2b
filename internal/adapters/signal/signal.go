// Package signal implements the signaling engine over a websocket
// connection: connection lifecycle, the conference room handle with its
// participant registry, and the command channel persistence.
package signal

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/solivar/confab/internal/core"
	"github.com/solivar/confab/internal/domain"
)

var ErrBackpressure = errors.New("backpressure")

// wsConn wraps the websocket with a buffered send queue. TrySend drops
// on backpressure instead of blocking the caller.
type wsConn struct {
	conn *websocket.Conn
	send chan []byte

	mu     sync.RWMutex
	closed bool
}

func (c *wsConn) TrySend(data []byte) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errors.New("connection closed")
	}
	select {
	case c.send <- data:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *wsConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

// Client is the websocket signaling client. One Client carries at most
// one connection and one conference handle at a time.
type Client struct {
	serverURL  string
	pingPeriod time.Duration

	mu        sync.RWMutex
	conn      *wsConn
	cancel    context.CancelFunc
	conf      *conference
	connObs   map[int]core.ConnectionObserver
	nextObsID int
}

func NewClient(serverURL string, pingPeriod time.Duration) *Client {
	if pingPeriod == 0 {
		pingPeriod = 25 * time.Second
	}
	return &Client{
		serverURL:  serverURL,
		pingPeriod: pingPeriod,
		connObs:    make(map[int]core.ConnectionObserver),
	}
}

// Connect dials the signaling server and starts the IO pumps.
func (cl *Client) Connect(ctx context.Context, opts core.ConnectOptions) error {
	log.Info().Str("module", "signal").Str("url", cl.serverURL).Msg("dialing")

	header := http.Header{}
	if opts.ID != "" {
		header.Set("Authorization", "Bearer "+opts.ID+":"+opts.Password)
	}
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, cl.serverURL, header)
	if err != nil {
		return &core.ConnectionError{Code: core.ErrOtherError, Msg: err.Error()}
	}

	conn := &wsConn{
		conn: ws,
		send: make(chan []byte, 32),
	}

	runCtx, cancel := context.WithCancel(context.Background())
	cl.mu.Lock()
	cl.conn = conn
	cl.cancel = cancel
	cl.mu.Unlock()

	go cl.writePump(runCtx, conn)
	go cl.readPump(runCtx, conn)
	go cl.pingLoop(runCtx, conn)

	for _, o := range cl.observersSnapshot() {
		o.ConnectionEstablished()
	}
	return nil
}

func (cl *Client) Disconnect(ctx context.Context) error {
	cl.mu.Lock()
	conn := cl.conn
	cancel := cl.cancel
	cl.conn = nil
	cl.cancel = nil
	cl.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		conn.Close()
	}
	return nil
}

// InitConference binds a fresh conference handle for room to this
// connection. The handle replaces any previous one.
func (cl *Client) InitConference(room domain.RoomName) core.Conference {
	conf := newConference(cl, room)
	cl.mu.Lock()
	cl.conf = conf
	cl.mu.Unlock()
	return conf
}

func (cl *Client) AddConnectionObserver(o core.ConnectionObserver) func() {
	cl.mu.Lock()
	id := cl.nextObsID
	cl.nextObsID++
	cl.connObs[id] = o
	cl.mu.Unlock()
	return func() {
		cl.mu.Lock()
		delete(cl.connObs, id)
		cl.mu.Unlock()
	}
}

func (cl *Client) observersSnapshot() []core.ConnectionObserver {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	out := make([]core.ConnectionObserver, 0, len(cl.connObs))
	for _, o := range cl.connObs {
		out = append(out, o)
	}
	return out
}

func (cl *Client) currentConn() *wsConn {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return cl.conn
}

func (cl *Client) currentConf() *conference {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return cl.conf
}

// connectionDropped reports an unexpected transport loss to the
// connection observers.
func (cl *Client) connectionDropped(err error) {
	cerr := &core.ConnectionError{Code: core.ErrConnectionDropped, Msg: err.Error()}
	for _, o := range cl.observersSnapshot() {
		o.ConnectionFailed(cerr)
	}
}
