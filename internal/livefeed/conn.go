package livefeed

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/kingrea/lattice-monitor/internal/logging"
)

// ErrAlreadyRunning is returned when Run is called while a previous Run is live.
var ErrAlreadyRunning = errors.New("livefeed: already running")

const pingPayload = "ping"

// FrameHandler consumes raw inbound text frames.
type FrameHandler interface {
	HandleFrame(raw []byte) error
}

// StateSink is told when the connection opens and closes.
type StateSink interface {
	SetConnected(connected bool)
}

// Dialer opens websocket connections. *websocket.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, urlStr string, requestHeader http.Header) (*websocket.Conn, *http.Response, error)
}

// Journal receives user-facing connection notices.
type Journal interface {
	Info(format string, args ...any)
	Warn(format string, args ...any)
}

// Option customizes Conn construction.
type Option func(*Conn)

// WithDialer overrides the websocket dialer.
func WithDialer(d Dialer) Option {
	return func(c *Conn) {
		if d != nil {
			c.dialer = d
		}
	}
}

// WithLogger injects the diagnostic logger.
func WithLogger(l *logging.Logger) Option {
	return func(c *Conn) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithJournal records connection transitions in the activity journal.
func WithJournal(j Journal) Option {
	return func(c *Conn) {
		c.journal = j
	}
}

// WithAfter replaces time.After for the reconnect wait (tests drive it by hand).
func WithAfter(after func(time.Duration) <-chan time.Time) Option {
	return func(c *Conn) {
		if after != nil {
			c.after = after
		}
	}
}

// Conn is the live connection manager. It keeps exactly one websocket open to
// the backend, hands every inbound frame to the handler in arrival order, and
// after any close waits a fixed delay before dialing again, forever.
type Conn struct {
	settings Settings
	handler  FrameHandler
	state    StateSink
	dialer   Dialer
	logger   *logging.Logger
	journal  Journal
	after    func(time.Duration) <-chan time.Time

	running atomic.Bool
	dials   atomic.Int64
}

// New builds a connection manager. handler and state must not be nil.
func New(settings Settings, handler FrameHandler, state StateSink, opts ...Option) *Conn {
	settings.normalize()
	c := &Conn{
		settings: settings,
		handler:  handler,
		state:    state,
		dialer:   &websocket.Dialer{Proxy: http.ProxyFromEnvironment, HandshakeTimeout: settings.HandshakeTimeout},
		logger:   logging.Discard(),
		after:    time.After,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Dials reports how many connection attempts have been made.
func (c *Conn) Dials() int64 {
	return c.dials.Load()
}

// Run connects and reconnects until ctx is cancelled. Cancellation closes the
// socket and abandons any pending reconnect wait; Run then returns nil.
func (c *Conn) Run(ctx context.Context) error {
	if !c.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer c.running.Store(false)

	for {
		err := c.session(ctx)
		if ctx.Err() != nil {
			return nil
		}
		c.logger.Debug("live feed closed", "url", c.settings.URL, "err", err, "reconnect_in", c.settings.ReconnectDelay)
		select {
		case <-ctx.Done():
			return nil
		case <-c.after(c.settings.ReconnectDelay):
		}
	}
}

// session runs one dial-read cycle and always leaves the state disconnected.
func (c *Conn) session(ctx context.Context) error {
	c.dials.Add(1)
	connID := uuid.NewString()
	header := http.Header{}
	header.Set("X-Request-ID", connID)

	dialCtx, cancel := context.WithTimeout(ctx, c.settings.HandshakeTimeout)
	ws, resp, err := c.dialer.DialContext(dialCtx, c.settings.URL, header)
	cancel()
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		c.state.SetConnected(false)
		return fmt.Errorf("livefeed: dial %s: %w", c.settings.URL, err)
	}

	c.state.SetConnected(true)
	c.logger.Info("live feed connected", "url", c.settings.URL, "conn_id", connID)
	if c.journal != nil {
		c.journal.Info("live feed connected to %s", c.settings.URL)
	}

	var closeOnce sync.Once
	forceClose := func() {
		closeOnce.Do(func() { _ = ws.Close() })
	}
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		select {
		case <-ctx.Done():
			deadline := time.Now().Add(c.settings.WriteTimeout)
			_ = ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
			forceClose()
		case <-done:
		}
	}()
	if c.settings.PingInterval > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.keepalive(ws, done, forceClose)
		}()
	}

	err = c.readLoop(ws)
	close(done)
	forceClose()
	wg.Wait()

	c.state.SetConnected(false)
	c.logger.Info("live feed disconnected", "conn_id", connID, "err", err)
	if c.journal != nil && ctx.Err() == nil {
		c.journal.Warn("live feed lost, retrying in %s", c.settings.ReconnectDelay)
	}
	return err
}

func (c *Conn) readLoop(ws *websocket.Conn) error {
	for {
		kind, data, err := ws.ReadMessage()
		if err != nil {
			return err
		}
		if kind != websocket.TextMessage && kind != websocket.BinaryMessage {
			continue
		}
		if err := c.handler.HandleFrame(data); err != nil {
			c.logger.Debug("live feed frame dropped", "err", err, "bytes", len(data))
		}
	}
}

// keepalive is the only writer besides the close handshake; gorilla allows one
// concurrent writer plus WriteControl.
func (c *Conn) keepalive(ws *websocket.Conn, done <-chan struct{}, forceClose func()) {
	ticker := time.NewTicker(c.settings.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			_ = ws.SetWriteDeadline(time.Now().Add(c.settings.WriteTimeout))
			if err := ws.WriteMessage(websocket.TextMessage, []byte(pingPayload)); err != nil {
				c.logger.Debug("live feed ping failed", "err", err)
				forceClose()
				return
			}
		}
	}
}
