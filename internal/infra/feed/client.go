package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"smart_basket/internal/domain"
	"smart_basket/internal/event"
	"smart_basket/internal/infra"

	"github.com/gorilla/websocket"
)

const (
	handshakeTimeout   = 10 * time.Second
	writeWait          = 5 * time.Second
	defaultReadTimeout = 60 * time.Second
)

// Sink receives decoded scans. It may block; ctx is cancelled on Disconnect.
type Sink func(ctx context.Context, ev event.Event) error

// Client keeps a live connection to the per-session scan feed and forwards
// every decoded scan to its sink. A closed connection is retried after the
// reconnect policy's delay; an error alone never schedules a retry.
type Client struct {
	baseURL     string
	sink        Sink
	policy      domain.ReconnectPolicy
	readTimeout time.Duration
	metrics     *infra.Metrics
	onState     func(domain.ConnectionState)

	connectMu sync.Mutex // serializes Connect and Disconnect

	mu        sync.RWMutex
	conn      *websocket.Conn
	state     domain.ConnectionState
	sessionID string
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

var _ domain.FeedClient = (*Client)(nil)

// NewClient creates a feed client with the fixed 3s reconnect delay.
func NewClient(baseURL string, sink Sink) *Client {
	return &Client{
		baseURL:     baseURL,
		sink:        sink,
		policy:      infra.FixedDelay{Wait: infra.DefaultReconnectDelay},
		readTimeout: defaultReadTimeout,
		metrics:     infra.GlobalMetrics,
		state:       domain.StateDisconnected,
	}
}

// NewClientWithConfig creates a client using the feed section of cfg.
func NewClientWithConfig(cfg *infra.Config, sink Sink, metrics *infra.Metrics) *Client {
	c := NewClient(cfg.Feed.URL, sink)
	c.policy = cfg.ReconnectPolicy()
	c.readTimeout = cfg.ReadTimeout()
	if metrics != nil {
		c.metrics = metrics
	}
	return c
}

// SetPolicy replaces the reconnect policy. Takes effect on the next Connect.
func (c *Client) SetPolicy(p domain.ReconnectPolicy) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.policy = p
}

// SetReadTimeout sets the idle read deadline; 0 disables it and the ping loop.
func (c *Client) SetReadTimeout(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.readTimeout = d
}

// OnStateChange registers a listener called on every state transition.
func (c *Client) OnStateChange(fn func(domain.ConnectionState)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onState = fn
}

// Connect opens the feed for sessionID and keeps it open until Disconnect or
// ctx is done. A previous connection loop is stopped first, pending retry included.
func (c *Client) Connect(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return &domain.ValidationError{Field: "session_id", Err: errors.New("required")}
	}

	c.connectMu.Lock()
	defer c.connectMu.Unlock()

	c.stopLoop()

	ctx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	c.cancel = cancel
	c.sessionID = sessionID
	policy := c.policy
	c.mu.Unlock()

	c.setState(domain.StateConnecting)

	c.wg.Add(1)
	go c.connectionLoop(ctx, sessionID, policy)
	return nil
}

// connectionLoop dials, reads until the connection closes, then waits one
// policy delay before dialing again.
func (c *Client) connectionLoop(ctx context.Context, sessionID string, policy domain.ReconnectPolicy) {
	defer c.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Feed panic recovered", slog.Any("panic", r))
		}
	}()

	attempt := 0
	for {
		select {
		case <-ctx.Done():
			slog.Info("Feed connection loop stopped")
			return
		default:
		}

		c.setState(domain.StateConnecting)
		if err := c.connect(ctx, sessionID); err != nil {
			if ctx.Err() != nil {
				c.setState(domain.StateDisconnected)
				return
			}
			slog.Warn("Feed connection failed",
				slog.Any("error", err),
				slog.Int("retry", attempt),
			)
			c.recordError()
			c.setState(domain.StateError)
			c.setState(domain.StateDisconnected)
		} else {
			attempt = 0
			c.readLoop(ctx)
			if ctx.Err() != nil {
				return
			}
		}

		attempt++
		if limit := policy.MaxRetries(); limit > 0 && attempt > limit {
			slog.Error("Feed max retries exceeded, giving up", slog.Int("retries", limit))
			return
		}

		delay := policy.Delay(attempt - 1)
		if c.metrics != nil {
			c.metrics.RecordReconnect()
		}
		slog.Info("Feed reconnect scheduled", slog.Duration("delay", delay))

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// connect establishes the WebSocket connection for one session
func (c *Client) connect(ctx context.Context, sessionID string) error {
	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}

	header := make(http.Header)
	header.Add("User-Agent", "smart-basket-terminal")

	conn, _, err := dialer.DialContext(ctx, sessionURL(c.baseURL, sessionID), header)
	if err != nil {
		return domain.NewNetworkError("dial", fmt.Errorf("%w: %v", domain.ErrConnectionFailed, err))
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.IncrementConnections()
	}
	c.setState(domain.StateConnected)
	slog.Info("Feed connected", slog.String("session", sessionID))
	return nil
}

// readLoop reads messages until the connection ends
func (c *Client) readLoop(ctx context.Context) {
	c.mu.RLock()
	conn := c.conn
	readTimeout := c.readTimeout
	c.mu.RUnlock()

	if conn == nil {
		return
	}

	// A blocked ReadMessage only returns once the socket is closed.
	stop := context.AfterFunc(ctx, c.closeConnection)
	defer stop()

	connCtx, connCancel := context.WithCancel(ctx)
	defer connCancel()

	if readTimeout > 0 {
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(readTimeout))
		})
		go c.pingLoop(connCtx, conn, readTimeout/2)
	}

	for {
		if readTimeout > 0 {
			conn.SetReadDeadline(time.Now().Add(readTimeout))
		}

		_, msg, err := conn.ReadMessage()
		if err != nil {
			c.handleReadError(ctx, err)
			return
		}
		c.handleMessage(ctx, msg)
	}
}

func (c *Client) pingLoop(ctx context.Context, conn *websocket.Conn, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

// handleReadError maps a read failure to state transitions.
// A close frame from the peer is a plain close. A dropped socket (1006),
// a read timeout or any other failure is an error followed by a close.
func (c *Client) handleReadError(ctx context.Context, err error) {
	c.closeConnection()
	if c.metrics != nil {
		c.metrics.DecrementConnections()
	}

	if ctx.Err() == nil {
		var closeErr *websocket.CloseError
		if errors.As(err, &closeErr) && closeErr.Code != websocket.CloseAbnormalClosure {
			slog.Info("Feed closed by peer",
				slog.Int("code", closeErr.Code),
				slog.String("reason", closeErr.Text),
			)
		} else {
			slog.Warn("Feed read error", slog.Any("error", domain.NewNetworkError("read", err)))
			c.recordError()
			c.setState(domain.StateError)
		}
	}
	c.setState(domain.StateDisconnected)
}

// handleMessage decodes one payload and hands it to the sink.
// Malformed payloads are logged and dropped.
func (c *Client) handleMessage(ctx context.Context, msg []byte) {
	ev, err := decodeScan(msg)
	if err != nil {
		if c.metrics != nil {
			c.metrics.RecordDecodeError()
		}
		slog.Warn("Feed message dropped", slog.Any("error", err), slog.Int("bytes", len(msg)))
		return
	}

	slog.Info("Item received", slog.String("item", ev.Name), slog.String("price", ev.Price.String()))

	if c.sink == nil {
		event.ReleaseScanEvent(ev)
		return
	}
	if err := c.sink(ctx, ev); err != nil {
		slog.Warn("Scan not delivered", slog.String("item", ev.Name), slog.Any("error", err))
		event.ReleaseScanEvent(ev)
	}
}

func (c *Client) recordError() {
	if c.metrics != nil {
		c.metrics.RecordError()
	}
}

func (c *Client) setState(s domain.ConnectionState) {
	c.mu.Lock()
	if c.state == s {
		c.mu.Unlock()
		return
	}
	prev := c.state
	c.state = s
	listener := c.onState
	c.mu.Unlock()

	slog.Debug("Feed state changed", slog.String("from", prev.String()), slog.String("to", s.String()))
	if listener != nil {
		listener(s)
	}
}

// closeConnection safely closes the WebSocket connection
func (c *Client) closeConnection() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

// stopLoop cancels the running loop, if any, and waits for it to exit.
func (c *Client) stopLoop() {
	c.mu.Lock()
	cancel := c.cancel
	c.cancel = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	c.closeConnection()
	c.wg.Wait()
}

// Disconnect closes the feed and cancels any pending reconnect.
func (c *Client) Disconnect() {
	c.connectMu.Lock()
	defer c.connectMu.Unlock()

	c.stopLoop()
	c.setState(domain.StateDisconnected)
	slog.Info("Feed disconnected")
}

// State returns the current connection state.
func (c *Client) State() domain.ConnectionState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// IsConnected returns connection status
func (c *Client) IsConnected() bool {
	return c.State() == domain.StateConnected
}

// SessionID returns the session of the current or last connection.
func (c *Client) SessionID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sessionID
}
