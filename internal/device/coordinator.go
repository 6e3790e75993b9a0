package device

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// DefaultReconnectMax caps the reconnect backoff, in seconds.
const DefaultReconnectMax = 30

// Coordinator owns the reconnect policy for one session. The session itself
// only signals that it lost its connection; all retry and backoff decisions
// live here so the session's state machine stays small.
type Coordinator struct {
	session      *Session
	reconnectMax int // max backoff in seconds

	reconnecting atomic.Bool
	done         chan struct{}

	sleep func(time.Duration)
}

// NewCoordinator wraps a session with automatic reconnection.
func NewCoordinator(session *Session, reconnectMax int) *Coordinator {
	if reconnectMax <= 0 {
		reconnectMax = DefaultReconnectMax
	}
	return &Coordinator{
		session:      session,
		reconnectMax: reconnectMax,
		done:         make(chan struct{}),
		sleep:        time.Sleep,
	}
}

// Session returns the managed session.
func (c *Coordinator) Session() *Session { return c.session }

// Start connects the session and arms the reconnect loop for later drops.
func (c *Coordinator) Start(ctx context.Context) error {
	c.session.OnDisconnect(func() {
		go c.reconnectLoop()
	})
	return c.session.Connect(ctx)
}

// Stop shuts the reconnect loop down and disconnects the session.
func (c *Coordinator) Stop() {
	select {
	case <-c.done:
	default:
		close(c.done)
	}
	c.session.Disconnect()
}

// reconnectLoop retries with exponential backoff until the session connects
// or Stop is called. Only one loop runs at a time.
func (c *Coordinator) reconnectLoop() {
	if !c.reconnecting.CompareAndSwap(false, true) {
		return
	}
	defer c.reconnecting.Store(false)

	for attempt := 0; ; attempt++ {
		select {
		case <-c.done:
			return
		default:
		}

		// On the first attempt, try immediately; subsequent attempts back off.
		if attempt > 0 {
			delay := backoffDelay(attempt-1, c.reconnectMax)
			slog.Info("[device] reconnect backoff", "name", c.session.Name(), "attempt", attempt+1, "delay", delay)
			c.sleep(delay)
		}

		if err := c.session.Connect(context.Background()); err != nil {
			slog.Warn("[device] reconnect failed", "name", c.session.Name(), "error", err, "attempt", attempt+1)
			continue
		}
		slog.Info("[device] reconnected", "name", c.session.Name())
		return
	}
}

// backoffDelay returns the reconnection delay for attempt n, capped at maxSeconds.
func backoffDelay(attempt int, maxSeconds int) time.Duration {
	delay := time.Duration(1<<uint(attempt)) * time.Second
	max := time.Duration(maxSeconds) * time.Second
	if delay > max {
		return max
	}
	return delay
}
