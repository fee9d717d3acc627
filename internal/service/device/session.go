package device

import (
	"context"
	"sync"
	"time"

	"github.com/sandevgo/tusknet/internal/core"
)

// Session owns one device connection. Commands are serialized through slot:
// holding the slot means exclusive use of conn.
type Session struct {
	id     string
	params core.ConnectionParams
	driver core.DeviceDriver

	slot chan struct{}

	mu           sync.RWMutex
	state        core.State
	conn         core.DeviceConn
	prompt       string
	connectedAt  time.Time
	lastActivity time.Time
}

func NewSession(id string, params core.ConnectionParams, driver core.DeviceDriver) *Session {
	return &Session{
		id:     id,
		params: params.WithDefaults(),
		driver: driver,
		slot:   make(chan struct{}, 1),
		state:  core.StateConnecting,
	}
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) Params() core.ConnectionParams {
	return s.params
}

func (s *Session) State() core.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

type openResult struct {
	conn core.DeviceConn
	err  error
}

type runResult struct {
	output string
	err    error
}

// Connect opens the device connection. It is a no-op on a connected session.
// When ctx ends before the driver returns, the session fails and any late
// connection is closed as soon as the driver hands it back.
func (s *Session) Connect(ctx context.Context) error {
	if s.State() == core.StateConnected {
		return nil
	}
	if err := s.acquire(ctx); err != nil {
		return err
	}

	switch state := s.State(); state {
	case core.StateConnected:
		s.release()
		return nil
	case core.StateConnecting:
	default:
		s.release()
		return core.NotConnected(s.id, state)
	}

	done := make(chan openResult, 1)
	go func() {
		conn, err := s.driver.Open(ctx, s.params)
		done <- openResult{conn: conn, err: err}
	}()

	select {
	case res := <-done:
		defer s.release()
		if res.err != nil {
			s.markFailed()
			if ctx.Err() != nil {
				closeQuietly(res.conn)
				return core.Timeout(s.id, ctx.Err())
			}
			return core.ConnectFailure(s.id, res.err)
		}

		now := time.Now()
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.state != core.StateConnecting {
			// A disconnect arrived while the driver was opening. It waits for
			// the slot and closes whatever conn it finds.
			if s.state == core.StateDisconnecting {
				s.conn = res.conn
			} else {
				closeQuietly(res.conn)
			}
			return core.NotConnected(s.id, s.state)
		}
		s.conn = res.conn
		s.prompt = res.conn.Prompt()
		s.state = core.StateConnected
		s.connectedAt = now
		s.lastActivity = now
		return nil

	case <-ctx.Done():
		s.markFailed()
		go func() {
			res := <-done
			closeQuietly(res.conn)
			s.release()
		}()
		return core.Timeout(s.id, ctx.Err())
	}
}

// Execute runs one request with exclusive access to the connection.
func (s *Session) Execute(ctx context.Context, req core.Request) (string, error) {
	if err := s.acquire(ctx); err != nil {
		return "", err
	}

	s.mu.RLock()
	state, conn := s.state, s.conn
	s.mu.RUnlock()

	if state != core.StateConnected || conn == nil {
		s.release()
		return "", core.NotConnected(s.id, state)
	}

	done := make(chan runResult, 1)
	go func() {
		out, err := conn.Run(ctx, req)
		done <- runResult{output: out, err: err}
	}()

	select {
	case res := <-done:
		defer s.release()
		if res.err == nil {
			s.touch()
			return res.output, nil
		}
		if ctx.Err() != nil {
			s.fail(conn)
			return res.output, core.Timeout(s.id, ctx.Err())
		}
		de := core.CommandFailure(s.id, res.err)
		if de.Reason == core.ReasonTransportDropped {
			s.fail(conn)
		}
		return res.output, de

	case <-ctx.Done():
		// The device stream position is unknown once a command is abandoned,
		// so the session cannot be reused.
		s.markFailed()
		go func() {
			<-done
			s.fail(conn)
			s.release()
		}()
		return "", core.Timeout(s.id, ctx.Err())
	}
}

// Disconnect closes the connection after any in-flight command completes. The
// session is gone afterwards even if closing fails; the close error is
// returned for reporting only.
func (s *Session) Disconnect(ctx context.Context) error {
	s.mu.Lock()
	if s.state == core.StateDisconnected {
		s.mu.Unlock()
		return nil
	}
	s.state = core.StateDisconnecting
	s.mu.Unlock()

	closed := make(chan error, 1)
	go func() {
		s.slot <- struct{}{}
		s.mu.Lock()
		conn := s.conn
		s.conn = nil
		s.mu.Unlock()

		var err error
		if conn != nil {
			err = conn.Close()
		}
		s.setState(core.StateDisconnected)
		<-s.slot
		closed <- err
	}()

	select {
	case err := <-closed:
		return err
	case <-ctx.Done():
		return core.Timeout(s.id, ctx.Err())
	}
}

// Describe reports the session without touching the driver.
func (s *Session) Describe() core.DeviceInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	info := core.DeviceInfo{
		DeviceID:   s.id,
		Host:       s.params.Host,
		DeviceType: s.params.DeviceType,
		Port:       s.params.Port,
		Timeout:    int(s.params.Timeout / time.Second),
		State:      s.state,
		Connected:  s.state == core.StateConnected,
		Prompt:     s.prompt,
	}
	if !s.connectedAt.IsZero() {
		connectedAt := s.connectedAt
		info.ConnectedAt = &connectedAt
	}
	if !s.lastActivity.IsZero() {
		lastActivity := s.lastActivity
		info.LastActivity = &lastActivity
	}
	return info
}

func (s *Session) acquire(ctx context.Context) error {
	select {
	case s.slot <- struct{}{}:
		return nil
	case <-ctx.Done():
		return core.Timeout(s.id, ctx.Err())
	}
}

func (s *Session) release() {
	<-s.slot
}

func (s *Session) setState(state core.State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastActivity = time.Now()
	s.mu.Unlock()
}

// markFailed never overrides a disconnect already under way.
func (s *Session) markFailed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != core.StateDisconnecting && s.state != core.StateDisconnected {
		s.state = core.StateFailed
	}
}

// fail moves the session to Failed and releases conn. Callers hold the slot.
func (s *Session) fail(conn core.DeviceConn) {
	s.markFailed()
	s.mu.Lock()
	if s.conn == conn {
		s.conn = nil
	}
	s.mu.Unlock()
	closeQuietly(conn)
}

func closeQuietly(conn core.DeviceConn) {
	if conn != nil {
		_ = conn.Close()
	}
}
