package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solivar/confab/internal/adapters/console"
	"github.com/solivar/confab/internal/command"
	"github.com/solivar/confab/internal/core"
	"github.com/solivar/confab/internal/domain"
)

// stubConference covers the full conference surface with no-ops and
// records the calls the connector tests care about.
type stubConference struct {
	mu         sync.Mutex
	joinCalls  int
	leaveCalls int
	observers  []core.ConferenceObserver
}

func (c *stubConference) AddCommandListener(string, command.Handler) {}
func (c *stubConference) RemoveCommand(string)                       {}
func (c *stubConference) SendCommand(string, command.Payload)        {}
func (c *stubConference) SendCommandOnce(string, command.Payload)    {}

func (c *stubConference) Join(ctx context.Context, password string) error {
	c.mu.Lock()
	c.joinCalls++
	c.mu.Unlock()
	return nil
}

func (c *stubConference) Leave(ctx context.Context) error {
	c.mu.Lock()
	c.leaveCalls++
	c.mu.Unlock()
	return nil
}

func (c *stubConference) IsJoined() bool              { return false }
func (c *stubConference) MyID() domain.ParticipantID  { return "me" }
func (c *stubConference) IsModerator() bool           { return false }
func (c *stubConference) ParticipantByID(domain.ParticipantID) (*domain.Participant, bool) {
	return nil, false
}
func (c *stubConference) Participants() []*domain.Participant { return nil }
func (c *stubConference) ParticipantCount() int               { return 0 }

func (c *stubConference) AddTrack(context.Context, core.LocalTrack) error    { return nil }
func (c *stubConference) RemoveTrack(context.Context, core.LocalTrack) error { return nil }

func (c *stubConference) SetDisplayName(string)                    {}
func (c *stubConference) SetSubject(string)                        {}
func (c *stubConference) SetStartMutedPolicy(audio, video bool)    {}
func (c *stubConference) SetLocalParticipantProperty(name, v string) {}

func (c *stubConference) KickParticipant(domain.ParticipantID)          {}
func (c *stubConference) MuteParticipant(domain.ParticipantID)          {}
func (c *stubConference) SelectParticipant(domain.ParticipantID) error  { return nil }
func (c *stubConference) PinParticipant(*domain.ParticipantID) error    { return nil }

func (c *stubConference) Dial(string) error                  { return nil }
func (c *stubConference) ToggleRecording(map[string]string)  {}
func (c *stubConference) SendTextMessage(string)             {}
func (c *stubConference) SendApplicationLog(string)          {}

func (c *stubConference) Authenticate(context.Context) error       { return nil }
func (c *stubConference) Logout(context.Context) (string, error)   { return "", nil }

func (c *stubConference) AddObserver(o core.ConferenceObserver) func() {
	c.mu.Lock()
	c.observers = append(c.observers, o)
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		for i, cur := range c.observers {
			if cur == o {
				c.observers = append(c.observers[:i], c.observers[i+1:]...)
				return
			}
		}
	}
}

func (c *stubConference) joins() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.joinCalls
}

func (c *stubConference) observerCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.observers)
}

type stubEngine struct {
	mu          sync.Mutex
	disconnects int
}

func (e *stubEngine) Connect(context.Context, core.ConnectOptions) error { return nil }
func (e *stubEngine) Disconnect(context.Context) error {
	e.mu.Lock()
	e.disconnects++
	e.mu.Unlock()
	return nil
}
func (e *stubEngine) InitConference(domain.RoomName) core.Conference            { return nil }
func (e *stubEngine) AddConnectionObserver(core.ConnectionObserver) func()      { return func() {} }

type stubEscalator struct {
	mu       sync.Mutex
	required int
	closed   int
}

func (a *stubEscalator) RequireAuth(conf core.Conference, lockPassword string) {
	a.mu.Lock()
	a.required++
	a.mu.Unlock()
}

func (a *stubEscalator) CloseAuth() {
	a.mu.Lock()
	a.closed++
	a.mu.Unlock()
}

type stubTimer struct{ stopped bool }

func (t *stubTimer) Stop() bool {
	was := t.stopped
	t.stopped = true
	return !was
}

func newTestConnector(conf *stubConference, engine *stubEngine, esc *stubEscalator, opts ConnectorOptions) *Connector {
	return NewConnector(conf, engine, console.NewUI(), esc, opts)
}

func TestConnectResolvesOnJoined(t *testing.T) {
	conf := &stubConference{}
	c := newTestConnector(conf, &stubEngine{}, &stubEscalator{}, ConnectorOptions{})

	done := make(chan error, 1)
	go func() { done <- c.Connect(context.Background()) }()

	require.Eventually(t, func() bool { return conf.observerCount() == 1 }, time.Second, time.Millisecond)
	c.ConferenceJoined()

	require.NoError(t, <-done)
	// Resolution unsubscribes the connector's own observer.
	assert.Zero(t, conf.observerCount())
}

func TestConnectRejectsOnTerminalFailure(t *testing.T) {
	conf := &stubConference{}
	c := newTestConnector(conf, &stubEngine{}, &stubEscalator{}, ConnectorOptions{})

	done := make(chan error, 1)
	go func() { done <- c.Connect(context.Background()) }()
	require.Eventually(t, func() bool { return conf.observerCount() == 1 }, time.Second, time.Millisecond)

	c.ConferenceFailed(core.NewConferenceError(core.ErrNotAllowed))

	err := <-done
	require.Error(t, err)
	var cerr *core.ConferenceError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, core.ErrNotAllowed, cerr.Code)
}

func TestAuthRequiredSchedulesSingleRetry(t *testing.T) {
	conf := &stubConference{}
	esc := &stubEscalator{}
	var timers []*stubTimer
	var fires []func()
	c := newTestConnector(conf, &stubEngine{}, esc, ConnectorOptions{
		NewTimer: func(d time.Duration, f func()) Timer {
			tm := &stubTimer{}
			timers = append(timers, tm)
			fires = append(fires, f)
			return tm
		},
	})

	done := make(chan error, 1)
	go func() { done <- c.Connect(context.Background()) }()
	require.Eventually(t, func() bool { return conf.observerCount() == 1 }, time.Second, time.Millisecond)
	joinsBefore := conf.joins()

	c.ConferenceFailed(core.NewConferenceError(core.ErrAuthenticationRequired))
	// A second failure while a retry is pending must not stack timers.
	c.ConferenceFailed(core.NewConferenceError(core.ErrAuthenticationRequired))

	require.Len(t, timers, 1)
	// The prompt fires each time; deduplication is the escalation's job.
	assert.Equal(t, 2, esc.required)

	fires[0]()
	assert.Equal(t, joinsBefore+1, conf.joins())

	c.ConferenceJoined()
	require.NoError(t, <-done)
	assert.True(t, timers[0].stopped)
}

func TestRetryDoesNothingAfterResolution(t *testing.T) {
	conf := &stubConference{}
	var fires []func()
	c := newTestConnector(conf, &stubEngine{}, &stubEscalator{}, ConnectorOptions{
		NewTimer: func(d time.Duration, f func()) Timer {
			fires = append(fires, f)
			return &stubTimer{}
		},
	})

	done := make(chan error, 1)
	go func() { done <- c.Connect(context.Background()) }()
	require.Eventually(t, func() bool { return conf.observerCount() == 1 }, time.Second, time.Millisecond)

	c.ConferenceFailed(core.NewConferenceError(core.ErrAuthenticationRequired))
	c.ConferenceJoined()
	require.NoError(t, <-done)

	joins := conf.joins()
	require.Len(t, fires, 1)
	fires[0]()
	assert.Equal(t, joins, conf.joins())
}

func TestMaxParticipantsDisconnects(t *testing.T) {
	conf := &stubConference{}
	engine := &stubEngine{}
	c := newTestConnector(conf, engine, &stubEscalator{}, ConnectorOptions{})

	done := make(chan error, 1)
	go func() { done <- c.Connect(context.Background()) }()
	require.Eventually(t, func() bool { return conf.observerCount() == 1 }, time.Second, time.Millisecond)

	c.ConferenceFailed(core.NewConferenceError(core.ErrMaxParticipants))

	require.Error(t, <-done)
	engine.mu.Lock()
	defer engine.mu.Unlock()
	assert.Equal(t, 1, engine.disconnects)
}

func TestFinishClosesAuthPromptOnce(t *testing.T) {
	conf := &stubConference{}
	esc := &stubEscalator{}
	c := newTestConnector(conf, &stubEngine{}, esc, ConnectorOptions{})

	done := make(chan error, 1)
	go func() { done <- c.Connect(context.Background()) }()
	require.Eventually(t, func() bool { return conf.observerCount() == 1 }, time.Second, time.Millisecond)

	c.ConferenceJoined()
	c.ConferenceJoined()
	require.NoError(t, <-done)

	esc.mu.Lock()
	defer esc.mu.Unlock()
	assert.Equal(t, 1, esc.closed)
}

func TestPasswordRequiredKeepsJoinPending(t *testing.T) {
	conf := &stubConference{}
	c := newTestConnector(conf, &stubEngine{}, &stubEscalator{}, ConnectorOptions{})

	done := make(chan error, 1)
	go func() { done <- c.Connect(context.Background()) }()
	require.Eventually(t, func() bool { return conf.observerCount() == 1 }, time.Second, time.Millisecond)

	c.ConferenceFailed(core.NewConferenceError(core.ErrPasswordRequired))

	// Still pending: a password retry can resolve it.
	select {
	case err := <-done:
		t.Fatalf("connect resolved early: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	require.NoError(t, c.JoinWithPassword(context.Background(), "hunter2"))
	c.ConferenceJoined()
	require.NoError(t, <-done)
}
