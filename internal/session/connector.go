package session

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/solivar/confab/internal/core"
)

// AuthEscalator drives the out-of-band authentication flow while the
// connector keeps retrying the join.
type AuthEscalator interface {
	RequireAuth(conf core.Conference, lockPassword string)
	CloseAuth()
}

// Timer is the cancellable scheduled-call handle the connector uses for
// the auth-required rejoin retry. Injectable for tests.
type Timer interface {
	Stop() bool
}

type realTimer struct{ *time.Timer }

func newRealTimer(d time.Duration, f func()) Timer {
	return realTimer{time.AfterFunc(d, f)}
}

// Connector walks Connecting -> Joining -> Joined and owns the failure
// branches of the join. It resolves exactly once; on any resolution all
// listeners it registered are unsubscribed and a pending retry timer is
// cancelled. Both are idempotent.
type Connector struct {
	conf   core.Conference
	engine core.Engine
	ui     core.UINotifier
	auth   AuthEscalator

	lockPassword string
	retryDelay   time.Duration
	newTimer     func(d time.Duration, f func()) Timer
	reload       func()

	mu        sync.Mutex
	resolved  bool
	retry     Timer
	removeObs func()
	result    chan error

	core.BaseConferenceObserver
}

type ConnectorOptions struct {
	// LockPassword is handed to the auth escalation so a rejoin after
	// authentication can still enter a locked room.
	LockPassword string
	RetryDelay   time.Duration
	// Reload requests a full process restart; used when no in-session
	// remediation is possible.
	Reload func()
	// NewTimer overrides the retry timer construction in tests.
	NewTimer func(d time.Duration, f func()) Timer
}

func NewConnector(conf core.Conference, engine core.Engine, ui core.UINotifier, auth AuthEscalator, opts ConnectorOptions) *Connector {
	c := &Connector{
		conf:         conf,
		engine:       engine,
		ui:           ui,
		auth:         auth,
		lockPassword: opts.LockPassword,
		retryDelay:   opts.RetryDelay,
		newTimer:     opts.NewTimer,
		reload:       opts.Reload,
		result:       make(chan error, 1),
	}
	if c.retryDelay == 0 {
		c.retryDelay = 5 * time.Second
	}
	if c.newTimer == nil {
		c.newTimer = newRealTimer
	}
	if c.reload == nil {
		c.reload = func() { log.Warn().Str("module", "session").Msg("reload requested but no reloader wired") }
	}
	return c
}

// Connect joins the conference and blocks until the session is fully
// joined or a terminal failure occurs.
func (c *Connector) Connect(ctx context.Context) error {
	c.mu.Lock()
	c.removeObs = c.conf.AddObserver(c)
	c.mu.Unlock()

	if err := c.conf.Join(ctx, c.lockPassword); err != nil {
		c.reject(err)
	}

	select {
	case err := <-c.result:
		return err
	case <-ctx.Done():
		c.reject(ctx.Err())
		return ctx.Err()
	}
}

// JoinWithPassword retries the join with a password obtained from the
// user after a password-required failure.
func (c *Connector) JoinWithPassword(ctx context.Context, password string) error {
	c.mu.Lock()
	if c.resolved {
		c.mu.Unlock()
		return nil
	}
	c.lockPassword = password
	c.mu.Unlock()
	return c.conf.Join(ctx, password)
}

func (c *Connector) ConferenceJoined() {
	c.resolve()
}

func (c *Connector) ConferenceErrored(err *core.ConferenceError) {
	log.Error().Str("module", "session").Str("code", string(err.Code)).Msg("conference error")
	if err.Code == core.ErrChatError {
		c.ui.NotifyChatError(err.Param(0), err.Param(1))
	}
}

func (c *Connector) ConferenceFailed(err *core.ConferenceError) {
	log.Error().Str("module", "session").Str("code", string(err.Code)).Strs("params", err.Params).Msg("conference failed")

	switch err.Code {
	case core.ErrPasswordRequired:
		// Surfaced to the user; the join stays pending until they submit.
		c.ui.PromptPassword()

	case core.ErrAuthenticationRequired:
		// Schedule a single rejoin in case someone else creates the room,
		// and concurrently prompt out-of-band authentication.
		c.scheduleRetry()
		c.auth.RequireAuth(c.conf, c.lockPassword)

	case core.ErrConnectionError:
		c.ui.NotifyConnectionFailed(&core.ConnectionError{Code: core.ErrOtherError, Msg: err.Param(0)})
		c.reject(err)

	case core.ErrNotAllowed:
		c.ui.NotifyTokenAuthFailed()
		c.reject(err)

	case core.ErrReservationError:
		c.ui.NotifyReservationError(err.Param(0), err.Param(1))
		c.reject(err)

	case core.ErrGracefulShutdown:
		c.ui.NotifyGracefulShutdown()
		c.reject(err)

	case core.ErrFatalProtocolError:
		c.ui.NotifyInternalError()
		c.reject(err)

	case core.ErrConferenceDestroyed:
		c.ui.NotifyConferenceDestroyed(err.Param(0))
		c.reject(err)

	case core.ErrFocusDisconnected:
		// The coordinator is away but the engine retries on its own.
		c.ui.NotifyFocusDisconnected(err.Param(0), err.Param(1))

	case core.ErrFocusLeft, core.ErrBridgeUnavailable:
		// Unrecoverable at this layer: tear the connection down ourselves
		// and ask for a reload.
		ctx := context.Background()
		if lerr := c.conf.Leave(ctx); lerr != nil {
			log.Warn().Err(lerr).Str("module", "session").Msg("leave on focus failure")
		}
		if derr := c.engine.Disconnect(ctx); derr != nil {
			log.Warn().Err(derr).Str("module", "session").Msg("disconnect on focus failure")
		}
		c.ui.ShowPageReloadOverlay(false, err.Error())
		c.reject(err)

	case core.ErrMaxParticipants:
		if derr := c.engine.Disconnect(context.Background()); derr != nil {
			log.Warn().Err(derr).Str("module", "session").Msg("disconnect on capacity failure")
		}
		c.ui.NotifyMaxUsersLimitReached()
		c.reject(err)

	case core.ErrIncompatibleVersion:
		c.reload()
		c.reject(err)

	default:
		c.reject(err)
	}
}

func (c *Connector) scheduleRetry() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.resolved || c.retry != nil {
		return
	}
	c.retry = c.newTimer(c.retryDelay, func() {
		c.mu.Lock()
		done := c.resolved
		c.mu.Unlock()
		if done {
			return
		}
		log.Info().Str("module", "session").Msg("retrying join after authentication-required")
		if err := c.conf.Join(context.Background(), c.lockPassword); err != nil {
			c.reject(err)
		}
	})
}

func (c *Connector) resolve() {
	c.finish(nil)
}

func (c *Connector) reject(err error) {
	c.finish(err)
}

// finish unsubscribes listeners, cancels the pending retry and delivers
// the result. Safe to call more than once; only the first call wins.
func (c *Connector) finish(err error) {
	c.mu.Lock()
	if c.resolved {
		c.mu.Unlock()
		return
	}
	c.resolved = true
	remove := c.removeObs
	retry := c.retry
	c.removeObs = nil
	c.retry = nil
	c.mu.Unlock()

	if retry != nil {
		retry.Stop()
	}
	if remove != nil {
		remove()
	}
	c.auth.CloseAuth()
	c.result <- err
}
