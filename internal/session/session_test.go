package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solivar/confab/internal/adapters/console"
	"github.com/solivar/confab/internal/config"
	"github.com/solivar/confab/internal/core"
	"github.com/solivar/confab/internal/domain"
)

// orderedTrack logs its lifecycle into a shared step list so tests can
// assert call ordering across tracks and the conference.
type orderedTrack struct {
	name  string
	kind  domain.TrackKind
	muted bool
	steps *[]string
	mu    *sync.Mutex

	disposed  bool
	onStopped func()
}

func (t *orderedTrack) log(step string) {
	t.mu.Lock()
	*t.steps = append(*t.steps, t.name+":"+step)
	t.mu.Unlock()
}

func (t *orderedTrack) ID() string             { return t.name }
func (t *orderedTrack) Kind() domain.TrackKind { return t.kind }
func (t *orderedTrack) DeviceID() string       { return "" }
func (t *orderedTrack) IsMuted() bool          { return t.muted }

func (t *orderedTrack) Mute(ctx context.Context) error {
	t.muted = true
	t.log("mute")
	return nil
}

func (t *orderedTrack) Unmute(ctx context.Context) error {
	t.muted = false
	t.log("unmute")
	return nil
}

func (t *orderedTrack) Dispose(ctx context.Context) error {
	if t.disposed {
		return core.ErrTrackDisposed
	}
	t.disposed = true
	t.log("dispose")
	return nil
}

func (t *orderedTrack) OnStalled(func())  {}
func (t *orderedTrack) OnStopped(f func()) { t.onStopped = f }

// trackingConference records AddTrack/RemoveTrack into the shared steps.
type trackingConference struct {
	stubConference
	steps *[]string
	mu    *sync.Mutex
}

func (c *trackingConference) AddTrack(ctx context.Context, t core.LocalTrack) error {
	c.mu.Lock()
	*c.steps = append(*c.steps, t.ID()+":attach")
	c.mu.Unlock()
	return nil
}

func newTestSession(conf core.Conference) *Session {
	return New("room", Deps{
		Engine:   &stubEngine{},
		Conf:     conf,
		UI:       console.NewUI(),
		API:      noopAPI{},
		Settings: &memSettings{},
		Capture:  nil,
		Factory:  nil,
		Auth:     &stubEscalator{},
		Cfg:      &config.Config{},
	})
}

type noopAPI struct{}

func (noopAPI) NotifyConferenceJoined(domain.RoomName)  {}
func (noopAPI) NotifyConferenceLeft(domain.RoomName)    {}
func (noopAPI) NotifyUserJoined(domain.ParticipantID)   {}
func (noopAPI) NotifyUserLeft(domain.ParticipantID)     {}
func (noopAPI) NotifySendingChatMessage(string)         {}
func (noopAPI) NotifyReceivedChatMessage(id domain.ParticipantID, displayName, text string, ts time.Time) {
}
func (noopAPI) NotifyDisplayNameChanged(domain.ParticipantID, string) {}
func (noopAPI) NotifyReadyToClose()                                   {}

type memSettings struct {
	displayName string
	email       string
}

func (s *memSettings) DisplayName() string                    { return s.displayName }
func (s *memSettings) SetDisplayName(name string)             { s.displayName = name }
func (s *memSettings) Email() string                          { return s.email }
func (s *memSettings) SetEmail(email string)                  { s.email = email }
func (s *memSettings) AvatarID() string                       { return "" }
func (s *memSettings) AvatarURL() string                      { return "" }
func (s *memSettings) CameraDeviceID() string                 { return "" }
func (s *memSettings) SetCameraDeviceID(string, bool)         {}
func (s *memSettings) MicDeviceID() string                    { return "" }
func (s *memSettings) SetMicDeviceID(string, bool)            {}
func (s *memSettings) AudioOutputDeviceID() string            { return "" }
func (s *memSettings) SetAudioOutputDeviceID(string) error    { return nil }

func TestSetLocalTrackDisposesOldBeforeAttachingNew(t *testing.T) {
	var steps []string
	var mu sync.Mutex
	conf := &trackingConference{steps: &steps, mu: &mu}
	s := newTestSession(conf)

	first := &orderedTrack{name: "cam1", kind: domain.TrackVideo, steps: &steps, mu: &mu}
	second := &orderedTrack{name: "cam2", kind: domain.TrackVideo, steps: &steps, mu: &mu}

	require.NoError(t, s.SetLocalTrack(context.Background(), domain.TrackVideo, first))
	require.NoError(t, s.SetLocalTrack(context.Background(), domain.TrackVideo, second))

	assert.Equal(t, []string{"cam1:attach", "cam1:dispose", "cam2:attach"}, steps)
}

func TestSetLocalTrackNilClearsSlot(t *testing.T) {
	var steps []string
	var mu sync.Mutex
	conf := &trackingConference{steps: &steps, mu: &mu}
	s := newTestSession(conf)

	desktop := &orderedTrack{name: "desk", kind: domain.TrackDesktop, steps: &steps, mu: &mu}
	require.NoError(t, s.SetLocalTrack(context.Background(), domain.TrackVideo, desktop))
	assert.True(t, s.IsSharingScreen())

	require.NoError(t, s.SetLocalTrack(context.Background(), domain.TrackVideo, nil))
	assert.False(t, s.IsSharingScreen())
	assert.False(t, s.IsLocalVideoMuted())
	assert.True(t, desktop.disposed)
}

func TestSetLocalTrackAdoptsTrackMuteState(t *testing.T) {
	var steps []string
	var mu sync.Mutex
	conf := &trackingConference{steps: &steps, mu: &mu}
	s := newTestSession(conf)

	mutedCam := &orderedTrack{name: "cam", kind: domain.TrackVideo, muted: true, steps: &steps, mu: &mu}
	require.NoError(t, s.SetLocalTrack(context.Background(), domain.TrackVideo, mutedCam))

	assert.True(t, s.IsLocalVideoMuted())
}

func TestSetLocalTrackAfterHangupFails(t *testing.T) {
	var steps []string
	var mu sync.Mutex
	conf := &trackingConference{steps: &steps, mu: &mu}
	s := newTestSession(conf)

	s.mu.Lock()
	s.destroyed = true
	s.mu.Unlock()

	track := &orderedTrack{name: "cam", kind: domain.TrackVideo, steps: &steps, mu: &mu}
	err := s.SetLocalTrack(context.Background(), domain.TrackVideo, track)
	assert.ErrorIs(t, err, ErrSessionDestroyed)
}

func TestMuteWithNoTrackIsNoop(t *testing.T) {
	s := newTestSession(&stubConference{})
	s.MuteAudio(context.Background(), true)
	s.MuteVideo(context.Background(), true)
	assert.False(t, s.IsLocalAudioMuted())
	assert.False(t, s.IsLocalVideoMuted())
}

func TestToggleAudioMutedRoundTrip(t *testing.T) {
	var steps []string
	var mu sync.Mutex
	conf := &trackingConference{steps: &steps, mu: &mu}
	s := newTestSession(conf)

	mic := &orderedTrack{name: "mic", kind: domain.TrackAudio, steps: &steps, mu: &mu}
	require.NoError(t, s.SetLocalTrack(context.Background(), domain.TrackAudio, mic))

	s.MuteAudio(context.Background(), true)
	assert.True(t, mic.muted)
	s.MuteAudio(context.Background(), false)
	assert.False(t, mic.muted)
}

func TestSetRaisedHandNoopWhenUnchanged(t *testing.T) {
	conf := &propertyConference{}
	s := New("room", Deps{
		Engine:   &stubEngine{},
		Conf:     conf,
		UI:       console.NewUI(),
		API:      noopAPI{},
		Settings: &memSettings{},
		Auth:     &stubEscalator{},
		Cfg:      &config.Config{},
	})

	s.SetRaisedHand(true)
	s.SetRaisedHand(true)
	s.SetRaisedHand(false)

	assert.Equal(t, []string{"raisedHand=true", "raisedHand=false"}, conf.props)
}

type propertyConference struct {
	stubConference
	props []string
}

func (c *propertyConference) SetLocalParticipantProperty(name, value string) {
	c.props = append(c.props, name+"="+value)
}

func TestChangeLocalDisplayNameTrimsAndPersists(t *testing.T) {
	settings := &memSettings{}
	conf := &nameConference{}
	s := New("room", Deps{
		Engine:   &stubEngine{},
		Conf:     conf,
		UI:       console.NewUI(),
		API:      noopAPI{},
		Settings: settings,
		Auth:     &stubEscalator{},
		Cfg:      &config.Config{},
	})

	s.ChangeLocalDisplayName("  Marge  ")
	assert.Equal(t, "Marge", settings.DisplayName())
	assert.Equal(t, []string{"Marge"}, conf.names)

	// Unchanged name does not re-broadcast.
	s.ChangeLocalDisplayName("Marge")
	assert.Equal(t, []string{"Marge"}, conf.names)
}

type nameConference struct {
	stubConference
	names []string
}

func (c *nameConference) SetDisplayName(name string) {
	c.names = append(c.names, name)
}
