package media

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solivar/confab/internal/adapters/console"
	"github.com/solivar/confab/internal/core"
	"github.com/solivar/confab/internal/domain"
)

type fakeTrack struct {
	kind      domain.TrackKind
	deviceID  string
	onStalled func()
}

func (t *fakeTrack) ID() string                        { return "fake-" + string(t.kind) }
func (t *fakeTrack) Kind() domain.TrackKind            { return t.kind }
func (t *fakeTrack) DeviceID() string                  { return t.deviceID }
func (t *fakeTrack) IsMuted() bool                     { return false }
func (t *fakeTrack) Mute(ctx context.Context) error    { return nil }
func (t *fakeTrack) Unmute(ctx context.Context) error  { return nil }
func (t *fakeTrack) Dispose(ctx context.Context) error { return nil }
func (t *fakeTrack) OnStalled(f func())                { t.onStalled = f }
func (t *fakeTrack) OnStopped(f func())                {}

// fakeCapture fails requests whose kind set includes a kind listed in
// failKinds, and records every request it saw.
type fakeCapture struct {
	failKinds map[domain.TrackKind]error
	requests  []core.CaptureRequest
	produced  []*fakeTrack
}

func (c *fakeCapture) Capture(ctx context.Context, req core.CaptureRequest, promptAware bool) ([]core.LocalTrack, error) {
	c.requests = append(c.requests, req)
	var out []core.LocalTrack
	for _, k := range req.Kinds {
		if err, ok := c.failKinds[k]; ok {
			return nil, err
		}
		tr := &fakeTrack{kind: k}
		c.produced = append(c.produced, tr)
		out = append(out, tr)
	}
	return out, nil
}

func (c *fakeCapture) EnumerateDevices(ctx context.Context) ([]core.DeviceInfo, error) {
	return nil, nil
}
func (c *fakeCapture) IsDeviceListAvailable() bool    { return true }
func (c *fakeCapture) IsDeviceChangeAvailable() bool  { return true }
func (c *fakeCapture) IsDesktopSharingEnabled() bool  { return true }
func (c *fakeCapture) OnDeviceListChanged(func([]core.DeviceInfo)) func() {
	return func() {}
}
func (c *fakeCapture) OnPermissionPrompt(func(string)) func() { return func() {} }

type fakeSettings struct {
	camera string
	mic    string
}

func (s *fakeSettings) DisplayName() string                      { return "" }
func (s *fakeSettings) SetDisplayName(string)                    {}
func (s *fakeSettings) Email() string                            { return "" }
func (s *fakeSettings) SetEmail(string)                          {}
func (s *fakeSettings) AvatarID() string                         { return "" }
func (s *fakeSettings) AvatarURL() string                        { return "" }
func (s *fakeSettings) CameraDeviceID() string                   { return s.camera }
func (s *fakeSettings) SetCameraDeviceID(id string, _ bool)      { s.camera = id }
func (s *fakeSettings) MicDeviceID() string                      { return s.mic }
func (s *fakeSettings) SetMicDeviceID(id string, _ bool)         { s.mic = id }
func (s *fakeSettings) AudioOutputDeviceID() string              { return "" }
func (s *fakeSettings) SetAudioOutputDeviceID(id string) error   { return nil }

func newTestFactory(capture core.CaptureService) *Factory {
	return NewFactory(capture, &fakeSettings{camera: "cam-1", mic: "mic-1"}, console.NewUI())
}

func TestAcquireInitialBothKinds(t *testing.T) {
	cap := &fakeCapture{}
	f := newTestFactory(cap)

	tracks, errs := f.AcquireInitial(context.Background())

	require.True(t, errs.Empty())
	require.Len(t, tracks, 2)
	assert.Equal(t, domain.TrackAudio, tracks[0].Kind())
	assert.Equal(t, domain.TrackVideo, tracks[1].Kind())
}

func TestAcquireInitialFallsBackToAudioOnly(t *testing.T) {
	cameraBroken := errors.New("camera unavailable")
	cap := &fakeCapture{failKinds: map[domain.TrackKind]error{domain.TrackVideo: cameraBroken}}
	f := newTestFactory(cap)

	tracks, errs := f.AcquireInitial(context.Background())

	require.Len(t, tracks, 1)
	assert.Equal(t, domain.TrackAudio, tracks[0].Kind())
	assert.ErrorIs(t, errs.AudioVideo, cameraBroken)
	assert.NoError(t, errs.AudioOnly)
}

func TestAcquireInitialTotalFailure(t *testing.T) {
	micBroken := errors.New("mic unavailable")
	cap := &fakeCapture{failKinds: map[domain.TrackKind]error{
		domain.TrackAudio: micBroken,
		domain.TrackVideo: errors.New("camera unavailable"),
	}}
	f := newTestFactory(cap)

	tracks, errs := f.AcquireInitial(context.Background())

	assert.Empty(t, tracks)
	assert.Error(t, errs.AudioVideo)
	assert.ErrorIs(t, errs.AudioOnly, micBroken)
}

func TestCreateResolvesPersistedDeviceIDs(t *testing.T) {
	cap := &fakeCapture{}
	f := newTestFactory(cap)

	_, err := f.Create(context.Background(), core.CaptureRequest{
		Kinds: []domain.TrackKind{domain.TrackVideo},
	}, false)

	require.NoError(t, err)
	require.Len(t, cap.requests, 1)
	require.NotNil(t, cap.requests[0].CameraDeviceID)
	assert.Equal(t, "cam-1", *cap.requests[0].CameraDeviceID)
	require.NotNil(t, cap.requests[0].MicDeviceID)
	assert.Equal(t, "mic-1", *cap.requests[0].MicDeviceID)
}

func TestCreateKeepsExplicitDeviceID(t *testing.T) {
	cap := &fakeCapture{}
	f := newTestFactory(cap)
	explicit := "cam-override"

	_, err := f.Create(context.Background(), core.CaptureRequest{
		Kinds:          []domain.TrackKind{domain.TrackVideo},
		CameraDeviceID: &explicit,
	}, false)

	require.NoError(t, err)
	assert.Equal(t, "cam-override", *cap.requests[0].CameraDeviceID)
}

func TestCreateAttachesStalledWatchdog(t *testing.T) {
	cap := &fakeCapture{}
	f := newTestFactory(cap)

	_, err := f.Create(context.Background(), core.CaptureRequest{
		Kinds: []domain.TrackKind{domain.TrackAudio},
	}, false)

	require.NoError(t, err)
	require.Len(t, cap.produced, 1)
	assert.NotNil(t, cap.produced[0].onStalled)
}

type dialogRecorder struct {
	*console.UI
	micErr    error
	cameraErr error
	calls     int
}

func (d *dialogRecorder) ShowDeviceErrorDialog(micErr, cameraErr error) {
	d.micErr, d.cameraErr = micErr, cameraErr
	d.calls++
}

func TestReportAcquireErrorsBlamesMicrophoneWhenBothFail(t *testing.T) {
	ui := &dialogRecorder{UI: console.NewUI()}
	micBroken := errors.New("mic unavailable")

	ReportAcquireErrors(ui, AcquireErrors{
		AudioVideo: errors.New("combined failed"),
		AudioOnly:  micBroken,
	})

	assert.Equal(t, 1, ui.calls)
	assert.ErrorIs(t, ui.micErr, micBroken)
	assert.NoError(t, ui.cameraErr)
}

func TestReportAcquireErrorsBlamesCameraWhenOnlyCombinedFails(t *testing.T) {
	ui := &dialogRecorder{UI: console.NewUI()}
	cameraBroken := errors.New("camera unavailable")

	ReportAcquireErrors(ui, AcquireErrors{AudioVideo: cameraBroken})

	assert.Equal(t, 1, ui.calls)
	assert.NoError(t, ui.micErr)
	assert.ErrorIs(t, ui.cameraErr, cameraBroken)
}

func TestReportAcquireErrorsSilentOnSuccess(t *testing.T) {
	ui := &dialogRecorder{UI: console.NewUI()}
	ReportAcquireErrors(ui, AcquireErrors{})
	assert.Zero(t, ui.calls)
}
