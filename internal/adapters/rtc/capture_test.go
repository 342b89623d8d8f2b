package rtc

import (
	"context"
	"io"
	"sync"
	"testing"

	"github.com/pion/webrtc/v4/pkg/media"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solivar/confab/internal/core"
	"github.com/solivar/confab/internal/domain"
)

// blockingSource blocks reads until closed, then reports end of stream.
type blockingSource struct {
	once   sync.Once
	done   chan struct{}
	mu     sync.Mutex
	closed bool
}

func newBlockingSource() *blockingSource {
	return &blockingSource{done: make(chan struct{})}
}

func (s *blockingSource) ReadSample() (media.Sample, error) {
	<-s.done
	return media.Sample{}, io.EOF
}

func (s *blockingSource) Close() error {
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		close(s.done)
	})
	return nil
}

func (s *blockingSource) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

type fakeBackend struct {
	mu      sync.Mutex
	sources []*blockingSource
	fail    map[domain.TrackKind]*core.DeviceError
	desktop *core.DeviceError
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{fail: make(map[domain.TrackKind]*core.DeviceError)}
}

func (b *fakeBackend) Devices(ctx context.Context) ([]core.DeviceInfo, error) {
	return []core.DeviceInfo{
		{DeviceID: "mic", Kind: core.DeviceAudioInput},
		{DeviceID: "cam", Kind: core.DeviceVideoInput},
	}, nil
}

func (b *fakeBackend) OpenSource(ctx context.Context, kind domain.TrackKind, deviceID string) (Source, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if derr, ok := b.fail[kind]; ok {
		return nil, derr
	}
	src := newBlockingSource()
	b.sources = append(b.sources, src)
	return src, nil
}

func (b *fakeBackend) OpenDesktopSource(ctx context.Context, mode core.SurfaceMode) (Source, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.desktop != nil {
		return nil, b.desktop
	}
	src := newBlockingSource()
	b.sources = append(b.sources, src)
	return src, nil
}

func (b *fakeBackend) DesktopSharingSupported() bool { return true }

func (b *fakeBackend) PermissionPromptExpected() (string, bool) { return "", false }

func disposeAll(t *testing.T, tracks []core.LocalTrack) {
	t.Helper()
	for _, tr := range tracks {
		require.NoError(t, tr.Dispose(context.Background()))
	}
}

func TestCaptureOneTrackPerKind(t *testing.T) {
	backend := newFakeBackend()
	s := NewCaptureService(backend)

	tracks, err := s.Capture(context.Background(), core.CaptureRequest{
		Kinds: []domain.TrackKind{domain.TrackAudio, domain.TrackVideo},
	}, false)

	require.NoError(t, err)
	require.Len(t, tracks, 2)
	assert.Equal(t, domain.TrackAudio, tracks[0].Kind())
	assert.Equal(t, domain.TrackVideo, tracks[1].Kind())
	disposeAll(t, tracks)
}

func TestCaptureIsAllOrNothing(t *testing.T) {
	backend := newFakeBackend()
	backend.fail[domain.TrackVideo] = &core.DeviceError{Kind: core.DeviceErrNotFound}
	s := NewCaptureService(backend)

	tracks, err := s.Capture(context.Background(), core.CaptureRequest{
		Kinds: []domain.TrackKind{domain.TrackAudio, domain.TrackVideo},
	}, false)

	require.Error(t, err)
	assert.Empty(t, tracks)
	var derr *core.DeviceError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, core.DeviceErrNotFound, derr.Kind)

	// The audio source opened before the failure must be released again.
	backend.mu.Lock()
	defer backend.mu.Unlock()
	require.Len(t, backend.sources, 1)
	assert.True(t, backend.sources[0].isClosed())
}

func TestCapturePermissionPromptListeners(t *testing.T) {
	backend := newFakeBackend()
	s := NewCaptureService(backend)

	var envs []string
	remove := s.OnPermissionPrompt(func(environment string) { envs = append(envs, environment) })
	defer remove()

	// Prompt not expected: listener stays quiet.
	tracks, err := s.Capture(context.Background(), core.CaptureRequest{
		Kinds: []domain.TrackKind{domain.TrackAudio},
	}, true)
	require.NoError(t, err)
	assert.Empty(t, envs)
	disposeAll(t, tracks)
}

func TestDesktopExtensionRequiredWithoutHookFails(t *testing.T) {
	backend := newFakeBackend()
	backend.desktop = &core.DeviceError{Kind: core.DeviceErrExtensionRequired, Msg: "https://example.com/helper"}
	s := NewCaptureService(backend)

	_, err := s.Capture(context.Background(), core.CaptureRequest{
		Kinds: []domain.TrackKind{domain.TrackDesktop},
	}, false)

	var derr *core.DeviceError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, core.DeviceErrExtensionRequired, derr.Kind)
}

func TestDesktopInstallFlowCanceledByContext(t *testing.T) {
	backend := newFakeBackend()
	backend.desktop = &core.DeviceError{Kind: core.DeviceErrExtensionRequired, Msg: "https://example.com/helper"}
	s := NewCaptureService(backend)

	ctx, cancel := context.WithCancel(context.Background())
	var statuses []string
	hook := &core.DesktopInstallHook{
		InProgress: func() bool { return true },
		OnStatus: func(status, url string) {
			statuses = append(statuses, status)
			if status == core.InstallWaiting {
				cancel()
			}
		},
	}

	_, err := s.Capture(ctx, core.CaptureRequest{
		Kinds:          []domain.TrackKind{domain.TrackDesktop},
		DesktopInstall: hook,
	}, false)

	var derr *core.DeviceError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, core.DeviceErrUserCanceled, derr.Kind)
	assert.Equal(t, []string{core.InstallWaiting}, statuses)
}

func TestLocalTrackDoubleDispose(t *testing.T) {
	src := newBlockingSource()
	track, err := newLocalTrack(domain.TrackAudio, "mic", src)
	require.NoError(t, err)

	require.NoError(t, track.Dispose(context.Background()))
	assert.ErrorIs(t, track.Dispose(context.Background()), core.ErrTrackDisposed)
	assert.True(t, src.isClosed())
}

func TestLocalTrackMuteState(t *testing.T) {
	src := newBlockingSource()
	track, err := newLocalTrack(domain.TrackVideo, "cam", src)
	require.NoError(t, err)
	defer func() { _ = track.Dispose(context.Background()) }()

	assert.False(t, track.IsMuted())
	require.NoError(t, track.Mute(context.Background()))
	assert.True(t, track.IsMuted())
	require.NoError(t, track.Unmute(context.Background()))
	assert.False(t, track.IsMuted())
}

func TestLocalTrackMuteAfterDisposeFails(t *testing.T) {
	src := newBlockingSource()
	track, err := newLocalTrack(domain.TrackAudio, "mic", src)
	require.NoError(t, err)

	require.NoError(t, track.Dispose(context.Background()))
	assert.ErrorIs(t, track.Mute(context.Background()), core.ErrTrackDisposed)
}

func TestDeviceListPollingStartsAndStops(t *testing.T) {
	backend := newFakeBackend()
	s := NewCaptureService(backend)

	remove := s.OnDeviceListChanged(func([]core.DeviceInfo) {})
	s.mu.Lock()
	assert.NotNil(t, s.pollCancel)
	s.mu.Unlock()

	remove()
	s.mu.Lock()
	assert.Nil(t, s.pollCancel)
	s.mu.Unlock()
}

func TestSameDevicesIgnoresOrder(t *testing.T) {
	a := []core.DeviceInfo{{DeviceID: "1"}, {DeviceID: "2"}}
	b := []core.DeviceInfo{{DeviceID: "2"}, {DeviceID: "1"}}
	assert.True(t, sameDevices(a, b))
	assert.False(t, sameDevices(a, b[:1]))
	assert.False(t, sameDevices(a, []core.DeviceInfo{{DeviceID: "1"}, {DeviceID: "3"}}))
}

func TestEnumerateDevicesCachesKnownList(t *testing.T) {
	backend := newFakeBackend()
	s := NewCaptureService(backend)

	devices, err := s.EnumerateDevices(context.Background())
	require.NoError(t, err)
	require.Len(t, devices, 2)

	s.mu.Lock()
	defer s.mu.Unlock()
	assert.Equal(t, devices, s.known)
}

