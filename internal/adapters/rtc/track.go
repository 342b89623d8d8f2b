package rtc

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media"
	"github.com/rs/zerolog/log"

	"github.com/solivar/confab/internal/core"
	"github.com/solivar/confab/internal/domain"
)

// stallTimeout is how long a source may stay silent before the track is
// reported as not working.
const stallTimeout = 10 * time.Second

// Source is one capture device feed. ReadSample blocks until the next
// sample; io.EOF means the OS ended the capture.
type Source interface {
	ReadSample() (media.Sample, error)
	Close() error
}

// Publishable is what the signaling layer needs to put a local track on
// the peer connection.
type Publishable interface {
	RTPTrack() webrtc.TrackLocal
}

// localTrack pumps samples from a device source into a webrtc track.
// Muting gates the pump without releasing the device.
type localTrack struct {
	id       string
	kind     domain.TrackKind
	deviceID string

	track  *webrtc.TrackLocalStaticSample
	source Source
	cancel context.CancelFunc

	mu        sync.Mutex
	muted     bool
	disposed  bool
	onStalled func()
	onStopped func()
}

func codecFor(kind domain.TrackKind) webrtc.RTPCodecCapability {
	if kind.MediaKind() == domain.TrackAudio {
		return webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus, ClockRate: 48000, Channels: 2}
	}
	return webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8, ClockRate: 90000}
}

func newLocalTrack(kind domain.TrackKind, deviceID string, src Source) (*localTrack, error) {
	id := uuid.NewString()
	wt, err := webrtc.NewTrackLocalStaticSample(codecFor(kind), id, id)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	t := &localTrack{
		id:       id,
		kind:     kind,
		deviceID: deviceID,
		track:    wt,
		source:   src,
		cancel:   cancel,
	}
	go t.pump(ctx)
	return t, nil
}

// pump forwards samples until the source ends. A silent source trips
// the stalled callback once; a closed source fires stopped.
func (t *localTrack) pump(ctx context.Context) {
	stall := time.NewTimer(stallTimeout)
	defer stall.Stop()

	go func() {
		select {
		case <-ctx.Done():
		case <-stall.C:
			t.mu.Lock()
			cb := t.onStalled
			t.mu.Unlock()
			if cb != nil {
				cb()
			}
		}
	}()

	for {
		sample, err := t.source.ReadSample()
		if err != nil {
			if ctx.Err() == nil {
				if !errors.Is(err, io.EOF) {
					log.Warn().Err(err).Str("module", "rtc").Str("kind", string(t.kind)).Msg("source read error")
				}
				t.mu.Lock()
				cb := t.onStopped
				t.mu.Unlock()
				if cb != nil {
					cb()
				}
			}
			return
		}
		stall.Reset(stallTimeout)

		t.mu.Lock()
		muted := t.muted
		t.mu.Unlock()
		if muted {
			continue
		}
		if err := t.track.WriteSample(sample); err != nil {
			log.Warn().Err(err).Str("module", "rtc").Str("kind", string(t.kind)).Msg("write sample")
		}
		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}

func (t *localTrack) ID() string             { return t.id }
func (t *localTrack) Kind() domain.TrackKind { return t.kind }
func (t *localTrack) DeviceID() string       { return t.deviceID }

func (t *localTrack) IsMuted() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.muted
}

func (t *localTrack) Mute(ctx context.Context) error {
	return t.setMuted(true)
}

func (t *localTrack) Unmute(ctx context.Context) error {
	return t.setMuted(false)
}

func (t *localTrack) setMuted(muted bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.disposed {
		return core.ErrTrackDisposed
	}
	t.muted = muted
	return nil
}

func (t *localTrack) Dispose(ctx context.Context) error {
	t.mu.Lock()
	if t.disposed {
		t.mu.Unlock()
		return core.ErrTrackDisposed
	}
	t.disposed = true
	// stopped must not fire for a deliberate disposal
	t.onStopped = nil
	t.mu.Unlock()

	t.cancel()
	return t.source.Close()
}

func (t *localTrack) OnStalled(fn func()) {
	t.mu.Lock()
	t.onStalled = fn
	t.mu.Unlock()
}

func (t *localTrack) OnStopped(fn func()) {
	t.mu.Lock()
	t.onStopped = fn
	t.mu.Unlock()
}

func (t *localTrack) RTPTrack() webrtc.TrackLocal { return t.track }

// remoteTrack is the read-only view over a received track.
type remoteTrack struct {
	track *webrtc.TrackRemote
	owner domain.ParticipantID
}

func NewRemoteTrack(track *webrtc.TrackRemote, owner domain.ParticipantID) core.RemoteTrack {
	return &remoteTrack{track: track, owner: owner}
}

func (r *remoteTrack) Info() domain.TrackInfo {
	kind := domain.TrackAudio
	if r.track.Kind() == webrtc.RTPCodecTypeVideo {
		kind = domain.TrackVideo
	}
	return domain.TrackInfo{
		ID:    r.track.ID(),
		Kind:  kind,
		Owner: r.owner,
	}
}
