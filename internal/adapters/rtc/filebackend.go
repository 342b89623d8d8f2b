package rtc

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/pion/webrtc/v4/pkg/media"
	"github.com/pion/webrtc/v4/pkg/media/ivfreader"
	"github.com/pion/webrtc/v4/pkg/media/oggreader"

	"github.com/solivar/confab/internal/core"
	"github.com/solivar/confab/internal/domain"
)

const oggPageDuration = 20 * time.Millisecond

// FileBackend is a DeviceBackend fed from media files: Opus audio in an
// ogg container, VP8 video in an ivf container. Files loop forever, the
// way a live device never ends. Used where no OS capture is available,
// and in tests.
type FileBackend struct {
	AudioPath   string
	VideoPath   string
	DesktopPath string
}

func (b *FileBackend) Devices(ctx context.Context) ([]core.DeviceInfo, error) {
	var out []core.DeviceInfo
	if b.AudioPath != "" {
		out = append(out, core.DeviceInfo{DeviceID: b.AudioPath, Kind: core.DeviceAudioInput, Label: "file audio"})
	}
	if b.VideoPath != "" {
		out = append(out, core.DeviceInfo{DeviceID: b.VideoPath, Kind: core.DeviceVideoInput, Label: "file video"})
	}
	return out, nil
}

func (b *FileBackend) OpenSource(ctx context.Context, kind domain.TrackKind, deviceID string) (Source, error) {
	path := deviceID
	if kind.MediaKind() == domain.TrackAudio {
		if path == "" {
			path = b.AudioPath
		}
		return newOggSource(path)
	}
	if path == "" {
		path = b.VideoPath
	}
	return newIVFSource(path)
}

func (b *FileBackend) OpenDesktopSource(ctx context.Context, mode core.SurfaceMode) (Source, error) {
	if b.DesktopPath == "" {
		return nil, &core.DeviceError{Kind: core.DeviceErrNotFound, Msg: "no desktop source configured"}
	}
	return newIVFSource(b.DesktopPath)
}

func (b *FileBackend) DesktopSharingSupported() bool { return b.DesktopPath != "" }

func (b *FileBackend) PermissionPromptExpected() (string, bool) { return "", false }

// oggSource plays an Opus ogg file at page cadence.
type oggSource struct {
	mu          sync.Mutex
	path        string
	file        *os.File
	ogg         *oggreader.OggReader
	lastGranule uint64
	closed      bool
}

func newOggSource(path string) (*oggSource, error) {
	s := &oggSource{path: path}
	if err := s.reopen(); err != nil {
		return nil, &core.DeviceError{Kind: core.DeviceErrNotFound, Msg: err.Error()}
	}
	return s, nil
}

func (s *oggSource) reopen() error {
	f, err := os.Open(s.path)
	if err != nil {
		return err
	}
	ogg, _, err := oggreader.NewWith(f)
	if err != nil {
		_ = f.Close()
		return err
	}
	if s.file != nil {
		_ = s.file.Close()
	}
	s.file = f
	s.ogg = ogg
	s.lastGranule = 0
	return nil
}

func (s *oggSource) ReadSample() (media.Sample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return media.Sample{}, os.ErrClosed
	}

	pageData, pageHeader, err := s.ogg.ParseNextPage()
	if err != nil {
		// loop like a live source
		if err := s.reopen(); err != nil {
			return media.Sample{}, err
		}
		pageData, pageHeader, err = s.ogg.ParseNextPage()
		if err != nil {
			return media.Sample{}, err
		}
	}

	sampleCount := pageHeader.GranulePosition - s.lastGranule
	s.lastGranule = pageHeader.GranulePosition
	duration := time.Duration(float64(sampleCount)/48000*1000) * time.Millisecond
	if duration <= 0 {
		duration = oggPageDuration
	}

	time.Sleep(duration)
	return media.Sample{Data: pageData, Duration: duration}, nil
}

func (s *oggSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.file.Close()
}

// ivfSource plays a VP8 ivf file at its declared frame rate.
type ivfSource struct {
	mu     sync.Mutex
	path   string
	file   *os.File
	ivf    *ivfreader.IVFReader
	delta  time.Duration
	closed bool
}

func newIVFSource(path string) (*ivfSource, error) {
	s := &ivfSource{path: path}
	if err := s.reopen(); err != nil {
		return nil, &core.DeviceError{Kind: core.DeviceErrNotFound, Msg: err.Error()}
	}
	return s, nil
}

func (s *ivfSource) reopen() error {
	f, err := os.Open(s.path)
	if err != nil {
		return err
	}
	ivf, header, err := ivfreader.NewWith(f)
	if err != nil {
		_ = f.Close()
		return err
	}
	if s.file != nil {
		_ = s.file.Close()
	}
	s.file = f
	s.ivf = ivf
	s.delta = time.Millisecond * time.Duration(
		(float32(header.TimebaseNumerator)/float32(header.TimebaseDenominator))*1000)
	if s.delta <= 0 {
		s.delta = 33 * time.Millisecond
	}
	return nil
}

func (s *ivfSource) ReadSample() (media.Sample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return media.Sample{}, os.ErrClosed
	}

	frame, _, err := s.ivf.ParseNextFrame()
	if err != nil {
		if err := s.reopen(); err != nil {
			return media.Sample{}, err
		}
		frame, _, err = s.ivf.ParseNextFrame()
		if err != nil {
			return media.Sample{}, err
		}
	}

	time.Sleep(s.delta)
	return media.Sample{Data: frame, Duration: s.delta}, nil
}

func (s *ivfSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.file.Close()
}
