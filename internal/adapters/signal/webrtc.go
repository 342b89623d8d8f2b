package signal

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/solivar/confab/internal/adapters/rtc"
	"github.com/solivar/confab/internal/core"
	"github.com/solivar/confab/internal/domain"
)

func (cf *conference) sendCandidate(ci webrtc.ICECandidateInit) {
	resp := struct {
		Type          string `json:"type"`
		Candidate     string `json:"candidate"`
		SDPMid        string `json:"sdpMid,omitempty"`
		SDPMLineIndex uint16 `json:"sdpMLineIndex,omitempty"`
	}{
		Type:      "candidate",
		Candidate: ci.Candidate,
	}
	if ci.SDPMid != nil {
		resp.SDPMid = *ci.SDPMid
	}
	if ci.SDPMLineIndex != nil {
		resp.SDPMLineIndex = *ci.SDPMLineIndex
	}
	cf.client.send(resp)
}

// ensureMedia lazily brings up the peer connection the first time a
// track is published.
func (cf *conference) ensureMedia(ctx context.Context) (*rtc.Connection, error) {
	cf.mu.Lock()
	if cf.media != nil {
		media := cf.media
		cf.mu.Unlock()
		return media, nil
	}
	cf.mu.Unlock()

	media, err := rtc.NewConnection(rtc.DefaultConfig())
	if err != nil {
		return nil, err
	}

	media.OnICECandidate(func(ci webrtc.ICECandidateInit) {
		cf.sendCandidate(ci)
	})
	media.OnTrack(func(ctx context.Context, track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		cf.onRemoteTrack(track)
	})
	media.OnClosed(func() {
		log.Info().Str("module", "signal").Msg("media connection closed")
	})

	if err := media.Start(ctx); err != nil {
		media.Close()
		return nil, err
	}

	cf.mu.Lock()
	cf.media = media
	cf.mu.Unlock()
	return media, nil
}

// onRemoteTrack registers a remote track and reports it. The server sets
// the stream id to the owning participant's id.
func (cf *conference) onRemoteTrack(track *webrtc.TrackRemote) {
	rt := rtc.NewRemoteTrack(track, domain.ParticipantID(track.StreamID()))

	cf.mu.Lock()
	cf.remoteTracks[track.ID()] = rt
	cf.mu.Unlock()

	cf.notify(func(o core.ConferenceObserver) { o.TrackAdded(rt) })
}

// AddTrack publishes a local track and renegotiates.
func (cf *conference) AddTrack(ctx context.Context, t core.LocalTrack) error {
	pub, ok := t.(rtc.Publishable)
	if !ok {
		return errors.New("track does not carry an RTP source")
	}
	media, err := cf.ensureMedia(ctx)
	if err != nil {
		return err
	}
	sender, err := media.AddLocalTrack(pub.RTPTrack())
	if err != nil {
		return err
	}

	cf.mu.Lock()
	cf.senders[t.ID()] = func() error { return media.RemoveLocalTrack(sender) }
	cf.mu.Unlock()

	return cf.renegotiate(media)
}

// RemoveTrack detaches a published track without disposing it.
func (cf *conference) RemoveTrack(ctx context.Context, t core.LocalTrack) error {
	cf.mu.Lock()
	remove := cf.senders[t.ID()]
	delete(cf.senders, t.ID())
	media := cf.media
	cf.mu.Unlock()

	if remove == nil || media == nil {
		return nil
	}
	if err := remove(); err != nil {
		return err
	}
	return cf.renegotiate(media)
}

func (cf *conference) renegotiate(media *rtc.Connection) error {
	offer, err := media.CreateOfferAndSet()
	if err != nil {
		return err
	}
	cf.client.send(map[string]string{
		"type": "offer",
		"sdp":  offer.SDP,
	})
	return nil
}

func (cf *conference) handleAnswer(data []byte) {
	var p struct {
		Type string `json:"type"`
		SDP  string `json:"sdp"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad answer payload")
		return
	}

	cf.mu.RLock()
	media := cf.media
	cf.mu.RUnlock()
	if media == nil {
		log.Warn().Str("module", "signal").Msg("answer without media connection")
		return
	}
	if err := media.ApplyAnswer(webrtc.SessionDescription{
		Type: webrtc.SDPTypeAnswer,
		SDP:  p.SDP,
	}); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("apply answer")
	}
}

func (cf *conference) handleCandidate(data []byte) {
	var p struct {
		Type          string `json:"type"`
		Candidate     string `json:"candidate"`
		SDPMid        string `json:"sdpMid"`
		SDPMLineIndex uint16 `json:"sdpMLineIndex"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad candidate payload")
		return
	}

	cand := webrtc.ICECandidateInit{Candidate: p.Candidate}
	if p.SDPMid != "" {
		cand.SDPMid = &p.SDPMid
	}
	cand.SDPMLineIndex = &p.SDPMLineIndex

	cf.mu.RLock()
	media := cf.media
	cf.mu.RUnlock()
	if media == nil {
		log.Warn().Str("module", "signal").Msg("candidate: no media connection")
		return
	}
	if err := media.AddICECandidate(cand); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("add ice candidate")
	}
}

// handleTrackRemoved drops a remote track from the registry.
func (cf *conference) handleTrackRemoved(data []byte) {
	var p struct {
		Type    string `json:"type"`
		TrackID string `json:"track_id"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad track_removed payload")
		return
	}

	cf.mu.Lock()
	rt, ok := cf.remoteTracks[p.TrackID]
	delete(cf.remoteTracks, p.TrackID)
	cf.mu.Unlock()

	if ok {
		cf.notify(func(o core.ConferenceObserver) { o.TrackRemoved(rt) })
	}
}
