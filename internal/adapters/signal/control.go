package signal

import (
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/solivar/confab/internal/core"
	"github.com/solivar/confab/internal/domain"
)

func (cf *conference) handleChat(data []byte) {
	var p struct {
		Type string `json:"type"`
		ID   string `json:"id"`
		Text string `json:"text"`
		TS   int64  `json:"ts"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad chat payload")
		return
	}
	ts := time.Now()
	if p.TS > 0 {
		ts = time.UnixMilli(p.TS)
	}
	id := domain.ParticipantID(p.ID)
	cf.notify(func(o core.ConferenceObserver) { o.MessageReceived(id, p.Text, ts) })
}

func (cf *conference) handleSubject(data []byte) {
	var p struct {
		Type    string `json:"type"`
		Subject string `json:"subject"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad subject payload")
		return
	}
	cf.notify(func(o core.ConferenceObserver) { o.SubjectChanged(p.Subject) })
}

func (cf *conference) handleStartMutedPolicy(data []byte) {
	var p struct {
		Type  string `json:"type"`
		Audio bool   `json:"audio"`
		Video bool   `json:"video"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad start_muted_policy payload")
		return
	}
	cf.notify(func(o core.ConferenceObserver) { o.StartMutedPolicyChanged(p.Audio, p.Video) })
}

func (cf *conference) handleStartedMuted(data []byte) {
	var p struct {
		Type  string `json:"type"`
		Audio bool   `json:"audio"`
		Video bool   `json:"video"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad started_muted payload")
		return
	}
	cf.notify(func(o core.ConferenceObserver) { o.StartedMuted(p.Audio, p.Video) })
}

func (cf *conference) handleRecording(data []byte) {
	var p struct {
		Type  string `json:"type"`
		State string `json:"state"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad recording payload")
		return
	}
	cf.notify(func(o core.ConferenceObserver) { o.RecordingStateChanged(p.State) })
}

func (cf *conference) handleTrackMuted(data []byte) {
	var p struct {
		Type    string `json:"type"`
		ID      string `json:"id"`
		TrackID string `json:"track_id"`
		Kind    string `json:"kind"`
		Muted   bool   `json:"muted"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad track_muted payload")
		return
	}
	info := domain.TrackInfo{
		ID:    p.TrackID,
		Kind:  domain.TrackKind(p.Kind),
		Muted: p.Muted,
		Owner: domain.ParticipantID(p.ID),
	}
	cf.notify(func(o core.ConferenceObserver) { o.TrackMuteChanged(info) })
}
