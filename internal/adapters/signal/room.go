package signal

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/solivar/confab/internal/core"
	"github.com/solivar/confab/internal/domain"
)

func (cf *conference) handleJoined(data []byte) {
	var p struct {
		Type      string               `json:"type"`
		ID        string               `json:"id"`
		Moderator bool                 `json:"moderator"`
		Members   []domain.Participant `json:"members"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad joined payload")
		return
	}

	cf.mu.Lock()
	cf.joined = true
	cf.myID = domain.ParticipantID(p.ID)
	cf.moderator = p.Moderator
	for i := range p.Members {
		m := p.Members[i]
		cf.participants[m.ID] = &m
	}
	cf.mu.Unlock()

	log.Info().Str("module", "signal").Str("id", p.ID).Str("room", string(cf.room)).Msg("joined")

	cf.resendPersistedCommands()

	cf.notify(func(o core.ConferenceObserver) { o.ConferenceJoined() })
	// Members present before us are reported after the joined event, the
	// same order a live join would produce.
	for i := range p.Members {
		m := p.Members[i]
		cf.notify(func(o core.ConferenceObserver) { o.UserJoined(&m) })
	}
}

func (cf *conference) handleJoinFailed(data []byte) {
	var p struct {
		Type   string   `json:"type"`
		Code   string   `json:"code"`
		Params []string `json:"params"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad join_failed payload")
		return
	}
	log.Warn().Str("module", "signal").Str("code", p.Code).Msg("join failed")
	err := core.NewConferenceError(core.ConferenceErrorCode(p.Code), p.Params...)
	cf.notify(func(o core.ConferenceObserver) { o.ConferenceFailed(err) })
}

func (cf *conference) handleConferenceError(data []byte) {
	var p struct {
		Type   string   `json:"type"`
		Code   string   `json:"code"`
		Params []string `json:"params"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad conference_error payload")
		return
	}
	err := core.NewConferenceError(core.ConferenceErrorCode(p.Code), p.Params...)
	cf.notify(func(o core.ConferenceObserver) { o.ConferenceErrored(err) })
}

func (cf *conference) handleDestroyed(data []byte) {
	var p struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad destroyed payload")
		return
	}
	cf.mu.Lock()
	cf.joined = false
	cf.mu.Unlock()
	err := core.NewConferenceError(core.ErrConferenceDestroyed, p.Reason)
	cf.notify(func(o core.ConferenceObserver) { o.ConferenceFailed(err) })
}

func (cf *conference) handleKicked() {
	log.Info().Str("module", "signal").Msg("kicked from room")
	cf.mu.Lock()
	cf.joined = false
	cf.mu.Unlock()
	cf.notify(func(o core.ConferenceObserver) { o.Kicked() })
}

func (cf *conference) handleInterrupted() {
	cf.notify(func(o core.ConferenceObserver) { o.ConnectionInterrupted() })
}

func (cf *conference) handleRestored() {
	cf.notify(func(o core.ConferenceObserver) { o.ConnectionRestored() })
}

func (cf *conference) handleLogout(data []byte) {
	var p struct {
		Type string `json:"type"`
		URL  string `json:"url"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad logout payload")
		return
	}
	cf.logoutMu.Lock()
	ch := cf.logoutCh
	cf.logoutMu.Unlock()
	if ch != nil {
		select {
		case ch <- p.URL:
		default:
		}
	}
}
