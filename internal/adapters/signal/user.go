package signal

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/solivar/confab/internal/core"
	"github.com/solivar/confab/internal/domain"
)

func (cf *conference) handleMemberJoined(data []byte) {
	var p struct {
		Type string             `json:"type"`
		User domain.Participant `json:"user"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad member_joined payload")
		return
	}

	cf.mu.Lock()
	cf.participants[p.User.ID] = &p.User
	cf.mu.Unlock()

	log.Info().Str("module", "signal").Str("id", string(p.User.ID)).Msg("member joined")
	cf.notify(func(o core.ConferenceObserver) { o.UserJoined(&p.User) })
}

func (cf *conference) handleMemberLeft(data []byte) {
	var p struct {
		Type string `json:"type"`
		ID   string `json:"id"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad member_left payload")
		return
	}
	id := domain.ParticipantID(p.ID)

	cf.mu.Lock()
	name := ""
	if m, ok := cf.participants[id]; ok {
		name = m.DisplayName
	}
	delete(cf.participants, id)
	cf.mu.Unlock()

	log.Info().Str("module", "signal").Str("id", p.ID).Msg("member left")
	cf.notify(func(o core.ConferenceObserver) { o.UserLeft(id, name) })
}

func (cf *conference) handleMemberUpdated(data []byte) {
	var p struct {
		Type string             `json:"type"`
		User domain.Participant `json:"user"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad member_updated payload")
		return
	}

	cf.mu.Lock()
	cf.participants[p.User.ID] = &p.User
	cf.mu.Unlock()
}

func (cf *conference) handleRole(data []byte) {
	var p struct {
		Type string `json:"type"`
		ID   string `json:"id"`
		Role string `json:"role"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad role payload")
		return
	}
	id := domain.ParticipantID(p.ID)
	role := domain.Role(p.Role)

	cf.mu.Lock()
	if id == cf.myID {
		cf.moderator = role == domain.RoleModerator
	}
	if m, ok := cf.participants[id]; ok {
		m.Role = role
	}
	cf.mu.Unlock()

	log.Info().Str("module", "signal").Str("id", p.ID).Str("role", p.Role).Msg("role changed")
	cf.notify(func(o core.ConferenceObserver) { o.RoleChanged(id, role) })
}

func (cf *conference) handleDisplayName(data []byte) {
	var p struct {
		Type string `json:"type"`
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad display_name payload")
		return
	}
	id := domain.ParticipantID(p.ID)

	cf.mu.Lock()
	if m, ok := cf.participants[id]; ok {
		m.DisplayName = domain.TrimDisplayName(p.Name)
	}
	cf.mu.Unlock()

	cf.notify(func(o core.ConferenceObserver) { o.DisplayNameChanged(id, p.Name) })
}

func (cf *conference) handleProperty(data []byte) {
	var p struct {
		Type  string `json:"type"`
		ID    string `json:"id"`
		Name  string `json:"name"`
		Value string `json:"value"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad property payload")
		return
	}
	id := domain.ParticipantID(p.ID)
	cf.notify(func(o core.ConferenceObserver) { o.ParticipantPropertyChanged(id, p.Name, p.Value) })
}

func (cf *conference) handleDominantSpeaker(data []byte) {
	var p struct {
		Type string `json:"type"`
		ID   string `json:"id"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad dominant_speaker payload")
		return
	}
	id := domain.ParticipantID(p.ID)
	cf.notify(func(o core.ConferenceObserver) { o.DominantSpeakerChanged(id) })
}

func (cf *conference) handleAuthStatus(data []byte) {
	var p struct {
		Type    string `json:"type"`
		Enabled bool   `json:"enabled"`
		Login   string `json:"login"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad auth_status payload")
		return
	}
	cf.notify(func(o core.ConferenceObserver) { o.AuthStatusChanged(p.Enabled, p.Login) })
}
