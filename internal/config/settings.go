package config

import (
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// Settings is the viper-backed persisted local settings store: profile
// fields and the last selected device ids. Writes marked persist are
// flushed to disk; best effort, a failed flush only logs.
type Settings struct {
	mu   sync.RWMutex
	v    *viper.Viper
	path string
}

func LoadSettings(path string) *Settings {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		log.Debug().Str("module", "config").Str("path", path).Msg("no stored settings, starting fresh")
	}
	return &Settings{v: v, path: path}
}

func (s *Settings) getString(key string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.v.GetString(key)
}

func (s *Settings) setString(key, val string, persist bool) {
	s.mu.Lock()
	s.v.Set(key, val)
	s.mu.Unlock()
	if persist {
		s.flush()
	}
}

func (s *Settings) flush() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.v.WriteConfigAs(s.path); err != nil {
		log.Warn().Err(err).Str("module", "config").Msg("failed to persist settings")
	}
}

func (s *Settings) DisplayName() string        { return s.getString("display_name") }
func (s *Settings) SetDisplayName(name string) { s.setString("display_name", name, true) }

func (s *Settings) Email() string         { return s.getString("email") }
func (s *Settings) SetEmail(email string) { s.setString("email", email, true) }

func (s *Settings) AvatarID() string  { return s.getString("avatar_id") }
func (s *Settings) AvatarURL() string { return s.getString("avatar_url") }

func (s *Settings) CameraDeviceID() string { return s.getString("camera_device_id") }
func (s *Settings) SetCameraDeviceID(id string, persist bool) {
	s.setString("camera_device_id", id, persist)
}

func (s *Settings) MicDeviceID() string { return s.getString("mic_device_id") }
func (s *Settings) SetMicDeviceID(id string, persist bool) {
	s.setString("mic_device_id", id, persist)
}

func (s *Settings) AudioOutputDeviceID() string { return s.getString("audio_output_device_id") }
func (s *Settings) SetAudioOutputDeviceID(id string) error {
	s.setString("audio_output_device_id", id, true)
	return nil
}
