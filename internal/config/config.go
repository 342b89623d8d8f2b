package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	ServerURL  string        `mapstructure:"server_url"`
	RoomName   string        `mapstructure:"room_name"`
	Resolution int           `mapstructure:"resolution"`
	PingPeriod time.Duration `mapstructure:"ping_period"`

	// AuthRetryDelay is the delay before the single rejoin retry after an
	// authentication-required failure.
	AuthRetryDelay time.Duration `mapstructure:"auth_retry_delay"`

	// ControlAddr is where the local control API listens; empty disables
	// the control plane.
	ControlAddr string `mapstructure:"control_addr"`
	Mode        string `mapstructure:"mode"`
	Secret      string `mapstructure:"secret"`

	// Media playback files used by the file capture backend.
	MediaAudioFile   string `mapstructure:"media_audio_file"`
	MediaVideoFile   string `mapstructure:"media_video_file"`
	MediaDesktopFile string `mapstructure:"media_desktop_file"`

	EnableRecording     bool   `mapstructure:"enable_recording"`
	RecordingType       string `mapstructure:"recording_type"`
	DesktopExtensionURL string `mapstructure:"desktop_extension_url"`
	StartAudioMuted     bool   `mapstructure:"start_audio_muted"`
	StartVideoMuted     bool   `mapstructure:"start_video_muted"`
	SettingsPath        string `mapstructure:"settings_path"`
	Debug               bool   `mapstructure:"debug"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)

	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetDefault("server_url", "wss://localhost:8443/ws/signal")
	v.SetDefault("room_name", "lobby")
	v.SetDefault("resolution", 720)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("auth_retry_delay", "5s")
	v.SetDefault("settings_path", "settings.yaml")
	v.SetDefault("control_addr", ":8089")
	v.SetDefault("mode", "debug")
	v.SetDefault("secret", "confab-dev-secret")
	v.SetDefault("media_audio_file", "media/audio.ogg")
	v.SetDefault("media_video_file", "media/video.ivf")

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("config file not found (%s), using defaults\n", fileName)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
