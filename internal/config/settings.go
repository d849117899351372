package config

import (
	"time"

	"github.com/spf13/viper"
)

// Settings are the application-level options, as opposed to the budget plan.
type Settings struct {
	DatabasePath string
	LogLevel     string
	LogFormat    string
	AMQPURL      string
	Exchange     string
	Queue        string
	CacheTTL     time.Duration
	CacheCleanup time.Duration
}

// SetDefaults registers default values for every setting on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("database.path", "~/.local/share/plan/plan.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("cache.ttl", 15*time.Minute)
	v.SetDefault("cache.cleanup", 30*time.Minute)
	v.SetDefault("events.amqp_url", "")
	v.SetDefault("events.exchange", "plan.events")
	v.SetDefault("events.queue", "plan.transactions")
}

// LoadSettings reads settings from v. Defaults apply to anything unset.
func LoadSettings(v *viper.Viper) Settings {
	SetDefaults(v)
	return Settings{
		DatabasePath: ExpandPath(v.GetString("database.path")),
		LogLevel:     v.GetString("log.level"),
		LogFormat:    v.GetString("log.format"),
		CacheTTL:     v.GetDuration("cache.ttl"),
		CacheCleanup: v.GetDuration("cache.cleanup"),
		AMQPURL:      v.GetString("events.amqp_url"),
		Exchange:     v.GetString("events.exchange"),
		Queue:        v.GetString("events.queue"),
	}
}

// EventsEnabled reports whether an AMQP broker is configured.
func (s Settings) EventsEnabled() bool {
	return s.AMQPURL != ""
}
