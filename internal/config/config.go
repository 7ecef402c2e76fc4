package config

import (
	"errors"
	"strings"

	"github.com/spf13/viper"
)

// Features toggles optional surfaces of the API. Everything defaults on; a
// deployment that only wants the public report/lookup endpoints can switch
// the staff console surfaces off.
type Features struct {
	DonationConsole bool `mapstructure:"donation_console"`
	AuditConsole    bool `mapstructure:"audit_console"`
	LiveDashboard   bool `mapstructure:"live_dashboard"`
}

// Config is the process configuration, read from config.yaml when present
// and overridable with RESCUE_-prefixed environment variables
// (RESCUE_ADDR, RESCUE_PG_DSN, RESCUE_RATE_BURST, ...).
type Config struct {
	Addr       string   `mapstructure:"addr"`
	PGDSN      string   `mapstructure:"pg_dsn"`
	RateBurst  int      `mapstructure:"rate_burst"`
	RatePerSec int      `mapstructure:"rate_per_sec"`
	Features   Features `mapstructure:"features"`

	BootstrapAdminEmail    string `mapstructure:"bootstrap_admin_email"`
	BootstrapAdminPassword string `mapstructure:"bootstrap_admin_password"`
}

// Load reads configuration. A missing config file is fine; environment
// variables alone can configure the process.
func Load() (Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/rabbithaven")

	v.SetEnvPrefix("RESCUE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Empty defaults keep env-only keys visible to Unmarshal.
	v.SetDefault("addr", ":8080")
	v.SetDefault("pg_dsn", "")
	v.SetDefault("bootstrap_admin_email", "")
	v.SetDefault("bootstrap_admin_password", "")
	v.SetDefault("rate_burst", 60)
	v.SetDefault("rate_per_sec", 20)
	v.SetDefault("features.donation_console", true)
	v.SetDefault("features.audit_console", true)
	v.SetDefault("features.live_dashboard", true)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
