package core

import (
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// due date cutoff policies
const (
	CutoffStartOfDay = "start_of_day"
	CutoffEndOfDay   = "end_of_day"
)

type (
	Config struct {
		Debug            bool
		TestMode         bool
		AppName          string
		Env              string
		Build            string
		RollbarToken     string
		SendgridAPIKey   string
		DefaultFromEmail mail.Address
		PrincipalEmail   mail.Address
		Timezone         *time.Location
		Cutoff           string

		Server    ServerConfig
		Database  DatabaseConfig
		Scheduler SchedulerConfig
	}

	ServerConfig struct {
		Host            string
		DebugHost       string
		ShutdownTimeout time.Duration
		DisableReqLogs  bool
	}

	DatabaseConfig struct {
		Engine        string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		Host          string
		Port          string
		Name          string
		DisableTLS    bool
	}

	SchedulerConfig struct {
		Disabled          bool
		OverdueDigestSpec string
	}
)

func (db DatabaseConfig) Address() string {
	return net.JoinHostPort(db.Host, db.Port)
}

// IsInMem tells whether repositories should live in memory instead of postgres.
func (db DatabaseConfig) IsInMem() bool {
	return db.Engine == "inmem"
}

// NewConfig loads the configuration from the environment, prefixed with ENV (DEV (default), TEST, QA, PROD).
// A `config/.env.<env>` file is loaded first when present.
func NewConfig() *Config {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("appName", "Jardin")
	v.SetDefault("build", "dev")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("sendgridApiKey", "")
	v.SetDefault("defaultFromEmail", "Jardin <noreply@localhost>")
	v.SetDefault("principalEmail", "Principal <principal@localhost>")
	v.SetDefault("timezone", "America/Argentina/Buenos_Aires")
	v.SetDefault("cutoff", CutoffStartOfDay)
	v.SetDefault("server.host", "0.0.0.0:8000")
	v.SetDefault("server.debugHost", "0.0.0.0:4000")
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.disableReqLogs", false)
	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.user", "jardin")
	v.SetDefault("database.password", "jardin")
	v.SetDefault("database.adminUser", "postgres")
	v.SetDefault("database.adminPassword", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.name", "jardin")
	v.SetDefault("database.disableTLS", true)
	v.SetDefault("scheduler.disabled", false)
	v.SetDefault("scheduler.overdueDigestSpec", "0 8 * * *")

	env := strings.ToUpper(os.Getenv("ENV"))
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join("config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	loc, err := time.LoadLocation(v.GetString("timezone"))
	if err != nil {
		log.Fatalf("config.timezone(%s): %v", v.GetString("timezone"), err)
	}
	cutoff := v.GetString("cutoff")
	if cutoff != CutoffStartOfDay && cutoff != CutoffEndOfDay {
		log.Fatalf("config.cutoff(%s): must be one of %s, %s", cutoff, CutoffStartOfDay, CutoffEndOfDay)
	}

	return &Config{
		Debug:            v.GetBool("debug"),
		TestMode:         v.GetBool("testMode"),
		AppName:          v.GetString("appName"),
		Env:              env,
		Build:            v.GetString("build"),
		RollbarToken:     v.GetString("rollbarToken"),
		SendgridAPIKey:   v.GetString("sendgridApiKey"),
		DefaultFromEmail: mustParseAddress("defaultFromEmail", v.GetString("defaultFromEmail")),
		PrincipalEmail:   mustParseAddress("principalEmail", v.GetString("principalEmail")),
		Timezone:         loc,
		Cutoff:           cutoff,
		Server: ServerConfig{
			Host:            v.GetString("server.host"),
			DebugHost:       v.GetString("server.debugHost"),
			ShutdownTimeout: v.GetDuration("server.shutdownTimeout"),
			DisableReqLogs:  v.GetBool("server.disableReqLogs"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("database.engine"),
			User:          v.GetString("database.user"),
			Password:      v.GetString("database.password"),
			AdminUser:     v.GetString("database.adminUser"),
			AdminPassword: v.GetString("database.adminPassword"),
			Host:          v.GetString("database.host"),
			Port:          v.GetString("database.port"),
			Name:          v.GetString("database.name"),
			DisableTLS:    v.GetBool("database.disableTLS"),
		},
		Scheduler: SchedulerConfig{
			Disabled:          v.GetBool("scheduler.disabled"),
			OverdueDigestSpec: v.GetString("scheduler.overdueDigestSpec"),
		},
	}
}

func mustParseAddress(key, s string) mail.Address {
	addr, err := mail.ParseAddress(s)
	if err != nil {
		log.Fatalf("config.%s(%s): %v", key, s, err)
	}
	return *addr
}

// Location returns the configured timezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	if c == nil || c.Timezone == nil {
		return time.UTC
	}
	return c.Timezone
}
