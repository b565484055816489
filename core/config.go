package core

import (
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"
	_ "time/tzdata" // the default scheduling zone must load on hosts without zoneinfo

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Config struct {
		Debug            bool
		TestMode         bool
		Env              string
		Build            string
		AppName          string
		SecretKey        string
		WorkDir          string
		FrontendBaseURL  string
		DefaultFromEmail mail.Address
		SendgridAPIKey   string
		RollbarToken     string

		Log        LogConfig
		Server     ServerConfig
		Database   DatabaseConfig
		Redis      RedisConfig
		Scheduling SchedulingConfig
	}

	LogConfig struct {
		Level  string // debug | info | warn | error
		Format string // json | console
	}

	ServerConfig struct {
		Host                      string
		Address                   string
		DebugHost                 string
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
	}

	DatabaseConfig struct {
		Engine        string
		Host          string
		Port          string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	RedisConfig struct {
		Addr       string
		Password   string
		DB         int
		PendingTTL time.Duration
	}

	SchedulingConfig struct {
		Location *time.Location

		// EnforcePermissions switches the approval workflow on. When off,
		// every commitment is uncontrolled.
		EnforcePermissions      bool
		RoomCoverGroupElementID string
		ClashCategories         []string

		FreeFinderNumDays     int
		FreeFinderDays        []bool // indexed by time.Weekday
		FreeFinderDayStartsAt string
		FreeFinderDayEndsAt   string
	}
)

func (dbc DatabaseConfig) Address() string {
	return net.JoinHostPort(dbc.Host, dbc.Port)
}

// NewConfig loads the configuration for the current ENV (DEV by default).
// Values come from defaults, then config/.env.<env> if present, then env vars prefixed with the ENV name.
func NewConfig() *Config {
	v := viper.New()

	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("build", "develop")
	v.SetDefault("appName", "Xronos")
	v.SetDefault("secretKey", "x7k!d2m#r0nos-9qz$e4t&w1p@c8v^b6n*h3j(y5u)g0f")
	v.SetDefault("workDir", ".")
	v.SetDefault("frontendBaseURL", "http://localhost:8080")
	v.SetDefault("defaultFromEmail", "Xronos <noreply@localhost>")
	v.SetDefault("sendgridApiKey", "")
	v.SetDefault("rollbarToken", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.address", ":8000")
	v.SetDefault("server.debugHost", ":4000")
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("server.jwtRefreshExpirationDelta", 4*time.Hour)

	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.name", "xronos")
	v.SetDefault("database.user", "xronos")
	v.SetDefault("database.password", "xronos")
	v.SetDefault("database.adminUser", "postgres")
	v.SetDefault("database.adminPassword", "postgres")
	v.SetDefault("database.disableTLS", true)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pendingTTL", 10*time.Minute)

	v.SetDefault("scheduling.timeZone", "Europe/London")
	v.SetDefault("scheduling.enforcePermissions", true)
	v.SetDefault("scheduling.roomCoverGroupElementID", "")
	v.SetDefault("scheduling.clashCategories", "Lesson")
	v.SetDefault("scheduling.freeFinderNumDays", 14)
	v.SetDefault("scheduling.freeFinderDays", "1,2,3,4,5") // Mon - Fri
	v.SetDefault("scheduling.freeFinderDayStartsAt", "08:30")
	v.SetDefault("scheduling.freeFinderDayEndsAt", "17:30")

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(v.GetString("workDir"), "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	conf := &Config{
		Debug:           v.GetBool("debug"),
		TestMode:        v.GetBool("testMode"),
		Env:             env,
		Build:           v.GetString("build"),
		AppName:         v.GetString("appName"),
		SecretKey:       v.GetString("secretKey"),
		WorkDir:         v.GetString("workDir"),
		FrontendBaseURL: v.GetString("frontendBaseURL"),
		SendgridAPIKey:  v.GetString("sendgridApiKey"),
		RollbarToken:    v.GetString("rollbarToken"),
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
		Server: ServerConfig{
			Host:                      v.GetString("server.host"),
			Address:                   v.GetString("server.address"),
			DebugHost:                 v.GetString("server.debugHost"),
			ShutdownTimeout:           v.GetDuration("server.shutdownTimeout"),
			JWTExpirationDelta:        v.GetDuration("server.jwtExpirationDelta"),
			JWTRefreshExpirationDelta: v.GetDuration("server.jwtRefreshExpirationDelta"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("database.engine"),
			Host:          v.GetString("database.host"),
			Port:          v.GetString("database.port"),
			Name:          v.GetString("database.name"),
			User:          v.GetString("database.user"),
			Password:      v.GetString("database.password"),
			AdminUser:     v.GetString("database.adminUser"),
			AdminPassword: v.GetString("database.adminPassword"),
			DisableTLS:    v.GetBool("database.disableTLS"),
		},
		Redis: RedisConfig{
			Addr:       v.GetString("redis.addr"),
			Password:   v.GetString("redis.password"),
			DB:         v.GetInt("redis.db"),
			PendingTTL: v.GetDuration("redis.pendingTTL"),
		},
		Scheduling: SchedulingConfig{
			EnforcePermissions:      v.GetBool("scheduling.enforcePermissions"),
			RoomCoverGroupElementID: v.GetString("scheduling.roomCoverGroupElementID"),
			ClashCategories:         splitList(v.GetString("scheduling.clashCategories")),
			FreeFinderNumDays:       v.GetInt("scheduling.freeFinderNumDays"),
			FreeFinderDays:          parseWeekdays(v.GetString("scheduling.freeFinderDays")),
			FreeFinderDayStartsAt:   v.GetString("scheduling.freeFinderDayStartsAt"),
			FreeFinderDayEndsAt:     v.GetString("scheduling.freeFinderDayEndsAt"),
		},
	}

	if addr, err := mail.ParseAddress(v.GetString("defaultFromEmail")); err == nil {
		conf.DefaultFromEmail = *addr
	} else {
		log.Fatalf("config.defaultFromEmail: %v", err)
	}

	loc, err := time.LoadLocation(v.GetString("scheduling.timeZone"))
	if err != nil {
		log.Fatalf("config.scheduling.timeZone: %v", err)
	}
	conf.Scheduling.Location = loc

	return conf
}

// NewTestConfig returns a config suitable for unit tests; nothing is read from the environment.
func NewTestConfig() *Config {
	return &Config{
		Debug:            false,
		TestMode:         true,
		Env:              "TEST",
		Build:            "test",
		AppName:          "Xronos",
		SecretKey:        "secret",
		WorkDir:          ".",
		FrontendBaseURL:  "http://localhost:8080",
		DefaultFromEmail: mail.Address{Name: "Xronos", Address: "noreply@localhost"},
		Log:              LogConfig{Level: "error", Format: "console"},
		Server: ServerConfig{
			Host:                      "localhost",
			ShutdownTimeout:           time.Second,
			JWTExpirationDelta:        10 * time.Minute,
			JWTRefreshExpirationDelta: 4 * time.Hour,
		},
		Redis: RedisConfig{PendingTTL: time.Minute},
		Scheduling: SchedulingConfig{
			Location:              time.UTC,
			EnforcePermissions:    true,
			ClashCategories:       []string{"Lesson"},
			FreeFinderNumDays:     14,
			FreeFinderDays:        []bool{false, true, true, true, true, true, false},
			FreeFinderDayStartsAt: "08:30",
			FreeFinderDayEndsAt:   "17:30",
		},
	}
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	list := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			list = append(list, p)
		}
	}
	return list
}

// parseWeekdays turns "1,2,3" (0 = Sunday) into a 7 item mask.
func parseWeekdays(s string) []bool {
	days := make([]bool, 7)
	for _, p := range splitList(s) {
		if len(p) == 1 && p[0] >= '0' && p[0] <= '6' {
			days[p[0]-'0'] = true
		}
	}
	return days
}
