package config // package config loads application configuration from environment variables

import (
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Store drivers accepted in STORE_DRIVER.
const (
	DriverMySQL  = "mysql"
	DriverMemory = "memory"
)

// Config holds all runtime configuration values. Each field corresponds to
// an environment variable.
type Config struct {
	Env           string        // APP_ENV: dev, test or prod
	Port          string        // APP_PORT
	StoreDriver   string        // STORE_DRIVER: mysql (default) or memory
	DBUser        string        // DB_USER
	DBPass        string        // DB_PASS (empty allowed)
	DBHost        string        // DB_HOST
	DBPort        string        // DB_PORT
	DBName        string        // DB_NAME
	JWTSecret     string        // JWT_SECRET, signs scanner bearer tokens
	AccessTTL     time.Duration // ACCESS_TOKEN_TTL_MIN
	BcryptCost    int           // BCRYPT_COST
	AMQPURL       string        // RABBITMQ_URL or AMQP_URL
	EventsEnabled bool          // EVENTS_ENABLED
	EventLogDir   string        // EVENT_LOG_DIR, where checkin.log is written
	TimeZone      string        // APP_TIMEZONE, used for hourly stats and log times
	AdminUsername string        // BOOTSTRAP_ADMIN_USERNAME
	AdminEmail    string        // BOOTSTRAP_ADMIN_EMAIL
	AdminPassword string        // BOOTSTRAP_ADMIN_PASSWORD
}

// IsProd reports whether cookies must be marked Secure.
func (c Config) IsProd() bool { return c.Env == "prod" }

// Location resolves TimeZone, falling back to the server's local zone.
func (c Config) Location() *time.Location {
	if c.TimeZone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		log.Printf("config: unknown APP_TIMEZONE %q, using local time", c.TimeZone)
		return time.Local
	}
	return loc
}

// Load reads a .env file when present, then the environment. Required
// variables are enforced by must() and missing values stop the process.
// Database variables are only required for the mysql driver.
func Load() Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("config: .env not loaded: %v", err)
	}

	cfg := Config{
		Env:           must("APP_ENV"),
		Port:          envStr("APP_PORT", "3000"),
		StoreDriver:   envStr("STORE_DRIVER", DriverMySQL),
		DBPass:        os.Getenv("DB_PASS"),
		JWTSecret:     must("JWT_SECRET"),
		AccessTTL:     time.Duration(envInt("ACCESS_TOKEN_TTL_MIN", 15)) * time.Minute,
		BcryptCost:    envInt("BCRYPT_COST", 10),
		AMQPURL:       envStr("RABBITMQ_URL", os.Getenv("AMQP_URL")),
		EventsEnabled: envBool("EVENTS_ENABLED", false),
		EventLogDir:   envStr("EVENT_LOG_DIR", "logs"),
		TimeZone:      os.Getenv("APP_TIMEZONE"),
		AdminUsername: envStr("BOOTSTRAP_ADMIN_USERNAME", "admin"),
		AdminEmail:    envStr("BOOTSTRAP_ADMIN_EMAIL", "admin@partylogger.local"),
		AdminPassword: os.Getenv("BOOTSTRAP_ADMIN_PASSWORD"),
	}

	switch cfg.StoreDriver {
	case DriverMySQL:
		cfg.DBUser = must("DB_USER")
		cfg.DBHost = must("DB_HOST")
		cfg.DBPort = must("DB_PORT")
		cfg.DBName = must("DB_NAME")
	case DriverMemory:
	default:
		log.Fatalf("invalid STORE_DRIVER %q (want mysql or memory)", cfg.StoreDriver)
	}
	if cfg.EventsEnabled && cfg.AMQPURL == "" {
		log.Fatalf("EVENTS_ENABLED requires RABBITMQ_URL or AMQP_URL")
	}
	return cfg
}

// must retrieves the value of a required environment variable. If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}
