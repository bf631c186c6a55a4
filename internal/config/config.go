package config // package config loads application configuration from environment variables

import (
    "log"     // log is used to report configuration errors and halt execution
    "os"      // os provides access to environment variables
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  The types reflect how the values are used in
// the application: strings for identifiers and secrets, ints for durations.
type Config struct {
    Env            string // application environment (e.g. "dev", "prod")
    Port           string // HTTP port to listen on
    DBUser         string // database username
    DBPass         string // database password (optional)
    DBHost         string // database host address
    DBPort         string // database port number
    DBName         string // database name
    JWTSecret      string // secret used to verify (and in dev, sign) JWTs
    AccessTTLMin   int    // access token time‑to‑live in minutes for dev tokens
    CatalogPath    string // path to the static seat/zone catalog (TOML)
    EventsBackend  string // amqp | nats | none
    NATSURL        string // NATS server URL when EventsBackend is nats
    BookingLogDir  string // directory the booking consumer appends to
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
    return Config{
        Env:           must("APP_ENV"),                          // environment (dev/test/prod)
        Port:          must("APP_PORT"),                         // port to bind the HTTP server
        DBUser:        must("DB_USER"),                          // database user
        DBPass:        os.Getenv("DB_PASS"),                     // database password (empty allowed)
        DBHost:        must("DB_HOST"),                          // database host
        DBPort:        must("DB_PORT"),                          // database port
        DBName:        must("DB_NAME"),                          // database name
        JWTSecret:     must("JWT_SECRET"),                       // secret used for verifying JWTs
        AccessTTLMin:  envInt("ACCESS_TOKEN_TTL_MIN", 60),       // TTL for dev access tokens in minutes
        CatalogPath:   envStr("CATALOG_PATH", "configs/catalog.toml"),
        EventsBackend: envStr("EVENTS_BACKEND", "amqp"),
        NATSURL:       envStr("NATS_URL", "nats://127.0.0.1:4222"),
        BookingLogDir: envStr("BOOKING_LOG_DIR", "logs"),
    }
}

// LoadDB reads only the database settings.  The migrate command uses it so
// that it can run without the HTTP and JWT variables being present.
func LoadDB() Config {
    return Config{
        DBUser: must("DB_USER"),
        DBPass: os.Getenv("DB_PASS"),
        DBHost: must("DB_HOST"),
        DBPort: must("DB_PORT"),
        DBName: must("DB_NAME"),
    }
}

// LoadAuth reads only the token settings.  The token command uses it to
// mint development access tokens.
func LoadAuth() Config {
    return Config{
        JWTSecret:    must("JWT_SECRET"),
        AccessTTLMin: envInt("ACCESS_TOKEN_TTL_MIN", 60),
    }
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
    v, ok := os.LookupEnv(key)
    if !ok || v == "" {
        log.Fatalf("missing required env var: %s", key)
    }
    return v
}
