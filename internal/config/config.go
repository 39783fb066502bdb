package config // package config loads application configuration from environment variables

import (
    "log"     // log is used to report configuration errors and halt execution
    "os"      // os provides access to environment variables
    "strconv" // strconv converts strings to other types
    "time"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  Restaurant behaviour (hours, cutoffs, waitlist
// estimates) is not here: it lives in the settings table and is read per
// request as a snapshot.
type Config struct {
    Env          string // application environment; "demo" runs on the in-memory store
    Port         string // HTTP port to listen on
    DBUser       string // database username
    DBPass       string // database password (optional)
    DBHost       string // database host address
    DBPort       string // database port number
    DBName       string // database name
    JWTSecret    string // secret used to sign staff JWTs
    AccessTTLMin int    // access token time-to-live in minutes
    BcryptCost   int    // bcrypt cost for password hashing

    RabbitURL       string // side-effect broker; empty runs side effects in-process
    SideEffectQueue string // queue name for side-effect tasks
    DedupeTTL       time.Duration

    POSSyncInterval time.Duration // reconciliation period; 0 disables the timer
    POSSyncTimeout  time.Duration // bound on one vendor fetch

    SeedManagerEmail    string // optional manager account created at startup
    SeedManagerPassword string
}

// Demo reports whether the process runs without MySQL.
func (c Config) Demo() bool { return c.Env == "demo" }

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.  Database variables
// are only required outside demo mode.
func Load() Config {
    c := Config{
        Env:          must("APP_ENV"),                 // environment (demo/dev/prod)
        Port:         envStr("APP_PORT", "8080"),      // port to bind the HTTP server
        JWTSecret:    must("JWT_SECRET"),              // secret used for signing JWTs
        AccessTTLMin: mustInt("ACCESS_TOKEN_TTL_MIN"), // TTL for access tokens in minutes
        BcryptCost:   envInt("BCRYPT_COST", 12),       // bcrypt cost factor

        RabbitURL:       os.Getenv("RABBITMQ_URL"),
        SideEffectQueue: envStr("SIDE_EFFECT_QUEUE", "frontdesk.sidefx"),
        DedupeTTL:       envDur("SIDE_EFFECT_DEDUPE_TTL", 24*time.Hour),

        POSSyncInterval: envDur("POS_SYNC_INTERVAL", 45*time.Second),
        POSSyncTimeout:  envDur("POS_SYNC_TIMEOUT", 10*time.Second),

        SeedManagerEmail:    os.Getenv("SEED_MANAGER_EMAIL"),
        SeedManagerPassword: os.Getenv("SEED_MANAGER_PASSWORD"),
    }
    if !c.Demo() {
        c.DBUser = must("DB_USER")        // database user
        c.DBPass = os.Getenv("DB_PASS")   // database password (empty allowed)
        c.DBHost = must("DB_HOST")        // database host
        c.DBPort = envStr("DB_PORT", "3306")
        c.DBName = must("DB_NAME")        // database name
    }
    return c
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

// mustInt is like must() but converts the retrieved string into an integer.
// If conversion fails, the application logs a fatal error and exits.
func mustInt(key string) int {
    s := must(key)
    n, err := strconv.Atoi(s)
    if err != nil {
        log.Fatalf("invalid int for %s: %q", key, s)
    }
    return n
}
