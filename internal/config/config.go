package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
)

type Config struct {
	Port                      string
	DatabaseURL               string
	PortalAPIBaseURL          string
	PortalAPITimeout          time.Duration
	NominatimURL              string
	NominatimUserAgent        string
	GeocodeTimeout            time.Duration
	StatusPollInterval        time.Duration
	DashboardInterval         time.Duration
	TickInterval              time.Duration
	LocationClearDelay        time.Duration
	SessionTTL                time.Duration
	Timezone                  *time.Location
	ScreenIdleTimeout         time.Duration
	ScreenSweepInterval       time.Duration
	ExpectedHours             int
	ShiftStartMinutes         int
	LateGraceMinutes          int
	RateLimitPerMinute        int
	RateLimitBurst            int
	SessionRateLimitPerMinute int
	SessionRateLimitBurst     int
	TrustProxy                bool
	Environment               string
	OTLPEndpoint              string
	OTLPInsecure              bool
	TraceSamplePercent        int
}

// Load reads the environment, after applying a .env file when one exists.
func Load() Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("config .env error: %v", err)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	return Config{
		Port:                      port,
		DatabaseURL:               os.Getenv("DB_DSN"),
		PortalAPIBaseURL:          readString("PORTAL_API_BASE_URL", "http://localhost:8000/api"),
		PortalAPITimeout:          readDurationSeconds("PORTAL_API_TIMEOUT_SECONDS", 10),
		NominatimURL:              readString("NOMINATIM_URL", "https://nominatim.openstreetmap.org"),
		NominatimUserAgent:        readString("NOMINATIM_USER_AGENT", "hr-portal-client"),
		GeocodeTimeout:            readDurationSeconds("GEOCODE_TIMEOUT_SECONDS", 5),
		StatusPollInterval:        readDurationSeconds("STATUS_POLL_SECONDS", 30),
		DashboardInterval:         readDurationSeconds("DASHBOARD_REFRESH_SECONDS", 30),
		TickInterval:              readDurationSeconds("CLOCK_TICK_SECONDS", 60),
		LocationClearDelay:        readDurationSeconds("LOCATION_CLEAR_SECONDS", 5),
		SessionTTL:                readDurationSeconds("SESSION_TTL_SECONDS", 8*3600),
		Timezone:                  readLocation("TIMEZONE", "Asia/Kolkata"),
		ScreenIdleTimeout:         readDurationSeconds("SCREEN_IDLE_SECONDS", 30*60),
		ScreenSweepInterval:       readDurationSeconds("SCREEN_SWEEP_SECONDS", 60),
		ExpectedHours:             readInt("EXPECTED_HOURS", 9),
		ShiftStartMinutes:         readClockMinutes("SHIFT_START", 9*60),
		LateGraceMinutes:          readInt("LATE_GRACE_MINUTES", 15),
		RateLimitPerMinute:        readInt("RATE_LIMIT_PER_MIN", 120),
		RateLimitBurst:            readInt("RATE_LIMIT_BURST", 30),
		SessionRateLimitPerMinute: readInt("SESSION_RATE_LIMIT_PER_MIN", 60),
		SessionRateLimitBurst:     readInt("SESSION_RATE_LIMIT_BURST", 20),
		TrustProxy:                readBool("TRUST_PROXY", false),
		Environment:               readString("DEPLOY_ENV", "development"),
		OTLPEndpoint:              os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		OTLPInsecure:              readBool("OTEL_EXPORTER_OTLP_INSECURE", false),
		TraceSamplePercent:        readInt("TRACE_SAMPLE_PERCENT", 100),
	}
}

func readString(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func readDurationSeconds(key string, fallback int) time.Duration {
	value := readInt(key, fallback)
	if value <= 0 {
		return 0
	}
	return time.Duration(value) * time.Second
}

func readInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

// readClockMinutes parses a 24h "HH:MM" value into minutes after midnight.
func readClockMinutes(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	parsed, err := time.Parse("15:04", raw)
	if err != nil {
		return fallback
	}
	return parsed.Hour()*60 + parsed.Minute()
}

func readBool(key string, fallback bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return value
}

// readLocation loads an IANA zone name. An unknown name falls back to the
// process's local zone.
func readLocation(key, fallback string) *time.Location {
	name := readString(key, fallback)
	loc, err := time.LoadLocation(name)
	if err != nil {
		log.Printf("config %s=%q invalid, using local time: %v", key, name, err)
		return time.Local
	}
	return loc
}
