package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultEnvFile      = ".env"
	defaultPort         = "8080"
	defaultReadTimeout  = 15 * time.Second
	defaultWriteTimeout = 30 * time.Second
	defaultIdleTimeout  = 120 * time.Second

	defaultGeocodeTimeout      = 8 * time.Second
	defaultGeocodeRetryBase    = 700 * time.Millisecond
	defaultGeocodeMaxAttempts  = 2
	defaultGeocodeConcurrency  = 3
	defaultOverpassTimeout     = 25 * time.Second
	defaultPOICacheTTL         = 15 * time.Minute
	defaultComparisonTTL       = 30 * time.Minute
	defaultPaymentCaptureDelay = 1200 * time.Millisecond

	defaultIdempotencyHeader = "Idempotency-Key"
	defaultIdempotencyTTL    = 24 * time.Hour

	defaultReverseGeocodeURL  = "https://nominatim.openstreetmap.org/reverse?format=jsonv2&lat={lat}&lon={lon}"
	defaultReverseFallback1   = "https://geocode.maps.co/reverse?lat={lat}&lon={lon}"
	defaultReverseFallback2   = "https://api.bigdatacloud.net/data/reverse-geocode-client?latitude={lat}&longitude={lon}&localityLanguage=pt"
	defaultOverpassURL        = "https://overpass-api.de/api/interpreter"
	defaultOverpassMirror1    = "https://overpass.kumi.systems/api/interpreter"
	defaultOverpassMirror2    = "https://maps.mail.ru/osm/tools/overpass/api/interpreter"
	defaultPostalLookupURL    = "https://viacep.com.br/ws"
	defaultRoutingURL         = "https://router.project-osrm.org/route/v1/driving"
	defaultIPGeolocationURL   = "https://ipapi.co/json"
	defaultEnvironmentProfile = "local"
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Server      ServerConfig
	Firebase    FirebaseConfig
	Firestore   FirestoreConfig
	Geo         GeoConfig
	Cache       CacheConfig
	Orders      OrderConfig
	Idempotency IdempotencyConfig
	Environment string
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// FirebaseConfig stores Firebase project settings used for token verification.
type FirebaseConfig struct {
	ProjectID       string
	CredentialsFile string
}

// FirestoreConfig stores document database parameters.
type FirestoreConfig struct {
	ProjectID    string
	EmulatorHost string
}

// GeoConfig bundles the third-party geodata endpoints and their timeouts.
type GeoConfig struct {
	ReverseGeocodeURLs []string
	GeocodeTimeout     time.Duration
	GeocodeRetryBase   time.Duration
	GeocodeMaxAttempts int
	GeocodeConcurrency int

	OverpassURLs    []string
	OverpassTimeout time.Duration

	PostalLookupURL  string
	RoutingURL       string
	IPGeolocationURL string
}

// CacheConfig controls the shared query caches. RedisAddr empty selects the in-memory cache.
type CacheConfig struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	POITTL        time.Duration
	ComparisonTTL time.Duration
}

// OrderConfig tunes order confirmation behaviour.
type OrderConfig struct {
	PaymentCaptureDelay time.Duration
}

// IdempotencyConfig configures Idempotency-Key handling on order confirmation.
type IdempotencyConfig struct {
	Header string
	TTL    time.Duration
}

// Load reads configuration from the environment, optionally merging a .env file first.
func Load() (Config, error) {
	mergeEnvFile(envOr("ENV_FILE", defaultEnvFile))

	cfg := Config{
		Server: ServerConfig{
			Port:         envOr("PORT", defaultPort),
			ReadTimeout:  durationOr("SERVER_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout: durationOr("SERVER_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:  durationOr("SERVER_IDLE_TIMEOUT", defaultIdleTimeout),
		},
		Firebase: FirebaseConfig{
			ProjectID:       strings.TrimSpace(os.Getenv("FIREBASE_PROJECT_ID")),
			CredentialsFile: strings.TrimSpace(os.Getenv("FIREBASE_CREDENTIALS_FILE")),
		},
		Firestore: FirestoreConfig{
			ProjectID:    strings.TrimSpace(os.Getenv("FIRESTORE_PROJECT_ID")),
			EmulatorHost: strings.TrimSpace(os.Getenv("FIRESTORE_EMULATOR_HOST")),
		},
		Geo: GeoConfig{
			ReverseGeocodeURLs: listOr("REVERSE_GEOCODE_URLS",
				defaultReverseGeocodeURL, defaultReverseFallback1, defaultReverseFallback2),
			GeocodeTimeout:     durationOr("GEOCODE_TIMEOUT", defaultGeocodeTimeout),
			GeocodeRetryBase:   durationOr("GEOCODE_RETRY_BASE", defaultGeocodeRetryBase),
			GeocodeMaxAttempts: intOr("GEOCODE_MAX_ATTEMPTS", defaultGeocodeMaxAttempts),
			GeocodeConcurrency: intOr("GEOCODE_CONCURRENCY", defaultGeocodeConcurrency),
			OverpassURLs: listOr("OVERPASS_URLS",
				defaultOverpassURL, defaultOverpassMirror1, defaultOverpassMirror2),
			OverpassTimeout:  durationOr("OVERPASS_TIMEOUT", defaultOverpassTimeout),
			PostalLookupURL:  envOr("POSTAL_LOOKUP_URL", defaultPostalLookupURL),
			RoutingURL:       envOr("ROUTING_URL", defaultRoutingURL),
			IPGeolocationURL: envOr("IP_GEOLOCATION_URL", defaultIPGeolocationURL),
		},
		Cache: CacheConfig{
			RedisAddr:     strings.TrimSpace(os.Getenv("REDIS_ADDR")),
			RedisPassword: os.Getenv("REDIS_PASSWORD"),
			RedisDB:       intOr("REDIS_DB", 0),
			POITTL:        durationOr("POI_CACHE_TTL", defaultPOICacheTTL),
			ComparisonTTL: durationOr("COMPARISON_SESSION_TTL", defaultComparisonTTL),
		},
		Orders: OrderConfig{
			PaymentCaptureDelay: durationOr("PAYMENT_CAPTURE_DELAY", defaultPaymentCaptureDelay),
		},
		Idempotency: IdempotencyConfig{
			Header: envOr("IDEMPOTENCY_HEADER", defaultIdempotencyHeader),
			TTL:    durationOr("IDEMPOTENCY_TTL", defaultIdempotencyTTL),
		},
		Environment: envOr("ENVIRONMENT", defaultEnvironmentProfile),
	}

	if cfg.Firestore.ProjectID == "" {
		cfg.Firestore.ProjectID = cfg.Firebase.ProjectID
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	var problems []string
	if strings.TrimSpace(c.Server.Port) == "" {
		problems = append(problems, "PORT must not be empty")
	}
	if len(c.Geo.ReverseGeocodeURLs) == 0 {
		problems = append(problems, "REVERSE_GEOCODE_URLS must list at least one provider")
	}
	if len(c.Geo.OverpassURLs) == 0 {
		problems = append(problems, "OVERPASS_URLS must list at least one endpoint")
	}
	if c.Geo.GeocodeConcurrency <= 0 {
		problems = append(problems, "GEOCODE_CONCURRENCY must be positive")
	}
	if len(problems) > 0 {
		return fmt.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// mergeEnvFile loads KEY=VALUE pairs from the given file without overriding
// variables already present in the process environment.
func mergeEnvFile(path string) {
	file, err := os.Open(path)
	if err != nil {
		return
	}
	defer func() {
		_ = file.Close()
	}()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"'`)
		if key == "" {
			continue
		}
		if _, exists := os.LookupEnv(key); !exists {
			_ = os.Setenv(key, value)
		}
	}
}

func envOr(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func durationOr(key string, fallback time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func intOr(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func listOr(key string, fallback ...string) []string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}

// ErrMissingFirebaseProject indicates that authenticated routes were requested without a Firebase project.
var ErrMissingFirebaseProject = errors.New("config: FIREBASE_PROJECT_ID is required for authenticated routes")
