package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

// Config is centralized process configuration.
// Keep infra values here and pass typed config into builders.
type Config struct {
	ServiceName  string
	HTTPPort     string
	Storage      string
	PostgresDSN  string
	AutoMigrate  bool
	EventBrokers []string

	LogLevel  string
	LogFormat string

	IdempotencyTTL           time.Duration
	ExpirySweepInterval      time.Duration
	IdempotencySweepInterval time.Duration
	OutboxRelayInterval      time.Duration
	SweepBatchSize           int

	// EnableInProcessWorkers runs the sweepers inside the API process.
	EnableInProcessWorkers bool

	// SeedVoters registers voters at startup, as "id" or "id:name" items.
	SeedVoters []Voter
}

type Voter struct {
	ID   string
	Name string
}

// Load reads the environment. A .env file in the working directory, or the
// file named by ENV_FILE, is applied first without overriding variables that
// are already set.
func Load() (Config, error) {
	if err := loadEnvFile(); err != nil {
		return Config{}, err
	}

	storage := strings.ToLower(envString("STORAGE", ""))
	dsn := envString("POSTGRES_DSN", "")
	if storage == "" {
		storage = StorageMemory
		if dsn != "" {
			storage = StoragePostgres
		}
	}
	if storage != StorageMemory && storage != StoragePostgres {
		return Config{}, fmt.Errorf("STORAGE must be %q or %q, got %q", StorageMemory, StoragePostgres, storage)
	}
	if storage == StoragePostgres && dsn == "" {
		return Config{}, errors.New("POSTGRES_DSN is required when STORAGE=postgres")
	}

	var brokers []string
	for _, value := range strings.Split(os.Getenv("EVENT_BROKERS"), ",") {
		value = strings.TrimSpace(value)
		if value != "" {
			brokers = append(brokers, value)
		}
	}

	batch, err := envInt("SWEEP_BATCH_SIZE", 100)
	if err != nil {
		return Config{}, err
	}
	cfg := Config{
		ServiceName:  envString("SERVICE_NAME", "assembly"),
		HTTPPort:     envString("HTTP_PORT", "8080"),
		Storage:      storage,
		PostgresDSN:  dsn,
		AutoMigrate:  envBool("AUTO_MIGRATE", true),
		EventBrokers: brokers,
		LogLevel:     envString("LOG_LEVEL", "info"),
		LogFormat:    envString("LOG_FORMAT", "json"),

		SweepBatchSize:         batch,
		EnableInProcessWorkers: envBool("ENABLE_IN_PROCESS_WORKERS", true),
		SeedVoters:             parseVoters(os.Getenv("SEED_VOTERS")),
	}
	durations := []struct {
		name     string
		target   *time.Duration
		fallback time.Duration
	}{
		{"IDEMPOTENCY_TTL", &cfg.IdempotencyTTL, 24 * time.Hour},
		{"EXPIRY_SWEEP_INTERVAL", &cfg.ExpirySweepInterval, 30 * time.Second},
		{"IDEMPOTENCY_SWEEP_INTERVAL", &cfg.IdempotencySweepInterval, 5 * time.Minute},
		{"OUTBOX_RELAY_INTERVAL", &cfg.OutboxRelayInterval, 2 * time.Second},
	}
	for _, item := range durations {
		value, err := envDuration(item.name, item.fallback)
		if err != nil {
			return Config{}, err
		}
		*item.target = value
	}
	return cfg, nil
}

func parseVoters(raw string) []Voter {
	var voters []Voter
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		id, name, _ := strings.Cut(item, ":")
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		voters = append(voters, Voter{ID: id, Name: strings.TrimSpace(name)})
	}
	return voters
}

func loadEnvFile() error {
	path := envString("ENV_FILE", ".env")
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

func envString(name string, fallback string) string {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return fallback
	}
	return value
}

func envBool(name string, fallback bool) bool {
	raw := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "t", "yes", "y", "on":
		return true
	case "0", "false", "f", "no", "n", "off":
		return false
	default:
		return fallback
	}
}

func envInt(name string, fallback int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", name, raw)
	}
	return value, nil
}

func envDuration(name string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback, nil
	}
	value, err := time.ParseDuration(raw)
	if err != nil || value <= 0 {
		return 0, fmt.Errorf("%s must be a positive duration, got %q", name, raw)
	}
	return value, nil
}
