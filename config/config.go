package config

import (
	"strings"
	"time"

	"github.com/Gobusters/ectoenv"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"

	"github.com/Ramsey-B/parklink/pkg/linking"
	"github.com/Ramsey-B/parklink/pkg/matching"
	"github.com/Ramsey-B/parklink/pkg/normalizers"
)

type Config struct {
	AppName                       string   `env:"APP_NAME" env-default:"parklink-api"`
	Port                          int      `env:"PORT" env-default:"3004"`
	LogLevel                      string   `env:"LOG_LEVEL" env-default:"info"`
	PrettyLogs                    bool     `env:"PRETTY_LOGS" env-default:"false"`
	HttpServerWriteTimeoutSeconds int      `env:"HTTP_SERVER_WRITE_TIMEOUT_SECONDS" env-default:"60"`
	HttpServerReadTimeoutSeconds  int      `env:"HTTP_SERVER_READ_TIMEOUT_SECONDS" env-default:"10"`
	HttpServerIdleTimeoutSeconds  int      `env:"HTTP_SERVER_IDLE_TIMEOUT_SECONDS" env-default:"10"`
	MaxHeaderBytes                int      `env:"HTTP_SERVER_MAX_HEADER_BYTES" env-default:"64000"` // 64KB
	ReadHeaderTimeoutSeconds      int      `env:"HTTP_SERVER_READ_HEADER_TIMEOUT_SECONDS" env-default:"10"`
	AllowOrigins                  []string `env:"HTTP_SERVER_ALLOW_ORIGINS" env-default:"*"`
	AllowMethods                  []string `env:"HTTP_SERVER_ALLOW_METHODS" env-default:"GET,POST"`
	StartupMaxAttempts            int      `env:"STARTUP_MAX_ATTEMPTS" env-default:"5"`

	// Database (postgres or sqlite)
	DatabaseDriver                string        `env:"DB_DRIVER" env-default:"postgres"`
	DatabaseHost                  string        `env:"DB_HOST" env-default:""`
	DatabasePort                  string        `env:"DB_PORT" env-default:"5432"`
	DatabaseUserName              string        `env:"DB_USER_NAME" env-default:""`
	DatabasePassword              string        `env:"DB_PASSWORD" env-default:""`
	DatabaseName                  string        `env:"DB_NAME" env-default:"parklink"`
	DatabaseSSLMode               string        `env:"DB_SQL_MODE" env-default:"disable"`
	DatabasePath                  string        `env:"DB_PATH" env-default:"parklink.db"` // sqlite only
	DatabaseReconnectRetryCount   int           `env:"DB_RECONNECT_RETRY_COUNT" env-default:"3"`
	DatabaseMaxOpenConns          int           `env:"DB_MAX_OPEN_CONNS" env-default:"25"`
	DatabaseMaxIdleConns          int           `env:"DB_MAX_IDLE_CONNS" env-default:"10"`
	DatabaseConnMaxLifetime       time.Duration `env:"DB_CONN_MAX_LIFETIME" env-default:"10s"`
	DatabaseMigrationFolderPath   string        `env:"DB_MIGRATION_FOLDER_PATH" env-default:""`
	DatabaseMigrationVersion      int           `env:"DB_MIGRATION_VERSION" env-default:"0"`
	DatabaseMigrationForce        int           `env:"DB_MIGRATION_FORCE" env-default:"0"`
	DatabaseMigrationAutoRollback bool          `env:"DB_MIGRATION_AUTO_ROLLBACK" env-default:"true"`

	// Graph Database (Memgraph)
	GraphEnabled    bool   `env:"GRAPH_ENABLED" env-default:"false"`
	GraphDBHost     string `env:"GRAPH_DB_HOST" env-default:"localhost"`
	GraphDBPort     int    `env:"GRAPH_DB_PORT" env-default:"7687"`
	GraphDBUser     string `env:"GRAPH_DB_USER" env-default:""`
	GraphDBPassword string `env:"GRAPH_DB_PASSWORD" env-default:""`

	// Kafka Producer (link events)
	KafkaEnabled      bool     `env:"KAFKA_ENABLED" env-default:"false"`
	KafkaBrokers      []string `env:"KAFKA_BROKERS" env-default:"localhost:9092"`
	KafkaOutputTopic  string   `env:"KAFKA_OUTPUT_TOPIC" env-default:"park-link-events"`
	KafkaBatchSize    int      `env:"KAFKA_BATCH_SIZE" env-default:"100"`
	KafkaBatchTimeout int      `env:"KAFKA_BATCH_TIMEOUT_MS" env-default:"100"`
	KafkaRequiredAcks int      `env:"KAFKA_REQUIRED_ACKS" env-default:"1"`
	KafkaCompression  string   `env:"KAFKA_COMPRESSION" env-default:"snappy"`

	// Redis (run lock + progress)
	RedisEnabled     bool          `env:"REDIS_ENABLED" env-default:"false"`
	RedisURL         string        `env:"REDIS_URL" env-default:"redis://localhost:6379/0"`
	RedisLockTTL     time.Duration `env:"REDIS_LOCK_TTL" env-default:"30m"`
	RedisProgressTTL time.Duration `env:"REDIS_PROGRESS_TTL" env-default:"24h"`

	// Tracing
	TracingEnabled  bool   `env:"TRACING_ENABLED" env-default:"false"`
	TracingEndpoint string `env:"TRACING_ENDPOINT" env-default:"localhost:4317"`
	TracingProtocol string `env:"TRACING_PROTOCOL" env-default:"grpc"`

	// Linking
	LinkThreshold          float64  `env:"LINK_THRESHOLD" env-default:"0.6"`
	LinkMaxDistanceKm      float64  `env:"LINK_MAX_DISTANCE_KM" env-default:"100"`
	LinkNameWeight         float64  `env:"LINK_NAME_WEIGHT" env-default:"0.7"`
	LinkLocationWeight     float64  `env:"LINK_LOCATION_WEIGHT" env-default:"0.3"`
	LinkWorkers            int      `env:"LINK_WORKERS" env-default:"1"`
	LinkNameMetric         string   `env:"LINK_NAME_METRIC" env-default:"levenshtein"`
	LinkNamePreNormalizers []string `env:"LINK_NAME_PRE_NORMALIZERS" env-default:""`
	LinkProgressEvery      int      `env:"LINK_PROGRESS_EVERY" env-default:"25"`
}

// Load reads an optional .env file and binds the environment onto a Config
func Load(envFiles ...string) (*Config, error) {
	// a missing .env is normal outside local development
	_ = godotenv.Load(envFiles...)

	cfg := &Config{}
	if err := ectoenv.BindEnv(cfg); err != nil {
		return nil, errors.Wrap(err, "failed to bind environment")
	}
	return cfg, nil
}

// MatchingConfig returns the scoring thresholds for a linking pass
func (c *Config) MatchingConfig() matching.Config {
	return matching.Config{
		Threshold:     c.LinkThreshold,
		MaxDistanceKm: c.LinkMaxDistanceKm,
		Weights: matching.Weights{
			Name:     c.LinkNameWeight,
			Location: c.LinkLocationWeight,
		},
	}
}

// LinkOptions converts the linking section into linker options.
// Validation is left to linking.Options.Validate.
func (c *Config) LinkOptions() linking.Options {
	opts := linking.DefaultOptions()
	opts.Config = c.MatchingConfig()
	if c.LinkWorkers > 0 {
		opts.Workers = c.LinkWorkers
	}
	return opts
}

// Scorer builds the name scorer from the configured metric and pre-normalizer chain
func (c *Config) Scorer() (*matching.Scorer, error) {
	var opts []matching.ScorerOption

	switch metric := matching.NameMetric(strings.ToLower(strings.TrimSpace(c.LinkNameMetric))); metric {
	case "", matching.NameMetricLevenshtein:
	case matching.NameMetricJaroWinkler:
		opts = append(opts, matching.WithNameMetric(metric))
	default:
		return nil, errors.Errorf("unknown name metric %q", c.LinkNameMetric)
	}

	names := make([]string, 0, len(c.LinkNamePreNormalizers))
	for _, name := range c.LinkNamePreNormalizers {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	if len(names) > 0 {
		chain, unknown := normalizers.Chain(names...)
		if len(unknown) > 0 {
			return nil, errors.Errorf("unknown name normalizers: %s", strings.Join(unknown, ", "))
		}
		opts = append(opts, matching.WithPreNormalizer(chain))
	}

	return matching.NewScorer(opts...), nil
}
