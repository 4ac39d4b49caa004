package config

import (
	"time"

	"github.com/weiawesome/wes-io-live/commentary-service/internal/pipeline"
	"github.com/weiawesome/wes-io-live/commentary-service/internal/snapshot"
	pkgconfig "github.com/weiawesome/wes-io-live/commentary-service/pkg/config"
	"github.com/weiawesome/wes-io-live/commentary-service/pkg/pubsub"
	"github.com/weiawesome/wes-io-live/commentary-service/pkg/storage"
)

// Config holds all configuration for the commentary service.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	GRPC       GRPCConfig       `mapstructure:"grpc"`
	WebSocket  WebSocketConfig  `mapstructure:"websocket"`
	Dispatcher DispatcherConfig `mapstructure:"dispatcher"`
	Pipeline   pipeline.Config  `mapstructure:"pipeline"`
	Snapshot   snapshot.Config  `mapstructure:"snapshot"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Audio      AudioConfig      `mapstructure:"audio"`
	PubSub     pubsub.Config    `mapstructure:"pubsub"`
	Catalog    CatalogConfig    `mapstructure:"catalog"`
	Log        LogConfig        `mapstructure:"log"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type GRPCConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

type WebSocketConfig struct {
	PingInterval   time.Duration `mapstructure:"ping_interval"`
	PongWait       time.Duration `mapstructure:"pong_wait"`
	WriteWait      time.Duration `mapstructure:"write_wait"`
	MaxMessageSize int64         `mapstructure:"max_message_size"`
	SendBuffer     int           `mapstructure:"send_buffer"`
}

type DispatcherConfig struct {
	ThrottleInterval time.Duration `mapstructure:"throttle_interval"`
	ItemTimeout      time.Duration `mapstructure:"item_timeout"`
}

// StorageConfig holds storage backend configuration for snapshots and audio.
type StorageConfig struct {
	Type  string              `mapstructure:"type"` // "local" or "s3"
	Local storage.LocalConfig `mapstructure:"local"`
	S3    storage.S3Config    `mapstructure:"s3"`
}

// AudioConfig controls how stored audio is served to viewers.
type AudioConfig struct {
	AccessMode    string        `mapstructure:"access_mode"` // "proxy" or "redirect"
	PresignExpiry time.Duration `mapstructure:"presign_expiry"`
}

// CatalogConfig holds the event catalog database, cache and seed data.
type CatalogConfig struct {
	Enabled  bool           `mapstructure:"enabled"`
	Database DatabaseConfig `mapstructure:"database"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Games    []GameSeed     `mapstructure:"games"`
}

type DatabaseConfig struct {
	Driver          string `mapstructure:"driver"`
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"dbname"`
	SSLMode         string `mapstructure:"sslmode"`
	FilePath        string `mapstructure:"file_path"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
	LogLevel        string `mapstructure:"log_level"`
}

type CacheConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Address  string        `mapstructure:"address"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// GameSeed is one catalog entry loaded from configuration.
type GameSeed struct {
	ID        string   `mapstructure:"id"`
	Title     string   `mapstructure:"title"`
	HomeTeam  string   `mapstructure:"home_team"`
	AwayTeam  string   `mapstructure:"away_team"`
	League    string   `mapstructure:"league"`
	StartTime string   `mapstructure:"start_time"` // RFC 3339
	Tags      []string `mapstructure:"tags"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

func Load() (*Config, error) {
	return LoadFrom("./config")
}

// LoadFrom reads config.yaml from dir (if present) and the environment.
func LoadFrom(dir string) (*Config, error) {
	v, err := pkgconfig.Load(dir, "config")
	if err != nil {
		return nil, err
	}

	// Set defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("grpc.enabled", true)
	v.SetDefault("grpc.port", 9090)
	v.SetDefault("websocket.ping_interval", "30s")
	v.SetDefault("websocket.pong_wait", "60s")
	v.SetDefault("websocket.write_wait", "10s")
	v.SetDefault("websocket.max_message_size", 65536)
	v.SetDefault("websocket.send_buffer", 256)
	v.SetDefault("dispatcher.throttle_interval", "2s")
	v.SetDefault("dispatcher.item_timeout", "60s")
	v.SetDefault("pipeline.type", "mock")
	v.SetDefault("pipeline.base_url", "http://localhost:8000")
	v.SetDefault("pipeline.timeout", "60s")
	v.SetDefault("pipeline.max_concurrent", 4)
	v.SetDefault("pipeline.audio_prefix", "audio")
	v.SetDefault("pipeline.sample_rate", 24000)
	v.SetDefault("snapshot.prefix", "data_agent_outputs")
	v.SetDefault("snapshot.suffix", ".json")
	v.SetDefault("snapshot.max_size", 4<<20)
	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.local.base_path", "./data")
	v.SetDefault("storage.s3.region", "us-east-1")
	v.SetDefault("storage.s3.use_path_style", true)
	v.SetDefault("audio.access_mode", "proxy")
	v.SetDefault("audio.presign_expiry", "15m")
	v.SetDefault("pubsub.driver", "none")
	v.SetDefault("pubsub.redis.address", "localhost:6379")
	v.SetDefault("pubsub.redis.password", "")
	v.SetDefault("pubsub.redis.db", 0)
	v.SetDefault("pubsub.redis.pool_size", 10)
	v.SetDefault("pubsub.redis.read_timeout", "3s")
	v.SetDefault("pubsub.redis.write_timeout", "3s")
	v.SetDefault("pubsub.kafka.brokers", "localhost:9092")
	v.SetDefault("pubsub.kafka.partitions", 4)
	v.SetDefault("pubsub.kafka.flush_timeout", "5s")
	v.SetDefault("catalog.enabled", true)
	v.SetDefault("catalog.database.driver", "sqlite")
	v.SetDefault("catalog.database.host", "localhost")
	v.SetDefault("catalog.database.port", 5432)
	v.SetDefault("catalog.database.user", "postgres")
	v.SetDefault("catalog.database.password", "postgres")
	v.SetDefault("catalog.database.dbname", "commentary")
	v.SetDefault("catalog.database.sslmode", "disable")
	v.SetDefault("catalog.database.file_path", "./data/commentary.db")
	v.SetDefault("catalog.database.max_idle_conns", 10)
	v.SetDefault("catalog.database.max_open_conns", 100)
	v.SetDefault("catalog.database.conn_max_lifetime", 60)
	v.SetDefault("catalog.database.log_level", "warn")
	v.SetDefault("catalog.cache.enabled", false)
	v.SetDefault("catalog.cache.address", "localhost:6379")
	v.SetDefault("catalog.cache.db", 0)
	v.SetDefault("catalog.cache.ttl", "5m")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	// Bind environment variables
	v.BindEnv("server.port", "PORT")
	v.BindEnv("grpc.port", "GRPC_PORT")
	v.BindEnv("dispatcher.throttle_interval", "THROTTLE_INTERVAL")
	v.BindEnv("dispatcher.item_timeout", "ITEM_TIMEOUT")
	v.BindEnv("pipeline.type", "PIPELINE_TYPE")
	v.BindEnv("pipeline.base_url", "PIPELINE_BASE_URL")
	v.BindEnv("pipeline.max_concurrent", "PIPELINE_MAX_CONCURRENT")
	v.BindEnv("snapshot.prefix", "SNAPSHOT_PREFIX")
	v.BindEnv("storage.type", "STORAGE_TYPE")
	v.BindEnv("storage.local.base_path", "STORAGE_BASE_PATH")
	v.BindEnv("storage.s3.endpoint", "S3_ENDPOINT")
	v.BindEnv("storage.s3.bucket", "S3_BUCKET")
	v.BindEnv("storage.s3.access_key_id", "S3_ACCESS_KEY_ID")
	v.BindEnv("storage.s3.secret_access_key", "S3_SECRET_ACCESS_KEY")
	v.BindEnv("storage.s3.public_url", "S3_PUBLIC_URL")
	v.BindEnv("audio.access_mode", "AUDIO_ACCESS_MODE")
	v.BindEnv("pubsub.driver", "PUBSUB_DRIVER")
	v.BindEnv("pubsub.redis.address", "REDIS_ADDRESS")
	v.BindEnv("pubsub.redis.password", "REDIS_PASSWORD")
	v.BindEnv("pubsub.kafka.brokers", "KAFKA_BROKERS")
	v.BindEnv("catalog.enabled", "CATALOG_ENABLED")
	v.BindEnv("catalog.database.driver", "DB_DRIVER")
	v.BindEnv("catalog.database.host", "DB_HOST")
	v.BindEnv("catalog.database.port", "DB_PORT")
	v.BindEnv("catalog.database.user", "DB_USER")
	v.BindEnv("catalog.database.password", "DB_PASSWORD")
	v.BindEnv("catalog.database.dbname", "DB_NAME")
	v.BindEnv("catalog.database.file_path", "DB_FILE_PATH")
	v.BindEnv("catalog.cache.enabled", "CACHE_ENABLED")
	v.BindEnv("catalog.cache.address", "REDIS_ADDRESS")
	v.BindEnv("catalog.cache.password", "REDIS_PASSWORD")
	v.BindEnv("log.level", "LOG_LEVEL")
	v.BindEnv("log.pretty", "LOG_PRETTY")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Parse durations
	cfg.Server.ShutdownTimeout = pkgconfig.Duration(v, "server.shutdown_timeout", 10*time.Second)
	cfg.WebSocket.PingInterval = pkgconfig.Duration(v, "websocket.ping_interval", 30*time.Second)
	cfg.WebSocket.PongWait = pkgconfig.Duration(v, "websocket.pong_wait", 60*time.Second)
	cfg.WebSocket.WriteWait = pkgconfig.Duration(v, "websocket.write_wait", 10*time.Second)
	cfg.Dispatcher.ThrottleInterval = pkgconfig.Duration(v, "dispatcher.throttle_interval", 2*time.Second)
	cfg.Dispatcher.ItemTimeout = pkgconfig.Duration(v, "dispatcher.item_timeout", 60*time.Second)
	cfg.Pipeline.Timeout = pkgconfig.Duration(v, "pipeline.timeout", 60*time.Second)
	cfg.Audio.PresignExpiry = pkgconfig.Duration(v, "audio.presign_expiry", 15*time.Minute)
	cfg.PubSub.Redis.ReadTimeout = pkgconfig.Duration(v, "pubsub.redis.read_timeout", 3*time.Second)
	cfg.PubSub.Redis.WriteTimeout = pkgconfig.Duration(v, "pubsub.redis.write_timeout", 3*time.Second)
	cfg.PubSub.Kafka.FlushTimeout = pkgconfig.Duration(v, "pubsub.kafka.flush_timeout", 5*time.Second)
	cfg.Catalog.Cache.TTL = pkgconfig.Duration(v, "catalog.cache.ttl", 5*time.Minute)

	return &cfg, nil
}
