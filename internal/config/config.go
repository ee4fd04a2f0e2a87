// 包 config：集中读取 .env、可选 YAML 文件与环境变量，主入口与离线工具共享同一份配置
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// 默认边界数据源：美国各州 FeatureCollection
const DefaultBoundaryURL = "https://raw.githubusercontent.com/PublicaMundi/MappingAPI/master/data/geojson/us-states.json"

// 默认文本生成模型
const DefaultFactModel = "gemini-2.5-flash"

type BoardConfig struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// BoundaryConfig：边界数据来源
// 约束：Source 取值 http/file/postgres/object；只在启动时加载一次，失败不重试
type BoundaryConfig struct {
	Source          string `yaml:"source"`
	URL             string `yaml:"url"`
	File            string `yaml:"file"`
	CacheTTLSeconds int    `yaml:"cache_ttl_s"`
	TimeoutSeconds  int    `yaml:"timeout_s"`
}

type RedisConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    string `yaml:"port"`
	Pass    string `yaml:"pass"`
	DB      int    `yaml:"db"`
}

type PostgresConfig struct {
	Enabled      bool   `yaml:"enabled"`
	Host         string `yaml:"host"`
	Port         string `yaml:"port"`
	User         string `yaml:"user"`
	Password     string `yaml:"password"`
	DB           string `yaml:"db"`
	SSLMode      string `yaml:"sslmode"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

type ObjectConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	Key       string `yaml:"key"`
	Secure    bool   `yaml:"secure"`
}

type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// FunFactConfig：趣闻文本服务
// 约束：APIKey 为空时不访问外部服务，直接返回模板文本
type FunFactConfig struct {
	APIKey          string `yaml:"api_key"`
	Model           string `yaml:"model"`
	Endpoint        string `yaml:"endpoint"`
	ExtEndpoint     string `yaml:"ext_endpoint"`
	TimeoutSeconds  int    `yaml:"timeout_s"`
	CacheTTLSeconds int    `yaml:"cache_ttl_s"`
}

type TLSConfig struct {
	Enable         bool   `yaml:"enable"`
	CertPath       string `yaml:"cert_path"`
	KeyPath        string `yaml:"key_path"`
	RedirectEnable bool   `yaml:"redirect_enable"`
	RedirectAddr   string `yaml:"redirect_addr"`
}

type RateLimitConfig struct {
	Enabled bool `yaml:"enabled"`
	QPS     int  `yaml:"qps"`
}

// Config：进程级配置快照，启动后只读
type Config struct {
	Addr      string          `yaml:"addr"`
	APIBase   string          `yaml:"api_base"`
	UIDir     string          `yaml:"ui_dir"`
	LogLevel  string          `yaml:"log_level"`
	LogFormat string          `yaml:"log_format"`
	Board     BoardConfig     `yaml:"board"`
	Boundary  BoundaryConfig  `yaml:"boundary"`
	Redis     RedisConfig     `yaml:"redis"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Object    ObjectConfig    `yaml:"object"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	FunFact   FunFactConfig   `yaml:"funfact"`
	TLS       TLSConfig       `yaml:"tls"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// Default：代码内默认值
func Default() Config {
	return Config{
		Addr:      ":8080",
		APIBase:   "/api",
		UIDir:     filepath.Join("ui", "dist"),
		LogLevel:  "info",
		LogFormat: "text",
		Board:     BoardConfig{Width: 800, Height: 500},
		Boundary: BoundaryConfig{
			Source:          "http",
			URL:             DefaultBoundaryURL,
			File:            filepath.Join("data", "boundary", "us-states.json"),
			CacheTTLSeconds: 86400,
			TimeoutSeconds:  10,
		},
		Redis: RedisConfig{Host: "127.0.0.1", Port: "6379"},
		Postgres: PostgresConfig{
			Host:         "localhost",
			Port:         "5432",
			User:         "postgres",
			DB:           "mappuzzle",
			SSLMode:      "disable",
			MaxOpenConns: 10,
			MaxIdleConns: 5,
		},
		Object: ObjectConfig{Bucket: "boundaries", Key: "us-states.json"},
		Kafka:  KafkaConfig{Topic: "map-puzzle.placements"},
		FunFact: FunFactConfig{
			Model:           DefaultFactModel,
			Endpoint:        "https://generativelanguage.googleapis.com/v1beta",
			TimeoutSeconds:  5,
			CacheTTLSeconds: 7 * 86400,
		},
		TLS: TLSConfig{
			CertPath:     filepath.Join("data", "certs", "server.crt"),
			KeyPath:      filepath.Join("data", "certs", "server.key"),
			RedirectAddr: ":80",
		},
		RateLimit: RateLimitConfig{QPS: 200},
	}
}

// Load：按 .env → YAML 文件（CONFIG_FILE）→ 环境变量 的顺序叠加
// 约束：.env 缺失静默忽略；YAML 指定但读取失败返回错误
func Load() (Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join("data", "env", ".env"))
	cfg := Default()
	if p := os.Getenv("CONFIG_FILE"); p != "" {
		if err := LoadFile(p, &cfg); err != nil {
			return cfg, err
		}
	}
	ApplyEnv(&cfg)
	return cfg, nil
}

// LoadFile：读取 YAML 覆盖到 cfg，未出现的字段保持原值
func LoadFile(path string, cfg *Config) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// ApplyEnv：环境变量覆盖；数值解析失败时保留原值
func ApplyEnv(cfg *Config) {
	envStr("ADDR", &cfg.Addr)
	envStr("API_BASE", &cfg.APIBase)
	envStr("UI_DIST", &cfg.UIDir)
	envStr("LOG_LEVEL", &cfg.LogLevel)
	envStr("LOG_FORMAT", &cfg.LogFormat)

	envInt("BOARD_WIDTH", &cfg.Board.Width)
	envInt("BOARD_HEIGHT", &cfg.Board.Height)

	envStr("BOUNDARY_SOURCE", &cfg.Boundary.Source)
	envStr("BOUNDARY_URL", &cfg.Boundary.URL)
	envStr("BOUNDARY_FILE", &cfg.Boundary.File)
	envInt("BOUNDARY_CACHE_TTL_S", &cfg.Boundary.CacheTTLSeconds)
	envInt("BOUNDARY_TIMEOUT_S", &cfg.Boundary.TimeoutSeconds)

	envBool("REDIS_ENABLED", &cfg.Redis.Enabled)
	envStr("REDIS_HOST", &cfg.Redis.Host)
	envStr("REDIS_PORT", &cfg.Redis.Port)
	envStr("REDIS_PASS", &cfg.Redis.Pass)
	envInt("REDIS_DB", &cfg.Redis.DB)

	envBool("PG_ENABLED", &cfg.Postgres.Enabled)
	envStr("PG_HOST", &cfg.Postgres.Host)
	envStr("PG_PORT", &cfg.Postgres.Port)
	envStr("PG_USER", &cfg.Postgres.User)
	envStr("PG_PASSWORD", &cfg.Postgres.Password)
	envStr("PG_DB", &cfg.Postgres.DB)
	envStr("PG_SSLMODE", &cfg.Postgres.SSLMode)
	envInt("PG_MAX_OPEN_CONNS", &cfg.Postgres.MaxOpenConns)
	envInt("PG_MAX_IDLE_CONNS", &cfg.Postgres.MaxIdleConns)

	envStr("MINIO_ENDPOINT", &cfg.Object.Endpoint)
	envStr("MINIO_ACCESS_KEY", &cfg.Object.AccessKey)
	envStr("MINIO_SECRET_KEY", &cfg.Object.SecretKey)
	envStr("MINIO_BUCKET", &cfg.Object.Bucket)
	envStr("MINIO_OBJECT", &cfg.Object.Key)
	envBool("MINIO_SECURE", &cfg.Object.Secure)

	if s := os.Getenv("KAFKA_BROKERS"); s != "" {
		cfg.Kafka.Brokers = splitList(s)
	}
	envStr("KAFKA_TOPIC", &cfg.Kafka.Topic)

	// 兼容旧变量名 API_KEY
	envStr("API_KEY", &cfg.FunFact.APIKey)
	envStr("GEMINI_API_KEY", &cfg.FunFact.APIKey)
	envStr("GEMINI_MODEL", &cfg.FunFact.Model)
	envStr("GEMINI_ENDPOINT", &cfg.FunFact.Endpoint)
	envStr("EXT_FACT_ENDPOINT", &cfg.FunFact.ExtEndpoint)
	envInt("FUNFACT_TIMEOUT_S", &cfg.FunFact.TimeoutSeconds)
	envInt("FUNFACT_CACHE_TTL_S", &cfg.FunFact.CacheTTLSeconds)

	envBool("TLS_ENABLE", &cfg.TLS.Enable)
	envStr("TLS_CERT_PATH", &cfg.TLS.CertPath)
	envStr("TLS_KEY_PATH", &cfg.TLS.KeyPath)
	envBool("TLS_REDIRECT_ENABLE", &cfg.TLS.RedirectEnable)
	envStr("TLS_REDIRECT_ADDR", &cfg.TLS.RedirectAddr)

	envBool("RATE_LIMIT_ENABLED", &cfg.RateLimit.Enabled)
	envInt("RATE_LIMIT_QPS", &cfg.RateLimit.QPS)
}

func envStr(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envBool(key string, dst *bool) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
