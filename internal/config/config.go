package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// 不安全的默认值列表 (生产环境不应使用)
var insecureDefaults = map[string]bool{
	"your-secret-key-change-in-production": true,
	"internal-secret":                      true,
	"internal-service-secret":              true,
	"":                                     true,
}

type Config struct {
	Server         ServerConfig
	Database       DatabaseConfig
	Redis          RedisConfig
	JWT            JWTConfig
	Backend        BackendConfig
	Payment        PaymentConfig
	NATS           NATSConfig
	Polling        PollingConfig
	InternalSecret string
}

type ServerConfig struct {
	Port string
	Mode string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	Schema   string
	SSLMode  string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type JWTConfig struct {
	SecretKey string
}

// BackendConfig points at the order API that owns the provisioning lifecycle.
type BackendConfig struct {
	OrderServiceURL string
}

// PaymentConfig points at the payment gateway that renders payment sheets,
// creates the backend order, and reports authorization outcomes.
type PaymentConfig struct {
	GatewayURL string
}

type NATSConfig struct {
	URL     string
	Subject string
}

func Load() *Config {
	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8007"),
			Mode: getEnv("GIN_MODE", "release"), // 默认为 release 模式
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "esim_user"),
			Password: getEnv("DB_PASSWORD", "esim_pass"),
			DBName:   getEnv("DB_NAME", "esim_db"),
			Schema:   getEnv("DB_SCHEMA", "reconcile"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			SecretKey: getEnv("JWT_SECRET_KEY", ""),
		},
		Backend: BackendConfig{
			OrderServiceURL: getEnv("ORDER_SERVICE_URL", "http://localhost:8002"),
		},
		Payment: PaymentConfig{
			GatewayURL: getEnv("PAYMENT_GATEWAY_URL", "http://localhost:8006"),
		},
		NATS: NATSConfig{
			URL:     getEnv("NATS_URL", ""),
			Subject: getEnv("NATS_OUTCOME_SUBJECT", "esim.reconcile.outcome"),
		},
		Polling:        loadPolling(getEnv("POLL_POLICY_FILE", "")),
		InternalSecret: getEnv("INTERNAL_SECRET", ""),
	}

	// 日志脱敏: 不记录敏感配置
	log.Printf("[config] Reconcile Service loaded: port=%s db=%s/%s.%s orders=%s payments=%s",
		cfg.Server.Port, cfg.Database.Host, cfg.Database.DBName, cfg.Database.Schema,
		cfg.Backend.OrderServiceURL, cfg.Payment.GatewayURL)

	return cfg
}

// Validate 验证配置有效性，生产环境必须设置安全的密钥
func (c *Config) Validate() error {
	if insecureDefaults[c.JWT.SecretKey] {
		return fmt.Errorf("JWT_SECRET_KEY must be set to a secure value (current value is insecure or empty)")
	}
	if len(c.JWT.SecretKey) < 32 {
		return fmt.Errorf("JWT_SECRET_KEY must be at least 32 characters long")
	}

	if insecureDefaults[c.InternalSecret] {
		return fmt.Errorf("INTERNAL_SECRET must be set to a secure value (current value is insecure or empty)")
	}
	if len(c.InternalSecret) < 32 {
		return fmt.Errorf("INTERNAL_SECRET must be at least 32 characters long")
	}

	if err := c.Polling.validate(); err != nil {
		return err
	}

	return nil
}

func (c *DatabaseConfig) DSN() string {
	return "postgres://" + c.User + ":" + c.Password + "@" + c.Host + ":" + c.Port + "/" + c.DBName + "?sslmode=" + c.SSLMode
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// PollPolicy is one retry budget for the order-status poller. The algorithm is
// the same everywhere; only the budget differs per call site.
type PollPolicy struct {
	MaxAttempts  int           `yaml:"maxAttempts"`
	InitialDelay time.Duration `yaml:"initialDelay"`
	MaxDelay     time.Duration `yaml:"maxDelay"`
}

// PollingConfig carries the budgets for the three call sites: the interactive
// post-purchase check, the long background sweep, and the deep-link quick poll.
type PollingConfig struct {
	Quick      PollPolicy `yaml:"quick"`
	Background PollPolicy `yaml:"background"`
	Resumption PollPolicy `yaml:"resumption"`
}

func defaultPolling() PollingConfig {
	return PollingConfig{
		Quick:      PollPolicy{MaxAttempts: 5, InitialDelay: 1500 * time.Millisecond, MaxDelay: 10 * time.Second},
		Background: PollPolicy{MaxAttempts: 30, InitialDelay: 5 * time.Second, MaxDelay: 60 * time.Second},
		Resumption: PollPolicy{MaxAttempts: 3, InitialDelay: 2 * time.Second, MaxDelay: 5 * time.Second},
	}
}

// loadPolling reads budgets from a YAML policy file, falling back to the
// built-in defaults when the file is absent or unreadable.
func loadPolling(path string) PollingConfig {
	cfg := defaultPolling()
	if path == "" {
		return cfg
	}

	data, err := os.ReadFile(path)
	if err != nil {
		log.Printf("[config] poll policy file %s not readable, using defaults: %v", path, err)
		return cfg
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		log.Printf("[config] poll policy file %s invalid, using defaults: %v", path, err)
		return defaultPolling()
	}

	return cfg
}

func (p *PollingConfig) validate() error {
	for name, policy := range map[string]PollPolicy{
		"quick":      p.Quick,
		"background": p.Background,
		"resumption": p.Resumption,
	} {
		if policy.MaxAttempts <= 0 {
			return fmt.Errorf("poll policy %s: maxAttempts must be positive", name)
		}
		if policy.InitialDelay <= 0 || policy.MaxDelay < policy.InitialDelay {
			return fmt.Errorf("poll policy %s: delays must satisfy 0 < initialDelay <= maxDelay", name)
		}
	}
	return nil
}
