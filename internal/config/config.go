package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all configuration values
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	JWT        JWTConfig
	Blockchain BlockchainConfig
	Bridge     BridgeConfig
	Scheduler  SchedulerConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port string
	Env  string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// URL returns the database connection URL
func (c DatabaseConfig) URL() string {
	return "postgres://" + c.User + ":" + c.Password + "@" + c.Host + ":" + strconv.Itoa(c.Port) + "/" + c.DBName + "?sslmode=" + c.SSLMode + "&prepare_threshold=0"
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	URL      string
	PASSWORD string
}

// JWTConfig holds bearer token verification settings
type JWTConfig struct {
	Secret string
	Expiry time.Duration
}

// BlockchainConfig holds RPC endpoints and signing keys for on-chain work.
// RPCURL is the default endpoint; per-network overrides use <NETWORK>_RPC_URL.
type BlockchainConfig struct {
	RPCURL                  string
	BackendWalletPrivateKey string
	DeployerPrivateKey      string
	ServiceFeeWallet        string
}

// BridgeConfig holds the route aggregator endpoint and credentials
type BridgeConfig struct {
	APIURL   string
	APIKey   string
	QuoteTTL time.Duration
}

// SchedulerConfig holds deadline and bridge monitoring cadences.
// CheckInterval drives the deadline sweeps; StatusCheckInterval and
// StuckThreshold are independent knobs for in-flight bridge transfers.
type SchedulerConfig struct {
	CheckInterval       time.Duration
	StatusCheckInterval time.Duration
	StuckThreshold      time.Duration
}

// Load loads configuration from environment variables
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
			Env:  getEnv("SERVER_ENV", "development"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "dealchain"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			URL:      getEnv("REDIS_URL", "redis://localhost:6379"),
			PASSWORD: getEnv("REDIS_PASSWORD", ""),
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", "change-this-in-production"),
			Expiry: getEnvAsDuration("JWT_EXPIRY", 24*time.Hour),
		},
		Blockchain: BlockchainConfig{
			RPCURL:                  getEnv("RPC_URL", "http://127.0.0.1:8545"),
			BackendWalletPrivateKey: getEnv("BACKEND_WALLET_PRIVATE_KEY", ""),
			DeployerPrivateKey:      getEnv("DEPLOYER_PRIVATE_KEY", getEnv("BACKEND_WALLET_PRIVATE_KEY", "")),
			ServiceFeeWallet:        getEnv("SERVICE_FEE_WALLET", ""),
		},
		Bridge: BridgeConfig{
			APIURL:   getEnv("BRIDGE_API_URL", "https://li.quest/v1"),
			APIKey:   getEnv("BRIDGE_API_KEY", ""),
			QuoteTTL: getEnvAsDuration("BRIDGE_QUOTE_TTL", 2*time.Minute),
		},
		Scheduler: SchedulerConfig{
			CheckInterval:       getEnvAsDuration("CRON_SCHEDULE_DEADLINE_CHECKS", 30*time.Minute),
			StatusCheckInterval: getEnvAsDuration("CROSS_CHAIN_STATUS_CHECK_INTERVAL", time.Hour),
			StuckThreshold:      getEnvAsDuration("CROSS_CHAIN_STUCK_THRESHOLD", 2*time.Hour),
		},
	}
}

// NetworkRPCURL returns the RPC endpoint for a network, falling back to the
// default RPC_URL when no <NETWORK>_RPC_URL override is set.
func (c BlockchainConfig) NetworkRPCURL(network string) string {
	key := envKeyForNetwork(network)
	if key == "" {
		return c.RPCURL
	}
	return getEnv(key, c.RPCURL)
}

func envKeyForNetwork(network string) string {
	if network == "" {
		return ""
	}
	upper := make([]byte, 0, len(network))
	for i := 0; i < len(network); i++ {
		ch := network[i]
		if ch >= 'a' && ch <= 'z' {
			ch -= 'a' - 'A'
		}
		if ch == '-' {
			ch = '_'
		}
		upper = append(upper, ch)
	}
	return string(upper) + "_RPC_URL"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
