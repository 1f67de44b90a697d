package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
)

// Supported database drivers
const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// BridgeConfig holds configuration for the MQTT to SQL bridge service
type BridgeConfig struct {
	// Health and metrics server
	Server ServerConfig `json:"server"`

	// Database configuration
	Database DatabaseConfig `json:"database"`

	// MQTT configuration
	MQTT MQTTConfig `json:"mqtt"`

	// Logging configuration
	Logging LoggingConfig `json:"logging"`
}

// ApiConfig holds configuration for the read-only query API service
type ApiConfig struct {
	Server   ServerConfig   `json:"server"`
	Database DatabaseConfig `json:"database"`
	Logging  LoggingConfig  `json:"logging"`
	CORS     CORSConfig     `json:"cors"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port         string        `json:"port"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
	IdleTimeout  time.Duration `json:"idle_timeout"`
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Driver   string `json:"driver"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"-"`
	DBName   string `json:"db_name"`
	SSLMode  string `json:"ssl_mode"`
	Path     string `json:"path"` // sqlite only
	MaxConns int    `json:"max_conns"`
	MinConns int    `json:"min_conns"`

	// ProbeBeforeWrite pings the database before every insert so the pool can
	// drop a stale connection ahead of the write.
	ProbeBeforeWrite bool          `json:"probe_before_write"`
	ProbeTimeout     time.Duration `json:"probe_timeout"`
}

// MQTTConfig holds MQTT-related configuration
type MQTTConfig struct {
	BrokerHost     string        `json:"broker_host"`
	BrokerPort     int           `json:"broker_port"`
	BrokerUser     string        `json:"broker_user"`
	BrokerPass     string        `json:"-"`
	UseTLS         bool          `json:"use_tls"`
	CACertPath     string        `json:"ca_cert_path"`
	Topic          string        `json:"topic"`
	StatusTopic    string        `json:"status_topic"`
	ClientID       string        `json:"client_id"`
	KeepAlive      time.Duration `json:"keep_alive"`
	PingTimeout    time.Duration `json:"ping_timeout"`
	ReconnectMin   time.Duration `json:"reconnect_min"`
	ReconnectMax   time.Duration `json:"reconnect_max"`
	CleanSession   bool          `json:"clean_session"`
	PublishTimeout time.Duration `json:"publish_timeout"`
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	Level        string `json:"level"`
	Format       string `json:"format"` // json or text
	Output       string `json:"output"` // stdout or stderr
	EnableCaller bool   `json:"enable_caller"`
}

// CORSConfig holds CORS-related configuration
type CORSConfig struct {
	AllowedOrigins []string `json:"allowed_origins"`
	AllowedMethods []string `json:"allowed_methods"`
	AllowedHeaders []string `json:"allowed_headers"`
	MaxAge         int      `json:"max_age"`
}

// LoadBridgeConfig loads configuration for the bridge service
func LoadBridgeConfig() (*BridgeConfig, error) {
	// Try to load .env file, but don't fail if it doesn't exist
	_ = godotenv.Load()

	cfg := &BridgeConfig{
		Server: ServerConfig{
			Port:         getEnv("BRIDGE_PORT", "9003"),
			ReadTimeout:  getDuration("READ_TIMEOUT", 10*time.Second),
			WriteTimeout: getDuration("WRITE_TIMEOUT", 10*time.Second),
			IdleTimeout:  getDuration("IDLE_TIMEOUT", 60*time.Second),
		},
		Database: loadDatabaseConfig(1),
		MQTT: MQTTConfig{
			BrokerHost:     getEnv("BROKER_HOST", "broker.hivemq.com"),
			BrokerPort:     getInt("BROKER_PORT", 1883),
			BrokerUser:     getEnv("BROKER_USER", ""),
			BrokerPass:     getEnv("BROKER_PASS", ""),
			UseTLS:         getBool("BROKER_TLS", false),
			CACertPath:     getEnv("BROKER_CA_FILE", ""),
			Topic:          getEnv("MQTT_TOPIC", "esp32/sensor"),
			StatusTopic:    getEnv("MQTT_STATUS_TOPIC", "esp32/bridge_status"),
			ClientID:       getEnv("MQTT_CLIENT_ID", "bridge-saver-mysql"),
			KeepAlive:      getDuration("MQTT_KEEP_ALIVE", 60*time.Second),
			PingTimeout:    getDuration("MQTT_PING_TIMEOUT", 10*time.Second),
			ReconnectMin:   getDuration("MQTT_RECONNECT_MIN", 2*time.Second),
			ReconnectMax:   getDuration("MQTT_RECONNECT_MAX", 30*time.Second),
			CleanSession:   getBool("MQTT_CLEAN_SESSION", true),
			PublishTimeout: getDuration("MQTT_PUBLISH_TIMEOUT", 5*time.Second),
		},
		Logging: loadLoggingConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// LoadApiConfig loads configuration for the API service
func LoadApiConfig() (*ApiConfig, error) {
	_ = godotenv.Load()

	cfg := &ApiConfig{
		Server: ServerConfig{
			Port:         getEnv("PORT", "5000"),
			ReadTimeout:  getDuration("READ_TIMEOUT", 30*time.Second),
			WriteTimeout: getDuration("WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:  getDuration("IDLE_TIMEOUT", 120*time.Second),
		},
		Database: loadDatabaseConfig(10),
		Logging:  loadLoggingConfig(),
		CORS: CORSConfig{
			AllowedOrigins: getStringSlice("CORS_ORIGINS", []string{"*"}),
			AllowedMethods: getStringSlice("CORS_ALLOWED_METHODS", []string{"GET", "OPTIONS"}),
			AllowedHeaders: getStringSlice("CORS_ALLOWED_HEADERS", []string{"Origin", "Content-Type", "Accept"}),
			MaxAge:         getInt("CORS_MAX_AGE", 43200), // 12 hours
		},
	}

	if err := cfg.Database.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func loadDatabaseConfig(defaultMaxConns int) DatabaseConfig {
	driver := strings.ToLower(getEnv("DB_DRIVER", DriverMySQL))
	defaultPort := 3306
	if driver == DriverPostgres {
		defaultPort = 5432
	}

	return DatabaseConfig{
		Driver:           driver,
		Host:             getEnv("DB_HOST", "127.0.0.1"),
		Port:             getInt("DB_PORT", defaultPort),
		User:             getEnv("DB_USER", "root"),
		Password:         getEnv("DB_PASS", ""),
		DBName:           getEnv("DB_NAME", "iot_db"),
		SSLMode:          getEnv("DB_SSLMODE", "disable"),
		Path:             getEnv("DB_PATH", "iot_db.sqlite"),
		MaxConns:         getInt("DB_MAX_CONNS", defaultMaxConns),
		MinConns:         getInt("DB_MIN_CONNS", 1),
		ProbeBeforeWrite: getBool("DB_PROBE_BEFORE_WRITE", true),
		ProbeTimeout:     getDuration("DB_PROBE_TIMEOUT", 2*time.Second),
	}
}

func loadLoggingConfig() LoggingConfig {
	return LoggingConfig{
		Level:        getEnv("LOG_LEVEL", "info"),
		Format:       getEnv("LOG_FORMAT", "text"),
		Output:       getEnv("LOG_OUTPUT", "stdout"),
		EnableCaller: getBool("LOG_ENABLE_CALLER", false),
	}
}

// Validate validates the bridge configuration
func (c *BridgeConfig) Validate() error {
	if err := c.Database.Validate(); err != nil {
		return err
	}
	if c.MQTT.BrokerHost == "" {
		return fmt.Errorf("BROKER_HOST is required")
	}
	if c.MQTT.Topic == "" || c.MQTT.StatusTopic == "" {
		return fmt.Errorf("MQTT_TOPIC and MQTT_STATUS_TOPIC must not be empty")
	}
	if c.MQTT.Topic == c.MQTT.StatusTopic {
		return fmt.Errorf("MQTT_STATUS_TOPIC must differ from MQTT_TOPIC")
	}
	if c.MQTT.ReconnectMin <= 0 || c.MQTT.ReconnectMax <= 0 {
		return fmt.Errorf("reconnect delays must be positive")
	}
	if c.MQTT.ReconnectMin > c.MQTT.ReconnectMax {
		return fmt.Errorf("MQTT_RECONNECT_MIN (%s) exceeds MQTT_RECONNECT_MAX (%s)", c.MQTT.ReconnectMin, c.MQTT.ReconnectMax)
	}
	return nil
}

// Validate validates the database configuration
func (d *DatabaseConfig) Validate() error {
	switch d.Driver {
	case DriverMySQL, DriverPostgres:
		if d.Host == "" || d.DBName == "" {
			return fmt.Errorf("DB_HOST and DB_NAME are required for %s", d.Driver)
		}
	case DriverSQLite:
		if d.Path == "" {
			return fmt.Errorf("DB_PATH is required for sqlite")
		}
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q (expected mysql, postgres or sqlite)", d.Driver)
	}
	if d.MaxConns < 1 {
		return fmt.Errorf("DB_MAX_CONNS must be at least 1")
	}
	return nil
}

// DSN returns the driver-specific connection string
func (d *DatabaseConfig) DSN() string {
	switch d.Driver {
	case DriverPostgres:
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
	case DriverSQLite:
		if d.Path == ":memory:" || strings.HasPrefix(d.Path, "file:") {
			return d.Path
		}
		return "file:" + d.Path
	default:
		mc := mysql.NewConfig()
		mc.User = d.User
		mc.Passwd = d.Password
		mc.Net = "tcp"
		mc.Addr = fmt.Sprintf("%s:%d", d.Host, d.Port)
		mc.DBName = d.DBName
		mc.ParseTime = true
		return mc.FormatDSN()
	}
}

// GetBrokerURL returns the MQTT broker URL
func (c MQTTConfig) GetBrokerURL() string {
	scheme := "tcp"
	if c.UseTLS {
		scheme = "tcps"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, c.BrokerHost, c.BrokerPort)
}

// Helper functions for environment variable parsing

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		log.Fatalf("invalid %s: %v", key, err)
	}
	return intValue
}

func getBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		log.Fatalf("invalid %s: %q (expected true/false or 1/0)", key, value)
	}
	return b
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		log.Fatalf("invalid %s: %v", key, err)
	}
	return duration
}

func getStringSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := make([]string, 0)
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
