// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Matching   MatchingConfig   `mapstructure:"matching"`
	Assignment AssignmentConfig `mapstructure:"assignment"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Port            int `mapstructure:"port"`
	ReadTimeout     int `mapstructure:"read_timeout"`     // milliseconds
	WriteTimeout    int `mapstructure:"write_timeout"`    // milliseconds
	ShutdownTimeout int `mapstructure:"shutdown_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses  []string `mapstructure:"addresses"`
	Username   string   `mapstructure:"username"`
	Password   string   `mapstructure:"password"`
	Index      string   `mapstructure:"index"`
	SSLEnabled bool     `mapstructure:"ssl_enabled"`
	URL        string   `mapstructure:"url"` // Single URL for backwards compatibility
}

// GetURL returns the first address or the URL field
func (e ElasticsearchConfig) GetURL() string {
	if e.URL != "" {
		return e.URL
	}
	if len(e.Addresses) > 0 {
		return e.Addresses[0]
	}
	return ""
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// --- Matching Configuration ---

// ScoreWeights control the relative contribution of the three primary score
// terms. They must sum to 1.0.
type ScoreWeights struct {
	Rating       float64 `mapstructure:"rating"`
	Distance     float64 `mapstructure:"distance"`
	ResponseTime float64 `mapstructure:"response_time"`
}

// MatchingConfig holds the matching pipeline settings.
type MatchingConfig struct {
	DefaultRadiusMiles   float64      `mapstructure:"default_radius_miles"`
	MaxRadiusMiles       float64      `mapstructure:"max_radius_miles"`
	MaxResults           int          `mapstructure:"max_results"`
	PipelineBudget       int          `mapstructure:"pipeline_budget"` // milliseconds
	Weights              ScoreWeights `mapstructure:"weights"`
	ProfileCacheTTL      int          `mapstructure:"profile_cache_ttl"`      // seconds
	SearchCacheTTL       int          `mapstructure:"search_cache_ttl"`       // seconds
	AvailabilityCacheTTL int          `mapstructure:"availability_cache_ttl"` // seconds
}

// AssignmentConfig holds the ticket acceptance settings.
type AssignmentConfig struct {
	LockTimeout int `mapstructure:"lock_timeout"` // milliseconds
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
