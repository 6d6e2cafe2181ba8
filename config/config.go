// Package config holds all configuration for the fleet planning engine and
// its outer HTTP/persistence shell, loaded through Viper the way the
// teacher's server config is: environment variables with a .env fallback,
// defaults registered up front, mapstructure tags for documentation.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application: the engine-facing
// groups from spec.md §6.2 plus the ambient server/storage groups that
// exist in any deployed instance of it.
type Config struct {
	Server        ServerConfig
	Postgres      PostgresConfig
	Redis         RedisConfig
	Placement     PlacementConfig
	Assignment    AssignmentConfig
	SwapPolicy    SwapPolicyConfig
	ServicePolicy ServicePolicyConfig
	Costs         CostsConfig
	Performance   PerformanceConfig
}

// ServerConfig holds HTTP server settings for the run-submission control
// surface (internal/handler).
type ServerConfig struct {
	Host         string        `mapstructure:"SERVER_HOST"`
	Port         int           `mapstructure:"SERVER_PORT"`
	ReadTimeout  time.Duration `mapstructure:"SERVER_READ_TIMEOUT"`
	WriteTimeout time.Duration `mapstructure:"SERVER_WRITE_TIMEOUT"`
	IdleTimeout  time.Duration `mapstructure:"SERVER_IDLE_TIMEOUT"`
}

// PostgresConfig holds PostgreSQL connection settings for persisting run
// output (internal/store).
type PostgresConfig struct {
	Host     string `mapstructure:"POSTGRES_HOST"`
	Port     int    `mapstructure:"POSTGRES_PORT"`
	User     string `mapstructure:"POSTGRES_USER"`
	Password string `mapstructure:"POSTGRES_PASSWORD"`
	DBName   string `mapstructure:"POSTGRES_DB"`
	SSLMode  string `mapstructure:"POSTGRES_SSLMODE"`
	MaxConns int32  `mapstructure:"POSTGRES_MAX_CONNS"`
	MinConns int32  `mapstructure:"POSTGRES_MIN_CONNS"`
}

// RedisConfig holds Redis connection settings for the optional progress
// reporter and cooperative-cancellation signal (internal/reporter,
// internal/runcontrol).
type RedisConfig struct {
	Host     string `mapstructure:"REDIS_HOST"`
	Port     int    `mapstructure:"REDIS_PORT"`
	Password string `mapstructure:"REDIS_PASSWORD"`
	DB       int    `mapstructure:"REDIS_DB"`
	PoolSize int    `mapstructure:"REDIS_POOL_SIZE"`
}

// PlacementConfig controls the Placement Engine, spec.md §4.5.
type PlacementConfig struct {
	Strategy               string  `mapstructure:"PLACEMENT_STRATEGY"`
	LookaheadDays          int     `mapstructure:"PLACEMENT_LOOKAHEAD_DAYS"`
	MaxConcentration       float64 `mapstructure:"PLACEMENT_MAX_CONCENTRATION"`
	MaxVehiclesPerLocation int     `mapstructure:"PLACEMENT_MAX_VEHICLES_PER_LOCATION"` // 0 = derive from MaxConcentration
}

// AssignmentConfig controls the Assignment Engine, spec.md §4.6.
type AssignmentConfig struct {
	AssignmentLookaheadDays int     `mapstructure:"ASSIGNMENT_LOOKAHEAD_DAYS"` // 0 = all
	LookAheadDays           int     `mapstructure:"ASSIGNMENT_LOOK_AHEAD_DAYS"`
	ChainDepth              int     `mapstructure:"ASSIGNMENT_CHAIN_DEPTH"`
	ChainWeight             float64 `mapstructure:"ASSIGNMENT_CHAIN_WEIGHT"`
	MaxLookaheadRoutes      int     `mapstructure:"ASSIGNMENT_MAX_LOOKAHEAD_ROUTES"`
	UseChainOptimization    bool    `mapstructure:"ASSIGNMENT_USE_CHAIN_OPTIMIZATION"`
}

// SwapPolicyConfig bounds relocations in a rolling window, spec.md §4.3.
type SwapPolicyConfig struct {
	MaxSwapsPerPeriod int `mapstructure:"SWAP_MAX_PER_PERIOD"`
	SwapPeriodDays    int `mapstructure:"SWAP_PERIOD_DAYS"`
}

// ServicePolicyConfig controls service-interval scheduling, spec.md §4.2/§4.4.
type ServicePolicyConfig struct {
	ServiceToleranceKm   int     `mapstructure:"SERVICE_TOLERANCE_KM"`
	ServiceDurationHours int     `mapstructure:"SERVICE_DURATION_HOURS"`
	ServicePenaltyPln    float64 `mapstructure:"SERVICE_PENALTY_PLN"`
	ServiceCostPln       float64 `mapstructure:"SERVICE_COST_PLN"`
}

// CostsConfig is the fee schedule for the Cost Kernel, spec.md §4.2.
type CostsConfig struct {
	RelocationBaseCostPln float64 `mapstructure:"COSTS_RELOCATION_BASE_PLN"`
	RelocationPerKmPln    float64 `mapstructure:"COSTS_RELOCATION_PER_KM_PLN"`
	RelocationPerHourPln  float64 `mapstructure:"COSTS_RELOCATION_PER_HOUR_PLN"`
	OveragePerKmPln       float64 `mapstructure:"COSTS_OVERAGE_PER_KM_PLN"`
}

// PerformanceConfig controls reporting cadence and the relation cache,
// spec.md §5/§6.2.
type PerformanceConfig struct {
	ProgressReportDays     int  `mapstructure:"PERF_PROGRESS_REPORT_DAYS"`
	ProgressReportInterval int  `mapstructure:"PERF_PROGRESS_REPORT_INTERVAL"`
	UseRelationCache       bool `mapstructure:"PERF_USE_RELATION_CACHE"`
	RelationCacheSize      int  `mapstructure:"PERF_RELATION_CACHE_SIZE"`
}

// DSN returns the PostgreSQL connection string.
func (p *PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.DBName, p.SSLMode,
	)
}

// Addr returns the Redis address in host:port format.
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// ServerAddr returns the HTTP listen address in host:port format.
func (s *ServerConfig) ServerAddr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Load reads configuration from environment variables and .env file.
func Load() (*Config, error) {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	setDefaults()

	// Try to read .env file. If it doesn't exist (e.g., inside Docker),
	// env vars injected by docker-compose env_file are used instead.
	_ = viper.ReadInConfig()

	cfg := &Config{
		Server: ServerConfig{
			Host:         viper.GetString("SERVER_HOST"),
			Port:         viper.GetInt("SERVER_PORT"),
			ReadTimeout:  viper.GetDuration("SERVER_READ_TIMEOUT"),
			WriteTimeout: viper.GetDuration("SERVER_WRITE_TIMEOUT"),
			IdleTimeout:  viper.GetDuration("SERVER_IDLE_TIMEOUT"),
		},
		Postgres: PostgresConfig{
			Host:     viper.GetString("POSTGRES_HOST"),
			Port:     viper.GetInt("POSTGRES_PORT"),
			User:     viper.GetString("POSTGRES_USER"),
			Password: viper.GetString("POSTGRES_PASSWORD"),
			DBName:   viper.GetString("POSTGRES_DB"),
			SSLMode:  viper.GetString("POSTGRES_SSLMODE"),
			MaxConns: viper.GetInt32("POSTGRES_MAX_CONNS"),
			MinConns: viper.GetInt32("POSTGRES_MIN_CONNS"),
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetInt("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
			PoolSize: viper.GetInt("REDIS_POOL_SIZE"),
		},
		Placement: PlacementConfig{
			Strategy:               viper.GetString("PLACEMENT_STRATEGY"),
			LookaheadDays:          viper.GetInt("PLACEMENT_LOOKAHEAD_DAYS"),
			MaxConcentration:       viper.GetFloat64("PLACEMENT_MAX_CONCENTRATION"),
			MaxVehiclesPerLocation: viper.GetInt("PLACEMENT_MAX_VEHICLES_PER_LOCATION"),
		},
		Assignment: AssignmentConfig{
			AssignmentLookaheadDays: viper.GetInt("ASSIGNMENT_LOOKAHEAD_DAYS"),
			LookAheadDays:           viper.GetInt("ASSIGNMENT_LOOK_AHEAD_DAYS"),
			ChainDepth:              viper.GetInt("ASSIGNMENT_CHAIN_DEPTH"),
			ChainWeight:             viper.GetFloat64("ASSIGNMENT_CHAIN_WEIGHT"),
			MaxLookaheadRoutes:      viper.GetInt("ASSIGNMENT_MAX_LOOKAHEAD_ROUTES"),
			UseChainOptimization:    viper.GetBool("ASSIGNMENT_USE_CHAIN_OPTIMIZATION"),
		},
		SwapPolicy: SwapPolicyConfig{
			MaxSwapsPerPeriod: viper.GetInt("SWAP_MAX_PER_PERIOD"),
			SwapPeriodDays:    viper.GetInt("SWAP_PERIOD_DAYS"),
		},
		ServicePolicy: ServicePolicyConfig{
			ServiceToleranceKm:   viper.GetInt("SERVICE_TOLERANCE_KM"),
			ServiceDurationHours: viper.GetInt("SERVICE_DURATION_HOURS"),
			ServicePenaltyPln:    viper.GetFloat64("SERVICE_PENALTY_PLN"),
			ServiceCostPln:       viper.GetFloat64("SERVICE_COST_PLN"),
		},
		Costs: CostsConfig{
			RelocationBaseCostPln: viper.GetFloat64("COSTS_RELOCATION_BASE_PLN"),
			RelocationPerKmPln:    viper.GetFloat64("COSTS_RELOCATION_PER_KM_PLN"),
			RelocationPerHourPln:  viper.GetFloat64("COSTS_RELOCATION_PER_HOUR_PLN"),
			OveragePerKmPln:       viper.GetFloat64("COSTS_OVERAGE_PER_KM_PLN"),
		},
		Performance: PerformanceConfig{
			ProgressReportDays:     viper.GetInt("PERF_PROGRESS_REPORT_DAYS"),
			ProgressReportInterval: viper.GetInt("PERF_PROGRESS_REPORT_INTERVAL"),
			UseRelationCache:       viper.GetBool("PERF_USE_RELATION_CACHE"),
			RelationCacheSize:      viper.GetInt("PERF_RELATION_CACHE_SIZE"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func setDefaults() {
	viper.SetDefault("SERVER_HOST", "0.0.0.0")
	viper.SetDefault("SERVER_PORT", 8080)
	viper.SetDefault("SERVER_READ_TIMEOUT", "5s")
	viper.SetDefault("SERVER_WRITE_TIMEOUT", "10s")
	viper.SetDefault("SERVER_IDLE_TIMEOUT", "120s")

	viper.SetDefault("POSTGRES_HOST", "localhost")
	viper.SetDefault("POSTGRES_PORT", 5432)
	viper.SetDefault("POSTGRES_USER", "fleet")
	viper.SetDefault("POSTGRES_PASSWORD", "fleet_secret")
	viper.SetDefault("POSTGRES_DB", "fleet_db")
	viper.SetDefault("POSTGRES_SSLMODE", "disable")
	viper.SetDefault("POSTGRES_MAX_CONNS", 50)
	viper.SetDefault("POSTGRES_MIN_CONNS", 10)

	viper.SetDefault("REDIS_HOST", "localhost")
	viper.SetDefault("REDIS_PORT", 6379)
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("REDIS_POOL_SIZE", 100)

	viper.SetDefault("PLACEMENT_STRATEGY", "proportional")
	viper.SetDefault("PLACEMENT_LOOKAHEAD_DAYS", 14)
	viper.SetDefault("PLACEMENT_MAX_CONCENTRATION", 0.30)
	viper.SetDefault("PLACEMENT_MAX_VEHICLES_PER_LOCATION", 0)

	viper.SetDefault("ASSIGNMENT_LOOKAHEAD_DAYS", 0)
	viper.SetDefault("ASSIGNMENT_LOOK_AHEAD_DAYS", 7)
	viper.SetDefault("ASSIGNMENT_CHAIN_DEPTH", 3)
	viper.SetDefault("ASSIGNMENT_CHAIN_WEIGHT", 0.5)
	viper.SetDefault("ASSIGNMENT_MAX_LOOKAHEAD_ROUTES", 20)
	viper.SetDefault("ASSIGNMENT_USE_CHAIN_OPTIMIZATION", false)

	viper.SetDefault("SWAP_MAX_PER_PERIOD", 2)
	viper.SetDefault("SWAP_PERIOD_DAYS", 90)

	viper.SetDefault("SERVICE_TOLERANCE_KM", 2000)
	viper.SetDefault("SERVICE_DURATION_HOURS", 24)
	viper.SetDefault("SERVICE_PENALTY_PLN", 500.0)
	viper.SetDefault("SERVICE_COST_PLN", 1200.0)

	viper.SetDefault("COSTS_RELOCATION_BASE_PLN", 1000.0)
	viper.SetDefault("COSTS_RELOCATION_PER_KM_PLN", 1.0)
	viper.SetDefault("COSTS_RELOCATION_PER_HOUR_PLN", 150.0)
	viper.SetDefault("COSTS_OVERAGE_PER_KM_PLN", 0.92)

	viper.SetDefault("PERF_PROGRESS_REPORT_DAYS", 7)
	viper.SetDefault("PERF_PROGRESS_REPORT_INTERVAL", 100)
	viper.SetDefault("PERF_USE_RELATION_CACHE", true)
	viper.SetDefault("PERF_RELATION_CACHE_SIZE", 4096)
}

// Validate rejects configuration combinations the engine cannot run with.
// Unknown keys are not rejected: only the keys above are ever read, and
// any other key is ignored. This method rejects known-but-invalid values.
func (c *Config) Validate() error {
	if c.Placement.Strategy != "proportional" && c.Placement.Strategy != "cost_matrix" {
		return fmt.Errorf("config: placement.strategy must be 'proportional' or 'cost_matrix', got %q", c.Placement.Strategy)
	}
	if c.Placement.MaxConcentration <= 0 || c.Placement.MaxConcentration > 1 {
		return fmt.Errorf("config: placement.max_concentration must be in (0, 1], got %v", c.Placement.MaxConcentration)
	}
	if c.SwapPolicy.MaxSwapsPerPeriod < 0 {
		return fmt.Errorf("config: swap_policy.max_swaps_per_period must be >= 0, got %d", c.SwapPolicy.MaxSwapsPerPeriod)
	}
	if c.SwapPolicy.SwapPeriodDays <= 0 {
		return fmt.Errorf("config: swap_policy.swap_period_days must be > 0, got %d", c.SwapPolicy.SwapPeriodDays)
	}
	if c.Assignment.ChainWeight < 0 || c.Assignment.ChainWeight >= 1 {
		return fmt.Errorf("config: assignment.chain_weight must be in [0, 1), got %v", c.Assignment.ChainWeight)
	}
	return nil
}
