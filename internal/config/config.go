package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Log      LogConfig
	Dataset  DatasetConfig
	Ruleset  RulesetConfig
	Cluster  ClusterConfig
	Grid     GridConfig
	Site     SiteConfig
	Engine   EngineConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Worker   WorkerConfig
}

type ServerConfig struct {
	Host string
	Port int
	Env  string
}

type LogConfig struct {
	Level string
}

// DatasetConfig описывает источник набора точек. Source принимает URL,
// путь к файлу или строку "postgres"; в последнем случае записи читаются
// из таблицы Table с необязательным фильтром по сырым категориям.
type DatasetConfig struct {
	Source       string
	CoordSys     string
	FetchTimeout time.Duration
	Table        string
	RawTypes     []string
}

type RulesetConfig struct {
	Source string
}

type ClusterConfig struct {
	MinZoom   int
	MaxZoom   int
	Radius    float64
	Extent    float64
	NodeSize  int
	MinPoints int
}

type GridConfig struct {
	CellSize float64
}

type SiteConfig struct {
	SpacingMeters      float64
	MaxCandidates      int
	MetricRadiusMeters float64
	AccessCapMeters    float64
	TopN               int
	BBoxLimitDegrees   float64
}

type EngineConfig struct {
	QueueSize     int
	HullMaxZoom   int
	HullMinPoints int
}

type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxConns        int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type WorkerConfig struct {
	Enabled       bool
	ConsumerGroup string
	Consumer      string
	CacheTTL      time.Duration
}

func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: viper.GetString("API_HOST"),
			Port: viper.GetInt("API_PORT"),
			Env:  viper.GetString("API_ENV"),
		},
		Log: LogConfig{
			Level: viper.GetString("LOG_LEVEL"),
		},
		Dataset: DatasetConfig{
			Source:       viper.GetString("DATASET_SOURCE"),
			CoordSys:     viper.GetString("DATASET_COORD_SYS"),
			FetchTimeout: time.Duration(viper.GetInt("DATASET_FETCH_TIMEOUT")) * time.Second,
			Table:        viper.GetString("DATASET_PG_TABLE"),
			RawTypes:     parseList(viper.GetString("DATASET_PG_RAW_TYPES")),
		},
		Ruleset: RulesetConfig{
			Source: viper.GetString("RULESET_SOURCE"),
		},
		Cluster: ClusterConfig{
			MinZoom:   viper.GetInt("CLUSTER_MIN_ZOOM"),
			MaxZoom:   viper.GetInt("CLUSTER_MAX_ZOOM"),
			Radius:    viper.GetFloat64("CLUSTER_RADIUS"),
			Extent:    viper.GetFloat64("CLUSTER_EXTENT"),
			NodeSize:  viper.GetInt("CLUSTER_NODE_SIZE"),
			MinPoints: viper.GetInt("CLUSTER_MIN_POINTS"),
		},
		Grid: GridConfig{
			CellSize: viper.GetFloat64("GRID_CELL_SIZE"),
		},
		Site: SiteConfig{
			SpacingMeters:      viper.GetFloat64("SITE_SPACING_METERS"),
			MaxCandidates:      viper.GetInt("SITE_MAX_CANDIDATES"),
			MetricRadiusMeters: viper.GetFloat64("SITE_METRIC_RADIUS_METERS"),
			AccessCapMeters:    viper.GetFloat64("SITE_ACCESS_CAP_METERS"),
			TopN:               viper.GetInt("SITE_TOP_N"),
			BBoxLimitDegrees:   viper.GetFloat64("SITE_BBOX_LIMIT_DEGREES"),
		},
		Engine: EngineConfig{
			QueueSize:     viper.GetInt("ENGINE_QUEUE_SIZE"),
			HullMaxZoom:   viper.GetInt("ENGINE_HULL_MAX_ZOOM"),
			HullMinPoints: viper.GetInt("ENGINE_HULL_MIN_POINTS"),
		},
		Database: DatabaseConfig{
			Host:            viper.GetString("DB_HOST"),
			Port:            viper.GetInt("DB_PORT"),
			User:            viper.GetString("DB_USER"),
			Password:        viper.GetString("DB_PASSWORD"),
			DBName:          viper.GetString("DB_NAME"),
			SSLMode:         viper.GetString("DB_SSLMODE"),
			MaxConns:        viper.GetInt("DB_MAX_CONNS"),
			MaxIdleConns:    viper.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: time.Duration(viper.GetInt("DB_CONN_MAX_LIFETIME")) * time.Second,
			ConnMaxIdleTime: time.Duration(viper.GetInt("DB_CONN_MAX_IDLE_TIME")) * time.Second,
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetInt("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		Worker: WorkerConfig{
			Enabled:       viper.GetBool("WORKER_ENABLED"),
			ConsumerGroup: viper.GetString("WORKER_CONSUMER_GROUP"),
			Consumer:      viper.GetString("WORKER_CONSUMER"),
			CacheTTL:      time.Duration(viper.GetInt("WORKER_CACHE_TTL")) * time.Second,
		},
	}

	// Set default values if not provided
	if cfg.Dataset.CoordSys == "" {
		cfg.Dataset.CoordSys = "wgs84"
	}
	if cfg.Dataset.FetchTimeout == 0 {
		cfg.Dataset.FetchTimeout = 30 * time.Second
	}
	if cfg.Dataset.Table == "" {
		cfg.Dataset.Table = "poi_raw"
	}
	if cfg.Worker.ConsumerGroup == "" {
		cfg.Worker.ConsumerGroup = "analysis-workers"
	}
	if cfg.Worker.Consumer == "" {
		cfg.Worker.Consumer = "analysis-worker-1"
	}
	if cfg.Worker.CacheTTL == 0 {
		cfg.Worker.CacheTTL = 5 * time.Minute
	}

	return cfg, nil
}

func parseList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
		c.Database.SSLMode,
	)
}

func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}
