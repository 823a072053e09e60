package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Game     GameConfig     `mapstructure:"game"`
	Log      LogConfig      `mapstructure:"log"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Database DatabaseConfig `mapstructure:"database"`
}

type ServerConfig struct {
	HTTPAddress   string        `mapstructure:"http_address"`
	RPCAddress    string        `mapstructure:"rpc_address"`
	HealthAddress string        `mapstructure:"health_address"`
	Heartbeat     time.Duration `mapstructure:"heartbeat"`
}

// GameConfig holds session lifecycle tuning.
type GameConfig struct {
	Countdown         time.Duration `mapstructure:"countdown"`
	DefaultMaxPlayers int           `mapstructure:"default_max_players"`
	IdleTTL           time.Duration `mapstructure:"idle_ttl"`
	SweepInterval     time.Duration `mapstructure:"sweep_interval"`
	TimerResolution   time.Duration `mapstructure:"timer_resolution"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

type MetricsConfig struct {
	Namespace string `mapstructure:"namespace"`
}

type DatabaseConfig struct {
	// Driver is either "memory" or "postgres".
	Driver   string         `mapstructure:"driver"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.http_address", ":8080")
	v.SetDefault("server.rpc_address", ":8081")
	v.SetDefault("server.health_address", ":8082")
	v.SetDefault("server.heartbeat", 30*time.Second)

	v.SetDefault("game.countdown", 10*time.Second)
	v.SetDefault("game.default_max_players", 8)
	v.SetDefault("game.idle_ttl", 30*time.Minute)
	v.SetDefault("game.sweep_interval", time.Minute)
	v.SetDefault("game.timer_resolution", 100*time.Millisecond)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)

	v.SetDefault("metrics.namespace", "vocabversus")

	v.SetDefault("database.driver", "memory")
	v.SetDefault("database.postgres.host", "localhost")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.user", "postgres")
	v.SetDefault("database.postgres.password", "")
	v.SetDefault("database.postgres.dbname", "vocabversus")
}

// LoadConfig reads config.yaml from path, overlaid by VOCAB_* environment
// variables. A missing config file is not an error; defaults apply.
func LoadConfig(path string) (config *Config, err error) {
	// .env is optional
	_ = godotenv.Load(path + "/.env")

	v := viper.New()
	setDefaults(v)

	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetEnvPrefix("vocab")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err = v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	err = v.Unmarshal(&config)
	return
}
