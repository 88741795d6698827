package config

import (
	"net/url"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

type Config struct {
	PostgresAddress  string `mapstructure:"postgres_address"`
	PostgresPort     string `mapstructure:"postgres_port"`
	PostgresDB       string `mapstructure:"postgres_db"`
	PostgresUsername string `mapstructure:"postgres_username"`
	PostgresPassword string `mapstructure:"postgres_password"`

	HTTPPort string `mapstructure:"http_port"`
	LogLevel string `mapstructure:"log_level"`

	OperatorWorkers int    `mapstructure:"operator_workers"`
	ImportWorkers   int    `mapstructure:"import_workers"`
	ImportBatchSize int    `mapstructure:"import_batch_size"`
	ImportMaxErrors int    `mapstructure:"import_max_errors"`
	UploadDir       string `mapstructure:"upload_dir"`
}

// ProcessEnvironmentVariables reads configuration from the environment and,
// when LEDGER_CONFIG names one, a config file. Environment wins.
func ProcessEnvironmentVariables() (*Config, error) {
	v := viper.New()

	// In all cases the default behavior should be for the docker compose setup
	v.SetDefault("postgres_address", "localhost")
	v.SetDefault("postgres_port", "5433")
	v.SetDefault("postgres_db", "postgres")
	v.SetDefault("postgres_username", "postgres")
	v.SetDefault("postgres_password", "testpassword")
	v.SetDefault("http_port", "9446")
	v.SetDefault("log_level", "info")
	v.SetDefault("operator_workers", 4)
	v.SetDefault("import_workers", 2)
	v.SetDefault("import_batch_size", 5000)
	v.SetDefault("import_max_errors", 100)
	v.SetDefault("upload_dir", os.TempDir())

	if path := os.Getenv("LEDGER_CONFIG"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "read config %s", path)
		}
	}
	v.AutomaticEnv()

	var env Config
	if err := v.Unmarshal(&env); err != nil {
		return nil, errors.Wrap(err, "unmarshal config")
	}
	if err := env.validate(); err != nil {
		return nil, err
	}
	return &env, nil
}

func (c *Config) validate() error {
	if c.ImportBatchSize < 1 {
		return errors.Errorf("import_batch_size must be positive, got %d", c.ImportBatchSize)
	}
	if c.ImportMaxErrors < 0 {
		return errors.Errorf("import_max_errors must not be negative, got %d", c.ImportMaxErrors)
	}
	return nil
}

// PostgresURL builds the lib/pq connection string.
func (c *Config) PostgresURL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.PostgresUsername, c.PostgresPassword),
		Host:     c.PostgresAddress + ":" + c.PostgresPort,
		Path:     "/" + c.PostgresDB,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}
