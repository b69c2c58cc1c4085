// Package config contains code to set the default values and read
// config files to be used throughout the whole application
package config

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/spf13/pflag"
	v "github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	configPath = pflag.String("config", ".", "Directory containing config.toml")

	validLogLevels   = []string{"debug", "info", "warn", "error", "fatal"}
	validUploadModes = []string{"delegated", "relayed"}
)

// Setup prepares everything config-related so that the app can
// start working. Function will return an error if something
// is critically wrong and the application can't run because of
// that.
func Setup() error {
	pflag.Parse()
	v.BindPFlags(pflag.CommandLine)

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(*configPath)

	v.AutomaticEnv()

	//
	// ENVS
	//
	v.BindEnv("app.log_level", "app_log_level")

	v.BindEnv("host.port", "host_port")
	v.BindEnv("host.cors", "host_cors")

	v.BindEnv("db.path", "db_path")

	v.BindEnv("s3.access_key_id", "s3_access_key_id")
	v.BindEnv("s3.secret_access_key", "s3_secret_access_key")
	v.BindEnv("s3.region", "s3_region")
	v.BindEnv("s3.endpoint", "s3_endpoint")
	v.BindEnv("s3.bucket", "s3_bucket")

	v.BindEnv("upload.mode", "upload_mode")
	v.BindEnv("upload.max_size", "upload_max_size")
	v.BindEnv("upload.allowed_types", "upload_allowed_types")

	v.BindEnv("capability.write_ttl", "capability_write_ttl")
	v.BindEnv("capability.read_ttl", "capability_read_ttl")

	v.BindEnv("security.jwt_secret", "security_jwt_secret")
	v.BindEnv("security.rate_limit", "security_rate_limit")

	v.BindEnv("sweep.enabled", "sweep_enabled")
	v.BindEnv("sweep.schedule", "sweep_schedule")

	//
	// Defaults
	//
	v.SetDefault("app.log_level", "info")

	v.SetDefault("host.port", 8080)
	v.SetDefault("host.cors", "http://localhost:5173")

	v.SetDefault("db.path", "database.db")

	v.SetDefault("upload.mode", "delegated")
	v.SetDefault("upload.max_size", 50)
	v.SetDefault("upload.allowed_types", []string{"audio/webm", "audio/wav", "audio/x-wav", "audio/mpeg", "audio/mp3", "audio/ogg"})

	v.SetDefault("capability.write_ttl", 15*time.Minute)
	v.SetDefault("capability.read_ttl", 60*time.Minute)

	v.SetDefault("security.rate_limit", 10)

	v.SetDefault("sweep.enabled", true)
	v.SetDefault("sweep.schedule", "@hourly")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(v.ConfigFileNotFoundError); ok {
			return errors.New("config.toml file is missing")
		}

		return fmt.Errorf("failed to read config file, %w", err)
	}

	if !slices.Contains(validLogLevels, v.GetString("app.log_level")) {
		return errors.New("invalid log level provided")
	}

	if v.GetInt("host.port") <= 0 {
		return errors.New("invalid port provided")
	}

	if !slices.Contains(validUploadModes, v.GetString("upload.mode")) {
		return errors.New("upload.mode must be either 'delegated' or 'relayed'")
	}

	if v.GetInt("upload.max_size") <= 0 {
		return errors.New("upload.max_size must be bigger than 0")
	}

	// Credentials are individual named settings on purpose. Composite
	// connection strings are not accepted.
	if v.GetString("s3.access_key_id") == "" {
		return errors.New("s3 access key id can't be empty")
	}
	if v.GetString("s3.secret_access_key") == "" {
		return errors.New("s3 secret access key can't be empty")
	}
	if v.GetString("s3.bucket") == "" {
		return errors.New("s3 bucket can't be empty")
	}
	if v.GetString("s3.region") == "" && v.GetString("s3.endpoint") == "" {
		return errors.New("either s3 region or endpoint must be set")
	}

	if v.GetDuration("capability.write_ttl") <= 0 {
		return errors.New("capability.write_ttl must be bigger than 0")
	}
	if v.GetDuration("capability.read_ttl") <= 0 {
		return errors.New("capability.read_ttl must be bigger than 0")
	}

	if v.GetInt("security.rate_limit") <= 0 {
		return errors.New("security.rate_limit must be bigger than 0")
	}

	if v.GetString("security.jwt_secret") == "" {
		zap.L().Warn("No security.jwt_secret set, bearer tokens will be rejected and identity falls back to headers")
	}

	if len(v.GetStringSlice("upload.allowed_types")) == 0 {
		zap.L().Warn("No upload.allowed_types specified, any content type will be accepted")
	}

	v.Set("upload.max_size", v.GetInt64("upload.max_size")<<20)
	return nil
}
