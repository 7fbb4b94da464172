package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DefaultEventCreationFee applies when neither the settings table nor the environment sets a fee.
const DefaultEventCreationFee = 2000

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName                string
	AppEnv                 string
	AppPort                string
	CORSAllowOrigins       string
	DatabaseURL            string
	RedisURL               string
	NATSURL                string
	RealtimeChannel        string
	JWTSecret              string
	FunctionsBaseURL       string
	EventCreationFee       float64
	AnalyticsCacheTTL      time.Duration
	BlogCacheTTL           time.Duration
	SSEKeepAlive           time.Duration
	UploadMaxMB            int
	PostsPerMinute         int
	ReactionsPerMinute     int
	CloudinaryCloudName    string
	CloudinaryAPIKey       string
	CloudinaryAPISecret    string
	CloudinaryUploadFolder string
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("CAMPUS")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	return fromViper(v)
}

func fromViper(v *viper.Viper) (Config, error) {
	v.SetDefault("app.name", "Campus Portal API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("http.cors_origins", "*")
	v.SetDefault("realtime.channel", "campus")
	v.SetDefault("functions.base_url", "http://localhost:8080/api/v1/webhooks")
	v.SetDefault("events.creation_fee", DefaultEventCreationFee)
	v.SetDefault("analytics.cache_ttl", "5m")
	v.SetDefault("blog.cache_ttl", "5m")
	v.SetDefault("sse.keepalive", "30s")
	v.SetDefault("upload.max_mb", 5)
	v.SetDefault("community.posts_per_minute", 10)
	v.SetDefault("community.reactions_per_minute", 60)
	v.SetDefault("cloudinary.folder", "campus/events")

	analyticsTTL, err := parseDuration(v, "analytics.cache_ttl")
	if err != nil {
		return Config{}, err
	}
	blogTTL, err := parseDuration(v, "blog.cache_ttl")
	if err != nil {
		return Config{}, err
	}
	keepAlive, err := parseDuration(v, "sse.keepalive")
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppName:                v.GetString("app.name"),
		AppEnv:                 v.GetString("app.env"),
		AppPort:                v.GetString("app.port"),
		CORSAllowOrigins:       strings.TrimSpace(v.GetString("http.cors_origins")),
		DatabaseURL:            v.GetString("database.url"),
		RedisURL:               v.GetString("redis.url"),
		NATSURL:                v.GetString("nats.url"),
		RealtimeChannel:        v.GetString("realtime.channel"),
		JWTSecret:              v.GetString("jwt.secret"),
		FunctionsBaseURL:       strings.TrimRight(strings.TrimSpace(v.GetString("functions.base_url")), "/"),
		EventCreationFee:       v.GetFloat64("events.creation_fee"),
		AnalyticsCacheTTL:      analyticsTTL,
		BlogCacheTTL:           blogTTL,
		SSEKeepAlive:           keepAlive,
		UploadMaxMB:            v.GetInt("upload.max_mb"),
		PostsPerMinute:         v.GetInt("community.posts_per_minute"),
		ReactionsPerMinute:     v.GetInt("community.reactions_per_minute"),
		CloudinaryCloudName:    v.GetString("cloudinary.cloud_name"),
		CloudinaryAPIKey:       v.GetString("cloudinary.api_key"),
		CloudinaryAPISecret:    v.GetString("cloudinary.api_secret"),
		CloudinaryUploadFolder: v.GetString("cloudinary.folder"),
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	if cfg.EventCreationFee < 0 {
		cfg.EventCreationFee = DefaultEventCreationFee
	}

	if cfg.UploadMaxMB <= 0 {
		cfg.UploadMaxMB = 5
	}

	return cfg, nil
}

func parseDuration(v *viper.Viper, key string) (time.Duration, error) {
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
