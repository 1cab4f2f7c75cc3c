package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type HTTPConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type PostgresConfig struct {
	DSN             string
	MaxOpen         int
	MaxIdle         int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type StorageConfig struct {
	Endpoint        string
	AccessKey       string
	SecretKey       string
	Bucket          string
	UseSSL          bool
	Region          string
	StoryPrefix     string
	ThumbnailPrefix string
	CoverPrefix     string
	PutPresignTTL   time.Duration
	GetPresignTTL   time.Duration
}

type LimitsConfig struct {
	ImageMaxBytes   int64
	VideoMaxBytes   int64
	MaxPresignFiles int
	FeedPageDefault int
	FeedPageMax     int
}

type LifecycleConfig struct {
	StoryTTL            time.Duration
	SoftDeleteRetention time.Duration
	SweepSchedule       string
	SweepBatchSize      int
}

type AppConfig struct {
	Environment      string
	HTTP             HTTPConfig
	Postgres         PostgresConfig
	Redis            RedisConfig
	Storage          StorageConfig
	Limits           LimitsConfig
	Lifecycle        LifecycleConfig
	AllowCORSOrigins []string
}

func Load() (*AppConfig, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("../config")

	v.SetEnvPrefix("STORYGRAM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.readtimeout", "10s")
	v.SetDefault("http.writetimeout", "15s")
	v.SetDefault("http.idletimeout", "60s")

	v.SetDefault("postgres.maxopen", 30)
	v.SetDefault("postgres.maxidle", 10)
	v.SetDefault("postgres.connmaxlifetime", "30m")

	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.db", 0)

	v.SetDefault("storage.bucket", "storygram-media")
	v.SetDefault("storage.usessl", false)
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.storyprefix", "stories")
	v.SetDefault("storage.thumbnailprefix", "story_thumbnails")
	v.SetDefault("storage.coverprefix", "cover_images")
	v.SetDefault("storage.putpresignttl", "1h")
	v.SetDefault("storage.getpresignttl", "15m")

	v.SetDefault("limits.imagemaxbytes", 10<<20)
	v.SetDefault("limits.videomaxbytes", 100<<20)
	v.SetDefault("limits.maxpresignfiles", 10)
	v.SetDefault("limits.feedpagedefault", 20)
	v.SetDefault("limits.feedpagemax", 100)

	v.SetDefault("lifecycle.storyttl", "24h")
	v.SetDefault("lifecycle.softdeleteretention", "720h") // 30 days
	v.SetDefault("lifecycle.sweepschedule", "0 */10 * * * *")
	v.SetDefault("lifecycle.sweepbatchsize", 200)
}
