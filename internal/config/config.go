// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/qnote/auto-import/internal/crawler"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Crawler CrawlerConfig `mapstructure:"crawler"`
	Sites   SitesConfig   `mapstructure:"sites"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// CrawlerConfig governs fetch and crawl pipeline behavior.
type CrawlerConfig struct {
	UserAgent          string `mapstructure:"user_agent"`
	TimeoutSeconds     int    `mapstructure:"timeout_seconds"`
	BookConcurrency    int    `mapstructure:"book_concurrency"`
	ChapterConcurrency int    `mapstructure:"chapter_concurrency"`
	MaxMisses          int    `mapstructure:"max_consecutive_misses"`
	ShortChapterCap    int    `mapstructure:"short_chapter_cap"`
	LongChapterCap     int    `mapstructure:"long_chapter_cap"`
	Workers            int    `mapstructure:"workers"`
	QueueDepth         int    `mapstructure:"queue_depth"`
}

// SitesConfig holds the source-site addressing. DetailURL takes the
// book ID; ChapterURL takes the book ID and a 1-based chapter index.
type SitesConfig struct {
	HomepageLong  string `mapstructure:"homepage_long"`
	HomepageShort string `mapstructure:"homepage_short"`
	DetailURL     string `mapstructure:"detail_url"`
	ChapterURL    string `mapstructure:"chapter_url"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("QNOTE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8000)
	v.SetDefault("crawler.user_agent", "qnote-crawler/1.0")
	v.SetDefault("crawler.timeout_seconds", 15)
	v.SetDefault("crawler.book_concurrency", 2)
	v.SetDefault("crawler.chapter_concurrency", 4)
	v.SetDefault("crawler.max_consecutive_misses", 3)
	v.SetDefault("crawler.short_chapter_cap", 5)
	v.SetDefault("crawler.long_chapter_cap", 200)
	v.SetDefault("crawler.workers", 2)
	v.SetDefault("crawler.queue_depth", 64)
	v.SetDefault("sites.homepage_long", "https://qnote.qq.com/")
	v.SetDefault("sites.homepage_short", "https://qnote.qq.com/cate/30125")
	v.SetDefault("sites.detail_url", "https://qnote.qq.com/detail/%s")
	v.SetDefault("sites.chapter_url", "https://qnote.qq.com/read/%s/%d")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Crawler.TimeoutSeconds <= 0 {
		return fmt.Errorf("crawler.timeout_seconds must be > 0")
	}
	if c.Crawler.MaxMisses <= 0 {
		return fmt.Errorf("crawler.max_consecutive_misses must be > 0")
	}
	if c.Crawler.Workers <= 0 {
		return fmt.Errorf("crawler.workers must be > 0")
	}
	if c.Sites.HomepageLong == "" || c.Sites.HomepageShort == "" {
		return fmt.Errorf("sites.homepage_long and sites.homepage_short must be set")
	}
	if c.Sites.DetailURL == "" || c.Sites.ChapterURL == "" {
		return fmt.Errorf("sites.detail_url and sites.chapter_url must be set")
	}
	return nil
}

// FetchTimeout converts the configured timeout into a duration.
func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.Crawler.TimeoutSeconds) * time.Second
}

// ChapterPolicyFor maps a crawl mode and an optional explicit chapter
// budget onto a ChapterPolicy. An explicit budget selects the bounded
// concurrent strategy; otherwise the mode's cap applies with the
// sequential early-exit strategy.
func (c Config) ChapterPolicyFor(mode crawler.Mode, numChapters int) crawler.ChapterPolicy {
	if numChapters > 0 {
		return crawler.ChapterPolicy{
			MaxChapters: numChapters,
			Concurrency: c.Crawler.ChapterConcurrency,
		}
	}
	maxChapters := c.Crawler.LongChapterCap
	if mode == crawler.ModeShort {
		maxChapters = c.Crawler.ShortChapterCap
	}
	return crawler.ChapterPolicy{
		MaxChapters:          maxChapters,
		MaxConsecutiveMisses: c.Crawler.MaxMisses,
		Concurrency:          1,
	}
}
