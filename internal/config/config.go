package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/shouni/go-habr-scan/pkg/extract"
	"github.com/shouni/go-habr-scan/pkg/feed"
	"github.com/shouni/go-habr-scan/pkg/httpclient"
	"github.com/shouni/go-habr-scan/pkg/report"
	"github.com/shouni/go-habr-scan/pkg/retry"
)

const (
	// DefaultListingURL は走査対象の記事一覧ページです。
	DefaultListingURL = "https://habr.com/ru/all/"

	// DefaultLogFile はログファイルのデフォルトの出力先です。
	DefaultLogFile = "scraper.log"

	// DefaultLogLevel はデフォルトのログレベルです。
	DefaultLogLevel = "info"
)

// DefaultKeywords は組み込みの検索キーワードです。
var DefaultKeywords = []string{"дизайн", "фото", "web", "python"}

var (
	ErrInvalidMaxAttempts = errors.New("fetch.max_attempts は1以上である必要があります")
	ErrInvalidTimeout     = errors.New("fetch.timeout は正の値である必要があります")
	ErrInvalidBackoffUnit = errors.New("fetch.backoff_unit は0以上である必要があります")
	ErrNoKeywords         = errors.New("keywords が1つも指定されていません")
	ErrEmptyOutputPath    = errors.New("output.path が空です")
	ErrInvalidBaseURL     = errors.New("site.base_url は絶対URLである必要があります")
)

// Config はアプリケーション全体の設定です。
type Config struct {
	Site      SiteConfig        `yaml:"site"`
	Keywords  []string          `yaml:"keywords"`
	Fetch     FetchConfig       `yaml:"fetch"`
	Output    OutputConfig      `yaml:"output"`
	Log       LogConfig         `yaml:"log"`
	Selectors extract.Selectors `yaml:"selectors"`
}

// SiteConfig は走査対象サイトの設定です。
type SiteConfig struct {
	BaseURL    string `yaml:"base_url"`
	ListingURL string `yaml:"listing_url"`
	FeedURL    string `yaml:"feed_url"`
}

// FetchConfig はページ取得の設定です。時間は "15s" のような文字列で指定します。
type FetchConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	Timeout     time.Duration `yaml:"timeout"`
	BackoffUnit time.Duration `yaml:"backoff_unit"`
	UserAgent   string        `yaml:"user_agent"`
}

type OutputConfig struct {
	Path string `yaml:"path"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Default は組み込みの設定を返します。
func Default() Config {
	return Config{
		Site: SiteConfig{
			BaseURL:    extract.DefaultBaseURL,
			ListingURL: DefaultListingURL,
			FeedURL:    feed.DefaultFeedURL,
		},
		Keywords: append([]string(nil), DefaultKeywords...),
		Fetch: FetchConfig{
			MaxAttempts: retry.DefaultMaxAttempts,
			Timeout:     httpclient.DefaultHTTPTimeout,
			BackoffUnit: retry.DefaultBaseInterval,
			UserAgent:   httpclient.UserAgent,
		},
		Output:    OutputConfig{Path: report.DefaultOutputPath},
		Log:       LogConfig{Level: DefaultLogLevel, File: DefaultLogFile},
		Selectors: extract.DefaultSelectors(),
	}
}

// Load は YAML ファイルをデフォルト設定に重ねて読み込みます。path が空の場合はデフォルト設定を返します。
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("設定ファイル (%s) の読み込みに失敗しました: %w", path, err)
	}
	if err := decode(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("設定ファイル (%s) の解析に失敗しました: %w", path, err)
	}
	return cfg, nil
}

func decode(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Validate は設定値の整合性を検証します。
func (c Config) Validate() error {
	if c.Fetch.MaxAttempts < 1 {
		return ErrInvalidMaxAttempts
	}
	if c.Fetch.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.Fetch.BackoffUnit < 0 {
		return ErrInvalidBackoffUnit
	}

	hasKeyword := false
	for _, kw := range c.Keywords {
		if strings.TrimSpace(kw) != "" {
			hasKeyword = true
			break
		}
	}
	if !hasKeyword {
		return ErrNoKeywords
	}

	if strings.TrimSpace(c.Output.Path) == "" {
		return ErrEmptyOutputPath
	}

	base, err := url.Parse(c.Site.BaseURL)
	if err != nil || !base.IsAbs() {
		return fmt.Errorf("%w: %q", ErrInvalidBaseURL, c.Site.BaseURL)
	}

	if err := c.Selectors.Validate(); err != nil {
		return fmt.Errorf("selectors の検証に失敗しました: %w", err)
	}
	return nil
}
