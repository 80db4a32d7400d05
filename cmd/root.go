package cmd

import (
	"context"
	"fmt"
	"time"

	clibase "github.com/shouni/go-cli-base"
	"github.com/spf13/cobra"

	"github.com/shouni/go-habr-scan/internal/config"
	"github.com/shouni/go-habr-scan/internal/logger"
	"github.com/shouni/go-habr-scan/pkg/extract"
	"github.com/shouni/go-habr-scan/pkg/httpclient"
	"github.com/shouni/go-habr-scan/pkg/keyword"
)

// --- グローバル定数 ---

const appName = "habr-scan"

// --- グローバル変数とフラグ構造体 ---

// AppFlags はこのアプリケーション固有の永続フラグを保持します。
// 明示的に指定されたフラグだけが設定ファイルの値を上書きします。
// 設定ファイルのパスは clibase が登録する --config (clibase.Flags.ConfigFile) で受け取ります。
type AppFlags struct {
	TimeoutSec int    // --timeout 1回の試行あたりのタイムアウト（秒）
	MaxRetries int    // --max-retries 初回を含む最大試行回数
	OutputPath string // --output レポートファイルの出力先
	LogLevel   string // --log-level ログレベル
	LogFile    string // --log-file ログファイルの出力先
}

var Flags AppFlags

var (
	appConfig     = config.Default()
	appLogger     = logger.NewNop()
	globalFetcher *httpclient.Client
)

// --- 初期化とロジック (clibaseへのコールバックとして利用) ---

// addAppPersistentFlags は、アプリケーション固有の永続フラグをルートコマンドに追加します。
func addAppPersistentFlags(rootCmd *cobra.Command) {
	defaults := config.Default()

	rootCmd.PersistentFlags().IntVar(
		&Flags.TimeoutSec,
		"timeout",
		int(defaults.Fetch.Timeout/time.Second),
		"HTTPリクエスト1回あたりのタイムアウト時間（秒）",
	)
	rootCmd.PersistentFlags().IntVar(
		&Flags.MaxRetries,
		"max-retries",
		defaults.Fetch.MaxAttempts,
		"HTTPリクエストの最大試行回数（初回を含む）",
	)
	rootCmd.PersistentFlags().StringVarP(&Flags.OutputPath, "output", "o", defaults.Output.Path, "レポートファイルの出力先")
	rootCmd.PersistentFlags().StringVar(&Flags.LogLevel, "log-level", defaults.Log.Level, "ログレベル (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&Flags.LogFile, "log-file", defaults.Log.File, "ログファイルの出力先（空にするとファイル出力なし）")
}

// initAppPreRunE は、clibase共通処理の後に実行される、アプリケーション固有のPersistentPreRunEです。
// 設定の読み込み、ロガーとフェッチャーの初期化を行います。
// NOTE: clibaseの PersistentPreRunE チェーンにより、clibase.Flags はこの関数実行前に設定済み
func initAppPreRunE(cmd *cobra.Command, args []string) error {
	// 1. 設定ファイルの読み込み (未指定ならデフォルト設定)
	cfg, err := config.Load(clibase.Flags.ConfigFile)
	if err != nil {
		return err
	}

	// 2. 明示的に指定されたフラグで上書きし、検証する
	applyFlagOverrides(cmd, &cfg)
	if clibase.Flags.Verbose {
		cfg.Log.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("設定が不正です: %w", err)
	}

	// 3. ロガーの初期化 (標準出力とログファイル)
	log, err := logger.New(logger.Config{Level: cfg.Log.Level, File: cfg.Log.File})
	if err != nil {
		return err
	}

	// 4. 共有フェッチャーの初期化
	appConfig = cfg
	appLogger = log
	globalFetcher = newFetcher(cfg, log)

	appLogger.Debug("HTTPクライアントを設定しました",
		logger.Duration("timeout", cfg.Fetch.Timeout),
		logger.Int("max_attempts", cfg.Fetch.MaxAttempts),
		logger.Duration("backoff_unit", cfg.Fetch.BackoffUnit),
	)
	return nil
}

// applyFlagOverrides は、明示的に指定されたフラグの値で設定を上書きします。
func applyFlagOverrides(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("timeout") {
		cfg.Fetch.Timeout = time.Duration(Flags.TimeoutSec) * time.Second
	}
	if flags.Changed("max-retries") {
		cfg.Fetch.MaxAttempts = Flags.MaxRetries
	}
	if flags.Changed("output") {
		cfg.Output.Path = Flags.OutputPath
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = Flags.LogLevel
	}
	if flags.Changed("log-file") {
		cfg.Log.File = Flags.LogFile
	}
}

func newFetcher(cfg config.Config, log logger.Logger) *httpclient.Client {
	return httpclient.New(
		cfg.Fetch.Timeout,
		httpclient.WithMaxAttempts(cfg.Fetch.MaxAttempts),
		httpclient.WithBackoffUnit(cfg.Fetch.BackoffUnit),
		httpclient.WithUserAgent(cfg.Fetch.UserAgent),
		httpclient.WithLogger(log),
	)
}

// newMatcher は設定のキーワードから Matcher を生成し、開始ログを出力します。
func newMatcher(cfg config.Config, log logger.Logger) (*keyword.Matcher, error) {
	matcher, err := keyword.NewMatcher(cfg.Keywords)
	if err != nil {
		return nil, fmt.Errorf("キーワードの初期化エラー: %w", err)
	}
	log.Info("記事検索プログラムを開始します", logger.Strings("keywords", matcher.Keywords()))
	return matcher, nil
}

func newExtractor(cfg config.Config, matcher *keyword.Matcher, log logger.Logger) (*extract.Extractor, error) {
	e, err := extract.NewExtractor(
		matcher,
		cfg.Site.BaseURL,
		extract.WithSelectors(cfg.Selectors),
		extract.WithLogger(log),
	)
	if err != nil {
		return nil, fmt.Errorf("Extractorの初期化エラー: %w", err)
	}
	return e, nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// --- エントリポイント ---

// Execute は、clibase を使用してルートコマンドを組み立てて実行します。
func Execute() {
	clibase.Execute(
		appName,
		addAppPersistentFlags,
		initAppPreRunE,
		scanCmd,
		feedCmd,
	)
}
