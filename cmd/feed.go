package cmd

import (
	"github.com/spf13/cobra"

	"github.com/shouni/go-habr-scan/internal/logger"
	"github.com/shouni/go-habr-scan/internal/pipeline"
	"github.com/shouni/go-habr-scan/pkg/feed"
	"github.com/shouni/go-habr-scan/pkg/report"
)

var (
	feedURL    string
	feedNoSave bool
)

var feedCmd = &cobra.Command{
	Use:   "feed",
	Short: "RSS/Atomフィードを取得し、キーワードに一致する記事を一覧表示します",
	Long: `記事一覧ページの代わりに RSS/Atom フィードを取得し、各エントリのタイトル・説明・カテゴリ・著者から
キーワードを検索します。出力形式は scan コマンドと同じです。`,
	Args: cobra.NoArgs,
	RunE: runFeed,
}

func runFeed(cmd *cobra.Command, args []string) error {
	defer appLogger.Sync()

	target := appConfig.Site.FeedURL
	if feedURL != "" {
		target = feedURL
	}
	target, err := ensureScheme(target)
	if err != nil {
		return err
	}

	matcher, err := newMatcher(appConfig, appLogger)
	if err != nil {
		return err
	}
	if globalFetcher == nil {
		globalFetcher = newFetcher(appConfig, appLogger)
	}
	parser, err := feed.NewParser(globalFetcher, matcher, appLogger)
	if err != nil {
		return err
	}

	reporter := report.New(cmd.OutOrStdout(), appLogger)
	reporter.Banner(matcher.Keywords(), appConfig.Log.File)
	appLogger.Info("フィードから記事の検索を開始します", logger.String("url", target))

	p := pipeline.New(
		reporter,
		pipeline.WithLogger(appLogger),
		pipeline.WithOutputPath(appConfig.Output.Path),
		pipeline.WithSave(!feedNoSave),
	)
	p.Run(commandContext(cmd), pipeline.FeedSource{Parser: parser, URL: target})

	appLogger.Info("処理が完了しました")
	return nil
}

func init() {
	feedCmd.Flags().StringVarP(&feedURL, "url", "u", "", "RSS/AtomフィードのURL（省略時は設定値）")
	feedCmd.Flags().BoolVar(&feedNoSave, "no-save", false, "レポートファイルを書き出さない")
}
