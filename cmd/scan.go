package cmd

import (
	"github.com/spf13/cobra"

	"github.com/shouni/go-habr-scan/internal/logger"
	"github.com/shouni/go-habr-scan/internal/pipeline"
	"github.com/shouni/go-habr-scan/pkg/report"
)

var (
	scanURL    string
	scanInput  string
	scanNoSave bool
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "記事一覧ページを取得し、キーワードに一致する記事を一覧表示します",
	Long: `habr の記事一覧ページを1ページだけ取得し、各記事プレビューのタイトル・リード・タグ・著者などから
キーワードを単語単位で検索します。一致した記事はコンソールに表示され、レポートファイルにも保存されます。
--input を指定すると、ネットワークにアクセスせず保存済みの HTML ファイルを解析します。`,
	Args: cobra.NoArgs,
	RunE: runScan,
}

func runScan(cmd *cobra.Command, args []string) error {
	defer appLogger.Sync()

	matcher, err := newMatcher(appConfig, appLogger)
	if err != nil {
		return err
	}
	extractor, err := newExtractor(appConfig, matcher, appLogger)
	if err != nil {
		return err
	}

	reporter := report.New(cmd.OutOrStdout(), appLogger)
	reporter.Banner(matcher.Keywords(), appConfig.Log.File)

	var src pipeline.Source
	if scanInput != "" {
		appLogger.Info("ローカルファイルから記事を検索します", logger.String("path", scanInput))
		src = pipeline.FileSource{Path: scanInput, Extractor: extractor}
	} else {
		target := appConfig.Site.ListingURL
		if scanURL != "" {
			target = scanURL
		}
		target, err = ensureScheme(target)
		if err != nil {
			return err
		}
		if globalFetcher == nil {
			globalFetcher = newFetcher(appConfig, appLogger)
		}
		appLogger.Info("記事の検索を開始します", logger.String("url", target))
		src = pipeline.ListingSource{Fetcher: globalFetcher, Extractor: extractor, URL: target}
	}

	p := pipeline.New(
		reporter,
		pipeline.WithLogger(appLogger),
		pipeline.WithOutputPath(appConfig.Output.Path),
		pipeline.WithSave(!scanNoSave),
	)
	p.Run(commandContext(cmd), src)

	appLogger.Info("処理が完了しました")
	return nil
}

func init() {
	scanCmd.Flags().StringVarP(&scanURL, "url", "u", "", "記事一覧ページのURL（省略時は設定値）")
	scanCmd.Flags().StringVarP(&scanInput, "input", "i", "", "ネットワークの代わりに読み込む保存済みHTMLファイル")
	scanCmd.Flags().BoolVar(&scanNoSave, "no-save", false, "レポートファイルを書き出さない")
}
