package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/shouni/go-habr-scan/internal/logger"
	"github.com/shouni/go-habr-scan/pkg/report"
	"github.com/shouni/go-habr-scan/pkg/types"
)

// ErrFetchFailed はページを取得できず、抽出を行わなかったことを示します。
var ErrFetchFailed = errors.New("ページのHTMLを取得できませんでした")

// Fetcher は URL からページ本文を取得します。失敗時は空文字列を返します。
type Fetcher interface {
	Fetch(ctx context.Context, url string) string
}

// Extractor は HTML からキーワードに一致した記事を抽出します。
type Extractor interface {
	Extract(html string) []types.ArticleRecord
}

// FeedParser はフィードを取得し、キーワードに一致した記事を返します。
type FeedParser interface {
	FetchRecords(ctx context.Context, feedURL string) ([]types.ArticleRecord, error)
}

// Source は記事レコードの供給元です。
type Source interface {
	Collect(ctx context.Context) ([]types.ArticleRecord, error)
}

// ListingSource は記事一覧ページを取得して抽出します。
type ListingSource struct {
	Fetcher   Fetcher
	Extractor Extractor
	URL       string
}

func (s ListingSource) Collect(ctx context.Context) ([]types.ArticleRecord, error) {
	html := s.Fetcher.Fetch(ctx, s.URL)
	if html == "" {
		return nil, fmt.Errorf("%w (URL: %s)", ErrFetchFailed, s.URL)
	}
	return s.Extractor.Extract(html), nil
}

// FileSource は保存済みの記事一覧 HTML をローカルファイルから読み込んで抽出します。
type FileSource struct {
	Path      string
	Extractor Extractor
}

func (s FileSource) Collect(_ context.Context) ([]types.ArticleRecord, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("入力ファイル (%s) の読み込みに失敗しました: %w", s.Path, err)
	}
	return s.Extractor.Extract(string(data)), nil
}

// FeedSource は RSS/Atom フィードから記事を集めます。
type FeedSource struct {
	Parser FeedParser
	URL    string
}

func (s FeedSource) Collect(ctx context.Context) ([]types.ArticleRecord, error) {
	return s.Parser.FetchRecords(ctx, s.URL)
}

// Pipeline は Source → Reporter の流れを実行します。
type Pipeline struct {
	reporter   *report.Reporter
	log        logger.Logger
	outputPath string
	save       bool
}

// Option は Pipeline の設定を行うための関数型です。
type Option func(*Pipeline)

// WithLogger はログ出力先を設定します。
func WithLogger(l logger.Logger) Option {
	return func(p *Pipeline) { p.log = l }
}

// WithOutputPath はレポートファイルの出力先を設定します。
func WithOutputPath(path string) Option {
	return func(p *Pipeline) { p.outputPath = path }
}

// WithSave はレポートファイルを書き出すかどうかを設定します。デフォルトは true です。
func WithSave(save bool) Option {
	return func(p *Pipeline) { p.save = save }
}

// New は新しい Pipeline を生成します。
func New(reporter *report.Reporter, opts ...Option) *Pipeline {
	p := &Pipeline{
		reporter:   reporter,
		log:        logger.NewNop(),
		outputPath: report.DefaultOutputPath,
		save:       true,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.reporter == nil {
		p.reporter = report.New(nil, p.log)
	}
	return p
}

// Run は記事を収集し、コンソールに表示してからファイルに保存します。
// 収集に失敗しても処理は止めず、0件のレポートを出力します。
func (p *Pipeline) Run(ctx context.Context, src Source) []types.ArticleRecord {
	records, err := src.Collect(ctx)
	if err != nil {
		p.log.Error("記事の収集に失敗しました", logger.Error(err))
		records = nil
	}
	p.log.Info("一致した記事の合計", logger.Int("count", len(records)))

	p.reporter.Print(records)
	if p.save {
		p.reporter.Save(p.outputPath, records)
	}
	return records
}
