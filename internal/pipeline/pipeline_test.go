package pipeline

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/shouni/go-habr-scan/internal/logger"
	"github.com/shouni/go-habr-scan/pkg/extract"
	"github.com/shouni/go-habr-scan/pkg/keyword"
	"github.com/shouni/go-habr-scan/pkg/report"
	"github.com/shouni/go-habr-scan/pkg/types"
)

const listingHTML = `<html><body>
<article class="tm-articles-list__item">
  <h2 class="tm-title"><a class="tm-title__link" href="/ru/articles/123/"><span>Изучаем Python</span></a></h2>
  <time datetime="2024-05-01T10:00:00.000Z"></time>
  <div class="tm-article-snippet__lead">Короткий обзор</div>
</article>
<article class="tm-articles-list__item">
  <h2 class="tm-title"><a class="tm-title__link" href="/ru/articles/124/"><span>Rust и память</span></a></h2>
</article>
</body></html>`

type MockFetcher struct {
	mock.Mock
}

func (m *MockFetcher) Fetch(ctx context.Context, url string) string {
	args := m.Called(ctx, url)
	return args.String(0)
}

type MockFeedParser struct {
	mock.Mock
}

func (m *MockFeedParser) FetchRecords(ctx context.Context, feedURL string) ([]types.ArticleRecord, error) {
	args := m.Called(ctx, feedURL)
	records, _ := args.Get(0).([]types.ArticleRecord)
	return records, args.Error(1)
}

func newExtractor(t *testing.T, keywords ...string) *extract.Extractor {
	t.Helper()
	m, err := keyword.NewMatcher(keywords)
	require.NoError(t, err)
	e, err := extract.NewExtractor(m, "")
	require.NoError(t, err)
	return e
}

func TestRun_Listing(t *testing.T) {
	ctx := context.Background()
	url := "https://habr.com/ru/all/"
	out := filepath.Join(t.TempDir(), "habr_articles.txt")

	fetcher := new(MockFetcher)
	fetcher.On("Fetch", ctx, url).Return(listingHTML).Once()

	var console bytes.Buffer
	p := New(report.New(&console, nil), WithOutputPath(out))

	records := p.Run(ctx, ListingSource{Fetcher: fetcher, Extractor: newExtractor(t, "python"), URL: url})

	require.Len(t, records, 1)
	assert.Equal(t, "Изучаем Python", records[0].Title())
	assert.Equal(t, "https://habr.com/ru/articles/123/", records[0].Link())
	assert.Equal(t, "2024-05-01", records[0].PublishedDate())
	assert.Equal(t, []string{"python"}, records[0].MatchedKeywords())

	assert.Contains(t, console.String(), "見つかった記事: 1\n")
	assert.Contains(t, console.String(), out)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "プレビュー: Изучаем Python Короткий обзор")
	fetcher.AssertExpectations(t)
}

func TestRun_FetchFailureYieldsEmptyReport(t *testing.T) {
	ctx := context.Background()
	out := filepath.Join(t.TempDir(), "habr_articles.txt")

	fetcher := new(MockFetcher)
	fetcher.On("Fetch", ctx, mock.Anything).Return("").Once()

	core, logs := observer.New(zapcore.DebugLevel)
	var console bytes.Buffer
	p := New(report.New(&console, nil), WithOutputPath(out), WithLogger(logger.FromZap(zap.New(core))))

	records := p.Run(ctx, ListingSource{Fetcher: fetcher, Extractor: newExtractor(t, "python"), URL: "https://habr.com/ru/all/"})

	assert.Empty(t, records)
	assert.Contains(t, console.String(), "見つかりませんでした")

	errs := logs.FilterLevelExact(zapcore.ErrorLevel).All()
	require.Len(t, errs, 1)
	assert.Equal(t, "記事の収集に失敗しました", errs[0].Message)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "見つかった記事: 0")
}

func TestRun_ZeroFragments(t *testing.T) {
	var console bytes.Buffer
	p := New(report.New(&console, nil), WithSave(false))

	fetcher := new(MockFetcher)
	fetcher.On("Fetch", mock.Anything, mock.Anything).Return("<html><body><p>empty</p></body></html>")

	records := p.Run(context.Background(), ListingSource{Fetcher: fetcher, Extractor: newExtractor(t, "web"), URL: "u"})

	assert.Empty(t, records)
	assert.Equal(t, "指定したキーワードに一致する記事は見つかりませんでした。\n", console.String())
}

func TestRun_FileSource(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "listing.html")
	require.NoError(t, os.WriteFile(in, []byte(listingHTML), 0o644))

	var console bytes.Buffer
	p := New(report.New(&console, nil), WithSave(false))

	records := p.Run(context.Background(), FileSource{Path: in, Extractor: newExtractor(t, "rust", "python")})

	require.Len(t, records, 2)
	assert.Equal(t, []string{"python"}, records[0].MatchedKeywords())
	assert.Equal(t, []string{"rust"}, records[1].MatchedKeywords())
	assert.Equal(t, types.UnknownDate, records[1].PublishedDate())

	_, err := os.Stat(filepath.Join(dir, report.DefaultOutputPath))
	assert.True(t, os.IsNotExist(err), "no report file when saving is disabled")
}

func TestRun_FileSourceMissing(t *testing.T) {
	var console bytes.Buffer
	p := New(report.New(&console, nil), WithSave(false))

	records := p.Run(context.Background(), FileSource{Path: filepath.Join(t.TempDir(), "nope.html"), Extractor: newExtractor(t, "web")})

	assert.Empty(t, records)
}

func TestRun_FeedSource(t *testing.T) {
	ctx := context.Background()
	rec, err := types.NewArticleRecord("Web", "https://habr.com/ru/articles/9/", "2024-05-09", "web", []string{"web"})
	require.NoError(t, err)

	parser := new(MockFeedParser)
	parser.On("FetchRecords", ctx, "https://habr.com/ru/rss/articles/").Return([]types.ArticleRecord{rec}, nil).Once()

	var console bytes.Buffer
	p := New(report.New(&console, nil), WithSave(false))

	records := p.Run(ctx, FeedSource{Parser: parser, URL: "https://habr.com/ru/rss/articles/"})

	assert.Equal(t, []types.ArticleRecord{rec}, records)
	assert.Contains(t, console.String(), "1. 2024-05-09 – Web – https://habr.com/ru/articles/9/")
	parser.AssertExpectations(t)
}

func TestRun_FeedSourceError(t *testing.T) {
	parser := new(MockFeedParser)
	parser.On("FetchRecords", mock.Anything, mock.Anything).Return(nil, errors.New("boom"))

	var console bytes.Buffer
	p := New(report.New(&console, nil), WithSave(false))

	records := p.Run(context.Background(), FeedSource{Parser: parser, URL: "u"})
	assert.Empty(t, records)
}

func TestListingSource_ErrFetchFailed(t *testing.T) {
	fetcher := new(MockFetcher)
	fetcher.On("Fetch", mock.Anything, "u").Return("")

	_, err := ListingSource{Fetcher: fetcher, Extractor: newExtractor(t, "web"), URL: "u"}.Collect(context.Background())
	assert.ErrorIs(t, err, ErrFetchFailed)
}
