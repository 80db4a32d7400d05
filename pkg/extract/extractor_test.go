package extract_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/shouni/go-habr-scan/internal/logger"
	"github.com/shouni/go-habr-scan/pkg/extract"
	"github.com/shouni/go-habr-scan/pkg/keyword"
	"github.com/shouni/go-habr-scan/pkg/types"
)

// fragment は habr の記事一覧に近い構造の記事プレビューを1件生成します。
func fragment(title, href, datetime, lead string) string {
	return fmt.Sprintf(`
<article class="tm-articles-list__item">
  <div class="tm-article-snippet">
    <a class="tm-user-info__username" href="/ru/users/alice/">alice</a>
    <time datetime="%s" title="date">сегодня</time>
    <h2 class="tm-title tm-title_h2">
      <a class="tm-title__link" href="%s"><span>%s</span></a>
    </h2>
    <div class="tm-article-snippet__hubs">
      <a class="tm-article-snippet__hubs-item-link" href="/ru/hubs/dev/">Разработка</a>
    </div>
    <div class="tm-article-snippet__lead"><p>%s</p></div>
  </div>
</article>`, datetime, href, title, lead)
}

func page(fragments ...string) string {
	return `<html><head><title>Все статьи</title></head><body><div class="tm-articles-list">` +
		strings.Join(fragments, "\n") + `</div></body></html>`
}

func newExtractor(t *testing.T, keywords ...string) *extract.Extractor {
	t.Helper()
	m, err := keyword.NewMatcher(keywords)
	require.NoError(t, err)
	e, err := extract.NewExtractor(m, extract.DefaultBaseURL)
	require.NoError(t, err)
	return e
}

func TestNewExtractor(t *testing.T) {
	m, err := keyword.NewMatcher([]string{"web"})
	require.NoError(t, err)

	t.Run("success_with_default_base", func(t *testing.T) {
		e, err := extract.NewExtractor(m, "")
		assert.NoError(t, err)
		assert.NotNil(t, e)
	})

	t.Run("error_with_nil_matcher", func(t *testing.T) {
		e, err := extract.NewExtractor(nil, extract.DefaultBaseURL)
		assert.Error(t, err)
		assert.Nil(t, e)
		assert.Contains(t, err.Error(), "Matcher cannot be nil")
	})

	t.Run("error_with_relative_base", func(t *testing.T) {
		e, err := extract.NewExtractor(m, "/ru/")
		assert.Error(t, err)
		assert.Nil(t, e)
	})
}

func TestExtract_SingleMatch(t *testing.T) {
	e := newExtractor(t, "python")
	html := page(fragment("Введение в Python", "/ru/articles/123/", "2024-05-01T10:00:00.000Z", "Немного о языке"))

	records := e.Extract(html)

	require.Len(t, records, 1)
	rec := records[0]
	assert.Equal(t, "Введение в Python", rec.Title())
	assert.Equal(t, "https://habr.com/ru/articles/123/", rec.Link())
	assert.Equal(t, "2024-05-01", rec.PublishedDate())
	assert.Equal(t, []string{"python"}, rec.MatchedKeywords())
	assert.True(t, strings.HasPrefix(rec.PreviewText(), "Введение в Python Немного о языке Разработка alice "))
}

func TestExtract_PreviewOrder(t *testing.T) {
	e := newExtractor(t, "web")
	html := page(`
<article class="tm-articles-list__item">
  <h2 class="tm-title"><a class="tm-title__link" href="https://habr.com/ru/articles/1/"><span>Title</span></a></h2>
  <div class="tm-article-body">Body text</div>
  <div class="tm-article-snippet__lead">Lead text</div>
  <a class="tm-hub-link" href="#">Hub</a>
  <a class="tm-article-snippet__hubs-item-link" href="#">Tag</a>
  <a class="tm-user-info__username" href="#">bob</a>
  <p>about web</p>
</article>`)

	records := e.Extract(html)

	require.Len(t, records, 1)
	expected := "Title Lead text Body text Tag Hub bob " +
		"Title Body text Lead text Hub Tag bob about web"
	assert.Equal(t, expected, records[0].PreviewText())
	assert.Equal(t, "https://habr.com/ru/articles/1/", records[0].Link())
	assert.Equal(t, types.UnknownDate, records[0].PublishedDate())
}

func TestExtract_SkipsInvalidFragments(t *testing.T) {
	e := newExtractor(t, "web")

	tests := []struct {
		name string
		html string
	}{
		{"missing title", `<article class="tm-articles-list__item"><p>web</p></article>`},
		{"missing link", `<article class="tm-articles-list__item"><h2 class="tm-title"><span>web</span></h2></article>`},
		{"missing href", `<article class="tm-articles-list__item"><h2 class="tm-title"><a class="tm-title__link"><span>web</span></a></h2></article>`},
		{"empty href", `<article class="tm-articles-list__item"><h2 class="tm-title"><a class="tm-title__link" href=" "><span>web</span></a></h2></article>`},
		{"empty title", `<article class="tm-articles-list__item"><h2 class="tm-title"><a class="tm-title__link" href="/x"><span> </span></a></h2><p>web</p></article>`},
		{"no keyword", fragment("Go generics", "/ru/articles/2/", "2024-05-01", "nothing here")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Empty(t, e.Extract(page(tt.html)))
		})
	}
}

func TestExtract_PreservesDocumentOrder(t *testing.T) {
	e := newExtractor(t, "дизайн", "фото", "web", "python")
	html := page(
		fragment("Web и дизайн", "/ru/articles/1/", "2024-05-03", "Про фото"),
		fragment("Rust", "/ru/articles/2/", "2024-05-02", "skip me"),
		fragment("Python", "/ru/articles/3/", "2024-05-01 08:00:00", "pythonic"),
	)

	records := e.Extract(html)

	require.Len(t, records, 2)
	assert.Equal(t, "https://habr.com/ru/articles/1/", records[0].Link())
	assert.Equal(t, []string{"дизайн", "фото", "web"}, records[0].MatchedKeywords())
	assert.Equal(t, "https://habr.com/ru/articles/3/", records[1].Link())
	assert.Equal(t, []string{"python"}, records[1].MatchedKeywords())
	assert.Equal(t, "2024-05-01", records[1].PublishedDate())
}

func TestExtract_NoFragments(t *testing.T) {
	e := newExtractor(t, "web")
	assert.Empty(t, e.Extract(`<html><body><p>web</p></body></html>`))
	assert.Empty(t, e.Extract(""))
}

func TestExtract_TitleFallsBackToLinkText(t *testing.T) {
	e := newExtractor(t, "web")
	html := page(`<article class="tm-articles-list__item"><h2 class="tm-title"><a class="tm-title__link" href="/ru/articles/9/">Plain web title</a></h2></article>`)

	records := e.Extract(html)

	require.Len(t, records, 1)
	assert.Equal(t, "Plain web title", records[0].Title())
}

func TestExtract_CustomSelectors(t *testing.T) {
	m, err := keyword.NewMatcher([]string{"web"})
	require.NoError(t, err)
	e, err := extract.NewExtractor(m, "https://example.com", extract.WithSelectors(extract.Selectors{
		Fragment:  "li.post",
		Title:     "h3",
		TitleLink: "a",
	}))
	require.NoError(t, err)

	records := e.Extract(`<ul><li class="post"><h3><a href="posts/7">web news</a></h3></li></ul>`)

	require.Len(t, records, 1)
	assert.Equal(t, "https://example.com/posts/7", records[0].Link())
}

func TestExtract_LogsSkipReasonsAtDebug(t *testing.T) {
	m, err := keyword.NewMatcher([]string{"web"})
	require.NoError(t, err)
	core, logs := observer.New(zapcore.DebugLevel)
	e, err := extract.NewExtractor(m, extract.DefaultBaseURL, extract.WithLogger(logger.FromZap(zap.New(core))))
	require.NoError(t, err)

	e.Extract(page(
		`<article class="tm-articles-list__item"><p>web</p></article>`,
		fragment("web", "/ru/articles/1/", "not-a-date", ""),
	))

	assert.Equal(t, 1, logs.FilterMessage("記事のタイトル要素が見つかりません").FilterLevelExact(zapcore.DebugLevel).Len())
	assert.Equal(t, 1, logs.FilterMessage("日付を解析できませんでした").FilterLevelExact(zapcore.WarnLevel).Len())
	assert.Equal(t, 1, logs.FilterMessage("記事が見つかりました").Len())
}
