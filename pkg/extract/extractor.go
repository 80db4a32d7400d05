package extract

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/shouni/go-habr-scan/internal/logger"
	"github.com/shouni/go-habr-scan/pkg/keyword"
	"github.com/shouni/go-habr-scan/pkg/types"
)

// DefaultBaseURL は相対リンクを解決する際の基準オリジンです。
const DefaultBaseURL = "https://habr.com"

// Extractor は記事一覧ページから記事プレビューを抽出し、キーワードに一致したものだけを返します。
type Extractor struct {
	matcher   *keyword.Matcher
	base      *url.URL
	selectors Selectors
	log       logger.Logger
}

// Option は Extractor の設定を行うための関数型です。
type Option func(*Extractor)

// WithSelectors はセレクターを差し替えます。空の項目はデフォルト値で補完されます。
func WithSelectors(s Selectors) Option {
	return func(e *Extractor) { e.selectors = s.withDefaults() }
}

// WithLogger はログ出力先を設定します。
func WithLogger(l logger.Logger) Option {
	return func(e *Extractor) { e.log = l }
}

// NewExtractor は、新しい Extractor のインスタンスを生成します。
func NewExtractor(matcher *keyword.Matcher, baseURL string, opts ...Option) (*Extractor, error) {
	if matcher == nil {
		return nil, fmt.Errorf("extract.NewExtractor: Matcher cannot be nil")
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	base, err := url.Parse(baseURL)
	if err != nil || !base.IsAbs() {
		return nil, fmt.Errorf("extract.NewExtractor: 基準URLが不正です (%s)", baseURL)
	}

	e := &Extractor{
		matcher:   matcher,
		base:      base,
		selectors: DefaultSelectors(),
		log:       logger.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Extract は HTML 文字列を解析し、キーワードに一致した記事を文書順に返します。
func (e *Extractor) Extract(htmlText string) []types.ArticleRecord {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlText))
	if err != nil {
		e.log.Error("HTML解析に失敗しました", logger.Error(err))
		return nil
	}
	return e.ExtractDocument(doc)
}

// ExtractDocument は解析済みのドキュメントから記事を抽出します。
func (e *Extractor) ExtractDocument(doc *goquery.Document) []types.ArticleRecord {
	fragments := doc.Find(e.selectors.Fragment)
	total := fragments.Length()
	e.log.Info("記事プレビューを検出しました", logger.Int("count", total))

	var records []types.ArticleRecord
	fragments.Each(func(i int, s *goquery.Selection) {
		e.log.Debug("記事を処理します", logger.Int("index", i+1), logger.Int("total", total))
		if rec, ok := e.parseFragment(s); ok {
			records = append(records, rec)
		}
	})

	e.log.Info("キーワードに一致した記事数", logger.Int("count", len(records)))
	return records
}

// parseFragment は記事プレビュー1件を解析します。必須項目が欠けている場合や
// キーワードに一致しない場合は ok=false を返します。
func (e *Extractor) parseFragment(s *goquery.Selection) (rec types.ArticleRecord, ok bool) {
	sel := e.selectors

	titleEl := s.Find(sel.Title).First()
	if titleEl.Length() == 0 {
		e.log.Debug("記事のタイトル要素が見つかりません")
		return rec, false
	}

	titleLink := titleEl.Find(sel.TitleLink).First()
	if titleLink.Length() == 0 {
		e.log.Debug("タイトル内にリンクが見つかりません")
		return rec, false
	}

	title := e.titleText(titleLink)
	if title == "" {
		e.log.Debug("記事のタイトルが空です")
		return rec, false
	}

	href, _ := titleLink.Attr("href")
	href = strings.TrimSpace(href)
	if href == "" {
		e.log.Debug("記事のリンクが空です", logger.String("title", title))
		return rec, false
	}
	link := e.resolveLink(href)

	rawDate, _ := s.Find(sel.Time).First().Attr("datetime")
	date, parsed := NormalizeDate(strings.TrimSpace(rawDate))
	if !parsed {
		e.log.Warn("日付を解析できませんでした", logger.String("raw", rawDate), logger.String("fallback", date))
	}

	preview := e.previewText(s, title)

	matched := e.matcher.Match(preview)
	if len(matched) == 0 {
		e.log.Debug("キーワードが見つかりません", logger.String("title", title))
		return rec, false
	}

	rec, err := types.NewArticleRecord(title, link, date, preview, matched)
	if err != nil {
		e.log.Debug("記事レコードを生成できません", logger.String("title", title), logger.Error(err))
		return rec, false
	}

	e.log.Info("記事が見つかりました", logger.String("title", title), logger.Strings("keywords", matched))
	return rec, true
}

// titleText はリンク内でテキストを持つ最初の子要素を優先し、なければリンク自体のテキストを返します。
func (e *Extractor) titleText(link *goquery.Selection) string {
	if e.selectors.TitleText != "" {
		var text string
		link.Find(e.selectors.TitleText).EachWithBreak(func(_ int, child *goquery.Selection) bool {
			text = flattenText(child)
			return text == ""
		})
		if text != "" {
			return text
		}
	}
	return flattenText(link)
}

// resolveLink はスキームを持たないリンクを基準オリジンに対して解決します。
func (e *Extractor) resolveLink(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return strings.TrimSuffix(e.base.String(), "/") + "/" + strings.TrimPrefix(href, "/")
	}
	if u.IsAbs() {
		return href
	}
	return e.base.ResolveReference(u).String()
}

// previewText はタイトル、リード文、本文抜粋、タグ、ハブ、著者名、フラグメント全体のテキストを
// この順に空白1つで連結します。
func (e *Extractor) previewText(s *goquery.Selection, title string) string {
	sel := e.selectors

	parts := []string{title}
	parts = append(parts, collectTexts(s, sel.Lead)...)
	parts = append(parts, collectTexts(s, sel.Body)...)
	parts = append(parts, collectTexts(s, sel.Tag)...)
	parts = append(parts, collectTexts(s, sel.Hub)...)
	parts = append(parts, collectTexts(s, sel.Author)...)
	if full := flattenText(s); full != "" {
		parts = append(parts, full)
	}
	return strings.Join(parts, " ")
}
