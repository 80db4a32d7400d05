package feed

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/mmcdole/gofeed"

	"github.com/shouni/go-habr-scan/internal/logger"
	"github.com/shouni/go-habr-scan/pkg/extract"
	"github.com/shouni/go-habr-scan/pkg/keyword"
	"github.com/shouni/go-habr-scan/pkg/types"
)

// DefaultFeedURL は habr の新着記事 RSS です。
const DefaultFeedURL = "https://habr.com/ru/rss/articles/"

// Fetcher は Parser が依存するインターフェースです。
type Fetcher interface {
	FetchBytes(ctx context.Context, url string) ([]byte, error)
}

// Parser は RSS/Atom フィードを取得し、記事一覧ページと同じ規則でキーワードに一致した記事を返します。
type Parser struct {
	client  Fetcher
	matcher *keyword.Matcher
	log     logger.Logger
}

// NewParser は新しい Parser インスタンスを初期化し、依存関係を注入します。
func NewParser(client Fetcher, matcher *keyword.Matcher, log logger.Logger) (*Parser, error) {
	if client == nil {
		return nil, fmt.Errorf("feed.NewParser: Fetcher cannot be nil")
	}
	if matcher == nil {
		return nil, fmt.Errorf("feed.NewParser: Matcher cannot be nil")
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Parser{client: client, matcher: matcher, log: log}, nil
}

// FetchAndParse は指定されたURLからフィードを取得し、パースします。
func (p *Parser) FetchAndParse(ctx context.Context, feedURL string) (*gofeed.Feed, error) {
	body, err := p.client.FetchBytes(ctx, feedURL)
	if err != nil {
		return nil, fmt.Errorf("フィードの取得失敗 (URL: %s): %w", feedURL, err)
	}

	feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("RSSフィードのパース失敗 (URL: %s): %w", feedURL, err)
	}
	return feed, nil
}

// FetchRecords はフィードを取得し、キーワードに一致した記事をフィード内の順序で返します。
func (p *Parser) FetchRecords(ctx context.Context, feedURL string) ([]types.ArticleRecord, error) {
	feed, err := p.FetchAndParse(ctx, feedURL)
	if err != nil {
		return nil, err
	}
	return p.Records(feed), nil
}

// Records はフィードの各アイテムを記事レコードに変換します。
// タイトルまたはリンクがないアイテムと、キーワードに一致しないアイテムは除外されます。
func (p *Parser) Records(feed *gofeed.Feed) []types.ArticleRecord {
	if feed == nil {
		return nil
	}
	p.log.Info("フィードのアイテムを検出しました", logger.Int("count", len(feed.Items)))

	var records []types.ArticleRecord
	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		title := strings.TrimSpace(item.Title)
		link := strings.TrimSpace(item.Link)
		if title == "" || link == "" {
			p.log.Debug("タイトルまたはリンクのないアイテムをスキップします", logger.String("title", title))
			continue
		}

		preview := previewText(item, title)
		matched := p.matcher.Match(preview)
		if len(matched) == 0 {
			p.log.Debug("キーワードが見つかりません", logger.String("title", title))
			continue
		}

		rec, err := types.NewArticleRecord(title, link, p.itemDate(item), preview, matched)
		if err != nil {
			p.log.Debug("記事レコードを生成できません", logger.String("title", title), logger.Error(err))
			continue
		}
		p.log.Info("記事が見つかりました", logger.String("title", title), logger.Strings("keywords", matched))
		records = append(records, rec)
	}

	p.log.Info("キーワードに一致した記事数", logger.Int("count", len(records)))
	return records
}

func (p *Parser) itemDate(item *gofeed.Item) string {
	if item.PublishedParsed != nil {
		return item.PublishedParsed.UTC().Format("2006-01-02")
	}
	if item.UpdatedParsed != nil {
		return item.UpdatedParsed.UTC().Format("2006-01-02")
	}
	date, ok := extract.NormalizeDate(strings.TrimSpace(item.Published))
	if !ok {
		p.log.Warn("日付を解析できませんでした", logger.String("raw", item.Published), logger.String("fallback", date))
	}
	return date
}

// previewText はタイトル、説明文、カテゴリー、著者名をこの順に空白1つで連結します。
func previewText(item *gofeed.Item, title string) string {
	parts := []string{title}
	if d := extract.HTMLToText(item.Description); d != "" {
		parts = append(parts, d)
	}
	for _, c := range item.Categories {
		if c = strings.TrimSpace(c); c != "" {
			parts = append(parts, c)
		}
	}
	for _, a := range item.Authors {
		if a != nil && strings.TrimSpace(a.Name) != "" {
			parts = append(parts, strings.TrimSpace(a.Name))
		}
	}
	return strings.Join(parts, " ")
}
