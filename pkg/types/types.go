package types

import (
	"errors"
	"slices"
	"strings"
)

// UnknownDate は、日付を特定できなかった記事に設定されるセンチネル値です。
const UnknownDate = "日付不明"

var (
	ErrEmptyTitle = errors.New("タイトルが空です")
	ErrEmptyLink  = errors.New("リンクが空です")
	ErrNoKeywords = errors.New("一致したキーワードがありません")
)

// ArticleRecord は、キーワードに一致した記事プレビュー1件を表します。
// Extractor によって生成され、Reporter によって読み取られるだけで、生成後に変更されることはありません。
type ArticleRecord struct {
	title           string
	link            string
	publishedDate   string
	previewText     string
	matchedKeywords []string
}

// NewArticleRecord は、不変条件（タイトル・リンク・一致キーワードが空でないこと）を検証してレコードを生成します。
func NewArticleRecord(title, link, publishedDate, previewText string, matched []string) (ArticleRecord, error) {
	if strings.TrimSpace(title) == "" {
		return ArticleRecord{}, ErrEmptyTitle
	}
	if strings.TrimSpace(link) == "" {
		return ArticleRecord{}, ErrEmptyLink
	}
	if len(matched) == 0 {
		return ArticleRecord{}, ErrNoKeywords
	}
	if publishedDate == "" {
		publishedDate = UnknownDate
	}
	return ArticleRecord{
		title:           title,
		link:            link,
		publishedDate:   publishedDate,
		previewText:     previewText,
		matchedKeywords: slices.Clone(matched),
	}, nil
}

func (r ArticleRecord) Title() string         { return r.title }
func (r ArticleRecord) Link() string          { return r.link }
func (r ArticleRecord) PublishedDate() string { return r.publishedDate }
func (r ArticleRecord) PreviewText() string   { return r.previewText }

// MatchedKeywords は、一致したキーワードのコピーを設定順で返します。
func (r ArticleRecord) MatchedKeywords() []string {
	return slices.Clone(r.matchedKeywords)
}
