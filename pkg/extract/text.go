package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	textUtils "github.com/shouni/go-utils/text"
	"golang.org/x/net/html"
)

// flattenText は選択範囲内のテキストノードをそれぞれ trim し、空白1つで連結します。
// 要素をまたいだ単語がくっつかないため、単語境界でのキーワード判定が正しく働きます。
func flattenText(s *goquery.Selection) string {
	var parts []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			if t := strings.TrimSpace(n.Data); t != "" {
				parts = append(parts, t)
			}
			return
		case html.ElementNode:
			if n.Data == "script" || n.Data == "style" {
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range s.Nodes {
		walk(n)
	}
	return textUtils.NormalizeText(strings.Join(parts, " "))
}

// collectTexts は selector に一致する各要素のテキストを、空のものを除いて文書順に返します。
func collectTexts(s *goquery.Selection, selector string) []string {
	if selector == "" {
		return nil
	}
	var out []string
	s.Find(selector).Each(func(_ int, el *goquery.Selection) {
		if t := flattenText(el); t != "" {
			out = append(out, t)
		}
	})
	return out
}

// HTMLToText は HTML 断片をプレーンテキストに変換します。解析に失敗した場合は元の文字列を正規化して返します。
func HTMLToText(fragment string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return textUtils.NormalizeText(fragment)
	}
	return flattenText(doc.Selection)
}
