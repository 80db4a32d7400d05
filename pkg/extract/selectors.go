package extract

import "fmt"

// Selectors は記事一覧ページの構造に依存する CSS セレクターです。
// マークアップは外部サイトの表示上の都合で変わり得るため、設定で差し替えられるようにしています。
type Selectors struct {
	Fragment  string `yaml:"fragment"`
	Title     string `yaml:"title"`
	TitleLink string `yaml:"title_link"`
	TitleText string `yaml:"title_text"`
	Time      string `yaml:"time"`
	Lead      string `yaml:"lead"`
	Body      string `yaml:"body"`
	Tag       string `yaml:"tag"`
	Hub       string `yaml:"hub"`
	Author    string `yaml:"author"`
}

// DefaultSelectors は habr.com の記事一覧に対応するセレクターを返します。
func DefaultSelectors() Selectors {
	return Selectors{
		Fragment:  "article.tm-articles-list__item",
		Title:     "h2.tm-title",
		TitleLink: "a.tm-title__link",
		TitleText: "span",
		Time:      "time",
		Lead:      "div.tm-article-snippet__lead",
		Body:      "div.tm-article-body",
		Tag:       "a.tm-article-snippet__hubs-item-link",
		Hub:       "a.tm-hub-link",
		Author:    "a.tm-user-info__username",
	}
}

// Validate は必須のセレクターが空でないことを確認します。
func (s Selectors) Validate() error {
	required := map[string]string{
		"fragment":   s.Fragment,
		"title":      s.Title,
		"title_link": s.TitleLink,
	}
	for name, v := range required {
		if v == "" {
			return fmt.Errorf("セレクター %s が空です", name)
		}
	}
	return nil
}

// withDefaults は空のセレクターをデフォルト値で補完します。
func (s Selectors) withDefaults() Selectors {
	d := DefaultSelectors()
	fill := func(v *string, def string) {
		if *v == "" {
			*v = def
		}
	}
	fill(&s.Fragment, d.Fragment)
	fill(&s.Title, d.Title)
	fill(&s.TitleLink, d.TitleLink)
	fill(&s.TitleText, d.TitleText)
	fill(&s.Time, d.Time)
	fill(&s.Lead, d.Lead)
	fill(&s.Body, d.Body)
	fill(&s.Tag, d.Tag)
	fill(&s.Hub, d.Hub)
	fill(&s.Author, d.Author)
	return s
}
