package keyword

import (
	"fmt"
	"regexp"
	"strings"
)

// wordChars は単語を構成する文字クラスです。
// regexp の \b は ASCII 限定のため、キリル文字などを含むキーワードでは自前で境界を表現します。
const wordChars = `\p{L}\p{N}_`

// Matcher は、設定されたキーワード群を単語境界付きの大文字小文字を区別しないパターンとして保持します。
// 生成後は読み取り専用で、複数のフラグメントに対して使い回せます。
type Matcher struct {
	keywords []string
	patterns []*regexp.Regexp
}

// NewMatcher は、キーワードを小文字化・重複除去し、それぞれをコンパイルした Matcher を返します。
func NewMatcher(keywords []string) (*Matcher, error) {
	m := &Matcher{}
	seen := make(map[string]struct{}, len(keywords))

	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		if _, ok := seen[kw]; ok {
			continue
		}
		seen[kw] = struct{}{}

		expr := fmt.Sprintf(`(?i)(?:^|[^%[1]s])%[2]s(?:$|[^%[1]s])`, wordChars, regexp.QuoteMeta(kw))
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("キーワード %q のコンパイルに失敗しました: %w", kw, err)
		}
		m.keywords = append(m.keywords, kw)
		m.patterns = append(m.patterns, re)
	}

	if len(m.keywords) == 0 {
		return nil, fmt.Errorf("keyword.NewMatcher: キーワードが1つも指定されていません")
	}
	return m, nil
}

// Keywords は、正規化済みのキーワードを設定順で返します。
func (m *Matcher) Keywords() []string {
	out := make([]string, len(m.keywords))
	copy(out, m.keywords)
	return out
}

// Match は text に単語として含まれるキーワードを設定順で返します。一致がなければ nil です。
func (m *Matcher) Match(text string) []string {
	var found []string
	for i, re := range m.patterns {
		if re.MatchString(text) {
			found = append(found, m.keywords[i])
		}
	}
	return found
}
