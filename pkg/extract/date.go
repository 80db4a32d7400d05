package extract

import (
	"time"

	"github.com/shouni/go-habr-scan/pkg/types"
)

const dateOutputLayout = "2006-01-02"

// dateLayouts は先頭から順に試す日付フォーマットです。最初に一致したものを採用します。
var dateLayouts = []string{
	"2006-01-02T15:04:05.999999999Z",
	"2006-01-02T15:04:05Z",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// NormalizeDate は生の日付文字列を YYYY-MM-DD に正規化します。
// 空文字列はセンチネル値になります。どのフォーマットにも一致しない場合は先頭10文字
// (10文字未満なら元の文字列) を返し、ok は false になります。
func NormalizeDate(raw string) (normalized string, ok bool) {
	if raw == "" {
		return types.UnknownDate, true
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format(dateOutputLayout), true
		}
	}

	runes := []rune(raw)
	if len(runes) >= 10 {
		return string(runes[:10]), false
	}
	return raw, false
}
