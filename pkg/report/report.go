package report

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/shouni/go-habr-scan/internal/logger"
	"github.com/shouni/go-habr-scan/pkg/types"
)

const (
	// DefaultOutputPath はレポートファイルのデフォルトの出力先です。
	DefaultOutputPath = "habr_articles.txt"

	// PreviewLimit はファイルに書き出すプレビューの最大文字数です。
	PreviewLimit = 200

	separatorWidth = 100
	bannerWidth    = 60

	noArticlesMessage = "指定したキーワードに一致する記事は見つかりませんでした。"
)

// Reporter は記事レコードをコンソールとファイルに書き出します。データの加工は行いません。
type Reporter struct {
	out io.Writer
	log logger.Logger
}

// New は out をコンソール出力先とする Reporter を生成します。
func New(out io.Writer, log logger.Logger) *Reporter {
	if out == nil {
		out = os.Stdout
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Reporter{out: out, log: log}
}

// Banner は起動時の見出しとして、検索キーワードとログファイルの場所を表示します。
func (r *Reporter) Banner(keywords []string, logFile string) {
	line := strings.Repeat("=", bannerWidth)
	fmt.Fprintln(r.out, line)
	fmt.Fprintln(r.out, "HABR キーワード記事検索")
	fmt.Fprintln(r.out, line)
	fmt.Fprintf(r.out, "キーワード: %s\n", strings.Join(keywords, ", "))
	if logFile != "" {
		fmt.Fprintf(r.out, "ログファイル: %s\n", logFile)
	}
	fmt.Fprintln(r.out)
}

// Print はコンソール向けのレポートを出力します。
func (r *Reporter) Print(records []types.ArticleRecord) {
	if len(records) == 0 {
		fmt.Fprintln(r.out, noArticlesMessage)
		return
	}

	fmt.Fprintf(r.out, "見つかった記事: %d\n", len(records))
	fmt.Fprintln(r.out, strings.Repeat("-", separatorWidth))

	for i, rec := range records {
		writeEntry(r.out, i+1, rec)
		fmt.Fprintln(r.out)
	}
}

// Save はレポートファイルを書き出します。失敗した場合はログに記録するだけで、処理は継続します。
// 書き出しに成功したかどうかを返します。
func (r *Reporter) Save(path string, records []types.ArticleRecord) bool {
	if path == "" {
		path = DefaultOutputPath
	}
	if err := WriteFile(path, records); err != nil {
		r.log.Error("ファイルへの保存に失敗しました", logger.String("path", path), logger.Error(err))
		return false
	}
	r.log.Info("結果をファイルに保存しました", logger.String("path", path))
	fmt.Fprintf(r.out, "結果はファイルにも保存されました: %s\n", path)
	return true
}

// WriteFile はレポートを UTF-8 のテキストファイルとして書き出します。既存のファイルは上書きされます。
func WriteFile(path string, records []types.ArticleRecord) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("レポートファイル (%s) の作成に失敗しました: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("レポートファイル (%s) のクローズに失敗しました: %w", path, cerr)
		}
	}()

	w := bufio.NewWriter(f)
	if err := Render(w, records); err != nil {
		return fmt.Errorf("レポートの書き込みに失敗しました: %w", err)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("レポートの書き込みに失敗しました: %w", err)
	}
	return nil
}

// Render はファイル向けのレポート (プレビューの抜粋付き) を w に書き込みます。
func Render(w io.Writer, records []types.ArticleRecord) error {
	ew := &errWriter{w: w}

	fmt.Fprintf(ew, "見つかった記事: %d\n", len(records))
	fmt.Fprintf(ew, "%s\n\n", strings.Repeat("=", separatorWidth))

	for i, rec := range records {
		writeEntry(ew, i+1, rec)
		fmt.Fprintf(ew, "   プレビュー: %s...\n\n", Truncate(rec.PreviewText(), PreviewLimit))
	}
	return ew.err
}

// Truncate は s の先頭 limit 文字 (バイトではなくルーン単位) を返します。
func Truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

func writeEntry(w io.Writer, index int, rec types.ArticleRecord) {
	fmt.Fprintf(w, "%d. %s – %s – %s\n", index, rec.PublishedDate(), rec.Title(), rec.Link())
	fmt.Fprintf(w, "   一致したキーワード: %s\n", strings.Join(rec.MatchedKeywords(), ", "))
}

// errWriter は最初に発生した書き込みエラーを保持し、以降の書き込みを行いません。
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) Write(p []byte) (int, error) {
	if e.err != nil {
		return 0, e.err
	}
	n, err := e.w.Write(p)
	e.err = err
	return n, err
}
