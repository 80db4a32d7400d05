package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shouni/go-http-kit/pkg/httpkit"
	"golang.org/x/net/html/charset"

	"github.com/shouni/go-habr-scan/internal/logger"
	"github.com/shouni/go-habr-scan/pkg/retry"
)

const (
	// DefaultHTTPTimeout は1回の試行あたりのタイムアウトです。
	DefaultHTTPTimeout = 15 * time.Second
	MaxBodySize        = int64(10 * 1024 * 1024) // 10MB

	// サイトからのブロックを避けるためのUser-Agent
	UserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

	maxErrorBodyLen = 1024
)

// Accept-Encoding は設定しない。明示すると net/http の透過的な gzip 展開が無効になる。
var defaultHeaders = map[string]string{
	"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
	"Accept-Language": "ru-RU,ru;q=0.8,en-US;q=0.5,en;q=0.3",
	"Connection":      "keep-alive",
}

// Doer は、標準の *http.Client.Do() と互換性のあるHTTPクライアントのインターフェースを定義します。
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTPStatusError は 2xx 以外のステータスコードを示すエラーです。リトライ対象として扱われます。
type HTTPStatusError struct {
	StatusCode int
	Body       []byte
}

func (e *HTTPStatusError) Error() string {
	if len(e.Body) == 0 {
		return fmt.Sprintf("HTTPステータスコードエラー: %d, ボディなし", e.StatusCode)
	}
	body := strings.TrimSpace(string(e.Body))
	if len(body) > maxErrorBodyLen {
		body = truncateUTF8(body, maxErrorBodyLen) + "..."
	}
	return fmt.Sprintf("HTTPステータスコードエラー: %d, ボディ: %s", e.StatusCode, body)
}

// truncateUTF8 は s を最大 n バイトに切り詰めます。マルチバイト文字の途中では切りません。
func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// IsHTTPStatusError は err が HTTPStatusError を含むかどうかを判定します。
func IsHTTPStatusError(err error) bool {
	var statusErr *HTTPStatusError
	return errors.As(err, &statusErr)
}

// Client は、ブラウザ相当のヘッダーと指数バックオフ付きリトライでページを取得します。
type Client struct {
	httpClient  Doer
	timeout     time.Duration
	retryConfig retry.Config
	userAgent   string
	timer       retry.Timer
	log         logger.Logger
}

// Option は Client の設定を行うための関数型です。
type Option func(*Client)

// WithHTTPClient はカスタムの Doer を設定します。
func WithHTTPClient(doer Doer) Option {
	return func(c *Client) { c.httpClient = doer }
}

// WithMaxAttempts は初回を含む最大試行回数を設定します。
func WithMaxAttempts(n int) Option {
	return func(c *Client) { c.retryConfig.MaxAttempts = n }
}

// WithBackoffUnit は待機時間の単位 (1, 2, 4, ... の 1) を設定します。
func WithBackoffUnit(d time.Duration) Option {
	return func(c *Client) { c.retryConfig.BaseInterval = d }
}

// WithUserAgent は User-Agent ヘッダーを上書きします。
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithLogger は試行ごとのログ出力先を設定します。
func WithLogger(l logger.Logger) Option {
	return func(c *Client) { c.log = l }
}

// WithTimer はリトライ間の待機に使うタイマーを設定します。
func WithTimer(t retry.Timer) Option {
	return func(c *Client) { c.timer = t }
}

// New は新しい Client を生成します。timeout は1回の試行ごとに適用されます。
func New(timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = DefaultHTTPTimeout
	}
	c := &Client{
		httpClient:  &http.Client{Timeout: timeout},
		timeout:     timeout,
		retryConfig: retry.DefaultConfig(),
		userAgent:   UserAgent,
		log:         logger.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch はページの本文を UTF-8 の文字列で返します。すべての試行が失敗した場合は空文字列を返し、
// 呼び出し側はそれを「取得失敗」として扱います。
func (c *Client) Fetch(ctx context.Context, url string) string {
	body, contentType, err := c.fetch(ctx, url)
	if err != nil {
		c.log.Error("すべての試行が失敗しました", logger.String("url", url), logger.Error(err))
		return ""
	}
	return string(decodeBody(body, contentType))
}

// FetchBytes は URL からコンテンツを取得し、受信したままのバイト列を返します。
// XML の encoding 宣言は charset パッケージでは判定できないため、文字コードの変換は呼び出し側 (gofeed など) に任せます。
func (c *Client) FetchBytes(ctx context.Context, url string) ([]byte, error) {
	body, _, err := c.fetch(ctx, url)
	return body, err
}

// fetch はリトライ付きで GET を実行し、本文と Content-Type を返します。
func (c *Client) fetch(ctx context.Context, url string) ([]byte, string, error) {
	var (
		body        []byte
		contentType string
	)

	op := func(attempt int) error {
		log := c.log.With(logger.Int("attempt", attempt+1), logger.String("url", url))
		log.Info("ページの取得を試行します")

		b, ct, err := c.doFetch(ctx, url, log)
		if err != nil {
			log.Error("ページの取得に失敗しました", logger.Error(err))
			return err
		}
		body, contentType = b, ct
		log.Info("ページを取得しました", logger.Int("size", len(b)))
		return nil
	}

	notify := func(err error, attempt int, wait time.Duration) {
		c.log.Info("再試行まで待機します", logger.Int("attempt", attempt+1), logger.Duration("wait", wait))
	}

	if err := retry.Do(ctx, c.retryConfig, fmt.Sprintf("URL(%s)のフェッチ", url), op, notify, c.timer); err != nil {
		return nil, "", err
	}
	return body, contentType, nil
}

// doFetch は1回分の HTTP GET を実行します。
func (c *Client) doFetch(ctx context.Context, url string, log logger.Logger) ([]byte, string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("GETリクエスト作成に失敗しました: %w", err)
	}
	c.addCommonHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("HTTPリクエストに失敗しました (ネットワーク/接続エラー): %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyLen+1))
		return nil, "", &HTTPStatusError{StatusCode: resp.StatusCode, Body: errBody}
	}

	// HTML 以外 (CAPTCHA やエラーページの可能性もある) でも本文はそのまま返す
	contentType := resp.Header.Get("Content-Type")
	if !strings.Contains(strings.ToLower(contentType), "text/html") {
		log.Warn("HTML以外のコンテンツを受信しました", logger.String("content_type", contentType))
	}

	raw, err := httpkit.HandleLimitedResponse(resp, MaxBodySize)
	if err != nil {
		return nil, "", fmt.Errorf("レスポンスボディの読み込みに失敗しました: %w", err)
	}
	return raw, contentType, nil
}

// decodeBody は Content-Type の charset や meta タグを見て本文を UTF-8 に変換します。
// 宣言がなく UTF-8 として妥当な本文はそのまま返します。
func decodeBody(raw []byte, contentType string) []byte {
	e, name, certain := charset.DetermineEncoding(raw, contentType)
	if name == "utf-8" || (!certain && name == "windows-1252" && utf8.Valid(raw)) {
		return raw
	}
	decoded, err := e.NewDecoder().Bytes(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// addCommonHeaders は共通のHTTPヘッダーを設定します。
func (c *Client) addCommonHeaders(req *http.Request) {
	req.Header.Set("User-Agent", c.userAgent)
	for k, v := range defaultHeaders {
		req.Header.Set(k, v)
	}
}
