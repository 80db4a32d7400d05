package cmd

import (
	"fmt"
	"net/url"
	"strings"
)

// ensureScheme は、URLにスキームがない場合は https:// を補完し、http/https 以外のスキームやホストのないURLを拒否します。
func ensureScheme(rawURL string) (string, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return "", fmt.Errorf("URLが指定されていません")
	}

	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("URLのパースエラー: %w", err)
	}

	if parsedURL.Scheme == "" {
		rawURL = "https://" + rawURL
		if parsedURL, err = url.Parse(rawURL); err != nil {
			return "", fmt.Errorf("URLのパースエラー (スキーム補完後): %w", err)
		}
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return "", fmt.Errorf("無効なURLスキームです。httpまたはhttpsを指定してください: %s", rawURL)
	}
	if parsedURL.Host == "" {
		return "", fmt.Errorf("URLにホストが含まれていません: %s", rawURL)
	}
	return rawURL, nil
}
