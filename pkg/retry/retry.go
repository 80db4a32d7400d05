package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// --- 定数と型 ---

const (
	// DefaultMaxAttempts は初回を含む最大試行回数です。
	DefaultMaxAttempts = 3

	// DefaultBaseInterval は待機時間の単位です。n 回目の失敗後に BaseInterval * 2^n 待機します。
	DefaultBaseInterval = 1 * time.Second
)

// Operation はリトライ可能な処理を表す関数です。attempt は 0 始まりの試行番号です。
type Operation func(attempt int) error

// NotifyFunc は、失敗した試行の後、待機に入る直前に呼び出されます。
type NotifyFunc func(err error, attempt int, wait time.Duration)

// Timer は待機に使うタイマーです。テストでは即時に発火する実装に差し替えます。
type Timer = backoff.Timer

// Config はリトライ動作を設定するための構造体です。
type Config struct {
	MaxAttempts  int
	BaseInterval time.Duration
}

// DefaultConfig は推奨されるデフォルト設定を返します。
func DefaultConfig() Config {
	return Config{
		MaxAttempts:  DefaultMaxAttempts,
		BaseInterval: DefaultBaseInterval,
	}
}

// --- リトライ処理 ---

// ErrExhausted は、すべての試行が失敗したことを示します。
var ErrExhausted = errors.New("最大試行回数に到達しました")

// newBackOffPolicy は、ジッターも上限もない純粋な指数バックオフ (1, 2, 4, ... 単位) を構築します。
func newBackOffPolicy(ctx context.Context, cfg Config) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = cfg.BaseInterval
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxInterval = time.Duration(math.MaxInt64)
	b.MaxElapsedTime = 0

	retries := uint64(0)
	if cfg.MaxAttempts > 1 {
		retries = uint64(cfg.MaxAttempts - 1)
	}
	return backoff.WithContext(backoff.WithMaxRetries(b, retries), ctx)
}

// Do は op を最大 cfg.MaxAttempts 回実行します。試行の間は BaseInterval * 2^attempt 待機します。
// timer が nil の場合は実時間で待機します。
func Do(ctx context.Context, cfg Config, operationName string, op Operation, notify NotifyFunc, timer Timer) error {
	// 1. 不正な設定値を補正
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.BaseInterval <= 0 {
		cfg.BaseInterval = DefaultBaseInterval
	}

	// 2. 試行番号と最後のエラーを保持するラッパーを用意
	attempt := 0
	var lastErr error

	retryableOp := func() error {
		err := op(attempt)
		if err != nil {
			lastErr = err
		}
		return err
	}

	notifyFn := func(err error, wait time.Duration) {
		if notify != nil {
			notify(err, attempt, wait)
		}
		attempt++
	}

	// 3. リトライの実行
	err := backoff.RetryNotifyWithTimer(retryableOp, newBackOffPolicy(ctx, cfg), notifyFn, timer)
	if err == nil {
		return nil
	}

	// 4. エラーのラッピング (キャンセルと試行回数の上限を区別する)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%sに失敗しました: コンテキストタイムアウト/キャンセル: %w", operationName, ctxErr)
	}

	return fmt.Errorf("%sに失敗しました: %w (%d回)。最終エラー: %w", operationName, ErrExhausted, cfg.MaxAttempts, lastErr)
}
