// Package logger は、標準出力とログファイルへ同時に書き出す構造化ロガーを提供します。
package logger

import (
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger は構造化ログのシンクです。各コンポーネントはこのインターフェースにのみ依存します。
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	With(fields ...Field) Logger
	Sync() error
}

// Field は zap.Field の型エイリアスです。
type Field = zap.Field

// Config はロガーの設定です。
type Config struct {
	// Level は最小ログレベル (debug, info, warn, error) です。
	Level string
	// File はログファイルのパスです。空の場合は標準出力のみに出力します。
	File string
}

type zapLogger struct {
	logger *zap.Logger
	file   *os.File
}

// New は、標準出力 (コンソール形式) とログファイル (JSON形式) に同時に出力するロガーを生成します。
func New(cfg Config) (Logger, error) {
	level := zap.NewAtomicLevelAt(parseLevel(cfg.Level))

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.Lock(os.Stdout), level),
	}

	var file *os.File
	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("ログファイル (%s) のオープンに失敗しました: %w", cfg.File, err)
		}
		file = f
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.Lock(f), level))
	}

	return &zapLogger{
		logger: zap.New(zapcore.NewTee(cores...)),
		file:   file,
	}, nil
}

// parseLevel は文字列のレベルを zapcore.Level に変換します。
func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func (l *zapLogger) Debug(msg string, fields ...Field) { l.logger.Debug(msg, fields...) }
func (l *zapLogger) Info(msg string, fields ...Field)  { l.logger.Info(msg, fields...) }
func (l *zapLogger) Warn(msg string, fields ...Field)  { l.logger.Warn(msg, fields...) }
func (l *zapLogger) Error(msg string, fields ...Field) { l.logger.Error(msg, fields...) }

func (l *zapLogger) With(fields ...Field) Logger {
	return &zapLogger{logger: l.logger.With(fields...), file: l.file}
}

// Sync はバッファを書き出し、ログファイルを開いている場合は閉じます。
func (l *zapLogger) Sync() error {
	// 標準出力への Sync は端末によっては EINVAL を返すため無視する
	_ = l.logger.Sync()
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

// FromZap は既存の *zap.Logger をラップします。テストで zaptest/observer を使う場合に利用します。
func FromZap(z *zap.Logger) Logger {
	return &zapLogger{logger: z}
}

// String creates a string field.
func String(key, val string) Field { return zap.String(key, val) }

// Int creates an int field.
func Int(key string, val int) Field { return zap.Int(key, val) }

// Duration creates a duration field.
func Duration(key string, val time.Duration) Field { return zap.Duration(key, val) }

// Strings creates a string slice field.
func Strings(key string, val []string) Field { return zap.Strings(key, val) }

// Error creates an error field with the key "error".
func Error(err error) Field { return zap.Error(err) }
