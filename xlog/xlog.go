// Package xlog provides leveled, rotated logging for both the
// sender and receiver binaries. The call-site API (Infof, Warningf,
// Errorf, ...) is deliberately small and printf-shaped; the backend is
// zap fronted by a lumberjack rotating sink, so call sites never touch
// zap directly.
package xlog

import (
	"os"
	"sync"
	"time"

	"github.com/natefinch/lumberjack"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu     sync.RWMutex
	logger *zap.SugaredLogger
)

// Options configures the process-wide logger. Zero value logs at info
// level to stderr only.
type Options struct {
	Level    string // debug|info|warn|error
	Path     string // rotated file sink; empty disables file logging
	MaxSizeMB int
	MaxBackups int
	MaxAgeDays int
	Compress  bool
	ToStderr  bool
	Session   string // session correlation id, attached to every line
}

var levelMap = map[string]zapcore.Level{
	"debug": zapcore.DebugLevel,
	"info":  zapcore.InfoLevel,
	"warn":  zapcore.WarnLevel,
	"error": zapcore.ErrorLevel,
}

// Init (re)configures the process-wide logger. Safe to call once at
// startup; subsequent calls replace the logger atomically.
func Init(opt Options) {
	lvl, ok := levelMap[opt.Level]
	if !ok {
		lvl = zapcore.InfoLevel
	}

	encCfg := zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "logger",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     timeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
	enc := zapcore.NewJSONEncoder(encCfg)

	var cores []zapcore.Core
	enabler := zap.LevelEnablerFunc(func(l zapcore.Level) bool { return l >= lvl })

	if opt.Path != "" {
		hook := &lumberjack.Logger{
			Filename:   opt.Path,
			MaxSize:    orDefault(opt.MaxSizeMB, 128),
			MaxBackups: orDefault(opt.MaxBackups, 5),
			MaxAge:     orDefault(opt.MaxAgeDays, 30),
			Compress:   opt.Compress,
		}
		cores = append(cores, zapcore.NewCore(enc, zapcore.AddSync(hook), enabler))
	}
	if opt.ToStderr || opt.Path == "" {
		cores = append(cores, zapcore.NewCore(enc, zapcore.AddSync(os.Stderr), enabler))
	}

	base := zap.New(zapcore.NewTee(cores...), zap.AddCaller())
	if opt.Session != "" {
		base = base.With(zap.String("session", opt.Session))
	}

	mu.Lock()
	logger = base.Sugar()
	mu.Unlock()
}

func orDefault(v, d int) int {
	if v <= 0 {
		return d
	}
	return v
}

func timeEncoder(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.Format("2006-01-02T15:04:05.000Z07:00"))
}

func get() *zap.SugaredLogger {
	mu.RLock()
	l := logger
	mu.RUnlock()
	if l == nil {
		Init(Options{Level: "info", ToStderr: true})
		mu.RLock()
		l = logger
		mu.RUnlock()
	}
	return l
}

func Debugf(format string, args ...any)   { get().Debugf(format, args...) }
func Infof(format string, args ...any)    { get().Infof(format, args...) }
func Warningf(format string, args ...any) { get().Warnf(format, args...) }
func Errorf(format string, args ...any)   { get().Errorf(format, args...) }

func Infoln(args ...any)    { get().Infoln(args...) }
func Warningln(args ...any) { get().Warnln(args...) }
func Errorln(args ...any)   { get().Errorln(args...) }

// Flush syncs the underlying sinks. Best-effort: zap/lumberjack return
// benign errors when the sink is a console that doesn't support fsync.
func Flush() { _ = get().Sync() }
