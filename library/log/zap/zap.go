package zap

import (
	"fmt"
	"io"
	"runtime"
	"slices"
	"strings"
	"sync/atomic"

	"github.com/go-kratos/kratos/v2/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/exp/maps"

	"github.com/yola1107/ludo-arbiter/library/log/zap/conf"
)

var _ log.Logger = (*Logger)(nil)

const sensitiveMask = "***"

// 调用方定位时跳过的包
var wrapperPkgs = []string{
	"github.com/go-kratos/kratos/v2/log.",
	"github.com/yola1107/ludo-arbiter/library/log/zap.(*Logger).",
}

// Logger kratos log.Logger 的 zap 实现. 敏感 key 的值和形如 JWT 的字符串都会打码
type Logger struct {
	base      *zap.Logger
	level     zap.AtomicLevel
	closers   []io.Closer
	sensitive atomic.Pointer[map[string]struct{}]
}

// NewLogger c 为空时使用默认配置
func NewLogger(c *conf.Bootstrap) *Logger {
	if c == nil || c.Log == nil || c.Log.Logger == nil {
		c = conf.DefaultConfig()
	}
	lc := c.Log.Logger
	level := zap.NewAtomicLevel()
	if err := level.UnmarshalText([]byte(lc.Level)); err != nil {
		panic(fmt.Errorf("invalid log level: %s", lc.Level))
	}
	base, closers := build(lc, level)
	l := newLogger(base, level)
	l.closers = closers
	l.SetSensitive(lc.Sensitive)
	return l
}

func newLogger(base *zap.Logger, level zap.AtomicLevel) *Logger {
	l := &Logger{base: base, level: level}
	l.sensitive.Store(&map[string]struct{}{})
	return l
}

func (l *Logger) Log(level log.Level, keyvals ...any) error {
	zl := toZapLevel(level)
	if zl < zapcore.DPanicLevel && !l.base.Core().Enabled(zl) {
		return nil
	}
	if len(keyvals) == 0 || len(keyvals)%2 != 0 {
		l.base.Warn(fmt.Sprint("Keyvalues must appear in pairs: ", keyvals))
		return nil
	}

	var (
		msg    string
		fields = make([]zap.Field, 0, len(keyvals)/2)
		masked = *l.sensitive.Load()
	)
	for i := 0; i < len(keyvals); i += 2 {
		key, ok := keyvals[i].(string)
		if !ok {
			key = fmt.Sprint(keyvals[i])
		}
		val := keyvals[i+1]
		if key == log.DefaultMessageKey {
			msg = maskTokens(fmt.Sprint(val))
			continue
		}
		if _, hit := masked[strings.ToLower(key)]; hit {
			fields = append(fields, zap.String(key, sensitiveMask))
			continue
		}
		if s, ok := val.(string); ok {
			val = maskTokens(s)
		}
		fields = append(fields, zap.Any(key, val))
	}

	zlog := l.base.WithOptions(zap.AddCallerSkip(callerSkip()))
	if ce := zlog.Check(zl, msg); ce != nil {
		ce.Write(fields...)
	}
	return nil
}

func (l *Logger) Close() error {
	l.base.Info("logger closed")
	_ = l.base.Sync()
	for _, c := range l.closers {
		_ = c.Close()
	}
	return nil
}

func (l *Logger) GetLevel() string { return l.level.String() }

// SetLevel 非法级别保持原值
func (l *Logger) SetLevel(level string) {
	if err := l.level.UnmarshalText([]byte(level)); err != nil {
		l.base.Warn("invalid log level", zap.String("level", level), zap.Error(err))
		return
	}
	l.base.Info("log level updated", zap.String("level", level))
}

// GetSensitive 已排序
func (l *Logger) GetSensitive() []string {
	keys := maps.Keys(*l.sensitive.Load())
	slices.Sort(keys)
	return keys
}

func (l *Logger) SetSensitive(keys []string) {
	set := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		set[strings.ToLower(k)] = struct{}{}
	}
	l.sensitive.Store(&set)
}

func toZapLevel(level log.Level) zapcore.Level {
	switch level {
	case log.LevelDebug:
		return zapcore.DebugLevel
	case log.LevelWarn:
		return zapcore.WarnLevel
	case log.LevelError:
		return zapcore.ErrorLevel
	case log.LevelFatal:
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

// maskTokens 把 eyJ 开头的三段式凭证替换为掩码
func maskTokens(s string) string {
	if !strings.Contains(s, "eyJ") {
		return s
	}
	words := strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == '=' || r == '&' || r == '?' || r == '"' || r == '\''
	})
	for _, w := range words {
		if strings.HasPrefix(w, "eyJ") && strings.Count(w, ".") == 2 {
			s = strings.ReplaceAll(s, w, sensitiveMask)
		}
	}
	return s
}

// callerSkip 跳过本包和 kratos log 的栈帧, 定位到业务调用处
func callerSkip() int {
	pc := make([]uintptr, 16)
	n := runtime.Callers(2, pc)
	frames := runtime.CallersFrames(pc[:n])
	skip := 0
	for {
		frame, more := frames.Next()
		if !slices.ContainsFunc(wrapperPkgs, func(p string) bool { return strings.HasPrefix(frame.Function, p) }) {
			return skip
		}
		skip++
		if !more {
			return skip
		}
	}
}
