package zap

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/yola1107/ludo-arbiter/library/log/zap/conf"
)

const timeLayout = "2006/01/02 15:04:05.000"

// 采样: 每秒同一条消息前 2000 条全写, 之后每 10 条写一条
const (
	sampleTick       = time.Second
	sampleFirst      = 2000
	sampleThereafter = 10
)

type levelStyle struct {
	name  string
	color string
}

var styles = map[zapcore.Level]levelStyle{
	zapcore.DebugLevel:  {"DEBUG", "\x1b[36m"},
	zapcore.InfoLevel:   {"INFO·", "\x1b[32m"},
	zapcore.WarnLevel:   {"WARN·", "\x1b[33m"},
	zapcore.ErrorLevel:  {"ERROR", "\x1b[31m"},
	zapcore.DPanicLevel: {"PANIC", "\x1b[35m"},
	zapcore.PanicLevel:  {"PANIC", "\x1b[35m"},
	zapcore.FatalLevel:  {"FATAL", "\x1b[35m"},
}

// build 控制台输出始终开启, prod 模式且配置了目录时追加滚动文件
func build(c *conf.Logger, level zap.AtomicLevel) (*zap.Logger, []io.Closer) {
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig(true)), zapcore.Lock(os.Stderr), level),
	}
	var closers []io.Closer

	if c.Mode == conf.ModeProd && c.Directory != "" {
		app := c.AppName
		if app == "" {
			app = "app"
		}
		add := func(name string, enab zapcore.LevelEnabler) {
			w := rotating(c, filepath.Join(c.Directory, name))
			closers = append(closers, w)
			cores = append(cores, zapcore.NewCore(fileEncoder(c.FormatJson), zapcore.AddSync(w), enab))
		}
		add(app+".log", level)
		if c.ErrorFile {
			add(app+"_error.log", zap.ErrorLevel)
		}
	}

	logger := zap.New(zapcore.NewTee(cores...),
		zap.AddCaller(),
		zap.AddStacktrace(zap.PanicLevel),
		zap.WrapCore(func(core zapcore.Core) zapcore.Core {
			return zapcore.NewSamplerWithOptions(core, sampleTick, sampleFirst, sampleThereafter)
		}),
	)
	return logger, closers
}

func rotating(c *conf.Logger, filename string) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    int(c.Rotate.MaxSizeMB),
		MaxBackups: int(c.Rotate.MaxBackups),
		MaxAge:     int(c.Rotate.MaxAgeDays),
		Compress:   c.Rotate.Compress,
		LocalTime:  c.Rotate.LocalTime,
	}
}

func fileEncoder(json bool) zapcore.Encoder {
	if json {
		return zapcore.NewJSONEncoder(encoderConfig(false))
	}
	return zapcore.NewConsoleEncoder(encoderConfig(false))
}

func encoderConfig(console bool) zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.ConsoleSeparator = " "
	cfg.EncodeTime = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString("[" + t.Format(timeLayout) + "]")
	}
	if console {
		cfg.EncodeLevel = func(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
			s := styles[l]
			enc.AppendString(fmt.Sprintf("[%s%s\x1b[0m]", s.color, s.name))
		}
		cfg.EncodeCaller = zapcore.FullCallerEncoder
		return cfg
	}
	cfg.EncodeLevel = func(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString("[" + styles[l].name + "]")
	}
	cfg.EncodeCaller = func(c zapcore.EntryCaller, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString("[" + c.FullPath() + "]")
	}
	return cfg
}
