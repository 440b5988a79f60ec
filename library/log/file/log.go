package file

import (
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	timeFormat        = "2006/01/02 15:04:05.000"
	defaultMaxSize    = 10 // 10 MB
	defaultMaxAge     = 7  // 7 days
	defaultMaxBackups = 3
)

// Log 单个文件的日志, 对局日志使用
type Log struct {
	logger *zap.Logger
	writer *lumberjack.Logger
}

// NewFileLog 创建文件日志, filename 所在目录不存在时自动创建
func NewFileLog(filename string) *Log {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeLevel = nil
	encoderCfg.EncodeCaller = nil
	encoderCfg.EncodeTime = customTimeEncoder
	encoderCfg.ConsoleSeparator = " "
	lj := &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    defaultMaxSize,
		MaxAge:     defaultMaxAge,
		MaxBackups: defaultMaxBackups,
		LocalTime:  true,
		Compress:   true,
	}
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderCfg), zapcore.AddSync(lj), zapcore.InfoLevel)
	return &Log{
		logger: zap.New(core),
		writer: lj,
	}
}

func customTimeEncoder(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString("[" + t.Format(timeFormat) + "]")
}

// Sync 确保日志被写入
func (l *Log) Sync() error {
	return l.logger.Sync()
}

// Close 刷盘并关闭文件
func (l *Log) Close() error {
	_ = l.logger.Sync()
	return l.writer.Close()
}

// WriteLog 写入日志
func (l *Log) WriteLog(msg string, args ...interface{}) {
	l.logger.Sugar().Infof(msg, args...)
}
