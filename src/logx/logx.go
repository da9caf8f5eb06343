package logx

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Logger interface {
	Debug(args ...interface{})
	Debugf(template string, args ...interface{})
	Info(args ...interface{})
	Infof(template string, args ...interface{})
	Warn(args ...interface{})
	Warnf(template string, args ...interface{})
	Error(args ...interface{})
	Errorf(template string, args ...interface{})
	Named(name string) Logger
}

type Config struct {
	Level   string // debug/info/warn/error
	Dev     bool   // development encoder config
	Console bool   // console encoder to stdout instead of json to the writer
}

type Logx struct {
	sugar *zap.SugaredLogger
}

var loggerLevelMap = map[string]zapcore.Level{
	"debug":  zapcore.DebugLevel,
	"info":   zapcore.InfoLevel,
	"warn":   zapcore.WarnLevel,
	"error":  zapcore.ErrorLevel,
	"dpanic": zapcore.DPanicLevel,
	"panic":  zapcore.PanicLevel,
	"fatal":  zapcore.FatalLevel,
}

// unknown level names fall back to info
func GetLoggerLevelByString(lvl string) zapcore.Level {
	level, exist := loggerLevelMap[lvl]
	if !exist {
		return zapcore.InfoLevel
	}
	return level
}

func NewLogx(cfg Config, w io.Writer) *Logx {
	var logWriter zapcore.WriteSyncer
	if cfg.Console || w == nil {
		logWriter = zapcore.AddSync(os.Stdout)
	} else {
		logWriter = zapcore.AddSync(w)
	}

	var encoderCfg zapcore.EncoderConfig
	if cfg.Dev {
		encoderCfg = zap.NewDevelopmentEncoderConfig()
	} else {
		encoderCfg = zap.NewProductionEncoderConfig()
	}
	encoderCfg.LevelKey = "LEVEL"
	encoderCfg.CallerKey = "CALLER"
	encoderCfg.TimeKey = "TIME"
	encoderCfg.NameKey = "NAME"
	encoderCfg.MessageKey = "MESSAGE"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	if cfg.Console {
		encoder = zapcore.NewConsoleEncoder(encoderCfg)
	} else {
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	}

	core := zapcore.NewCore(encoder, logWriter, zap.NewAtomicLevelAt(GetLoggerLevelByString(cfg.Level)))
	// entries go through the wrapper methods, skip them in the caller field
	return &Logx{sugar: zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)).Sugar()}
}

// Nop discards everything, for tests and headless helpers.
func Nop() *Logx {
	return &Logx{sugar: zap.NewNop().Sugar()}
}

// wrap an existing zap logger (zaptest/observer in tests)
func FromZap(l *zap.Logger) *Logx {
	return &Logx{sugar: l.WithOptions(zap.AddCallerSkip(1)).Sugar()}
}

func (l *Logx) Named(name string) Logger {
	return &Logx{sugar: l.sugar.Named(name)}
}

func (l *Logx) Sync() error {
	return l.sugar.Sync()
}

func (l *Logx) Debug(args ...interface{}) {
	l.sugar.Debug(args...)
}

func (l *Logx) Debugf(template string, args ...interface{}) {
	l.sugar.Debugf(template, args...)
}

func (l *Logx) Info(args ...interface{}) {
	l.sugar.Info(args...)
}

func (l *Logx) Infof(template string, args ...interface{}) {
	l.sugar.Infof(template, args...)
}

func (l *Logx) Warn(args ...interface{}) {
	l.sugar.Warn(args...)
}

func (l *Logx) Warnf(template string, args ...interface{}) {
	l.sugar.Warnf(template, args...)
}

func (l *Logx) Error(args ...interface{}) {
	l.sugar.Error(args...)
}

func (l *Logx) Errorf(template string, args ...interface{}) {
	l.sugar.Errorf(template, args...)
}
