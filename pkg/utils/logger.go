package utils

import (
	"os"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogConfig - настройки логирования
type LogConfig struct {
	Level       string // debug, info, warn, error, fatal
	Format      string // json или text
	Output      string // stdout, stderr или путь к файлу
	Development bool   // stacktrace на warn и человекочитаемые caller'ы
}

// Logger - обёртка над zap.Logger с доменными хелперами
//
// Встраивает *zap.Logger, поэтому Info/Warn/Error с zap.Field доступны напрямую.
// Для printf-стиля используется Sugar().
type Logger struct {
	*zap.Logger
	sugar *zap.SugaredLogger
}

var (
	globalLogger *Logger
	globalMu     sync.RWMutex
)

// InitLogger создаёт logger по конфигурации
//
// Пустые поля получают значения по умолчанию: info, json, stderr.
// Если файл вывода не открывается, logger пишет в stderr.
func InitLogger(cfg LogConfig) *Logger {
	encoderCfg := zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "message",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.MillisDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	var encoder zapcore.Encoder
	if strings.ToLower(cfg.Format) == "text" {
		encoderCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderCfg)
	} else {
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	}

	core := zapcore.NewCore(encoder, openOutput(cfg.Output), zap.NewAtomicLevelAt(parseLevel(cfg.Level)))

	opts := []zap.Option{zap.AddCaller()}
	if cfg.Development {
		opts = append(opts, zap.Development(), zap.AddStacktrace(zapcore.WarnLevel))
	} else {
		opts = append(opts, zap.AddStacktrace(zapcore.ErrorLevel))
	}

	zl := zap.New(core, opts...)
	return &Logger{
		Logger: zl,
		sugar:  zl.Sugar(),
	}
}

// openOutput открывает приёмник логов
func openOutput(output string) zapcore.WriteSyncer {
	switch strings.ToLower(output) {
	case "", "stderr":
		return zapcore.Lock(os.Stderr)
	case "stdout":
		return zapcore.Lock(os.Stdout)
	}

	f, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return zapcore.Lock(os.Stderr)
	}
	return zapcore.AddSync(f)
}

// parseLevel переводит строку в уровень zap (по умолчанию info)
func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	case "fatal":
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

// ============ Глобальный логгер ============

// GetGlobalLogger возвращает глобальный logger, создавая его при первом обращении
func GetGlobalLogger() *Logger {
	globalMu.RLock()
	l := globalLogger
	globalMu.RUnlock()
	if l != nil {
		return l
	}

	globalMu.Lock()
	defer globalMu.Unlock()
	if globalLogger == nil {
		globalLogger = InitLogger(LogConfig{})
	}
	return globalLogger
}

// NewNopLogger возвращает logger, который ничего не пишет (тесты)
func NewNopLogger() *Logger {
	l := zap.NewNop()
	return &Logger{Logger: l, sugar: l.Sugar()}
}

// L - короткий алиас для GetGlobalLogger
func L() *Logger {
	return GetGlobalLogger()
}

// InitGlobalLogger создаёт logger и делает его глобальным
func InitGlobalLogger(cfg LogConfig) *Logger {
	l := InitLogger(cfg)
	SetGlobalLogger(l)
	return l
}

// SetGlobalLogger заменяет глобальный logger
func SetGlobalLogger(l *Logger) {
	globalMu.Lock()
	globalLogger = l
	globalMu.Unlock()
}

// ============ Методы Logger ============

// With возвращает дочерний logger с дополнительными полями
func (l *Logger) With(fields ...zap.Field) *Logger {
	child := l.Logger.With(fields...)
	return &Logger{
		Logger: child,
		sugar:  child.Sugar(),
	}
}

// WithComponent - дочерний logger для подсистемы (worker, api, hub)
func (l *Logger) WithComponent(name string) *Logger {
	return l.With(Component(name))
}

// WithExchange - дочерний logger для биржи
func (l *Logger) WithExchange(name string) *Logger {
	return l.With(Exchange(name))
}

// WithEndpoint - дочерний logger для endpoint'а биржевого API
func (l *Logger) WithEndpoint(endpoint string) *Logger {
	return l.With(Endpoint(endpoint))
}

// WithTask - дочерний logger для периодической задачи
func (l *Logger) WithTask(name string) *Logger {
	return l.With(Task(name))
}

// Sugar возвращает printf-style logger
func (l *Logger) Sugar() *zap.SugaredLogger {
	return l.sugar
}

// ============ Глобальные функции ============

func Debug(msg string, fields ...zap.Field) { L().Debug(msg, fields...) }
func Info(msg string, fields ...zap.Field) { L().Info(msg, fields...) }
func Warn(msg string, fields ...zap.Field) { L().Warn(msg, fields...) }
func Error(msg string, fields ...zap.Field) { L().Error(msg, fields...) }
func Fatal(msg string, fields ...zap.Field) { L().Fatal(msg, fields...) }

func Debugf(template string, args ...interface{}) { L().sugar.Debugf(template, args...) }
func Infof(template string, args ...interface{}) { L().sugar.Infof(template, args...) }
func Warnf(template string, args ...interface{}) { L().sugar.Warnf(template, args...) }
func Errorf(template string, args ...interface{}) { L().sugar.Errorf(template, args...) }

// ============ Доменные поля ============

func Exchange(name string) zap.Field { return zap.String("exchange", name) }
func Endpoint(endpoint string) zap.Field { return zap.String("endpoint", endpoint) }
func Task(name string) zap.Field { return zap.String("task", name) }
func Action(name string) zap.Field { return zap.String("action", name) }
func Amount(value string) zap.Field { return zap.String("amount", value) }
func Rate(name, value string) zap.Field { return zap.String(name, value) }
func Nonce(n uint64) zap.Field { return zap.Uint64("nonce", n) }
func Status(status string) zap.Field { return zap.String("status", status) }
func Latency(d time.Duration) zap.Field { return zap.Float64("latency_ms", float64(d.Microseconds())/1000) }
func RequestID(id string) zap.Field { return zap.String("request_id", id) }
func Component(name string) zap.Field { return zap.String("component", name) }

// Field - поле структурированного лога
type Field = zap.Field

// Переэкспорт базовых конструкторов, чтобы не импортировать zap в каждом пакете
var (
	String   = zap.String
	Int      = zap.Int
	Int64    = zap.Int64
	Float64  = zap.Float64
	Bool     = zap.Bool
	Duration = zap.Duration
	Time     = zap.Time
	Err      = zap.Error
	Any      = zap.Any
)
