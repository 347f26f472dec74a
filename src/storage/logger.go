package storage

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogLevel 定义日志级别类型
type LogLevel int

// 日志级别常量定义
const (
	DEBUG   LogLevel = iota // 调试信息
	INFO                    // 普通信息
	WARNING                 // 警告信息
	ERROR                   // 错误信息
)

// Logger 日志记录器, 底层使用zap
// 同时写入日志文件(可选)和stderr, 并把每条日志推送给订阅者
type Logger struct {
	zap *zap.Logger
	out *output
}

// output 由Logger及其With派生的子记录器共享
type output struct {
	level       zap.AtomicLevel
	filename    string
	file        *os.File
	mu          sync.Mutex
	subscribers []chan string
}

// NewLogger 创建新的日志记录器
// filename 为空时只输出到stderr
func NewLogger(filename string, level string) (*Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}

	out := &output{
		level:    zap.NewAtomicLevelAt(lvl.zapLevel()),
		filename: filename,
	}
	if filename != "" {
		file, err := os.OpenFile(filename, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("open log file %s: %w", filename, err)
		}
		out.file = file
	}
	return &Logger{zap: zap.New(out.newCore()), out: out}, nil
}

// NewNopLogger 不输出任何内容, 测试用
func NewNopLogger() *Logger {
	return &Logger{
		zap: zap.NewNop(),
		out: &output{level: zap.NewAtomicLevelAt(zapcore.DebugLevel)},
	}
}

func (o *output) newCore() zapcore.Core {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(encoderCfg), zapcore.Lock(os.Stderr), o.level),
		zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), zapcore.AddSync(subscriberSink{o}), o.level),
		zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), zapcore.AddSync(fileSink{o}), o.level),
	}
	return zapcore.NewTee(cores...)
}

// fileSink 通过output间接写文件, Reopen之后不需要重建core
type fileSink struct{ o *output }

func (s fileSink) Write(p []byte) (int, error) {
	s.o.mu.Lock()
	defer s.o.mu.Unlock()
	if s.o.file == nil {
		return len(p), nil
	}
	return s.o.file.Write(p)
}

// subscriberSink 通知所有订阅者, 通道已满则跳过
type subscriberSink struct{ o *output }

func (s subscriberSink) Write(p []byte) (int, error) {
	s.o.mu.Lock()
	defer s.o.mu.Unlock()
	if len(s.o.subscribers) == 0 {
		return len(p), nil
	}
	entry := strings.TrimRight(string(p), "\n")
	for _, ch := range s.o.subscribers {
		select {
		case ch <- entry:
		default:
		}
	}
	return len(p), nil
}

// Zap 返回底层的 zap.Logger
func (l *Logger) Zap() *zap.Logger { return l.zap }

// With 返回带固定字段的子日志记录器, 共享文件和订阅者
func (l *Logger) With(fields ...zap.Field) *Logger {
	return &Logger{zap: l.zap.With(fields...), out: l.out}
}

// Close 刷新并关闭日志文件
func (l *Logger) Close() error {
	_ = l.zap.Sync()

	l.out.mu.Lock()
	defer l.out.mu.Unlock()
	if l.out.file != nil {
		err := l.out.file.Close()
		l.out.file = nil
		return err
	}
	return nil
}

// Reopen 重新打开一个文件
func (l *Logger) Reopen(filename string) error {
	l.out.mu.Lock()
	defer l.out.mu.Unlock()

	if l.out.file != nil {
		_ = l.out.file.Close()
	}
	file, err := os.OpenFile(filename, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		l.out.file = nil
		return err
	}
	l.out.file = file
	l.out.filename = filename
	return nil
}

// CheckRotate 日志文件超过 maxSize 时轮转
// maxSize 为乘法表达式, 例如 "10 * 1024 * 1024"
func (l *Logger) CheckRotate(maxSize string) (bool, error) {
	limit, err := ParseSize(maxSize)
	if err != nil {
		return false, err
	}

	l.out.mu.Lock()
	if l.out.file == nil {
		l.out.mu.Unlock()
		return false, nil
	}
	info, err := l.out.file.Stat()
	l.out.mu.Unlock()
	if err != nil {
		return false, err
	}
	if info.Size() <= limit {
		return false, nil
	}
	return true, l.rotate()
}

func (l *Logger) rotate() error {
	l.out.mu.Lock()
	defer l.out.mu.Unlock()

	if l.out.file != nil {
		_ = l.out.file.Close()
		l.out.file = nil
	}
	rotated := fmt.Sprintf("%s.%s", l.out.filename, time.Now().Format("20060102150405"))
	renameErr := os.Rename(l.out.filename, rotated)

	file, err := os.OpenFile(l.out.filename, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	l.out.file = file
	return renameErr
}

// Subscribe 订阅日志消息, 每条消息是一行JSON
func (l *Logger) Subscribe() <-chan string {
	l.out.mu.Lock()
	defer l.out.mu.Unlock()

	ch := make(chan string, 100)
	l.out.subscribers = append(l.out.subscribers, ch)
	return ch
}

// Unsubscribe 取消订阅, 之后ch不再收到消息
func (l *Logger) Unsubscribe(ch <-chan string) {
	l.out.mu.Lock()
	defer l.out.mu.Unlock()

	for i, sub := range l.out.subscribers {
		if sub == ch {
			l.out.subscribers = append(l.out.subscribers[:i], l.out.subscribers[i+1:]...)
			return
		}
	}
}

// SetLevel 运行时调整日志级别
func (l *Logger) SetLevel(level LogLevel) { l.out.level.SetLevel(level.zapLevel()) }

// String 实现LogLevel的String方法
func (lv LogLevel) String() string {
	switch lv {
	case DEBUG:
		return "debug"
	case INFO:
		return "info"
	case WARNING:
		return "warning"
	case ERROR:
		return "error"
	default:
		return "unknown"
	}
}

func (lv LogLevel) zapLevel() zapcore.Level {
	switch lv {
	case DEBUG:
		return zapcore.DebugLevel
	case WARNING:
		return zapcore.WarnLevel
	case ERROR:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// ParseLevel 解析配置中的日志级别
func ParseLevel(s string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DEBUG, nil
	case "", "info":
		return INFO, nil
	case "warning", "warn":
		return WARNING, nil
	case "error":
		return ERROR, nil
	}
	return INFO, fmt.Errorf("unknown log level %q", s)
}

// ParseSize 计算 "10 * 1024 * 1024" 这样的乘法表达式
func ParseSize(expr string) (int64, error) {
	var result int64 = 1
	for _, part := range strings.Split(expr, "*") {
		n, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid size expression %q: %w", expr, err)
		}
		result *= n
	}
	return result, nil
}

// 以下是快捷日志方法
func (l *Logger) Debug(msg string, fields ...zap.Field)   { l.zap.Debug(msg, fields...) }
func (l *Logger) Info(msg string, fields ...zap.Field)    { l.zap.Info(msg, fields...) }
func (l *Logger) Warning(msg string, fields ...zap.Field) { l.zap.Warn(msg, fields...) }
func (l *Logger) Error(msg string, fields ...zap.Field)   { l.zap.Error(msg, fields...) }
