package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix 环境变量前缀, 层级之间用双下划线分隔
// 例如 FOODDASH_EXPORT__SQLITE_PATH -> export.sqlite_path
const EnvPrefix = "FOODDASH_"

// Config 结构体定义了应用程序的配置结构
type Config struct {
	DataDir string  `koanf:"data_dir"` // 原始数据文件目录
	Sources Sources `koanf:"sources"`  // 每个数据集对应的文件名

	Log struct {
		Name    string `koanf:"name"`     // 日志文件路径, 为空时只输出到stderr
		Level   string `koanf:"level"`    // debug/info/warning/error
		MaxSize string `koanf:"max_size"` // 轮转阈值, 例如 "10 * 1024 * 1024"
	} `koanf:"log"`

	Years struct {
		From int `koanf:"from"` // 年份滑块默认起点
		To   int `koanf:"to"`   // 年份滑块默认终点
	} `koanf:"years"`

	Export struct {
		XLSXPath    string `koanf:"xlsx_path"`
		SQLitePath  string `koanf:"sqlite_path"`
		PostgresDSN string `koanf:"postgres_dsn"`
		CSVDir      string `koanf:"csv_dir"`
		ChartsDir   string `koanf:"charts_dir"`
	} `koanf:"export"`

	Metrics struct {
		Textfile string `koanf:"textfile"` // node_exporter textfile 路径
	} `koanf:"metrics"`

	Watch struct {
		Debounce time.Duration `koanf:"debounce"` // 文件变化后等待多久再重建
		Snapshot string        `koanf:"snapshot"` // cron 表达式, 定时导出快照
		PIDFile  string        `koanf:"pid_file"` // 写入进程号, 供 reload 发送 SIGHUP
		Listen   string        `koanf:"listen"`   // 日志和指标的HTTP地址, 为空时不启动
	} `koanf:"watch"`
}

// Sources 数据集文件名
type Sources struct {
	Dairy   string `koanf:"dairy"`
	Eggs    string `koanf:"eggs"`
	Produce string `koanf:"produce"`
	Grains  string `koanf:"grains"`
}

var (
	once     sync.Once
	instance *Config
	loadErr  error
)

// LoadConfig 只加载一次配置, 之后返回同一个实例
func LoadConfig(folder, file string) (*Config, error) {
	once.Do(func() {
		instance, loadErr = Load(filepath.Join(folder, file))
	})
	return instance, loadErr
}

// Load 按 默认值 < YAML文件 < .env < 环境变量 的顺序加载配置
// path 指向的文件不存在时只使用默认值和环境变量
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		content, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
			}
		case os.IsNotExist(err):
		default:
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		// .env 与配置文件放在同一目录, 不覆盖已经存在的环境变量
		dotenv := filepath.Join(filepath.Dir(path), ".env")
		if _, err := os.Stat(dotenv); err == nil {
			if err := godotenv.Load(dotenv); err != nil {
				return nil, fmt.Errorf("failed to load %s: %w", dotenv, err)
			}
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// envKey FOODDASH_LOG__MAX_SIZE -> log.max_size
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

func applyDefaults(cfg *Config) {
	if cfg.DataDir == "" {
		cfg.DataDir = "./data"
	}
	if cfg.Sources.Dairy == "" {
		cfg.Sources.Dairy = "dymfg.csv"
	}
	if cfg.Sources.Eggs == "" {
		cfg.Sources.Eggs = "eggs.csv"
	}
	if cfg.Sources.Produce == "" {
		cfg.Sources.Produce = "fruitveg.csv"
	}
	if cfg.Sources.Grains == "" {
		cfg.Sources.Grains = "grains.csv"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.MaxSize == "" {
		cfg.Log.MaxSize = "10 * 1024 * 1024"
	}
	if cfg.Years.From == 0 {
		cfg.Years.From = 1999
	}
	if cfg.Years.To == 0 {
		cfg.Years.To = 2019
	}
	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = 2 * time.Second
	}
}

// Validate 检查配置是否可用
func (c *Config) Validate() error {
	var errs []string
	if strings.TrimSpace(c.DataDir) == "" {
		errs = append(errs, "data_dir is required")
	}
	switch c.Log.Level {
	case "debug", "info", "warning", "error":
	default:
		errs = append(errs, fmt.Sprintf("unknown log level %q", c.Log.Level))
	}
	if c.Years.From > c.Years.To {
		errs = append(errs, fmt.Sprintf("years.from (%d) is after years.to (%d)", c.Years.From, c.Years.To))
	}
	if c.Watch.Debounce < 0 {
		errs = append(errs, "watch.debounce must not be negative")
	}
	return combineErrors(errs)
}

// SourcePath 返回数据集文件的完整路径
func (c *Config) SourcePath(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.DataDir, name)
}

func combineErrors(errs []string) error {
	if len(errs) == 0 {
		return nil
	}
	msg := "invalid configuration:"
	for _, e := range errs {
		msg = fmt.Sprintf("%s\n- %s", msg, e)
	}
	return fmt.Errorf("%s", msg)
}
