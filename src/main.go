package main

import (
	"fmt"
	"os"

	"FoodDashboard/src/config"
	"FoodDashboard/src/metrics"
	"FoodDashboard/src/registry"
	"FoodDashboard/src/storage"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configFolder string
	configFile   string
	outputJSON   bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "fooddash",
	Short: "USDA per-capita food consumption dashboard data",
	Long: `fooddash loads the USDA ERS per-capita availability extracts, cleans and
classifies them into the dairy, eggs, produce and grains datasets, and serves
the label lists, queries, charts and exports the dashboard is built from.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFolder, "config-dir", "./config", "directory holding the config file and .env")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "config.yaml", "config file name")
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "output results as JSON")
}

// app 一次命令执行需要的依赖
type app struct {
	cfg     *config.Config
	logger  *storage.Logger
	metrics *metrics.Pipeline
}

func newApp() (*app, error) {
	cfg, err := config.LoadConfig(configFolder, configFile)
	if err != nil {
		return nil, err
	}

	// 初始化日志系统
	logger, err := storage.NewLogger(cfg.Log.Name, cfg.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return &app{cfg: cfg, logger: logger, metrics: metrics.Default()}, nil
}

// build 构建数据集并写出指标
func (a *app) build() (*registry.Registry, error) {
	r, err := registry.Build(registry.Sources(a.cfg), a.logger, a.metrics)
	if werr := a.metrics.WriteTextfile(a.cfg.Metrics.Textfile); werr != nil {
		a.logger.Warning("failed to write metrics textfile", zap.String("path", a.cfg.Metrics.Textfile), zap.Error(werr))
	}
	return r, err
}

func (a *app) close() {
	a.logger.Close()
}

// withRegistry 加载配置、构建数据集后执行fn
func withRegistry(fn func(a *app, r *registry.Registry) error) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	r, err := a.build()
	if err != nil {
		return err
	}
	return fn(a, r)
}
