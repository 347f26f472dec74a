package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"FoodDashboard/src/datasource/file"
	"FoodDashboard/src/registry"
	"FoodDashboard/src/storage"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// rotateSpec 检查日志文件大小的间隔
const rotateSpec = "@every 1m"

func init() {
	rootCmd.AddCommand(watchCmd)
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Rebuild the datasets whenever a source extract changes",
	Long: `Build the datasets, then keep watching the data directory and rebuild when a
source extract is replaced. A failed rebuild keeps the previous datasets.

When watch.snapshot is set, every export target is refreshed on that cron
schedule. SIGHUP reopens the log file and forces a rebuild; SIGINT and
SIGTERM stop the process.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return runWatch(ctx, a)
	},
}

// watcher 监控模式的运行状态
type watcher struct {
	app    *app
	holder *registry.Holder

	// mu 保证重建依次进行, 较早开始的构建不会覆盖较新的结果
	mu sync.Mutex
}

// rebuild 重建成功才替换当前数据
func (w *watcher) rebuild(reason string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	r, err := w.app.build()
	if err != nil {
		w.app.logger.Error("rebuild failed, keeping previous datasets", zap.String("reason", reason), zap.Error(err))
		return
	}
	w.holder.Store(r)
	w.app.logger.Info("datasets rebuilt", zap.String("reason", reason))
}

// snapshot 把当前数据导出到全部配置的目标
func (w *watcher) snapshot() {
	r := w.holder.Load()
	if r == nil {
		return
	}
	if err := runExport(w.app, r, w.app.exportTargets()); err != nil {
		w.app.logger.Error("snapshot export failed", zap.Error(err))
	}
}

func runWatch(ctx context.Context, a *app) error {
	r, err := a.build()
	if err != nil {
		return err
	}
	w := &watcher{app: a, holder: registry.NewHolder(r)}

	sources := registry.Sources(a.cfg)
	files := make([]string, 0, len(sources))
	for _, path := range sources {
		files = append(files, path)
	}
	monitor, err := file.NewFileMonitor(a.cfg.DataDir, files, a.cfg.Watch.Debounce)
	if err != nil {
		return err
	}

	if a.cfg.Watch.PIDFile != "" {
		if err := os.WriteFile(a.cfg.Watch.PIDFile, []byte(strconv.Itoa(os.Getpid())), 0644); err != nil {
			return fmt.Errorf("write pid file: %w", err)
		}
		defer os.Remove(a.cfg.Watch.PIDFile)
	}

	// 设置定时任务
	c := cron.New()
	if a.cfg.Log.Name != "" {
		err = c.AddFunc(rotateSpec, func() {
			if rotated, err := a.logger.CheckRotate(a.cfg.Log.MaxSize); err != nil {
				a.logger.Error("log rotation failed", zap.Error(err))
			} else if rotated {
				a.logger.Info("log file rotated")
			}
		})
		if err != nil {
			return fmt.Errorf("schedule log rotation: %w", err)
		}
	}
	if a.cfg.Watch.Snapshot != "" {
		if err := c.AddFunc(a.cfg.Watch.Snapshot, w.snapshot); err != nil {
			return fmt.Errorf("invalid snapshot schedule %q: %w", a.cfg.Watch.Snapshot, err)
		}
	}
	c.Start()
	defer c.Stop()

	if a.cfg.Watch.Listen != "" {
		srv := startWebUI(a.cfg.Watch.Listen, a)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	go waitForReload(ctx, a, w)

	a.logger.Info("watching data directory",
		zap.String("dir", a.cfg.DataDir),
		zap.Strings("files", files),
		zap.Duration("debounce", a.cfg.Watch.Debounce),
		zap.String("snapshot", a.cfg.Watch.Snapshot))

	err = monitor.Watch(ctx, func(changed []string) {
		w.rebuild(fmt.Sprintf("changed: %v", changed))
	})
	a.logger.Info("watch stopped")
	return err
}

// waitForReload 收到SIGHUP时重新打开日志文件并重建
func waitForReload(ctx context.Context, a *app, w *watcher) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGHUP)
	defer signal.Stop(sigChan)

	for {
		select {
		case <-ctx.Done():
			return
		case sig := <-sigChan:
			a.logger.Info("received signal", zap.String("signal", sig.String()))
			if a.cfg.Log.Name != "" {
				if err := a.logger.Reopen(a.cfg.Log.Name); err != nil {
					a.logger.Error("reopen log file failed", zap.Error(err))
				}
			}
			w.rebuild("reload")
		}
	}
}

// startWebUI 启动一个简单的HTTP服务:
// /logs 实时输出日志, /metrics 输出构建指标
func startWebUI(addr string, a *app) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/logs", logsHandler(a.logger))
	mux.Handle("/metrics", promhttp.HandlerFor(a.metrics.Gatherer(), promhttp.HandlerOpts{}))

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("http server stopped", zap.String("addr", addr), zap.Error(err))
		}
	}()
	return srv
}

func logsHandler(logger *storage.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")

		// 创建日志订阅通道
		logChan := logger.Subscribe()
		defer logger.Unsubscribe(logChan)
		flusher, _ := w.(http.Flusher)
		if flusher != nil {
			w.WriteHeader(http.StatusOK)
			flusher.Flush()
		}
		for {
			select {
			case msg := <-logChan:
				if _, err := fmt.Fprintln(w, msg); err != nil {
					// 客户端断开
					return
				}
				if flusher != nil {
					flusher.Flush()
				}
			case <-r.Context().Done():
				return
			}
		}
	}
}
