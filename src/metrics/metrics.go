package metrics

import (
	"sync"
	"time"

	"FoodDashboard/src/datasource/file"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	defaultPipeline *Pipeline
	defaultOnce     sync.Once
)

// 丢弃原因
const (
	ReasonMissing     = "missing"
	ReasonPlaceholder = "placeholder"
	ReasonKeyword     = "keyword"
)

// Pipeline 数据构建过程的指标
//
// 所有指标都以 fooddash_ 为前缀:
//   - fooddash_rows_loaded_total{dataset} 从数据文件读入的行数
//   - fooddash_rows_dropped_total{dataset,reason} 被丢弃的行数
//   - fooddash_rows_published{dataset} 最近一次构建后数据集的行数
//   - fooddash_builds_total{result} 构建次数
//   - fooddash_build_duration_seconds 构建耗时
//   - fooddash_last_build_timestamp_seconds 最近一次成功构建的时间
type Pipeline struct {
	registry *prometheus.Registry

	RowsLoaded    *prometheus.CounterVec
	RowsDropped   *prometheus.CounterVec
	RowsPublished *prometheus.GaugeVec
	Builds        *prometheus.CounterVec
	BuildDuration prometheus.Histogram
	LastBuild     prometheus.Gauge
}

// Default 进程内共享的指标集合
func Default() *Pipeline {
	defaultOnce.Do(func() {
		defaultPipeline = New()
	})
	return defaultPipeline
}

// New 创建一组注册在独立Registry上的指标, 不影响全局默认Registry
func New() *Pipeline {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Pipeline{
		registry: reg,

		RowsLoaded: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fooddash_rows_loaded_total",
				Help: "Total number of data rows read from source extracts",
			},
			[]string{"dataset"},
		),

		RowsDropped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fooddash_rows_dropped_total",
				Help: "Total number of rows dropped while cleaning and classifying",
			},
			[]string{"dataset", "reason"}, // missing, placeholder, keyword
		),

		RowsPublished: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "fooddash_rows_published",
				Help: "Number of rows in each dataset after the last build",
			},
			[]string{"dataset"},
		),

		Builds: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fooddash_builds_total",
				Help: "Total number of registry builds",
			},
			[]string{"result"}, // success, error
		),

		BuildDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "fooddash_build_duration_seconds",
				Help:    "Duration of registry builds in seconds",
				Buckets: prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~2.5s
			},
		),

		LastBuild: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "fooddash_last_build_timestamp_seconds",
				Help: "Unix time of the last successful registry build",
			},
		),
	}
}

// ObserveLoad 记录一个数据文件的加载结果
func (p *Pipeline) ObserveLoad(dataset string, stats file.LoadStats) {
	p.RowsLoaded.WithLabelValues(dataset).Add(float64(stats.Read))
	p.RowsDropped.WithLabelValues(dataset, ReasonMissing).Add(float64(stats.Missing))
	p.RowsDropped.WithLabelValues(dataset, ReasonPlaceholder).Add(float64(stats.Placeholder))
}

// ObserveProcess 记录关键字过滤丢弃的行数和最终行数
func (p *Pipeline) ObserveProcess(dataset string, filtered, rows int) {
	p.RowsDropped.WithLabelValues(dataset, ReasonKeyword).Add(float64(filtered))
	p.RowsPublished.WithLabelValues(dataset).Set(float64(rows))
}

// ObserveBuild 记录一次完整构建
func (p *Pipeline) ObserveBuild(elapsed time.Duration, err error) {
	p.BuildDuration.Observe(elapsed.Seconds())
	if err != nil {
		p.Builds.WithLabelValues("error").Inc()
		return
	}
	p.Builds.WithLabelValues("success").Inc()
	p.LastBuild.SetToCurrentTime()
}

// Gatherer 供测试和导出使用
func (p *Pipeline) Gatherer() prometheus.Gatherer {
	return p.registry
}

// WriteTextfile 以node_exporter textfile格式写出全部指标
// path为空时不做任何事
func (p *Pipeline) WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, p.registry)
}
