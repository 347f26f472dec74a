package registry

import (
	"errors"
	"fmt"
	"time"

	"FoodDashboard/src/config"
	"FoodDashboard/src/datasource/file"
	"FoodDashboard/src/processor"
	"FoodDashboard/src/storage"
	"FoodDashboard/src/utils"

	"github.com/go-gota/gota/dataframe"
	"go.uber.org/zap"
)

// Observation 清洗后数据集中的一行
// Aggregation/Category/Type 只有果蔬数据有值
type Observation struct {
	Commodity   string  `json:"commodity"`
	Attribute   string  `json:"attribute"`
	Year        int     `json:"year"`
	Value       float64 `json:"value"`
	Label       string  `json:"label"`
	Aggregation string  `json:"aggregation,omitempty"`
	Category    string  `json:"category,omitempty"`
	Type        string  `json:"type,omitempty"`
}

// YearRange 闭区间
type YearRange struct {
	Min int
	Max int
}

// Contains 年份是否在区间内
func (r YearRange) Contains(year int) bool {
	return year >= r.Min && year <= r.Max
}

// Recorder 接收构建过程的统计, 由metrics包实现
type Recorder interface {
	ObserveLoad(dataset string, stats file.LoadStats)
	ObserveProcess(dataset string, filtered, rows int)
	ObserveBuild(elapsed time.Duration, err error)
}

type nopRecorder struct{}

func (nopRecorder) ObserveLoad(string, file.LoadStats) {}
func (nopRecorder) ObserveProcess(string, int, int)    {}
func (nopRecorder) ObserveBuild(time.Duration, error)  {}

type table struct {
	frame        dataframe.DataFrame
	observations []Observation
	labels       []string
	aggregations []string
	categories   []string
	types        []string
}

// Registry 每个类别清洗后的数据表, 构建完成后只读, 可以在多个goroutine之间共享
type Registry struct {
	tables  map[Category]*table
	builtAt time.Time
}

// Sources 根据配置得到每个类别的数据文件路径
func Sources(cfg *config.Config) map[Category]string {
	return map[Category]string{
		Dairy:   cfg.SourcePath(cfg.Sources.Dairy),
		Eggs:    cfg.SourcePath(cfg.Sources.Eggs),
		Produce: cfg.SourcePath(cfg.Sources.Produce),
		Grains:  cfg.SourcePath(cfg.Sources.Grains),
	}
}

// Build 加载并清洗所有已开放类别的数据
// 任何一个类别失败都返回 *BuildError
func Build(paths map[Category]string, logger *storage.Logger, rec Recorder) (*Registry, error) {
	if logger == nil {
		logger = storage.NewNopLogger()
	}
	if rec == nil {
		rec = nopRecorder{}
	}

	start := time.Now()
	r, err := build(paths, logger, rec)
	elapsed := time.Since(start)
	rec.ObserveBuild(elapsed, err)
	if err != nil {
		logger.Error("registry build failed", zap.Error(err), zap.Duration("elapsed", elapsed))
		return nil, err
	}
	logger.Info("registry built", zap.Duration("elapsed", elapsed))
	return r, nil
}

func build(paths map[Category]string, logger *storage.Logger, rec Recorder) (*Registry, error) {
	r := &Registry{tables: make(map[Category]*table), builtAt: time.Now()}
	for _, c := range Categories {
		pipeline, ok := pipelines[c]
		if !ok {
			continue
		}
		path, ok := paths[c]
		if !ok || path == "" {
			return nil, &BuildError{Category: c, Err: errors.New("no source file configured")}
		}

		df, stats, err := file.Load(path)
		if err != nil {
			return nil, &BuildError{Category: c, Err: err}
		}
		rec.ObserveLoad(pipeline.Name, stats)
		logger.Info("source loaded",
			zap.String("dataset", pipeline.Name),
			zap.String("path", path),
			zap.Int("read", stats.Read),
			zap.Int("missing", stats.Missing),
			zap.Int("placeholder", stats.Placeholder),
			zap.Int("kept", stats.Kept))

		res, err := pipeline.Process(df, logger)
		if err != nil {
			return nil, &BuildError{Category: c, Err: err}
		}
		rec.ObserveProcess(pipeline.Name, res.Filtered, res.Frame.Nrow())
		if res.Frame.Nrow() == 0 {
			logger.Warning("dataset is empty", zap.String("dataset", pipeline.Name))
		}

		t, err := newTable(res.Frame)
		if err != nil {
			return nil, &BuildError{Category: c, Err: err}
		}
		r.tables[c] = t
	}
	return r, nil
}

func newTable(df dataframe.DataFrame) (*table, error) {
	n := df.Nrow()
	years, err := df.Col(file.ColYear).Int()
	if err != nil {
		return nil, fmt.Errorf("year column: %w", err)
	}
	values := df.Col(file.ColValue).Float()
	commodities := df.Col(file.ColCommodity).Records()
	attributes := df.Col(file.ColAttribute).Records()
	labels := df.Col(processor.ColLabel).Records()
	aggregations := optionalColumn(df, processor.ColAggregation)
	categories := optionalColumn(df, processor.ColCategory)
	types := optionalColumn(df, processor.ColType)

	obs := make([]Observation, n)
	for i := 0; i < n; i++ {
		obs[i] = Observation{
			Commodity:   commodities[i],
			Attribute:   attributes[i],
			Year:        years[i],
			Value:       values[i],
			Label:       labels[i],
			Aggregation: aggregations[i],
			Category:    categories[i],
			Type:        types[i],
		}
	}

	return &table{
		frame:        df,
		observations: obs,
		labels:       utils.UniqueInOrder(labels),
		aggregations: utils.UniqueInOrder(aggregations),
		categories:   utils.UniqueInOrder(categories),
		types:        utils.UniqueInOrder(types),
	}, nil
}

// optionalColumn 不存在的列按空字符串处理
func optionalColumn(df dataframe.DataFrame, name string) []string {
	if utils.HasColumn(df, name) {
		return df.Col(name).Records()
	}
	return make([]string, df.Nrow())
}

// BuiltAt 构建完成时间
func (r *Registry) BuiltAt() time.Time { return r.builtAt }

// Table 返回某个类别的数据表副本, 未开放的类别返回空表
func (r *Registry) Table(c Category) dataframe.DataFrame {
	t, ok := r.tables[c]
	if !ok {
		return dataframe.DataFrame{}
	}
	return t.frame.Copy()
}

// Observations 某个类别的全部观测, 返回副本
func (r *Registry) Observations(c Category) []Observation {
	t, ok := r.tables[c]
	if !ok {
		return []Observation{}
	}
	return append([]Observation(nil), t.observations...)
}

// Labels 产品下拉框的选项, 按在数据表中首次出现的顺序
func (r *Registry) Labels(c Category) []string {
	t, ok := r.tables[c]
	if !ok {
		return []string{}
	}
	return clone(t.labels)
}

// ViewLabels 切换果蔬视图时重新填充产品下拉框
func (r *Registry) ViewLabels(v View) []string {
	t, ok := r.tables[Produce]
	if !ok {
		return []string{}
	}
	if v == ViewNone {
		return clone(t.labels)
	}
	var labels []string
	for _, o := range t.observations {
		if v.match(o) {
			labels = append(labels, o.Label)
		}
	}
	return utils.UniqueInOrder(labels)
}

// Aggregations 果蔬数据中出现过的汇总维度取值
func (r *Registry) Aggregations() []string { return r.dimension(func(t *table) []string { return t.aggregations }) }

// Categories 果蔬数据中出现过的类别维度取值
func (r *Registry) Categories() []string { return r.dimension(func(t *table) []string { return t.categories }) }

// Types 果蔬数据中出现过的类型维度取值
func (r *Registry) Types() []string { return r.dimension(func(t *table) []string { return t.types }) }

func (r *Registry) dimension(get func(*table) []string) []string {
	t, ok := r.tables[Produce]
	if !ok {
		return []string{}
	}
	return clone(get(t))
}

// YearBounds 数据集的最早和最晚年份, 数据集为空时ok为false
func (r *Registry) YearBounds(c Category) (YearRange, bool) {
	t, ok := r.tables[c]
	if !ok || len(t.observations) == 0 {
		return YearRange{}, false
	}
	bounds := YearRange{Min: t.observations[0].Year, Max: t.observations[0].Year}
	for _, o := range t.observations[1:] {
		bounds.Min = min(bounds.Min, o.Year)
		bounds.Max = max(bounds.Max, o.Year)
	}
	return bounds, true
}

// SliderBounds 年份滑块的范围, 以乳制品数据为准
func (r *Registry) SliderBounds() (YearRange, bool) {
	return r.YearBounds(Dairy)
}

// Query 按年份区间和选中的产品筛选观测
// view 只对果蔬数据生效, 其它类别忽略
// 没有选中产品或区间为空时返回空切片, 不视为错误
func (r *Registry) Query(c Category, years YearRange, labels []string, view View) []Observation {
	out := []Observation{}
	t, ok := r.tables[c]
	if !ok || len(labels) == 0 || years.Min > years.Max {
		return out
	}
	if c != Produce {
		view = ViewNone
	}

	selected := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		selected[l] = struct{}{}
	}
	for _, o := range t.observations {
		if !years.Contains(o.Year) {
			continue
		}
		if _, ok := selected[o.Label]; !ok {
			continue
		}
		if !view.match(o) {
			continue
		}
		out = append(out, o)
	}
	return out
}

func clone(s []string) []string {
	return append([]string{}, s...)
}
