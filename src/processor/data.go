// data.go
package processor

import (
	"fmt"

	"FoodDashboard/src/datasource/file"
	"FoodDashboard/src/storage"
	"FoodDashboard/src/utils"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"go.uber.org/zap"
)

// 分类步骤新增的列
const (
	ColLabel       = "Label"
	ColAggregation = "Aggregation"
	ColCategory    = "Category"
	ColType        = "Type"
)

// Dataset 一个数据集的清洗规则, 全部以数据形式声明
type Dataset struct {
	Name string

	// Filters 按声明顺序依次执行
	Filters []Match

	// Aliases 在生成显示名称之前改写Attribute本身, 用于对齐历史数据
	Aliases map[string]string

	Dimensions []Dimension
	Relabel    Relabel

	// SortByYear 结果按年份升序排列
	SortByYear bool
}

// Result 处理结果
type Result struct {
	Frame dataframe.DataFrame
	// Filtered 被关键字规则过滤掉的行数
	Filtered int
	// Unmapped 非严格映射中原样保留的原始值
	Unmapped []string
}

// Process 对已经完成加载清洗的表执行过滤、维度推导和重命名
// 同样的输入总是得到同样的输出
func (d Dataset) Process(df dataframe.DataFrame, logger *storage.Logger) (Result, error) {
	if logger == nil {
		logger = storage.NewNopLogger()
	}
	log := logger.With(zap.String("dataset", d.Name))

	if missing := utils.MissingColumns(df, file.ColCommodity, file.ColAttribute, file.ColYear, file.ColValue); len(missing) > 0 {
		return Result{}, &file.MalformedInputError{Source: d.Name, Column: missing[0]}
	}

	before := df.Nrow()
	for _, m := range d.Filters {
		df = utils.FilterStrings(df, m.Column, m.Keep)
		log.Debug("keyword filter applied",
			zap.String("column", m.Column),
			zap.Strings("include", m.Include),
			zap.Strings("exclude", m.Exclude),
			zap.Int("rows", df.Nrow()))
	}
	if df.Err != nil {
		return Result{}, fmt.Errorf("%s: filter: %w", d.Name, df.Err)
	}
	res := Result{Filtered: before - df.Nrow()}

	if len(d.Aliases) > 0 {
		df = df.Mutate(utils.MapStrings(df.Col(file.ColAttribute), func(attr string) string {
			if alias, ok := d.Aliases[attr]; ok {
				return alias
			}
			return attr
		}))
	}

	attrs := df.Col(file.ColAttribute).Records()
	for _, dim := range d.Dimensions {
		values := make([]string, len(attrs))
		for i, attr := range attrs {
			values[i] = dim.Classify(attr)
		}
		df = df.Mutate(series.New(values, series.String, dim.Column))
	}

	labels, unmapped := d.label(attrs)
	if len(unmapped) > 0 {
		if d.Relabel.Mapping != nil && d.Relabel.Mapping.Strict {
			expected := d.Relabel.Mapping.Keys()
			log.Error("attributes missing from the label table",
				zap.Strings("unmapped", unmapped),
				zap.Strings("expected", expected))
			return Result{}, &UnmappedLabelError{Dataset: d.Name, Values: unmapped, Expected: expected}
		}
		for _, v := range unmapped {
			log.Warning("attribute has no display label, kept as is", zap.String("attribute", v))
		}
		res.Unmapped = unmapped
	}
	df = df.Mutate(series.New(labels, series.String, ColLabel))

	if d.SortByYear && df.Nrow() > 1 {
		df = df.Arrange(dataframe.Sort(file.ColYear))
	}
	if df.Err != nil {
		return Result{}, fmt.Errorf("%s: %w", d.Name, df.Err)
	}

	log.Info("dataset classified",
		zap.Int("rows", df.Nrow()),
		zap.Int("filtered", res.Filtered))
	res.Frame = df
	return res, nil
}

func (d Dataset) label(attrs []string) ([]string, []string) {
	labels := make([]string, len(attrs))
	missing := make(map[string]struct{})
	for i, attr := range attrs {
		label, ok := d.Relabel.Apply(attr)
		if !ok {
			missing[attr] = struct{}{}
		}
		labels[i] = label
	}
	return labels, sortedKeys(missing)
}
