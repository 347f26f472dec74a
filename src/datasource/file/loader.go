package file

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"FoodDashboard/src/utils"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// 列名
const (
	ColCommodity = "Commodity"
	ColAttribute = "Attribute"
	ColYear      = "Year"
	ColValue     = "Value"
	ColNotes     = "Notes"

	// rowCol 记录原始行号, 只在加载过程中存在
	rowCol = "_row"
)

// RequiredColumns 加载时必须存在的列
var RequiredColumns = []string{ColCommodity, ColAttribute, ColYear, ColValue}

// Placeholders 表示数据被隐藏或不可用的占位符, 按原样精确匹配
var Placeholders = []string{"*", "-", "--", "--  "}

// LoadStats 加载过程中各步骤丢弃的行数
type LoadStats struct {
	Read        int // 读入的数据行
	Missing     int // 含缺失值被丢弃
	Placeholder int // Value 为占位符被丢弃
	Kept        int // 最终保留
}

// Load 读取并清洗一个数据文件
func Load(path string) (dataframe.DataFrame, LoadStats, error) {
	raw, err := ReadTable(path)
	if err != nil {
		return dataframe.DataFrame{}, LoadStats{}, err
	}
	return Format(raw, path)
}

// Format 对原始表做统一清洗:
// 删除Notes列, Commodity转小写, Attribute转小写并去空白,
// 删除含缺失值的行和占位符行, 最后把Year转为整数、Value转为浮点数
func Format(raw dataframe.DataFrame, source string) (dataframe.DataFrame, LoadStats, error) {
	var stats LoadStats

	if missing := utils.MissingColumns(raw, RequiredColumns...); len(missing) > 0 {
		return dataframe.DataFrame{}, stats, &MalformedInputError{Source: source, Column: missing[0]}
	}

	df := raw
	if utils.HasColumn(df, ColNotes) {
		df = df.Drop(ColNotes)
	}

	stats.Read = df.Nrow()
	rows := make([]int, stats.Read)
	for i := range rows {
		rows[i] = i + 1
	}
	df = df.Mutate(series.New(rows, series.Int, rowCol))

	before := df.Nrow()
	for _, name := range df.Names() {
		if name == rowCol || df.Nrow() == 0 {
			continue
		}
		df = df.Filter(dataframe.F{
			Colname:    name,
			Comparator: series.CompFunc,
			Comparando: func(el series.Element) bool { return !utils.IsMissing(el) },
		})
	}
	stats.Missing = before - df.Nrow()

	// 缺失值去掉之后再统一大小写
	if df.Nrow() > 0 {
		df = df.Mutate(utils.MapStrings(df.Col(ColCommodity), strings.ToLower))
		df = df.Mutate(utils.MapStrings(df.Col(ColAttribute), func(s string) string {
			return strings.TrimSpace(strings.ToLower(s))
		}))
	}

	before = df.Nrow()
	df = utils.FilterStrings(df, ColValue, func(v string) bool {
		return !utils.Contains(Placeholders, v)
	})
	stats.Placeholder = before - df.Nrow()

	if df.Err != nil {
		return dataframe.DataFrame{}, stats, fmt.Errorf("%s: %w", source, df.Err)
	}

	df, err := coerce(df, source)
	if err != nil {
		return dataframe.DataFrame{}, stats, err
	}

	stats.Kept = df.Nrow()
	return df.Drop(rowCol), stats, nil
}

// coerce 占位符已经去掉之后才能做类型转换
func coerce(df dataframe.DataFrame, source string) (dataframe.DataFrame, error) {
	rows, err := df.Col(rowCol).Int()
	if err != nil {
		return df, fmt.Errorf("%s: row index: %w", source, err)
	}

	yearRecords := df.Col(ColYear).Records()
	years := make([]int, len(yearRecords))
	for i, r := range yearRecords {
		y, err := parseYear(r)
		if err != nil {
			return df, &ValueCoercionError{Source: source, Row: rows[i], Column: ColYear, Value: r}
		}
		years[i] = y
	}

	valueRecords := df.Col(ColValue).Records()
	values := make([]float64, len(valueRecords))
	for i, r := range valueRecords {
		v, err := strconv.ParseFloat(strings.TrimSpace(r), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return df, &ValueCoercionError{Source: source, Row: rows[i], Column: ColValue, Value: r}
		}
		values[i] = v
	}

	df = df.Mutate(series.New(years, series.Int, ColYear))
	df = df.Mutate(series.New(values, series.Float, ColValue))
	return df, nil
}

// parseYear 接受 "2000" 和 xlsx 中常见的 "2000.0"
func parseYear(s string) (int, error) {
	s = strings.TrimSpace(s)
	if y, err := strconv.Atoi(s); err == nil {
		return y, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("not an integer year: %q", s)
	}
	return int(f), nil
}
