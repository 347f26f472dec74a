package datapush

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"FoodDashboard/src/registry"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// ErrNotAvailable 该类别的标签页还在建设中
var ErrNotAvailable = errors.New("category is under construction")

const poundsPerCapita = "Pounds per Capita"

// 图片尺寸
const (
	chartWidth  = 10 * vg.Inch
	chartHeight = 6 * vg.Inch
)

// Chart 一张折线图的标题和坐标轴文字
type Chart struct {
	Title  string
	XLabel string
	YLabel string
	Legend string
}

// charts 每个标签页对应的图表, 未出现的类别还没有图表
var charts = map[registry.Category]func(view registry.View) Chart{
	registry.Dairy: func(registry.View) Chart {
		return Chart{Title: "Dairy Product Consumption", XLabel: "Year", YLabel: poundsPerCapita, Legend: "Product"}
	},
	registry.Eggs: func(registry.View) Chart {
		return Chart{Title: "Egg Consumption", XLabel: "Year", YLabel: "Number of Eggs per Capita", Legend: "Category"}
	},
	registry.Produce: func(view registry.View) Chart {
		c := Chart{Title: "Produce Consumption", XLabel: "Year", YLabel: poundsPerCapita, Legend: "Product"}
		switch view {
		case registry.ViewFruit, registry.ViewVegetable:
			c.Title = string(view) + " Consumption"
		case registry.ViewFresh, registry.ViewProcessed:
			c.Title = string(view) + " Produce Consumption"
		}
		return c
	},
	registry.Grains: func(registry.View) Chart {
		return Chart{Title: "Grain Consumption", XLabel: "Year", YLabel: poundsPerCapita, Legend: "Product"}
	},
}

// ChartFor 返回类别和视图对应的图表文字
func ChartFor(c registry.Category, view registry.View) (Chart, error) {
	build, ok := charts[c]
	if !ok {
		return Chart{}, fmt.Errorf("%s: %w", c.Title(), ErrNotAvailable)
	}
	return build(view), nil
}

// RenderChart 把查询结果画成PNG折线图, 每个产品一条线
// 没有数据时输出只有坐标轴的空图
func RenderChart(w io.Writer, c registry.Category, view registry.View, years registry.YearRange, obs []registry.Observation) error {
	chart, err := ChartFor(c, view)
	if err != nil {
		return err
	}

	p := plot.New()
	p.Title.Text = chart.Title
	p.X.Label.Text = chart.XLabel
	p.Y.Label.Text = chart.YLabel
	p.Legend.Top = true
	p.Add(plotter.NewGrid())

	series := seriesByLabel(obs)
	if len(series) > 0 {
		// 图例标题, 没有缩略图
		p.Legend.Add(chart.Legend)
	}
	for i, s := range series {
		line, err := plotter.NewLine(s.points)
		if err != nil {
			return fmt.Errorf("line %s: %w", s.label, err)
		}
		line.Color = plotutil.Color(i)
		line.Width = vg.Points(2)
		p.Add(line)
		p.Legend.Add(s.label, line)
	}

	// 横轴固定为选中的年份区间
	p.X.Min = float64(years.Min)
	p.X.Max = float64(years.Max)

	wt, err := p.WriterTo(chartWidth, chartHeight, "png")
	if err != nil {
		return fmt.Errorf("render %s: %w", chart.Title, err)
	}
	_, err = wt.WriteTo(w)
	return err
}

// SaveChart 渲染并保存到文件
func SaveChart(path string, c registry.Category, view registry.View, years registry.YearRange, obs []registry.Observation) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := RenderChart(f, c, view, years, obs); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}

type labelSeries struct {
	label  string
	points plotter.XYs
}

// seriesByLabel 按产品分组, 顺序与首次出现一致, 组内按年份排序
func seriesByLabel(obs []registry.Observation) []labelSeries {
	index := make(map[string]int)
	var out []labelSeries
	for _, o := range obs {
		i, ok := index[o.Label]
		if !ok {
			i = len(out)
			index[o.Label] = i
			out = append(out, labelSeries{label: o.Label})
		}
		out[i].points = append(out[i].points, plotter.XY{X: float64(o.Year), Y: o.Value})
	}
	for _, s := range out {
		sort.SliceStable(s.points, func(a, b int) bool { return s.points[a].X < s.points[b].X })
	}
	return out
}
