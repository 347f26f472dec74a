package registry

import (
	"fmt"
	"strings"

	"FoodDashboard/src/processor"
)

// Category 食品类别, 对应仪表盘上的一个标签页
type Category int

const (
	Dairy Category = iota
	Eggs
	Produce
	Grains
	Nuts
	MeatPoultry
	Seafood
	Sugars
	FatsOils
)

// Categories 标签页顺序
var Categories = []Category{Dairy, Eggs, Produce, Grains, Nuts, MeatPoultry, Seafood, Sugars, FatsOils}

var categoryInfo = map[Category]struct {
	key, title string
}{
	Dairy:       {"dairy", "Dairy"},
	Eggs:        {"eggs", "Eggs"},
	Produce:     {"produce", "Produce"},
	Grains:      {"grains", "Grains"},
	Nuts:        {"nuts", "Nuts"},
	MeatPoultry: {"meat-poultry", "Meat & Poultry"},
	Seafood:     {"seafood", "Seafood"},
	Sugars:      {"sugars", "Sugars & Sweeteners"},
	FatsOils:    {"fats-oils", "Fats & Oils"},
}

// pipelines 已经有数据的类别及其清洗规则, 其余类别还在建设中
var pipelines = map[Category]processor.Dataset{
	Dairy:   processor.Dairy,
	Eggs:    processor.Eggs,
	Produce: processor.Produce,
	Grains:  processor.Grains,
}

// String 命令行和日志中使用的名称
func (c Category) String() string {
	if info, ok := categoryInfo[c]; ok {
		return info.key
	}
	return fmt.Sprintf("category(%d)", int(c))
}

// Title 标签页上显示的名称
func (c Category) Title() string {
	return categoryInfo[c].title
}

// Available 该类别是否已经有数据
func (c Category) Available() bool {
	_, ok := pipelines[c]
	return ok
}

// ParseCategory 按名称或标题查找类别, 不区分大小写
func ParseCategory(s string) (Category, error) {
	s = strings.TrimSpace(s)
	for _, c := range Categories {
		info := categoryInfo[c]
		if strings.EqualFold(s, info.key) || strings.EqualFold(s, info.title) {
			return c, nil
		}
	}
	return 0, fmt.Errorf("unknown category %q", s)
}

// View 果蔬数据的视图
type View string

const (
	ViewNone      View = ""
	ViewTotal     View = processor.ViewTotal
	ViewFruit     View = processor.ViewFruit
	ViewVegetable View = processor.ViewVegetable
	ViewFresh     View = processor.ViewFresh
	ViewProcessed View = processor.ViewProcessed
)

// Views 视图下拉框的选项, 第一个是默认值
var Views = []View{ViewTotal, ViewFruit, ViewVegetable, ViewFresh, ViewProcessed}

// ParseView 空字符串表示不按视图过滤
func ParseView(s string) (View, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return ViewNone, nil
	}
	for _, v := range Views {
		if strings.EqualFold(s, string(v)) {
			return v, nil
		}
	}
	return ViewNone, fmt.Errorf("unknown view %q", s)
}

// match 判断一条观测是否属于该视图
// Total 看汇总维度, Fruit/Vegetable 看类别维度, Fresh/Processed 看类型维度
func (v View) match(o Observation) bool {
	switch v {
	case ViewNone:
		return true
	case ViewTotal:
		return o.Aggregation == string(v)
	case ViewFruit, ViewVegetable:
		return o.Category == string(v)
	case ViewFresh, ViewProcessed:
		return o.Type == string(v)
	}
	return false
}
