package processor

import "FoodDashboard/src/datasource/file"

const perCapita = "per capita availability"

// Dairy 乳制品人均消费
// 奶酪的人均数据需要从原始数据手工计算, 目前不包含
var Dairy = Dataset{
	Name: "dairy",
	Filters: []Match{
		{Column: file.ColCommodity, Include: []string{perCapita}, Exclude: []string{"butterfat"}},
		{
			Column: file.ColAttribute,
			Include: []string{
				"butter-pounds",
				"fluid milk-pounds",
				"per capita-pounds",
				"all dairy products, milk-fat milk-equivalent basis-pounds",
			},
			Exclude: []string{"sales"},
		},
		{
			Column:  file.ColAttribute,
			Include: []string{"fluid milk", "all", "butter", "yogurt", "sour cream", "total", "dried whey"},
			Exclude: []string{"whole", "buttermilk", "frozen yogurt"},
		},
	},
	Relabel: Relabel{Steps: []Step{
		CutFrom("-"),
		RemoveAll("total", ", milk"),
		TitleCase(),
		TrimSpace(),
	}},
}

// Eggs 鸡蛋人均消费(个数)
var Eggs = Dataset{
	Name: "eggs",
	Filters: []Match{
		{Column: file.ColCommodity, Include: []string{perCapita}},
		{Column: file.ColAttribute, Include: []string{"per capita-number"}},
	},
	Relabel: Relabel{Mapping: &Mapping{Values: map[string]string{
		"shell-per capita-number":                      "Shell",
		"total-retail weight-number-per capita-number": "Total (Retail)",
		"processed-per capita-number":                  "Processed",
		"total-farm weight-number-per capita-number":   "Total (Farm)",
	}}},
}

// 果蔬视图
const (
	ViewTotal     = "Total"
	ViewFruit     = "Fruit"
	ViewVegetable = "Vegetable"
	ViewFresh     = "Fresh"
	ViewProcessed = "Processed"
)

// Produce 果蔬人均消费, 不做关键字过滤, 只推导三个分类维度
var Produce = Dataset{
	Name: "produce",
	Dimensions: []Dimension{
		{Column: ColAggregation, Classes: []Class{
			{Value: ViewTotal, Any: []string{"vegetables-fresh-pounds", "fruit-fresh-pounds", "total"}},
		}},
		{Column: ColCategory, Classes: []Class{
			// 必须先于 fruit/vegetable 判断
			{Value: ViewTotal, Any: []string{"total fruit and vegetables-pounds"}},
			{Value: ViewFruit, Any: []string{"fruit"}},
			{Value: ViewVegetable, Any: []string{"vegetable"}},
		}},
		{Column: ColType, Classes: []Class{
			{Value: ViewFresh, Any: []string{"fresh"}},
			{Value: ViewProcessed, Any: []string{"process"}},
		}},
	},
	Relabel: Relabel{Mapping: &Mapping{Strict: true, Values: map[string]string{
		"fruit-fresh-pounds":                             "Fresh Fruit",
		"fruit-processed-canned-pounds":                  "Canned Fruit",
		"fruit-processed-frozen-pounds":                  "Frozen Fruit",
		"fruit-processed-dried-pounds":                   "Dried Fruit",
		"fruit-processed-juice-pounds":                   "Juice",
		"fruit-processed-other-pounds":                   "Other Processed Fruit",
		"total processed fruit-pounds":                   "Total Processed Fruit",
		"total fruit-pounds":                             "Total Fruit",
		"vegetables-fresh-pounds":                        "Fresh Vegetables",
		"vegetables-processed-canned-pounds":             "Canned Vegetables",
		"vegetables-processed-frozen-pounds":             "Frozen Vegetables",
		"vegetables-processed-dehydrated-pounds":         "Dried Vegetables",
		"vegetables-processed-potatoes for chips-pounds": "Potatoes for Chips",
		"vegetables-legumes-pounds":                      "Legumes",
		"total processed vegetables-pounds":              "Total Processed Vegetables",
		"total vegetables-pounds":                        "Total Vegetables",
		"total fruit and vegetables-pounds":              "Total Fruit and Vegetables",
	}}},
}

// Grains 谷物人均消费
var Grains = Dataset{
	Name: "grains",
	Filters: []Match{
		{Column: file.ColCommodity, Include: []string{perCapita}},
	},
	// 早期数据只有 "pounds", 指的是面粉和谷物制品合计
	Aliases: map[string]string{
		"pounds": "total flour and cereal products-pounds",
	},
	Relabel: Relabel{Steps: []Step{
		RemoveAll("-pounds"),
		TitleCase(),
		TrimSpace(),
	}},
	SortByYear: true,
}
