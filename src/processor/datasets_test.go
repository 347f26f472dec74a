package processor

import (
	"errors"
	"strings"
	"testing"

	"FoodDashboard/src/datasource/file"

	"github.com/go-gota/gota/dataframe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadCSV(t *testing.T, content string) dataframe.DataFrame {
	t.Helper()
	raw, err := file.ReadCSVBytes([]byte(content))
	require.NoError(t, err)
	df, _, err := file.Format(raw, "test.csv")
	require.NoError(t, err)
	return df
}

const dairyCSV = `Commodity,Attribute,Year,Value,Notes
"Fluid milk and cream, per capita availability",Fluid milk-pounds,2000,200,
"Fluid milk and cream, per capita availability",Whole fluid milk-pounds,2000,80,
"Fluid milk and cream, per capita availability",Buttermilk-pounds,2000,2,
"Fluid milk and cream, per capita availability",Sour cream-per capita-pounds,2000,3.5,
"Fluid milk and cream, per capita availability",Yogurt (excluding frozen)-per capita-pounds,2000,6,
"Fluid milk and cream, per capita availability",Fluid milk sales-pounds,2000,190,
"Butter, per capita availability",Butter-pounds,2000,4.5,
"Butterfat, per capita availability",Butter-pounds,2000,9,
"Dairy products, per capita availability","All dairy products, milk-fat milk-equivalent basis-pounds",2000,590,
"Dry products, per capita availability",Dried whey-per capita-pounds,2000,3,
"Dairy products, total supply",Fluid milk-pounds,2000,9999,
"Frozen products, per capita availability",Frozen yogurt-per capita-pounds,2000,1.5,
`

func TestDairyKeepsPerCapitaRows(t *testing.T) {
	res, err := Dairy.Process(loadCSV(t, dairyCSV), nil)
	require.NoError(t, err)
	df := res.Frame

	for _, c := range df.Col(file.ColCommodity).Records() {
		assert.Contains(t, c, "per capita availability")
		assert.NotContains(t, c, "butterfat")
	}
	for _, a := range df.Col(file.ColAttribute).Records() {
		assert.NotContains(t, a, "sales")
		assert.NotContains(t, a, "whole")
		assert.NotContains(t, a, "buttermilk")
		assert.NotContains(t, a, "frozen yogurt")
	}

	assert.Equal(t, []string{
		"Fluid Milk",
		"Sour Cream",
		"Yogurt (Excluding Frozen)",
		"Butter",
		"All Dairy Products",
		"Dried Whey",
	}, df.Col(ColLabel).Records())
	assert.Equal(t, []float64{200, 3.5, 6, 4.5, 590, 3}, df.Col(file.ColValue).Float())
	assert.Equal(t, 6, res.Filtered)
	assert.Empty(t, res.Unmapped)
}

func TestEggsShellScenario(t *testing.T) {
	df := loadCSV(t, `Commodity,Attribute,Year,Value,Notes
"Eggs, per capita availability",Shell-per capita-number,2000,250,
`)
	res, err := Eggs.Process(df, nil)
	require.NoError(t, err)

	require.Equal(t, 1, res.Frame.Nrow())
	assert.Equal(t, []string{"Shell"}, res.Frame.Col(ColLabel).Records())
	years, err := res.Frame.Col(file.ColYear).Int()
	require.NoError(t, err)
	assert.Equal(t, []int{2000}, years)
	assert.Equal(t, []float64{250.0}, res.Frame.Col(file.ColValue).Float())
}

func TestEggsRelabel(t *testing.T) {
	df := loadCSV(t, `Commodity,Attribute,Year,Value
"Eggs, per capita availability",Shell-per capita-number,2001,180
"Eggs, per capita availability",Total-retail weight-number-per capita-number,2001,250
"Eggs, per capita availability",Processed-per capita-number,2001,70
"Eggs, per capita availability",Total-farm weight-number-per capita-number,2001,260
"Eggs, per capita availability",Total-farm weight-pounds,2001,33
"Eggs, total supply",Shell-per capita-number,2001,1
"Eggs, per capita availability",Hatching-per capita-number,2001,5
`)
	res, err := Eggs.Process(df, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"Shell", "Total (Retail)", "Processed", "Total (Farm)", "hatching-per capita-number"},
		res.Frame.Col(ColLabel).Records())
	assert.Equal(t, []string{"hatching-per capita-number"}, res.Unmapped)
}

const produceCSV = `Commodity,Attribute,Year,Value
"Fruit and vegetables, per capita availability",Fruit-fresh-pounds,2010,120
"Fruit and vegetables, per capita availability",Fruit-processed-canned-pounds,2010,16
"Fruit and vegetables, per capita availability",Total fruit-pounds,2010,250
"Fruit and vegetables, per capita availability",Vegetables-fresh-pounds,2010,190
"Fruit and vegetables, per capita availability",Vegetables-legumes-pounds,2010,7
"Fruit and vegetables, per capita availability",Total processed vegetables-pounds,2010,200
"Fruit and vegetables, per capita availability",Total fruit and vegetables-pounds,2010,640
`

func TestProduceDimensions(t *testing.T) {
	res, err := Produce.Process(loadCSV(t, produceCSV), nil)
	require.NoError(t, err)
	df := res.Frame

	assert.Equal(t, []string{
		"Fresh Fruit", "Canned Fruit", "Total Fruit", "Fresh Vegetables",
		"Legumes", "Total Processed Vegetables", "Total Fruit and Vegetables",
	}, df.Col(ColLabel).Records())
	assert.Equal(t, []string{
		ViewTotal, "", ViewTotal, ViewTotal, "", ViewTotal, ViewTotal,
	}, df.Col(ColAggregation).Records())
	assert.Equal(t, []string{
		ViewFruit, ViewFruit, ViewFruit, ViewVegetable, ViewVegetable, ViewVegetable, ViewTotal,
	}, df.Col(ColCategory).Records())
	assert.Equal(t, []string{
		ViewFresh, ViewProcessed, "", ViewFresh, "", ViewProcessed, "",
	}, df.Col(ColType).Records())
	assert.Zero(t, res.Filtered)
}

func TestProduceTotalCategoryPrecedence(t *testing.T) {
	for _, dim := range Produce.Dimensions {
		if dim.Column != ColCategory {
			continue
		}
		assert.Equal(t, ViewTotal, dim.Classify("total fruit and vegetables-pounds"))
		assert.Equal(t, ViewFruit, dim.Classify("total fruit-pounds"))
		assert.Equal(t, "", dim.Classify("potatoes-pounds"))
		return
	}
	t.Fatal("produce has no category dimension")
}

func TestProduceFailsOnUnmappedAttribute(t *testing.T) {
	df := loadCSV(t, produceCSV+`"Fruit and vegetables, per capita availability",Mushrooms-pounds,2010,4
"Fruit and vegetables, per capita availability",Berries-fresh-pounds,2011,2
`)
	_, err := Produce.Process(df, nil)

	var unmapped *UnmappedLabelError
	require.True(t, errors.As(err, &unmapped))
	assert.Equal(t, "produce", unmapped.Dataset)
	assert.Equal(t, []string{"berries-fresh-pounds", "mushrooms-pounds"}, unmapped.Values)
	assert.Contains(t, err.Error(), "mushrooms-pounds")

	// 错误信息列出映射表中已知的原始值
	assert.Len(t, unmapped.Expected, 17)
	assert.Contains(t, unmapped.Expected, "fruit-fresh-pounds")
	assert.Contains(t, err.Error(), "known: ")
}

const grainsCSV = `Commodity,Attribute,Year,Value
"Flour, per capita availability",Wheat flour-pounds,1981,115
"Flour, per capita availability",pounds,1980,110
"Flour, per capita availability",Total flour and cereal products-pounds,1979,108
"Flour, total supply",Wheat flour-pounds,1980,9999
"Flour, per capita availability",Rice-pounds,1979,10
`

func TestGrainsLegacyPoundsScenario(t *testing.T) {
	res, err := Grains.Process(loadCSV(t, `Commodity,Attribute,Year,Value,Notes
"Flour, per capita availability",pounds,1980,110,
`), nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"Total Flour And Cereal Products"}, res.Frame.Col(ColLabel).Records())
	years, err := res.Frame.Col(file.ColYear).Int()
	require.NoError(t, err)
	assert.Equal(t, []int{1980}, years)
	assert.Equal(t, []float64{110.0}, res.Frame.Col(file.ColValue).Float())
}

func TestGrainsSortedByYear(t *testing.T) {
	res, err := Grains.Process(loadCSV(t, grainsCSV), nil)
	require.NoError(t, err)
	df := res.Frame

	years, err := df.Col(file.ColYear).Int()
	require.NoError(t, err)
	for i := 1; i < len(years); i++ {
		assert.LessOrEqual(t, years[i-1], years[i])
	}
	assert.NotContains(t, df.Col(file.ColAttribute).Records(), "pounds")
	for _, label := range df.Col(ColLabel).Records() {
		assert.False(t, strings.HasSuffix(strings.ToLower(label), "pounds"), label)
	}
	assert.Equal(t, 4, df.Nrow())
	assert.Equal(t, 1, res.Filtered)
}

func TestProcessIsIdempotent(t *testing.T) {
	cases := []struct {
		dataset Dataset
		csv     string
	}{
		{Dairy, dairyCSV},
		{Produce, produceCSV},
		{Grains, grainsCSV},
	}
	for _, tc := range cases {
		t.Run(tc.dataset.Name, func(t *testing.T) {
			first, err := tc.dataset.Process(loadCSV(t, tc.csv), nil)
			require.NoError(t, err)
			second, err := tc.dataset.Process(loadCSV(t, tc.csv), nil)
			require.NoError(t, err)
			assert.Equal(t, first.Frame.Records(), second.Frame.Records())
		})
	}
}

func TestProcessEmptyResult(t *testing.T) {
	df := loadCSV(t, `Commodity,Attribute,Year,Value
"Eggs, total supply",Shell-per capita-number,2000,1
`)
	res, err := Eggs.Process(df, nil)
	require.NoError(t, err)
	assert.Zero(t, res.Frame.Nrow())
	assert.Equal(t, 1, res.Filtered)
}

func TestProcessRequiresColumns(t *testing.T) {
	df := dataframe.LoadRecords([][]string{{"Commodity", "Year"}, {"eggs", "2000"}})
	_, err := Eggs.Process(df, nil)

	var malformed *file.MalformedInputError
	require.True(t, errors.As(err, &malformed))
	assert.Equal(t, file.ColAttribute, malformed.Column)
}
