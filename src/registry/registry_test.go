package registry

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"FoodDashboard/src/datasource/file"
	"FoodDashboard/src/metrics"
	"FoodDashboard/src/processor"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	dairyCSV = `Commodity,Attribute,Year,Value,Notes
"Fluid milk and cream, per capita availability",Fluid milk-pounds,1998,210,
"Fluid milk and cream, per capita availability",Fluid milk-pounds,2000,200,
"Butter, per capita availability",Butter-pounds,2000,4.5,
"Butter, per capita availability",Butter-pounds,2005,*,
"Fluid milk and cream, per capita availability",Fluid milk-pounds,2020,150,
`
	eggsCSV = `Commodity,Attribute,Year,Value,Notes
"Eggs, per capita availability",Shell-per capita-number,2000,250,
"Eggs, per capita availability",Processed-per capita-number,2000,--,
"Eggs, per capita availability",Processed-per capita-number,2001,70,
`
	produceCSV = `Commodity,Attribute,Year,Value
"Fruit and vegetables, per capita availability",Fruit-fresh-pounds,2010,120
"Fruit and vegetables, per capita availability",Fruit-processed-canned-pounds,2010,16
"Fruit and vegetables, per capita availability",Vegetables-fresh-pounds,2010,190
"Fruit and vegetables, per capita availability",Total processed vegetables-pounds,2011,200
"Fruit and vegetables, per capita availability",Total fruit and vegetables-pounds,2011,640
`
	grainsCSV = `Commodity,Attribute,Year,Value
"Flour, per capita availability",Wheat flour-pounds,1981,115
"Flour, per capita availability",pounds,1980,110
`
)

func writeSources(t *testing.T, overrides map[Category]string) map[Category]string {
	t.Helper()
	dir := t.TempDir()
	contents := map[Category]string{
		Dairy:   dairyCSV,
		Eggs:    eggsCSV,
		Produce: produceCSV,
		Grains:  grainsCSV,
	}
	for c, content := range overrides {
		contents[c] = content
	}
	paths := make(map[Category]string)
	for c, content := range contents {
		path := filepath.Join(dir, c.String()+".csv")
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
		paths[c] = path
	}
	return paths
}

func buildRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := Build(writeSources(t, nil), nil, nil)
	require.NoError(t, err)
	return r
}

func TestLabelsInFirstSeenOrder(t *testing.T) {
	r := buildRegistry(t)

	assert.Equal(t, []string{"Fluid Milk", "Butter"}, r.Labels(Dairy))
	assert.Equal(t, []string{"Shell", "Processed"}, r.Labels(Eggs))
	assert.Equal(t, []string{"Total Flour And Cereal Products", "Wheat Flour"}, r.Labels(Grains))
	assert.Equal(t, []string{
		"Fresh Fruit", "Canned Fruit", "Fresh Vegetables", "Total Processed Vegetables", "Total Fruit and Vegetables",
	}, r.Labels(Produce))

	seafood := r.Labels(Seafood)
	assert.NotNil(t, seafood)
	assert.Empty(t, seafood)
}

func TestLabelsMatchTableDomain(t *testing.T) {
	r := buildRegistry(t)
	for _, c := range Categories {
		if !c.Available() {
			continue
		}
		domain := make(map[string]struct{})
		for _, l := range r.Table(c).Col(processor.ColLabel).Records() {
			domain[l] = struct{}{}
		}
		labels := r.Labels(c)
		assert.Len(t, labels, len(domain), c.String())
		for _, l := range labels {
			assert.Contains(t, domain, l)
		}
	}
}

func TestTableIsCopy(t *testing.T) {
	r := buildRegistry(t)

	df := r.Table(Eggs)
	require.Equal(t, 2, df.Nrow())
	df = df.Filter(dataframe.F{Colname: processor.ColLabel, Comparator: series.Eq, Comparando: "Shell"})
	require.Equal(t, 1, df.Nrow())

	assert.Equal(t, []float64{250, 70}, r.Table(Eggs).Col(file.ColValue).Float())
	assert.Zero(t, r.Table(Nuts).Nrow())
}

func TestQuery(t *testing.T) {
	r := buildRegistry(t)

	got := r.Query(Dairy, YearRange{Min: 1999, Max: 2019}, []string{"Fluid Milk"}, ViewNone)
	require.Len(t, got, 1)
	assert.Equal(t, Observation{
		Commodity: "fluid milk and cream, per capita availability",
		Attribute: "fluid milk-pounds",
		Year:      2000,
		Value:     200,
		Label:     "Fluid Milk",
	}, got[0])

	all := r.Query(Dairy, YearRange{Min: 1900, Max: 2100}, r.Labels(Dairy), ViewNone)
	assert.Len(t, all, 4)

	inclusive := r.Query(Dairy, YearRange{Min: 2000, Max: 2000}, r.Labels(Dairy), ViewNone)
	assert.Len(t, inclusive, 2)
}

func TestQueryEmptySelection(t *testing.T) {
	r := buildRegistry(t)

	cases := map[string][]Observation{
		"no labels":      r.Query(Eggs, YearRange{Min: 1900, Max: 2100}, nil, ViewNone),
		"inverted range": r.Query(Eggs, YearRange{Min: 2010, Max: 2000}, r.Labels(Eggs), ViewNone),
		"no overlap":     r.Query(Eggs, YearRange{Min: 1950, Max: 1960}, r.Labels(Eggs), ViewNone),
		"unknown label":  r.Query(Eggs, YearRange{Min: 1900, Max: 2100}, []string{"Duck"}, ViewNone),
		"unavailable":    r.Query(Nuts, YearRange{Min: 1900, Max: 2100}, []string{"Almonds"}, ViewNone),
	}
	for name, got := range cases {
		assert.NotNil(t, got, name)
		assert.Empty(t, got, name)
	}
}

func TestProduceViews(t *testing.T) {
	r := buildRegistry(t)

	assert.Equal(t, []string{"Fresh Fruit", "Fresh Vegetables", "Total Processed Vegetables", "Total Fruit and Vegetables"},
		r.ViewLabels(ViewTotal))
	assert.Equal(t, []string{"Fresh Fruit", "Canned Fruit"}, r.ViewLabels(ViewFruit))
	assert.Equal(t, []string{"Fresh Vegetables", "Total Processed Vegetables"}, r.ViewLabels(ViewVegetable))
	assert.Equal(t, []string{"Fresh Fruit", "Fresh Vegetables"}, r.ViewLabels(ViewFresh))
	assert.Equal(t, []string{"Canned Fruit", "Total Processed Vegetables"}, r.ViewLabels(ViewProcessed))
	assert.Equal(t, r.Labels(Produce), r.ViewLabels(ViewNone))

	assert.Equal(t, []string{"Total"}, r.Aggregations())
	assert.Equal(t, []string{"Fruit", "Vegetable", "Total"}, r.Categories())
	assert.Equal(t, []string{"Fresh", "Processed"}, r.Types())

	got := r.Query(Produce, YearRange{Min: 2010, Max: 2011}, r.Labels(Produce), ViewFruit)
	require.Len(t, got, 2)
	for _, o := range got {
		assert.Equal(t, "Fruit", o.Category)
	}

	// 非果蔬类别忽略视图
	eggs := r.Query(Eggs, YearRange{Min: 2000, Max: 2001}, r.Labels(Eggs), ViewFresh)
	assert.Len(t, eggs, 2)
}

func TestYearBounds(t *testing.T) {
	r := buildRegistry(t)

	bounds, ok := r.YearBounds(Grains)
	require.True(t, ok)
	assert.Equal(t, YearRange{Min: 1980, Max: 1981}, bounds)

	slider, ok := r.SliderBounds()
	require.True(t, ok)
	assert.Equal(t, YearRange{Min: 1998, Max: 2020}, slider)

	_, ok = r.YearBounds(FatsOils)
	assert.False(t, ok)
}

func TestBuildRecordsMetrics(t *testing.T) {
	m := metrics.New()
	_, err := Build(writeSources(t, nil), nil, m)
	require.NoError(t, err)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.RowsLoaded.WithLabelValues("eggs")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RowsDropped.WithLabelValues("eggs", metrics.ReasonPlaceholder)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.RowsPublished.WithLabelValues("eggs")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Builds.WithLabelValues("success")))
}

func TestBuildErrorIdentifiesDataset(t *testing.T) {
	paths := writeSources(t, map[Category]string{
		Grains: "Commodity,Attribute,Year,Value\n\"Flour, per capita availability\",pounds,1980,lots\n",
	})
	m := metrics.New()
	_, err := Build(paths, nil, m)

	var buildErr *BuildError
	require.True(t, errors.As(err, &buildErr))
	assert.Equal(t, Grains, buildErr.Category)

	var coercion *file.ValueCoercionError
	require.True(t, errors.As(err, &coercion))
	assert.Equal(t, 1, coercion.Row)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Builds.WithLabelValues("error")))
}

func TestBuildFailsOnUnmappedProduce(t *testing.T) {
	paths := writeSources(t, map[Category]string{
		Produce: produceCSV + "\"Fruit and vegetables, per capita availability\",Mushrooms-pounds,2011,4\n",
	})
	_, err := Build(paths, nil, nil)

	var unmapped *processor.UnmappedLabelError
	require.True(t, errors.As(err, &unmapped))
	assert.Equal(t, []string{"mushrooms-pounds"}, unmapped.Values)
}

func TestBuildSkipsMissingProduceAttribute(t *testing.T) {
	paths := writeSources(t, map[Category]string{
		Produce: produceCSV + "\"Fruit and vegetables, per capita availability\",NA,2011,4\n",
	})
	r, err := Build(paths, nil, nil)
	require.NoError(t, err)
	assert.Len(t, r.Observations(Produce), 5)
	assert.NotContains(t, r.Labels(Produce), "Nan")
}

func TestBuildMissingSource(t *testing.T) {
	paths := writeSources(t, nil)
	delete(paths, Eggs)

	_, err := Build(paths, nil, nil)
	var buildErr *BuildError
	require.True(t, errors.As(err, &buildErr))
	assert.Equal(t, Eggs, buildErr.Category)
}

func TestConcurrentQueries(t *testing.T) {
	r := buildRegistry(t)
	h := NewHolder(r)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			current := h.Load()
			got := current.Query(Produce, YearRange{Min: 2010, Max: 2011}, current.ViewLabels(ViewTotal), ViewTotal)
			assert.Len(t, got, 4)
		}()
	}
	wg.Wait()

	next := buildRegistry(t)
	assert.Same(t, r, h.Store(next))
	assert.Same(t, next, h.Load())
	assert.Nil(t, NewHolder(nil).Load())
}

func TestParseCategoryAndView(t *testing.T) {
	c, err := ParseCategory("Meat & Poultry")
	require.NoError(t, err)
	assert.Equal(t, MeatPoultry, c)
	assert.False(t, c.Available())

	c, err = ParseCategory("GRAINS")
	require.NoError(t, err)
	assert.Equal(t, Grains, c)
	assert.True(t, c.Available())
	assert.Equal(t, "Grains", c.Title())

	_, err = ParseCategory("candy")
	assert.Error(t, err)

	v, err := ParseView("fresh")
	require.NoError(t, err)
	assert.Equal(t, ViewFresh, v)

	v, err = ParseView("")
	require.NoError(t, err)
	assert.Equal(t, ViewNone, v)

	_, err = ParseView("frozen")
	assert.Error(t, err)
}
