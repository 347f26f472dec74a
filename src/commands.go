package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"FoodDashboard/src/datapush"
	"FoodDashboard/src/registry"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// query/render 共用的筛选条件
	qFrom   int
	qTo     int
	qLabels []string
	qView   string

	renderOut string

	exportXLSX     string
	exportSQLite   string
	exportPostgres string
	exportCSV      string
	exportCharts   string
)

func init() {
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(labelsCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(exportCmd)

	labelsCmd.Flags().StringVar(&qView, "view", "", "produce view: Total, Fruit, Vegetable, Fresh or Processed")

	for _, c := range []*cobra.Command{queryCmd, renderCmd} {
		c.Flags().IntVar(&qFrom, "from", 0, "first year (defaults to years.from)")
		c.Flags().IntVar(&qTo, "to", 0, "last year (defaults to years.to)")
		c.Flags().StringSliceVar(&qLabels, "label", nil, "labels to include (defaults to every label of the view)")
		c.Flags().StringVar(&qView, "view", "", "produce view (defaults to Total for produce)")
	}
	renderCmd.Flags().StringVarP(&renderOut, "out", "o", "", "output PNG path (defaults to export.charts_dir)")

	exportCmd.Flags().StringVar(&exportXLSX, "xlsx", "", "workbook path (overrides export.xlsx_path)")
	exportCmd.Flags().StringVar(&exportSQLite, "sqlite", "", "sqlite database path (overrides export.sqlite_path)")
	exportCmd.Flags().StringVar(&exportPostgres, "postgres", "", "postgres DSN (overrides export.postgres_dsn)")
	exportCmd.Flags().StringVar(&exportCSV, "csv-dir", "", "csv directory (overrides export.csv_dir)")
	exportCmd.Flags().StringVar(&exportCharts, "charts-dir", "", "chart directory (overrides export.charts_dir)")
}

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Load, clean and classify every dataset and print a summary",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRegistry(func(a *app, r *registry.Registry) error {
			return printSummary(cmd.OutOrStdout(), r)
		})
	},
}

var labelsCmd = &cobra.Command{
	Use:   "labels <category>",
	Short: "List the selectable labels of a category in display order",
	Long: `List the selectable labels of a category in display order.

Examples:
  fooddash labels dairy
  fooddash labels produce --view Fresh`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := registry.ParseCategory(args[0])
		if err != nil {
			return err
		}
		view, err := registry.ParseView(qView)
		if err != nil {
			return err
		}
		return withRegistry(func(a *app, r *registry.Registry) error {
			labels := r.Labels(c)
			if c == registry.Produce && view != registry.ViewNone {
				labels = r.ViewLabels(view)
			}
			return printLines(cmd.OutOrStdout(), labels)
		})
	},
}

var queryCmd = &cobra.Command{
	Use:   "query <category>",
	Short: "Print the observations selected by year range, labels and view",
	Long: `Print the observations selected by year range, labels and view.

Examples:
  fooddash query eggs --from 2000 --to 2010
  fooddash query dairy --label "Fluid Milk" --label Butter --json
  fooddash query produce --view Fruit`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSelection(args[0], func(a *app, sel selection, obs []registry.Observation) error {
			return printObservations(cmd.OutOrStdout(), obs)
		})
	},
}

var renderCmd = &cobra.Command{
	Use:   "render <category>",
	Short: "Render the selected observations as a PNG line chart",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSelection(args[0], func(a *app, sel selection, obs []registry.Observation) error {
			path := renderOut
			if path == "" {
				path = chartPath(a.cfg.Export.ChartsDir, sel.category, sel.view)
			}
			if err := ensureParent(path); err != nil {
				return err
			}
			if err := datapush.SaveChart(path, sel.category, sel.view, sel.years, obs); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		})
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write every dataset to the configured workbook, databases, csv files and charts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRegistry(func(a *app, r *registry.Registry) error {
			targets := a.exportTargets()
			if targets.empty() {
				return errors.New("no export target configured")
			}
			return runExport(a, r, targets)
		})
	},
}

// selection 一次查询的条件
type selection struct {
	category registry.Category
	view     registry.View
	years    registry.YearRange
	labels   []string
}

func runSelection(arg string, fn func(a *app, sel selection, obs []registry.Observation) error) error {
	c, err := registry.ParseCategory(arg)
	if err != nil {
		return err
	}
	view, err := registry.ParseView(qView)
	if err != nil {
		return err
	}
	return withRegistry(func(a *app, r *registry.Registry) error {
		sel := defaultSelection(a, r, c, view)
		if qFrom != 0 {
			sel.years.Min = qFrom
		}
		if qTo != 0 {
			sel.years.Max = qTo
		}
		if len(qLabels) > 0 {
			sel.labels = qLabels
		}
		obs := r.Query(sel.category, sel.years, sel.labels, sel.view)
		a.logger.Debug("query",
			zap.String("category", c.String()),
			zap.String("view", string(sel.view)),
			zap.Int("from", sel.years.Min),
			zap.Int("to", sel.years.Max),
			zap.Int("rows", len(obs)))
		return fn(a, sel, obs)
	})
}

// defaultSelection 与仪表盘初始状态一致: 配置中的年份区间, 选中全部产品, 果蔬默认Total视图
func defaultSelection(a *app, r *registry.Registry, c registry.Category, view registry.View) selection {
	if c == registry.Produce && view == registry.ViewNone {
		view = registry.Views[0]
	}
	if c != registry.Produce {
		view = registry.ViewNone
	}
	labels := r.Labels(c)
	if c == registry.Produce {
		labels = r.ViewLabels(view)
	}
	return selection{
		category: c,
		view:     view,
		years:    registry.YearRange{Min: a.cfg.Years.From, Max: a.cfg.Years.To},
		labels:   labels,
	}
}

// ensureParent 创建文件所在目录, path为空时不做任何事
func ensureParent(path string) error {
	if path == "" {
		return nil
	}
	return os.MkdirAll(filepath.Dir(path), 0755)
}

func chartPath(dir string, c registry.Category, view registry.View) string {
	name := c.String()
	if view != registry.ViewNone {
		name += "-" + strings.ToLower(string(view))
	}
	return filepath.Join(dir, name+".png")
}

type exportTargets struct {
	xlsx, sqlite, postgres, csv, charts string
}

func (t exportTargets) empty() bool {
	return t == exportTargets{}
}

// exportTargets 命令行参数优先于配置
func (a *app) exportTargets() exportTargets {
	pick := func(flag, cfg string) string {
		if flag != "" {
			return flag
		}
		return cfg
	}
	return exportTargets{
		xlsx:     pick(exportXLSX, a.cfg.Export.XLSXPath),
		sqlite:   pick(exportSQLite, a.cfg.Export.SQLitePath),
		postgres: pick(exportPostgres, a.cfg.Export.PostgresDSN),
		csv:      pick(exportCSV, a.cfg.Export.CSVDir),
		charts:   pick(exportCharts, a.cfg.Export.ChartsDir),
	}
}

// runExport 写出表格和图表, watch 的定时快照也走这里
func runExport(a *app, r *registry.Registry, t exportTargets) error {
	for _, path := range []string{t.xlsx, t.sqlite} {
		if err := ensureParent(path); err != nil {
			return err
		}
	}

	writers, err := openWriters(t)
	if err != nil {
		return err
	}

	err = datapush.Export(r, a.logger, writers...)
	err = errors.Join(err, datapush.CloseAll(writers))
	if t.charts != "" {
		err = errors.Join(err, renderAll(a, r, t.charts))
	}
	if err == nil {
		a.logger.Info("export finished", zap.Int("writers", len(writers)), zap.String("charts", t.charts))
	}
	return err
}

// openWriters 按配置创建表格写入器
// 任何一个失败时, 已经创建的写入器都会关闭, 随错误一起返回
func openWriters(t exportTargets) (writers []datapush.TableWriter, err error) {
	defer func() {
		if err != nil {
			datapush.CloseAll(writers)
		}
	}()

	if t.sqlite != "" {
		w, err := datapush.NewSQLiteWriter(t.sqlite)
		if err != nil {
			return writers, err
		}
		writers = append(writers, w)
	}
	if t.csv != "" {
		w, err := datapush.NewCSVWriter(t.csv)
		if err != nil {
			return writers, err
		}
		writers = append(writers, w)
	}
	if t.postgres != "" {
		w, err := datapush.NewPostgresWriter(t.postgres, "")
		if err != nil {
			return writers, err
		}
		writers = append(writers, w)
	}
	// 工作簿在Close时才落盘, 放在最后创建, 前面失败时不会留下空文件
	if t.xlsx != "" {
		writers = append(writers, datapush.NewXLSXWriter(t.xlsx))
	}
	return writers, nil
}

// renderAll 按默认选择为每个已开放类别出图, 果蔬每个视图一张
func renderAll(a *app, r *registry.Registry, dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	var errs []error
	for _, c := range registry.Categories {
		if !c.Available() {
			continue
		}
		views := []registry.View{registry.ViewNone}
		if c == registry.Produce {
			views = registry.Views
		}
		for _, v := range views {
			sel := defaultSelection(a, r, c, v)
			obs := r.Query(sel.category, sel.years, sel.labels, sel.view)
			if err := datapush.SaveChart(chartPath(dir, c, sel.view), c, sel.view, sel.years, obs); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func printSummary(w io.Writer, r *registry.Registry) error {
	type row struct {
		Category  string   `json:"category"`
		Available bool     `json:"available"`
		Rows      int      `json:"rows"`
		From      int      `json:"from,omitempty"`
		To        int      `json:"to,omitempty"`
		Labels    []string `json:"labels"`
	}
	var rows []row
	for _, c := range registry.Categories {
		bounds, _ := r.YearBounds(c)
		rows = append(rows, row{
			Category:  c.Title(),
			Available: c.Available(),
			Rows:      len(r.Observations(c)),
			From:      bounds.Min,
			To:        bounds.Max,
			Labels:    r.Labels(c),
		})
	}
	if outputJSON {
		return writeJSON(w, rows)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CATEGORY\tROWS\tYEARS\tLABELS")
	for _, s := range rows {
		if !s.Available {
			fmt.Fprintf(tw, "%s\t-\t-\tunder construction\n", s.Category)
			continue
		}
		fmt.Fprintf(tw, "%s\t%d\t%d-%d\t%d\n", s.Category, s.Rows, s.From, s.To, len(s.Labels))
	}
	return tw.Flush()
}

func printLines(w io.Writer, lines []string) error {
	if outputJSON {
		return writeJSON(w, lines)
	}
	for _, l := range lines {
		if _, err := fmt.Fprintln(w, l); err != nil {
			return err
		}
	}
	return nil
}

func printObservations(w io.Writer, obs []registry.Observation) error {
	if outputJSON {
		return writeJSON(w, obs)
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "YEAR\tLABEL\tVALUE")
	for _, o := range obs {
		fmt.Fprintf(tw, "%d\t%s\t%g\n", o.Year, o.Label, o.Value)
	}
	return tw.Flush()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
