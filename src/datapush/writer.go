package datapush

import (
	"errors"
	"fmt"
	"time"

	"FoodDashboard/src/registry"
	"FoodDashboard/src/storage"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"go.uber.org/zap"
)

// TableWriter 把一个数据集整表写到外部存储
// 同名的表会被覆盖
type TableWriter interface {
	WriteTable(name string, df dataframe.DataFrame) error
	Close() error
}

// Export 把所有已开放类别的数据表写到每个writer
// 某个writer失败不影响其它writer, 错误合并后返回
func Export(r *registry.Registry, logger *storage.Logger, writers ...TableWriter) error {
	if logger == nil {
		logger = storage.NewNopLogger()
	}
	var errs []error
	for _, c := range registry.Categories {
		if !c.Available() {
			continue
		}
		df := r.Table(c)
		for _, w := range writers {
			if err := w.WriteTable(c.String(), df); err != nil {
				logger.Error("export failed",
					zap.String("dataset", c.String()),
					zap.String("writer", fmt.Sprintf("%T", w)),
					zap.Error(err))
				errs = append(errs, fmt.Errorf("%s: %w", c, err))
				continue
			}
			logger.Debug("dataset exported",
				zap.String("dataset", c.String()),
				zap.String("writer", fmt.Sprintf("%T", w)),
				zap.Int("rows", df.Nrow()))
		}
	}
	return errors.Join(errs...)
}

// CloseAll 关闭全部writer
func CloseAll(writers []TableWriter) error {
	var errs []error
	for _, w := range writers {
		if err := w.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// columnValues 按列类型取出的单元格值, 供数据库和表格写入使用
func columnValues(s series.Series) []any {
	out := make([]any, s.Len())
	switch s.Type() {
	case series.Int:
		ints, err := s.Int()
		if err == nil {
			for i, v := range ints {
				out[i] = v
			}
			return out
		}
	case series.Float:
		for i, v := range s.Float() {
			out[i] = v
		}
		return out
	}
	for i, v := range s.Records() {
		out[i] = v
	}
	return out
}

// sqlType 列类型到SQL类型
func sqlType(t series.Type, float string) string {
	switch t {
	case series.Int:
		return "INTEGER"
	case series.Float:
		return float
	}
	return "TEXT"
}

// 重试函数
func retry(fn func() error, times int, interval time.Duration) error {
	var err error
	for i := 0; i < times; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i < times-1 {
			time.Sleep(interval)
		}
	}
	return fmt.Errorf("failed after %d attempts: %w", times, err)
}
