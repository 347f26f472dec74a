package datapush

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-gota/gota/dataframe"
)

// CSVWriter 每个数据集写成 dir/<name>.csv
type CSVWriter struct {
	dir string
}

func NewCSVWriter(dir string) (*CSVWriter, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", dir, err)
	}
	return &CSVWriter{dir: dir}, nil
}

func (c *CSVWriter) WriteTable(name string, df dataframe.DataFrame) error {
	path := filepath.Join(c.dir, name+".csv")
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := df.WriteCSV(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

func (c *CSVWriter) Close() error { return nil }
