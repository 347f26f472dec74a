package datapush

import (
	"database/sql"
	"fmt"
	"strings"

	"FoodDashboard/src/datasource/file"
	"FoodDashboard/src/processor"

	"github.com/go-gota/gota/dataframe"
	_ "modernc.org/sqlite"
)

// SQLiteWriter 每个数据集一张表, 每次写入先删表重建
type SQLiteWriter struct {
	db *sql.DB
}

func NewSQLiteWriter(path string) (*SQLiteWriter, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}
	return &SQLiteWriter{db: db}, nil
}

func (s *SQLiteWriter) WriteTable(name string, df dataframe.DataFrame) error {
	cols := df.Names()
	var defs, qCols []string
	for _, c := range cols {
		defs = append(defs, fmt.Sprintf("%q %s", c, sqlType(df.Col(c).Type(), "REAL")))
		qCols = append(qCols, fmt.Sprintf("%q", c))
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(fmt.Sprintf(`DROP TABLE IF EXISTS %q`, name)); err != nil {
		return err
	}
	if _, err := tx.Exec(fmt.Sprintf(`CREATE TABLE %q (%s)`, name, strings.Join(defs, ","))); err != nil {
		return err
	}

	ph := strings.TrimRight(strings.Repeat("?,", len(cols)), ",")
	stmt, err := tx.Prepare(fmt.Sprintf(`INSERT INTO %q (%s) VALUES (%s)`, name, strings.Join(qCols, ","), ph))
	if err != nil {
		return err
	}
	defer stmt.Close()

	columns := make([][]any, len(cols))
	for i, c := range cols {
		columns[i] = columnValues(df.Col(c))
	}
	for row := 0; row < df.Nrow(); row++ {
		args := make([]any, len(cols))
		for i := range cols {
			args[i] = columns[i][row]
		}
		if _, err := stmt.Exec(args...); err != nil {
			return fmt.Errorf("sqlite: insert %s row %d: %w", name, row+1, err)
		}
	}

	for _, col := range []string{file.ColYear, processor.ColLabel} {
		idx := fmt.Sprintf(`CREATE INDEX IF NOT EXISTS "idx_%s_%s" ON %q(%q)`, name, strings.ToLower(col), name, col)
		if _, err := tx.Exec(idx); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteWriter) Close() error {
	return s.db.Close()
}
