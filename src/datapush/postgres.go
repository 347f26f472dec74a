package datapush

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"
	_ "github.com/lib/pq"
)

const (
	pgBatchSize     = 50
	pgPingAttempts  = 5
	pgRetryInterval = 2 * time.Second
)

// PostgresWriter 把数据集写到PostgreSQL, 表名为 <prefix><dataset>
type PostgresWriter struct {
	db     *sql.DB
	prefix string
}

// NewPostgresWriter 连接数据库, 数据库还没就绪时重试
func NewPostgresWriter(dsn, prefix string) (*PostgresWriter, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}
	if err := retry(db.Ping, pgPingAttempts, pgRetryInterval); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	return &PostgresWriter{db: db, prefix: prefix}, nil
}

// WriteTable 在一个事务里删表、建表、分批插入
func (pw *PostgresWriter) WriteTable(name string, df dataframe.DataFrame) error {
	table := pw.prefix + name
	cols := df.Names()
	var defs, qCols []string
	for _, c := range cols {
		defs = append(defs, fmt.Sprintf("%q %s", c, sqlType(df.Col(c).Type(), "DOUBLE PRECISION")))
		qCols = append(qCols, fmt.Sprintf("%q", c))
	}

	tx, err := pw.db.Begin()
	if err != nil {
		return fmt.Errorf("postgres: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(fmt.Sprintf(`DROP TABLE IF EXISTS %q`, table)); err != nil {
		return fmt.Errorf("postgres: drop %s: %w", table, err)
	}
	if _, err := tx.Exec(fmt.Sprintf(`CREATE TABLE %q (%s)`, table, strings.Join(defs, ", "))); err != nil {
		return fmt.Errorf("postgres: create %s: %w", table, err)
	}

	columns := make([][]any, len(cols))
	for i, c := range cols {
		columns[i] = columnValues(df.Col(c))
	}
	for start := 0; start < df.Nrow(); start += pgBatchSize {
		end := min(start+pgBatchSize, df.Nrow())
		if err := insertBatch(tx, table, qCols, columns, start, end); err != nil {
			return fmt.Errorf("postgres: insert %s: %w", table, err)
		}
	}
	return tx.Commit()
}

func insertBatch(tx *sql.Tx, table string, qCols []string, columns [][]any, start, end int) error {
	n := len(qCols)
	valueStrings := make([]string, 0, end-start)
	valueArgs := make([]any, 0, (end-start)*n)

	for row := start; row < end; row++ {
		base := (row - start) * n
		ph := make([]string, n)
		for i := range ph {
			ph[i] = fmt.Sprintf("$%d", base+i+1)
			valueArgs = append(valueArgs, columns[i][row])
		}
		valueStrings = append(valueStrings, "("+strings.Join(ph, ",")+")")
	}

	query := fmt.Sprintf(`INSERT INTO %q (%s) VALUES %s`,
		table, strings.Join(qCols, ","), strings.Join(valueStrings, ","))
	_, err := tx.Exec(query, valueArgs...)
	return err
}

// RowCount 表中的行数
func (pw *PostgresWriter) RowCount(name string) (int, error) {
	var n int
	err := pw.db.QueryRow(fmt.Sprintf(`SELECT COUNT(*) FROM %q`, pw.prefix+name)).Scan(&n)
	return n, err
}

// DropTable 删除表, 测试清理用
func (pw *PostgresWriter) DropTable(name string) error {
	_, err := pw.db.Exec(fmt.Sprintf(`DROP TABLE IF EXISTS %q`, pw.prefix+name))
	return err
}

func (pw *PostgresWriter) Close() error {
	return pw.db.Close()
}
