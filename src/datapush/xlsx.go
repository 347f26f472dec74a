package datapush

import (
	"fmt"

	"github.com/go-gota/gota/dataframe"
	"github.com/xuri/excelize/v2"
)

const defaultSheet = "Sheet1"

// XLSXWriter 每个数据集一个工作表, Close时保存
type XLSXWriter struct {
	path   string
	f      *excelize.File
	sheets int
}

// NewXLSXWriter 创建一个新的工作簿
func NewXLSXWriter(path string) *XLSXWriter {
	return &XLSXWriter{path: path, f: excelize.NewFile()}
}

// WriteTable 第一张表沿用默认工作表, 其余新建
func (x *XLSXWriter) WriteTable(name string, df dataframe.DataFrame) error {
	if x.sheets == 0 {
		if err := x.f.SetSheetName(defaultSheet, name); err != nil {
			return fmt.Errorf("xlsx rename sheet: %w", err)
		}
	} else if idx, _ := x.f.GetSheetIndex(name); idx < 0 {
		if _, err := x.f.NewSheet(name); err != nil {
			return fmt.Errorf("xlsx new sheet: %w", err)
		}
	}
	x.sheets++

	// 写入列名
	colNames := df.Names()
	for i, colName := range colNames {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := x.f.SetCellValue(name, cell, colName); err != nil {
			return err
		}
	}

	// 写入数据
	for colIdx, colName := range colNames {
		values := columnValues(df.Col(colName))
		for rowIdx, val := range values {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			if err := x.f.SetCellValue(name, cell, val); err != nil {
				return err
			}
		}
	}
	return nil
}

// Close 保存文件
func (x *XLSXWriter) Close() error {
	defer x.f.Close()
	if err := x.f.SaveAs(x.path); err != nil {
		return fmt.Errorf("failed to save workbook %s: %w", x.path, err)
	}
	return nil
}
