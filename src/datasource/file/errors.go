package file

import "fmt"

// MalformedInputError 数据文件缺少必需的列
type MalformedInputError struct {
	Source string
	Column string
}

func (e *MalformedInputError) Error() string {
	return fmt.Sprintf("%s: required column %q is missing", e.Source, e.Column)
}

// ValueCoercionError 非占位符的值无法转换为数字
// Row 从1开始, 不含表头
type ValueCoercionError struct {
	Source string
	Row    int
	Column string
	Value  string
}

func (e *ValueCoercionError) Error() string {
	return fmt.Sprintf("%s: row %d: column %s: cannot parse %q as a number", e.Source, e.Row, e.Column, e.Value)
}
