package utils

import (
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

func Contains[T comparable](slice []T, item T) bool {
	for _, v := range slice {
		if v == item {
			return true
		}
	}
	return false
}

// 辅助函数：判断DataFrame是否有某列
func HasColumn(df dataframe.DataFrame, name string) bool {
	for _, n := range df.Names() {
		if n == name {
			return true
		}
	}
	return false
}

// MissingColumns 返回df中缺少的列名, 顺序与names一致
func MissingColumns(df dataframe.DataFrame, names ...string) []string {
	var missing []string
	for _, name := range names {
		if !HasColumn(df, name) {
			missing = append(missing, name)
		}
	}
	return missing
}

// ContainsAny 判断s是否包含keywords中任意一个子串
func ContainsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

// UniqueInOrder 按首次出现的顺序去重, 空字符串跳过
func UniqueInOrder(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// IsMissing 空白字符串或NaN都视为缺失
func IsMissing(e series.Element) bool {
	return e.IsNA() || strings.TrimSpace(e.String()) == ""
}

// MapStrings 对字符串列逐个应用f, 返回同名的新列
// 缺失元素原样保留, 不经过f
func MapStrings(s series.Series, f func(string) string) series.Series {
	records := s.Records()
	out := make([]string, len(records))
	for i, r := range records {
		if s.Elem(i).IsNA() {
			out[i] = "NaN"
			continue
		}
		out[i] = f(r)
	}
	return series.New(out, series.String, s.Name)
}

// FilterStrings 按列值过滤行, keep返回true的行保留
func FilterStrings(df dataframe.DataFrame, col string, keep func(string) bool) dataframe.DataFrame {
	if df.Nrow() == 0 {
		return df
	}
	return df.Filter(dataframe.F{
		Colname:    col,
		Comparator: series.CompFunc,
		Comparando: func(el series.Element) bool {
			return keep(el.String())
		},
	})
}
