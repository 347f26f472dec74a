package processor

import (
	"sort"
	"strings"

	"FoodDashboard/src/utils"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Match 关键字过滤规则: 保留Column包含Include中任一关键字且不包含Exclude中任一关键字的行
// Include 为空表示不限制
type Match struct {
	Column  string
	Include []string
	Exclude []string
}

// Keep 判断一个值是否满足规则
func (m Match) Keep(value string) bool {
	if len(m.Include) > 0 && !utils.ContainsAny(value, m.Include) {
		return false
	}
	return !utils.ContainsAny(value, m.Exclude)
}

// Class 一个分类取值及其关键字
type Class struct {
	Value string
	Any   []string
}

// Dimension 从Attribute推导出的分类维度
// Classes 按顺序匹配, 第一个命中的生效; 都不命中时为空字符串
type Dimension struct {
	Column  string
	Classes []Class
}

// Classify 返回attr所属的分类, 未分类返回 ""
func (d Dimension) Classify(attr string) string {
	for _, c := range d.Classes {
		if utils.ContainsAny(attr, c.Any) {
			return c.Value
		}
	}
	return ""
}

// Step 显示名称的一步转换
type Step func(string) string

// CutFrom 去掉sep第一次出现位置及之后的内容
func CutFrom(sep string) Step {
	return func(s string) string {
		before, _, _ := strings.Cut(s, sep)
		return before
	}
}

// RemoveAll 依次删除所有给定子串
func RemoveAll(subs ...string) Step {
	return func(s string) string {
		for _, sub := range subs {
			s = strings.ReplaceAll(s, sub, "")
		}
		return s
	}
}

// TitleCase 每个单词首字母大写, 其余小写
// 撇号后面的字母不大写: "o'brien" -> "O'brien"
func TitleCase() Step {
	return func(s string) string {
		// cases.Caser 有状态, 不能在goroutine之间共享
		return cases.Title(language.English).String(s)
	}
}

// TrimSpace 去掉两端空白
func TrimSpace() Step {
	return strings.TrimSpace
}

// Mapping 原始值到显示名称的显式映射
// Strict 为true时, 出现映射表之外的值会导致构建失败; 否则原样保留
type Mapping struct {
	Values map[string]string
	Strict bool
}

// Lookup 返回映射后的名称, ok表示是否在映射表中
func (m Mapping) Lookup(attr string) (string, bool) {
	v, ok := m.Values[attr]
	if !ok {
		return attr, false
	}
	return v, true
}

// Keys 映射表中的全部原始值, 已排序
func (m Mapping) Keys() []string {
	keys := make([]string, 0, len(m.Values))
	for k := range m.Values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Relabel 由Attribute生成显示名称: 有Mapping时查表, 否则依次执行Steps
type Relabel struct {
	Steps   []Step
	Mapping *Mapping
}

// Apply 对单个值生成显示名称
func (r Relabel) Apply(attr string) (string, bool) {
	if r.Mapping != nil {
		return r.Mapping.Lookup(attr)
	}
	for _, step := range r.Steps {
		attr = step(attr)
	}
	return attr, true
}

// sortedKeys 用于错误信息, 保证输出稳定
func sortedKeys(m map[string]struct{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
