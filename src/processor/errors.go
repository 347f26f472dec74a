package processor

import (
	"fmt"
	"strings"
)

// UnmappedLabelError 严格映射表中缺少部分原始值
// Expected 是映射表中全部的原始值, 便于对照修正
type UnmappedLabelError struct {
	Dataset  string
	Values   []string
	Expected []string
}

func (e *UnmappedLabelError) Error() string {
	msg := fmt.Sprintf("%s: no display label for attribute(s): %s", e.Dataset, strings.Join(e.Values, "; "))
	if len(e.Expected) > 0 {
		msg += fmt.Sprintf(" (known: %s)", strings.Join(e.Expected, "; "))
	}
	return msg
}
