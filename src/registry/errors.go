package registry

import "fmt"

// BuildError 某个类别的数据无法构建, 启动应当中止
type BuildError struct {
	Category Category
	Err      error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("build %s: %v", e.Category, e.Err)
}

func (e *BuildError) Unwrap() error { return e.Err }
