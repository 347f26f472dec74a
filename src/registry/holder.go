package registry

import "sync/atomic"

// Holder 持有当前生效的Registry
// 监控模式下重建完成后整体替换, 读取方拿到的始终是一个完整的快照
type Holder struct {
	current atomic.Pointer[Registry]
}

// NewHolder r可以为nil
func NewHolder(r *Registry) *Holder {
	h := &Holder{}
	if r != nil {
		h.current.Store(r)
	}
	return h
}

// Load 返回当前的Registry, 尚未构建成功时为nil
func (h *Holder) Load() *Registry { return h.current.Load() }

// Store 替换当前的Registry, 返回旧值
func (h *Holder) Store(r *Registry) *Registry { return h.current.Swap(r) }
