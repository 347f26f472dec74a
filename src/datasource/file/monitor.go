// monitor.go
package file

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// FileMonitor 监控数据目录, 被跟踪的文件变化后调用handler
// 同一批变化在 debounce 时间内只触发一次
type FileMonitor struct {
	watchDir string
	watcher  *fsnotify.Watcher
	tracked  map[string]struct{}
	debounce time.Duration

	mu      sync.Mutex
	pending map[string]struct{}
}

func NewFileMonitor(dir string, files []string, debounce time.Duration) (*FileMonitor, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, err
	}

	tracked := make(map[string]struct{}, len(files))
	for _, f := range files {
		tracked[filepath.Base(f)] = struct{}{}
	}
	return &FileMonitor{
		watchDir: dir,
		watcher:  watcher,
		tracked:  tracked,
		debounce: debounce,
		pending:  make(map[string]struct{}),
	}, nil
}

// Watch 阻塞直到ctx结束或watcher出错
// handler 收到本批次变化过的文件名(不含目录)
func (m *FileMonitor) Watch(ctx context.Context, handler func(changed []string)) error {
	defer m.watcher.Close()

	var (
		timer  *time.Timer
		timerC <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-m.watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			name := filepath.Base(event.Name)
			if _, ok := m.tracked[name]; !ok {
				continue
			}
			m.mu.Lock()
			m.pending[name] = struct{}{}
			m.mu.Unlock()
			if timer == nil {
				timer = time.NewTimer(m.debounce)
			} else {
				timer.Reset(m.debounce)
			}
			timerC = timer.C
		case <-timerC:
			timerC = nil
			if changed := m.drain(); len(changed) > 0 {
				handler(changed)
			}
		case err, ok := <-m.watcher.Errors:
			if !ok {
				return nil
			}
			return err
		}
	}
}

func (m *FileMonitor) drain() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	changed := make([]string, 0, len(m.pending))
	for name := range m.pending {
		changed = append(changed, name)
	}
	m.pending = make(map[string]struct{})
	return changed
}
