package catalog

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"tattoo-ai-api/pkg/logger"
	"tattoo-ai-api/pkg/metrics"
)

// DefaultDebounce 合并编辑器连续写入产生的多次事件
const DefaultDebounce = 100 * time.Millisecond

// Watcher 监听外部规则表文件，变更后整体重新解析并原子替换 Store 中的版本。
// 解析失败时保留旧版本。
type Watcher struct {
	store    *Store
	path     string
	debounce time.Duration
	fw       *fsnotify.Watcher

	mu    sync.Mutex
	timer *time.Timer

	stopOnce sync.Once
	done     chan struct{}
}

// NewWatcher 创建规则表监听器，监听文件所在目录以兼容编辑器的 rename 写入方式
func NewWatcher(store *Store, path string, debounce time.Duration) (*Watcher, error) {
	if store == nil {
		return nil, errors.New("catalog store is nil")
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		_ = fw.Close()
		return nil, err
	}

	return &Watcher{
		store:    store,
		path:     abs,
		debounce: debounce,
		fw:       fw,
		done:     make(chan struct{}),
	}, nil
}

// Start 在后台处理文件事件，直到 ctx 取消或 Close 被调用
func (w *Watcher) Start(ctx context.Context) {
	go w.loop(ctx)
}

func (w *Watcher) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			_ = w.Close()
			return
		case <-w.done:
			return
		case ev, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
				w.schedule(ctx)
			}
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			logger.Warn(ctx, "catalog watcher error", "path", w.path, "error", err.Error())
		}
	}
}

func (w *Watcher) schedule(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() { w.Reload(ctx) })
}

// Reload 立即重新加载规则表
func (w *Watcher) Reload(ctx context.Context) {
	select {
	case <-w.done:
		return
	default:
	}

	t, err := LoadFile(w.path)
	if err != nil {
		metrics.CatalogReloadTotal.WithLabelValues("error").Inc()
		logger.Error(ctx, "catalog reload failed, keeping previous version", err,
			"path", w.path,
			"version", w.store.Version(),
		)
		return
	}

	old := w.store.Swap(t)
	metrics.CatalogReloadTotal.WithLabelValues("ok").Inc()

	prev := ""
	if old != nil {
		prev = old.Version
	}
	logger.Info(ctx, "catalog reloaded",
		"path", w.path,
		"previous_version", prev,
		"version", t.Version,
	)
}

// Close 停止监听
func (w *Watcher) Close() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.done)
		w.mu.Lock()
		if w.timer != nil {
			w.timer.Stop()
		}
		w.mu.Unlock()
		err = w.fw.Close()
	})
	return err
}
