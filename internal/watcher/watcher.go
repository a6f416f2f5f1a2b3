// Package watcher watches the transcript inbox with fsnotify and hands every
// settled "<video_id>.json" file to a callback.
package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const defaultSettleDelay = 400 * time.Millisecond

// ErrStopped is returned when Start is called on a stopped Watcher.
var ErrStopped = errors.New("watcher: stopped")

// Handler receives a settled inbox file and the video id taken from its name.
type Handler func(videoID, path string)

// Watcher delivers transcript files dropped into a single inbox directory.
type Watcher struct {
	inbox      string
	extensions []string
	onFile     Handler
	delay      time.Duration
	logger     *zap.Logger

	mu      sync.Mutex
	fsw     *fsnotify.Watcher
	settle  *settler
	stopped chan struct{}
	once    sync.Once
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithLogger sets the logger used for inbox events.
func WithLogger(l *zap.Logger) WatcherOption {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithDebounce sets how long a file must stay quiet before it is handled.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.delay = d
		}
	}
}

// NewWatcher creates a watcher for inbox. Only files whose extension is in
// extensions are delivered; an empty list accepts every file.
func NewWatcher(inbox string, extensions []string, onFile Handler, opts ...WatcherOption) *Watcher {
	w := &Watcher{
		inbox:      filepath.Clean(inbox),
		extensions: extensions,
		onFile:     onFile,
		delay:      defaultSettleDelay,
		logger:     zap.NewNop(),
		stopped:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.settle = newSettler(w.delay, w.deliver)
	return w
}

// Inbox returns the watched directory.
func (w *Watcher) Inbox() string {
	return w.inbox
}

// Start creates the inbox if needed and begins delivering files from it until
// ctx is cancelled or Stop is called. Calling Start twice is a no-op; a
// stopped Watcher cannot be restarted.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fsw != nil {
		return nil
	}
	select {
	case <-w.stopped:
		return ErrStopped
	default:
	}
	if err := os.MkdirAll(w.inbox, 0755); err != nil {
		return err
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fsw.Add(w.inbox); err != nil {
		_ = fsw.Close()
		return err
	}
	w.fsw = fsw
	w.logger.Info("inbox watch started",
		zap.String("inbox", w.inbox),
		zap.Strings("extensions", w.extensions),
		zap.Duration("settle", w.delay))
	go w.loop(ctx, fsw)
	return nil
}

func (w *Watcher) loop(ctx context.Context, fsw *fsnotify.Watcher) {
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case <-w.stopped:
			return
		case ev, ok := <-fsw.Events:
			if !ok {
				return
			}
			w.observe(ev)
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("inbox watch error", zap.Error(err))
		}
	}
}

// observe reacts to one fsnotify event for a direct child of the inbox.
func (w *Watcher) observe(ev fsnotify.Event) {
	path := filepath.Clean(ev.Name)
	if filepath.Dir(path) != w.inbox {
		return
	}
	if ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
		w.settle.forget(path)
		return
	}
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
		return
	}
	if !w.accepts(path) {
		return
	}
	if info, err := os.Stat(path); err != nil || info.IsDir() {
		return
	}
	w.logger.Debug("inbox file changed", zap.String("path", path), zap.Stringer("op", ev.Op))
	w.settle.touch(path)
}

// accepts reports whether path names a transcript this watcher delivers.
func (w *Watcher) accepts(path string) bool {
	if _, ok := VideoID(path); !ok {
		return false
	}
	return matchExtension(path, w.extensions)
}

func (w *Watcher) deliver(path string) {
	id, ok := VideoID(path)
	if !ok || w.onFile == nil {
		return
	}
	w.logger.Debug("inbox file settled", zap.String("video_id", id), zap.String("path", path))
	w.onFile(id, path)
}

// VideoID returns the video id encoded in an inbox file name. Hidden files
// (editor and partial-upload temporaries) carry no id.
func VideoID(path string) (string, bool) {
	name := filepath.Base(path)
	if name == "" || name[0] == '.' {
		return "", false
	}
	id := strings.TrimSuffix(name, filepath.Ext(name))
	return id, id != ""
}

func matchExtension(path string, extensions []string) bool {
	if len(extensions) == 0 {
		return true
	}
	got := normalizeExt(filepath.Ext(path))
	for _, want := range extensions {
		if normalizeExt(want) == got {
			return true
		}
	}
	return false
}

func normalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// SyncExistingFiles delivers every acceptable file already in the inbox.
// Call it after Start to pick up transcripts dropped while the server was down.
func (w *Watcher) SyncExistingFiles() {
	entries, err := os.ReadDir(w.inbox)
	if err != nil {
		w.logger.Warn("inbox scan failed", zap.String("inbox", w.inbox), zap.Error(err))
		return
	}
	delivered := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(w.inbox, e.Name())
		if w.accepts(path) {
			w.deliver(path)
			delivered++
		}
	}
	w.logger.Info("inbox scan complete", zap.String("inbox", w.inbox), zap.Int("delivered", delivered))
}

// Stop ends the watch and discards files that have not settled yet.
func (w *Watcher) Stop() {
	w.mu.Lock()
	fsw := w.fsw
	w.fsw = nil
	w.mu.Unlock()
	if fsw == nil {
		return
	}
	w.settle.drain()
	_ = fsw.Close()
	w.once.Do(func() { close(w.stopped) })
}
