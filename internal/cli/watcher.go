package cli

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

const watchDebounce = 200 * time.Millisecond

// ServiceWatcher calls onChange when one of a fixed set of files is written.
// It watches the parent directories, so editors that save by renaming a temp
// file over the original are still seen. Bursts of events for one file are
// coalesced into a single call.
type ServiceWatcher struct {
	fs       *fsnotify.Watcher
	files    map[string]bool
	debounce time.Duration
	onChange func(path string)

	mu      sync.Mutex
	pending map[string]*time.Timer

	wg   sync.WaitGroup
	done chan struct{}
}

// NewServiceWatcher creates a watcher for files. Empty paths are ignored.
func NewServiceWatcher(files []string, onChange func(path string)) (*ServiceWatcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	sw := &ServiceWatcher{
		fs:       fsw,
		files:    make(map[string]bool, len(files)),
		debounce: watchDebounce,
		onChange: onChange,
		pending:  make(map[string]*time.Timer),
		done:     make(chan struct{}),
	}

	dirs := make(map[string]bool)
	for _, f := range files {
		if f == "" {
			continue
		}
		abs, err := filepath.Abs(f)
		if err != nil {
			_ = fsw.Close()
			return nil, err
		}
		sw.files[abs] = true
		dirs[filepath.Dir(abs)] = true
	}

	for dir := range dirs {
		if err := fsw.Add(dir); err != nil {
			_ = fsw.Close()
			return nil, err
		}
	}

	return sw, nil
}

// Start processes events until ctx is done or Stop is called.
func (sw *ServiceWatcher) Start(ctx context.Context) {
	sw.wg.Add(1)
	go func() {
		defer sw.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case <-sw.done:
				return
			case event, ok := <-sw.fs.Events:
				if !ok {
					return
				}
				sw.handle(event)
			case err, ok := <-sw.fs.Errors:
				if !ok {
					return
				}
				log.Error().Err(err).Msg("Watcher error")
			}
		}
	}()
}

func (sw *ServiceWatcher) handle(event fsnotify.Event) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return
	}
	path, err := filepath.Abs(event.Name)
	if err != nil || !sw.files[path] {
		return
	}

	sw.mu.Lock()
	defer sw.mu.Unlock()

	if timer, ok := sw.pending[path]; ok {
		timer.Stop()
	}
	sw.pending[path] = time.AfterFunc(sw.debounce, func() {
		sw.mu.Lock()
		delete(sw.pending, path)
		sw.mu.Unlock()

		select {
		case <-sw.done:
			return
		default:
		}

		log.Debug().Str("event", event.Op.String()).Str("path", path).Msg("Service file changed")
		if sw.onChange != nil {
			sw.onChange(path)
		}
	})
}

// Stop stops watching. Pending notifications are dropped.
func (sw *ServiceWatcher) Stop() error {
	close(sw.done)
	sw.wg.Wait()

	sw.mu.Lock()
	for path, timer := range sw.pending {
		timer.Stop()
		delete(sw.pending, path)
	}
	sw.mu.Unlock()

	return sw.fs.Close()
}
