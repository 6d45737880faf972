package feed

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/fsnotify/fsnotify"

	"github.com/drewnoakes/biggus-griddus/internal/config"
)

// instrumentsFile is the TOML shape of an instruments file.
type instrumentsFile struct {
	Symbols []string `toml:"symbols"`
}

// LoadInstruments reads the instrument universe from a TOML file. The file
// must list at least one symbol.
func LoadInstruments(path string) ([]string, error) {
	var f instrumentsFile
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return nil, fmt.Errorf("loading instruments: %w", err)
	}
	if len(f.Symbols) == 0 {
		return nil, fmt.Errorf("instruments file %s lists no symbols", path)
	}
	return f.Symbols, nil
}

// DefaultInstruments is the universe used when no instruments file exists.
var DefaultInstruments = []string{
	"ACME", "GLBX", "INIT", "MASS", "OKON", "PIED", "RVIA", "SITW", "UMBR", "WAYN",
}

// HotLoader watches the instruments file and pushes the reloaded universe
// to the feed, debouncing bursts of write events from editors.
type HotLoader struct {
	config  *config.Config
	path    string
	watcher *fsnotify.Watcher
	apply   func(symbols []string)

	pendingAt     time.Time
	pending       bool
	debounceMu    sync.Mutex
	debounceDelay time.Duration

	done chan struct{}
}

// NewHotLoader creates a hot loader for the instruments file at path. Each
// successful reload invokes apply with the new universe.
func NewHotLoader(cfg *config.Config, path string, apply func(symbols []string)) (*HotLoader, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &HotLoader{
		config:        cfg,
		path:          path,
		watcher:       watcher,
		apply:         apply,
		debounceDelay: 100 * time.Millisecond,
		done:          make(chan struct{}),
	}, nil
}

// Start begins watching for file changes.
func (h *HotLoader) Start() error {
	if err := h.watcher.Add(h.path); err != nil {
		return err
	}

	go h.eventLoop()
	go h.debounceLoop()

	h.config.Log(1, "InstrumentHotLoader: watching %s for changes", h.path)
	return nil
}

// Stop stops the hot loader.
func (h *HotLoader) Stop() error {
	close(h.done)
	return h.watcher.Close()
}

func (h *HotLoader) eventLoop() {
	for {
		select {
		case <-h.done:
			return
		case event, ok := <-h.watcher.Events:
			if !ok {
				return
			}
			h.handleEvent(event)
		case err, ok := <-h.watcher.Errors:
			if !ok {
				return
			}
			h.config.Log(1, "InstrumentHotLoader: watcher error: %v", err)
		}
	}
}

func (h *HotLoader) handleEvent(event fsnotify.Event) {
	h.config.Log(3, "InstrumentHotLoader: event %s on %s", event.Op, event.Name)

	if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
		h.debounceMu.Lock()
		h.pendingAt = time.Now()
		h.pending = true
		h.debounceMu.Unlock()
	}

	// Some editors replace the file on save, which drops the watch.
	if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
		if _, err := os.Stat(h.path); err == nil {
			h.watcher.Add(h.path)
		}
	}
}

// debounceLoop reloads once events have been quiet for debounceDelay.
func (h *HotLoader) debounceLoop() {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-h.done:
			return
		case <-ticker.C:
			h.debounceMu.Lock()
			ready := h.pending && time.Since(h.pendingAt) >= h.debounceDelay
			if ready {
				h.pending = false
			}
			h.debounceMu.Unlock()

			if ready {
				h.reload()
			}
		}
	}
}

func (h *HotLoader) reload() {
	symbols, err := LoadInstruments(h.path)
	if err != nil {
		h.config.Log(1, "InstrumentHotLoader: reload failed: %v", err)
		return
	}

	h.config.Log(1, "InstrumentHotLoader: reloaded %d symbols", len(symbols))
	h.apply(symbols)
}
