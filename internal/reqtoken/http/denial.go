package http

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"github.com/aussiebroadwan/reqtoken/internal/reqtoken/domain"
	"github.com/aussiebroadwan/reqtoken/pkg/httpx"
	"github.com/aussiebroadwan/reqtoken/pkg/slogx"
	"github.com/fsnotify/fsnotify"
)

const reloadDelay = 500 * time.Millisecond

// DenialData is what a custom denial template is rendered with. Claims and
// error messages are never exposed.
type DenialData struct {
	Code           string
	Classification string
}

// DenialRenderer writes the 403 response for hard failures. Without a
// template, or when the template fails, a plain text page is used.
type DenialRenderer struct {
	path   string
	logger *slog.Logger

	mu   sync.RWMutex
	tmpl *template.Template
}

// NewDenialRenderer loads the template at path. An empty path selects the
// plain text page, so does a template that cannot be loaded.
func NewDenialRenderer(path string, logger *slog.Logger) *DenialRenderer {
	d := &DenialRenderer{path: path, logger: logger}
	if path == "" {
		return d
	}
	if err := d.load(); err != nil {
		logger.Error("denial template unusable, using plain text", slog.Any("error", err))
	}
	return d
}

// load parses the template file. On failure the plain text page is used
// until the file is fixed.
func (d *DenialRenderer) load() error {
	tmpl, err := template.ParseFiles(d.path)
	if err != nil {
		tmpl = nil
		err = fmt.Errorf("parse denial template: %w", err)
	}
	d.mu.Lock()
	d.tmpl = tmpl
	d.mu.Unlock()
	return err
}

func (d *DenialRenderer) current() *template.Template {
	if d == nil {
		return nil
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.tmpl
}

// Render writes the denial. A nil renderer writes the plain text page.
func (d *DenialRenderer) Render(w http.ResponseWriter, r *http.Request, code string, err error) {
	httpx.NoCache(w)

	if tmpl := d.current(); tmpl != nil {
		var buf bytes.Buffer
		data := DenialData{Code: code, Classification: domain.Classify(err)}
		execErr := tmpl.Execute(&buf, data)
		if execErr == nil {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.WriteHeader(http.StatusForbidden)
			_, _ = buf.WriteTo(w)
			return
		}
		slogx.FromContext(r.Context()).Error("failed to render denial template", slog.Any("error", execErr))
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusForbidden)
	_, _ = fmt.Fprintf(w, "Invalid URL token (code: %s)\n", code)
}

// Watch reloads the template when its file changes until ctx is done.
// Editors often replace files rather than write them, so the directory is
// watched and events are filtered by name.
func (d *DenialRenderer) Watch(ctx context.Context) error {
	if d.path == "" {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(d.path)); err != nil {
		_ = watcher.Close()
		return err
	}

	reload := make(chan struct{}, 1)
	go d.scheduleReload(ctx, reload)
	go d.handleWatcher(ctx, watcher, reload)
	return nil
}

func (d *DenialRenderer) handleWatcher(ctx context.Context, watcher *fsnotify.Watcher, reload chan<- struct{}) {
	defer watcher.Close()

	name := filepath.Clean(d.path)
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != name {
				continue
			}
			if event.Has(fsnotify.Write | fsnotify.Remove | fsnotify.Create | fsnotify.Rename) {
				select {
				case reload <- struct{}{}:
				default:
				}
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			d.logger.Warn("denial template watcher error", slog.Any("error", err))
		}
	}
}

func (d *DenialRenderer) scheduleReload(ctx context.Context, reload <-chan struct{}) {
	var timer *time.Timer
	var c <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return

		case <-reload:
			if timer != nil {
				timer.Reset(reloadDelay)
			} else {
				timer = time.NewTimer(reloadDelay)
				c = timer.C
			}

		case <-c:
			c = nil
			timer = nil
			if err := d.load(); err != nil {
				d.logger.Error("failed to reload denial template", slog.Any("error", err))
				continue
			}
			d.logger.Info("denial template reloaded", slog.String("path", d.path))
		}
	}
}
