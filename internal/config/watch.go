package config

import (
	"context"
	"errors"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// Watcher reloads the configuration when the YAML file named by
// CMS_CONFIG_FILE changes. It watches the parent directory so that editors
// replacing the file by rename are seen too.
type Watcher struct {
	fw     *fsnotify.Watcher
	path   string
	getenv func(string) string
	log    logrus.FieldLogger
}

// NewWatcher starts watching the config file. It fails when no file is configured.
func NewWatcher(getenv func(string) string, log logrus.FieldLogger) (*Watcher, error) {
	path := strings.TrimSpace(getenv("CMS_CONFIG_FILE"))
	if path == "" {
		return nil, errors.New("no config file to watch (CMS_CONFIG_FILE)")
	}
	path, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(filepath.Dir(path)); err != nil {
		_ = fw.Close()
		return nil, err
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Watcher{fw: fw, path: path, getenv: getenv, log: log}, nil
}

// Run delivers every successfully reloaded Config to onChange until ctx is done.
// Reloads that fail to parse are logged and skipped.
func (w *Watcher) Run(ctx context.Context, onChange func(Config)) {
	defer w.fw.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path || !(ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create)) {
				continue
			}
			cfg, err := LoadFrom(w.getenv)
			if err != nil {
				w.log.WithError(err).Warn("config reload failed")
				continue
			}
			onChange(cfg)
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			w.log.WithError(err).Warn("config watcher error")
		}
	}
}
