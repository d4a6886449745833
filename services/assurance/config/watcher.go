// Copyright (C) 2025 Mintwell Inc. (oss@mintwell.app)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/mintwell/mintwell/pkg/logging"
)

// reloadDebounce coalesces the burst of write events editors and
// config-map updates produce for a single save.
const reloadDebounce = 200 * time.Millisecond

// Watcher reloads the config file on change and hands the parsed
// result to a callback. A file that fails to load or validate is
// skipped; the previous configuration stays active.
type Watcher struct {
	path     string
	notifier *fsnotify.Watcher
	log      *logging.Logger
	onChange func(*Config)
	done     chan struct{}
}

// Watch starts watching path. onChange runs on the watcher goroutine
// for every successful reload; it must not block for long.
func Watch(path string, log *logging.Logger, onChange func(*Config)) (*Watcher, error) {
	notifier, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	// Watch the directory, not the file: editors replace files by
	// rename, which drops a direct file watch.
	if err := notifier.Add(filepath.Dir(path)); err != nil {
		notifier.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}

	w := &Watcher{
		path:     path,
		notifier: notifier,
		log:      log,
		onChange: onChange,
		done:     make(chan struct{}),
	}
	go w.run()
	return w, nil
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	err := w.notifier.Close()
	<-w.done
	return err
}

func (w *Watcher) run() {
	defer close(w.done)

	var pending *time.Timer
	reload := make(chan struct{}, 1)

	for {
		select {
		case event, ok := <-w.notifier.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if pending != nil {
				pending.Stop()
			}
			pending = time.AfterFunc(reloadDebounce, func() {
				select {
				case reload <- struct{}{}:
				default:
				}
			})

		case <-reload:
			cfg, err := Load(w.path)
			if err != nil {
				w.log.Warn("config reload skipped", "path", w.path, "error", err)
				continue
			}
			w.log.Info("config reloaded", "path", w.path)
			w.onChange(cfg)

		case err, ok := <-w.notifier.Errors:
			if !ok {
				return
			}
			w.log.Warn("config watcher error", "error", err)
		}
	}
}
