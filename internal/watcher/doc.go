// Package watcher reports changes to song files under a directory.
//
// fsnotify is used when available, with polling as a fallback for
// filesystems that do not deliver notifications (network mounts, some
// container volumes). Events are debounced so an editor's burst of writes
// arrives as one change, and filtered to song file extensions.
//
// Usage:
//
//	w := watcher.New(watcher.Options{Extensions: []string{".song"}})
//	defer w.Stop()
//	go func() { _ = w.Start(ctx, dir) }()
//
//	for batch := range w.Events() {
//	    for _, ev := range batch {
//	        // ev.Path is relative to dir
//	    }
//	}
package watcher
