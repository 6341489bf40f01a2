// Package watcher turns file system changes in the docs directory into
// reindex requests.
//
// fsnotify is the primary mechanism; when it cannot be initialized (network
// mounts, some container volumes) the watcher falls back to polling. Events
// are filtered to visible PDF files and debounced, so that copying a batch
// of documents produces one rebuild rather than one per file.
//
// Usage:
//
//	w, err := watcher.New(watcher.Options{DebounceWindow: 2 * time.Second})
//	if err != nil {
//	    return err
//	}
//	defer w.Stop()
//
//	go func() { _ = w.Start(ctx, docsDir) }()
//	auto := watcher.NewAutoReindex(w, svc, logger)
//	auto.Run(ctx)
package watcher
