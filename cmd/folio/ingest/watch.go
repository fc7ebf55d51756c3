package ingestcmder

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/foliodocs/folio/pkg/cliui"
	"github.com/foliodocs/folio/pkg/corpus"
	"github.com/foliodocs/folio/pkg/ingest"
)

// watchDebounce coalesces editor write bursts into one re-ingest per file.
const watchDebounce = 500 * time.Millisecond

func (c *ingestCommander) runWatch(ctx context.Context, root string, pipeline *ingest.Pipeline) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("starting watcher: %w", err)
	}
	defer watcher.Close()

	if err := addWatchDirs(watcher, root); err != nil {
		return err
	}

	fmt.Printf("\n  %s Watching %s for changes %s\n\n",
		cliui.DimStyle.Render("●"),
		cliui.NameStyle.Render(root),
		cliui.DimStyle.Render("(Ctrl-C to stop)"),
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	// Timers are created and cleared on this goroutine only; the timer
	// callback just forwards the path.
	timers := make(map[string]*time.Timer)
	fire := make(chan string, 16)

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if event.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(event.Name); statErr == nil && info.IsDir() {
					if !strings.HasPrefix(filepath.Base(event.Name), ".") {
						_ = watcher.Add(event.Name)
					}
					continue
				}
			}

			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}

			if !corpus.IsCorpusFile(event.Name) {
				continue
			}

			path := event.Name
			if timer, ok := timers[path]; ok {
				timer.Stop()
			}
			timers[path] = time.AfterFunc(watchDebounce, func() {
				fire <- path
			})

		case path := <-fire:
			delete(timers, path)
			c.reingest(ctx, root, path, pipeline)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watching %s: %w", root, err)

		case <-sigChan:
			fmt.Printf("\n  %s Stopped watching.\n\n", cliui.DimStyle.Render("●"))
			return nil

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (c *ingestCommander) reingest(ctx context.Context, root, path string, pipeline *ingest.Pipeline) {
	doc, err := corpus.LoadFile(root, path)
	if err != nil {
		fmt.Printf("  %s %s  %s\n", cliui.FailMark, path, cliui.WarnStyle.Render(err.Error()))
		return
	}

	summary, err := pipeline.Run(ctx, []corpus.Document{doc})
	if err != nil {
		fmt.Printf("  %s %s  %s\n", cliui.FailMark, doc.Source, cliui.WarnStyle.Render(err.Error()))
		return
	}

	for i := range summary.Results {
		printResultLine(summary.Results[i], 0)
	}
}

// addWatchDirs registers root and every non-hidden subdirectory with the
// watcher. fsnotify watches are not recursive.
func addWatchDirs(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if !d.IsDir() {
			return nil
		}

		if strings.HasPrefix(d.Name(), ".") && path != root {
			return filepath.SkipDir
		}

		if err := watcher.Add(path); err != nil {
			return fmt.Errorf("watching %s: %w", path, err)
		}

		return nil
	})
}
