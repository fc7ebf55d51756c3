package ingestcmder

import (
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("addWatchDirs", func() {
	var tmpDir string

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "watch-test-*")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	It("watches the root and all subdirectories", func() {
		nested := filepath.Join(tmpDir, "guides", "advanced")
		err := os.MkdirAll(nested, 0o755)
		Expect(err).NotTo(HaveOccurred())

		watcher, err := fsnotify.NewWatcher()
		Expect(err).NotTo(HaveOccurred())
		defer watcher.Close()

		err = addWatchDirs(watcher, tmpDir)
		Expect(err).NotTo(HaveOccurred())

		watched := watcher.WatchList()
		Expect(watched).To(ContainElement(tmpDir))
		Expect(watched).To(ContainElement(filepath.Join(tmpDir, "guides")))
		Expect(watched).To(ContainElement(nested))
	})

	It("skips hidden directories", func() {
		hidden := filepath.Join(tmpDir, ".folio")
		err := os.MkdirAll(hidden, 0o755)
		Expect(err).NotTo(HaveOccurred())

		watcher, err := fsnotify.NewWatcher()
		Expect(err).NotTo(HaveOccurred())
		defer watcher.Close()

		err = addWatchDirs(watcher, tmpDir)
		Expect(err).NotTo(HaveOccurred())

		Expect(watcher.WatchList()).NotTo(ContainElement(hidden))
	})

	It("does not watch plain files", func() {
		filePath := filepath.Join(tmpDir, "notes.md")
		err := os.WriteFile(filePath, []byte("# notes"), 0o644)
		Expect(err).NotTo(HaveOccurred())

		watcher, err := fsnotify.NewWatcher()
		Expect(err).NotTo(HaveOccurred())
		defer watcher.Close()

		err = addWatchDirs(watcher, tmpDir)
		Expect(err).NotTo(HaveOccurred())

		Expect(watcher.WatchList()).NotTo(ContainElement(filePath))
	})

	It("fails for a nonexistent root", func() {
		watcher, err := fsnotify.NewWatcher()
		Expect(err).NotTo(HaveOccurred())
		defer watcher.Close()

		err = addWatchDirs(watcher, filepath.Join(tmpDir, "missing"))
		Expect(err).To(HaveOccurred())
	})
})
