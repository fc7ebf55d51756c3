package initcmder_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	initcmder "github.com/foliodocs/folio/cmd/folio/init"
	"github.com/foliodocs/folio/pkg/config"
)

var _ = Describe("NewInitCmd", func() {
	It("creates a command with the correct use string", func() {
		cmd := initcmder.NewInitCmd()
		Expect(cmd.Use).To(Equal("init"))
	})

	It("accepts zero arguments", func() {
		cmd := initcmder.NewInitCmd()
		err := cmd.Args(cmd, []string{})
		Expect(err).NotTo(HaveOccurred())
	})

	It("rejects any arguments", func() {
		cmd := initcmder.NewInitCmd()
		err := cmd.Args(cmd, []string{"extra"})
		Expect(err).To(HaveOccurred())
	})

	It("has a --preset flag", func() {
		cmd := initcmder.NewInitCmd()
		f := cmd.Flags().Lookup("preset")
		Expect(f).NotTo(BeNil())
		Expect(f.DefValue).To(Equal(""))
	})
})

var _ = Describe("Init command execution", func() {
	var (
		tmpDir  string
		origDir string
	)

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "folio-init-test-*")
		Expect(err).NotTo(HaveOccurred())

		origDir, err = os.Getwd()
		Expect(err).NotTo(HaveOccurred())

		err = os.Chdir(tmpDir)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		err := os.Chdir(origDir)
		Expect(err).NotTo(HaveOccurred())
		os.RemoveAll(tmpDir)
	})

	It("creates a .folio directory in the current directory", func() {
		cmd := initcmder.NewInitCmd()
		cmd.SetArgs([]string{})
		err := cmd.Execute()
		Expect(err).NotTo(HaveOccurred())

		info, err := os.Stat(filepath.Join(tmpDir, ".folio"))
		Expect(err).NotTo(HaveOccurred())
		Expect(info.IsDir()).To(BeTrue())
	})

	It("creates a config.toml with default values", func() {
		cmd := initcmder.NewInitCmd()
		cmd.SetArgs([]string{})
		err := cmd.Execute()
		Expect(err).NotTo(HaveOccurred())

		cfg := loadConfig(tmpDir)
		Expect(cfg.Version).To(Equal(config.CurrentV))
		Expect(cfg.Provider.Backend).To(Equal("ollama"))
		Expect(cfg.Provider.Model).To(Equal("mistral"))
		Expect(cfg.Provider.EmbeddingModel).To(Equal("nomic-embed-text"))
		Expect(cfg.Provider.Dimensions).To(Equal(uint(768)))
		Expect(cfg.Vector.Provider).To(Equal("sqlitevec"))
		Expect(cfg.API.Listen).To(Equal(":8080"))
	})

	It("succeeds when .folio directory already exists", func() {
		err := os.MkdirAll(filepath.Join(tmpDir, ".folio"), 0o755)
		Expect(err).NotTo(HaveOccurred())

		cmd := initcmder.NewInitCmd()
		cmd.SetArgs([]string{})
		err = cmd.Execute()
		Expect(err).NotTo(HaveOccurred())

		info, err := os.Stat(filepath.Join(tmpDir, ".folio"))
		Expect(err).NotTo(HaveOccurred())
		Expect(info.IsDir()).To(BeTrue())
	})

	It("does not touch other files when already initialized", func() {
		folioDir := filepath.Join(tmpDir, ".folio")
		err := os.MkdirAll(folioDir, 0o755)
		Expect(err).NotTo(HaveOccurred())

		testFile := filepath.Join(folioDir, "sessions.json")
		err = os.WriteFile(testFile, []byte(`{"sessions":[]}`), 0o644)
		Expect(err).NotTo(HaveOccurred())

		cmd := initcmder.NewInitCmd()
		cmd.SetArgs([]string{})
		err = cmd.Execute()
		Expect(err).NotTo(HaveOccurred())

		data, err := os.ReadFile(testFile)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(Equal(`{"sessions":[]}`))
	})

	Describe("--preset with provider presets", func() {
		It("creates config.toml with the openai preset", func() {
			cmd := initcmder.NewInitCmd()
			cmd.SetArgs([]string{"--preset", "openai"})
			err := cmd.Execute()
			Expect(err).NotTo(HaveOccurred())

			cfg := loadConfig(tmpDir)
			Expect(cfg.Provider.Backend).To(Equal("openai"))
			Expect(cfg.Provider.Model).To(Equal("gpt-4o-mini"))
			Expect(cfg.Provider.EmbeddingModel).To(Equal("text-embedding-3-small"))
			Expect(cfg.Provider.Dimensions).To(Equal(uint(1536)))
		})

		It("creates config.toml with the ollama preset", func() {
			cmd := initcmder.NewInitCmd()
			cmd.SetArgs([]string{"--preset", "ollama"})
			err := cmd.Execute()
			Expect(err).NotTo(HaveOccurred())

			cfg := loadConfig(tmpDir)
			Expect(cfg.Provider.Backend).To(Equal("ollama"))
			Expect(cfg.Provider.EmbeddingModel).To(Equal("nomic-embed-text"))
			Expect(cfg.Provider.Dimensions).To(Equal(uint(768)))
		})

		It("rejects unknown preset names", func() {
			cmd := initcmder.NewInitCmd()
			cmd.SetArgs([]string{"--preset", "invalid-provider"})
			err := cmd.Execute()
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("unknown preset"))
		})
	})

	Describe("--preset with remote URL", func() {
		It("fetches and writes remote config.toml", func() {
			remoteCfg := `version = 0

[provider]
backend = "openai"
model = "gpt-4o"
embedding_model = "text-embedding-3-large"
dimensions = 3072

[vector]
provider = "qdrant"
qdrant_addr = "qdrant.internal:6334"
`
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "text/plain")
				fmt.Fprint(w, remoteCfg)
			}))
			defer server.Close()

			cmd := initcmder.NewInitCmd()
			cmd.SetArgs([]string{"--preset", server.URL})
			err := cmd.Execute()
			Expect(err).NotTo(HaveOccurred())

			cfg := loadConfig(tmpDir)
			Expect(cfg.Provider.Backend).To(Equal("openai"))
			Expect(cfg.Provider.Model).To(Equal("gpt-4o"))
			Expect(cfg.Provider.EmbeddingModel).To(Equal("text-embedding-3-large"))
			Expect(cfg.Provider.Dimensions).To(Equal(uint(3072)))
			Expect(cfg.Vector.Provider).To(Equal("qdrant"))
			Expect(cfg.Vector.QdrantAddr).To(Equal("qdrant.internal:6334"))
		})

		It("returns error for non-200 HTTP response", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusNotFound)
			}))
			defer server.Close()

			cmd := initcmder.NewInitCmd()
			cmd.SetArgs([]string{"--preset", server.URL})
			err := cmd.Execute()
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("HTTP 404"))
		})

		It("returns error for invalid TOML from URL", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				fmt.Fprint(w, "this is not valid toml [[[")
			}))
			defer server.Close()

			cmd := initcmder.NewInitCmd()
			cmd.SetArgs([]string{"--preset", server.URL})
			err := cmd.Execute()
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("parsing"))
		})

		It("returns error for unreachable URL", func() {
			cmd := initcmder.NewInitCmd()
			cmd.SetArgs([]string{"--preset", "http://127.0.0.1:1"})
			err := cmd.Execute()
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("fetching remote config"))
		})
	})

	Describe("--preset overwrites config on re-init", func() {
		It("overwrites existing config.toml when re-running with a different preset", func() {
			cmd1 := initcmder.NewInitCmd()
			cmd1.SetArgs([]string{"--preset", "openai"})
			err := cmd1.Execute()
			Expect(err).NotTo(HaveOccurred())

			cfg := loadConfig(tmpDir)
			Expect(cfg.Provider.Backend).To(Equal("openai"))

			cmd2 := initcmder.NewInitCmd()
			cmd2.SetArgs([]string{"--preset", "ollama"})
			err = cmd2.Execute()
			Expect(err).NotTo(HaveOccurred())

			cfg = loadConfig(tmpDir)
			Expect(cfg.Provider.Backend).To(Equal("ollama"))
		})
	})
})

// loadConfig is a test helper that reads and parses the config.toml from the
// .folio directory within the given base directory.
func loadConfig(baseDir string) *config.Config {
	configPath := filepath.Join(baseDir, ".folio", "config.toml")
	data, err := os.ReadFile(configPath)
	ExpectWithOffset(1, err).NotTo(HaveOccurred())

	cfg := &config.Config{}
	err = toml.Unmarshal(data, cfg)
	ExpectWithOffset(1, err).NotTo(HaveOccurred())
	return cfg
}
