package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestPathFunctions(t *testing.T) {
	root := "/test/repo"

	tests := []struct {
		name string
		fn   func(string) string
		want string
	}{
		{"CitegraphPath", CitegraphPath, "/test/repo/.citegraph"},
		{"ConfigPath", ConfigPath, "/test/repo/.citegraph/config.json"},
		{"DocumentsPath", DocumentsPath, "/test/repo/.citegraph/documents.jsonl"},
		{"CachePath", CachePath, "/test/repo/.citegraph/cache"},
		{"DBPath", DBPath, "/test/repo/.citegraph/cache/documents.db"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.fn(root)
			if got != tt.want {
				t.Errorf("%s(%q) = %q, want %q", tt.name, root, got, tt.want)
			}
		})
	}
}

func TestIsRepository(t *testing.T) {
	tmpDir := t.TempDir()

	if IsRepository(tmpDir) {
		t.Error("IsRepository() = true for non-repo directory")
	}

	if err := os.Mkdir(filepath.Join(tmpDir, CitegraphDir), 0755); err != nil {
		t.Fatalf("Failed to create .citegraph: %v", err)
	}

	if !IsRepository(tmpDir) {
		t.Error("IsRepository() = false for repo directory")
	}
}

func TestIsRepository_FileNotDir(t *testing.T) {
	tmpDir := t.TempDir()

	if err := os.WriteFile(filepath.Join(tmpDir, CitegraphDir), []byte("not a dir"), 0644); err != nil {
		t.Fatalf("Failed to create .citegraph file: %v", err)
	}

	if IsRepository(tmpDir) {
		t.Error("IsRepository() = true when .citegraph is a file")
	}
}

func TestFindRepository(t *testing.T) {
	t.Setenv(RootEnv, "")

	tmpDir := t.TempDir()
	repoDir := filepath.Join(tmpDir, "repo")
	nestedDir := filepath.Join(repoDir, "papers", "2024")

	if err := os.MkdirAll(nestedDir, 0755); err != nil {
		t.Fatalf("Failed to create nested dirs: %v", err)
	}
	if err := os.Mkdir(filepath.Join(repoDir, CitegraphDir), 0755); err != nil {
		t.Fatalf("Failed to create .citegraph: %v", err)
	}

	found, err := FindRepository(nestedDir)
	if err != nil {
		t.Fatalf("FindRepository() error = %v", err)
	}
	if found != repoDir {
		t.Errorf("FindRepository() = %q, want %q", found, repoDir)
	}

	found, err = FindRepository(repoDir)
	if err != nil {
		t.Fatalf("FindRepository() error = %v", err)
	}
	if found != repoDir {
		t.Errorf("FindRepository() = %q, want %q", found, repoDir)
	}
}

func TestFindRepository_NotFound(t *testing.T) {
	t.Setenv(RootEnv, "")

	if _, err := FindRepository(t.TempDir()); err == nil {
		t.Error("FindRepository() should return error when no repo found")
	}
}

func TestFindRepository_Env(t *testing.T) {
	repoDir := t.TempDir()
	if err := os.Mkdir(filepath.Join(repoDir, CitegraphDir), 0755); err != nil {
		t.Fatalf("Failed to create .citegraph: %v", err)
	}
	t.Setenv(RootEnv, repoDir)

	found, err := FindRepository(t.TempDir())
	if err != nil {
		t.Fatalf("FindRepository() error = %v", err)
	}
	if found != repoDir {
		t.Errorf("FindRepository() = %q, want %q", found, repoDir)
	}

	t.Setenv(RootEnv, t.TempDir())
	if _, err := FindRepository("."); err == nil {
		t.Error("FindRepository() should reject a CG_ROOT without .citegraph")
	}
}

func TestInit(t *testing.T) {
	root := t.TempDir()

	cfg, err := Init(root)
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if cfg.ContextWindow != DefaultContextWindow || cfg.OrphanPolicy != "keep" {
		t.Errorf("Init() config = %+v", cfg)
	}
	for _, p := range []string{ConfigPath(root), DocumentsPath(root), CachePath(root)} {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("Init() did not create %s: %v", p, err)
		}
	}

	if _, err := Init(root); err == nil {
		t.Error("Init() should fail on an existing repository")
	}
}

func TestConfig_SaveAndLoad(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.Mkdir(filepath.Join(tmpDir, CitegraphDir), 0755); err != nil {
		t.Fatalf("Failed to create .citegraph: %v", err)
	}

	cfg := &Config{
		ContextWindow: 10,
		OrphanPolicy:  "drop",
		Fingerprint:   "blake2b",
		PDFMaxPages:   3,
		Viewer:        "zathura",
	}
	if err := cfg.Save(tmpDir); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if *loaded != *cfg {
		t.Errorf("Load() = %+v, want %+v", loaded, cfg)
	}
}

func TestLoad_AppliesDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	os.Mkdir(filepath.Join(tmpDir, CitegraphDir), 0755)
	if err := os.WriteFile(ConfigPath(tmpDir), []byte(`{"min_inline_length": 2}`), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	want := Config{
		ContextWindow:   DefaultContextWindow,
		OrphanPolicy:    DefaultOrphanPolicy,
		MinInlineLength: 2,
		Fingerprint:     DefaultFingerprint,
		Viewer:          "system",
	}
	if *cfg != want {
		t.Errorf("Load() = %+v, want %+v", cfg, want)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"invalid json", "{not valid"},
		{"bad policy", `{"orphan_policy": "ignore"}`},
		{"bad fingerprint", `{"fingerprint": "md5"}`},
		{"negative window", `{"context_window": -1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := t.TempDir()
			os.Mkdir(filepath.Join(tmpDir, CitegraphDir), 0755)
			if err := os.WriteFile(ConfigPath(tmpDir), []byte(tt.content), 0644); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(tmpDir); err == nil {
				t.Error("Load() expected error")
			}
		})
	}

	if _, err := Load(t.TempDir()); err == nil {
		t.Error("Load() expected error for missing config")
	}
}

func TestConfig_GetSet(t *testing.T) {
	tests := []struct {
		key, value string
		wantErr    bool
	}{
		{"context_window", "25", false},
		{"context_window", "wide", true},
		{"orphan_policy", "drop", false},
		{"orphan_policy", "sometimes", true},
		{"min_inline_length", "3", false},
		{"fingerprint", "blake2b", false},
		{"fingerprint", "crc32", true},
		{"pdf_max_pages", "-2", true},
		{"viewer", "okular", false},
		{"viewer", "acrobat", true},
		{"no_such_key", "1", true},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			cfg := Default()
			before := *cfg
			err := cfg.Set(tt.key, tt.value)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Set() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if *cfg != before {
					t.Errorf("Set() modified config on error: %+v", cfg)
				}
				return
			}
			got, err := cfg.Get(tt.key)
			if err != nil {
				t.Fatalf("Get() error = %v", err)
			}
			if got != tt.value {
				t.Errorf("Get(%q) = %q, want %q", tt.key, got, tt.value)
			}
		})
	}
}

func TestKeys(t *testing.T) {
	cfg := Default()
	for _, k := range Keys() {
		if _, err := cfg.Get(k); err != nil {
			t.Errorf("Get(%q) error = %v", k, err)
		}
	}
	if _, err := cfg.Get("bogus"); err == nil {
		t.Error("Get(bogus) expected error")
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("Cannot get home directory")
	}

	tests := []struct {
		in, want string
	}{
		{"~/papers", filepath.Join(home, "papers")},
		{"/abs/path", "/abs/path"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := ExpandPath(tt.in); got != tt.want {
			t.Errorf("ExpandPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
