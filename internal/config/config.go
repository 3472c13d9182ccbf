// Package config handles repository configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
)

// Config represents repository configuration stored in .citegraph/config.json.
type Config struct {
	ContextWindow   int    `json:"context_window,omitempty"`    // Runes of context each side of a match
	OrphanPolicy    string `json:"orphan_policy,omitempty"`     // keep or drop
	MinInlineLength int    `json:"min_inline_length,omitempty"` // Shortest inline equation kept
	Fingerprint     string `json:"fingerprint,omitempty"`       // sha256 or blake2b
	PDFMaxPages     int    `json:"pdf_max_pages,omitempty"`     // 0 reads every page
	Viewer          string `json:"viewer,omitempty"`            // system, skim, zathura, etc.
}

const (
	CitegraphDir  = ".citegraph"
	ConfigFile    = "config.json"
	DocumentsFile = "documents.jsonl"
	CacheDir      = "cache"
	DBFile        = "documents.db"

	// RootEnv overrides repository discovery.
	RootEnv = "CG_ROOT"
)

// Defaults applied to zero-valued fields.
const (
	DefaultContextWindow = 40
	DefaultOrphanPolicy  = "keep"
	DefaultFingerprint   = "sha256"
)

// ValidViewers lists the supported viewer values.
var ValidViewers = []string{"system", "skim", "preview", "zathura", "evince", "okular"}

var (
	validOrphanPolicies = []string{"keep", "drop"}
	validFingerprints   = []string{"sha256", "blake2b"}
)

// Default returns a configuration with every default filled in.
func Default() *Config {
	c := &Config{}
	c.ApplyDefaults()
	return c
}

// ApplyDefaults fills zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.ContextWindow <= 0 {
		c.ContextWindow = DefaultContextWindow
	}
	if c.OrphanPolicy == "" {
		c.OrphanPolicy = DefaultOrphanPolicy
	}
	if c.Fingerprint == "" {
		c.Fingerprint = DefaultFingerprint
	}
	if c.Viewer == "" {
		c.Viewer = "system"
	}
}

// Validate checks enumerated and numeric fields.
func (c *Config) Validate() error {
	if c.ContextWindow < 0 {
		return fmt.Errorf("context_window must not be negative: %d", c.ContextWindow)
	}
	if c.MinInlineLength < 0 {
		return fmt.Errorf("min_inline_length must not be negative: %d", c.MinInlineLength)
	}
	if c.PDFMaxPages < 0 {
		return fmt.Errorf("pdf_max_pages must not be negative: %d", c.PDFMaxPages)
	}
	if err := oneOf("orphan_policy", c.OrphanPolicy, validOrphanPolicies); err != nil {
		return err
	}
	if err := oneOf("fingerprint", c.Fingerprint, validFingerprints); err != nil {
		return err
	}
	return ValidateViewer(c.Viewer)
}

func oneOf(field, value string, valid []string) error {
	if value == "" {
		return nil
	}
	for _, v := range valid {
		if value == v {
			return nil
		}
	}
	return fmt.Errorf("invalid %s: %s (valid: %v)", field, value, valid)
}

// ValidateViewer checks that the viewer value is valid.
func ValidateViewer(viewer string) error {
	return oneOf("viewer", viewer, ValidViewers)
}

// Keys returns the settable configuration keys in sorted order.
func Keys() []string {
	keys := []string{"context_window", "orphan_policy", "min_inline_length", "fingerprint", "pdf_max_pages", "viewer"}
	sort.Strings(keys)
	return keys
}

// Get returns the value of a key as a string.
func (c *Config) Get(key string) (string, error) {
	switch key {
	case "context_window":
		return strconv.Itoa(c.ContextWindow), nil
	case "orphan_policy":
		return c.OrphanPolicy, nil
	case "min_inline_length":
		return strconv.Itoa(c.MinInlineLength), nil
	case "fingerprint":
		return c.Fingerprint, nil
	case "pdf_max_pages":
		return strconv.Itoa(c.PDFMaxPages), nil
	case "viewer":
		return c.Viewer, nil
	}
	return "", fmt.Errorf("unknown config key: %s (valid: %v)", key, Keys())
}

// Set parses value into key and validates the result. The receiver is
// unchanged on error.
func (c *Config) Set(key, value string) error {
	next := *c
	switch key {
	case "context_window", "min_inline_length", "pdf_max_pages":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%s must be an integer: %q", key, value)
		}
		switch key {
		case "context_window":
			next.ContextWindow = n
		case "min_inline_length":
			next.MinInlineLength = n
		default:
			next.PDFMaxPages = n
		}
	case "orphan_policy":
		next.OrphanPolicy = value
	case "fingerprint":
		next.Fingerprint = value
	case "viewer":
		next.Viewer = value
	default:
		return fmt.Errorf("unknown config key: %s (valid: %v)", key, Keys())
	}
	if err := next.Validate(); err != nil {
		return err
	}
	*c = next
	return nil
}

// CitegraphPath returns the path to the .citegraph directory from a root path.
func CitegraphPath(root string) string {
	return filepath.Join(root, CitegraphDir)
}

// ConfigPath returns the path to config.json from a root path.
func ConfigPath(root string) string {
	return filepath.Join(root, CitegraphDir, ConfigFile)
}

// DocumentsPath returns the path to documents.jsonl from a root path.
func DocumentsPath(root string) string {
	return filepath.Join(root, CitegraphDir, DocumentsFile)
}

// CachePath returns the path to the cache directory from a root path.
func CachePath(root string) string {
	return filepath.Join(root, CitegraphDir, CacheDir)
}

// DBPath returns the path to documents.db from a root path.
func DBPath(root string) string {
	return filepath.Join(root, CitegraphDir, CacheDir, DBFile)
}

// IsRepository checks if the given path contains a citegraph repository.
func IsRepository(root string) bool {
	info, err := os.Stat(CitegraphPath(root))
	return err == nil && info.IsDir()
}

// FindRepository returns CG_ROOT when set, otherwise walks up from start
// to find a citegraph repository.
func FindRepository(start string) (string, error) {
	if env := os.Getenv(RootEnv); env != "" {
		root := ExpandPath(env)
		if !IsRepository(root) {
			return "", fmt.Errorf("%s=%s is not a citegraph repository (no %s directory)", RootEnv, root, CitegraphDir)
		}
		return root, nil
	}

	abs, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}

	for {
		if IsRepository(abs) {
			return abs, nil
		}

		parent := filepath.Dir(abs)
		if parent == abs {
			return "", fmt.Errorf("not in a citegraph repository (no %s directory found)", CitegraphDir)
		}
		abs = parent
	}
}

// Init creates the repository layout at root with a default configuration.
// It fails if a repository already exists there.
func Init(root string) (*Config, error) {
	if IsRepository(root) {
		return nil, fmt.Errorf("repository already exists at %s", CitegraphPath(root))
	}
	if err := os.MkdirAll(CachePath(root), 0755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", CitegraphDir, err)
	}
	cfg := Default()
	if err := cfg.Save(root); err != nil {
		return nil, err
	}
	if err := os.WriteFile(DocumentsPath(root), nil, 0644); err != nil {
		return nil, fmt.Errorf("creating %s: %w", DocumentsFile, err)
	}
	return cfg, nil
}

// Load reads configuration from the repository at the given root and fills
// defaults for unset fields.
func Load(root string) (*Config, error) {
	data, err := os.ReadFile(ConfigPath(root))
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	cfg.ApplyDefaults()

	return &cfg, nil
}

// Save writes configuration to the repository at the given root.
func (c *Config) Save(root string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.WriteFile(ConfigPath(root), data, 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// ExpandPath expands ~ to the user's home directory.
// Returns the original path unchanged if it doesn't start with ~.
func ExpandPath(path string) string {
	if len(path) == 0 || path[0] != '~' {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return path // Return original if we can't get home directory
	}

	return filepath.Join(home, path[1:])
}
