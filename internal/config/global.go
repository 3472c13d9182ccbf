package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// GlobalConfig represents configuration stored in ~/.config/cg/config.yml.
// It holds service endpoints and credentials shared by every repository.
type GlobalConfig struct {
	CrossrefMailto string `yaml:"crossref_mailto,omitempty"`

	RedisAddr     string `yaml:"redis_addr,omitempty"`
	RedisPassword string `yaml:"redis_password,omitempty"`
	RedisDB       int    `yaml:"redis_db,omitempty"`
	RedisTTL      string `yaml:"redis_ttl,omitempty"` // Go duration, e.g. 168h

	Neo4jURI      string `yaml:"neo4j_uri,omitempty"`
	Neo4jUser     string `yaml:"neo4j_user,omitempty"`
	Neo4jPassword string `yaml:"neo4j_password,omitempty"`
	Neo4jDatabase string `yaml:"neo4j_database,omitempty"`

	AnystylePath string `yaml:"anystyle_path,omitempty"`
}

const (
	// GlobalConfigDir is the directory name under XDG_CONFIG_HOME.
	GlobalConfigDir = "cg"
	// GlobalConfigFile is the config file name.
	GlobalConfigFile = "config.yml"
)

// Environment variables that override the global config file.
const (
	EnvCrossrefMailto = "CROSSREF_MAILTO"
	EnvRedisAddr      = "CG_REDIS_ADDR"
	EnvNeo4jURI       = "NEO4J_URI"
	EnvNeo4jUser      = "NEO4J_USERNAME"
	EnvNeo4jPassword  = "NEO4J_PASSWORD"
	EnvAnystylePath   = "CG_ANYSTYLE"
)

// globalConfigCache caches the loaded global config.
var globalConfigCache *GlobalConfig

// GlobalConfigPath returns the path to the global config file.
// Respects XDG_CONFIG_HOME, defaults to ~/.config/cg/config.yml.
func GlobalConfigPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, GlobalConfigDir, GlobalConfigFile)
}

// LoadGlobalConfig loads the global configuration file and applies
// environment overrides. Returns an empty config (not an error) if the file
// doesn't exist.
func LoadGlobalConfig() (*GlobalConfig, error) {
	if globalConfigCache != nil {
		return globalConfigCache, nil
	}

	cfg := &GlobalConfig{}
	if path := GlobalConfigPath(); path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing global config: %w", err)
			}
		case !os.IsNotExist(err):
			return nil, fmt.Errorf("reading global config: %w", err)
		}
	}

	cfg.ApplyEnv()
	if cfg.AnystylePath != "" {
		cfg.AnystylePath = ExpandPath(cfg.AnystylePath)
	}
	if _, err := cfg.CacheTTL(); err != nil {
		return nil, err
	}

	globalConfigCache = cfg
	return cfg, nil
}

// ResetGlobalConfigCache clears the cached global config.
// Useful for testing.
func ResetGlobalConfigCache() {
	globalConfigCache = nil
}

// ApplyEnv overrides fields with any set environment variables.
func (g *GlobalConfig) ApplyEnv() {
	for env, dst := range map[string]*string{
		EnvCrossrefMailto: &g.CrossrefMailto,
		EnvRedisAddr:      &g.RedisAddr,
		EnvNeo4jURI:       &g.Neo4jURI,
		EnvNeo4jUser:      &g.Neo4jUser,
		EnvNeo4jPassword:  &g.Neo4jPassword,
		EnvAnystylePath:   &g.AnystylePath,
	} {
		if v := os.Getenv(env); v != "" {
			*dst = v
		}
	}
}

// CacheTTL parses redis_ttl. Zero means the cache default.
func (g *GlobalConfig) CacheTTL() (time.Duration, error) {
	if g.RedisTTL == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(g.RedisTTL)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("invalid redis_ttl %q: want a duration such as 168h", g.RedisTTL)
	}
	return d, nil
}

// LoadDotEnv loads .env files from the working directory and the
// repository root, if present. Variables already set in the environment
// win over the files.
func LoadDotEnv(root string) error {
	var files []string
	for _, p := range []string{".env", filepath.Join(root, ".env")} {
		if _, err := os.Stat(p); err == nil {
			files = append(files, p)
		}
	}
	if len(files) == 0 {
		return nil
	}
	if err := godotenv.Load(files...); err != nil {
		return fmt.Errorf("loading .env: %w", err)
	}
	return nil
}

// HelpfulConfigMessage returns a helpful message when no repository is found.
func HelpfulConfigMessage() string {
	configPath := GlobalConfigPath()
	return fmt.Sprintf(`No citegraph repository found.

Tip: run 'cg init' in the directory holding your documents, or set %s.
Service settings (Crossref, Redis, Neo4j) go in %s:
  mkdir -p %s
  echo 'crossref_mailto: you@example.org' > %s`,
		RootEnv,
		configPath,
		filepath.Dir(configPath),
		configPath)
}
