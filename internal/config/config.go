package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// ProjectType identifies the dominant language of a workspace, used to
// choose sensible default ignore patterns.
type ProjectType string

const (
	ProjectTypeGo      ProjectType = "go"
	ProjectTypeNode    ProjectType = "node"
	ProjectTypePython  ProjectType = "python"
	ProjectTypeUnknown ProjectType = "unknown"
)

// Config is the engine's complete configuration surface, decoded from
// TOML rather than YAML.
type Config struct {
	Version     int               `toml:"version" json:"version"`
	Languages   map[string]LanguageConfig `toml:"languages" json:"languages"`
	Workspace   WorkspaceConfig   `toml:"workspace" json:"workspace"`
	Vector      VectorConfig      `toml:"vector" json:"vector"`
	Fusion      FusionConfig      `toml:"fusion" json:"fusion"`
	Query       QueryConfig       `toml:"query" json:"query"`
	Index       IndexConfig       `toml:"index" json:"index"`
	Embeddings  EmbeddingsConfig  `toml:"embeddings" json:"embeddings"`
	Performance PerformanceConfig `toml:"performance" json:"performance"`
	Server      ServerConfig      `toml:"server" json:"server"`
}

// LanguageConfig toggles indexing for one language id.
type LanguageConfig struct {
	Enabled bool `toml:"enabled" json:"enabled"`
}

// WorkspaceConfig configures which paths the indexer walks.
type WorkspaceConfig struct {
	Ignore []string `toml:"ignore" json:"ignore"`
}

// VectorConfig configures the IVF-Flat vector index.
type VectorConfig struct {
	Enabled               bool   `toml:"enabled" json:"enabled"`
	Dimension             int    `toml:"dimension" json:"dimension"`
	Dtype                 string `toml:"dtype" json:"dtype"` // f32 | f16 | i8
	ClusterBatchThreshold int    `toml:"cluster_batch_threshold" json:"cluster_batch_threshold"`
	TopKClusters          int    `toml:"top_k_clusters" json:"top_k_clusters"`
}

// FusionConfig selects and tunes the search result-fusion strategy.
type FusionConfig struct {
	Strategy string        `toml:"strategy" json:"strategy"` // rrf | linear
	Weights  FusionWeights `toml:"weights" json:"weights"`
}

// FusionWeights are the linear-blend weights (ignored when Strategy is rrf).
type FusionWeights struct {
	BM25   float64 `toml:"bm25" json:"bm25"`
	Vector float64 `toml:"vector" json:"vector"`
}

// QueryConfig bounds the latency budget a search is allowed.
type QueryConfig struct {
	DeadlineMS int `toml:"deadline_ms" json:"deadline_ms"`
}

// IndexConfig bounds the parser's recursion depth.
type IndexConfig struct {
	MaxParseDepth int `toml:"max_parse_depth" json:"max_parse_depth"`
}

// EmbeddingsConfig selects the Embedder implementation (static or ollama;
// embedding model internals are out of scope).
type EmbeddingsConfig struct {
	Provider   string `toml:"provider" json:"provider"` // static | ollama
	Model      string `toml:"model" json:"model"`
	Dimensions int    `toml:"dimensions" json:"dimensions"`
	BatchSize  int    `toml:"batch_size" json:"batch_size"`
	OllamaHost string `toml:"ollama_host" json:"ollama_host"`
}

// PerformanceConfig configures the indexer's worker pool and caches.
type PerformanceConfig struct {
	MaxFiles      int    `toml:"max_files" json:"max_files"`
	IndexWorkers  int    `toml:"index_workers" json:"index_workers"`
	WatchDebounce string `toml:"watch_debounce" json:"watch_debounce"`
	CacheSize     int    `toml:"cache_size" json:"cache_size"`
	MemoryLimit   string `toml:"memory_limit" json:"memory_limit"`
}

// ServerConfig configures the request-protocol server.
type ServerConfig struct {
	Transport string `toml:"transport" json:"transport"` // stdio | sse
	Port      int    `toml:"port" json:"port"`
	LogLevel  string `toml:"log_level" json:"log_level"`
}

// defaultIgnorePatterns are excluded from indexing unless overridden.
var defaultIgnorePatterns = []string{
	"**/node_modules/**",
	"**/.git/**",
	"**/vendor/**",
	"**/__pycache__/**",
	"**/dist/**",
	"**/build/**",
	"**/*.min.js",
	"**/*.min.css",
	"**/package-lock.json",
	"**/yarn.lock",
	"**/pnpm-lock.yaml",
	"**/go.sum",
}

// NewConfig returns a Config populated with sensible defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Languages: map[string]LanguageConfig{
			"go":         {Enabled: true},
			"python":     {Enabled: true},
			"javascript": {Enabled: true},
			"typescript": {Enabled: true},
			"rust":       {Enabled: true},
		},
		Workspace: WorkspaceConfig{
			Ignore: defaultIgnorePatterns,
		},
		Vector: VectorConfig{
			Enabled:               true,
			Dimension:             0, // auto-detect from the embedder
			Dtype:                 "f32",
			ClusterBatchThreshold: 10000,
			TopKClusters:          8,
		},
		Fusion: FusionConfig{
			Strategy: "rrf",
			Weights: FusionWeights{
				BM25:   0.7,
				Vector: 0.3,
			},
		},
		Query: QueryConfig{
			DeadlineMS: 25,
		},
		Index: IndexConfig{
			MaxParseDepth: 512,
		},
		Embeddings: EmbeddingsConfig{
			Provider:   "static",
			Model:      "",
			Dimensions: 0,
			BatchSize:  32,
			OllamaHost: "",
		},
		Performance: PerformanceConfig{
			MaxFiles:      100000,
			IndexWorkers:  runtime.NumCPU(),
			WatchDebounce: "500ms",
			CacheSize:     1000,
			MemoryLimit:   "auto",
		},
		Server: ServerConfig{
			Transport: "stdio",
			Port:      8765,
			LogLevel:  "info",
		},
	}
}

// projectConfigNames are tried, in order, when looking for a project file.
var projectConfigNames = []string{"codanna.toml", ".codanna.toml"}

// GetUserConfigPath returns the path to the user/global configuration
// file, following the XDG Base Directory spec:
//   - $XDG_CONFIG_HOME/codanna/config.toml (if XDG_CONFIG_HOME is set)
//   - ~/.config/codanna/config.toml (default)
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "codanna", "config.toml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "codanna", "config.toml")
	}
	return filepath.Join(home, ".config", "codanna", "config.toml")
}

// GetUserConfigDir returns the directory containing the user configuration.
func GetUserConfigDir() string {
	return filepath.Dir(GetUserConfigPath())
}

// UserConfigExists reports whether the user configuration file exists.
func UserConfigExists() bool {
	return fileExists(GetUserConfigPath())
}

// loadUserConfig loads the user/global configuration file if present.
// A nil config and nil error mean there is nothing to load.
func loadUserConfig() (*Config, error) {
	path := GetUserConfigPath()
	if !fileExists(path) {
		return nil, nil
	}
	cfg := &Config{}
	if err := cfg.loadTOML(path); err != nil {
		return nil, fmt.Errorf("failed to load user config from %s: %w", path, err)
	}
	return cfg, nil
}

// Load resolves configuration for dir with a layered precedence:
// defaults, then the project file, then the user file, then CODANNA_*
// environment overrides. CLI flags are the final, highest-precedence
// layer and are applied by callers on top of the *Config Load returns
// (see cmd/codanna), since Load has no visibility into a specific
// invocation's flags.
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if err := cfg.loadFromFile(dir); err != nil {
		return nil, err
	}

	if userCfg, err := loadUserConfig(); err != nil {
		return nil, fmt.Errorf("failed to load user config: %w", err)
	} else if userCfg != nil {
		cfg.mergeWith(userCfg)
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// loadFromFile tries each recognized project config filename in dir.
func (c *Config) loadFromFile(dir string) error {
	for _, name := range projectConfigNames {
		path := filepath.Join(dir, name)
		if fileExists(path) {
			return c.loadTOML(path)
		}
	}
	return nil
}

// loadTOML reads and merges configuration from a TOML file at path.
func (c *Config) loadTOML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var parsed Config
	if err := toml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	c.mergeWith(&parsed)
	return nil
}

// mergeWith overlays the non-zero fields of other onto c.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}

	for id, lang := range other.Languages {
		if c.Languages == nil {
			c.Languages = map[string]LanguageConfig{}
		}
		c.Languages[id] = lang
	}

	if len(other.Workspace.Ignore) > 0 {
		c.Workspace.Ignore = append(c.Workspace.Ignore, other.Workspace.Ignore...)
	}

	if other.Vector.Dimension != 0 {
		c.Vector.Dimension = other.Vector.Dimension
	}
	if other.Vector.Dtype != "" {
		c.Vector.Dtype = other.Vector.Dtype
	}
	if other.Vector.ClusterBatchThreshold != 0 {
		c.Vector.ClusterBatchThreshold = other.Vector.ClusterBatchThreshold
	}
	if other.Vector.TopKClusters != 0 {
		c.Vector.TopKClusters = other.Vector.TopKClusters
	}
	// Enabled can be explicitly set to false; only the project/user file's
	// raw bytes can tell us that was intentional, so any vector section at
	// all (Dimension or Dtype is set, or Enabled is true) wins.
	if other.Vector.Enabled || other.Vector.Dimension != 0 || other.Vector.Dtype != "" {
		c.Vector.Enabled = other.Vector.Enabled
	}

	if other.Fusion.Strategy != "" {
		c.Fusion.Strategy = other.Fusion.Strategy
	}
	if other.Fusion.Weights.BM25 != 0 {
		c.Fusion.Weights.BM25 = other.Fusion.Weights.BM25
	}
	if other.Fusion.Weights.Vector != 0 {
		c.Fusion.Weights.Vector = other.Fusion.Weights.Vector
	}

	if other.Query.DeadlineMS != 0 {
		c.Query.DeadlineMS = other.Query.DeadlineMS
	}

	if other.Index.MaxParseDepth != 0 {
		c.Index.MaxParseDepth = other.Index.MaxParseDepth
	}

	if other.Embeddings.Provider != "" {
		c.Embeddings.Provider = other.Embeddings.Provider
	}
	if other.Embeddings.Model != "" {
		c.Embeddings.Model = other.Embeddings.Model
	}
	if other.Embeddings.Dimensions != 0 {
		c.Embeddings.Dimensions = other.Embeddings.Dimensions
	}
	if other.Embeddings.BatchSize != 0 {
		c.Embeddings.BatchSize = other.Embeddings.BatchSize
	}
	if other.Embeddings.OllamaHost != "" {
		c.Embeddings.OllamaHost = other.Embeddings.OllamaHost
	}

	if other.Performance.MaxFiles != 0 {
		c.Performance.MaxFiles = other.Performance.MaxFiles
	}
	if other.Performance.IndexWorkers != 0 {
		c.Performance.IndexWorkers = other.Performance.IndexWorkers
	}
	if other.Performance.WatchDebounce != "" {
		c.Performance.WatchDebounce = other.Performance.WatchDebounce
	}
	if other.Performance.CacheSize != 0 {
		c.Performance.CacheSize = other.Performance.CacheSize
	}
	if other.Performance.MemoryLimit != "" {
		c.Performance.MemoryLimit = other.Performance.MemoryLimit
	}

	if other.Server.Transport != "" {
		c.Server.Transport = other.Server.Transport
	}
	if other.Server.Port != 0 {
		c.Server.Port = other.Server.Port
	}
	if other.Server.LogLevel != "" {
		c.Server.LogLevel = other.Server.LogLevel
	}
}

// applyEnvOverrides applies CODANNA_* environment variable overrides,
// the highest-precedence layer short of CLI flags.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("CODANNA_FUSION_STRATEGY"); v != "" {
		c.Fusion.Strategy = v
	}
	if v := os.Getenv("CODANNA_FUSION_BM25_WEIGHT"); v != "" {
		if w, err := parseFloat64(v); err == nil && w >= 0 && w <= 1 {
			c.Fusion.Weights.BM25 = w
		}
	}
	if v := os.Getenv("CODANNA_FUSION_VECTOR_WEIGHT"); v != "" {
		if w, err := parseFloat64(v); err == nil && w >= 0 && w <= 1 {
			c.Fusion.Weights.Vector = w
		}
	}
	if v := os.Getenv("CODANNA_QUERY_DEADLINE_MS"); v != "" {
		if d, err := strconv.Atoi(v); err == nil && d > 0 {
			c.Query.DeadlineMS = d
		}
	}
	if v := os.Getenv("CODANNA_VECTOR_ENABLED"); v != "" {
		c.Vector.Enabled = strings.EqualFold(v, "true") || v == "1"
	}
	if v := os.Getenv("CODANNA_EMBEDDINGS_PROVIDER"); v != "" {
		c.Embeddings.Provider = v
	}
	if v := os.Getenv("CODANNA_EMBEDDINGS_MODEL"); v != "" {
		c.Embeddings.Model = v
	}
	if v := os.Getenv("CODANNA_OLLAMA_HOST"); v != "" {
		c.Embeddings.OllamaHost = v
	}
	if v := os.Getenv("CODANNA_LOG_LEVEL"); v != "" {
		c.Server.LogLevel = v
	}
	if v := os.Getenv("CODANNA_TRANSPORT"); v != "" {
		c.Server.Transport = v
	}
}

// parseFloat64 parses a trimmed string to float64.
func parseFloat64(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}

// DetectProjectType detects the project type based on marker files.
// Priority: go.mod > package.json > pyproject.toml/requirements.txt.
func DetectProjectType(dir string) ProjectType {
	if fileExists(filepath.Join(dir, "go.mod")) {
		return ProjectTypeGo
	}
	if fileExists(filepath.Join(dir, "package.json")) {
		return ProjectTypeNode
	}
	if fileExists(filepath.Join(dir, "pyproject.toml")) || fileExists(filepath.Join(dir, "requirements.txt")) {
		return ProjectTypePython
	}
	return ProjectTypeUnknown
}

// FindProjectRoot walks up from startDir looking for a .git directory or
// a recognized project config file.
func FindProjectRoot(startDir string) (string, error) {
	absDir, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path: %w", err)
	}

	currentDir := absDir
	for {
		if dirExists(filepath.Join(currentDir, ".git")) {
			return currentDir, nil
		}
		for _, name := range projectConfigNames {
			if fileExists(filepath.Join(currentDir, name)) {
				return currentDir, nil
			}
		}
		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			return absDir, nil
		}
		currentDir = parentDir
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}

// String returns the string form of a ProjectType.
func (p ProjectType) String() string { return string(p) }

// IsKnown reports whether the project type was actually detected.
func (p ProjectType) IsKnown() bool { return p != ProjectTypeUnknown }

// Validate checks the configuration for internally inconsistent or
// out-of-range values.
func (c *Config) Validate() error {
	if c.Fusion.Strategy != "rrf" && c.Fusion.Strategy != "linear" {
		return fmt.Errorf("fusion.strategy must be 'rrf' or 'linear', got %q", c.Fusion.Strategy)
	}

	if c.Fusion.Strategy == "linear" {
		if c.Fusion.Weights.BM25 < 0 || c.Fusion.Weights.BM25 > 1 {
			return fmt.Errorf("fusion.weights.bm25 must be between 0 and 1, got %f", c.Fusion.Weights.BM25)
		}
		if c.Fusion.Weights.Vector < 0 || c.Fusion.Weights.Vector > 1 {
			return fmt.Errorf("fusion.weights.vector must be between 0 and 1, got %f", c.Fusion.Weights.Vector)
		}
		sum := c.Fusion.Weights.BM25 + c.Fusion.Weights.Vector
		if math.Abs(sum-1.0) > 0.01 {
			return fmt.Errorf("fusion.weights.bm25 + fusion.weights.vector must equal 1.0, got %.2f", sum)
		}
	}

	if c.Query.DeadlineMS < 0 {
		return fmt.Errorf("query.deadline_ms must be non-negative, got %d", c.Query.DeadlineMS)
	}

	if c.Vector.Enabled {
		validDtypes := map[string]bool{"f32": true, "f16": true, "i8": true}
		if !validDtypes[strings.ToLower(c.Vector.Dtype)] {
			return fmt.Errorf("vector.dtype must be 'f32', 'f16', or 'i8', got %q", c.Vector.Dtype)
		}
	}

	if c.Embeddings.Provider != "" {
		validProviders := map[string]bool{"static": true, "ollama": true}
		if !validProviders[strings.ToLower(c.Embeddings.Provider)] {
			return fmt.Errorf("embeddings.provider must be 'static' or 'ollama', got %q", c.Embeddings.Provider)
		}
	}

	validTransports := map[string]bool{"stdio": true, "sse": true}
	if !validTransports[strings.ToLower(c.Server.Transport)] {
		return fmt.Errorf("server.transport must be 'stdio' or 'sse', got %q", c.Server.Transport)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Server.LogLevel)] {
		return fmt.Errorf("server.log_level must be 'debug', 'info', 'warn', or 'error', got %q", c.Server.LogLevel)
	}

	return nil
}

// WriteTOML writes the configuration to a TOML file.
func (c *Config) WriteTOML(path string) error {
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// LoadUserConfig loads the user configuration file, if present.
func LoadUserConfig() (*Config, error) {
	return loadUserConfig()
}

// IndexDirOverride returns the CODANNA_INDEX_DIR override, if set.
func IndexDirOverride() (string, bool) {
	v, ok := os.LookupEnv("CODANNA_INDEX_DIR")
	return v, ok && v != ""
}

// ConfigFileOverride returns the CODANNA_CONFIG path override, if set.
func ConfigFileOverride() (string, bool) {
	v, ok := os.LookupEnv("CODANNA_CONFIG")
	return v, ok && v != ""
}
