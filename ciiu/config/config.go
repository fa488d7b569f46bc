package config

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	internal "github.com/ZanzyTHEbar/ciiu-search/ciiu"
	"github.com/ZanzyTHEbar/ciiu-search/ciiu/catalog"
	"github.com/ZanzyTHEbar/ciiu-search/ciiu/embedding"
	"github.com/ZanzyTHEbar/ciiu-search/ciiu/expansion"
	"github.com/ZanzyTHEbar/ciiu-search/ciiu/retrieval"
	"github.com/ZanzyTHEbar/ciiu-search/ciiu/watch"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// Config stores all configuration of the application.
// The values are read by viper from a config file or environment variables.
type Config struct {
	Datasets  []DatasetConfig `mapstructure:"datasets"`
	Auxiliary AuxiliaryConfig `mapstructure:"auxiliary"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	Retrieval RetrievalConfig `mapstructure:"retrieval"`
	Build     BuildConfig     `mapstructure:"build"`
	Watch     WatchConfig     `mapstructure:"watch"`
	Log       LogConfig       `mapstructure:"log"`
}

// DatasetConfig points a dataset name at its spreadsheet.
type DatasetConfig struct {
	Name  string `mapstructure:"name"`
	Path  string `mapstructure:"path"`
	Sheet string `mapstructure:"sheet"`
}

// AuxiliaryConfig locates the query expansion corpus.
type AuxiliaryConfig struct {
	Path    string `mapstructure:"path"`
	Enabled bool   `mapstructure:"enabled"`
}

// EmbeddingConfig selects the sentence encoder.
type EmbeddingConfig struct {
	Provider          string `mapstructure:"provider"`
	Dimensions        int    `mapstructure:"dimensions"`
	ModelPath         string `mapstructure:"modelPath"`
	BaseURL           string `mapstructure:"baseURL"`
	Model             string `mapstructure:"model"`
	APIKey            string `mapstructure:"apiKey"`
	BatchSize         int    `mapstructure:"batchSize"`
	Workers           int    `mapstructure:"workers"`
	ExecutionProvider string `mapstructure:"executionProvider"`
	DeviceID          int    `mapstructure:"deviceID"`
	MaxSeqLen         int    `mapstructure:"maxSeqLen"`
}

// RetrievalConfig tunes the search pipeline.
type RetrievalConfig struct {
	OverFetch      int             `mapstructure:"overFetch"`
	MinQueryLength int             `mapstructure:"minQueryLength"`
	Expansion      ExpansionConfig `mapstructure:"expansion"`
	Defaults       DefaultsConfig  `mapstructure:"defaults"`
}

// ExpansionConfig tunes query expansion.
type ExpansionConfig struct {
	Enabled       bool    `mapstructure:"enabled"`
	MinSimilarity float64 `mapstructure:"minSimilarity"`
	MaxTerms      int     `mapstructure:"maxTerms"`
}

// DefaultsConfig holds the request defaults used when a caller omits fields.
type DefaultsConfig struct {
	TopN      int     `mapstructure:"topN"`
	Category  string  `mapstructure:"category"`
	Threshold float64 `mapstructure:"threshold"`
}

// BuildConfig tunes snapshot rebuilds.
type BuildConfig struct {
	Workers int `mapstructure:"workers"`
}

// WatchConfig controls rebuilding when catalog files change.
type WatchConfig struct {
	Debounce time.Duration `mapstructure:"debounce"`
}

// LogConfig stores logger settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("..")
		v.AddConfigPath(filepath.Join("etc", internal.DefaultAppName))
		v.AddConfigPath(internal.DefaultConfigPath)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	setDefaults(v)

	v.AutomaticEnv()                                   // Read in environment variables that match
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_")) // e.g. embedding.apiKey becomes EMBEDDING_APIKEY

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found; defaults are used
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("datasets", []map[string]any{
		{"name": internal.DefaultDatasetV4, "path": internal.DefaultDatasetV4Path},
		{"name": internal.DefaultDatasetV2, "path": internal.DefaultDatasetV2Path},
	})
	v.SetDefault("auxiliary.path", internal.DefaultAuxiliaryPath)
	v.SetDefault("auxiliary.enabled", true)

	v.SetDefault("embedding.provider", internal.DefaultEmbeddingDriver)
	v.SetDefault("embedding.dimensions", internal.DefaultEmbeddingDims)
	v.SetDefault("embedding.modelPath", "")
	v.SetDefault("embedding.baseURL", "")
	v.SetDefault("embedding.model", internal.DefaultEmbeddingModel)
	v.SetDefault("embedding.apiKey", "")
	v.SetDefault("embedding.batchSize", internal.DefaultEmbeddingBatch)
	v.SetDefault("embedding.workers", 0)
	v.SetDefault("embedding.executionProvider", "cpu")
	v.SetDefault("embedding.deviceID", 0)
	v.SetDefault("embedding.maxSeqLen", 256)

	d := retrieval.DefaultDefaults()
	v.SetDefault("retrieval.overFetch", 5)
	v.SetDefault("retrieval.minQueryLength", 3)
	v.SetDefault("retrieval.expansion.enabled", true)
	v.SetDefault("retrieval.expansion.minSimilarity", expansion.DefaultMinSimilarity)
	v.SetDefault("retrieval.expansion.maxTerms", expansion.DefaultMaxTerms)
	v.SetDefault("retrieval.defaults.topN", d.TopN)
	v.SetDefault("retrieval.defaults.category", d.Category.String())
	v.SetDefault("retrieval.defaults.threshold", d.Threshold)

	v.SetDefault("build.workers", 0)
	v.SetDefault("watch.debounce", watch.DefaultDebounce)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
}

// Validate checks values that would otherwise only fail at first search.
func (c *Config) Validate() error {
	if len(c.Datasets) == 0 {
		return fmt.Errorf("%w: no datasets configured", ErrInvalidConfig)
	}
	seen := make(map[string]bool, len(c.Datasets))
	for i, d := range c.Datasets {
		if d.Name == "" || d.Path == "" {
			return fmt.Errorf("%w: dataset %d needs a name and a path", ErrInvalidConfig, i)
		}
		if seen[d.Name] {
			return fmt.Errorf("%w: dataset %q configured twice", ErrInvalidConfig, d.Name)
		}
		seen[d.Name] = true
	}
	if c.Embedding.Dimensions <= 0 {
		return fmt.Errorf("%w: embedding.dimensions must be positive", ErrInvalidConfig)
	}
	if c.Retrieval.OverFetch < 1 {
		return fmt.Errorf("%w: retrieval.overFetch must be at least 1", ErrInvalidConfig)
	}
	if s := c.Retrieval.Expansion.MinSimilarity; s < -1 || s > 1 {
		return fmt.Errorf("%w: retrieval.expansion.minSimilarity must be between -1 and 1", ErrInvalidConfig)
	}
	if _, err := c.SearchDefaults(); err != nil {
		return err
	}
	return nil
}

// DatasetFiles lists the configured dataset spreadsheets.
func (c *Config) DatasetFiles() []catalog.DatasetFile {
	out := make([]catalog.DatasetFile, len(c.Datasets))
	for i, d := range c.Datasets {
		out[i] = catalog.DatasetFile{Name: d.Name, Path: d.Path, Sheet: d.Sheet}
	}
	return out
}

// AuxiliaryPath returns the corpus path, empty when expansion is switched off.
func (c *Config) AuxiliaryPath() string {
	if !c.Auxiliary.Enabled {
		return ""
	}
	return c.Auxiliary.Path
}

// EmbeddingOptions maps the embedding section onto provider options.
func (c *Config) EmbeddingOptions() embedding.Options {
	e := c.Embedding
	return embedding.Options{
		Provider:          e.Provider,
		Dimensions:        e.Dimensions,
		ModelPath:         e.ModelPath,
		BaseURL:           e.BaseURL,
		Model:             e.Model,
		APIKey:            e.APIKey,
		ExecutionProvider: e.ExecutionProvider,
		DeviceID:          e.DeviceID,
		MaxSeqLen:         e.MaxSeqLen,
		BatchSize:         e.BatchSize,
	}
}

// Expander returns the configured query expander, nil when disabled.
func (c *Config) Expander() *expansion.Expander {
	x := c.Retrieval.Expansion
	if !x.Enabled || !c.Auxiliary.Enabled {
		return nil
	}
	return &expansion.Expander{MinSimilarity: float32(x.MinSimilarity), MaxTerms: x.MaxTerms}
}

// SearchDefaults returns the request defaults.
func (c *Config) SearchDefaults() (retrieval.Defaults, error) {
	d := c.Retrieval.Defaults
	cat, err := catalog.ParseCategory(d.Category)
	if err != nil {
		return retrieval.Defaults{}, fmt.Errorf("%w: retrieval.defaults.category: %w", ErrInvalidConfig, err)
	}
	if d.TopN <= 0 {
		return retrieval.Defaults{}, fmt.Errorf("%w: retrieval.defaults.topN must be positive", ErrInvalidConfig)
	}
	if d.Threshold < 0 || d.Threshold > 1 {
		return retrieval.Defaults{}, fmt.Errorf("%w: retrieval.defaults.threshold must be between 0 and 1", ErrInvalidConfig)
	}
	return retrieval.Defaults{TopN: d.TopN, Category: cat, Threshold: d.Threshold}, nil
}

// SearcherOptions maps the retrieval section onto searcher options.
func (c *Config) SearcherOptions() []retrieval.Option {
	return []retrieval.Option{
		retrieval.WithExpander(c.Expander()),
		retrieval.WithOverFetch(c.Retrieval.OverFetch),
		retrieval.WithMinQueryLength(c.Retrieval.MinQueryLength),
	}
}

// Logger builds the application logger from the log section.
func (c *Config) Logger(w io.Writer) zerolog.Logger {
	return internal.NewLogger(w, c.Log.Level, c.Log.Pretty)
}
