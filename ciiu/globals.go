package internal

import (
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

var (
	DefaultAppName        = "ciiu"
	DefaultAppCMDShortCut = "ciiu-search"
	// DefaultConfigPath is the default directory holding config.yaml
	DefaultConfigPath = filepath.Join(getHomeDir(), ".config", DefaultAppName)
	DefaultDataDir    = "."

	// Catalog variants served side by side
	DefaultDatasetV4       = "v4"
	DefaultDatasetV2       = "v2"
	DefaultDatasetV4Path   = filepath.Join(DefaultDataDir, "ciiu.xlsx")
	DefaultDatasetV2Path   = filepath.Join(DefaultDataDir, "ciiu_2.0.xlsx")
	DefaultAuxiliaryPath   = filepath.Join(DefaultDataDir, "descripciones.xlsx")
	DefaultEmbeddingModel  = "sentence-transformers/paraphrase-multilingual-mpnet-base-v2"
	DefaultEmbeddingDims   = 768
	DefaultEmbeddingBatch  = 32
	DefaultEmbeddingDriver = "lexical"
)

func getHomeDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current working directory if home directory is unavailable
		cwd, cwdErr := os.Getwd()
		if cwdErr != nil {
			log.Printf("Unable to get home or working directory, using /tmp: %v", err)
			return "/tmp"
		}
		log.Printf("Unable to get home directory, using current working directory: %v", err)
		return cwd
	}
	return homeDir
}

// GetLogger returns a properly configured zerolog logger instance
func GetLogger() zerolog.Logger {
	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}

// NewLogger builds a logger at the given level. An unknown level falls back to info.
// pretty switches to zerolog's console writer for interactive use.
func NewLogger(w io.Writer, level string, pretty bool) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}
	if pretty {
		w = zerolog.ConsoleWriter{Out: w}
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}
