package catalog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/rs/zerolog"

	"github.com/ZanzyTHEbar/ciiu-search/ciiu/normalize"
)

var ErrUnknownDataset = errors.New("unknown dataset")

// Source supplies already-parsed catalogs and the auxiliary corpus texts.
type Source interface {
	// Datasets lists the configured dataset names in a stable order.
	Datasets() []string
	LoadCatalog(ctx context.Context, dataset string) (*Catalog, error)
	// LoadAuxiliary returns the raw auxiliary texts. A missing or unreadable
	// corpus yields an empty slice, never an error.
	LoadAuxiliary(ctx context.Context) []string
}

// DatasetFile points a dataset name at its spreadsheet.
type DatasetFile struct {
	Name  string
	Path  string
	Sheet string
}

// Column headers as they appear in the official spreadsheets, compared after
// normalization. The short forms cover hand-made CSV exports.
var (
	codeHeaders     = []string{"codigo actividad economica", "codigo", "code"}
	descHeaders     = []string{"descripcion actividad economica", "descripcion", "description"}
	categoryHeaders = []string{"nivel", "categoria", "category"}
)

// FileSource reads catalogs from spreadsheet files on disk.
type FileSource struct {
	datasets map[string]DatasetFile
	auxPath  string
	logger   zerolog.Logger
}

// NewFileSource creates a source for the given dataset files. auxPath may be empty.
func NewFileSource(files []DatasetFile, auxPath string, logger zerolog.Logger) *FileSource {
	ds := make(map[string]DatasetFile, len(files))
	for _, f := range files {
		ds[f.Name] = f
	}
	return &FileSource{
		datasets: ds,
		auxPath:  auxPath,
		logger:   logger.With().Str("component", "catalog-source").Logger(),
	}
}

func (s *FileSource) Datasets() []string {
	names := make([]string, 0, len(s.datasets))
	for n := range s.datasets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (s *FileSource) LoadCatalog(ctx context.Context, dataset string) (*Catalog, error) {
	f, ok := s.datasets[dataset]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDataset, dataset)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rows, err := ReadTable(f.Path, f.Sheet)
	if err != nil {
		return nil, fmt.Errorf("load dataset %s: %w", dataset, err)
	}
	cat, err := ParseRows(dataset, rows)
	if err != nil {
		return nil, err
	}
	s.logger.Debug().
		Str("dataset", dataset).
		Str("path", f.Path).
		Int("rows", cat.Len()).
		Msg("Catalog loaded")
	return cat, nil
}

func (s *FileSource) LoadAuxiliary(ctx context.Context) []string {
	if s.auxPath == "" {
		return nil
	}
	if _, err := os.Stat(s.auxPath); err != nil {
		s.logger.Info().Str("path", s.auxPath).Msg("Auxiliary corpus not found, query expansion disabled")
		return nil
	}
	rows, err := ReadTable(s.auxPath, "")
	if err != nil {
		s.logger.Warn().Err(err).Str("path", s.auxPath).Msg("Auxiliary corpus unreadable, query expansion disabled")
		return nil
	}
	texts := AuxiliaryTexts(rows)
	s.logger.Debug().Str("path", s.auxPath).Int("texts", len(texts)).Msg("Auxiliary corpus loaded")
	return texts
}

// ParseRows turns a raw table into a catalog. The first row containing the code
// column header is taken as the header row; rows before it are ignored, as are
// rows without a code.
func ParseRows(dataset string, rows [][]string) (*Catalog, error) {
	header := -1
	var codeCol, descCol, catCol int
	for i, row := range rows {
		codeCol = findColumn(row, codeHeaders)
		if codeCol < 0 {
			continue
		}
		descCol = findColumn(row, descHeaders)
		catCol = findColumn(row, categoryHeaders)
		header = i
		break
	}
	if header < 0 {
		return nil, fmt.Errorf("%s: %w: code", dataset, ErrMissingColumn)
	}
	if descCol < 0 {
		return nil, fmt.Errorf("%s: %w: description", dataset, ErrMissingColumn)
	}
	if catCol < 0 {
		return nil, fmt.Errorf("%s: %w: category", dataset, ErrMissingColumn)
	}

	entries := make([]Entry, 0, len(rows)-header-1)
	for i, row := range rows[header+1:] {
		code := cell(row, codeCol)
		if code == "" {
			continue
		}
		cat, err := ParseCategory(cell(row, catCol))
		if err != nil {
			return nil, fmt.Errorf("%s: row %d (%s): %w", dataset, header+2+i, code, err)
		}
		raw := cell(row, descCol)
		entries = append(entries, Entry{
			Code:                  code,
			RawDescription:        raw,
			NormalizedDescription: normalize.Normalize(raw),
			Category:              cat,
		})
	}
	return New(dataset, entries)
}

// AuxiliaryTexts takes the first non-empty cell of every row.
func AuxiliaryTexts(rows [][]string) []string {
	var out []string
	for _, row := range rows {
		for _, c := range row {
			if c != "" {
				out = append(out, c)
				break
			}
		}
	}
	return out
}

func findColumn(row []string, names []string) int {
	for _, want := range names {
		for i, c := range row {
			if normalize.Normalize(c) == want {
				return i
			}
		}
	}
	return -1
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}
