package catalog

import (
	"fmt"
	"strings"

	"github.com/ZanzyTHEbar/ciiu-search/ciiu/normalize"
)

// Category is the hierarchy level of a catalog entry.
type Category string

const (
	CategoryAll       Category = "ALL"
	CategorySeccion   Category = "SECCION"
	CategoryGrupo     Category = "GRUPO"
	CategorySubgrupo  Category = "SUBGRUPO"
	CategoryClase     Category = "CLASE"
	CategorySubclase  Category = "SUBCLASE"
	CategoryActividad Category = "ACTIVIDAD"
	CategorySubnivel  Category = "SUBNIVEL"
)

// Categories lists every concrete level in hierarchy order. CategoryAll is a
// request sentinel and is not part of it.
var Categories = []Category{
	CategorySeccion,
	CategoryGrupo,
	CategorySubgrupo,
	CategoryClase,
	CategorySubclase,
	CategoryActividad,
	CategorySubnivel,
}

// Spreadsheet and API spellings that map onto the enum.
var categoryAliases = map[string]Category{
	"todos":              CategoryAll,
	"all":                CategoryAll,
	"seccion":            CategorySeccion,
	"grupo":              CategoryGrupo,
	"subgrupo":           CategorySubgrupo,
	"clase":              CategoryClase,
	"subclase":           CategorySubclase,
	"actividad":          CategoryActividad,
	"subnivel":           CategorySubnivel,
	"subnivel actividad": CategorySubnivel,
}

// ParseCategory maps a transported string onto the enum. Case and accents are
// ignored. Unknown values are rejected with ErrUnknownCategory.
func ParseCategory(s string) (Category, error) {
	key := normalize.Normalize(strings.ReplaceAll(s, "_", " "))
	if c, ok := categoryAliases[key]; ok {
		return c, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCategory, s)
}

// IsAll reports whether c is the no-filter sentinel.
func (c Category) IsAll() bool { return c == CategoryAll }

// Valid reports whether c is a concrete level.
func (c Category) Valid() bool {
	for _, k := range Categories {
		if k == c {
			return true
		}
	}
	return false
}

func (c Category) String() string { return string(c) }
