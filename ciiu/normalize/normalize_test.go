package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"Empty", "", ""},
		{"Lowercase", "CULTIVO DE Cereales", "cultivo de cereales"},
		{"Diacritics", "Cría de ganado, Pesca y Acuicultura", "cria de ganado, pesca y acuicultura"},
		{"Enye", "Diseño de señalética", "diseno de senaletica"},
		{"CollapseWhitespace", "  venta \t al\n\npor   mayor  ", "venta al por mayor"},
		{"DropsSymbols", "servicios (otros) #1 / 2%", "servicios otros 1 2"},
		{"KeepsPunctuationAllowList", "¿Qué hace? ¡Vende! a, b.", "¿que hace? ¡vende! a, b."},
		{"OnlySymbols", "@@ ## $$", ""},
		{"Digits", "Clase 0111", "clase 0111"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"Cultivo de maíz y otros CEREALES",
		"  ¿Fabricación   de   muebles? ",
		"Ñandú, ÁRBOLES & frutos",
		"",
	}
	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), "normalizing twice must be a no-op for %q", in)
	}
}

func TestNormalizeAny(t *testing.T) {
	assert.Equal(t, "hola mundo", NormalizeAny("Hola  Mundo"))
	assert.Equal(t, "", NormalizeAny(nil))
	assert.Equal(t, "", NormalizeAny(42))
	assert.Equal(t, "", NormalizeAny([]string{"x"}))
}

func TestNormalizeAll(t *testing.T) {
	in := []string{"A  B", "Ç"}
	out := NormalizeAll(in)
	assert.Equal(t, []string{"a b", "c"}, out)
	assert.Equal(t, "A  B", in[0], "input must not be modified")
}
