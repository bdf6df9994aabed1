package heuristics

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaffronBoundaries(t *testing.T) {
	assert.False(t, ValidateHorecaPrice(2999, "especias_premium", "azafrán"))
	assert.True(t, ValidateHorecaPrice(3000, "especias_premium", "azafrán"))
	assert.True(t, ValidateHorecaPrice(8000, "especias_premium", "azafrán"))
	assert.False(t, ValidateHorecaPrice(8001, "especias_premium", "azafrán"))
}

func TestSpecialNamesOverrideCategory(t *testing.T) {
	// la regla especial manda aunque el tag sea otro
	assert.True(t, ValidateHorecaPrice(20, "general", "Pimienta Negra molida"))
	assert.False(t, ValidateHorecaPrice(30, "especias_premium", "black pepper"))
	assert.True(t, ValidateHorecaPrice(12, "verduras_comunes", "maracuyá"))
	assert.False(t, ValidateHorecaPrice(11.99, "frutas_tropicales", "passion fruit"))
}

func TestCategoryRanges(t *testing.T) {
	assert.True(t, ValidateHorecaPrice(2.5, "citricos", "limón"))
	assert.False(t, ValidateHorecaPrice(6.01, "citricos", "limón"))
	assert.True(t, ValidateHorecaPrice(0.1, "unknown_tag", "cosa rara"))
	assert.False(t, ValidateHorecaPrice(0, "general", "cosa rara"))
	assert.False(t, ValidateHorecaPrice(-4, "carnes", "cordero"))
}

func TestGuessCategoryOrder(t *testing.T) {
	cases := map[string]string{
		"Fruta de la pasión":   "frutas_tropicales",
		"Frambuesa":            "frutos_rojos",
		"Flor de calabacín":    "flores_comestibles",
		"Brotes de guisante":   "brotes",
		"Azafrán de la Mancha": "especias_premium",
		"Albahaca genovesa":    "hierbas_frescas",
		"Espárrago blanco":     "verduras_premium",
		"Aceite de oliva":      "aceites",
		"Manzana reineta":      "frutas_comunes",
		"Limón":                "citricos",
		"Cebolla morada":       "verduras_comunes",
		"Patata agria":         "tuberculos",
		"Orégano":              "hierbas_secas",
		"Solomillo de ternera": "carnes",
		"Arroz bomba":          "cereales",
		"Sal marina":           "general",
		"":                     "general",
	}
	for name, want := range cases {
		assert.Equal(t, want, GuessCategory(name), name)
	}
}

func TestLoadOverrideFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	content := `
default_tag: general
categories:
  - tag: setas
    keywords: [Seta]
ranges:
  setas: {min: 10, max: 20}
  general: {min: 1, max: 2}
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	r, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "setas", r.GuessCategory("SETA de cardo"))
	assert.True(t, r.ValidateHorecaPrice(15, "setas", "seta de cardo"))
	assert.False(t, r.ValidateHorecaPrice(3, "general", "sal"))
}

func TestParseRejectsMissingRange(t *testing.T) {
	_, err := Parse([]byte(`
categories:
  - tag: orphan
    keywords: [x]
ranges:
  general: {min: 1, max: 2}
`))
	assert.Error(t, err)
}
