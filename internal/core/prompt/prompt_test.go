package prompt

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestManualIngredientPinsRequestedName(t *testing.T) {
	b := NewBuilder(10, []string{"ES", "FR"})
	p := b.ManualIngredient("azafrán de la mancha", "especias", "España")

	assert.Contains(t, p, `"name" debe ser exactamente "azafrán de la mancha"`)
	assert.Contains(t, p, "Categoría sugerida: especias")
	assert.Contains(t, p, "ES, FR")
	assert.Contains(t, p, "prices_by_country")
}

func TestAutomaticIngredientsCapsAvoidList(t *testing.T) {
	b := NewBuilder(2, nil)
	p := b.AutomaticIngredients(5, "frutas", "España", []string{"mango", "papaya", "lichi"})

	assert.Contains(t, p, "Selecciona 5 ingredientes")
	assert.Contains(t, p, `categoría "frutas"`)
	assert.Contains(t, p, "mango, papaya.")
	assert.NotContains(t, p, "lichi")
}

func TestCategoriesModes(t *testing.T) {
	b := NewBuilder(0, nil)
	manual := b.Categories(0, []string{"Setas", "Mariscos"}, []string{"Frutas"})
	assert.Contains(t, manual, "Setas, Mariscos")
	assert.NotContains(t, manual, "Frutas")

	auto := b.Categories(3, nil, []string{"Frutas"})
	assert.Contains(t, auto, "Propón 3 categorías")
	assert.Contains(t, auto, "Frutas")
}

func TestPricePromptsAskForEuros(t *testing.T) {
	b := NewBuilder(0, []string{"ES", "MX", "GB"})
	for _, p := range []string{
		b.ManualIngredient("romero", "", "España"),
		b.AutomaticIngredients(3, "", "España", nil),
		b.Prices("Pimienta negra", "España"),
	} {
		assert.Contains(t, p, "precios en EUR")
		assert.NotContains(t, p, "Usa la moneda local")
		assert.Contains(t, p, "ES, MX, GB")
	}
}
