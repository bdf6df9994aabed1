package ingest

import "horeca-ingredients/internal/pkg/common"

var categoryTranslations = map[string]string{
	"verduras":           "vegetables",
	"hortalizas":         "vegetables",
	"frutas":             "fruits",
	"frutas tropicales":  "tropical fruits",
	"carnes":             "meats",
	"aves":               "poultry",
	"pescados":           "fish",
	"mariscos":           "seafood",
	"especias":           "spices",
	"hierbas":            "herbs",
	"hierbas aromáticas": "aromatic herbs",
	"lácteos":            "dairy",
	"quesos":             "cheeses",
	"embutidos":          "cured meats",
	"cereales":           "cereals",
	"legumbres":          "legumes",
	"frutos secos":       "nuts",
	"aceites":            "oils",
	"vinagres":           "vinegars",
	"setas":              "mushrooms",
	"hongos":             "mushrooms",
	"condimentos":        "condiments",
	"dulces":             "sweets",
	"bebidas":            "beverages",
	"otros":              "other",
}

// TranslateCategory 分類名稱的英文翻譯，查無對照時沿用原名
func TranslateCategory(name string) string {
	n := common.NormalizeName(name)
	if en, ok := categoryTranslations[n]; ok {
		return en
	}
	return n
}
