package generation

import (
	"horeca-ingredients/internal/core/dedup"
	"horeca-ingredients/internal/core/model"
	"horeca-ingredients/internal/pkg/common"
)

const (
	fallbackWarning     = "El proveedor de IA no está disponible: se devuelven datos provisionales que deben revisarse antes de guardar."
	fallbackDescription = "Contenido provisional generado sin respuesta del proveedor de IA. Requiere revisión manual."
)

// 備援資料：常見 HORECA 食材
var fallbackCatalog = []model.IngredientNames{
	{Name: "Tomate", NameEN: "Tomato", NameFR: "Tomate", NameIT: "Pomodoro", NamePT: "Tomate", NameLA: "Jitomate"},
	{Name: "Cebolla", NameEN: "Onion", NameFR: "Oignon", NameIT: "Cipolla", NamePT: "Cebola", NameLA: "Cebolla"},
	{Name: "Ajo", NameEN: "Garlic", NameFR: "Ail", NameIT: "Aglio", NamePT: "Alho", NameLA: "Ajo"},
	{Name: "Limón", NameEN: "Lemon", NameFR: "Citron", NameIT: "Limone", NamePT: "Limão", NameLA: "Limón amarillo"},
	{Name: "Perejil", NameEN: "Parsley", NameFR: "Persil", NameIT: "Prezzemolo", NamePT: "Salsa", NameLA: "Perejil"},
	{Name: "Patata", NameEN: "Potato", NameFR: "Pomme de terre", NameIT: "Patata", NamePT: "Batata", NameLA: "Papa"},
	{Name: "Zanahoria", NameEN: "Carrot", NameFR: "Carotte", NameIT: "Carota", NamePT: "Cenoura", NameLA: "Zanahoria"},
	{Name: "Pimiento rojo", NameEN: "Red bell pepper", NameFR: "Poivron rouge", NameIT: "Peperone rosso", NamePT: "Pimentão vermelho", NameLA: "Chile morrón"},
	{Name: "Romero", NameEN: "Rosemary", NameFR: "Romarin", NameIT: "Rosmarino", NamePT: "Alecrim", NameLA: "Romero"},
	{Name: "Aceite de oliva virgen extra", NameEN: "Extra virgin olive oil", NameFR: "Huile d'olive vierge extra", NameIT: "Olio extravergine di oliva", NamePT: "Azeite virgem extra", NameLA: "Aceite de oliva extra virgen"},
	{Name: "Champiñón", NameEN: "Button mushroom", NameFR: "Champignon de Paris", NameIT: "Champignon", NamePT: "Cogumelo", NameLA: "Champiñón"},
	{Name: "Calabacín", NameEN: "Zucchini", NameFR: "Courgette", NameIT: "Zucchina", NamePT: "Abobrinha", NameLA: "Calabacita"},
}

var fallbackCategoryNames = []string{
	"verduras", "frutas", "hierbas", "especias", "setas", "legumbres",
	"cereales", "frutos secos", "aceites", "lácteos", "pescados", "carnes",
}

func (s *Service) markFallback(out *Response) {
	out.AIProvider = FallbackProvider
	out.Warning = fallbackWarning
	for i := range out.Data {
		out.Data[i].AIProvider = FallbackProvider
	}
}

// fallbackManual 以備援記錄取代供應商失敗的項目，保留其他項目
func (s *Service) fallbackManual(out *Response, category string) {
	for i, c := range out.Data {
		if c.Status != model.StatusAIError {
			continue
		}
		rec := placeholderIngredient(model.IngredientNames{Name: c.RequestedIngredient}, category)
		out.Data[i] = model.Candidate{
			Record:              rec,
			RequestedIngredient: c.RequestedIngredient,
			Status:              model.StatusSuccess,
			Error:               c.Error,
			AIProvider:          FallbackProvider,
		}
	}
	out.AIProvider = FallbackProvider
	if out.Warning == "" {
		out.Warning = fallbackWarning
	} else {
		out.Warning = fallbackWarning + " " + out.Warning
	}
}

func placeholderIngredient(names model.IngredientNames, category string) *model.IngredientRecord {
	if category == "" {
		category = "otros"
	}
	return &model.IngredientRecord{
		IngredientNames: names,
		Description:     fallbackDescription,
		Category:        category,
		Popularity:      50,
		Yield:           100,
	}
}

func fallbackIngredients(count int, category string, snap *dedup.Snapshot) []model.Candidate {
	out := make([]model.Candidate, 0, count)
	for _, names := range fallbackCatalog {
		if len(out) >= count {
			break
		}
		if snap.IsDuplicate(names, true) {
			continue
		}
		out = append(out, model.NewCandidate(placeholderIngredient(names, category), FallbackProvider))
	}
	return out
}

func fallbackCategories(count int, names, existing []string) []model.Candidate {
	if len(names) > 0 {
		out := make([]model.Candidate, 0, len(names))
		for _, n := range names {
			c := model.NewCandidate(&model.CategoryRecord{Name: n, Description: fallbackDescription}, FallbackProvider)
			c.RequestedIngredient = n
			out = append(out, c)
		}
		return out
	}

	taken := make(map[string]bool, len(existing))
	for _, e := range existing {
		taken[common.NormalizeName(e)] = true
	}
	out := make([]model.Candidate, 0, count)
	for _, n := range fallbackCategoryNames {
		if len(out) >= count {
			break
		}
		if taken[n] {
			continue
		}
		out = append(out, model.NewCandidate(&model.CategoryRecord{Name: n, Description: fallbackDescription}, FallbackProvider))
	}
	return out
}
