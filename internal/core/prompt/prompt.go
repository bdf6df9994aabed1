// Package prompt 建構送往研究供應商的指令。
package prompt

import (
	"fmt"
	"strings"
)

// System 系統角色
const System = "Eres un investigador culinario especializado en el sector HORECA (hoteles, restaurantes y cafeterías). " +
	"Respondes SOLO con JSON válido, sin texto adicional ni comentarios. " +
	"Los precios son mayoristas profesionales, nunca precios de supermercado."

// ImageSystem 圖片研究系統角色
const ImageSystem = "Eres un documentalista gastronómico. Buscas fotografías reales y de libre uso de ingredientes. " +
	"Respondes SOLO con JSON válido."

// priceCurrency 所有價格以歐元報價，與價格合理範圍表一致
const priceCurrency = "Expresa todos los precios en EUR (convierte desde la moneda local de cada país) por la unidad indicada: kg, litre o g.\n"

const ingredientSchema = `{
  "name": "nombre en español",
  "name_en": "English name",
  "name_fr": "nom français",
  "name_it": "nome italiano",
  "name_pt": "nome português",
  "name_la": "sinónimo usado en Latinoamérica",
  "description": "descripción profesional de 2-3 frases",
  "category": "categoría en español",
  "season": "temporada",
  "origin": "origen",
  "shrinkage": 0-100,
  "yield": 0-100,
  "popularity": 0-100,
  "prices_by_country": [{"country_code": "ES", "price": 0.0, "unit": "kg|litre|g", "season_variation": "nota opcional"}],
  "nutritional_info": {"calories": 0, "protein": 0, "carbs": 0, "fat": 0, "fiber": 0, "vitamins": "A, C"},
  "uses": ["uso culinario"],
  "recipes": [{"name": "receta", "type": "entrante|principal|postre", "difficulty": "fácil|media|difícil", "time": "30 min"}],
  "varieties": [{"name": "variedad", "description": "breve"}]
}`

// Builder 指令建構器
type Builder struct {
	AvoidLimit int
	Countries  []string
}

// NewBuilder 建立指令建構器
func NewBuilder(avoidLimit int, countries []string) *Builder {
	if len(countries) == 0 {
		countries = []string{"ES", "FR", "IT", "PT", "MX", "AR", "US"}
	}
	return &Builder{AvoidLimit: avoidLimit, Countries: countries}
}

func (b *Builder) countryList() string {
	return strings.Join(b.Countries, ", ")
}

func (b *Builder) avoidSection(avoid []string, label string) string {
	if len(avoid) == 0 {
		return ""
	}
	if b.AvoidLimit > 0 && len(avoid) > b.AvoidLimit {
		avoid = avoid[:b.AvoidLimit]
	}
	return fmt.Sprintf("\nNO incluyas ninguno de estos %s que ya existen en el catálogo: %s.\n", label, strings.Join(avoid, ", "))
}

// ManualIngredient 單一指定食材的研究指令
func (b *Builder) ManualIngredient(name, categoryHint, region string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Investiga el ingrediente \"%s\" para profesionales HORECA de %s.\n", name, region)
	if categoryHint != "" {
		fmt.Fprintf(&sb, "Categoría sugerida: %s.\n", categoryHint)
	}
	fmt.Fprintf(&sb, "El campo \"name\" debe ser exactamente \"%s\".\n", name)
	fmt.Fprintf(&sb, "Incluye precios mayoristas actuales para estos países: %s.\n", b.countryList())
	sb.WriteString(priceCurrency)
	sb.WriteString("Máximo 10 usos, 5 recetas y 10 variedades.\n")
	sb.WriteString("Si el ingrediente no existe o no es comestible, responde {\"error\": \"DUPLICADO_DETECTADO\"} o {\"error\": \"not_found\"}.\n")
	sb.WriteString("Devuelve un ÚNICO objeto JSON con esta estructura:\n")
	sb.WriteString(ingredientSchema)
	return sb.String()
}

// AutomaticIngredients 由 AI 挑選食材的研究指令
func (b *Builder) AutomaticIngredients(count int, category, region string, avoid []string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Selecciona %d ingredientes relevantes para cocina profesional en %s", count, region)
	if category != "" {
		fmt.Fprintf(&sb, " de la categoría \"%s\"", category)
	}
	sb.WriteString(".\n")
	sb.WriteString(b.avoidSection(avoid, "ingredientes"))
	fmt.Fprintf(&sb, "Incluye precios mayoristas actuales para estos países: %s.\n", b.countryList())
	sb.WriteString(priceCurrency)
	fmt.Fprintf(&sb, "Devuelve un ARRAY JSON con como máximo %d objetos con esta estructura:\n", count)
	sb.WriteString(ingredientSchema)
	return sb.String()
}

// Categories 分類生成指令；names 非空時為手動清單
func (b *Builder) Categories(count int, names, avoid []string) string {
	var sb strings.Builder
	if len(names) > 0 {
		fmt.Fprintf(&sb, "Describe estas categorías de ingredientes para cocina profesional: %s.\n", strings.Join(names, ", "))
		sb.WriteString("Conserva exactamente los nombres indicados en el campo \"name\".\n")
	} else {
		fmt.Fprintf(&sb, "Propón %d categorías de ingredientes útiles para cocina profesional.\n", count)
		sb.WriteString(b.avoidSection(avoid, "categorías"))
	}
	sb.WriteString(`Devuelve un ARRAY JSON de objetos {"name": "nombre en español", "name_en": "English name", "description": "descripción breve"}.`)
	return sb.String()
}

// Prices 價格研究指令
func (b *Builder) Prices(ingredientName, region string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Investiga el precio mayorista HORECA actual del ingrediente \"%s\" (mercado de referencia: %s).\n", ingredientName, region)
	fmt.Fprintf(&sb, "Países: %s.\n", b.countryList())
	sb.WriteString(priceCurrency)
	sb.WriteString("Indica en season_variation cualquier variación estacional relevante.\n")
	fmt.Fprintf(&sb, `Devuelve un ÚNICO objeto JSON: {"ingredient_name": "%s", "prices_by_country": [{"country_code": "ES", "price": 0.0, "unit": "kg", "season_variation": ""}]}`, ingredientName)
	return sb.String()
}

// Images 圖片研究指令
func (b *Builder) Images(name, description string, max int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Encuentra hasta %d fotografías reales del ingrediente \"%s\".\n", max, name)
	if description != "" {
		fmt.Fprintf(&sb, "Contexto: %s\n", description)
	}
	sb.WriteString("Cada URL debe apuntar directamente a un archivo de imagen (.jpg, .jpeg, .png, .webp) accesible públicamente.\n")
	sb.WriteString("Clasifica cada imagen como raw, cooked, cut, whole o variety.\n")
	sb.WriteString(`Devuelve JSON: {"images": [{"url": "https://...", "caption": "descripción breve", "category": "raw"}]}`)
	return sb.String()
}
