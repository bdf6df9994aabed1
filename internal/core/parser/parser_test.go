package parser

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeAll(t *testing.T, records []json.RawMessage) []map[string]any {
	t.Helper()
	out := make([]map[string]any, 0, len(records))
	for _, r := range records {
		var m map[string]any
		require.NoError(t, json.Unmarshal(r, &m))
		out = append(out, m)
	}
	return out
}

func fakeRecords(n int) []map[string]any {
	faker := gofakeit.New(42)
	out := make([]map[string]any, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, map[string]any{
			"name":        faker.Fruit(),
			"name_en":     faker.Vegetable(),
			"description": faker.Sentence(12),
			"popularity":  float64(faker.Number(0, 100)),
			"prices_by_country": []any{
				map[string]any{"country_code": "ES", "price": faker.Float64Range(1, 20), "unit": "kg"},
			},
			"uses": []any{faker.Word(), faker.Word()},
		})
	}
	return out
}

func TestParseRoundTrip(t *testing.T) {
	want := fakeRecords(5)
	data, err := json.Marshal(want)
	require.NoError(t, err)

	got, err := Parse(string(data))
	require.NoError(t, err)
	assert.Equal(t, toAny(t, want), decodeAll(t, got))

	// un objeto suelto se normaliza a un arreglo de un elemento
	single, err := json.Marshal(want[0])
	require.NoError(t, err)
	got, err = Parse(string(single))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, toAny(t, want[:1]), decodeAll(t, got))
}

func toAny(t *testing.T, v []map[string]any) []map[string]any {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	var out []map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func TestSanitizeIsNoOpOnCleanJSON(t *testing.T) {
	data, err := json.Marshal(fakeRecords(3))
	require.NoError(t, err)
	s := string(data)
	assert.Equal(t, s, EscapeDescriptionQuotes(Sanitize(s)))

	spaced := `[{"name":"sal  marina","description":"Escamas   de \"Maldon\"  en copos"}]`
	assert.Equal(t, spaced, EscapeDescriptionQuotes(Sanitize(spaced)))
	got, err := Parse(spaced)
	require.NoError(t, err)
	assert.Equal(t, "sal  marina", decodeAll(t, got)[0]["name"])
}

func TestSanitizeCollapsesOnlyOutsideStrings(t *testing.T) {
	raw := "{\"name\":   \"sal  marina\",\n\n   \"unit\":\t\"kg\"}"
	assert.Equal(t, `{"name": "sal  marina", "unit": "kg"}`, Sanitize(raw))
}

func TestParseFencedWithLiteralNewlines(t *testing.T) {
	raw := "```json\n[\n  {\"name\": \"romero\",\n   \"description\": \"Hierba aromática\nmediterránea\"}\n]\n```"
	clean := `[{"name":"romero","description":"Hierba aromática mediterránea"}]`

	got, err := Parse(raw)
	require.NoError(t, err)
	want, err := Parse(clean)
	require.NoError(t, err)
	assert.Equal(t, decodeAll(t, want), decodeAll(t, got))
}

func TestParseEscapesDescriptionQuotes(t *testing.T) {
	raw := `[{"name":"azafrán","description":"Conocido como "oro rojo", muy caro","category":"especias"}]`
	got, err := Parse(raw)
	require.NoError(t, err)
	require.Len(t, got, 1)
	rec := decodeAll(t, got)[0]
	assert.Equal(t, `Conocido como "oro rojo", muy caro`, rec["description"])
	assert.Equal(t, "especias", rec["category"])
}

func TestParseExtractsFromProse(t *testing.T) {
	raw := `Aquí tienes los datos solicitados: [{"name":"lima kaffir"}] Espero que te sirva {ok}.`
	got, err := Parse(raw)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "lima kaffir", decodeAll(t, got)[0]["name"])
}

func TestParseUltraCleanRecovery(t *testing.T) {
	raw := `[{"name":"x"},\n{"name":"y"}]`
	got, err := Parse(raw)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestParseFailureIncludesPreview(t *testing.T) {
	_, err := Parse("lo siento, no hay datos disponibles")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoJSONFound))
	assert.Contains(t, err.Error(), "no hay datos")
}

func TestCheckBalanceIgnoresStrings(t *testing.T) {
	b, k := CheckBalance(`{"a":"{[","b":[1,2]}`)
	assert.Zero(t, b)
	assert.Zero(t, k)

	b, k = CheckBalance(`[{"a":1}`)
	assert.Zero(t, b)
	assert.Equal(t, 1, k)
}

func TestFlagSuspiciousPricesNeverRejects(t *testing.T) {
	raw := `[{"name":"azafrán","prices_by_country":[{"country_code":"ES","price":2999,"unit":"kg"},{"country_code":"FR","price":"5.000,00 €","unit":"kg"}]}]`
	p := New(nil)
	got, err := p.Parse(raw)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 1, p.FlagSuspiciousPrices(got))
}

func TestFlagSuspiciousPricesComparesPerKilogram(t *testing.T) {
	raw := `{"name":"azafrán","prices_by_country":[{"country_code":"ES","price":5,"unit":"g"},{"country_code":"FR","price":5,"unit":"kg"}]}`
	p := New(nil)
	got, err := p.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, 1, p.FlagSuspiciousPrices(got))
}

func TestParseLenient(t *testing.T) {
	got, err := ParseLenient(`{"images":[{"url":"https://a.org/b.jpg"},{"url":"https://a.org/c.png"}]}`, "images")
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = ParseLenient("Resultados:\n```json\n[{\"url\":\"https://a.org/b.jpg\"}]\n```", "images")
	require.NoError(t, err)
	assert.Len(t, got, 1)

	got, err = ParseLenient(`Encontré {"url":"https://x.org/1.png","caption":"a"} y también {"url":"https://x.org/2.png"} [`, "images")
	require.NoError(t, err)
	assert.Len(t, got, 2)

	_, err = ParseLenient("nada", "images")
	assert.ErrorIs(t, err, ErrNoJSONFound)
}
