package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLooseNumber(t *testing.T) {
	cases := map[string]float64{
		"12,50 €":     12.5,
		"1.234,56":    1234.56,
		"1,234.56":    1234.56,
		"3500 EUR/kg": 3500,
		"≈ 18.5":      18.5,
		"-2":          -2,
	}
	for in, want := range cases {
		got, ok := ParseLooseNumber(in)
		require.True(t, ok, in)
		assert.InDelta(t, want, got, 1e-9, in)
	}

	_, ok := ParseLooseNumber("precio no disponible")
	assert.False(t, ok)
}

func TestNumberUnmarshal(t *testing.T) {
	var payload struct {
		A Number `json:"a"`
		B Number `json:"b"`
		C Number `json:"c"`
		D Number `json:"d"`
	}
	err := json.Unmarshal([]byte(`{"a": 4.5, "b": "7,25", "c": null, "d": "n/a"}`), &payload)
	require.NoError(t, err)
	assert.Equal(t, Number(4.5), payload.A)
	assert.Equal(t, Number(7.25), payload.B)
	assert.Equal(t, Number(0), payload.C)
	assert.Equal(t, Number(0), payload.D)
}

func TestDecodeRecords(t *testing.T) {
	raw := []json.RawMessage{
		json.RawMessage(`{"name":"romero","name_en":"rosemary","category":"hierbas","prices_by_country":[{"country_code":"ES","price":"9,80","unit":"kg"}],"varieties":["Officinalis",{"name":"Prostratus","description":"rastrero"}]}`),
	}
	recs, err := DecodeRecords(TypeIngredient, raw)
	require.NoError(t, err)
	require.Len(t, recs, 1)

	ing, ok := recs[0].(*IngredientRecord)
	require.True(t, ok)
	assert.Equal(t, "romero", ing.DisplayName())
	assert.Equal(t, "rosemary", ing.NameEN)
	require.Len(t, ing.Prices, 1)
	assert.Equal(t, Number(9.8), ing.Prices[0].Price)
	require.Len(t, ing.Varieties, 2)
	assert.Equal(t, "Officinalis", ing.Varieties[0].Name)
	assert.Equal(t, "rastrero", ing.Varieties[1].Description)

	cats, err := DecodeRecords(TypeCategory, []json.RawMessage{json.RawMessage(`{"name":"Especias","description":"x"}`)})
	require.NoError(t, err)
	assert.Equal(t, TypeCategory, cats[0].Type())

	_, err = DecodeRecords(ContentType("recipe"), raw)
	assert.Error(t, err)
}

func TestCandidateMarshalFlattensRecord(t *testing.T) {
	rec := &IngredientRecord{IngredientNames: IngredientNames{Name: "romero"}}
	c := NewCandidate(rec, "perplexity")
	c.RequestedIngredient = "romero"

	data, err := json.Marshal(c)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, "romero", out["name"])
	assert.Equal(t, "romero", out["requested_ingredient"])
	assert.Equal(t, "success", out["status"])
	assert.Equal(t, "perplexity", out["ai_provider"])

	failed := FailedCandidate("trufa", StatusSkippedDuplicate, nil)
	data, err = json.Marshal(failed)
	require.NoError(t, err)
	assert.JSONEq(t, `{"requested_ingredient":"trufa","status":"skipped_to_save_tokens"}`, string(data))
	assert.False(t, failed.Status.OK())
}

func TestParseUnitAndPerKg(t *testing.T) {
	cases := map[string]Unit{
		"kg": UnitKg, "€/kg": UnitKg, "": UnitKg, "docena": UnitKg,
		"Litro": UnitLitre, "l": UnitLitre, "/L": UnitLitre,
		"gr": UnitGram, "g.": UnitGram, "gramos": UnitGram,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseUnit(in), in)
	}

	assert.Equal(t, 5000.0, UnitGram.PerKg(5))
	assert.Equal(t, 12.5, UnitKg.PerKg(12.5))
	assert.Equal(t, 3.0, UnitLitre.PerKg(3))
}
