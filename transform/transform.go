// Package transform maps raw Shopify product records onto the canonical
// schema. Every field is read through a defaulting accessor, so a record
// with missing or oddly-typed keys never fails the mapping.
package transform

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/aluiziolira/go-scrape-shopify/models"
)

// Raw is the untyped product object extracted from the store's JSON body.
type Raw map[string]any

// Product converts a raw record into its canonical form.
func Product(raw Raw) *models.Product {
	variants := Sequence(raw, "variants")

	price := 0.0
	currency := "USD"
	if len(variants) > 0 {
		if first, ok := Mapping(variants[0]); ok {
			price = Number(first, "price", 0)
			currency = String(first, "currency", "USD")
		}
	}

	canonical := make([]models.Variant, 0, len(variants))
	for _, v := range variants {
		m, ok := Mapping(v)
		if !ok {
			continue
		}
		canonical = append(canonical, Variant(m))
	}

	return &models.Product{
		ID:           String(raw, "id", ""),
		Title:        String(raw, "title", ""),
		Description:  StripParagraphs(String(raw, "body_html", "")),
		Price:        price,
		Currency:     currency,
		Availability: valueOr(raw, "available", false),
		Vendor:       String(raw, "vendor", ""),
		ProductType:  String(raw, "product_type", ""),
		Tags:         valueOr(raw, "tags", []any{}),
		Images:       Images(raw),
		Variants:     canonical,
		CreatedAt:    String(raw, "created_at", ""),
		UpdatedAt:    String(raw, "updated_at", ""),
		Handle:       String(raw, "handle", ""),

		TitleDE:       String(raw, "title_de", ""),
		TitleFR:       String(raw, "title_fr", ""),
		TitleES:       String(raw, "title_es", ""),
		DescriptionDE: StripParagraphs(String(raw, "description_de", "")),
		DescriptionFR: StripParagraphs(String(raw, "description_fr", "")),
		DescriptionES: StripParagraphs(String(raw, "description_es", "")),
	}
}

// Variant converts one raw variant mapping, defaulting every missing key.
func Variant(raw Raw) models.Variant {
	return models.Variant{
		ID:                String(raw, "id", ""),
		Title:             String(raw, "title", ""),
		Price:             Number(raw, "price", 0),
		SKU:               String(raw, "sku", ""),
		InventoryQuantity: Integer(raw, "inventory_quantity", 0),
		Available:         Boolean(raw, "available", false),
		Weight:            Number(raw, "weight", 0),
		WeightUnit:        String(raw, "weight_unit", "kg"),
	}
}

// Images flattens the raw image entries into URL strings. An entry is
// either a mapping with a "src" key or already a bare value.
func Images(raw Raw) []string {
	entries := Sequence(raw, "images")
	out := make([]string, 0, len(entries))
	for _, entry := range entries {
		if m, ok := Mapping(entry); ok {
			out = append(out, String(m, "src", ""))
			continue
		}
		out = append(out, coerceString(entry))
	}
	return out
}

// StripParagraphs removes literal paragraph tags from markup. This is a
// deliberate substring removal, not an HTML parse; other markup passes
// through untouched.
func StripParagraphs(s string) string {
	s = strings.ReplaceAll(s, "<p>", "")
	return strings.ReplaceAll(s, "</p>", "")
}

// String reads raw[key] coerced to text. Numeric identifiers become their
// decimal form.
func String(raw Raw, key, def string) string {
	v, ok := raw[key]
	if !ok || v == nil {
		return def
	}
	return coerceString(v)
}

// Number reads raw[key] as a float, accepting numeric strings.
func Number(raw Raw, key string, def float64) float64 {
	v, ok := raw[key]
	if !ok || v == nil {
		return def
	}
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(n), 64); err == nil {
			return f
		}
	}
	return def
}

// Integer reads raw[key] as an int, truncating floats from JSON decoding.
func Integer(raw Raw, key string, def int) int {
	v, ok := raw[key]
	if !ok || v == nil {
		return def
	}
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	case string:
		if i, err := strconv.Atoi(strings.TrimSpace(n)); err == nil {
			return i
		}
	}
	return def
}

// Boolean reads raw[key] as a bool.
func Boolean(raw Raw, key string, def bool) bool {
	v, ok := raw[key]
	if !ok || v == nil {
		return def
	}
	if b, ok := v.(bool); ok {
		return b
	}
	return def
}

// Sequence reads raw[key] as a list, returning nil for anything else.
func Sequence(raw Raw, key string) []any {
	if v, ok := raw[key].([]any); ok {
		return v
	}
	return nil
}

// Mapping narrows an arbitrary value to a raw mapping.
func Mapping(v any) (Raw, bool) {
	m, ok := v.(map[string]any)
	return Raw(m), ok
}

func valueOr(raw Raw, key string, def any) any {
	if v, ok := raw[key]; ok && v != nil {
		return v
	}
	return def
}

func coerceString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		// JSON numbers decode as float64; render identifiers without an
		// exponent or trailing zeros.
		return strconv.FormatFloat(s, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}
