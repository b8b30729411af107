// Package models defines the canonical product schema emitted by the scraper.
package models

import "time"

// Product is the canonical representation of one Shopify catalog item.
// Field names follow the camelCase convention of the canonical schema;
// translated content, when the source carries it, lives in sibling fields
// suffixed with a two-letter locale code.
type Product struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Currency    string  `json:"currency"`

	// Availability carries the raw "available" flag unchanged; stores emit
	// either a boolean or a string here.
	Availability any    `json:"availability"`
	Vendor       string `json:"vendor"`
	ProductType  string `json:"productType"`

	// Tags is a verbatim passthrough. The source sends a comma-separated
	// string on some records and a list on others; callers must handle both.
	Tags      any       `json:"tags"`
	Images    []string  `json:"images"`
	Variants  []Variant `json:"variants"`
	CreatedAt string    `json:"createdAt"`
	UpdatedAt string    `json:"updatedAt"`
	Handle    string    `json:"handle"`

	TitleDE       string `json:"title_de,omitempty"`
	TitleFR       string `json:"title_fr,omitempty"`
	TitleES       string `json:"title_es,omitempty"`
	DescriptionDE string `json:"description_de,omitempty"`
	DescriptionFR string `json:"description_fr,omitempty"`
	DescriptionES string `json:"description_es,omitempty"`
}

// Variant is one purchasable variation of a product.
type Variant struct {
	ID                string  `json:"id"`
	Title             string  `json:"title"`
	Price             float64 `json:"price"`
	SKU               string  `json:"sku"`
	InventoryQuantity int     `json:"inventoryQuantity"`
	Available         bool    `json:"available"`
	Weight            float64 `json:"weight"`
	WeightUnit        string  `json:"weightUnit"`
}

// ScrapeResult holds the overall result of one scrape batch.
type ScrapeResult struct {
	Products      []*Product
	StartTime     time.Time
	EndTime       time.Time
	RequestCount  int
	ErrorCount    int
	NotFoundCount int
	EmptyCount    int
	FailedHandles []string
	ErrorsByType  map[string]int
}
