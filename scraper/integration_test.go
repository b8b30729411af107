package scraper

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/aluiziolira/go-scrape-shopify/models"
	"github.com/aluiziolira/go-scrape-shopify/pipeline"
	"github.com/jarcoal/httpmock"
)

type collectingWriter struct {
	mu       sync.Mutex
	products []*models.Product
}

func (cw *collectingWriter) Write(products []*models.Product) error {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	cw.products = append(cw.products, products...)
	return nil
}

func (cw *collectingWriter) Close() error {
	return nil
}

func (cw *collectingWriter) Validate() error {
	return nil
}

func (cw *collectingWriter) all() []*models.Product {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	out := make([]*models.Product, len(cw.products))
	copy(out, cw.products)
	return out
}

func TestScraper_Integration(t *testing.T) {
	cfg := testConfig()
	cfg.Parallelism = 4
	cfg.BatchSize = 2
	cfg.PipelineBufferSize = 32

	s, transport := newTestScraper(t, cfg)

	transport.RegisterResponder("GET", "http://example.test/collections/all/products.json",
		httpmock.NewStringResponder(200,
			`{"products": [{"handle":"tee"},{"handle":"mug"},{"handle":"cap"},{"handle":"gone"}]}`))

	fixtures := map[string]string{
		"tee": `{"product": {
			"id": 101, "title": "Logo Tee", "handle": "tee",
			"body_html": "<p>Soft cotton.</p>",
			"vendor": "Acme", "product_type": "Apparel",
			"tags": "apparel, cotton",
			"variants": [
				{"id": 1, "title": "S", "price": "19.00", "sku": "TEE-S", "inventory_quantity": 3, "available": true},
				{"id": 2, "title": "M", "price": "19.00", "sku": "TEE-M"}
			],
			"images": [{"src": "https://cdn.example/tee.jpg"}, "https://cdn.example/tee-back.jpg"]
		}}`,
		"mug": `{"product": {
			"id": 102, "title": "Mug", "handle": "mug",
			"variants": []
		}}`,
		"cap": `{"product": {
			"id": 103, "title": "Cap", "handle": "cap",
			"variants": [{"id": 3, "price": "12.50", "currency": "EUR"}]
		}}`,
	}
	for handle, body := range fixtures {
		transport.RegisterResponder("GET", fmt.Sprintf("http://example.test/products/%s.json", handle),
			httpmock.NewStringResponder(200, body))
	}
	transport.RegisterResponder("GET", "http://example.test/products/gone.json",
		httpmock.NewStringResponder(404, "Not Found"))

	handles := s.Discover(context.Background(), 100)
	if len(handles) != 4 {
		t.Fatalf("discovered handles = %v, want 4", handles)
	}

	writer := &collectingWriter{}
	p := pipeline.NewPipeline(context.Background(), writer, cfg)
	p.Start(2)

	result, err := s.Run(context.Background(), handles, p)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("close pipeline: %v", err)
	}

	if len(result.Products) != 3 {
		t.Fatalf("products = %d, want 3", len(result.Products))
	}
	if result.NotFoundCount != 1 {
		t.Errorf("not found = %d, want 1", result.NotFoundCount)
	}

	written := writer.all()
	if len(written) != 3 {
		t.Fatalf("pipeline wrote %d products, want 3", len(written))
	}

	byHandle := make(map[string]*models.Product, len(written))
	for _, p := range written {
		byHandle[p.Handle] = p
	}

	tee := byHandle["tee"]
	if tee == nil {
		t.Fatal("missing tee product")
	}
	if tee.ID != "101" || tee.Price != 19.0 || tee.Currency != "USD" {
		t.Errorf("tee = id %q price %v currency %q", tee.ID, tee.Price, tee.Currency)
	}
	if tee.Description != "Soft cotton." {
		t.Errorf("tee description = %q", tee.Description)
	}
	if len(tee.Images) != 2 || tee.Images[1] != "https://cdn.example/tee-back.jpg" {
		t.Errorf("tee images = %v", tee.Images)
	}
	if len(tee.Variants) != 2 {
		t.Fatalf("tee variants = %d, want 2", len(tee.Variants))
	}
	if m := tee.Variants[1]; m.SKU != "TEE-M" || m.InventoryQuantity != 0 || m.Available || m.WeightUnit != "kg" {
		t.Errorf("defaulted variant = %+v", m)
	}

	mug := byHandle["mug"]
	if mug == nil || mug.Price != 0.0 || mug.Currency != "USD" {
		t.Errorf("mug without variants should default pricing, got %+v", mug)
	}

	hat := byHandle["cap"]
	if hat == nil || hat.Price != 12.5 || hat.Currency != "EUR" {
		t.Errorf("cap should take first-variant pricing, got %+v", hat)
	}
}
