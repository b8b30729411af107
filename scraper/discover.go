package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
)

// listingEndpoints are the bulk-listing paths tried in order during
// discovery. The first 200 response wins; later endpoints are never hit.
var listingEndpoints = []string{
	"/collections/all/products.json",
	"/products.json",
	"/sitemap_products_1.xml",
}

var sitemapHandlePattern = regexp.MustCompile(`/products/([^<"\s]+)`)

// Discover enumerates product handles for the store without being told
// them. Transport faults and non-200 statuses move the chain to the next
// endpoint; when every endpoint fails the result is an empty list, not an
// error.
func (s *Scraper) Discover(ctx context.Context, maxProducts int) []string {
	if ctx == nil {
		ctx = context.Background()
	}

	for _, endpoint := range listingEndpoints {
		target := s.domain + endpoint

		body, status, err := s.fetchListing(ctx, target)
		if err != nil {
			slog.Debug("listing endpoint unreachable",
				slog.String("url", target),
				slog.Any("error", err),
			)
			continue
		}
		if status != http.StatusOK {
			slog.Debug("listing endpoint refused",
				slog.String("url", target),
				slog.Int("status", status),
			)
			continue
		}

		var handles []string
		if strings.HasSuffix(endpoint, ".xml") {
			handles = sitemapHandles(body, maxProducts)
		} else {
			handles, err = listingHandles(body, maxProducts)
			if err != nil {
				slog.Debug("listing body malformed",
					slog.String("url", target),
					slog.Any("error", err),
				)
				continue
			}
		}

		s.Metrics.AddDiscovered(len(handles))
		slog.Info("discovered products",
			slog.String("url", target),
			slog.Int("handles", len(handles)),
		)
		return handles
	}

	slog.Warn("could not discover products", slog.String("domain", s.domain))
	return nil
}

func (s *Scraper) fetchListing(ctx context.Context, target string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("build listing request: %w", err)
	}
	req.Header.Set("User-Agent", s.cfg.UserAgent)
	req.Header.Set("Accept", "application/json, text/xml")

	s.Metrics.IncRequest("discovery")
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read listing body: %w", err)
	}
	return body, resp.StatusCode, nil
}

func listingHandles(body []byte, maxProducts int) ([]string, error) {
	var listing struct {
		Products []struct {
			Handle string `json:"handle"`
		} `json:"products"`
	}
	if err := json.Unmarshal(body, &listing); err != nil {
		return nil, err
	}

	handles := make([]string, 0, len(listing.Products))
	for _, p := range listing.Products {
		if p.Handle == "" {
			continue
		}
		handles = append(handles, p.Handle)
		if len(handles) >= maxProducts {
			break
		}
	}
	return handles, nil
}

func sitemapHandles(body []byte, maxProducts int) []string {
	matches := sitemapHandlePattern.FindAllStringSubmatch(string(body), -1)
	handles := make([]string, 0, len(matches))
	for _, m := range matches {
		handles = append(handles, m[1])
		if len(handles) >= maxProducts {
			break
		}
	}
	return handles
}
