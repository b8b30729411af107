package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"path"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aluiziolira/go-scrape-shopify/config"
	"github.com/aluiziolira/go-scrape-shopify/models"
	"github.com/aluiziolira/go-scrape-shopify/pipeline"
	"github.com/aluiziolira/go-scrape-shopify/transform"
	"github.com/gocolly/colly/v2"
)

// Scraper fetches product records from one storefront and maps them onto
// the canonical schema. The underlying transport, timeout, and concurrency
// ceiling are fixed at construction and shared by every fetch in the batch.
type Scraper struct {
	cfg       *config.Config
	domain    string
	collector *colly.Collector
	client    *http.Client
	transport http.RoundTripper
	limiters  *domainLimiters
	Metrics   *Metrics

	requestCount  int64
	errorCount    int64
	notFoundCount int64
	emptyCount    int64

	mu            sync.Mutex
	products      []*models.Product
	failedHandles []string
	errorsByType  map[string]int

	runCtx       context.Context
	handlersOnce sync.Once
}

// NewScraper builds a scraper for the store named in cfg.Domain.
func NewScraper(cfg *config.Config) (*Scraper, error) {
	return newScraperFor(cfg, cfg.Domain)
}

// NewScraperFor builds a scraper for one store of a multi-store run,
// keeping the rest of the configuration.
func NewScraperFor(cfg *config.Config, domain string) (*Scraper, error) {
	return newScraperFor(cfg, domain)
}

func newScraperFor(cfg *config.Config, domain string) (*Scraper, error) {
	normalized, err := NormalizeDomain(domain)
	if err != nil {
		return nil, err
	}
	parsed, err := url.Parse(normalized)
	if err != nil {
		return nil, fmt.Errorf("parse domain: %w", err)
	}

	collector := colly.NewCollector(
		colly.Async(true),
		colly.AllowedDomains(parsed.Host),
		colly.UserAgent(cfg.UserAgent),
	)
	collector.SetRequestTimeout(cfg.Timeout)
	collector.IgnoreRobotsTxt = !cfg.RespectRobotsTxt

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		MaxConnsPerHost:     cfg.MaxConnsPerHost,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	collector.WithTransport(transport)

	if err := collector.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: cfg.Parallelism,
	}); err != nil {
		return nil, fmt.Errorf("configure concurrency limit: %w", err)
	}

	s := &Scraper{
		cfg:       cfg,
		domain:    normalized,
		collector: collector,
		client: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
		transport:    transport,
		errorsByType: make(map[string]int),
		Metrics:      NewMetrics(),
	}
	if cfg.DomainRPS > 0 {
		s.limiters = newDomainLimiters(cfg.DomainRPS, int(cfg.DomainRPS))
	}
	return s, nil
}

// Domain returns the normalized store address the scraper targets.
func (s *Scraper) Domain() string {
	return s.domain
}

// WithTransport replaces the shared transport. Used by tests to inject a
// mock round tripper into both the collector and the discovery client.
func (s *Scraper) WithTransport(rt http.RoundTripper) {
	s.transport = rt
	s.collector.WithTransport(rt)
	s.client.Transport = rt
}

// Close releases the scraper's network resources. Safe to call on every
// exit path; idle connections held by the shared transport are torn down.
func (s *Scraper) Close() {
	if t, ok := s.transport.(*http.Transport); ok {
		t.CloseIdleConnections()
	}
}

// Run fetches every handle concurrently, transforms the survivors into
// canonical products, and streams them through p when it is non-nil.
// Per-handle failures never abort the batch; the worst outcome is an
// empty product list.
func (s *Scraper) Run(ctx context.Context, handles []string, p *pipeline.Pipeline) (*models.ScrapeResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	s.runCtx = ctx
	s.configureHandlers(p)

	slog.Info("scraping products",
		slog.String("domain", s.domain),
		slog.Int("handles", len(handles)),
		slog.Int("parallelism", s.cfg.Parallelism),
	)
	start := time.Now()

	for _, handle := range handles {
		if ctx.Err() != nil {
			break
		}
		if err := s.collector.Visit(s.productURL(handle)); err != nil {
			// Duplicate handles and filtered URLs are rejected before any
			// request is issued.
			slog.Debug("visit rejected", slog.String("handle", handle), slog.Any("error", err))
		}
	}
	s.collector.Wait()

	result := &models.ScrapeResult{
		Products:      s.snapshotProducts(),
		StartTime:     start,
		EndTime:       time.Now(),
		RequestCount:  int(atomic.LoadInt64(&s.requestCount)),
		ErrorCount:    int(atomic.LoadInt64(&s.errorCount)),
		NotFoundCount: int(atomic.LoadInt64(&s.notFoundCount)),
		EmptyCount:    int(atomic.LoadInt64(&s.emptyCount)),
		FailedHandles: s.snapshotFailedHandles(),
		ErrorsByType:  s.snapshotErrors(),
	}

	slog.Info("scrape finished",
		slog.String("domain", s.domain),
		slog.Int("products", len(result.Products)),
		slog.Int("errors", result.ErrorCount),
		slog.Duration("elapsed", result.EndTime.Sub(result.StartTime)),
	)
	return result, nil
}

func (s *Scraper) configureHandlers(p *pipeline.Pipeline) {
	s.handlersOnce.Do(func() {
		s.collector.OnRequest(func(r *colly.Request) {
			if s.limiters != nil {
				if err := s.limiters.Wait(s.runCtx, r.URL.Host); err != nil {
					r.Abort()
					return
				}
			}
			r.Ctx.Put("start", time.Now())
			atomic.AddInt64(&s.requestCount, 1)
			s.Metrics.IncRequest("product")
		})

		s.collector.OnResponse(func(r *colly.Response) {
			if start, ok := r.Request.Ctx.GetAny("start").(time.Time); ok {
				s.Metrics.ObserveDuration(time.Since(start))
			}
			s.handleProductResponse(r, p)
		})

		s.collector.OnError(func(r *colly.Response, err error) {
			status := 0
			var handle, requestURL string
			if r != nil {
				status = r.StatusCode
				if r.Request != nil && r.Request.URL != nil {
					handle = handleFromURL(r.Request.URL)
					requestURL = r.Request.URL.String()
				}
			}

			if status == http.StatusNotFound {
				atomic.AddInt64(&s.notFoundCount, 1)
				s.Metrics.IncNotFound()
				slog.Debug("product not found", slog.String("handle", handle))
				return
			}

			label := errorLabel(classifyError(err, status))
			atomic.AddInt64(&s.errorCount, 1)
			s.Metrics.IncError(label)

			s.mu.Lock()
			s.errorsByType[label]++
			s.failedHandles = append(s.failedHandles, handle)
			s.mu.Unlock()

			slog.Error("product fetch failed",
				slog.String("handle", handle),
				slog.String("url", requestURL),
				slog.String("category", label),
				slog.Any("error", err),
			)
		})
	})
}

func (s *Scraper) handleProductResponse(r *colly.Response, p *pipeline.Pipeline) {
	handle := handleFromURL(r.Request.URL)

	var envelope struct {
		Product transform.Raw `json:"product"`
	}
	if err := json.Unmarshal(r.Body, &envelope); err != nil {
		atomic.AddInt64(&s.errorCount, 1)
		s.Metrics.IncError("parse")
		s.mu.Lock()
		s.errorsByType["parse"]++
		s.failedHandles = append(s.failedHandles, handle)
		s.mu.Unlock()
		slog.Error("malformed product body",
			slog.String("handle", handle),
			slog.Any("error", err),
		)
		return
	}
	if envelope.Product == nil {
		atomic.AddInt64(&s.emptyCount, 1)
		slog.Debug("response carried no product", slog.String("handle", handle))
		return
	}

	product := transform.Product(envelope.Product)
	s.Metrics.IncProducts()

	s.mu.Lock()
	s.products = append(s.products, product)
	s.mu.Unlock()

	if p != nil {
		if err := p.Process(product); err != nil && err != pipeline.ErrPipelineClosed {
			slog.Error("pipeline process error", slog.Any("error", err))
		}
	}
}

func (s *Scraper) productURL(handle string) string {
	return s.domain + "/products/" + handle + ".json"
}

func (s *Scraper) snapshotProducts() []*models.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.Product, len(s.products))
	copy(out, s.products)
	return out
}

func (s *Scraper) snapshotFailedHandles() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.failedHandles))
	copy(out, s.failedHandles)
	return out
}

func (s *Scraper) snapshotErrors() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int, len(s.errorsByType))
	for k, v := range s.errorsByType {
		out[k] = v
	}
	return out
}

// NormalizeDomain ensures a store address carries a scheme and no
// trailing slash.
func NormalizeDomain(domain string) (string, error) {
	domain = strings.TrimSpace(domain)
	if domain == "" {
		return "", fmt.Errorf("domain cannot be empty")
	}
	if !strings.HasPrefix(domain, "http://") && !strings.HasPrefix(domain, "https://") {
		domain = "https://" + domain
	}
	parsed, err := url.Parse(domain)
	if err != nil {
		return "", fmt.Errorf("parse domain: %w", err)
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("domain must include a host")
	}
	return strings.TrimRight(parsed.String(), "/"), nil
}

// IsShopifyDomain reports whether an address looks like a Shopify store.
// Heuristic only; callers warn on a miss rather than refusing the run.
func IsShopifyDomain(domain string) bool {
	lower := strings.ToLower(domain)
	return strings.Contains(lower, "myshopify.com") ||
		strings.Contains(lower, "shopify") ||
		strings.Contains(lower, "cdn.shopify.com")
}

func handleFromURL(u *url.URL) string {
	if u == nil {
		return ""
	}
	return strings.TrimSuffix(path.Base(u.Path), ".json")
}
