// file: internal/server/server.go
// version: 1.0.0
// guid: 2b3c4d5e-6f7a-8b9c-0d1e-2f3a4b5c6d7f

package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gofleetadvisor/fleetdocs/internal/dockey"
	"github.com/gofleetadvisor/fleetdocs/internal/matcher"
	"github.com/gofleetadvisor/fleetdocs/internal/metrics"
	"github.com/gofleetadvisor/fleetdocs/internal/models"
	"github.com/gofleetadvisor/fleetdocs/internal/query"
	"github.com/gofleetadvisor/fleetdocs/internal/registry"
	"github.com/gofleetadvisor/fleetdocs/internal/server/middleware"
	"github.com/gofleetadvisor/fleetdocs/internal/storage"
)

// indexTTL is how long the decoded document index is served before the
// buckets are listed again.
const indexTTL = 60 * time.Second

// dateLayout is the wire format for explicit start/end query parameters.
const dateLayout = "2006-01-02"

// Config holds HTTP server settings.
type Config struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	RateLimitPerMinute int
	RateLimitBurst     int
}

// Server exposes structured retrieval over the filed documents plus the
// company roster operations the ingestion side uses.
type Server struct {
	router     *gin.Engine
	httpServer *http.Server

	bucket   storage.Bucket
	urls     storage.URLBuilder
	registry *registry.Provider

	indexMu      sync.RWMutex
	indexKeys    []indexedKey
	indexFetched time.Time
}

type indexedKey struct {
	key    models.DocumentKey
	bucket string
}

// NewServer wires the router. urls may be nil; responses then omit public
// URLs.
func NewServer(bucket storage.Bucket, urls storage.URLBuilder, reg *registry.Provider, cfg Config) *Server {
	router := gin.Default()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())

	if cfg.RateLimitPerMinute > 0 {
		router.Use(middleware.NewIPRateLimiter(cfg.RateLimitPerMinute, cfg.RateLimitBurst).Middleware())
	}

	metrics.Register()

	s := &Server{
		router:   router,
		bucket:   bucket,
		urls:     urls,
		registry: reg,
	}
	s.setupRoutes()
	return s
}

// Start runs the server until SIGINT/SIGTERM, then shuts down gracefully.
func (s *Server) Start(cfg Config) error {
	s.httpServer = &http.Server{
		Addr:           fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Handler:        s.router,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		log.Printf("[INFO] starting server on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	log.Println("Server exited")
	return nil
}

// Router exposes the underlying gin engine for tests.
func (s *Server) Router() *gin.Engine { return s.router }

func (s *Server) setupRoutes() {
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	s.router.GET("/api/health", s.healthCheck)
	s.router.GET("/api/v1/health", s.healthCheck)

	v1 := s.router.Group("/api/v1")
	{
		v1.GET("/documents", s.searchDocuments)
		v1.GET("/documents/:name", s.getDocument)
		v1.GET("/companies", s.listCompanies)
		v1.POST("/companies/resolve", s.resolveCompany)
		v1.GET("/companies/suggest", s.suggestCompanies)
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Header("Access-Control-Allow-Methods", "POST, OPTIONS, GET")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}

func (s *Server) healthCheck(c *gin.Context) {
	resp := gin.H{
		"status":    "ok",
		"timestamp": time.Now().Unix(),
		"version":   "1.0.0",
	}
	if reg, err := s.registry.Snapshot(c.Request.Context()); err == nil {
		resp["companies"] = reg.Len()
	} else {
		resp["partial_error"] = err.Error()
	}
	s.indexMu.RLock()
	if !s.indexFetched.IsZero() {
		resp["documents"] = len(s.indexKeys)
	}
	s.indexMu.RUnlock()
	c.JSON(http.StatusOK, resp)
}

// searchDocuments serves GET /api/v1/documents. At least one constraint is
// required; an unconstrained listing of the whole archive is a client bug.
func (s *Server) searchDocuments(c *gin.Context) {
	start := time.Now()
	defer func() { metrics.ObserveSearch(time.Since(start)) }()
	metrics.IncSearchQuery()

	q, err := parseQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if q.IsEmpty() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "at least one search constraint is required"})
		return
	}

	index, err := s.index(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	keys := make([]models.DocumentKey, len(index))
	for i, ik := range index {
		keys[i] = ik.key
	}
	result := query.Match(q, keys, time.Now)

	docs := make([]models.Document, 0, len(result.Documents))
	for _, key := range result.Documents {
		docs = append(docs, s.present(key))
	}
	c.JSON(http.StatusOK, gin.H{
		"documents":      docs,
		"total_matches":  result.TotalMatches,
		"returned_count": result.ReturnedCount,
		"truncated":      result.Truncated,
	})
}

// getDocument serves GET /api/v1/documents/:name for a known filename.
func (s *Server) getDocument(c *gin.Context) {
	name := c.Param("name")
	key, err := dockey.Decode(name)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("not a recognized document name: %v", err)})
		return
	}

	bucket := storage.BucketInvoice
	if key.Inspection {
		bucket = storage.BucketDOT
	}
	exists, err := s.bucket.Exists(c.Request.Context(), bucket, key.Raw)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	if !exists {
		c.JSON(http.StatusNotFound, gin.H{"error": "document not found"})
		return
	}
	c.JSON(http.StatusOK, s.present(key))
}

func (s *Server) listCompanies(c *gin.Context) {
	reg, err := s.registry.Snapshot(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	companies := make([]models.Company, 0, reg.Len())
	for _, key := range reg.Keys() {
		companies = append(companies, models.Company{Key: key})
	}
	c.JSON(http.StatusOK, gin.H{"companies": companies, "count": len(companies)})
}

// resolveCompany serves POST /api/v1/companies/resolve: the same tiered
// resolution the ingestion pipeline applies, exposed for tooling.
func (s *Server) resolveCompany(c *gin.Context) {
	var req struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}

	reg, err := s.registry.Snapshot(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	res := matcher.Resolve(req.Name, reg)
	metrics.IncResolution(res.Kind)
	c.JSON(http.StatusOK, res)
}

// suggestCompanies serves GET /api/v1/companies/suggest?q= with loose
// interactive matching, for autocomplete rather than filing decisions.
func (s *Server) suggestCompanies(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "q is required"})
		return
	}

	reg, err := s.registry.Snapshot(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	ranks := fuzzy.RankFindNormalizedFold(matcher.Normalize(q), reg.Keys())
	sort.Sort(ranks)

	const maxSuggestions = 10
	suggestions := make([]string, 0, maxSuggestions)
	for _, r := range ranks {
		suggestions = append(suggestions, r.Target)
		if len(suggestions) == maxSuggestions {
			break
		}
	}
	c.JSON(http.StatusOK, gin.H{"suggestions": suggestions})
}

// present annotates a key with its bucket and public URL.
func (s *Server) present(key models.DocumentKey) models.Document {
	bucket := storage.BucketInvoice
	if key.Inspection {
		bucket = storage.BucketDOT
	}
	doc := models.Document{DocumentKey: key, Bucket: bucket}
	if s.urls != nil {
		doc.PublicURL = s.urls.PublicURL(bucket, key.Raw)
	}
	return doc
}

// index returns the decoded document index, relisting the buckets when the
// cached copy has expired. Undecodable names are logged and skipped; one
// stray object must not take retrieval down.
func (s *Server) index(ctx context.Context) ([]indexedKey, error) {
	s.indexMu.RLock()
	if !s.indexFetched.IsZero() && time.Since(s.indexFetched) < indexTTL {
		keys := s.indexKeys
		s.indexMu.RUnlock()
		return keys, nil
	}
	s.indexMu.RUnlock()

	var fresh []indexedKey
	for _, bucket := range []string{storage.BucketInvoice, storage.BucketDOT} {
		objects, err := s.bucket.List(ctx, bucket)
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", bucket, err)
		}
		for _, obj := range objects {
			key, err := dockey.Decode(obj.Name)
			if err != nil {
				log.Printf("[WARN] unindexable object %s/%s: %v", bucket, obj.Name, err)
				continue
			}
			fresh = append(fresh, indexedKey{key: key, bucket: bucket})
		}
	}

	s.indexMu.Lock()
	s.indexKeys = fresh
	s.indexFetched = time.Now()
	s.indexMu.Unlock()
	log.Printf("[DEBUG] document index refreshed: %d keys", len(fresh))
	return fresh, nil
}

// InvalidateIndex drops the cached document index.
func (s *Server) InvalidateIndex() {
	s.indexMu.Lock()
	s.indexFetched = time.Time{}
	s.indexKeys = nil
	s.indexMu.Unlock()
}

// parseQuery maps request parameters onto a retrieval query.
func parseQuery(c *gin.Context) (models.Query, error) {
	q := models.Query{
		Company: c.Query("company"),
		Unit:    c.Query("unit"),
		Invoice: c.Query("invoice"),
		VIN:     c.Query("vin"),
		Plate:   c.Query("plate"),
		DocType: c.DefaultQuery("type", models.DocTypeAll),
	}

	switch q.DocType {
	case models.DocTypeAll, models.DocTypeInvoice, models.DocTypeDOT:
	default:
		return q, fmt.Errorf("unknown type %q", q.DocType)
	}

	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return q, fmt.Errorf("invalid limit %q", raw)
		}
		q.Limit = n
	}

	r, err := parseDateRange(c)
	if err != nil {
		return q, err
	}
	q.DateRange = r
	return q, nil
}

func parseDateRange(c *gin.Context) (models.DateRange, error) {
	var r models.DateRange

	switch kind := models.RangeKind(c.Query("range")); kind {
	case models.RangeNone:
	case models.RangeThisWeek, models.RangeLastWeek, models.RangeThisMonth, models.RangeLastMonth:
		r.Kind = kind
		return r, nil
	default:
		return r, fmt.Errorf("unknown range %q", kind)
	}

	if raw := c.Query("month"); raw != "" {
		month, err := parseMonth(raw)
		if err != nil {
			return r, err
		}
		r.Kind = models.RangeMonth
		r.Month = month
		if rawYear := c.Query("year"); rawYear != "" {
			year, err := strconv.Atoi(rawYear)
			if err != nil {
				return r, fmt.Errorf("invalid year %q", rawYear)
			}
			r.Year = year
		}
		return r, nil
	}

	start, end := c.Query("start"), c.Query("end")
	if start == "" && end == "" {
		return r, nil
	}
	r.Kind = models.RangeExplicit
	if start != "" {
		t, err := time.Parse(dateLayout, start)
		if err != nil {
			return r, fmt.Errorf("invalid start %q, want YYYY-MM-DD", start)
		}
		r.Start = t
	}
	if end != "" {
		t, err := time.Parse(dateLayout, end)
		if err != nil {
			return r, fmt.Errorf("invalid end %q, want YYYY-MM-DD", end)
		}
		r.End = t
	}
	return r, nil
}

func parseMonth(raw string) (time.Month, error) {
	if n, err := strconv.Atoi(raw); err == nil {
		if n < 1 || n > 12 {
			return 0, fmt.Errorf("invalid month %q", raw)
		}
		return time.Month(n), nil
	}
	lower := strings.ToLower(raw)
	for m := time.January; m <= time.December; m++ {
		if strings.ToLower(m.String()) == lower {
			return m, nil
		}
	}
	return 0, fmt.Errorf("invalid month %q", raw)
}
