// Package server exposes the read-side HTTP API: the violations
// listing, the analytics reports, and the raw image files.
package server

import (
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/patrickmn/go-cache"

	"github.com/menta2k/sitewatch/internal/analytics"
	"github.com/menta2k/sitewatch/internal/store"
)

// Store is the subset of the data store the server reads from.
type Store interface {
	AllSites() ([]store.Site, error)
	AllViolations() ([]store.Violation, error)
	ViolationsByTimestampDesc() ([]store.Violation, error)
}

// Options configures the HTTP server.
type Options struct {
	ImagesDir string        // directory served under /images
	CacheTTL  time.Duration // analytics response cache; zero disables
}

// Server wires the echo router over a data store.
type Server struct {
	echo  *echo.Echo
	ds    Store
	opts  Options
	cache *cache.Cache
	log   *slog.Logger
}

// ViolationEntry is one row of the violations listing. The timestamp is
// split into date and time parts; when it does not parse, the raw value
// is carried in Date and Time is empty.
type ViolationEntry struct {
	ID             uint   `json:"ID"`
	Date           string `json:"Date"`
	Time           string `json:"Time"`
	SiteName       string `json:"Site_Name"`
	ImageReference string `json:"Image_Reference"`
	ViolationType  string `json:"Violation_Type"`
	RiskLevel      string `json:"Risk_Level"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// New builds a server over the given store.
func New(ds Store, opts Options, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	s := &Server{echo: e, ds: ds, opts: opts, log: log}
	if opts.CacheTTL > 0 {
		s.cache = cache.New(opts.CacheTTL, 2*opts.CacheTTL)
	}

	e.GET("/", s.handleIndex)
	e.GET("/violations", s.handleViolations)
	e.GET("/high_risk_areas", s.handleHighRiskAreas)
	e.GET("/violation_trends", s.handleViolationTrends)
	e.GET("/compliance_rates", s.handleComplianceRates)
	if opts.ImagesDir != "" {
		e.GET("/images/:filename", s.handleImage)
	}

	return s
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start(addr string) error {
	s.log.Info("starting HTTP server", "addr", addr)
	return s.echo.Start(addr)
}

// Handler returns the underlying router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.echo }

func (s *Server) handleIndex(c echo.Context) error {
	return c.String(http.StatusOK, "SiteWatch safety compliance API")
}

func (s *Server) handleViolations(c echo.Context) error {
	sites, err := s.ds.AllSites()
	if err != nil {
		return s.storeError(c, err)
	}
	rows, err := s.ds.ViolationsByTimestampDesc()
	if err != nil {
		return s.storeError(c, err)
	}

	names := make(map[uint]string, len(sites))
	for _, site := range sites {
		names[site.SiteID] = site.SiteName
	}

	entries := make([]ViolationEntry, 0, len(rows))
	for _, v := range rows {
		date, tm := splitTimestamp(v.Timestamp)
		entries = append(entries, ViolationEntry{
			ID:             v.ID,
			Date:           date,
			Time:           tm,
			SiteName:       names[v.SiteID],
			ImageReference: v.ImageReference,
			ViolationType:  v.ViolationType,
			RiskLevel:      v.RiskLevel,
		})
	}
	return c.JSON(http.StatusOK, entries)
}

func (s *Server) handleHighRiskAreas(c echo.Context) error {
	return s.cached(c, "high_risk_areas", func(sites []store.Site, violations []store.Violation) any {
		return analytics.RankSites(sites, violations)
	})
}

func (s *Server) handleViolationTrends(c echo.Context) error {
	return s.cached(c, "violation_trends", func(_ []store.Site, violations []store.Violation) any {
		return analytics.TrendWindows(violations)
	})
}

func (s *Server) handleComplianceRates(c echo.Context) error {
	return s.cached(c, "compliance_rates", func(sites []store.Site, violations []store.Violation) any {
		return analytics.ComplianceRates(sites, violations)
	})
}

// cached runs an aggregate over the full site and violation tables,
// memoizing the result for the configured TTL.
func (s *Server) cached(c echo.Context, key string, compute func([]store.Site, []store.Violation) any) error {
	if s.cache != nil {
		if hit, ok := s.cache.Get(key); ok {
			return c.JSON(http.StatusOK, hit)
		}
	}

	sites, err := s.ds.AllSites()
	if err != nil {
		return s.storeError(c, err)
	}
	violations, err := s.ds.AllViolations()
	if err != nil {
		return s.storeError(c, err)
	}

	result := compute(sites, violations)
	if s.cache != nil {
		s.cache.Set(key, result, cache.DefaultExpiration)
	}
	return c.JSON(http.StatusOK, result)
}

func (s *Server) handleImage(c echo.Context) error {
	name := c.Param("filename")
	// Reject anything that could escape the images directory.
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return c.JSON(http.StatusNotFound, errorResponse{Error: "image not found"})
	}
	return c.File(filepath.Join(s.opts.ImagesDir, name))
}

func (s *Server) storeError(c echo.Context, err error) error {
	s.log.Error("store query failed", "path", c.Path(), "error", err)
	return c.JSON(http.StatusInternalServerError, errorResponse{Error: "failed to query violation records"})
}

// splitTimestamp splits an ISO-8601 timestamp into date and clock
// parts. Unparsable values are returned verbatim as the date.
func splitTimestamp(ts string) (string, string) {
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return ts, ""
	}
	return t.Format("2006-01-02"), t.Format("15:04:05")
}
