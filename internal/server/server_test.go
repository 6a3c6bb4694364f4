package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menta2k/sitewatch/internal/analytics"
	"github.com/menta2k/sitewatch/internal/store"
	"github.com/menta2k/sitewatch/pkg/types"
)

// fakeStore serves canned rows, or a scripted error.
type fakeStore struct {
	sites      []store.Site
	violations []store.Violation
	err        error
}

func (f *fakeStore) AllSites() ([]store.Site, error) {
	return f.sites, f.err
}

func (f *fakeStore) AllViolations() ([]store.Violation, error) {
	return f.violations, f.err
}

func (f *fakeStore) ViolationsByTimestampDesc() ([]store.Violation, error) {
	return f.violations, f.err
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
}

func testData() *fakeStore {
	return &fakeStore{
		sites: []store.Site{
			{SiteID: 1, SiteName: "Gate 1"},
			{SiteID: 2, SiteName: "Gate 2"},
		},
		violations: []store.Violation{
			{ID: 1, Timestamp: "2024-01-21T10:30:00Z", SiteID: 1, ImageReference: "a.jpg", ViolationType: "no hardhat", RiskLevel: types.RiskHigh},
			{ID: 2, Timestamp: "2024-01-21T10:30:00Z", SiteID: 1, ImageReference: "a.jpg", ViolationType: "full PPE", RiskLevel: types.RiskCompliant},
			{ID: 3, Timestamp: "not a timestamp", SiteID: 2, ImageReference: "b.jpg", ViolationType: "no vest", RiskLevel: types.RiskMedium},
		},
	}
}

func TestViolationsListing(t *testing.T) {
	s := New(testData(), Options{}, nil)

	rec := get(t, s, "/violations")
	require.Equal(t, http.StatusOK, rec.Code)

	var entries []ViolationEntry
	decode(t, rec, &entries)
	require.Len(t, entries, 3)

	assert.Equal(t, "2024-01-21", entries[0].Date)
	assert.Equal(t, "10:30:00", entries[0].Time)
	assert.Equal(t, "Gate 1", entries[0].SiteName)
	assert.Equal(t, "no hardhat", entries[0].ViolationType)

	// Unparsable timestamps are passed through as the date.
	assert.Equal(t, "not a timestamp", entries[2].Date)
	assert.Equal(t, "", entries[2].Time)
}

func TestViolationsFieldNames(t *testing.T) {
	s := New(testData(), Options{}, nil)

	rec := get(t, s, "/violations")
	var raw []map[string]any
	decode(t, rec, &raw)
	require.NotEmpty(t, raw)

	for _, key := range []string{"ID", "Date", "Time", "Site_Name", "Image_Reference", "Violation_Type", "Risk_Level"} {
		assert.Contains(t, raw[0], key)
	}
}

func TestHighRiskAreas(t *testing.T) {
	s := New(testData(), Options{}, nil)

	rec := get(t, s, "/high_risk_areas")
	require.Equal(t, http.StatusOK, rec.Code)

	var ranked []analytics.SiteRisk
	decode(t, rec, &ranked)
	require.Len(t, ranked, 2)

	// Gate 1 holds the only high violation.
	assert.Equal(t, "Gate 1", ranked[0].SiteName)
	assert.Equal(t, 2, ranked[0].TotalViolations)
	assert.InDelta(t, 50.0, ranked[0].RiskScore, 1e-9)
}

func TestViolationTrends(t *testing.T) {
	s := New(testData(), Options{}, nil)

	rec := get(t, s, "/violation_trends")
	require.Equal(t, http.StatusOK, rec.Code)

	var trends map[string]analytics.WindowCounts
	decode(t, rec, &trends)
	require.Len(t, trends, 4)

	morning := trends[analytics.WindowMorning]
	assert.Equal(t, 1, morning.High)
	assert.Equal(t, 1, morning.Compliant)
	assert.Equal(t, 2, morning.Total)

	// The unparsable-timestamp row is excluded everywhere.
	assert.Equal(t, 0, trends[analytics.WindowNight].Total)
}

func TestComplianceRates(t *testing.T) {
	s := New(testData(), Options{}, nil)

	rec := get(t, s, "/compliance_rates")
	require.Equal(t, http.StatusOK, rec.Code)

	var rates map[string]analytics.SiteCompliance
	decode(t, rec, &rates)
	require.Len(t, rates, 2)

	assert.InDelta(t, 50.0, rates["Gate 1"].ComplianceRate, 1e-9)
	assert.Equal(t, 2, rates["Gate 1"].TotalViolations)
	assert.InDelta(t, 0.0, rates["Gate 2"].ComplianceRate, 1e-9)
}

func TestStoreErrorReturns500(t *testing.T) {
	s := New(&fakeStore{err: errors.New("disk on fire")}, Options{}, nil)

	for _, path := range []string{"/violations", "/high_risk_areas", "/violation_trends", "/compliance_rates"} {
		rec := get(t, s, path)
		assert.Equal(t, http.StatusInternalServerError, rec.Code, path)

		var resp errorResponse
		decode(t, rec, &resp)
		assert.NotEmpty(t, resp.Error, path)
		// Internal error detail stays out of the response body.
		assert.NotContains(t, resp.Error, "disk on fire", path)
	}
}

func TestImageEndpoint(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "site.jpg"), []byte("fake jpeg"), 0o644))

	s := New(testData(), Options{ImagesDir: dir}, nil)

	rec := get(t, s, "/images/site.jpg")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "fake jpeg", rec.Body.String())

	rec = get(t, s, "/images/missing.jpg")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestImageEndpointRejectsTraversal(t *testing.T) {
	dir := t.TempDir()
	s := New(testData(), Options{ImagesDir: dir}, nil)

	for _, name := range []string{"..%2F..%2Fetc%2Fpasswd", ".hidden"} {
		rec := get(t, s, "/images/"+name)
		assert.Equal(t, http.StatusNotFound, rec.Code, name)
	}
}

func TestAnalyticsResponseCaching(t *testing.T) {
	ds := testData()
	s := New(ds, Options{CacheTTL: time.Minute}, nil)

	rec := get(t, s, "/high_risk_areas")
	require.Equal(t, http.StatusOK, rec.Code)

	// Mutate the backing rows; the cached aggregate keeps serving.
	ds.violations = nil
	rec = get(t, s, "/high_risk_areas")

	var ranked []analytics.SiteRisk
	decode(t, rec, &ranked)
	require.Len(t, ranked, 2)
	assert.Equal(t, 2, ranked[0].TotalViolations)
}
