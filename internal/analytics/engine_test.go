package analytics

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menta2k/sitewatch/internal/store"
	"github.com/menta2k/sitewatch/pkg/types"
)

func violation(siteID uint, risk, ts string) store.Violation {
	return store.Violation{SiteID: siteID, RiskLevel: risk, Timestamp: ts}
}

func TestRankSites(t *testing.T) {
	sites := []store.Site{
		{SiteID: 1, SiteName: "Gate 1"},
		{SiteID: 2, SiteName: "Gate 2"},
		{SiteID: 3, SiteName: "Quiet Site"},
	}
	violations := []store.Violation{
		violation(1, types.RiskHigh, "2024-01-21T10:30:00Z"),
		violation(1, types.RiskCompliant, "2024-01-21T10:30:00Z"),
		violation(2, types.RiskMedium, "2024-01-21T10:30:00Z"),
	}

	ranked := RankSites(sites, violations)
	require.Len(t, ranked, 3)

	// Gate 1 has the only high violation, so it ranks first.
	assert.Equal(t, "Gate 1", ranked[0].SiteName)
	assert.Equal(t, 2, ranked[0].TotalViolations)
	assert.Equal(t, RiskBreakdown{Compliant: 1, High: 1}, ranked[0].RiskBreakdown)
	assert.InDelta(t, 50.0, ranked[0].RiskScore, 1e-9)

	assert.Equal(t, "Gate 2", ranked[1].SiteName)
	assert.InDelta(t, 50.0, ranked[1].RiskScore, 1e-9)

	// Zero-violation sites still appear, all counts zero.
	assert.Equal(t, "Quiet Site", ranked[2].SiteName)
	assert.Equal(t, 0, ranked[2].TotalViolations)
	assert.InDelta(t, 0.0, ranked[2].RiskScore, 1e-9)
}

func TestRankSitesUnknownCountsInTotalOnly(t *testing.T) {
	sites := []store.Site{{SiteID: 1, SiteName: "Gate 1"}}
	violations := []store.Violation{
		violation(1, types.RiskHigh, "x"),
		violation(1, types.RiskUnknown, "x"),
	}

	ranked := RankSites(sites, violations)
	require.Len(t, ranked, 1)
	assert.Equal(t, 2, ranked[0].TotalViolations)
	assert.Equal(t, RiskBreakdown{High: 1}, ranked[0].RiskBreakdown)
	// 100 * 1 high / 2 total
	assert.InDelta(t, 50.0, ranked[0].RiskScore, 1e-9)
}

func TestRiskScoreMonotonicInHighCount(t *testing.T) {
	sites := []store.Site{{SiteID: 1, SiteName: "S"}}
	previous := -1.0
	for high := 0; high <= 5; high++ {
		var violations []store.Violation
		violations = append(violations,
			violation(1, types.RiskMedium, "x"),
			violation(1, types.RiskCompliant, "x"),
		)
		for i := 0; i < high; i++ {
			violations = append(violations, violation(1, types.RiskHigh, "x"))
		}
		score := RankSites(sites, violations)[0].RiskScore
		assert.GreaterOrEqual(t, score, previous, "high=%d", high)
		previous = score
	}
}

func TestWindowForHourBoundaries(t *testing.T) {
	tests := []struct {
		hour int
		want string
	}{
		{0, WindowNight},
		{5, WindowNight},
		{6, WindowMorning},
		{11, WindowMorning},
		{12, WindowAfternoon},
		{17, WindowAfternoon},
		{18, WindowEvening},
		{23, WindowEvening},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("hour_%d", tt.hour), func(t *testing.T) {
			assert.Equal(t, tt.want, WindowForHour(tt.hour))
		})
	}
}

func TestTrendWindows(t *testing.T) {
	violations := []store.Violation{
		violation(1, types.RiskMedium, "2024-01-21T10:30:00Z"),  // Morning
		violation(1, types.RiskHigh, "2024-01-21T18:00:00Z"),    // Evening starts at 18
		violation(1, types.RiskUnknown, "2024-01-21T02:15:00Z"), // Night
		violation(1, types.RiskHigh, "unknown"),                 // excluded
		violation(1, types.RiskHigh, "not a timestamp"),         // excluded
	}

	trends := TrendWindows(violations)
	require.Len(t, trends, 4)

	assert.Equal(t, 1, trends[WindowMorning].Medium)
	assert.Equal(t, 1, trends[WindowMorning].Total)
	assert.Equal(t, 0, trends[WindowMorning].High)

	assert.Equal(t, 1, trends[WindowEvening].High)
	assert.Equal(t, 1, trends[WindowNight].Unknown)
	assert.Equal(t, 0, trends[WindowAfternoon].Total)
}

func TestComplianceRates(t *testing.T) {
	sites := []store.Site{
		{SiteID: 1, SiteName: "Gate 1"},
		{SiteID: 2, SiteName: "Gate 2"},
		{SiteID: 3, SiteName: "Empty"},
	}
	violations := []store.Violation{
		violation(1, types.RiskCompliant, "x"),
		violation(1, types.RiskCompliant, "x"),
		violation(1, types.RiskHigh, "x"),
		violation(2, types.RiskCompliant, "x"),
	}

	rates := ComplianceRates(sites, violations)
	require.Len(t, rates, 3)

	assert.InDelta(t, 66.67, rates["Gate 1"].ComplianceRate, 1e-9)
	assert.Equal(t, 3, rates["Gate 1"].TotalViolations)
	assert.Equal(t, 2, rates["Gate 1"].RiskLevelCounts[types.RiskCompliant])

	// All compliant -> 100.
	assert.InDelta(t, 100.0, rates["Gate 2"].ComplianceRate, 1e-9)

	// No records -> rate 0.
	assert.InDelta(t, 0.0, rates["Empty"].ComplianceRate, 1e-9)
	assert.Equal(t, 0, rates["Empty"].TotalViolations)
}
