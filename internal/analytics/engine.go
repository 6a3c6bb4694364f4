// Package analytics computes the read-side aggregates: per-site risk
// ranking, time-of-day violation trends, and compliance rates. All
// computations are pure functions over immutable rows fetched from the
// store, so they are trivially testable without a database.
package analytics

import (
	"math"
	"sort"
	"time"

	"github.com/menta2k/sitewatch/internal/store"
	"github.com/menta2k/sitewatch/pkg/types"
)

// Time-of-day window labels. Each window includes its start hour and
// excludes its end hour.
const (
	WindowMorning   = "Morning (06:00 - 12:00)"
	WindowAfternoon = "Afternoon (12:00 - 18:00)"
	WindowEvening   = "Evening (18:00 - 00:00)"
	WindowNight     = "Night (00:00 - 06:00)"
)

// WindowNames lists the four windows in display order.
var WindowNames = []string{WindowMorning, WindowAfternoon, WindowEvening, WindowNight}

// RiskBreakdown counts a site's violations by canonical risk level.
// Unknown rows contribute to totals but not to the breakdown.
type RiskBreakdown struct {
	Compliant int `json:"compliant"`
	Medium    int `json:"medium"`
	High      int `json:"high"`
}

// SiteRisk is one entry of the risk ranking.
type SiteRisk struct {
	SiteID          uint          `json:"Site_ID"`
	SiteName        string        `json:"Site_Name"`
	TotalViolations int           `json:"Total_Violations"`
	RiskBreakdown   RiskBreakdown `json:"Risk_Breakdown"`
	RiskScore       float64       `json:"Risk_Score"`
}

// RankSites aggregates violations per site and scores each site with
// 0/50/100 weights over compliant/medium/high. Sites with zero
// violations appear with all counts zero. Output is ordered by high
// count descending; ties keep insertion order.
func RankSites(sites []store.Site, violations []store.Violation) []SiteRisk {
	bySite := make(map[uint]*SiteRisk, len(sites))
	ranked := make([]SiteRisk, 0, len(sites))
	for _, s := range sites {
		ranked = append(ranked, SiteRisk{SiteID: s.SiteID, SiteName: s.SiteName})
	}
	for i := range ranked {
		bySite[ranked[i].SiteID] = &ranked[i]
	}

	for _, v := range violations {
		entry, ok := bySite[v.SiteID]
		if !ok {
			continue
		}
		entry.TotalViolations++
		switch v.RiskLevel {
		case types.RiskCompliant:
			entry.RiskBreakdown.Compliant++
		case types.RiskMedium:
			entry.RiskBreakdown.Medium++
		case types.RiskHigh:
			entry.RiskBreakdown.High++
		}
	}

	for i := range ranked {
		e := &ranked[i]
		if e.TotalViolations > 0 {
			weighted := 50*e.RiskBreakdown.Medium + 100*e.RiskBreakdown.High
			e.RiskScore = round1(float64(weighted) / float64(e.TotalViolations))
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].RiskBreakdown.High > ranked[j].RiskBreakdown.High
	})
	return ranked
}

// WindowCounts are per-window violation counts keyed by risk level.
type WindowCounts struct {
	Compliant int `json:"compliant"`
	Medium    int `json:"medium"`
	High      int `json:"high"`
	Unknown   int `json:"unknown"`
	Total     int `json:"total"`
}

// TrendWindows buckets violations into the four time-of-day windows.
// Records whose timestamp cannot be parsed (including the literal
// "unknown") are excluded from the trend without failing it.
func TrendWindows(violations []store.Violation) map[string]WindowCounts {
	windows := make(map[string]WindowCounts, len(WindowNames))
	for _, name := range WindowNames {
		windows[name] = WindowCounts{}
	}

	for _, v := range violations {
		hour, ok := ParseHour(v.Timestamp)
		if !ok {
			continue
		}
		name := WindowForHour(hour)
		counts := windows[name]
		switch v.RiskLevel {
		case types.RiskCompliant:
			counts.Compliant++
		case types.RiskMedium:
			counts.Medium++
		case types.RiskHigh:
			counts.High++
		default:
			counts.Unknown++
		}
		counts.Total++
		windows[name] = counts
	}

	return windows
}

// WindowForHour maps an hour in [0,23] to its window. Boundary hours
// belong to the window that starts there.
func WindowForHour(hour int) string {
	switch {
	case hour >= 6 && hour < 12:
		return WindowMorning
	case hour >= 12 && hour < 18:
		return WindowAfternoon
	case hour >= 18 && hour < 24:
		return WindowEvening
	default:
		return WindowNight
	}
}

// ParseHour extracts the hour from an ISO-8601 timestamp. The second
// return is false when the timestamp does not parse.
func ParseHour(ts string) (int, bool) {
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return 0, false
	}
	return t.Hour(), true
}

// SiteCompliance is one site's entry in the compliance rate report.
type SiteCompliance struct {
	SiteID          uint           `json:"Site_ID"`
	TotalViolations int            `json:"Total_Violations"`
	RiskLevelCounts map[string]int `json:"Risk_Level_Counts"`
	ComplianceRate  float64        `json:"Compliance_Rate"`
}

// ComplianceRates computes the share of compliant records per site,
// keyed by site name. Sites without any records report a rate of zero.
func ComplianceRates(sites []store.Site, violations []store.Violation) map[string]SiteCompliance {
	names := make(map[uint]string, len(sites))
	result := make(map[string]SiteCompliance, len(sites))
	for _, s := range sites {
		names[s.SiteID] = s.SiteName
		result[s.SiteName] = SiteCompliance{
			SiteID:          s.SiteID,
			RiskLevelCounts: make(map[string]int),
		}
	}

	for _, v := range violations {
		name, ok := names[v.SiteID]
		if !ok {
			continue
		}
		entry := result[name]
		entry.TotalViolations++
		entry.RiskLevelCounts[v.RiskLevel]++
		result[name] = entry
	}

	for name, entry := range result {
		if entry.TotalViolations > 0 {
			rate := float64(entry.RiskLevelCounts[types.RiskCompliant]) / float64(entry.TotalViolations) * 100
			entry.ComplianceRate = round2(rate)
			result[name] = entry
		}
	}

	return result
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }

func round2(v float64) float64 { return math.Round(v*100) / 100 }
