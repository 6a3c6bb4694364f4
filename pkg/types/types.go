package types

// Canonical risk levels. Anything else reported by the model is coerced
// to RiskUnknown during normalization.
const (
	RiskCompliant = "compliant"
	RiskMedium    = "medium"
	RiskHigh      = "high"
	RiskUnknown   = "unknown"
)

// Placeholder values for fields the model failed to report.
const (
	TimestampUnknown    = "unknown"
	SiteUnknown         = "unknown"
	LocationUnavailable = "unavailable"
)

// Box represents a normalized bounding box with coordinates in [0,1] range
type Box struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Detection is a single worker observation inside a model response.
// WorkerID is local to one response and not globally unique.
type Detection struct {
	WorkerID   int     `json:"worker_id"`
	RiskLevel  string  `json:"risk_level"`
	Reason     string  `json:"reason"`
	Location   Box     `json:"location"`
	Confidence float64 `json:"confidence"`
}

// ImageResult is the canonical per-image analysis result. ImageID is
// always the source file name, never the value the model claims.
type ImageResult struct {
	ImageID         string      `json:"image_id"`
	Timestamp       string      `json:"timestamp"`
	SiteName        string      `json:"site_name"`
	ClassReasoning  string      `json:"class_reasoning"`
	LocationDetails string      `json:"location_details"`
	Violations      []Detection `json:"violations"`
}

// ValidRiskLevel reports whether s is one of the canonical risk levels.
func ValidRiskLevel(s string) bool {
	switch s {
	case RiskCompliant, RiskMedium, RiskHigh, RiskUnknown:
		return true
	}
	return false
}
