// Package normalize converts raw vision model output into canonical
// per-image results. Model responses drift between a single JSON object,
// an array of objects, and several objects concatenated with ad-hoc
// separators, often wrapped in markdown fences; this package tolerates
// all of those shapes and never fails a whole batch because one block
// is malformed.
package normalize

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/menta2k/sitewatch/pkg/types"
)

// Skip records one response block that could not be matched to a result.
type Skip struct {
	Image  string // source file name, empty when no image corresponds
	Reason string
}

// BatchResult maps image file names to their canonical results and
// reports the blocks that were skipped along the way.
type BatchResult struct {
	Results map[string]types.ImageResult
	Skipped []Skip
}

// Normalize parses the raw text returned for a batch and maps each JSON
// block to the image at the same position in imageNames. Blocks that fail
// to parse are skipped, not fatal; when block and image counts differ the
// unmatched tail is skipped as well. A response where nothing parses
// yields an empty result set.
func Normalize(raw string, imageNames []string) BatchResult {
	out := BatchResult{Results: make(map[string]types.ImageResult)}

	blocks := SplitBlocks(raw)
	n := len(blocks)
	if len(imageNames) < n {
		n = len(imageNames)
	}

	for i := 0; i < n; i++ {
		result, err := parseBlock(blocks[i], imageNames[i])
		if err != nil {
			out.Skipped = append(out.Skipped, Skip{Image: imageNames[i], Reason: err.Error()})
			continue
		}
		out.Results[imageNames[i]] = result
	}

	// Unmatched tails: extra blocks have no image, extra images got no block.
	for i := n; i < len(blocks); i++ {
		out.Skipped = append(out.Skipped, Skip{Reason: "response block without matching image"})
	}
	for i := n; i < len(imageNames); i++ {
		out.Skipped = append(out.Skipped, Skip{Image: imageNames[i], Reason: "no response block for image"})
	}

	return out
}

// SplitBlocks strips markdown fences and splits the response into
// individual JSON object blocks. A top-level JSON array is unpacked into
// its elements; concatenated objects are separated by brace matching, so
// whatever separator the model improvised between them is irrelevant.
func SplitBlocks(raw string) []string {
	raw = stripFences(raw)
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil
	}

	if strings.HasPrefix(trimmed, "[") {
		var elems []json.RawMessage
		if err := json.Unmarshal([]byte(sanitizeJSON(trimmed)), &elems); err == nil {
			blocks := make([]string, 0, len(elems))
			for _, e := range elems {
				blocks = append(blocks, string(e))
			}
			return blocks
		}
	}

	return scanObjects(trimmed)
}

// scanObjects walks the text and extracts every balanced top-level
// {...} span, honoring string literals and escapes.
func scanObjects(s string) []string {
	var blocks []string
	depth := 0
	start := -1
	inString := false
	escaped := false

	for i, r := range s {
		if escaped {
			escaped = false
			continue
		}
		switch r {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				if depth == 0 {
					start = i
				}
				depth++
			}
		case '}':
			if !inString && depth > 0 {
				depth--
				if depth == 0 && start >= 0 {
					blocks = append(blocks, s[start:i+1])
					start = -1
				}
			}
		}
	}
	return blocks
}

// rawBlock mirrors the shape the model is prompted to return. Every
// field is optional in practice.
type rawBlock struct {
	ImageID         string            `json:"image_id"`
	Timestamp       string            `json:"timestamp"`
	SiteName        string            `json:"site_name"`
	ClassReasoning  string            `json:"class_reasoning"`
	LocationDetails string            `json:"location_details"`
	Violations      []types.Detection `json:"violations"`
}

// parseBlock parses a single JSON block into a canonical result for the
// given image. The model's claimed image_id is discarded; imageName is
// the source of truth.
func parseBlock(block, imageName string) (types.ImageResult, error) {
	clean := sanitizeJSON(block)

	var rb rawBlock
	if err := json.Unmarshal([]byte(clean), &rb); err != nil {
		return types.ImageResult{}, err
	}

	// Some model revisions emit "Location details" instead of the
	// snake_case key.
	if rb.LocationDetails == "" {
		var alt map[string]json.RawMessage
		if err := json.Unmarshal([]byte(clean), &alt); err == nil {
			if v, ok := alt["Location details"]; ok {
				var s string
				if json.Unmarshal(v, &s) == nil {
					rb.LocationDetails = s
				}
			}
		}
	}

	result := types.ImageResult{
		ImageID:         imageName,
		Timestamp:       rb.Timestamp,
		SiteName:        rb.SiteName,
		ClassReasoning:  rb.ClassReasoning,
		LocationDetails: rb.LocationDetails,
		Violations:      rb.Violations,
	}
	return Canonical(result), nil
}

// Canonical applies field defaults and risk-level coercion. It is
// idempotent: applying it to an already-canonical result is a no-op.
func Canonical(r types.ImageResult) types.ImageResult {
	if r.Timestamp == "" {
		r.Timestamp = types.TimestampUnknown
	}
	if r.SiteName == "" {
		r.SiteName = types.SiteUnknown
	}
	if r.LocationDetails == "" {
		r.LocationDetails = types.LocationUnavailable
	}
	if r.Violations == nil {
		r.Violations = []types.Detection{}
	}
	for i := range r.Violations {
		r.Violations[i].RiskLevel = NormalizeRiskLevel(r.Violations[i].RiskLevel)
	}
	return r
}

// NormalizeRiskLevel lower-cases and validates a reported risk level;
// out-of-domain or missing values become "unknown".
func NormalizeRiskLevel(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if !types.ValidRiskLevel(s) {
		return types.RiskUnknown
	}
	return s
}

var (
	reBlockComment  = regexp.MustCompile(`(?s)/\*.*?\*/`)
	reLineComment   = regexp.MustCompile(`(?m)^\s*//.*$`)
	reTrailingComma = regexp.MustCompile(`,(\s*[}\]])`)
)

// stripFences removes markdown code fences around the response.
func stripFences(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		if i := strings.Index(raw, "\n"); i >= 0 {
			raw = raw[i+1:]
		}
		if j := strings.LastIndex(raw, "```"); j >= 0 {
			raw = raw[:j]
		}
	}
	// Inline fences between concatenated blocks.
	raw = strings.ReplaceAll(raw, "```json", "")
	raw = strings.ReplaceAll(raw, "```", "")
	return strings.TrimSpace(raw)
}

// sanitizeJSON removes comments and trailing commas that vision models
// like to sprinkle into "strict JSON" output.
func sanitizeJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	raw = strings.Trim(raw, "`")
	raw = reBlockComment.ReplaceAllString(raw, "")
	raw = reLineComment.ReplaceAllString(raw, "")
	raw = reTrailingComma.ReplaceAllString(raw, "$1")
	return strings.TrimSpace(raw)
}
