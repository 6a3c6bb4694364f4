package store

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/menta2k/sitewatch/pkg/types"
)

// Identity key choices for site resolution.
const (
	KeySiteName        = "site_name"
	KeyLocationDetails = "location_details"
)

// Writer turns normalized image results into rows. Site resolution
// happens for every processed image, violations or not, so a site
// registers presence from any photo taken there.
type Writer struct {
	ds          *DataStore
	identityKey string
	log         *slog.Logger
}

// NewWriter creates a Writer. identityKey selects which field of the
// result identifies the site; anything unrecognized falls back to the
// site name.
func NewWriter(ds *DataStore, identityKey string, logger *slog.Logger) *Writer {
	if identityKey != KeyLocationDetails {
		identityKey = KeySiteName
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{ds: ds, identityKey: identityKey, log: logger}
}

// Write persists every result in the mapping. A failure on one image
// does not prevent the remaining images from being written; the site
// row for an image is durable regardless of whether its violation rows
// succeed. The combined error reports everything that went wrong.
func (w *Writer) Write(results map[string]types.ImageResult) error {
	var errs []error

	for imageID, result := range results {
		siteID, err := w.ds.ResolveSite(w.keyFor(result), Site{
			SiteName:        result.SiteName,
			LocationDetails: result.LocationDetails,
		})
		if err != nil {
			w.log.Error("site resolution failed", "image", imageID, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", imageID, err))
			continue
		}

		for i := range result.Violations {
			det := &result.Violations[i]
			row := &Violation{
				Timestamp:      result.Timestamp,
				SiteID:         siteID,
				ImageReference: imageID,
				ViolationType:  det.Reason,
				RiskLevel:      det.RiskLevel,
			}
			if err := w.ds.SaveViolation(row); err != nil {
				w.log.Error("violation insert failed", "image", imageID, "error", err)
				errs = append(errs, fmt.Errorf("%s: %w", imageID, err))
			}
		}
	}

	return errors.Join(errs...)
}

func (w *Writer) keyFor(result types.ImageResult) string {
	if w.identityKey == KeyLocationDetails {
		return result.LocationDetails
	}
	return result.SiteName
}
