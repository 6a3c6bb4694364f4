// Package store persists sites and violation records in a relational
// database and exposes the read queries the analytics layer works from.
package store

// Site is a physical construction site, created lazily the first time
// its identity key is seen. IdentityKey is the exact string the
// resolver matched on (the site name by default); the unique index is
// what makes concurrent resolution of a brand-new site safe.
type Site struct {
	SiteID          uint   `gorm:"column:site_id;primaryKey" json:"site_id"`
	IdentityKey     string `gorm:"column:identity_key;uniqueIndex;not null" json:"-"`
	SiteName        string `gorm:"column:site_name" json:"site_name"`
	LocationDetails string `gorm:"column:location_details" json:"location_details"`
}

// TableName overrides the default pluralization.
func (Site) TableName() string { return "sites" }

// Violation is one persisted worker observation. Rows are append-only;
// nothing in the pipeline updates or deletes them.
type Violation struct {
	ID             uint   `gorm:"primaryKey" json:"id"`
	Timestamp      string `gorm:"column:timestamp;index" json:"timestamp"`
	SiteID         uint   `gorm:"column:site_id;index;not null" json:"site_id"`
	ImageReference string `gorm:"column:image_reference" json:"image_reference"`
	ViolationType  string `gorm:"column:violation_type" json:"violation_type"`
	RiskLevel      string `gorm:"column:risk_level;index" json:"risk_level"`
}

// TableName overrides the default pluralization.
func (Violation) TableName() string { return "violations" }
