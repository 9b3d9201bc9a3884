package domain

import "time"

// DomainScore is the score of one domain inside an axis.
type DomainScore struct {
	DomainPercentage float64 `json:"domain_percentage"`
}

// AxisScore is the toolkit score of one axis.
type AxisScore struct {
	AxisScore float64       `json:"axis_score"`
	Domains   []DomainScore `json:"domains"`
}

// ToolkitVersion is a historical snapshot of toolkit scores.
type ToolkitVersion struct {
	Version  int         `json:"version"`
	Data     []AxisScore `json:"data"`
	Modified string      `json:"modified"`
}

// CoverageVersion is a historical snapshot of coverage counts, one map per
// district plus the national level deployment.
type CoverageVersion struct {
	Version  int                  `json:"version"`
	Data     []map[string]float64 `json:"data"`
	Modified string               `json:"modified"`
}

// VersionInfo describes the latest version of a snapshot series.
type VersionInfo struct {
	LastVersion     int       `json:"last_version"`
	LastVersionDate time.Time `json:"last_version_date"`
}

// SnapshotResult is returned when a project version is taken.
type SnapshotResult struct {
	Coverage VersionInfo `json:"coverage"`
	Toolkit  VersionInfo `json:"toolkit"`
}
