package models

import "time"

// AlertSeverity level of an operator alert
type AlertSeverity string

const (
	AlertWarning  AlertSeverity = "warning"
	AlertCritical AlertSeverity = "critical"
)

// Alert is an operator-facing notice about a failure that needs attention
type Alert struct {
	Severity  AlertSeverity
	Component string // e.g. "subscription", "ingest"
	Title     string
	Detail    string
	Time      time.Time
}
