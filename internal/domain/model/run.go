package model

import "time"

// Run records one report generation. It is the only state persisted between
// runs; analysis results themselves are not stored.
type Run struct {
	ID               string
	StartedAt        time.Time
	FinishedAt       time.Time
	Since            time.Time
	RepoCount        int
	PrioritizedCount int
	ActionItemCount  int
	// FetchErrors counts repositories whose activity could not be fetched.
	FetchErrors int
	ReportPath  string
}

// Report bundles a completed run with its analysis and rendered document.
type Report struct {
	Run      Run
	Result   AnalysisResult
	Markdown string
}
