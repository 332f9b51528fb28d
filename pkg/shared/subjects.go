package shared

import (
	"fmt"
	"strings"
)

// NATS Subject patterns
const (
	SubjectPrefix = "stands"

	// Resolution subjects
	SubjectResolutions    = "stands.resolutions"
	SubjectResolutionsAll = "stands.resolutions.>"
	SubjectResolution     = "stands.resolutions.%s" // airport

	// Crowdsourced report subjects
	SubjectReports    = "stands.reports"
	SubjectReportsAll = "stands.reports.>"
	SubjectReport     = "stands.reports.%s" // airport
)

// Stream names
const (
	StreamResolutions = "STANDS_RESOLUTIONS"
	StreamReports     = "STANDS_REPORTS"
)

// Consumer names
const (
	ConsumerPatternLearner   = "pattern-learner"
	ConsumerReportModeration = "report-moderation"
)

// KV bucket names
const (
	BucketStandCache = "STAND_CACHE"
)

// ResolutionSubject is the subject a resolution at airport is published on.
func ResolutionSubject(airport string) string {
	return fmt.Sprintf(SubjectResolution, subjectToken(airport))
}

// ReportSubject is the subject a crowdsourced report at airport is published on.
func ReportSubject(airport string) string {
	return fmt.Sprintf(SubjectReport, subjectToken(airport))
}

// subjectToken makes s usable as a single subject token.
func subjectToken(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return "UNKNOWN"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t':
			return '_'
		}
		return r
	}, s)
}
