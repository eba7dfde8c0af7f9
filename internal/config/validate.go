package config

import "fmt"

// ValidationReport is the output of ValidateComprehensive: cross-field
// checks distinct from the structural Load step, per spec §4.1.
type ValidationReport struct {
	Errors   []string
	Warnings []string
	// TypedErrors carries the sum-typed ConfigError for every Errors entry
	// that maps onto the §4.1 error taxonomy (currently MISSING_FIELD on a
	// per-variant required field), so callers can branch on Kind instead of
	// string-matching Errors.
	TypedErrors []*ConfigError
}

func (r ValidationReport) OK() bool { return len(r.Errors) == 0 }

// ValidateComprehensive runs the cross-field checks spec §4.1 requires
// beyond what Load's structural decode already enforces: source/output/
// example presence, per-variant required fields, auth-descriptor exclusivity,
// and cache TTL sanity.
func ValidateComprehensive(spec *ProjectSpec) ValidationReport {
	var report ValidationReport

	if len(spec.DataSources) == 0 {
		report.Errors = append(report.Errors, "at least one data source is required")
	}
	if len(spec.Outputs) == 0 {
		report.Errors = append(report.Errors, "at least one output target is required")
	}

	switch n := len(spec.Examples); {
	case n == 0:
		report.Errors = append(report.Errors, "at least one example pair is required")
	case n < 2:
		report.Warnings = append(report.Warnings, "fewer than 2 examples: pattern confidence will be unreliable")
	case n > 10:
		report.Warnings = append(report.Warnings, "more than 10 examples: only the first 10 are guaranteed to be used")
	}

	for i, ds := range spec.DataSources {
		validateSource(i, ds, &report)
	}

	return report
}

// missingField records a MISSING_FIELD ConfigError (spec §4.1: "Missing
// required field for variant -> ConfigError(MISSING_FIELD, path, which)")
// both as the typed error and as the plain-string report entry callers
// already range over.
func missingField(report *ValidationReport, path, which string) {
	cerr := &ConfigError{Kind: ErrMissingField, Path: path, Message: which}
	report.TypedErrors = append(report.TypedErrors, cerr)
	report.Errors = append(report.Errors, cerr.Error())
}

func validateSource(i int, ds DataSource, report *ValidationReport) {
	path := fmt.Sprintf("data_sources[%d]", i)

	switch ds.Variant {
	case SourceAPI:
		if ds.Endpoint == "" {
			missingField(report, path, "endpoint")
		}
	case SourceURL, SourceWebRendered:
		if ds.URL == "" {
			missingField(report, path, "url")
		}
	case SourceFileTabular, SourceFileDocument, SourceFileMarkup:
		if ds.Path == "" {
			missingField(report, path, "path")
		}
	}

	if ds.Auth != nil {
		if ds.Auth.HeaderName != "" && ds.Auth.QueryParam != "" {
			report.Errors = append(report.Errors, path+": auth must use header OR query param, not both")
		}
	}

	if ds.Cache != nil && ds.Cache.TTLSec < 0 {
		report.Errors = append(report.Errors, path+": cache ttl_sec must be non-negative")
	}

	if ds.Variant == SourceFileDocument && ds.TableStrategy != "" {
		switch ds.TableStrategy {
		case TableLines, TableText, TableMixed:
		default:
			report.Errors = append(report.Errors, path+": table_strategy must be lines, text, or mixed")
		}
	}
}
