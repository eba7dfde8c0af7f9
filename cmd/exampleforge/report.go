package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/exampleforge/exampleforge/internal/config"
	"github.com/exampleforge/exampleforge/internal/orchestrator"
)

// Styling is static, not an interactive theme switcher — spec §1's CLI
// non-goal excludes a TUI, so this is the minimal palette a one-shot
// report needs, grounded on the teacher's cmd/nerd/ui color conventions
// (success/warning/error semantic colors) without the light/dark theme
// machinery that package builds for its interactive surface.
var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#8BC34A")).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#e53935")).Bold(true)
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFC107"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#9aa5b1"))
	headerStyle  = lipgloss.NewStyle().Bold(true).Underline(true)
)

func renderConfigError(err error) string {
	var cerr *config.ConfigError
	if ok := asConfigError(err, &cerr); ok {
		return errorStyle.Render(fmt.Sprintf("config invalid [%s] %s: %s", cerr.Kind, cerr.Path, cerr.Message))
	}
	return errorStyle.Render("config invalid: " + err.Error())
}

func asConfigError(err error, target **config.ConfigError) bool {
	for err != nil {
		if cerr, ok := err.(*config.ConfigError); ok {
			*target = cerr
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

func renderConfigOK(spec *config.ProjectSpec) string {
	var sb strings.Builder
	sb.WriteString(successStyle.Render(fmt.Sprintf("%s: spec valid", spec.Name)))
	sb.WriteString("\n")
	sb.WriteString(mutedStyle.Render(fmt.Sprintf("  %d data source(s), %d example(s)", len(spec.DataSources), len(spec.Examples))))
	return sb.String()
}

func renderRunResult(result *orchestrator.RunResult) string {
	var sb strings.Builder

	sb.WriteString(headerStyle.Render(fmt.Sprintf("Run %s", result.RunID)))
	sb.WriteString("\n")

	stateLine := fmt.Sprintf("state: %s (attempts: %d, duration: %s)", result.State, result.Attempts, result.Duration)
	switch result.State {
	case orchestrator.StateValidated:
		sb.WriteString(successStyle.Render(stateLine))
	case orchestrator.StateFatal:
		sb.WriteString(errorStyle.Render(stateLine))
	default:
		sb.WriteString(warnStyle.Render(stateLine))
	}
	sb.WriteString("\n")

	if result.FatalError != nil {
		sb.WriteString(errorStyle.Render("error: " + result.FatalError.Error()))
		sb.WriteString("\n")
	}

	paths := make([]string, 0, len(result.Validation))
	for path := range result.Validation {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	for _, path := range paths {
		res := result.Validation[path]
		status := successStyle.Render("valid")
		if !res.Valid {
			status = errorStyle.Render("invalid")
		}
		sb.WriteString(fmt.Sprintf("  %s: %s\n", path, status))
		for _, v := range res.Violations {
			style := warnStyle
			if v.Severity == "error" || v.Severity == "critical" {
				style = errorStyle
			}
			sb.WriteString("    " + style.Render(fmt.Sprintf("[%s] line %d: %s", v.Code, v.Line, v.Message)))
			sb.WriteString("\n")
		}
	}

	return sb.String()
}
