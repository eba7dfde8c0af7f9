package constraints

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// CustomRule is one user-defined regex rule, mirroring the teacher's
// internal/shards/reviewer_custom_rules.go CustomRule shape (id, category,
// severity, pattern, message, suggestion, language filter, enabled flag).
// This is the supplemented feature from SPEC_FULL.md §12: a ninth cascade
// stage on top of the eight built-in validators.
type CustomRule struct {
	ID         string   `json:"id"`
	Category   string   `json:"category"`
	Severity   string   `json:"severity"`
	Pattern    string   `json:"pattern"`
	Message    string   `json:"message"`
	Suggestion string   `json:"suggestion,omitempty"`
	Languages  []string `json:"languages,omitempty"`
	Enabled    bool     `json:"enabled"`
}

// CustomRulesFile is the on-disk shape LoadCustomRules reads, matching the
// teacher's CustomRulesFile.
type CustomRulesFile struct {
	Rules []CustomRule `json:"rules"`
}

var validSeverities = map[string]bool{"critical": true, "error": true, "warning": true, "info": true}

var validCategories = map[string]bool{
	"security": true, "style": true, "bug": true, "performance": true, "maintainability": true,
}

// LoadCustomRules reads a JSON file of custom rules, validating each and
// skipping (not failing the whole load on) any rule that doesn't parse,
// exactly as the teacher's LoadCustomRules does for its own
// ReviewerShard.customRules slice.
func LoadCustomRules(path string) ([]CustomRule, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("constraints: read custom rules file: %w", err)
	}

	var file CustomRulesFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("constraints: parse custom rules JSON: %w", err)
	}

	var loaded []CustomRule
	for _, rule := range file.Rules {
		if err := validateCustomRule(rule); err != nil {
			continue
		}
		if rule.Enabled {
			loaded = append(loaded, rule)
		}
	}
	return loaded, nil
}

func validateCustomRule(rule CustomRule) error {
	if rule.ID == "" {
		return fmt.Errorf("rule ID is required")
	}
	if rule.Category == "" {
		return fmt.Errorf("rule category is required")
	}
	if !validCategories[rule.Category] {
		return fmt.Errorf("invalid category: %s", rule.Category)
	}
	if !validSeverities[rule.Severity] {
		return fmt.Errorf("invalid severity: %s", rule.Severity)
	}
	if rule.Pattern == "" {
		return fmt.Errorf("rule pattern is required")
	}
	if rule.Message == "" {
		return fmt.Errorf("rule message is required")
	}
	if _, err := regexp.Compile(rule.Pattern); err != nil {
		return fmt.Errorf("invalid regex pattern: %w", err)
	}
	return nil
}

// detectLanguage maps a file extension to the language tag custom rules
// filter on, matching the teacher's ReviewerShard.detectLanguage.
func detectLanguage(filename string) string {
	switch filepath.Ext(filename) {
	case ".go":
		return "go"
	case ".py":
		return "python"
	case ".js":
		return "javascript"
	case ".ts":
		return "typescript"
	default:
		return ""
	}
}

func languageMatches(languages []string, lang string) bool {
	if len(languages) == 0 {
		return true
	}
	for _, l := range languages {
		if l == lang {
			return true
		}
	}
	return false
}

// applyCustomRules is the line-scan core, matching the teacher's
// checkCustomRules line-scan approach rather than an AST walk (regex rules
// are author-supplied text patterns, not structural ones). It does not
// itself filter by language, so callers that want the Languages filter
// applied should pre-filter the rule slice (see checkCustomRules).
func applyCustomRules(src string, customRules []CustomRule) []Violation {
	var violations []Violation
	lines := strings.Split(src, "\n")
	for _, rule := range customRules {
		pattern, err := regexp.Compile(rule.Pattern)
		if err != nil {
			continue
		}
		for i, line := range lines {
			if pattern.MatchString(line) {
				violations = append(violations, Violation{
					Code:       Code(rule.ID),
					Severity:   Severity(rule.Severity),
					Message:    rule.Message,
					Line:       i + 1,
					Suggestion: rule.Suggestion,
				})
			}
		}
	}
	return violations
}

// checkCustomRules applies every loaded custom rule against src whose
// Languages filter (if any) matches filename's detected language.
func checkCustomRules(src, filename string, rules Rules) []Violation {
	if len(rules.CustomRules) == 0 {
		return nil
	}
	lang := detectLanguage(filename)
	var matched []CustomRule
	for _, rule := range rules.CustomRules {
		if languageMatches(rule.Languages, lang) {
			matched = append(matched, rule)
		}
	}
	return applyCustomRules(src, matched)
}
