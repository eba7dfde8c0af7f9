// Package config loads and validates the declarative project specification
// that drives one generation run: data sources, example pairs, validation
// rules, and runtime knobs.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/exampleforge/exampleforge/internal/value"
)

// SourceVariant enumerates the supported Data-Source Descriptor variants.
type SourceVariant string

const (
	SourceAPI            SourceVariant = "api"
	SourceURL            SourceVariant = "url"
	SourceFileTabular    SourceVariant = "file_tabular"
	SourceFileDocument   SourceVariant = "file_document"
	SourceFileMarkup     SourceVariant = "file_markup"
	SourceWebRendered    SourceVariant = "web_rendered"
	SourceDomainSpecific SourceVariant = "domain_specific"
)

// TableStrategy controls how document adapters linearize tabular regions.
type TableStrategy string

const (
	TableLines TableStrategy = "lines"
	TableText  TableStrategy = "text"
	TableMixed TableStrategy = "mixed"
)

// AuthDescriptor carries one of the mutually exclusive credential shapes for
// an HTTP-like source.
type AuthDescriptor struct {
	Type       string `yaml:"type"` // api_key | bearer | basic | oauth2
	HeaderName string `yaml:"header_name,omitempty"`
	QueryParam string `yaml:"query_param,omitempty"`
	APIKey     string `yaml:"api_key,omitempty"`
	Token      string `yaml:"token,omitempty"`
	Username   string `yaml:"username,omitempty"`
	Password   string `yaml:"password,omitempty"`
}

// CachePolicy governs adapter-level response caching.
type CachePolicy struct {
	Enabled bool `yaml:"enabled"`
	TTLSec  int  `yaml:"ttl_sec"`
}

// RateLimitPolicy bounds outbound adapter request rate.
type RateLimitPolicy struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// DataSource is the Data-Source Descriptor: a variant record over the
// source-specific options bag described in spec §3 and §6.
type DataSource struct {
	Name    string        `yaml:"name"`
	Variant SourceVariant `yaml:"type"`

	Endpoint string          `yaml:"endpoint,omitempty"`
	URL      string          `yaml:"url,omitempty"`
	Path     string          `yaml:"path,omitempty"`
	Auth     *AuthDescriptor `yaml:"auth,omitempty"`

	Parameters map[string]string `yaml:"parameters,omitempty"`
	Headers    map[string]string `yaml:"headers,omitempty"`

	Cache     *CachePolicy     `yaml:"cache,omitempty"`
	RateLimit *RateLimitPolicy `yaml:"rate_limit,omitempty"`

	SheetName string `yaml:"sheet_name,omitempty"`
	HeaderRow int     `yaml:"header_row,omitempty"`
	SkipRows  int     `yaml:"skip_rows,omitempty"`

	PageRange     string        `yaml:"page_range,omitempty"`
	TableStrategy TableStrategy `yaml:"table_strategy,omitempty"`

	RenderWaitHint string `yaml:"render_wait_hint,omitempty"`
}

// ExamplePair is one concrete input/output demonstration, decoded from YAML
// scalars/mappings/sequences into the universal Value sum.
type ExamplePair struct {
	Input       value.Value `yaml:"-"`
	Output      value.Value `yaml:"-"`
	Description string      `yaml:"description,omitempty"`

	// raw fields capture the YAML as generic interface{} so yaml.v3 can
	// decode it; rawToValue converts them into value.Value after unmarshal.
	RawInput  interface{} `yaml:"input"`
	RawOutput interface{} `yaml:"output"`
}

// ValidationRules configures the Constraint Enforcer for this run.
type ValidationRules struct {
	MaxComplexity       int               `yaml:"max_complexity"`
	MaxMethodLines       int               `yaml:"max_method_lines"`
	MaxClassLines        int               `yaml:"max_class_lines"`
	ForbiddenImports     []string          `yaml:"forbidden_imports"`
	RequiredDecorators   map[string][]string `yaml:"required_decorators"`
	EnforceTypeHints     bool              `yaml:"enforce_type_hints"`
	EnforceDocstrings    bool              `yaml:"enforce_docstrings"`
	EnforceInterface     bool              `yaml:"enforce_interface"`
	AllowPrintStatements bool              `yaml:"allow_print_statements"`
	CustomRulesPath      string            `yaml:"custom_rules_path,omitempty"`
}

// OutputTarget names one emission format the generated extractor should
// support; emission itself is outside the core (spec §1 Non-goal).
type OutputTarget struct {
	Format string `yaml:"format"` // csv | json | excel
	Path   string `yaml:"path,omitempty"`
}

// RuntimeOpts carries generation-run knobs that are not part of the domain
// model proper: model selection, retry budget, timeouts.
type RuntimeOpts struct {
	Model            string `yaml:"model,omitempty"`
	Temperature      float64 `yaml:"temperature,omitempty"`
	MaxRetries       int    `yaml:"max_retries,omitempty"`
	RunTimeoutSec    int    `yaml:"run_timeout_sec,omitempty"`
	ArtifactsDir     string `yaml:"artifacts_dir,omitempty"`
}

// ProjectSpec is the immutable root record for one generation run (spec §3).
// It is constructed once by Load and held exclusively by the Orchestrator
// for the run's duration.
type ProjectSpec struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	DataSources []DataSource      `yaml:"data_sources"`
	Examples    []ExamplePair     `yaml:"examples"`
	Validation  *ValidationRules  `yaml:"validation,omitempty"`
	Outputs     []OutputTarget    `yaml:"outputs,omitempty"`
	Runtime     *RuntimeOpts      `yaml:"runtime,omitempty"`
}

// document is the on-disk shape: top-level keys project/data_sources/
// examples/validation/output/runtime, per spec §6.
type document struct {
	Project     projectBlock     `yaml:"project"`
	DataSources []DataSource     `yaml:"data_sources"`
	Examples    []ExamplePair    `yaml:"examples"`
	Validation  *ValidationRules `yaml:"validation,omitempty"`
	Output      []OutputTarget   `yaml:"output,omitempty"`
	Runtime     *RuntimeOpts     `yaml:"runtime,omitempty"`
}

type projectBlock struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

var namePattern = regexp.MustCompile(`^[a-z0-9_-]+$`)

// Load parses the project specification text into a ProjectSpec, resolving
// ${NAME} environment references in the raw text first. Pure and
// deterministic given the same text and environment.
func Load(text string) (*ProjectSpec, error) {
	resolved, err := resolveEnvRefs(text)
	if err != nil {
		return nil, err
	}

	var doc document
	if err := yaml.Unmarshal([]byte(resolved), &doc); err != nil {
		return nil, &ConfigError{Kind: ErrInvalidSpec, Message: err.Error()}
	}

	if !namePattern.MatchString(doc.Project.Name) {
		return nil, &ConfigError{Kind: ErrInvalidName, Path: "project.name"}
	}

	for i := range doc.Examples {
		if err := doc.Examples[i].hydrate(); err != nil {
			return nil, &ConfigError{Kind: ErrInvalidSpec, Path: fmt.Sprintf("examples[%d]", i), Message: err.Error()}
		}
	}

	for i, ds := range doc.DataSources {
		if !isKnownVariant(ds.Variant) {
			return nil, &ConfigError{Kind: ErrUnknownSourceType, Path: fmt.Sprintf("data_sources[%d].type", i)}
		}
	}

	spec := &ProjectSpec{
		Name:        doc.Project.Name,
		Version:     doc.Project.Version,
		DataSources: doc.DataSources,
		Examples:    doc.Examples,
		Validation:  doc.Validation,
		Outputs:     doc.Output,
		Runtime:     doc.Runtime,
	}
	return spec, nil
}

func isKnownVariant(v SourceVariant) bool {
	switch v {
	case SourceAPI, SourceURL, SourceFileTabular, SourceFileDocument, SourceFileMarkup, SourceWebRendered, SourceDomainSpecific:
		return true
	default:
		return false
	}
}

func (e *ExamplePair) hydrate() error {
	in, err := toValue(e.RawInput)
	if err != nil {
		return fmt.Errorf("input: %w", err)
	}
	out, err := toValue(e.RawOutput)
	if err != nil {
		return fmt.Errorf("output: %w", err)
	}
	e.Input = in
	e.Output = out
	return nil
}

// toValue converts a yaml.v3-decoded interface{} tree (map[string]interface{}
// / []interface{} / scalars) into the universal Value sum. YAML's native
// decode already gives Go-typed scalars, so this is a structural walk, not a
// JSON re-parse.
func toValue(raw interface{}) (value.Value, error) {
	switch t := raw.(type) {
	case nil:
		return value.Null(), nil
	case bool:
		return value.Bool(t), nil
	case int:
		return value.Int(int64(t)), nil
	case int64:
		return value.Int(t), nil
	case float64:
		return value.Float(t), nil
	case string:
		return value.String(t), nil
	case []interface{}:
		items := make([]value.Value, len(t))
		for i, elem := range t {
			v, err := toValue(elem)
			if err != nil {
				return value.Value{}, err
			}
			items[i] = v
		}
		return value.Array(items...), nil
	case map[string]interface{}:
		return mapToObject(t)
	case map[interface{}]interface{}:
		m := make(map[string]interface{}, len(t))
		for k, v := range t {
			m[fmt.Sprintf("%v", k)] = v
		}
		return mapToObject(m)
	default:
		return value.Value{}, fmt.Errorf("unsupported yaml scalar kind %T", raw)
	}
}

func mapToObject(m map[string]interface{}) (value.Value, error) {
	obj := value.NewObject()
	for k, v := range m {
		cv, err := toValue(v)
		if err != nil {
			return value.Value{}, err
		}
		obj.Set(k, cv)
	}
	return obj, nil
}

// resolveEnvRefs performs a single-pass substitution of ${NAME} references
// against os.Environ. It scans the whole raw text, so references inside
// keys or YAML comments are substituted too, not only those in leaf
// strings. Hand-written rather than
// text/template: the substitution target is raw YAML text before
// unmarshaling, and every reference must resolve or the whole load fails,
// which text/template's missingkey handling does not express directly.
func resolveEnvRefs(text string) (string, error) {
	var sb strings.Builder
	i := 0
	for i < len(text) {
		start := strings.Index(text[i:], "${")
		if start == -1 {
			sb.WriteString(text[i:])
			break
		}
		start += i
		sb.WriteString(text[i:start])

		end := strings.Index(text[start:], "}")
		if end == -1 {
			sb.WriteString(text[start:])
			break
		}
		end += start

		name := text[start+2 : end]
		val, ok := os.LookupEnv(name)
		if !ok {
			return "", &ConfigError{Kind: ErrUnresolvedEnvVar, Message: name}
		}
		sb.WriteString(val)
		i = end + 1
	}
	return sb.String(), nil
}
