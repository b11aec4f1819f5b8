package config

import (
	"gopkg.in/yaml.v3"
)

// RetryBackoffMode enumerates backoff strategies for task retries.
type RetryBackoffMode string

const (
	RetryBackoffFixed       RetryBackoffMode = "fixed"
	RetryBackoffLinear      RetryBackoffMode = "linear"
	RetryBackoffExponential RetryBackoffMode = "exponential"
)

// Config is the complete build configuration. It is immutable once loaded;
// CLI filters operate on a copy.
type Config struct {
	Version   string         `yaml:"version"`
	Template  TemplateConfig `yaml:"template"`
	Languages []string       `yaml:"languages"`
	Flavors   []string       `yaml:"flavors"`
	Formats   Formats        `yaml:"formats"`
	Build     BuildSettings  `yaml:"build"`
	Advanced  FailurePolicy  `yaml:"advanced"`
}

// TemplateConfig describes where the template tree comes from.
type TemplateConfig struct {
	Repository string `yaml:"repository"`
	Ref        string `yaml:"ref"`
	Path       string `yaml:"path"`
}

// BuildSettings holds build-execution knobs.
type BuildSettings struct {
	Parallel    bool   `yaml:"parallel"`
	MaxWorkers  int    `yaml:"max_workers"`
	Validate    bool   `yaml:"validate"`
	CleanBefore bool   `yaml:"clean_before"`
	VerifyFonts bool   `yaml:"verify_fonts"`
	TaskTimeout string `yaml:"task_timeout"`
	OutputDir   string `yaml:"output_dir"`
	DistDir     string `yaml:"dist_dir"`
	TempDir     string `yaml:"temp_dir"`
}

// FailurePolicy holds the failure/retry knobs honored by the orchestrator.
type FailurePolicy struct {
	FailFast          bool             `yaml:"fail_fast"`
	ContinueOnError   bool             `yaml:"continue_on_error"`
	RetryCount        int              `yaml:"retry_count"`
	RetryBackoff      RetryBackoffMode `yaml:"retry_backoff"`
	RetryInitialDelay string           `yaml:"retry_initial_delay"`
	RetryMaxDelay     string           `yaml:"retry_max_delay"`
}

// FormatSpec configures one output format.
type FormatSpec struct {
	Enabled  bool           `yaml:"enabled"`
	Priority int            `yaml:"priority"`
	Options  map[string]any `yaml:"options"`
}

// Option returns a format option with a default.
func (s FormatSpec) Option(key string, def any) any {
	if v, ok := s.Options[key]; ok {
		return v
	}
	return def
}

// BoolOption returns a boolean format option with a default.
func (s FormatSpec) BoolOption(key string, def bool) bool {
	if v, ok := s.Options[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

// StringOption returns a string format option with a default.
func (s FormatSpec) StringOption(key, def string) string {
	if v, ok := s.Options[key]; ok {
		if str, ok := v.(string); ok {
			return str
		}
	}
	return def
}

// Formats is an order-preserving format-name -> FormatSpec mapping. The
// build matrix enumerates formats in configuration declaration order, so
// plain map decoding is not enough.
type Formats struct {
	order []string
	specs map[string]FormatSpec
}

// NewFormats builds a Formats set from ordered (name, spec) pairs.
// Used by tests and CLI filtering.
func NewFormats(names []string, specs map[string]FormatSpec) Formats {
	f := Formats{specs: make(map[string]FormatSpec, len(names))}
	for _, name := range names {
		if spec, ok := specs[name]; ok {
			f.order = append(f.order, name)
			f.specs[name] = spec
		}
	}
	return f
}

// UnmarshalYAML decodes the formats mapping while capturing key order.
func (f *Formats) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return &yaml.TypeError{Errors: []string{"formats must be a mapping"}}
	}
	f.specs = make(map[string]FormatSpec, len(node.Content)/2)
	f.order = f.order[:0]
	for i := 0; i+1 < len(node.Content); i += 2 {
		var name string
		if err := node.Content[i].Decode(&name); err != nil {
			return err
		}
		var spec FormatSpec
		if err := node.Content[i+1].Decode(&spec); err != nil {
			return err
		}
		f.order = append(f.order, name)
		f.specs[name] = spec
	}
	return nil
}

// MarshalYAML emits the mapping in declaration order.
func (f Formats) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, name := range f.order {
		var key, val yaml.Node
		if err := key.Encode(name); err != nil {
			return nil, err
		}
		if err := val.Encode(f.specs[name]); err != nil {
			return nil, err
		}
		node.Content = append(node.Content, &key, &val)
	}
	return node, nil
}

// Names returns all format names in declaration order.
func (f Formats) Names() []string {
	out := make([]string, len(f.order))
	copy(out, f.order)
	return out
}

// EnabledNames returns the names of enabled formats in declaration order.
func (f Formats) EnabledNames() []string {
	var out []string
	for _, name := range f.order {
		if f.specs[name].Enabled {
			out = append(out, name)
		}
	}
	return out
}

// Get returns the spec for a format name.
func (f Formats) Get(name string) (FormatSpec, bool) {
	spec, ok := f.specs[name]
	return spec, ok
}

// Len returns the number of configured formats.
func (f Formats) Len() int { return len(f.order) }

// Filter returns a copy containing only the named formats, preserving
// declaration order. Unknown names are dropped.
func (f Formats) Filter(names []string) Formats {
	keep := make(map[string]bool, len(names))
	for _, n := range names {
		keep[n] = true
	}
	out := Formats{specs: make(map[string]FormatSpec)}
	for _, name := range f.order {
		if keep[name] {
			out.order = append(out.order, name)
			out.specs[name] = f.specs[name]
		}
	}
	return out
}
