package core

import (
	"fmt"
	"strings"
)

// knownMethods is the fixed HTTP verb set a descriptor may declare.
var knownMethods = map[string]bool{
	"GET":     true,
	"POST":    true,
	"PUT":     true,
	"DELETE":  true,
	"PATCH":   true,
	"HEAD":    true,
	"OPTIONS": true,
}

// Parameter describes one input accepted by a capability. The JSON field
// names follow the original catalog wire format.
type Parameter struct {
	Name        string `json:"nama" yaml:"name"`
	Location    string `json:"tipe" yaml:"location"` // "query" or "body"
	Required    bool   `json:"required" yaml:"required"`
	DataType    string `json:"dtype" yaml:"dtype"`
	Description string `json:"desc" yaml:"desc"`
}

// RawParameter is a parameter as discovered, before defaulting. Pointer
// fields distinguish "absent" from zero values.
type RawParameter struct {
	Name        string `yaml:"name"`
	Location    string `yaml:"location"`
	Required    *bool  `yaml:"required"`
	DataType    string `yaml:"dtype"`
	Description string `yaml:"desc"`
}

// HandlerSpec names a registered handler kind plus its kind-specific options.
// Descriptor files use it in place of live code.
type HandlerSpec struct {
	Kind    string                 `yaml:"kind"`
	Options map[string]interface{} `yaml:"options"`
}

// RawDescriptor is a capability declaration as discovered from a source,
// before validation. Either Handler (in-code sources) or HandlerSpec
// (file-based sources) must be populated.
type RawDescriptor struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"desc"`
	Category    string         `yaml:"category"`
	Method      string         `yaml:"method"`
	Path        string         `yaml:"path"`
	Params      []RawParameter `yaml:"params"`
	Example     string         `yaml:"example"`
	HandlerSpec *HandlerSpec   `yaml:"handler"`

	// Handler is set directly by in-code sources and bypasses kind lookup.
	Handler Handler `yaml:"-"`

	// Origin identifies where the descriptor came from (file path or source
	// name), used in diagnostics only.
	Origin string `yaml:"-"`
}

// Descriptor is a fully validated, fully defaulted capability declaration.
// Once built it is read-only.
type Descriptor struct {
	Name        string
	Description string
	Category    string
	Method      string // normalized upper-case verb
	Path        string // normalized, single leading slash
	Params      []Parameter
	Example     string
	Handler     Handler
	Origin      string
}

// ValidateDescriptor checks a raw descriptor and returns the normalized,
// fully populated form. Required: non-empty name, a known method, a non-empty
// path, and a resolvable handler. Malformed parameter entries never fail the
// descriptor; they are individually defaulted.
func ValidateDescriptor(raw RawDescriptor, handlers *HandlerRegistry) (*Descriptor, error) {
	if strings.TrimSpace(raw.Name) == "" {
		return nil, fmt.Errorf("missing name: %w", ErrInvalidDescriptor)
	}

	method := strings.ToUpper(strings.TrimSpace(raw.Method))
	if !knownMethods[method] {
		return nil, fmt.Errorf("unknown method %q: %w", raw.Method, ErrInvalidDescriptor)
	}

	path := strings.TrimSpace(raw.Path)
	if path == "" {
		return nil, fmt.Errorf("missing path: %w", ErrInvalidDescriptor)
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	path = collapseSlashes(path)

	handler := raw.Handler
	if handler == nil {
		if raw.HandlerSpec == nil {
			return nil, fmt.Errorf("missing handler: %w", ErrInvalidDescriptor)
		}
		var err error
		handler, err = handlers.Resolve(*raw.HandlerSpec)
		if err != nil {
			return nil, fmt.Errorf("handler %q: %w", raw.HandlerSpec.Kind, err)
		}
	}

	params := make([]Parameter, 0, len(raw.Params))
	for _, p := range raw.Params {
		params = append(params, normalizeParameter(p))
	}

	return &Descriptor{
		Name:        strings.TrimSpace(raw.Name),
		Description: raw.Description,
		Category:    normalizeCategory(raw.Category),
		Method:      method,
		Path:        path,
		Params:      params,
		Example:     raw.Example,
		Handler:     handler,
		Origin:      raw.Origin,
	}, nil
}

// normalizeParameter fills defaults for missing parameter fields:
// location=query, required=true, dtype=string, desc="".
func normalizeParameter(p RawParameter) Parameter {
	location := strings.ToLower(strings.TrimSpace(p.Location))
	if location != "query" && location != "body" {
		location = "query"
	}

	required := true
	if p.Required != nil {
		required = *p.Required
	}

	dataType := strings.TrimSpace(p.DataType)
	if dataType == "" {
		dataType = "string"
	}

	return Parameter{
		Name:        strings.TrimSpace(p.Name),
		Location:    location,
		Required:    required,
		DataType:    dataType,
		Description: p.Description,
	}
}

func normalizeCategory(category string) string {
	return strings.ToLower(strings.TrimSpace(category))
}

// collapseSlashes reduces any run of path separators to a single one.
func collapseSlashes(path string) string {
	for strings.Contains(path, "//") {
		path = strings.ReplaceAll(path, "//", "/")
	}
	return path
}
