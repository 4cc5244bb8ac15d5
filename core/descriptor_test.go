package core

import (
	"errors"
	"net/http"
	"testing"
)

func okHandler() Handler {
	return HandlerFunc(func(w http.ResponseWriter, r *http.Request) error {
		w.Header().Set("Content-Type", "application/json")
		_, err := w.Write([]byte(`{"status":true}`))
		return err
	})
}

func TestValidateDescriptor_Valid(t *testing.T) {
	raw := RawDescriptor{
		Name:     "Cuaca",
		Method:   "get",
		Path:     "cuaca",
		Category: " Info ",
		Handler:  okHandler(),
	}

	desc, err := ValidateDescriptor(raw, NewHandlerRegistry())
	if err != nil {
		t.Fatalf("ValidateDescriptor failed: %v", err)
	}

	if desc.Method != "GET" {
		t.Errorf("method not normalized: got %q", desc.Method)
	}
	if desc.Path != "/cuaca" {
		t.Errorf("path not normalized: got %q", desc.Path)
	}
	if desc.Category != "info" {
		t.Errorf("category not normalized: got %q", desc.Category)
	}
}

func TestValidateDescriptor_Rejections(t *testing.T) {
	handlers := NewHandlerRegistry()

	tests := []struct {
		name string
		raw  RawDescriptor
	}{
		{"missing name", RawDescriptor{Method: "GET", Path: "/x", Handler: okHandler()}},
		{"missing method", RawDescriptor{Name: "x", Path: "/x", Handler: okHandler()}},
		{"unknown method", RawDescriptor{Name: "x", Method: "FETCH", Path: "/x", Handler: okHandler()}},
		{"missing path", RawDescriptor{Name: "x", Method: "GET", Handler: okHandler()}},
		{"missing handler", RawDescriptor{Name: "x", Method: "GET", Path: "/x"}},
		{"unknown handler kind", RawDescriptor{
			Name: "x", Method: "GET", Path: "/x",
			HandlerSpec: &HandlerSpec{Kind: "wasm"},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ValidateDescriptor(tt.raw, handlers); err == nil {
				t.Fatal("expected rejection, got nil error")
			}
		})
	}
}

func TestValidateDescriptor_InvalidSentinel(t *testing.T) {
	_, err := ValidateDescriptor(RawDescriptor{}, NewHandlerRegistry())
	if !errors.Is(err, ErrInvalidDescriptor) {
		t.Fatalf("expected ErrInvalidDescriptor, got %v", err)
	}
}

func TestNormalizeParameter_Defaults(t *testing.T) {
	p := normalizeParameter(RawParameter{Name: "q"})

	if p.Location != "query" {
		t.Errorf("location default: got %q, want query", p.Location)
	}
	if !p.Required {
		t.Error("required default: got false, want true")
	}
	if p.DataType != "string" {
		t.Errorf("dtype default: got %q, want string", p.DataType)
	}
}

func TestNormalizeParameter_ExplicitValues(t *testing.T) {
	notRequired := false
	p := normalizeParameter(RawParameter{
		Name:     "page",
		Location: "BODY",
		Required: &notRequired,
		DataType: "number",
	})

	if p.Location != "body" {
		t.Errorf("location: got %q, want body", p.Location)
	}
	if p.Required {
		t.Error("required: got true, want false")
	}
	if p.DataType != "number" {
		t.Errorf("dtype: got %q", p.DataType)
	}
}

func TestNormalizeParameter_MalformedLocationDefaults(t *testing.T) {
	p := normalizeParameter(RawParameter{Name: "q", Location: "header"})
	if p.Location != "query" {
		t.Errorf("malformed location should default to query, got %q", p.Location)
	}
}

func TestCollapseSlashes(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"/a//b", "/a/b"},
		{"//a///b//", "/a/b/"},
		{"/a/b", "/a/b"},
	}
	for _, tt := range tests {
		if got := collapseSlashes(tt.in); got != tt.want {
			t.Errorf("collapseSlashes(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestResolveCategoryPrefix(t *testing.T) {
	tests := []struct {
		category string
		want     string
	}{
		{"downloader", "/download"},
		{"ANIME", "/anime"},
		{"ai", "/ai"},
		{"tools", "/tools"},
		{"info", "/info"},
		{"weird", "/other"},
		{"", "/other"},
	}
	for _, tt := range tests {
		if got := ResolveCategoryPrefix(tt.category); got != tt.want {
			t.Errorf("ResolveCategoryPrefix(%q) = %q, want %q", tt.category, got, tt.want)
		}
	}
}
