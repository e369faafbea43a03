package http

import (
	"net/http/httptest"
	"testing"
)

func TestCORSOptions_AllowOriginFunc(t *testing.T) {
	tests := []struct {
		name   string
		extras []string
		origin string
		want   bool
	}{
		{"production origin", nil, "https://totallytravels.com", true},
		{"www origin", nil, "https://www.totallytravels.com", true},
		{"localhost any port", nil, "http://localhost:5173", true},
		{"loopback any port", nil, "http://127.0.0.1:3000", true},
		{"unknown origin", nil, "https://evil.example.com", false},
		{"https localhost not matched", nil, "https://localhost:5173", false},
		{"configured extra", []string{"https://staging.totallytravels.com"}, "https://staging.totallytravels.com", true},
		{"extra with whitespace", []string{"  https://preview.totallytravels.com  "}, "https://preview.totallytravels.com", true},
		{"empty extra ignored", []string{""}, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := CORSOptions(tt.extras)
			r := httptest.NewRequest("GET", "/api/weather", nil)
			if got := opts.AllowOriginFunc(r, tt.origin); got != tt.want {
				t.Errorf("AllowOriginFunc(%q) = %v, want %v", tt.origin, got, tt.want)
			}
		})
	}
}

func TestCORSOptions_Methods(t *testing.T) {
	opts := CORSOptions(nil)
	want := map[string]bool{"GET": true, "POST": true, "OPTIONS": true}
	if len(opts.AllowedMethods) != len(want) {
		t.Fatalf("AllowedMethods = %v", opts.AllowedMethods)
	}
	for _, m := range opts.AllowedMethods {
		if !want[m] {
			t.Errorf("unexpected method %q", m)
		}
	}
}
