package domains_test

import (
	"testing"

	"github.com/brandlens-ai/brandlens-workflows/internal/domains"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"bare domain", "example.com", "example.com"},
		{"uppercase domain", "Example.COM", "example.com"},
		{"www prefix", "www.example.com", "example.com"},
		{"https url", "https://example.com", "example.com"},
		{"http url", "http://example.com", "example.com"},
		{"url with path", "https://example.com/some/page", "example.com"},
		{"url with query", "https://example.com/page?x=1&y=2", "example.com"},
		{"url with fragment", "https://example.com/page#section", "example.com"},
		{"url with port", "https://example.com:8080/api", "example.com"},
		{"bare host with port", "example.com:8080", "example.com"},
		{"full mixed case url", "https://www.Ideas-Tek.com/page?x=1", "ideas-tek.com"},
		{"no scheme with path", "www.example.com/page", "example.com"},
		{"subdomain preserved", "blog.example.com", "blog.example.com"},
		{"empty input", "", ""},
		{"whitespace only", "   ", ""},
		{"path before query", "example.com?q=1", "example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := domains.Normalize(tt.input)
			if result != tt.expected {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestMatch(t *testing.T) {
	tests := []struct {
		name     string
		a        string
		b        string
		expected bool
	}{
		{"identical domains", "example.com", "example.com", true},
		{"scheme and www equivalence", "https://www.Ideas-Tek.com/page?x=1", "ideas-tek.com", true},
		{"http vs https", "http://example.com", "https://example.com", true},
		{"path ignored", "example.com/about", "example.com/contact", true},
		{"no substring false positive", "example.com", "myexample.com", false},
		{"no suffix spoofing", "example.com", "example.com.evil.com", false},
		{"different domains", "acme.com", "beta.io", false},
		{"subdomain is not root", "blog.example.com", "example.com", false},
		{"empty never matches", "", "example.com", false},
		{"two empties never match", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := domains.Match(tt.a, tt.b)
			if result != tt.expected {
				t.Errorf("Match(%q, %q) = %v, want %v", tt.a, tt.b, result, tt.expected)
			}
		})
	}
}

// Match must behave as an equivalence over all URL forms of the same host.
func TestMatchEquivalenceForms(t *testing.T) {
	forms := []string{
		"acme.com",
		"www.acme.com",
		"http://acme.com",
		"https://acme.com",
		"https://www.acme.com/products?id=7#top",
		"ACME.COM",
	}

	for _, a := range forms {
		for _, b := range forms {
			if !domains.Match(a, b) {
				t.Errorf("Match(%q, %q) = false, want true", a, b)
			}
		}
	}
}
