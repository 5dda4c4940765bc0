package analysis_test

import (
	"testing"

	"github.com/brandlens-ai/brandlens-workflows/internal/analysis"
	"github.com/brandlens-ai/brandlens-workflows/internal/models"
)

func competitor(name, domainPattern string) *models.Competitor {
	return &models.Competitor{Name: name, DomainPattern: domainPattern}
}

func TestFindCompetitorMentions(t *testing.T) {
	tests := []struct {
		name          string
		citations     []*models.Citation
		responseText  string
		competitors   []*models.Competitor
		expectedNames []string
	}{
		{
			name:          "name in text only",
			responseText:  "Many teams prefer Beta for analytics.",
			competitors:   []*models.Competitor{competitor("Beta", "beta.io")},
			expectedNames: []string{"Beta"},
		},
		{
			name:          "name match is case-insensitive",
			responseText:  "many teams prefer BETA for analytics.",
			competitors:   []*models.Competitor{competitor("Beta", "beta.io")},
			expectedNames: []string{"Beta"},
		},
		{
			name:          "citation domain only",
			citations:     []*models.Citation{{URL: "https://www.beta.io/review", Domain: "beta.io"}},
			responseText:  "A neutral answer naming nobody.",
			competitors:   []*models.Competitor{competitor("Beta", "beta.io")},
			expectedNames: []string{"Beta"},
		},
		{
			name:          "wildcard domain pattern",
			citations:     []*models.Citation{{URL: "https://docs.beta.io/start", Domain: "docs.beta.io"}},
			responseText:  "A neutral answer.",
			competitors:   []*models.Competitor{competitor("Beta", "*.beta.io")},
			expectedNames: []string{"Beta"},
		},
		{
			name:          "no false positive on similar domain",
			citations:     []*models.Citation{{URL: "https://mybeta.io/x", Domain: "mybeta.io"}},
			responseText:  "A neutral answer.",
			competitors:   []*models.Competitor{competitor("Beta-Corp", "beta.io")},
			expectedNames: nil,
		},
		{
			name:         "both channels fire for different competitors",
			citations:    []*models.Citation{{URL: "https://beta.io/a", Domain: "beta.io"}},
			responseText: "Gamma is also popular.",
			competitors: []*models.Competitor{
				competitor("Beta", "beta.io"),
				competitor("Gamma", "gamma.dev"),
				competitor("Delta", "delta.app"),
			},
			expectedNames: []string{"Beta", "Gamma"},
		},
		{
			name:          "no competitors configured",
			responseText:  "Anything at all.",
			competitors:   nil,
			expectedNames: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := analysis.FindCompetitorMentions(tt.citations, tt.responseText, tt.competitors)

			if result.Mentioned != (len(tt.expectedNames) > 0) {
				t.Errorf("Mentioned = %v, want %v", result.Mentioned, len(tt.expectedNames) > 0)
			}
			if len(result.Names) != len(tt.expectedNames) {
				t.Fatalf("Names = %v, want %v", result.Names, tt.expectedNames)
			}
			for i, name := range tt.expectedNames {
				if result.Names[i] != name {
					t.Errorf("Names[%d] = %q, want %q", i, result.Names[i], name)
				}
			}
		})
	}
}

func TestFindBrandMention(t *testing.T) {
	tests := []struct {
		name        string
		citations   []*models.Citation
		text        string
		brandDomain string
		brandName   string
		expected    bool
	}{
		{
			name:      "brand name in text",
			text:      "Acme is a great choice.",
			brandName: "Acme",
			expected:  true,
		},
		{
			name:        "brand domain in citation",
			citations:   []*models.Citation{{Domain: "acme.com"}},
			text:        "No names here.",
			brandDomain: "acme.com",
			expected:    true,
		},
		{
			name:        "brand subdomain in citation counts",
			citations:   []*models.Citation{{Domain: "blog.acme.com"}},
			text:        "No names here.",
			brandDomain: "https://www.acme.com",
			expected:    true,
		},
		{
			name:        "neither channel",
			citations:   []*models.Citation{{Domain: "other.org"}},
			text:        "Nothing relevant.",
			brandDomain: "acme.com",
			brandName:   "Acme",
			expected:    false,
		},
		{
			name:     "both empty returns false not error",
			text:     "Acme appears but nothing is tracked.",
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := analysis.FindBrandMention(tt.citations, tt.text, tt.brandDomain, tt.brandName)
			if result != tt.expected {
				t.Errorf("FindBrandMention() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestFindBrandMentionDeterminism(t *testing.T) {
	citations := []*models.Citation{{Domain: "beta.io"}, {Domain: "acme.com"}}
	text := "Acme leads the market."

	first := analysis.FindBrandMention(citations, text, "acme.com", "Acme")
	for i := 0; i < 10; i++ {
		if analysis.FindBrandMention(citations, text, "acme.com", "Acme") != first {
			t.Fatal("FindBrandMention is not deterministic for identical inputs")
		}
	}
}

func TestClassifySentiment(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		brandName string
		expected  *string
	}{
		{
			name:      "positive",
			text:      "Acme is great. Acme is the best option around.",
			brandName: "Acme",
			expected:  strPtr(models.SentimentPositive),
		},
		{
			name:      "negative",
			text:      "Acme has problems. Many complaints about Acme persist.",
			brandName: "Acme",
			expected:  strPtr(models.SentimentNegative),
		},
		{
			name:      "tie resolves to neutral",
			text:      "Acme is great but Acme has problems.",
			brandName: "Acme",
			expected:  strPtr(models.SentimentNeutral),
		},
		{
			name:      "mention without lexicon hits is neutral",
			text:      "Acme was founded in 2001 and operates in 12 countries.",
			brandName: "Acme",
			expected:  strPtr(models.SentimentNeutral),
		},
		{
			name:      "other sentences do not count",
			text:      "Acme exists. Beta is the worst, a real scandal with endless problems.",
			brandName: "Acme",
			expected:  strPtr(models.SentimentNeutral),
		},
		{
			name:      "brand not mentioned returns nil",
			text:      "Beta is great.",
			brandName: "Acme",
			expected:  nil,
		},
		{
			name:      "empty brand returns nil",
			text:      "Anything is great.",
			brandName: "",
			expected:  nil,
		},
		{
			// Known heuristic limitation: no negation handling.
			name:      "negated positive still counts positive",
			text:      "Acme is not great.",
			brandName: "Acme",
			expected:  strPtr(models.SentimentPositive),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := analysis.ClassifySentiment(tt.text, tt.brandName)

			if tt.expected == nil {
				if result != nil {
					t.Errorf("ClassifySentiment() = %q, want nil", *result)
				}
				return
			}
			if result == nil {
				t.Fatalf("ClassifySentiment() = nil, want %q", *tt.expected)
			}
			if *result != *tt.expected {
				t.Errorf("ClassifySentiment() = %q, want %q", *result, *tt.expected)
			}
		})
	}
}

func TestMatchesClientDomain(t *testing.T) {
	tests := []struct {
		name           string
		citationDomain string
		clientDomain   string
		expected       bool
	}{
		{"exact", "acme.com", "acme.com", true},
		{"subdomain counts", "blog.acme.com", "acme.com", true},
		{"similar domain does not", "myacme.com", "acme.com", false},
		{"suffix spoof does not", "acme.com.evil.com", "acme.com", false},
		{"empty client", "acme.com", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := analysis.MatchesClientDomain(tt.citationDomain, tt.clientDomain)
			if result != tt.expected {
				t.Errorf("MatchesClientDomain(%q, %q) = %v, want %v", tt.citationDomain, tt.clientDomain, result, tt.expected)
			}
		})
	}
}

func strPtr(s string) *string {
	return &s
}
