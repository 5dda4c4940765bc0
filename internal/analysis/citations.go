// internal/analysis/citations.go
package analysis

import (
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/brandlens-ai/brandlens-workflows/internal/domains"
	"github.com/brandlens-ai/brandlens-workflows/internal/models"
	"github.com/google/uuid"
)

// SourceCitation is a structured citation handed back by a platform (url +
// rank). Defined here to avoid an import cycle with the provider layer.
type SourceCitation struct {
	URL  string
	Rank int
}

var (
	markdownLinkPattern = regexp.MustCompile(`\[[^\]]*\]\(\s*([^)\s]+?)\s*\)`)
	bareURLPattern      = regexp.MustCompile(`https?://[^\s<>"'\)\]\}]+`)
	wwwURLPattern       = regexp.MustCompile(`(?:^|[\s(])((?:www\.)[^\s<>"'\)\]\}]+)`)
	numberedRefPattern  = regexp.MustCompile(`(?m)^\s*\[?\d+\]?[:.)]\s+(\S+\.\S+/\S+)\s*$`)
)

// ExtractCitations parses a model response into a deduplicated, ordered list
// of citation records. When the platform returned structured citations they
// take precedence; otherwise the text is scanned for markdown links, bare
// URLs and numbered reference lines. Duplicates collapse onto the first-seen
// occurrence, which fixes Position. Invalid URLs are dropped, never fatal.
func ExtractCitations(responseText string, structured []SourceCitation) []*models.Citation {
	if len(structured) > 0 {
		return citationsFromStructured(structured)
	}
	return citationsFromText(responseText)
}

func citationsFromStructured(structured []SourceCitation) []*models.Citation {
	ordered := make([]SourceCitation, len(structured))
	copy(ordered, structured)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Rank < ordered[j].Rank
	})

	var citations []*models.Citation
	seen := make(map[string]bool)

	for _, sc := range ordered {
		candidate, domain, ok := validateURL(sc.URL)
		if !ok {
			fmt.Printf("[ExtractCitations] Dropping invalid structured citation URL: %q\n", sc.URL)
			continue
		}
		key := normalizeDedupKey(candidate)
		if seen[key] {
			continue
		}
		seen[key] = true
		citations = append(citations, newCitation(candidate, domain, len(citations)+1))
	}

	return citations
}

func citationsFromText(responseText string) []*models.Citation {
	type candidate struct {
		offset int
		rawURL string
	}
	var found []candidate

	for _, m := range markdownLinkPattern.FindAllStringSubmatchIndex(responseText, -1) {
		found = append(found, candidate{offset: m[2], rawURL: responseText[m[2]:m[3]]})
	}
	for _, m := range bareURLPattern.FindAllStringIndex(responseText, -1) {
		found = append(found, candidate{offset: m[0], rawURL: responseText[m[0]:m[1]]})
	}
	for _, m := range wwwURLPattern.FindAllStringSubmatchIndex(responseText, -1) {
		found = append(found, candidate{offset: m[2], rawURL: responseText[m[2]:m[3]]})
	}
	for _, m := range numberedRefPattern.FindAllStringSubmatchIndex(responseText, -1) {
		found = append(found, candidate{offset: m[2], rawURL: responseText[m[2]:m[3]]})
	}

	sort.SliceStable(found, func(i, j int) bool {
		return found[i].offset < found[j].offset
	})

	var citations []*models.Citation
	seen := make(map[string]bool)

	for _, c := range found {
		cleaned, domain, ok := validateURL(c.rawURL)
		if !ok {
			continue
		}
		key := normalizeDedupKey(cleaned)
		if seen[key] {
			continue
		}
		seen[key] = true
		citations = append(citations, newCitation(cleaned, domain, len(citations)+1))
	}

	return citations
}

func newCitation(rawURL, domain string, position int) *models.Citation {
	return &models.Citation{
		CitationID: uuid.New(),
		URL:        rawURL,
		Domain:     domain,
		Position:   position,
		CreatedAt:  time.Now(),
	}
}

// validateURL cleans a candidate and returns (url, normalized domain, ok).
// Candidates without a scheme are parsed as https.
func validateURL(raw string) (string, string, bool) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimRight(cleaned, ".,;:!?'\"")
	if cleaned == "" {
		return "", "", false
	}

	parseTarget := cleaned
	if !strings.Contains(parseTarget, "://") {
		parseTarget = "https://" + parseTarget
	}

	u, err := url.Parse(parseTarget)
	if err != nil || u.Hostname() == "" {
		return "", "", false
	}
	// Require a dotted hostname so prose like "e.g" or version numbers
	// never turn into citations.
	host := u.Hostname()
	if !strings.Contains(host, ".") || strings.HasPrefix(host, ".") || strings.HasSuffix(host, ".") {
		return "", "", false
	}

	domain := domains.Normalize(cleaned)
	if domain == "" {
		return "", "", false
	}

	return cleaned, domain, true
}

// normalizeDedupKey is the uniqueness key for a citation within one query:
// scheme/www/case-insensitive, trailing slash ignored.
func normalizeDedupKey(rawURL string) string {
	s := strings.ToLower(strings.TrimSpace(rawURL))
	for _, scheme := range []string{"https://", "http://"} {
		if strings.HasPrefix(s, scheme) {
			s = s[len(scheme):]
			break
		}
	}
	s = strings.TrimPrefix(s, "www.")
	return strings.TrimSuffix(s, "/")
}
