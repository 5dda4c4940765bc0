// internal/analysis/mentions.go
package analysis

import (
	"regexp"
	"strings"

	"github.com/brandlens-ai/brandlens-workflows/internal/domains"
	"github.com/brandlens-ai/brandlens-workflows/internal/models"
)

// CompetitorMentions is the result of scanning one response for competitors
type CompetitorMentions struct {
	Mentioned bool
	Names     []string
}

// FindCompetitorMentions detects competitor presence through two independent
// channels: domain equivalence between citation domains and the competitor's
// domain pattern, and case-insensitive name matching inside the response
// text. Either channel firing adds the competitor to the result set.
func FindCompetitorMentions(citations []*models.Citation, responseText string, competitors []*models.Competitor) CompetitorMentions {
	result := CompetitorMentions{}
	lowerText := strings.ToLower(responseText)
	added := make(map[string]bool)

	for _, comp := range competitors {
		if comp.Name == "" && comp.DomainPattern == "" {
			continue
		}

		mentioned := false

		if comp.DomainPattern != "" {
			pattern := compileDomainPattern(comp.DomainPattern)
			for _, citation := range citations {
				if domains.Match(citation.Domain, comp.DomainPattern) {
					mentioned = true
					break
				}
				if pattern != nil && pattern.MatchString(citation.Domain) {
					mentioned = true
					break
				}
			}
		}

		if !mentioned && comp.Name != "" && strings.Contains(lowerText, strings.ToLower(comp.Name)) {
			mentioned = true
		}

		if mentioned && !added[comp.Name] {
			added[comp.Name] = true
			result.Names = append(result.Names, comp.Name)
		}
	}

	result.Mentioned = len(result.Names) > 0
	return result
}

// compileDomainPattern derives a case-insensitive regex from a competitor
// domain pattern. "*" acts as a wildcard; everything else is literal. A
// pattern that fails to compile falls back to exact matching only.
func compileDomainPattern(domainPattern string) *regexp.Regexp {
	normalized := domains.Normalize(domainPattern)
	if normalized == "" {
		return nil
	}
	expr := "(?i)^" + strings.ReplaceAll(regexp.QuoteMeta(normalized), `\*`, `.*`) + "$"
	pattern, err := regexp.Compile(expr)
	if err != nil {
		return nil
	}
	return pattern
}

// FindBrandMention reports whether the tracked brand appears in the response
// or its citations: any citation's normalized domain containing the
// normalized brand domain counts (so subdomains count), as does a
// case-insensitive occurrence of the brand name in the text. Returns false
// when both brandDomain and brandName are empty.
func FindBrandMention(citations []*models.Citation, responseText, brandDomain, brandName string) bool {
	normBrand := domains.Normalize(brandDomain)
	if normBrand != "" {
		for _, citation := range citations {
			if strings.Contains(citation.Domain, normBrand) {
				return true
			}
		}
	}

	if brandName != "" && strings.Contains(strings.ToLower(responseText), strings.ToLower(brandName)) {
		return true
	}

	return false
}

// MatchesClientDomain reports whether a citation domain belongs to the
// client's site, counting subdomains (blog.acme.com counts for acme.com).
func MatchesClientDomain(citationDomain, clientDomain string) bool {
	normClient := domains.Normalize(clientDomain)
	normCitation := domains.Normalize(citationDomain)
	if normClient == "" || normCitation == "" {
		return false
	}
	return normCitation == normClient || strings.HasSuffix(normCitation, "."+normClient)
}

// FlagCitationDomains stamps each citation's ownership flags: IsClientDomain
// when the domain belongs to the client's site, IsCompetitorDomain plus the
// matching competitor names when it matches a competitor's domain pattern.
func FlagCitationDomains(citations []*models.Citation, clientDomain string, competitors []*models.Competitor) {
	for _, citation := range citations {
		citation.IsClientDomain = MatchesClientDomain(citation.Domain, clientDomain)

		seen := make(map[string]bool)
		for _, comp := range competitors {
			if comp.DomainPattern == "" || seen[comp.Name] {
				continue
			}
			matched := domains.Match(citation.Domain, comp.DomainPattern)
			if !matched {
				if pattern := compileDomainPattern(comp.DomainPattern); pattern != nil {
					matched = pattern.MatchString(citation.Domain)
				}
			}
			if matched {
				citation.IsCompetitorDomain = true
				citation.CompetitorNames = append(citation.CompetitorNames, comp.Name)
				seen[comp.Name] = true
			}
		}
	}
}

var sentenceSplitPattern = regexp.MustCompile(`[.!?]+`)

// Fixed sentiment lexicons. This is a keyword heuristic, not NLP: there is
// no negation handling ("not great" counts as positive), which is a known
// and accepted limitation.
var positiveLexicon = []string{
	"best", "great", "excellent", "leading", "top", "reliable", "trusted",
	"innovative", "recommended", "popular", "outstanding", "impressive",
	"strong", "good", "favorite", "award-winning",
}

var negativeLexicon = []string{
	"worst", "bad", "poor", "unreliable", "expensive", "slow", "weak",
	"limited", "disappointing", "complaints", "issues", "problems",
	"lawsuit", "scandal", "avoid", "outdated",
}

// ClassifySentiment assigns a coarse sentiment label to the brand within a
// response. Returns nil when the brand is not mentioned at all. Otherwise
// only sentences containing the brand name are scored against the fixed
// lexicons; ties (including zero hits) resolve to neutral.
func ClassifySentiment(responseText, brandName string) *string {
	if brandName == "" {
		return nil
	}
	lowerBrand := strings.ToLower(brandName)
	if !strings.Contains(strings.ToLower(responseText), lowerBrand) {
		return nil
	}

	positive, negative := 0, 0
	for _, sentence := range sentenceSplitPattern.Split(responseText, -1) {
		lowerSentence := strings.ToLower(sentence)
		if !strings.Contains(lowerSentence, lowerBrand) {
			continue
		}
		for _, word := range positiveLexicon {
			positive += strings.Count(lowerSentence, word)
		}
		for _, word := range negativeLexicon {
			negative += strings.Count(lowerSentence, word)
		}
	}

	label := models.SentimentNeutral
	if positive > negative {
		label = models.SentimentPositive
	} else if negative > positive {
		label = models.SentimentNegative
	}
	return &label
}
