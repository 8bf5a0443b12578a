// Package classifier buckets browser history into activity categories
// and summarizes one browser's window of visits.
package classifier

import (
	"sort"
	"strings"

	"loopwatch/internal/types"
)

// Category labels, ordered roughly by how much of a typical day they eat.
const (
	CategoryDevelopment   = "Development"
	CategoryLocalDev      = "Local Development"
	CategorySocialMedia   = "Social Media"
	CategoryEntertainment = "Entertainment"
	CategoryCommunication = "Communication"
	CategoryAITools       = "AI Tools"
	CategoryNewsForums    = "News/Forums"
	CategoryOther         = "Other"
)

// rule maps domain substrings to a category. First match wins, so the
// more specific rules come first.
type rule struct {
	category string
	keywords []string
}

var rules = []rule{
	{CategoryLocalDev, []string{"localhost", "127.0.0.1", "0.0.0.0"}},
	{CategoryDevelopment, []string{"github.com", "gitlab.com", "stackoverflow.com", "stackexchange.com", "developer.apple.com", "pkg.go.dev", "npmjs.com", "docs.python.org", "readthedocs.io", "vercel.com", "netlify.com"}},
	{CategoryAITools, []string{"claude.ai", "anthropic.com", "openai.com", "chatgpt.com", "perplexity.ai", "huggingface.co"}},
	{CategorySocialMedia, []string{"twitter.com", "x.com", "instagram.com", "facebook.com", "tiktok.com", "linkedin.com", "threads.net"}},
	{CategoryEntertainment, []string{"youtube.com", "netflix.com", "twitch.tv", "spotify.com", "reddit.com/r/gaming", "hulu.com"}},
	{CategoryCommunication, []string{"web.telegram.org", "web.whatsapp.com", "slack.com", "discord.com", "mail.google.com", "outlook."}},
	{CategoryNewsForums, []string{"news.ycombinator.com", "reddit.com", "lobste.rs", "medium.com", "substack.com"}},
}

// Categorize maps a URL to an activity category by matching its domain
// and path against the keyword table. Unknown URLs are Other.
func Categorize(rawURL string) string {
	lowered := strings.ToLower(rawURL)
	for _, r := range rules {
		for _, kw := range r.keywords {
			if strings.Contains(lowered, kw) {
				return r.category
			}
		}
	}
	return CategoryOther
}

// Summarize reduces one browser's visits to its category and domain
// breakdown. Domains and categories are ordered by descending count,
// ties broken alphabetically; peak hours by descending count, ties by
// earlier hour.
func Summarize(browser string, visits []types.Visit, topDomains, peakHours int) types.BrowserSummary {
	if topDomains <= 0 {
		topDomains = 10
	}
	if peakHours <= 0 {
		peakHours = 3
	}

	domainCounts := make(map[string]int)
	categoryCounts := make(map[string]int)
	var hourCounts [24]int

	for _, v := range visits {
		if v.Domain != "" {
			domainCounts[v.Domain]++
		}
		categoryCounts[Categorize(v.URL)]++
		if !v.Time.IsZero() {
			hourCounts[v.Time.Hour()]++
		}
	}

	summary := types.BrowserSummary{
		Browser:       browser,
		TotalVisits:   len(visits),
		UniqueDomains: len(domainCounts),
		TopDomains:    rankDomains(domainCounts, topDomains),
		Categories:    rankCategories(categoryCounts),
		PeakHours:     rankHours(hourCounts, peakHours),
	}
	return summary
}

func rankDomains(counts map[string]int, n int) []types.DomainCount {
	out := make([]types.DomainCount, 0, len(counts))
	for d, c := range counts {
		out = append(out, types.DomainCount{Domain: d, Visits: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Visits != out[j].Visits {
			return out[i].Visits > out[j].Visits
		}
		return out[i].Domain < out[j].Domain
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func rankCategories(counts map[string]int) []types.CategoryCount {
	out := make([]types.CategoryCount, 0, len(counts))
	for c, n := range counts {
		out = append(out, types.CategoryCount{Category: c, Pages: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Pages != out[j].Pages {
			return out[i].Pages > out[j].Pages
		}
		return out[i].Category < out[j].Category
	})
	return out
}

func rankHours(counts [24]int, n int) []int {
	hours := make([]int, 0, 24)
	for h, c := range counts {
		if c > 0 {
			hours = append(hours, h)
		}
	}
	sort.Slice(hours, func(i, j int) bool {
		if counts[hours[i]] != counts[hours[j]] {
			return counts[hours[i]] > counts[hours[j]]
		}
		return hours[i] < hours[j]
	})
	if len(hours) > n {
		hours = hours[:n]
	}
	return hours
}
