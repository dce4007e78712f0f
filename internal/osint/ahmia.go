package osint

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/lyrabot/lyra/internal/logger"
)

const (
	defaultBaseURL = "https://ahmia.fi"
	userAgent      = "Mozilla/5.0"

	// anchors scanned per page before giving up on a keyword
	maxAnchors = 50
	// report size cap, in lines
	maxReportLines = 1200

	titleLimit   = 120
	missingTitle = "(sans titre)"
	emptyReport  = "Aucun resultat OSINT."
)

type Result struct {
	Title string
	URL   string
}

// Scanner runs keyword searches against the Ahmia clearnet index and
// formats the findings as a text report.
type Scanner struct {
	client  *http.Client
	baseURL string
	limit   int
	logger  logger.Logger
}

func NewScanner(client *http.Client, perKeywordLimit int, log logger.Logger) *Scanner {
	if perKeywordLimit <= 0 {
		perKeywordLimit = 5
	}
	return &Scanner{
		client:  client,
		baseURL: defaultBaseURL,
		limit:   perKeywordLimit,
		logger:  log,
	}
}

// Search returns up to the configured number of results for one keyword.
// Navigation links back into the index itself are skipped.
func (s *Scanner) Search(ctx context.Context, keyword string) ([]Result, error) {
	searchURL := fmt.Sprintf("%s/search/?q=%s", s.baseURL, url.QueryEscape(keyword))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search returned status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, err
	}

	var results []Result
	doc.Find("a").EachWithBreak(func(i int, sel *goquery.Selection) bool {
		if i >= maxAnchors {
			return false
		}
		href, _ := sel.Attr("href")
		if href == "" || strings.HasPrefix(href, "#") {
			return true
		}
		if strings.Contains(href, "ahmia.fi") && strings.Contains(href, "/search/") {
			return true
		}
		title := strings.Join(strings.Fields(sel.Text()), " ")
		if runes := []rune(title); len(runes) > titleLimit {
			title = string(runes[:titleLimit])
		}
		if title == "" {
			title = missingTitle
		}
		results = append(results, Result{Title: title, URL: href})
		return len(results) < s.limit
	})

	return results, nil
}

// Run scans every keyword and builds the report. Failures on one keyword
// are reported inline and never abort the remaining keywords.
func (s *Scanner) Run(ctx context.Context, keywords []string) string {
	var lines []string
	for _, keyword := range keywords {
		keyword = strings.TrimSpace(keyword)
		if keyword == "" {
			continue
		}

		results, err := s.Search(ctx, keyword)
		if err != nil {
			s.logger.WithError(err).WithField("keyword", keyword).Warn("OSINT search failed")
			lines = append(lines, fmt.Sprintf("[WARN] %s: erreur %v", keyword, err))
			continue
		}
		if len(results) == 0 {
			lines = append(lines, fmt.Sprintf("[INFO] %s: aucun resultat exploitable.", keyword))
			continue
		}

		lines = append(lines, fmt.Sprintf("[INFO] %s: %d resultats", keyword, len(results)))
		for i, result := range results {
			lines = append(lines, fmt.Sprintf("  %d. %s", i+1, result.Title))
		}
	}

	if len(lines) == 0 {
		return emptyReport
	}
	if len(lines) > maxReportLines {
		lines = lines[:maxReportLines]
	}
	return strings.Join(lines, "\n")
}
