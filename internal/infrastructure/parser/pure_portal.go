package parser

import (
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/alekseyt9/pubcrawler/internal/domain"
	"github.com/alekseyt9/pubcrawler/internal/scanner"
)

// Selectors for Pure Portal listing pages. Fixed structural contract with
// the portal's rendered markup.
const (
	containerSelector = "div.result-container"
	titleSelector     = "h3.title a"
	authorSelector    = "div.rendering.person, span.rendering.person, a.link.person"
	yearSelector      = "span.date, div.date"
	nextSelector      = "a[rel='next']"
	pagerSelector     = "ul.pager"
	noResultsMarker   = "no results"
	minAbstractLength = 100
)

var (
	yearExpr     = regexp.MustCompile(`\b(19|20)\d{2}\b`)
	dateYearExpr = regexp.MustCompile(`\d{1,2}\s+\w+\s+((?:19|20)\d{2})`)
)

// PurePortal extracts publication records from Pure Portal listing and
// detail pages.
type PurePortal struct {
	baseURL string
	logger  *slog.Logger
}

var _ scanner.Portal = (*PurePortal)(nil)

// NewPurePortal wires the portal base URL used to absolutize relative links.
func NewPurePortal(baseURL string, log *slog.Logger) *PurePortal {
	return &PurePortal{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		logger:  log,
	}
}

// Name identifies the strategy inside the registry.
func (p *PurePortal) Name() string {
	return "pureportal"
}

// Extract parses every result container on a listing page. A malformed
// entry is skipped with a log line; a missing title alone does not discard
// an entry that still carries other fields.
func (p *PurePortal) Extract(html string, pageNumber int) ([]domain.Publication, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse listing page: %w", err)
	}

	publications := make([]domain.Publication, 0)
	containers := doc.Find(containerSelector)
	if containers.Length() == 0 {
		p.debug("no publication containers found", "page", pageNumber)
		return publications, nil
	}

	containers.Each(func(i int, container *goquery.Selection) {
		pub, ok := p.extractEntry(container, pageNumber)
		if !ok {
			p.warn("skipping malformed publication entry", "page", pageNumber, "entry", i+1)
			return
		}
		publications = append(publications, pub)
	})

	return publications, nil
}

func (p *PurePortal) extractEntry(container *goquery.Selection, pageNumber int) (domain.Publication, bool) {
	titleEl := container.Find(titleSelector).First()
	title := cleanText(titleEl.Text())

	link, _ := titleEl.Attr("href")
	link = p.absoluteURL(link)

	authors, authorLinks := p.extractAuthors(container)

	year := p.extractYear(container)

	pub := domain.Publication{
		Title:           title,
		Year:            year,
		Authors:         strings.Join(authors, ", "),
		PublicationLink: link,
		AuthorLinks:     strings.Join(authorLinks, ", "),
		PageNumber:      pageNumber,
	}

	// An entry with nothing usable at all is malformed; an empty title
	// alone is still emitted as long as other fields carry data.
	if pub.Title == "" && pub.PublicationLink == "" && pub.Authors == "" && pub.Year == 0 {
		return domain.Publication{}, false
	}

	return pub, true
}

func (p *PurePortal) extractAuthors(container *goquery.Selection) ([]string, []string) {
	var authors []string
	var authorLinks []string

	container.Find(authorSelector).Each(func(_ int, el *goquery.Selection) {
		name := cleanText(el.Text())
		if name != "" && !contains(authors, name) {
			authors = append(authors, name)
		}

		href := ""
		if goquery.NodeName(el) == "a" {
			href, _ = el.Attr("href")
		} else if nested := el.Find("a").First(); nested.Length() > 0 {
			href, _ = nested.Attr("href")
		}

		href = p.absoluteURL(href)
		if href != "" && !contains(authorLinks, href) {
			authorLinks = append(authorLinks, href)
		}
	})

	return authors, authorLinks
}

// extractYear reads the adjacent date element, falling back to a date
// pattern anywhere in the container text. Returns 0 when no plausible
// year is present.
func (p *PurePortal) extractYear(container *goquery.Selection) int {
	dateText := cleanText(container.Find(yearSelector).First().Text())
	if match := yearExpr.FindString(dateText); match != "" {
		year, _ := strconv.Atoi(match)
		return year
	}

	if match := dateYearExpr.FindStringSubmatch(container.Text()); len(match) > 1 {
		year, _ := strconv.Atoi(match[1])
		return year
	}

	return 0
}

// NextPageURL locates the "Next" pagination control. Pure Portal renders
// it as an anchor inside a nav element; a rel=next link is the fallback.
func (p *PurePortal) NextPageURL(html, currentURL string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}

	next := ""
	doc.Find("nav a").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		if !strings.Contains(a.Text(), "Next") {
			return true
		}
		if href, ok := a.Attr("href"); ok {
			next = p.absoluteURL(href)
			return false
		}
		return true
	})

	if next == "" {
		if href, ok := doc.Find(nextSelector).First().Attr("href"); ok {
			next = p.absoluteURL(href)
		}
	}

	if next == "" || next == currentURL {
		return ""
	}
	return next
}

// Validate reports whether the HTML plausibly is a publications listing:
// result containers, a pager, or an explicit no-results message.
func (p *PurePortal) Validate(html string) bool {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return false
	}

	if doc.Find(containerSelector).Length() > 0 {
		return true
	}
	if doc.Find(pagerSelector).Length() > 0 {
		return true
	}
	if strings.Contains(strings.ToLower(doc.Text()), noResultsMarker) {
		return true
	}

	return false
}

// Detail-page selectors, tried in order.
var abstractSelectors = []string{
	"div.rendering_researchoutput_abstractportal",
	"div.rendering_abstractportal",
	"div.abstract",
	"div.textblock",
}

var detailAuthorSelectors = []string{
	"div.persons a.person",
	"ul.persons li a",
	"div.contributors a",
	"div.rendering.person a",
}

// ParseDetail enriches a listing record with the abstract and the full
// author list from the publication's own page. Any failure keeps the
// base record intact.
func (p *PurePortal) ParseDetail(html string, base domain.Publication) domain.Publication {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		p.warn("parse detail page", "title", base.Title, "error", err)
		return base
	}

	enhanced := base

	for _, sel := range abstractSelectors {
		text := cleanText(doc.Find(sel).First().Text())
		if len(text) >= minAbstractLength {
			enhanced.Abstract = text
			break
		}
	}

	var authors []string
	var authorLinks []string
	for _, sel := range detailAuthorSelectors {
		doc.Find(sel).Each(func(_ int, a *goquery.Selection) {
			name := cleanText(a.Text())
			if name != "" && !contains(authors, name) {
				authors = append(authors, name)
			}
			if href, ok := a.Attr("href"); ok {
				href = p.absoluteURL(href)
				if href != "" && !contains(authorLinks, href) {
					authorLinks = append(authorLinks, href)
				}
			}
		})
		if len(authors) > 0 {
			break
		}
	}

	if len(authors) > 0 {
		enhanced.Authors = strings.Join(authors, ", ")
		enhanced.AuthorLinks = strings.Join(authorLinks, ", ")
	}

	return enhanced
}

func (p *PurePortal) absoluteURL(href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	if !strings.HasPrefix(href, "/") {
		href = "/" + href
	}
	return p.baseURL + href
}

func cleanText(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

func contains(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}

func (p *PurePortal) debug(msg string, args ...interface{}) {
	if p.logger != nil {
		p.logger.Debug(msg, args...)
	}
}

func (p *PurePortal) warn(msg string, args ...interface{}) {
	if p.logger != nil {
		p.logger.Warn(msg, args...)
	}
}
