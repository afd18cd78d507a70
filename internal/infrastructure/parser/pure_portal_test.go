package parser

import (
	"testing"

	"github.com/alekseyt9/pubcrawler/internal/domain"
)

const listingPage = `
<html><body>
<div class="result-container">
  <h3 class="title"><a href="/en/publications/deep-markets">Deep Markets and Liquidity</a></h3>
  <span class="rendering person"><a href="/en/persons/jane-doe">Doe, J.</a></span>
  <span class="rendering person"><a href="/en/persons/ken-smith">Smith, K.</a></span>
  <span class="date">11 Feb 2024</span>
</div>
<div class="result-container">
  <h3 class="title"><a href="https://example.org/pub/2">Second Paper</a></h3>
  <div class="rendering person">Brown, A.</div>
  <div class="date">2021</div>
</div>
<nav>
  <ul class="pager"><li><a href="/publications/?page=1">Next &rsaquo;</a></li></ul>
</nav>
</body></html>`

func newTestPortal() *PurePortal {
	return NewPurePortal("https://pureportal.coventry.ac.uk", nil)
}

func TestExtractListingPage(t *testing.T) {
	t.Parallel()

	portal := newTestPortal()
	pubs, err := portal.Extract(listingPage, 3)
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}

	if len(pubs) != 2 {
		t.Fatalf("expected 2 publications, got %d", len(pubs))
	}

	first := pubs[0]
	if first.Title != "Deep Markets and Liquidity" {
		t.Fatalf("unexpected title: %q", first.Title)
	}
	if first.Year != 2024 {
		t.Fatalf("unexpected year: %d", first.Year)
	}
	if first.Authors != "Doe, J., Smith, K." {
		t.Fatalf("unexpected authors: %q", first.Authors)
	}
	if first.PublicationLink != "https://pureportal.coventry.ac.uk/en/publications/deep-markets" {
		t.Fatalf("relative link not absolutized: %q", first.PublicationLink)
	}
	if first.AuthorLinks != "https://pureportal.coventry.ac.uk/en/persons/jane-doe, https://pureportal.coventry.ac.uk/en/persons/ken-smith" {
		t.Fatalf("unexpected author links: %q", first.AuthorLinks)
	}

	for _, pub := range pubs {
		if pub.PageNumber != 3 {
			t.Fatalf("expected page number 3, got %d", pub.PageNumber)
		}
	}

	second := pubs[1]
	if second.PublicationLink != "https://example.org/pub/2" {
		t.Fatalf("absolute link rewritten: %q", second.PublicationLink)
	}
	if second.Year != 2021 {
		t.Fatalf("unexpected year for second entry: %d", second.Year)
	}
}

func TestExtractEmptyPage(t *testing.T) {
	t.Parallel()

	portal := newTestPortal()
	pubs, err := portal.Extract("<html><body><p>nothing here</p></body></html>", 0)
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	if len(pubs) != 0 {
		t.Fatalf("expected no publications, got %d", len(pubs))
	}
}

func TestExtractNonNumericDate(t *testing.T) {
	t.Parallel()

	html := `
	<div class="result-container">
	  <h3 class="title"><a href="/en/publications/x">Dateless Paper</a></h3>
	  <span class="date">forthcoming</span>
	</div>`

	portal := newTestPortal()
	pubs, err := portal.Extract(html, 1)
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	if len(pubs) != 1 {
		t.Fatalf("expected 1 publication, got %d", len(pubs))
	}
	if pubs[0].Year != 0 {
		t.Fatalf("expected absent year, got %d", pubs[0].Year)
	}
}

func TestExtractMissingTitleStillEmitted(t *testing.T) {
	t.Parallel()

	html := `
	<div class="result-container">
	  <span class="rendering person">Doe, J.</span>
	  <span class="date">2020</span>
	</div>`

	portal := newTestPortal()
	pubs, err := portal.Extract(html, 0)
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	if len(pubs) != 1 {
		t.Fatalf("expected 1 publication, got %d", len(pubs))
	}
	if pubs[0].Title != "" {
		t.Fatalf("expected empty title, got %q", pubs[0].Title)
	}
	if pubs[0].Authors != "Doe, J." {
		t.Fatalf("unexpected authors: %q", pubs[0].Authors)
	}
}

func TestNextPageURL(t *testing.T) {
	t.Parallel()

	portal := newTestPortal()
	current := "https://pureportal.coventry.ac.uk/publications/?page=0"

	next := portal.NextPageURL(listingPage, current)
	if next != "https://pureportal.coventry.ac.uk/publications/?page=1" {
		t.Fatalf("unexpected next page url: %q", next)
	}
}

func TestNextPageURLAbsent(t *testing.T) {
	t.Parallel()

	html := `<html><body>
	<div class="result-container"><h3 class="title"><a href="/p">Last</a></h3></div>
	<nav><ul class="pager"><li class="current">2</li></ul></nav>
	</body></html>`

	portal := newTestPortal()
	if next := portal.NextPageURL(html, "https://pureportal.coventry.ac.uk/publications/?page=2"); next != "" {
		t.Fatalf("expected no next page, got %q", next)
	}
}

func TestNextPageURLRelNextFallback(t *testing.T) {
	t.Parallel()

	html := `<html><body><a rel="next" href="/publications/?page=5">more</a></body></html>`

	portal := newTestPortal()
	next := portal.NextPageURL(html, "https://pureportal.coventry.ac.uk/publications/?page=4")
	if next != "https://pureportal.coventry.ac.uk/publications/?page=5" {
		t.Fatalf("unexpected next page url: %q", next)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	portal := newTestPortal()

	if !portal.Validate(listingPage) {
		t.Fatal("listing page should validate")
	}
	if !portal.Validate(`<html><body><p>No results found for your search.</p></body></html>`) {
		t.Fatal("no-results page should validate")
	}
	if portal.Validate(`<html><body><h1>502 Bad Gateway</h1></body></html>`) {
		t.Fatal("error page should not validate")
	}
}

func TestParseDetail(t *testing.T) {
	t.Parallel()

	html := `
	<html><body>
	<div class="rendering_researchoutput_abstractportal">
	  This study examines the relationship between market depth and liquidity
	  provision across European exchanges over the period 2010 to 2020, using
	  high-frequency order book data and a panel regression design.
	</div>
	<div class="persons">
	  <a class="person" href="/en/persons/jane-doe">Doe, Jane</a>
	  <a class="person" href="/en/persons/ken-smith">Smith, Ken</a>
	</div>
	</body></html>`

	base := domain.Publication{Title: "Deep Markets and Liquidity", Authors: "Doe, J.", PageNumber: 3}

	portal := newTestPortal()
	enhanced := portal.ParseDetail(html, base)

	if enhanced.Abstract == "" {
		t.Fatal("expected abstract to be extracted")
	}
	if enhanced.Authors != "Doe, Jane, Smith, Ken" {
		t.Fatalf("unexpected detailed authors: %q", enhanced.Authors)
	}
	if enhanced.Title != base.Title || enhanced.PageNumber != base.PageNumber {
		t.Fatal("base fields must be preserved")
	}
}

func TestParseDetailKeepsBaseOnEmptyPage(t *testing.T) {
	t.Parallel()

	base := domain.Publication{Title: "T", Authors: "A"}
	portal := newTestPortal()

	enhanced := portal.ParseDetail("<html><body></body></html>", base)
	if enhanced != base {
		t.Fatalf("expected base record back, got %+v", enhanced)
	}
}
