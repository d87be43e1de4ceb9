package extractor

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"

	"github.com/rekat/price-server/fetcher"
	"github.com/rekat/price-server/models"
	"github.com/rekat/price-server/target"
)

var (
	errMissingTitle = errors.New("card has no title")

	anchorSel = cascadia.MustCompile("a[href]")
)

// Structured scrapes product cards out of an HTML search page.
// Selectors are compiled once; the value is safe for concurrent use.
type Structured struct {
	origin *url.URL
	rate   float64

	card   cascadia.Selector
	title  cascadia.Selector
	image  cascadia.Selector
	price  cascadia.Selector
	brands cascadia.Selector
	models cascadia.Selector
}

// NewStructured compiles the card selectors of t.
func NewStructured(t target.Target) (*Structured, error) {
	origin, err := url.Parse(t.Origin)
	if err != nil {
		return nil, fmt.Errorf("extractor: parse origin %q: %w", t.Origin, err)
	}

	s := &Structured{origin: origin, rate: t.Rate}
	fields := []struct {
		dst      *cascadia.Selector
		selector string
		required bool
	}{
		{&s.card, t.Selectors.Card, true},
		{&s.title, t.Selectors.Title, true},
		{&s.image, t.Selectors.Image, false},
		{&s.price, t.Selectors.Price, false},
		{&s.brands, t.Selectors.Brands, false},
		{&s.models, t.Selectors.Models, false},
	}
	for _, f := range fields {
		if f.selector == "" {
			if f.required {
				return nil, fmt.Errorf("extractor: target %q is missing a required selector", t.Name)
			}
			continue
		}
		sel, err := cascadia.Compile(f.selector)
		if err != nil {
			return nil, fmt.Errorf("extractor: compile selector %q: %w", f.selector, err)
		}
		*f.dst = sel
	}
	return s, nil
}

func (s *Structured) Mode() target.Mode { return target.ModeStructured }

// Extract parses raw into product records, in document order.
//
// A card that fails to parse is logged and skipped. When no cards are
// found, or none survive, the "Start searching" envelope is returned.
func (s *Structured) Extract(raw *fetcher.RawResponse) (models.Result, error) {
	if raw.StatusCode != http.StatusOK {
		return nil, models.NewUpstreamError(raw.StatusCode)
	}

	root, err := html.Parse(strings.NewReader(raw.Body))
	if err != nil {
		return nil, models.NewPriceError(models.ErrCodeInternal, "failed to parse upstream markup", err)
	}
	cards := goquery.NewDocumentFromNode(root).FindMatcher(s.card)
	if cards.Length() == 0 {
		return models.NoResults(), nil
	}

	records := make([]models.ProductRecord, 0, cards.Length())
	skipped := 0
	cards.Each(func(i int, card *goquery.Selection) {
		rec, err := s.parseCard(card)
		if err != nil {
			skipped++
			slog.Warn("skipping product card", "index", i, "error", err)
			return
		}
		records = append(records, rec)
	})

	if len(records) == 0 {
		env := models.NoResults()
		env.Skipped = skipped
		return env, nil
	}

	env := models.NewResultEnvelope(records)
	env.Skipped = skipped
	return env, nil
}

// parseCard extracts one record. It never panics; a panic inside the
// DOM walk is returned as an error.
func (s *Structured) parseCard(card *goquery.Selection) (rec models.ProductRecord, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("parse card: %v", r)
		}
	}()

	heading := card.FindMatcher(s.title).First()
	rec.Title = collapseSpace(heading.Text())
	if rec.Title == "" {
		return models.ProductRecord{}, errMissingTitle
	}

	if href, ok := linkOf(heading); ok {
		abs, err := s.resolve(href)
		if err != nil {
			return models.ProductRecord{}, fmt.Errorf("card %q: bad link %q: %w", rec.Title, href, err)
		}
		rec.SourceURL = abs
	}

	if s.image != nil {
		rec.ImageURL = s.imageOf(card.FindMatcher(s.image).First())
	}
	if s.brands != nil {
		rec.Brands = collapseSpace(card.FindMatcher(s.brands).First().Text())
	}
	if s.models != nil {
		rec.Models = collapseSpace(card.FindMatcher(s.models).First().Text())
	}

	p := loginToView
	if s.price != nil {
		if el := card.FindMatcher(s.price).First(); el.Length() > 0 {
			p = parsePrice(el.Text(), s.rate)
		}
	}
	rec.PriceUSD, rec.PriceEUR, rec.DisplayPrice = p.USD, p.EUR, p.Display

	return rec, nil
}

// linkOf returns the detail-page href of a card heading: the heading
// itself when it is a link, else the first link inside it.
func linkOf(heading *goquery.Selection) (string, bool) {
	a := heading
	if goquery.NodeName(heading) != "a" {
		a = heading.FindMatcher(anchorSel).First()
	}
	href, ok := a.Attr("href")
	href = strings.TrimSpace(href)
	return href, ok && href != ""
}

// imageOf prefers the lazy-load data-src over src. A reference that
// cannot be resolved is dropped rather than failing the card.
func (s *Structured) imageOf(img *goquery.Selection) string {
	src := strings.TrimSpace(img.AttrOr("data-src", ""))
	if src == "" {
		src = strings.TrimSpace(img.AttrOr("src", ""))
	}
	if src == "" || strings.HasPrefix(src, "data:") {
		return ""
	}
	abs, err := s.resolve(src)
	if err != nil {
		return ""
	}
	return abs
}

// resolve makes ref absolute against the target origin.
func (s *Structured) resolve(ref string) (string, error) {
	u, err := s.origin.Parse(ref)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
