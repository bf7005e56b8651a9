// Package extract runs the three-layer waterfall over one fetched page:
// structured selectors, then fallback selectors for whatever is still
// missing, then entity recognition over the body text. Extraction is total:
// parse failures degrade to empty fields, never to an error.
package extract

import (
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"enricher/internal/core/job"
	"enricher/internal/logger"
)

// A fallback candidate longer than this after trimming is considered junk
// (a selector that matched a content block rather than a field).
const maxFallbackLen = 500

// Result is the union of all layers, earlier layers taking precedence.
type Result struct {
	job.Company
	Contacts []job.Contact
}

type Service struct {
	rules RuleSet
	log   *logger.Logger
}

func NewService(rules RuleSet) *Service {
	return &Service{rules: rules, log: logger.New("Extractor")}
}

// Extract runs the waterfall over raw markup. It never returns an error;
// any internal failure leaves the affected fields nil.
func (s *Service) Extract(rawHTML string) Result {
	var res Result
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		s.log.LogDebugf("parse failed, skipping extraction: %v", err)
		return res
	}
	s.structured(doc, &res)
	s.fallback(doc, &res)
	s.entities(doc, &res)
	return res
}

// structured is layer 1: the primary selector per field plus contact cards.
func (s *Service) structured(doc *goquery.Document, res *Result) {
	for field, rule := range s.rules.Primary {
		if v := applyRule(doc, rule); v != "" {
			setField(&res.Company, field, v)
		}
	}

	cr := s.rules.Contacts
	doc.Find(cr.Container).Each(func(_ int, card *goquery.Selection) {
		name := strings.TrimSpace(card.Find(cr.Name).First().Text())
		title := strings.TrimSpace(card.Find(cr.Title).First().Text())
		email := strings.TrimSpace(card.Find(cr.Email).First().Text())
		if email == "" {
			if href, ok := card.Find(`a[href^="mailto:"]`).First().Attr("href"); ok {
				email = strings.TrimPrefix(href, "mailto:")
			}
		}
		// All-or-nothing: a card missing any sub-field is dropped entirely.
		if name == "" || title == "" || email == "" {
			return
		}
		res.Contacts = append(res.Contacts, job.Contact{Name: name, Title: title, Email: email})
	})
}

// fallback is layer 2: ordered alternatives for each field still missing.
// The first non-empty candidate under the length cap wins; later rules in
// the list are not tried once one succeeds.
func (s *Service) fallback(doc *goquery.Document, res *Result) {
	for field, rules := range s.rules.Fallbacks {
		if getField(&res.Company, field) != nil {
			continue
		}
		for _, rule := range rules {
			v := applyRule(doc, rule)
			if v != "" && utf8.RuneCountInString(v) < maxFallbackLen {
				setField(&res.Company, field, v)
				break
			}
		}
	}
}

func applyRule(doc *goquery.Document, r Rule) string {
	sel := doc.Find(r.Selector).First()
	switch r.Kind {
	case KindAttr:
		v, _ := sel.Attr(r.Attr)
		return strings.TrimSpace(v)
	case KindHref:
		v, _ := sel.Attr("href")
		return strings.TrimSpace(v)
	default:
		return strings.TrimSpace(sel.Text())
	}
}

func setField(c *job.Company, f Field, v string) {
	val := v
	switch f {
	case FieldCompanyName:
		c.Name = &val
	case FieldWebsite:
		c.Website = &val
	case FieldIndustry:
		c.Industry = &val
	case FieldHeadcount:
		c.Headcount = &val
	case FieldLocation:
		c.Location = &val
	}
}

func getField(c *job.Company, f Field) *string {
	switch f {
	case FieldCompanyName:
		return c.Name
	case FieldWebsite:
		return c.Website
	case FieldIndustry:
		return c.Industry
	case FieldHeadcount:
		return c.Headcount
	case FieldLocation:
		return c.Location
	}
	return nil
}
