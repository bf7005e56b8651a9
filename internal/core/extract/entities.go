package extract

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	prose "github.com/jdkato/prose/v2"

	"enricher/internal/core/job"
)

const (
	// Entity recognition is skipped for pages with less text than this.
	minBodyText = 50
	// Cost control: only the head of very large documents is scanned.
	maxBodyText = 100_000
)

var (
	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)

	// Organization candidates: a capitalized phrase ending in a corporate
	// suffix. The prose model only labels persons and places, so company
	// names come from this pattern over the same capped text.
	orgPattern = regexp.MustCompile(`\b[A-Z][A-Za-z0-9&'.-]*(?:\s+[A-Z][A-Za-z0-9&'.-]*)*\s+(?:Inc\.?|LLC|Ltd\.?|Corp\.?|Corporation|Company|GmbH|AG|Technologies|Labs|Software|Systems|Group|Holdings)\b`)
)

// entityScan holds one page's recognition results. It is a value local to
// a single Extract call: computed at most once, dropped when the call
// returns, on every exit path. Nothing caches it across items.
type entityScan struct {
	orgs   []string
	places []string
	people []string
	emails []string // distinct, in order of first occurrence
}

// entities is layer 3: entity recognition over the body text, run only when
// the markup layers left the company name or location missing, or found no
// contacts at all.
func (s *Service) entities(doc *goquery.Document, res *Result) {
	needName := res.Name == nil
	needLocation := res.Location == nil
	needContacts := len(res.Contacts) == 0
	if !needName && !needLocation && !needContacts {
		return
	}

	text := bodyText(doc)
	if len(text) < minBodyText {
		return
	}
	text = capText(text, maxBodyText)

	scan := s.scanEntities(text)

	if needName {
		if org := firstInBand(scan.orgs); org != "" {
			res.Name = &org
		}
	}
	if needLocation {
		if place := firstInBand(scan.places); place != "" {
			res.Location = &place
		}
	}
	if needContacts {
		res.Contacts = pairContacts(scan.people, scan.emails)
	}
}

func (s *Service) scanEntities(text string) entityScan {
	scan := entityScan{emails: distinct(emailPattern.FindAllString(text, -1))}
	scan.orgs = orgPattern.FindAllString(text, -1)

	orgSet := make(map[string]struct{}, len(scan.orgs))
	for _, org := range scan.orgs {
		orgSet[strings.ToLower(org)] = struct{}{}
	}

	doc, err := prose.NewDocument(text, prose.WithSegmentation(false))
	if err != nil {
		// Degrade to the regex-derived candidates.
		s.log.LogDebugf("entity recognition failed: %v", err)
		return scan
	}
	for _, ent := range doc.Entities() {
		// A company name can get tagged as a person or place; the
		// suffix pattern is the stronger signal, so org matches never
		// double as person/place candidates.
		if _, isOrg := orgSet[strings.ToLower(ent.Text)]; isOrg {
			continue
		}
		switch ent.Label {
		case "PERSON":
			scan.people = append(scan.people, ent.Text)
		case "GPE":
			scan.places = append(scan.places, ent.Text)
		}
	}
	return scan
}

// pairContacts pairs the first K person names with the first K distinct
// emails positionally, K = min(people, emails). Names outside the plausible
// length band are skipped; the title is unknowable from free text.
func pairContacts(people, emails []string) []job.Contact {
	var names []string
	for _, p := range people {
		if inBand(p) {
			names = append(names, p)
		}
	}
	k := len(names)
	if len(emails) < k {
		k = len(emails)
	}
	var out []job.Contact
	for i := 0; i < k; i++ {
		out = append(out, job.Contact{Name: names[i], Title: "Unknown", Email: emails[i]})
	}
	return out
}

// bodyText extracts the page's visible text with whitespace collapsed.
func bodyText(doc *goquery.Document) string {
	sel := doc.Find("body")
	text := sel.Text()
	if sel.Length() == 0 {
		text = doc.Text()
	}
	return strings.Join(strings.Fields(text), " ")
}

// capText truncates on a rune boundary at or below max bytes.
func capText(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}

func firstInBand(candidates []string) string {
	for _, c := range candidates {
		if inBand(c) {
			return c
		}
	}
	return ""
}

// inBand keeps values of plausible field length (between 1 and 100
// characters, exclusive).
func inBand(s string) bool {
	n := utf8.RuneCountInString(s)
	return n > 1 && n < 100
}

func distinct(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	var out []string
	for _, v := range values {
		key := strings.ToLower(v)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, v)
	}
	return out
}
