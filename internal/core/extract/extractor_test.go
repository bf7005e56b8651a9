package extract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strptr(t *testing.T, s *string) string {
	t.Helper()
	require.NotNil(t, s)
	return *s
}

func TestExtract_StructuredOnly(t *testing.T) {
	// A page with only the primary company-name selector: every other
	// field stays nil (body text is too short for entity recognition).
	html := `<html><body><h1 class="company-name">Acme Corp</h1></body></html>`
	res := NewService(DefaultRules()).Extract(html)

	assert.Equal(t, "Acme Corp", strptr(t, res.Name))
	assert.Nil(t, res.Website)
	assert.Nil(t, res.Industry)
	assert.Nil(t, res.Headcount)
	assert.Nil(t, res.Location)
	assert.Empty(t, res.Contacts)
}

func TestExtract_StructuredFields(t *testing.T) {
	html := `<html><body>
		<h1 class="company-name">Initech</h1>
		<a class="company-website" href="https://initech.example">site</a>
		<div class="company-industry">Software</div>
		<div class="company-size">51-200</div>
		<div class="company-location">Austin, TX</div>
	</body></html>`
	res := NewService(DefaultRules()).Extract(html)

	assert.Equal(t, "Initech", strptr(t, res.Name))
	assert.Equal(t, "https://initech.example", strptr(t, res.Website))
	assert.Equal(t, "Software", strptr(t, res.Industry))
	assert.Equal(t, "51-200", strptr(t, res.Headcount))
	assert.Equal(t, "Austin, TX", strptr(t, res.Location))
}

func TestExtract_Layer1TakesPrecedence(t *testing.T) {
	html := `<html><head>
		<meta property="og:site_name" content="Fallback Name">
		<title>Title Name</title>
	</head><body><h1 class="company-name">Primary Name</h1></body></html>`
	res := NewService(DefaultRules()).Extract(html)

	assert.Equal(t, "Primary Name", strptr(t, res.Name))
}

func TestExtract_FallbackFillsMissing(t *testing.T) {
	html := `<html><head>
		<meta property="og:site_name" content="Hooli">
		<link rel="canonical" href="https://hooli.example/about">
		<meta name="industry" content="Search">
	</head><body><p>About us page.</p></body></html>`
	res := NewService(DefaultRules()).Extract(html)

	assert.Equal(t, "Hooli", strptr(t, res.Name))
	assert.Equal(t, "https://hooli.example/about", strptr(t, res.Website))
	assert.Equal(t, "Search", strptr(t, res.Industry))
}

func TestExtract_FallbackSkipsOversizedCandidate(t *testing.T) {
	// og:site_name is junk (an entire paragraph); the next rule wins.
	junk := strings.Repeat("x", 600)
	html := `<html><head>
		<meta property="og:site_name" content="` + junk + `">
		<meta name="application-name" content="Pied Piper">
	</head><body></body></html>`
	res := NewService(DefaultRules()).Extract(html)

	assert.Equal(t, "Pied Piper", strptr(t, res.Name))
}

func TestExtract_FallbackLengthCapCountsRunes(t *testing.T) {
	// 200 characters of 3-byte runes: well under the cap even though the
	// byte length exceeds it.
	name := strings.Repeat("社", 200)
	html := `<html><head>
		<meta property="og:site_name" content="` + name + `">
	</head><body></body></html>`
	res := NewService(DefaultRules()).Extract(html)

	assert.Equal(t, name, strptr(t, res.Name))
}

func TestExtract_FallbackFirstWinnerStops(t *testing.T) {
	html := `<html><head>
		<meta property="og:site_name" content="First">
		<meta name="application-name" content="Second">
	</head><body></body></html>`
	res := NewService(DefaultRules()).Extract(html)

	assert.Equal(t, "First", strptr(t, res.Name))
}

func TestExtract_ContactsAllOrNothing(t *testing.T) {
	html := `<html><body><h1 class="company-name">Acme Corp</h1>
		<div class="team-member">
			<span class="name">Jane Doe</span>
			<span class="title">CEO</span>
			<span class="email">jane@acme.com</span>
		</div>
		<div class="team-member">
			<span class="name">No Email</span>
			<span class="title">CTO</span>
		</div>
	</body></html>`
	res := NewService(DefaultRules()).Extract(html)

	require.Len(t, res.Contacts, 1)
	assert.Equal(t, "Jane Doe", res.Contacts[0].Name)
	assert.Equal(t, "CEO", res.Contacts[0].Title)
	assert.Equal(t, "jane@acme.com", res.Contacts[0].Email)
}

func TestExtract_ContactEmailFromMailtoLink(t *testing.T) {
	html := `<html><body>
		<div class="contact-card">
			<span class="name">Bob Roe</span>
			<span class="role">Sales</span>
			<a href="mailto:bob@acme.com">email me</a>
		</div>
	</body></html>`
	res := NewService(DefaultRules()).Extract(html)

	require.Len(t, res.Contacts, 1)
	assert.Equal(t, "bob@acme.com", res.Contacts[0].Email)
}

func TestExtract_EntityRecognitionFallback(t *testing.T) {
	// Unstructured page: name, location and a contact recovered from text.
	html := `<html><body><p>
		Acme Corp is a leading software maker headquartered in San Francisco.
		Jane Doe founded the business in 2011. Reach her at jane@acme.com for
		partnership enquiries.
	</p></body></html>`
	res := NewService(DefaultRules()).Extract(html)

	assert.Equal(t, "Acme Corp", strptr(t, res.Name))
	assert.Equal(t, "San Francisco", strptr(t, res.Location))
	require.Len(t, res.Contacts, 1)
	assert.Equal(t, "Jane Doe", res.Contacts[0].Name)
	assert.Equal(t, "Unknown", res.Contacts[0].Title)
	assert.Equal(t, "jane@acme.com", res.Contacts[0].Email)
}

func TestExtract_EntityLayerSkippedWhenNothingMissing(t *testing.T) {
	html := `<html><body>
		<h1 class="company-name">Acme Corp</h1>
		<div class="company-location">Austin</div>
		<div class="team-member">
			<span class="name">Jane Doe</span>
			<span class="title">CEO</span>
			<span class="email">jane@acme.com</span>
		</div>
		<p>Completely different text mentioning Globex Corporation in London,
		with John Smith reachable at john@globex.example for sales.</p>
	</body></html>`
	res := NewService(DefaultRules()).Extract(html)

	assert.Equal(t, "Acme Corp", strptr(t, res.Name))
	assert.Equal(t, "Austin", strptr(t, res.Location))
	require.Len(t, res.Contacts, 1)
	assert.Equal(t, "jane@acme.com", res.Contacts[0].Email)
}

func TestExtract_ShortBodySkipsEntityLayer(t *testing.T) {
	html := `<html><body><p>Acme Corp.</p></body></html>`
	res := NewService(DefaultRules()).Extract(html)

	assert.Nil(t, res.Name)
	assert.Empty(t, res.Contacts)
}

func TestExtract_MalformedMarkupDegradesToEmpty(t *testing.T) {
	res := NewService(DefaultRules()).Extract("<<<%%% not html at all")
	assert.Nil(t, res.Name)
	assert.Nil(t, res.Website)
	assert.Empty(t, res.Contacts)
}

func TestPairContacts(t *testing.T) {
	contacts := pairContacts(
		[]string{"Jane Doe", "John Smith", "Ada Lovelace"},
		[]string{"jane@a.com", "john@a.com"},
	)
	require.Len(t, contacts, 2)
	assert.Equal(t, "Jane Doe", contacts[0].Name)
	assert.Equal(t, "jane@a.com", contacts[0].Email)
	assert.Equal(t, "John Smith", contacts[1].Name)
	for _, c := range contacts {
		assert.Equal(t, "Unknown", c.Title)
	}
}

func TestPairContacts_SkipsOutOfBandNames(t *testing.T) {
	long := strings.Repeat("A", 120)
	contacts := pairContacts([]string{long, "Jane Doe"}, []string{"jane@a.com"})
	require.Len(t, contacts, 1)
	assert.Equal(t, "Jane Doe", contacts[0].Name)
}

func TestDistinctEmails(t *testing.T) {
	out := distinct([]string{"a@x.com", "A@X.com", "b@x.com", "a@x.com"})
	assert.Equal(t, []string{"a@x.com", "b@x.com"}, out)
}

func TestCapText_RuneBoundary(t *testing.T) {
	s := strings.Repeat("é", 10) // 2 bytes each
	capped := capText(s, 5)
	assert.True(t, len(capped) <= 5)
	assert.Equal(t, strings.Repeat("é", 2), capped)
}
