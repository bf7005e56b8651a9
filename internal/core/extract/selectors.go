package extract

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Field names one extractable company attribute.
type Field string

const (
	FieldCompanyName Field = "company_name"
	FieldWebsite     Field = "website"
	FieldIndustry    Field = "industry"
	FieldHeadcount   Field = "headcount"
	FieldLocation    Field = "location"
)

// Kind tells the extractor how to pull a value out of a matched node.
type Kind string

const (
	KindText Kind = "text" // trimmed node text
	KindAttr Kind = "attr" // named attribute, for meta tags
	KindHref Kind = "href" // href attribute, for links and canonical tags
)

// Rule is one declarative selector probe.
type Rule struct {
	Selector string `yaml:"selector"`
	Kind     Kind   `yaml:"kind"`
	Attr     string `yaml:"attr,omitempty"`
}

// ContactRule locates repeated contact cards and their sub-fields.
type ContactRule struct {
	Container string `yaml:"container"`
	Name      string `yaml:"name"`
	Title     string `yaml:"title"`
	Email     string `yaml:"email"`
}

// RuleSet is the full extraction table: one primary rule per field plus
// ordered fallback lists tried only for fields the primary missed.
type RuleSet struct {
	Primary   map[Field]Rule   `yaml:"primary"`
	Fallbacks map[Field][]Rule `yaml:"fallbacks"`
	Contacts  ContactRule      `yaml:"contacts"`
}

// DefaultRules is the compiled-in table, aimed at the markup conventions of
// typical company sites.
func DefaultRules() RuleSet {
	return RuleSet{
		Primary: map[Field]Rule{
			FieldCompanyName: {Selector: "h1.company-name", Kind: KindText},
			FieldWebsite:     {Selector: "a.company-website", Kind: KindHref},
			FieldIndustry:    {Selector: ".company-industry", Kind: KindText},
			FieldHeadcount:   {Selector: ".company-size", Kind: KindText},
			FieldLocation:    {Selector: ".company-location", Kind: KindText},
		},
		Fallbacks: map[Field][]Rule{
			FieldCompanyName: {
				{Selector: `meta[property="og:site_name"]`, Kind: KindAttr, Attr: "content"},
				{Selector: `meta[name="application-name"]`, Kind: KindAttr, Attr: "content"},
				{Selector: ".site-title", Kind: KindText},
				{Selector: "title", Kind: KindText},
			},
			FieldWebsite: {
				{Selector: `link[rel="canonical"]`, Kind: KindHref},
				{Selector: `meta[property="og:url"]`, Kind: KindAttr, Attr: "content"},
			},
			FieldIndustry: {
				{Selector: `meta[name="industry"]`, Kind: KindAttr, Attr: "content"},
				{Selector: ".industry", Kind: KindText},
			},
			FieldHeadcount: {
				{Selector: `meta[name="company-size"]`, Kind: KindAttr, Attr: "content"},
				{Selector: ".employee-count", Kind: KindText},
				{Selector: ".employees", Kind: KindText},
			},
			FieldLocation: {
				{Selector: `meta[name="geo.placename"]`, Kind: KindAttr, Attr: "content"},
				{Selector: ".address", Kind: KindText},
				{Selector: "address", Kind: KindText},
			},
		},
		Contacts: ContactRule{
			Container: ".team-member, .contact-card",
			Name:      ".name",
			Title:     ".title, .role",
			Email:     ".email",
		},
	}
}

// LoadRules reads a YAML rule file. Sections left empty in the file fall
// back to the defaults, so a file can override just one field's probes.
func LoadRules(path string) (RuleSet, error) {
	rs := DefaultRules()
	b, err := os.ReadFile(path)
	if err != nil {
		return rs, fmt.Errorf("read rules: %w", err)
	}
	var file RuleSet
	if err := yaml.Unmarshal(b, &file); err != nil {
		return rs, fmt.Errorf("parse rules: %w", err)
	}
	for f, r := range file.Primary {
		rs.Primary[f] = r
	}
	for f, rules := range file.Fallbacks {
		rs.Fallbacks[f] = rules
	}
	if file.Contacts.Container != "" {
		rs.Contacts = file.Contacts
	}
	return rs, nil
}
