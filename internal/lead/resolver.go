package lead

import "strings"

// Resolver extracts canonical values from records whose schema is unknown
// ahead of time. Each logical attribute carries an explicit priority list of
// alias keys; the first present non-empty value wins.
type Resolver struct {
	aliases map[string][]string
}

// Canonical attribute names understood by the default resolver.
const (
	AttrWebsite   = "website"
	AttrFirstName = "first_name"
	AttrLastName  = "last_name"
	AttrEmail     = "email"
	AttrCompany   = "company_name"
)

// DefaultResolver returns a resolver loaded with the alias lists observed
// across the upstream lead producers.
func DefaultResolver() *Resolver {
	return &Resolver{aliases: map[string][]string{
		AttrWebsite: {
			"companyWebsite", "company_website", "website",
			"companyDomain", "company_domain", "domain",
			"Company Website", "Company Domain",
		},
		AttrFirstName: {"firstName", "first_name", "personFirstName", "First Name"},
		AttrLastName:  {"lastName", "last_name", "personLastName", "Last Name"},
		AttrEmail:     {"email", "personEmail", "person_email", "Email"},
		AttrCompany:   {"companyName", "company_name", "Company Name", "name"},
	}}
}

// WithAliases overrides or adds the alias list for an attribute.
func (r *Resolver) WithAliases(attr string, keys ...string) *Resolver {
	r.aliases[attr] = keys
	return r
}

// Resolve returns the first present non-empty value (after trimming) for the
// attribute's alias list. The second return is false when no alias resolves.
func (r *Resolver) Resolve(rec *Record, attr string) (string, bool) {
	return ResolveKeys(rec, r.aliases[attr]...)
}

// ResolveKeys tries each candidate key in priority order.
func ResolveKeys(rec *Record, keys ...string) (string, bool) {
	for _, k := range keys {
		if v, ok := rec.Get(k); ok {
			if v = strings.TrimSpace(v); v != "" {
				return v, true
			}
		}
	}
	return "", false
}

// Website resolves and normalizes the record's website URL.
func (r *Resolver) Website(rec *Record) (string, bool) {
	raw, ok := r.Resolve(rec, AttrWebsite)
	if !ok {
		return "", false
	}
	u := NormalizeURL(raw)
	return u, u != ""
}

// Domain resolves the record's website and reduces it to a bare domain.
func (r *Resolver) Domain(rec *Record) (string, bool) {
	raw, ok := r.Resolve(rec, AttrWebsite)
	if !ok {
		return "", false
	}
	d := NormalizeDomain(raw)
	return d, d != ""
}
