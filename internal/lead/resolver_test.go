package lead

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolver_AliasPriority(t *testing.T) {
	r := DefaultResolver()

	rec := NewRecord()
	rec.Set("website", "https://fallback.com")
	rec.Set("companyWebsite", "https://primary.com")

	v, ok := r.Resolve(rec, AttrWebsite)
	assert.True(t, ok)
	assert.Equal(t, "https://primary.com", v)
}

func TestResolver_SkipsEmptyValues(t *testing.T) {
	r := DefaultResolver()

	rec := NewRecord()
	rec.Set("companyWebsite", "   ")
	rec.Set("domain", "acme.com")

	v, ok := r.Resolve(rec, AttrWebsite)
	assert.True(t, ok)
	assert.Equal(t, "acme.com", v)
}

func TestResolver_TitleCaseAliases(t *testing.T) {
	r := DefaultResolver()

	rec := NewRecord()
	rec.Set("Company Website", "https://apollo-export.com")
	rec.Set("First Name", "Jordan")

	v, ok := r.Resolve(rec, AttrWebsite)
	assert.True(t, ok)
	assert.Equal(t, "https://apollo-export.com", v)

	v, ok = r.Resolve(rec, AttrFirstName)
	assert.True(t, ok)
	assert.Equal(t, "Jordan", v)
}

func TestResolver_NoMatch(t *testing.T) {
	r := DefaultResolver()

	rec := NewRecord()
	rec.Set("unrelated", "value")

	_, ok := r.Resolve(rec, AttrWebsite)
	assert.False(t, ok)
}

func TestResolver_WithAliases(t *testing.T) {
	r := DefaultResolver().WithAliases(AttrWebsite, "url")

	rec := NewRecord()
	rec.Set("companyWebsite", "https://ignored.com")
	rec.Set("url", "https://custom.com")

	v, ok := r.Resolve(rec, AttrWebsite)
	assert.True(t, ok)
	assert.Equal(t, "https://custom.com", v)
}

func TestResolver_Website(t *testing.T) {
	r := DefaultResolver()

	rec := NewRecord()
	rec.Set("domain", "acme.com")

	v, ok := r.Website(rec)
	assert.True(t, ok)
	assert.Equal(t, "https://acme.com", v)
}

func TestResolver_Domain(t *testing.T) {
	r := DefaultResolver()

	rec := NewRecord()
	rec.Set("companyWebsite", "http://www.Acme.com/contact?ref=ad")

	v, ok := r.Domain(rec)
	assert.True(t, ok)
	assert.Equal(t, "acme.com", v)
}
