package lead

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeURL(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"acme.com", "https://acme.com"},
		{"http://acme.com", "https://acme.com"},
		{"https://acme.com/", "https://acme.com"},
		{"  www.acme.com  ", "https://www.acme.com"},
		{"https://acme.com/contact/", "https://acme.com/contact"},
		{"", ""},
		{"   ", ""},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, NormalizeURL(c.in), "input %q", c.in)
	}
}

func TestNormalizeDomain(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"acme.com", "acme.com"},
		{"https://www.Acme.com", "acme.com"},
		{"http://acme.com/contact?ref=ad", "acme.com"},
		{"WWW.ACME.COM/", "acme.com"},
		{"https://sub.acme.co.uk/path#frag", "sub.acme.co.uk"},
		{"acme.com.", "acme.com"},
		{"", ""},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, NormalizeDomain(c.in), "input %q", c.in)
	}
}
