package outscraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadflow-cli/internal/enrich"
)

const contactsBody = `{"data":[{
	"emails":[{"value":"info@acme.com"},{"value":"sales@acme.com"}],
	"phones":[{"value":"+1 555 0100"}],
	"socials":{"facebook":"https://facebook.com/acme","linkedin":"https://linkedin.com/company/acme"}
}]}`

func TestContacts_Found(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/emails-and-contacts", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-API-KEY"))
		assert.Equal(t, "acme.com", r.URL.Query().Get("query"))
		_, _ = w.Write([]byte(contactsBody))
	}))
	defer srv.Close()

	c := NewClient("test-key", WithBaseURL(srv.URL))
	res, err := c.Contacts(context.Background(), "acme.com")
	require.NoError(t, err)

	assert.Equal(t, []string{"info@acme.com", "sales@acme.com"}, res.Emails)
	assert.Equal(t, []string{"+1 555 0100"}, res.Phones)
	assert.Equal(t, "https://facebook.com/acme", res.Facebook)
	assert.Empty(t, res.Instagram)

	f := res.Fields()
	assert.Equal(t, "info@acme.com, sales@acme.com", f["contact_emails"])
	assert.Equal(t, "https://linkedin.com/company/acme", f["linkedin_url"])
}

func TestContacts_EmptyData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer srv.Close()

	_, err := NewClient("k", WithBaseURL(srv.URL)).Contacts(context.Background(), "acme.com")
	assert.ErrorIs(t, err, enrich.ErrNotFound)
}

func TestContacts_NoUsableDetails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"emails":[],"phones":[],"socials":{}}]}`))
	}))
	defer srv.Close()

	_, err := NewClient("k", WithBaseURL(srv.URL)).Contacts(context.Background(), "acme.com")
	assert.ErrorIs(t, err, enrich.ErrNotFound)
}

func TestContacts_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewClient("k", WithBaseURL(srv.URL)).Contacts(context.Background(), "acme.com")
	require.Error(t, err)

	status, kind := enrich.Classify(err)
	assert.Equal(t, enrich.StatusTransient, status)
	assert.Equal(t, enrich.KindServerError, kind)
}
