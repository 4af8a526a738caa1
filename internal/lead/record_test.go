package lead

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecord_SetGet(t *testing.T) {
	rec := NewRecord()
	rec.Set("companyName", "Acme Plumbing")
	rec.Set("website", "https://acme.com")

	v, ok := rec.Get("companyName")
	assert.True(t, ok)
	assert.Equal(t, "Acme Plumbing", v)

	_, ok = rec.Get("missing")
	assert.False(t, ok)

	// Overwrite keeps the column position.
	rec.Set("companyName", "Acme HVAC")
	assert.Equal(t, []string{"companyName", "website"}, rec.Keys())
	v, _ = rec.Get("companyName")
	assert.Equal(t, "Acme HVAC", v)
}

func TestRecord_UnmarshalPreservesOrder(t *testing.T) {
	raw := `{"zeta":"1","alpha":"2","mid":"3"}`
	var rec Record
	require.NoError(t, json.Unmarshal([]byte(raw), &rec))
	assert.Equal(t, []string{"zeta", "alpha", "mid"}, rec.Keys())
}

func TestRecord_UnmarshalScalars(t *testing.T) {
	raw := `{"name":"Acme","employees":42,"active":true,"notes":null,"meta":{"a":1}}`
	var rec Record
	require.NoError(t, json.Unmarshal([]byte(raw), &rec))

	v, _ := rec.Get("employees")
	assert.Equal(t, "42", v)
	v, _ = rec.Get("active")
	assert.Equal(t, "true", v)
	v, _ = rec.Get("notes")
	assert.Equal(t, "", v)
	v, _ = rec.Get("meta")
	assert.JSONEq(t, `{"a":1}`, v)
}

func TestRecord_UnmarshalRejectsNonObject(t *testing.T) {
	var rec Record
	assert.Error(t, json.Unmarshal([]byte(`[1,2]`), &rec))
}

func TestRecord_MarshalRoundTrip(t *testing.T) {
	var rec Record
	require.NoError(t, json.Unmarshal([]byte(`{"b":"2","a":"1"}`), &rec))
	rec.Set("c", "3")

	out, err := json.Marshal(&rec)
	require.NoError(t, err)
	assert.Equal(t, `{"b":"2","a":"1","c":"3"}`, string(out))
}

func TestRecord_Clone(t *testing.T) {
	rec := NewRecord()
	rec.Set("a", "1")

	c := rec.Clone()
	c.Set("a", "changed")
	c.Set("b", "2")

	v, _ := rec.Get("a")
	assert.Equal(t, "1", v)
	assert.Equal(t, 1, rec.Len())
	assert.Equal(t, 2, c.Len())
}
