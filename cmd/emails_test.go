package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadflow-cli/internal/lead"
)

func TestEmailKeyRoundTrip(t *testing.T) {
	key := emailKey("Jordan", "Lee", "acme.com")
	first, last, domain, err := splitEmailKey(key)
	require.NoError(t, err)
	assert.Equal(t, "Jordan", first)
	assert.Equal(t, "Lee", last)
	assert.Equal(t, "acme.com", domain)

	_, _, _, err = splitEmailKey("malformed")
	assert.Error(t, err)
}

func TestPartitionForEmail(t *testing.T) {
	hasEmail := lead.NewRecord()
	hasEmail.Set("firstName", "Sam")
	hasEmail.Set("lastName", "Reed")
	hasEmail.Set("companyWebsite", "https://reed.com")
	hasEmail.Set("email", "sam@reed.com")

	eligible := lead.NewRecord()
	eligible.Set("firstName", "Jordan")
	eligible.Set("lastName", "Lee")
	eligible.Set("companyWebsite", "https://www.acme.com/about")

	missingName := lead.NewRecord()
	missingName.Set("companyWebsite", "https://nobody.com")

	missingDomain := lead.NewRecord()
	missingDomain.Set("firstName", "Pat")
	missingDomain.Set("lastName", "Kim")

	records := []*lead.Record{hasEmail, eligible, missingName, missingDomain}
	part, skipped := partitionForEmail(records, lead.DefaultResolver())

	assert.Equal(t, 1, skipped)
	tag, _ := hasEmail.Get("email_status")
	assert.Equal(t, "skipped_existing", tag)

	require.Len(t, part.Items, 1)
	assert.Equal(t, 1, part.Items[0].Index)
	assert.Equal(t, emailKey("Jordan", "Lee", "acme.com"), part.Items[0].Key)

	assert.Equal(t, []int{2, 3}, part.Ineligible)
}
