package authn_test

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
)

func tokenFromLink(t *testing.T, link string) string {
	t.Helper()

	u, err := url.Parse(link)
	require.NoError(t, err)

	// the reset route lives behind the hash fragment
	q, err := url.ParseQuery(u.RawQuery)
	if err != nil || q.Get("token") == "" {
		frag, ferr := url.Parse(u.Fragment)
		require.NoError(t, ferr)
		q = frag.Query()
	}

	token := q.Get("token")
	require.NotEmpty(t, token)
	return token
}
