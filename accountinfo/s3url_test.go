// Copyright (C) 2020 b2kit authors.
// See LICENSE for copying information.

package accountinfo_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/b2kit/b2kit/accountinfo"
)

func TestDeriveS3APIURL(t *testing.T) {
	tests := []struct {
		apiURL string
		s3URL  string
	}{
		{"https://api000.backblazeb2.com", "https://s3.us-west-000.backblazeb2.com"},
		{"https://api001.backblazeb2.com", "https://s3.us-west-001.backblazeb2.com"},
		{"https://api002.backblazeb2.com/path", "https://s3.us-west-002.backblazeb2.com/path"},
		{"https://api003.backblazeb2.com", "https://s3.eu-central-003.backblazeb2.com"},
		{"https://api002.backblazeb2.com/path?x=1#frag", "https://s3.us-west-002.backblazeb2.com/path?x=1#frag"},
		{"http://api001.backblazeb2.xyz:8180", "http://s3.us-west-001.backblazeb2.xyz:8180"},

		// unknown subdomains cannot be derived, and no guess is made
		{"https://api.backblazeb2.com", ""},
		{"https://api999.backblazeb2.com", ""},
		{"https://localhost", ""},
	}

	for _, test := range tests {
		s3URL, err := accountinfo.DeriveS3APIURL(test.apiURL)
		require.NoError(t, err, test.apiURL)
		require.Equal(t, test.s3URL, s3URL, test.apiURL)
	}

	_, err := accountinfo.DeriveS3APIURL("://missing-scheme")
	require.Error(t, err)
}
