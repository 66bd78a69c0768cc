// Copyright (C) 2020 b2kit authors.
// See LICENSE for copying information.

package accountinfo_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/b2kit/b2kit/accountinfo"
)

func stringPtr(s string) *string { return &s }

func TestAllowedValid(t *testing.T) {
	tests := []struct {
		name    string
		allowed accountinfo.Allowed
		valid   bool
	}{
		{
			name:    "no restrictions",
			allowed: accountinfo.Allowed{Capabilities: []string{}},
			valid:   true,
		},
		{
			name: "id without name",
			allowed: accountinfo.Allowed{
				BucketID:     stringPtr("5"),
				Capabilities: []string{},
			},
			valid: true,
		},
		{
			name: "id and name",
			allowed: accountinfo.Allowed{
				BucketID:     stringPtr("5"),
				BucketName:   stringPtr("x"),
				Capabilities: []string{},
			},
			valid: true,
		},
		{
			name: "name without id",
			allowed: accountinfo.Allowed{
				BucketName:   stringPtr("x"),
				Capabilities: []string{},
			},
			valid: false,
		},
		{
			name: "missing capabilities",
			allowed: accountinfo.Allowed{
				BucketID: stringPtr("5"),
			},
			valid: false,
		},
		{
			name:    "empty structure",
			allowed: accountinfo.Allowed{},
			valid:   false,
		},
		{
			name: "prefix only",
			allowed: accountinfo.Allowed{
				Capabilities: []string{"readFiles"},
				NamePrefix:   stringPtr("photos/"),
			},
			valid: true,
		},
	}

	for _, test := range tests {
		require.Equal(t, test.valid, test.allowed.Valid(), test.name)
	}
}

func TestDefaultAllowed(t *testing.T) {
	allowed := accountinfo.DefaultAllowed()
	require.True(t, allowed.Valid())
	require.Nil(t, allowed.BucketID)
	require.Nil(t, allowed.BucketName)
	require.Nil(t, allowed.NamePrefix)
	require.Equal(t, accountinfo.AllCapabilities(), allowed.Capabilities)
}

func TestNormalizeAuthData(t *testing.T) {
	auth := accountinfo.AuthData{
		AccountID: "account-one",
		APIURL:    "https://api002.backblazeb2.com",
	}

	normalized, err := accountinfo.NormalizeAuthData(auth)
	require.NoError(t, err)
	require.Equal(t, "https://s3.us-west-002.backblazeb2.com", normalized.S3APIURL)

	// An explicit endpoint is kept as is.
	auth.S3APIURL = "https://s3.example.test"
	normalized, err = accountinfo.NormalizeAuthData(auth)
	require.NoError(t, err)
	require.Equal(t, "https://s3.example.test", normalized.S3APIURL)

	// An unknown subdomain leaves the endpoint empty.
	auth.S3APIURL = ""
	auth.APIURL = "https://api.backblazeb2.com"
	normalized, err = accountinfo.NormalizeAuthData(auth)
	require.NoError(t, err)
	require.Equal(t, "", normalized.S3APIURL)

	// A nil allowed structure is accepted; it means legacy defaults.
	require.Nil(t, normalized.Allowed)

	auth.Allowed = &accountinfo.Allowed{BucketName: stringPtr("x"), Capabilities: []string{}}
	_, err = accountinfo.NormalizeAuthData(auth)
	require.Error(t, err)
	require.True(t, accountinfo.ErrInvalidAllowed.Has(err))

	auth.Allowed = &accountinfo.Allowed{BucketID: stringPtr("5")}
	_, err = accountinfo.NormalizeAuthData(auth)
	require.Error(t, err)
	require.True(t, accountinfo.ErrInvalidAllowed.Has(err))
}

func TestRealmURL(t *testing.T) {
	baseURL, ok := accountinfo.RealmURL("production")
	require.True(t, ok)
	require.Equal(t, "https://api.backblazeb2.com", baseURL)

	_, ok = accountinfo.RealmURL("nonexistent")
	require.False(t, ok)
}
