// Copyright (C) 2020 b2kit authors.
// See LICENSE for copying information.

// Package testsuite runs the accountinfo.Store contract tests against a
// concrete implementation.
package testsuite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/b2kit/b2kit/accountinfo"
)

// RunTests runs common accountinfo.Store tests. The store is cleared at the
// start of every subtest, so a single instance can be reused.
func RunTests(t *testing.T, store accountinfo.Store) {
	t.Run("MissingAccountData", func(t *testing.T) { testMissingAccountData(t, store) })
	t.Run("AuthRoundTrip", func(t *testing.T) { testAuthRoundTrip(t, store) })
	t.Run("ExplicitAllowed", func(t *testing.T) { testExplicitAllowed(t, store) })
	t.Run("DefaultAllowed", func(t *testing.T) { testDefaultAllowed(t, store) })
	t.Run("AllowedValidation", func(t *testing.T) { testAllowedValidation(t, store) })
	t.Run("IsSameKey", func(t *testing.T) { testIsSameKey(t, store) })

	t.Run("BucketNameCache", func(t *testing.T) { testBucketNameCache(t, store) })
	t.Run("RefreshReplacesWholesale", func(t *testing.T) { testRefreshReplacesWholesale(t, store) })

	t.Run("UploadURLPool", func(t *testing.T) { testUploadURLPool(t, store) })
	t.Run("LargeFileSlot", func(t *testing.T) { testLargeFileSlot(t, store) })
	t.Run("Clear", func(t *testing.T) { testClear(t, store) })

	t.Run("ParallelTake", func(t *testing.T) { testParallelTake(t, store) })
	t.Run("ParallelSlotTake", func(t *testing.T) { testParallelSlotTake(t, store) })
	t.Run("RefreshDuringLookups", func(t *testing.T) { testRefreshDuringLookups(t, store) })
}

func clear(t *testing.T, store accountinfo.Store) {
	t.Helper()
	require.NoError(t, store.Clear(context.Background()))
}

func stringPtr(s string) *string { return &s }

// testAuth returns a session as b2_authorize_account would produce it,
// without an S3 endpoint so that stores exercise the derivation path.
func testAuth() accountinfo.AuthData {
	return accountinfo.AuthData{
		AccountID:        "account-one",
		ApplicationKeyID: "key-one",
		ApplicationKey:   "app-key-secret",
		AuthToken:        "4_token",
		APIURL:           "https://api002.backblazeb2.com",
		DownloadURL:      "https://f002.backblazeb2.com",
		Realm:            "production",
		MinimumPartSize:  5000000,
	}
}

func testMissingAccountData(t *testing.T, store accountinfo.Store) {
	ctx := context.Background()
	clear(t, store)

	accessors := []struct {
		name string
		call func() error
	}{
		{"AccountID", func() error { _, err := store.AccountID(ctx); return err }},
		{"ApplicationKeyID", func() error { _, err := store.ApplicationKeyID(ctx); return err }},
		{"ApplicationKey", func() error { _, err := store.ApplicationKey(ctx); return err }},
		{"AccountAuthToken", func() error { _, err := store.AccountAuthToken(ctx); return err }},
		{"APIURL", func() error { _, err := store.APIURL(ctx); return err }},
		{"DownloadURL", func() error { _, err := store.DownloadURL(ctx); return err }},
		{"S3APIURL", func() error { _, err := store.S3APIURL(ctx); return err }},
		{"Realm", func() error { _, err := store.Realm(ctx); return err }},
		{"MinimumPartSize", func() error { _, err := store.MinimumPartSize(ctx); return err }},
	}

	for _, accessor := range accessors {
		err := accessor.call()
		require.Error(t, err, accessor.name)
		require.True(t, accountinfo.ErrMissingAccountData.Has(err), accessor.name)
	}
}

func testAuthRoundTrip(t *testing.T, store accountinfo.Store) {
	ctx := context.Background()
	clear(t, store)

	auth := testAuth()
	require.NoError(t, store.SetAuthData(ctx, auth))

	accountID, err := store.AccountID(ctx)
	require.NoError(t, err)
	require.Equal(t, auth.AccountID, accountID)

	keyID, err := store.ApplicationKeyID(ctx)
	require.NoError(t, err)
	require.Equal(t, auth.ApplicationKeyID, keyID)

	key, err := store.ApplicationKey(ctx)
	require.NoError(t, err)
	require.Equal(t, auth.ApplicationKey, key)

	token, err := store.AccountAuthToken(ctx)
	require.NoError(t, err)
	require.Equal(t, auth.AuthToken, token)

	apiURL, err := store.APIURL(ctx)
	require.NoError(t, err)
	require.Equal(t, auth.APIURL, apiURL)

	downloadURL, err := store.DownloadURL(ctx)
	require.NoError(t, err)
	require.Equal(t, auth.DownloadURL, downloadURL)

	realm, err := store.Realm(ctx)
	require.NoError(t, err)
	require.Equal(t, auth.Realm, realm)

	partSize, err := store.MinimumPartSize(ctx)
	require.NoError(t, err)
	require.Equal(t, auth.MinimumPartSize, partSize)

	// api002 is a known subdomain, so the S3 endpoint gets derived.
	s3URL, err := store.S3APIURL(ctx)
	require.NoError(t, err)
	require.Equal(t, "https://s3.us-west-002.backblazeb2.com", s3URL)

	// An explicitly supplied endpoint wins over derivation.
	auth.S3APIURL = "https://s3.example.test"
	require.NoError(t, store.SetAuthData(ctx, auth))

	s3URL, err = store.S3APIURL(ctx)
	require.NoError(t, err)
	require.Equal(t, "https://s3.example.test", s3URL)
}

func testExplicitAllowed(t *testing.T, store accountinfo.Store) {
	ctx := context.Background()
	clear(t, store)

	auth := testAuth()
	auth.Allowed = &accountinfo.Allowed{
		BucketID:     stringPtr("bucket-5"),
		BucketName:   stringPtr("five"),
		Capabilities: []string{"readFiles", "writeFiles"},
		NamePrefix:   stringPtr("photos/"),
	}
	require.NoError(t, store.SetAuthData(ctx, auth))

	allowed, err := store.Allowed(ctx)
	require.NoError(t, err)
	require.Equal(t, *auth.Allowed, allowed)
}

func testDefaultAllowed(t *testing.T, store accountinfo.Store) {
	ctx := context.Background()
	clear(t, store)

	// Allowed is readable even without a session.
	allowed, err := store.Allowed(ctx)
	require.NoError(t, err)
	require.Equal(t, accountinfo.DefaultAllowed(), allowed)

	// A session stored without explicit restrictions reads back the default.
	require.NoError(t, store.SetAuthData(ctx, testAuth()))

	allowed, err = store.Allowed(ctx)
	require.NoError(t, err)
	require.Equal(t, accountinfo.DefaultAllowed(), allowed)
	require.Nil(t, allowed.BucketID)
	require.Nil(t, allowed.BucketName)
	require.Nil(t, allowed.NamePrefix)
	require.Equal(t, accountinfo.AllCapabilities(), allowed.Capabilities)
}

func testAllowedValidation(t *testing.T, store accountinfo.Store) {
	ctx := context.Background()
	clear(t, store)

	// A name-restricted key must resolve to a concrete bucket.
	auth := testAuth()
	auth.Allowed = &accountinfo.Allowed{
		BucketName:   stringPtr("orphan"),
		Capabilities: []string{},
	}
	err := store.SetAuthData(ctx, auth)
	require.Error(t, err)
	require.True(t, accountinfo.ErrInvalidAllowed.Has(err))

	auth.Allowed = &accountinfo.Allowed{
		BucketID: stringPtr("bucket-5"),
	}
	err = store.SetAuthData(ctx, auth)
	require.Error(t, err)
	require.True(t, accountinfo.ErrInvalidAllowed.Has(err))

	// The rejected session must not have become visible.
	_, err = store.AccountID(ctx)
	require.True(t, accountinfo.ErrMissingAccountData.Has(err))

	// Id without name is fine; the name may be unresolvable.
	auth.Allowed = &accountinfo.Allowed{
		BucketID:     stringPtr("bucket-5"),
		Capabilities: []string{},
	}
	require.NoError(t, store.SetAuthData(ctx, auth))
}

func testIsSameKey(t *testing.T, store accountinfo.Store) {
	ctx := context.Background()
	clear(t, store)

	require.False(t, store.IsSameKey(ctx, "key-one", "production"))

	require.NoError(t, store.SetAuthData(ctx, testAuth()))

	require.True(t, store.IsSameKey(ctx, "key-one", "production"))
	require.False(t, store.IsSameKey(ctx, "key-two", "production"))
	require.False(t, store.IsSameKey(ctx, "key-one", "staging"))
}

func testClear(t *testing.T, store accountinfo.Store) {
	ctx := context.Background()
	clear(t, store)

	require.NoError(t, store.SetAuthData(ctx, testAuth()))
	require.NoError(t, store.SaveBucket(ctx, accountinfo.BucketEntry{Name: "photos", ID: "bucket-1"}))
	require.NoError(t, store.PutBucketUploadURL(ctx, "bucket-1", accountinfo.UploadLease{URL: "https://pod.example/u", AuthToken: "t"}))
	require.NoError(t, store.PutLargeFileUploadURL(ctx, "file-1", accountinfo.UploadLease{URL: "https://pod.example/p", AuthToken: "t"}))

	require.NoError(t, store.Clear(ctx))

	_, err := store.AccountID(ctx)
	require.True(t, accountinfo.ErrMissingAccountData.Has(err))

	_, ok, err := store.BucketID(ctx, "photos")
	require.NoError(t, err)
	require.False(t, ok)

	_, ok, err = store.TakeBucketUploadURL(ctx, "bucket-1")
	require.NoError(t, err)
	require.False(t, ok)

	_, ok, err = store.TakeLargeFileUploadURL(ctx, "file-1")
	require.NoError(t, err)
	require.False(t, ok)
}
