// Copyright (C) 2020 b2kit authors.
// See LICENSE for copying information.

package testsuite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/b2kit/b2kit/accountinfo"
)

func testBucketNameCache(t *testing.T, store accountinfo.Store) {
	ctx := context.Background()
	clear(t, store)

	_, ok, err := store.BucketID(ctx, "photos")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, store.SaveBucket(ctx, accountinfo.BucketEntry{Name: "photos", ID: "bucket-1"}))
	require.NoError(t, store.SaveBucket(ctx, accountinfo.BucketEntry{Name: "backups", ID: "bucket-2"}))

	id, ok, err := store.BucketID(ctx, "photos")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "bucket-1", id)

	// Saving again overwrites.
	require.NoError(t, store.SaveBucket(ctx, accountinfo.BucketEntry{Name: "photos", ID: "bucket-3"}))

	id, ok, err = store.BucketID(ctx, "photos")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "bucket-3", id)

	require.NoError(t, store.RemoveBucketName(ctx, "photos"))

	_, ok, err = store.BucketID(ctx, "photos")
	require.NoError(t, err)
	require.False(t, ok)

	// Removing an absent name is not an error.
	require.NoError(t, store.RemoveBucketName(ctx, "never-existed"))

	id, ok, err = store.BucketID(ctx, "backups")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "bucket-2", id)
}

func testRefreshReplacesWholesale(t *testing.T, store accountinfo.Store) {
	ctx := context.Background()
	clear(t, store)

	require.NoError(t, store.SaveBucket(ctx, accountinfo.BucketEntry{Name: "stale", ID: "bucket-0"}))

	require.NoError(t, store.RefreshBucketNameCache(ctx, []accountinfo.BucketEntry{
		{Name: "photos", ID: "bucket-1"},
		{Name: "backups", ID: "bucket-2"},
	}))

	_, ok, err := store.BucketID(ctx, "stale")
	require.NoError(t, err)
	require.False(t, ok)

	id, ok, err := store.BucketID(ctx, "photos")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "bucket-1", id)

	id, ok, err = store.BucketID(ctx, "backups")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "bucket-2", id)

	// Refreshing with no entries empties the cache.
	require.NoError(t, store.RefreshBucketNameCache(ctx, nil))

	_, ok, err = store.BucketID(ctx, "photos")
	require.NoError(t, err)
	require.False(t, ok)
}
