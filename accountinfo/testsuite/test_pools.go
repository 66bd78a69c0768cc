// Copyright (C) 2020 b2kit authors.
// See LICENSE for copying information.

package testsuite

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/b2kit/b2kit/accountinfo"
)

func testUploadURLPool(t *testing.T, store accountinfo.Store) {
	ctx := context.Background()
	clear(t, store)

	// Empty pool and unknown bucket both report "none available".
	_, ok, err := store.TakeBucketUploadURL(ctx, "bucket-1")
	require.NoError(t, err)
	require.False(t, ok)

	leases := make(map[accountinfo.UploadLease]bool)
	for i := 0; i < 3; i++ {
		lease := accountinfo.UploadLease{
			URL:       fmt.Sprintf("https://pod%d.example/upload", i),
			AuthToken: fmt.Sprintf("upload-token-%d", i),
		}
		leases[lease] = true
		require.NoError(t, store.PutBucketUploadURL(ctx, "bucket-1", lease))
	}
	other := accountinfo.UploadLease{URL: "https://pod9.example/upload", AuthToken: "other-token"}
	require.NoError(t, store.PutBucketUploadURL(ctx, "bucket-2", other))

	// Leases are fungible: takes return the pool's members in any order,
	// each exactly once.
	for i := 0; i < 3; i++ {
		lease, ok, err := store.TakeBucketUploadURL(ctx, "bucket-1")
		require.NoError(t, err)
		require.True(t, ok)
		require.True(t, leases[lease], "lease %v was not put or was handed out twice", lease)
		delete(leases, lease)
	}

	_, ok, err = store.TakeBucketUploadURL(ctx, "bucket-1")
	require.NoError(t, err)
	require.False(t, ok)

	// Pools are per bucket.
	lease, ok, err := store.TakeBucketUploadURL(ctx, "bucket-2")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, other, lease)

	// A returned lease can be put back and taken again.
	require.NoError(t, store.PutBucketUploadURL(ctx, "bucket-2", lease))
	require.NoError(t, store.ClearBucketUploadURLs(ctx, "bucket-2"))

	_, ok, err = store.TakeBucketUploadURL(ctx, "bucket-2")
	require.NoError(t, err)
	require.False(t, ok)
}

func testLargeFileSlot(t *testing.T, store accountinfo.Store) {
	ctx := context.Background()
	clear(t, store)

	_, ok, err := store.TakeLargeFileUploadURL(ctx, "file-1")
	require.NoError(t, err)
	require.False(t, ok)

	first := accountinfo.UploadLease{URL: "https://pod0.example/part", AuthToken: "part-token-0"}
	second := accountinfo.UploadLease{URL: "https://pod1.example/part", AuthToken: "part-token-1"}

	// The slot holds at most one value; a later put overwrites an earlier
	// one instead of pooling them.
	require.NoError(t, store.PutLargeFileUploadURL(ctx, "file-1", first))
	require.NoError(t, store.PutLargeFileUploadURL(ctx, "file-1", second))

	lease, ok, err := store.TakeLargeFileUploadURL(ctx, "file-1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, second, lease)

	_, ok, err = store.TakeLargeFileUploadURL(ctx, "file-1")
	require.NoError(t, err)
	require.False(t, ok)

	// Slots are per file.
	require.NoError(t, store.PutLargeFileUploadURL(ctx, "file-1", first))
	require.NoError(t, store.PutLargeFileUploadURL(ctx, "file-2", second))
	require.NoError(t, store.ClearLargeFileUploadURLs(ctx, "file-1"))

	_, ok, err = store.TakeLargeFileUploadURL(ctx, "file-1")
	require.NoError(t, err)
	require.False(t, ok)

	lease, ok, err = store.TakeLargeFileUploadURL(ctx, "file-2")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, second, lease)
}
