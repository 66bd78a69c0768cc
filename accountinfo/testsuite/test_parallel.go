// Copyright (C) 2020 b2kit authors.
// See LICENSE for copying information.

package testsuite

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/zeebo/errs"

	"github.com/b2kit/b2kit/accountinfo"
	"github.com/b2kit/b2kit/internal/testcontext"
)

// testParallelTake seeds a pool with fewer leases than there are takers and
// checks that every lease is handed out exactly once: no duplicates, no
// losses.
func testParallelTake(t *testing.T, store accountinfo.Store) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()
	clear(t, store)

	const (
		leaseCount = 8
		takerCount = 12
	)

	seeded := make(map[accountinfo.UploadLease]bool, leaseCount)
	for i := 0; i < leaseCount; i++ {
		lease := accountinfo.UploadLease{
			URL:       fmt.Sprintf("https://pod%d.example/upload", i),
			AuthToken: fmt.Sprintf("upload-token-%d", i),
		}
		seeded[lease] = true
		require.NoError(t, store.PutBucketUploadURL(ctx, "bucket-1", lease))
	}

	var mu sync.Mutex
	var taken []accountinfo.UploadLease
	misses := 0

	for i := 0; i < takerCount; i++ {
		ctx.Go(func() error {
			lease, ok, err := store.TakeBucketUploadURL(ctx, "bucket-1")
			if err != nil {
				return err
			}

			mu.Lock()
			defer mu.Unlock()
			if !ok {
				misses++
				return nil
			}
			taken = append(taken, lease)
			return nil
		})
	}
	ctx.Wait()

	require.Equal(t, leaseCount, len(taken))
	require.Equal(t, takerCount-leaseCount, misses)
	for _, lease := range taken {
		require.True(t, seeded[lease], "lease %v dispensed twice or never seeded", lease)
		delete(seeded, lease)
	}
}

// testParallelSlotTake puts one value into a large file slot and checks that
// concurrent takes yield exactly one success.
func testParallelSlotTake(t *testing.T, store accountinfo.Store) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()
	clear(t, store)

	lease := accountinfo.UploadLease{URL: "https://pod0.example/part", AuthToken: "part-token"}
	require.NoError(t, store.PutLargeFileUploadURL(ctx, "file-1", lease))

	var mu sync.Mutex
	successes := 0

	for i := 0; i < 4; i++ {
		ctx.Go(func() error {
			got, ok, err := store.TakeLargeFileUploadURL(ctx, "file-1")
			if err != nil {
				return err
			}
			if !ok {
				return nil
			}
			if got != lease {
				return errs.New("took unexpected lease %v", got)
			}
			mu.Lock()
			successes++
			mu.Unlock()
			return nil
		})
	}
	ctx.Wait()

	require.Equal(t, 1, successes)
}

// testRefreshDuringLookups races full cache refreshes against lookups and
// checks that every read is consistent with one of the two mappings; the
// reader must never observe a name from one refresh paired with an id from
// the other, and never a missing name while both mappings contain it.
func testRefreshDuringLookups(t *testing.T, store accountinfo.Store) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()
	clear(t, store)

	const names = 5

	mapping := func(generation string) []accountinfo.BucketEntry {
		entries := make([]accountinfo.BucketEntry, 0, names)
		for i := 0; i < names; i++ {
			entries = append(entries, accountinfo.BucketEntry{
				Name: fmt.Sprintf("bucket-%d", i),
				ID:   fmt.Sprintf("id-%d-%s", i, generation),
			})
		}
		return entries
	}
	old, next := mapping("old"), mapping("new")

	require.NoError(t, store.RefreshBucketNameCache(ctx, old))

	ctx.Go(func() error {
		for i := 0; i < 50; i++ {
			entries := old
			if i%2 == 0 {
				entries = next
			}
			if err := store.RefreshBucketNameCache(ctx, entries); err != nil {
				return err
			}
		}
		return nil
	})

	for r := 0; r < 4; r++ {
		ctx.Go(func() error {
			for i := 0; i < 100; i++ {
				name := fmt.Sprintf("bucket-%d", i%names)
				oldID := fmt.Sprintf("id-%d-old", i%names)
				newID := fmt.Sprintf("id-%d-new", i%names)

				id, ok, err := store.BucketID(ctx, name)
				if err != nil {
					return err
				}
				if !ok {
					return errs.New("name %q missing although present in both mappings", name)
				}
				if id != oldID && id != newID {
					return errs.New("name %q resolved to %q, expected %q or %q", name, id, oldID, newID)
				}
			}
			return nil
		})
	}
	ctx.Wait()
}
