// Copyright (C) 2020 b2kit authors.
// See LICENSE for copying information.

package boltauth_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/b2kit/b2kit/accountinfo"
	"github.com/b2kit/b2kit/accountinfo/boltauth"
	"github.com/b2kit/b2kit/accountinfo/testsuite"
	"github.com/b2kit/b2kit/internal/testcontext"
)

func TestSuite(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	client, err := boltauth.New(zap.NewNop(), ctx.File("auth", "auth.db"))
	require.NoError(t, err)
	defer ctx.Check(client.Close)

	testsuite.RunTests(t, client)
}

// TestReopen verifies that a session and the lease pools survive closing and
// reopening the database file, the way separate invocations of a command
// line tool would see them.
func TestReopen(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	dbpath := ctx.File("auth", "auth.db")

	client, err := boltauth.New(zap.NewNop(), dbpath)
	require.NoError(t, err)

	auth := accountinfo.AuthData{
		AccountID:        "account-one",
		ApplicationKeyID: "key-one",
		AuthToken:        "4_token",
		APIURL:           "https://api002.backblazeb2.com",
		DownloadURL:      "https://f002.backblazeb2.com",
		Realm:            "production",
		MinimumPartSize:  5000000,
	}
	require.NoError(t, client.SetAuthData(ctx, auth))
	require.NoError(t, client.SaveBucket(ctx, accountinfo.BucketEntry{Name: "photos", ID: "bucket-1"}))

	lease := accountinfo.UploadLease{URL: "https://pod0.example/upload", AuthToken: "upload-token"}
	require.NoError(t, client.PutBucketUploadURL(ctx, "bucket-1", lease))
	require.NoError(t, client.Close())

	reopened, err := boltauth.New(zap.NewNop(), dbpath)
	require.NoError(t, err)
	defer ctx.Check(reopened.Close)

	accountID, err := reopened.AccountID(ctx)
	require.NoError(t, err)
	require.Equal(t, "account-one", accountID)

	require.True(t, reopened.IsSameKey(ctx, "key-one", "production"))

	id, ok, err := reopened.BucketID(ctx, "photos")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "bucket-1", id)

	got, ok, err := reopened.TakeBucketUploadURL(ctx, "bucket-1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, lease, got)
}
