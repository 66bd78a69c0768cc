// Copyright (C) 2020 b2kit authors.
// See LICENSE for copying information.

package redisauth_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/b2kit/b2kit/accountinfo"
	"github.com/b2kit/b2kit/accountinfo/redisauth"
	"github.com/b2kit/b2kit/accountinfo/redisauth/redisserver"
	"github.com/b2kit/b2kit/accountinfo/testsuite"
	"github.com/b2kit/b2kit/internal/testcontext"
)

func TestSuite(t *testing.T) {
	addr, cleanup, err := redisserver.Start()
	require.NoError(t, err)
	defer cleanup()

	client, err := redisauth.New(zap.NewNop(), addr, "", 0)
	require.NoError(t, err)
	defer func() { _ = client.Close() }()

	testsuite.RunTests(t, client)
}

// TestSharedClients verifies that two clients connected to the same database
// observe each other's writes and cannot take the same lease twice. This is
// the single-server stand-in for multiple processes sharing the store.
func TestSharedClients(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	addr, cleanup, err := redisserver.Start()
	require.NoError(t, err)
	defer cleanup()

	writer, err := redisauth.New(zap.NewNop(), addr, "", 0)
	require.NoError(t, err)
	defer func() { _ = writer.Close() }()

	reader, err := redisauth.New(zap.NewNop(), addr, "", 0)
	require.NoError(t, err)
	defer func() { _ = reader.Close() }()

	auth := accountinfo.AuthData{
		AccountID:        "account-one",
		ApplicationKeyID: "key-one",
		AuthToken:        "4_token",
		APIURL:           "https://api002.backblazeb2.com",
		Realm:            "production",
	}
	require.NoError(t, writer.SetAuthData(ctx, auth))

	accountID, err := reader.AccountID(ctx)
	require.NoError(t, err)
	require.Equal(t, "account-one", accountID)

	lease := accountinfo.UploadLease{URL: "https://pod0.example/upload", AuthToken: "upload-token"}
	require.NoError(t, writer.PutBucketUploadURL(ctx, "bucket-1", lease))

	got, ok, err := reader.TakeBucketUploadURL(ctx, "bucket-1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, lease, got)

	// The lease was consumed through the other client.
	_, ok, err = writer.TakeBucketUploadURL(ctx, "bucket-1")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestNewFrom(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	addr, cleanup, err := redisserver.Start()
	require.NoError(t, err)
	defer cleanup()

	client, err := redisauth.NewFrom(zap.NewNop(), "redis://"+addr+"?db=1")
	require.NoError(t, err)
	defer func() { _ = client.Close() }()

	require.NoError(t, client.Clear(ctx))
	require.False(t, client.IsSameKey(ctx, "key-one", "production"))

	_, err = redisauth.NewFrom(zap.NewNop(), "http://"+addr)
	require.Error(t, err)

	_, err = redisauth.NewFrom(zap.NewNop(), "redis://"+addr+"?db=notanumber")
	require.Error(t, err)
}
