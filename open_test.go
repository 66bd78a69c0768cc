// Copyright (C) 2020 b2kit authors.
// See LICENSE for copying information.

package b2kit_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/b2kit/b2kit"
	"github.com/b2kit/b2kit/accountinfo"
	"github.com/b2kit/b2kit/accountinfo/redisauth/redisserver"
	"github.com/b2kit/b2kit/internal/testcontext"
)

func TestOpenAccountInfo(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	auth := accountinfo.AuthData{
		AccountID: "account-one",
		APIURL:    "https://api002.backblazeb2.com",
		Realm:     "production",
	}

	t.Run("Mem", func(t *testing.T) {
		store, err := b2kit.OpenAccountInfo(zap.NewNop(), "mem://")
		require.NoError(t, err)
		defer ctx.Check(store.Close)

		require.NoError(t, store.SetAuthData(ctx, auth))

		accountID, err := store.AccountID(ctx)
		require.NoError(t, err)
		require.Equal(t, "account-one", accountID)
	})

	t.Run("Bolt", func(t *testing.T) {
		store, err := b2kit.OpenAccountInfo(zap.NewNop(), "bolt://"+ctx.File("open", "auth.db"))
		require.NoError(t, err)
		defer ctx.Check(store.Close)

		require.NoError(t, store.SetAuthData(ctx, auth))

		accountID, err := store.AccountID(ctx)
		require.NoError(t, err)
		require.Equal(t, "account-one", accountID)
	})

	t.Run("Redis", func(t *testing.T) {
		addr, cleanup, err := redisserver.Start()
		require.NoError(t, err)
		defer cleanup()

		store, err := b2kit.OpenAccountInfo(zap.NewNop(), "redis://"+addr+"?db=0")
		require.NoError(t, err)
		defer ctx.Check(store.Close)

		require.NoError(t, store.SetAuthData(ctx, auth))

		accountID, err := store.AccountID(ctx)
		require.NoError(t, err)
		require.Equal(t, "account-one", accountID)
	})

	t.Run("Unsupported", func(t *testing.T) {
		_, err := b2kit.OpenAccountInfo(zap.NewNop(), "sqlite3://auth.db")
		require.Error(t, err)

		_, err = b2kit.OpenAccountInfo(zap.NewNop(), "not-a-url")
		require.Error(t, err)
	})
}
