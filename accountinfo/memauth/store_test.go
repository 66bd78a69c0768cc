// Copyright (C) 2020 b2kit authors.
// See LICENSE for copying information.

package memauth_test

import (
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/b2kit/b2kit/accountinfo/memauth"
	"github.com/b2kit/b2kit/accountinfo/testsuite"
)

func TestSuite(t *testing.T) {
	store := memauth.New(zaptest.NewLogger(t))
	defer func() { _ = store.Close() }()

	testsuite.RunTests(t, store)
}
