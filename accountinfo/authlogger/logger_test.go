// Copyright (C) 2020 b2kit authors.
// See LICENSE for copying information.

package authlogger_test

import (
	"testing"

	"go.uber.org/zap"

	"github.com/b2kit/b2kit/accountinfo/authlogger"
	"github.com/b2kit/b2kit/accountinfo/memauth"
	"github.com/b2kit/b2kit/accountinfo/testsuite"
)

func TestSuite(t *testing.T) {
	store := memauth.New(zap.NewNop())
	logged := authlogger.New(zap.NewNop(), store)
	defer func() { _ = logged.Close() }()

	testsuite.RunTests(t, logged)
}
