// Copyright (C) 2020 b2kit authors.
// See LICENSE for copying information.

// Package b2kit is a client library for the Backblaze B2 cloud storage
// service. This package wires together the concrete implementations; the
// contracts live in the subpackages.
package b2kit

import (
	"strings"

	"github.com/zeebo/errs"
	"go.uber.org/zap"

	"github.com/b2kit/b2kit/accountinfo"
	"github.com/b2kit/b2kit/accountinfo/boltauth"
	"github.com/b2kit/b2kit/accountinfo/memauth"
	"github.com/b2kit/b2kit/accountinfo/redisauth"
)

// Error is the default b2kit error class.
var Error = errs.Class("b2kit error")

// OpenAccountInfo returns an account info store backed by the location the
// URL describes:
//
//	mem://                    process-local memory
//	bolt://<filepath>         BoltDB file, shareable between processes
//	redis://<host:port>?db=0  redis database, shareable between processes
func OpenAccountInfo(log *zap.Logger, storeURL string) (accountinfo.Store, error) {
	driver, source, err := splitConnstr(storeURL)
	if err != nil {
		return nil, err
	}

	switch driver {
	case "mem":
		return memauth.New(log), nil
	case "bolt":
		return boltauth.New(log, source)
	case "redis":
		return redisauth.NewFrom(log, storeURL)
	default:
		return nil, Error.New("unsupported account info scheme: %q", driver)
	}
}

func splitConnstr(s string) (driver string, source string, err error) {
	parts := strings.SplitN(s, "://", 2)
	if len(parts) != 2 {
		return "", "", Error.New("could not parse DB URL %q", s)
	}
	return parts[0], parts[1], nil
}
