// Copyright (C) 2020 b2kit authors.
// See LICENSE for copying information.

// Package accountinfo keeps the state a B2 client needs between API calls
// and between invocations of the program: the authorization session, the
// bucket name cache and the upload URL lease pools.
//
// Every implementation must be safe for use by multiple goroutines. The
// durable implementations are additionally safe for multiple processes
// sharing the same backing store.
package accountinfo

import (
	"context"

	"github.com/zeebo/errs"
)

var (
	// Error is the default accountinfo error class.
	Error = errs.Class("accountinfo error")

	// ErrMissingAccountData is returned by read accessors when no
	// authorization session is stored.
	ErrMissingAccountData = errs.Class("missing account data")

	// ErrInvalidAllowed is returned by SetAuthData when the allowed
	// structure is inconsistent.
	ErrInvalidAllowed = errs.Class("invalid allowed structure")
)

// UploadLease is a single-use (upload URL, auth token) pair issued by
// b2_get_upload_url or b2_get_upload_part_url. A lease is consumed by
// exactly one upload call and has to be put back into the pool if the
// call did not invalidate it.
type UploadLease struct {
	URL       string `json:"uploadUrl"`
	AuthToken string `json:"authorizationToken"`
}

// BucketEntry is a single bucket name to bucket id mapping.
type BucketEntry struct {
	Name string
	ID   string
}

// Store is a holder for all account related information that needs to be
// kept between API calls: the session obtained from b2_authorize_account,
// a cache mapping bucket names to bucket ids, a pool of upload URL leases
// per bucket and a single upload URL slot per large file.
//
// Read accessors fail with ErrMissingAccountData until SetAuthData stored
// a session, and again after Clear. Take operations report an empty pool
// through the bool result, never through the error: the error is reserved
// for backing store failures.
type Store interface {
	// SetAuthData validates the allowed structure, derives the S3 endpoint
	// when it is not supplied, and replaces the stored session wholesale.
	// It is the only write path for credentials; there is no partial update.
	SetAuthData(ctx context.Context, auth AuthData) error

	// Clear removes the session, the bucket name cache and all upload URL
	// leases, resetting the store to unauthenticated.
	Clear(ctx context.Context) error

	AccountID(ctx context.Context) (string, error)
	ApplicationKeyID(ctx context.Context) (string, error)
	ApplicationKey(ctx context.Context) (string, error)
	AccountAuthToken(ctx context.Context) (string, error)
	APIURL(ctx context.Context) (string, error)
	DownloadURL(ctx context.Context) (string, error)
	S3APIURL(ctx context.Context) (string, error)
	Realm(ctx context.Context) (string, error)
	MinimumPartSize(ctx context.Context) (int64, error)

	// Allowed never fails with ErrMissingAccountData: it returns
	// DefaultAllowed when no explicit structure was ever stored, so callers
	// can inspect restrictions without checking for a session first.
	Allowed(ctx context.Context) (Allowed, error)

	// IsSameKey reports whether the stored session was authorized with the
	// given application key id in the given realm. It is a cache-hit test:
	// a store without a session answers false rather than failing.
	IsSameKey(ctx context.Context, applicationKeyID, realm string) bool

	// RefreshBucketNameCache replaces the entire name cache with the given
	// entries. Readers observe either the old mapping or the new one,
	// never a mix.
	RefreshBucketNameCache(ctx context.Context, buckets []BucketEntry) error
	SaveBucket(ctx context.Context, bucket BucketEntry) error
	// RemoveBucketName deletes one cache entry. Removing an absent name is
	// not an error.
	RemoveBucketName(ctx context.Context, bucketName string) error
	BucketID(ctx context.Context, bucketName string) (id string, ok bool, err error)

	// PutBucketUploadURL adds a lease to the bucket's pool. The pool is
	// unordered and unbounded.
	PutBucketUploadURL(ctx context.Context, bucketID string, lease UploadLease) error
	// TakeBucketUploadURL removes and returns an arbitrary lease from the
	// bucket's pool. Exactly one concurrent caller receives any given lease.
	TakeBucketUploadURL(ctx context.Context, bucketID string) (UploadLease, bool, error)
	ClearBucketUploadURLs(ctx context.Context, bucketID string) error

	// PutLargeFileUploadURL overwrites the file's single upload URL slot.
	// The slot is last-write-wins, not a pool.
	PutLargeFileUploadURL(ctx context.Context, fileID string, lease UploadLease) error
	TakeLargeFileUploadURL(ctx context.Context, fileID string) (UploadLease, bool, error)
	ClearLargeFileUploadURLs(ctx context.Context, fileID string) error

	Close() error
}
