// Copyright (C) 2020 b2kit authors.
// See LICENSE for copying information.

// Package memauth implements an in-memory account info store. It is the
// reference implementation of the contract and is only safe within a single
// process; use the bolt or redis store to share state between processes.
package memauth

import (
	"context"
	"sync"

	"go.uber.org/zap"
	monkit "gopkg.in/spacemonkeygo/monkit.v2"

	"github.com/b2kit/b2kit/accountinfo"
)

var mon = monkit.Package()

// Store implements accountinfo.Store using plain maps behind one mutex.
type Store struct {
	log *zap.Logger

	mu          sync.Mutex
	auth        *accountinfo.AuthData
	bucketNames map[string]string
	bucketPools map[string][]accountinfo.UploadLease
	largeFiles  map[string]accountinfo.UploadLease
}

// New creates an empty in-memory store.
func New(log *zap.Logger) *Store {
	return &Store{
		log:         log,
		bucketNames: make(map[string]string),
		bucketPools: make(map[string][]accountinfo.UploadLease),
		largeFiles:  make(map[string]accountinfo.UploadLease),
	}
}

// SetAuthData replaces the stored session wholesale.
func (store *Store) SetAuthData(ctx context.Context, auth accountinfo.AuthData) (err error) {
	defer mon.Task()(&ctx)(&err)

	auth, err = accountinfo.NormalizeAuthData(auth)
	if err != nil {
		return err
	}

	store.mu.Lock()
	defer store.mu.Unlock()
	store.auth = &auth
	return nil
}

// Clear removes the session, the bucket name cache and all leases.
func (store *Store) Clear(ctx context.Context) (err error) {
	defer mon.Task()(&ctx)(&err)

	store.log.Debug("Resetting account info")
	store.mu.Lock()
	defer store.mu.Unlock()
	store.auth = nil
	store.bucketNames = make(map[string]string)
	store.bucketPools = make(map[string][]accountinfo.UploadLease)
	store.largeFiles = make(map[string]accountinfo.UploadLease)
	return nil
}

func (store *Store) session() (accountinfo.AuthData, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	if store.auth == nil {
		return accountinfo.AuthData{}, accountinfo.ErrMissingAccountData.New("no session stored")
	}
	return *store.auth, nil
}

// AccountID returns the authorized account id.
func (store *Store) AccountID(ctx context.Context) (string, error) {
	auth, err := store.session()
	return auth.AccountID, err
}

// ApplicationKeyID returns the key id used to authorize.
func (store *Store) ApplicationKeyID(ctx context.Context) (string, error) {
	auth, err := store.session()
	return auth.ApplicationKeyID, err
}

// ApplicationKey returns the application key used to authorize.
func (store *Store) ApplicationKey(ctx context.Context) (string, error) {
	auth, err := store.session()
	return auth.ApplicationKey, err
}

// AccountAuthToken returns the account authorization token.
func (store *Store) AccountAuthToken(ctx context.Context) (string, error) {
	auth, err := store.session()
	return auth.AuthToken, err
}

// APIURL returns the base API endpoint.
func (store *Store) APIURL(ctx context.Context) (string, error) {
	auth, err := store.session()
	return auth.APIURL, err
}

// DownloadURL returns the base download endpoint.
func (store *Store) DownloadURL(ctx context.Context) (string, error) {
	auth, err := store.session()
	return auth.DownloadURL, err
}

// S3APIURL returns the S3-compatible endpoint, possibly derived.
func (store *Store) S3APIURL(ctx context.Context) (string, error) {
	auth, err := store.session()
	return auth.S3APIURL, err
}

// Realm returns the realm the session was authorized in.
func (store *Store) Realm(ctx context.Context) (string, error) {
	auth, err := store.session()
	return auth.Realm, err
}

// MinimumPartSize returns the smallest allowed part of a large file.
func (store *Store) MinimumPartSize(ctx context.Context) (int64, error) {
	auth, err := store.session()
	return auth.MinimumPartSize, err
}

// Allowed returns the stored key restrictions, or the default structure
// when none were stored explicitly.
func (store *Store) Allowed(ctx context.Context) (accountinfo.Allowed, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	if store.auth == nil || store.auth.Allowed == nil {
		return accountinfo.DefaultAllowed(), nil
	}
	return *store.auth.Allowed, nil
}

// IsSameKey reports whether the stored session matches the key id and realm.
func (store *Store) IsSameKey(ctx context.Context, applicationKeyID, realm string) bool {
	auth, err := store.session()
	if err != nil {
		return false
	}
	return auth.ApplicationKeyID == applicationKeyID && auth.Realm == realm
}

// RefreshBucketNameCache replaces the entire name cache.
func (store *Store) RefreshBucketNameCache(ctx context.Context, buckets []accountinfo.BucketEntry) (err error) {
	defer mon.Task()(&ctx)(&err)

	// Build the replacement before taking the lock so readers switch from
	// the old mapping to the new one in a single step.
	next := make(map[string]string, len(buckets))
	for _, bucket := range buckets {
		next[bucket.Name] = bucket.ID
	}

	store.mu.Lock()
	store.bucketNames = next
	store.mu.Unlock()
	return nil
}

// SaveBucket upserts one name to id mapping.
func (store *Store) SaveBucket(ctx context.Context, bucket accountinfo.BucketEntry) (err error) {
	defer mon.Task()(&ctx)(&err)

	store.mu.Lock()
	store.bucketNames[bucket.Name] = bucket.ID
	store.mu.Unlock()
	return nil
}

// RemoveBucketName deletes one mapping, ignoring absent names.
func (store *Store) RemoveBucketName(ctx context.Context, bucketName string) (err error) {
	defer mon.Task()(&ctx)(&err)

	store.mu.Lock()
	delete(store.bucketNames, bucketName)
	store.mu.Unlock()
	return nil
}

// BucketID looks up the id cached for the given bucket name.
func (store *Store) BucketID(ctx context.Context, bucketName string) (string, bool, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	id, ok := store.bucketNames[bucketName]
	return id, ok, nil
}

// PutBucketUploadURL adds a lease to the bucket's pool.
func (store *Store) PutBucketUploadURL(ctx context.Context, bucketID string, lease accountinfo.UploadLease) (err error) {
	defer mon.Task()(&ctx)(&err)

	store.mu.Lock()
	store.bucketPools[bucketID] = append(store.bucketPools[bucketID], lease)
	store.mu.Unlock()
	return nil
}

// TakeBucketUploadURL removes and returns one lease from the bucket's pool.
func (store *Store) TakeBucketUploadURL(ctx context.Context, bucketID string) (_ accountinfo.UploadLease, _ bool, err error) {
	defer mon.Task()(&ctx)(&err)

	store.mu.Lock()
	defer store.mu.Unlock()

	pool := store.bucketPools[bucketID]
	if len(pool) == 0 {
		return accountinfo.UploadLease{}, false, nil
	}

	lease := pool[len(pool)-1]
	store.bucketPools[bucketID] = pool[:len(pool)-1]
	return lease, true, nil
}

// ClearBucketUploadURLs drops the bucket's entire pool.
func (store *Store) ClearBucketUploadURLs(ctx context.Context, bucketID string) (err error) {
	defer mon.Task()(&ctx)(&err)

	store.mu.Lock()
	delete(store.bucketPools, bucketID)
	store.mu.Unlock()
	return nil
}

// PutLargeFileUploadURL overwrites the file's single upload URL slot.
func (store *Store) PutLargeFileUploadURL(ctx context.Context, fileID string, lease accountinfo.UploadLease) (err error) {
	defer mon.Task()(&ctx)(&err)

	store.mu.Lock()
	store.largeFiles[fileID] = lease
	store.mu.Unlock()
	return nil
}

// TakeLargeFileUploadURL removes and returns the file's slot value.
func (store *Store) TakeLargeFileUploadURL(ctx context.Context, fileID string) (_ accountinfo.UploadLease, _ bool, err error) {
	defer mon.Task()(&ctx)(&err)

	store.mu.Lock()
	defer store.mu.Unlock()

	lease, ok := store.largeFiles[fileID]
	if !ok {
		return accountinfo.UploadLease{}, false, nil
	}
	delete(store.largeFiles, fileID)
	return lease, true, nil
}

// ClearLargeFileUploadURLs clears the file's slot.
func (store *Store) ClearLargeFileUploadURLs(ctx context.Context, fileID string) (err error) {
	defer mon.Task()(&ctx)(&err)

	store.mu.Lock()
	delete(store.largeFiles, fileID)
	store.mu.Unlock()
	return nil
}

// Close matches the accountinfo.Store interface.
func (store *Store) Close() error { return nil }
