// Copyright (C) 2020 b2kit authors.
// See LICENSE for copying information.

// Package authlogger wraps an account info store with debug logging. Auth
// tokens and upload URLs are credentials, so only their lengths are logged.
package authlogger

import (
	"context"
	"strconv"
	"sync/atomic"

	"go.uber.org/zap"
	monkit "gopkg.in/spacemonkeygo/monkit.v2"

	"github.com/b2kit/b2kit/accountinfo"
)

var mon = monkit.Package()

var id int64

// Logger implements logging for an accountinfo.Store.
type Logger struct {
	log   *zap.Logger
	store accountinfo.Store
}

// New creates a new Logger with log and store.
func New(log *zap.Logger, store accountinfo.Store) *Logger {
	loggerid := atomic.AddInt64(&id, 1)
	name := strconv.Itoa(int(loggerid))
	return &Logger{log.Named(name), store}
}

// SetAuthData stores a new session.
func (logger *Logger) SetAuthData(ctx context.Context, auth accountinfo.AuthData) (err error) {
	defer mon.Task()(&ctx)(&err)
	logger.log.Debug("SetAuthData",
		zap.String("account id", auth.AccountID),
		zap.String("realm", auth.Realm),
		zap.String("api url", auth.APIURL),
		zap.Int("auth token length", len(auth.AuthToken)),
	)
	return logger.store.SetAuthData(ctx, auth)
}

// Clear resets the store to unauthenticated.
func (logger *Logger) Clear(ctx context.Context) (err error) {
	defer mon.Task()(&ctx)(&err)
	logger.log.Debug("Clear")
	return logger.store.Clear(ctx)
}

// AccountID returns the authorized account id.
func (logger *Logger) AccountID(ctx context.Context) (string, error) {
	logger.log.Debug("AccountID")
	return logger.store.AccountID(ctx)
}

// ApplicationKeyID returns the key id used to authorize.
func (logger *Logger) ApplicationKeyID(ctx context.Context) (string, error) {
	logger.log.Debug("ApplicationKeyID")
	return logger.store.ApplicationKeyID(ctx)
}

// ApplicationKey returns the application key used to authorize.
func (logger *Logger) ApplicationKey(ctx context.Context) (string, error) {
	logger.log.Debug("ApplicationKey")
	return logger.store.ApplicationKey(ctx)
}

// AccountAuthToken returns the account authorization token.
func (logger *Logger) AccountAuthToken(ctx context.Context) (string, error) {
	logger.log.Debug("AccountAuthToken")
	return logger.store.AccountAuthToken(ctx)
}

// APIURL returns the base API endpoint.
func (logger *Logger) APIURL(ctx context.Context) (string, error) {
	logger.log.Debug("APIURL")
	return logger.store.APIURL(ctx)
}

// DownloadURL returns the base download endpoint.
func (logger *Logger) DownloadURL(ctx context.Context) (string, error) {
	logger.log.Debug("DownloadURL")
	return logger.store.DownloadURL(ctx)
}

// S3APIURL returns the S3-compatible endpoint.
func (logger *Logger) S3APIURL(ctx context.Context) (string, error) {
	logger.log.Debug("S3APIURL")
	return logger.store.S3APIURL(ctx)
}

// Realm returns the realm the session was authorized in.
func (logger *Logger) Realm(ctx context.Context) (string, error) {
	logger.log.Debug("Realm")
	return logger.store.Realm(ctx)
}

// MinimumPartSize returns the smallest allowed part of a large file.
func (logger *Logger) MinimumPartSize(ctx context.Context) (int64, error) {
	logger.log.Debug("MinimumPartSize")
	return logger.store.MinimumPartSize(ctx)
}

// Allowed returns the stored key restrictions.
func (logger *Logger) Allowed(ctx context.Context) (accountinfo.Allowed, error) {
	logger.log.Debug("Allowed")
	return logger.store.Allowed(ctx)
}

// IsSameKey reports whether the stored session matches the key id and realm.
func (logger *Logger) IsSameKey(ctx context.Context, applicationKeyID, realm string) bool {
	logger.log.Debug("IsSameKey",
		zap.String("application key id", applicationKeyID),
		zap.String("realm", realm),
	)
	return logger.store.IsSameKey(ctx, applicationKeyID, realm)
}

// RefreshBucketNameCache replaces the entire name cache.
func (logger *Logger) RefreshBucketNameCache(ctx context.Context, buckets []accountinfo.BucketEntry) (err error) {
	defer mon.Task()(&ctx)(&err)
	logger.log.Debug("RefreshBucketNameCache", zap.Int("buckets", len(buckets)))
	return logger.store.RefreshBucketNameCache(ctx, buckets)
}

// SaveBucket upserts one name to id mapping.
func (logger *Logger) SaveBucket(ctx context.Context, bucket accountinfo.BucketEntry) (err error) {
	defer mon.Task()(&ctx)(&err)
	logger.log.Debug("SaveBucket",
		zap.String("bucket name", bucket.Name),
		zap.String("bucket id", bucket.ID),
	)
	return logger.store.SaveBucket(ctx, bucket)
}

// RemoveBucketName deletes one mapping.
func (logger *Logger) RemoveBucketName(ctx context.Context, bucketName string) (err error) {
	defer mon.Task()(&ctx)(&err)
	logger.log.Debug("RemoveBucketName", zap.String("bucket name", bucketName))
	return logger.store.RemoveBucketName(ctx, bucketName)
}

// BucketID looks up the id cached for the given bucket name.
func (logger *Logger) BucketID(ctx context.Context, bucketName string) (string, bool, error) {
	logger.log.Debug("BucketID", zap.String("bucket name", bucketName))
	return logger.store.BucketID(ctx, bucketName)
}

// PutBucketUploadURL adds a lease to the bucket's pool.
func (logger *Logger) PutBucketUploadURL(ctx context.Context, bucketID string, lease accountinfo.UploadLease) (err error) {
	defer mon.Task()(&ctx)(&err)
	logger.log.Debug("PutBucketUploadURL",
		zap.String("bucket id", bucketID),
		zap.Int("url length", len(lease.URL)),
		zap.Int("token length", len(lease.AuthToken)),
	)
	return logger.store.PutBucketUploadURL(ctx, bucketID, lease)
}

// TakeBucketUploadURL removes and returns one lease from the bucket's pool.
func (logger *Logger) TakeBucketUploadURL(ctx context.Context, bucketID string) (_ accountinfo.UploadLease, _ bool, err error) {
	defer mon.Task()(&ctx)(&err)
	lease, ok, err := logger.store.TakeBucketUploadURL(ctx, bucketID)
	logger.log.Debug("TakeBucketUploadURL",
		zap.String("bucket id", bucketID),
		zap.Bool("available", ok),
	)
	return lease, ok, err
}

// ClearBucketUploadURLs drops the bucket's entire pool.
func (logger *Logger) ClearBucketUploadURLs(ctx context.Context, bucketID string) (err error) {
	defer mon.Task()(&ctx)(&err)
	logger.log.Debug("ClearBucketUploadURLs", zap.String("bucket id", bucketID))
	return logger.store.ClearBucketUploadURLs(ctx, bucketID)
}

// PutLargeFileUploadURL overwrites the file's single upload URL slot.
func (logger *Logger) PutLargeFileUploadURL(ctx context.Context, fileID string, lease accountinfo.UploadLease) (err error) {
	defer mon.Task()(&ctx)(&err)
	logger.log.Debug("PutLargeFileUploadURL",
		zap.String("file id", fileID),
		zap.Int("url length", len(lease.URL)),
		zap.Int("token length", len(lease.AuthToken)),
	)
	return logger.store.PutLargeFileUploadURL(ctx, fileID, lease)
}

// TakeLargeFileUploadURL removes and returns the file's slot value.
func (logger *Logger) TakeLargeFileUploadURL(ctx context.Context, fileID string) (_ accountinfo.UploadLease, _ bool, err error) {
	defer mon.Task()(&ctx)(&err)
	lease, ok, err := logger.store.TakeLargeFileUploadURL(ctx, fileID)
	logger.log.Debug("TakeLargeFileUploadURL",
		zap.String("file id", fileID),
		zap.Bool("available", ok),
	)
	return lease, ok, err
}

// ClearLargeFileUploadURLs clears the file's slot.
func (logger *Logger) ClearLargeFileUploadURLs(ctx context.Context, fileID string) (err error) {
	defer mon.Task()(&ctx)(&err)
	logger.log.Debug("ClearLargeFileUploadURLs", zap.String("file id", fileID))
	return logger.store.ClearLargeFileUploadURLs(ctx, fileID)
}

// Close closes the underlying store.
func (logger *Logger) Close() error {
	logger.log.Debug("Close")
	return logger.store.Close()
}
