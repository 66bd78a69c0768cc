// Copyright (C) 2020 b2kit authors.
// See LICENSE for copying information.

// Package boltauth implements a BoltDB backed account info store. Every
// operation runs in its own bolt transaction, so the contract's atomicity
// guarantees are inherited from bolt's serializable transactions, and the
// database file lock keeps separate processes from stepping on each other.
package boltauth

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"time"

	"github.com/boltdb/bolt"
	"github.com/zeebo/errs"
	"go.uber.org/zap"
	monkit "gopkg.in/spacemonkeygo/monkit.v2"

	"github.com/b2kit/b2kit/accountinfo"
)

var (
	mon = monkit.Package()

	// Error is the default boltauth error class.
	Error = errs.Class("boltauth error")
)

var defaultTimeout = 1 * time.Second

// fileMode sets permissions so only the owner can read and write, since the
// database holds credentials.
const fileMode = 0600

var (
	authBucket          = []byte("auth")
	bucketNamesBucket   = []byte("bucket_names")
	bucketUploadsBucket = []byte("bucket_upload_urls")
	largeFilesBucket    = []byte("large_file_upload_urls")

	authKey = []byte("data")
)

// Client is the BoltDB backed account info store.
type Client struct {
	log *zap.Logger
	db  *bolt.DB

	Path string
}

// New opens or creates the database file at path.
func New(log *zap.Logger, path string) (*Client, error) {
	db, err := bolt.Open(path, fileMode, &bolt.Options{Timeout: defaultTimeout})
	if err != nil {
		return nil, Error.Wrap(err)
	}

	return &Client{
		log:  log,
		db:   db,
		Path: path,
	}, nil
}

// Close closes the database file.
func (client *Client) Close() error {
	return Error.Wrap(client.db.Close())
}

// SetAuthData replaces the stored session wholesale.
func (client *Client) SetAuthData(ctx context.Context, auth accountinfo.AuthData) (err error) {
	defer mon.Task()(&ctx)(&err)

	auth, err = accountinfo.NormalizeAuthData(auth)
	if err != nil {
		return err
	}

	data, err := json.Marshal(auth)
	if err != nil {
		return Error.Wrap(err)
	}

	return client.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(authBucket)
		if err != nil {
			return Error.Wrap(err)
		}
		return Error.Wrap(b.Put(authKey, data))
	})
}

// Clear removes the session, the bucket name cache and all leases.
func (client *Client) Clear(ctx context.Context) (err error) {
	defer mon.Task()(&ctx)(&err)

	client.log.Debug("Resetting account info", zap.String("path", client.Path))
	return client.db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{authBucket, bucketNamesBucket, bucketUploadsBucket, largeFilesBucket} {
			if err := tx.DeleteBucket(name); err != nil && err != bolt.ErrBucketNotFound {
				return Error.Wrap(err)
			}
		}
		return nil
	})
}

func (client *Client) session() (auth accountinfo.AuthData, err error) {
	err = client.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(authBucket)
		if b == nil {
			return accountinfo.ErrMissingAccountData.New("no session stored")
		}
		data := b.Get(authKey)
		if data == nil {
			return accountinfo.ErrMissingAccountData.New("no session stored")
		}
		return Error.Wrap(json.Unmarshal(data, &auth))
	})
	return auth, err
}

// AccountID returns the authorized account id.
func (client *Client) AccountID(ctx context.Context) (string, error) {
	auth, err := client.session()
	return auth.AccountID, err
}

// ApplicationKeyID returns the key id used to authorize.
func (client *Client) ApplicationKeyID(ctx context.Context) (string, error) {
	auth, err := client.session()
	return auth.ApplicationKeyID, err
}

// ApplicationKey returns the application key used to authorize.
func (client *Client) ApplicationKey(ctx context.Context) (string, error) {
	auth, err := client.session()
	return auth.ApplicationKey, err
}

// AccountAuthToken returns the account authorization token.
func (client *Client) AccountAuthToken(ctx context.Context) (string, error) {
	auth, err := client.session()
	return auth.AuthToken, err
}

// APIURL returns the base API endpoint.
func (client *Client) APIURL(ctx context.Context) (string, error) {
	auth, err := client.session()
	return auth.APIURL, err
}

// DownloadURL returns the base download endpoint.
func (client *Client) DownloadURL(ctx context.Context) (string, error) {
	auth, err := client.session()
	return auth.DownloadURL, err
}

// S3APIURL returns the S3-compatible endpoint, possibly derived.
func (client *Client) S3APIURL(ctx context.Context) (string, error) {
	auth, err := client.session()
	return auth.S3APIURL, err
}

// Realm returns the realm the session was authorized in.
func (client *Client) Realm(ctx context.Context) (string, error) {
	auth, err := client.session()
	return auth.Realm, err
}

// MinimumPartSize returns the smallest allowed part of a large file.
func (client *Client) MinimumPartSize(ctx context.Context) (int64, error) {
	auth, err := client.session()
	return auth.MinimumPartSize, err
}

// Allowed returns the stored key restrictions, or the default structure
// when none were stored explicitly. Storage failures other than a missing
// session are still reported.
func (client *Client) Allowed(ctx context.Context) (accountinfo.Allowed, error) {
	auth, err := client.session()
	if err != nil {
		if accountinfo.ErrMissingAccountData.Has(err) {
			return accountinfo.DefaultAllowed(), nil
		}
		return accountinfo.Allowed{}, err
	}
	if auth.Allowed == nil {
		return accountinfo.DefaultAllowed(), nil
	}
	return *auth.Allowed, nil
}

// IsSameKey reports whether the stored session matches the key id and realm.
func (client *Client) IsSameKey(ctx context.Context, applicationKeyID, realm string) bool {
	auth, err := client.session()
	if err != nil {
		return false
	}
	return auth.ApplicationKeyID == applicationKeyID && auth.Realm == realm
}

// RefreshBucketNameCache replaces the entire name cache in one transaction.
func (client *Client) RefreshBucketNameCache(ctx context.Context, buckets []accountinfo.BucketEntry) (err error) {
	defer mon.Task()(&ctx)(&err)

	return client.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(bucketNamesBucket); err != nil && err != bolt.ErrBucketNotFound {
			return Error.Wrap(err)
		}
		b, err := tx.CreateBucket(bucketNamesBucket)
		if err != nil {
			return Error.Wrap(err)
		}
		for _, bucket := range buckets {
			if err := b.Put([]byte(bucket.Name), []byte(bucket.ID)); err != nil {
				return Error.Wrap(err)
			}
		}
		return nil
	})
}

// SaveBucket upserts one name to id mapping.
func (client *Client) SaveBucket(ctx context.Context, bucket accountinfo.BucketEntry) (err error) {
	defer mon.Task()(&ctx)(&err)

	return client.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(bucketNamesBucket)
		if err != nil {
			return Error.Wrap(err)
		}
		return Error.Wrap(b.Put([]byte(bucket.Name), []byte(bucket.ID)))
	})
}

// RemoveBucketName deletes one mapping, ignoring absent names.
func (client *Client) RemoveBucketName(ctx context.Context, bucketName string) (err error) {
	defer mon.Task()(&ctx)(&err)

	return client.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketNamesBucket)
		if b == nil {
			return nil
		}
		return Error.Wrap(b.Delete([]byte(bucketName)))
	})
}

// BucketID looks up the id cached for the given bucket name.
func (client *Client) BucketID(ctx context.Context, bucketName string) (id string, ok bool, err error) {
	err = client.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketNamesBucket)
		if b == nil {
			return nil
		}
		value := b.Get([]byte(bucketName))
		if value == nil {
			return nil
		}
		id, ok = string(value), true
		return nil
	})
	return id, ok, Error.Wrap(err)
}

// PutBucketUploadURL adds a lease to the bucket's pool. Leases are stored
// under a per-bucket nested bucket keyed by a monotonic sequence number.
func (client *Client) PutBucketUploadURL(ctx context.Context, bucketID string, lease accountinfo.UploadLease) (err error) {
	defer mon.Task()(&ctx)(&err)

	data, err := json.Marshal(lease)
	if err != nil {
		return Error.Wrap(err)
	}

	return client.db.Update(func(tx *bolt.Tx) error {
		top, err := tx.CreateBucketIfNotExists(bucketUploadsBucket)
		if err != nil {
			return Error.Wrap(err)
		}
		pool, err := top.CreateBucketIfNotExists([]byte(bucketID))
		if err != nil {
			return Error.Wrap(err)
		}
		seq, err := pool.NextSequence()
		if err != nil {
			return Error.Wrap(err)
		}
		var key [8]byte
		binary.BigEndian.PutUint64(key[:], seq)
		return Error.Wrap(pool.Put(key[:], data))
	})
}

// TakeBucketUploadURL removes and returns one lease from the bucket's pool.
// The read and the delete share a write transaction, so no two callers can
// receive the same lease.
func (client *Client) TakeBucketUploadURL(ctx context.Context, bucketID string) (lease accountinfo.UploadLease, ok bool, err error) {
	defer mon.Task()(&ctx)(&err)

	err = client.db.Update(func(tx *bolt.Tx) error {
		top := tx.Bucket(bucketUploadsBucket)
		if top == nil {
			return nil
		}
		pool := top.Bucket([]byte(bucketID))
		if pool == nil {
			return nil
		}
		key, data := pool.Cursor().First()
		if key == nil {
			return nil
		}
		if err := json.Unmarshal(data, &lease); err != nil {
			return Error.Wrap(err)
		}
		if err := pool.Delete(key); err != nil {
			return Error.Wrap(err)
		}
		ok = true
		return nil
	})
	if err != nil {
		return accountinfo.UploadLease{}, false, err
	}
	return lease, ok, nil
}

// ClearBucketUploadURLs drops the bucket's entire pool.
func (client *Client) ClearBucketUploadURLs(ctx context.Context, bucketID string) (err error) {
	defer mon.Task()(&ctx)(&err)

	return client.db.Update(func(tx *bolt.Tx) error {
		top := tx.Bucket(bucketUploadsBucket)
		if top == nil {
			return nil
		}
		if err := top.DeleteBucket([]byte(bucketID)); err != nil && err != bolt.ErrBucketNotFound {
			return Error.Wrap(err)
		}
		return nil
	})
}

// PutLargeFileUploadURL overwrites the file's single upload URL slot.
func (client *Client) PutLargeFileUploadURL(ctx context.Context, fileID string, lease accountinfo.UploadLease) (err error) {
	defer mon.Task()(&ctx)(&err)

	data, err := json.Marshal(lease)
	if err != nil {
		return Error.Wrap(err)
	}

	return client.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(largeFilesBucket)
		if err != nil {
			return Error.Wrap(err)
		}
		return Error.Wrap(b.Put([]byte(fileID), data))
	})
}

// TakeLargeFileUploadURL removes and returns the file's slot value.
func (client *Client) TakeLargeFileUploadURL(ctx context.Context, fileID string) (lease accountinfo.UploadLease, ok bool, err error) {
	defer mon.Task()(&ctx)(&err)

	err = client.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(largeFilesBucket)
		if b == nil {
			return nil
		}
		data := b.Get([]byte(fileID))
		if data == nil {
			return nil
		}
		if err := json.Unmarshal(data, &lease); err != nil {
			return Error.Wrap(err)
		}
		if err := b.Delete([]byte(fileID)); err != nil {
			return Error.Wrap(err)
		}
		ok = true
		return nil
	})
	if err != nil {
		return accountinfo.UploadLease{}, false, err
	}
	return lease, ok, nil
}

// ClearLargeFileUploadURLs clears the file's slot.
func (client *Client) ClearLargeFileUploadURLs(ctx context.Context, fileID string) (err error) {
	defer mon.Task()(&ctx)(&err)

	return client.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(largeFilesBucket)
		if b == nil {
			return nil
		}
		return Error.Wrap(b.Delete([]byte(fileID)))
	})
}
