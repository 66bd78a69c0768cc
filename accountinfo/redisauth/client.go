// Copyright (C) 2020 b2kit authors.
// See LICENSE for copying information.

// Package redisauth implements a redis backed account info store, letting
// several processes share one session and one set of lease pools. Lease
// exactness across processes comes from redis itself: RPOP hands any given
// list element to exactly one caller, and the multi-key writes run inside
// MULTI/EXEC.
package redisauth

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"

	"github.com/go-redis/redis"
	"github.com/zeebo/errs"
	"go.uber.org/zap"
	monkit "gopkg.in/spacemonkeygo/monkit.v2"

	"github.com/b2kit/b2kit/accountinfo"
)

var (
	mon = monkit.Package()

	// Error is the default redisauth error class.
	Error = errs.Class("redisauth error")
)

const (
	authKey        = "auth"
	bucketNamesKey = "bucket_names"

	bucketUploadsPrefix = "bucket_upload_urls:"
	largeFilesPrefix    = "large_file_upload_urls:"
)

// Client is the redis backed account info store.
type Client struct {
	log *zap.Logger
	db  *redis.Client
}

// New returns a configured Client, verifying a successful connection to redis.
func New(log *zap.Logger, address, password string, db int) (*Client, error) {
	client := &Client{
		log: log,
		db: redis.NewClient(&redis.Options{
			Addr:     address,
			Password: password,
			DB:       db,
		}),
	}

	if err := client.db.Ping().Err(); err != nil {
		return nil, Error.New("ping failed: %v", err)
	}

	return client, nil
}

// NewFrom returns a configured Client from a redis address of the form
// redis://host:port?db=0&password=secret.
func NewFrom(log *zap.Logger, address string) (*Client, error) {
	parsed, err := url.Parse(address)
	if err != nil {
		return nil, Error.Wrap(err)
	}
	if parsed.Scheme != "redis" {
		return nil, Error.New("unsupported scheme: %q", parsed.Scheme)
	}

	db := 0
	if s := parsed.Query().Get("db"); s != "" {
		db, err = strconv.Atoi(s)
		if err != nil {
			return nil, Error.New("invalid db: %q", s)
		}
	}

	return New(log, parsed.Host, parsed.Query().Get("password"), db)
}

// Close closes the connection to redis.
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

	return Error.Wrap(client.db.Set(authKey, data, 0).Err())
}

// Clear removes the session, the bucket name cache and all leases.
func (client *Client) Clear(ctx context.Context) (err error) {
	defer mon.Task()(&ctx)(&err)

	client.log.Debug("Resetting account info")
	keys := []string{authKey, bucketNamesKey}
	for _, prefix := range []string{bucketUploadsPrefix, largeFilesPrefix} {
		poolKeys, err := client.scanKeys(prefix)
		if err != nil {
			return err
		}
		keys = append(keys, poolKeys...)
	}

	return Error.Wrap(client.db.Del(keys...).Err())
}

// scanKeys collects every key starting with prefix.
func (client *Client) scanKeys(prefix string) ([]string, error) {
	var keys []string
	var cursor uint64
	for {
		page, next, err := client.db.Scan(cursor, escapeMatch(prefix)+"*", 100).Result()
		if err != nil {
			return nil, Error.New("scan error: %v", err)
		}
		keys = append(keys, page...)
		cursor = next
		if cursor == 0 {
			return keys, nil
		}
	}
}

func (client *Client) session() (auth accountinfo.AuthData, err error) {
	data, err := client.db.Get(authKey).Bytes()
	if err != nil {
		if err == redis.Nil {
			return accountinfo.AuthData{}, accountinfo.ErrMissingAccountData.New("no session stored")
		}
		return accountinfo.AuthData{}, Error.New("get error: %v", err)
	}
	if err := json.Unmarshal(data, &auth); err != nil {
		return accountinfo.AuthData{}, Error.Wrap(err)
	}
	return auth, nil
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
// when none were stored explicitly. Connection failures are still reported.
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

// RefreshBucketNameCache replaces the entire name cache. The delete and the
// rewrite run inside MULTI/EXEC so readers never observe a partial mapping.
func (client *Client) RefreshBucketNameCache(ctx context.Context, buckets []accountinfo.BucketEntry) (err error) {
	defer mon.Task()(&ctx)(&err)

	fields := make(map[string]interface{}, len(buckets))
	for _, bucket := range buckets {
		fields[bucket.Name] = bucket.ID
	}

	pipe := client.db.TxPipeline()
	pipe.Del(bucketNamesKey)
	if len(fields) > 0 {
		pipe.HMSet(bucketNamesKey, fields)
	}
	_, err = pipe.Exec()
	return Error.Wrap(err)
}

// SaveBucket upserts one name to id mapping.
func (client *Client) SaveBucket(ctx context.Context, bucket accountinfo.BucketEntry) (err error) {
	defer mon.Task()(&ctx)(&err)

	return Error.Wrap(client.db.HSet(bucketNamesKey, bucket.Name, bucket.ID).Err())
}

// RemoveBucketName deletes one mapping, ignoring absent names.
func (client *Client) RemoveBucketName(ctx context.Context, bucketName string) (err error) {
	defer mon.Task()(&ctx)(&err)

	return Error.Wrap(client.db.HDel(bucketNamesKey, bucketName).Err())
}

// BucketID looks up the id cached for the given bucket name.
func (client *Client) BucketID(ctx context.Context, bucketName string) (string, bool, error) {
	id, err := client.db.HGet(bucketNamesKey, bucketName).Result()
	if err != nil {
		if err == redis.Nil {
			return "", false, nil
		}
		return "", false, Error.New("hget error: %v", err)
	}
	return id, true, nil
}

// PutBucketUploadURL adds a lease to the bucket's pool.
func (client *Client) PutBucketUploadURL(ctx context.Context, bucketID string, lease accountinfo.UploadLease) (err error) {
	defer mon.Task()(&ctx)(&err)

	data, err := json.Marshal(lease)
	if err != nil {
		return Error.Wrap(err)
	}

	return Error.Wrap(client.db.LPush(bucketUploadsPrefix+bucketID, data).Err())
}

// TakeBucketUploadURL removes and returns one lease from the bucket's pool.
func (client *Client) TakeBucketUploadURL(ctx context.Context, bucketID string) (lease accountinfo.UploadLease, _ bool, err error) {
	defer mon.Task()(&ctx)(&err)

	data, err := client.db.RPop(bucketUploadsPrefix + bucketID).Bytes()
	if err != nil {
		if err == redis.Nil {
			return accountinfo.UploadLease{}, false, nil
		}
		return accountinfo.UploadLease{}, false, Error.New("rpop error: %v", err)
	}
	if err := json.Unmarshal(data, &lease); err != nil {
		return accountinfo.UploadLease{}, false, Error.Wrap(err)
	}
	return lease, true, nil
}

// ClearBucketUploadURLs drops the bucket's entire pool.
func (client *Client) ClearBucketUploadURLs(ctx context.Context, bucketID string) (err error) {
	defer mon.Task()(&ctx)(&err)

	return Error.Wrap(client.db.Del(bucketUploadsPrefix + bucketID).Err())
}

// PutLargeFileUploadURL overwrites the file's single upload URL slot. The
// slot is a one-element list so that the take side can share RPOP semantics
// with the bucket pools; the delete and the push run inside MULTI/EXEC.
func (client *Client) PutLargeFileUploadURL(ctx context.Context, fileID string, lease accountinfo.UploadLease) (err error) {
	defer mon.Task()(&ctx)(&err)

	data, err := json.Marshal(lease)
	if err != nil {
		return Error.Wrap(err)
	}

	pipe := client.db.TxPipeline()
	pipe.Del(largeFilesPrefix + fileID)
	pipe.LPush(largeFilesPrefix+fileID, data)
	_, err = pipe.Exec()
	return Error.Wrap(err)
}

// TakeLargeFileUploadURL removes and returns the file's slot value.
func (client *Client) TakeLargeFileUploadURL(ctx context.Context, fileID string) (lease accountinfo.UploadLease, _ bool, err error) {
	defer mon.Task()(&ctx)(&err)

	data, err := client.db.RPop(largeFilesPrefix + fileID).Bytes()
	if err != nil {
		if err == redis.Nil {
			return accountinfo.UploadLease{}, false, nil
		}
		return accountinfo.UploadLease{}, false, Error.New("rpop error: %v", err)
	}
	if err := json.Unmarshal(data, &lease); err != nil {
		return accountinfo.UploadLease{}, false, Error.Wrap(err)
	}
	return lease, true, nil
}

// ClearLargeFileUploadURLs clears the file's slot.
func (client *Client) ClearLargeFileUploadURLs(ctx context.Context, fileID string) (err error) {
	defer mon.Task()(&ctx)(&err)

	return Error.Wrap(client.db.Del(largeFilesPrefix + fileID).Err())
}
