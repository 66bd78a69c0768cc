// Copyright (C) 2020 b2kit authors.
// See LICENSE for copying information.

package accountinfo

// AuthData is everything b2_authorize_account returns that is worth keeping.
// A session exists only as a whole: stores replace it atomically and never
// expose a partially written one.
type AuthData struct {
	AccountID        string   `json:"accountId"`
	ApplicationKeyID string   `json:"applicationKeyId"`
	ApplicationKey   string   `json:"applicationKey"`
	AuthToken        string   `json:"authorizationToken"`
	APIURL           string   `json:"apiUrl"`
	DownloadURL      string   `json:"downloadUrl"`
	S3APIURL         string   `json:"s3ApiUrl"`
	Realm            string   `json:"realm"`
	MinimumPartSize  int64    `json:"minimumPartSize"`
	Allowed          *Allowed `json:"allowed"`
}

// Allowed describes the restrictions on an application key, as returned by
// b2_authorize_account with the addition of a bucketName field. Nil pointers
// stand for JSON null.
type Allowed struct {
	BucketID     *string  `json:"bucketId"`
	BucketName   *string  `json:"bucketName"`
	Capabilities []string `json:"capabilities"`
	NamePrefix   *string  `json:"namePrefix"`
}

// Valid reports whether the structure is consistent: capabilities must be
// present, and a key restricted by bucket name must also carry the bucket id.
// The reverse does not hold; a bucket may be known only by id when its name
// could not be resolved, e.g. the bucket was deleted or the key lacks the
// listBuckets capability.
func (allowed Allowed) Valid() bool {
	return allowed.Capabilities != nil &&
		(allowed.BucketID != nil || allowed.BucketName == nil)
}

// DefaultAllowed is the structure used for sessions stored before key
// restrictions existed: no bucket or prefix restriction and every capability.
func DefaultAllowed() Allowed {
	return Allowed{Capabilities: AllCapabilities()}
}

// NormalizeAuthData is the shared front half of SetAuthData: it rejects an
// inconsistent allowed structure and fills in the S3 endpoint when the
// authorize call did not return one. Every store implementation runs it
// before persisting, so validation cannot drift between backends.
func NormalizeAuthData(auth AuthData) (AuthData, error) {
	if auth.Allowed != nil && !auth.Allowed.Valid() {
		if auth.Allowed.Capabilities == nil {
			return AuthData{}, ErrInvalidAllowed.New("capabilities missing")
		}
		return AuthData{}, ErrInvalidAllowed.New("bucket name set without bucket id")
	}

	if auth.S3APIURL == "" {
		s3URL, err := DeriveS3APIURL(auth.APIURL)
		if err != nil {
			return AuthData{}, err
		}
		auth.S3APIURL = s3URL
	}

	return auth, nil
}
