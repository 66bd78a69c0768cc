// Copyright (C) 2020 b2kit authors.
// See LICENSE for copying information.

package accountinfo

import (
	"net/url"
	"strings"
)

// The server does not report the S3 endpoint yet, but for known API
// subdomains it can be computed by swapping the host's leading label.
var s3Subdomains = map[string]string{
	"api000": "s3.us-west-000",
	"api001": "s3.us-west-001",
	"api002": "s3.us-west-002",
	"api003": "s3.eu-central-003",
}

// DeriveS3APIURL maps an API endpoint URL to its S3-compatible equivalent,
// preserving scheme, path, query and fragment. It returns an empty string,
// not an error, when the subdomain is not in the fixed table: the endpoint
// cannot be derived locally and no guess is made.
func DeriveS3APIURL(apiURL string) (string, error) {
	parsed, err := url.Parse(apiURL)
	if err != nil {
		return "", Error.Wrap(err)
	}

	labels := strings.SplitN(parsed.Host, ".", 2)
	if len(labels) != 2 {
		return "", nil
	}

	s3Subdomain, ok := s3Subdomains[labels[0]]
	if !ok {
		return "", nil
	}

	parsed.Host = s3Subdomain + "." + labels[1]
	return parsed.String(), nil
}
