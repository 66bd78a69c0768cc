// Copyright (C) 2020 b2kit authors.
// See LICENSE for copying information.

package accountinfo

var realmURLs = map[string]string{
	"production": "https://api.backblazeb2.com",
	"dev":        "http://api.backblazeb2.xyz:8180",
	"staging":    "https://api.backblaze.net",
}

// RealmURL returns the base API URL for the given authorization realm.
func RealmURL(realm string) (string, bool) {
	baseURL, ok := realmURLs[realm]
	return baseURL, ok
}
