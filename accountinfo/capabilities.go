// Copyright (C) 2020 b2kit authors.
// See LICENSE for copying information.

package accountinfo

// AllCapabilities returns the full capability universe. Keys created before
// capability restrictions existed are treated as having all of them.
func AllCapabilities() []string {
	return []string{
		"listKeys",
		"writeKeys",
		"deleteKeys",
		"listBuckets",
		"writeBuckets",
		"deleteBuckets",
		"listFiles",
		"readFiles",
		"shareFiles",
		"writeFiles",
		"deleteFiles",
	}
}
