// Package source acquires the raw text of the two datasets, from local files
// or HTTP(S) URLs, and keeps track of where each dataset lives.
package source

import (
	"fmt"
	"strings"
)

// Dataset names.
const (
	Crops    = "crops"
	Rainfall = "rainfall"
)

// Spec locates one dataset.
type Spec struct {
	Name        string
	Location    string // file path, file:// URL or http(s) URL
	Encoding    string // IANA/HTML charset label; empty means UTF-8
	Description string
}

// AcquisitionError reports a dataset that failed to load or decode as text.
type AcquisitionError struct {
	Name     string
	Location string
	Err      error
}

func (e *AcquisitionError) Error() string {
	return fmt.Sprintf("failed to load %s data from %s: %v", e.Name, e.Location, e.Err)
}

func (e *AcquisitionError) Unwrap() error { return e.Err }

func isRemote(location string) bool {
	l := strings.ToLower(location)
	return strings.HasPrefix(l, "http://") || strings.HasPrefix(l, "https://")
}

func localPath(location string) string {
	return strings.TrimPrefix(location, "file://")
}
