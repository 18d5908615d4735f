// Package uri parses the scheme-prefixed locations accepted by the
// aligner's file-list flags (--corrFiles, --tilespecFiles, --targetDir)
// into a scheme plus bucket/path, following the same
// `scheme://bucket/path` convention geocube's interface/storage/uri
// package uses to route between its backends.
package uri

import (
	"fmt"
	"path"
	"regexp"
	"strings"
)

// ErrBadURI is returned for a location that matches neither the local
// path convention nor scheme://bucket/path.
var ErrBadURI = fmt.Errorf("badly formatted storage uri")

var schemeRegex = regexp.MustCompile(`^(?P<Scheme>[a-zA-Z][a-zA-Z0-9+.-]*)://(?P<Bucket>[^/]+)(/(?P<Path>.*))?$`)

// URI is a parsed location: a scheme ("", "file", "gs" or "s3"), a
// bucket (empty for local paths) and a path within it.
type URI struct {
	Scheme string
	Bucket string
	Path   string
}

// Local reports whether the URI addresses the local filesystem, either
// because it had no scheme or because it used file://.
func (u URI) Local() bool { return u.Scheme == "" || u.Scheme == "file" }

// String reconstructs the original-shaped location string.
func (u URI) String() string {
	if u.Local() {
		if u.Bucket == "" {
			return u.Path
		}
		return "file://" + path.Join(u.Bucket, u.Path)
	}
	return u.Scheme + "://" + path.Join(u.Bucket, u.Path)
}

// Base returns the final path element, used to preserve an input
// tile-spec file's basename when writing aligned output.
func (u URI) Base() string { return path.Base(u.Path) }

// Parse splits a location string into a URI. Bare paths (no "scheme://"
// prefix) are treated as local filesystem paths.
func Parse(raw string) (URI, error) {
	if !strings.Contains(raw, "://") {
		return URI{Path: raw}, nil
	}
	if strings.HasPrefix(raw, "file://") {
		p := strings.TrimPrefix(raw, "file://")
		if !strings.HasPrefix(p, "/") {
			p = "/" + p
		}
		return URI{Scheme: "file", Path: p}, nil
	}
	m := schemeRegex.FindStringSubmatch(raw)
	if m == nil {
		return URI{}, ErrBadURI
	}
	groups := make(map[string]string, len(m))
	for i, name := range schemeRegex.SubexpNames() {
		if name != "" {
			groups[name] = m[i]
		}
	}
	return URI{Scheme: groups["Scheme"], Bucket: groups["Bucket"], Path: groups["Path"]}, nil
}
