package bsky

import (
	"fmt"
	"strings"
)

// ParseURI splits an AT-URI of the form at://<authority>/<collection>/<rkey>
// into its parts. The authority is a DID or handle.
func ParseURI(uri string) (authority, collection, rkey string, err error) {
	rest, ok := strings.CutPrefix(uri, "at://")
	if !ok {
		return "", "", "", fmt.Errorf("not an AT-URI: %q", uri)
	}
	parts := strings.SplitN(rest, "/", 3)
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return "", "", "", fmt.Errorf("malformed AT-URI: %q", uri)
	}
	return parts[0], parts[1], parts[2], nil
}

// RKey returns the record key of an AT-URI, or "" when the URI does
// not parse. Record keys are short and unique per repo, which makes
// them usable in job names.
func RKey(uri string) string {
	_, _, rkey, err := ParseURI(uri)
	if err != nil {
		return ""
	}
	return rkey
}
