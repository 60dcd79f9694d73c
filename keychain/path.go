// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package keychain

import (
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
)

// hardenedMarker is the canonical suffix denoting a hardened path segment.
const hardenedMarker = "'"

// apostropheVariants maps the apostrophe-like characters commonly produced
// by rich-text editors and mobile keyboards to the canonical hardened
// marker. Users paste derivation paths from all kinds of sources, so we
// normalize before parsing rather than rejecting.
var apostropheVariants = strings.NewReplacer(
	"’", hardenedMarker, // right single quotation mark
	"‘", hardenedMarker, // left single quotation mark
	"′", hardenedMarker, // prime
	"´", hardenedMarker, // acute accent
	"`", hardenedMarker,
)

// NormalizePath rewrites variant apostrophe/quote characters in a path
// string to the canonical hardened marker and trims surrounding whitespace.
func NormalizePath(path string) string {
	return apostropheVariants.Replace(strings.TrimSpace(path))
}

// ParsePath parses a derivation path string such as "m/44'/0'/0'/0" into
// the sequence of child indexes to derive, with hardened segments offset by
// hdkeychain.HardenedKeyStart. The leading "m" element is optional. An
// empty string parses to an empty (root) path. Variant apostrophe
// characters are normalized before parsing, and "h"/"H" are accepted as
// hardened suffixes as well.
func ParsePath(path string) ([]uint32, error) {
	normalized := NormalizePath(path)

	// Strip the optional master-key element.
	trimmed := strings.TrimPrefix(normalized, "m/")
	if trimmed == "m" || trimmed == "" {
		return nil, nil
	}

	segments := strings.Split(trimmed, "/")
	steps := make([]uint32, 0, len(segments))

	for _, segment := range segments {
		if segment == "" {
			return nil, &PathError{
				Path:   path,
				Reason: "empty path segment",
			}
		}

		hardened := false
		switch {
		case strings.HasSuffix(segment, hardenedMarker):
			hardened = true
			segment = strings.TrimSuffix(segment, hardenedMarker)

		case strings.HasSuffix(segment, "h"),
			strings.HasSuffix(segment, "H"):

			hardened = true
			segment = segment[:len(segment)-1]
		}

		index, err := strconv.ParseUint(segment, 10, 32)
		if err != nil {
			return nil, &PathError{
				Path: path,
				Reason: "segment " + strconv.Quote(segment) +
					" is not a valid child index",
			}
		}
		if index >= hdkeychain.HardenedKeyStart {
			return nil, &PathError{
				Path:   path,
				Reason: "child index out of range",
			}
		}

		step := uint32(index)
		if hardened {
			step += hdkeychain.HardenedKeyStart
		}
		steps = append(steps, step)
	}

	return steps, nil
}

// JoinPath appends a (non-hardened) scan index to a path prefix, producing
// the full path string for a candidate address. The prefix is normalized so
// that the stored form of the path is canonical.
func JoinPath(prefix string, index uint32) string {
	normalized := NormalizePath(prefix)
	if normalized == "" || normalized == "m" {
		return "m/" + strconv.FormatUint(uint64(index), 10)
	}

	return strings.TrimSuffix(normalized, "/") + "/" +
		strconv.FormatUint(uint64(index), 10)
}
