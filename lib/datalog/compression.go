// Copyright 2026 The Zero DAQ Authors
// SPDX-License-Identifier: Apache-2.0

package datalog

import (
	"fmt"
	"strings"
)

// Compression selects the on-disk encoding of a log.
type Compression int

const (
	None Compression = iota
	Gzip
	Zstd
	LZ4
)

var compressionNames = [...]string{
	None: "none",
	Gzip: "gzip",
	Zstd: "zstd",
	LZ4:  "lz4",
}

var compressionExtensions = [...]string{
	None: "",
	Gzip: ".gz",
	Zstd: ".zst",
	LZ4:  ".lz4",
}

func (c Compression) String() string {
	if c < 0 || int(c) >= len(compressionNames) {
		return fmt.Sprintf("compression(%d)", int(c))
	}
	return compressionNames[c]
}

// Extension is the suffix appended to compressed file names.
func (c Compression) Extension() string {
	if c < 0 || int(c) >= len(compressionExtensions) {
		return ""
	}
	return compressionExtensions[c]
}

// ParseCompression is the inverse of String.
func ParseCompression(name string) (Compression, error) {
	for c, n := range compressionNames {
		if strings.EqualFold(n, name) {
			return Compression(c), nil
		}
	}
	return 0, fmt.Errorf("unknown compression %q (want none, gzip, zstd or lz4)", name)
}

func (c Compression) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Compression) UnmarshalText(text []byte) error {
	parsed, err := ParseCompression(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
