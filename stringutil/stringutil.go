// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package stringutil

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// CutPrefix behaves like strings.Cut, but only cuts a prefix, not anywhere in the string.
func CutPrefix(s, prefix string) (after string, found bool) {
	if strings.HasPrefix(s, prefix) {
		return s[len(prefix):], true
	}
	return s, false
}

// CutSuffix behaves like strings.Cut, but only cuts a suffix, not anywhere in the string.
func CutSuffix(s, suffix string) (before string, found bool) {
	if strings.HasSuffix(s, suffix) {
		return s[:len(s)-len(suffix)], true
	}
	return s, false
}

// SplitLines splits s after each "\n". Every returned line keeps its terminator, except possibly
// the last one, so joining the result gives back s exactly. Returns nil for an empty string.
func SplitLines(s string) []string {
	if s == "" {
		return nil
	}
	lines := strings.SplitAfter(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// CutLineTerminator splits line into its content and its "\n" or "\r\n" terminator, if any.
func CutLineTerminator(line string) (content, terminator string) {
	if before, found := CutSuffix(line, "\r\n"); found {
		return before, "\r\n"
	}
	if before, found := CutSuffix(line, "\n"); found {
		return before, "\n"
	}
	return line, ""
}

// ReadJSONFile reads one JSON value from the specified file. Supports BOM.
func ReadJSONFile(path string, i any) (err error) {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("unable to open JSON file %v for reading: %w", path, err)
	}
	defer func() {
		if closeErr := f.Close(); err == nil {
			err = closeErr
		}
	}()

	content := transform.NewReader(f, unicode.BOMOverride(transform.Nop))
	d := json.NewDecoder(content)
	d.DisallowUnknownFields()
	if err := d.Decode(i); err != nil {
		return fmt.Errorf("unable to decode JSON file %v: %w", path, err)
	}
	return nil
}

// WriteFileAtomic writes data to a temporary file next to path, then renames it over path. The
// file at path is either left untouched or fully replaced. If path already exists, its permissions
// are kept.
func WriteFileAtomic(path string, data []byte) (err error) {
	perm := os.FileMode(0o644)
	if fi, err := os.Stat(path); err == nil {
		perm = fi.Mode().Perm()
	}

	dir, name := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	f, err := os.CreateTemp(dir, "."+name+".*.tmp")
	if err != nil {
		return fmt.Errorf("unable to create temporary file for %v: %w", path, err)
	}
	tmp := f.Name()
	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(tmp)
		}
	}()

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("unable to write %v: %w", tmp, err)
	}
	if err := f.Chmod(perm); err != nil {
		return fmt.Errorf("unable to set permissions of %v: %w", tmp, err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("unable to flush %v: %w", tmp, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("unable to close %v: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("unable to replace %v: %w", path, err)
	}
	return nil
}

// CRLFToLF is a [transform.Transformer] that converts all occurrences
// of "\r\n" to "\n", leaving lone '\r' (not followed by '\n') untouched.
type CRLFToLF struct{}

// Reset implements [transform.Transformer]. No state to clear.
func (CRLFToLF) Reset() {}

// Transform converts CRLF to LF.
// Implements [transform.Transformer].
// It's careful about chunk boundaries and dst capacity.
func (CRLFToLF) Transform(dst, src []byte, atEOF bool) (nDst, nSrc int, err error) {
	for nSrc < len(src) {
		// Need at least one byte of dst space.
		if nDst == len(dst) {
			return nDst, nSrc, transform.ErrShortDst
		}

		b := src[nSrc]

		if b == '\r' {
			// If '\r' is the last byte in src chunk and we are not at EOF,
			// request more source to decide if it's CRLF.
			if nSrc+1 == len(src) {
				if !atEOF {
					return nDst, nSrc, transform.ErrShortSrc
				}
				dst[nDst] = '\r'
				nDst++
				nSrc++
				continue
			}
			if src[nSrc+1] == '\n' {
				dst[nDst] = '\n'
				nDst++
				nSrc += 2
				continue
			}
			dst[nDst] = '\r'
			nDst++
			nSrc++
			continue
		}

		dst[nDst] = b
		nDst++
		nSrc++
	}

	return nDst, nSrc, nil
}
