// Copyright 2026 The Zero DAQ Authors
// SPDX-License-Identifier: Apache-2.0

package program

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// Extension is the file extension of program files.
const Extension = ".prog"

// DefaultDir is the program directory relative to the controller's
// working directory.
const DefaultDir = "../Engine Test Programs"

// Library is a directory of program files.
type Library struct {
	Dir    string
	Logger *slog.Logger
}

// List returns the program names in the directory, sorted, without the
// extension.
func (l Library) List() ([]string, error) {
	entries, err := os.ReadDir(l.Dir)
	if err != nil {
		return nil, fmt.Errorf("list programs in %s: %w", l.Dir, err)
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if name, ok := strings.CutSuffix(entry.Name(), Extension); ok && name != "" {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names, nil
}

// Load reads and parses the program called name.
func (l Library) Load(name string) (*Program, error) {
	if name == "" || name != filepath.Base(name) || strings.ContainsRune(name, os.PathSeparator) {
		return nil, fmt.Errorf("%w: invalid name %q", ErrNotFound, name)
	}
	path := filepath.Join(l.Dir, name+Extension)
	source, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("read program: %w", err)
	}
	return Parse(name, source, l.Logger)
}
