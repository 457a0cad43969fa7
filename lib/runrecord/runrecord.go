// Copyright 2026 The Zero DAQ Authors
// SPDX-License-Identifier: Apache-2.0

// Package runrecord tracks engine program runs across process crashes.
//
// The controller writes a [Record] before a program starts and clears
// it once the safe exit sequence has closed the propellant valves. A
// record still present at startup means the process died mid-run: the
// valves may be in any position, so the controller forces every output
// to its safe state and reports the interrupted run.
//
// The file is written atomically (temporary file, fsync, rename, fsync
// of the parent directory) so a crash during Write never leaves a torn
// record.
package runrecord

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/cristian-bicheru/Zero-DAQ-Software/lib/codec"
)

// Record describes a program run in progress.
type Record struct {
	Program string    `cbor:"program"`
	Digest  string    `cbor:"digest"`
	Started time.Time `cbor:"started"`
	PID     int       `cbor:"pid"`
}

// Write atomically replaces the record at path. The parent directory
// must exist.
func Write(path string, record Record) error {
	data, err := codec.Marshal(record)
	if err != nil {
		return fmt.Errorf("encoding run record: %w", err)
	}

	temporaryPath := path + ".tmp"
	file, err := os.OpenFile(temporaryPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("creating temporary run record: %w", err)
	}
	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(temporaryPath)
		return fmt.Errorf("writing temporary run record: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(temporaryPath)
		return fmt.Errorf("syncing temporary run record: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("closing temporary run record: %w", err)
	}
	if err := os.Rename(temporaryPath, path); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("renaming run record into place: %w", err)
	}

	if parent, err := os.Open(filepath.Dir(path)); err == nil {
		parent.Sync()
		parent.Close()
	}
	return nil
}

// Read returns the record at path. A missing file gives an error
// wrapping fs.ErrNotExist.
func Read(path string) (Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Record{}, err
	}
	var record Record
	if err := codec.Unmarshal(data, &record); err != nil {
		return Record{}, fmt.Errorf("parsing run record %s: %w", path, err)
	}
	return record, nil
}

// Check reports whether a record was left at path. A missing file is
// not an error.
func Check(path string) (Record, bool, error) {
	record, err := Read(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, err
	}
	return record, true, nil
}

// Clear removes the record at path. It is idempotent.
func Clear(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing run record: %w", err)
	}
	return nil
}
