// Copyright (C) 2025 Mintwell Inc. (oss@mintwell.app)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package factpack

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	badger "github.com/dgraph-io/badger/v4"
)

// ErrSnapshotNotFound is returned when no archived snapshot matches a hash.
var ErrSnapshotNotFound = errors.New("snapshot not found in archive")

// ArchiveConfig configures the snapshot archive.
type ArchiveConfig struct {
	// Path is the directory for BadgerDB files.
	// Required unless InMemory is true.
	Path string

	// InMemory enables in-memory mode (testing).
	InMemory bool

	// TTL is how long snapshots are retained. Default: 30 days.
	// Set to 0 to retain indefinitely.
	TTL time.Duration
}

// DefaultArchiveConfig returns production defaults.
func DefaultArchiveConfig(path string) ArchiveConfig {
	return ArchiveConfig{
		Path: path,
		TTL:  30 * 24 * time.Hour,
	}
}

// Archive persists per-turn FactPack snapshots keyed by their hash.
//
// Every gated chat turn stores its snapshot so escalated answers can be
// audited against the exact figures the critic saw. Entries expire via
// badger TTL; the archive never rewrites an existing snapshot.
//
// Thread Safety: Safe for concurrent use; badger transactions provide
// isolation.
type Archive struct {
	db  *badger.DB
	ttl time.Duration
}

// OpenArchive opens (or creates) the snapshot archive.
//
// Inputs:
//
//	cfg - Archive configuration.
//
// Outputs:
//
//	*Archive - The opened archive. Call Close() on shutdown.
//	error - Non-nil if badger cannot be opened.
func OpenArchive(cfg ArchiveConfig) (*Archive, error) {
	opts := badger.DefaultOptions(cfg.Path).
		WithInMemory(cfg.InMemory).
		WithLogger(nil)
	if cfg.InMemory {
		opts = opts.WithDir("").WithValueDir("")
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening snapshot archive: %w", err)
	}

	return &Archive{db: db, ttl: cfg.TTL}, nil
}

// Put archives one snapshot under its metadata hash.
//
// A snapshot with an empty hash is rejected; that indicates the pack
// skipped the builder.
func (a *Archive) Put(pack *FactPack) error {
	if pack.Meta.Hash == "" {
		return errors.New("refusing to archive unhashed snapshot")
	}

	data, err := json.Marshal(pack)
	if err != nil {
		return fmt.Errorf("encoding snapshot %s: %w", pack.Meta.Hash, err)
	}

	return a.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry(archiveKey(pack.Meta.Hash), data)
		if a.ttl > 0 {
			entry = entry.WithTTL(a.ttl)
		}
		return txn.SetEntry(entry)
	})
}

// Get retrieves an archived snapshot by hash.
//
// Outputs:
//
//	*FactPack - The archived snapshot.
//	error - ErrSnapshotNotFound when the hash is unknown or expired.
func (a *Archive) Get(hash string) (*FactPack, error) {
	var pack FactPack

	err := a.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(archiveKey(hash))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrSnapshotNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &pack)
		})
	})
	if err != nil {
		return nil, err
	}

	return &pack, nil
}

// Close releases the underlying database.
func (a *Archive) Close() error {
	return a.db.Close()
}

func archiveKey(hash string) []byte {
	return []byte("factpack/" + hash)
}
