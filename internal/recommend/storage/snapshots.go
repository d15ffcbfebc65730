// Basket - Storefront Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basket

package storage

import (
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/gob"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/tomtom215/basket/internal/recommend"
)

// Key layout
const (
	latestKey         = "snapshot:latest"
	snapshotKeyPrefix = "snapshot:v:"
)

// DefaultKeepVersions is how many snapshots Save retains when keep < 1.
const DefaultKeepVersions = 3

// ErrSnapshotNotFound is returned by LoadVersion for an unknown version.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// Metadata describes one stored snapshot.
type Metadata struct {
	Version     uint64    `json:"version"`
	Algorithm   string    `json:"algorithm"`
	GeneratedAt time.Time `json:"generated_at"`
	AsOf        time.Time `json:"as_of"`
	SavedAt     time.Time `json:"saved_at"`

	Users       int `json:"users"`
	Items       int `json:"items"`
	CatalogSize int `json:"catalog_size"`

	// Checksum is the SHA-256 of the uncompressed gob payload.
	Checksum string `json:"checksum"`

	// SizeBytes is the compressed payload size.
	SizeBytes int64 `json:"size_bytes"`
}

// storedSnapshot is the BadgerDB value format.
type storedSnapshot struct {
	Metadata       Metadata
	CompressedData []byte
}

// persistedSnapshot mirrors recommend.Snapshot with sets flattened to slices,
// since gob cannot encode struct{} map values.
type persistedSnapshot struct {
	Version     uint64
	GeneratedAt time.Time
	AsOf        time.Time
	Algorithm   string
	Affinity    map[string][]recommend.Neighbor
	Popularity  map[string]float64
	Popular     []string
	Fallback    []string
	Users       map[string]persistedProfile
	Catalog     []string
}

type persistedProfile struct {
	Items     map[string]float64
	Purchased []string
}

// Store is a recommend.SnapshotStore backed by BadgerDB.
type Store struct {
	db     *badger.DB
	keep   int
	ownsDB bool
	now    func() time.Time
}

// New wraps an already open database. Close does not close db.
func New(db *badger.DB, keep int) *Store {
	if keep < 1 {
		keep = DefaultKeepVersions
	}
	return &Store{db: db, keep: keep, now: time.Now}
}

// Open opens (or creates) a BadgerDB at dir. An empty dir opens an
// in-memory database, which is useful for tests and for running without a
// data directory.
func Open(dir string, keep int) (*Store, error) {
	opts := badger.DefaultOptions(dir)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	opts.Logger = nil // Suppress BadgerDB logs

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger db for snapshots: %w", err)
	}
	s := New(db, keep)
	s.ownsDB = true
	return s, nil
}

// Close closes the database if Open created it.
func (s *Store) Close() error {
	if s.ownsDB {
		return s.db.Close()
	}
	return nil
}

// Save stores snap as the latest snapshot and prunes versions beyond the
// retention count.
func (s *Store) Save(ctx context.Context, snap *recommend.Snapshot) error {
	if snap == nil {
		return errors.New("snapshot is required")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var raw bytes.Buffer
	if err := gob.NewEncoder(&raw).Encode(toPersisted(snap)); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	hash := sha256.Sum256(raw.Bytes())

	var compressed bytes.Buffer
	gzw := gzip.NewWriter(&compressed)
	if _, err := gzw.Write(raw.Bytes()); err != nil {
		return fmt.Errorf("compress snapshot: %w", err)
	}
	if err := gzw.Close(); err != nil {
		return fmt.Errorf("finalize compression: %w", err)
	}

	stored := storedSnapshot{
		Metadata: Metadata{
			Version:     snap.Version,
			Algorithm:   snap.Algorithm,
			GeneratedAt: snap.GeneratedAt,
			AsOf:        snap.AsOf,
			SavedAt:     s.now().UTC(),
			Users:       len(snap.Users),
			Items:       len(snap.Affinity),
			CatalogSize: len(snap.Catalog),
			Checksum:    hex.EncodeToString(hash[:]),
			SizeBytes:   int64(compressed.Len()),
		},
		CompressedData: compressed.Bytes(),
	}
	var value bytes.Buffer
	if err := gob.NewEncoder(&value).Encode(stored); err != nil {
		return fmt.Errorf("encode stored snapshot: %w", err)
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(versionKey(snap.Version), value.Bytes()); err != nil {
			return fmt.Errorf("set snapshot: %w", err)
		}
		latest, ok, err := readLatest(txn)
		if err != nil {
			return err
		}
		if !ok || snap.Version >= latest {
			if err := txn.Set([]byte(latestKey), encodeVersion(snap.Version)); err != nil {
				return fmt.Errorf("set latest: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	return s.prune()
}

// Load returns the latest snapshot, or (nil, nil) when none is stored.
func (s *Store) Load(ctx context.Context) (*recommend.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var (
		version uint64
		found   bool
	)
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		version, found, err = readLatest(txn)
		return err
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	snap, _, err := s.LoadVersion(ctx, version)
	return snap, err
}

// LoadVersion returns one stored snapshot with its metadata.
func (s *Store) LoadVersion(ctx context.Context, version uint64) (*recommend.Snapshot, *Metadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	var stored storedSnapshot
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(versionKey(version))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("%w: version %d", ErrSnapshotNotFound, version)
		}
		if err != nil {
			return fmt.Errorf("get snapshot: %w", err)
		}
		return item.Value(func(val []byte) error {
			return gob.NewDecoder(bytes.NewReader(val)).Decode(&stored)
		})
	})
	if err != nil {
		return nil, nil, err
	}

	gzr, err := gzip.NewReader(bytes.NewReader(stored.CompressedData))
	if err != nil {
		return nil, nil, fmt.Errorf("decompress snapshot: %w", err)
	}
	defer func() { _ = gzr.Close() }() //nolint:errcheck // error on gzip close after read is not actionable

	raw, err := io.ReadAll(gzr)
	if err != nil {
		return nil, nil, fmt.Errorf("read decompressed data: %w", err)
	}
	hash := sha256.Sum256(raw)
	if checksum := hex.EncodeToString(hash[:]); checksum != stored.Metadata.Checksum {
		return nil, nil, fmt.Errorf("checksum mismatch: expected %s, got %s", stored.Metadata.Checksum, checksum)
	}

	var p persistedSnapshot
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&p); err != nil {
		return nil, nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return fromPersisted(&p), &stored.Metadata, nil
}

// List returns metadata for every stored snapshot, newest first.
func (s *Store) List(ctx context.Context) ([]Metadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []Metadata
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: []byte(snapshotKeyPrefix), PrefetchValues: true})
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			var stored storedSnapshot
			err := it.Item().Value(func(val []byte) error {
				return gob.NewDecoder(bytes.NewReader(val)).Decode(&stored)
			})
			if err != nil {
				return fmt.Errorf("decode %s: %w", it.Item().Key(), err)
			}
			out = append(out, stored.Metadata)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.SortFunc(out, func(a, b Metadata) int {
		switch {
		case a.Version > b.Version:
			return -1
		case a.Version < b.Version:
			return 1
		}
		return 0
	})
	return out, nil
}

// prune deletes all but the newest s.keep snapshots.
func (s *Store) prune() error {
	return s.db.Update(func(txn *badger.Txn) error {
		var keys [][]byte
		it := txn.NewIterator(badger.IteratorOptions{Prefix: []byte(snapshotKeyPrefix)})
		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		it.Close()

		// Keys sort by zero-padded version, so the oldest come first.
		for i := 0; i < len(keys)-s.keep; i++ {
			if err := txn.Delete(keys[i]); err != nil {
				return fmt.Errorf("delete %s: %w", keys[i], err)
			}
		}
		return nil
	})
}

func readLatest(txn *badger.Txn) (uint64, bool, error) {
	item, err := txn.Get([]byte(latestKey))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("get latest: %w", err)
	}
	var version uint64
	err = item.Value(func(val []byte) error {
		if len(val) != 8 {
			return fmt.Errorf("corrupt latest marker: %d bytes", len(val))
		}
		version = binary.BigEndian.Uint64(val)
		return nil
	})
	return version, err == nil, err
}

func versionKey(version uint64) []byte {
	return []byte(fmt.Sprintf("%s%020d", snapshotKeyPrefix, version))
}

func encodeVersion(version uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, version)
	return b
}

func toPersisted(s *recommend.Snapshot) *persistedSnapshot {
	users := make(map[string]persistedProfile, len(s.Users))
	for id, p := range s.Users {
		if p == nil {
			continue
		}
		users[id] = persistedProfile{Items: p.Items, Purchased: setToSlice(p.Purchased)}
	}
	return &persistedSnapshot{
		Version:     s.Version,
		GeneratedAt: s.GeneratedAt,
		AsOf:        s.AsOf,
		Algorithm:   s.Algorithm,
		Affinity:    s.Affinity,
		Popularity:  s.Popularity,
		Popular:     s.Popular,
		Fallback:    s.Fallback,
		Users:       users,
		Catalog:     setToSlice(s.Catalog),
	}
}

func fromPersisted(p *persistedSnapshot) *recommend.Snapshot {
	users := make(map[string]*recommend.UserProfile, len(p.Users))
	for id, u := range p.Users {
		items := u.Items
		if items == nil {
			items = map[string]float64{}
		}
		users[id] = &recommend.UserProfile{Items: items, Purchased: sliceToSet(u.Purchased)}
	}
	affinity := p.Affinity
	if affinity == nil {
		affinity = map[string][]recommend.Neighbor{}
	}
	popularity := p.Popularity
	if popularity == nil {
		popularity = map[string]float64{}
	}
	return &recommend.Snapshot{
		Version:     p.Version,
		GeneratedAt: p.GeneratedAt,
		AsOf:        p.AsOf,
		Algorithm:   p.Algorithm,
		Affinity:    affinity,
		Popularity:  popularity,
		Popular:     p.Popular,
		Fallback:    p.Fallback,
		Users:       users,
		Catalog:     sliceToSet(p.Catalog),
	}
}

func setToSlice(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

func sliceToSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
