// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package embedding

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
)

const (
	cacheMetaKey = "emb:meta"
	vectorPrefix = "emb:vec:"
)

// Cache persists concept vectors on disk so the index survives restarts.
// A cached set is only usable when its model identity, taxonomy
// fingerprint, and dimension all match the live configuration.
type Cache struct {
	db     *badger.DB
	logger *slog.Logger
}

// badgerLoggerAdapter adapts slog.Logger to badger.Logger interface.
type badgerLoggerAdapter struct {
	logger *slog.Logger
}

var _ badger.Logger = (*badgerLoggerAdapter)(nil)

func (bl *badgerLoggerAdapter) Errorf(msg string, items ...any) {
	bl.logger.Error(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Warningf(msg string, items ...any) {
	bl.logger.Warn(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Infof(msg string, items ...any) {
	bl.logger.Info(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Debugf(msg string, items ...any) {
	bl.logger.Debug(fmt.Sprintf(msg, items...))
}

// OpenCache opens a vector cache at the specified path.
// Creates the directory if it doesn't exist. Pass inMemory=true for an
// ephemeral cache (used by tests).
func OpenCache(filePath string, inMemory bool) (*Cache, error) {
	var opts badger.Options

	if inMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		info, err := os.Stat(filePath)
		if err != nil {
			if os.IsNotExist(err) {
				if err := os.MkdirAll(filePath, 0755); err != nil {
					return nil, err
				}
				info, err = os.Stat(filePath)
				if err != nil {
					return nil, err
				}
			} else {
				return nil, err
			}
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("%s is not a directory", filePath)
		}
		opts = badger.DefaultOptions(filePath)
	}

	opts.Logger = &badgerLoggerAdapter{logger: slog.Default()}
	opts.Compression = options.None

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	return &Cache{
		db:     db,
		logger: slog.Default().With("component", "embedding-cache"),
	}, nil
}

// Close closes the underlying database.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Store replaces the cached vector set with the given index contents.
// The previous set, valid or not, is dropped first.
func (c *Cache) Store(idx *Index) error {
	if err := c.Invalidate(); err != nil {
		return err
	}

	meta := cacheMeta{
		ModelIdentity: idx.ModelIdentity(),
		Fingerprint:   idx.Fingerprint(),
		Dimension:     idx.Dimension(),
		Count:         idx.Len(),
	}

	wb := c.db.NewWriteBatch()
	defer wb.Cancel()

	if err := wb.Set([]byte(cacheMetaKey), marshalMeta(meta)); err != nil {
		return err
	}
	for i, id := range idx.ids {
		record := vectorRecord{Id: id, Vector: idx.vectors[i]}
		if err := wb.Set([]byte(vectorPrefix+id), marshalVectorRecord(record)); err != nil {
			return err
		}
	}
	if err := wb.Flush(); err != nil {
		return err
	}

	c.logger.Info("stored vector cache", "count", meta.Count, "dimension", meta.Dimension)
	return nil
}

// Load returns the cached index if it matches the given model identity and
// taxonomy fingerprint. A mismatch or a corrupt record drops the cache and
// returns (nil, nil); the caller rebuilds from scratch.
func (c *Cache) Load(modelIdentity, fingerprint string) (*Index, error) {
	var meta cacheMeta
	found := false

	err := c.db.View(func(tx *badger.Txn) error {
		item, err := tx.Get([]byte(cacheMetaKey))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			meta, err = unmarshalMeta(val)
			if err != nil {
				return err
			}
			found = true
			return nil
		})
	})
	if err != nil {
		c.logger.Warn("dropping unreadable vector cache", "error", err)
		return nil, c.Invalidate()
	}
	if !found {
		return nil, nil
	}

	if meta.ModelIdentity != modelIdentity || meta.Fingerprint != fingerprint {
		c.logger.Info("vector cache is stale, dropping",
			"cached_model", meta.ModelIdentity,
			"cached_fingerprint", meta.Fingerprint)
		return nil, c.Invalidate()
	}

	ids := make([]string, 0, meta.Count)
	vectors := make([][]float32, 0, meta.Count)

	err = c.db.View(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(vectorPrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			err := iter.Item().Value(func(val []byte) error {
				record, err := unmarshalVectorRecord(val)
				if err != nil {
					return err
				}
				if len(record.Vector) != meta.Dimension {
					return fmt.Errorf("vector for %s has dimension %d, want %d",
						record.Id, len(record.Vector), meta.Dimension)
				}
				ids = append(ids, record.Id)
				vectors = append(vectors, record.Vector)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		c.logger.Warn("dropping unreadable vector cache", "error", err)
		return nil, c.Invalidate()
	}

	if len(ids) != meta.Count {
		c.logger.Warn("vector cache is incomplete, dropping",
			"expected", meta.Count, "loaded", len(ids))
		return nil, c.Invalidate()
	}

	c.logger.Info("loaded vector cache", "count", len(ids))
	return NewIndex(ids, vectors, meta.ModelIdentity, meta.Fingerprint), nil
}

// Invalidate removes the cached vector set entirely.
func (c *Cache) Invalidate() error {
	return c.db.DropPrefix([]byte("emb:"))
}
