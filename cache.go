package consensus

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"

	"github.com/dgraph-io/badger/v4"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"
)

// ArrayKey identifies one generated ensemble: the data it was run on
// and the run parameters. Two runs with equal keys produce equal
// assignment arrays, which is what makes caching sound.
type ArrayKey struct {
	DataHash   string   `msgpack:"data_hash"`
	Algorithms []string `msgpack:"algorithms"`
	Ks         []int    `msgpack:"ks"`
	Replicates int      `msgpack:"replicates"`
	Seed       int64    `msgpack:"seed"`
}

// HashData digests a data matrix: row and column counts followed by the
// IEEE 754 bits of every value, SHA-256, hex-encoded. Row order matters
// because sample indices do.
func HashData(data [][]float64) string {
	h := sha256.New()
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(len(data)))
	h.Write(buf[:])
	if len(data) > 0 {
		binary.LittleEndian.PutUint64(buf[:], uint64(len(data[0])))
		h.Write(buf[:])
	}
	for _, row := range data {
		for _, v := range row {
			binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
			h.Write(buf[:])
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

// digest is the cache key: SHA-256 over the key's canonical msgpack
// encoding.
func (k ArrayKey) digest() ([]byte, error) {
	enc, err := msgpack.Marshal(k)
	if err != nil {
		return nil, fmt.Errorf("consensus: encode cache key: %w", err)
	}
	sum := sha256.Sum256(enc)
	return sum[:], nil
}

// arrayRecord is the on-disk form of an assignment array.
type arrayRecord struct {
	N          int      `msgpack:"n"`
	Replicates int      `msgpack:"replicates"`
	Algorithms []string `msgpack:"algorithms"`
	Ks         []int    `msgpack:"ks"`
	Labels     []int    `msgpack:"labels"`
}

// Cache persists assignment arrays keyed by ArrayKey, so long ensemble
// runs can resume instead of recomputing every base run.
type Cache struct {
	db *badger.DB
}

// OpenCache opens (or creates) an on-disk cache at dir.
func OpenCache(dir string) (*Cache, error) {
	db, err := badger.Open(badger.DefaultOptions(dir).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("consensus: open cache: %w", err)
	}
	return &Cache{db: db}, nil
}

// Close releases the underlying store.
func (c *Cache) Close() error { return c.db.Close() }

// Put stores an assignment array under its key, overwriting any
// previous entry.
func (c *Cache) Put(key ArrayKey, arr *Array) error {
	digest, err := key.digest()
	if err != nil {
		return err
	}
	rec := arrayRecord{
		N:          arr.N(),
		Replicates: arr.Reps(),
		Algorithms: arr.Algorithms(),
		Ks:         arr.Ks(),
		Labels:     append([]int(nil), arr.data...),
	}
	enc, err := msgpack.Marshal(rec)
	if err != nil {
		return fmt.Errorf("consensus: encode cached array: %w", err)
	}
	err = c.db.Update(func(txn *badger.Txn) error {
		return txn.Set(digest, enc)
	})
	if err != nil {
		return fmt.Errorf("consensus: store cached array: %w", err)
	}
	return nil
}

// Get loads the assignment array stored under key. The second return
// is false on a miss.
func (c *Cache) Get(key ArrayKey) (*Array, bool, error) {
	digest, err := key.digest()
	if err != nil {
		return nil, false, err
	}
	var enc []byte
	err = c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(digest)
		if err != nil {
			return err
		}
		enc, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("consensus: load cached array: %w", err)
	}
	var rec arrayRecord
	if err := msgpack.Unmarshal(enc, &rec); err != nil {
		return nil, false, fmt.Errorf("consensus: decode cached array: %w", err)
	}
	arr, err := NewArray(rec.N, rec.Replicates, rec.Algorithms, rec.Ks)
	if err != nil {
		return nil, false, fmt.Errorf("consensus: cached array is malformed: %w", err)
	}
	if len(rec.Labels) != len(arr.data) {
		return nil, false, ShapeError{Op: "cache", Want: len(arr.data), Got: len(rec.Labels), Detail: "cached label count"}
	}
	copy(arr.data, rec.Labels)
	return arr, true, nil
}

// GenerateCached wraps Generate with a cache lookup: a hit returns the
// stored array untouched; a miss generates and stores the result before
// returning it.
func GenerateCached(ctx context.Context, data [][]float64, cfg GenerateConfig, cache *Cache) (*Array, error) {
	if cache == nil {
		return Generate(ctx, data, cfg)
	}
	applyGenerateDefaults(&cfg)
	if err := validateGenerateConfig(&cfg); err != nil {
		return nil, err
	}
	key := ArrayKey{
		DataHash:   HashData(data),
		Algorithms: cfg.Algorithms,
		Ks:         cfg.Ks,
		Replicates: cfg.Replicates,
		Seed:       cfg.Seed,
	}
	if arr, ok, err := cache.Get(key); err != nil {
		return nil, err
	} else if ok {
		cfg.Logger.Debug("ensemble cache hit", zap.String("data_hash", key.DataHash))
		return arr, nil
	}
	arr, err := Generate(ctx, data, cfg)
	if err != nil {
		return nil, err
	}
	if err := cache.Put(key, arr); err != nil {
		return nil, err
	}
	return arr, nil
}
