// Package boltdb implements the embedded single-node persistent tier of
// the repository contracts (C16): a bbolt-backed replay cache and
// webhook delivery log, for durable idempotency without a database
// dependency.
package boltdb

import (
	"encoding/binary"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/sardis-labs/agentpay/core/replay"
)

var replayBucket = []byte("replay_cache")

// ReplayCache is a bbolt-backed replay.Cache: claims survive a process
// restart, unlike core/replay.InMemory. Within one process, bbolt's
// single-writer transaction serializes concurrent Claim calls, giving
// the same exactly-one-winner guarantee the in-memory cache provides.
type ReplayCache struct {
	db  *bolt.DB
	now func() time.Time
}

// OpenReplayCache opens (creating if needed) a bbolt database at path for
// use as a replay cache.
func OpenReplayCache(path string) (*ReplayCache, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(replayBucket)
		return err
	}); err != nil {
		db.Close()
		return nil, err
	}
	return &ReplayCache{db: db, now: time.Now}, nil
}

// Close releases the underlying database file.
func (c *ReplayCache) Close() error { return c.db.Close() }

func encodeExpiry(t time.Time) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(t.UnixNano()))
	return buf
}

func decodeExpiry(b []byte) time.Time {
	return time.Unix(0, int64(binary.BigEndian.Uint64(b)))
}

// Claim implements replay.Cache.Claim against the bbolt store.
func (c *ReplayCache) Claim(mandateID string, ttl time.Duration) replay.ClaimResult {
	result := replay.Claimed
	now := c.now()
	_ = c.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(replayBucket)
		key := []byte(mandateID)
		if existing := b.Get(key); existing != nil && now.Before(decodeExpiry(existing)) {
			result = replay.AlreadySeen
			return nil
		}
		return b.Put(key, encodeExpiry(now.Add(ttl)))
	})
	return result
}

// IsClaimed implements replay.Cache.IsClaimed.
func (c *ReplayCache) IsClaimed(mandateID string) bool {
	claimed := false
	now := c.now()
	_ = c.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(replayBucket)
		v := b.Get([]byte(mandateID))
		claimed = v != nil && now.Before(decodeExpiry(v))
		return nil
	})
	return claimed
}

// Sweep removes every entry whose TTL has elapsed, returning the count
// removed.
func (c *ReplayCache) Sweep() int {
	removed := 0
	now := c.now()
	_ = c.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(replayBucket)
		var expiredKeys [][]byte
		if err := b.ForEach(func(k, v []byte) error {
			if !now.Before(decodeExpiry(v)) {
				expiredKeys = append(expiredKeys, append([]byte(nil), k...))
			}
			return nil
		}); err != nil {
			return err
		}
		for _, k := range expiredKeys {
			if err := b.Delete(k); err != nil {
				return err
			}
			removed++
		}
		return nil
	})
	return removed
}

var _ replay.Cache = (*ReplayCache)(nil)
