package auth

import (
	"context"
	"encoding/binary"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.etcd.io/bbolt"
)

var (
	nonceBucket    = []byte("nonces")
	observedBucket = []byte("observed")
)

// BoltNoncePersistence provides a bbolt-backed NoncePersistence implementation,
// the durable counterpart to the in-memory nonceStore for deployments that
// need replay protection to survive a process restart without a full
// postgres dependency.
type BoltNoncePersistence struct {
	db *bbolt.DB
}

// NewBoltNoncePersistence opens (or creates) a bbolt database at the provided path.
func NewBoltNoncePersistence(path string) (*BoltNoncePersistence, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, fmt.Errorf("bolt nonce persistence path required")
	}
	abs, err := filepath.Abs(trimmed)
	if err != nil {
		return nil, fmt.Errorf("resolve bolt nonce path: %w", err)
	}
	db, err := bbolt.Open(abs, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("open bolt nonce store: %w", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(nonceBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(observedBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize bolt nonce buckets: %w", err)
	}
	return &BoltNoncePersistence{db: db}, nil
}

// Close releases the underlying bbolt resources.
func (p *BoltNoncePersistence) Close() error {
	if p == nil || p.db == nil {
		return nil
	}
	return p.db.Close()
}

// EnsureNonce records a nonce usage if it has not been observed previously.
func (p *BoltNoncePersistence) EnsureNonce(ctx context.Context, record NonceRecord) (bool, error) {
	if p == nil || p.db == nil {
		return false, fmt.Errorf("bolt persistence not configured")
	}
	apiKey := strings.TrimSpace(record.APIKey)
	ts := strings.TrimSpace(record.Timestamp)
	nonce := strings.TrimSpace(record.Nonce)
	if apiKey == "" || ts == "" || nonce == "" {
		return false, fmt.Errorf("nonce record incomplete")
	}
	observed := record.ObservedAt.UTC()
	if observed.IsZero() {
		observed = time.Now().UTC()
	}
	composite := compositeKey(apiKey, ts, nonce)
	nonceKey := []byte(composite)

	existed := false
	err := p.db.Update(func(tx *bbolt.Tx) error {
		nb := tx.Bucket(nonceBucket)
		ob := tx.Bucket(observedBucket)
		if existingVal := nb.Get(nonceKey); existingVal != nil {
			existed = true
			existing := int64(binary.BigEndian.Uint64(existingVal))
			next := observed.UnixNano()
			if next > existing {
				if err := nb.Put(nonceKey, encodeUnixNano(next)); err != nil {
					return err
				}
				if err := ob.Delete([]byte(observedKey(existing, composite))); err != nil {
					return err
				}
				if err := ob.Put([]byte(observedKey(next, composite)), nil); err != nil {
					return err
				}
			}
			return nil
		}
		nanos := observed.UnixNano()
		if err := nb.Put(nonceKey, encodeUnixNano(nanos)); err != nil {
			return err
		}
		return ob.Put([]byte(observedKey(nanos, composite)), nil)
	})
	if err != nil {
		return false, fmt.Errorf("record nonce: %w", err)
	}
	return existed, nil
}

// RecentNonces returns persisted nonces observed at or after the provided cutoff.
func (p *BoltNoncePersistence) RecentNonces(ctx context.Context, cutoff time.Time) ([]NonceRecord, error) {
	if p == nil || p.db == nil {
		return nil, fmt.Errorf("bolt persistence not configured")
	}
	cutoff = cutoff.UTC()
	cutoffKey := []byte(observedKey(cutoff.UnixNano(), ""))

	records := make([]NonceRecord, 0)
	err := p.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(observedBucket).Cursor()
		for k, _ := c.Seek(cutoffKey); k != nil; k, _ = c.Next() {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			composite, nanos, ok := parseObservedKey(k)
			if !ok {
				continue
			}
			parts := strings.SplitN(composite, "|", 3)
			if len(parts) != 3 {
				continue
			}
			records = append(records, NonceRecord{
				APIKey:     parts[0],
				Timestamp:  parts[1],
				Nonce:      parts[2],
				ObservedAt: time.Unix(0, nanos).UTC(),
			})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("iterate observed nonces: %w", err)
	}
	return records, nil
}

// PruneNonces deletes entries observed before the provided cutoff time.
func (p *BoltNoncePersistence) PruneNonces(ctx context.Context, cutoff time.Time) error {
	if p == nil || p.db == nil {
		return fmt.Errorf("bolt persistence not configured")
	}
	cutoff = cutoff.UTC()
	cutoffKey := []byte(observedKey(cutoff.UnixNano(), ""))

	return p.db.Update(func(tx *bbolt.Tx) error {
		nb := tx.Bucket(nonceBucket)
		ob := tx.Bucket(observedBucket)
		c := ob.Cursor()
		var toDelete [][]byte
		for k, _ := c.First(); k != nil && compareKeys(k, cutoffKey) < 0; k, _ = c.Next() {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			composite, _, ok := parseObservedKey(k)
			if !ok {
				continue
			}
			toDelete = append(toDelete, append([]byte(nil), k...))
			if err := nb.Delete([]byte(composite)); err != nil {
				return err
			}
		}
		for _, k := range toDelete {
			if err := ob.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}

func observedKey(nanos int64, composite string) string {
	return fmt.Sprintf("%020d:%s", nanos, composite)
}

func parseObservedKey(key []byte) (string, int64, bool) {
	raw := string(key)
	parts := strings.SplitN(raw, ":", 2)
	if len(parts) != 2 {
		return "", 0, false
	}
	nanos, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return "", 0, false
	}
	return parts[1], nanos, true
}

func encodeUnixNano(nanos int64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(nanos))
	return buf
}

func compositeKey(apiKey, timestamp, nonce string) string {
	return strings.Join([]string{apiKey, timestamp, nonce}, "|")
}

func compareKeys(a, b []byte) int {
	min := len(a)
	if len(b) < min {
		min = len(b)
	}
	for i := 0; i < min; i++ {
		if a[i] < b[i] {
			return -1
		}
		if a[i] > b[i] {
			return 1
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	default:
		return 0
	}
}
