package boltdb

import (
	"encoding/json"
	"fmt"

	bolt "go.etcd.io/bbolt"

	agentpayerrors "github.com/sardis-labs/agentpay/core/errors"
	"github.com/sardis-labs/agentpay/native/webhook"
)

var attemptsBucket = []byte("webhook_attempts")

// WebhookLog is a bbolt-backed, append-only store of webhook delivery
// attempts, durable across restarts so a delivery audit trail survives a
// process crash mid-retry.
type WebhookLog struct {
	db *bolt.DB
}

// OpenWebhookLog opens (creating if needed) a bbolt database at path for
// use as a webhook delivery attempt log.
func OpenWebhookLog(path string) (*WebhookLog, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, err
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(attemptsBucket)
		return err
	}); err != nil {
		db.Close()
		return nil, err
	}
	return &WebhookLog{db: db}, nil
}

// Close releases the underlying database file.
func (l *WebhookLog) Close() error { return l.db.Close() }

// RecordAttempt appends one delivery attempt, keyed by
// "<event_id>/<attempt_id>" so AttemptsForEvent can range-scan by event.
func (l *WebhookLog) RecordAttempt(attempt webhook.Attempt) error {
	data, err := json.Marshal(attempt)
	if err != nil {
		return err
	}
	key := []byte(fmt.Sprintf("%s/%s", attempt.EventID, attempt.AttemptID))
	return l.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(attemptsBucket).Put(key, data)
	})
}

// AttemptsForEvent returns every recorded attempt for eventID.
func (l *WebhookLog) AttemptsForEvent(eventID string) ([]webhook.Attempt, error) {
	prefix := []byte(eventID + "/")
	var out []webhook.Attempt
	err := l.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(attemptsBucket).Cursor()
		for k, v := c.Seek(prefix); k != nil && hasPrefix(k, prefix); k, v = c.Next() {
			var a webhook.Attempt
			if err := json.Unmarshal(v, &a); err != nil {
				return agentpayerrors.Internal(err)
			}
			out = append(out, a)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func hasPrefix(b, prefix []byte) bool {
	if len(b) < len(prefix) {
		return false
	}
	for i := range prefix {
		if b[i] != prefix[i] {
			return false
		}
	}
	return true
}
