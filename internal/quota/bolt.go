package quota

import (
	"bytes"
	"fmt"
	"strconv"
	"time"

	"go.etcd.io/bbolt"
)

const usageBucketName = "usage"

// BoltGuard implements Guard with BoltDB-backed counters so quota
// survives restarts. Keys are "action|windowStart|tenant" and values
// are decimal counts; increments run inside a single update
// transaction, which makes them safe under concurrent scans from the
// same tenant.
type BoltGuard struct {
	db         *bbolt.DB
	policies   map[string]Policy
	timeSource TimeSource
}

// NewBoltGuard opens (creating if needed) the usage database and
// registers the policies whose actions this guard accounts for.
func NewBoltGuard(path string, policies ...Policy) (*BoltGuard, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening quota db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(usageBucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating usage bucket: %w", err)
	}

	return newBoltGuard(db, defaultTimeSource{}, policies), nil
}

// NewBoltGuardWithDeps creates a BoltGuard around an already-open
// database with a custom time source for testing.
func NewBoltGuardWithDeps(db *bbolt.DB, timeSource TimeSource, policies ...Policy) (*BoltGuard, error) {
	err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(usageBucketName))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("creating usage bucket: %w", err)
	}
	return newBoltGuard(db, timeSource, policies), nil
}

func newBoltGuard(db *bbolt.DB, timeSource TimeSource, policies []Policy) *BoltGuard {
	byAction := make(map[string]Policy, len(policies))
	for _, p := range policies {
		byAction[p.Action] = p
	}
	return &BoltGuard{db: db, policies: byAction, timeSource: timeSource}
}

func usageKey(action string, window time.Time, tenantID string) []byte {
	return []byte(fmt.Sprintf("%s|%d|%s", action, window.Unix(), tenantID))
}

// Check reports whether the tenant has quota left in the current
// window.
func (g *BoltGuard) Check(tenantID string, policy Policy) (Decision, error) {
	now := g.timeSource.Now()
	window := windowStart(now, policy.Window)

	var count int
	err := g.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(usageBucketName))
		if data := bucket.Get(usageKey(policy.Action, window, tenantID)); data != nil {
			n, err := strconv.Atoi(string(data))
			if err != nil {
				return fmt.Errorf("corrupt usage count: %w", err)
			}
			count = n
		}
		return nil
	})
	if err != nil {
		return Decision{}, err
	}

	if count >= policy.Limit {
		return Decision{
			Allowed:    false,
			LimitHit:   policy.Action,
			RetryAfter: window.Add(policy.Window).Sub(now),
		}, nil
	}
	return Decision{Allowed: true}, nil
}

// RecordUsage consumes one unit for the action's current window and
// prunes counters from expired windows of the same action.
func (g *BoltGuard) RecordUsage(tenantID, action string) error {
	policy, ok := g.policies[action]
	if !ok {
		return fmt.Errorf("no policy registered for action %q", action)
	}

	now := g.timeSource.Now()
	window := windowStart(now, policy.Window)
	key := usageKey(action, window, tenantID)

	return g.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(usageBucketName))

		count := 0
		if data := bucket.Get(key); data != nil {
			n, err := strconv.Atoi(string(data))
			if err != nil {
				return fmt.Errorf("corrupt usage count: %w", err)
			}
			count = n
		}
		if err := bucket.Put(key, []byte(strconv.Itoa(count+1))); err != nil {
			return err
		}

		return pruneExpired(bucket, action, window)
	})
}

// pruneExpired deletes counters for windows that ended before the
// current one.
func pruneExpired(bucket *bbolt.Bucket, action string, current time.Time) error {
	prefix := []byte(action + "|")
	cursor := bucket.Cursor()
	var stale [][]byte
	for k, _ := cursor.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = cursor.Next() {
		rest := k[len(prefix):]
		sep := bytes.IndexByte(rest, '|')
		if sep < 0 {
			continue
		}
		start, err := strconv.ParseInt(string(rest[:sep]), 10, 64)
		if err != nil {
			continue
		}
		if start < current.Unix() {
			stale = append(stale, append([]byte(nil), k...))
		}
	}
	for _, k := range stale {
		if err := bucket.Delete(k); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the underlying database.
func (g *BoltGuard) Close() error {
	return g.db.Close()
}
