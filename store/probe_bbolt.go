// Package store persists probe results in a bbolt database so past
// runs can be compared against the current one.
package store

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/alorle/iptv-checker/probe"
)

var probesBucket = []byte("probes")

// Entry is one stored probe result with its timestamp.
type Entry struct {
	Result probe.Result
	At     time.Time
}

type probeRecord struct {
	URL      string `json:"url"`
	OK       bool   `json:"ok"`
	HTTPCode int    `json:"http_code"`
	MIME     string `json:"mime"`
	Elapsed  int64  `json:"elapsed_ms"`
	Reason   string `json:"reason,omitempty"`
}

// ProbeStore records probe results per stream URL.
type ProbeStore struct {
	db *bolt.DB
}

// NewProbeStore prepares the probes bucket.
func NewProbeStore(db *bolt.DB) (*ProbeStore, error) {
	err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(probesBucket)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create probes bucket: %w", err)
	}
	return &ProbeStore{db: db}, nil
}

// Save stores one probe result keyed by its timestamp under the
// stream's sub-bucket.
func (s *ProbeStore) Save(ctx context.Context, at time.Time, res probe.Result) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	rec := probeRecord{
		URL:      res.URL,
		OK:       res.OK,
		HTTPCode: res.HTTPCode,
		MIME:     res.MIME,
		Elapsed:  res.Elapsed.Milliseconds(),
		Reason:   res.Reason,
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal probe record: %w", err)
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		root := tx.Bucket(probesBucket)
		sub, err := root.CreateBucketIfNotExists(urlKey(res.URL))
		if err != nil {
			return fmt.Errorf("failed to create stream bucket: %w", err)
		}
		return sub.Put(timeKey(at), data)
	})
}

// History returns the most recent probe entries for a URL, newest
// first, up to limit.
func (s *ProbeStore) History(ctx context.Context, url string, limit int) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 10
	}

	var entries []Entry
	err := s.db.View(func(tx *bolt.Tx) error {
		sub := tx.Bucket(probesBucket).Bucket(urlKey(url))
		if sub == nil {
			return nil
		}
		c := sub.Cursor()
		for k, v := c.Last(); k != nil && len(entries) < limit; k, v = c.Prev() {
			var rec probeRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				continue
			}
			entries = append(entries, Entry{
				Result: probe.Result{
					URL:      rec.URL,
					OK:       rec.OK,
					HTTPCode: rec.HTTPCode,
					MIME:     rec.MIME,
					Elapsed:  time.Duration(rec.Elapsed) * time.Millisecond,
					Reason:   rec.Reason,
				},
				At: keyTime(k),
			})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read probe history: %w", err)
	}
	return entries, nil
}

// urlKey hashes the URL so bucket names stay short and safe.
func urlKey(url string) []byte {
	sum := sha256.Sum256([]byte(url))
	return []byte(hex.EncodeToString(sum[:16]))
}

// timeKey encodes a timestamp big-endian so cursor order is
// chronological.
func timeKey(at time.Time) []byte {
	var k [8]byte
	binary.BigEndian.PutUint64(k[:], uint64(at.UnixNano()))
	return k[:]
}

func keyTime(k []byte) time.Time {
	if len(k) != 8 {
		return time.Time{}
	}
	return time.Unix(0, int64(binary.BigEndian.Uint64(k)))
}
