// Package storage keeps a history of training runs in a BoltDB file.
//
// The ledger is append-only history for auditing: every successful run stores its report
// under a key of the form "codec_timestamp_runid". Training never reads it back, so each
// run still starts from the dataset alone.
package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"go.etcd.io/bbolt"
)

const runsBucket = "runs" // Bucket name for run records

// Run is one stored training run.
type Run struct {
	Codec  string          `json:"codec"`
	RunID  string          `json:"run_id"`
	At     time.Time       `json:"at"`
	Report json.RawMessage `json:"report"`
}

// Store provides persistent storage for run records using BoltDB.
type Store struct {
	db *bbolt.DB // BoltDB database instance
}

// New opens or creates the database file at dbPath and makes sure the runs bucket exists.
// The parent directory is created when missing.
func New(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := bbolt.Open(dbPath, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(runsBucket)); err != nil {
			return fmt.Errorf("create runs bucket: %w", err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the database. Closing twice is harmless.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SaveRun stores a report. report must be valid JSON.
func (s *Store) SaveRun(codec, runID string, at time.Time, report []byte) error {
	if codec == "" || runID == "" {
		return fmt.Errorf("run record needs a codec and a run id")
	}
	if !json.Valid(report) {
		return fmt.Errorf("run %s: report is not valid JSON", runID)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(runsBucket))

		data, err := json.Marshal(Run{Codec: codec, RunID: runID, At: at.UTC(), Report: report})
		if err != nil {
			return fmt.Errorf("marshal run: %w", err)
		}

		return b.Put(runKey(codec, at, runID), data)
	})
}

// ListRuns returns stored runs newest first. An empty codec lists every codec.
func (s *Store) ListRuns(codec string) ([]Run, error) {
	var runs []Run

	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(runsBucket))
		c := b.Cursor()

		prefix := []byte(codec + "_")
		k, v := c.First()
		if codec != "" {
			k, v = c.Seek(prefix)
		}

		for ; k != nil; k, v = c.Next() {
			if codec != "" && !bytes.HasPrefix(k, prefix) {
				break
			}

			var run Run
			if err := json.Unmarshal(v, &run); err != nil {
				return fmt.Errorf("decode run %s: %w", k, err)
			}
			// another codec can share the prefix when its name contains an underscore
			if codec != "" && run.Codec != codec {
				continue
			}
			runs = append(runs, run)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(runs, func(a, b int) bool { return runs[a].At.After(runs[b].At) })
	return runs, nil
}

// runKey zero-pads the timestamp so keys of one codec sort chronologically.
func runKey(codec string, at time.Time, runID string) []byte {
	return []byte(fmt.Sprintf("%s_%020d_%s", codec, at.UnixNano(), runID))
}
