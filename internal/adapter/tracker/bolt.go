// Package tracker persists per-file fingerprints in a bbolt database so
// ingestion runs can skip unchanged files.
package tracker

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.etcd.io/bbolt"

	"kbase/internal/domain"
)

var bucketFingerprints = []byte("fingerprints")

type BoltTracker struct {
	db *bbolt.DB
}

// NewBoltTracker opens (creating on first run) the fingerprint database at
// the given path.
func NewBoltTracker(path string) (*BoltTracker, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("%w: create tracker directory: %v", domain.ErrTracker, err)
		}
	}

	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", domain.ErrTracker, path, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketFingerprints)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: create bucket: %v", domain.ErrTracker, err)
	}

	return &BoltTracker{db: db}, nil
}

// Unchanged reports whether the file still matches its recorded fingerprint.
// Equal modification time is trusted as a fast path; otherwise the content
// hash decides, so a rewritten-but-identical file is still unchanged.
func (t *BoltTracker) Unchanged(path string) (bool, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false, fmt.Errorf("%w: %v", domain.ErrTracker, err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return false, fmt.Errorf("%w: stat %s: %v", domain.ErrTracker, abs, err)
	}

	fp, found, err := t.get(abs)
	if err != nil {
		return false, err
	}
	if !found {
		return false, nil
	}

	if fp.ModTime == info.ModTime().Unix() {
		return true, nil
	}

	hash, err := hashFile(abs)
	if err != nil {
		return false, fmt.Errorf("%w: hash %s: %v", domain.ErrTracker, abs, err)
	}
	return hash == fp.Hash, nil
}

// Record persists the file's current fingerprint. Call only after the file's
// chunks are durably upserted.
func (t *BoltTracker) Record(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrTracker, err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return fmt.Errorf("%w: stat %s: %v", domain.ErrTracker, abs, err)
	}

	hash, err := hashFile(abs)
	if err != nil {
		return fmt.Errorf("%w: hash %s: %v", domain.ErrTracker, abs, err)
	}

	fp := domain.Fingerprint{
		Path:    abs,
		ModTime: info.ModTime().Unix(),
		Hash:    hash,
	}
	data, err := json.Marshal(fp)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrTracker, err)
	}

	err = t.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketFingerprints).Put([]byte(abs), data)
	})
	if err != nil {
		return fmt.Errorf("%w: persist fingerprint for %s: %v", domain.ErrTracker, abs, err)
	}
	return nil
}

// Clear drops all fingerprints, forcing full re-ingestion on the next run.
func (t *BoltTracker) Clear() error {
	err := t.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket(bucketFingerprints); err != nil {
			return err
		}
		_, err := tx.CreateBucket(bucketFingerprints)
		return err
	})
	if err != nil {
		return fmt.Errorf("%w: clear fingerprints: %v", domain.ErrTracker, err)
	}
	return nil
}

func (t *BoltTracker) Close() error {
	return t.db.Close()
}

func (t *BoltTracker) get(abs string) (domain.Fingerprint, bool, error) {
	var fp domain.Fingerprint
	var found bool

	err := t.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketFingerprints).Get([]byte(abs))
		if data == nil {
			return nil
		}
		found = true
		return json.Unmarshal(data, &fp)
	})
	if err != nil {
		return domain.Fingerprint{}, false, fmt.Errorf("%w: read fingerprint for %s: %v", domain.ErrTracker, abs, err)
	}
	return fp, found, nil
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
