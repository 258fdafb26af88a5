package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"promptgen/internal/domain"
	"promptgen/internal/port"
)

var (
	bucketPrompts = []byte("prompts") // model id -> nested bucket of results
	bucketMeta    = []byte("meta")
)

// BoltStore caches verified prompts in a bbolt database. Results are keyed
// by resolved tokenizer id, the SHA-256 of the encoded text and the length.
type BoltStore struct {
	db *bbolt.DB
}

var _ port.PromptCache = (*BoltStore)(nil)

func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketPrompts, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

type promptEntry struct {
	Prompt     string `json:"prompt"`
	TokenCount int    `json:"token_count"`
}

// TextKey returns the hex SHA-256 of text.
func TextKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

func promptKey(text string, length int) []byte {
	return []byte(fmt.Sprintf("%s/%010d", TextKey(text), length))
}

func (s *BoltStore) GetPrompt(modelID, text string, length int) (domain.PromptResult, bool, error) {
	var (
		result domain.PromptResult
		found  bool
	)
	err := s.db.View(func(tx *bbolt.Tx) error {
		models := tx.Bucket(bucketPrompts).Bucket([]byte(modelID))
		if models == nil {
			return nil
		}
		data := models.Get(promptKey(text, length))
		if data == nil {
			return nil
		}
		var e promptEntry
		if err := json.Unmarshal(data, &e); err != nil {
			return fmt.Errorf("decode cached prompt %s/%d: %w", modelID, length, err)
		}
		result = domain.PromptResult{Length: length, Prompt: e.Prompt, TokenCount: e.TokenCount}
		found = true
		return nil
	})
	return result, found, err
}

func (s *BoltStore) PutPrompt(modelID, text string, r domain.PromptResult) error {
	data, err := json.Marshal(promptEntry{Prompt: r.Prompt, TokenCount: r.TokenCount})
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		models, err := tx.Bucket(bucketPrompts).CreateBucketIfNotExists([]byte(modelID))
		if err != nil {
			return err
		}
		return models.Put(promptKey(text, r.Length), data)
	})
}

// ModelStats is the number of cached prompts for one tokenizer.
type ModelStats struct {
	ModelID string
	Prompts int
}

// Stats returns per-tokenizer entry counts, ordered by model id.
func (s *BoltStore) Stats() ([]ModelStats, error) {
	var stats []ModelStats
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketPrompts).ForEach(func(k, v []byte) error {
			if v != nil {
				return nil
			}
			b := tx.Bucket(bucketPrompts).Bucket(k)
			stats = append(stats, ModelStats{ModelID: string(k), Prompts: b.Stats().KeyN})
			return nil
		})
	})
	return stats, err
}

// DeleteModel drops every cached prompt of modelID.
func (s *BoltStore) DeleteModel(modelID string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		err := tx.Bucket(bucketPrompts).DeleteBucket([]byte(modelID))
		if err == bbolt.ErrBucketNotFound {
			return nil
		}
		return err
	})
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
