// Package memstore persists long-term memory chunks in a bbolt database
// inside the data directory. Chunks carry a retention tier; scratch and notes
// expire, stable does not.
package memstore

import (
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"

	"voicemirror/internal/domain"
)

var bucketChunks = []byte("chunks")

// Retention tiers.
const (
	TierStable  = "stable"
	TierNotes   = "notes"
	TierScratch = "scratch"
)

var tierTTL = map[string]time.Duration{
	TierStable:  0, // never expires
	TierNotes:   30 * 24 * time.Hour,
	TierScratch: 24 * time.Hour,
}

// Chunk is one stored memory.
type Chunk struct {
	ID        string   `json:"id"`
	Content   string   `json:"content"`
	Tier      string   `json:"tier"`
	Tags      []string `json:"tags,omitempty"`
	CreatedAt int64    `json:"created_at"`
	ExpiresAt int64    `json:"expires_at,omitempty"`
}

// TierStats summarizes one tier for memory_stats.
type TierStats struct {
	Count   int `json:"count"`
	Expired int `json:"expired"`
}

type Store struct {
	db  *bolt.DB
	now func() time.Time
}

func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, domain.E(domain.CodeInternal, "memstore.Open", "", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketChunks)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, domain.E(domain.CodeInternal, "memstore.Open", "", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Remember stores a new chunk. An unknown tier falls back to notes.
func (s *Store) Remember(content, tier string, tags []string) (Chunk, error) {
	ttl, ok := tierTTL[tier]
	if !ok {
		tier = TierNotes
		ttl = tierTTL[TierNotes]
	}
	now := s.now()
	chunk := Chunk{
		ID:        uuid.NewString(),
		Content:   content,
		Tier:      tier,
		Tags:      tags,
		CreatedAt: now.UnixMilli(),
	}
	if ttl > 0 {
		chunk.ExpiresAt = now.Add(ttl).UnixMilli()
	}
	raw, err := json.Marshal(chunk)
	if err != nil {
		return Chunk{}, domain.E(domain.CodeInternal, "memstore.Remember", "", err)
	}
	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketChunks).Put([]byte(chunk.ID), raw)
	})
	if err != nil {
		return Chunk{}, domain.E(domain.CodeInternal, "memstore.Remember", "", err)
	}
	return chunk, nil
}

func (s *Store) Get(id string) (Chunk, error) {
	var chunk Chunk
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(bucketChunks).Get([]byte(id))
		if raw == nil {
			return domain.E(domain.CodeNotFound, "memstore.Get", "no memory with id "+id, nil)
		}
		return json.Unmarshal(raw, &chunk)
	})
	if err != nil {
		return Chunk{}, err
	}
	return chunk, nil
}

func (s *Store) Forget(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketChunks)
		if b.Get([]byte(id)) == nil {
			return domain.E(domain.CodeNotFound, "memstore.Forget", "no memory with id "+id, nil)
		}
		return b.Delete([]byte(id))
	})
}

// ScoredChunk is a search hit with its relevance score.
type ScoredChunk struct {
	Chunk
	Score int `json:"score"`
}

// Search ranks unexpired chunks by how many query terms their content or
// tags contain, case-insensitively.
func (s *Store) Search(query string, limit int) ([]ScoredChunk, error) {
	if limit <= 0 {
		limit = 5
	}
	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		return nil, nil
	}
	now := s.now().UnixMilli()
	var hits []ScoredChunk
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketChunks).ForEach(func(_, raw []byte) error {
			var chunk Chunk
			if err := json.Unmarshal(raw, &chunk); err != nil {
				return nil // skip unreadable entries
			}
			if chunk.ExpiresAt != 0 && chunk.ExpiresAt < now {
				return nil
			}
			haystack := strings.ToLower(chunk.Content + " " + strings.Join(chunk.Tags, " "))
			score := 0
			for _, term := range terms {
				if strings.Contains(haystack, term) {
					score++
				}
			}
			if score > 0 {
				hits = append(hits, ScoredChunk{Chunk: chunk, Score: score})
			}
			return nil
		})
	})
	if err != nil {
		return nil, domain.E(domain.CodeInternal, "memstore.Search", "", err)
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].CreatedAt > hits[j].CreatedAt
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// Stats reports chunk counts per tier, including how many are expired but
// not yet flushed.
func (s *Store) Stats() (map[string]TierStats, error) {
	now := s.now().UnixMilli()
	out := map[string]TierStats{}
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketChunks).ForEach(func(_, raw []byte) error {
			var chunk Chunk
			if err := json.Unmarshal(raw, &chunk); err != nil {
				return nil
			}
			st := out[chunk.Tier]
			st.Count++
			if chunk.ExpiresAt != 0 && chunk.ExpiresAt < now {
				st.Expired++
			}
			out[chunk.Tier] = st
			return nil
		})
	})
	if err != nil {
		return nil, domain.E(domain.CodeInternal, "memstore.Stats", "", err)
	}
	return out, nil
}

// Flush deletes expired chunks, or every chunk when all is set. Returns how
// many were removed.
func (s *Store) Flush(all bool) (int, error) {
	now := s.now().UnixMilli()
	removed := 0
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketChunks)
		var doomed [][]byte
		err := b.ForEach(func(k, raw []byte) error {
			if all {
				doomed = append(doomed, append([]byte(nil), k...))
				return nil
			}
			var chunk Chunk
			if err := json.Unmarshal(raw, &chunk); err != nil {
				doomed = append(doomed, append([]byte(nil), k...))
				return nil
			}
			if chunk.ExpiresAt != 0 && chunk.ExpiresAt < now {
				doomed = append(doomed, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, k := range doomed {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		removed = len(doomed)
		return nil
	})
	if err != nil {
		return 0, domain.E(domain.CodeInternal, "memstore.Flush", "", err)
	}
	return removed, nil
}
