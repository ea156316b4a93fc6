package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const IdempotencyHeader = "Idempotency-Key"

var (
	ErrIdempotencyConflict   = errors.New("idempotency key conflicts with existing request")
	ErrIdempotencyInProgress = errors.New("idempotency key is held by a request still in flight")
)

// IdempotencyKeys remembers the response of a keyed request so a retry with
// the same key and body replays it instead of creating a second record.
// Reserve claims a key before the work runs; the holder must Save the
// response or Release the claim.
type IdempotencyKeys interface {
	Reserve(ctx context.Context, userID, endpoint, key, requestHash string) (json.RawMessage, bool, error)
	Save(ctx context.Context, userID, endpoint, key, requestHash string, response json.RawMessage) error
	Release(ctx context.Context, userID, endpoint, key string) error
}

func RequestHash(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

type IdempotencyStore struct {
	db *pgxpool.Pool
}

func NewIdempotencyStore(db *pgxpool.Pool) *IdempotencyStore {
	return &IdempotencyStore{db: db}
}

// Reserve inserts a pending row for the key. It reports found with the
// stored response when an earlier request already completed.
func (s *IdempotencyStore) Reserve(ctx context.Context, userID, endpoint, key, requestHash string) (json.RawMessage, bool, error) {
	tag, err := s.db.Exec(ctx, `
    INSERT INTO idempotency_keys (user_id, key, endpoint, request_hash)
    VALUES ($1, $2, $3, $4)
    ON CONFLICT (user_id, key, endpoint) DO NOTHING
  `, userID, key, endpoint, requestHash)
	if err != nil {
		return nil, false, err
	}
	if tag.RowsAffected() == 1 {
		return nil, false, nil
	}

	var storedHash string
	var stored []byte
	err = s.db.QueryRow(ctx, `
    SELECT request_hash, response_json
    FROM idempotency_keys
    WHERE user_id = $1 AND key = $2 AND endpoint = $3
  `, userID, key, endpoint).Scan(&storedHash, &stored)
	if errors.Is(err, pgx.ErrNoRows) {
		// released between the insert and the read
		return nil, false, ErrIdempotencyInProgress
	}
	if err != nil {
		return nil, false, err
	}
	if storedHash != requestHash {
		return nil, false, ErrIdempotencyConflict
	}
	if stored == nil {
		return nil, false, ErrIdempotencyInProgress
	}
	return json.RawMessage(stored), true, nil
}

func (s *IdempotencyStore) Save(ctx context.Context, userID, endpoint, key, requestHash string, response json.RawMessage) error {
	tag, err := s.db.Exec(ctx, `
    UPDATE idempotency_keys
    SET response_json = $5
    WHERE user_id = $1 AND key = $2 AND endpoint = $3 AND request_hash = $4
  `, userID, key, endpoint, requestHash, []byte(response))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrIdempotencyConflict
	}
	return nil
}

func (s *IdempotencyStore) Release(ctx context.Context, userID, endpoint, key string) error {
	_, err := s.db.Exec(ctx, `
    DELETE FROM idempotency_keys
    WHERE user_id = $1 AND key = $2 AND endpoint = $3 AND response_json IS NULL
  `, userID, key, endpoint)
	return err
}

type idempotencyRecord struct {
	hash     string
	response json.RawMessage
}

// MemoryIdempotencyStore keeps keys for the life of the process.
type MemoryIdempotencyStore struct {
	mu      sync.Mutex
	records map[string]idempotencyRecord
}

func NewMemoryIdempotencyStore() *MemoryIdempotencyStore {
	return &MemoryIdempotencyStore{records: map[string]idempotencyRecord{}}
}

func memoryKey(userID, endpoint, key string) string {
	return userID + "\x00" + endpoint + "\x00" + key
}

func (m *MemoryIdempotencyStore) Reserve(_ context.Context, userID, endpoint, key, requestHash string) (json.RawMessage, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := memoryKey(userID, endpoint, key)
	rec, ok := m.records[k]
	if !ok {
		m.records[k] = idempotencyRecord{hash: requestHash}
		return nil, false, nil
	}
	if rec.hash != requestHash {
		return nil, false, ErrIdempotencyConflict
	}
	if rec.response == nil {
		return nil, false, ErrIdempotencyInProgress
	}
	return rec.response, true, nil
}

func (m *MemoryIdempotencyStore) Save(_ context.Context, userID, endpoint, key, requestHash string, response json.RawMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := memoryKey(userID, endpoint, key)
	rec, ok := m.records[k]
	if !ok || rec.hash != requestHash {
		return ErrIdempotencyConflict
	}
	m.records[k] = idempotencyRecord{hash: requestHash, response: response}
	return nil
}

func (m *MemoryIdempotencyStore) Release(_ context.Context, userID, endpoint, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := memoryKey(userID, endpoint, key)
	if rec, ok := m.records[k]; ok && rec.response == nil {
		delete(m.records, k)
	}
	return nil
}
