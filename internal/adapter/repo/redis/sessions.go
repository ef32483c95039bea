// Package redis provides a Redis-backed session store, selected when
// REDIS_URL is configured. Each session is stored as one JSON blob under
// session:{id}; keys never expire, matching the no-eviction contract of the
// in-memory store.
package redis

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/fairyhunter13/ai-excel-interviewer/internal/domain"
)

const keyPrefix = "session:"

// SessionRepo persists sessions in Redis.
type SessionRepo struct {
	rdb goredis.UniversalClient
}

// NewSessionRepo constructs a SessionRepo over the given client.
func NewSessionRepo(rdb goredis.UniversalClient) *SessionRepo {
	return &SessionRepo{rdb: rdb}
}

// storedSession is the JSON wire shape of a session at rest.
type storedSession struct {
	ID             string       `json:"id"`
	CandidateEmail string       `json:"candidate_email"`
	CandidateName  string       `json:"candidate_name,omitempty"`
	Status         string       `json:"status"`
	TurnCounter    int          `json:"turn_counter"`
	Transcript     []storedTurn `json:"transcript"`
	Report         string       `json:"report,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
	CompletedAt    *time.Time   `json:"completed_at,omitempty"`
}

type storedTurn struct {
	Sender    string    `json:"sender"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// Create allocates an id, stores the session, and returns it.
func (r *SessionRepo) Create(ctx domain.Context, s domain.Session) (domain.Session, error) {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	if err := r.put(ctx, s); err != nil {
		return domain.Session{}, fmt.Errorf("op=session.create: %w", err)
	}
	return s, nil
}

// Get loads a session by id or fails with ErrNotFound.
func (r *SessionRepo) Get(ctx domain.Context, id string) (domain.Session, error) {
	raw, err := r.rdb.Get(ctx, keyPrefix+id).Result()
	if err == goredis.Nil {
		return domain.Session{}, fmt.Errorf("op=session.get id=%s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Session{}, fmt.Errorf("op=session.get: %w", err)
	}
	var stored storedSession
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return domain.Session{}, fmt.Errorf("op=session.get decode: %w", err)
	}
	return fromStored(stored), nil
}

// Update is a read-modify-write: it loads the session, applies mutate, and
// stores the result. Concurrent updates to the same session are last-writer-
// wins, mirroring the in-memory store's documented race.
func (r *SessionRepo) Update(ctx domain.Context, id string, mutate func(*domain.Session)) (domain.Session, error) {
	s, err := r.Get(ctx, id)
	if err != nil {
		return domain.Session{}, err
	}
	mutate(&s)
	if err := r.put(ctx, s); err != nil {
		return domain.Session{}, fmt.Errorf("op=session.update: %w", err)
	}
	return s, nil
}

func (r *SessionRepo) put(ctx domain.Context, s domain.Session) error {
	b, err := json.Marshal(toStored(s))
	if err != nil {
		return err
	}
	return r.rdb.Set(ctx, keyPrefix+s.ID, b, 0).Err()
}

func toStored(s domain.Session) storedSession {
	out := storedSession{
		ID:             s.ID,
		CandidateEmail: s.CandidateEmail,
		CandidateName:  s.CandidateName,
		Status:         string(s.Status),
		TurnCounter:    s.TurnCounter,
		Report:         s.Report,
		CreatedAt:      s.CreatedAt,
		CompletedAt:    s.CompletedAt,
	}
	out.Transcript = make([]storedTurn, len(s.Transcript))
	for i, m := range s.Transcript {
		out.Transcript[i] = storedTurn{Sender: m.Sender, Text: m.Text, CreatedAt: m.CreatedAt}
	}
	return out
}

func fromStored(s storedSession) domain.Session {
	out := domain.Session{
		ID:             s.ID,
		CandidateEmail: s.CandidateEmail,
		CandidateName:  s.CandidateName,
		Status:         domain.SessionStatus(s.Status),
		TurnCounter:    s.TurnCounter,
		Report:         s.Report,
		CreatedAt:      s.CreatedAt,
		CompletedAt:    s.CompletedAt,
	}
	out.Transcript = make([]domain.Message, len(s.Transcript))
	for i, m := range s.Transcript {
		out.Transcript[i] = domain.Message{Sender: m.Sender, Text: m.Text, CreatedAt: m.CreatedAt}
	}
	return out
}
