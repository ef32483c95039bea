package postgres

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"

	"github.com/fairyhunter13/ai-excel-interviewer/internal/domain"
)

// SessionRepo persists and loads interview sessions from PostgreSQL. The
// transcript is stored as a JSONB document alongside the session row; it is
// append-only, so writing it wholesale on update keeps insertion order.
type SessionRepo struct{ Pool PgxPool }

// NewSessionRepo constructs a SessionRepo with the given pool.
func NewSessionRepo(p PgxPool) *SessionRepo { return &SessionRepo{Pool: p} }

type transcriptTurn struct {
	Sender    string    `json:"sender"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// Create inserts a new session and returns it with its id assigned.
func (r *SessionRepo) Create(ctx domain.Context, s domain.Session) (domain.Session, error) {
	tracer := otel.Tracer("repo.sessions")
	ctx, span := tracer.Start(ctx, "sessions.Create")
	defer span.End()
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	transcript, err := marshalTranscript(s.Transcript)
	if err != nil {
		return domain.Session{}, fmt.Errorf("op=session.create: %w", err)
	}
	q := `INSERT INTO sessions (id, candidate_email, candidate_name, status, turn_counter, transcript, report, created_at, completed_at)
	      VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`
	_, err = r.Pool.Exec(ctx, q, s.ID, s.CandidateEmail, s.CandidateName, s.Status, s.TurnCounter, transcript, s.Report, s.CreatedAt, s.CompletedAt)
	if err != nil {
		return domain.Session{}, fmt.Errorf("op=session.create: %w", err)
	}
	return s, nil
}

// Get loads a session by id.
func (r *SessionRepo) Get(ctx domain.Context, id string) (domain.Session, error) {
	tracer := otel.Tracer("repo.sessions")
	ctx, span := tracer.Start(ctx, "sessions.Get")
	defer span.End()
	q := `SELECT id, candidate_email, COALESCE(candidate_name,''), status, turn_counter, transcript, COALESCE(report,''), created_at, completed_at FROM sessions WHERE id=$1`
	row := r.Pool.QueryRow(ctx, q, id)
	var s domain.Session
	var transcript []byte
	if err := row.Scan(&s.ID, &s.CandidateEmail, &s.CandidateName, &s.Status, &s.TurnCounter, &transcript, &s.Report, &s.CreatedAt, &s.CompletedAt); err != nil {
		if err == pgx.ErrNoRows {
			return domain.Session{}, fmt.Errorf("op=session.get: %w", domain.ErrNotFound)
		}
		return domain.Session{}, fmt.Errorf("op=session.get: %w", err)
	}
	msgs, err := unmarshalTranscript(transcript)
	if err != nil {
		return domain.Session{}, fmt.Errorf("op=session.get: %w", err)
	}
	s.Transcript = msgs
	return s, nil
}

// Update loads the session, applies mutate, and writes the result back.
// Read-modify-write without row locking: two concurrent updates to the same
// session are last-writer-wins, the documented design gap.
func (r *SessionRepo) Update(ctx domain.Context, id string, mutate func(*domain.Session)) (domain.Session, error) {
	tracer := otel.Tracer("repo.sessions")
	ctx, span := tracer.Start(ctx, "sessions.Update")
	defer span.End()
	s, err := r.Get(ctx, id)
	if err != nil {
		return domain.Session{}, err
	}
	mutate(&s)
	transcript, err := marshalTranscript(s.Transcript)
	if err != nil {
		return domain.Session{}, fmt.Errorf("op=session.update: %w", err)
	}
	q := `UPDATE sessions SET status=$2, turn_counter=$3, transcript=$4, report=$5, completed_at=$6 WHERE id=$1`
	if _, err := r.Pool.Exec(ctx, q, s.ID, s.Status, s.TurnCounter, transcript, s.Report, s.CompletedAt); err != nil {
		return domain.Session{}, fmt.Errorf("op=session.update: %w", err)
	}
	return s, nil
}

func marshalTranscript(msgs []domain.Message) ([]byte, error) {
	turns := make([]transcriptTurn, len(msgs))
	for i, m := range msgs {
		turns[i] = transcriptTurn{Sender: m.Sender, Text: m.Text, CreatedAt: m.CreatedAt}
	}
	return json.Marshal(turns)
}

func unmarshalTranscript(raw []byte) ([]domain.Message, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var turns []transcriptTurn
	if err := json.Unmarshal(raw, &turns); err != nil {
		return nil, err
	}
	msgs := make([]domain.Message, len(turns))
	for i, t := range turns {
		msgs[i] = domain.Message{Sender: t.Sender, Text: t.Text, CreatedAt: t.CreatedAt}
	}
	return msgs, nil
}
