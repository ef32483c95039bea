package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/ai-excel-interviewer/internal/adapter/repo/postgres"
	"github.com/fairyhunter13/ai-excel-interviewer/internal/domain"
)

type mockPool struct{ mock.Mock }

func (m *mockPool) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	called := m.Called(ctx, sql, args)
	return called.Get(0).(pgconn.CommandTag), called.Error(1)
}

func (m *mockPool) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	called := m.Called(ctx, sql, args)
	return called.Get(0).(pgx.Row)
}

// fakeRow scripts a pgx.Row scan.
type fakeRow struct {
	err  error
	scan func(dest ...any) error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	return r.scan(dest...)
}

func TestSessionRepo_Create(t *testing.T) {
	t.Parallel()
	pool := &mockPool{}
	repo := postgres.NewSessionRepo(pool)
	ctx := context.Background()

	pool.On("Exec", mock.Anything, mock.Anything, mock.Anything).Return(pgconn.CommandTag{}, nil).Once()

	created, err := repo.Create(ctx, domain.Session{CandidateEmail: "a@x.com", Status: domain.SessionActive})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.False(t, created.CreatedAt.IsZero())
	pool.AssertExpectations(t)
}

func TestSessionRepo_Create_DBError(t *testing.T) {
	t.Parallel()
	pool := &mockPool{}
	repo := postgres.NewSessionRepo(pool)

	pool.On("Exec", mock.Anything, mock.Anything, mock.Anything).Return(pgconn.CommandTag{}, assert.AnError).Once()

	_, err := repo.Create(context.Background(), domain.Session{CandidateEmail: "a@x.com"})
	require.Error(t, err)
}

func TestSessionRepo_Get_NotFound(t *testing.T) {
	t.Parallel()
	pool := &mockPool{}
	repo := postgres.NewSessionRepo(pool)

	pool.On("QueryRow", mock.Anything, mock.Anything, mock.Anything).Return(fakeRow{err: pgx.ErrNoRows}).Once()

	_, err := repo.Get(context.Background(), "missing")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSessionRepo_Update_PersistsMutation(t *testing.T) {
	t.Parallel()
	pool := &mockPool{}
	repo := postgres.NewSessionRepo(pool)
	ctx := context.Background()

	created := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	pool.On("QueryRow", mock.Anything, mock.Anything, mock.Anything).Return(fakeRow{scan: func(dest ...any) error {
		*dest[0].(*string) = "s1"
		*dest[1].(*string) = "a@x.com"
		*dest[2].(*string) = "Alex"
		*dest[3].(*domain.SessionStatus) = domain.SessionActive
		*dest[4].(*int) = 1
		*dest[5].(*[]byte) = []byte(`[{"sender":"interviewer","text":"welcome","created_at":"2025-06-01T09:00:00Z"}]`)
		*dest[6].(*string) = ""
		*dest[7].(*time.Time) = created
		*dest[8].(**time.Time) = nil
		return nil
	}}).Once()
	pool.On("Exec", mock.Anything, mock.Anything, mock.Anything).Return(pgconn.CommandTag{}, nil).Once()

	updated, err := repo.Update(ctx, "s1", func(s *domain.Session) {
		s.TurnCounter++
		s.Append(domain.SenderCandidate, "answer", created.Add(time.Minute))
	})
	require.NoError(t, err)
	assert.Equal(t, 2, updated.TurnCounter)
	require.Len(t, updated.Transcript, 2)
	assert.Equal(t, "welcome", updated.Transcript[0].Text)
	pool.AssertExpectations(t)
}

func TestSessionRepo_Update_NotFoundSkipsWrite(t *testing.T) {
	t.Parallel()
	pool := &mockPool{}
	repo := postgres.NewSessionRepo(pool)

	pool.On("QueryRow", mock.Anything, mock.Anything, mock.Anything).Return(fakeRow{err: pgx.ErrNoRows}).Once()

	_, err := repo.Update(context.Background(), "missing", func(*domain.Session) {})
	require.ErrorIs(t, err, domain.ErrNotFound)
	pool.AssertNotCalled(t, "Exec", mock.Anything, mock.Anything, mock.Anything)
}
