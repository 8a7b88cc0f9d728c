package postgres

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/riskibarqy/polla/internal/domain/forecast"
	"github.com/riskibarqy/polla/internal/domain/match"
	"github.com/riskibarqy/polla/internal/domain/matchscore"
	"github.com/riskibarqy/polla/internal/domain/pool"
)

// openTestDB applies the migrations to POLLA_TEST_DB_URL and returns a handle.
// The database is expected to be disposable.
func openTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	dbURL := strings.TrimSpace(os.Getenv("POLLA_TEST_DB_URL"))
	if dbURL == "" {
		t.Skip("POLLA_TEST_DB_URL is not set")
	}

	migrationsDir, err := filepath.Abs(filepath.Join("..", "..", "..", "..", "db", "migrations"))
	if err != nil {
		t.Fatalf("resolve migrations dir: %v", err)
	}
	m, err := migrate.New("file://"+filepath.ToSlash(migrationsDir), dbURL)
	if err != nil {
		t.Fatalf("create migrator: %v", err)
	}
	if err := m.Drop(); err != nil {
		t.Fatalf("drop schema: %v", err)
	}
	srcErr, dbErr := m.Close()
	if srcErr != nil || dbErr != nil {
		t.Fatalf("close migrator: %v %v", srcErr, dbErr)
	}

	m, err = migrate.New("file://"+filepath.ToSlash(migrationsDir), dbURL)
	if err != nil {
		t.Fatalf("recreate migrator: %v", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		t.Fatalf("apply migrations: %v", err)
	}
	_, _ = m.Close()

	db, err := sqlx.Open("postgres", dbURL)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func seedIntegrationPool(t *testing.T, db *sqlx.DB) {
	t.Helper()

	ctx := context.Background()
	kickoff := time.Now().Add(-2 * time.Hour).UTC()
	statements := []struct {
		query string
		args  []any
	}{
		{
			query: `INSERT INTO pools (public_id, name, creator_id, starts_at, entry_fee, state) VALUES ($1, $2, $3, $4, $5, $6)`,
			args:  []any{"pool-it", "Integration pool", "creator", kickoff, "12.50", "CLOSED"},
		},
		{
			query: `INSERT INTO pool_participants (pool_id, participant_id, status) VALUES ($1, $2, 'ACCEPTED'), ($1, $3, 'PENDING')`,
			args:  []any{"pool-it", "accepted", "pending"},
		},
		{
			query: `INSERT INTO matches (public_id, pool_id, external_id, home_team, away_team, scheduled_at, status_short) VALUES ($1, $2, $3, $4, $5, $6, 'NS')`,
			args:  []any{"match-it", "pool-it", "1489369", "Mexico", "South Africa", kickoff},
		},
	}
	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt.query, stmt.args...); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
}

func TestPostgresRepositories_Integration(t *testing.T) {
	db := openTestDB(t)
	seedIntegrationPool(t, db)
	ctx := context.Background()

	pools := NewPoolRepository(db)
	access := NewPoolAccessRepository(db)
	matches := NewMatchRepository(db)
	forecasts := NewForecastRepository(db)
	scores := NewMatchScoreRepository(db)

	t.Run("pool read and access", func(t *testing.T) {
		p, ok, err := pools.GetByID(ctx, "pool-it")
		if err != nil || !ok {
			t.Fatalf("get pool: ok=%v err=%v", ok, err)
		}
		if p.State != pool.StateClosed || p.EntryFee.String() != "12.5" {
			t.Fatalf("unexpected pool: %+v", p)
		}

		for participant, want := range map[string]bool{"creator": true, "accepted": true, "pending": false, "stranger": false} {
			got, err := access.IsCreatorOrAcceptedParticipant(ctx, "pool-it", participant)
			if err != nil {
				t.Fatalf("check access for %s: %v", participant, err)
			}
			if got != want {
				t.Fatalf("access for %s: got=%v want=%v", participant, got, want)
			}
		}
	})

	t.Run("finalized match is immutable", func(t *testing.T) {
		m, ok, err := matches.GetByID(ctx, "match-it")
		if err != nil || !ok {
			t.Fatalf("get match: ok=%v err=%v", ok, err)
		}

		home, away := 2, 1
		next, err := m.ApplyProviderState(match.ProviderState{StatusShort: "FT", StatusLong: "Match Finished", HomeGoals: &home, AwayGoals: &away}, time.Now())
		if err != nil {
			t.Fatalf("apply provider state: %v", err)
		}
		saved, err := matches.SaveSyncedState(ctx, next)
		if err != nil || !saved {
			t.Fatalf("save finalized match: saved=%v err=%v", saved, err)
		}

		other := 5
		overwrite := next
		overwrite.HomeGoals = &other
		saved, err = matches.SaveSyncedState(ctx, overwrite)
		if err != nil {
			t.Fatalf("save over finalized match: %v", err)
		}
		if saved {
			t.Fatalf("finalized match must not be overwritten")
		}

		stored, _, _ := matches.GetByID(ctx, "match-it")
		if !stored.Finalized || *stored.HomeGoals != 2 {
			t.Fatalf("unexpected stored match: %+v", stored)
		}
	})

	t.Run("forecast upsert keeps identity", func(t *testing.T) {
		now := time.Now().UTC()
		first, err := forecasts.Upsert(ctx, forecast.Forecast{ID: "fc-it-1", PoolID: "pool-it", MatchID: "match-it", ParticipantID: "accepted", HomeGoals: 1, AwayGoals: 0, SubmittedAt: now, UpdatedAt: now})
		if err != nil {
			t.Fatalf("insert forecast: %v", err)
		}
		second, err := forecasts.Upsert(ctx, forecast.Forecast{ID: "fc-it-2", PoolID: "pool-it", MatchID: "match-it", ParticipantID: "accepted", HomeGoals: 2, AwayGoals: 1, SubmittedAt: now, UpdatedAt: now})
		if err != nil {
			t.Fatalf("replace forecast: %v", err)
		}
		if second.ID != first.ID || second.HomeGoals != 2 {
			t.Fatalf("expected in-place replace: first=%+v second=%+v", first, second)
		}
		if err := forecasts.SetLegacyPoints(ctx, "match-it", "accepted", 6); err != nil {
			t.Fatalf("set legacy points: %v", err)
		}
		items, err := forecasts.ListByPool(ctx, "pool-it")
		if err != nil || len(items) != 1 || items[0].Points == nil || *items[0].Points != 6 {
			t.Fatalf("unexpected forecasts: %+v err=%v", items, err)
		}
	})

	t.Run("match score upsert is idempotent", func(t *testing.T) {
		row := matchscore.MatchScore{MatchID: "match-it", PoolID: "pool-it", ParticipantID: "accepted", Points: 6, Definitive: true, CalculatedAt: time.Now()}
		for i := 0; i < 2; i++ {
			if err := scores.Upsert(ctx, row); err != nil {
				t.Fatalf("upsert match score: %v", err)
			}
		}
		rows, err := scores.ListByPool(ctx, "pool-it")
		if err != nil || len(rows) != 1 || rows[0].Points != 6 || !rows[0].Definitive {
			t.Fatalf("unexpected match scores: %+v err=%v", rows, err)
		}
	})

	t.Run("pool finalizes once", func(t *testing.T) {
		first, err := pools.MarkFinalized(ctx, "pool-it")
		if err != nil || !first {
			t.Fatalf("first finalize: transitioned=%v err=%v", first, err)
		}
		second, err := pools.MarkFinalized(ctx, "pool-it")
		if err != nil || second {
			t.Fatalf("second finalize: transitioned=%v err=%v", second, err)
		}
		moved, err := pools.UpdateState(ctx, "pool-it", pool.StateClosed, pool.StateOpen)
		if err != nil || moved {
			t.Fatalf("stale state update must not apply: moved=%v err=%v", moved, err)
		}
	})
}
