package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/riskibarqy/polla/internal/domain/forecast"
	"github.com/riskibarqy/polla/internal/domain/match"
	"github.com/riskibarqy/polla/internal/domain/matchscore"
	"github.com/riskibarqy/polla/internal/domain/pool"
	"github.com/riskibarqy/polla/internal/domain/scoring"
	"github.com/riskibarqy/polla/internal/platform/cache"
	"github.com/riskibarqy/polla/internal/platform/logging"
	"go.opentelemetry.io/otel/attribute"
)

const defaultRankingMaxWorkers = 8

type RankingEntry struct {
	ParticipantID string
	Points        int
	Rank          int
}

type Ranking struct {
	PoolID    string
	PoolState pool.State
	// Definitive is true when the ranking comes from persisted final scores.
	Definitive       bool
	SortedDescending bool
	Entries          []RankingEntry
}

type RankingServiceConfig struct {
	MaxWorkers int
}

type RankingService struct {
	access     poolAccess
	matches    match.Repository
	forecasts  forecast.Repository
	scores     matchscore.Repository
	syncer     MatchScoreSyncer
	rules      scoring.Rules
	definitive *cache.Store[Ranking]
	logger     *logging.Logger
	maxWorkers int
}

// NewRankingService builds the ranking aggregator. definitive may be nil to
// disable memoising finalized rankings.
func NewRankingService(
	pools pool.Repository,
	access pool.AccessRepository,
	matches match.Repository,
	forecasts forecast.Repository,
	scores matchscore.Repository,
	syncer MatchScoreSyncer,
	rules scoring.Rules,
	definitive *cache.Store[Ranking],
	cfg RankingServiceConfig,
	logger *logging.Logger,
) *RankingService {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = defaultRankingMaxWorkers
	}

	return &RankingService{
		access:     poolAccess{pools: pools, access: access},
		matches:    matches,
		forecasts:  forecasts,
		scores:     scores,
		syncer:     syncer,
		rules:      rules,
		definitive: definitive,
		logger:     logger.Named("ranking"),
		maxWorkers: cfg.MaxWorkers,
	}
}

// GetRanking returns the pool leaderboard. Finalized pools are ranked from
// persisted definitive scores; other pools get a provisional ranking computed
// from current match snapshots.
func (s *RankingService) GetRanking(ctx context.Context, poolID, participantID string) (Ranking, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.RankingService.GetRanking", attribute.String("pool_id", poolID))
	defer span.End()

	p, err := s.access.authorize(ctx, poolID, participantID)
	if err != nil {
		return Ranking{}, err
	}

	if p.IsFinalized() {
		return s.definitiveRanking(ctx, p)
	}
	return s.provisionalRanking(ctx, p)
}

func (s *RankingService) definitiveRanking(ctx context.Context, p pool.Pool) (Ranking, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.RankingService.definitiveRanking")
	defer span.End()

	load := func(ctx context.Context) (Ranking, error) {
		rows, err := s.scores.ListByPool(ctx, p.ID)
		if err != nil {
			return Ranking{}, fmt.Errorf("list match scores by pool: %w", err)
		}

		totals := make(map[string]int, len(rows))
		for _, row := range rows {
			if !row.Definitive {
				continue
			}
			totals[row.ParticipantID] += row.Points
		}

		return Ranking{
			PoolID:           p.ID,
			PoolState:        p.State,
			Definitive:       true,
			SortedDescending: true,
			Entries:          buildRankingEntries(totals),
		}, nil
	}

	if s.definitive == nil {
		return load(ctx)
	}

	ranking, err := s.definitive.GetOrLoad(ctx, definitiveRankingCacheKey(p.ID), load)
	if err != nil {
		return Ranking{}, err
	}
	return copyRanking(ranking), nil
}

func (s *RankingService) provisionalRanking(ctx context.Context, p pool.Pool) (Ranking, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.RankingService.provisionalRanking")
	defer span.End()

	matches, err := s.matches.ListByPool(ctx, p.ID)
	if err != nil {
		return Ranking{}, fmt.Errorf("list matches by pool: %w", err)
	}
	forecasts, err := s.forecasts.ListByPool(ctx, p.ID)
	if err != nil {
		return Ranking{}, fmt.Errorf("list forecasts by pool: %w", err)
	}

	views, err := s.syncMatches(ctx, matches)
	if err != nil {
		return Ranking{}, err
	}

	totals := make(map[string]int)
	for _, item := range forecasts {
		if _, ok := totals[item.ParticipantID]; !ok {
			totals[item.ParticipantID] = 0
		}
		view, ok := views[item.MatchID]
		if !ok || !view.IsScorable() {
			continue
		}
		totals[item.ParticipantID] += scoring.Compute(&item.HomeGoals, &item.AwayGoals, view.HomeGoals, view.AwayGoals, s.rules)
	}

	return Ranking{
		PoolID:           p.ID,
		PoolState:        p.State,
		Definitive:       false,
		SortedDescending: true,
		Entries:          buildRankingEntries(totals),
	}, nil
}

// syncMatches brings every match up to date on a bounded worker pool.
func (s *RankingService) syncMatches(ctx context.Context, matches []match.Match) (map[string]MatchScoreView, error) {
	out := make(map[string]MatchScoreView, len(matches))
	if len(matches) == 0 {
		return out, nil
	}

	workerCount := s.maxWorkers
	if workerCount > len(matches) {
		workerCount = len(matches)
	}
	workerPool, err := ants.NewPool(workerCount)
	if err != nil {
		return nil, fmt.Errorf("create ranking worker pool: %w", err)
	}
	defer workerPool.Release()

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		syncErr error
	)
	started := time.Now()
	for _, m := range matches {
		wg.Add(1)
		if err := workerPool.Submit(func() {
			defer wg.Done()

			view, err := s.syncer.SyncMatch(ctx, m)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if syncErr == nil {
					syncErr = fmt.Errorf("sync match=%s: %w", m.ID, err)
				}
				return
			}
			out[m.ID] = view
		}); err != nil {
			wg.Done()
			wg.Wait()
			return nil, fmt.Errorf("submit match sync task: %w", err)
		}
	}
	wg.Wait()

	if syncErr != nil {
		return nil, syncErr
	}

	s.logger.DebugContext(ctx, "provisional ranking matches synced",
		"matches", len(matches),
		"workers", workerCount,
		"duration_ms", time.Since(started).Milliseconds(),
	)
	return out, nil
}

func buildRankingEntries(totals map[string]int) []RankingEntry {
	entries := make([]RankingEntry, 0, len(totals))
	for participantID, points := range totals {
		entries = append(entries, RankingEntry{ParticipantID: participantID, Points: points})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Points != entries[j].Points {
			return entries[i].Points > entries[j].Points
		}
		return entries[i].ParticipantID < entries[j].ParticipantID
	})

	rank := 0
	for i := range entries {
		if i == 0 || entries[i].Points != entries[i-1].Points {
			rank = i + 1
		}
		entries[i].Rank = rank
	}
	return entries
}

func copyRanking(in Ranking) Ranking {
	out := in
	out.Entries = append([]RankingEntry(nil), in.Entries...)
	return out
}

func definitiveRankingCacheKey(poolID string) string {
	return "ranking:definitive:" + poolID
}
