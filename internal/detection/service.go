// Package detection implements the simulated deepfake scanner: scoring,
// marker generation, scan history with first-use sample data, and dashboard
// statistics.
package detection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"strings"
	"sync"
	"time"

	"deepfake-guard/internal/latency"
	"deepfake-guard/internal/model"
	"github.com/google/uuid"
)

// SeedCount is the number of sample scans created on the first history read
// against an empty repository.
const SeedCount = 10

// ScanRepository persists immutable scan results. ScansByUser returns newest
// first.
type ScanRepository interface {
	InsertScan(ctx context.Context, scan model.ScanResult) error
	CountScans(ctx context.Context) (int, error)
	ScanByID(ctx context.Context, id string) (model.ScanResult, error)
	ScansByUser(ctx context.Context, userID string) ([]model.ScanResult, error)
}

// Notifier is told about every scan the service completes.
type Notifier interface {
	ScanCompleted(scan model.ScanResult)
}

type Options struct {
	Scorer   Scorer
	Latency  *latency.Range
	Notifier Notifier
	Logger   *slog.Logger
	// Seed drives marker selection, regions, processing time and sample data.
	// Zero picks a time-based seed.
	Seed int64
	Now  func() time.Time
}

type Service struct {
	repo     ScanRepository
	scorer   Scorer
	latency  *latency.Range
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time

	// writeMu makes the empty-check and seeding atomic with respect to inserts.
	writeMu sync.Mutex

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewService(repo ScanRepository, opts Options) *Service {
	seed := opts.Seed
	if seed == 0 {
		seed = defaultSeed()
	}
	scorer := opts.Scorer
	if scorer == nil {
		scorer = NewRandomScorer(seed + 1)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		repo:     repo,
		scorer:   scorer,
		latency:  opts.Latency,
		notifier: opts.Notifier,
		logger:   logger.With("component", "detection"),
		now:      now,
		rnd:      rand.New(rand.NewSource(seed)),
	}
}

// ScanContent runs a simulated analysis of content and stores the result.
func (s *Service) ScanContent(ctx context.Context, userID string, ct model.ContentType, content string) (model.ScanResult, error) {
	if userID == "" {
		return model.ScanResult{}, fmt.Errorf("%w: user id", model.ErrMissingInput)
	}
	if !ct.Valid() {
		return model.ScanResult{}, fmt.Errorf("%w: %q", model.ErrUnsupportedContentType, ct)
	}
	if strings.TrimSpace(content) == "" {
		return model.ScanResult{}, fmt.Errorf("%w: content", model.ErrMissingInput)
	}

	if err := s.latency.Wait(ctx); err != nil {
		return model.ScanResult{}, err
	}

	scan, err := s.buildScan(ctx, userID, ct, content, s.now())
	if err != nil {
		return model.ScanResult{}, err
	}

	s.writeMu.Lock()
	err = s.repo.InsertScan(ctx, scan)
	s.writeMu.Unlock()
	if err != nil {
		return model.ScanResult{}, fmt.Errorf("%w: store scan: %v", model.ErrOperationFailed, err)
	}

	s.logger.Info("scan completed",
		"scan_id", scan.ID,
		"user_id", userID,
		"content_type", string(ct),
		"confidence", scan.ConfidenceScore,
		"deepfake", scan.IsDeepfake,
	)
	if s.notifier != nil {
		s.notifier.ScanCompleted(scan)
	}
	return scan, nil
}

// ScanHistory returns the user's scans newest first. The first call against an
// empty repository seeds SeedCount sample scans owned by the caller.
func (s *Service) ScanHistory(ctx context.Context, userID string) ([]model.ScanResult, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id", model.ErrMissingInput)
	}
	if err := s.latency.Wait(ctx); err != nil {
		return nil, err
	}
	if err := s.seedIfEmpty(ctx, userID); err != nil {
		return nil, err
	}

	scans, err := s.repo.ScansByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: list scans: %v", model.ErrOperationFailed, err)
	}
	return scans, nil
}

// ScanResult returns one of the user's scans. Scans owned by someone else are
// reported as not found.
func (s *Service) ScanResult(ctx context.Context, userID, scanID string) (model.ScanResult, error) {
	if err := s.latency.Wait(ctx); err != nil {
		return model.ScanResult{}, err
	}
	scan, err := s.repo.ScanByID(ctx, scanID)
	if errors.Is(err, model.ErrNotFound) {
		return model.ScanResult{}, model.ErrNotFound
	}
	if err != nil {
		return model.ScanResult{}, fmt.Errorf("%w: get scan: %v", model.ErrOperationFailed, err)
	}
	if scan.UserID != userID {
		return model.ScanResult{}, model.ErrNotFound
	}
	return scan, nil
}

func (s *Service) Stats(ctx context.Context, userID string) (model.Stats, error) {
	scans, err := s.ScanHistory(ctx, userID)
	if err != nil {
		return model.Stats{}, err
	}
	return Summarize(scans), nil
}

// Summarize aggregates an already-sorted (newest first) history.
func Summarize(scans []model.ScanResult) model.Stats {
	st := model.Stats{
		TotalScans:    len(scans),
		ByContentType: make(map[model.ContentType]model.VerdictCounts, len(model.ContentTypes)),
	}
	for _, ct := range model.ContentTypes {
		st.ByContentType[ct] = model.VerdictCounts{}
	}
	for _, scan := range scans {
		counts := st.ByContentType[scan.ContentType]
		if scan.IsDeepfake {
			st.DeepfakesDetected++
			counts.Deepfake++
		} else {
			counts.Authentic++
		}
		st.ByContentType[scan.ContentType] = counts
	}
	if st.TotalScans > 0 {
		st.DeepfakePercentage = float64(st.DeepfakesDetected) / float64(st.TotalScans) * 100
		last := scans[0].ScanDate
		st.LastScan = &last
	}
	return st
}

func (s *Service) buildScan(ctx context.Context, userID string, ct model.ContentType, content string, at time.Time) (model.ScanResult, error) {
	score, err := s.scorer.Score(ctx, ct, content)
	if err != nil {
		return model.ScanResult{}, fmt.Errorf("%w: score: %v", model.ErrOperationFailed, err)
	}
	if math.IsNaN(score) || score < 0 || score > 100 {
		return model.ScanResult{}, fmt.Errorf("%w: score %v out of range", model.ErrOperationFailed, score)
	}

	s.rndMu.Lock()
	processing := int64(s.rnd.Intn(2000) + 1000)
	s.rndMu.Unlock()

	return model.ScanResult{
		ID:               uuid.NewString(),
		UserID:           userID,
		ContentType:      ct,
		OriginalContent:  content,
		ScanDate:         at,
		IsDeepfake:       score > 50,
		ConfidenceScore:  score,
		DetectedMarkers:  s.generateMarkers(ct, score),
		ProcessingTimeMs: processing,
	}, nil
}

func (s *Service) seedIfEmpty(ctx context.Context, userID string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	n, err := s.repo.CountScans(ctx)
	if err != nil {
		return fmt.Errorf("%w: count scans: %v", model.ErrOperationFailed, err)
	}
	if n > 0 {
		return nil
	}

	now := s.now()
	for i := 0; i < SeedCount; i++ {
		s.rndMu.Lock()
		ct := model.ContentTypes[s.rnd.Intn(len(model.ContentTypes))]
		content := sampleContent(ct, s.rnd)
		daysAgo := s.rnd.Intn(30)
		s.rndMu.Unlock()

		scan, err := s.buildScan(ctx, userID, ct, content, now.AddDate(0, 0, -daysAgo))
		if err != nil {
			return err
		}
		if err := s.repo.InsertScan(ctx, scan); err != nil {
			return fmt.Errorf("%w: seed scan: %v", model.ErrOperationFailed, err)
		}
	}
	s.logger.Info("seeded sample scan history", "user_id", userID, "count", SeedCount)
	return nil
}

func sampleContent(ct model.ContentType, rnd *rand.Rand) string {
	switch ct {
	case model.ContentImage:
		return fmt.Sprintf("https://picsum.photos/id/%d/500/300", rnd.Intn(100))
	case model.ContentVideo:
		return "https://example.com/sample-video.mp4"
	case model.ContentAudio:
		return "https://example.com/sample-audio.mp3"
	default:
		return "Lorem ipsum dolor sit amet, consectetur adipiscing elit. Nullam auctor felis et lorem."
	}
}
