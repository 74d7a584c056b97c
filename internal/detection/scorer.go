package detection

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"deepfake-guard/internal/model"
)

// Scorer produces a confidence score in [0, 100] that content is synthetic.
type Scorer interface {
	Score(ctx context.Context, ct model.ContentType, content string) (float64, error)
}

// typeFactor caps each content type's score range: image 0-80, video 0-90,
// audio 0-70, text 0-60.
var typeFactor = map[model.ContentType]float64{
	model.ContentImage: 0.8,
	model.ContentVideo: 0.9,
	model.ContentAudio: 0.7,
	model.ContentText:  0.6,
}

// RandomScorer samples uniformly and scales by the content type's factor.
type RandomScorer struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func NewRandomScorer(seed int64) *RandomScorer {
	return &RandomScorer{rnd: rand.New(rand.NewSource(seed))}
}

func (r *RandomScorer) Score(_ context.Context, ct model.ContentType, _ string) (float64, error) {
	factor, ok := typeFactor[ct]
	if !ok {
		factor = 1
	}
	r.mu.Lock()
	base := r.rnd.Float64() * 100
	r.mu.Unlock()
	return base * factor, nil
}

// FixedScorer always returns the same score.
type FixedScorer float64

func (f FixedScorer) Score(context.Context, model.ContentType, string) (float64, error) {
	return float64(f), nil
}

func defaultSeed() int64 { return time.Now().UnixNano() }
