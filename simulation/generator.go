package simulation

import (
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/Tushar4059x/the-hive-project/eventstore"
)

const geoJitter = 0.01

// Generator produces event fields for personas. It is safe for concurrent use.
type Generator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewGenerator creates a Generator; equal seeds produce equal sequences.
func NewGenerator(seed uint64) *Generator {
	return &Generator{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Generate returns the ingest fields of one event of p, in the shape agents post to the feed.
func (g *Generator) Generate(p Persona) map[string]any {
	g.mu.Lock()
	defer g.mu.Unlock()

	level := g.level(p.LevelWeights)

	return map[string]any{
		eventstore.FieldAgentID:      p.ID,
		eventstore.FieldLevel:        string(level),
		eventstore.FieldMessage:      pick(g.rng, p.Messages),
		eventstore.FieldStrategyName: pick(g.rng, p.Strategies),
		eventstore.FieldHashrate:     fmt.Sprintf("%d TH/s", p.HashrateBase+g.intBetween(-p.HashrateVar, p.HashrateVar)),
		eventstore.FieldPayload: map[string]any{
			"status": "active",
			"cores":  g.intBetween(4, 64),
			"color":  p.Color,
			"geo": map[string]any{
				"lat": p.Home.Lat + g.floatBetween(-geoJitter, geoJitter),
				"lng": p.Home.Lng + g.floatBetween(-geoJitter, geoJitter),
			},
			"visuals": map[string]any{
				"threat_level": g.intBetween(p.Threat.Min, p.Threat.Max),
				"power_usage":  g.intBetween(60, 100),
				"network_load": g.intBetween(20, 90),
				"pulse":        level == eventstore.LevelCritical,
			},
		},
	}
}

// level draws a level according to weights. All-zero weights yield INFO.
func (g *Generator) level(weights [5]float64) eventstore.Level {
	total := 0.0
	for _, w := range weights {
		total += max(w, 0)
	}

	if total == 0 {
		return eventstore.LevelInfo
	}

	r := g.rng.Float64() * total
	for i, w := range weights {
		r -= max(w, 0)
		if r < 0 {
			return levelOrder[i]
		}
	}

	return levelOrder[len(levelOrder)-1]
}

// intBetween returns a uniform int in [lo, hi].
func (g *Generator) intBetween(lo, hi int) int {
	if hi <= lo {
		return lo
	}

	return lo + g.rng.IntN(hi-lo+1)
}

func (g *Generator) floatBetween(lo, hi float64) float64 {
	return lo + g.rng.Float64()*(hi-lo)
}

// Interval returns a uniform duration in [lo, hi].
func (g *Generator) Interval(lo, hi time.Duration) time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()

	if hi <= lo {
		return lo
	}

	return lo + time.Duration(g.rng.Int64N(int64(hi-lo)+1))
}

func pick(rng *rand.Rand, options []string) string {
	if len(options) == 0 {
		return ""
	}

	return options[rng.IntN(len(options))]
}
