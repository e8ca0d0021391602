package testutils

import (
	"time"

	"github.com/brianvoe/gofakeit/v7"
)

// TestDataGenerator produces platform-like ids and scores.
type TestDataGenerator struct {
	faker *gofakeit.Faker
	seed  int64
}

// NewTestDataGenerator creates a new test data generator with optional seed
func NewTestDataGenerator(seed ...int64) *TestDataGenerator {
	s := time.Now().UnixNano()
	if len(seed) > 0 {
		s = seed[0]
	}
	return &TestDataGenerator{faker: gofakeit.New(uint64(s)), seed: s}
}

// Seed returns the seed, for reproducing a failure.
func (g *TestDataGenerator) Seed() int64 { return g.seed }

// UserID returns an 18 digit snowflake-like id.
func (g *TestDataGenerator) UserID() string {
	return g.faker.Numerify("1#################")
}

// UserIDs returns n distinct ids.
func (g *TestDataGenerator) UserIDs(n int) []string {
	seen := make(map[string]struct{}, n)
	ids := make([]string, 0, n)
	for len(ids) < n {
		id := g.UserID()
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}

// Score returns a score in [lo, hi].
func (g *TestDataGenerator) Score(lo, hi int) int64 {
	return int64(g.faker.IntRange(lo, hi))
}
