package sim

import (
	"fmt"
	"hash/fnv"
	"math/rand"
)

// SimulationKey is the seed of a run. The same key and configuration
// reproduce the same instance and the same stochastic decisions.
type SimulationKey int64

// NewSimulationKey creates a SimulationKey from a seed value.
func NewSimulationKey(seed int64) SimulationKey {
	return SimulationKey(seed)
}

// Names of the random streams a run draws from.
const (
	// SubsystemInstance feeds the instance generator. It is seeded with the
	// run seed itself, so a generator spec and --seed agree on the instance.
	SubsystemInstance = "instance"

	// SubsystemPolicy feeds the random policy during the first episode.
	SubsystemPolicy = "policy"
)

// SubsystemEpisode names the policy stream of the n-th repeated episode on
// one instance.
func SubsystemEpisode(n int) string {
	return fmt.Sprintf("episode_%d", n)
}

// PartitionedRNG hands out one *rand.Rand per named stream. Draws on one
// stream never shift another, so generating a larger instance does not change
// which requests the random policy picks.
//
// Streams other than SubsystemInstance are seeded with the key XOR the
// FNV-1a hash of their name. Not safe for concurrent use.
type PartitionedRNG struct {
	key     SimulationKey
	streams map[string]*rand.Rand
}

// NewPartitionedRNG creates a PartitionedRNG from a SimulationKey.
func NewPartitionedRNG(key SimulationKey) *PartitionedRNG {
	return &PartitionedRNG{key: key, streams: make(map[string]*rand.Rand)}
}

// ForSubsystem returns the stream called name, creating it on first use.
func (p *PartitionedRNG) ForSubsystem(name string) *rand.Rand {
	rng, ok := p.streams[name]
	if !ok {
		rng = rand.New(rand.NewSource(p.seedFor(name)))
		p.streams[name] = rng
	}
	return rng
}

func (p *PartitionedRNG) seedFor(name string) int64 {
	if name == SubsystemInstance {
		return int64(p.key)
	}
	return int64(p.key) ^ streamHash(name)
}

func streamHash(name string) int64 {
	h := fnv.New64a()
	h.Write([]byte(name))
	return int64(h.Sum64())
}
