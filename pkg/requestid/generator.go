package requestid

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strconv"
	"sync"
	"time"
)

const (
	DefaultLength = 16
	charset       = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// Generator generates request identifiers
type Generator interface {
	Generate() (string, error)
}

// RandomGenerator generates random alphanumeric ids
type RandomGenerator struct {
	length int
}

func NewRandomGenerator() Generator {
	return &RandomGenerator{length: DefaultLength}
}

func (g *RandomGenerator) Generate() (string, error) {
	b := make([]byte, g.length)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	for i := range b {
		b[i] = charset[b[i]%byte(len(charset))]
	}

	return string(b), nil
}

// SequenceGenerator produces time-ordered ids unique within one process:
// millisecond timestamp, instance id and a per-millisecond sequence.
type SequenceGenerator struct {
	mu         sync.Mutex
	instanceID int64
	sequence   int64
	lastTime   int64
	now        func() time.Time
}

func NewSequenceGenerator(instanceID int64) Generator {
	return &SequenceGenerator{
		instanceID: instanceID & 0x3FF,
		now:        time.Now,
	}
}

func (g *SequenceGenerator) Generate() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	ms := g.now().UnixMilli()
	if ms <= g.lastTime {
		// Clock went backwards or same millisecond: stay on lastTime.
		ms = g.lastTime
		g.sequence = (g.sequence + 1) & 0xFFF
		if g.sequence == 0 {
			ms++
		}
	} else {
		g.sequence = 0
	}
	g.lastTime = ms

	id := (ms << 22) | (g.instanceID << 12) | g.sequence
	return base64.RawURLEncoding.EncodeToString([]byte(strconv.FormatInt(id, 36))), nil
}
