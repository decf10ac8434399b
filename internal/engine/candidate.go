package engine

import (
	"encoding/binary"
	"hash/fnv"
	"strconv"
)

// Gene places one session: a slot id and a room index into Problem.Rooms.
// Negative values mean unassigned.
type Gene struct {
	SlotID int
	Room   int
}

// Candidate is a full timetable proposal with cached evaluation results.
type Candidate struct {
	Genes      []Gene
	Fitness    float64
	Hard       int
	Soft       int
	Violations map[string]int

	evaluated bool
	hash      string
}

// NewCandidate allocates an unassigned candidate for n sessions.
func NewCandidate(n int) *Candidate {
	genes := make([]Gene, n)
	for i := range genes {
		genes[i] = Gene{SlotID: -1, Room: -1}
	}
	return &Candidate{Genes: genes}
}

// Clone deep-copies the candidate including its cached evaluation.
func (c *Candidate) Clone() *Candidate {
	clone := &Candidate{
		Genes:     make([]Gene, len(c.Genes)),
		Fitness:   c.Fitness,
		Hard:      c.Hard,
		Soft:      c.Soft,
		evaluated: c.evaluated,
		hash:      c.hash,
	}
	copy(clone.Genes, c.Genes)
	if c.Violations != nil {
		clone.Violations = make(map[string]int, len(c.Violations))
		for k, v := range c.Violations {
			clone.Violations[k] = v
		}
	}
	return clone
}

// Invalidate drops cached evaluation state after a mutation.
func (c *Candidate) Invalidate() {
	c.evaluated = false
	c.hash = ""
	c.Violations = nil
}

// Evaluated reports whether cached fitness data is current.
func (c *Candidate) Evaluated() bool { return c.evaluated }

// Hash returns a stable digest of the gene sequence, used as the final
// tie-break between candidates of identical fitness.
func (c *Candidate) Hash() string {
	if c.hash != "" {
		return c.hash
	}
	h := fnv.New64a()
	buf := make([]byte, 8)
	for _, g := range c.Genes {
		binary.LittleEndian.PutUint32(buf[:4], uint32(int32(g.SlotID)))
		binary.LittleEndian.PutUint32(buf[4:], uint32(int32(g.Room)))
		_, _ = h.Write(buf)
	}
	c.hash = strconv.FormatUint(h.Sum64(), 16)
	return c.hash
}

// Better orders candidates: higher fitness first, then fewer hard
// violations, fewer soft violations, and finally the lexicographically
// smaller hash.
func Better(a, b *Candidate) bool {
	if a.Fitness != b.Fitness {
		return a.Fitness > b.Fitness
	}
	if a.Hard != b.Hard {
		return a.Hard < b.Hard
	}
	if a.Soft != b.Soft {
		return a.Soft < b.Soft
	}
	return a.Hash() < b.Hash()
}
