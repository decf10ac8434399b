package engine

import (
	"context"
	"math/rand"
	"sort"

	"go.uber.org/zap"

	"github.com/noah-isme/timetable-engine/internal/dto"
)

const repairWindow = 8

// GeneticEngine evolves a population of candidates with tournament
// selection, uniform crossover, and per-course mutation.
type GeneticEngine struct {
	problem *Problem
	params  dto.GeneticParams
	rng     *rand.Rand
	hooks   Hooks
	control *Control
	logger  *zap.Logger
	workers int
}

// NewGeneticEngine wires a genetic run. Params must be fully populated; the
// service layer applies configured defaults before construction.
func NewGeneticEngine(p *Problem, params dto.GeneticParams, seed int64, hooks Hooks, control *Control, logger *zap.Logger, evalWorkers int) *GeneticEngine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if control == nil {
		control = NewControl()
	}
	if evalWorkers <= 0 {
		evalWorkers = 4
	}
	return &GeneticEngine{
		problem: p,
		params:  params,
		rng:     rand.New(rand.NewSource(seed)),
		hooks:   hooks,
		control: control,
		logger:  logger,
		workers: evalWorkers,
	}
}

// Run executes the generational loop until the target fitness, the
// generation cap, the stall limit, or cancellation stops it.
func (e *GeneticEngine) Run(ctx context.Context) (*Outcome, error) {
	pop := e.initialPopulation()
	evalPopulation(e.problem, pop, e.workers)
	sortPopulation(pop)

	best := pop[0].Clone()
	stall := 0
	generation := 0
	wasCancelled := false

	for generation < e.params.MaxGenerations {
		if cancelled(ctx, e.control) {
			wasCancelled = true
			break
		}
		generation++

		next := make([]*Candidate, 0, e.params.PopulationSize)
		for i := 0; i < e.params.Elitism && i < len(pop); i++ {
			next = append(next, pop[i].Clone())
		}
		for len(next) < e.params.PopulationSize {
			parentA := e.tournament(pop)
			parentB := e.tournament(pop)
			var child *Candidate
			if e.rng.Float64() < e.params.CrossoverRate {
				child = e.crossover(parentA, parentB)
				e.repair(child)
			} else {
				child = parentA.Clone()
			}
			e.mutate(child)
			next = append(next, child)
		}
		pop = next
		evalPopulation(e.problem, pop, e.workers)
		sortPopulation(pop)

		if Better(pop[0], best) {
			best = pop[0].Clone()
			stall = 0
		} else {
			stall++
		}

		avg := averageFitness(pop)
		e.hooks.EmitProgress(e.logger, dto.ProgressEvent{
			Algorithm:      dto.AlgorithmGenetic,
			Generation:     generation,
			BestFitness:    best.Fitness,
			AverageFitness: &avg,
			HardViolations: best.Hard,
			SoftViolations: best.Soft,
		})

		if best.Fitness >= e.params.TargetFitness {
			break
		}
		if stall >= e.params.StallLimit {
			e.logger.Debug("genetic search stalled", zap.Int("generation", generation), zap.Int("stall", stall))
			break
		}
	}

	return &Outcome{
		Best:        best,
		Algorithm:   dto.AlgorithmGenetic,
		Generations: generation,
		Cancelled:   wasCancelled,
	}, nil
}

// initialPopulation seeds 80% perturbed greedy variants and 20% uniform
// random candidates. The first variant is the deterministic seed.
func (e *GeneticEngine) initialPopulation() []*Candidate {
	size := e.params.PopulationSize
	seeded := size * 4 / 5
	if seeded < 1 {
		seeded = 1
	}
	pop := make([]*Candidate, 0, size)
	pop = append(pop, BuildSeed(e.problem, nil))
	for len(pop) < seeded {
		pop = append(pop, BuildSeed(e.problem, e.rng))
	}
	for len(pop) < size {
		pop = append(pop, RandomCandidate(e.problem, e.rng))
	}
	return pop
}

func (e *GeneticEngine) tournament(pop []*Candidate) *Candidate {
	best := pop[e.rng.Intn(len(pop))]
	for i := 1; i < 3; i++ {
		contender := pop[e.rng.Intn(len(pop))]
		if Better(contender, best) {
			best = contender
		}
	}
	return best
}

// crossover builds a child by inheriting each course (with all of its batch
// sessions) from either parent with equal probability.
func (e *GeneticEngine) crossover(parentA, parentB *Candidate) *Candidate {
	child := NewCandidate(len(parentA.Genes))
	for _, sessions := range e.problem.CourseSessions {
		src := parentA
		if e.rng.Intn(2) == 1 {
			src = parentB
		}
		for _, si := range sessions {
			child.Genes[si] = src.Genes[si]
		}
	}
	child.Invalidate()
	return child
}

// repair scans for courses left in hard conflict by crossover and tries a
// bounded window of alternative slots before accepting the child as-is.
func (e *GeneticEngine) repair(child *Candidate) {
	p := e.problem
	for courseIdx, sessions := range p.CourseSessions {
		if len(sessions) == 0 {
			continue
		}
		current := e.courseConflicts(child, courseIdx)
		if current == 0 {
			continue
		}
		k := p.Sessions[sessions[0]].SlotsNeeded
		starts := p.Grid.RunStarts(k)
		if len(starts) == 0 {
			continue
		}
		offset := e.rng.Intn(len(starts))
		for w := 0; w < repairWindow && w < len(starts); w++ {
			slotID := starts[(offset+w)%len(starts)]
			if slotID == child.Genes[sessions[0]].SlotID {
				continue
			}
			saved := make([]Gene, len(sessions))
			for i, si := range sessions {
				saved[i] = child.Genes[si]
				child.Genes[si] = Gene{SlotID: slotID, Room: saved[i].Room}
			}
			if e.courseConflicts(child, courseIdx) < current {
				break
			}
			for i, si := range sessions {
				child.Genes[si] = saved[i]
			}
		}
	}
	child.Invalidate()
}

// courseConflicts counts hard conflicts of a course's sessions against every
// other session in the candidate.
func (e *GeneticEngine) courseConflicts(c *Candidate, courseIdx int) int {
	p := e.problem
	others := make([]int, 0, len(p.Sessions))
	member := make(map[int]bool, len(p.CourseSessions[courseIdx]))
	for _, si := range p.CourseSessions[courseIdx] {
		member[si] = true
	}
	for i := range p.Sessions {
		if !member[i] && c.Genes[i].SlotID >= 0 {
			others = append(others, i)
		}
	}
	total := 0
	for _, si := range p.CourseSessions[courseIdx] {
		gene := c.Genes[si]
		if gene.SlotID < 0 {
			total++
			continue
		}
		total += placementConflicts(p, c, others, si, gene.SlotID, gene.Room)
	}
	return total
}

// mutate applies one of three move kinds per course at the configured rate.
func (e *GeneticEngine) mutate(c *Candidate) {
	p := e.problem
	changed := false
	for courseIdx, sessions := range p.CourseSessions {
		if len(sessions) == 0 || e.rng.Float64() >= e.params.MutationRate {
			continue
		}
		changed = true
		switch e.rng.Intn(3) {
		case 0:
			for _, si := range sessions {
				choices := p.CompatibleRooms(&p.Sessions[si])
				if len(choices) == 0 {
					choices = allRoomIndexes(p)
				}
				c.Genes[si].Room = choices[e.rng.Intn(len(choices))]
			}
		case 1:
			k := p.Sessions[sessions[0]].SlotsNeeded
			starts := p.Grid.RunStarts(k)
			if len(starts) == 0 {
				starts = allSlotIDs(p)
			}
			slotID := starts[e.rng.Intn(len(starts))]
			for _, si := range sessions {
				c.Genes[si].SlotID = slotID
			}
		case 2:
			other := e.rng.Intn(len(p.CourseSessions))
			if other == courseIdx || len(p.CourseSessions[other]) == 0 {
				break
			}
			slotA := c.Genes[sessions[0]].SlotID
			slotB := c.Genes[p.CourseSessions[other][0]].SlotID
			for _, si := range sessions {
				c.Genes[si].SlotID = slotB
			}
			for _, si := range p.CourseSessions[other] {
				c.Genes[si].SlotID = slotA
			}
		}
	}
	if changed {
		c.Invalidate()
	}
}

func sortPopulation(pop []*Candidate) {
	sort.SliceStable(pop, func(i, j int) bool { return Better(pop[i], pop[j]) })
}

func averageFitness(pop []*Candidate) float64 {
	if len(pop) == 0 {
		return 0
	}
	sum := 0.0
	for _, c := range pop {
		sum += c.Fitness
	}
	return sum / float64(len(pop))
}
