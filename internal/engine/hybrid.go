package engine

import (
	"context"
	"math"
	"math/rand"

	"go.uber.org/zap"

	"github.com/noah-isme/timetable-engine/internal/dto"
	appErrors "github.com/noah-isme/timetable-engine/pkg/errors"
)

// Phase names reported in hybrid progress events.
const (
	PhaseDomainFiltering = "domain_filtering"
	PhaseAnnealing       = "annealing"
)

// HybridEngine composes CSP domain filtering, a simulated-annealing outer
// loop, and a tabu-search inner neighborhood.
type HybridEngine struct {
	problem  *Problem
	params   dto.HybridParams
	rng      *rand.Rand
	hooks    Hooks
	control  *Control
	logger   *zap.Logger
	pinned   []bool
	tabu     *tabuList
	tabuHits int
	accepted int
}

// NewHybridEngine wires a hybrid run. Params must be fully populated; the
// service layer applies configured defaults before construction.
func NewHybridEngine(p *Problem, params dto.HybridParams, seed int64, hooks Hooks, control *Control, logger *zap.Logger) *HybridEngine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if control == nil {
		control = NewControl()
	}
	return &HybridEngine{
		problem: p,
		params:  params,
		rng:     rand.New(rand.NewSource(seed)),
		hooks:   hooks,
		control: control,
		logger:  logger,
	}
}

// Run executes the three phases and returns the best candidate observed.
func (e *HybridEngine) Run(ctx context.Context) (*Outcome, error) {
	p := e.problem

	// Phase A: domain filtering and deterministic core assignment.
	domains := buildDomains(p)
	filterDomains(p, domains, e.params.DomainFilteringStrength)
	candidate := NewCandidate(len(p.Sessions))
	pinned, placedSessions := assignCore(p, candidate, domains)
	e.pinned = pinned

	order := make([]int, 0, len(p.Courses))
	for _, courseIdx := range courseOrder(p) {
		if !pinned[courseIdx] {
			order = append(order, courseIdx)
		}
	}
	seedCourses(p, candidate, placedSessions, order, nil)
	candidate.Invalidate()
	p.Score(candidate)

	pinnedGenes := e.snapshotPinned(candidate)
	e.hooks.EmitProgress(e.logger, dto.ProgressEvent{
		Algorithm:      dto.AlgorithmHybridAdvanced,
		Phase:          PhaseDomainFiltering,
		BestFitness:    candidate.Fitness,
		HardViolations: candidate.Hard,
		SoftViolations: candidate.Soft,
	})

	// Phase B + C: annealing over the tabu neighborhood.
	current := candidate
	best := candidate.Clone()
	temperature := e.params.InitialTemperature
	e.tabu = newTabuList(e.params.TabuListSize)

	iteration := 0
	wasCancelled := false
	for iteration < e.params.MaxIterations {
		if cancelled(ctx, e.control) {
			wasCancelled = true
			break
		}
		iteration++

		neighbor, sig, ok := e.proposeNeighbor(current, best)
		if ok {
			delta := neighbor.Fitness - current.Fitness
			if delta >= 0 || e.rng.Float64() < math.Exp(delta*e.params.AcceptanceScale/temperature) {
				current = neighbor
				e.tabu.Add(sig)
				e.accepted++
				if Better(current, best) {
					best = current.Clone()
				}
			}
		}

		if iteration%e.params.IterationsPerTemperature == 0 {
			temperature *= e.params.CoolingRate
		}
		if iteration%e.params.ProgressEvery == 0 {
			temp := temperature
			e.hooks.EmitProgress(e.logger, dto.ProgressEvent{
				Algorithm:      dto.AlgorithmHybridAdvanced,
				Iteration:      iteration,
				Phase:          PhaseAnnealing,
				BestFitness:    best.Fitness,
				HardViolations: best.Hard,
				SoftViolations: best.Soft,
				Temperature:    &temp,
				TabuHits:       e.tabuHits,
				AcceptedMoves:  e.accepted,
			})
		}
		if temperature < 1 {
			break
		}
	}

	for si, gene := range pinnedGenes {
		if best.Genes[si] != gene {
			err := appErrors.Clone(appErrors.ErrInvariant, "pinned core assignment moved during search")
			e.hooks.EmitError(e.logger, err)
			return nil, err
		}
	}

	return &Outcome{
		Best:       best,
		Algorithm:  dto.AlgorithmHybridAdvanced,
		Iterations: iteration,
		Cancelled:  wasCancelled,
	}, nil
}

// Pinned exposes the core-course bitset established by phase A.
func (e *HybridEngine) Pinned() []bool { return e.pinned }

func (e *HybridEngine) snapshotPinned(c *Candidate) map[int]Gene {
	snapshot := make(map[int]Gene)
	for courseIdx, isPinned := range e.pinned {
		if !isPinned {
			continue
		}
		for _, si := range e.problem.CourseSessions[courseIdx] {
			snapshot[si] = c.Genes[si]
		}
	}
	return snapshot
}

// proposeNeighbor samples the neighborhood and returns the best non-tabu
// move; a tabu move is admitted only when it beats the global best
// (aspiration).
func (e *HybridEngine) proposeNeighbor(current, best *Candidate) (*Candidate, moveSig, bool) {
	var bestNeighbor *Candidate
	var bestSig moveSig
	found := false
	for n := 0; n < e.params.NeighborhoodSample; n++ {
		sig, ok := e.randomMove(current)
		if !ok {
			continue
		}
		neighbor := applyMove(e.problem, current, sig)
		e.problem.Score(neighbor)
		if e.tabu.Contains(sig) {
			e.tabuHits++
			if !Better(neighbor, best) {
				continue
			}
		}
		if !found || Better(neighbor, bestNeighbor) {
			bestNeighbor, bestSig, found = neighbor, sig, true
		}
	}
	return bestNeighbor, bestSig, found
}

func (e *HybridEngine) randomMove(c *Candidate) (moveSig, bool) {
	p := e.problem
	for attempt := 0; attempt < 2*len(p.Courses); attempt++ {
		courseIdx := e.rng.Intn(len(p.Courses))
		if e.pinned[courseIdx] || len(p.CourseSessions[courseIdx]) == 0 {
			continue
		}
		sessions := p.CourseSessions[courseIdx]
		switch moveKind(e.rng.Intn(3)) {
		case moveRoom:
			primary := &p.Sessions[sessions[0]]
			choices := p.CompatibleRooms(primary)
			if len(choices) == 0 {
				choices = allRoomIndexes(p)
			}
			target := choices[e.rng.Intn(len(choices))]
			if target == c.Genes[sessions[0]].Room {
				continue
			}
			return moveSig{course: courseIdx, kind: moveRoom, target: target}, true
		case moveSlot:
			k := p.Sessions[sessions[0]].SlotsNeeded
			starts := p.Grid.RunStarts(k)
			if len(starts) == 0 {
				starts = allSlotIDs(p)
			}
			target := starts[e.rng.Intn(len(starts))]
			if target == c.Genes[sessions[0]].SlotID {
				continue
			}
			return moveSig{course: courseIdx, kind: moveSlot, target: target}, true
		case moveSwap:
			other := e.rng.Intn(len(p.Courses))
			if other == courseIdx || e.pinned[other] || len(p.CourseSessions[other]) == 0 {
				continue
			}
			return moveSig{course: courseIdx, kind: moveSwap, target: other}, true
		}
	}
	return moveSig{}, false
}
