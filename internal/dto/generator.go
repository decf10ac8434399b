package dto

import (
	"github.com/noah-isme/timetable-engine/internal/models"
)

// Algorithm selector values accepted by the generator.
const (
	AlgorithmGenetic        = "genetic"
	AlgorithmHybridAdvanced = "hybrid_advanced"
)

// GeneticParams tunes the genetic engine.
type GeneticParams struct {
	PopulationSize int     `json:"populationSize" validate:"omitempty,min=2,max=2000"`
	MaxGenerations int     `json:"maxGenerations" validate:"omitempty,min=1,max=1000000"`
	CrossoverRate  float64 `json:"crossoverRate" validate:"omitempty,gte=0,lte=1"`
	MutationRate   float64 `json:"mutationRate" validate:"omitempty,gte=0,lte=1"`
	TargetFitness  float64 `json:"targetFitness" validate:"omitempty,gte=0,lte=1"`
	Elitism        int     `json:"elitism" validate:"omitempty,min=0,max=50"`
	StallLimit     int     `json:"stallLimit" validate:"omitempty,min=1"`
}

// HybridParams tunes the hybrid CSP/SA/TS engine.
type HybridParams struct {
	MaxIterations            int     `json:"maxIterations" validate:"omitempty,min=1,max=10000000"`
	InitialTemperature       float64 `json:"initialTemperature" validate:"omitempty,gt=0"`
	CoolingRate              float64 `json:"coolingRate" validate:"omitempty,gt=0,lt=1"`
	IterationsPerTemperature int     `json:"iterationsPerTemperature" validate:"omitempty,min=1"`
	TabuListSize             int     `json:"tabuListSize" validate:"omitempty,min=1,max=10000"`
	DomainFilteringStrength  float64 `json:"domainFilteringStrength" validate:"omitempty,gte=0,lte=1"`
	NeighborhoodSample       int     `json:"neighborhoodSample" validate:"omitempty,min=1,max=1000"`
	ProgressEvery            int     `json:"progressEvery" validate:"omitempty,min=1"`
	AcceptanceScale          float64 `json:"acceptanceScale" validate:"omitempty,gt=0"`
}

// GenerateTimetableRequest carries the full generation problem.
type GenerateTimetableRequest struct {
	Teachers    []models.Teacher        `json:"teachers" validate:"required,min=1,dive"`
	Classrooms  []models.Classroom      `json:"classrooms" validate:"required,min=1,dive"`
	Courses     []models.Course         `json:"courses" validate:"required,min=1,dive"`
	Constraints models.ConstraintConfig `json:"constraints" validate:"required"`
	Algorithm   string                  `json:"algorithm" validate:"required,oneof=genetic hybrid_advanced"`
	Seed        int64                   `json:"seed"`
	Genetic     *GeneticParams          `json:"geneticParams" validate:"omitempty"`
	Hybrid      *HybridParams           `json:"hybridParams" validate:"omitempty"`
}

// ProgressEvent reports the state of a running generation.
type ProgressEvent struct {
	RunID          string   `json:"runId,omitempty"`
	Algorithm      string   `json:"algorithm"`
	Generation     int      `json:"generation,omitempty"`
	Iteration      int      `json:"iteration,omitempty"`
	Phase          string   `json:"phase,omitempty"`
	BestFitness    float64  `json:"bestFitness"`
	AverageFitness *float64 `json:"averageFitness,omitempty"`
	HardViolations int      `json:"hardViolations"`
	SoftViolations int      `json:"softViolations"`
	Temperature    *float64 `json:"temperature,omitempty"`
	TabuHits       int      `json:"tabuHits,omitempty"`
	AcceptedMoves  int      `json:"acceptedMoves,omitempty"`
}

// BestSolution is the winning candidate in presentation form.
type BestSolution struct {
	Assignments []models.Assignment `json:"assignments"`
	Fitness     float64             `json:"fitness"`
	Violations  map[string]int      `json:"violations"`
}

// GenerationStatistics summarises a finished run.
type GenerationStatistics struct {
	FinalGeneration         int    `json:"finalGeneration,omitempty"`
	FinalIteration          int    `json:"finalIteration,omitempty"`
	TotalViolations         int    `json:"totalViolations"`
	CoreSubjectsScheduled   int    `json:"coreSubjectsScheduled"`
	ElectiveGroupsScheduled int    `json:"electiveGroupsScheduled"`
	AlgorithmUsed           string `json:"algorithmUsed"`
}

// GenerationResult is the final product of a generation run.
type GenerationResult struct {
	BestSolution BestSolution         `json:"bestSolution"`
	Statistics   GenerationStatistics `json:"statistics"`
	Cancelled    bool                 `json:"cancelled"`
}
