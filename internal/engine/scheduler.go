package engine

import (
	"log/slog"
	"math/rand/v2"

	"github.com/roach88/cogtask/internal/ir"
	"github.com/roach88/cogtask/internal/specsource"
)

// Scheduler builds per-task blocks, shuffles trials within each block and
// interleaves the two task lists into one run.
//
// Block order is never randomised. The only randomness is the within-block
// trial permutation, drawn from the scheduler's seeded source.
type Scheduler struct {
	rng      *rand.Rand
	seed     int64
	classify func(name string) ir.TaskType
	logger   *slog.Logger
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithSeed seeds the shuffle source. Seed 0 picks a random non-zero seed,
// which Seed reports so the run can be reproduced.
func WithSeed(seed int64) SchedulerOption {
	return func(s *Scheduler) {
		s.seed = seed
		s.rng = nil
	}
}

// WithRand uses r for shuffling. Seed then reports 0.
func WithRand(r *rand.Rand) SchedulerOption {
	return func(s *Scheduler) {
		s.rng = r
		s.seed = 0
	}
}

// WithClassifier overrides how source names map to task types.
func WithClassifier(fn func(name string) ir.TaskType) SchedulerOption {
	return func(s *Scheduler) {
		s.classify = fn
	}
}

// WithLogger sets the logger used for load warnings.
func WithLogger(logger *slog.Logger) SchedulerOption {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

// NewScheduler creates a scheduler. Without options it classifies sources
// by file-name prefix and shuffles with a random seed.
func NewScheduler(opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		classify: specsource.Classify,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rng == nil {
		for s.seed == 0 {
			s.seed = rand.Int64()
		}
		s.rng = newRand(s.seed)
	}
	return s
}

func newRand(seed int64) *rand.Rand {
	return rand.New(rand.NewPCG(uint64(seed), uint64(seed)>>1|1))
}

// Seed returns the seed of the shuffle source.
func (s *Scheduler) Seed() int64 {
	return s.seed
}

// BuildBlocks creates one block per source, sharing participant metadata
// and instruction text.
//
// Loading errors are block-local and returned alongside the blocks:
//   - a malformed specification excludes its block from the result
//   - an unrecognized task type keeps an empty block and logs a warning
func (s *Scheduler) BuildBlocks(sources []specsource.Source, participant ir.Participant, instruction string) ([]*Block, []error) {
	var (
		blocks []*Block
		errs   []error
	)
	for _, src := range sources {
		b := NewBlock(src.Name(), s.classify(src.Name()), participant, instruction)

		err := b.LoadSpecifications(src)
		switch {
		case err == nil:
			if err := b.Materialize(); err != nil {
				errs = append(errs, err)
				continue
			}
			blocks = append(blocks, b)
		case IsUnrecognizedTaskType(err):
			s.logger.Warn("unrecognized task type, block will be empty", "source", b.Source)
			errs = append(errs, err)
			blocks = append(blocks, b)
		default:
			s.logger.Error("specification rejected", "source", b.Source, "error", err)
			errs = append(errs, err)
		}
	}
	return blocks, errs
}

// RandomizeEach shuffles the trials of every block independently.
func (s *Scheduler) RandomizeEach(blocks []*Block) {
	for _, b := range blocks {
		b.Shuffle(s.rng)
	}
}

// Plan builds the full run for one session: both task lists are built,
// optionally shuffled, and interleaved with the Stroop list first when
// cfg.StroopFirst is set.
func (s *Scheduler) Plan(cfg ir.ExperimentConfig, participant ir.Participant, flanker, stroop []specsource.Source) (*Run, []error) {
	flankerBlocks, errs := s.BuildBlocks(flanker, participant, cfg.Flanker.Instruction)
	stroopBlocks, stroopErrs := s.BuildBlocks(stroop, participant, cfg.Stroop.Instruction)
	errs = append(errs, stroopErrs...)

	if cfg.Shuffle {
		s.RandomizeEach(flankerBlocks)
		s.RandomizeEach(stroopBlocks)
	}

	return &Run{
		Blocks:      Interleave(stroopBlocks, flankerBlocks, cfg.StroopFirst),
		Participant: participant,
		Seed:        s.seed,
	}, errs
}

// Interleave merges two lists round-robin. aFirst selects which list
// supplies the first element. Once one list is exhausted the rest of the
// other is appended in order.
//
//	Interleave([a1 a2], [b1 b2 b3], true) // [a1 b1 a2 b2 b3]
func Interleave[T any](a, b []T, aFirst bool) []T {
	first, second := a, b
	if !aFirst {
		first, second = b, a
	}
	out := make([]T, 0, len(a)+len(b))
	for i := 0; i < len(first) || i < len(second); i++ {
		if i < len(first) {
			out = append(out, first[i])
		}
		if i < len(second) {
			out = append(out, second[i])
		}
	}
	return out
}

// Run is the ordered list of blocks for one session.
type Run struct {
	Blocks      []*Block
	Participant ir.Participant
	Seed        int64
}

// TrialCount returns the number of trials across all blocks.
func (r *Run) TrialCount() int {
	n := 0
	for _, b := range r.Blocks {
		n += b.Len()
	}
	return n
}

// ExportRows flattens the run: blocks in run order, rows in execution order,
// one global index starting at 0.
func (r *Run) ExportRows() []ir.ExportRow {
	var rows []ir.ExportRow
	for _, b := range r.Blocks {
		for _, row := range b.ExportRows() {
			row.Index = len(rows)
			rows = append(rows, row)
		}
	}
	return rows
}
