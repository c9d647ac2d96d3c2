// Package seed walks the Region -> Centre -> School -> Student hierarchy and the
// Exam -> Application -> Result chain against the exam-management service.
//
// Processing is strictly sequential. Every item is one remote call whose
// classified outcome is recorded in the run Summary; a failed item never stops
// its siblings. Parents are discovered by listing what already exists
// remotely, so levels can be run in separate invocations.
package seed

import (
	"context"
	"fmt"
	"strings"
	"time"

	"examseed/internal/fetch"
	"examseed/internal/gateway"
	"examseed/internal/logging"
	"examseed/internal/results"
	"examseed/internal/store"
	"examseed/internal/synth"
	"examseed/internal/types"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service is the part of the gateway the seeder drives.
type Service interface {
	fetch.Lister
	CreateRegion(ctx context.Context, r types.Region) gateway.Outcome
	CreateCentre(ctx context.Context, c types.Centre) gateway.Outcome
	CreateSchool(ctx context.Context, s types.School) gateway.Outcome
	CreateStudent(ctx context.Context, s types.Student) gateway.Outcome
	CreateExam(ctx context.Context, e types.Exam) gateway.Outcome
	SubmitApplication(ctx context.Context, a types.Application) gateway.Outcome
	PublishResult(ctx context.Context, r types.Result) gateway.Outcome
}

// RegionPlan names a region and the centres to create in it. ID pins a region
// that already exists remotely; otherwise it is resolved by name.
type RegionPlan struct {
	Name    string
	ID      int64
	Centres []string
}

// Options configures a Seeder.
type Options struct {
	Regions           []RegionPlan
	SchoolsPerCentre  int
	StudentsPerSchool int
	Exams             []types.Exam

	PageSize    int
	MaxPages    int
	LegacyLists bool
	// FromCache reads parent collections from the blob cache instead of the service.
	FromCache bool

	ApplicationStatus string
	ApplicationType   string
	// SubmissionDate is stamped into every form. Empty means the run date.
	SubmissionDate string
	Results        results.Options
}

// DefaultOptions returns the multiplicities and form values the seeding scripts used.
func DefaultOptions() Options {
	return Options{
		SchoolsPerCentre:  5,
		StudentsPerSchool: 10,
		PageSize:          100,
		ApplicationStatus: "PENDING",
		ApplicationType:   "Auto-Generated",
	}
}

// Seeder owns the counters of one run. It is not safe for concurrent use.
type Seeder struct {
	svc      Service
	gen      *synth.Generator
	cache    store.BlobStore
	opts     Options
	logger   *zap.Logger
	simLog   *zap.Logger
	storeLog *zap.Logger
	fetchLog *zap.Logger
	observer Observer
	now      func() time.Time

	summary    *Summary
	regionIDs  map[string]int64
	emailIndex int
}

// New creates a Seeder logging under the seed, simulate, store and fetch
// categories of logger. cache and logger may be nil.
func New(svc Service, gen *synth.Generator, cache store.BlobStore, opts Options, logger *zap.Logger) *Seeder {
	if opts.PageSize <= 0 {
		opts.PageSize = 100
	}
	s := &Seeder{
		svc:       svc,
		gen:       gen,
		cache:     cache,
		opts:      opts,
		logger:    logging.For(logger, logging.CategorySeed),
		simLog:    logging.For(logger, logging.CategorySimulate),
		storeLog:  logging.For(logger, logging.CategoryStore),
		fetchLog:  logging.For(logger, logging.CategoryFetch),
		now:       time.Now,
		regionIDs: make(map[string]int64),
	}
	s.summary = NewSummary(uuid.NewString(), s.now())
	return s
}

// SetObserver registers the observer notified for every finished record.
func (s *Seeder) SetObserver(o Observer) {
	s.observer = o
}

// Summary returns the run summary so far.
func (s *Seeder) Summary() *Summary {
	return s.summary
}

// Run executes levels in the given order and returns the summary. The error is
// non-nil only when ctx ends the run early; per-item failures live in the summary.
func (s *Seeder) Run(ctx context.Context, levels []Level) (*Summary, error) {
	log := s.logger.With(zap.String("run_id", s.summary.RunID))
	log.Info("run started", zap.Strings("levels", levelNames(levels)))

	var err error
	for _, level := range levels {
		timer := logging.StartTimer(log, string(level))
		err = s.runLevel(ctx, level)
		timer.StopWithInfo()
		if err != nil {
			break
		}
	}
	s.summary.Finished = s.now()

	t := s.summary.Totals()
	log.Info("run finished",
		zap.Int("created", t.Created),
		zap.Int("failed", t.Failed),
		zap.Int("skipped", t.Skipped),
		zap.Int("ineligible", t.Ineligible),
		zap.Duration("elapsed", s.summary.Duration()))
	return s.summary, err
}

func (s *Seeder) runLevel(ctx context.Context, level Level) error {
	switch level {
	case LevelRegions:
		return s.SeedRegions(ctx)
	case LevelCentres:
		return s.SeedCentres(ctx)
	case LevelSchools:
		return s.SeedSchools(ctx)
	case LevelStudents:
		return s.SeedStudents(ctx)
	case LevelExams:
		return s.SeedExams(ctx)
	case LevelApplications:
		return s.Apply(ctx)
	case LevelResults:
		return s.Publish(ctx)
	}
	return fmt.Errorf("unknown level %q", level)
}

// =============================================================================
// HIERARCHY
// =============================================================================

// SeedRegions creates every planned region that is not pinned by ID.
func (s *Seeder) SeedRegions(ctx context.Context) error {
	for i, plan := range s.opts.Regions {
		if err := ctx.Err(); err != nil {
			return err
		}
		if plan.ID > 0 {
			continue
		}
		rec := s.track(types.KindRegion, 0, i+1, plan.Name, func() gateway.Outcome {
			return s.svc.CreateRegion(ctx, types.Region{RegionName: plan.Name})
		})
		if rec.State == Done && rec.Outcome.ID > 0 {
			s.regionIDs[normalize(plan.Name)] = rec.Outcome.ID
		}
	}
	return nil
}

// SeedCentres creates the planned centres of each region. Regions are
// resolved by pinned ID, by this run's creations, then by the remote list.
func (s *Seeder) SeedCentres(ctx context.Context) error {
	needLookup := false
	for _, plan := range s.opts.Regions {
		if plan.ID == 0 && s.regionIDs[normalize(plan.Name)] == 0 {
			needLookup = true
		}
	}
	if needLookup {
		for _, r := range loadCollection(ctx, s, types.CollectionRegions, fetch.JSON[types.Region]) {
			key := normalize(r.RegionName)
			if _, ok := s.regionIDs[key]; !ok && r.RegionID > 0 {
				s.regionIDs[key] = r.RegionID
			}
		}
	}

	for _, plan := range s.opts.Regions {
		regionID := plan.ID
		if regionID == 0 {
			regionID = s.regionIDs[normalize(plan.Name)]
		}
		for i, name := range plan.Centres {
			if err := ctx.Err(); err != nil {
				return err
			}
			if regionID == 0 {
				s.finish(Record{
					Kind:    types.KindCentre,
					Index:   i + 1,
					Label:   name,
					State:   Failed,
					Outcome: gateway.Outcome{Kind: gateway.Rejected, Message: "region not found"},
					Reason:  fmt.Sprintf("region %q not found", plan.Name),
				})
				continue
			}
			centre := s.gen.Centre(regionID, name)
			s.track(types.KindCentre, regionID, i+1, name, func() gateway.Outcome {
				return s.svc.CreateCentre(ctx, centre)
			})
		}
	}
	return nil
}

// SeedSchools creates SchoolsPerCentre schools under every known centre.
func (s *Seeder) SeedSchools(ctx context.Context) error {
	centres := loadCollection(ctx, s, types.CollectionCentres, fetch.JSON[types.Centre])
	if len(centres) == 0 {
		s.logger.Warn("no centres available; nothing to seed")
	}
	for _, centre := range centres {
		for i := 1; i <= s.opts.SchoolsPerCentre; i++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			school := s.gen.School(centre, i)
			s.track(types.KindSchool, centre.CentreID, i, school.SchoolName, func() gateway.Outcome {
				return s.svc.CreateSchool(ctx, school)
			})
		}
	}
	return nil
}

// SeedStudents creates StudentsPerSchool students under every known school.
// The email/password index runs across the whole run.
func (s *Seeder) SeedStudents(ctx context.Context) error {
	schools := loadCollection(ctx, s, types.CollectionSchools, fetch.JSON[types.School])
	if len(schools) == 0 {
		s.logger.Warn("no schools available; nothing to seed")
	}
	for _, school := range schools {
		for i := 1; i <= s.opts.StudentsPerSchool; i++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			s.emailIndex++
			student := s.gen.Student(s.emailIndex, school)
			s.track(types.KindStudent, school.SchoolID, i, student.Email, func() gateway.Outcome {
				return s.svc.CreateStudent(ctx, student)
			})
		}
	}
	return nil
}

// SeedExams creates every exam of the catalogue.
func (s *Seeder) SeedExams(ctx context.Context) error {
	for i, exam := range s.opts.Exams {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.track(types.KindExam, 0, i+1, exam.ExamCode, func() gateway.Outcome {
			return s.svc.CreateExam(ctx, exam)
		})
	}
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

// track runs one creation through Creating -> terminal and records it.
func (s *Seeder) track(kind types.EntityKind, parentID int64, index int, label string, create func() gateway.Outcome) Record {
	rec := Record{Kind: kind, ParentID: parentID, Index: index, Label: label, State: Creating}
	s.logFor(kind).Debug("creating", zap.String("kind", string(kind)), zap.Int64("parent", parentID), zap.Int("index", index))

	rec.Outcome = create()
	rec.State = stateFor(rec.Outcome)
	s.finish(rec)
	return rec
}

func (s *Seeder) finish(rec Record) {
	s.summary.Add(rec)

	log := s.logFor(rec.Kind)

	fields := []zap.Field{
		zap.String("kind", string(rec.Kind)),
		zap.Int64("parent", rec.ParentID),
		zap.Int("index", rec.Index),
		zap.String("label", rec.Label),
	}
	switch rec.State {
	case Done:
		log.Debug("created", append(fields, zap.Int64("id", rec.Outcome.ID))...)
	case Skipped:
		log.Info("skipped", append(fields, zap.String("reason", reason(rec)))...)
	case Ineligible:
		log.Info("ineligible", append(fields, zap.String("reason", rec.Reason))...)
	case Failed:
		log.Warn("failed", append(fields,
			zap.Stringer("outcome", rec.Outcome.Kind),
			zap.Int("status", rec.Outcome.StatusCode),
			zap.String("reason", reason(rec)))...)
	}

	if s.observer != nil {
		s.observer.Finished(rec)
	}
}

// logFor returns the simulate logger for applications and results.
func (s *Seeder) logFor(kind types.EntityKind) *zap.Logger {
	if kind == types.KindApplication || kind == types.KindResult {
		return s.simLog
	}
	return s.logger
}

func reason(rec Record) string {
	if rec.Reason != "" {
		return rec.Reason
	}
	if rec.Outcome.Err != nil {
		return rec.Outcome.Err.Error()
	}
	return rec.Outcome.Message
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
