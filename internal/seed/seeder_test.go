package seed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"examseed/internal/fakeservice"
	"examseed/internal/gateway"
	"examseed/internal/store"
	"examseed/internal/synth"
	"examseed/internal/types"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type harness struct {
	fake   *fakeservice.Service
	client *gateway.Client
	cache  store.BlobStore
}

func newHarness(t *testing.T, wrap func(http.Handler) http.Handler) *harness {
	t.Helper()
	fake := fakeservice.New(nil)
	var handler http.Handler = fake
	if wrap != nil {
		handler = wrap(fake)
	}
	server := httptest.NewServer(handler)

	cfg := gateway.DefaultConfig()
	cfg.BaseURL = server.URL
	cfg.Pacing = 0
	client := gateway.New(cfg, nil)

	cache, err := store.NewFileStore(filepath.Join(t.TempDir(), "cache"))
	require.NoError(t, err)

	t.Cleanup(func() {
		client.Close()
		server.Close()
	})
	return &harness{fake: fake, client: client, cache: cache}
}

func (h *harness) seeder(opts Options, seed int64) *Seeder {
	return New(h.client, synth.New(synth.DefaultConfig(), synth.Source(seed)), h.cache, opts, nil)
}

func preloadSchools(h *harness, n int) {
	for i := 1; i <= n; i++ {
		h.fake.Preload(types.CollectionSchools, fakeservice.Record{
			"schoolName": "School " + string(rune('A'+i-1)),
			"centreId":   1,
		})
	}
}

func TestSeeder_StudentSummaryCountsOutcomes(t *testing.T) {
	h := newHarness(t, nil)
	preloadSchools(h, 3)

	calls := 0
	h.fake.FailWith(func(kind types.EntityKind, _ int64, _ fakeservice.Record) (int, string, bool) {
		if kind != types.KindStudent {
			return 0, "", false
		}
		calls++
		switch calls {
		case 4, 15:
			return http.StatusBadRequest, "Validation failed for field contact", true
		case 22:
			return http.StatusInternalServerError, "Duplicate entry 'x' for key 'email'", true
		}
		return 0, "", false
	})

	opts := DefaultOptions()
	s := h.seeder(opts, 1)

	var observed []Record
	s.SetObserver(ObserverFunc(func(r Record) { observed = append(observed, r) }))

	summary, err := s.Run(context.Background(), []Level{LevelStudents})
	require.NoError(t, err)

	assert.Equal(t, Counts{Created: 27, Failed: 2, Skipped: 1}, summary.For(types.KindStudent))
	assert.True(t, summary.HasFailures())
	assert.ErrorIs(t, summary.Err(), ErrFailures)
	require.Len(t, summary.Failures, 2)
	assert.Equal(t, http.StatusBadRequest, summary.Failures[0].Outcome.StatusCode)
	assert.Len(t, observed, 30)
	for _, r := range observed {
		assert.True(t, r.State.Final(), "observer saw non-final state %s", r.State)
	}
	assert.Len(t, h.fake.Records(types.CollectionStudents), 27)
}

func TestSeeder_FullHierarchyThenRerunIsIdempotent(t *testing.T) {
	h := newHarness(t, nil)

	opts := DefaultOptions()
	opts.Regions = []RegionPlan{{Name: "Pune", Centres: []string{"Pune Central", "Kothrud Academy"}}}
	opts.SchoolsPerCentre = 2
	opts.StudentsPerSchool = 3
	exams, err := LoadExams("")
	require.NoError(t, err)
	opts.Exams = exams

	first, err := h.seeder(opts, 7).Run(context.Background(), HierarchyLevels)
	require.NoError(t, err)

	assert.Equal(t, Counts{Created: 1}, first.For(types.KindRegion))
	assert.Equal(t, Counts{Created: 2}, first.For(types.KindCentre))
	assert.Equal(t, Counts{Created: 4}, first.For(types.KindSchool))
	assert.Equal(t, Counts{Created: 12}, first.For(types.KindStudent))
	assert.Equal(t, Counts{Created: 4}, first.For(types.KindExam))
	assert.False(t, first.HasFailures())
	assert.Equal(t, []types.EntityKind{types.KindRegion, types.KindCentre, types.KindSchool, types.KindStudent, types.KindExam}, first.Kinds())

	centres := h.fake.Records(types.CollectionCentres)
	require.Len(t, centres, 2)
	assert.Equal(t, "C_KOTHRUD_AC", centres[1]["centreCode"])

	// Same seed, same payloads: every creation is now a duplicate.
	second, err := h.seeder(opts, 7).Run(context.Background(), HierarchyLevels)
	require.NoError(t, err)
	assert.False(t, second.HasFailures())
	totals := second.Totals()
	assert.Zero(t, totals.Created)
	assert.Equal(t, 1+2+4+12+4, totals.Skipped)
}

func TestSeeder_CentresUnderUnknownRegionFail(t *testing.T) {
	h := newHarness(t, nil)
	h.fake.Preload(types.CollectionRegions, fakeservice.Record{"regionName": "Mumbai"})

	opts := DefaultOptions()
	opts.Regions = []RegionPlan{
		{Name: "mumbai ", Centres: []string{"Andheri Technical Institute"}},
		{Name: "Atlantis", Centres: []string{"Sunken Hub", "Coral Centre"}},
		{Name: "Pinned", ID: 40, Centres: []string{"Pinned Centre"}},
	}

	summary, err := h.seeder(opts, 1).Run(context.Background(), []Level{LevelCentres})
	require.NoError(t, err)
	assert.Equal(t, Counts{Created: 2, Failed: 2}, summary.For(types.KindCentre))
	for _, f := range summary.Failures {
		assert.Contains(t, f.Reason, "Atlantis")
	}

	centres := h.fake.Records(types.CollectionCentres)
	require.Len(t, centres, 2)
	assert.EqualValues(t, 1, centres[0]["regionId"])
	assert.EqualValues(t, 40, centres[1]["regionId"])
}

func TestSeeder_PartialFetchStillSeedsWhatWasRetrieved(t *testing.T) {
	h := newHarness(t, func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/schools" && r.URL.Query().Get("page") == "1" {
				http.Error(w, "boom", http.StatusInternalServerError)
				return
			}
			next.ServeHTTP(w, r)
		})
	})
	preloadSchools(h, 3)

	opts := DefaultOptions()
	opts.PageSize = 2
	opts.StudentsPerSchool = 1

	summary, err := h.seeder(opts, 1).Run(context.Background(), []Level{LevelStudents})
	require.NoError(t, err)
	assert.Equal(t, Counts{Created: 2}, summary.For(types.KindStudent))
	assert.False(t, summary.HasFailures())

	_, err = h.cache.Read(types.CollectionSchools.CacheName())
	assert.ErrorIs(t, err, store.ErrNotFound, "partial fetches are not cached")
}

func preloadSimulation(h *harness) {
	h.fake.Preload(types.CollectionExams,
		fakeservice.Record{
			"examNo":       1,
			"exam_name":    "Rashtrabhasha Prathamik Pariksha (May 2026)",
			"exam_code":    "PRATHAMIK_MAY_2026",
			"papers":       `[{"name":"Prashnpatra","maxMarks":100}]`,
			"exam_details": `{"structure":{"hasOral":true,"hasProject":false}}`,
		},
		fakeservice.Record{
			"examNo":       2,
			"exam_name":    "Rashtrabhasha Prabodh Pariksha (May 2026)",
			"exam_code":    "PRABODH_MAY_2026",
			"papers":       `[{"name":"Pratham Prashnpatra","maxMarks":100},{"name":"Dvitiya Prashnpatra","maxMarks":100}]`,
			"exam_details": `not json`,
		},
	)
	h.fake.Preload(types.CollectionStudents,
		fakeservice.Record{"studentId": 1, "firstName": "Aarav", "lastName": "Patil", "age": 12, "schoolId": 1},
		fakeservice.Record{"studentId": 2, "firstName": "Isha", "lastName": "Joshi", "age": 14, "schoolId": 1},
		fakeservice.Record{"studentId": 3, "firstName": "Rohan", "lastName": "Mehta", "age": 17, "schoolId": 1},
	)
}

func TestSeeder_ApplyThenPublish(t *testing.T) {
	h := newHarness(t, nil)
	preloadSimulation(h)

	opts := DefaultOptions()
	opts.SubmissionDate = "2026-02-26"

	applied, err := h.seeder(opts, 3).Run(context.Background(), []Level{LevelApplications})
	require.NoError(t, err)
	assert.Equal(t, Counts{Created: 2, Ineligible: 1}, applied.For(types.KindApplication))
	assert.False(t, applied.HasFailures())

	apps := h.fake.Records(types.CollectionApplications)
	require.Len(t, apps, 2)
	assert.EqualValues(t, 1, apps[0]["studentId"])
	assert.EqualValues(t, 1, apps[0]["examNo"])
	assert.Equal(t, "PENDING", apps[0]["status"])
	var form types.FormData
	require.NoError(t, json.Unmarshal([]byte(apps[0]["formData"].(string)), &form))
	if diff := cmp.Diff(types.FormData{
		ApplicationType: "Auto-Generated",
		Remarks:         "Eligible for Prathamik based on age 12",
		SubmissionDate:  "2026-02-26",
	}, form); diff != "" {
		t.Errorf("formData mismatch (-want +got):\n%s", diff)
	}
	assert.EqualValues(t, 2, apps[1]["examNo"])

	// An application for an exam that no longer exists is skipped.
	h.fake.Preload(types.CollectionApplications, fakeservice.Record{"studentId": 3, "examNo": 99, "studentName": "Rohan Mehta"})

	published, err := h.seeder(opts, 3).Run(context.Background(), []Level{LevelResults})
	require.NoError(t, err)
	assert.Equal(t, Counts{Created: 2, Skipped: 1}, published.For(types.KindResult))

	results := h.fake.Records(types.CollectionResults)
	require.Len(t, results, 2)

	var withOral types.ResultData
	require.NoError(t, json.Unmarshal([]byte(results[0]["resultData"].(string)), &withOral))
	assert.Equal(t, 150, withOral.TotalMax)
	require.NotNil(t, withOral.OralMarks)
	assert.EqualValues(t, 150, results[0]["totalMarks"])

	var plain types.ResultData
	require.NoError(t, json.Unmarshal([]byte(results[1]["resultData"].(string)), &plain))
	assert.Equal(t, 200, plain.TotalMax, "malformed exam_details degrades to no oral/project")
	assert.Nil(t, plain.OralMarks)
	for _, r := range results {
		pct := r["percentage"].(float64)
		assert.GreaterOrEqual(t, pct, 0.0)
		assert.LessOrEqual(t, pct, 100.0)
	}

	// Publication is one-shot: a second run only produces duplicates.
	again, err := h.seeder(opts, 3).Run(context.Background(), []Level{LevelResults})
	require.NoError(t, err)
	assert.Equal(t, Counts{Skipped: 3}, again.For(types.KindResult))
}

func TestSeeder_ApplyWithoutMatchingExamsMarksEveryoneIneligible(t *testing.T) {
	h := newHarness(t, nil)
	h.fake.Preload(types.CollectionStudents,
		fakeservice.Record{"studentId": 1, "firstName": "A", "lastName": "B", "age": 13},
		fakeservice.Record{"studentId": 2, "firstName": "C", "lastName": "D", "age": 16},
	)
	h.fake.Preload(types.CollectionExams, fakeservice.Record{"examNo": 1, "exam_name": "Annual Science Olympiad"})

	summary, err := h.seeder(DefaultOptions(), 1).Run(context.Background(), []Level{LevelApplications})
	require.NoError(t, err)
	assert.Equal(t, Counts{Ineligible: 2}, summary.For(types.KindApplication))
	assert.False(t, summary.HasFailures())
	assert.Zero(t, h.fake.Creates(types.KindApplication))
}

func TestSeeder_DumpThenApplyFromCache(t *testing.T) {
	source := newHarness(t, nil)
	preloadSimulation(source)

	counts, err := source.seeder(DefaultOptions(), 1).Dump(context.Background(), []types.Collection{types.CollectionStudents, types.CollectionExams})
	require.NoError(t, err)
	assert.Equal(t, map[types.Collection]int{types.CollectionStudents: 3, types.CollectionExams: 2}, counts)

	target := newHarness(t, nil)
	target.cache = source.cache

	opts := DefaultOptions()
	opts.FromCache = true
	summary, err := target.seeder(opts, 1).Run(context.Background(), []Level{LevelApplications})
	require.NoError(t, err)
	assert.Equal(t, Counts{Created: 2, Ineligible: 1}, summary.For(types.KindApplication))
	assert.Len(t, target.fake.Records(types.CollectionApplications), 2)
}

func TestSeeder_LogsUnderCategories(t *testing.T) {
	h := newHarness(t, nil)
	preloadSimulation(h)

	core, logs := observer.New(zapcore.DebugLevel)
	s := New(h.client, synth.New(synth.DefaultConfig(), synth.Source(1)), h.cache, DefaultOptions(), zap.New(core))
	_, err := s.Run(context.Background(), []Level{LevelApplications})
	require.NoError(t, err)
	_, err = s.Dump(context.Background(), []types.Collection{types.CollectionExams})
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, e := range logs.All() {
		names[e.LoggerName] = true
	}
	assert.True(t, names["seed"], "run lifecycle")
	assert.True(t, names["simulate"], "application outcomes")
	assert.True(t, names["fetch"], "per-collection fetch timing")
	assert.True(t, names["store"], "dump")
	assert.NotEmpty(t, logs.FilterLoggerName("simulate").FilterMessage("created").All())
}

func TestSeeder_ReadsLegacyPageEnvelopeDump(t *testing.T) {
	h := newHarness(t, nil)
	require.NoError(t, h.cache.Write(types.CollectionCentres.CacheName(),
		[]byte(`{"content":[{"centreId":4,"centreName":"Pune Central"}],"last":true}`)))

	opts := DefaultOptions()
	opts.FromCache = true
	opts.SchoolsPerCentre = 2
	summary, err := h.seeder(opts, 1).Run(context.Background(), []Level{LevelSchools})
	require.NoError(t, err)
	assert.Equal(t, Counts{Created: 2}, summary.For(types.KindSchool))

	schools := h.fake.Records(types.CollectionSchools)
	require.Len(t, schools, 2)
	assert.Equal(t, "Pune Central Public School 1", schools[0]["schoolName"])
	assert.Equal(t, "Pune Central Academy 2", schools[1]["schoolName"])
}

func TestSeeder_CancelledContextStopsRun(t *testing.T) {
	h := newHarness(t, nil)
	preloadSchools(h, 2)

	ctx, cancel := context.WithCancel(context.Background())
	s := h.seeder(DefaultOptions(), 1)
	s.SetObserver(ObserverFunc(func(r Record) {
		if r.Index == 3 {
			cancel()
		}
	}))

	summary, err := s.Run(ctx, []Level{LevelStudents, LevelExams})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 3, summary.For(types.KindStudent).Total())
	assert.False(t, summary.Finished.IsZero())
}

func TestParseLevels(t *testing.T) {
	got, err := ParseLevels(nil)
	require.NoError(t, err)
	assert.Equal(t, HierarchyLevels, got)

	got, err = ParseLevels([]string{"students", "Regions", "centers"})
	require.NoError(t, err)
	assert.Equal(t, []Level{LevelRegions, LevelCentres, LevelStudents}, got)

	_, err = ParseLevels([]string{"invigilators"})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "valid:"))
}

func TestLoadExams(t *testing.T) {
	exams, err := LoadExams("")
	require.NoError(t, err)
	require.Len(t, exams, 4)
	assert.Equal(t, "PRATHAMIK_MAY_2026", exams[0].ExamCode)
	assert.Equal(t, []types.Paper{{Name: "Prashnpatra", MaxMarks: 100}}, exams[0].Papers)
	require.NotNil(t, exams[0].Details.Rules.GraceMarksAllowed)
	assert.True(t, *exams[0].Details.Rules.GraceMarksAllowed)
	assert.Nil(t, exams[1].Details.Rules.GraceMarksAllowed)
	assert.Equal(t, 550.0, exams[2].ExamFees)
	for _, e := range exams {
		assert.Equal(t, e.NoOfPapers, len(e.Papers), e.ExamCode)
	}

	_, err = LoadExams(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = parseExams([]byte("exams:\n  - exam_name: Nameless\n"))
	assert.Error(t, err)
}
