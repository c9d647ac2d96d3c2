// Package fakeservice is an in-memory stand-in for the exam-management service.
//
// It serves the creation and list endpoints the seeder uses, enforces the same
// unique keys the real service does (answering violations with a 500 carrying
// "Duplicate entry"), and lets callers inject failures. The sandbox command
// and the seed tests run against it.
package fakeservice

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"sync"

	"examseed/internal/types"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Record is one stored entity as the service would serialize it.
type Record map[string]any

// FailureFunc lets a test force a response for a creation call. Returning
// ok=false lets the call proceed normally.
type FailureFunc func(kind types.EntityKind, parentID int64, body Record) (status int, message string, ok bool)

type table struct {
	idKey   string
	records []Record
	unique  map[string]bool
	nextID  int64
}

// Service is safe for concurrent use.
type Service struct {
	mu      sync.Mutex
	router  *mux.Router
	tables  map[types.Collection]*table
	fail    FailureFunc
	creates map[types.EntityKind]int
	logger  *zap.Logger
}

// New creates an empty service. A nil logger disables request logging.
func New(logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		tables:  make(map[types.Collection]*table),
		creates: make(map[types.EntityKind]int),
		logger:  logger,
	}
	for c, key := range map[types.Collection]string{
		types.CollectionRegions:      "regionId",
		types.CollectionCentres:      "centreId",
		types.CollectionSchools:      "schoolId",
		types.CollectionStudents:     "studentId",
		types.CollectionExams:        "examNo",
		types.CollectionApplications: "applicationId",
		types.CollectionResults:      "resultId",
	} {
		s.tables[c] = &table{idKey: key, unique: make(map[string]bool)}
	}
	s.routes()
	return s
}

func (s *Service) routes() {
	r := mux.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			s.logger.Debug("request", zap.String("method", req.Method), zap.String("uri", req.RequestURI))
			next.ServeHTTP(w, req)
		})
	})

	r.HandleFunc("/addregion", s.create(types.KindRegion, types.CollectionRegions, "", regionKey)).Methods("POST")
	r.HandleFunc("/addExamCentre", s.create(types.KindCentre, types.CollectionCentres, "regionId", centreKey)).Methods("POST")
	r.HandleFunc("/addSchool", s.create(types.KindSchool, types.CollectionSchools, "centreId", schoolKey)).Methods("POST")
	r.HandleFunc("/addStudent", s.create(types.KindStudent, types.CollectionStudents, "schoolId", studentKey)).Methods("POST")
	r.HandleFunc("/addExam", s.create(types.KindExam, types.CollectionExams, "", examKey)).Methods("POST")
	r.HandleFunc("/fill-form", s.create(types.KindApplication, types.CollectionApplications, "", applicationKey)).Methods("POST")
	r.HandleFunc("/addExamResult", s.create(types.KindResult, types.CollectionResults, "", resultKey)).Methods("POST")

	for _, c := range types.AllCollections {
		r.HandleFunc("/"+c.LegacyPath(), s.listAll(c)).Methods("GET")
		if c.Paginated() {
			r.HandleFunc("/"+string(c), s.listPage(c)).Methods("GET")
		}
	}
	s.router = r
}

// ServeHTTP implements http.Handler.
func (s *Service) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// FailWith installs a failure injector. nil removes it.
func (s *Service) FailWith(f FailureFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = f
}

// Creates returns how many creation calls of kind were received.
func (s *Service) Creates(kind types.EntityKind) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.creates[kind]
}

// Records returns a copy of the stored records of a collection.
func (s *Service) Records(c types.Collection) []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.tables[c]
	out := make([]Record, len(t.records))
	copy(out, t.records)
	return out
}

// Preload stores records as if they had been created. Ids are assigned when absent.
func (s *Service) Preload(c types.Collection, records ...Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.tables[c]
	for _, rec := range records {
		stored := Record{}
		for k, v := range rec {
			stored[k] = v
		}
		if id, ok := toInt64(stored[t.idKey]); ok && id > t.nextID {
			t.nextID = id
		} else if !ok {
			t.nextID++
			stored[t.idKey] = t.nextID
		}
		t.records = append(t.records, stored)
	}
}

// =============================================================================
// HANDLERS
// =============================================================================

type keyFunc func(parentID int64, body Record) string

func (s *Service) create(kind types.EntityKind, c types.Collection, parentParam string, key keyFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var parentID int64
		if parentParam != "" {
			id, err := strconv.ParseInt(r.URL.Query().Get(parentParam), 10, 64)
			if err != nil || id <= 0 {
				http.Error(w, "Required parameter '"+parentParam+"' is not present", http.StatusBadRequest)
				return
			}
			parentID = id
		}

		data, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "unreadable body", http.StatusBadRequest)
			return
		}
		var body Record
		if err := json.Unmarshal(data, &body); err != nil {
			http.Error(w, "JSON parse error: "+err.Error(), http.StatusBadRequest)
			return
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		s.creates[kind]++

		if s.fail != nil {
			if status, msg, ok := s.fail(kind, parentID, body); ok {
				http.Error(w, msg, status)
				return
			}
		}

		t := s.tables[c]
		k := key(parentID, body)
		if t.unique[k] {
			http.Error(w, fmt.Sprintf("could not execute statement; Duplicate entry '%s' for key '%s_unique'", k, kind), http.StatusInternalServerError)
			return
		}
		t.unique[k] = true
		t.nextID++

		stored := flatten(kind, body)
		stored[t.idKey] = t.nextID
		if parentParam != "" {
			stored[parentParam] = parentID
		}
		if kind == types.KindApplication {
			stored["studentName"] = s.studentName(stored["studentId"])
		}
		t.records = append(t.records, stored)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(stored)
	}
}

func (s *Service) listPage(c types.Collection) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := strconv.Atoi(r.URL.Query().Get("page"))
		if err != nil || page < 0 {
			page = 0
		}
		size, err := strconv.Atoi(r.URL.Query().Get("size"))
		if err != nil || size <= 0 {
			size = 20
		}

		s.mu.Lock()
		all := s.tables[c].records
		total := len(all)
		start := page * size
		if start > total {
			start = total
		}
		end := start + size
		if end > total {
			end = total
		}
		content := append([]Record{}, all[start:end]...)
		s.mu.Unlock()

		totalPages := (total + size - 1) / size
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"content":       content,
			"number":        page,
			"size":          size,
			"totalElements": total,
			"totalPages":    totalPages,
			"last":          page >= totalPages-1,
		})
	}
}

func (s *Service) listAll(c types.Collection) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		content := append([]Record{}, s.tables[c].records...)
		s.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(content)
	}
}

// flatten turns the nested references of application and result bodies into
// the flat columns the list endpoints return.
func flatten(kind types.EntityKind, body Record) Record {
	out := Record{}
	for k, v := range body {
		out[k] = v
	}
	switch kind {
	case types.KindApplication:
		out["studentId"] = nested(body, "student", "studentId")
		out["examNo"] = nested(body, "exam", "examNo")
		delete(out, "student")
		delete(out, "exam")
	case types.KindResult:
		out["applicationId"] = nested(body, "application", "applicationId")
		delete(out, "application")
	}
	return out
}

func (s *Service) studentName(id any) string {
	want, _ := toInt64(id)
	for _, rec := range s.tables[types.CollectionStudents].records {
		if got, _ := toInt64(rec["studentId"]); got == want {
			return fmt.Sprintf("%v %v", rec["firstName"], rec["lastName"])
		}
	}
	return ""
}

// =============================================================================
// UNIQUE KEYS
// =============================================================================

func regionKey(_ int64, b Record) string { return fmt.Sprint(b["regionName"]) }
func centreKey(_ int64, b Record) string { return fmt.Sprint(b["centreCode"]) }
func schoolKey(p int64, b Record) string { return fmt.Sprintf("%d-%v", p, b["schoolName"]) }
func studentKey(_ int64, b Record) string { return fmt.Sprint(b["email"]) }
func examKey(_ int64, b Record) string { return fmt.Sprint(b["exam_code"]) }

func applicationKey(_ int64, b Record) string {
	return fmt.Sprintf("%v-%v", nested(b, "student", "studentId"), nested(b, "exam", "examNo"))
}

func resultKey(_ int64, b Record) string {
	return fmt.Sprint(nested(b, "application", "applicationId"))
}

func nested(b Record, outer, inner string) any {
	if m, ok := b[outer].(map[string]any); ok {
		return m[inner]
	}
	return nil
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case float64:
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	}
	return 0, false
}

// Summary returns the number of stored records per collection, sorted by name.
func (s *Service) Summary() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for c, t := range s.tables {
		out = append(out, fmt.Sprintf("%s=%d", c, len(t.records)))
	}
	sort.Strings(out)
	return out
}
