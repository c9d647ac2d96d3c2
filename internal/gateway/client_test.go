package gateway

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"examseed/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	cfg := DefaultConfig()
	cfg.BaseURL = server.URL
	cfg.Pacing = 0
	client := New(cfg, nil)
	t.Cleanup(func() {
		client.Close()
		server.Close()
	})
	return client
}

func validStudent() types.Student {
	return types.Student{
		FirstName:    "Aarav",
		MiddleName:   "Raj",
		LastName:     "Patil",
		Contact:      "9876543210",
		Email:        "aarav.patil1@student.edu",
		Age:          15,
		MotherTongue: "Marathi",
		Password:     "student1123",
		SchoolID:     12,
	}
}

func TestCreate_Classification(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantKind   OutcomeKind
		wantID     int64
		wantFailed bool
	}{
		{"created with id", http.StatusOK, `{"studentId": 41, "firstName": "Aarav"}`, Created, 41, false},
		{"created 201 string id", http.StatusCreated, `{"studentId": "42"}`, Created, 42, false},
		{"created plain text", http.StatusOK, `Student added`, Created, 0, false},
		{"duplicate 500", http.StatusInternalServerError, `could not execute statement; Duplicate entry '9876543210' for key 'contact'`, Duplicate, 0, false},
		{"500 without marker", http.StatusInternalServerError, `NullPointerException`, Rejected, 0, true},
		{"400 with marker is not duplicate", http.StatusBadRequest, `Duplicate entry`, Rejected, 0, true},
		{"404", http.StatusNotFound, `School not found`, Rejected, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			})

			out := client.CreateStudent(context.Background(), validStudent())
			assert.Equal(t, tt.wantKind, out.Kind, out.String())
			assert.Equal(t, tt.wantID, out.ID)
			assert.Equal(t, tt.status, out.StatusCode)
			assert.Equal(t, tt.wantFailed, out.Failed())
		})
	}
}

func TestCreate_DuplicateOnSecondCallIsIdempotent(t *testing.T) {
	seen := map[string]bool{}
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		key := r.URL.RawQuery + string(body)
		if seen[key] {
			w.WriteHeader(http.StatusInternalServerError)
			io.WriteString(w, `{"message":"Duplicate entry 'aarav.patil1@student.edu' for key 'email'"}`)
			return
		}
		seen[key] = true
		io.WriteString(w, `{"studentId": 7}`)
	})

	s := validStudent()
	first := client.CreateStudent(context.Background(), s)
	second := client.CreateStudent(context.Background(), s)

	assert.Equal(t, Created, first.Kind)
	assert.Equal(t, int64(7), first.ID)
	assert.Equal(t, Duplicate, second.Kind, "second identical create must be a duplicate, not rejected")
	assert.False(t, second.Failed())
}

func TestCreate_TransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	cfg := DefaultConfig()
	cfg.BaseURL = url
	cfg.Pacing = 0
	client := New(cfg, nil)
	defer client.Close()

	out := client.CreateRegion(context.Background(), types.Region{RegionName: "Pune"})
	assert.Equal(t, TransportFailure, out.Kind)
	assert.Error(t, out.Err)
	assert.Zero(t, out.StatusCode)
	assert.True(t, out.Failed())
}

func TestCreate_InjectedDuplicatePredicate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		io.WriteString(w, `already exists`)
	}))
	defer server.Close()

	cfg := DefaultConfig()
	cfg.BaseURL = server.URL
	cfg.Pacing = 0
	cfg.IsDuplicate = func(status int, body string) bool {
		return status == http.StatusConflict
	}
	client := New(cfg, nil)
	defer client.Close()

	out := client.CreateSchool(context.Background(), types.School{SchoolName: "Pune Central Academy 2", CentreID: 3})
	assert.Equal(t, Duplicate, out.Kind)
}

func TestCreate_WireFormat(t *testing.T) {
	var gotPath, gotQuery, gotRequestID string
	var got map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotRequestID = r.Header.Get("X-Request-ID")
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		io.WriteString(w, `{"centreId": 5}`)
	})

	out := client.CreateCentre(context.Background(), types.Centre{RegionID: 2, CentreName: "Kothrud Academy", CentreCode: "C_KOTHRUD_ACA"})
	require.Equal(t, Created, out.Kind)
	assert.Equal(t, int64(5), out.ID)
	assert.Equal(t, "/addExamCentre", gotPath)
	assert.Equal(t, "regionId=2", gotQuery)
	assert.Len(t, gotRequestID, 36)
	assert.Equal(t, map[string]any{"centreName": "Kothrud Academy", "centreCode": "C_KOTHRUD_ACA"}, got)
}

func TestCreate_ValidationRejectsWithoutSending(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	})

	tests := []struct {
		name   string
		mutate func(*types.Student)
	}{
		{"contact starts with 6", func(s *types.Student) { s.Contact = "6876543210" }},
		{"contact too short", func(s *types.Student) { s.Contact = "987654321" }},
		{"contact not numeric", func(s *types.Student) { s.Contact = "98765abcde" }},
		{"missing first name", func(s *types.Student) { s.FirstName = "" }},
		{"bad email", func(s *types.Student) { s.Email = "not-an-email" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validStudent()
			tt.mutate(&s)
			out := client.CreateStudent(context.Background(), s)
			assert.Equal(t, Rejected, out.Kind)
			assert.Zero(t, out.StatusCode)
			assert.True(t, out.Failed())
		})
	}
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestCreate_MissingParentIsRejectedLocally(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	})
	s := validStudent()
	s.SchoolID = 0
	out := client.CreateStudent(context.Background(), s)
	assert.Equal(t, Rejected, out.Kind)
	assert.Contains(t, out.Message, "schoolId")
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestCreate_RejectedExcerptIsCapped(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, strings.Repeat("x", 2000))
	})
	out := client.CreateRegion(context.Background(), types.Region{RegionName: "Pune"})
	require.Equal(t, Rejected, out.Kind)
	assert.LessOrEqual(t, len(out.Message), maxExcerpt+3)
}

func TestCreate_Pacing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"regionId": 1}`)
	}))
	defer server.Close()

	cfg := DefaultConfig()
	cfg.BaseURL = server.URL
	cfg.Pacing = 50 * time.Millisecond
	client := New(cfg, nil)
	defer client.Close()

	start := time.Now()
	for i := 0; i < 3; i++ {
		require.Equal(t, Created, client.CreateRegion(context.Background(), types.Region{RegionName: "Pune"}).Kind)
	}
	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)
}

func TestCreate_PacingHonoursContext(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"regionId": 1}`)
	})
	client.pacing = time.Hour

	require.Equal(t, Created, client.CreateRegion(context.Background(), types.Region{RegionName: "Pune"}).Kind)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	out := client.CreateRegion(ctx, types.Region{RegionName: "Mumbai"})
	assert.Equal(t, TransportFailure, out.Kind)
	assert.ErrorIs(t, out.Err, context.DeadlineExceeded)
}

func TestListPage(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/schools", r.URL.Path)
		assert.Equal(t, "3", r.URL.Query().Get("page"))
		assert.Equal(t, "100", r.URL.Query().Get("size"))
		io.WriteString(w, `{"content":[{"schoolId":1},{"schoolId":2}],"last":true,"totalPages":4}`)
	})

	page, err := client.ListPage(context.Background(), types.CollectionSchools, 3, 100)
	require.NoError(t, err)
	assert.Len(t, page.Content, 2)
	assert.True(t, page.Last)
}

func TestListPage_NonOK(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		io.WriteString(w, "maintenance")
	})

	_, err := client.ListPage(context.Background(), types.CollectionStudents, 0, 100)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusServiceUnavailable, se.StatusCode)
}

func TestListAll_Legacy(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/getRegions", r.URL.Path)
		io.WriteString(w, `[{"regionId":1,"regionName":"Pune"}]`)
	})

	items, err := client.ListAll(context.Background(), types.CollectionRegions)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.JSONEq(t, `{"regionId":1,"regionName":"Pune"}`, string(items[0]))
}

func TestOutcomeKind_String(t *testing.T) {
	assert.Equal(t, "created", Created.String())
	assert.Equal(t, "rejected", Rejected.String())
	assert.Equal(t, "duplicate", Duplicate.String())
	assert.Equal(t, "transport_failure", TransportFailure.String())
}
