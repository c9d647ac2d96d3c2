// Package types provides the records exchanged with the exam-management service.
// These are plain data structures shared by the gateway, fetcher, generator and
// orchestrator; wire encoding of nested fields lives in the gateway package.
package types

import (
	"encoding/json"
	"time"
)

// =============================================================================
// ENTITY KINDS AND COLLECTIONS
// =============================================================================

// EntityKind names a level of the seeded hierarchy or the simulation chain.
type EntityKind string

const (
	KindRegion      EntityKind = "region"
	KindCentre      EntityKind = "centre"
	KindSchool      EntityKind = "school"
	KindStudent     EntityKind = "student"
	KindExam        EntityKind = "exam"
	KindApplication EntityKind = "application"
	KindResult      EntityKind = "result"
)

// AllKinds lists every kind in seeding order.
var AllKinds = []EntityKind{
	KindRegion, KindCentre, KindSchool, KindStudent, KindExam, KindApplication, KindResult,
}

// Collection is the path segment of a paginated list endpoint.
type Collection string

const (
	CollectionRegions      Collection = "regions"
	CollectionCentres      Collection = "exam-centres"
	CollectionSchools      Collection = "schools"
	CollectionStudents     Collection = "students"
	CollectionExams        Collection = "exams"
	CollectionApplications Collection = "exam-applications"
	CollectionResults      Collection = "exam-results"
)

// AllCollections lists every collection the fetch command can dump.
var AllCollections = []Collection{
	CollectionRegions, CollectionCentres, CollectionSchools, CollectionStudents,
	CollectionExams, CollectionApplications, CollectionResults,
}

// LegacyPath returns the non-paginated getAll endpoint for a collection.
func (c Collection) LegacyPath() string {
	switch c {
	case CollectionRegions:
		return "getRegions"
	case CollectionCentres:
		return "getAllExamCentres"
	case CollectionSchools:
		return "getAllSchools"
	case CollectionStudents:
		return "getAllStudents"
	case CollectionExams:
		return "getAllExams"
	case CollectionApplications:
		return "getAllApplications"
	case CollectionResults:
		return "getAllResults"
	}
	return ""
}

// Paginated reports whether the service exposes a page envelope for the collection.
// Regions are only served by the legacy list.
func (c Collection) Paginated() bool {
	return c != CollectionRegions
}

// CacheName is the blob name a fetched collection is stored under.
func (c Collection) CacheName() string {
	return string(c) + ".json"
}

// Page is one page envelope of a list endpoint: a content batch plus the last-page flag.
type Page struct {
	Content []json.RawMessage `json:"content"`
	Last    bool              `json:"last"`
}

// UnmarshalJSON treats an envelope without a "last" field as the final page.
func (p *Page) UnmarshalJSON(data []byte) error {
	type envelope Page
	aux := envelope{Last: true}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*p = Page(aux)
	return nil
}

// =============================================================================
// HIERARCHY: REGION -> CENTRE -> SCHOOL -> STUDENT
// =============================================================================

// Region is the top of the hierarchy. Its id is assigned by the service.
type Region struct {
	RegionID   int64  `json:"regionId,omitempty"`
	RegionName string `json:"regionName" validate:"required"`
}

// Centre is an exam centre inside a region.
type Centre struct {
	CentreID   int64  `json:"centreId,omitempty"`
	CentreName string `json:"centreName" validate:"required"`
	CentreCode string `json:"centreCode" validate:"required"`
	RegionID   int64  `json:"regionId,omitempty"`
}

// School belongs to a centre.
type School struct {
	SchoolID   int64  `json:"schoolId,omitempty"`
	SchoolName string `json:"schoolName" validate:"required"`
	CentreID   int64  `json:"centreId,omitempty"`
}

// Student belongs to a school. Contact is kept as a string so the leading digit survives.
type Student struct {
	StudentID    int64  `json:"studentId,omitempty"`
	FirstName    string `json:"firstName" validate:"required"`
	MiddleName   string `json:"middleName,omitempty"`
	LastName     string `json:"lastName" validate:"required"`
	Contact      string `json:"contact" validate:"required,len=10,numeric,mobile"`
	Email        string `json:"email" validate:"required,email"`
	Age          int    `json:"age" validate:"gte=1,lte=120"`
	MotherTongue string `json:"motherTongue" validate:"required"`
	Password     string `json:"password,omitempty"`
	SchoolID     int64  `json:"schoolId,omitempty"`
}

// FullName joins the non-empty name parts.
func (s Student) FullName() string {
	name := s.FirstName
	if s.MiddleName != "" {
		name += " " + s.MiddleName
	}
	if s.LastName != "" {
		name += " " + s.LastName
	}
	return name
}

// =============================================================================
// EXAMS
// =============================================================================

// Paper is one written paper of an exam.
type Paper struct {
	Name     string `json:"name" yaml:"name"`
	MaxMarks int    `json:"maxMarks" yaml:"maxMarks"`
}

// ExamIdentity describes who conducts the exam.
type ExamIdentity struct {
	ExamFullTitle  string `json:"examFullTitle,omitempty" yaml:"examFullTitle"`
	ConductingBody string `json:"conductingBody,omitempty" yaml:"conductingBody"`
	Board          string `json:"board,omitempty" yaml:"board"`
	ExamLevel      string `json:"examLevel,omitempty" yaml:"examLevel"`
	Language       string `json:"language,omitempty" yaml:"language"`
}

// ExamSchedule holds session metadata.
type ExamSchedule struct {
	Session       string `json:"session,omitempty" yaml:"session"`
	Mode          string `json:"mode,omitempty" yaml:"mode"`
	Medium        string `json:"medium,omitempty" yaml:"medium"`
	TotalDuration string `json:"totalDuration,omitempty" yaml:"totalDuration"`
}

// ExamRules is descriptive metadata. PassingCriteria is never consulted when scoring.
type ExamRules struct {
	Eligibility        string `json:"eligibility,omitempty" yaml:"eligibility"`
	PassingCriteria    string `json:"passingCriteria,omitempty" yaml:"passingCriteria"`
	GraceMarksAllowed  *bool  `json:"graceMarksAllowed,omitempty" yaml:"graceMarksAllowed"`
	RevaluationAllowed *bool  `json:"revaluationAllowed,omitempty" yaml:"revaluationAllowed"`
	MaxAttempts        string `json:"maxAttempts,omitempty" yaml:"maxAttempts"`
}

// ExamStructure flags the optional oral and project components.
type ExamStructure struct {
	HasOral    bool `json:"hasOral" yaml:"hasOral"`
	HasProject bool `json:"hasProject" yaml:"hasProject"`
}

// ExamDetails is the nested eligibility/schedule/structure metadata of an exam.
type ExamDetails struct {
	Identity  ExamIdentity  `json:"identity" yaml:"identity"`
	Schedule  ExamSchedule  `json:"schedule" yaml:"schedule"`
	Rules     ExamRules     `json:"rules" yaml:"rules"`
	Structure ExamStructure `json:"structure" yaml:"structure"`
}

// Exam is an independent top-level definition. Papers and Details travel as
// JSON strings on the wire; see gateway.EncodeExam and gateway.DecodeExam.
type Exam struct {
	ExamNo               int64       `json:"examNo,omitempty" yaml:"-"`
	ExamName             string      `json:"exam_name" yaml:"exam_name" validate:"required"`
	ExamCode             string      `json:"exam_code" yaml:"exam_code" validate:"required"`
	Status               string      `json:"status" yaml:"status"`
	NoOfPapers           int         `json:"no_of_papers" yaml:"no_of_papers"`
	ExamFees             float64     `json:"exam_fees" yaml:"exam_fees"`
	ApplicationStartDate string      `json:"application_start_date" yaml:"application_start_date"`
	ApplicationEndDate   string      `json:"application_end_date" yaml:"application_end_date"`
	ExamStartDate        string      `json:"exam_start_date" yaml:"exam_start_date"`
	ExamEndDate          string      `json:"exam_end_date" yaml:"exam_end_date"`
	Papers               []Paper     `json:"-" yaml:"papers"`
	Details              ExamDetails `json:"-" yaml:"exam_details"`
}

// =============================================================================
// SIMULATION: APPLICATION -> RESULT
// =============================================================================

// FormData is the free-form payload attached to an application.
type FormData struct {
	ApplicationType string `json:"applicationType"`
	Remarks         string `json:"remarks"`
	SubmissionDate  string `json:"submissionDate"`
}

// Application links a student to an exam.
type Application struct {
	ApplicationID int64    `json:"applicationId,omitempty"`
	StudentID     int64    `json:"studentId" validate:"required"`
	StudentName   string   `json:"studentName,omitempty"`
	ExamNo        int64    `json:"examNo" validate:"required"`
	Form          FormData `json:"-"`
	Status        string   `json:"status,omitempty"`
}

// ResultData is the score breakdown stored with a published result.
type ResultData struct {
	Score         string         `json:"score"`
	Remarks       string         `json:"remarks"`
	TotalObtained int            `json:"totalObtained"`
	TotalMax      int            `json:"totalMax"`
	Breakdown     map[string]int `json:"breakdown"`
	OralMarks     *int           `json:"oralMarks,omitempty"`
	ProjectMarks  *int           `json:"projectMarks,omitempty"`
}

// Result is the published outcome of one application. Publication is final.
type Result struct {
	ApplicationID int64      `json:"applicationId" validate:"required"`
	TotalMarks    float64    `json:"totalMarks"`
	Percentage    float64    `json:"percentage" validate:"gte=0,lte=100"`
	Data          ResultData `json:"-"`
	PublishedAt   time.Time  `json:"publishedAt"`
}
