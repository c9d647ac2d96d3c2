package gateway

import (
	"context"
	"fmt"
	"strings"
	"time"

	"examseed/internal/types"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// newValidator returns a validator that also knows the "mobile" tag:
// a number whose first digit is 7, 8 or 9.
func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("mobile", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return s != "" && strings.ContainsRune("789", rune(s[0]))
	})
	return v
}

// check validates a payload before it is sent. Invalid payloads become a local
// Rejected outcome with status 0.
func (c *Client) check(kind types.EntityKind, v any) (Outcome, bool) {
	if err := c.validate.Struct(v); err != nil {
		c.logger.Debug("payload failed validation", zap.String("kind", string(kind)), zap.Error(err))
		return rejectLocally(fmt.Sprintf("invalid %s payload: %v", kind, err)), false
	}
	return Outcome{}, true
}

// =============================================================================
// WIRE BODIES
// =============================================================================

type regionBody struct {
	RegionName string `json:"regionName"`
}

type centreBody struct {
	CentreName string `json:"centreName"`
	CentreCode string `json:"centreCode"`
}

type schoolBody struct {
	SchoolName string `json:"schoolName"`
}

type studentBody struct {
	FirstName    string `json:"firstName"`
	MiddleName   string `json:"middleName"`
	LastName     string `json:"lastName"`
	Contact      string `json:"contact"`
	Email        string `json:"email"`
	Age          int    `json:"age"`
	MotherTongue string `json:"motherTongue"`
	Password     string `json:"password"`
}

type studentRef struct {
	StudentID int64 `json:"studentId"`
}

type examRef struct {
	ExamNo int64 `json:"examNo"`
}

type applicationRef struct {
	ApplicationID int64 `json:"applicationId"`
}

type applicationBody struct {
	Student  studentRef `json:"student"`
	Exam     examRef    `json:"exam"`
	FormData string     `json:"formData"`
	Status   string     `json:"status"`
}

type resultBody struct {
	Application applicationRef `json:"application"`
	TotalMarks  float64        `json:"totalMarks"`
	Percentage  float64        `json:"percentage"`
	ResultData  string         `json:"resultData"`
	PublishedAt string         `json:"publishedAt"`
}

// publishedAtLayout is ISO-8601 without a zone, as the service stores LocalDateTime.
const publishedAtLayout = "2006-01-02T15:04:05.000000"

// =============================================================================
// TYPED HELPERS
// =============================================================================

// CreateRegion creates a region by name.
func (c *Client) CreateRegion(ctx context.Context, r types.Region) Outcome {
	if out, ok := c.check(types.KindRegion, r); !ok {
		return out
	}
	return c.Create(ctx, types.KindRegion, 0, regionBody{RegionName: r.RegionName})
}

// CreateCentre creates an exam centre under ce.RegionID.
func (c *Client) CreateCentre(ctx context.Context, ce types.Centre) Outcome {
	if out, ok := c.check(types.KindCentre, ce); !ok {
		return out
	}
	return c.Create(ctx, types.KindCentre, ce.RegionID, centreBody{CentreName: ce.CentreName, CentreCode: ce.CentreCode})
}

// CreateSchool creates a school under s.CentreID.
func (c *Client) CreateSchool(ctx context.Context, s types.School) Outcome {
	if out, ok := c.check(types.KindSchool, s); !ok {
		return out
	}
	return c.Create(ctx, types.KindSchool, s.CentreID, schoolBody{SchoolName: s.SchoolName})
}

// CreateStudent creates a student under s.SchoolID.
func (c *Client) CreateStudent(ctx context.Context, s types.Student) Outcome {
	if out, ok := c.check(types.KindStudent, s); !ok {
		return out
	}
	return c.Create(ctx, types.KindStudent, s.SchoolID, studentBody{
		FirstName:    s.FirstName,
		MiddleName:   s.MiddleName,
		LastName:     s.LastName,
		Contact:      s.Contact,
		Email:        s.Email,
		Age:          s.Age,
		MotherTongue: s.MotherTongue,
		Password:     s.Password,
	})
}

// CreateExam creates an exam definition; papers and exam_details travel as JSON strings.
func (c *Client) CreateExam(ctx context.Context, e types.Exam) Outcome {
	if out, ok := c.check(types.KindExam, e); !ok {
		return out
	}
	body, err := EncodeExam(e)
	if err != nil {
		return rejectLocally(err.Error())
	}
	return c.Create(ctx, types.KindExam, 0, body)
}

// SubmitApplication files an application for a student and exam.
func (c *Client) SubmitApplication(ctx context.Context, a types.Application) Outcome {
	if out, ok := c.check(types.KindApplication, a); !ok {
		return out
	}
	form, err := encodeString(a.Form)
	if err != nil {
		return rejectLocally(fmt.Sprintf("failed to encode formData: %v", err))
	}
	return c.Create(ctx, types.KindApplication, 0, applicationBody{
		Student:  studentRef{StudentID: a.StudentID},
		Exam:     examRef{ExamNo: a.ExamNo},
		FormData: form,
		Status:   a.Status,
	})
}

// PublishResult publishes the result of one application. There is no update path.
func (c *Client) PublishResult(ctx context.Context, r types.Result) Outcome {
	if out, ok := c.check(types.KindResult, r); !ok {
		return out
	}
	data, err := encodeString(r.Data)
	if err != nil {
		return rejectLocally(fmt.Sprintf("failed to encode resultData: %v", err))
	}
	published := r.PublishedAt
	if published.IsZero() {
		published = time.Now()
	}
	return c.Create(ctx, types.KindResult, 0, resultBody{
		Application: applicationRef{ApplicationID: r.ApplicationID},
		TotalMarks:  r.TotalMarks,
		Percentage:  r.Percentage,
		ResultData:  data,
		PublishedAt: published.Format(publishedAtLayout),
	})
}
