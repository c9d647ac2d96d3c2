package gateway

import (
	"bytes"
	"encoding/json"
	"fmt"

	"examseed/internal/types"
)

// The service stores papers, exam_details, formData and resultData as JSON
// text columns. On the way out they are encoded to strings here; on the way in
// they may arrive either as a string or as a nested value.

type examWire struct {
	types.Exam
	Papers  string `json:"papers"`
	Details string `json:"exam_details"`
}

// EncodeExam returns the creation body for an exam.
func EncodeExam(e types.Exam) (any, error) {
	papers := e.Papers
	if papers == nil {
		papers = []types.Paper{}
	}
	p, err := encodeString(papers)
	if err != nil {
		return nil, fmt.Errorf("failed to encode papers: %w", err)
	}
	d, err := encodeString(e.Details)
	if err != nil {
		return nil, fmt.Errorf("failed to encode exam_details: %w", err)
	}
	e.ExamNo = 0
	return examWire{Exam: e, Papers: p, Details: d}, nil
}

type examRecord struct {
	types.Exam
	Papers  json.RawMessage `json:"papers"`
	Details json.RawMessage `json:"exam_details"`
}

// DecodeExam decodes one exam from a list response. Malformed papers or
// exam_details degrade to empty values; only an undecodable record is an error.
func DecodeExam(raw json.RawMessage) (types.Exam, error) {
	var rec examRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return types.Exam{}, fmt.Errorf("failed to decode exam: %w", err)
	}
	exam := rec.Exam
	if !decodeNested(rec.Papers, &exam.Papers) {
		exam.Papers = nil
	}
	exam.Details = decodeDetails(rec.Details)
	return exam, nil
}

// decodeDetails decodes exam_details section by section, so a malformed
// section only empties itself.
func decodeDetails(raw json.RawMessage) types.ExamDetails {
	var d types.ExamDetails
	if decodeNested(raw, &d) {
		return d
	}
	var sections struct {
		Identity  json.RawMessage `json:"identity"`
		Schedule  json.RawMessage `json:"schedule"`
		Rules     json.RawMessage `json:"rules"`
		Structure json.RawMessage `json:"structure"`
	}
	d = types.ExamDetails{}
	if !decodeNested(raw, &sections) {
		return d
	}
	if !decodeNested(sections.Identity, &d.Identity) {
		d.Identity = types.ExamIdentity{}
	}
	if !decodeNested(sections.Schedule, &d.Schedule) {
		d.Schedule = types.ExamSchedule{}
	}
	if !decodeNested(sections.Rules, &d.Rules) {
		d.Rules = types.ExamRules{}
	}
	if !decodeNested(sections.Structure, &d.Structure) {
		d.Structure = types.ExamStructure{}
	}
	return d
}

type applicationRecord struct {
	types.Application
	Student *struct {
		StudentID int64  `json:"studentId"`
		FirstName string `json:"firstName"`
		LastName  string `json:"lastName"`
	} `json:"student"`
	Exam *struct {
		ExamNo int64 `json:"examNo"`
	} `json:"exam"`
	FormData json.RawMessage `json:"formData"`
}

// DecodeApplication decodes one application. Both the flat list form
// (studentId, examNo, studentName) and the nested entity form are accepted.
func DecodeApplication(raw json.RawMessage) (types.Application, error) {
	var rec applicationRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return types.Application{}, fmt.Errorf("failed to decode application: %w", err)
	}
	app := rec.Application
	if rec.Student != nil {
		if app.StudentID == 0 {
			app.StudentID = rec.Student.StudentID
		}
		if app.StudentName == "" {
			app.StudentName = types.Student{FirstName: rec.Student.FirstName, LastName: rec.Student.LastName}.FullName()
		}
	}
	if rec.Exam != nil && app.ExamNo == 0 {
		app.ExamNo = rec.Exam.ExamNo
	}
	if !decodeNested(rec.FormData, &app.Form) {
		app.Form = types.FormData{}
	}
	return app, nil
}

// decodeNested decodes a value that may be a JSON string holding JSON, or the
// JSON value itself. Absent and null values report success with v untouched.
func decodeNested(raw json.RawMessage, v any) bool {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return true
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return false
		}
		if s == "" {
			return true
		}
		raw = []byte(s)
	}
	return json.Unmarshal(raw, v) == nil
}

func encodeString(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
