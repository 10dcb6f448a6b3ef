package domain

import (
	"encoding/json"
	"strings"
	"time"
)

// Field names one of the four editable form inputs
type Field string

const (
	FieldName    Field = "name"
	FieldEmail   Field = "email"
	FieldPhone   Field = "phone"
	FieldProject Field = "project"
)

// Fields lists the draft keys in form order
var Fields = []Field{FieldName, FieldEmail, FieldPhone, FieldProject}

// ParseField maps an input name to a Field
func ParseField(name string) (Field, error) {
	f := Field(strings.TrimSpace(name))
	if !f.Valid() {
		return "", ErrUnknownField
	}
	return f, nil
}

// Valid reports whether f is one of the four draft keys
func (f Field) Valid() bool {
	switch f {
	case FieldName, FieldEmail, FieldPhone, FieldProject:
		return true
	}
	return false
}

// SubmissionDraft holds the unsaved form values while the visitor is editing
type SubmissionDraft struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Project string `json:"project"`
}

// With returns a copy of the draft with exactly one field replaced.
// Unknown fields leave the draft unchanged.
func (d SubmissionDraft) With(f Field, value string) SubmissionDraft {
	switch f {
	case FieldName:
		d.Name = value
	case FieldEmail:
		d.Email = value
	case FieldPhone:
		d.Phone = value
	case FieldProject:
		d.Project = value
	}
	return d
}

// Value returns the current value of f
func (d SubmissionDraft) Value(f Field) string {
	switch f {
	case FieldName:
		return d.Name
	case FieldEmail:
		return d.Email
	case FieldPhone:
		return d.Phone
	case FieldProject:
		return d.Project
	}
	return ""
}

// IsEmpty reports whether every field is blank
func (d SubmissionDraft) IsEmpty() bool {
	return d == SubmissionDraft{}
}

// Record derives the payload sent to the persistence layer.
// project is renamed to project_description; everything else passes through.
func (d SubmissionDraft) Record() SubmissionRecord {
	return SubmissionRecord{
		Name:               d.Name,
		Email:              d.Email,
		Phone:              d.Phone,
		ProjectDescription: d.Project,
	}
}

// SubmissionRecord is one row of the contact_submissions table as written by the form
type SubmissionRecord struct {
	Name               string `json:"name"`
	Email              string `json:"email"`
	Phone              string `json:"phone"`
	ProjectDescription string `json:"project_description"`
}

// StoredSubmission is a persisted record with the server-assigned columns
type StoredSubmission struct {
	ID RowID `json:"id,omitempty"`
	SubmissionRecord
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// RowID is a primary key that may come back as a JSON number (bigint) or a string (uuid)
type RowID string

func (id *RowID) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = RowID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*id = RowID(n.String())
	return nil
}
