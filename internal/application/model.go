package application

import (
	"errors"
	"strings"
	"time"

	"github.com/uptrace/bun"
)

var (
	ErrValidation        = errors.New("validation failed")
	ErrInvalidAttachment = errors.New("invalid attachment")
	ErrNotFound          = errors.New("application not found")
	ErrStorage           = errors.New("storage failure")
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

type Application struct {
	bun.BaseModel `bun:"table:applications,alias:a"`

	ID                    int       `bun:"id,pk,autoincrement" json:"id"`
	UserID                *int      `bun:"user_id" json:"userId"`
	University            string    `bun:"university,notnull" json:"university"`
	Program               string    `bun:"program,notnull" json:"program"`
	IntakeMonth           string    `bun:"intake_month,notnull" json:"intakeMonth"`
	FullName              string    `bun:"full_name,notnull" json:"fullName"`
	Email                 string    `bun:"email,notnull" json:"email"`
	PassportNumber        string    `bun:"passport_number,notnull" json:"passportNumber"`
	DateOfBirth           string    `bun:"date_of_birth,notnull" json:"dateOfBirth"`
	AcademicQualification string    `bun:"academic_qualification,notnull" json:"academicQualification"`
	CvPath                *string   `bun:"cv_path" json:"cvPath"`
	TranscriptPath        *string   `bun:"transcript_path" json:"transcriptPath"`
	ProgramReason         string    `bun:"program_reason,notnull" json:"programReason"`
	LearningStyle         string    `bun:"learning_style,notnull" json:"learningStyle"`
	PersonalityTraits     string    `bun:"personality_traits,notnull" json:"personalityTraits"`
	LogicAnswer           string    `bun:"logic_answer,notnull" json:"logicAnswer"`
	Hobbies               string    `bun:"hobbies,notnull" json:"hobbies"`
	Status                Status    `bun:"status,notnull,default:'pending'" json:"status"`
	CreatedAt             time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"createdAt"`
}

// Fields are the applicant-supplied form values, all required.
type Fields struct {
	University            string `json:"university" validate:"required"`
	Program               string `json:"program" validate:"required"`
	IntakeMonth           string `json:"intakeMonth" validate:"required"`
	FullName              string `json:"fullName" validate:"required"`
	Email                 string `json:"email" validate:"required,email"`
	PassportNumber        string `json:"passportNumber" validate:"required"`
	DateOfBirth           string `json:"dateOfBirth" validate:"required"`
	AcademicQualification string `json:"academicQualification" validate:"required"`
	ProgramReason         string `json:"programReason" validate:"required"`
	LearningStyle         string `json:"learningStyle" validate:"required"`
	PersonalityTraits     string `json:"personalityTraits" validate:"required"`
	LogicAnswer           string `json:"logicAnswer" validate:"required"`
	Hobbies               string `json:"hobbies" validate:"required"`
}

// FieldsFromForm reads every field by its JSON name using get.
func FieldsFromForm(get func(name string) string) Fields {
	return Fields{
		University:            get("university"),
		Program:               get("program"),
		IntakeMonth:           get("intakeMonth"),
		FullName:              get("fullName"),
		Email:                 get("email"),
		PassportNumber:        get("passportNumber"),
		DateOfBirth:           get("dateOfBirth"),
		AcademicQualification: get("academicQualification"),
		ProgramReason:         get("programReason"),
		LearningStyle:         get("learningStyle"),
		PersonalityTraits:     get("personalityTraits"),
		LogicAnswer:           get("logicAnswer"),
		Hobbies:               get("hobbies"),
	}
}

func (f Fields) trimmed() Fields {
	return Fields{
		University:            strings.TrimSpace(f.University),
		Program:               strings.TrimSpace(f.Program),
		IntakeMonth:           strings.TrimSpace(f.IntakeMonth),
		FullName:              strings.TrimSpace(f.FullName),
		Email:                 strings.TrimSpace(f.Email),
		PassportNumber:        strings.TrimSpace(f.PassportNumber),
		DateOfBirth:           strings.TrimSpace(f.DateOfBirth),
		AcademicQualification: strings.TrimSpace(f.AcademicQualification),
		ProgramReason:         strings.TrimSpace(f.ProgramReason),
		LearningStyle:         strings.TrimSpace(f.LearningStyle),
		PersonalityTraits:     strings.TrimSpace(f.PersonalityTraits),
		LogicAnswer:           strings.TrimSpace(f.LogicAnswer),
		Hobbies:               strings.TrimSpace(f.Hobbies),
	}
}

func (f Fields) toApplication() *Application {
	return &Application{
		University:            f.University,
		Program:               f.Program,
		IntakeMonth:           f.IntakeMonth,
		FullName:              f.FullName,
		Email:                 f.Email,
		PassportNumber:        f.PassportNumber,
		DateOfBirth:           f.DateOfBirth,
		AcademicQualification: f.AcademicQualification,
		ProgramReason:         f.ProgramReason,
		LearningStyle:         f.LearningStyle,
		PersonalityTraits:     f.PersonalityTraits,
		LogicAnswer:           f.LogicAnswer,
		Hobbies:               f.Hobbies,
	}
}

type UpdateStatusRequest struct {
	Status Status `json:"status" validate:"required,oneof=pending approved rejected"`
}
