package person

import (
	personDatamodel "github.com/frahmantamala/herasat/internal/core/datamodel/person"
	"gorm.io/datatypes"
)

// Patch is a partial update. Nil fields keep the stored value; a non-nil
// field overwrites the column even when it does not belong to the person's
// type. A non-nil Attachments replaces the whole list.
type Patch struct {
	FullName *string `json:"fullName,omitempty"`

	NationalID *string `json:"nationalId,omitempty"`
	PassportNo *string `json:"passportNo,omitempty"`
	BirthDate  *string `json:"birthDate,omitempty"`
	Gender     *string `json:"gender,omitempty"`
	Religion   *string `json:"religion,omitempty"`
	Sect       *string `json:"sect,omitempty"`
	Address    *string `json:"address,omitempty"`
	City       *string `json:"city,omitempty"`
	Country    *string `json:"country,omitempty"`
	Phone      *string `json:"phone,omitempty"`
	Email      *string `json:"email,omitempty"`
	Notes      *string `json:"notes,omitempty"`

	StudentNumber  *string `json:"studentNumber,omitempty"`
	Faculty        *string `json:"faculty,omitempty"`
	Program        *string `json:"program,omitempty"`
	EnrollmentYear *string `json:"enrollmentYear,omitempty"`
	IsForeign      *bool   `json:"isForeign,omitempty"`

	EmployeeNumber *string `json:"employeeNumber,omitempty"`
	Department     *string `json:"department,omitempty"`
	Position       *string `json:"position,omitempty"`
	FacultyType    *string `json:"facultyType,omitempty"`
	Rank           *string `json:"rank,omitempty"`
	Specialization *string `json:"specialization,omitempty"`

	Attachments []string `json:"attachments,omitempty"`
}

func (p Patch) applyTo(row *personDatamodel.Person) {
	if p.FullName != nil {
		row.FullName = *p.FullName
	}
	set(&row.NationalID, p.NationalID)
	set(&row.PassportNo, p.PassportNo)
	set(&row.BirthDate, p.BirthDate)
	set(&row.Gender, p.Gender)
	set(&row.Religion, p.Religion)
	set(&row.Sect, p.Sect)
	set(&row.Address, p.Address)
	set(&row.City, p.City)
	set(&row.Country, p.Country)
	set(&row.Phone, p.Phone)
	set(&row.Email, p.Email)
	set(&row.Notes, p.Notes)
	set(&row.StudentNumber, p.StudentNumber)
	set(&row.Faculty, p.Faculty)
	set(&row.Program, p.Program)
	set(&row.EnrollmentYear, p.EnrollmentYear)
	set(&row.IsForeign, p.IsForeign)
	set(&row.EmployeeNumber, p.EmployeeNumber)
	set(&row.Department, p.Department)
	set(&row.Position, p.Position)
	set(&row.FacultyType, p.FacultyType)
	set(&row.Rank, p.Rank)
	set(&row.Specialization, p.Specialization)
	if p.Attachments != nil {
		row.Attachments = datatypes.NewJSONSlice(p.Attachments)
	}
}

func set[T any](dst **T, v *T) {
	if v != nil {
		cp := *v
		*dst = &cp
	}
}
