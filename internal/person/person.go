package person

import (
	"time"

	personDatamodel "github.com/frahmantamala/herasat/internal/core/datamodel/person"
	"gorm.io/datatypes"
)

type Type string

const (
	TypeStudent           Type = "student"
	TypeStaff             Type = "staff"
	TypeFacultyHeyat      Type = "faculty-heyat"
	TypeFacultyHaghtadris Type = "faculty-haghtadris"

	// typeFacultyLegacy appears in databases written before faculty members
	// were split by appointment. It is readable but not creatable.
	typeFacultyLegacy Type = "faculty"
)

var Types = []string{
	string(TypeStudent),
	string(TypeStaff),
	string(TypeFacultyHeyat),
	string(TypeFacultyHaghtadris),
}

// Profile holds the identity and contact fields every person type shares.
type Profile struct {
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
}

// Details is the type-specific part of a person. The concrete type decides
// the person's Type.
type Details interface {
	Type() Type
	apply(row *personDatamodel.Person)
}

type StudentDetails struct {
	StudentNumber  *string `json:"studentNumber,omitempty"`
	Faculty        *string `json:"faculty,omitempty"`
	Program        *string `json:"program,omitempty"`
	EnrollmentYear *string `json:"enrollmentYear,omitempty"`
	IsForeign      *bool   `json:"isForeign,omitempty"`
}

func (StudentDetails) Type() Type { return TypeStudent }

func (d StudentDetails) apply(row *personDatamodel.Person) {
	row.StudentNumber = d.StudentNumber
	row.Faculty = d.Faculty
	row.Program = d.Program
	row.EnrollmentYear = d.EnrollmentYear
	row.IsForeign = d.IsForeign
}

type StaffDetails struct {
	EmployeeNumber *string `json:"employeeNumber,omitempty"`
	Department     *string `json:"department,omitempty"`
	Position       *string `json:"position,omitempty"`
}

func (StaffDetails) Type() Type { return TypeStaff }

func (d StaffDetails) apply(row *personDatamodel.Person) {
	row.EmployeeNumber = d.EmployeeNumber
	row.Department = d.Department
	row.Position = d.Position
}

// FacultyDetails covers both faculty appointments; Kind tells them apart.
type FacultyDetails struct {
	Kind           Type    `json:"kind"`
	EmployeeNumber *string `json:"employeeNumber,omitempty"`
	FacultyType    *string `json:"facultyType,omitempty"`
	Rank           *string `json:"rank,omitempty"`
	Specialization *string `json:"specialization,omitempty"`
}

func (d FacultyDetails) Type() Type {
	if d.Kind == "" {
		return TypeFacultyHeyat
	}
	return d.Kind
}

func (d FacultyDetails) apply(row *personDatamodel.Person) {
	row.EmployeeNumber = d.EmployeeNumber
	row.FacultyType = d.FacultyType
	row.Rank = d.Rank
	row.Specialization = d.Specialization
}

type Person struct {
	ID          string    `json:"id"`
	FullName    string    `json:"fullName"`
	Profile     Profile   `json:"profile"`
	Details     Details   `json:"details"`
	Attachments []string  `json:"attachments"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (p *Person) Type() Type {
	if p.Details == nil {
		return ""
	}
	return p.Details.Type()
}

func (p *Person) IsFaculty() bool {
	_, ok := p.Details.(FacultyDetails)
	return ok
}

// ToDataModel flattens p into a storage row. Columns that do not belong to
// p's type are left NULL.
func ToDataModel(p *Person) *personDatamodel.Person {
	row := &personDatamodel.Person{
		ID:          p.ID,
		Type:        string(p.Type()),
		FullName:    p.FullName,
		NationalID:  p.Profile.NationalID,
		PassportNo:  p.Profile.PassportNo,
		BirthDate:   p.Profile.BirthDate,
		Gender:      p.Profile.Gender,
		Religion:    p.Profile.Religion,
		Sect:        p.Profile.Sect,
		Address:     p.Profile.Address,
		City:        p.Profile.City,
		Country:     p.Profile.Country,
		Phone:       p.Profile.Phone,
		Email:       p.Profile.Email,
		Notes:       p.Profile.Notes,
		Attachments: datatypes.NewJSONSlice(nonNil(p.Attachments)),
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
	if p.Details != nil {
		p.Details.apply(row)
	}
	return row
}

// FromDataModel rebuilds the tagged person from a row, reading only the
// columns that belong to the row's type.
func FromDataModel(row *personDatamodel.Person) *Person {
	p := &Person{
		ID:       row.ID,
		FullName: row.FullName,
		Profile: Profile{
			NationalID: row.NationalID,
			PassportNo: row.PassportNo,
			BirthDate:  row.BirthDate,
			Gender:     row.Gender,
			Religion:   row.Religion,
			Sect:       row.Sect,
			Address:    row.Address,
			City:       row.City,
			Country:    row.Country,
			Phone:      row.Phone,
			Email:      row.Email,
			Notes:      row.Notes,
		},
		Attachments: nonNil([]string(row.Attachments)),
		CreatedAt:   row.CreatedAt.UTC(),
		UpdatedAt:   row.UpdatedAt.UTC(),
	}

	switch Type(row.Type) {
	case TypeStudent:
		p.Details = StudentDetails{
			StudentNumber:  row.StudentNumber,
			Faculty:        row.Faculty,
			Program:        row.Program,
			EnrollmentYear: row.EnrollmentYear,
			IsForeign:      row.IsForeign,
		}
	case TypeStaff:
		p.Details = StaffDetails{
			EmployeeNumber: row.EmployeeNumber,
			Department:     row.Department,
			Position:       row.Position,
		}
	case TypeFacultyHeyat, TypeFacultyHaghtadris, typeFacultyLegacy:
		p.Details = FacultyDetails{
			Kind:           Type(row.Type),
			EmployeeNumber: row.EmployeeNumber,
			FacultyType:    row.FacultyType,
			Rank:           row.Rank,
			Specialization: row.Specialization,
		}
	}
	return p
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
