package person

import (
	"time"

	"gorm.io/datatypes"
)

// Person is the flat row shared by every person type. Columns that do not
// apply to a row's type are NULL.
type Person struct {
	ID             string                      `gorm:"column:id;primaryKey"`
	Type           string                      `gorm:"column:type;not null"`
	FullName       string                      `gorm:"column:full_name;not null"`
	NationalID     *string                     `gorm:"column:national_id"`
	PassportNo     *string                     `gorm:"column:passport_no"`
	BirthDate      *string                     `gorm:"column:birth_date"`
	Gender         *string                     `gorm:"column:gender"`
	Religion       *string                     `gorm:"column:religion"`
	Sect           *string                     `gorm:"column:sect"`
	Address        *string                     `gorm:"column:address"`
	City           *string                     `gorm:"column:city"`
	Country        *string                     `gorm:"column:country"`
	Phone          *string                     `gorm:"column:phone"`
	Email          *string                     `gorm:"column:email"`
	StudentNumber  *string                     `gorm:"column:student_number"`
	Faculty        *string                     `gorm:"column:faculty"`
	Program        *string                     `gorm:"column:program"`
	EnrollmentYear *string                     `gorm:"column:enrollment_year"`
	IsForeign      *bool                       `gorm:"column:is_foreign"`
	EmployeeNumber *string                     `gorm:"column:employee_number"`
	Department     *string                     `gorm:"column:department"`
	Position       *string                     `gorm:"column:position"`
	FacultyType    *string                     `gorm:"column:faculty_type"`
	Rank           *string                     `gorm:"column:rank"`
	Specialization *string                     `gorm:"column:specialization"`
	Notes          *string                     `gorm:"column:notes"`
	Attachments    datatypes.JSONSlice[string] `gorm:"column:attachments"`
	CreatedAt      time.Time                   `gorm:"column:created_at;not null;autoCreateTime:false"`
	UpdatedAt      time.Time                   `gorm:"column:updated_at;not null;autoUpdateTime:false"`
}

func (Person) TableName() string { return "people" }
