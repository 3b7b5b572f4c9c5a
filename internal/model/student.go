package model

import "strings"

// Student is a registered member of the organization (`students` table).
// StudentID is the number printed on the student card; ID is the row id
// used by foreign keys.
//
// Fields:
//  ID         – primary key identifier.
//  StudentID  – unique student number.
//  LastName   – family name.
//  FirstName  – given name.
//  Speciality – course of study.
//  IsMember   – whether the student paid the membership fee.
type Student struct {
	ID         uint64 `json:"id"`         // students.id
	StudentID  uint64 `json:"studentId"`  // students.student_id
	LastName   string `json:"lastName"`   // students.last_name
	FirstName  string `json:"firstName"`  // students.first_name
	Speciality string `json:"speciality"` // students.speciality
	IsMember   bool   `json:"isMember"`   // students.is_member
}

// Guest is a non-student attendee. GuarantorID optionally points at the
// Student row that vouches for the guest.
type Guest struct {
	ID          uint64   `json:"id"`                  // guests.id
	LastName    string   `json:"lastName"`            // guests.last_name
	FirstName   string   `json:"firstName"`           // guests.first_name
	GuarantorID *uint64  `json:"guarantorId"`         // guests.guarantor_id (nullable)
	Guarantor   *Student `json:"guarantor,omitempty"` // joined when listing
}

// FullName renders "First LAST" the way the check-in log displays people.
func FullName(first, last string) string {
	return first + " " + strings.ToUpper(last)
}
