package models

// Department is a read-only reference to an academic department.
type Department struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"size:160;not null" json:"name"`
}

// CourseSession is a course offering in a given term, owned by the course directory.
type CourseSession struct {
	ID           uint             `gorm:"primaryKey" json:"id"`
	CourseCode   string           `gorm:"size:32;not null" json:"course_code"`
	CourseName   string           `gorm:"size:255;not null" json:"course_name"`
	DepartmentID uint             `gorm:"not null;index" json:"department_id"`
	Lecturers    []CourseLecturer `gorm:"foreignKey:CourseSessionID" json:"lecturers"`
}

// CourseLecturer links a lecturer to the course offering they teach.
type CourseLecturer struct {
	CourseSessionID uint   `gorm:"primaryKey" json:"course_session_id"`
	LecturerID      uint   `gorm:"primaryKey" json:"lecturer_id"`
	LecturerName    string `gorm:"size:255" json:"lecturer_name"`
}

// HasLecturer reports whether the lecturer is assigned to the course offering.
func (c CourseSession) HasLecturer(lecturerID uint) bool {
	for _, lecturer := range c.Lecturers {
		if lecturer.LecturerID == lecturerID {
			return true
		}
	}
	return false
}

// LecturerName returns the display name of an assigned lecturer, if known.
func (c CourseSession) LecturerName(lecturerID uint) string {
	for _, lecturer := range c.Lecturers {
		if lecturer.LecturerID == lecturerID {
			return lecturer.LecturerName
		}
	}
	return ""
}
