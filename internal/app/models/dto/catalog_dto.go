package dto

import "github.com/yigit/enrolladmin/internal/app/models"

// CreateCourseRequest adds a catalog entry
type CreateCourseRequest struct {
	Code            string                 `json:"code" binding:"required,max=50,course_code"`
	Name            string                 `json:"name" binding:"required,max=200"`
	Description     *string                `json:"description,omitempty" binding:"omitempty,max=2000"`
	CompetencyLevel models.CompetencyLevel `json:"competencyLevel" binding:"required,oneof=basic common core"`
}

// CreateOfferingRequest schedules a batch of a course
type CreateOfferingRequest struct {
	CourseID  int64  `json:"courseId" binding:"required,gt=0"`
	Batch     string `json:"batch" binding:"required,max=50"`
	Capacity  int    `json:"capacity" binding:"required,gt=0"`
	StartDate string `json:"startDate" binding:"required,datetime=2006-01-02"`
	EndDate   string `json:"endDate" binding:"required,datetime=2006-01-02"`
}

// UpdateOfferingRequest changes an offering's capacity or schedule
type UpdateOfferingRequest struct {
	Capacity  *int    `json:"capacity,omitempty" binding:"omitempty,gt=0"`
	StartDate *string `json:"startDate,omitempty" binding:"omitempty,datetime=2006-01-02"`
	EndDate   *string `json:"endDate,omitempty" binding:"omitempty,datetime=2006-01-02"`
}

// UpdateOfferingStatusRequest opens or closes an offering
type UpdateOfferingStatusRequest struct {
	Status models.OfferingStatus `json:"status" binding:"required,oneof=open closed"`
}

// OfferingListQuery holds the list filters accepted on GET /offerings
type OfferingListQuery struct {
	CourseID int64  `form:"courseId" binding:"omitempty,gt=0"`
	Status   string `form:"status" binding:"omitempty,oneof=open closed"`
	Batch    string `form:"batch"`
}

// Filter converts the query into a repository filter
func (q OfferingListQuery) Filter() models.OfferingFilter {
	var f models.OfferingFilter
	if q.CourseID > 0 {
		id := q.CourseID
		f.CourseID = &id
	}
	if q.Status != "" {
		s := models.OfferingStatus(q.Status)
		f.Status = &s
	}
	if q.Batch != "" {
		b := q.Batch
		f.Batch = &b
	}
	return f
}

// EnrollRequest enrolls an existing student into an offering
type EnrollRequest struct {
	StudentID  int64 `json:"studentId" binding:"required,gt=0"`
	OfferingID int64 `json:"offeringId" binding:"required,gt=0"`
}

// EnrollmentListQuery holds the list filters accepted on GET /enrollments
type EnrollmentListQuery struct {
	StudentID  int64  `form:"studentId" binding:"omitempty,gt=0"`
	OfferingID int64  `form:"offeringId" binding:"omitempty,gt=0"`
	Status     string `form:"status" binding:"omitempty,oneof=enrolled withdrawn completed"`
}

// Filter converts the query into a repository filter
func (q EnrollmentListQuery) Filter() models.EnrollmentFilter {
	var f models.EnrollmentFilter
	if q.StudentID > 0 {
		id := q.StudentID
		f.StudentID = &id
	}
	if q.OfferingID > 0 {
		id := q.OfferingID
		f.OfferingID = &id
	}
	if q.Status != "" {
		s := models.EnrollmentStatus(q.Status)
		f.Status = &s
	}
	return f
}
