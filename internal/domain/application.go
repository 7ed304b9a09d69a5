package domain

import "time"

type ApplicationStatus string

const (
	ApplicationPending  ApplicationStatus = "pending"
	ApplicationApproved ApplicationStatus = "approved"
)

// Plan is the slot selection an applicant made: a date range plus the slot
// to occupy each day.
type Plan struct {
	StartDate  string
	EndDate    string
	SlotTypeID string
}

// Application is a pending seat request a manager resolves through the
// approval allocator. Created by the intake flow, which is outside this
// service.
type Application struct {
	ID        string
	StudentID string
	LibraryID string
	Status    ApplicationStatus
	Plan      Plan
	CreatedAt time.Time
	UpdatedAt time.Time
}
