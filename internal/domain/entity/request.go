package entity

import (
	"fmt"
	"time"

	"github.com/garyjia/erp-approvals/internal/domain/approval"
)

// RequestRef locates a request: requests are partitioned by owner
type RequestRef struct {
	Kind  Kind   `json:"kind"`
	Owner string `json:"owner"`
	ID    string `json:"id"`
}

// Link returns the application link used in notifications
func (r RequestRef) Link() string {
	return fmt.Sprintf("/requests/%s/%s/%s", r.Kind, r.Owner, r.ID)
}

// String returns a readable form for logs
func (r RequestRef) String() string {
	return fmt.Sprintf("%s/%s/%s", r.Kind, r.Owner, r.ID)
}

// Request is a document moving through the approval chain. Vacation requests,
// purchase/sales/vehicle/expense approvals and reports share this shape.
type Request struct {
	ID             string                  `json:"id"`
	Kind           Kind                    `json:"kind"`
	Owner          string                  `json:"owner"`
	Title          string                  `json:"title"`
	Content        string                  `json:"content"`
	Approvers      approval.Approvers      `json:"approvers"`
	Status         approval.Status         `json:"status"`
	History        []approval.HistoryEntry `json:"approvalHistory"`
	CreatedAt      time.Time               `json:"createdAt"`
	LastApprovedAt *time.Time              `json:"lastApprovedAt,omitempty"`
	Vacation       *VacationDetail         `json:"vacation,omitempty"`
	Attachments    []Attachment            `json:"attachments,omitempty"`
}

// VacationDetail holds the period consumed by a vacation request
type VacationDetail struct {
	Type      string  `json:"type"`
	StartDate string  `json:"startDate"`
	EndDate   string  `json:"endDate"`
	Days      float64 `json:"days"`
}

// Attachment references a blob stored for a request
type Attachment struct {
	Key         string    `json:"key"`
	Name        string    `json:"name"`
	Size        int64     `json:"size"`
	ContentType string    `json:"contentType,omitempty"`
	UploadedAt  time.Time `json:"uploadedAt"`
}

// Ref returns the request's location
func (r *Request) Ref() RequestRef {
	return RequestRef{Kind: r.Kind, Owner: r.Owner, ID: r.ID}
}

// IsTerminal reports whether the request reached final approval or rejection
func (r *Request) IsTerminal() bool {
	return r.Status.IsTerminal()
}

// ConsumesBalance reports whether final approval of this request uses vacation days
func (r *Request) ConsumesBalance() bool {
	return r.Kind == KindVacation && r.Vacation != nil && r.Vacation.Days > 0
}

// Year returns the balance year a vacation is charged to. A vacation that
// runs into the next year is charged in full to the year it starts.
func (r *Request) Year() int {
	if r.Vacation != nil {
		if start, err := time.Parse("2006-01-02", r.Vacation.StartDate); err == nil {
			return start.Year()
		}
	}
	return r.CreatedAt.Year()
}
