package entity

import "time"

// Form is the subject of review. Business fields live in Payload and are
// opaque to the review workflow.
type Form struct {
	ID               int64     `json:"id"`
	Kind             FormKind  `json:"kind"`
	Status           Status    `json:"status"`
	RegionCode       string    `json:"region_code"`
	SBUCode          string    `json:"sbu_code,omitempty"`
	CreatedByAdminID *int64    `json:"created_by_admin_id,omitempty"`
	Title            string    `json:"title"`
	Payload          string    `json:"payload"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// IsCreatedBy reports whether adminID is the recorded creator or claimant
func (f *Form) IsCreatedBy(adminID int64) bool {
	return f.CreatedByAdminID != nil && *f.CreatedByAdminID == adminID
}

// IsClaimed reports whether a coordinator or author owns the form
func (f *Form) IsClaimed() bool {
	return f.CreatedByAdminID != nil
}

// FormFilter narrows form listings
type FormFilter struct {
	Kind       FormKind
	Status     Status
	RegionCode string
	Limit      int
	Offset     int
}
