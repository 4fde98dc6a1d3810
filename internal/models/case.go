package models

import "time"

// CaseStatus enumerates the case lifecycle states.
type CaseStatus string

const (
	CaseStatusInitiated            CaseStatus = "INITIATED"
	CaseStatusDocumentsPending     CaseStatus = "DOCUMENTS_PENDING"
	CaseStatusUnderReview          CaseStatus = "UNDER_REVIEW"
	CaseStatusDocumentsApproved    CaseStatus = "DOCUMENTS_APPROVED"
	CaseStatusApplicationSubmitted CaseStatus = "APPLICATION_SUBMITTED"
	CaseStatusInProgress           CaseStatus = "IN_PROGRESS"
	CaseStatusApproved             CaseStatus = "APPROVED"
	CaseStatusRejected             CaseStatus = "REJECTED"
	CaseStatusCompleted            CaseStatus = "COMPLETED"
)

// caseTransitions is the canonical successor table. IN_PROGRESS sits between
// submission and the agency decision; APPROVED closes out through COMPLETED.
var caseTransitions = map[CaseStatus][]CaseStatus{
	CaseStatusInitiated:            {CaseStatusDocumentsPending},
	CaseStatusDocumentsPending:     {CaseStatusUnderReview},
	CaseStatusUnderReview:          {CaseStatusDocumentsApproved},
	CaseStatusDocumentsApproved:    {CaseStatusApplicationSubmitted},
	CaseStatusApplicationSubmitted: {CaseStatusInProgress},
	CaseStatusInProgress:           {CaseStatusApproved, CaseStatusRejected},
	CaseStatusApproved:             {CaseStatusCompleted},
	CaseStatusRejected:             {},
	CaseStatusCompleted:            {},
}

// Valid reports whether the status is one of the enumerated values.
func (s CaseStatus) Valid() bool {
	_, ok := caseTransitions[s]
	return ok
}

// IsTerminal reports whether no further transition is permitted.
func (s CaseStatus) IsTerminal() bool {
	next, ok := caseTransitions[s]
	return ok && len(next) == 0
}

// CanTransitionTo reports whether target is a permitted successor.
func (s CaseStatus) CanTransitionTo(target CaseStatus) bool {
	for _, next := range caseTransitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

// Successors returns the permitted next statuses.
func (s CaseStatus) Successors() []CaseStatus {
	next := caseTransitions[s]
	out := make([]CaseStatus, len(next))
	copy(out, next)
	return out
}

// ServiceType enumerates the legal services offered.
type ServiceType string

const (
	ServiceWorkPermit         ServiceType = "WORK_PERMIT"
	ServiceVisaApplication    ServiceType = "VISA_APPLICATION"
	ServiceGreenCard          ServiceType = "GREEN_CARD"
	ServiceCitizenship        ServiceType = "CITIZENSHIP"
	ServiceDeportationDefense ServiceType = "DEPORTATION_DEFENSE"
	ServiceAsylum             ServiceType = "ASYLUM"
)

// ValidServiceType reports whether t is a known service type.
func ValidServiceType(t ServiceType) bool {
	switch t {
	case ServiceWorkPermit, ServiceVisaApplication, ServiceGreenCard,
		ServiceCitizenship, ServiceDeportationDefense, ServiceAsylum:
		return true
	}
	return false
}

// CaseTier is the purchased service level.
type CaseTier string

const (
	TierBasic    CaseTier = "basic"
	TierStandard CaseTier = "standard"
	TierPremium  CaseTier = "premium"
)

// Case represents an active legal matter. The case number is globally unique
// and immutable once assigned.
type Case struct {
	ID             string      `db:"id" json:"id"`
	CaseNumber     string      `db:"case_number" json:"case_number"`
	ClientName     string      `db:"client_name" json:"client_name"`
	ClientEmail    string      `db:"client_email" json:"client_email"`
	ClientPhone    string      `db:"client_phone" json:"client_phone"`
	PassportNumber *string     `db:"passport_number" json:"passport_number,omitempty"`
	PassportExpiry *time.Time  `db:"passport_expiry" json:"passport_expiry,omitempty"`
	ServiceType    ServiceType `db:"service_type" json:"service_type"`
	Tier           CaseTier    `db:"tier" json:"tier"`
	Priority       Priority    `db:"priority" json:"priority"`
	Status         CaseStatus  `db:"status" json:"status"`
	AssignedTo     *string     `db:"assigned_to" json:"assigned_to,omitempty"`
	LeadID         *string     `db:"lead_id" json:"lead_id,omitempty"`
	SMSEnabled     bool        `db:"sms_enabled" json:"sms_enabled"`
	CreatedAt      time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time   `db:"updated_at" json:"updated_at"`
}

// CaseFilter captures filtering criteria for listing cases.
type CaseFilter struct {
	Status      []CaseStatus
	ServiceType ServiceType
	Priority    Priority
	AssignedTo  string
	Search      string
	Page        int
	PageSize    int
}
