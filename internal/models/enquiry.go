package models

import (
	"time"
)

// EnquiryOrigin identifies how an enquiry entered the system.
type EnquiryOrigin string

const (
	OriginManual          EnquiryOrigin = "manual"
	OriginWhatsAppWebhook EnquiryOrigin = "whatsapp_webhook"
	OriginOther           EnquiryOrigin = "other"
)

// SourceProvenance preserves the raw inbound message fields an enquiry
// was derived from. RawMessageID doubles as the idempotency key.
type SourceProvenance struct {
	RawSenderName  string `json:"raw_sender_name"`
	RawChatID      string `json:"raw_chat_id"`
	RawMessageText string `json:"raw_message_text"`
	RawMessageID   string `json:"raw_message_id"`
}

// Enquiry is a persisted lead record.
type Enquiry struct {
	ID                 int64            `json:"id"`
	DisplayName        string           `json:"display_name"`
	MobileNumber       string           `json:"mobile_number"`
	Staff              string           `json:"staff"`
	Comments           string           `json:"comments,omitempty"`
	AdditionalComments string           `json:"additional_comments,omitempty"`
	Origin             EnquiryOrigin    `json:"origin"`
	Provenance         SourceProvenance `json:"source_provenance"`
	CreatedAt          time.Time        `json:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at"`
}

// AgeDays returns the whole days elapsed since creation. It is derived
// at read time and never stored.
func (e *Enquiry) AgeDays(now time.Time) int {
	if now.Before(e.CreatedAt) {
		return 0
	}
	return int(now.Sub(e.CreatedAt).Hours() / 24)
}

// Assigned reports whether the enquiry has a staff member routed to it.
func (e *Enquiry) Assigned() bool {
	return e.Staff != ""
}

// StaffUIState is the per-enquiry editability state of the staff field,
// derived from the lock policy on every read.
type StaffUIState string

const (
	StaffStateEnabled         StaffUIState = "enabled"
	StaffStateEnabledPriority StaffUIState = "enabled_priority"
	StaffStateDisabledLocked  StaffUIState = "disabled_locked"
	StaffStateDisabledError   StaffUIState = "disabled_error"
)

// StaffLockStatus summarizes the global assignment lock over the whole
// enquiry set. It is recomputed on every list read, never persisted.
type StaffLockStatus struct {
	Locked                 bool   `json:"locked"`
	Reason                 string `json:"reason"`
	UnassignedOldEnquiries int    `json:"unassigned_old_enquiries"`
	AssignedEnquiries      int    `json:"assigned_enquiries"`
}

// EnquiryView is an Enquiry decorated with the derived lock fields the
// UI consumes.
type EnquiryView struct {
	Enquiry
	IsOldEnquiry           bool         `json:"is_old_enquiry"`
	EnquiryAgeDays         int          `json:"enquiry_age_days"`
	StaffDropdownEnabled   bool         `json:"staff_dropdown_enabled"`
	StaffDropdownClickable bool         `json:"staff_dropdown_clickable"`
	StaffDropdownReason    string       `json:"staff_dropdown_reason"`
	StaffDropdownUIState   StaffUIState `json:"staff_dropdown_ui_state"`
	CanAssignStaff         bool         `json:"can_assign_staff"`
}

// EnquiryListResponse is the list payload: decorated enquiries plus the
// sibling lock summary.
type EnquiryListResponse struct {
	Enquiries       []EnquiryView   `json:"enquiries"`
	StaffLockStatus StaffLockStatus `json:"staff_lock_status"`
}

// EnquiryStats aggregates counts for the stats endpoint.
type EnquiryStats struct {
	TotalEnquiries int            `json:"total_enquiries"`
	Assigned       int            `json:"assigned_enquiries"`
	Unassigned     int            `json:"unassigned_enquiries"`
	ByOrigin       map[string]int `json:"by_origin"`
	ByStaff        map[string]int `json:"by_staff"`
}

// EnquiryCreatedEvent is published to the real-time notification channel
// after a successful webhook-origin write. Delivery is best-effort.
type EnquiryCreatedEvent struct {
	EnquiryID    int64     `json:"enquiry_id"`
	DisplayName  string    `json:"display_name"`
	MobileNumber string    `json:"mobile_number"`
	CreatedAt    time.Time `json:"created_at"`
}
