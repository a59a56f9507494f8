package service

import (
	"fmt"
	"time"

	"whatsenquiry/internal/models"
)

// The staff-assignment lock enforces FIFO triage: while any enquiry
// older than today is still unassigned, staff cannot be routed to
// enquiries created today. The lock is never stored; it is derived from
// the current enquiry set on every read and re-derived on every staff
// write.

// ComputeLockStatus derives the global lock state over the full enquiry
// set at the given instant.
func ComputeLockStatus(enquiries []models.Enquiry, now time.Time) models.StaffLockStatus {
	status := models.StaffLockStatus{}
	for i := range enquiries {
		e := &enquiries[i]
		if e.Assigned() {
			status.AssignedEnquiries++
			continue
		}
		if e.AgeDays(now) > 0 {
			status.UnassignedOldEnquiries++
		}
	}

	status.Locked = status.UnassignedOldEnquiries > 0
	if status.Locked {
		status.Reason = fmt.Sprintf("%d older unassigned %s must be assigned before newer enquiries",
			status.UnassignedOldEnquiries, pluralEnquiry(status.UnassignedOldEnquiries))
	}
	return status
}

// StaffUIStateFor derives the per-enquiry editability state under the
// given global lock status. The returned reason is the human-readable
// explanation shown next to a non-default state.
func StaffUIStateFor(e *models.Enquiry, status models.StaffLockStatus, now time.Time) (models.StaffUIState, string) {
	ageDays := e.AgeDays(now)

	if ageDays > 0 && !e.Assigned() {
		// This enquiry is itself blocking the system.
		return models.StaffStateEnabledPriority, "This enquiry is blocking staff assignment for newer enquiries; assign it first"
	}
	if status.Locked && ageDays == 0 {
		return models.StaffStateDisabledLocked, status.Reason
	}
	return models.StaffStateEnabled, ""
}

// DecorateEnquiry attaches the derived lock fields to one enquiry.
func DecorateEnquiry(e models.Enquiry, status models.StaffLockStatus, now time.Time) models.EnquiryView {
	state, reason := StaffUIStateFor(&e, status, now)
	editable := state == models.StaffStateEnabled || state == models.StaffStateEnabledPriority

	return models.EnquiryView{
		Enquiry:                e,
		IsOldEnquiry:           e.AgeDays(now) > 0,
		EnquiryAgeDays:         e.AgeDays(now),
		StaffDropdownEnabled:   editable,
		StaffDropdownClickable: editable,
		StaffDropdownReason:    reason,
		StaffDropdownUIState:   state,
		CanAssignStaff:         editable,
	}
}

// DecorateEnquiries computes the lock status once and decorates the
// whole set with it.
func DecorateEnquiries(enquiries []models.Enquiry, now time.Time) models.EnquiryListResponse {
	status := ComputeLockStatus(enquiries, now)

	views := make([]models.EnquiryView, 0, len(enquiries))
	for _, e := range enquiries {
		views = append(views, DecorateEnquiry(e, status, now))
	}

	return models.EnquiryListResponse{
		Enquiries:       views,
		StaffLockStatus: status,
	}
}

// DecorateEnquiryError marks an enquiry whose lock state could not be
// derived, so the UI disables editing rather than guessing.
func DecorateEnquiryError(e models.Enquiry, now time.Time) models.EnquiryView {
	return models.EnquiryView{
		Enquiry:                e,
		IsOldEnquiry:           e.AgeDays(now) > 0,
		EnquiryAgeDays:         e.AgeDays(now),
		StaffDropdownEnabled:   false,
		StaffDropdownClickable: false,
		StaffDropdownReason:    "Staff lock state could not be determined",
		StaffDropdownUIState:   models.StaffStateDisabledError,
		CanAssignStaff:         false,
	}
}

func pluralEnquiry(n int) string {
	if n == 1 {
		return "enquiry"
	}
	return "enquiries"
}
