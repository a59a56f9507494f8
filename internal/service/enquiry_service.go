package service

import (
	"context"
	"fmt"
	"time"

	"whatsenquiry/internal/constants"
	"whatsenquiry/internal/database"
	"whatsenquiry/internal/errors"
	"whatsenquiry/internal/features"
	"whatsenquiry/internal/ingest"
	"whatsenquiry/internal/metrics"
	"whatsenquiry/internal/models"
	"whatsenquiry/internal/privacy"

	"github.com/sirupsen/logrus"
)

// EnquiryStore is the persistence surface the service depends on.
type EnquiryStore interface {
	CreateEnquiry(ctx context.Context, e *models.Enquiry) error
	GetEnquiry(ctx context.Context, id int64) (*models.Enquiry, error)
	GetEnquiryByMessageID(ctx context.Context, messageID string) (*models.Enquiry, error)
	ListEnquiries(ctx context.Context) ([]models.Enquiry, error)
	UpdateEnquiry(ctx context.Context, e *models.Enquiry) error
	DeleteEnquiry(ctx context.Context, id int64) error
	GetStats(ctx context.Context) (*models.EnquiryStats, error)
}

// Notifier publishes enquiry-created events to connected UI clients.
// Delivery is best-effort and must never block the caller.
type Notifier interface {
	PublishEnquiryCreated(event models.EnquiryCreatedEvent)
}

// ReplySender sends an outbound message back to a chat. Used for canned
// reply-option responses only.
type ReplySender interface {
	SendMessage(ctx context.Context, chatID, message string) error
}

// WebhookOutcome classifies what a webhook delivery resulted in. Every
// outcome except a malformed body is acknowledged with HTTP success.
type WebhookOutcome string

const (
	OutcomeCreated          WebhookOutcome = "created"
	OutcomeDuplicate        WebhookOutcome = "duplicate"
	OutcomeIgnoredStatus    WebhookOutcome = "ignored_status_event"
	OutcomeDroppedIdentity  WebhookOutcome = "dropped_unresolvable_identity"
	OutcomeDroppedInterest  WebhookOutcome = "dropped_non_enquiry"
	OutcomeDroppedMessageID WebhookOutcome = "dropped_missing_message_id"
	OutcomeReplyOption      WebhookOutcome = "reply_option"
	OutcomeStorageFailure   WebhookOutcome = "storage_failure"
)

// WebhookResult is what the webhook handler reports back to the
// provider.
type WebhookResult struct {
	Outcome   WebhookOutcome `json:"outcome"`
	EnquiryID int64          `json:"enquiry_id,omitempty"`
	Detail    string         `json:"detail,omitempty"`
}

// UpdateEnquiryRequest carries a partial update; nil fields are left
// untouched.
type UpdateEnquiryRequest struct {
	DisplayName        *string `json:"display_name"`
	MobileNumber       *string `json:"mobile_number"`
	Staff              *string `json:"staff"`
	Comments           *string `json:"comments"`
	AdditionalComments *string `json:"additional_comments"`
}

// EnquiryService runs the ingestion pipeline and owns all enquiry reads
// and writes.
type EnquiryService struct {
	store    EnquiryStore
	notifier Notifier
	replier  ReplySender
	flags    *features.FlagManager
	logger   *logrus.Logger
	now      func() time.Time
}

// NewEnquiryService wires the pipeline. notifier and replier may be nil
// when the corresponding collaborator is disabled.
func NewEnquiryService(store EnquiryStore, notifier Notifier, replier ReplySender, flags *features.FlagManager, logger *logrus.Logger) *EnquiryService {
	return &EnquiryService{
		store:    store,
		notifier: notifier,
		replier:  replier,
		flags:    flags,
		logger:   logger,
		now:      time.Now,
	}
}

// SetClock overrides the time source. Test hook.
func (s *EnquiryService) SetClock(now func() time.Time) {
	s.now = now
}

// ProcessWebhook runs one webhook delivery through the full pipeline:
// normalize, resolve identity, classify, dedup, persist, notify. The
// only returned error is a body that is not JSON at all; every other
// condition is absorbed into the result so the provider gets HTTP
// success and does not retry-storm.
func (s *EnquiryService) ProcessWebhook(ctx context.Context, body []byte) (*WebhookResult, error) {
	msg, err := ingest.Normalize(body)
	if err != nil {
		metrics.IncrementCounter("webhook_outcomes_total", map[string]string{"outcome": "malformed"}, "Webhook deliveries by outcome")
		return nil, err
	}

	if !msg.IsMessage() {
		s.logger.WithField(LogFieldWebhookType, msg.TypeWebhook).Debug("Ignoring non-message webhook event")
		return s.outcome(OutcomeIgnoredStatus, 0, "event carries no message data"), nil
	}

	LogMessageProcessing(ctx, s.logger, msg.TypeWebhook, msg.ChatID, msg.MessageID, rawSenderName(msg))

	identity, err := ingest.ResolveIdentity(msg)
	if err != nil {
		s.logger.WithFields(logrus.Fields{
			LogFieldChatID:    privacy.MaskChatID(msg.ChatID),
			LogFieldMessageID: privacy.MaskMessageID(msg.MessageID),
		}).Warn("Dropping message with unresolvable sender identity")
		return s.outcome(OutcomeDroppedIdentity, 0, "no mobile number could be derived"), nil
	}

	if ingest.IsReplyOption(msg.Text) {
		s.sendReplyResponse(msg.ChatID, msg.Text)
		return s.outcome(OutcomeReplyOption, 0, "recognized reply option, no enquiry created"), nil
	}

	if !ingest.IsInterested(msg.Text) {
		s.logger.WithField(LogFieldChatID, privacy.MaskChatID(msg.ChatID)).Info("Message is informational, no enquiry created")
		return s.outcome(OutcomeDroppedInterest, 0, "message does not express enquiry intent"), nil
	}

	if msg.MessageID == "" {
		if s.flags.IsEnabled(features.FlagStrictMessageID) {
			s.logger.WithField(LogFieldChatID, privacy.MaskChatID(msg.ChatID)).Warn("Rejecting message without provider message id")
			return s.outcome(OutcomeDroppedMessageID, 0, "message carries no provider message id"), nil
		}
		s.logger.WithField(LogFieldChatID, privacy.MaskChatID(msg.ChatID)).Warn("Message has no provider id, creating enquiry without idempotency protection")
	}

	if msg.MessageID != "" {
		existing, err := s.store.GetEnquiryByMessageID(ctx, msg.MessageID)
		if err != nil {
			return s.storageFailure(err, "dedup lookup failed"), nil
		}
		if existing != nil {
			s.logger.WithFields(logrus.Fields{
				LogFieldEnquiryID: existing.ID,
				LogFieldMessageID: privacy.MaskMessageID(msg.MessageID),
			}).Info("Message already processed, skipping enquiry creation")
			return s.outcome(OutcomeDuplicate, existing.ID, "enquiry already exists for this message"), nil
		}
	}

	enquiry := &models.Enquiry{
		DisplayName:        identity.DisplayName,
		MobileNumber:       identity.MobileNumber,
		Comments:           "New Enquiry - Interested",
		AdditionalComments: fmt.Sprintf("Received via WhatsApp: %q", msg.Text),
		Origin:             models.OriginWhatsAppWebhook,
		Provenance: models.SourceProvenance{
			RawSenderName:  identity.RawSenderName,
			RawChatID:      msg.ChatID,
			RawMessageText: msg.Text,
			RawMessageID:   msg.MessageID,
		},
	}

	if err := s.store.CreateEnquiry(ctx, enquiry); err != nil {
		if err == database.ErrDuplicateMessageID {
			// A concurrent delivery won the insert race. The unique
			// index makes this the canonical already-processed signal.
			existing, lookupErr := s.store.GetEnquiryByMessageID(ctx, msg.MessageID)
			if lookupErr == nil && existing != nil {
				return s.outcome(OutcomeDuplicate, existing.ID, "enquiry already exists for this message"), nil
			}
			return s.outcome(OutcomeDuplicate, 0, "enquiry already exists for this message"), nil
		}
		return s.storageFailure(err, "enquiry write failed"), nil
	}

	metrics.IncrementCounter("enquiries_created_total", map[string]string{"origin": string(models.OriginWhatsAppWebhook)}, "Enquiries created by origin")
	s.logger.WithFields(logrus.Fields{
		LogFieldEnquiryID: enquiry.ID,
		LogFieldMobile:    privacy.MaskPhoneNumber(enquiry.MobileNumber),
	}).Info("Enquiry created from webhook")

	s.publishCreated(enquiry)

	return s.outcome(OutcomeCreated, enquiry.ID, ""), nil
}

// publishCreated pushes the created event to the notification channel.
// Fire-and-forget: a slow or absent notifier never delays the webhook
// response.
func (s *EnquiryService) publishCreated(e *models.Enquiry) {
	if s.notifier == nil || !s.flags.IsEnabled(features.FlagRealtimeNotifications) {
		return
	}
	s.notifier.PublishEnquiryCreated(models.EnquiryCreatedEvent{
		EnquiryID:    e.ID,
		DisplayName:  e.DisplayName,
		MobileNumber: e.MobileNumber,
		CreatedAt:    e.CreatedAt,
	})
}

// sendReplyResponse sends the canned response for a reply option in the
// background, bounded by its own timeout so it can never hold up the
// webhook response.
func (s *EnquiryService) sendReplyResponse(chatID, text string) {
	response := ingest.ReplyResponse(text)
	if s.replier == nil || !s.flags.IsEnabled(features.FlagReplyResponses) {
		s.logger.WithField(LogFieldChatID, privacy.MaskChatID(chatID)).Debug("Reply responses disabled, skipping canned response")
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Duration(constants.DefaultNotifyTimeoutSec)*time.Second)
		defer cancel()

		if err := s.replier.SendMessage(ctx, chatID, response); err != nil {
			metrics.IncrementCounter("reply_send_failures_total", nil, "Failed canned reply sends")
			s.logger.WithError(err).WithField(LogFieldChatID, privacy.MaskChatID(chatID)).Error("Failed to send canned reply")
			return
		}
		metrics.IncrementCounter("reply_sends_total", nil, "Canned replies sent")
	}()
}

// CreateManualEnquiry persists an enquiry entered through the UI.
func (s *EnquiryService) CreateManualEnquiry(ctx context.Context, e *models.Enquiry) error {
	if e.DisplayName == "" {
		return errors.NewValidationError("display_name", "", "display name is required")
	}
	if len(e.DisplayName) > constants.MaxDisplayNameLength {
		return errors.NewValidationError("display_name", "", fmt.Sprintf("display name too long (max %d characters)", constants.MaxDisplayNameLength))
	}
	if err := ValidateMobileNumber(e.MobileNumber); err != nil {
		return errors.NewValidationError("mobile_number", privacy.MaskPhoneNumber(e.MobileNumber), err.Error())
	}
	if e.Staff != "" {
		if err := s.checkStaffLock(ctx, nil); err != nil {
			return err
		}
	}

	if e.Origin == "" {
		e.Origin = models.OriginManual
	}
	if err := s.store.CreateEnquiry(ctx, e); err != nil {
		return errors.NewStorageError("create", err)
	}

	metrics.IncrementCounter("enquiries_created_total", map[string]string{"origin": string(e.Origin)}, "Enquiries created by origin")
	s.publishCreated(e)
	return nil
}

// GetEnquiry returns one enquiry decorated with the derived lock
// fields. The lock is computed over the full current set.
func (s *EnquiryService) GetEnquiry(ctx context.Context, id int64) (*models.EnquiryView, error) {
	e, err := s.store.GetEnquiry(ctx, id)
	if err != nil {
		return nil, errors.NewStorageError("get", err)
	}
	if e == nil {
		return nil, errors.NewNotFoundError("enquiry", fmt.Sprintf("%d", id))
	}

	now := s.now()
	all, err := s.store.ListEnquiries(ctx)
	if err != nil {
		// The record itself is fine; only its lock decoration is
		// unavailable.
		view := DecorateEnquiryError(*e, now)
		return &view, nil
	}

	view := DecorateEnquiry(*e, ComputeLockStatus(all, now), now)
	return &view, nil
}

// ListEnquiries returns all enquiries newest-first, decorated, with the
// sibling lock summary.
func (s *EnquiryService) ListEnquiries(ctx context.Context) (*models.EnquiryListResponse, error) {
	all, err := s.store.ListEnquiries(ctx)
	if err != nil {
		return nil, errors.NewStorageError("list", err)
	}

	resp := DecorateEnquiries(all, s.now())
	return &resp, nil
}

// UpdateEnquiry applies a partial update. A staff assignment is
// re-checked against a freshly derived lock state; a client-supplied
// view of the lock is never trusted.
func (s *EnquiryService) UpdateEnquiry(ctx context.Context, id int64, req *UpdateEnquiryRequest) (*models.EnquiryView, error) {
	e, err := s.store.GetEnquiry(ctx, id)
	if err != nil {
		return nil, errors.NewStorageError("get", err)
	}
	if e == nil {
		return nil, errors.NewNotFoundError("enquiry", fmt.Sprintf("%d", id))
	}

	assigningStaff := req.Staff != nil && *req.Staff != "" && *req.Staff != e.Staff
	if assigningStaff {
		if err := ValidateStaffName(*req.Staff); err != nil {
			return nil, errors.NewValidationError("staff", *req.Staff, err.Error())
		}
		if err := s.checkStaffLock(ctx, e); err != nil {
			return nil, err
		}
	}

	if req.DisplayName != nil {
		e.DisplayName = *req.DisplayName
	}
	if req.MobileNumber != nil {
		if err := ValidateMobileNumber(*req.MobileNumber); err != nil {
			return nil, errors.NewValidationError("mobile_number", privacy.MaskPhoneNumber(*req.MobileNumber), err.Error())
		}
		e.MobileNumber = *req.MobileNumber
	}
	if req.Staff != nil {
		e.Staff = *req.Staff
	}
	if req.Comments != nil {
		e.Comments = *req.Comments
	}
	if req.AdditionalComments != nil {
		e.AdditionalComments = *req.AdditionalComments
	}

	if err := s.store.UpdateEnquiry(ctx, e); err != nil {
		if err == database.ErrEnquiryNotFound {
			// Deleted between the read above and this write.
			return nil, errors.NewNotFoundError("enquiry", fmt.Sprintf("%d", id))
		}
		return nil, errors.NewStorageError("update", err)
	}

	if assigningStaff {
		metrics.IncrementCounter("staff_assignments_total", nil, "Staff assignments applied")
	}

	return s.GetEnquiry(ctx, id)
}

// DeleteEnquiry removes an enquiry.
func (s *EnquiryService) DeleteEnquiry(ctx context.Context, id int64) error {
	if err := s.store.DeleteEnquiry(ctx, id); err != nil {
		if err == database.ErrEnquiryNotFound {
			return errors.NewNotFoundError("enquiry", fmt.Sprintf("%d", id))
		}
		return errors.NewStorageError("delete", err)
	}
	return nil
}

// GetStats returns aggregate counts for the stats endpoint.
func (s *EnquiryService) GetStats(ctx context.Context) (*models.EnquiryStats, error) {
	stats, err := s.store.GetStats(ctx)
	if err != nil {
		return nil, errors.NewStorageError("stats", err)
	}
	return stats, nil
}

// checkStaffLock re-derives the lock state and rejects a staff write
// when the target enquiry is currently locked. target may be nil when
// the write creates a fresh enquiry (which has age zero by definition).
func (s *EnquiryService) checkStaffLock(ctx context.Context, target *models.Enquiry) error {
	all, err := s.store.ListEnquiries(ctx)
	if err != nil {
		return errors.NewStorageError("lock derivation", err)
	}

	now := s.now()
	status := ComputeLockStatus(all, now)
	if !status.Locked {
		return nil
	}

	if target == nil {
		// A brand-new enquiry is a today-enquiry under an active lock.
		metrics.IncrementCounter("staff_lock_rejections_total", nil, "Staff writes rejected by the assignment lock")
		return errors.NewLockViolationError(0, status.Reason)
	}

	state, reason := StaffUIStateFor(target, status, now)
	if state == models.StaffStateDisabledLocked {
		metrics.IncrementCounter("staff_lock_rejections_total", nil, "Staff writes rejected by the assignment lock")
		return errors.NewLockViolationError(target.ID, reason)
	}
	return nil
}

func (s *EnquiryService) outcome(o WebhookOutcome, enquiryID int64, detail string) *WebhookResult {
	metrics.IncrementCounter("webhook_outcomes_total", map[string]string{"outcome": string(o)}, "Webhook deliveries by outcome")
	return &WebhookResult{Outcome: o, EnquiryID: enquiryID, Detail: detail}
}

func (s *EnquiryService) storageFailure(err error, detail string) *WebhookResult {
	// The provider still gets HTTP success: retry storms against a
	// broken store only make things worse. The operator channel is the
	// log and the failure counter.
	metrics.IncrementCounter("webhook_storage_failures_total", nil, "Webhook deliveries that hit a storage failure")
	s.logger.WithError(err).Error("Webhook storage failure, acknowledging to provider anyway")
	return s.outcome(OutcomeStorageFailure, 0, detail)
}

func rawSenderName(msg *models.InboundMessage) string {
	if len(msg.CandidateNames) == 0 {
		return ""
	}
	return msg.CandidateNames[0].Value
}
