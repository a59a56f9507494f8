package service

import (
	"context"
	"fmt"
	"strings"

	"whatsenquiry/internal/constants"
	"whatsenquiry/internal/privacy"

	"github.com/sirupsen/logrus"
)

// ContextKey is a package-local type to prevent context key collisions
// See staticcheck SA1029 guidance
type ContextKey string

// VerboseContextKey is the strongly-typed context key for verbose logging flag
const VerboseContextKey ContextKey = "verbose"

// IsVerboseLogging checks if verbose logging is enabled from context
func IsVerboseLogging(ctx context.Context) bool {
	if verbose, ok := ctx.Value(VerboseContextKey).(bool); ok {
		return verbose
	}
	return false
}

// LogWithContext creates a logger entry with optional sensitive information
func LogWithContext(ctx context.Context, logger *logrus.Logger) *logrus.Entry {
	return logger.WithField("verbose", IsVerboseLogging(ctx))
}

// ValidateMobileNumber performs basic mobile number validation.
// Accepts digits with an optional + prefix, 7 to 15 digits (E.164).
func ValidateMobileNumber(mobile string) error {
	if mobile == "" {
		return fmt.Errorf("mobile number cannot be empty")
	}

	digits := strings.TrimPrefix(mobile, "+")
	if len(digits) == 0 {
		return fmt.Errorf("mobile number must contain digits")
	}

	if len(digits) < constants.MinMobileNumberDigits || len(digits) > constants.MaxMobileNumberDigits {
		return fmt.Errorf("mobile number must be between %d and %d digits, got %d",
			constants.MinMobileNumberDigits, constants.MaxMobileNumberDigits, len(digits))
	}

	for _, char := range digits {
		if char < '0' || char > '9' {
			return fmt.Errorf("mobile number must contain only digits")
		}
	}

	return nil
}

// ValidateMessageID performs basic message ID validation
func ValidateMessageID(msgID string) error {
	if msgID == "" {
		return fmt.Errorf("message ID cannot be empty")
	}

	if len(msgID) > constants.MaxMessageIDLength {
		return fmt.Errorf("message ID too long (max %d characters)", constants.MaxMessageIDLength)
	}

	if strings.ContainsAny(msgID, "\x00\n\r\t") {
		return fmt.Errorf("message ID contains invalid characters")
	}

	return nil
}

// ValidateStaffName performs staff name validation for assignment requests
func ValidateStaffName(staff string) error {
	if len(staff) > constants.MaxStaffNameLength {
		return fmt.Errorf("staff name too long (max %d characters)", constants.MaxStaffNameLength)
	}

	if strings.ContainsAny(staff, "\x00\n\r\t") {
		return fmt.Errorf("staff name contains invalid characters")
	}

	return nil
}

// LogMessageProcessing logs inbound message handling with appropriate privacy controls
func LogMessageProcessing(ctx context.Context, logger *logrus.Logger, webhookType, chatID, msgID, sender string) {
	if IsVerboseLogging(ctx) {
		logger.WithFields(logrus.Fields{
			LogFieldWebhookType: webhookType,
			LogFieldChatID:      chatID,
			LogFieldMessageID:   msgID,
			"sender":            sender,
		}).Info("Processing inbound message")
	} else {
		logger.WithFields(logrus.Fields{
			LogFieldWebhookType: webhookType,
			LogFieldChatID:      privacy.MaskChatID(chatID),
			LogFieldMessageID:   privacy.MaskMessageID(msgID),
		}).Info("Processing inbound message")
	}
}
