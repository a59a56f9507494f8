package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"whatsenquiry/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *Database {
	t.Helper()
	db, err := New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func testEnquiry(messageID string) *models.Enquiry {
	return &models.Enquiry{
		DisplayName:  "John Doe",
		MobileNumber: "918106811285",
		Comments:     "New Enquiry - Interested",
		Origin:       models.OriginWhatsAppWebhook,
		Provenance: models.SourceProvenance{
			RawSenderName:  "John Doe",
			RawChatID:      "918106811285@c.us",
			RawMessageText: "Hi I am interested!",
			RawMessageID:   messageID,
		},
	}
}

func TestNewRejectsInvalidPath(t *testing.T) {
	_, err := New("")
	assert.Error(t, err)

	_, err = New("../../../etc/enquiries.db")
	assert.Error(t, err)
}

func TestCreateAndGetEnquiry(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	e := testEnquiry("m1")
	require.NoError(t, db.CreateEnquiry(ctx, e))
	require.NotZero(t, e.ID)
	assert.False(t, e.CreatedAt.IsZero())
	assert.False(t, e.UpdatedAt.IsZero())

	got, err := db.GetEnquiry(ctx, e.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "John Doe", got.DisplayName)
	assert.Equal(t, "918106811285", got.MobileNumber)
	assert.Equal(t, models.OriginWhatsAppWebhook, got.Origin)
	assert.Equal(t, "918106811285@c.us", got.Provenance.RawChatID)
	assert.Equal(t, "m1", got.Provenance.RawMessageID)
}

func TestGetEnquiryNotFound(t *testing.T) {
	db := setupTestDB(t)

	got, err := db.GetEnquiry(context.Background(), 999)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestDuplicateMessageIDRejected(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.CreateEnquiry(ctx, testEnquiry("m1")))

	err := db.CreateEnquiry(ctx, testEnquiry("m1"))
	require.Error(t, err)
	assert.Equal(t, ErrDuplicateMessageID, err)
}

func TestEmptyMessageIDNotConstrained(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	// Manual enquiries carry no provider message id. The partial index
	// must not treat them as duplicates of each other.
	first := testEnquiry("")
	first.Origin = models.OriginManual
	second := testEnquiry("")
	second.Origin = models.OriginManual

	require.NoError(t, db.CreateEnquiry(ctx, first))
	require.NoError(t, db.CreateEnquiry(ctx, second))
	assert.NotEqual(t, first.ID, second.ID)
}

func TestGetEnquiryByMessageID(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	e := testEnquiry("m42")
	require.NoError(t, db.CreateEnquiry(ctx, e))

	got, err := db.GetEnquiryByMessageID(ctx, "m42")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, e.ID, got.ID)

	missing, err := db.GetEnquiryByMessageID(ctx, "unknown")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestListEnquiriesNewestFirst(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	older := testEnquiry("m1")
	older.CreatedAt = time.Now().UTC().Add(-time.Hour)
	require.NoError(t, db.CreateEnquiry(ctx, older))

	newer := testEnquiry("m2")
	require.NoError(t, db.CreateEnquiry(ctx, newer))

	all, err := db.ListEnquiries(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, newer.ID, all[0].ID)
	assert.Equal(t, older.ID, all[1].ID)
}

func TestUpdateEnquiry(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	e := testEnquiry("m1")
	require.NoError(t, db.CreateEnquiry(ctx, e))

	e.Staff = "Priya"
	e.AdditionalComments = "Called back"
	require.NoError(t, db.UpdateEnquiry(ctx, e))

	got, err := db.GetEnquiry(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, "Priya", got.Staff)
	assert.Equal(t, "Called back", got.AdditionalComments)
	// Provenance survives updates untouched.
	assert.Equal(t, "m1", got.Provenance.RawMessageID)
}

func TestUpdateEnquiryNotFound(t *testing.T) {
	db := setupTestDB(t)

	e := testEnquiry("m1")
	e.ID = 999
	assert.ErrorIs(t, db.UpdateEnquiry(context.Background(), e), ErrEnquiryNotFound)
}

func TestDeleteEnquiry(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	e := testEnquiry("m1")
	require.NoError(t, db.CreateEnquiry(ctx, e))
	require.NoError(t, db.DeleteEnquiry(ctx, e.ID))

	got, err := db.GetEnquiry(ctx, e.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	assert.ErrorIs(t, db.DeleteEnquiry(ctx, e.ID), ErrEnquiryNotFound)
}

func TestGetStats(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	webhook := testEnquiry("m1")
	require.NoError(t, db.CreateEnquiry(ctx, webhook))

	manual := testEnquiry("")
	manual.Origin = models.OriginManual
	manual.Staff = "Priya"
	require.NoError(t, db.CreateEnquiry(ctx, manual))

	stats, err := db.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalEnquiries)
	assert.Equal(t, 1, stats.Assigned)
	assert.Equal(t, 1, stats.Unassigned)
	assert.Equal(t, 1, stats.ByOrigin[string(models.OriginWhatsAppWebhook)])
	assert.Equal(t, 1, stats.ByOrigin[string(models.OriginManual)])
	assert.Equal(t, 1, stats.ByStaff["Priya"])
}

func TestProvenanceEncryptionRoundTrip(t *testing.T) {
	t.Setenv("WHATSENQUIRY_ENABLE_ENCRYPTION", "true")
	t.Setenv("WHATSENQUIRY_ENCRYPTION_SECRET", "test-secret-key-that-is-long-enough")

	db := setupTestDB(t)
	ctx := context.Background()

	e := testEnquiry("m1")
	require.NoError(t, db.CreateEnquiry(ctx, e))

	got, err := db.GetEnquiry(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, "John Doe", got.Provenance.RawSenderName)
	assert.Equal(t, "918106811285@c.us", got.Provenance.RawChatID)
	assert.Equal(t, "Hi I am interested!", got.Provenance.RawMessageText)
	assert.Equal(t, "m1", got.Provenance.RawMessageID)

	// Dedup lookups still work against the deterministic hash column.
	byMsg, err := db.GetEnquiryByMessageID(ctx, "m1")
	require.NoError(t, err)
	require.NotNil(t, byMsg)
	assert.Equal(t, e.ID, byMsg.ID)

	err = db.CreateEnquiry(ctx, testEnquiry("m1"))
	assert.Equal(t, ErrDuplicateMessageID, err)
}
