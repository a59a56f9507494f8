package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"whatsenquiry/internal/migrations"
	"whatsenquiry/internal/models"
	"whatsenquiry/internal/security"

	_ "github.com/mattn/go-sqlite3"
)

// ErrDuplicateMessageID is returned by CreateEnquiry when the unique
// index on the provider message id rejects the insert. Callers treat it
// as "already processed", not as a failure.
var ErrDuplicateMessageID = fmt.Errorf("enquiry with this message id already exists")

// ErrEnquiryNotFound is returned by write operations that target an id
// with no matching row.
var ErrEnquiryNotFound = fmt.Errorf("enquiry not found")

type Database struct {
	db        *sql.DB
	encryptor *encryptor
}

func New(dbPath string) (*Database, error) {
	if len(dbPath) == 0 || dbPath[0] == '\x00' {
		return nil, fmt.Errorf("invalid database path")
	}

	if err := security.ValidateFilePath(dbPath); err != nil {
		return nil, fmt.Errorf("invalid database path: %w", err)
	}

	file, err := os.OpenFile(dbPath, os.O_RDWR|os.O_CREATE, 0600) // #nosec G304 - Path validated above
	if err != nil {
		return nil, fmt.Errorf("failed to create database file: %w", err)
	}
	if err := file.Close(); err != nil {
		return nil, fmt.Errorf("failed to close database file: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to ping database: %w (close error: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	schema, err := migrations.GetInitialSchema()
	if err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to read schema: %w (close error: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("failed to read schema: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to initialize schema: %w (close error: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	enc, err := NewEncryptor()
	if err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to initialize encryptor: %w (close error: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("failed to initialize encryptor: %w", err)
	}

	return &Database{db: db, encryptor: enc}, nil
}

func (d *Database) Close() error {
	return d.db.Close()
}

// CreateEnquiry persists an enquiry and fills in its generated ID and
// timestamps. The unique index on raw_message_id_hash makes the dedup
// check race-free: a second insert for the same message id fails with
// ErrDuplicateMessageID instead of creating a second row.
func (d *Database) CreateEnquiry(ctx context.Context, e *models.Enquiry) error {
	encSenderName, err := d.encryptor.EncryptIfEnabled(e.Provenance.RawSenderName)
	if err != nil {
		return fmt.Errorf("failed to encrypt sender name: %w", err)
	}
	encChatID, err := d.encryptor.EncryptIfEnabled(e.Provenance.RawChatID)
	if err != nil {
		return fmt.Errorf("failed to encrypt chat ID: %w", err)
	}
	encText, err := d.encryptor.EncryptIfEnabled(e.Provenance.RawMessageText)
	if err != nil {
		return fmt.Errorf("failed to encrypt message text: %w", err)
	}
	encMsgID, err := d.encryptor.EncryptIfEnabled(e.Provenance.RawMessageID)
	if err != nil {
		return fmt.Errorf("failed to encrypt message ID: %w", err)
	}
	msgIDHash, err := d.encryptor.EncryptForLookupIfEnabled(e.Provenance.RawMessageID)
	if err != nil {
		return fmt.Errorf("failed to hash message ID: %w", err)
	}

	now := time.Now().UTC()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	e.UpdatedAt = now

	err = retryableDBOperationNoReturn(ctx, func() error {
		result, execErr := d.db.ExecContext(ctx, InsertEnquiryQuery,
			e.DisplayName,
			e.MobileNumber,
			e.Staff,
			e.Comments,
			e.AdditionalComments,
			string(e.Origin),
			encSenderName,
			encChatID,
			encText,
			encMsgID,
			msgIDHash,
			e.CreatedAt,
			e.UpdatedAt,
		)
		if execErr != nil {
			return execErr
		}
		id, idErr := result.LastInsertId()
		if idErr != nil {
			return idErr
		}
		e.ID = id
		return nil
	}, "create enquiry")

	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrDuplicateMessageID
		}
		return fmt.Errorf("failed to create enquiry: %w", err)
	}

	return nil
}

// GetEnquiryByMessageID looks up an enquiry by the provider message id
// stored in its provenance. Returns (nil, nil) when none exists.
func (d *Database) GetEnquiryByMessageID(ctx context.Context, messageID string) (*models.Enquiry, error) {
	msgIDHash, err := d.encryptor.EncryptForLookupIfEnabled(messageID)
	if err != nil {
		return nil, fmt.Errorf("failed to hash message ID: %w", err)
	}

	row := d.db.QueryRowContext(ctx, SelectEnquiryByMessageIDHashQuery, msgIDHash)
	return d.scanEnquiry(row)
}

// GetEnquiry returns the enquiry with the given id, or (nil, nil).
func (d *Database) GetEnquiry(ctx context.Context, id int64) (*models.Enquiry, error) {
	row := d.db.QueryRowContext(ctx, SelectEnquiryByIDQuery, id)
	return d.scanEnquiry(row)
}

// ListEnquiries returns all enquiries, newest first.
func (d *Database) ListEnquiries(ctx context.Context) ([]models.Enquiry, error) {
	rows, err := d.db.QueryContext(ctx, SelectAllEnquiriesQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to list enquiries: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var enquiries []models.Enquiry
	for rows.Next() {
		e, err := d.scanEnquiryRow(rows)
		if err != nil {
			return nil, err
		}
		enquiries = append(enquiries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate enquiries: %w", err)
	}

	return enquiries, nil
}

// UpdateEnquiry persists the mutable fields of an enquiry. Provenance
// and creation metadata are immutable by design.
func (d *Database) UpdateEnquiry(ctx context.Context, e *models.Enquiry) error {
	err := retryableDBOperationNoReturn(ctx, func() error {
		result, execErr := d.db.ExecContext(ctx, UpdateEnquiryQuery,
			e.DisplayName,
			e.MobileNumber,
			e.Staff,
			e.Comments,
			e.AdditionalComments,
			e.ID,
		)
		if execErr != nil {
			return execErr
		}
		affected, affErr := result.RowsAffected()
		if affErr != nil {
			return affErr
		}
		if affected == 0 {
			return ErrEnquiryNotFound
		}
		return nil
	}, "update enquiry")

	if err != nil {
		if errors.Is(err, ErrEnquiryNotFound) {
			return ErrEnquiryNotFound
		}
		return fmt.Errorf("failed to update enquiry %d: %w", e.ID, err)
	}
	return nil
}

// DeleteEnquiry removes an enquiry. Returns ErrEnquiryNotFound when the
// id does not exist.
func (d *Database) DeleteEnquiry(ctx context.Context, id int64) error {
	result, err := d.db.ExecContext(ctx, DeleteEnquiryQuery, id)
	if err != nil {
		return fmt.Errorf("failed to delete enquiry %d: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete enquiry %d: %w", id, err)
	}
	if affected == 0 {
		return ErrEnquiryNotFound
	}
	return nil
}

// GetStats aggregates enquiry counts for the stats endpoint.
func (d *Database) GetStats(ctx context.Context) (*models.EnquiryStats, error) {
	stats := &models.EnquiryStats{
		ByOrigin: make(map[string]int),
		ByStaff:  make(map[string]int),
	}

	if err := d.db.QueryRowContext(ctx, CountAllQuery).Scan(&stats.TotalEnquiries); err != nil {
		return nil, fmt.Errorf("failed to count enquiries: %w", err)
	}
	if err := d.db.QueryRowContext(ctx, CountUnassignedQuery).Scan(&stats.Unassigned); err != nil {
		return nil, fmt.Errorf("failed to count unassigned enquiries: %w", err)
	}
	stats.Assigned = stats.TotalEnquiries - stats.Unassigned

	rows, err := d.db.QueryContext(ctx, CountByOriginQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to count by origin: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()
	for rows.Next() {
		var origin string
		var count int
		if err := rows.Scan(&origin, &count); err != nil {
			return nil, fmt.Errorf("failed to scan origin count: %w", err)
		}
		stats.ByOrigin[origin] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate origin counts: %w", err)
	}

	staffRows, err := d.db.QueryContext(ctx, CountByStaffQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to count by staff: %w", err)
	}
	defer func() {
		_ = staffRows.Close()
	}()
	for staffRows.Next() {
		var staff string
		var count int
		if err := staffRows.Scan(&staff, &count); err != nil {
			return nil, fmt.Errorf("failed to scan staff count: %w", err)
		}
		stats.ByStaff[staff] = count
	}
	if err := staffRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate staff counts: %w", err)
	}

	return stats, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (d *Database) scanEnquiry(row *sql.Row) (*models.Enquiry, error) {
	e, err := d.scanEnquiryFrom(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return e, err
}

func (d *Database) scanEnquiryRow(rows *sql.Rows) (*models.Enquiry, error) {
	return d.scanEnquiryFrom(rows)
}

func (d *Database) scanEnquiryFrom(scanner rowScanner) (*models.Enquiry, error) {
	var e models.Enquiry
	var origin string
	var encSenderName, encChatID, encText, encMsgID string

	err := scanner.Scan(
		&e.ID,
		&e.DisplayName,
		&e.MobileNumber,
		&e.Staff,
		&e.Comments,
		&e.AdditionalComments,
		&origin,
		&encSenderName,
		&encChatID,
		&encText,
		&encMsgID,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan enquiry: %w", err)
	}

	e.Origin = models.EnquiryOrigin(origin)

	if e.Provenance.RawSenderName, err = d.encryptor.DecryptIfEnabled(encSenderName); err != nil {
		return nil, fmt.Errorf("failed to decrypt sender name: %w", err)
	}
	if e.Provenance.RawChatID, err = d.encryptor.DecryptIfEnabled(encChatID); err != nil {
		return nil, fmt.Errorf("failed to decrypt chat ID: %w", err)
	}
	if e.Provenance.RawMessageText, err = d.encryptor.DecryptIfEnabled(encText); err != nil {
		return nil, fmt.Errorf("failed to decrypt message text: %w", err)
	}
	if e.Provenance.RawMessageID, err = d.encryptor.DecryptIfEnabled(encMsgID); err != nil {
		return nil, fmt.Errorf("failed to decrypt message ID: %w", err)
	}

	return &e, nil
}

func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
