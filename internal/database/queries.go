package database

// Enquiry queries
const (
	InsertEnquiryQuery = `
		INSERT INTO enquiries (
			display_name, mobile_number, staff, comments, additional_comments,
			origin, raw_sender_name, raw_chat_id, raw_message_text,
			raw_message_id, raw_message_id_hash, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	enquiryColumns = `
		id, display_name, mobile_number, staff, comments, additional_comments,
		origin, raw_sender_name, raw_chat_id, raw_message_text, raw_message_id,
		created_at, updated_at
	`

	SelectEnquiryByIDQuery = `
		SELECT ` + enquiryColumns + `
		FROM enquiries
		WHERE id = ?
	`

	SelectEnquiryByMessageIDHashQuery = `
		SELECT ` + enquiryColumns + `
		FROM enquiries
		WHERE raw_message_id_hash = ?
	`

	SelectAllEnquiriesQuery = `
		SELECT ` + enquiryColumns + `
		FROM enquiries
		ORDER BY created_at DESC, id DESC
	`

	UpdateEnquiryQuery = `
		UPDATE enquiries
		SET display_name = ?, mobile_number = ?, staff = ?,
		    comments = ?, additional_comments = ?
		WHERE id = ?
	`

	DeleteEnquiryQuery = `
		DELETE FROM enquiries
		WHERE id = ?
	`

	CountByOriginQuery = `
		SELECT origin, COUNT(*)
		FROM enquiries
		GROUP BY origin
	`

	CountByStaffQuery = `
		SELECT staff, COUNT(*)
		FROM enquiries
		WHERE staff != ''
		GROUP BY staff
	`

	CountUnassignedQuery = `
		SELECT COUNT(*)
		FROM enquiries
		WHERE staff = ''
	`

	CountAllQuery = `
		SELECT COUNT(*)
		FROM enquiries
	`
)
