package repository

import (
	"database/sql"
	"time"

	"github.com/lib/pq"

	"github.com/florawise/outreach-backend/internal/model"
)

type RecipientRepositoryInterface interface {
	Create(campaignID, contactID int) (*model.Recipient, error)
	GetByID(id int) (*model.Recipient, error)
	GetByCampaignAndContact(campaignID, contactID int) (*model.Recipient, error)
	ListByCampaign(campaignID int, status string) ([]model.Recipient, error)
	ListPendingIDs(campaignID, limit int) ([]int, error)
	CountByStatus(campaignID int, statuses ...string) (int, error)

	UpdateContent(id int, subject, body, bodyHTML string) error
	UpdateStatus(id int, status string, approved bool) error
	SetSuppressed(id int, reason string) error
	ClearSuppression(id int) error

	Delete(id int) error
	BulkDelete(campaignID int, ids []int) (int, error)
	BulkApprove(campaignID int, ids []int) (int, error)

	ClaimNextApproved(campaignID int, dayStart, dayEnd time.Time, dailyLimit int) (*model.Recipient, int, error)
	MarkSent(id int, sentAt time.Time) error
	MarkSendFailed(id int, lastError string) error
}

type RecipientRepository struct {
	DB *sql.DB
}

const recipientColumns = `r.id, r.campaign_id, r.contact_id, r.subject, r.body, r.body_html,
	r.status, r.approved, r.suppression_reason, r.last_error, r.sent_at, r.created_at, r.updated_at`

func scanRecipient(row interface{ Scan(...any) error }) (*model.Recipient, error) {
	var rec model.Recipient
	err := row.Scan(
		&rec.ID, &rec.CampaignID, &rec.ContactID, &rec.Subject, &rec.Body, &rec.BodyHTML,
		&rec.Status, &rec.Approved, &rec.SuppressionReason, &rec.LastError,
		&rec.SentAt, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Create inserts a pending recipient for (campaign, contact). The unique
// index makes this idempotent: on conflict the existing row is returned.
func (r *RecipientRepository) Create(campaignID, contactID int) (*model.Recipient, error) {
	query := `
		INSERT INTO recipients (campaign_id, contact_id, status, created_at, updated_at)
		VALUES ($1, $2, 'pending', NOW(), NOW())
		ON CONFLICT (campaign_id, contact_id) DO NOTHING
		RETURNING id, campaign_id, contact_id, subject, body, body_html,
			status, approved, suppression_reason, last_error, sent_at, created_at, updated_at
	`
	rec, err := scanRecipient(r.DB.QueryRow(query, campaignID, contactID))
	if err != nil {
		if err == sql.ErrNoRows {
			// Conflict: row already exists.
			return r.GetByCampaignAndContact(campaignID, contactID)
		}
		return nil, err
	}
	return rec, nil
}

func (r *RecipientRepository) GetByID(id int) (*model.Recipient, error) {
	query := `SELECT ` + recipientColumns + ` FROM recipients r WHERE r.id=$1`
	rec, err := scanRecipient(r.DB.QueryRow(query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return rec, nil
}

func (r *RecipientRepository) GetByCampaignAndContact(campaignID, contactID int) (*model.Recipient, error) {
	query := `SELECT ` + recipientColumns + ` FROM recipients r WHERE r.campaign_id=$1 AND r.contact_id=$2`
	rec, err := scanRecipient(r.DB.QueryRow(query, campaignID, contactID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return rec, nil
}

// ListByCampaign returns recipients with joined contact fields, sorted by
// company name then id (the review queue order).
func (r *RecipientRepository) ListByCampaign(campaignID int, status string) ([]model.Recipient, error) {
	query := `
		SELECT ` + recipientColumns + `,
			TRIM(c.first_name || ' ' || c.last_name), c.email, c.company_name
		FROM recipients r
		JOIN contacts c ON c.id = r.contact_id
		WHERE r.campaign_id=$1
	`
	args := []interface{}{campaignID}
	if status != "" {
		query += ` AND r.status=$2`
		args = append(args, status)
	}
	query += ` ORDER BY c.company_name, r.id`

	rows, err := r.DB.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	recipients := []model.Recipient{}
	for rows.Next() {
		var rec model.Recipient
		if err := rows.Scan(
			&rec.ID, &rec.CampaignID, &rec.ContactID, &rec.Subject, &rec.Body, &rec.BodyHTML,
			&rec.Status, &rec.Approved, &rec.SuppressionReason, &rec.LastError,
			&rec.SentAt, &rec.CreatedAt, &rec.UpdatedAt,
			&rec.ContactName, &rec.ContactEmail, &rec.CompanyName,
		); err != nil {
			return nil, err
		}
		recipients = append(recipients, rec)
	}
	return recipients, nil
}

func (r *RecipientRepository) ListPendingIDs(campaignID, limit int) ([]int, error) {
	query := `
		SELECT id FROM recipients
		WHERE campaign_id=$1 AND status='pending'
		ORDER BY id
		LIMIT $2
	`
	rows, err := r.DB.Query(query, campaignID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []int{}
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (r *RecipientRepository) CountByStatus(campaignID int, statuses ...string) (int, error) {
	var count int
	err := r.DB.QueryRow(`
		SELECT COUNT(*) FROM recipients
		WHERE campaign_id=$1 AND status = ANY($2)
	`, campaignID, pq.Array(statuses)).Scan(&count)
	return count, err
}

// ====================== Content & status updates ======================

func (r *RecipientRepository) UpdateContent(id int, subject, body, bodyHTML string) error {
	query := `UPDATE recipients SET subject=$1, body=$2, body_html=$3, updated_at=NOW() WHERE id=$4`
	_, err := r.DB.Exec(query, subject, body, bodyHTML, id)
	return err
}

func (r *RecipientRepository) UpdateStatus(id int, status string, approved bool) error {
	query := `UPDATE recipients SET status=$1, approved=$2, updated_at=NOW() WHERE id=$3`
	_, err := r.DB.Exec(query, status, approved, id)
	return err
}

func (r *RecipientRepository) SetSuppressed(id int, reason string) error {
	query := `UPDATE recipients SET status='suppressed', approved=FALSE, suppression_reason=$1, updated_at=NOW() WHERE id=$2`
	_, err := r.DB.Exec(query, reason, id)
	return err
}

// ClearSuppression returns a suppressed recipient to the send-eligible set.
func (r *RecipientRepository) ClearSuppression(id int) error {
	query := `UPDATE recipients SET status='approved', approved=TRUE, suppression_reason='', updated_at=NOW() WHERE id=$1 AND status='suppressed'`
	_, err := r.DB.Exec(query, id)
	return err
}

// ====================== Deletes & bulk ops ======================

func (r *RecipientRepository) Delete(id int) error {
	_, err := r.DB.Exec(`DELETE FROM recipients WHERE id=$1`, id)
	return err
}

// BulkDelete removes the given recipients, restricted to deletable
// statuses. Returns the number actually removed.
func (r *RecipientRepository) BulkDelete(campaignID int, ids []int) (int, error) {
	res, err := r.DB.Exec(`
		DELETE FROM recipients
		WHERE campaign_id=$1 AND id = ANY($2)
		  AND status IN ('pending', 'generated', 'failed')
	`, campaignID, pq.Array(ids))
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// BulkApprove moves generated recipients to approved. Already-approved
// rows are untouched so the returned count is the rows that changed.
func (r *RecipientRepository) BulkApprove(campaignID int, ids []int) (int, error) {
	res, err := r.DB.Exec(`
		UPDATE recipients
		SET status='approved', approved=TRUE, updated_at=NOW()
		WHERE campaign_id=$1 AND id = ANY($2) AND status='generated'
	`, campaignID, pq.Array(ids))
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// ====================== Send path ======================

// ClaimNextApproved atomically claims one approved recipient by flipping
// it to queued, FIFO by (created_at, id). The daily-cap check runs in the
// same transaction, serialized per campaign by a row lock, so two
// concurrent callers cannot both pass the cap and claim distinct rows.
// Returns the claimed recipient (nil when the cap is reached or nothing
// is eligible) and the count already sent in [dayStart, dayEnd).
func (r *RecipientRepository) ClaimNextApproved(campaignID int, dayStart, dayEnd time.Time, dailyLimit int) (*model.Recipient, int, error) {
	tx, err := r.DB.Begin()
	if err != nil {
		return nil, 0, err
	}
	defer tx.Rollback()

	// Serialize claimers on the campaign row.
	if _, err := tx.Exec(`SELECT id FROM campaigns WHERE id=$1 FOR UPDATE`, campaignID); err != nil {
		return nil, 0, err
	}

	var sentToday int
	err = tx.QueryRow(`
		SELECT COUNT(*) FROM recipients
		WHERE campaign_id=$1 AND sent_at >= $2 AND sent_at < $3
	`, campaignID, dayStart, dayEnd).Scan(&sentToday)
	if err != nil {
		return nil, 0, err
	}
	if dailyLimit > 0 && sentToday >= dailyLimit {
		return nil, sentToday, tx.Commit()
	}

	query := `
		UPDATE recipients SET status='queued', approved=FALSE, updated_at=NOW()
		WHERE id = (
			SELECT id FROM recipients
			WHERE campaign_id=$1 AND status='approved'
			ORDER BY created_at, id
			FOR UPDATE SKIP LOCKED
			LIMIT 1
		)
		RETURNING id, campaign_id, contact_id, subject, body, body_html,
			status, approved, suppression_reason, last_error, sent_at, created_at, updated_at
	`
	rec, err := scanRecipient(tx.QueryRow(query, campaignID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, sentToday, tx.Commit()
		}
		return nil, 0, err
	}
	return rec, sentToday, tx.Commit()
}

// MarkSent finalizes a queued recipient. sent_at is set exactly once.
func (r *RecipientRepository) MarkSent(id int, sentAt time.Time) error {
	query := `
		UPDATE recipients
		SET status='sent', approved=FALSE, last_error='', sent_at=COALESCE(sent_at, $1), updated_at=NOW()
		WHERE id=$2
	`
	_, err := r.DB.Exec(query, sentAt, id)
	return err
}

func (r *RecipientRepository) MarkSendFailed(id int, lastError string) error {
	query := `UPDATE recipients SET status='failed', approved=FALSE, last_error=$1, updated_at=NOW() WHERE id=$2`
	_, err := r.DB.Exec(query, lastError, id)
	return err
}

var _ RecipientRepositoryInterface = (*RecipientRepository)(nil)
