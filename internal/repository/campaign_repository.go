package repository

import (
	"database/sql"
	"fmt"
	"time"

	appErrors "github.com/florawise/outreach-backend/internal/errors"
	"github.com/florawise/outreach-backend/internal/model"
)

type CampaignRepositoryInterface interface {
	Create(c *model.Campaign) error
	GetByID(id int) (*model.Campaign, error)
	Update(c *model.Campaign) error
	UpdateStatus(campaignID int, status string) error
	ListCampaigns(offset, limit int, status string) ([]*model.Campaign, int, error)
	GetStats(campaignID int) (map[string]int, error)
	GetEvents(campaignID int) ([]model.Event, error)
}

type CampaignRepository struct {
	DB *sql.DB
}

const campaignColumns = `id, name, purpose, call_to_action, tone, must_include, must_avoid,
	target_word_count, sender_profile_id, reply_to, subject_guidance, context, reference_email,
	send_window_start, send_window_end, min_delay_seconds, max_delay_seconds, daily_send_limit,
	status, created_at, updated_at`

func scanCampaign(row interface{ Scan(...any) error }) (*model.Campaign, error) {
	var c model.Campaign
	err := row.Scan(
		&c.ID, &c.Name, &c.Purpose, &c.CallToAction, &c.Tone, &c.MustInclude, &c.MustAvoid,
		&c.TargetWordCount, &c.SenderProfileID, &c.ReplyTo, &c.SubjectGuidance, &c.Context, &c.ReferenceEmail,
		&c.SendWindowStart, &c.SendWindowEnd, &c.MinDelaySeconds, &c.MaxDelaySeconds, &c.DailySendLimit,
		&c.Status, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ====================== Campaign CRUD ======================

func (r *CampaignRepository) Create(c *model.Campaign) error {
	c.CreatedAt = time.Now()
	if c.Status == "" {
		c.Status = model.CampaignDraft
	}
	query := `
		INSERT INTO campaigns (name, purpose, call_to_action, tone, must_include, must_avoid,
			target_word_count, sender_profile_id, reply_to, subject_guidance, context, reference_email,
			send_window_start, send_window_end, min_delay_seconds, max_delay_seconds, daily_send_limit,
			status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		RETURNING id
	`
	return r.DB.QueryRow(query,
		c.Name, c.Purpose, c.CallToAction, c.Tone, c.MustInclude, c.MustAvoid,
		c.TargetWordCount, c.SenderProfileID, c.ReplyTo, c.SubjectGuidance, c.Context, c.ReferenceEmail,
		c.SendWindowStart, c.SendWindowEnd, c.MinDelaySeconds, c.MaxDelaySeconds, c.DailySendLimit,
		c.Status, c.CreatedAt,
	).Scan(&c.ID)
}

func (r *CampaignRepository) GetByID(id int) (*model.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE id=$1`
	c, err := scanCampaign(r.DB.QueryRow(query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.NewCampaignNotFound(id)
		}
		return nil, err
	}
	return c, nil
}

func (r *CampaignRepository) Update(c *model.Campaign) error {
	query := `
		UPDATE campaigns
		SET name=$1, purpose=$2, call_to_action=$3, tone=$4, must_include=$5, must_avoid=$6,
			target_word_count=$7, sender_profile_id=$8, reply_to=$9, subject_guidance=$10,
			context=$11, reference_email=$12,
			send_window_start=$13, send_window_end=$14, min_delay_seconds=$15, max_delay_seconds=$16,
			daily_send_limit=$17, status=$18, updated_at=NOW()
		WHERE id=$19
	`
	_, err := r.DB.Exec(query,
		c.Name, c.Purpose, c.CallToAction, c.Tone, c.MustInclude, c.MustAvoid,
		c.TargetWordCount, c.SenderProfileID, c.ReplyTo, c.SubjectGuidance,
		c.Context, c.ReferenceEmail,
		c.SendWindowStart, c.SendWindowEnd, c.MinDelaySeconds, c.MaxDelaySeconds,
		c.DailySendLimit, c.Status, c.ID,
	)
	return err
}

func (r *CampaignRepository) UpdateStatus(campaignID int, status string) error {
	query := `UPDATE campaigns SET status=$1, updated_at=$2 WHERE id=$3`
	_, err := r.DB.Exec(query, status, time.Now(), campaignID)
	return err
}

func (r *CampaignRepository) ListCampaigns(offset, limit int, status string) ([]*model.Campaign, int, error) {
	campaigns := []*model.Campaign{}
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE 1=1`
	args := []interface{}{}
	argPos := 1

	if status != "" {
		query += fmt.Sprintf(" AND status=$%d", argPos)
		args = append(args, status)
		argPos++
	}

	query += fmt.Sprintf(" ORDER BY id DESC LIMIT $%d OFFSET $%d", argPos, argPos+1)
	args = append(args, limit, offset)

	rows, err := r.DB.Query(query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, 0, err
		}
		campaigns = append(campaigns, c)
	}

	countQuery := `SELECT COUNT(*) FROM campaigns WHERE 1=1`
	argsCount := []interface{}{}
	if status != "" {
		countQuery += " AND status=$1"
		argsCount = append(argsCount, status)
	}

	var total int
	if err := r.DB.QueryRow(countQuery, argsCount...).Scan(&total); err != nil {
		return nil, 0, err
	}

	return campaigns, total, nil
}

// ====================== Stats & events ======================

func (r *CampaignRepository) GetStats(campaignID int) (map[string]int, error) {
	query := `SELECT status, COUNT(*) FROM recipients WHERE campaign_id=$1 GROUP BY status`
	rows, err := r.DB.Query(query, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := map[string]int{
		"total":      0,
		"pending":    0,
		"generated":  0,
		"approved":   0,
		"queued":     0,
		"sent":       0,
		"failed":     0,
		"suppressed": 0,
	}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
		stats["total"] += count
	}
	return stats, nil
}

func (r *CampaignRepository) GetEvents(campaignID int) ([]model.Event, error) {
	query := `
		SELECT e.id, e.name, e.starts_at, e.url, e.description
		FROM events e
		JOIN campaign_events ce ON ce.event_id = e.id
		WHERE ce.campaign_id = $1
		ORDER BY e.starts_at
	`
	rows, err := r.DB.Query(query, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []model.Event{}
	for rows.Next() {
		var e model.Event
		if err := rows.Scan(&e.ID, &e.Name, &e.StartsAt, &e.URL, &e.Description); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, nil
}

var _ CampaignRepositoryInterface = (*CampaignRepository)(nil)
