package repository

import (
	"database/sql"

	"github.com/florawise/outreach-backend/internal/model"
)

type SenderProfileRepositoryInterface interface {
	GetByID(id int) (*model.SenderProfile, error)
	ListAll() ([]model.SenderProfile, error)
	Create(p *model.SenderProfile) error
}

type SenderProfileRepository struct {
	DB *sql.DB
}

func (r *SenderProfileRepository) GetByID(id int) (*model.SenderProfile, error) {
	query := `SELECT id, name, from_name, from_email, reply_to FROM sender_profiles WHERE id=$1`
	var p model.SenderProfile
	err := r.DB.QueryRow(query, id).Scan(&p.ID, &p.Name, &p.FromName, &p.FromEmail, &p.ReplyTo)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (r *SenderProfileRepository) ListAll() ([]model.SenderProfile, error) {
	query := `SELECT id, name, from_name, from_email, reply_to FROM sender_profiles ORDER BY name`
	rows, err := r.DB.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	profiles := []model.SenderProfile{}
	for rows.Next() {
		var p model.SenderProfile
		if err := rows.Scan(&p.ID, &p.Name, &p.FromName, &p.FromEmail, &p.ReplyTo); err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, nil
}

func (r *SenderProfileRepository) Create(p *model.SenderProfile) error {
	query := `
		INSERT INTO sender_profiles (name, from_name, from_email, reply_to)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	return r.DB.QueryRow(query, p.Name, p.FromName, p.FromEmail, p.ReplyTo).Scan(&p.ID)
}

var _ SenderProfileRepositoryInterface = (*SenderProfileRepository)(nil)
