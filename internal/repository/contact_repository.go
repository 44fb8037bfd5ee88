package repository

import (
	"database/sql"
	"strings"

	"github.com/florawise/outreach-backend/internal/model"
)

// ContactRepositoryInterface defines methods used by services
type ContactRepositoryInterface interface {
	GetByID(id int) (*model.Contact, error)
	GetByEmail(email string) (*model.Contact, error)
	ListAll() ([]model.Contact, error)
	Create(c *model.Contact) error
}

type ContactRepository struct {
	DB *sql.DB
}

func (r *ContactRepository) GetByID(id int) (*model.Contact, error) {
	query := `
		SELECT id, first_name, last_name, email, title, company_name
		FROM contacts
		WHERE id = $1
	`
	row := r.DB.QueryRow(query, id)

	var c model.Contact
	if err := row.Scan(&c.ID, &c.FirstName, &c.LastName, &c.Email, &c.Title, &c.CompanyName); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // not found
		}
		return nil, err
	}
	return &c, nil
}

func (r *ContactRepository) GetByEmail(email string) (*model.Contact, error) {
	query := `
		SELECT id, first_name, last_name, email, title, company_name
		FROM contacts
		WHERE LOWER(email) = LOWER($1)
	`
	row := r.DB.QueryRow(query, strings.TrimSpace(email))

	var c model.Contact
	if err := row.Scan(&c.ID, &c.FirstName, &c.LastName, &c.Email, &c.Title, &c.CompanyName); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

func (r *ContactRepository) ListAll() ([]model.Contact, error) {
	query := `
		SELECT id, first_name, last_name, email, title, company_name
		FROM contacts
		ORDER BY company_name, last_name, first_name
	`
	rows, err := r.DB.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	contacts := []model.Contact{}
	for rows.Next() {
		var c model.Contact
		if err := rows.Scan(&c.ID, &c.FirstName, &c.LastName, &c.Email, &c.Title, &c.CompanyName); err != nil {
			return nil, err
		}
		contacts = append(contacts, c)
	}
	return contacts, nil
}

// Create inserts a contact. Dedup on normalized email is enforced by a
// unique index rather than a lookup-before-insert check; on conflict the
// existing row is loaded into c.
func (r *ContactRepository) Create(c *model.Contact) error {
	c.Email = strings.TrimSpace(c.Email)
	query := `
		INSERT INTO contacts (first_name, last_name, email, title, company_name)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (lower_email) DO NOTHING
		RETURNING id
	`
	err := r.DB.QueryRow(query, c.FirstName, c.LastName, c.Email, c.Title, c.CompanyName).Scan(&c.ID)
	if err == sql.ErrNoRows {
		existing, err := r.GetByEmail(c.Email)
		if err != nil {
			return err
		}
		if existing != nil {
			*c = *existing
		}
		return nil
	}
	return err
}

var _ ContactRepositoryInterface = (*ContactRepository)(nil)
