package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/mailextract/internal/model"
)

type contactRow struct {
	ID          string    `db:"id"`
	AddressBook string    `db:"address_book"`
	FirstName   string    `db:"first_name"`
	LastName    string    `db:"last_name"`
	Email       string    `db:"email"`
	Phone       string    `db:"phone"`
	Company     string    `db:"company"`
	Title       string    `db:"title"`
	Website     string    `db:"website"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

// CreateContact stores rec in addressBook. A contact whose email already
// exists in that book is merged: non-empty fields of rec overwrite the
// stored ones.
func (s *SQLiteStore) CreateContact(ctx context.Context, rec model.ContactRecord, addressBook string) error {
	if rec.IsEmpty() {
		return fmt.Errorf("contact must have at least one field")
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()

	var existing contactRow
	found := false
	if rec.Email != "" {
		err := tx.GetContext(ctx, &existing,
			"SELECT * FROM contacts WHERE address_book = ? AND email = ? COLLATE NOCASE LIMIT 1",
			addressBook, rec.Email)
		switch {
		case err == nil:
			found = true
		case !errors.Is(err, sql.ErrNoRows):
			return fmt.Errorf("looking up contact %s: %w", rec.Email, err)
		}
	}

	if found {
		merged := merge(existing, rec)
		_, err = tx.ExecContext(ctx, `
			UPDATE contacts SET
				first_name = ?, last_name = ?, phone = ?,
				company = ?, title = ?, website = ?, updated_at = ?
			WHERE id = ?`,
			merged.FirstName, merged.LastName, merged.Phone,
			merged.Company, merged.Title, merged.Website, now,
			existing.ID,
		)
		if err != nil {
			return fmt.Errorf("updating contact %s: %w", existing.ID, err)
		}
		return tx.Commit()
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO contacts (
			id, address_book, first_name, last_name, email,
			phone, company, title, website, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.New().String(), addressBook, rec.FirstName, rec.LastName, rec.Email,
		rec.Phone, rec.Company, rec.Title, rec.Website, now, now,
	)
	if err != nil {
		return fmt.Errorf("creating contact: %w", err)
	}
	return tx.Commit()
}

// ListContacts returns the contacts of addressBook ordered by name.
func (s *SQLiteStore) ListContacts(ctx context.Context, addressBook string) ([]StoredContact, error) {
	var rows []contactRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT * FROM contacts
		WHERE address_book = ?
		ORDER BY last_name, first_name, email`, addressBook)
	if err != nil {
		return nil, fmt.Errorf("querying contacts: %w", err)
	}

	contacts := make([]StoredContact, 0, len(rows))
	for _, r := range rows {
		contacts = append(contacts, StoredContact{
			ID:            r.ID,
			AddressBook:   r.AddressBook,
			CreatedAt:     r.CreatedAt,
			UpdatedAt:     r.UpdatedAt,
			ContactRecord: r.record(),
		})
	}
	return contacts, nil
}

func (r contactRow) record() model.ContactRecord {
	return model.ContactRecord{
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Email:     r.Email,
		Phone:     r.Phone,
		Company:   r.Company,
		Title:     r.Title,
		Website:   r.Website,
	}
}

func merge(existing contactRow, rec model.ContactRecord) model.ContactRecord {
	out := existing.record()
	pick := func(dst *string, src string) {
		if src != "" {
			*dst = src
		}
	}
	pick(&out.FirstName, rec.FirstName)
	pick(&out.LastName, rec.LastName)
	pick(&out.Phone, rec.Phone)
	pick(&out.Company, rec.Company)
	pick(&out.Title, rec.Title)
	pick(&out.Website, rec.Website)
	return out
}
