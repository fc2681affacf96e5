package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"teleshop-backend/internal/models"
)

type StaffRepository struct {
	DB *pgxpool.Pool
}

func NewStaffRepository(db *pgxpool.Pool) *StaffRepository {
	return &StaffRepository{DB: db}
}

const staffColumns = `id, username, name, phone, shop_id, is_admin, chat_id,
	password_hash, totp_secret, totp_enabled, created_at`

func scanStaff(row pgx.Row) (*models.Staff, error) {
	var s models.Staff
	err := row.Scan(&s.ID, &s.Username, &s.Name, &s.Phone, &s.ShopID, &s.IsAdmin,
		&s.ChatID, &s.PasswordHash, &s.TOTPSecret, &s.TOTPEnabled, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Ensure returns the staff id for username, creating the staff row and its
// zeroed inventory row on first contact. Provisioning lives here, not in the
// reconciliation engine.
func (r *StaffRepository) Ensure(ctx context.Context, username, name string) (int, error) {
	var id int
	err := r.DB.QueryRow(ctx, `SELECT id FROM staff WHERE username = $1`, username).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, err
	}

	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	if name == "" {
		name = username
	}
	err = tx.QueryRow(ctx,
		`INSERT INTO staff (username, name) VALUES ($1, $2)
		 ON CONFLICT (username) DO UPDATE SET username = EXCLUDED.username
		 RETURNING id`,
		username, name,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert staff: %w", err)
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO inventory (staff_id) VALUES ($1) ON CONFLICT (staff_id) DO NOTHING`, id,
	); err != nil {
		return 0, fmt.Errorf("provision inventory: %w", err)
	}
	return id, tx.Commit(ctx)
}

func (r *StaffRepository) GetByUsername(ctx context.Context, username string) (*models.Staff, error) {
	s, err := scanStaff(r.DB.QueryRow(ctx,
		`SELECT `+staffColumns+` FROM staff WHERE username = $1`, username))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return s, err
}

func (r *StaffRepository) GetByID(ctx context.Context, id int) (*models.Staff, error) {
	s, err := scanStaff(r.DB.QueryRow(ctx,
		`SELECT `+staffColumns+` FROM staff WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return s, err
}

func (r *StaffRepository) List(ctx context.Context) ([]models.Staff, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT `+staffColumns+` FROM staff ORDER BY username`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Staff
	for rows.Next() {
		s, err := scanStaff(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

func (r *StaffRepository) SetAdmin(ctx context.Context, username string, isAdmin bool) error {
	tag, err := r.DB.Exec(ctx,
		`UPDATE staff SET is_admin = $1 WHERE username = $2`, isAdmin, username)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("staff %q not found", username)
	}
	return nil
}

func (r *StaffRepository) SetChatID(ctx context.Context, username, chatID string) error {
	tag, err := r.DB.Exec(ctx,
		`UPDATE staff SET chat_id = $1 WHERE username = $2`, chatID, username)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("staff %q not found", username)
	}
	return nil
}

func (r *StaffRepository) SetPasswordHash(ctx context.Context, id int, hash string) error {
	_, err := r.DB.Exec(ctx, `UPDATE staff SET password_hash = $1 WHERE id = $2`, hash, id)
	return err
}

func (r *StaffRepository) SetTOTP(ctx context.Context, id int, secret string, enabled bool) error {
	_, err := r.DB.Exec(ctx,
		`UPDATE staff SET totp_secret = $1, totp_enabled = $2 WHERE id = $3`, secret, enabled, id)
	return err
}

// AdminChatIDs returns non-empty chat ids of all admins, for notification
// fan-out by the bot collaborator.
func (r *StaffRepository) AdminChatIDs(ctx context.Context) ([]string, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT chat_id FROM staff WHERE is_admin AND chat_id <> ''`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
