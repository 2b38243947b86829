package repository

import (
	"context"
	"database/sql"
	"time"

	"presence-sync/core/database"
	"presence-sync/modules/link/entity"

	"github.com/google/uuid"
)

type LinkRepository interface {
	CreateLinkedAccount(ctx context.Context, acc *entity.LinkedAccount) (*entity.LinkedAccount, error)
	GetLinkedAccounts(ctx context.Context) ([]entity.LinkedAccount, error)
	GetLinkedAccountByUserID(ctx context.Context, userID string) (*entity.LinkedAccount, error)
	DeleteLinkedAccount(ctx context.Context, userID string) error

	GetCalendarAccountByLinkCode(ctx context.Context, linkCode string) (*entity.CalendarAccount, error)

	GetAfkCalendar(ctx context.Context, calendarID string) (*entity.AfkCalendar, error)
	UpsertAfkCalendar(ctx context.Context, cal *entity.AfkCalendar) error
}

type linkRepository struct {
	db database.IDatabase
}

func NewLinkRepository(db database.IDatabase) LinkRepository {
	return &linkRepository{db: db}
}

func (r *linkRepository) CreateLinkedAccount(ctx context.Context, acc *entity.LinkedAccount) (*entity.LinkedAccount, error) {
	query := `
		INSERT INTO linked_accounts (id, user_id, link_code)
		VALUES ($1, $2, $3)
		RETURNING created_at, updated_at
	`
	acc.ID = uuid.New()
	err := r.db.QueryRowContext(ctx, query, acc.ID, acc.UserID, acc.LinkCode).
		Scan(&acc.CreatedAt, &acc.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return acc, nil
}

func (r *linkRepository) GetLinkedAccounts(ctx context.Context) ([]entity.LinkedAccount, error) {
	query := `
		SELECT id, user_id, link_code, created_at, updated_at
		FROM linked_accounts
		ORDER BY created_at
	`
	var accounts []entity.LinkedAccount
	if err := r.db.SelectContext(ctx, &accounts, query); err != nil {
		return nil, err
	}
	return accounts, nil
}

func (r *linkRepository) GetLinkedAccountByUserID(ctx context.Context, userID string) (*entity.LinkedAccount, error) {
	query := `
		SELECT id, user_id, link_code, created_at, updated_at
		FROM linked_accounts
		WHERE user_id = $1
	`
	var acc entity.LinkedAccount
	if err := r.db.GetContext(ctx, &acc, query, userID); err != nil {
		return nil, err
	}
	return &acc, nil
}

func (r *linkRepository) DeleteLinkedAccount(ctx context.Context, userID string) error {
	return r.db.ExecContext(ctx, `DELETE FROM linked_accounts WHERE user_id = $1`, userID)
}

// GetCalendarAccountByLinkCode resolves the OAuth credential for a linked
// account. The link code is the calendar-side user id.
func (r *linkRepository) GetCalendarAccountByLinkCode(ctx context.Context, linkCode string) (*entity.CalendarAccount, error) {
	query := `
		SELECT provider, provider_account_id, user_id, access_token, refresh_token, token_expires_at, email
		FROM calendar_accounts
		WHERE user_id = $1 AND access_token IS NOT NULL
		LIMIT 1
	`
	var acc entity.CalendarAccount
	var accessToken, refreshToken, email sql.NullString
	var expiresAt sql.NullTime

	err := r.db.QueryRowContext(ctx, query, linkCode).Scan(
		&acc.Provider, &acc.ProviderAccountID, &acc.UserID,
		&accessToken, &refreshToken, &expiresAt, &email,
	)
	if err != nil {
		return nil, err
	}

	acc.AccessToken = accessToken.String
	acc.RefreshToken = refreshToken.String
	acc.Email = email.String
	if expiresAt.Valid {
		t := expiresAt.Time
		acc.TokenExpiresAt = &t
	}
	return &acc, nil
}

func (r *linkRepository) GetAfkCalendar(ctx context.Context, calendarID string) (*entity.AfkCalendar, error) {
	query := `
		SELECT id, user_id, calendar_id, calendars, created_at, updated_at
		FROM afk_calendars
		WHERE calendar_id = $1
	`
	var cal entity.AfkCalendar
	if err := r.db.GetContext(ctx, &cal, query, calendarID); err != nil {
		return nil, err
	}
	return &cal, nil
}

func (r *linkRepository) UpsertAfkCalendar(ctx context.Context, cal *entity.AfkCalendar) error {
	query := `
		INSERT INTO afk_calendars (id, user_id, calendar_id, calendars)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (calendar_id)
		DO UPDATE SET calendars = EXCLUDED.calendars, updated_at = NOW()
	`
	if cal.ID == uuid.Nil {
		cal.ID = uuid.New()
	}
	cal.UpdatedAt = time.Now()
	return r.db.ExecContext(ctx, query, cal.ID, cal.UserID, cal.CalendarID, cal.Calendars)
}
