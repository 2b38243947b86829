package entity

import (
	"time"

	"presence-sync/core/entity"
)

// LinkedAccount pairs a chat user with an external calendar identity. The
// link code is the calendar-side user id handed out during web onboarding.
type LinkedAccount struct {
	entity.BaseEntity
	UserID   string `db:"user_id" json:"user_id"`
	LinkCode string `db:"link_code" json:"link_code"`
}

func (LinkedAccount) TableName() string {
	return "linked_accounts"
}

// CalendarAccount holds the OAuth credential for one provider identity.
// Rows are written by the web onboarding flow; this service only reads them.
type CalendarAccount struct {
	Provider          string     `db:"provider" json:"provider"`
	ProviderAccountID string     `db:"provider_account_id" json:"provider_account_id"`
	UserID            string     `db:"user_id" json:"user_id"`
	AccessToken       string     `db:"access_token" json:"-"`
	RefreshToken      string     `db:"refresh_token" json:"-"`
	TokenExpiresAt    *time.Time `db:"token_expires_at" json:"token_expires_at"`
	Email             string     `db:"email" json:"email"`
}

func (CalendarAccount) TableName() string {
	return "calendar_accounts"
}

// AfkCalendar records which sub-calendars of an account count as
// away-triggers. Calendars is a comma-separated list of calendar ids.
type AfkCalendar struct {
	entity.BaseEntity
	UserID     string `db:"user_id" json:"user_id"`
	CalendarID string `db:"calendar_id" json:"calendar_id"`
	Calendars  string `db:"calendars" json:"calendars"`
}

func (AfkCalendar) TableName() string {
	return "afk_calendars"
}
