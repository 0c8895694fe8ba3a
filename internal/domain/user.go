package domain

import (
	"strconv"
	"time"
)

// User is the persisted account record.
type User struct {
	ID           string `json:"_id"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
	Name         string `json:"name"`
	SignUpDate   string `json:"signUpDate"`
	LastVisit    string `json:"lastVisit"`
	IsOnline     bool   `json:"isOnline"`
	IsBlocked    bool   `json:"isBlocked"`
}

// UserPatch lists the fields an update may touch. Nil fields are left as-is.
type UserPatch struct {
	Name         *string
	Email        *string
	PasswordHash *string
	IsBlocked    *bool
	IsOnline     *bool
}

// Empty reports whether the patch changes nothing.
func (p UserPatch) Empty() bool {
	return p.Name == nil && p.Email == nil && p.PasswordHash == nil && p.IsBlocked == nil && p.IsOnline == nil
}

const (
	signUpDateLayout = "02.01.2006"
	lastVisitLayout  = "January, 15:04"
)

// FormatSignUpDate renders t as DD.MM.YYYY.
func FormatSignUpDate(t time.Time) string {
	return t.Format(signUpDateLayout)
}

// FormatLastVisit renders t as "14th of October, 09:05".
func FormatLastVisit(t time.Time) string {
	return ordinal(t.Day()) + " of " + t.Format(lastVisitLayout)
}

func ordinal(day int) string {
	suffix := "th"
	switch day % 100 {
	case 11, 12, 13:
	default:
		switch day % 10 {
		case 1:
			suffix = "st"
		case 2:
			suffix = "nd"
		case 3:
			suffix = "rd"
		}
	}
	return strconv.Itoa(day) + suffix
}
