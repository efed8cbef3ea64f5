package account

import (
	"errors"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"restock/internal/domain/draft"
)

// Max length constants for user-editable fields.
const (
	MaxEmailLength = 254
)

// Domain errors
var (
	ErrEmptyEmail       = errors.New("email cannot be empty")
	ErrInvalidEmail     = errors.New("email must contain '@'")
	ErrEmptyPassword    = errors.New("password cannot be empty")
	ErrPasswordTooShort = errors.New("password must be at least 8 characters")
	ErrWrongPassword    = errors.New("incorrect password")
	ErrNotFound         = errors.New("account not found")
)

// Account is a retailer staff login. StoreName and DisplayName feed the
// sender identity substituted into generated drafts.
type Account struct {
	ID           string
	Email        string
	PasswordHash string
	StoreName    string
	DisplayName  string
	CreatedAt    time.Time
}

// Validate checks if the Account has valid data.
// PRE: Account struct is populated
// POST: Returns nil if valid, error otherwise
func (a *Account) Validate() error {
	if strings.TrimSpace(a.Email) == "" {
		return ErrEmptyEmail
	}
	if len(a.Email) > MaxEmailLength {
		return errors.New("email cannot exceed 254 characters")
	}
	if !strings.Contains(a.Email, "@") {
		return ErrInvalidEmail
	}
	return nil
}

// SetPassword hashes and stores a password using bcrypt.
// PRE: password is at least 8 characters
// POST: PasswordHash is set
func (a *Account) SetPassword(password string) error {
	if password == "" {
		return ErrEmptyPassword
	}
	if len(password) < 8 {
		return ErrPasswordTooShort
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	a.PasswordHash = string(hash)
	return nil
}

// CheckPassword compares a candidate password against the stored hash.
// PRE: PasswordHash is set
// POST: Returns nil on match, ErrWrongPassword otherwise
func (a *Account) CheckPassword(password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(password)); err != nil {
		return ErrWrongPassword
	}
	return nil
}

// SenderIdentity maps the account's profile to the draft generator's sender
// fields. Blank fields are left blank; the generator applies its own
// fallbacks.
func (a *Account) SenderIdentity() draft.Sender {
	return draft.Sender{
		StoreName: a.StoreName,
		UserName:  a.DisplayName,
		UserEmail: a.Email,
	}
}
