package orchestrators

import (
	"context"
	"errors"
	"log/slog"
	"time"

	accountStore "restock/internal/adapters/storage/account"
	accountDomain "restock/internal/domain/account"
)

// Account orchestrator errors.
var (
	ErrEmailTaken   = errors.New("an account with this email already exists")
	ErrSamePassword = errors.New("new password must be different from the current password")
)

// CreateAccountInput carries input for creating a staff account.
type CreateAccountInput struct {
	Email       string
	Password    string
	StoreName   string
	DisplayName string
}

// CreateAccountDeps holds dependencies for CreateAccount.
type CreateAccountDeps struct {
	Accounts   accountStore.Store
	GenerateID func() string
	Now        func() time.Time
}

// ExecuteCreateAccount creates a staff account with a hashed password.
// PRE: Email and password are non-empty
// POST: Account persisted
// INVARIANT: Email is unique
func ExecuteCreateAccount(ctx context.Context, input CreateAccountInput, deps CreateAccountDeps) (accountDomain.Account, error) {
	if input.Email == "" {
		return accountDomain.Account{}, errors.New("email is required")
	}
	if input.Password == "" {
		return accountDomain.Account{}, errors.New("password is required")
	}

	if _, err := deps.Accounts.GetByEmail(ctx, input.Email); err == nil {
		return accountDomain.Account{}, ErrEmailTaken
	}

	acct := accountDomain.Account{
		ID:          deps.GenerateID(),
		Email:       input.Email,
		StoreName:   input.StoreName,
		DisplayName: input.DisplayName,
		CreatedAt:   deps.Now(),
	}
	if err := acct.SetPassword(input.Password); err != nil {
		return accountDomain.Account{}, err
	}
	if err := acct.Validate(); err != nil {
		return accountDomain.Account{}, err
	}
	if err := deps.Accounts.Save(ctx, acct); err != nil {
		return accountDomain.Account{}, err
	}

	slog.Info("auth_event", "event", "account_created", "email", input.Email)
	return acct, nil
}

// ExecuteSeedAdmin creates the first staff account when none exist.
// PRE: Database is initialized
// POST: Admin account exists
func ExecuteSeedAdmin(ctx context.Context, input CreateAccountInput, deps CreateAccountDeps) error {
	count, err := deps.Accounts.Count(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	if _, err := ExecuteCreateAccount(ctx, input, deps); err != nil {
		return err
	}
	slog.Info("auth_event", "event", "admin_seeded", "email", input.Email)
	return nil
}

// ChangePasswordInput carries input for the change-password orchestrator.
type ChangePasswordInput struct {
	AccountID       string
	CurrentPassword string
	NewPassword     string
}

// ChangePasswordDeps holds dependencies for ChangePassword.
type ChangePasswordDeps struct {
	Accounts accountStore.Store
}

// ExecuteChangePassword validates the current password and updates to the
// new one.
// PRE: AccountID is valid, both passwords are non-empty
// POST: Password hash is replaced
func ExecuteChangePassword(ctx context.Context, input ChangePasswordInput, deps ChangePasswordDeps) error {
	if input.AccountID == "" || input.CurrentPassword == "" || input.NewPassword == "" {
		return errors.New("all fields are required")
	}

	acct, err := deps.Accounts.GetByID(ctx, input.AccountID)
	if err != nil {
		return err
	}
	if err := acct.CheckPassword(input.CurrentPassword); err != nil {
		return err
	}
	if input.CurrentPassword == input.NewPassword {
		return ErrSamePassword
	}
	if err := acct.SetPassword(input.NewPassword); err != nil {
		return err
	}
	if err := deps.Accounts.Save(ctx, acct); err != nil {
		return err
	}

	slog.Info("auth_event", "event", "password_changed", "account_id", input.AccountID)
	return nil
}
