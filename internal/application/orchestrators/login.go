package orchestrators

import (
	"context"
	"log/slog"

	accountStore "restock/internal/adapters/storage/account"
	accountDomain "restock/internal/domain/account"
)

// LoginInput carries credentials for authentication.
type LoginInput struct {
	Email    string
	Password string
}

// LoginDeps holds dependencies for Login.
type LoginDeps struct {
	Accounts accountStore.Store
}

// ExecuteLogin authenticates a staff account by email and password.
// An unknown email and a wrong password both yield ErrWrongPassword so the
// response does not reveal which accounts exist.
// PRE: Email and Password are non-empty
// POST: Returns the account on success
func ExecuteLogin(ctx context.Context, input LoginInput, deps LoginDeps) (accountDomain.Account, error) {
	if input.Email == "" || input.Password == "" {
		return accountDomain.Account{}, accountDomain.ErrWrongPassword
	}

	acct, err := deps.Accounts.GetByEmail(ctx, input.Email)
	if err != nil {
		slog.Info("login_failed", "email", input.Email)
		return accountDomain.Account{}, accountDomain.ErrWrongPassword
	}
	if err := acct.CheckPassword(input.Password); err != nil {
		slog.Info("login_failed", "email", input.Email)
		return accountDomain.Account{}, accountDomain.ErrWrongPassword
	}

	slog.Info("login_succeeded", "account_id", acct.ID)
	return acct, nil
}
