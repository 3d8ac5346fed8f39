package auth

import (
	"fmt"
	"strings"
)

// Accounts is a fixed set of API accounts. It is built once from
// configuration and is safe for concurrent reads.
type Accounts struct {
	byName map[string]Account

	// dummyHash is verified against when the username is unknown, so a
	// miss costs the same as a wrong password.
	dummyHash string
}

// NewAccounts validates and indexes accounts. Usernames are unique and
// case-sensitive; every account needs a role and an Argon2id PHC hash.
func NewAccounts(accounts []Account) (*Accounts, error) {
	a := &Accounts{byName: make(map[string]Account, len(accounts))}

	for _, acc := range accounts {
		if !IsValidUsername(acc.Username) {
			return nil, fmt.Errorf("%w: username %q", ErrInvalidAccount, acc.Username)
		}
		if !IsValidRole(acc.Role) {
			return nil, fmt.Errorf("%w: %s has unknown role %q", ErrInvalidAccount, acc.Username, acc.Role)
		}
		if !strings.HasPrefix(acc.PasswordHash, "$argon2id$") {
			return nil, fmt.Errorf("%w: %s password_hash is not an argon2id hash", ErrInvalidAccount, acc.Username)
		}
		if _, dup := a.byName[acc.Username]; dup {
			return nil, fmt.Errorf("%w: duplicate username %q", ErrInvalidAccount, acc.Username)
		}
		a.byName[acc.Username] = acc
		if a.dummyHash == "" {
			a.dummyHash = acc.PasswordHash
		}
	}

	return a, nil
}

// Len returns the number of accounts.
func (a *Accounts) Len() int {
	return len(a.byName)
}

// Authenticate checks username and password, returning the account on
// success and ErrInvalidCredentials otherwise.
func (a *Accounts) Authenticate(username, password string) (Account, error) {
	acc, ok := a.byName[username]
	hash := acc.PasswordHash
	if !ok {
		if a.dummyHash == "" {
			return Account{}, ErrInvalidCredentials
		}
		hash = a.dummyHash
	}

	match, err := VerifyPassword(password, hash)
	if err != nil {
		return Account{}, fmt.Errorf("verifying password: %w", err)
	}
	if !ok || !match {
		return Account{}, ErrInvalidCredentials
	}
	return acc, nil
}
