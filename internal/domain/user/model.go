package user

import "time"

// Account is one ledger account owned by a user. EncryptedKey holds the
// account's private key material in encrypted form; it never leaves the
// gateway in responses.
type Account struct {
	AccountID    string            `json:"accountId"`
	EncryptedKey string            `json:"-"`
	Passphrase   string            `json:"-"`
	HbarBalance  float64           `json:"hbarBalance"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// User is an identity record. The recovery passphrase acts as a second
// credential resolved by exact match.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Passphrase   string    `json:"-"`
	Accounts     []Account `json:"accounts"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
