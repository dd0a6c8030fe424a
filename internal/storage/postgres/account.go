package postgres

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"
)

// Registration constraints.
const (
	MinUsernameLength = 3
	MinPasswordLength = 6
	// bcrypt ignores everything past 72 bytes.
	MaxPasswordLength = 72
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Account is a registered catalog user.
type Account struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Registration is the input to AccountRepository.Create.
type Registration struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate reports every violated registration constraint.
//
// Postcondition: Returns nil or an error wrapping ErrInvalidRegistration.
func (r Registration) Validate() error {
	var errs []string
	if len(strings.TrimSpace(r.Username)) < MinUsernameLength {
		errs = append(errs, fmt.Sprintf("username must be at least %d characters", MinUsernameLength))
	}
	if !emailPattern.MatchString(r.Email) {
		errs = append(errs, "email is not valid")
	}
	if len(r.Password) < MinPasswordLength {
		errs = append(errs, fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	}
	if len(r.Password) > MaxPasswordLength {
		errs = append(errs, fmt.Sprintf("password must be at most %d bytes", MaxPasswordLength))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidRegistration, strings.Join(errs, "; "))
	}
	return nil
}

// ErrAccountExists is returned when the username or email is already taken.
var ErrAccountExists = errors.New("account already exists")

// ErrInvalidCredentials is returned when authentication fails.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ErrInvalidRegistration is returned when registration input is rejected.
var ErrInvalidRegistration = errors.New("invalid registration")

// AccountRepository provides account persistence operations.
type AccountRepository struct {
	db *pgxpool.Pool
}

// NewAccountRepository creates an AccountRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewAccountRepository(db *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{db: db}
}

const accountColumns = `id, username, email, password_hash, created_at`

func scanAccount(row pgx.Row) (Account, error) {
	var acct Account
	err := row.Scan(&acct.ID, &acct.Username, &acct.Email, &acct.PasswordHash, &acct.CreatedAt)
	return acct, err
}

// Create validates reg and inserts a new account with a bcrypt-hashed password.
//
// Postcondition: Returns the created Account with ID and CreatedAt set,
// ErrInvalidRegistration for rejected input, or ErrAccountExists if the
// username or email is taken.
func (r *AccountRepository) Create(ctx context.Context, reg Registration) (Account, error) {
	if err := reg.Validate(); err != nil {
		return Account{}, err
	}

	hash, err := HashPassword(reg.Password)
	if err != nil {
		return Account{}, fmt.Errorf("hashing password: %w", err)
	}

	acct, err := scanAccount(r.db.QueryRow(ctx,
		`INSERT INTO users (username, email, password_hash)
		 VALUES ($1, $2, $3)
		 RETURNING `+accountColumns,
		strings.TrimSpace(reg.Username), strings.ToLower(reg.Email), hash,
	))
	if err != nil {
		if isDuplicateKeyError(err) {
			return Account{}, ErrAccountExists
		}
		return Account{}, fmt.Errorf("inserting account: %w", err)
	}
	return acct, nil
}

// Authenticate verifies credentials and returns the matching account.
//
// Precondition: username and password must be non-empty.
// Postcondition: Returns the Account if credentials are valid, or
// ErrInvalidCredentials for an unknown username or a wrong password.
func (r *AccountRepository) Authenticate(ctx context.Context, username, password string) (Account, error) {
	acct, err := scanAccount(r.db.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM users WHERE username = $1`,
		strings.TrimSpace(username),
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrInvalidCredentials
		}
		return Account{}, fmt.Errorf("querying account: %w", err)
	}

	if !CheckPassword(password, acct.PasswordHash) {
		return Account{}, ErrInvalidCredentials
	}
	return acct, nil
}

// HashPassword creates a bcrypt hash of the given password.
//
// Precondition: password must be non-empty.
// Postcondition: Returns a bcrypt hash string.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword compares a plaintext password against a bcrypt hash.
//
// Postcondition: Returns true if password matches the hash.
func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// isDuplicateKeyError checks if a pgx error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	// SQLSTATE 23505 is unique_violation
	var pgErr interface{ SQLState() string }
	if errors.As(err, &pgErr) {
		return pgErr.SQLState() == "23505"
	}
	return false
}
