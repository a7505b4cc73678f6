package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

const uniqueViolation = "23505"

// dbtx defines the interface for database and transactions
type dbtx interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// PostgresConfig holds the configuration for connecting to a Postgres database
type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DB       string
}

// PostgresStore implements the Store interface using a Postgres database
type PostgresStore struct {
	db dbtx
}

// NewPostgresDB creates a new Postgres database connection
func NewPostgresDB(cfg PostgresConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		cfg.Host,
		cfg.Port,
		cfg.User,
		cfg.Password,
		cfg.DB))
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return db, nil
}

// NewPostgresStore creates a new PostgresStore instance
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const userColumns = `name, email, COALESCE(password_hash, ''), linkedin_url, github_url,
	       COALESCE(linkedin_id, ''), COALESCE(linkedin_access_token, ''), profile_picture_url,
	       is_linkedin_connected, id, created_at, updated_at`

func scanUser(row *sql.Row) (User, error) {
	var u User
	err := row.Scan(
		&u.Name,
		&u.Email,
		&u.PasswordHash,
		&u.LinkedInURL,
		&u.GitHubURL,
		&u.LinkedInID,
		&u.LinkedInAccessToken,
		&u.ProfilePictureURL,
		&u.IsLinkedInConnected,
		&u.ID,
		&u.CreatedAt,
		&u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return u, ErrNotFound
		}

		return u, fmt.Errorf("scan: %w", err)
	}

	return u, nil
}

// GetUserByEmail retrieves a user record by its email
func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email=$1`, email)
	return scanUser(row)
}

// GetUserByLinkedInID retrieves a user record by its linkedin id
func (s *PostgresStore) GetUserByLinkedInID(ctx context.Context, linkedinID string) (User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE linkedin_id=$1`, linkedinID)
	return scanUser(row)
}

// CreateUser creates a new user record and returns its ID. Empty optional
// fields are stored as NULL so the partial unique index on linkedin_id
// only applies to linked accounts.
func (s *PostgresStore) CreateUser(ctx context.Context, r CreateUserRequest) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO users (name, email, password_hash, linkedin_url, github_url,
		                    linkedin_id, linkedin_access_token, profile_picture_url, is_linkedin_connected)
		 VALUES ($1, $2, NULLIF($3, ''), $4, $5, NULLIF($6, ''), NULLIF($7, ''), $8, $6 <> '')
		 RETURNING id`,
		r.Name,
		r.Email,
		r.PasswordHash,
		r.LinkedInURL,
		r.GitHubURL,
		r.LinkedInID,
		r.LinkedInAccessToken,
		r.ProfilePictureURL).Scan(&id)

	if err != nil {
		return 0, fmt.Errorf("insert user: %w", mapUniqueViolation(err))
	}

	return id, nil
}

// UpdateLinkedIn sets the linkedin fields on an existing user record
func (s *PostgresStore) UpdateLinkedIn(ctx context.Context, r UpdateLinkedInRequest) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users
		 SET linkedin_id=NULLIF($2, ''), linkedin_access_token=NULLIF($3, ''),
		     profile_picture_url=$4, is_linkedin_connected=TRUE, updated_at=now()
		 WHERE email=$1`,
		r.Email,
		r.LinkedInID,
		r.LinkedInAccessToken,
		r.ProfilePictureURL)
	if err != nil {
		return fmt.Errorf("update linkedin fields: %w", mapUniqueViolation(err))
	}

	return requireRow(res)
}

// ClearLinkedIn resets the linkedin fields on an existing user record,
// leaving everything else untouched
func (s *PostgresStore) ClearLinkedIn(ctx context.Context, email string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users
		 SET linkedin_id=NULL, linkedin_access_token=NULL,
		     profile_picture_url='', is_linkedin_connected=FALSE, updated_at=now()
		 WHERE email=$1`, email)
	if err != nil {
		return fmt.Errorf("clear linkedin fields: %w", err)
	}

	return requireRow(res)
}

// DeleteUser removes a user record by its email
func (s *PostgresStore) DeleteUser(ctx context.Context, email string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE email=$1`, email)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}

	return requireRow(res)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}

	return nil
}

func mapUniqueViolation(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != uniqueViolation {
		return err
	}

	switch pqErr.Constraint {
	case "users_email_key":
		return ErrDuplicateEmail
	case "users_linkedin_id_idx":
		return ErrDuplicateLinkedInID
	}

	return err
}
