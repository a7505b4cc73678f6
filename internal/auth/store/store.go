package store

import (
	"context"
	"errors"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrDuplicateEmail      = errors.New("email already registered")
	ErrDuplicateLinkedInID = errors.New("linkedin id already registered")
)

type Store interface {
	GetUserByEmail(ctx context.Context, email string) (User, error)
	GetUserByLinkedInID(ctx context.Context, linkedinID string) (User, error)
	CreateUser(ctx context.Context, r CreateUserRequest) (int64, error)
	UpdateLinkedIn(ctx context.Context, r UpdateLinkedInRequest) error
	ClearLinkedIn(ctx context.Context, email string) error
	DeleteUser(ctx context.Context, email string) error
}

type CreateUserRequest struct {
	Name                string
	Email               string
	PasswordHash        string
	LinkedInURL         string
	GitHubURL           string
	LinkedInID          string
	LinkedInAccessToken string
	ProfilePictureURL   string
}

type UpdateLinkedInRequest struct {
	Email               string
	LinkedInID          string
	LinkedInAccessToken string
	ProfilePictureURL   string
}
