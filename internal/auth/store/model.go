package store

import "time"

type Model struct {
	CreatedAt time.Time
	UpdatedAt time.Time
}

type User struct {
	Model
	ID                  int64
	Name                string
	Email               string
	PasswordHash        string
	LinkedInURL         string
	GitHubURL           string
	LinkedInID          string
	LinkedInAccessToken string
	ProfilePictureURL   string
	IsLinkedInConnected bool
}

// HasPassword reports whether the account can do password login; accounts
// created through LinkedIn have no digest at all.
func (u User) HasPassword() bool {
	return u.PasswordHash != ""
}
