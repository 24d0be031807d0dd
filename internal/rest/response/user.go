package response

import (
	"time"

	"github.com/Guyuepp/newsfeed/domain"
)

// User is the public view of an author
type User struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	PhotoURL    string `json:"photo_url,omitempty"`
}

func NewUserFromDomain(u domain.User) *User {
	if u.ID == "" {
		return nil
	}
	return &User{ID: u.ID, DisplayName: u.DisplayName, PhotoURL: u.PhotoURL}
}

// Profile is what the signed-in user sees about itself
type Profile struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	PhotoURL    string    `json:"photo_url"`
	Role        string    `json:"role"`
	Provider    string    `json:"provider"`
	Bookmarks   []string  `json:"bookmarks"`
	CreatedAt   time.Time `json:"created_at"`
	LastLogin   time.Time `json:"last_login"`
}

func NewProfileFromDomain(u domain.User) Profile {
	bookmarks := u.Bookmarks
	if bookmarks == nil {
		bookmarks = []string{}
	}
	return Profile{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		PhotoURL:    u.PhotoURL,
		Role:        u.Role,
		Provider:    u.Provider,
		Bookmarks:   bookmarks,
		CreatedAt:   u.CreatedAt,
		LastLogin:   u.LastLogin,
	}
}

type Auth struct {
	Token string  `json:"token"`
	User  Profile `json:"user"`
}

func NewAuthFromDomain(r domain.AuthResult) Auth {
	return Auth{Token: r.Token, User: NewProfileFromDomain(r.User)}
}

// Bookmarks is the outcome of an idempotent bookmark add or remove
type Bookmarks struct {
	IsChanged bool     `json:"is_changed"`
	Bookmarks []string `json:"bookmarks"`
}

func NewBookmarksFromDomain(r domain.MembershipResult) Bookmarks {
	members := r.Members
	if members == nil {
		members = []string{}
	}
	return Bookmarks{IsChanged: r.Changed, Bookmarks: members}
}
