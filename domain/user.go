package domain

import (
	"context"
	"time"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"

	ProviderPassword = "password"
	ProviderGoogle   = "google"
	ProviderApple    = "apple"

	// DefaultDisplayName is used when a provider account carries no name
	DefaultDisplayName = "User"
)

// User represents a user entity in the system.
type User struct {
	ID          string    // Unique identifier, matches the auth identity
	Email       string    // Login e-mail (unique)
	DisplayName string    // Display name
	Password    string    // Bcrypt hashed password, empty for provider accounts
	Role        string    // RoleUser or RoleAdmin
	PhotoURL    string    // Avatar
	Provider    string    // ProviderPassword, ProviderGoogle or ProviderApple
	Bookmarks   []string  // Bookmarked article ids, order irrelevant
	CreatedAt   time.Time // Account creation timestamp
	UpdatedAt   time.Time // Last profile update timestamp
	LastLogin   time.Time // Last successful sign in
}

// IsAdmin reports whether the user holds the admin role
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Actor is the authenticated caller of a usecase
type Actor struct {
	ID   string
	Role string
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// ProviderIdentity is what a social login provider asserts about a user
type ProviderIdentity struct {
	Provider    string
	Email       string
	DisplayName string
	PhotoURL    string
}

// AuthResult is returned by every successful sign in
type AuthResult struct {
	Token string
	User  User
}

// UserRepository defines the contract for user data persistence.
type UserRepository interface {
	// GetByID retrieves a user by their ID.
	// Returns ErrNotFound if the user doesn't exist.
	GetByID(ctx context.Context, id string) (User, error)

	// Insert creates a new user account.
	// Backfills the ID in the provided User object upon success.
	Insert(ctx context.Context, u *User) error

	// Update modifies an existing user's information.
	Update(ctx context.Context, u *User) error

	// GetByEmail retrieves a user by their e-mail.
	// Used during login to verify credentials.
	GetByEmail(ctx context.Context, email string) (User, error)

	GetByIDs(ctx context.Context, userIDs []string) ([]User, error)

	// AddBookmark inserts the article into the user's bookmark set.
	// Returns false when it was already there.
	AddBookmark(ctx context.Context, userID, articleID string) (bool, error)

	// RemoveBookmark removes the article from the user's bookmark set.
	// Returns false when it was not there.
	RemoveBookmark(ctx context.Context, userID, articleID string) (bool, error)

	FetchBookmarks(ctx context.Context, userID string) ([]string, error)
}

// ProviderVerifier checks a social login token and returns the asserted identity.
type ProviderVerifier interface {
	Verify(ctx context.Context, provider, idToken string) (ProviderIdentity, error)
}

// UserUsecase defines the business logic contract for user operations.
type UserUsecase interface {
	// Register creates a new account with its profile and signs it in.
	// Returns ErrConflict if the e-mail already exists.
	Register(ctx context.Context, email, password, displayName string) (AuthResult, error)

	// Login verifies user credentials and returns a JWT token.
	// Returns ErrUnauthenticated if the credentials do not match.
	Login(ctx context.Context, email, password string) (AuthResult, error)

	// LoginWithProvider creates or refreshes the profile asserted by a social provider.
	LoginWithProvider(ctx context.Context, provider, idToken string) (AuthResult, error)

	// Profile returns the user with its bookmark set.
	Profile(ctx context.Context, id string) (User, error)

	AddBookmark(ctx context.Context, userID, articleID string) (MembershipResult, error)
	RemoveBookmark(ctx context.Context, userID, articleID string) (MembershipResult, error)
}
