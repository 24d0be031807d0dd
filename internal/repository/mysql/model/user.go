package model

import (
	"time"

	"github.com/Guyuepp/newsfeed/domain"
)

type User struct {
	ID          string     `gorm:"primaryKey;type:char(26)"`
	Email       string     `gorm:"type:varchar(191);uniqueIndex;not null"`
	DisplayName string     `gorm:"column:display_name;type:varchar(100)"`
	Password    string     `gorm:"type:varchar(100)"`
	Role        string     `gorm:"type:varchar(16);default:user"`
	PhotoURL    string     `gorm:"column:photo_url;type:varchar(512)"`
	Provider    string     `gorm:"type:varchar(16);default:password"`
	CreatedAt   time.Time  `gorm:"type:datetime(6)"`
	UpdatedAt   time.Time  `gorm:"type:datetime(6)"`
	LastLogin   *time.Time `gorm:"column:last_login;type:datetime(6)"`
}

func (User) TableName() string {
	return "user"
}

func (m *User) ToDomain() domain.User {
	u := domain.User{
		ID:          m.ID,
		Email:       m.Email,
		DisplayName: m.DisplayName,
		Password:    m.Password,
		Role:        m.Role,
		PhotoURL:    m.PhotoURL,
		Provider:    m.Provider,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
	if m.LastLogin != nil {
		u.LastLogin = *m.LastLogin
	}
	return u
}

func NewUserFromDomain(u *domain.User) *User {
	m := &User{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		Password:    u.Password,
		Role:        u.Role,
		PhotoURL:    u.PhotoURL,
		Provider:    u.Provider,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
	if !u.LastLogin.IsZero() {
		lastLogin := u.LastLogin
		m.LastLogin = &lastLogin
	}
	return m
}

// UserBookmark is one row of a user's bookmark set
type UserBookmark struct {
	UserID    string    `gorm:"column:user_id;type:char(26);primaryKey"`
	ArticleID string    `gorm:"column:article_id;type:char(26);primaryKey"`
	CreatedAt time.Time `gorm:"type:datetime(6)"`
}

func (UserBookmark) TableName() string {
	return "user_bookmarks"
}
