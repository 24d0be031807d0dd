package model

import (
	"time"

	"github.com/Guyuepp/newsfeed/domain"
)

type Comment struct {
	ID          string    `gorm:"primaryKey;type:char(26)"`
	ArticleID   string    `gorm:"column:article_id;type:char(26);not null;index"`
	UserID      string    `gorm:"column:user_id;type:char(26);not null;index"`
	UserName    string    `gorm:"column:user_name;type:varchar(100)"`
	IsAnonymous bool      `gorm:"column:is_anonymous;default:false"`
	Text        string    `gorm:"type:text;not null"`
	CreatedAt   time.Time `gorm:"type:datetime(6);index"`
}

func (Comment) TableName() string {
	return "comment"
}

func NewCommentFromDomain(c *domain.Comment) *Comment {
	return &Comment{
		ID:          c.ID,
		ArticleID:   c.ArticleID,
		UserID:      c.UserID,
		UserName:    c.UserName,
		IsAnonymous: c.IsAnonymous,
		Text:        c.Text,
		CreatedAt:   c.CreatedAt,
	}
}

func (m *Comment) ToDomain() domain.Comment {
	return domain.Comment{
		ID:          m.ID,
		ArticleID:   m.ArticleID,
		UserID:      m.UserID,
		UserName:    m.UserName,
		IsAnonymous: m.IsAnonymous,
		Text:        m.Text,
		CreatedAt:   m.CreatedAt,
	}
}
