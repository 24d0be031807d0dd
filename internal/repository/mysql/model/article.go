package model

import (
	"time"

	"github.com/Guyuepp/newsfeed/domain"
)

type Article struct {
	ID           string    `gorm:"primaryKey;type:char(26)"`
	Title        string    `gorm:"type:varchar(200);not null"`
	Content      string    `gorm:"type:longtext;not null"`
	Category     string    `gorm:"type:varchar(45);index"`
	ImageURL     string    `gorm:"column:image_url;type:varchar(512)"`
	UserID       string    `gorm:"column:user_id;type:char(26);not null"`
	Likes        int64     `gorm:"default:0"`
	CommentCount int64     `gorm:"column:comment_count;default:0"`
	PublishedAt  time.Time `gorm:"column:published_at;type:datetime(6);index"`
	UpdatedAt    time.Time `gorm:"type:datetime(6)"`
}

func (Article) TableName() string {
	return "article"
}

func (m *Article) ToDomain() domain.Article {
	return domain.Article{
		ID:       m.ID,
		Title:    m.Title,
		Content:  m.Content,
		Category: m.Category,
		ImageURL: m.ImageURL,
		Author: domain.User{
			ID: m.UserID,
		},
		PublishedAt:  m.PublishedAt,
		UpdatedAt:    m.UpdatedAt,
		Likes:        m.Likes,
		CommentCount: m.CommentCount,
	}
}

func NewArticleFromDomain(a *domain.Article) *Article {
	return &Article{
		ID:           a.ID,
		Title:        a.Title,
		Content:      a.Content,
		Category:     a.Category,
		ImageURL:     a.ImageURL,
		UserID:       a.Author.ID,
		Likes:        a.Likes,
		CommentCount: a.CommentCount,
		PublishedAt:  a.PublishedAt,
		UpdatedAt:    a.UpdatedAt,
	}
}
