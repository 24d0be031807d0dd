package model

import (
	"time"

	"github.com/Guyuepp/newsfeed/domain"
)

type UserLike struct {
	ArticleID string    `gorm:"column:article_id;type:char(26);primaryKey"`
	UserID    string    `gorm:"column:user_id;type:char(26);primaryKey;index"`
	CreatedAt time.Time `gorm:"type:datetime(6)"`
}

func (UserLike) TableName() string {
	return "user_likes"
}

func NewUserLikeFromDomain(ul domain.UserLike) UserLike {
	createdAt := ul.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	return UserLike{
		ArticleID: ul.ArticleID,
		UserID:    ul.UserID,
		CreatedAt: createdAt,
	}
}
