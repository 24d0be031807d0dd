package response

import (
	"time"

	"github.com/Guyuepp/newsfeed/domain"
)

type Article struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Content      string    `json:"content"`
	Category     string    `json:"category"`
	ImageURL     string    `json:"image_url"`
	Author       *User     `json:"author,omitempty"`
	PublishedAt  time.Time `json:"published_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Likes        int64     `json:"likes"`
	CommentCount int64     `json:"comment_count"`
	Liked        bool      `json:"liked"`
}

// NewArticleFromDomain: Domain -> Response
func NewArticleFromDomain(a *domain.Article) Article {
	return Article{
		ID:           a.ID,
		Title:        a.Title,
		Content:      a.Content,
		Category:     a.Category,
		ImageURL:     a.ImageURL,
		Author:       NewUserFromDomain(a.Author),
		PublishedAt:  a.PublishedAt,
		UpdatedAt:    a.UpdatedAt,
		Likes:        a.Likes,
		CommentCount: a.CommentCount,
		Liked:        a.Liked,
	}
}

func NewArticlesFromDomain(list []domain.Article) []Article {
	res := make([]Article, len(list))
	for i := range list {
		res[i] = NewArticleFromDomain(&list[i])
	}
	return res
}

// Like is the outcome of an idempotent like or unlike
type Like struct {
	IsChanged bool  `json:"is_changed"`
	Likes     int64 `json:"likes"`
	Liked     bool  `json:"liked"`
}

func NewLikeFromDomain(r domain.MembershipResult) Like {
	return Like{IsChanged: r.Changed, Likes: r.Count, Liked: r.Member}
}
