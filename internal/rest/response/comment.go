package response

import (
	"time"

	"github.com/Guyuepp/newsfeed/domain"
)

// Comment hides the author of anonymous comments
type Comment struct {
	ID          string    `json:"id"`
	ArticleID   string    `json:"article_id"`
	AuthorID    *string   `json:"author_id"`
	AuthorName  *string   `json:"author_name"`
	IsAnonymous bool      `json:"is_anonymous"`
	Text        string    `json:"text"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewCommentFromDomain: Domain -> Response
func NewCommentFromDomain(c *domain.Comment) Comment {
	res := Comment{
		ID:          c.ID,
		ArticleID:   c.ArticleID,
		IsAnonymous: c.IsAnonymous,
		Text:        c.Text,
		CreatedAt:   c.CreatedAt,
	}
	if !c.IsAnonymous {
		uid, name := c.UserID, c.UserName
		res.AuthorID = &uid
		res.AuthorName = &name
	}
	return res
}

func NewCommentsFromDomain(list []domain.Comment) []Comment {
	res := make([]Comment, len(list))
	for i := range list {
		res[i] = NewCommentFromDomain(&list[i])
	}
	return res
}
