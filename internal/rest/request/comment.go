package request

import "github.com/Guyuepp/newsfeed/domain"

type Comment struct {
	Text        string `json:"text" binding:"required,max=2000"`
	IsAnonymous bool   `json:"is_anonymous"`
}

// ToDomain: Request -> Domain
func (r *Comment) ToDomain(articleID, userID string) domain.Comment {
	return domain.Comment{
		ArticleID:   articleID,
		UserID:      userID,
		Text:        r.Text,
		IsAnonymous: r.IsAnonymous,
	}
}
