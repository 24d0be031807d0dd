package request

import "github.com/Guyuepp/newsfeed/domain"

type Article struct {
	Title    string `json:"title" binding:"required,max=200"`
	Content  string `json:"content" binding:"required"`
	Category string `json:"category" binding:"max=45"`
	ImageURL string `json:"image_url" binding:"omitempty,url"`
}

// ToDomain: Request -> Domain
func (r *Article) ToDomain() domain.Article {
	return domain.Article{
		Title:    r.Title,
		Content:  r.Content,
		Category: r.Category,
		ImageURL: r.ImageURL,
	}
}
