package client

import "time"

// Article is the client record of an article card
type Article struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Content      string    `json:"content"`
	Category     string    `json:"category"`
	ImageURL     string    `json:"image_url"`
	Author       *Author   `json:"author,omitempty"`
	PublishedAt  time.Time `json:"published_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Likes        int64     `json:"likes"`
	CommentCount int64     `json:"comment_count"`
	Liked        bool      `json:"liked"`
}

type Author struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	PhotoURL    string `json:"photo_url,omitempty"`
}

// ArticleInput is what an admin submits
type ArticleInput struct {
	Title    string `json:"title"`
	Content  string `json:"content"`
	Category string `json:"category,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
}

// Comment author fields are empty for anonymous comments
type Comment struct {
	ID          string    `json:"id"`
	ArticleID   string    `json:"article_id"`
	AuthorID    string    `json:"author_id"`
	AuthorName  string    `json:"author_name"`
	IsAnonymous bool      `json:"is_anonymous"`
	Text        string    `json:"text"`
	CreatedAt   time.Time `json:"created_at"`

	// Pending is set on the local placeholder until the server answers
	Pending bool `json:"-"`
}

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

type AuthResult struct {
	Token string  `json:"token"`
	User  Profile `json:"user"`
}

type LikeResult struct {
	IsChanged bool  `json:"is_changed"`
	Likes     int64 `json:"likes"`
	Liked     bool  `json:"liked"`
}

type BookmarkResult struct {
	IsChanged bool     `json:"is_changed"`
	Bookmarks []string `json:"bookmarks"`
}
