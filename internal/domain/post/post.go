package post

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrNotFound   = errors.New("post not found")
	ErrTitleTaken = errors.New("post title already exists")
)

const snippetLength = 150

type Post struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Author    string    `json:"author"`
	Snippet   string    `json:"snippet,omitempty"`
	ImageURL  string    `json:"imageUrl,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type CreatePostRequest struct {
	Title    string `json:"title" binding:"required,min=3,max=200"`
	Content  string `json:"content" binding:"required"`
	Snippet  string `json:"snippet" binding:"omitempty,max=1000"`
	ImageURL string `json:"imageUrl" binding:"omitempty,url"`
}

type UpdatePostRequest struct {
	Title    string `json:"title" binding:"required,min=3,max=200"`
	Content  string `json:"content" binding:"required"`
	Snippet  string `json:"snippet" binding:"omitempty,max=1000"`
	ImageURL string `json:"imageUrl" binding:"omitempty,url"`
}

// Snippet defaults to the opening of the content when the author did not
// provide one. The cut counts runes, not bytes, so multibyte content never
// ends up with a mangled trailing character.
func DeriveSnippet(snippet, content string) string {
	if strings.TrimSpace(snippet) != "" {
		return snippet
	}

	runes := []rune(content)
	if len(runes) <= snippetLength {
		return content
	}
	return string(runes[:snippetLength]) + "..."
}
