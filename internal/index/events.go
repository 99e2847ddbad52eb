package index

import (
	"time"

	"github.com/jungyuya/new-blog-sub000/internal/blog"
)

// Change-feed event names, matching the CRUD layer's notification records.
const (
	EventInsert = "INSERT"
	EventModify = "MODIFY"
	EventRemove = "REMOVE"
)

// PostImage is the post snapshot carried inside a change record.
type PostImage struct {
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	Content    string     `json:"content"`
	Tags       []string   `json:"tags"`
	Status     string     `json:"status"`
	Visibility string     `json:"visibility"`
	CreatedAt  time.Time  `json:"createdAt"`
	DeletedAt  *time.Time `json:"deletedAt,omitempty"`
}

func (img *PostImage) toPost() *blog.Post {
	return &blog.Post{
		ID:         img.ID,
		Title:      img.Title,
		Content:    img.Content,
		Tags:       img.Tags,
		Status:     img.Status,
		Visibility: img.Visibility,
		CreatedAt:  img.CreatedAt,
		DeletedAt:  img.DeletedAt,
	}
}

// ChangeRecord is one create/modify/remove notification for a single post.
type ChangeRecord struct {
	EventName string     `json:"eventName"`
	NewImage  *PostImage `json:"newImage,omitempty"`
	OldImage  *PostImage `json:"oldImage,omitempty"`
}

// ChangeBatch is the message envelope published on the change-feed topic.
type ChangeBatch struct {
	Records       []ChangeRecord `json:"records"`
	CorrelationID string         `json:"correlation_id,omitempty"`
}
