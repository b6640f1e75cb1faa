package models

import (
	"time"
)

// Post is a short text published by a user.
type Post struct {
	ID     uint   `gorm:"primaryKey" json:"id"`
	Text   string `gorm:"column:content;size:200;not null" json:"text"`
	UserID uint   `gorm:"not null;index" json:"user_id"`
	User   User   `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user"`
	// LikesCount is not persisted; computed at query time
	LikesCount int `gorm:"->;-:migration" json:"likes_count"`
	// Liked indicates whether the current requesting user liked this post (computed)
	Liked     bool      `gorm:"->;-:migration" json:"liked"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (Post) TableName() string {
	return "posts"
}

// PostLike records that a user liked a post.
// The combination of UserID and PostID must be unique.
type PostLike struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_post_likes_user_post" json:"user_id"`
	PostID    uint      `gorm:"not null;uniqueIndex:idx_post_likes_user_post;index" json:"post_id"`
	CreatedAt time.Time `json:"created_at"`

	User User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Post Post `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name for GORM
func (PostLike) TableName() string {
	return "post_likes"
}

// PostView is the API representation of a post.
type PostView struct {
	ID        uint      `json:"id"`
	Username  string    `json:"username"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
	UserID    uint      `json:"userId"`
	LikeCount int       `json:"likeCount"`
	LikedByMe bool      `json:"likedByMe"`
}

// NewPostView builds the view of p. User must be loaded.
func NewPostView(p *Post) PostView {
	return PostView{
		ID:        p.ID,
		Username:  p.User.Username,
		Text:      p.Text,
		CreatedAt: p.CreatedAt,
		UserID:    p.UserID,
		LikeCount: p.LikesCount,
		LikedByMe: p.Liked,
	}
}

// NewPostViews builds views for posts, preserving order.
func NewPostViews(posts []Post) []PostView {
	views := make([]PostView, 0, len(posts))
	for i := range posts {
		views = append(views, NewPostView(&posts[i]))
	}
	return views
}
