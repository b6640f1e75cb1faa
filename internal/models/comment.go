package models

import (
	"time"
)

// Comment is a comment on a post. ParentCommentID is set for replies.
type Comment struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	Content         string    `gorm:"size:1000;not null" json:"content"`
	UserID          uint      `gorm:"not null;index" json:"user_id"`
	PostID          uint      `gorm:"not null;index:idx_comments_post_parent" json:"post_id"`
	ParentCommentID *uint     `gorm:"index:idx_comments_post_parent" json:"parent_comment_id"`
	User            User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user"`
	Post            Post      `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"-"`
	Parent          *Comment  `gorm:"foreignKey:ParentCommentID;constraint:OnDelete:CASCADE" json:"-"`
	LikesCount      int       `gorm:"->;-:migration" json:"likes_count"`
	Liked           bool      `gorm:"->;-:migration" json:"liked"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (Comment) TableName() string {
	return "comments"
}

// CommentLike records that a user liked a comment.
type CommentLike struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_comment_likes_user_comment" json:"user_id"`
	CommentID uint      `gorm:"not null;uniqueIndex:idx_comment_likes_user_comment;index" json:"comment_id"`
	CreatedAt time.Time `json:"created_at"`

	User    User    `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Comment Comment `gorm:"foreignKey:CommentID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name for GORM
func (CommentLike) TableName() string {
	return "comment_likes"
}

// CommentView is the API representation of a comment.
type CommentView struct {
	ID              uint      `json:"id"`
	Content         string    `json:"content"`
	CreatedAt       time.Time `json:"createdAt"`
	UserID          uint      `json:"userId"`
	Username        string    `json:"username"`
	DisplayName     string    `json:"displayName"`
	LikeCount       int       `json:"likeCount"`
	LikedByMe       bool      `json:"likedByMe"`
	ParentCommentID *uint     `json:"parentCommentId"`
}

// NewCommentView builds the view of c. User must be loaded.
func NewCommentView(c *Comment) CommentView {
	return CommentView{
		ID:              c.ID,
		Content:         c.Content,
		CreatedAt:       c.CreatedAt,
		UserID:          c.UserID,
		Username:        c.User.Username,
		DisplayName:     c.User.DisplayName,
		LikeCount:       c.LikesCount,
		LikedByMe:       c.Liked,
		ParentCommentID: c.ParentCommentID,
	}
}

// NewCommentViews builds views for comments, preserving order.
func NewCommentViews(comments []Comment) []CommentView {
	views := make([]CommentView, 0, len(comments))
	for i := range comments {
		views = append(views, NewCommentView(&comments[i]))
	}
	return views
}
