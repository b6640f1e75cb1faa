package models

import (
	"time"

	"gorm.io/gorm"
)

// FriendshipStatus represents the status of a friendship request.
type FriendshipStatus string

const (
	// FriendshipStatusPending is the initial status of every request.
	FriendshipStatusPending FriendshipStatus = "PENDING"
	// FriendshipStatusAccepted is terminal.
	FriendshipStatusAccepted FriendshipStatus = "ACCEPTED"
	// FriendshipStatusRejected is terminal.
	FriendshipStatusRejected FriendshipStatus = "REJECTED"
	// FriendshipStatusNone is reported when two users have no friendship row.
	FriendshipStatusNone FriendshipStatus = "NONE"
)

// Friendship is a directed request between two users that can mature into a friendship.
// UserLowID/UserHighID hold the normalized pair so the unique index covers both directions.
type Friendship struct {
	ID          uint             `gorm:"primaryKey" json:"id"`
	RequesterID uint             `gorm:"not null;index:idx_friendships_requester_status" json:"requester_id"`
	ReceiverID  uint             `gorm:"not null;index:idx_friendships_receiver_status" json:"receiver_id"`
	UserLowID   uint             `gorm:"not null;uniqueIndex:idx_friendships_pair" json:"-"`
	UserHighID  uint             `gorm:"not null;uniqueIndex:idx_friendships_pair" json:"-"`
	Status      FriendshipStatus `gorm:"type:varchar(20);not null;default:'PENDING';index:idx_friendships_requester_status;index:idx_friendships_receiver_status" json:"status"`
	CreatedAt   time.Time        `gorm:"not null" json:"created_at"`
	UpdatedAt   *time.Time       `gorm:"autoUpdateTime:false" json:"updated_at"`

	// Relationships
	Requester User `gorm:"foreignKey:RequesterID;constraint:OnDelete:CASCADE" json:"requester"`
	Receiver  User `gorm:"foreignKey:ReceiverID;constraint:OnDelete:CASCADE" json:"receiver"`
}

// TableName specifies the table name for GORM
func (Friendship) TableName() string {
	return "friendships"
}

// BeforeCreate fills the normalized pair; requester/receiver direction is left untouched.
func (f *Friendship) BeforeCreate(_ *gorm.DB) error {
	f.UserLowID, f.UserHighID = NormalizePair(f.RequesterID, f.ReceiverID)
	return nil
}

// NormalizePair orders two user IDs ascending.
func NormalizePair(a, b uint) (uint, uint) {
	if a > b {
		return b, a
	}
	return a, b
}

// OtherParty returns the participant that is not userID.
func (f *Friendship) OtherParty(userID uint) User {
	if f.RequesterID == userID {
		return f.Receiver
	}
	return f.Requester
}

// FriendshipView is the API representation of a friendship.
type FriendshipView struct {
	ID        uint             `json:"id"`
	Requester UserView         `json:"requester"`
	Receiver  UserView         `json:"receiver"`
	Status    FriendshipStatus `json:"status"`
	CreatedAt time.Time        `json:"createdAt"`
	UpdatedAt *time.Time       `json:"updatedAt,omitempty"`
}

// NewFriendshipView builds the view of f. Requester and Receiver must be loaded.
func NewFriendshipView(f *Friendship) FriendshipView {
	return FriendshipView{
		ID:        f.ID,
		Requester: NewUserView(&f.Requester),
		Receiver:  NewUserView(&f.Receiver),
		Status:    f.Status,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
}

// NewFriendshipViews builds views for friendships, preserving order.
func NewFriendshipViews(friendships []Friendship) []FriendshipView {
	views := make([]FriendshipView, 0, len(friendships))
	for i := range friendships {
		views = append(views, NewFriendshipView(&friendships[i]))
	}
	return views
}

// StatusView describes the relationship between two users.
// The ID fields are nil when Status is NONE.
type StatusView struct {
	Status       FriendshipStatus `json:"status"`
	FriendshipID *uint            `json:"friendshipId"`
	RequesterID  *uint            `json:"requesterId"`
	ReceiverID   *uint            `json:"receiverId"`
}

// NoneStatus is the status of two users without a friendship row.
func NoneStatus() StatusView {
	return StatusView{Status: FriendshipStatusNone}
}

// NewStatusView reports the stored direction of f.
func NewStatusView(f *Friendship) StatusView {
	id, requester, receiver := f.ID, f.RequesterID, f.ReceiverID
	return StatusView{
		Status:       f.Status,
		FriendshipID: &id,
		RequesterID:  &requester,
		ReceiverID:   &receiver,
	}
}
