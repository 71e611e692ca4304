package models

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// NotificationType discriminates the notification variant.
type NotificationType string

const (
	NotificationLike    NotificationType = "like"
	NotificationPost    NotificationType = "post"
	NotificationFollow  NotificationType = "follow"
	NotificationComment NotificationType = "comment"
	NotificationBlocked NotificationType = "blocked"
)

// Notification is a persisted event addressed to one user. Which references
// are set depends on Type; build values through the New*Notification
// constructors. Only IsSeen changes after creation.
type Notification struct {
	ID         uint             `gorm:"primaryKey" json:"id"`
	Type       NotificationType `gorm:"column:notification_type;type:varchar(16);not null" json:"notification_type"`
	FromUserID *uint            `gorm:"index" json:"from_user_id,omitempty"`
	FromUser   *User            `gorm:"foreignKey:FromUserID" json:"from_user,omitempty"`
	ToUserID   uint             `gorm:"not null;index:idx_notifications_inbox" json:"to_user_id"`
	PostID     *uint            `gorm:"index" json:"post_id,omitempty"`
	CommentID  *uint            `json:"comment_id,omitempty"`
	IsSeen     bool             `gorm:"not null;default:false;index:idx_notifications_inbox" json:"is_seen"`
	CreatedAt  time.Time        `json:"created_at"`
}

// TableName specifies the table name for GORM
func (Notification) TableName() string {
	return "notifications"
}

// NewLikeNotification tells a post author that from liked the post.
func NewLikeNotification(from, to, postID uint) *Notification {
	return &Notification{Type: NotificationLike, FromUserID: &from, ToUserID: to, PostID: &postID}
}

// NewPostNotification tells a follower that from published a post.
func NewPostNotification(from, to, postID uint) *Notification {
	return &Notification{Type: NotificationPost, FromUserID: &from, ToUserID: to, PostID: &postID}
}

// NewFollowNotification tells to that from started following them.
func NewFollowNotification(from, to uint) *Notification {
	return &Notification{Type: NotificationFollow, FromUserID: &from, ToUserID: to}
}

// NewCommentNotification tells a post author about a new comment.
func NewCommentNotification(from, to, postID, commentID uint) *Notification {
	return &Notification{Type: NotificationComment, FromUserID: &from, ToUserID: to, PostID: &postID, CommentID: &commentID}
}

// NewBlockedNotification tells an author a moderator blocked their post.
// from is nil for system-originated blocks.
func NewBlockedNotification(from *uint, to, postID uint) *Notification {
	return &Notification{Type: NotificationBlocked, FromUserID: from, ToUserID: to, PostID: &postID}
}

// Validate checks that the references present match the notification type.
func (n *Notification) Validate() error {
	if n.ToUserID == 0 {
		return NewFieldValidationError("to_user_id", "notification recipient is required")
	}
	switch n.Type {
	case NotificationLike, NotificationPost, NotificationBlocked:
		if n.PostID == nil {
			return NewValidationError(fmt.Sprintf("%s notification requires a post", n.Type))
		}
		if n.CommentID != nil {
			return NewValidationError(fmt.Sprintf("%s notification cannot reference a comment", n.Type))
		}
	case NotificationComment:
		if n.PostID == nil || n.CommentID == nil {
			return NewValidationError("comment notification requires a post and a comment")
		}
	case NotificationFollow:
		if n.PostID != nil || n.CommentID != nil {
			return NewValidationError("follow notification cannot reference content")
		}
	default:
		return NewValidationError(fmt.Sprintf("unknown notification type %q", n.Type))
	}
	if n.Type != NotificationBlocked && n.FromUserID == nil {
		return NewValidationError(fmt.Sprintf("%s notification requires a sender", n.Type))
	}
	return nil
}

// BeforeCreate rejects malformed variants before they reach the database.
func (n *Notification) BeforeCreate(_ *gorm.DB) error {
	return n.Validate()
}
