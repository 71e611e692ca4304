package models

import (
	"strings"
	"time"
)

// Limits applied when posts are created or edited.
const (
	MaxPostContentLength = 5000
	MaxPostTags          = 10
	MaxTagNameLength     = 64
)

// Post is a piece of user content. Deleted and blocked are independent flags;
// a post with either set is hidden from every feed and listing but remains
// addressable by ID.
type Post struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	UserID    uint   `gorm:"not null;index" json:"user_id"`
	User      *User  `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Content   string `gorm:"type:text;not null;default:''" json:"content"`
	PostImg   string `json:"post_img,omitempty"`
	IsDeleted bool   `gorm:"not null;default:false;index:idx_posts_visibility" json:"is_deleted"`
	IsBlocked bool   `gorm:"not null;default:false;index:idx_posts_visibility" json:"is_blocked"`
	Tags      []Tag  `gorm:"many2many:post_tags;constraint:OnDelete:CASCADE" json:"tags"`

	// Computed at query time, never persisted.
	LikesCount    int64 `gorm:"->;-:migration" json:"likes_count"`
	ReportsCount  int64 `gorm:"->;-:migration" json:"reports_count"`
	CommentsCount int64 `gorm:"->;-:migration" json:"comments_count"`
	Liked         bool  `gorm:"->;-:migration" json:"liked"`
	SharedTags    int64 `gorm:"->;-:migration" json:"shared_tags,omitempty"`

	Comments []Comment `gorm:"foreignKey:PostID" json:"comments,omitempty"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (Post) TableName() string {
	return "posts"
}

// Visible reports whether the post may appear in feeds and listings.
func (p *Post) Visible() bool {
	return !p.IsDeleted && !p.IsBlocked
}

// TagNames returns the names of the post's tags in stored order.
func (p *Post) TagNames() []string {
	names := make([]string, 0, len(p.Tags))
	for _, t := range p.Tags {
		names = append(names, t.Name)
	}
	return names
}

// Like marks a user's like on a post. The composite key makes the like set
// a true set.
type Like struct {
	PostID    uint      `gorm:"primaryKey;autoIncrement:false" json:"post_id"`
	UserID    uint      `gorm:"primaryKey;autoIncrement:false;index" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for GORM
func (Like) TableName() string {
	return "post_likes"
}

// Report marks a user's report of a post. Each user may report a post once.
type Report struct {
	PostID    uint      `gorm:"primaryKey;autoIncrement:false" json:"post_id"`
	UserID    uint      `gorm:"primaryKey;autoIncrement:false;index" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for GORM
func (Report) TableName() string {
	return "post_reports"
}

// Tag is a free-form label shared by posts and interests.
type Tag struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"type:varchar(64);uniqueIndex;not null" json:"name"`
}

// TableName specifies the table name for GORM
func (Tag) TableName() string {
	return "tags"
}

// NormalizeTagNames trims and lower-cases names, dropping blanks and
// duplicates while keeping first-seen order. Comma-separated entries are
// split.
func NormalizeTagNames(raw []string) []string {
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, entry := range raw {
		for _, part := range strings.Split(entry, ",") {
			name := strings.ToLower(strings.TrimSpace(part))
			if name == "" {
				continue
			}
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			out = append(out, name)
		}
	}
	return out
}
