package repository

import (
	"context"
	"time"

	"nodeback/internal/models"
	"nodeback/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AuthorOrder selects the ordering of an author's post list.
type AuthorOrder int

const (
	// ByCreated orders newest-created first.
	ByCreated AuthorOrder = iota
	// ByUpdated orders most-recently-edited first.
	ByUpdated
)

// PostRepository defines the interface for post data operations
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id, viewerID uint) (*models.Post, error)
	GetForUpdate(ctx context.Context, id uint) (*models.Post, error)
	UpdateContent(ctx context.Context, id uint, content string) error
	ReplaceTags(ctx context.Context, post *models.Post, tags []models.Tag) error
	SetDeleted(ctx context.Context, id uint, deleted bool) error
	SetBlocked(ctx context.Context, id uint, blocked bool) error

	Feed(ctx context.Context, viewerID uint, page Page) ([]*models.Post, error)
	ListByAuthor(ctx context.Context, authorID, viewerID uint, order AuthorOrder, page Page) ([]*models.Post, error)
	SearchByTags(ctx context.Context, names []string, viewerID uint, page Page) ([]*models.Post, error)
	ListBlocked(ctx context.Context, viewerID uint, page Page) ([]*models.Post, error)
	ListReported(ctx context.Context, viewerID uint, page Page) ([]*models.Post, error)

	// ToggleLike flips the viewer's membership in the like set. liked is the
	// membership after the call; changed is false if a concurrent call had
	// already produced that state.
	ToggleLike(ctx context.Context, postID, userID uint) (liked bool, changed bool, err error)
	// AddReport returns false if the user had already reported the post.
	AddReport(ctx context.Context, postID, userID uint) (bool, error)
}

type postRepository struct {
	db   *gorm.DB
	read *gorm.DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db, read: readDB(db)}
}

const postDetailColumns = "posts.*, " +
	"(SELECT COUNT(*) FROM post_likes WHERE post_likes.post_id = posts.id) AS likes_count, " +
	"(SELECT COUNT(*) FROM post_reports WHERE post_reports.post_id = posts.id) AS reports_count, " +
	"(SELECT COUNT(*) FROM comments WHERE comments.post_id = posts.id) AS comments_count, " +
	"EXISTS(SELECT 1 FROM post_likes WHERE post_likes.post_id = posts.id AND post_likes.user_id = ?) AS liked"

// sharedTagsColumn counts the post's tags that are in the viewer's interest set.
// Users without an interest row score zero on every post.
const sharedTagsColumn = "(SELECT COUNT(*) FROM post_tags " +
	"JOIN interest_tags ON interest_tags.tag_id = post_tags.tag_id " +
	"JOIN interests ON interests.id = interest_tags.interest_id " +
	"WHERE post_tags.post_id = posts.id AND interests.user_id = ?) AS shared_tags"

func postsQuery(db *gorm.DB) *gorm.DB {
	return db.Model(&models.Post{}).
		Preload("User").
		Preload("Tags", func(db *gorm.DB) *gorm.DB { return db.Order("tags.name ASC") })
}

// withPostDetails adds counters, the viewer's liked flag and the author/tags preloads.
func withPostDetails(db *gorm.DB, viewerID uint) *gorm.DB {
	return postsQuery(db).Select(postDetailColumns, viewerID)
}

func visible(db *gorm.DB) *gorm.DB {
	return db.Where("posts.is_deleted = ? AND posts.is_blocked = ?", false, false)
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	// Tags are resolved beforehand; only the join rows are written here.
	if err := r.db.WithContext(ctx).Omit("User", "Tags.*").Create(post).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// GetByID returns the post regardless of visibility, with its comments.
func (r *postRepository) GetByID(ctx context.Context, id, viewerID uint) (*models.Post, error) {
	var post models.Post
	err := withPostDetails(r.read.WithContext(ctx), viewerID).
		Preload("Comments", func(db *gorm.DB) *gorm.DB {
			return db.Order("comments.created_at DESC, comments.id DESC")
		}).
		Preload("Comments.User").
		Where("posts.id = ?", id).
		Take(&post).Error
	if err != nil {
		return nil, notFoundOr(err, "Post", id)
	}
	return &post, nil
}

// GetForUpdate reads the bare row, locking it on PostgreSQL.
func (r *postRepository) GetForUpdate(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	q := r.db.WithContext(ctx)
	if q.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	if err := q.First(&post, id).Error; err != nil {
		return nil, notFoundOr(err, "Post", id)
	}
	return &post, nil
}

func (r *postRepository) UpdateContent(ctx context.Context, id uint, content string) error {
	res := r.db.WithContext(ctx).Model(&models.Post{}).Where("id = ?", id).Update("content", content)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Post", id)
	}
	return nil
}

func (r *postRepository) ReplaceTags(ctx context.Context, post *models.Post, tags []models.Tag) error {
	if err := r.db.WithContext(ctx).Model(post).Omit("Tags.*").Association("Tags").Replace(tags); err != nil {
		return models.NewInternalError(err)
	}
	// Association writes do not bump updated_at.
	return internal(r.db.WithContext(ctx).Model(&models.Post{}).Where("id = ?", post.ID).Update("updated_at", time.Now()).Error)
}

func (r *postRepository) setFlag(ctx context.Context, id uint, column string, value bool) error {
	res := r.db.WithContext(ctx).Model(&models.Post{}).Where("id = ?", id).Update(column, value)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Post", id)
	}
	return nil
}

func (r *postRepository) SetDeleted(ctx context.Context, id uint, deleted bool) error {
	return r.setFlag(ctx, id, "is_deleted", deleted)
}

func (r *postRepository) SetBlocked(ctx context.Context, id uint, blocked bool) error {
	return r.setFlag(ctx, id, "is_blocked", blocked)
}

// Feed ranks visible posts by tag overlap with the viewer's interests, then recency.
func (r *postRepository) Feed(ctx context.Context, viewerID uint, page Page) ([]*models.Post, error) {
	defer observability.TrackQuery("feed")()

	var posts []*models.Post
	q := visible(postsQuery(r.read.WithContext(ctx))).
		Select(postDetailColumns+", "+sharedTagsColumn, viewerID, viewerID).
		Order("shared_tags DESC").
		Order("posts.created_at DESC").
		Order("posts.id DESC")
	if err := page.apply(q).Find(&posts).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

// ListByAuthor lists the author's non-deleted posts. Blocked posts are
// included only when the author is the viewer.
func (r *postRepository) ListByAuthor(ctx context.Context, authorID, viewerID uint, order AuthorOrder, page Page) ([]*models.Post, error) {
	var posts []*models.Post
	q := withPostDetails(r.read.WithContext(ctx), viewerID).
		Where("posts.user_id = ? AND posts.is_deleted = ?", authorID, false)
	if viewerID != authorID {
		q = visible(q)
	}
	if order == ByUpdated {
		q = q.Order("posts.updated_at DESC")
	} else {
		q = q.Order("posts.created_at DESC")
	}
	if err := page.apply(q.Order("posts.id DESC")).Find(&posts).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

// SearchByTags returns each visible post carrying any of names once, newest first.
func (r *postRepository) SearchByTags(ctx context.Context, names []string, viewerID uint, page Page) ([]*models.Post, error) {
	var posts []*models.Post
	if len(names) == 0 {
		return posts, nil
	}
	matching := r.read.WithContext(ctx).Table("post_tags").
		Select("post_tags.post_id").
		Joins("JOIN tags ON tags.id = post_tags.tag_id").
		Where("tags.name IN ?", names)

	q := visible(withPostDetails(r.read.WithContext(ctx), viewerID)).
		Where("posts.id IN (?)", matching).
		Order("posts.created_at DESC").
		Order("posts.id DESC")
	if err := page.apply(q).Find(&posts).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

func (r *postRepository) ListBlocked(ctx context.Context, viewerID uint, page Page) ([]*models.Post, error) {
	var posts []*models.Post
	q := withPostDetails(r.read.WithContext(ctx), viewerID).
		Where("posts.is_blocked = ?", true).
		Order("posts.created_at DESC").
		Order("posts.id DESC")
	if err := page.apply(q).Find(&posts).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

// ListReported lists unblocked posts with at least one report, most reported first.
func (r *postRepository) ListReported(ctx context.Context, viewerID uint, page Page) ([]*models.Post, error) {
	var posts []*models.Post
	q := withPostDetails(r.read.WithContext(ctx), viewerID).
		Where("posts.is_blocked = ?", false).
		Where("EXISTS (SELECT 1 FROM post_reports WHERE post_reports.post_id = posts.id)").
		Order("reports_count DESC").
		Order("posts.created_at DESC")
	if err := page.apply(q).Find(&posts).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

func (r *postRepository) ToggleLike(ctx context.Context, postID, userID uint) (bool, bool, error) {
	db := r.db.WithContext(ctx)

	del := db.Where("post_id = ? AND user_id = ?", postID, userID).Delete(&models.Like{})
	if del.Error != nil {
		return false, false, models.NewInternalError(del.Error)
	}
	if del.RowsAffected > 0 {
		return false, true, nil
	}

	ins := db.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.Like{PostID: postID, UserID: userID})
	if ins.Error != nil {
		return false, false, models.NewInternalError(ins.Error)
	}
	return true, ins.RowsAffected > 0, nil
}

func (r *postRepository) AddReport(ctx context.Context, postID, userID uint) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.Report{PostID: postID, UserID: userID})
	if res.Error != nil {
		return false, models.NewInternalError(res.Error)
	}
	return res.RowsAffected > 0, nil
}
