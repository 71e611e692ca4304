// Package seed fills a database with demo users, posts and social activity
// for development and load testing.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"nodeback/internal/database"
	"nodeback/internal/middleware"
	"nodeback/internal/models"

	"gorm.io/gorm"
)

// Options configures a seeding run.
type Options struct {
	NumUsers     int
	PostsPerUser int
	// FollowsPerUser is how many other accounts each user follows.
	FollowsPerUser int
	// LikeRate and CommentRate are the chance in [0,1] that a given user
	// likes or comments on a given post.
	LikeRate    float64
	CommentRate float64
	MaxDays     int
	BatchSize   int
	RandSeed    int64
	// FastHash uses the minimum bcrypt cost for the shared password.
	FastHash    bool
	ShouldClean bool
}

// DefaultOptions is a small but connected data set.
func DefaultOptions() Options {
	return Options{
		NumUsers:       25,
		PostsPerUser:   4,
		FollowsPerUser: 5,
		LikeRate:       0.15,
		CommentRate:    0.05,
		MaxDays:        60,
	}
}

// Summary counts what a run inserted.
type Summary struct {
	Tags     int
	Users    int
	Posts    int
	Follows  int
	Likes    int
	Comments int
}

// Seeder runs the seeding steps in dependency order.
type Seeder struct {
	db      *gorm.DB
	opts    Options
	factory *Factory
}

func NewSeeder(db *gorm.DB, opts Options) (*Seeder, error) {
	f, err := NewFactory(db, opts)
	if err != nil {
		return nil, err
	}
	return &Seeder{db: db, opts: opts, factory: f}, nil
}

// Run seeds tags, users with interests, the follow mesh, posts, likes and
// comments. Notifications are not generated for seeded activity.
func (s *Seeder) Run(ctx context.Context) (*Summary, error) {
	start := time.Now()
	log := middleware.Logger.With(slog.String("component", "seed"))
	log.InfoContext(ctx, "seeding started",
		slog.Int("users", s.opts.NumUsers),
		slog.Int("posts_per_user", s.opts.PostsPerUser),
	)

	if s.opts.ShouldClean {
		if err := Clean(s.db); err != nil {
			return nil, err
		}
	}

	sum := &Summary{}
	tags, err := Tags(s.db, DefaultTags())
	if err != nil {
		return nil, err
	}
	sum.Tags = len(tags)

	users, err := s.seedUsers(ctx, tags)
	if err != nil {
		return nil, err
	}
	sum.Users = len(users)

	if sum.Follows, err = s.seedFollows(users); err != nil {
		return nil, err
	}

	posts, err := s.seedPosts(users, tags)
	if err != nil {
		return nil, err
	}
	sum.Posts = len(posts)

	if sum.Likes, sum.Comments, err = s.seedActivity(ctx, users, posts); err != nil {
		return nil, err
	}

	log.InfoContext(ctx, "seeding finished",
		slog.Int("users", sum.Users),
		slog.Int("posts", sum.Posts),
		slog.Int("follows", sum.Follows),
		slog.Int("likes", sum.Likes),
		slog.Int("comments", sum.Comments),
		slog.Duration("elapsed", time.Since(start)),
	)
	return sum, nil
}

func (s *Seeder) seedUsers(ctx context.Context, tags []models.Tag) ([]*models.User, error) {
	users := make([]*models.User, 0, s.opts.NumUsers)
	for i := 0; i < s.opts.NumUsers; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		u, err := s.factory.CreateUser()
		if err != nil {
			return nil, fmt.Errorf("create user: %w", err)
		}
		// Roughly two thirds of accounts pick interests.
		if i%3 != 2 {
			if err := s.factory.SetInterests(u, tags); err != nil {
				return nil, fmt.Errorf("set interests: %w", err)
			}
			u.SetInterest = true
		}
		users = append(users, u)
	}
	return users, nil
}

func (s *Seeder) seedFollows(users []*models.User) (int, error) {
	if len(users) < 2 || s.opts.FollowsPerUser <= 0 {
		return 0, nil
	}
	per := s.opts.FollowsPerUser
	if per > len(users)-1 {
		per = len(users) - 1
	}
	var edges []models.Follow
	for i, u := range users {
		// Follow the next per users around the ring, so every edge is
		// distinct and no one follows themselves.
		for k := 1; k <= per; k++ {
			target := users[(i+k)%len(users)]
			edges = append(edges, models.Follow{FollowerID: u.ID, FollowingID: target.ID})
		}
	}
	if err := s.factory.CreateFollows(edges); err != nil {
		return 0, fmt.Errorf("create follows: %w", err)
	}
	return len(edges), nil
}

func (s *Seeder) seedPosts(users []*models.User, tags []models.Tag) ([]*models.Post, error) {
	posts := make([]*models.Post, 0, len(users)*s.opts.PostsPerUser)
	for _, u := range users {
		for i := 0; i < s.opts.PostsPerUser; i++ {
			posts = append(posts, s.factory.BuildPost(u, tags))
		}
	}
	if err := s.factory.CreatePosts(posts); err != nil {
		return nil, fmt.Errorf("create posts: %w", err)
	}
	return posts, nil
}

func (s *Seeder) seedActivity(ctx context.Context, users []*models.User, posts []*models.Post) (int, int, error) {
	var likes []models.Like
	comments := 0
	for _, p := range posts {
		if err := ctx.Err(); err != nil {
			return 0, 0, err
		}
		for _, u := range users {
			if u.ID == p.UserID {
				continue
			}
			if s.factory.Chance(s.opts.LikeRate) {
				likes = append(likes, models.Like{PostID: p.ID, UserID: u.ID, CreatedAt: p.CreatedAt})
			}
			if s.factory.Chance(s.opts.CommentRate) {
				if _, err := s.factory.CreateComment(u, p); err != nil {
					return 0, 0, fmt.Errorf("create comment: %w", err)
				}
				comments++
			}
		}
	}
	if err := s.factory.CreateLikes(likes); err != nil {
		return 0, 0, fmt.Errorf("create likes: %w", err)
	}
	return len(likes), comments, nil
}

// Clean removes every row the application owns, join tables first.
func Clean(db *gorm.DB) error {
	for _, table := range []string{"post_tags", "interest_tags"} {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("clean %s: %w", table, err)
		}
	}
	all := database.PersistentModels()
	for i := len(all) - 1; i >= 0; i-- {
		if err := db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(all[i]).Error; err != nil {
			return fmt.Errorf("clean %T: %w", all[i], err)
		}
	}
	return nil
}
