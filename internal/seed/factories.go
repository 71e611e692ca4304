package seed

import (
	"fmt"
	"strings"
	"time"

	"nodeback/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultPassword is the login password of every seeded account.
const DefaultPassword = "Seed$Password1"

// Factory builds domain rows with fake content and persists them.
type Factory struct {
	db    *gorm.DB
	fake  *gofakeit.Faker
	opts  Options
	hash  string
	count int
}

// NewFactory creates a Factory bound to db. A zero opts.RandSeed picks a
// time-based seed.
func NewFactory(db *gorm.DB, opts Options) (*Factory, error) {
	seed := opts.RandSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	cost := bcrypt.DefaultCost
	if opts.FastHash {
		cost = bcrypt.MinCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), cost)
	if err != nil {
		return nil, fmt.Errorf("hash seed password: %w", err)
	}
	return &Factory{db: db, fake: gofakeit.New(seed), opts: opts, hash: string(hash)}, nil
}

// Chance reports true with probability p. Rates at or above 1 always hit.
func (f *Factory) Chance(p float64) bool {
	return f.fake.Float64Range(0, 1) < p
}

// BuildUser returns an unsaved active user with a unique example.com email.
func (f *Factory) BuildUser(overrides ...func(*models.User)) *models.User {
	f.count++
	first, last := f.fake.FirstName(), f.fake.LastName()
	age := f.fake.Number(models.MinUserAge, 70)
	user := &models.User{
		Email:     strings.ToLower(fmt.Sprintf("%s.%s.%d@example.com", first, last, f.count)),
		Password:  f.hash,
		FirstName: first,
		LastName:  last,
		Age:       &age,
		Gender:    models.Gender(f.fake.RandomString([]string{"M", "F", "O"})),
		Country:   f.fake.Country(),
		Education: f.fake.RandomString([]string{"High school", "Bachelor", "Master", "PhD"}),
		Work:      f.fake.JobTitle(),
		IsActive:  true,
	}
	for _, o := range overrides {
		o(user)
	}
	return user
}

// CreateUser builds and persists a user.
func (f *Factory) CreateUser(overrides ...func(*models.User)) (*models.User, error) {
	user := f.BuildUser(overrides...)
	if err := f.db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// BuildPost returns an unsaved post by author with up to three tags from
// pool and a creation time within the configured window.
func (f *Factory) BuildPost(author *models.User, pool []models.Tag) *models.Post {
	maxDays := f.opts.MaxDays
	if maxDays <= 0 {
		maxDays = 90
	}
	age := time.Duration(f.fake.Number(0, maxDays*24*60)) * time.Minute
	post := &models.Post{
		UserID:    author.ID,
		Content:   f.fake.Paragraph(1, f.fake.Number(1, 4), 12, " "),
		CreatedAt: time.Now().Add(-age),
	}
	post.Tags = f.pickTags(pool, f.fake.Number(0, 3))
	return post
}

// CreatePosts persists posts with their tag links in batches.
func (f *Factory) CreatePosts(posts []*models.Post) error {
	if len(posts) == 0 {
		return nil
	}
	return f.db.CreateInBatches(posts, f.batchSize()).Error
}

// CreateComment persists a short comment by user on post.
func (f *Factory) CreateComment(user *models.User, post *models.Post) (*models.Comment, error) {
	c := &models.Comment{
		PostID:    post.ID,
		UserID:    user.ID,
		Body:      f.fake.Sentence(f.fake.Number(3, 12)),
		CreatedAt: post.CreatedAt.Add(time.Duration(f.fake.Number(1, 600)) * time.Minute),
	}
	if err := f.db.Create(c).Error; err != nil {
		return nil, err
	}
	return c, nil
}

// CreateLikes records likes, ignoring ones that already exist.
func (f *Factory) CreateLikes(likes []models.Like) error {
	if len(likes) == 0 {
		return nil
	}
	return f.db.Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(likes, f.batchSize()).Error
}

// CreateFollows records edges, ignoring duplicates.
func (f *Factory) CreateFollows(edges []models.Follow) error {
	if len(edges) == 0 {
		return nil
	}
	return f.db.Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(edges, f.batchSize()).Error
}

// SetInterests gives user a random interest set drawn from pool.
func (f *Factory) SetInterests(user *models.User, pool []models.Tag) error {
	tags := f.pickTags(pool, f.fake.Number(1, 4))
	interest := &models.Interest{UserID: user.ID, Tags: tags}
	return f.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(interest).Error; err != nil {
			return err
		}
		return tx.Model(&models.User{}).Where("id = ?", user.ID).Update("set_interest", true).Error
	})
}

func (f *Factory) pickTags(pool []models.Tag, n int) []models.Tag {
	if n > len(pool) {
		n = len(pool)
	}
	if n <= 0 {
		return nil
	}
	idx := make([]int, len(pool))
	for i := range idx {
		idx[i] = i
	}
	f.fake.ShuffleInts(idx)
	out := make([]models.Tag, 0, n)
	for _, i := range idx[:n] {
		out = append(out, pool[i])
	}
	return out
}

func (f *Factory) batchSize() int {
	if f.opts.BatchSize > 0 {
		return f.opts.BatchSize
	}
	return 200
}
