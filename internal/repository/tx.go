package repository

import (
	"context"

	"gorm.io/gorm"
)

// Repositories groups every repository bound to one connection or transaction.
type Repositories struct {
	Users         UserRepository
	Posts         PostRepository
	Tags          TagRepository
	Follows       FollowRepository
	Comments      CommentRepository
	Notifications NotificationRepository
	Interests     InterestRepository

	db *gorm.DB
}

// NewRepositories binds all repositories to db. Reads go to the replica when
// one is configured.
func NewRepositories(db *gorm.DB) *Repositories {
	return bind(db, readDB(db))
}

// bind inside a transaction passes the tx as both write and read handle so
// reads observe uncommitted writes.
func bind(db, read *gorm.DB) *Repositories {
	return &Repositories{
		Users:         &userRepository{db: db, read: read},
		Posts:         &postRepository{db: db, read: read},
		Tags:          &tagRepository{db: db, read: read},
		Follows:       &followRepository{db: db, read: read},
		Comments:      &commentRepository{db: db, read: read},
		Notifications: &notificationRepository{db: db, read: read},
		Interests:     &interestRepository{db: db, read: read},
		db:            db,
	}
}

// Savepoint runs fn in a nested transaction. If fn fails only its own writes
// are rolled back and the error is returned; the enclosing transaction stays
// usable. Repositories built without a connection (test stubs) just call fn.
func (r *Repositories) Savepoint(ctx context.Context, fn func(tx *Repositories) error) error {
	if r.db == nil {
		return fn(r)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(bind(tx, tx))
	})
}

// UnitOfWork runs a function against repositories sharing one transaction.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(tx *Repositories) error) error
}

type gormUnitOfWork struct {
	db *gorm.DB
}

// NewUnitOfWork returns a UnitOfWork backed by db.
func NewUnitOfWork(db *gorm.DB) UnitOfWork {
	return &gormUnitOfWork{db: db}
}

// Do commits when fn returns nil and rolls back otherwise.
func (u *gormUnitOfWork) Do(ctx context.Context, fn func(tx *Repositories) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(bind(tx, tx))
	})
}
