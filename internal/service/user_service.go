package service

import (
	"context"
	"strings"
	"time"

	"nodeback/internal/models"
	"nodeback/internal/repository"
	"nodeback/internal/validation"

	"golang.org/x/crypto/bcrypt"
)

type UserService struct {
	users  repository.UserRepository
	fanout *Fanout
}

type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Age       *int
	Gender    string
	Country   string
	Education string
	Work      string
}

// UpdateProfileInput carries only the fields being changed.
type UpdateProfileInput struct {
	UserID       uint
	FirstName    *string
	LastName     *string
	Age          *int
	Gender       *string
	Country      *string
	Education    *string
	Work         *string
	ProfileImage *string
}

func NewUserService(users repository.UserRepository, fanout *Fanout) *UserService {
	return &UserService{users: users, fanout: fanout}
}

// HashPassword returns the bcrypt hash stored for an account.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", models.NewInternalError(err)
	}
	return string(hash), nil
}

func validateAge(age *int) error {
	if age == nil {
		return nil
	}
	if err := validation.ValidateAge(*age, models.MinUserAge, models.MaxUserAge); err != nil {
		return models.NewFieldValidationError("age", err.Error())
	}
	return nil
}

func validateGender(g string) error {
	if !models.Gender(g).Valid() {
		return models.NewFieldValidationError("gender", "Gender must be one of M, F or O")
	}
	return nil
}

func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if err := validation.ValidateEmail(email); err != nil {
		return nil, models.NewFieldValidationError("email", err.Error())
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, models.NewFieldValidationError("password", err.Error())
	}
	if err := validation.ValidateName("first_name", in.FirstName); err != nil {
		return nil, models.NewFieldValidationError("first_name", err.Error())
	}
	if err := validation.ValidateName("last_name", in.LastName); err != nil {
		return nil, models.NewFieldValidationError("last_name", err.Error())
	}
	if err := validateAge(in.Age); err != nil {
		return nil, err
	}
	gender := strings.ToUpper(strings.TrimSpace(in.Gender))
	if err := validateGender(gender); err != nil {
		return nil, err
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	user := &models.User{
		Email:     email,
		Password:  hash,
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
		Age:       in.Age,
		Gender:    models.Gender(gender),
		Country:   in.Country,
		Education: in.Education,
		Work:      in.Work,
		IsActive:  true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Authenticate checks credentials and records the login time. Unknown
// emails and wrong passwords get the same error.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		return nil, models.NewUnauthorizedError("Invalid credentials")
	}
	if !user.IsActive {
		return nil, models.NewUnauthorizedError("Account is disabled")
	}
	now := time.Now().UTC()
	if err := s.users.Update(ctx, user.ID, map[string]any{"last_login": now}); err != nil {
		return nil, err
	}
	user.LastLogin = &now
	return user, nil
}

// EnsureActive fails with UNAUTHORIZED for missing or deactivated accounts.
func (s *UserService) EnsureActive(ctx context.Context, userID uint) (*models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if models.IsCode(err, models.CodeNotFound) {
			return nil, models.NewUnauthorizedError("User not found")
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, models.NewUnauthorizedError("Account is disabled")
	}
	return user, nil
}

// Me returns the caller with follower, like and report counters.
func (s *UserService) Me(ctx context.Context, userID uint) (*models.User, error) {
	return s.users.GetWithCounts(ctx, userID)
}

func (s *UserService) UpdateProfile(ctx context.Context, in UpdateProfileInput) (*models.User, error) {
	fields := map[string]any{}
	if in.FirstName != nil {
		if err := validation.ValidateName("first_name", *in.FirstName); err != nil {
			return nil, models.NewFieldValidationError("first_name", err.Error())
		}
		fields["first_name"] = strings.TrimSpace(*in.FirstName)
	}
	if in.LastName != nil {
		if err := validation.ValidateName("last_name", *in.LastName); err != nil {
			return nil, models.NewFieldValidationError("last_name", err.Error())
		}
		fields["last_name"] = strings.TrimSpace(*in.LastName)
	}
	if in.Age != nil {
		if err := validateAge(in.Age); err != nil {
			return nil, err
		}
		fields["age"] = *in.Age
	}
	if in.Gender != nil {
		g := strings.ToUpper(strings.TrimSpace(*in.Gender))
		if err := validateGender(g); err != nil {
			return nil, err
		}
		fields["gender"] = g
	}
	for column, v := range map[string]*string{
		"country":       in.Country,
		"education":     in.Education,
		"work":          in.Work,
		"profile_image": in.ProfileImage,
	} {
		if v != nil {
			fields[column] = strings.TrimSpace(*v)
		}
	}

	if err := s.users.Update(ctx, in.UserID, fields); err != nil {
		return nil, err
	}
	return s.users.GetWithCounts(ctx, in.UserID)
}

// ChangePassword requires the current password.
func (s *UserService) ChangePassword(ctx context.Context, userID uint, current, next string) error {
	cached, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	// The cached copy never carries the hash.
	user, err := s.users.GetByEmail(ctx, cached.Email)
	if err != nil {
		return err
	}
	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(current)) != nil {
		return models.NewFieldValidationError("old_password", "Current password is incorrect")
	}
	if current == next {
		return models.NewFieldValidationError("new_password", "New password must differ from the current one")
	}
	if err := validation.ValidatePassword(next); err != nil {
		return models.NewFieldValidationError("new_password", err.Error())
	}
	hash, err := HashPassword(next)
	if err != nil {
		return err
	}
	return s.users.Update(ctx, userID, map[string]any{"password": hash})
}

// ListUsers is a staff listing with counters.
func (s *UserService) ListUsers(ctx context.Context, userID uint, page repository.Page) ([]models.User, error) {
	if _, err := requireStaff(ctx, s.users, userID); err != nil {
		return nil, err
	}
	return s.users.List(ctx, page)
}

// Block deactivates an account and signs out its live sessions.
func (s *UserService) Block(ctx context.Context, staffID, targetID uint) error {
	if _, err := requireStaff(ctx, s.users, staffID); err != nil {
		return err
	}
	if staffID == targetID {
		return models.NewValidationError("You cannot block yourself")
	}
	if err := s.users.SetActive(ctx, targetID, false); err != nil {
		return err
	}
	s.fanout.PushLogout(ctx, targetID)
	return nil
}

// SetStaff grants or revokes staff rights. Used by the admin CLI.
func (s *UserService) SetStaff(ctx context.Context, email string, staff bool) (*models.User, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.NewNotFoundError("User", email)
	}
	if err := s.users.SetStaff(ctx, user.ID, staff); err != nil {
		return nil, err
	}
	user.IsStaff = staff
	return user, nil
}

func (s *UserService) ListStaff(ctx context.Context) ([]models.User, error) {
	return s.users.ListStaff(ctx)
}

// SetOnline records presence transitions from the live channel.
func (s *UserService) SetOnline(ctx context.Context, userID uint, online bool) error {
	return s.users.SetOnline(ctx, userID, online)
}
