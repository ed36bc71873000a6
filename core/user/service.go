package user

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/certify/core"
)

var (
	// errors
	ErrNotFound       = errors.New("user not found")
	ErrEmailExists    = errors.New("a user with this email already exists")
	ErrUsernameExists = errors.New("a user with this username already exists")
	ErrInactive       = errors.New("account deactivated")
)

type (
	Repository interface {
		CheckUsernameUniqueness(ctx context.Context, username, email string, excludedUsers ...User) error
		CreateUser(ctx context.Context, usr User) (User, error)
		GetUserByID(ctx context.Context, id string) (User, error)
		GetUserByUsernameOrEmail(ctx context.Context, username string) (User, error)
		UpdateUser(ctx context.Context, usr User) (User, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) checkUniqueness(ctx context.Context, uname, email string, exclUsers ...User) error {
	if err := svc.repo.CheckUsernameUniqueness(ctx, uname, email, exclUsers...); err != nil {
		var field string
		switch err {
		case ErrUsernameExists:
			field = "username"
		case ErrEmailExists:
			field = "email"
		default:
			return err
		}
		return core.NewValidationError(err, core.FieldError{Field: field, Error: err.Error()})
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, nu NewUser) (User, error) {
	now := time.Now().UTC()
	usr := User{
		ID:        uuid.NewString(),
		Name:      nu.Name,
		Username:  nu.Username,
		Email:     nu.Email,
		IsActive:  true,
		Roles:     nu.Roles,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}
	return svc.repo.CreateUser(ctx, usr)
}

func (svc *Service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUserByID(ctx, id)
}

func (svc *Service) GetByUsernameOrEmail(ctx context.Context, uname string) (User, error) {
	return svc.repo.GetUserByUsernameOrEmail(ctx, core.CleanString(uname, true /* lower */))
}

// Authenticate checks the credentials and records the login time.
func (svc *Service) Authenticate(ctx context.Context, uname, pwd string) (User, error) {
	usr, err := svc.GetByUsernameOrEmail(ctx, uname)
	if err != nil {
		return User{}, err
	}
	if err = usr.CheckPassword(pwd); err != nil {
		return User{}, ErrNotFound
	}
	if !usr.IsActive {
		return User{}, ErrInactive
	}
	usr.LastLogin = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

// AddOrUpdate validates nu, then creates the user when no one has its username or email,
// else sets the matched user's password and reactivates them. admin grants every role;
// roles are never taken away here.
func (svc *Service) AddOrUpdate(ctx context.Context, validate *validator.Validate, nu NewUser, admin bool) (User, error) {
	lookup := core.CleanString(nu.Username, true /* lower */)
	if lookup == "" {
		lookup = core.CleanString(nu.Email, true /* lower */)
	}

	var excl []User
	if lookup != "" {
		existing, err := svc.repo.GetUserByUsernameOrEmail(ctx, lookup)
		switch {
		case err == nil:
			excl = append(excl, existing)
		case errors.Cause(err) != ErrNotFound:
			return User{}, err
		}
	}

	if core.CleanString(nu.Name) == "" {
		nu.Name = nu.Username
	}
	if admin {
		nu.Roles = append([]string(nil), AllRoles...)
	}
	if err := nu.Validate(ctx, validate, svc, excl...); err != nil {
		return User{}, err
	}
	if len(excl) == 0 {
		return svc.Create(ctx, nu)
	}

	usr := excl[0]
	if admin {
		usr.Roles = nu.Roles
	}
	usr.IsActive = true
	usr.UpdatedAt = time.Now().UTC()
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *Service) ResetPassword(ctx context.Context, uname, pwd string) (User, error) {
	usr, err := svc.GetByUsernameOrEmail(ctx, uname)
	if err != nil {
		return User{}, err
	}
	if err = usr.SetPassword(pwd); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}
	usr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}
