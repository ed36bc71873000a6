package sqlxrepos

import (
	"context"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/certify/core/user"
)

type userRow struct {
	ID           string      `db:"id"`
	Name         string      `db:"name"`
	Username     null.String `db:"username"`
	Email        null.String `db:"email"`
	IsActive     bool        `db:"is_active"`
	Roles        string      `db:"roles"`
	PasswordHash []byte      `db:"password_hash"`
	CreatedAt    time.Time   `db:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at"`
	LastLogin    null.Time   `db:"last_login"`
}

func newUserRow(usr user.User) userRow {
	row := userRow{
		ID:           usr.ID,
		Name:         usr.Name,
		Username:     null.NewString(usr.Username, usr.Username != ""),
		Email:        null.NewString(usr.Email, usr.Email != ""),
		IsActive:     usr.IsActive,
		Roles:        strings.Join(usr.Roles, ","),
		PasswordHash: usr.PasswordHash,
		CreatedAt:    usr.CreatedAt.UTC(),
		UpdatedAt:    usr.UpdatedAt.UTC(),
	}
	if !usr.LastLogin.IsZero() {
		row.LastLogin = null.TimeFrom(usr.LastLogin.UTC())
	}
	return row
}

func (row userRow) toUser() user.User {
	usr := user.User{
		ID:           row.ID,
		Name:         row.Name,
		Username:     row.Username.String,
		Email:        row.Email.String,
		IsActive:     row.IsActive,
		PasswordHash: row.PasswordHash,
		CreatedAt:    row.CreatedAt.UTC(),
		UpdatedAt:    row.UpdatedAt.UTC(),
	}
	if row.Roles != "" {
		usr.Roles = strings.Split(row.Roles, ",")
	}
	if row.LastLogin.Valid {
		usr.LastLogin = row.LastLogin.Time.UTC()
	}
	return usr
}

const userColumns = "id, name, username, email, is_active, roles, password_hash, created_at, updated_at, last_login"

type userRepository struct {
	repository
}

var _ user.Repository = (*userRepository)(nil)

func NewUserRepository(db *sqlx.DB) *userRepository {
	return &userRepository{repository{db: db}}
}

func (repo *userRepository) CheckUsernameUniqueness(ctx context.Context, username, email string, excludedUsers ...user.User) error {
	check := func(column, value string, errExists error) error {
		if value == "" {
			return nil
		}
		q := "SELECT id FROM users WHERE " + column + " = ?"
		args := []interface{}{value}
		if len(excludedUsers) > 0 {
			ids := make([]string, 0, len(excludedUsers))
			for _, u := range excludedUsers {
				ids = append(ids, u.ID)
			}
			inQ, inArgs, err := sqlx.In(" AND id NOT IN (?)", ids)
			if err != nil {
				return err
			}
			q += inQ
			args = append(args, inArgs...)
		}
		var ids []string
		if err := repo.db.SelectContext(ctx, &ids, repo.db.Rebind(q+" LIMIT 1"), args...); err != nil {
			return errors.Wrap(err, "checking uniqueness")
		}
		if len(ids) > 0 {
			return errExists
		}
		return nil
	}

	if err := check("username", username, user.ErrUsernameExists); err != nil {
		return err
	}
	return check("email", email, user.ErrEmailExists)
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	q := repo.db.Rebind("INSERT INTO users (" + userColumns + ") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
	row := newUserRow(usr)
	_, err := repo.db.ExecContext(ctx, q,
		row.ID, row.Name, row.Username, row.Email, row.IsActive, row.Roles,
		row.PasswordHash, row.CreatedAt, row.UpdatedAt, row.LastLogin,
	)
	if err != nil {
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return row.toUser(), nil
}

func (repo *userRepository) getUser(ctx context.Context, where string, args ...interface{}) (user.User, error) {
	var row userRow
	q := repo.db.Rebind("SELECT " + userColumns + " FROM users WHERE " + where + " LIMIT 1")
	if err := repo.db.GetContext(ctx, &row, q, args...); err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound)
	}
	return row.toUser(), nil
}

func (repo *userRepository) GetUserByID(ctx context.Context, id string) (user.User, error) {
	return repo.getUser(ctx, "id = ?", id)
}

func (repo *userRepository) GetUserByUsernameOrEmail(ctx context.Context, username string) (user.User, error) {
	return repo.getUser(ctx, "username = ? OR email = ?", username, username)
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	row := newUserRow(usr)
	q := repo.db.Rebind(`UPDATE users SET name = ?, username = ?, email = ?, is_active = ?, roles = ?,
		password_hash = ?, updated_at = ?, last_login = ? WHERE id = ?`)
	res, err := repo.db.ExecContext(ctx, q,
		row.Name, row.Username, row.Email, row.IsActive, row.Roles,
		row.PasswordHash, row.UpdatedAt, row.LastLogin, row.ID,
	)
	if err != nil {
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return row.toUser(), nil
}
