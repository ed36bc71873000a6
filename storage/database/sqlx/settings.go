package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/certify/core/settings"
)

type settingsRepository struct {
	repository
}

var _ settings.Repository = (*settingsRepository)(nil)

func NewSettingsRepository(db *sqlx.DB) *settingsRepository {
	return &settingsRepository{repository{db: db}}
}

func (repo *settingsRepository) GetOption(ctx context.Context, name string) (string, error) {
	var val string
	q := repo.db.Rebind("SELECT value FROM options WHERE name = ?")
	if err := repo.db.GetContext(ctx, &val, q, name); err != nil {
		return "", trapNoRowsErr(err, settings.ErrNotFound)
	}
	return val, nil
}

func (repo *settingsRepository) SetOption(ctx context.Context, name, value string) error {
	q := repo.db.Rebind(`INSERT INTO options (name, value) VALUES (?, ?)
		ON CONFLICT (name) DO UPDATE SET value = excluded.value`)
	_, err := repo.db.ExecContext(ctx, q, name, value)
	return errors.Wrapf(err, "setting option %s", name)
}

func (repo *settingsRepository) AddOption(ctx context.Context, name, value string) error {
	q := repo.db.Rebind("INSERT INTO options (name, value) VALUES (?, ?) ON CONFLICT (name) DO NOTHING")
	_, err := repo.db.ExecContext(ctx, q, name, value)
	return errors.Wrapf(err, "adding option %s", name)
}
