package vectorstore

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/mohammad-safakhou/concordance/internal/vectorstore/migrations"
)

// Migrate applies the vector store schema. An empty dir uses the embedded
// migrations; otherwise dir is a source URL such as file://migrations.
func Migrate(dir, dsn, direction string, steps int) error {
	if dsn == "" {
		return errors.New("postgres dsn required")
	}
	var (
		m   *migrate.Migrate
		err error
	)
	if dir == "" {
		src, serr := iofs.New(migrations.FS, ".")
		if serr != nil {
			return serr
		}
		m, err = migrate.NewWithSourceInstance("iofs", src, dsn)
	} else {
		m, err = migrate.New(dir, dsn)
	}
	if err != nil {
		return err
	}
	defer m.Close()

	switch direction {
	case "up", "":
		if steps > 0 {
			err = m.Steps(steps)
		} else {
			err = m.Up()
		}
	case "down":
		if steps > 0 {
			err = m.Steps(-steps)
		} else {
			err = m.Down()
		}
	default:
		return fmt.Errorf("unknown direction: %s", direction)
	}
	if errors.Is(err, migrate.ErrNoChange) {
		return nil
	}
	return err
}
