package database

import (
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/pkg/errors"
)

type MigrationLogger struct {
	ectologger.Logger
}

func (l MigrationLogger) Verbose() bool {
	return true
}

func (l MigrationLogger) Printf(format string, v ...any) {
	l.Infof(strings.TrimSuffix(format, "\n"), v...)
}

type MigrationConfig struct {
	// MigrationFolderPath overrides the embedded migrations with a folder on disk.
	MigrationFolderPath string
	Version             uint
	Force               int
	AutoRollback        bool
}

type MigrationService struct {
	config   *MigrationConfig
	embedded fs.FS
	logger   ectologger.Logger
}

// NewMigrationService runs the migrations found at the root of embedded unless
// the config points at a folder.
func NewMigrationService(logger ectologger.Logger, embedded fs.FS, config *MigrationConfig) *MigrationService {
	if config == nil {
		config = &MigrationConfig{}
	}
	return &MigrationService{
		config:   config,
		embedded: embedded,
		logger:   logger,
	}
}

func (ms *MigrationService) source() (fs.FS, error) {
	if ms.config.MigrationFolderPath == "" {
		if ms.embedded == nil {
			return nil, errors.New("no migration source configured")
		}
		return ms.embedded, nil
	}

	if _, err := os.Stat(ms.config.MigrationFolderPath); err != nil {
		return nil, errors.Wrapf(err, "migration folder %s does not exist", ms.config.MigrationFolderPath)
	}
	return os.DirFS(ms.config.MigrationFolderPath), nil
}

// Migrate applies the migrations to the database at databaseURL.
func (ms *MigrationService) Migrate(databaseURL string) error {
	fsys, err := ms.source()
	if err != nil {
		return err
	}

	src, err := iofs.New(fsys, ".")
	if err != nil {
		return errors.Wrap(err, "failed to open migration source")
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, databaseURL)
	if err != nil {
		ms.logger.WithError(err).Error("Failed to create migrate instance")
		return err
	}
	defer m.Close()

	m.Log = MigrationLogger{Logger: ms.logger}

	return ms.run(m, fsys)
}

func (ms *MigrationService) run(m *migrate.Migrate, fsys fs.FS) error {
	if ms.config.Force != 0 {
		if err := m.Force(ms.config.Force); err != nil {
			ms.logger.WithError(err).Errorf("Failed to force database to version %d", ms.config.Force)
			return err
		}
	}

	version, _, versionErr := m.Version()
	if versionErr != nil && versionErr != migrate.ErrNilVersion {
		ms.logger.WithError(versionErr).Error("Failed to get current migration version")
	}

	startTime := time.Now()

	var migrationErr error
	if ms.config.Version != 0 {
		migrationErr = m.Migrate(ms.config.Version)
	} else {
		migrationErr = m.Up()
	}

	ms.logger.Infof("Database migrations completed in %v", time.Since(startTime))

	return ms.handleMigrationError(m, fsys, migrationErr, version)
}

func (ms *MigrationService) handleMigrationError(m *migrate.Migrate, fsys fs.FS, err error, previousVersion uint) error {
	if err == nil {
		ms.logger.Info("Successfully applied migrations")
		return nil
	}

	if err == migrate.ErrNoChange {
		ms.logger.Info("No new migrations to apply")
		return nil
	}

	// database is ahead of the available files, usually after a rollback
	if strings.Contains(err.Error(), "no migration found for version") {
		latest, latestErr := latestVersion(fsys)
		if latestErr != nil {
			ms.logger.WithError(latestErr).Error("Failed to get latest migration version")
			return latestErr
		}
		ms.logger.Warnf("No migration found for version %d. Forcing to latest version %d", previousVersion, latest)
		return m.Force(latest)
	}

	ms.logger.WithError(err).Errorf("Migration failed: %v", err)

	version, dirty, versionErr := m.Version()
	if versionErr != nil && versionErr != migrate.ErrNilVersion {
		ms.logger.WithError(versionErr).Error("Failed to get current migration version")
		return err
	}

	if ms.config.AutoRollback && dirty {
		target := int(previousVersion)
		if previousVersion == 0 && version > 0 {
			target = int(version) - 1
		}
		ms.logger.Warnf("Database is dirty at version %d. Reverting to version %d", version, target)
		if forceErr := m.Force(target); forceErr != nil {
			ms.logger.WithError(forceErr).Errorf("Failed to force database to version %d", target)
			return forceErr
		}
	}

	return err
}

var migrationFilePattern = regexp.MustCompile(`^(\d+)_.*\.up\.sql$`)

func latestVersion(fsys fs.FS) (int, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return 0, err
	}

	var versions []int
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		matches := migrationFilePattern.FindStringSubmatch(entry.Name())
		if len(matches) < 2 {
			continue
		}
		version, err := strconv.Atoi(matches[1])
		if err != nil {
			return 0, err
		}
		versions = append(versions, version)
	}

	if len(versions) == 0 {
		return 0, fmt.Errorf("no migration files found")
	}

	sort.Ints(versions)
	return versions[len(versions)-1], nil
}
