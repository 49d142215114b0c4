package database

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"yamdb/config"
	"yamdb/logging"
	"yamdb/models"
)

var DB *gorm.DB

// Open connects to the configured database. Unique and foreign key violations
// are translated into gorm.ErrDuplicatedKey and gorm.ErrForeignKeyViolated.
func Open(cfg config.DatabaseConfig, log *zap.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "", "sqlite":
		dialector = sqlite.Open(sqliteDSN(cfg.URL))
	case "mysql":
		dialector = mysql.Open(cfg.URL)
	case "postgres":
		dialector = postgres.Open(cfg.URL)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logging.NewGormLogger(log, cfg.LogSQL),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}
	return db, nil
}

// sqliteDSN turns on foreign keys for every pooled connection.
func sqliteDSN(dsn string) string {
	if strings.Contains(dsn, "_foreign_keys=") || strings.Contains(dsn, "_fk=") {
		return dsn
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&_foreign_keys=on"
	}
	return dsn + "?_foreign_keys=on"
}

// Migrate creates or updates the schema of every model.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.Category{},
		&models.Genre{},
		&models.Title{},
		&models.Review{},
		&models.Comment{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

// InitDB opens the database from config.AppConfig, migrates it and seeds the
// configured superuser. It panics on failure.
func InitDB(log *zap.Logger) {
	db, err := Open(config.AppConfig.Database, log)
	if err != nil {
		panic(err)
	}
	if err := Migrate(db); err != nil {
		panic(err)
	}

	DB = db
	log.Info("Database connection successful and migrations complete.",
		zap.String("driver", config.AppConfig.Database.Driver))

	su := config.AppConfig.Superuser
	if su.Username != "" {
		if _, err := EnsureSuperuser(db, su.Username, su.Email, ""); err != nil {
			log.Error("Failed to seed superuser", zap.String("username", su.Username), zap.Error(err))
		}
	}
}

// EnsureSuperuser creates an active superuser with role admin, or promotes the
// existing account with that username. An empty password leaves the stored one unchanged.
func EnsureSuperuser(db *gorm.DB, username, email, password string) (*models.User, error) {
	if username == "" || email == "" {
		return nil, errors.New("superuser needs a username and an email")
	}

	var user models.User
	err := db.Where("username = ?", username).First(&user).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		user = models.User{Username: username, Email: email}
	case err != nil:
		return nil, err
	case user.Email != email:
		return nil, fmt.Errorf("user %q exists with a different email", username)
	}

	if password != "" {
		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return nil, errors.New("could not hash password")
		}
		user.Password = string(hashedPassword)
	}
	user.Role = models.RoleAdmin
	user.IsSuperuser = true
	user.IsActive = true

	if err := db.Save(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}
