package db

import (
	"fmt"

	"github.com/glebarez/sqlite"
	"github.com/monocle-dev/taskflow/internal/models"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// Open connects to one of the supported drivers: postgres (default), mysql
// or sqlite.
func Open(driver, dsn string, level logger.LogLevel) (*gorm.DB, error) {
	var dialector gorm.Dialector

	switch driver {
	case "", "postgres", "postgresql":
		dialector = postgres.Open(dsn)
	case "mysql":
		dialector = mysql.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}

	conn, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(level),
		TranslateError: true,
		// references are checked by the services, never cascaded by the database
		DisableForeignKeyConstraintWhenMigrating: true,
	})

	if err != nil {
		return nil, err
	}

	if driver == "sqlite" {
		sqlDB, err := conn.DB()
		if err != nil {
			return nil, err
		}
		// one writer; also keeps ":memory:" databases alive across queries
		sqlDB.SetMaxOpenConns(1)
	}

	return conn, nil
}

func ConnectDatabase(driver, dsn string, level logger.LogLevel) error {
	var err error

	DB, err = Open(driver, dsn, level)

	if err != nil {
		return err
	}

	return nil
}

func MigrateDatabase(conn *gorm.DB) error {
	models := []interface{}{
		&models.Company{},
		&models.User{},
		&models.Task{},
	}

	for _, model := range models {
		if err := conn.AutoMigrate(model); err != nil {
			return fmt.Errorf("migrate %T: %w", model, err)
		}
	}

	return nil
}

func Close(conn *gorm.DB) error {
	if conn == nil {
		return nil
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}

	return sqlDB.Close()
}
