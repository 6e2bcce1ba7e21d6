package sqldb

import (
	"fmt"
	"time"

	"notekeeper/cmd/internal/domain/entity"

	"github.com/glebarez/sqlite"
	mysqldriver "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
)

// Now is the clock gorm stamps created_at/updated_at with. MySQL keeps
// milliseconds, so the API never returns a precision the store drops.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// Init opens the database for the given driver and migrates the notes table.
//
// SQLite gets a single connection: writers are serialized, which is what makes
// the locked read-modify-write in the repository atomic there.
func Init(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case DriverSQLite:
		dialector = sqlite.Open(dsn)
	case DriverMySQL:
		normalized, err := MySQLDSN(dsn)
		if err != nil {
			return nil, err
		}
		dialector = mysql.Open(normalized)
	default:
		return nil, fmt.Errorf("unsupported sql driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{NowFunc: Now})
	if err != nil {
		return nil, err
	}

	err = db.AutoMigrate(&entity.Note{})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	if driver == DriverSQLite {
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
	} else {
		sqlDB.SetMaxOpenConns(20)
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	return db, nil
}

// MySQLDSN makes DATETIME columns scan into time.Time in UTC whatever the
// operator put in the DSN.
func MySQLDSN(dsn string) (string, error) {
	cfg, err := mysqldriver.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("invalid mysql DSN: %w", err)
	}

	cfg.ParseTime = true
	cfg.Loc = time.UTC
	return cfg.FormatDSN(), nil
}
