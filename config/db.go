package config

import (
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// MySQLDSN builds a DSN from the individual MYSQL_* settings when DB_DSN
// is empty.
func (c DBConfig) MySQLDSN() string {
	if c.DSN != "" {
		return c.DSN
	}
	port := c.MySQLPort
	if port == "" {
		port = "3306"
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true&charset=utf8mb4&loc=Local",
		c.MySQLUser, c.MySQLPass, c.MySQLHost, port, c.MySQLDB)
}

// NewDB opens the configured relational backend.
func NewDB(c DBConfig, log *zap.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch c.Driver {
	case DriverMySQL:
		dialector = mysql.Open(c.MySQLDSN())
	case DriverSQLite:
		dialector = sqlite.Open(c.DSN)
	default:
		return nil, fmt.Errorf("config: driver %q has no relational backend", c.Driver)
	}

	logMode := logger.Info
	if c.GormLog == "off" {
		logMode = logger.Silent
	}
	if log == nil {
		log = zap.NewNop()
	}
	gormLogger := logger.New(
		zap.NewStdLog(log.Named("gorm")),
		logger.Config{
			SlowThreshold: time.Second,
			LogLevel:      logMode,
			Colorful:      false,
		},
	)

	return gorm.Open(dialector, &gorm.Config{Logger: gormLogger})
}
