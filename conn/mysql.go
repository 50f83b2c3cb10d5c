package conn

import (
	"database/sql"
	"fmt"
	"log"
	"net"
	"time"

	"github.com/go-sql-driver/mysql"
)

// MySQLConfig carries the DB_* settings.
type MySQLConfig struct {
	User     string
	Password string
	Host     string
	Port     string
	Name     string
}

func (c MySQLConfig) dsn(dbName string) string {
	mc := mysql.NewConfig()
	mc.User = c.User
	mc.Passwd = c.Password
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(c.Host, c.Port)
	mc.DBName = dbName
	mc.ParseTime = true
	mc.MultiStatements = dbName != ""
	return mc.FormatDSN()
}

// NewMySQL opens a MySQL connection, creating the database first when it does not exist.
func NewMySQL(cfg MySQLConfig) (*sql.DB, error) {
	// Ensure database exists by connecting without DB and creating it if needed
	adminDB, err := sql.Open("mysql", cfg.dsn(""))
	if err != nil {
		return nil, err
	}
	if err := pingWithRetry(adminDB, "mysql"); err != nil {
		adminDB.Close()
		return nil, err
	}
	if _, err := adminDB.Exec("CREATE DATABASE IF NOT EXISTS `" + cfg.Name + "` DEFAULT CHARACTER SET utf8mb4 COLLATE utf8mb4_unicode_ci"); err != nil {
		adminDB.Close()
		return nil, err
	}
	adminDB.Close()

	db, err := sql.Open("mysql", cfg.dsn(cfg.Name))
	if err != nil {
		return nil, err
	}
	if err := pingWithRetry(db, "mysql"); err != nil {
		db.Close()
		return nil, err
	}
	db.SetConnMaxLifetime(5 * time.Minute)
	return db, nil
}

const pingAttempts = 5

// pingWithRetry pings up to pingAttempts times with a linear backoff.
func pingWithRetry(db *sql.DB, driver string) error {
	var err error
	for i := 1; i <= pingAttempts; i++ {
		if err = db.Ping(); err == nil {
			return nil
		}
		log.Printf("[conn][%s] ping attempt=%d err=%v", driver, i, err)
		if i < pingAttempts {
			time.Sleep(time.Duration(i) * time.Second)
		}
	}
	return fmt.Errorf("%s unreachable after %d attempts: %w", driver, pingAttempts, err)
}
