package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
)

// Ping opens a short-lived driver connection to verify reachability and
// credentials before mysqldump runs. Auth rejections and transport
// failures are reported as distinct error classes.
func (m *MySQL) Ping(ctx context.Context) error {
	dsn := fmt.Sprintf("%s:%s@tcp(%s)/%s",
		m.Username, m.Password, net.JoinHostPort(m.Host, m.Port), m.Database)
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConnFailed, err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return classifyMySQLError(err)
	}
	return nil
}

func classifyMySQLError(err error) error {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case 1044, 1045, 1698: // access denied variants
			return fmt.Errorf("%w: %s", ErrAuthFailed, myErr.Message)
		}
		return fmt.Errorf("%w: %s", ErrConnFailed, myErr.Message)
	}
	return fmt.Errorf("%w: %v", ErrConnFailed, err)
}

// Ping verifies reachability and credentials before pg_dump runs.
func (p *Postgres) Ping(ctx context.Context) error {
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable connect_timeout=10",
		p.Host, p.Port, p.Username, p.Password, p.Database)
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConnFailed, err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return classifyPostgresError(err)
	}
	return nil
}

func classifyPostgresError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "28000", "28P01": // invalid_authorization_specification, invalid_password
			return fmt.Errorf("%w: %s", ErrAuthFailed, pqErr.Message)
		}
		return fmt.Errorf("%w: %s", ErrConnFailed, pqErr.Message)
	}
	return fmt.Errorf("%w: %v", ErrConnFailed, err)
}
