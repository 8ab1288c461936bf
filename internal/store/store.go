package store

import (
	"chembot/internal/config"
	"database/sql"
	"errors"
	"fmt"
	_ "github.com/go-sql-driver/mysql" // MySQL driver
	"sync"
	"time"
)

type MySql struct {
	db         *sql.DB
	loc        *time.Location
	prefix     string
	statements map[string]*sql.Stmt
	mu         sync.Mutex
}

func New(conf *config.Config) (*MySql, error) {
	connectionURI := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true",
		conf.MySql.User, conf.MySql.Password, conf.MySql.Host, conf.MySql.Port, conf.MySql.Database)
	db, err := sql.Open("mysql", connectionURI)
	if err != nil {
		return nil, fmt.Errorf("sql connect: %w", err)
	}

	// try to ping three times with a 30-second interval; wait for a database to start
	for i := 0; i < 3; i++ {
		if err = db.Ping(); err == nil {
			break
		}
		if i == 2 {
			return nil, fmt.Errorf("ping database: %w", err)
		}
		time.Sleep(30 * time.Second)
	}

	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(time.Hour)

	sdb := &MySql{
		db:         db,
		prefix:     conf.MySql.Prefix,
		statements: make(map[string]*sql.Stmt),
	}

	if err = sdb.createTables(); err != nil {
		return nil, err
	}
	// survey columns arrived after the first deployments
	if err = sdb.addColumnIfNotExists("events", "feedback_sent_at", "DATETIME NULL DEFAULT NULL"); err != nil {
		return nil, err
	}
	if err = sdb.addColumnIfNotExists("events", "summary_sent_at", "DATETIME NULL DEFAULT NULL"); err != nil {
		return nil, err
	}

	loc, err := time.LoadLocation(conf.MySql.Location)
	if err != nil {
		return nil, fmt.Errorf("load location: %w", err)
	}
	sdb.loc = loc

	return sdb, nil
}

func (s *MySql) Close() {
	s.closeStmt()
	_ = s.db.Close()
}

func (s *MySql) now() time.Time {
	return time.Now().In(s.loc)
}

func (s *MySql) createTables() error {
	tables := map[string]string{
		"users": `(
			user_id BIGINT NOT NULL,
			full_name VARCHAR(255) NOT NULL DEFAULT '',
			national_id VARCHAR(10) NOT NULL DEFAULT '',
			student_id VARCHAR(32) NOT NULL DEFAULT '',
			phone VARCHAR(16) NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL,
			PRIMARY KEY (user_id)
		)`,
		"events": `(
			event_id BIGINT NOT NULL AUTO_INCREMENT,
			title VARCHAR(255) NOT NULL,
			type VARCHAR(16) NOT NULL,
			date VARCHAR(10) NOT NULL,
			location VARCHAR(255) NOT NULL DEFAULT '',
			capacity INT NOT NULL DEFAULT 0,
			current_capacity INT NOT NULL DEFAULT 0,
			description TEXT,
			is_active TINYINT(1) NOT NULL DEFAULT 1,
			hashtag VARCHAR(255) NOT NULL DEFAULT '',
			cost BIGINT NOT NULL DEFAULT 0,
			card_number VARCHAR(32) NOT NULL DEFAULT '',
			deactivation_reason VARCHAR(255) NOT NULL DEFAULT '',
			feedback_sent_at DATETIME NULL DEFAULT NULL,
			summary_sent_at DATETIME NULL DEFAULT NULL,
			PRIMARY KEY (event_id)
		)`,
		"registrations": `(
			registration_id BIGINT NOT NULL AUTO_INCREMENT,
			user_id BIGINT NOT NULL,
			event_id BIGINT NOT NULL,
			registered_at DATETIME NOT NULL,
			PRIMARY KEY (registration_id),
			UNIQUE KEY uniq_user_event (user_id, event_id)
		)`,
		"payments": `(
			payment_id BIGINT NOT NULL AUTO_INCREMENT,
			user_id BIGINT NOT NULL,
			event_id BIGINT NOT NULL,
			amount BIGINT NOT NULL DEFAULT 0,
			confirmed_at DATETIME NOT NULL,
			PRIMARY KEY (payment_id)
		)`,
		"payment_requests": `(
			request_id BIGINT NOT NULL AUTO_INCREMENT,
			message_id BIGINT NOT NULL,
			user_id BIGINT NOT NULL,
			event_id BIGINT NOT NULL,
			amount BIGINT NOT NULL DEFAULT 0,
			status VARCHAR(16) NOT NULL DEFAULT 'pending',
			created_at DATETIME NOT NULL,
			decided_by BIGINT NOT NULL DEFAULT 0,
			decided_at DATETIME NULL DEFAULT NULL,
			PRIMARY KEY (request_id),
			UNIQUE KEY uniq_message (message_id)
		)`,
		"admins": `(
			user_id BIGINT NOT NULL,
			added_by BIGINT NOT NULL DEFAULT 0,
			added_at DATETIME NOT NULL,
			PRIMARY KEY (user_id)
		)`,
		"operator_messages": `(
			id BIGINT NOT NULL AUTO_INCREMENT,
			message_id BIGINT NOT NULL,
			chat_id BIGINT NOT NULL,
			user_id BIGINT NOT NULL,
			event_id BIGINT NOT NULL,
			message_type VARCHAR(32) NOT NULL,
			sent_at DATETIME NOT NULL,
			PRIMARY KEY (id),
			KEY idx_event (event_id)
		)`,
		"event_ratings": `(
			rating_id BIGINT NOT NULL AUTO_INCREMENT,
			user_id BIGINT NOT NULL,
			event_id BIGINT NOT NULL,
			rating INT NOT NULL,
			submitted_at DATETIME NOT NULL,
			PRIMARY KEY (rating_id),
			UNIQUE KEY uniq_user_event (user_id, event_id)
		)`,
	}

	for name, body := range tables {
		query := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s%s %s", s.prefix, name, body)
		if _, err := s.db.Exec(query); err != nil {
			return fmt.Errorf("create table %s: %w", name, err)
		}
	}
	return nil
}

func (s *MySql) addColumnIfNotExists(tableName, columnName, columnType string) error {
	query := fmt.Sprintf(`SELECT COLUMN_NAME FROM INFORMATION_SCHEMA.COLUMNS WHERE TABLE_NAME = '%s%s' AND COLUMN_NAME = '%s'`,
		s.prefix, tableName, columnName)
	var column string
	err := s.db.QueryRow(query).Scan(&column)
	if err == nil {
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("checking column %s existence in %s: %w", columnName, tableName, err)
	}
	alterQuery := fmt.Sprintf(`ALTER TABLE %s%s ADD COLUMN %s %s`, s.prefix, tableName, columnName, columnType)
	if _, err = s.db.Exec(alterQuery); err != nil {
		return fmt.Errorf("add column %s to table %s: %w", columnName, tableName, err)
	}
	return nil
}
