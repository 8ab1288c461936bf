package store

import (
	"chembot/entity"
	"database/sql"
	"errors"
	"fmt"
)

// Profile columns a user may edit after onboarding.
var allowedUserFields = map[string]bool{
	"full_name":   true,
	"national_id": true,
	"student_id":  true,
	"phone":       true,
}

// SaveUser inserts a profile or refreshes an existing one.
func (s *MySql) SaveUser(user *entity.User) error {
	query := fmt.Sprintf(
		`INSERT INTO %susers (user_id, full_name, national_id, student_id, phone, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON DUPLICATE KEY UPDATE full_name = VALUES(full_name), national_id = VALUES(national_id),
		 student_id = VALUES(student_id), phone = VALUES(phone)`,
		s.prefix,
	)
	stmt, err := s.prepareStmt("saveUser", query)
	if err != nil {
		return err
	}
	createdAt := user.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.now()
	}
	_, err = stmt.Exec(user.UserId, user.FullName, user.NationalId, user.StudentId, user.Phone, createdAt)
	if err != nil {
		return fmt.Errorf("save user: %w", err)
	}
	return nil
}

// GetUser loads a profile; ErrNotFound when the user never registered.
func (s *MySql) GetUser(userId int64) (*entity.User, error) {
	query := fmt.Sprintf(
		`SELECT user_id, full_name, national_id, student_id, phone, created_at
		 FROM %susers WHERE user_id = ?`,
		s.prefix,
	)
	stmt, err := s.prepareStmt("getUser", query)
	if err != nil {
		return nil, err
	}
	var user entity.User
	err = stmt.QueryRow(userId).Scan(
		&user.UserId,
		&user.FullName,
		&user.NationalId,
		&user.StudentId,
		&user.Phone,
		&user.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &user, nil
}

// UserByStudentId finds a profile by the student id an admin typed.
func (s *MySql) UserByStudentId(studentId string) (*entity.User, error) {
	query := fmt.Sprintf(
		`SELECT user_id, full_name, national_id, student_id, phone, created_at
		 FROM %susers WHERE student_id = ?`,
		s.prefix,
	)
	stmt, err := s.prepareStmt("userByStudentId", query)
	if err != nil {
		return nil, err
	}
	var user entity.User
	err = stmt.QueryRow(studentId).Scan(
		&user.UserId,
		&user.FullName,
		&user.NationalId,
		&user.StudentId,
		&user.Phone,
		&user.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("user by student id: %w", err)
	}
	return &user, nil
}

// UpdateUserField updates a single allow-listed profile column.
func (s *MySql) UpdateUserField(userId int64, field string, value interface{}) error {
	if !allowedUserFields[field] {
		return fmt.Errorf("%w: %s", ErrUnknownField, field)
	}
	query := fmt.Sprintf(`UPDATE %susers SET %s = ? WHERE user_id = ?`, s.prefix, field)
	stmt, err := s.prepareStmt("updateUser_"+field, query)
	if err != nil {
		return err
	}
	_, err = stmt.Exec(value, userId)
	if err != nil {
		return fmt.Errorf("update user %s: %w", field, err)
	}
	return nil
}

// UserCount is used by the membership report.
func (s *MySql) UserCount() (int, error) {
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %susers`, s.prefix)
	stmt, err := s.prepareStmt("userCount", query)
	if err != nil {
		return 0, err
	}
	var count int
	if err = stmt.QueryRow().Scan(&count); err != nil {
		return 0, fmt.Errorf("user count: %w", err)
	}
	return count, nil
}
