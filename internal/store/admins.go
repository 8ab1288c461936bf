package store

import (
	"fmt"
)

// AddAdmin grants admin rights; granting twice is harmless.
func (s *MySql) AddAdmin(userId, addedBy int64) error {
	query := fmt.Sprintf(
		`INSERT INTO %sadmins (user_id, added_by, added_at) VALUES (?, ?, ?)
		 ON DUPLICATE KEY UPDATE added_by = VALUES(added_by)`,
		s.prefix,
	)
	stmt, err := s.prepareStmt("addAdmin", query)
	if err != nil {
		return err
	}
	if _, err = stmt.Exec(userId, addedBy, s.now()); err != nil {
		return fmt.Errorf("add admin: %w", err)
	}
	return nil
}

// RemoveAdmin revokes rights granted through the admins table. Configured
// admins are not stored here and cannot be removed this way.
func (s *MySql) RemoveAdmin(userId int64) error {
	query := fmt.Sprintf(`DELETE FROM %sadmins WHERE user_id = ?`, s.prefix)
	stmt, err := s.prepareStmt("removeAdmin", query)
	if err != nil {
		return err
	}
	res, err := stmt.Exec(userId)
	if err != nil {
		return fmt.Errorf("remove admin: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("remove admin: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// IsAdmin checks the admins table only; configured ids are checked upstream.
func (s *MySql) IsAdmin(userId int64) (bool, error) {
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %sadmins WHERE user_id = ?`, s.prefix)
	stmt, err := s.prepareStmt("isAdmin", query)
	if err != nil {
		return false, err
	}
	var count int
	if err = stmt.QueryRow(userId).Scan(&count); err != nil {
		return false, fmt.Errorf("is admin: %w", err)
	}
	return count > 0, nil
}

// Admins lists granted admin ids.
func (s *MySql) Admins() ([]int64, error) {
	query := fmt.Sprintf(`SELECT user_id FROM %sadmins ORDER BY added_at`, s.prefix)
	stmt, err := s.prepareStmt("admins", query)
	if err != nil {
		return nil, err
	}
	rows, err := stmt.Query()
	if err != nil {
		return nil, fmt.Errorf("admins: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err = rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("admins scan: %w", err)
		}
		ids = append(ids, id)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}
