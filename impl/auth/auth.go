package auth

// Database is the slice of the store the capability check needs.
type Database interface {
	IsAdmin(userId int64) (bool, error)
}

// Auth decides who may use the admin surface. A user qualifies when their
// id is in the configured list or in the admins table; one check covers
// both sources.
type Auth struct {
	db         Database
	configured map[int64]bool
}

func New(db Database, adminIds []int64) *Auth {
	configured := make(map[int64]bool, len(adminIds))
	for _, id := range adminIds {
		configured[id] = true
	}
	return &Auth{db: db, configured: configured}
}

// IsAdmin is the single capability check for every admin entry point.
func (a *Auth) IsAdmin(userId int64) bool {
	if a.configured[userId] {
		return true
	}
	if a.db == nil {
		return false
	}
	granted, err := a.db.IsAdmin(userId)
	if err != nil {
		return false
	}
	return granted
}

// Configured reports whether the id comes from configuration; such admins
// cannot be removed at runtime.
func (a *Auth) Configured(userId int64) bool {
	return a.configured[userId]
}
