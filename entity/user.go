package entity

import (
	"chembot/lib/validate"
	"net/http"
	"strings"
	"time"
)

// User is a member profile collected by the registration conversation.
// The Telegram user id is the primary key; profile fields are editable,
// the record itself is never deleted.
type User struct {
	UserId     int64     `json:"user_id" bson:"user_id" validate:"required"`
	FullName   string    `json:"full_name" bson:"full_name" validate:"required,min=6"`
	NationalId string    `json:"national_id" bson:"national_id" validate:"required,len=10,numeric"`
	StudentId  string    `json:"student_id" bson:"student_id" validate:"required,numeric"`
	Phone      string    `json:"phone" bson:"phone" validate:"required,len=11"`
	CreatedAt  time.Time `json:"created_at" bson:"created_at"`
}

func (u *User) Bind(_ *http.Request) error {
	return validate.Struct(u)
}

// ValidFullName requires at least six characters and a first/last name split.
func ValidFullName(name string) bool {
	name = strings.TrimSpace(name)
	return len([]rune(name)) >= 6 && strings.Contains(name, " ")
}

// ValidNationalId verifies the 10-digit national id checksum: the last digit
// is a check digit over the first nine, weighted 10..2, mod 11.
func ValidNationalId(id string) bool {
	if len(id) != 10 {
		return false
	}
	total := 0
	for i := 0; i < 9; i++ {
		d := id[i]
		if d < '0' || d > '9' {
			return false
		}
		total += int(d-'0') * (10 - i)
	}
	check := id[9]
	if check < '0' || check > '9' {
		return false
	}
	c := int(check - '0')
	r := total % 11
	if r < 2 {
		return c == r
	}
	return c == 11-r
}

// ValidStudentId accepts digits only.
func ValidStudentId(id string) bool {
	if id == "" {
		return false
	}
	for _, r := range id {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// ValidPhone accepts local 11-digit mobile numbers starting with 09.
func ValidPhone(phone string) bool {
	if len(phone) != 11 || !strings.HasPrefix(phone, "09") {
		return false
	}
	for _, r := range phone {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// NormalizePhone converts a shared contact number (+98...) to local format.
func NormalizePhone(phone string) string {
	phone = strings.TrimSpace(strings.ReplaceAll(phone, " ", ""))
	if strings.HasPrefix(phone, "+98") {
		return "0" + strings.TrimPrefix(phone, "+98")
	}
	if strings.HasPrefix(phone, "98") && len(phone) == 12 {
		return "0" + strings.TrimPrefix(phone, "98")
	}
	return phone
}
