package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidNationalId(t *testing.T) {
	// 0499370899: weighted sum of the first nine digits mod 11 yields the
	// tenth digit.
	assert.True(t, ValidNationalId("0499370899"))
	assert.True(t, ValidNationalId("0790419904"))

	assert.False(t, ValidNationalId("0499370890"))
	assert.False(t, ValidNationalId("049937089"))
	assert.False(t, ValidNationalId("04993708991"))
	assert.False(t, ValidNationalId("049937089x"))
	assert.False(t, ValidNationalId(""))
}

func TestValidFullName(t *testing.T) {
	assert.True(t, ValidFullName("Ali Ahmadi"))
	assert.True(t, ValidFullName("  Sara Moradi  "))
	assert.False(t, ValidFullName("Ali"))
	assert.False(t, ValidFullName("AliAhmadi"))
	assert.False(t, ValidFullName("A B"))
}

func TestValidStudentId(t *testing.T) {
	assert.True(t, ValidStudentId("40012345"))
	assert.False(t, ValidStudentId("4001234a"))
	assert.False(t, ValidStudentId(""))
}

func TestValidPhone(t *testing.T) {
	assert.True(t, ValidPhone("09123456789"))
	assert.False(t, ValidPhone("08123456789"))
	assert.False(t, ValidPhone("0912345678"))
	assert.False(t, ValidPhone("091234567890"))
	assert.False(t, ValidPhone("0912345678x"))
}

func TestNormalizePhone(t *testing.T) {
	assert.Equal(t, "09123456789", NormalizePhone("+989123456789"))
	assert.Equal(t, "09123456789", NormalizePhone("989123456789"))
	assert.Equal(t, "09123456789", NormalizePhone("09123456789"))
	assert.Equal(t, "09123456789", NormalizePhone(" +98 912 345 6789 "))
}

func TestEventHelpers(t *testing.T) {
	visit := &Event{Type: TypeVisit, Capacity: 30, CurrentCapacity: 30}
	assert.True(t, visit.Full())
	assert.Equal(t, 0, visit.SeatsLeft())

	visit.CurrentCapacity = 12
	assert.False(t, visit.Full())
	assert.Equal(t, 18, visit.SeatsLeft())

	course := &Event{Type: TypeCourse, Capacity: 30, CurrentCapacity: 500}
	assert.True(t, course.Unlimited())
	assert.False(t, course.Full())
}

func TestTagLine(t *testing.T) {
	e := &Event{Type: TypeVisit, Hashtag: "#oil refinery tour"}
	assert.Equal(t, "#visit #oil_refinery_tour", e.TagLine())

	e = &Event{Type: TypeCourse, Hashtag: "matlab_basics"}
	assert.Equal(t, "#course #matlab_basics", e.TagLine())
}

func TestMakeHashtag(t *testing.T) {
	assert.Equal(t, "#Oil_Refinery_Tour", MakeHashtag("Oil  Refinery Tour"))
}
