package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMemberRole(t *testing.T) {
	assert.True(t, RoleStudent.MemberRole())
	assert.True(t, RoleTeacher.MemberRole())
	assert.True(t, RoleStaff.MemberRole())
	assert.False(t, RoleHallAdmin.MemberRole())
	assert.False(t, RoleSuperAdmin.MemberRole())
}

func TestMealTypeValid(t *testing.T) {
	for _, mt := range MealTypes {
		assert.True(t, mt.Valid(), "meal type %s", mt)
	}
	assert.False(t, MealType("brunch").Valid())
}
