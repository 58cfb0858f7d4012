package handler

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"hallmeal-backend/internal/domain"
	"hallmeal-backend/internal/repository"
)

func booking(mt domain.MealType, memberType domain.MemberType, pref domain.MeatPreference, code string, qty int) repository.BookingWithMember {
	b := repository.BookingWithMember{
		Name:       "Member " + code,
		Code:       code,
		Type:       memberType,
		Preference: pref,
	}
	b.MealType = mt
	b.Quantity = qty
	return b
}

func TestBuildMealListSections(t *testing.T) {
	items := []repository.BookingWithMember{
		booking(domain.MealLunch, domain.MemberStudent, domain.PrefBeef, "S-101", 2),
		booking(domain.MealLunch, domain.MemberTeacher, domain.PrefMutton, "T-01", 1),
		booking(domain.MealLunch, domain.MemberStudent, domain.PrefMutton, "S-102", 1),
		booking(domain.MealDinner, domain.MemberStudent, domain.PrefBeef, "S-101", 1),
	}

	sections := buildMealListSections(items)
	assert.Len(t, sections, 2)

	lunch := sections[0]
	assert.Equal(t, domain.MealLunch, lunch.MealType)
	assert.Len(t, lunch.Students, 2)
	assert.Len(t, lunch.Others, 1)
	assert.Equal(t, int64(4), lunch.TotalUnits)
	assert.Equal(t, int64(2), lunch.BeefUnits)
	assert.Equal(t, int64(2), lunch.MuttonUnits)

	dinner := sections[1]
	assert.Equal(t, domain.MealDinner, dinner.MealType)
	assert.Equal(t, int64(1), dinner.TotalUnits)
	assert.Empty(t, dinner.Others)
}

func TestBuildMealListSectionsServingOrder(t *testing.T) {
	// Input arrives dinner-first; sections still come out in serving order.
	items := []repository.BookingWithMember{
		booking(domain.MealDinner, domain.MemberStudent, domain.PrefBeef, "S-101", 1),
		booking(domain.MealBreakfast, domain.MemberStudent, domain.PrefBeef, "S-102", 1),
		booking(domain.MealLunch, domain.MemberStudent, domain.PrefBeef, "S-103", 1),
	}

	sections := buildMealListSections(items)
	got := make([]domain.MealType, 0, len(sections))
	for _, s := range sections {
		got = append(got, s.MealType)
	}
	assert.Equal(t, []domain.MealType{domain.MealBreakfast, domain.MealLunch, domain.MealDinner}, got)
}

func TestMealListTitleASCII(t *testing.T) {
	title := mealListTitle("Sheikh Russel Hall")
	assert.Equal(t, "Sheikh Russel Hall - Meal List", title)
	for _, r := range title {
		assert.Less(t, r, rune(0x80), "core fonts are cp1252; title must stay ASCII")
	}
}

func TestExportMealListCSV(t *testing.T) {
	items := []repository.BookingWithMember{
		booking(domain.MealLunch, domain.MemberStudent, domain.PrefBeef, "S-101", 2),
	}

	data, err := exportMealListCSV(items)
	assert.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Len(t, lines, 2)
	assert.Equal(t, "meal_type,member_type,code,name,department,designation,preference,quantity", lines[0])
	assert.Contains(t, lines[1], "lunch,student,S-101,Member S-101")
	assert.Contains(t, lines[1], "beef,2")
}

func TestExportMealListPDF(t *testing.T) {
	items := []repository.BookingWithMember{
		booking(domain.MealLunch, domain.MemberStudent, domain.PrefBeef, "S-101", 2),
		booking(domain.MealDinner, domain.MemberStaff, domain.PrefMutton, "ST-07", 1),
	}

	date := time.Date(2025, 6, 11, 0, 0, 0, 0, time.UTC)
	data, err := exportMealListPDF("Sheikh Russel Hall", date, items)
	assert.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "%PDF-"))
}
