package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Enumerations
const (
	RoleStudent    UserRole = "student"
	RoleTeacher    UserRole = "teacher"
	RoleStaff      UserRole = "staff"
	RoleHallAdmin  UserRole = "hall_admin"
	RoleSuperAdmin UserRole = "super_admin"

	StatusActive    UserStatus = "active"
	StatusEx        UserStatus = "ex"
	StatusSuspended UserStatus = "suspended"

	MemberStudent MemberType = "student"
	MemberTeacher MemberType = "teacher"
	MemberStaff   MemberType = "staff"

	PrefBeef   MeatPreference = "beef"
	PrefMutton MeatPreference = "mutton"

	MealBreakfast MealType = "breakfast"
	MealLunch     MealType = "lunch"
	MealDinner    MealType = "dinner"

	SheetDraft     SheetStatus = "draft"
	SheetFinalized SheetStatus = "finalized"
)

type UserRole string
type UserStatus string
type MemberType string
type MeatPreference string
type MealType string
type SheetStatus string

// MealTypes lists the fixed daily meal slots in serving order.
var MealTypes = []MealType{MealBreakfast, MealLunch, MealDinner}

// Valid reports whether mt is one of the fixed meal slots.
func (mt MealType) Valid() bool {
	return mt == MealBreakfast || mt == MealLunch || mt == MealDinner
}

// MemberRole reports whether the role carries a member profile.
func (r UserRole) MemberRole() bool {
	return r == RoleStudent || r == RoleTeacher || r == RoleStaff
}

type Hall struct {
	ID        int64
	Name      string
	SeatRent  decimal.Decimal
	CreatedAt time.Time
	UpdatedAt time.Time
}

type User struct {
	ID           int64
	HallID       *int64
	Name         string
	Email        string
	Role         UserRole
	Status       UserStatus
	PasswordHash *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Member is the common profile shape shared by students, teachers and staff.
// Type tags the variant; the variant-specific descriptive fields live in
// Details and which of them are populated depends on Type.
type Member struct {
	ID         int64
	UserID     int64
	HallID     int64
	Type       MemberType
	Code       string // external display id (student id, teacher id, ...)
	Preference MeatPreference
	Balance    decimal.Decimal
	Details    MemberDetails
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type MemberDetails struct {
	Department  string // student, teacher
	Batch       string // student
	RoomNumber  string // student
	Designation string // teacher, staff
}

type MealBooking struct {
	ID          int64
	UserID      int64
	HallID      int64
	MealType    MealType
	BookingDate time.Time
	Quantity    int
	Price       decimal.Decimal // 0 until the day's cost sheet finalizes
	IsTaken     bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type MealExpenseItem struct {
	ID        int64
	Name      string
	UnitPrice decimal.Decimal
	Quantity  decimal.Decimal
	Total     decimal.Decimal
}

type DailyMealCost struct {
	ID                int64
	HallID            int64
	Date              time.Time
	MealType          MealType
	TotalCost         decimal.Decimal
	ExtraMuttonCharge decimal.Decimal
	CalculatedPrice   *decimal.Decimal // nil until finalized
	Status            SheetStatus
	Items             []MealExpenseItem
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

type MonthlyOtherItem struct {
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
}

type MonthlyCost struct {
	ID             int64
	HallID         int64
	Year           int
	Month          int
	FuelCharge     decimal.Decimal
	SpiceCharge    decimal.Decimal
	CleaningCharge decimal.Decimal
	OtherCharge    decimal.Decimal
	OtherItems     []MonthlyOtherItem
	TotalAmount    decimal.Decimal
	Status         SheetStatus
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type Payment struct {
	ID          int64
	Code        string
	UserID      int64
	HallID      int64
	Amount      decimal.Decimal
	PaymentDate time.Time
	Note        string
	CreatedAt   time.Time
}
