package repository

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"hallmeal-backend/internal/db"
	"hallmeal-backend/internal/domain"
)

type MemberRepository struct {
	DB *db.Postgres
}

// pgxQuerier is satisfied by both pgxpool.Pool and pgx.Tx.
type pgxQuerier interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
}

// MemberWithUser joins a member profile with its account fields.
type MemberWithUser struct {
	domain.Member
	Name   string
	Email  string
	Status domain.UserStatus
}

type CreateMemberParams struct {
	Name         string
	Email        string
	HallID       int64
	Type         domain.MemberType
	Code         string
	Preference   domain.MeatPreference
	PasswordHash string
	Details      domain.MemberDetails
}

// Create inserts the account and the member profile in one transaction.
func (r MemberRepository) Create(ctx context.Context, p CreateMemberParams) (*MemberWithUser, error) {
	tx, err := r.DB.Pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var userID int64
	err = tx.QueryRow(ctx, `
		INSERT INTO users (name, email, hall_id, role, status, password_hash, created_at, updated_at)
		VALUES ($1,$2,$3,$4,'active',$5, now(), now())
		RETURNING id
	`, p.Name, p.Email, p.HallID, string(p.Type), p.PasswordHash).Scan(&userID)
	if err != nil {
		return nil, err
	}

	var m MemberWithUser
	err = tx.QueryRow(ctx, `
		INSERT INTO members (user_id, hall_id, member_type, code, preference, balance,
		                     department, batch, room_number, designation, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,0,$6,$7,$8,$9, now(), now())
		RETURNING id, created_at, updated_at
	`, userID, p.HallID, p.Type, p.Code, p.Preference,
		p.Details.Department, p.Details.Batch, p.Details.RoomNumber, p.Details.Designation,
	).Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	m.UserID = userID
	m.HallID = p.HallID
	m.Type = p.Type
	m.Code = p.Code
	m.Preference = p.Preference
	m.Balance = decimal.Zero
	m.Details = p.Details
	m.Name = p.Name
	m.Email = p.Email
	m.Status = domain.StatusActive
	return &m, nil
}

const memberSelect = `
	SELECT m.id, m.user_id, m.hall_id, m.member_type, m.code, m.preference, m.balance,
	       m.department, m.batch, m.room_number, m.designation, m.created_at, m.updated_at,
	       u.name, u.email, u.status
	FROM members m
	JOIN users u ON u.id = m.user_id
`

func scanMember(row pgx.Row) (*MemberWithUser, error) {
	var (
		m     MemberWithUser
		typ   string
		pref  string
		state string
	)
	if err := row.Scan(
		&m.ID, &m.UserID, &m.HallID, &typ, &m.Code, &pref, &m.Balance,
		&m.Details.Department, &m.Details.Batch, &m.Details.RoomNumber, &m.Details.Designation,
		&m.CreatedAt, &m.UpdatedAt,
		&m.Name, &m.Email, &state,
	); err != nil {
		return nil, err
	}
	m.Type = domain.MemberType(typ)
	m.Preference = domain.MeatPreference(pref)
	m.Status = domain.UserStatus(state)
	return &m, nil
}

func (r MemberRepository) GetByUserID(ctx context.Context, userID int64) (*MemberWithUser, error) {
	m, err := scanMember(r.DB.Pool.QueryRow(ctx, memberSelect+` WHERE m.user_id=$1`, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return m, nil
}

type ListMembersFilter struct {
	HallID int64
	Type   domain.MemberType // empty means all
	Search string            // matches name or member code
}

func (r MemberRepository) List(ctx context.Context, f ListMembersFilter) ([]MemberWithUser, error) {
	query := memberSelect + ` WHERE m.hall_id=$1`
	args := []any{f.HallID}
	if f.Type != "" {
		args = append(args, string(f.Type))
		query += ` AND m.member_type=$2`
	}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		n := strconv.Itoa(len(args))
		query += ` AND (u.name ILIKE $` + n + ` OR m.code ILIKE $` + n + `)`
	}
	query += ` ORDER BY m.code`

	rows, err := r.DB.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []MemberWithUser
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		members = append(members, *m)
	}
	return members, rows.Err()
}

type UpdateMemberParams struct {
	Name       string
	Preference domain.MeatPreference
	Details    domain.MemberDetails
}

// Update edits the mutable profile fields. Balance is never set directly.
func (r MemberRepository) Update(ctx context.Context, memberID int64, p UpdateMemberParams) error {
	tx, err := r.DB.Pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE members
		SET preference=$2, department=$3, batch=$4, room_number=$5, designation=$6, updated_at=now()
		WHERE id=$1
	`, memberID, p.Preference, p.Details.Department, p.Details.Batch, p.Details.RoomNumber, p.Details.Designation)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	_, err = tx.Exec(ctx, `
		UPDATE users SET name=$2, updated_at=now()
		WHERE id = (SELECT user_id FROM members WHERE id=$1)
	`, memberID, p.Name)
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r MemberRepository) SetUserStatus(ctx context.Context, userID int64, status domain.UserStatus) error {
	tag, err := r.DB.Pool.Exec(ctx, `
		UPDATE users SET status=$2, updated_at=now() WHERE id=$1
	`, userID, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// creditBalance applies an atomic balance adjustment inside q. Negative
// amounts debit.
func creditBalance(ctx context.Context, q pgxQuerier, userID int64, amount decimal.Decimal) error {
	tag, err := q.Exec(ctx, `
		UPDATE members SET balance = balance + $2, updated_at=now() WHERE user_id=$1
	`, userID, amount)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DelinquentMember is a member past the dues grace period.
type DelinquentMember struct {
	UserID     int64
	Name       string
	Code       string
	Balance    decimal.Decimal
	LastCredit time.Time
}

// ListDelinquent returns active members with a negative balance whose latest
// payment (or profile creation, when they never paid) is before cutoff.
func (r MemberRepository) ListDelinquent(ctx context.Context, cutoff time.Time) ([]DelinquentMember, error) {
	rows, err := r.DB.Pool.Query(ctx, `
		SELECT m.user_id, u.name, m.code, m.balance,
		       COALESCE(MAX(p.created_at), m.created_at) AS last_credit
		FROM members m
		JOIN users u ON u.id = m.user_id
		LEFT JOIN payments p ON p.user_id = m.user_id
		WHERE u.status = 'active' AND m.balance < 0
		GROUP BY m.user_id, u.name, m.code, m.balance, m.created_at
		HAVING COALESCE(MAX(p.created_at), m.created_at) < $1
	`, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DelinquentMember
	for rows.Next() {
		var d DelinquentMember
		if err := rows.Scan(&d.UserID, &d.Name, &d.Code, &d.Balance, &d.LastCredit); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// LastCreditDate returns the member's most recent payment time, falling back
// to profile creation when no payment exists.
func (r MemberRepository) LastCreditDate(ctx context.Context, userID int64) (time.Time, error) {
	var t time.Time
	err := r.DB.Pool.QueryRow(ctx, `
		SELECT COALESCE(MAX(p.created_at), m.created_at)
		FROM members m
		LEFT JOIN payments p ON p.user_id = m.user_id
		WHERE m.user_id = $1
		GROUP BY m.created_at
	`, userID).Scan(&t)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return t, ErrNotFound
		}
		return t, err
	}
	return t, nil
}
