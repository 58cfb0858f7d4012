package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"hallmeal-backend/internal/billing"
	"hallmeal-backend/internal/domain"
	"hallmeal-backend/internal/repository"
)

var ErrDuplicateMember = errors.New("email or member id already registered")

// ClearanceError rejects the active->ex transition while dues are pending.
type ClearanceError struct {
	Due decimal.Decimal
}

func (e ClearanceError) Error() string {
	return fmt.Sprintf("clearance failed: member has pending dues of %s", e.Due.StringFixed(2))
}

type MemberService struct {
	Members  repository.MemberRepository
	Payments repository.PaymentRepository
	Logger   *slog.Logger
}

type RegisterMemberInput struct {
	Name              string
	Email             string
	HallID            int64
	Type              domain.MemberType
	Code              string
	Preference        domain.MeatPreference
	Details           domain.MemberDetails
	UseCodeAsPassword bool
}

// Register creates the account and profile. Returns the generated initial
// password so the admin can hand it over.
func (s MemberService) Register(ctx context.Context, in RegisterMemberInput) (*repository.MemberWithUser, string, error) {
	if in.Preference == "" {
		in.Preference = domain.PrefBeef
	}

	password := in.Code
	if !in.UseCodeAsPassword {
		password = strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("hash password: %w", err)
	}

	member, err := s.Members.Create(ctx, repository.CreateMemberParams{
		Name:         in.Name,
		Email:        in.Email,
		HallID:       in.HallID,
		Type:         in.Type,
		Code:         in.Code,
		Preference:   in.Preference,
		PasswordHash: string(hash),
		Details:      in.Details,
	})
	if err != nil {
		if repository.IsDuplicate(err) {
			return nil, "", ErrDuplicateMember
		}
		return nil, "", err
	}
	return member, password, nil
}

// RegisterBulk registers members one by one and reports per-entry failures
// without aborting the batch.
type BulkResult struct {
	Registered int
	Failures   []string
}

func (s MemberService) RegisterBulk(ctx context.Context, inputs []RegisterMemberInput) (BulkResult, error) {
	var res BulkResult
	for _, in := range inputs {
		if _, _, err := s.Register(ctx, in); err != nil {
			res.Failures = append(res.Failures, fmt.Sprintf("%s: %v", in.Code, err))
			continue
		}
		res.Registered++
	}
	return res, nil
}

type RecordPaymentInput struct {
	UserID      int64
	HallID      int64
	Amount      decimal.Decimal
	PaymentDate time.Time
	Note        string
}

// RecordPayment writes the immutable payment and credits the balance.
func (s MemberService) RecordPayment(ctx context.Context, in RecordPaymentInput) (*domain.Payment, error) {
	if !in.Amount.IsPositive() {
		return nil, errors.New("amount must be positive")
	}
	if _, err := s.Members.GetByUserID(ctx, in.UserID); err != nil {
		return nil, err
	}
	pay, err := s.Payments.Create(ctx, repository.CreatePaymentParams{
		UserID:      in.UserID,
		HallID:      in.HallID,
		Amount:      in.Amount,
		PaymentDate: in.PaymentDate,
		Note:        in.Note,
	})
	if err != nil {
		return nil, err
	}
	s.Logger.Info("payment recorded", "user_id", in.UserID, "code", pay.Code, "amount", in.Amount)
	return pay, nil
}

// ToggleStatus flips a member between active and ex. Going to ex requires
// clearance (balance settled within tolerance); reactivation is
// unconditional.
func (s MemberService) ToggleStatus(ctx context.Context, userID int64) (domain.UserStatus, error) {
	member, err := s.Members.GetByUserID(ctx, userID)
	if err != nil {
		return "", err
	}

	if member.Status == domain.StatusEx {
		if err := s.Members.SetUserStatus(ctx, userID, domain.StatusActive); err != nil {
			return "", err
		}
		return domain.StatusActive, nil
	}

	if !billing.ClearanceOK(member.Balance) {
		return "", ClearanceError{Due: member.Balance.Abs()}
	}
	if err := s.Members.SetUserStatus(ctx, userID, domain.StatusEx); err != nil {
		return "", err
	}
	return domain.StatusEx, nil
}
