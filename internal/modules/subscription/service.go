package subscription

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	netmail "net/mail"
	"strings"

	"github.com/labnotes/dailyhi/internal/database"
	"github.com/labnotes/dailyhi/internal/models"
	"github.com/labnotes/dailyhi/internal/modules/timezone"
	"github.com/labnotes/dailyhi/internal/pkg/mail"
	"github.com/labnotes/dailyhi/internal/pkg/pagination"
	"github.com/labnotes/dailyhi/internal/pkg/response"
	"go.uber.org/zap"
)

var (
	ErrInvalidEmail    = errors.New("email is invalid")
	ErrDuplicateEmail  = errors.New("email has already been taken")
	ErrInvalidTimezone = errors.New("timezone is invalid")
)

// IsValidation reports whether err is caused by bad user input.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidEmail) ||
		errors.Is(err, ErrDuplicateEmail) ||
		errors.Is(err, ErrInvalidTimezone)
}

// VerifyMailer sends the address verification email.
type VerifyMailer interface {
	SendVerify(ctx context.Context, to string, data mail.VerifyData) error
}

type Service struct {
	store   Store
	mx      MXLookup
	mailer  VerifyMailer
	baseURL string
	logger  *zap.Logger
}

func NewService(store Store, mx MXLookup, mailer VerifyMailer, baseURL string, logger *zap.Logger) *Service {
	return &Service{
		store:   store,
		mx:      mx,
		mailer:  mailer,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger.Named("SubscriptionService"),
	}
}

// NormalizeEmail parses raw into a lowercase bare address.
func NormalizeEmail(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrInvalidEmail
	}
	addr, err := netmail.ParseAddress(raw)
	if err != nil {
		return "", ErrInvalidEmail
	}
	email := strings.ToLower(addr.Address)
	at := strings.LastIndexByte(email, '@')
	if at < 1 || at == len(email)-1 {
		return "", ErrInvalidEmail
	}
	return email, nil
}

func domainOf(email string) string {
	return email[strings.LastIndexByte(email, '@')+1:]
}

func newCode() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// Subscribe stores a new unverified subscription and sends the verification email once.
// A failed verification send is logged: the row already exists.
func (s *Service) Subscribe(ctx context.Context, emailRaw string, offset int) (*models.Subscription, error) {
	email, err := NormalizeEmail(emailRaw)
	if err != nil {
		return nil, err
	}
	if !timezone.Valid(offset) {
		return nil, ErrInvalidTimezone
	}

	// Early answer only; the unique index decides.
	exists, err := s.store.EmailExists(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if exists {
		return nil, ErrDuplicateEmail
	}

	if !s.mx.HasMailExchanger(ctx, domainOf(email)) {
		return nil, ErrInvalidEmail
	}

	code, err := newCode()
	if err != nil {
		return nil, fmt.Errorf("generate code: %w", err)
	}
	sub := &models.Subscription{
		Email:          email,
		Code:           code,
		Verified:       false,
		TimezoneOffset: offset,
	}
	if err := s.store.Insert(ctx, sub); err != nil {
		if database.IsDuplicateKey(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("insert subscription: %w", err)
	}

	if err := s.mailer.SendVerify(ctx, sub.Email, mail.VerifyData{VerifyURL: s.VerifyURL(sub.Code)}); err != nil {
		s.logger.Error("failed to send verification email", zap.String("email", sub.Email), zap.Error(err))
	}
	return sub, nil
}

// Verify marks the subscription verified. Unknown or already verified codes affect 0 rows.
func (s *Service) Verify(ctx context.Context, code string) (int64, error) {
	n, err := s.store.UpdateVerified(ctx, code)
	if err != nil {
		return 0, fmt.Errorf("verify subscription: %w", err)
	}
	return n, nil
}

// Unsubscribe deletes the subscription holding code.
func (s *Service) Unsubscribe(ctx context.Context, code string) (int64, error) {
	n, err := s.store.Delete(ctx, code)
	if err != nil {
		return 0, fmt.Errorf("delete subscription: %w", err)
	}
	return n, nil
}

// Retimezone moves the subscription to another offset bucket.
func (s *Service) Retimezone(ctx context.Context, code string, offset int) (int64, error) {
	if !timezone.Valid(offset) {
		return 0, ErrInvalidTimezone
	}
	n, err := s.store.UpdateTimezone(ctx, code, offset)
	if err != nil {
		return 0, fmt.Errorf("update timezone: %w", err)
	}
	return n, nil
}

// Find returns the subscription holding code, or nil.
func (s *Service) Find(ctx context.Context, code string) (*models.Subscription, error) {
	return s.store.FindByCode(ctx, code)
}

func (s *Service) ListVerified(ctx context.Context, q pagination.Query) ([]models.Subscription, response.Pagination, error) {
	return s.store.ListVerified(ctx, q)
}

func (s *Service) CountVerified(ctx context.Context) (int64, error) {
	return s.store.CountVerified(ctx)
}

func (s *Service) VerifiedEmails(ctx context.Context) ([]string, error) {
	return s.store.VerifiedEmails(ctx)
}

func (s *Service) VerifyURL(code string) string {
	return s.baseURL + "/verify/" + code
}
