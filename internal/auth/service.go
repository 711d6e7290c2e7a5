package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"lesson-quiz/internal/logger"
)

var (
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrAccountExists        = errors.New("account already exists")
	ErrUserNotFound         = errors.New("user not found")
	ErrInvalidOTP           = errors.New("invalid verification code")
	ErrOTPExpired           = errors.New("verification code expired")
	ErrRegistrationNotFound = errors.New("registration not found")
	ErrInvalidToken         = errors.New("invalid token")
	ErrInvalidField         = errors.New("invalid account field")
	ErrInvalidInput         = errors.New("invalid input")
)

const (
	DefaultTokenTTL       = 24 * time.Hour
	DefaultOTPTTL         = 120 * time.Second
	DefaultMaxOTPAttempts = 5
	otpDigits             = 6
)

type AccountField string

const (
	FieldUsername AccountField = "USERNAME"
	FieldEmail    AccountField = "EMAIL"
)

func ParseAccountField(raw string) (AccountField, error) {
	switch AccountField(strings.ToUpper(strings.TrimSpace(raw))) {
	case FieldUsername:
		return FieldUsername, nil
	case FieldEmail:
		return FieldEmail, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidField, raw)
	}
}

type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"passwordHash"`
	Language     string    `json:"language,omitempty"`
	BirthDate    string    `json:"birthDate,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

type UserRepository interface {
	// CreateUser stores a user and returns it with its id. A taken username
	// or email yields ErrAccountExists.
	CreateUser(ctx context.Context, user User) (User, error)
	UserByID(ctx context.Context, id int64) (User, error)
	UserByUsername(ctx context.Context, username string) (User, error)
	AccountExists(ctx context.Context, field AccountField, value string) (bool, error)
}

// Notifier delivers one-time codes to a new account's email address.
type Notifier interface {
	SendOTP(ctx context.Context, email, code string) error
}

// LogNotifier writes codes to the log instead of sending mail. The code
// itself is only logged when Reveal is set.
type LogNotifier struct {
	Log    *logger.Logger
	Reveal bool
}

func (n LogNotifier) SendOTP(_ context.Context, email, code string) error {
	if n.Reveal {
		n.Log.Info("verification code issued", "email", email, "code", code)
		return nil
	}
	n.Log.Info("verification code issued", "email", email)
	return nil
}

type RegisterInput struct {
	Username  string `json:"username" validate:"required,min=3,max=32,alphanum"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=6,max=72"`
	Language  string `json:"language" validate:"omitempty,alpha,len=2"`
	BirthDate string `json:"birthDate" validate:"omitempty,datetime=2006-01-02"`
}

type Config struct {
	Secret         string
	TokenTTL       time.Duration
	OTPTTL         time.Duration
	MaxOTPAttempts int
}

type Service struct {
	users    UserRepository
	otps     OTPStore
	notifier Notifier
	validate *validator.Validate

	secret      []byte
	tokenTTL    time.Duration
	otpTTL      time.Duration
	maxAttempts int
	now         func() time.Time
}

func NewService(users UserRepository, otps OTPStore, notifier Notifier, cfg Config) *Service {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = DefaultTokenTTL
	}
	if cfg.OTPTTL <= 0 {
		cfg.OTPTTL = DefaultOTPTTL
	}
	if cfg.MaxOTPAttempts <= 0 {
		cfg.MaxOTPAttempts = DefaultMaxOTPAttempts
	}
	return &Service{
		users:       users,
		otps:        otps,
		notifier:    notifier,
		validate:    validator.New(),
		secret:      []byte(cfg.Secret),
		tokenTTL:    cfg.TokenTTL,
		otpTTL:      cfg.OTPTTL,
		maxAttempts: cfg.MaxOTPAttempts,
		now:         time.Now,
	}
}

// Register parks a new account until its one-time code is verified. It
// returns the registration uuid and how long the code stays valid.
func (s *Service) Register(ctx context.Context, in RegisterInput) (string, time.Duration, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Language = strings.ToUpper(strings.TrimSpace(in.Language))
	if err := s.validate.Struct(in); err != nil {
		return "", 0, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	for _, check := range []struct {
		field AccountField
		value string
	}{{FieldUsername, in.Username}, {FieldEmail, in.Email}} {
		taken, err := s.users.AccountExists(ctx, check.field, check.value)
		if err != nil {
			return "", 0, err
		}
		if taken {
			return "", 0, fmt.Errorf("%w: %s", ErrAccountExists, strings.ToLower(string(check.field)))
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return "", 0, err
	}
	code, err := generateCode()
	if err != nil {
		return "", 0, err
	}

	pending := Pending{
		UUID: uuid.NewString(),
		Code: code,
		User: User{
			Username:     in.Username,
			Email:        in.Email,
			PasswordHash: string(hash),
			Language:     in.Language,
			BirthDate:    in.BirthDate,
		},
	}
	if err := s.otps.Save(ctx, pending, s.otpTTL); err != nil {
		return "", 0, err
	}
	if err := s.notifier.SendOTP(ctx, in.Email, code); err != nil {
		_ = s.otps.Delete(ctx, pending.UUID)
		return "", 0, fmt.Errorf("send verification code: %w", err)
	}
	return pending.UUID, s.otpTTL, nil
}

// VerifyStatus reports how long the code of a registration stays valid. An
// unknown or expired registration has no time left.
func (s *Service) VerifyStatus(ctx context.Context, registrationID string) (time.Duration, error) {
	_, left, err := s.otps.Load(ctx, strings.TrimSpace(registrationID))
	if errors.Is(err, ErrRegistrationNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return left, nil
}

// Verify checks the one-time code, creates the account and returns a token.
// Too many wrong codes drop the registration.
func (s *Service) Verify(ctx context.Context, registrationID, code string) (string, error) {
	registrationID = strings.TrimSpace(registrationID)
	pending, left, err := s.otps.Load(ctx, registrationID)
	if errors.Is(err, ErrRegistrationNotFound) {
		return "", ErrOTPExpired
	}
	if err != nil {
		return "", err
	}

	if subtle.ConstantTimeCompare([]byte(pending.Code), []byte(strings.TrimSpace(code))) != 1 {
		pending.Attempts++
		if pending.Attempts >= s.maxAttempts {
			if err := s.otps.Delete(ctx, registrationID); err != nil {
				return "", err
			}
			return "", ErrOTPExpired
		}
		if err := s.otps.Save(ctx, pending, left); err != nil {
			return "", err
		}
		return "", ErrInvalidOTP
	}

	pending.User.CreatedAt = s.now().UTC()
	user, err := s.users.CreateUser(ctx, pending.User)
	if err != nil {
		return "", err
	}
	if err := s.otps.Delete(ctx, registrationID); err != nil {
		return "", err
	}
	return s.IssueToken(user.ID)
}

func (s *Service) Login(ctx context.Context, username, password string) (string, error) {
	user, err := s.users.UserByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, ErrUserNotFound) {
		return "", ErrInvalidCredentials
	}
	if err != nil {
		return "", err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}
	return s.IssueToken(user.ID)
}

func (s *Service) ContainsAccount(ctx context.Context, field AccountField, value string) (bool, error) {
	value = strings.TrimSpace(value)
	if field == FieldEmail {
		value = strings.ToLower(value)
	}
	return s.users.AccountExists(ctx, field, value)
}

func (s *Service) User(ctx context.Context, id int64) (User, error) {
	return s.users.UserByID(ctx, id)
}

func generateCode() (string, error) {
	limit := big.NewInt(1)
	for i := 0; i < otpDigits; i++ {
		limit.Mul(limit, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", otpDigits, n.Int64()), nil
}
