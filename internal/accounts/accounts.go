// Package accounts authenticates Dungeon Masters. The rest of the system
// only ever sees the opaque owner id this package yields for a request.
package accounts

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/dmtable/encounter-backend/internal/apperr"
)

const tokenTTL = 7 * 24 * time.Hour

// Account is a DM login.
type Account struct {
	ID           uint   `gorm:"primaryKey"`
	Email        string `gorm:"uniqueIndex;not null"`
	PasswordHash string `gorm:"not null"`
	DisplayName  string
	CreatedAt    time.Time
}

func (Account) TableName() string { return "dm_users" }

type claims struct {
	jwt.RegisteredClaims
	AccountID uint `json:"account_id"`
}

// Service signs up, logs in, and verifies bearer tokens.
type Service struct {
	db     *gorm.DB
	secret []byte
}

func NewService(db *gorm.DB, secret string) (*Service, error) {
	if secret == "" {
		return nil, apperr.InvalidArgument("jwt secret is required")
	}
	if err := db.AutoMigrate(&Account{}); err != nil {
		return nil, apperr.Wrap(err, "migrate accounts")
	}
	return &Service{db: db, secret: []byte(secret)}, nil
}

// Signup creates an account and returns it with a fresh token.
func (s *Service) Signup(ctx context.Context, email, password, displayName string) (*Account, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, "", apperr.InvalidArgument("a valid email is required")
	}
	if len(password) < 8 {
		return nil, "", apperr.InvalidArgument("password must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", apperr.Wrap(err, "hash password")
	}
	acct := &Account{Email: email, PasswordHash: string(hash), DisplayName: displayName}

	var existing Account
	err = s.db.WithContext(ctx).First(&existing, "email = ?", email).Error
	if err == nil {
		return nil, "", apperr.AlreadyExists("an account with that email already exists")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, "", apperr.Wrap(err, "check email")
	}
	if err := s.db.WithContext(ctx).Create(acct).Error; err != nil {
		return nil, "", apperr.Wrap(err, "create account")
	}

	token, err := s.issue(acct.ID)
	if err != nil {
		return nil, "", err
	}
	return acct, token, nil
}

// Login verifies credentials and returns the account with a fresh token.
// Unknown email and wrong password are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (*Account, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var acct Account
	err := s.db.WithContext(ctx).First(&acct, "email = ?", email).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, "", apperr.Unauthenticated("invalid email or password")
	}
	if err != nil {
		return nil, "", apperr.Wrap(err, "load account")
	}
	if bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(password)) != nil {
		return nil, "", apperr.Unauthenticated("invalid email or password")
	}
	token, err := s.issue(acct.ID)
	if err != nil {
		return nil, "", err
	}
	return &acct, token, nil
}

// Get loads an account by id.
func (s *Service) Get(ctx context.Context, id uint) (*Account, error) {
	var acct Account
	err := s.db.WithContext(ctx).First(&acct, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("account not found")
	}
	if err != nil {
		return nil, apperr.Wrap(err, "load account")
	}
	return &acct, nil
}

func (s *Service) issue(accountID uint) (string, error) {
	now := time.Now()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
		},
		AccountID: accountID,
	})
	signed, err := tok.SignedString(s.secret)
	if err != nil {
		return "", apperr.Wrap(err, "sign token")
	}
	return signed, nil
}

// Verify parses a bearer token and returns the owner id it carries.
func (s *Service) Verify(token string) (uint, error) {
	var c claims
	parsed, err := jwt.ParseWithClaims(token, &c, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, apperr.Unauthenticated("unexpected signing method")
		}
		return s.secret, nil
	})
	if err != nil || !parsed.Valid {
		return 0, apperr.Unauthenticated("invalid or expired token")
	}
	return c.AccountID, nil
}
