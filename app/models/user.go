package models

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	ROLE_USER  = "user"
	ROLE_ADMIN = "admin"

	PLAN_FREE       = "Free"
	PLAN_STARTER    = "Starter"
	PLAN_GROWTH     = "Growth"
	PLAN_ENTERPRISE = "Enterprise"
)

type User struct {
	ID                    uint           `gorm:"primaryKey" json:"id"`
	Email                 string         `gorm:"uniqueIndex;type:varchar(200) CHARACTER SET utf8 COLLATE utf8_bin" json:"email" validate:"required,email,min=5,max=200"`
	Password              string         `gorm:"type:text" json:"-" validate:"required,min=6"`
	Role                  string         `gorm:"type:varchar(50);default:'user'" json:"role" validate:"oneof=user admin"`
	Plan                  string         `gorm:"type:varchar(50);default:'Free'" json:"plan" validate:"oneof=Free Starter Growth Enterprise"`
	RequestCount          int            `gorm:"default:0" json:"request_count"`
	FetchCount            int            `gorm:"default:0" json:"fetch_count"`
	AnalysisCount         int            `gorm:"default:0" json:"analysis_count"`
	SubscriptionExpiresAt *time.Time     `gorm:"type:timestamp;default:null" json:"subscription_expires_at,omitempty"`
	ResetPasswordToken    string         `gorm:"type:varchar(100);default:null;index" json:"-"`
	ResetPasswordSentAt   *time.Time     `gorm:"type:timestamp;default:null" json:"-"`
	LastLoginAt           *time.Time     `gorm:"type:timestamp;default:null" json:"last_login_at"`
	CreatedAt             time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt             time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt             gorm.DeletedAt `gorm:"index" json:"-"`

	Platforms []UserPlatform `gorm:"foreignKey:UserID" json:"platforms,omitempty"`
}

func (u *User) Validate() error {
	v := validator.New()

	return v.Struct(u)
}

func CreateUser(email string, password string) (*User, error) {
	pw, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	u := &User{
		Email:    email,
		Password: pw,
		Role:     ROLE_USER,
		Plan:     PLAN_FREE,
	}

	err = u.Validate()
	if err != nil {
		return nil, err
	}

	return u, nil
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)

	return string(bytes), err
}

// CheckPasswordHash compares the given password with the stored hash.
func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))

	return err == nil
}

// CheckPassword verifies if the provided password matches the user's stored password
func (u *User) CheckPassword(password string) bool {
	return CheckPasswordHash(password, u.Password)
}

// SetPassword hashes and sets a new password for the user
func (u *User) SetPassword(password string) error {
	hashedPassword, err := HashPassword(password)
	if err != nil {
		return err
	}
	u.Password = hashedPassword
	return nil
}

// GenerateResetPasswordToken creates a random token and sets ResetPasswordSentAt
func (u *User) GenerateResetPasswordToken() error {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return err
	}
	u.ResetPasswordToken = hex.EncodeToString(b)
	now := time.Now()
	u.ResetPasswordSentAt = &now
	return nil
}

// IsResetPasswordTokenValid checks if the reset token matches and is not expired (1 hour)
func (u *User) IsResetPasswordTokenValid(token string) bool {
	if u.ResetPasswordToken == "" || u.ResetPasswordSentAt == nil {
		return false
	}
	if u.ResetPasswordToken != token {
		return false
	}
	return time.Since(*u.ResetPasswordSentAt) < time.Hour
}

// ClearResetPasswordRequest clears the reset token fields after use
func (u *User) ClearResetPasswordRequest() {
	u.ResetPasswordToken = ""
	u.ResetPasswordSentAt = nil
}
