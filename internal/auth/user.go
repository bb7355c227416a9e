package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrEmailTaken         = errors.New("email already used")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

type User struct {
	ID           string    `gorm:"primaryKey;type:text"`
	Email        string    `gorm:"uniqueIndex;not null"`
	PasswordHash string    `gorm:"not null"`
	CreatedAt    time.Time `gorm:"not null;default:now()"`
}

// Users persists password accounts.
type Users interface {
	Create(ctx context.Context, u *User) error
	ByEmail(ctx context.Context, email string) (User, error)
}

// Accounts registers and authenticates password users. Every account is a
// durable identity.
type Accounts struct {
	Users Users
}

func NormalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}

func (a *Accounts) Register(ctx context.Context, email, password string) (Identity, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return Identity{}, err
	}
	u := User{ID: uuid.NewString(), Email: NormalizeEmail(email), PasswordHash: hash}
	if err := a.Users.Create(ctx, &u); err != nil {
		return Identity{}, err
	}
	return Identity{ID: u.ID, Durable: true}, nil
}

func (a *Accounts) Login(ctx context.Context, email, password string) (Identity, error) {
	u, err := a.Users.ByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return Identity{}, ErrInvalidCredentials
	}
	if !ComparePassword(u.PasswordHash, password) {
		return Identity{}, ErrInvalidCredentials
	}
	return Identity{ID: u.ID, Durable: true}, nil
}

type GormUsers struct {
	DB *gorm.DB
}

func (g *GormUsers) Create(ctx context.Context, u *User) error {
	if err := g.DB.WithContext(ctx).Create(u).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "duplicate key") {
			return ErrEmailTaken
		}
		return err
	}
	return nil
}

func (g *GormUsers) ByEmail(ctx context.Context, email string) (User, error) {
	var u User
	err := g.DB.WithContext(ctx).Where("email = ?", email).First(&u).Error
	return u, err
}

// MemoryUsers keeps accounts in process.
type MemoryUsers struct {
	mu      sync.Mutex
	byEmail map[string]User
}

func NewMemoryUsers() *MemoryUsers {
	return &MemoryUsers{byEmail: map[string]User{}}
}

func (m *MemoryUsers) Create(_ context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byEmail[u.Email]; ok {
		return ErrEmailTaken
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}
	m.byEmail[u.Email] = *u
	return nil
}

func (m *MemoryUsers) ByEmail(_ context.Context, email string) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byEmail[email]
	if !ok {
		return User{}, gorm.ErrRecordNotFound
	}
	return u, nil
}
