package usecase

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"ohmage/internal/domain"
)

const minPasswordLength = 8

type CreateUserRequest struct {
	Username string
	Password string
	Email    string
}

type CreateUserResponse struct {
	User domain.User
}

type CreateUser struct {
	Users      UserRepository
	BcryptCost int
	Now        Clock
}

func (uc *CreateUser) Execute(ctx context.Context, req CreateUserRequest) (*CreateUserResponse, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" {
		return nil, fmt.Errorf("%w: username is required", domain.ErrInvalidInput)
	}
	if len(req.Password) < minPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", domain.ErrInvalidInput, minPasswordLength)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), uc.cost())
	if err != nil {
		return nil, err
	}
	user := domain.User{
		Username:     username,
		PasswordHash: string(hash),
		Email:        strings.TrimSpace(req.Email),
		CreatedAt:    uc.now(),
	}
	if err := uc.Users.Create(ctx, user); err != nil {
		return nil, err
	}
	return &CreateUserResponse{User: user}, nil
}

func (uc *CreateUser) cost() int {
	if uc.BcryptCost >= bcrypt.MinCost && uc.BcryptCost <= bcrypt.MaxCost {
		return uc.BcryptCost
	}
	return bcrypt.DefaultCost
}

func (uc *CreateUser) now() time.Time {
	if uc != nil && uc.Now != nil {
		return uc.Now()
	}
	return time.Now().UTC()
}

type RegisterClientRequest struct {
	Name        string
	Description string
	Owner       string
}

type RegisterClientResponse struct {
	Client domain.Client

	// Secret is the only copy of the plaintext; the store keeps a
	// bcrypt hash.
	Secret string
}

type RegisterClient struct {
	Clients    ClientRepository
	BcryptCost int
	Now        Clock
}

func (uc *RegisterClient) Execute(ctx context.Context, req RegisterClientRequest) (*RegisterClientResponse, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: client name is required", domain.ErrInvalidInput)
	}
	if req.Owner == "" {
		return nil, fmt.Errorf("%w: client owner is required", domain.ErrInvalidInput)
	}
	secret, err := newClientSecret()
	if err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), uc.cost())
	if err != nil {
		return nil, err
	}
	client := domain.Client{
		ID:          uuid.NewString(),
		SecretHash:  string(hash),
		Name:        name,
		Description: strings.TrimSpace(req.Description),
		Owner:       req.Owner,
		CreatedAt:   uc.now(),
	}
	if err := uc.Clients.Create(ctx, client); err != nil {
		return nil, err
	}
	return &RegisterClientResponse{Client: client, Secret: secret}, nil
}

func (uc *RegisterClient) cost() int {
	if uc.BcryptCost >= bcrypt.MinCost && uc.BcryptCost <= bcrypt.MaxCost {
		return uc.BcryptCost
	}
	return bcrypt.DefaultCost
}

func (uc *RegisterClient) now() time.Time {
	if uc != nil && uc.Now != nil {
		return uc.Now()
	}
	return time.Now().UTC()
}

func newClientSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
