package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/tasklist/apiserver/internal/store"
	"github.com/tasklist/apiserver/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("github.com/tasklist/apiserver/internal/services")

var (
	// ErrUnauthorized covers unknown emails and wrong passwords alike.
	ErrUnauthorized = errors.New("incorrect email or password")
	// ErrEmailTaken is returned when registering an email that already exists.
	ErrEmailTaken = errors.New("email already registered")
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByEmail(ctx context.Context, email string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
}

// UserService encapsulates registration and credential checks.
type UserService struct {
	repo   UserRepository
	scheme CredentialScheme
	// dummy is verified against when the email is unknown so both failure
	// paths do the same amount of work.
	dummy string
}

func NewUserService(repo UserRepository, scheme CredentialScheme) (*UserService, error) {
	dummy, err := scheme.Derive("not-a-real-password")
	if err != nil {
		return nil, fmt.Errorf("derive dummy credential: %w", err)
	}
	return &UserService{repo: repo, scheme: scheme, dummy: dummy}, nil
}

// RegisterInput holds the fields accepted at registration.
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// Register creates a user. It does not authenticate the caller.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (types.User, error) {
	ctx, span := tracer.Start(ctx, "UserService.Register")
	defer span.End()

	if _, err := s.repo.GetByEmail(ctx, in.Email); err == nil {
		return types.User{}, ErrEmailTaken
	} else if !errors.Is(err, store.ErrNotFound) {
		return types.User{}, fmt.Errorf("check existing user: %w", err)
	}

	credential, err := s.scheme.Derive(in.Password)
	if err != nil {
		return types.User{}, fmt.Errorf("derive credential: %w", err)
	}

	user, err := s.repo.Create(ctx, types.User{
		Email:      in.Email,
		Credential: credential,
		FirstName:  in.FirstName,
		LastName:   in.LastName,
	})
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return types.User{}, ErrEmailTaken
		}
		return types.User{}, fmt.Errorf("create user: %w", err)
	}

	span.SetAttributes(attribute.Int("user.id", user.ID))
	return user, nil
}

// Authenticate resolves the user owning email if password matches.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (types.User, error) {
	ctx, span := tracer.Start(ctx, "UserService.Authenticate")
	defer span.End()

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrInvalidValue) {
			s.scheme.Verify(s.dummy, password)
			return types.User{}, ErrUnauthorized
		}
		return types.User{}, fmt.Errorf("load user: %w", err)
	}

	if !s.scheme.Verify(user.Credential, password) {
		return types.User{}, ErrUnauthorized
	}

	span.SetAttributes(attribute.Int("user.id", user.ID))
	return user, nil
}
