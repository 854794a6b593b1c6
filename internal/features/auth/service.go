package auth

import (
	"context"
	"errors"
	"time"

	"go-qms/internal/common/models"
	"go-qms/internal/features/audit"
	"go-qms/internal/features/user"
	"go-qms/pkg/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

type AuthService interface {
	Register(ctx context.Context, username, password, email, department string) (*models.User, error)
	Login(ctx context.Context, username, password string) (string, error)
}

type AuthServiceImpl struct {
	UserRepo     user.UserRepository
	AuditService audit.AuditService
}

func NewAuthService(userRepo user.UserRepository, auditService audit.AuditService) AuthService {
	return &AuthServiceImpl{
		UserRepo:     userRepo,
		AuditService: auditService,
	}
}

func (s *AuthServiceImpl) Register(ctx context.Context, username, password, email, department string) (*models.User, error) {
	if username == "" || password == "" || email == "" {
		return nil, errors.New("username, password and email are required")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	newUser := models.User{
		ID:         primitive.NewObjectID(),
		Username:   username,
		Password:   string(hashed),
		Email:      email,
		Department: department,
		Status:     "active",
		Roles:      []string{"analyst"},
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}

	if err := s.UserRepo.Create(ctx, &newUser); err != nil {
		return nil, err
	}

	_ = s.AuditService.LogChange(ctx, models.AuditActionCreate, "users", newUser.ID.Hex(), map[string]models.Change{
		"username":   {New: username},
		"email":      {New: email},
		"department": {New: department},
	})

	return &newUser, nil
}

func (s *AuthServiceImpl) Login(ctx context.Context, username, password string) (string, error) {
	u, err := s.UserRepo.FindByUsername(ctx, username)
	if err != nil {
		return "", errors.New("invalid credentials")
	}

	if u.Status != "active" {
		return "", errors.New("account is not active")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)); err != nil {
		return "", errors.New("invalid credentials")
	}

	token, err := utils.GenerateToken(u.ID, u.Roles, u.Department)
	if err != nil {
		return "", err
	}

	now := time.Now()
	u.LastLogin = &now
	u.UpdatedAt = now
	_ = s.UserRepo.Update(ctx, u.ID.Hex(), u)

	_ = s.AuditService.LogChange(ctx, models.AuditActionLogin, "users", u.ID.Hex(), nil)

	return token, nil
}
