package service

import (
	"chapter_tracker_backend/internal/config"
	"chapter_tracker_backend/internal/model"
	"chapter_tracker_backend/internal/repository"
	"chapter_tracker_backend/internal/util"
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type AuthService struct {
	AdminRepo *repository.AdminRepository
	Cfg       *config.Config
}

func NewAuthService(adminRepo *repository.AdminRepository, cfg *config.Config) *AuthService {
	return &AuthService{
		AdminRepo: adminRepo,
		Cfg:       cfg,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register 邮箱已存在返回 ErrEmailRegistered
func (s *AuthService) Register(ctx context.Context, name, email, password string) (*model.Admin, string, error) {
	email = normalizeEmail(email)
	_, err := s.AdminRepo.FindByEmail(ctx, email)
	if err == nil {
		return nil, "", util.ErrEmailRegistered
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, "", err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return nil, "", util.NewValidationError("password", "must be at most 72 bytes")
		}
		return nil, "", err
	}

	admin := &model.Admin{
		Name:     strings.TrimSpace(name),
		Email:    email,
		Password: string(hashedPassword),
	}
	if err := s.AdminRepo.Create(ctx, admin); err != nil {
		// 并发注册时由唯一索引兜底
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, "", util.ErrEmailRegistered
		}
		return nil, "", err
	}

	token, err := util.GenerateJWT(admin, s.Cfg.JWT.Secret, s.Cfg.JWT.ExpireTime())
	if err != nil {
		return nil, "", fmt.Errorf("sign token: %w", err)
	}
	return admin, token, nil
}

// Login 邮箱不存在返回 ErrAdminNotFound，密码错误返回 ErrInvalidCredentials
func (s *AuthService) Login(ctx context.Context, email, password string) (*model.Admin, string, error) {
	admin, err := s.AdminRepo.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", util.ErrAdminNotFound
		}
		return nil, "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(admin.Password), []byte(password)); err != nil {
		return nil, "", util.ErrInvalidCredentials
	}

	token, err := util.GenerateJWT(admin, s.Cfg.JWT.Secret, s.Cfg.JWT.ExpireTime())
	if err != nil {
		return nil, "", fmt.Errorf("sign token: %w", err)
	}
	return admin, token, nil
}

// Verify 校验令牌，并确认管理员仍然存在
func (s *AuthService) Verify(ctx context.Context, token string) (*util.Claims, error) {
	claims, err := util.ParseJWT(token, s.Cfg.JWT.Secret)
	if err != nil {
		return nil, err
	}

	if _, err := s.AdminRepo.FindByID(ctx, claims.AdminID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrAdminGone
		}
		return nil, err
	}
	return claims, nil
}
