package services

import (
	"context"
	"errors"

	"teleshop-backend/internal/auth"
	"teleshop-backend/internal/models"
	"teleshop-backend/internal/repositories"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrTOTPRequired       = errors.New("TOTP code required")
	ErrInvalidTOTP        = errors.New("invalid TOTP code")
)

type AuthService struct {
	staffRepo  *repositories.StaffRepository
	jwtManager *auth.JWTManager
}

func NewAuthService(staffRepo *repositories.StaffRepository, jwtManager *auth.JWTManager) *AuthService {
	return &AuthService{staffRepo: staffRepo, jwtManager: jwtManager}
}

// Login verifies credentials and issues a session token.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	staff, err := s.staffRepo.GetByUsername(ctx, req.Username)
	if err != nil {
		return nil, err
	}
	if staff == nil || staff.PasswordHash == "" || !auth.VerifyPassword(staff.PasswordHash, req.Password) {
		return nil, ErrInvalidCredentials
	}

	token, err := s.jwtManager.GenerateToken(staff)
	if err != nil {
		return nil, err
	}
	return &models.LoginResponse{Token: token, Staff: staff}, nil
}

// SetPassword hashes and stores a staff member's password.
func (s *AuthService) SetPassword(ctx context.Context, staffID int, password string) error {
	if len(password) < 8 {
		return errors.New("password must be at least 8 characters")
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	return s.staffRepo.SetPasswordHash(ctx, staffID, hash)
}

// SetupTOTP generates a fresh TOTP secret for an admin. The secret is stored
// disabled; ConfirmTOTP flips it on after the first valid code.
func (s *AuthService) SetupTOTP(ctx context.Context, staffID int) (*auth.TOTPSetup, error) {
	staff, err := s.staffRepo.GetByID(ctx, staffID)
	if err != nil {
		return nil, err
	}
	if staff == nil {
		return nil, errors.New("staff not found")
	}

	setup, err := auth.GenerateTOTP(staff.Username)
	if err != nil {
		return nil, err
	}
	if err := s.staffRepo.SetTOTP(ctx, staffID, setup.Secret, false); err != nil {
		return nil, err
	}
	return setup, nil
}

// ConfirmTOTP verifies the first code against the stored secret and enables
// the second factor.
func (s *AuthService) ConfirmTOTP(ctx context.Context, staffID int, code string) error {
	staff, err := s.staffRepo.GetByID(ctx, staffID)
	if err != nil {
		return err
	}
	if staff == nil || staff.TOTPSecret == "" {
		return errors.New("TOTP setup not initiated")
	}
	if !auth.VerifyTOTP(code, staff.TOTPSecret) {
		return ErrInvalidTOTP
	}
	return s.staffRepo.SetTOTP(ctx, staffID, staff.TOTPSecret, true)
}

// CheckTOTP gates destructive admin operations. Admins with TOTP enabled must
// supply a valid code; without TOTP enabled the gate is open.
func (s *AuthService) CheckTOTP(ctx context.Context, staffID int, code string) error {
	staff, err := s.staffRepo.GetByID(ctx, staffID)
	if err != nil {
		return err
	}
	if staff == nil {
		return errors.New("staff not found")
	}
	if !staff.TOTPEnabled {
		return nil
	}
	if code == "" {
		return ErrTOTPRequired
	}
	if !auth.VerifyTOTP(code, staff.TOTPSecret) {
		return ErrInvalidTOTP
	}
	return nil
}
