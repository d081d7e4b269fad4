package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/monocle-dev/taskflow/internal/models"
	"github.com/monocle-dev/taskflow/internal/types"
	"github.com/monocle-dev/taskflow/internal/visibility"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const minPasswordLength = 6

type UserInput struct {
	Name      string
	Email     string
	Password  string
	Role      models.Role
	CompanyID string
}

type UserPatch struct {
	Name      *string
	Role      *models.Role
	IsActive  *bool
	CompanyID *string
}

type UserService struct {
	db  *gorm.DB
	log *slog.Logger
}

func NewUserService(db *gorm.DB, log *slog.Logger) *UserService {
	return &UserService{db: db, log: log}
}

// Create adds a user on behalf of caller. Admins may create any user;
// managers create managers and staff inside their own company.
func (s *UserService) Create(ctx context.Context, caller types.Identity, in UserInput) (models.User, error) {
	switch caller.Role {
	case models.RoleAdmin:
	case models.RoleManager:
		if in.Role == models.RoleAdmin {
			return models.User{}, types.Errorf(types.ErrForbidden, "Managers cannot create admins")
		}
		if in.CompanyID == "" {
			in.CompanyID = caller.CompanyID
		}
		if in.CompanyID != caller.CompanyID {
			return models.User{}, types.Errorf(types.ErrForbidden, "Managers can only add users to their own company")
		}
	default:
		return models.User{}, types.Errorf(types.ErrForbidden, "Not authorized to create users")
	}

	return s.create(ctx, in)
}

// Register is the public sign-up path. It always creates staff.
func (s *UserService) Register(ctx context.Context, in UserInput) (models.User, error) {
	in.Role = models.RoleStaff
	return s.create(ctx, in)
}

// CreateAdmin bootstraps an administrator without a calling identity.
func (s *UserService) CreateAdmin(ctx context.Context, name, email, password string) (models.User, error) {
	return s.create(ctx, UserInput{Name: name, Email: email, Password: password, Role: models.RoleAdmin})
}

func (s *UserService) create(ctx context.Context, in UserInput) (models.User, error) {
	name := strings.TrimSpace(in.Name)
	email := strings.ToLower(strings.TrimSpace(in.Email))

	if name == "" || email == "" {
		return models.User{}, types.Errorf(types.ErrValidation, "Name and email are required")
	}
	if !in.Role.Valid() {
		return models.User{}, types.Errorf(types.ErrValidation, "Invalid role %q", in.Role)
	}
	if len(in.Password) < minPasswordLength {
		return models.User{}, types.Errorf(types.ErrValidation, "Password must be at least %d characters", minPasswordLength)
	}

	var companyID *string
	if in.CompanyID != "" {
		companyID = &in.CompanyID
	}

	if in.Role != models.RoleAdmin && companyID == nil {
		return models.User{}, types.Errorf(types.ErrValidation, "Company is required for %s users", in.Role)
	}

	if companyID != nil {
		var company models.Company
		if err := s.db.WithContext(ctx).Select("id").Where("id = ?", *companyID).First(&company).Error; err != nil {
			return models.User{}, lookupErr(err, "Company")
		}
	}

	var existing int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).Count(&existing).Error; err != nil {
		return models.User{}, types.Internal("check email", err)
	}
	if existing > 0 {
		return models.User{}, types.Errorf(types.ErrConflict, "Email already exists")
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, types.Internal("hash password", err)
	}

	user := models.User{
		Name:         name,
		Email:        email,
		PasswordHash: string(passwordHash),
		Role:         in.Role,
		CompanyID:    companyID,
		IsActive:     true,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return writeErr(err, "create user", "Email already exists")
		}
		return adjustTotalUsers(tx, user.CompanyID, 1)
	})

	if err != nil {
		return models.User{}, err
	}

	s.log.Info("user created", "user_id", user.ID, "role", user.Role)

	return user, nil
}

func adjustTotalUsers(tx *gorm.DB, companyID *string, delta int) error {
	if companyID == nil {
		return nil
	}

	err := tx.Model(&models.Company{}).
		Where("id = ?", *companyID).
		UpdateColumn("total_users", gorm.Expr("total_users + ?", delta)).Error

	if err != nil {
		return types.Internal("update company user total", err)
	}
	return nil
}

// Authenticate checks credentials for login.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (models.User, error) {
	var user models.User

	err := s.db.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.User{}, types.Errorf(types.ErrValidation, "Invalid email or password")
		}
		return models.User{}, types.Internal("find user", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return models.User{}, types.Errorf(types.ErrValidation, "Invalid email or password")
	}

	if !user.IsActive {
		return models.User{}, types.Errorf(types.ErrForbidden, "Account is disabled")
	}

	return user, nil
}

func (s *UserService) List(ctx context.Context, caller types.Identity, f visibility.UserFilter) ([]models.User, error) {
	scope, err := visibility.For(caller)
	if err != nil {
		return nil, err
	}

	if f.Role != "" && !f.Role.Valid() {
		return nil, types.Errorf(types.ErrValidation, "Invalid role %q", f.Role)
	}

	users := []models.User{}
	if err := scope.Users(s.db.WithContext(ctx).Model(&models.User{}), f).Order("users.name").Find(&users).Error; err != nil {
		return nil, types.Internal("list users", err)
	}

	return users, nil
}

func (s *UserService) Get(ctx context.Context, caller types.Identity, id string) (models.User, error) {
	scope, err := visibility.For(caller)
	if err != nil {
		return models.User{}, err
	}

	var user models.User
	if err := scope.Users(s.db.WithContext(ctx).Model(&models.User{}), visibility.UserFilter{}).Where("users.id = ?", id).First(&user).Error; err != nil {
		return models.User{}, lookupErr(err, "User")
	}

	return user, nil
}

func (s *UserService) Update(ctx context.Context, caller types.Identity, id string, patch UserPatch) (models.User, error) {
	user, err := s.Get(ctx, caller, id)
	if err != nil {
		return models.User{}, err
	}

	if caller.Role == models.RoleStaff && (patch.Role != nil || patch.IsActive != nil || patch.CompanyID != nil) {
		return models.User{}, types.Errorf(types.ErrForbidden, "Not authorized to change role, status or company")
	}
	if caller.Role == models.RoleManager {
		if patch.Role != nil && *patch.Role == models.RoleAdmin {
			return models.User{}, types.Errorf(types.ErrForbidden, "Managers cannot grant the admin role")
		}
		if patch.CompanyID != nil {
			return models.User{}, types.Errorf(types.ErrForbidden, "Managers cannot move users between companies")
		}
	}

	updates := make(map[string]interface{})

	if v := trimmed(patch.Name); v != nil {
		if *v == "" {
			return models.User{}, types.Errorf(types.ErrValidation, "Name cannot be empty")
		}
		updates["name"] = *v
	}

	role := user.Role
	if patch.Role != nil {
		if !patch.Role.Valid() {
			return models.User{}, types.Errorf(types.ErrValidation, "Invalid role %q", *patch.Role)
		}
		role = *patch.Role
		updates["role"] = role
	}

	if patch.IsActive != nil {
		updates["is_active"] = *patch.IsActive
	}

	newCompany := user.CompanyID
	if patch.CompanyID != nil {
		newCompany = nil
		if *patch.CompanyID != "" {
			var company models.Company
			if err := s.db.WithContext(ctx).Select("id").Where("id = ?", *patch.CompanyID).First(&company).Error; err != nil {
				return models.User{}, lookupErr(err, "Company")
			}
			newCompany = patch.CompanyID
		}
		updates["company_id"] = newCompany
	}

	if role != models.RoleAdmin && newCompany == nil {
		return models.User{}, types.Errorf(types.ErrValidation, "Company is required for %s users", role)
	}

	if len(updates) == 0 {
		return models.User{}, types.Errorf(types.ErrValidation, "No valid fields to update")
	}

	moved := patch.CompanyID != nil && !sameCompany(user.CompanyID, newCompany)

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.User{}).Where("id = ?", user.ID).Updates(updates).Error; err != nil {
			return types.Internal("update user", err)
		}
		if !moved {
			return nil
		}
		if err := adjustTotalUsers(tx, user.CompanyID, -1); err != nil {
			return err
		}
		return adjustTotalUsers(tx, newCompany, 1)
	})

	if err != nil {
		return models.User{}, err
	}

	if err := s.db.WithContext(ctx).First(&user, "id = ?", user.ID).Error; err != nil {
		return models.User{}, lookupErr(err, "User")
	}

	return user, nil
}

func sameCompany(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func (s *UserService) Delete(ctx context.Context, caller types.Identity, id string) error {
	if caller.Role == models.RoleStaff {
		return types.Errorf(types.ErrForbidden, "Not authorized to delete users")
	}
	if caller.ID == id {
		return types.Errorf(types.ErrValidation, "You cannot delete your own account")
	}

	user, err := s.Get(ctx, caller, id)
	if err != nil {
		return err
	}

	if caller.Role == models.RoleManager && user.Role == models.RoleAdmin {
		return types.Errorf(types.ErrForbidden, "Managers cannot delete admins")
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.User{}, "id = ?", user.ID).Error; err != nil {
			return types.Internal("delete user", err)
		}
		return adjustTotalUsers(tx, user.CompanyID, -1)
	})

	if err != nil {
		return err
	}

	s.log.Info("user deleted", "user_id", user.ID, "deleted_by", caller.ID)

	return nil
}
