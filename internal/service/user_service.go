package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/office-inventory-api/internal/models"
	"github.com/noah-isme/office-inventory-api/internal/permission"
	appErrors "github.com/noah-isme/office-inventory-api/pkg/errors"
	"github.com/noah-isme/office-inventory-api/pkg/validation"
)

type userRepository interface {
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	FindByID(ctx context.Context, id int64) (*models.User, error)
	LoginExists(ctx context.Context, login string) (bool, error)
	FindRoleByName(ctx context.Context, name models.RoleName) (*models.Role, error)
	ListRoles(ctx context.Context) ([]models.Role, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id int64) error
	RevokeUserRefreshTokens(ctx context.Context, userID int64) error
}

// UserService handles user administration and self-service profiles.
type UserService struct {
	repo      userRepository
	audit     auditTrail
	evaluator *permission.Evaluator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUserService creates an instance of UserService.
func NewUserService(repo userRepository, audit auditRecorder, evaluator *permission.Evaluator, validate *validator.Validate, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validation.New()
	}
	if evaluator == nil {
		evaluator = permission.NewEvaluator()
	}
	return &UserService{repo: repo, audit: auditTrail{repo: audit, logger: logger}, evaluator: evaluator, validator: validate, logger: logger}
}

// List returns users filtered by role and search text.
func (s *UserService) List(ctx context.Context, filter models.UserFilter) ([]models.User, *models.Pagination, error) {
	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, internal(err, "failed to list users")
	}
	return users, pagination(filter.Page, filter.PageSize, 20, total), nil
}

// Get returns a user by id.
func (s *UserService) Get(ctx context.Context, id int64) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "user not found", "failed to load user")
	}
	return user, nil
}

// Roles lists every role.
func (s *UserService) Roles(ctx context.Context) ([]models.Role, error) {
	roles, err := s.repo.ListRoles(ctx)
	if err != nil {
		return nil, internal(err, "failed to list roles")
	}
	return roles, nil
}

// Create registers a new user. Role defaults to User.
func (s *UserService) Create(ctx context.Context, req models.CreateUserRequest, actor Actor) (*models.User, error) {
	req.Login = strings.TrimSpace(req.Login)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid user payload")
	}

	exists, err := s.repo.LoginExists(ctx, req.Login)
	if err != nil {
		return nil, internal(err, "failed to check login")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "login already in use")
	}

	roleName := req.Role
	if roleName == "" {
		roleName = models.RoleUser
	}
	role, err := s.repo.FindRoleByName(ctx, roleName)
	if err != nil {
		return nil, lookupError(err, "role not found", "failed to load role")
	}

	phone, err := normalizePhone(req.Phone)
	if err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, internal(err, "failed to hash password")
	}

	user := &models.User{
		Login:        req.Login,
		PasswordHash: string(hash),
		LastName:     strings.TrimSpace(req.LastName),
		FirstName:    strings.TrimSpace(req.FirstName),
		MiddleName:   strings.TrimSpace(req.MiddleName),
		Position:     strings.TrimSpace(req.Position),
		ContactInfo:  strings.TrimSpace(req.ContactInfo),
		Phone:        phone,
		RoleID:       &role.ID,
		Role:         &role.Name,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, internal(err, "failed to create user")
	}

	s.audit.record(ctx, actor, models.AuditActionUserCreate, "user", user.ID, nil, map[string]interface{}{"login": user.Login, "role": role.Name})
	return user, nil
}

// Update changes a user's profile fields and role.
func (s *UserService) Update(ctx context.Context, id int64, req models.UpdateUserRequest, actor Actor) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid user payload")
	}
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "user not found", "failed to load user")
	}
	before := *user

	if req.Role != nil && *req.Role != user.RoleValue() {
		if id == actor.ID {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "cannot change your own role")
		}
		role, err := s.repo.FindRoleByName(ctx, *req.Role)
		if err != nil {
			return nil, lookupError(err, "role not found", "failed to load role")
		}
		user.RoleID = &role.ID
		user.Role = &role.Name
	}
	if err := applyProfile(user, req.LastName, req.FirstName, req.MiddleName, req.ContactInfo, req.Phone); err != nil {
		return nil, err
	}
	if req.Position != nil {
		user.Position = strings.TrimSpace(*req.Position)
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, lookupError(err, "user not found", "failed to update user")
	}

	s.audit.record(ctx, actor, models.AuditActionUserUpdate, "user", user.ID, before, user)
	return user, nil
}

// Delete removes a user and revokes their sessions. Users cannot delete themselves.
func (s *UserService) Delete(ctx context.Context, id int64, actor Actor) error {
	if id == actor.ID {
		return appErrors.Clone(appErrors.ErrForbidden, "cannot delete your own account")
	}
	if err := s.repo.RevokeUserRefreshTokens(ctx, id); err != nil {
		s.logger.Warn("failed to revoke refresh tokens of deleted user", zap.Int64("user_id", id), zap.Error(err))
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return lookupError(err, "user not found", "failed to delete user")
	}
	s.audit.record(ctx, actor, models.AuditActionUserDelete, "user", id, nil, nil)
	return nil
}

// GetProfile returns the profile of targetID if actor may view it.
func (s *UserService) GetProfile(ctx context.Context, actor Actor, targetID int64) (*models.User, error) {
	if !s.evaluator.CanOnTarget(actor.Role, permission.ViewProfile, actor.ID, targetID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "cannot view this profile")
	}
	return s.Get(ctx, targetID)
}

// UpdateProfile applies self-service edits to targetID if actor may edit it.
func (s *UserService) UpdateProfile(ctx context.Context, actor Actor, targetID int64, req models.UpdateProfileRequest) (*models.User, error) {
	if !s.evaluator.CanOnTarget(actor.Role, permission.EditProfile, actor.ID, targetID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "cannot edit this profile")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid profile payload")
	}
	user, err := s.repo.FindByID(ctx, targetID)
	if err != nil {
		return nil, lookupError(err, "user not found", "failed to load user")
	}
	before := *user
	if err := applyProfile(user, req.LastName, req.FirstName, req.MiddleName, req.ContactInfo, req.Phone); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, user); err != nil {
		return nil, lookupError(err, "user not found", "failed to update profile")
	}
	s.audit.record(ctx, actor, models.AuditActionUserUpdate, "profile", user.ID, before, user)
	return user, nil
}

func applyProfile(user *models.User, lastName, firstName, middleName, contactInfo, phone *string) error {
	if lastName != nil {
		if strings.TrimSpace(*lastName) == "" {
			return invalid("last_name must not be empty")
		}
		user.LastName = strings.TrimSpace(*lastName)
	}
	if firstName != nil {
		if strings.TrimSpace(*firstName) == "" {
			return invalid("first_name must not be empty")
		}
		user.FirstName = strings.TrimSpace(*firstName)
	}
	if middleName != nil {
		user.MiddleName = strings.TrimSpace(*middleName)
	}
	if contactInfo != nil {
		user.ContactInfo = strings.TrimSpace(*contactInfo)
	}
	if phone != nil {
		normalized, err := normalizePhone(*phone)
		if err != nil {
			return err
		}
		user.Phone = normalized
	}
	return nil
}

func normalizePhone(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", nil
	}
	phone, err := validation.NormalizePhone(raw)
	if err != nil {
		return "", invalid("phone must contain 10 digits or 11 digits starting with 7 or 8")
	}
	return phone, nil
}
