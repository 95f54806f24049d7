package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/office-inventory-api/internal/models"
)

const userSelect = `SELECT u.id, u.login, u.password_hash, u.last_name, u.first_name, COALESCE(u.middle_name, '') AS middle_name,
        COALESCE(u.position, '') AS position, COALESCE(u.contact_info, '') AS contact_info, COALESCE(u.phone, '') AS phone,
        u.role_id, r.name AS role_name, u.created_at
        FROM users u LEFT JOIN roles r ON r.id = u.role_id`

// UserRepository provides database access for users, roles and refresh tokens.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new instance of UserRepository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByLogin returns a user by login.
func (r *UserRepository) FindByLogin(ctx context.Context, login string) (*models.User, error) {
	return r.findOne(ctx, userSelect+` WHERE u.login = $1 LIMIT 1`, login)
}

// FindByID returns a user by identifier.
func (r *UserRepository) FindByID(ctx context.Context, id int64) (*models.User, error) {
	return r.findOne(ctx, userSelect+` WHERE u.id = $1 LIMIT 1`, id)
}

func (r *UserRepository) findOne(ctx context.Context, q string, arg interface{}) (*models.User, error) {
	var user models.User
	if err := r.db.GetContext(ctx, &user, q, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &user, nil
}

// LoginExists reports whether login is taken.
func (r *UserRepository) LoginExists(ctx context.Context, login string) (bool, error) {
	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM users WHERE login = $1)`, login); err != nil {
		return false, fmt.Errorf("check login: %w", err)
	}
	return exists, nil
}

// List returns users based on filters with total count.
func (r *UserRepository) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	conditions := []string{"1=1"}
	var args []interface{}

	if filter.Role != nil {
		conditions = append(conditions, fmt.Sprintf("r.name = $%d", len(args)+1))
		args = append(args, *filter.Role)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		placeholder := fmt.Sprintf("$%d", len(args)+1)
		conditions = append(conditions, fmt.Sprintf("(LOWER(u.login) LIKE %[1]s OR LOWER(u.last_name) LIKE %[1]s OR LOWER(u.first_name) LIKE %[1]s)", placeholder))
		args = append(args, "%"+strings.ToLower(search)+"%")
	}
	where := strings.Join(conditions, " AND ")

	allowedSorts := map[string]string{
		"login":      "u.login",
		"last_name":  "u.last_name",
		"created_at": "u.created_at",
		"role":       "r.name",
	}
	sortColumn, ok := allowedSorts[filter.SortBy]
	if !ok {
		sortColumn = "u.last_name"
	}
	sortOrder := strings.ToUpper(filter.SortOrder)
	if sortOrder != "ASC" && sortOrder != "DESC" {
		sortOrder = "ASC"
	}

	_, limit, offset := Page{Number: filter.Page, Size: filter.PageSize}.normalize(20)
	listQuery := fmt.Sprintf("%s WHERE %s ORDER BY %s %s, u.id %s LIMIT %d OFFSET %d", userSelect, where, sortColumn, sortOrder, sortOrder, limit, offset)

	var users []models.User
	if err := r.db.SelectContext(ctx, &users, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM users u LEFT JOIN roles r ON r.id = u.role_id WHERE %s", where)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}
	return users, total, nil
}

// ListByRoles returns users holding any of roles ordered by last and first name.
func (r *UserRepository) ListByRoles(ctx context.Context, roles []models.RoleName) ([]models.ResponsibleCandidate, error) {
	if len(roles) == 0 {
		return nil, nil
	}
	q, args, err := sqlx.In(`SELECT u.id, CONCAT_WS(' ', u.last_name, u.first_name, NULLIF(u.middle_name, '')) AS full_name, r.name AS role_name
        FROM users u JOIN roles r ON r.id = u.role_id
        WHERE r.name IN (?) ORDER BY u.last_name ASC, u.first_name ASC, u.id ASC`, roles)
	if err != nil {
		return nil, fmt.Errorf("build role query: %w", err)
	}
	var candidates []models.ResponsibleCandidate
	if err := r.db.SelectContext(ctx, &candidates, r.db.Rebind(q), args...); err != nil {
		return nil, fmt.Errorf("list users by role: %w", err)
	}
	return candidates, nil
}

// FindRoleByName returns the role row for name.
func (r *UserRepository) FindRoleByName(ctx context.Context, name models.RoleName) (*models.Role, error) {
	var role models.Role
	if err := r.db.GetContext(ctx, &role, `SELECT id, name, COALESCE(description, '') AS description FROM roles WHERE name = $1`, name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find role: %w", err)
	}
	return &role, nil
}

// ListRoles returns every role ordered by id.
func (r *UserRepository) ListRoles(ctx context.Context) ([]models.Role, error) {
	var roles []models.Role
	if err := r.db.SelectContext(ctx, &roles, `SELECT id, name, COALESCE(description, '') AS description FROM roles ORDER BY id`); err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	return roles, nil
}

// EnsureRole inserts a role unless one with the same name exists and returns the stored row.
func (r *UserRepository) EnsureRole(ctx context.Context, name models.RoleName, description string) (*models.Role, error) {
	const q = `INSERT INTO roles (name, description) VALUES ($1, $2)
        ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
        RETURNING id, name, COALESCE(description, '') AS description`
	var role models.Role
	if err := r.db.GetContext(ctx, &role, q, name, description); err != nil {
		return nil, fmt.Errorf("ensure role: %w", err)
	}
	return &role, nil
}

// Create inserts a user and fills in its id and creation time.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	const q = `INSERT INTO users (login, password_hash, last_name, first_name, middle_name, position, contact_info, phone, role_id)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id, created_at`
	row := r.db.QueryRowxContext(ctx, q, user.Login, user.PasswordHash, user.LastName, user.FirstName, user.MiddleName, user.Position, user.ContactInfo, user.Phone, user.RoleID)
	if err := row.Scan(&user.ID, &user.CreatedAt); err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// Update updates mutable profile fields and the role of a user.
func (r *UserRepository) Update(ctx context.Context, user *models.User) error {
	const q = `UPDATE users SET last_name = $2, first_name = $3, middle_name = $4, position = $5, contact_info = $6, phone = $7, role_id = $8 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, q, user.ID, user.LastName, user.FirstName, user.MiddleName, user.Position, user.ContactInfo, user.Phone, user.RoleID)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return requireAffected(res)
}

// UpdatePassword updates the stored password hash.
func (r *UserRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET password_hash = $2 WHERE id = $1`, id, passwordHash)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return requireAffected(res)
}

// Delete removes a user. Equipment and service records keep their rows with the reference cleared.
func (r *UserRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return requireAffected(res)
}

// CreateRefreshToken persists a refresh token entry.
func (r *UserRepository) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	if token.ID == "" {
		token.ID = uuid.NewString()
	}
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now().UTC()
	}
	const q = `INSERT INTO refresh_tokens (id, user_id, token, expires_at, created_at, revoked, revoked_at, ip_address, user_agent) VALUES (:id, :user_id, :token, :expires_at, :created_at, :revoked, :revoked_at, :ip_address, :user_agent)`
	if _, err := r.db.NamedExecContext(ctx, q, token); err != nil {
		return fmt.Errorf("create refresh token: %w", err)
	}
	return nil
}

// FindRefreshToken returns a refresh token by token string.
func (r *UserRepository) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	const q = `SELECT id, user_id, token, expires_at, created_at, revoked, revoked_at, ip_address, user_agent FROM refresh_tokens WHERE token = $1 LIMIT 1`
	var rt models.RefreshToken
	if err := r.db.GetContext(ctx, &rt, q, token); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find refresh token: %w", err)
	}
	return &rt, nil
}

// RevokeRefreshToken marks a token as revoked.
func (r *UserRepository) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE refresh_tokens SET revoked = TRUE, revoked_at = $2 WHERE id = $1`, id, revokedAt); err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	return nil
}

// RevokeUserRefreshTokens revokes all active refresh tokens for a user.
func (r *UserRepository) RevokeUserRefreshTokens(ctx context.Context, userID int64) error {
	const q = `UPDATE refresh_tokens SET revoked = TRUE, revoked_at = $2 WHERE user_id = $1 AND revoked = FALSE`
	if _, err := r.db.ExecContext(ctx, q, userID, time.Now().UTC()); err != nil {
		return fmt.Errorf("revoke user refresh tokens: %w", err)
	}
	return nil
}
