package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"backend/internal/middleware"
	"backend/internal/model"
	"backend/internal/repository"
	"backend/pkg/apperror"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	accessTokenTTL  = 24 * time.Hour
	refreshTokenTTL = 7 * 24 * time.Hour
)

// --- DTOs ---

type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type TokenResponse struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refresh_token"`
}

type CreateUserRequest struct {
	Name       string   `json:"name" binding:"required"`
	Email      string   `json:"email" binding:"required,email"`
	Password   string   `json:"password" binding:"required,min=6"`
	Roles      []string `json:"roles"`
	GroupIDs   []string `json:"group_ids"`
	ApproverID *string  `json:"approver_id"`
}

type UpdateUserRequest struct {
	Name       *string   `json:"name"`
	Email      *string   `json:"email" binding:"omitempty,email"`
	Roles      *[]string `json:"roles"`
	GroupIDs   *[]string `json:"group_ids"`
	ApproverID *string   `json:"approver_id"` // empty string clears the approver
}

type UserResponse struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Email        string   `json:"email"`
	Roles        []string `json:"roles"`
	Groups       []string `json:"groups"`
	ApproverID   *string  `json:"approver_id"`
	ApproverName string   `json:"approver_name,omitempty"`
	CreatedAt    string   `json:"created_at"`
}

// --- Interface ---

type UserService interface {
	Register(ctx context.Context, req RegisterRequest) (*UserResponse, error)
	Login(ctx context.Context, req LoginRequest) (*TokenResponse, error)
	RefreshToken(ctx context.Context, req RefreshTokenRequest) (*TokenResponse, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*UserResponse, error)
	ListUsers(ctx context.Context, principal model.Principal, page, limit int) ([]UserResponse, int64, error)
	CreateUser(ctx context.Context, principal model.Principal, req CreateUserRequest) (*UserResponse, error)
	UpdateUser(ctx context.Context, principal model.Principal, id string, req UpdateUserRequest) (*UserResponse, error)
	DeleteUser(ctx context.Context, principal model.Principal, id string) error
}

type userService struct {
	users   repository.UserRepository
	refdata repository.RefDataRepository
	tokens  repository.RefreshTokenRepository
	audit   repository.AuditRepository
	txm     repository.TransactionManager
}

func NewUserService(
	users repository.UserRepository,
	refdata repository.RefDataRepository,
	tokens repository.RefreshTokenRepository,
	audit repository.AuditRepository,
	txm repository.TransactionManager,
) UserService {
	return &userService{users: users, refdata: refdata, tokens: tokens, audit: audit, txm: txm}
}

// --- Implementation ---

// Register creates an account with the default "user" role.
func (s *userService) Register(ctx context.Context, req RegisterRequest) (*UserResponse, error) {
	if _, err := s.users.GetByEmail(ctx, req.Email); err == nil {
		return nil, apperror.Conflict("email already registered")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	password := string(hashed)

	defaultRole, err := s.refdata.FindRoleByName(ctx, model.RoleUser)
	if err != nil {
		return nil, apperror.Internal(err)
	}

	user := &model.User{
		Name:     req.Name,
		Email:    req.Email,
		Password: &password,
		Roles:    []model.Role{*defaultRole},
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, apperror.Wrap(err, apperror.CodeConflict, "email already registered", 409)
	}

	return mapUserResponse(user), nil
}

func (s *userService) Login(ctx context.Context, req LoginRequest) (*TokenResponse, error) {
	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, apperror.Unauthorized("invalid email or password")
	}
	if user.Password == nil {
		// OAuth-only account; credentials login is not available
		return nil, apperror.Unauthorized("invalid email or password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*user.Password), []byte(req.Password)); err != nil {
		return nil, apperror.Unauthorized("invalid email or password")
	}

	return s.issueTokens(ctx, user)
}

func (s *userService) RefreshToken(ctx context.Context, req RefreshTokenRequest) (*TokenResponse, error) {
	stored, err := s.tokens.FindByToken(ctx, req.RefreshToken)
	if err != nil {
		return nil, apperror.Unauthorized("invalid refresh token")
	}
	if stored.ExpiresAt.Before(time.Now()) {
		return nil, apperror.Unauthorized("refresh token expired")
	}

	user, err := s.users.GetByID(ctx, stored.UserID)
	if err != nil {
		return nil, apperror.Unauthorized("unknown user")
	}

	// Rotate: old refresh tokens for the user are invalidated
	if err := s.tokens.DeleteByUser(ctx, user.ID); err != nil {
		return nil, apperror.Internal(err)
	}

	return s.issueTokens(ctx, user)
}

func (s *userService) issueTokens(ctx context.Context, user *model.User) (*TokenResponse, error) {
	roleNames := make([]string, 0, len(user.Roles))
	for _, r := range user.Roles {
		roleNames = append(roleNames, r.Name)
	}

	claims := jwt.MapClaims{
		"sub":   user.ID.String(),
		"name":  user.Name,
		"roles": roleNames,
		"exp":   time.Now().Add(accessTokenTTL).Unix(),
	}
	accessToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(middleware.GetJWTSecret())
	if err != nil {
		return nil, apperror.Internal(err)
	}

	refresh := &model.RefreshToken{
		UserID:    user.ID,
		Token:     uuid.NewString(),
		ExpiresAt: time.Now().Add(refreshTokenTTL),
	}
	if err := s.tokens.Create(ctx, refresh); err != nil {
		return nil, apperror.Internal(err)
	}

	return &TokenResponse{Token: accessToken, RefreshToken: refresh.Token}, nil
}

func (s *userService) GetUserByID(ctx context.Context, id uuid.UUID) (*UserResponse, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("user not found")
		}
		return nil, apperror.Internal(err)
	}
	return mapUserResponse(user), nil
}

// ListUsers is admin-wide; managers see only users sharing one of their
// groups, everyone else is denied.
func (s *userService) ListUsers(ctx context.Context, principal model.Principal, page, limit int) ([]UserResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	var (
		users []model.User
		total int64
		err   error
	)
	switch principal.Tier {
	case model.TierAdmin:
		users, total, err = s.users.List(ctx, page, limit)
	case model.TierManager:
		users, total, err = s.users.ListByGroupIDs(ctx, principal.GroupIDs, page, limit)
	default:
		return nil, 0, apperror.Forbidden("insufficient permissions to list users")
	}
	if err != nil {
		return nil, 0, apperror.Internal(err)
	}

	responses := make([]UserResponse, 0, len(users))
	for i := range users {
		responses = append(responses, *mapUserResponse(&users[i]))
	}
	return responses, total, nil
}

func (s *userService) CreateUser(ctx context.Context, principal model.Principal, req CreateUserRequest) (*UserResponse, error) {
	if !principal.IsAdmin() {
		return nil, apperror.Forbidden("only admins may create users")
	}

	if _, err := s.users.GetByEmail(ctx, req.Email); err == nil {
		return nil, apperror.Conflict("email already registered")
	}

	roleNames := req.Roles
	if len(roleNames) == 0 {
		roleNames = []string{model.RoleUser}
	}
	roles, err := s.refdata.FindRolesByNames(ctx, roleNames)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	if len(roles) != len(roleNames) {
		return nil, apperror.InvalidInput("one or more roles do not exist")
	}

	groups, err := s.resolveGroups(ctx, req.GroupIDs)
	if err != nil {
		return nil, err
	}

	approverID, err := s.resolveApproverID(ctx, req.ApproverID)
	if err != nil {
		return nil, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	password := string(hashed)

	user := &model.User{
		Name:       req.Name,
		Email:      req.Email,
		Password:   &password,
		ApproverID: approverID,
		Roles:      roles,
		Groups:     groups,
	}

	err = s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.users.Create(txCtx, user); err != nil {
			return apperror.Wrap(err, apperror.CodeConflict, "email already registered", 409)
		}
		return s.logUserAction(txCtx, principal, model.ActionCreateUser, user)
	})
	if err != nil {
		return nil, err
	}

	return mapUserResponse(user), nil
}

func (s *userService) UpdateUser(ctx context.Context, principal model.Principal, id string, req UpdateUserRequest) (*UserResponse, error) {
	if !principal.IsAdmin() {
		return nil, apperror.Forbidden("only admins may update users")
	}

	userID, err := uuid.Parse(id)
	if err != nil {
		return nil, apperror.InvalidInput("invalid user id")
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("user not found")
		}
		return nil, apperror.Internal(err)
	}

	if req.Name != nil && *req.Name != "" {
		user.Name = *req.Name
	}
	if req.Email != nil && *req.Email != "" && *req.Email != user.Email {
		if _, err := s.users.GetByEmail(ctx, *req.Email); err == nil {
			return nil, apperror.Conflict("email already registered")
		}
		user.Email = *req.Email
	}
	if req.ApproverID != nil {
		if *req.ApproverID == "" {
			user.ApproverID = nil
		} else {
			// Plain FK assignment: approver chains are not checked for cycles
			approverID, err := s.resolveApproverID(ctx, req.ApproverID)
			if err != nil {
				return nil, err
			}
			user.ApproverID = approverID
		}
	}

	var roles []model.Role
	if req.Roles != nil {
		roles, err = s.refdata.FindRolesByNames(ctx, *req.Roles)
		if err != nil {
			return nil, apperror.Internal(err)
		}
		if len(roles) != len(*req.Roles) {
			return nil, apperror.InvalidInput("one or more roles do not exist")
		}
	}

	var groups []model.Group
	if req.GroupIDs != nil {
		groups, err = s.resolveGroups(ctx, *req.GroupIDs)
		if err != nil {
			return nil, err
		}
	}

	err = s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.users.Update(txCtx, user); err != nil {
			return apperror.Internal(err)
		}
		if req.Roles != nil {
			if err := s.users.ReplaceRoles(txCtx, user, roles); err != nil {
				return apperror.Internal(err)
			}
		}
		if req.GroupIDs != nil {
			if err := s.users.ReplaceGroups(txCtx, user, groups); err != nil {
				return apperror.Internal(err)
			}
		}
		return s.logUserAction(txCtx, principal, model.ActionUpdateUser, user)
	})
	if err != nil {
		return nil, err
	}

	// Tier or membership may have changed; drop the cached principal
	middleware.ClearPrincipalCache(user.ID.String())

	updated, err := s.users.GetByID(ctx, user.ID)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return mapUserResponse(updated), nil
}

func (s *userService) DeleteUser(ctx context.Context, principal model.Principal, id string) error {
	if !principal.IsAdmin() {
		return apperror.Forbidden("only admins may delete users")
	}

	userID, err := uuid.Parse(id)
	if err != nil {
		return apperror.InvalidInput("invalid user id")
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.NotFound("user not found")
		}
		return apperror.Internal(err)
	}

	err = s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.users.Delete(txCtx, userID); err != nil {
			return apperror.Internal(err)
		}
		return s.logUserAction(txCtx, principal, model.ActionDeleteUser, user)
	})
	if err != nil {
		return err
	}

	middleware.ClearPrincipalCache(userID.String())
	return nil
}

// --- Helpers ---

func (s *userService) resolveGroups(ctx context.Context, groupIDs []string) ([]model.Group, error) {
	if len(groupIDs) == 0 {
		return nil, nil
	}
	ids := make([]uuid.UUID, 0, len(groupIDs))
	for _, raw := range groupIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, apperror.InvalidInput("invalid group id: " + raw)
		}
		ids = append(ids, id)
	}
	groups, err := s.refdata.FindGroupsByIDs(ctx, ids)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	if len(groups) != len(ids) {
		return nil, apperror.InvalidInput("one or more groups do not exist")
	}
	return groups, nil
}

func (s *userService) resolveApproverID(ctx context.Context, raw *string) (*uuid.UUID, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(*raw)
	if err != nil {
		return nil, apperror.InvalidInput("invalid approver id")
	}
	if _, err := s.users.GetByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.InvalidInput("approver does not exist")
		}
		return nil, apperror.Internal(err)
	}
	return &id, nil
}

func (s *userService) logUserAction(ctx context.Context, principal model.Principal, action string, target *model.User) error {
	details, _ := json.Marshal(map[string]string{"email": target.Email})
	actorID := principal.UserID
	entry := model.AuditLog{
		UserID:     &actorID,
		Action:     action,
		EntityID:   target.ID.String(),
		EntityName: target.Name,
		Details:    string(details),
	}
	if err := s.audit.Log(ctx, &entry); err != nil {
		return apperror.Internal(err)
	}
	return nil
}

func mapUserResponse(user *model.User) *UserResponse {
	resp := &UserResponse{
		ID:        user.ID.String(),
		Name:      user.Name,
		Email:     user.Email,
		Roles:     make([]string, 0, len(user.Roles)),
		Groups:    make([]string, 0, len(user.Groups)),
		CreatedAt: user.CreatedAt.Format(time.RFC3339),
	}
	for _, r := range user.Roles {
		resp.Roles = append(resp.Roles, r.Name)
	}
	for _, g := range user.Groups {
		resp.Groups = append(resp.Groups, g.Name)
	}
	if user.ApproverID != nil {
		id := user.ApproverID.String()
		resp.ApproverID = &id
	}
	if user.Approver != nil {
		resp.ApproverName = user.Approver.Name
	}
	return resp
}
