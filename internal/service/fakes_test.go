package service

import (
	"context"
	"time"

	"backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Hand-rolled fakes: each method delegates to an optional fn field so a
// test only stubs what it exercises.

type fakeTxManager struct{}

func (fakeTxManager) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakePublisher struct {
	events []string
}

func (p *fakePublisher) Publish(event string, payload interface{}) {
	p.events = append(p.events, event)
}

type fakeApprovalRepo struct {
	createFn                func(ctx context.Context, approval *model.Approval) error
	findByIDWithRelationsFn func(ctx context.Context, id uuid.UUID) (*model.Approval, error)
	listByRequestFn         func(ctx context.Context, requestID uuid.UUID) ([]model.Approval, error)
	listPendingAllFn        func(ctx context.Context) ([]model.Approval, error)
	listPendingForManagerFn func(ctx context.Context, groupIDs []uuid.UUID, approverID uuid.UUID) ([]model.Approval, error)
	listPendingByApproverFn func(ctx context.Context, approverID uuid.UUID) ([]model.Approval, error)
	updateFn                func(ctx context.Context, approval *model.Approval) error
	deleteFn                func(ctx context.Context, id uuid.UUID) error
}

func (f *fakeApprovalRepo) Create(ctx context.Context, approval *model.Approval) error {
	return f.createFn(ctx, approval)
}

func (f *fakeApprovalRepo) FindByIDWithRelations(ctx context.Context, id uuid.UUID) (*model.Approval, error) {
	return f.findByIDWithRelationsFn(ctx, id)
}

func (f *fakeApprovalRepo) ListByRequest(ctx context.Context, requestID uuid.UUID) ([]model.Approval, error) {
	return f.listByRequestFn(ctx, requestID)
}

func (f *fakeApprovalRepo) ListPendingAll(ctx context.Context) ([]model.Approval, error) {
	return f.listPendingAllFn(ctx)
}

func (f *fakeApprovalRepo) ListPendingForManager(ctx context.Context, groupIDs []uuid.UUID, approverID uuid.UUID) ([]model.Approval, error) {
	return f.listPendingForManagerFn(ctx, groupIDs, approverID)
}

func (f *fakeApprovalRepo) ListPendingByApprover(ctx context.Context, approverID uuid.UUID) ([]model.Approval, error) {
	return f.listPendingByApproverFn(ctx, approverID)
}

func (f *fakeApprovalRepo) Update(ctx context.Context, approval *model.Approval) error {
	return f.updateFn(ctx, approval)
}

func (f *fakeApprovalRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return f.deleteFn(ctx, id)
}

type fakeRequestRepo struct {
	createFn            func(ctx context.Context, req *model.Request) error
	createAttachmentsFn func(ctx context.Context, attachments []model.Attachment) error
	findByIDFn          func(ctx context.Context, id uuid.UUID) (*model.Request, error)
	listAllFn           func(ctx context.Context) ([]model.Request, error)
	listForManagerFn    func(ctx context.Context, groupIDs []uuid.UUID, approverID uuid.UUID) ([]model.Request, error)
	listByUserFn        func(ctx context.Context, userID uuid.UUID) ([]model.Request, error)
	updateStatusFn      func(ctx context.Context, id uuid.UUID, status string) error
}

func (f *fakeRequestRepo) Create(ctx context.Context, req *model.Request) error {
	return f.createFn(ctx, req)
}

func (f *fakeRequestRepo) CreateAttachments(ctx context.Context, attachments []model.Attachment) error {
	return f.createAttachmentsFn(ctx, attachments)
}

func (f *fakeRequestRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Request, error) {
	return f.findByIDFn(ctx, id)
}

func (f *fakeRequestRepo) ListAll(ctx context.Context) ([]model.Request, error) {
	return f.listAllFn(ctx)
}

func (f *fakeRequestRepo) ListForManager(ctx context.Context, groupIDs []uuid.UUID, approverID uuid.UUID) ([]model.Request, error) {
	return f.listForManagerFn(ctx, groupIDs, approverID)
}

func (f *fakeRequestRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Request, error) {
	return f.listByUserFn(ctx, userID)
}

func (f *fakeRequestRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	return f.updateStatusFn(ctx, id, status)
}

type fakeRefDataRepo struct {
	findRoleByNameFn        func(ctx context.Context, name string) (*model.Role, error)
	findRolesByNamesFn      func(ctx context.Context, names []string) ([]model.Role, error)
	listRolesFn             func(ctx context.Context) ([]model.Role, error)
	findGroupByIDFn         func(ctx context.Context, id uuid.UUID) (*model.Group, error)
	findGroupsByIDsFn       func(ctx context.Context, ids []uuid.UUID) ([]model.Group, error)
	listGroupsFn            func(ctx context.Context) ([]model.Group, error)
	findRequestTypeByIDFn   func(ctx context.Context, id uuid.UUID) (*model.RequestType, error)
	findRequestTypeByNameFn func(ctx context.Context, name string) (*model.RequestType, error)
	listRequestTypesFn      func(ctx context.Context) ([]model.RequestType, error)
}

func (f *fakeRefDataRepo) FindRoleByName(ctx context.Context, name string) (*model.Role, error) {
	return f.findRoleByNameFn(ctx, name)
}

func (f *fakeRefDataRepo) FindRolesByNames(ctx context.Context, names []string) ([]model.Role, error) {
	return f.findRolesByNamesFn(ctx, names)
}

func (f *fakeRefDataRepo) ListRoles(ctx context.Context) ([]model.Role, error) {
	return f.listRolesFn(ctx)
}

func (f *fakeRefDataRepo) FindGroupByID(ctx context.Context, id uuid.UUID) (*model.Group, error) {
	return f.findGroupByIDFn(ctx, id)
}

func (f *fakeRefDataRepo) FindGroupsByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Group, error) {
	return f.findGroupsByIDsFn(ctx, ids)
}

func (f *fakeRefDataRepo) ListGroups(ctx context.Context) ([]model.Group, error) {
	return f.listGroupsFn(ctx)
}

func (f *fakeRefDataRepo) FindRequestTypeByID(ctx context.Context, id uuid.UUID) (*model.RequestType, error) {
	return f.findRequestTypeByIDFn(ctx, id)
}

func (f *fakeRefDataRepo) FindRequestTypeByName(ctx context.Context, name string) (*model.RequestType, error) {
	return f.findRequestTypeByNameFn(ctx, name)
}

func (f *fakeRefDataRepo) ListRequestTypes(ctx context.Context) ([]model.RequestType, error) {
	return f.listRequestTypesFn(ctx)
}

type fakeUserRepo struct {
	createFn           func(ctx context.Context, user *model.User) error
	getByIDFn          func(ctx context.Context, id uuid.UUID) (*model.User, error)
	getByEmailFn       func(ctx context.Context, email string) (*model.User, error)
	listFn             func(ctx context.Context, page, limit int) ([]model.User, int64, error)
	listByGroupIDsFn   func(ctx context.Context, groupIDs []uuid.UUID, page, limit int) ([]model.User, int64, error)
	updateFn           func(ctx context.Context, user *model.User) error
	deleteFn           func(ctx context.Context, id uuid.UUID) error
	replaceRolesFn     func(ctx context.Context, user *model.User, roles []model.Role) error
	replaceGroupsFn    func(ctx context.Context, user *model.User, groups []model.Group) error
	findGroupManagerFn func(ctx context.Context, groupID uuid.UUID) (*model.User, error)
}

func (f *fakeUserRepo) Create(ctx context.Context, user *model.User) error {
	return f.createFn(ctx, user)
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	return f.getByIDFn(ctx, id)
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return f.getByEmailFn(ctx, email)
}

func (f *fakeUserRepo) List(ctx context.Context, page, limit int) ([]model.User, int64, error) {
	return f.listFn(ctx, page, limit)
}

func (f *fakeUserRepo) ListByGroupIDs(ctx context.Context, groupIDs []uuid.UUID, page, limit int) ([]model.User, int64, error) {
	return f.listByGroupIDsFn(ctx, groupIDs, page, limit)
}

func (f *fakeUserRepo) Update(ctx context.Context, user *model.User) error {
	return f.updateFn(ctx, user)
}

func (f *fakeUserRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return f.deleteFn(ctx, id)
}

func (f *fakeUserRepo) ReplaceRoles(ctx context.Context, user *model.User, roles []model.Role) error {
	return f.replaceRolesFn(ctx, user, roles)
}

func (f *fakeUserRepo) ReplaceGroups(ctx context.Context, user *model.User, groups []model.Group) error {
	return f.replaceGroupsFn(ctx, user, groups)
}

func (f *fakeUserRepo) FindGroupManager(ctx context.Context, groupID uuid.UUID) (*model.User, error) {
	return f.findGroupManagerFn(ctx, groupID)
}

type fakeRefreshTokenRepo struct {
	created map[string]*model.RefreshToken
}

func newFakeRefreshTokenRepo() *fakeRefreshTokenRepo {
	return &fakeRefreshTokenRepo{created: make(map[string]*model.RefreshToken)}
}

func (f *fakeRefreshTokenRepo) Create(ctx context.Context, token *model.RefreshToken) error {
	f.created[token.Token] = token
	return nil
}

func (f *fakeRefreshTokenRepo) FindByToken(ctx context.Context, token string) (*model.RefreshToken, error) {
	if rt, ok := f.created[token]; ok {
		return rt, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRefreshTokenRepo) DeleteByUser(ctx context.Context, userID uuid.UUID) error {
	for key, rt := range f.created {
		if rt.UserID == userID {
			delete(f.created, key)
		}
	}
	return nil
}

func (f *fakeRefreshTokenRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	var deleted int64
	for key, rt := range f.created {
		if rt.ExpiresAt.Before(now) {
			delete(f.created, key)
			deleted++
		}
	}
	return deleted, nil
}

type fakeAuditRepo struct {
	entries []model.AuditLog
}

func (f *fakeAuditRepo) Log(ctx context.Context, entry *model.AuditLog) error {
	f.entries = append(f.entries, *entry)
	return nil
}

func (f *fakeAuditRepo) List(ctx context.Context, page, limit int) ([]model.AuditLog, int64, error) {
	return f.entries, int64(len(f.entries)), nil
}

type fakeFileTokenRepo struct {
	tokens map[string]*model.FileToken
}

func newFakeFileTokenRepo() *fakeFileTokenRepo {
	return &fakeFileTokenRepo{tokens: make(map[string]*model.FileToken)}
}

func (f *fakeFileTokenRepo) Create(ctx context.Context, token *model.FileToken) error {
	f.tokens[token.Token] = token
	return nil
}

func (f *fakeFileTokenRepo) FindByToken(ctx context.Context, token string) (*model.FileToken, error) {
	if ft, ok := f.tokens[token]; ok {
		return ft, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeFileTokenRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	var deleted int64
	for key, ft := range f.tokens {
		if ft.Expires.Before(now) {
			delete(f.tokens, key)
			deleted++
		}
	}
	return deleted, nil
}
