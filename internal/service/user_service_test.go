package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gov-portal-api/internal/dto"
	"github.com/noah-isme/gov-portal-api/internal/models"
	appErrors "github.com/noah-isme/gov-portal-api/pkg/errors"
)

var (
	adminActor      = &models.JWTClaims{UserID: "actor", Role: models.RoleAdmin}
	superAdminActor = &models.JWTClaims{UserID: "root", Role: models.RoleSuperAdmin}
)

type mockUserRepo struct {
	users          map[string]*models.User
	listUsers      []models.User
	listCount      int
	listErr        error
	findByIDErr    error
	findByEmailErr error
	auditLogs      []*models.AuditLog
	lastFilter     models.UserFilter
	updateErr      error
}

func (m *mockUserRepo) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	m.lastFilter = filter
	if m.listErr != nil {
		return nil, 0, m.listErr
	}
	if m.listUsers != nil {
		return m.listUsers, m.listCount, nil
	}
	var users []models.User
	for _, u := range m.users {
		users = append(users, *u)
	}
	return users, len(users), nil
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if m.findByIDErr != nil {
		return nil, m.findByIDErr
	}
	if user, ok := m.users[id]; ok {
		copy := *user
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.findByEmailErr != nil {
		return nil, m.findByEmailErr
	}
	for _, u := range m.users {
		if u.Email == email {
			copy := *u
			return &copy, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) Create(ctx context.Context, user *models.User) error {
	if m.users == nil {
		m.users = make(map[string]*models.User)
	}
	copy := *user
	m.users[user.ID] = &copy
	return nil
}

func (m *mockUserRepo) Update(ctx context.Context, user *models.User) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	if m.users == nil {
		m.users = make(map[string]*models.User)
	}
	copy := *user
	m.users[user.ID] = &copy
	return nil
}

func (m *mockUserRepo) Delete(ctx context.Context, id string) error {
	if user, ok := m.users[id]; ok {
		user.Active = false
		m.users[id] = user
		return nil
	}
	return sql.ErrNoRows
}

func (m *mockUserRepo) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.auditLogs = append(m.auditLogs, log)
	return nil
}

func newTestUserService(repo *mockUserRepo) *UserService {
	return NewUserService(UserServiceParams{Repo: repo})
}

func TestUserServiceList(t *testing.T) {
	repo := &mockUserRepo{listUsers: []models.User{{ID: "1", Email: "a@city.gov"}}, listCount: 1}
	svc := newTestUserService(repo)

	users, pagination, err := svc.List(context.Background(), models.UserFilter{Page: 1, PageSize: 500, Search: "  kov "})
	require.NoError(t, err)
	assert.Len(t, users, 1)
	assert.Equal(t, 1, pagination.TotalCount)
	assert.Equal(t, 100, pagination.PageSize)
	assert.Equal(t, "kov", repo.lastFilter.Search)

	bogus := models.UserRole("JANITOR")
	_, _, err = svc.List(context.Background(), models.UserFilter{Role: &bogus})
	assert.True(t, appErrors.IsValidation(err))

	repo.listErr = errors.New("connection refused")
	_, _, err = svc.List(context.Background(), models.UserFilter{})
	assert.True(t, appErrors.IsPersistence(err))
}

func TestUserServiceCreate(t *testing.T) {
	repo := &mockUserRepo{users: make(map[string]*models.User)}
	svc := newTestUserService(repo)

	user, err := svc.Create(context.Background(), dto.CreateUserRequest{Email: " CLERK@CITY.GOV ", FullName: "Clerk", Password: "secret12", Role: models.RoleEmployee, Active: true}, adminActor, models.LoginRequest{IP: "10.1.1.1"})
	require.NoError(t, err)
	assert.Equal(t, "clerk@city.gov", user.Email)
	assert.NotEqual(t, "secret12", user.PasswordHash)
	require.Len(t, repo.auditLogs, 1)
	assert.Equal(t, models.AuditActionUserCreate, repo.auditLogs[0].Action)
	assert.Equal(t, "10.1.1.1", repo.auditLogs[0].IPAddress)
	assert.Nil(t, repo.auditLogs[0].OldValues)

	_, err = svc.Create(context.Background(), dto.CreateUserRequest{Email: "clerk@city.gov", FullName: "Clerk", Password: "secret12", Role: models.RoleEmployee}, adminActor, models.LoginRequest{})
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestUserServiceUpdate(t *testing.T) {
	repo := &mockUserRepo{users: map[string]*models.User{"1": {ID: "1", Email: "a@city.gov", FullName: "Old", Role: models.RoleEmployee, Active: true}}}
	svc := newTestUserService(repo)
	active := false

	user, err := svc.Update(context.Background(), "1", dto.UpdateUserRequest{FullName: " New ", Role: models.RoleAdmin, Active: &active}, adminActor, models.LoginRequest{})
	require.NoError(t, err)
	assert.Equal(t, "New", user.FullName)
	assert.Equal(t, models.RoleAdmin, user.Role)
	assert.False(t, user.Active)
	require.Len(t, repo.auditLogs, 1)
	assert.JSONEq(t, `{"email":"a@city.gov","role":"EMPLOYEE","active":true}`, string(repo.auditLogs[0].OldValues))

	_, err = svc.Update(context.Background(), "missing", dto.UpdateUserRequest{FullName: "X", Role: models.RoleEmployee}, adminActor, models.LoginRequest{})
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	repo.updateErr = errors.New("deadlock")
	_, err = svc.Update(context.Background(), "1", dto.UpdateUserRequest{FullName: "New", Role: models.RoleAdmin}, adminActor, models.LoginRequest{})
	assert.True(t, appErrors.IsPersistence(err))
}

func TestUserServiceUpdateGuardsOwnAccount(t *testing.T) {
	repo := &mockUserRepo{users: map[string]*models.User{"actor": {ID: "actor", Email: "admin@city.gov", FullName: "Admin", Role: models.RoleAdmin, Active: true}}}
	svc := newTestUserService(repo)
	inactive := false

	_, err := svc.Update(context.Background(), "actor", dto.UpdateUserRequest{FullName: "Admin", Role: models.RoleEmployee}, adminActor, models.LoginRequest{})
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	_, err = svc.Update(context.Background(), "actor", dto.UpdateUserRequest{FullName: "Admin", Role: models.RoleAdmin, Active: &inactive}, adminActor, models.LoginRequest{})
	assert.True(t, appErrors.IsValidation(err))
	assert.Empty(t, repo.auditLogs)
}

func TestUserServiceSuperAdminAccountsNeedSuperAdmin(t *testing.T) {
	repo := &mockUserRepo{users: map[string]*models.User{"root-2": {ID: "root-2", Email: "root2@city.gov", FullName: "Root", Role: models.RoleSuperAdmin, Active: true}}}
	svc := newTestUserService(repo)

	_, err := svc.Create(context.Background(), dto.CreateUserRequest{Email: "root@city.gov", FullName: "Root", Password: "secret12", Role: models.RoleSuperAdmin}, adminActor, models.LoginRequest{})
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	assert.Len(t, repo.users, 1)

	_, err = svc.Update(context.Background(), "root-2", dto.UpdateUserRequest{FullName: "Root", Role: models.RoleEmployee}, adminActor, models.LoginRequest{})
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	_, err = svc.Create(context.Background(), dto.CreateUserRequest{Email: "root3@city.gov", FullName: "Root", Password: "secret12", Role: models.RoleSuperAdmin}, superAdminActor, models.LoginRequest{})
	require.NoError(t, err)
}

func TestUserServiceDelete(t *testing.T) {
	repo := &mockUserRepo{users: map[string]*models.User{"1": {ID: "1", Email: "a@city.gov", FullName: "Old", Role: models.RoleEmployee, Active: true}}}
	svc := newTestUserService(repo)

	require.NoError(t, svc.Delete(context.Background(), "1", "actor", models.LoginRequest{}))
	assert.False(t, repo.users["1"].Active)
	require.Len(t, repo.auditLogs, 1)
	assert.JSONEq(t, `{"email":"a@city.gov","role":"EMPLOYEE","active":false}`, string(repo.auditLogs[0].NewValues))

	err := svc.Delete(context.Background(), "actor", "actor", models.LoginRequest{})
	assert.True(t, appErrors.IsValidation(err))

	err = svc.Delete(context.Background(), "ghost", "actor", models.LoginRequest{})
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
