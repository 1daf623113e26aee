package services

import (
	"context"
	"testing"

	"github.com/AnshRaj112/newsdesk-backend/internal/models"
	"github.com/AnshRaj112/newsdesk-backend/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validInput() UserInput {
	return UserInput{
		Email:       "Anna@Example.is",
		Password:    "Secret1",
		Name:        "Anna Jons",
		DateOfBirth: "01.02.1990",
		Phone:       "+354 123 4567",
	}
}

func TestUserAdmin_Validate(t *testing.T) {
	t.Parallel()
	a := NewUserAdmin(NewMemoryUserStore(), 0)

	tests := []struct {
		name    string
		mutate  func(*UserInput)
		wantMsg string
	}{
		{name: "valid", mutate: func(*UserInput) {}},
		{name: "missing name", mutate: func(in *UserInput) { in.Name = "" }, wantMsg: "You must provide name, email and password"},
		{name: "missing password", mutate: func(in *UserInput) { in.Password = "" }, wantMsg: "You must provide name, email and password"},
		{name: "bad email", mutate: func(in *UserInput) { in.Email = "nope" }, wantMsg: "nope is not a valid email"},
		{name: "weak password", mutate: func(in *UserInput) { in.Password = "secret12" }, wantMsg: "Password must contain at least one number (0-9) and one uppercase letter (A-Z)"},
		{name: "single name", mutate: func(in *UserInput) { in.Name = "Anna" }, wantMsg: "Name has aleast two 2 names consisting of letters"},
		{name: "bad date", mutate: func(in *UserInput) { in.DateOfBirth = "31/31/1990" }, wantMsg: "Date is not in valid format. Try DD.MM.YYYY"},
		{name: "bad phone", mutate: func(in *UserInput) { in.Phone = "12" }, wantMsg: "Phone number is not a valid Icelandic phone number"},
		{name: "bad role", mutate: func(in *UserInput) { in.Roles = []string{"Admin!"} }, wantMsg: "Admin! is not a valid role"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			in := validInput()
			tt.mutate(&in)
			err := a.Validate(in, true)
			if tt.wantMsg == "" {
				assert.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.wantMsg, verr.Message)
		})
	}

	in := validInput()
	in.Password = ""
	assert.NoError(t, a.Validate(in, false), "update may omit the password")
}

func TestUserAdmin_CRUD(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := NewMemoryUserStore()
	a := NewUserAdmin(store, 0)

	created, err := a.Create(ctx, validInput())
	require.NoError(t, err)
	assert.Equal(t, "anna@example.is", created.Email)
	require.NotNil(t, created.DateOfBirth)
	ok, err := utils.VerifyPassword("Secret1", created.Password)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = a.Create(ctx, validInput())
	assert.ErrorIs(t, err, ErrDuplicateEmail)

	_, err = a.GrantRole(ctx, "anna@example.is", models.RoleAdmin)
	require.NoError(t, err)

	upd := validInput()
	upd.Password = ""
	upd.Name = "Anna Jonsdottir"
	upd.Phone = ""
	updated, err := a.Update(ctx, created.ID.Hex(), upd)
	require.NoError(t, err)
	assert.Equal(t, "Anna Jonsdottir", updated.Name)
	assert.Empty(t, updated.Phone)
	assert.True(t, updated.IsAdmin(), "omitted roles are kept")
	assert.Equal(t, created.Password, updated.Password, "empty password keeps the hash")

	page, err := a.List(ctx, UserQuery{Search: "jonsdottir"})
	require.NoError(t, err)
	require.Len(t, page.Docs, 1)
	assert.Equal(t, created.ID.Hex(), page.Docs[0].ID)

	revoked, err := a.RevokeRole(ctx, "anna@example.is", models.RoleAdmin)
	require.NoError(t, err)
	assert.False(t, revoked.IsAdmin())
	assert.NotNil(t, revoked.Roles)

	_, err = a.GrantRole(ctx, "anna@example.is", "Bad Role")
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)

	_, err = a.GrantRole(ctx, "missing@example.is", models.RoleAdmin)
	assert.ErrorIs(t, err, ErrUserNotFound)

	require.NoError(t, a.Delete(ctx, created.ID.Hex()))
	_, err = a.Get(ctx, created.ID.Hex())
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = a.Update(ctx, created.ID.Hex(), upd)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserAdmin_GrantRoleIsIdempotent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	a := NewUserAdmin(NewMemoryUserStore(), 0)
	_, err := a.Create(ctx, validInput())
	require.NoError(t, err)

	_, err = a.GrantRole(ctx, "anna@example.is", "editor")
	require.NoError(t, err)
	u, err := a.GrantRole(ctx, "anna@example.is", "editor")
	require.NoError(t, err)
	assert.Equal(t, []string{"editor"}, u.Roles)
}
