package v1

import (
	"net/http"
	"testing"

	"github.com/akulinin/mediascore/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUsersAdminOnly(t *testing.T) {
	app, gdb := newTestApp(t)
	user := createUser(t, gdb, "plain", models.RoleUser)
	mod := createUser(t, gdb, "mod", models.RoleModerator)

	t.Run("anonymous gets 401", func(t *testing.T) {
		status, body := doJSON(t, app, http.MethodGet, "/v1/users", nil, "")
		require.Equal(t, http.StatusUnauthorized, status)
		assert.Equal(t, "Authentication credentials were not provided.", body["detail"])
	})
	t.Run("regular user gets 403", func(t *testing.T) {
		status, body := doJSON(t, app, http.MethodGet, "/v1/users", nil, tokenFor(t, user))
		require.Equal(t, http.StatusForbidden, status)
		assert.Equal(t, "You do not have permission to perform this action.", body["detail"])
	})
	t.Run("moderator gets 403", func(t *testing.T) {
		status, _ := doJSON(t, app, http.MethodGet, "/v1/users", nil, tokenFor(t, mod))
		assert.Equal(t, http.StatusForbidden, status)
	})
}

func TestSuperuserActsAsAdmin(t *testing.T) {
	app, gdb := newTestApp(t)
	super := &models.User{
		Username:    "root",
		Email:       "root@example.com",
		Role:        models.RoleUser,
		IsSuperuser: true,
	}
	require.NoError(t, gdb.Create(super).Error)

	status, _ := doJSON(t, app, http.MethodGet, "/v1/users", nil, tokenFor(t, super))
	assert.Equal(t, http.StatusOK, status, "superuser keeps admin rights regardless of role")
}

func TestUsersCRUD(t *testing.T) {
	app, gdb := newTestApp(t)
	admin := createUser(t, gdb, "admin", models.RoleAdmin)
	adminToken := tokenFor(t, admin)

	status, body := doJSON(t, app, http.MethodPost, "/v1/users", map[string]interface{}{
		"username": "newbie",
		"email":    "newbie@example.com",
		"role":     "moderator",
	}, adminToken)
	require.Equal(t, http.StatusCreated, status, "body: %v", body)
	assert.Equal(t, "moderator", body["role"])

	status, body = doJSON(t, app, http.MethodGet, "/v1/users/newbie", nil, adminToken)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "newbie@example.com", body["email"])

	status, body = doJSON(t, app, http.MethodPatch, "/v1/users/newbie", map[string]interface{}{
		"bio":  "promoted",
		"role": "admin",
	}, adminToken)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "promoted", body["bio"])
	assert.Equal(t, "admin", body["role"])

	status, _ = doJSON(t, app, http.MethodDelete, "/v1/users/newbie", nil, adminToken)
	require.Equal(t, http.StatusNoContent, status)

	status, _ = doJSON(t, app, http.MethodGet, "/v1/users/newbie", nil, adminToken)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestUsersCreateValidation(t *testing.T) {
	app, gdb := newTestApp(t)
	admin := createUser(t, gdb, "admin", models.RoleAdmin)
	createUser(t, gdb, "existing", models.RoleUser)
	adminToken := tokenFor(t, admin)

	tests := []struct {
		name     string
		payload  map[string]interface{}
		badField string
	}{
		{"missing username", map[string]interface{}{"email": "a@example.com"}, "username"},
		{"missing email", map[string]interface{}{"username": "a"}, "email"},
		{"bad role", map[string]interface{}{"username": "a", "email": "a@example.com", "role": "boss"}, "role"},
		{"taken username", map[string]interface{}{"username": "existing", "email": "a@example.com"}, "username"},
		{"taken email", map[string]interface{}{"username": "a", "email": "existing@example.com"}, "email"},
		{"reserved me", map[string]interface{}{"username": "me", "email": "a@example.com"}, "username"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			status, body := doJSON(t, app, http.MethodPost, "/v1/users", tc.payload, adminToken)
			require.Equal(t, http.StatusBadRequest, status)
			assert.Contains(t, body, tc.badField)
		})
	}
}

func TestUsersList(t *testing.T) {
	app, gdb := newTestApp(t)
	admin := createUser(t, gdb, "admin", models.RoleAdmin)
	createUser(t, gdb, "anna", models.RoleUser)
	createUser(t, gdb, "annette", models.RoleUser)
	createUser(t, gdb, "zack", models.RoleUser)

	status, body := doJSON(t, app, http.MethodGet, "/v1/users?search=ann", nil, tokenFor(t, admin))
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 2, body["count"])

	res := results(t, body)
	require.Len(t, res, 2)
	first := res[0].(map[string]interface{})
	assert.Equal(t, "anna", first["username"], "ordered by username")
}

func TestMe(t *testing.T) {
	app, gdb := newTestApp(t)
	user := createUser(t, gdb, "selfie", models.RoleUser)
	token := tokenFor(t, user)

	t.Run("anonymous gets 401", func(t *testing.T) {
		status, _ := doJSON(t, app, http.MethodGet, "/v1/users/me", nil, "")
		assert.Equal(t, http.StatusUnauthorized, status)
	})

	t.Run("returns own profile", func(t *testing.T) {
		status, body := doJSON(t, app, http.MethodGet, "/v1/users/me", nil, token)
		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, "selfie", body["username"])
		assert.Equal(t, "user", body["role"])
	})

	t.Run("admin may change own role", func(t *testing.T) {
		admin := createUser(t, gdb, "chief", models.RoleAdmin)

		status, body := doJSON(t, app, http.MethodPatch, "/v1/users/me", map[string]interface{}{
			"role": "moderator",
		}, tokenFor(t, admin))
		require.Equal(t, http.StatusOK, status, "body: %v", body)
		assert.Equal(t, "moderator", body["role"])

		var reloaded models.User
		require.NoError(t, gdb.First(&reloaded, admin.ID).Error)
		assert.Equal(t, models.RoleModerator, reloaded.Role)
	})

	t.Run("patch updates profile but never role", func(t *testing.T) {
		status, body := doJSON(t, app, http.MethodPatch, "/v1/users/me", map[string]interface{}{
			"first_name": "Sel",
			"role":       "admin",
		}, token)
		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, "Sel", body["first_name"])
		assert.Equal(t, "user", body["role"], "role is read-only on the self endpoint")

		var reloaded models.User
		require.NoError(t, gdb.First(&reloaded, user.ID).Error)
		assert.Equal(t, models.RoleUser, reloaded.Role)
	})
}
