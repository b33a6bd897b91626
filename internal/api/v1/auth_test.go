package v1

import (
	"net/http"
	"testing"

	"github.com/akulinin/mediascore/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignupCreatesUser(t *testing.T) {
	app, gdb := newTestApp(t)

	status, body := doJSON(t, app, http.MethodPost, "/v1/auth/signup", map[string]interface{}{
		"username": "alice",
		"email":    "alice@example.com",
		"bio":      "reader of everything",
	}, "")
	require.Equal(t, http.StatusOK, status, "body: %v", body)
	assert.Equal(t, "alice", body["username"])
	assert.Equal(t, "alice@example.com", body["email"])
	assert.Equal(t, "reader of everything", body["bio"])

	var user models.User
	require.NoError(t, gdb.Where("username = ?", "alice").First(&user).Error)
	assert.Equal(t, models.RoleUser, user.Role)
	assert.NotEmpty(t, user.ConfirmationCode)
}

func TestSignupRepeatReissuesCode(t *testing.T) {
	app, gdb := newTestApp(t)

	payload := map[string]interface{}{"username": "bob", "email": "bob@example.com"}
	status, _ := doJSON(t, app, http.MethodPost, "/v1/auth/signup", payload, "")
	require.Equal(t, http.StatusOK, status)

	var first models.User
	require.NoError(t, gdb.Where("username = ?", "bob").First(&first).Error)

	status, _ = doJSON(t, app, http.MethodPost, "/v1/auth/signup", payload, "")
	require.Equal(t, http.StatusOK, status)

	var second models.User
	require.NoError(t, gdb.Where("username = ?", "bob").First(&second).Error)
	assert.Equal(t, first.ID, second.ID, "repeat signup must not create a second account")
	assert.NotEqual(t, first.ConfirmationCode, second.ConfirmationCode)
}

func TestSignupCollisions(t *testing.T) {
	app, gdb := newTestApp(t)
	createUser(t, gdb, "taken", models.RoleUser)

	tests := []struct {
		name     string
		username string
		email    string
		badField string
	}{
		{"username belongs to someone else", "taken", "fresh@example.com", "username"},
		{"email belongs to someone else", "fresh", "taken@example.com", "email"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			status, body := doJSON(t, app, http.MethodPost, "/v1/auth/signup", map[string]interface{}{
				"username": tc.username,
				"email":    tc.email,
			}, "")
			require.Equal(t, http.StatusBadRequest, status)
			assert.Contains(t, body, tc.badField)
		})
	}

	t.Run("username and email taken by different users", func(t *testing.T) {
		other := createUser(t, gdb, "other", models.RoleUser)

		status, body := doJSON(t, app, http.MethodPost, "/v1/auth/signup", map[string]interface{}{
			"username": "taken",
			"email":    other.Email,
		}, "")
		require.Equal(t, http.StatusBadRequest, status)
		assert.Contains(t, body, "username")
		assert.Contains(t, body, "email")
	})
}

func TestSignupValidation(t *testing.T) {
	app, _ := newTestApp(t)

	tests := []struct {
		name     string
		payload  map[string]interface{}
		badField string
	}{
		{"missing username", map[string]interface{}{"email": "x@example.com"}, "username"},
		{"missing email", map[string]interface{}{"username": "x"}, "email"},
		{"bad email", map[string]interface{}{"username": "x", "email": "not-an-email"}, "email"},
		{"bad username chars", map[string]interface{}{"username": "no spaces", "email": "x@example.com"}, "username"},
		{"reserved me", map[string]interface{}{"username": "me", "email": "x@example.com"}, "username"},
		{"reserved me uppercase", map[string]interface{}{"username": "ME", "email": "x@example.com"}, "username"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			status, body := doJSON(t, app, http.MethodPost, "/v1/auth/signup", tc.payload, "")
			require.Equal(t, http.StatusBadRequest, status)
			msgs, ok := body[tc.badField].([]interface{})
			require.True(t, ok, "expected errors under %q, got %v", tc.badField, body)
			assert.NotEmpty(t, msgs)
		})
	}
}

func TestTokenExchange(t *testing.T) {
	app, gdb := newTestApp(t)

	status, _ := doJSON(t, app, http.MethodPost, "/v1/auth/signup", map[string]interface{}{
		"username": "carol",
		"email":    "carol@example.com",
	}, "")
	require.Equal(t, http.StatusOK, status)

	var user models.User
	require.NoError(t, gdb.Where("username = ?", "carol").First(&user).Error)
	code := user.ConfirmationCode

	status, body := doJSON(t, app, http.MethodPost, "/v1/auth/token", map[string]interface{}{
		"username":          "carol",
		"confirmation_code": code,
	}, "")
	require.Equal(t, http.StatusOK, status, "body: %v", body)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)

	// The token authenticates the caller.
	status, body = doJSON(t, app, http.MethodGet, "/v1/users/me", nil, token)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "carol", body["username"])

	// The code is single use.
	status, body = doJSON(t, app, http.MethodPost, "/v1/auth/token", map[string]interface{}{
		"username":          "carol",
		"confirmation_code": code,
	}, "")
	require.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body, "confirmation_code")
}

func TestTokenRejections(t *testing.T) {
	app, gdb := newTestApp(t)
	createUser(t, gdb, "dave", models.RoleUser)

	t.Run("unknown username is 404", func(t *testing.T) {
		status, _ := doJSON(t, app, http.MethodPost, "/v1/auth/token", map[string]interface{}{
			"username":          "ghost",
			"confirmation_code": "whatever",
		}, "")
		assert.Equal(t, http.StatusNotFound, status)
	})

	t.Run("wrong code is 400", func(t *testing.T) {
		status, body := doJSON(t, app, http.MethodPost, "/v1/auth/token", map[string]interface{}{
			"username":          "dave",
			"confirmation_code": "not-the-code",
		}, "")
		require.Equal(t, http.StatusBadRequest, status)
		assert.Contains(t, body, "confirmation_code")
	})

	t.Run("missing fields are 400 before lookup", func(t *testing.T) {
		status, body := doJSON(t, app, http.MethodPost, "/v1/auth/token", map[string]interface{}{}, "")
		require.Equal(t, http.StatusBadRequest, status)
		assert.Contains(t, body, "username")
		assert.Contains(t, body, "confirmation_code")
	})
}
