package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func protected(roles ...string) http.Handler {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := GetUserFromContext(r)
		if !ok {
			w.WriteHeader(http.StatusTeapot)
			return
		}
		w.Header().Set("X-User", user.UserID)
		w.WriteHeader(http.StatusOK)
	})
	h := http.Handler(inner)
	if len(roles) > 0 {
		h = RequireRole(roles...)(h)
	}
	return Auth(testSecret)(h)
}

func request(t *testing.T, h http.Handler, header string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/containers", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestAuthAcceptsIssuedToken(t *testing.T) {
	token, err := IssueToken(UserClaims{UserID: "u1", Email: "a@b.c", Role: "operator"}, testSecret, time.Hour)
	require.NoError(t, err)

	rec := request(t, protected(), "Bearer "+token)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u1", rec.Header().Get("X-User"))
}

func TestAuthRejects(t *testing.T) {
	wrongKey, err := IssueToken(UserClaims{UserID: "u1", Role: "admin"}, "other", time.Hour)
	require.NoError(t, err)
	expired, err := IssueToken(UserClaims{UserID: "u1", Role: "admin"}, testSecret, -time.Minute)
	require.NoError(t, err)

	cases := map[string]string{
		"missing header": "",
		"short header":   "Bearer",
		"wrong scheme":   "Basic abc",
		"wrong key":      "Bearer " + wrongKey,
		"expired":        "Bearer " + expired,
		"garbage":        "Bearer not.a.token",
	}
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, http.StatusUnauthorized, request(t, protected(), header).Code)
		})
	}
}

func TestRequireRole(t *testing.T) {
	driver, err := IssueToken(UserClaims{UserID: "d1", Role: "driver"}, testSecret, time.Hour)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, request(t, protected("admin", "driver"), "Bearer "+driver).Code)
	assert.Equal(t, http.StatusForbidden, request(t, protected("admin", "cleaner"), "Bearer "+driver).Code)
}

func TestParseTokenRequiresUser(t *testing.T) {
	token, err := IssueToken(UserClaims{Role: "admin"}, testSecret, time.Hour)
	require.NoError(t, err)

	_, err = ParseToken(token, testSecret)
	assert.Error(t, err)
}
