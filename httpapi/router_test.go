package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mailauth-io/mailauth"
	"github.com/mailauth-io/mailauth/directory/memdir"
)

const testBaseURL = "https://auth.example.com"

type apiFixture struct {
	router    *gin.Engine
	engine    *mailauth.Engine
	directory *memdir.Directory
	sent      []mailauth.Notification
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	f := &apiFixture{directory: memdir.New()}

	cfg := mailauth.DefaultConfig()
	cfg.API.BaseURL = testBaseURL
	cfg.JWT.Secret = []byte("router-test-secret")

	engine, err := mailauth.New().
		WithConfig(cfg).
		WithDirectory(f.directory).
		WithNotifier(func(ctx context.Context, n mailauth.Notification) error {
			f.sent = append(f.sent, n)
			return nil
		}).
		Build()
	require.NoError(t, err)
	t.Cleanup(engine.Close)

	f.engine = engine
	f.router = NewRouter(engine, nil)
	return f
}

func (f *apiFixture) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f *apiFixture) lastNotification(t *testing.T) mailauth.Notification {
	t.Helper()
	require.NotEmpty(t, f.sent)
	return f.sent[len(f.sent)-1]
}

func confirmTokenFromURL(t *testing.T, verificationURL string) string {
	t.Helper()
	u, err := url.Parse(verificationURL)
	require.NoError(t, err)
	token := u.Query().Get("token")
	require.NotEmpty(t, token)
	return token
}

func TestVerifyRequiresParams(t *testing.T) {
	f := newAPIFixture(t)

	assert.Equal(t, http.StatusBadRequest, f.get(t, "/verify").Code)
	assert.Equal(t, http.StatusBadRequest, f.get(t, "/verify?email=alice@example.com").Code)
	assert.Equal(t, http.StatusBadRequest, f.get(t, "/verify?linkingUri=myapp://login").Code)
}

func TestVerifyRejectsBadEmail(t *testing.T) {
	f := newAPIFixture(t)

	w := f.get(t, "/verify?email=not-an-address&linkingUri=myapp://login")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, f.sent)
}

func TestVerifySendsEmail(t *testing.T) {
	f := newAPIFixture(t)

	w := f.get(t, "/verify?email=alice@example.com&linkingUri="+url.QueryEscape("myapp://login"))
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]bool
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body["OK"])

	n := f.lastNotification(t)
	assert.Equal(t, "alice@example.com", n.Email)
	assert.True(t, strings.HasPrefix(n.VerificationURL, testBaseURL+"/confirm?token="))
	assert.Len(t, n.LoginCode, 5)
}

func TestConfirmRedirectsWithRefreshedToken(t *testing.T) {
	f := newAPIFixture(t)

	require.Equal(t, http.StatusOK,
		f.get(t, "/verify?email=alice@example.com&linkingUri=myapp://login").Code)
	confirmToken := confirmTokenFromURL(t, f.lastNotification(t).VerificationURL)

	w := f.get(t, "/confirm?token="+url.QueryEscape(confirmToken)+"&linkingUri="+url.QueryEscape("myapp://login"))
	require.Equal(t, http.StatusFound, w.Code)

	loc, err := url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	userID := loc.Query().Get("userId")
	token := loc.Query().Get("token")
	assert.NotEmpty(t, userID)
	require.NotEmpty(t, token)
	assert.NotEqual(t, confirmToken, token)

	// The redirect token must be a session token for the same user.
	header := "Bearer " + token
	gotID, err := f.engine.UserIDFromAuthHeader(header)
	require.NoError(t, err)
	assert.Equal(t, userID, gotID)

	user, err := f.directory.FindByEmail(context.Background(), "alice@example.com")
	require.NoError(t, err)
	assert.True(t, user.EmailConfirmed)
}

func TestConfirmRejectsGarbageToken(t *testing.T) {
	f := newAPIFixture(t)

	w := f.get(t, "/confirm?token=not-a-jwt&linkingUri="+url.QueryEscape("myapp://login"))
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "myapp://login?errorCode=401", w.Header().Get("Location"))
}

func TestConfirmRequiresParams(t *testing.T) {
	f := newAPIFixture(t)

	assert.Equal(t, http.StatusBadRequest, f.get(t, "/confirm?token=x").Code)
	assert.Equal(t, http.StatusBadRequest, f.get(t, "/confirm?linkingUri=myapp://login").Code)
}

func TestConfirmCodeIssuesSessionToken(t *testing.T) {
	f := newAPIFixture(t)

	require.Equal(t, http.StatusOK,
		f.get(t, "/verify?email=alice@example.com&linkingUri=myapp://login").Code)
	code := f.lastNotification(t).LoginCode

	w := f.get(t, "/confirm-code?email=alice@example.com&code="+code)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		UserID string `json:"userId"`
		Token  string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.NotEmpty(t, body.UserID)
	require.NotEmpty(t, body.Token)

	gotID, err := f.engine.UserIDFromAuthHeader("Bearer " + body.Token)
	require.NoError(t, err)
	assert.Equal(t, body.UserID, gotID)
}

func TestConfirmCodeRejectsMismatch(t *testing.T) {
	f := newAPIFixture(t)

	require.Equal(t, http.StatusOK,
		f.get(t, "/verify?email=alice@example.com&linkingUri=myapp://login").Code)

	assert.Equal(t, http.StatusUnauthorized,
		f.get(t, "/confirm-code?email=alice@example.com&code=00000").Code)
	assert.Equal(t, http.StatusUnauthorized,
		f.get(t, "/confirm-code?email=alice@example.com&code=123456").Code)
	assert.Equal(t, http.StatusUnauthorized,
		f.get(t, "/confirm-code?email=ghost@example.com&code=12345").Code)
}

func TestConfirmCodeRequiresParams(t *testing.T) {
	f := newAPIFixture(t)

	assert.Equal(t, http.StatusBadRequest, f.get(t, "/confirm-code?email=alice@example.com").Code)
	assert.Equal(t, http.StatusBadRequest, f.get(t, "/confirm-code?code=12345").Code)
}

type downDirectory struct{}

func (downDirectory) FindByEmail(context.Context, string) (*mailauth.UserRecord, error) {
	return nil, errors.New("directory down")
}

func (downDirectory) FindByID(context.Context, string) (*mailauth.UserRecord, error) {
	return nil, errors.New("directory down")
}

func (downDirectory) Create(context.Context, string) (*mailauth.UserRecord, error) {
	return nil, errors.New("directory down")
}

func (downDirectory) Update(context.Context, string, mailauth.UserUpdate) (*mailauth.UserRecord, error) {
	return nil, errors.New("directory down")
}

func TestDirectoryFailuresMapToServerError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cfg := mailauth.DefaultConfig()
	cfg.API.BaseURL = testBaseURL
	cfg.JWT.Secret = []byte("router-test-secret")

	engine, err := mailauth.New().
		WithConfig(cfg).
		WithDirectory(downDirectory{}).
		WithNotifier(func(context.Context, mailauth.Notification) error { return nil }).
		Build()
	require.NoError(t, err)
	t.Cleanup(engine.Close)

	router := NewRouter(engine, nil)

	for _, path := range []string{
		"/verify?email=alice@example.com&linkingUri=myapp://login",
		"/confirm-code?email=alice@example.com&code=12345",
	} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusInternalServerError, w.Code, path)
	}
}
