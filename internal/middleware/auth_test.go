package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lecternfm/lectern-backend/internal/platform/logger"
	"github.com/lecternfm/lectern-backend/internal/requestdata"
	"github.com/lecternfm/lectern-backend/internal/types"
)

type fakeVerifier struct {
	identity  *requestdata.Identity
	err       error
	lastToken string
}

func (f *fakeVerifier) Verify(ctx context.Context, tokenString string) (*requestdata.Identity, error) {
	f.lastToken = tokenString
	if f.err != nil {
		return nil, f.err
	}
	return f.identity, nil
}

type fakeAuthService struct {
	user  *types.User
	err   error
	calls int
}

func (f *fakeAuthService) SyncUser(ctx context.Context, tx *gorm.DB, identity *requestdata.Identity) (*types.User, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.user, nil
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	return log
}

func errorCode(t *testing.T, body []byte) string {
	t.Helper()
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		t.Fatalf("decode error envelope: %v (body=%s)", err, body)
	}
	return envelope.Error.Code
}

func authTestRouter(t *testing.T, verifier *fakeVerifier, authService *fakeAuthService, handler gin.HandlerFunc) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	am := NewAuthMiddleware(testLogger(t), verifier, authService)
	router := gin.New()
	router.GET("/protected", am.RequireAuth(), am.ResolveUser(), handler)
	return router
}

func okHandler(c *gin.Context) {
	c.Status(http.StatusOK)
}

func TestRequireAuthMissingToken(t *testing.T) {
	router := authTestRouter(t, &fakeVerifier{}, &fakeAuthService{}, okHandler)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status: want=%d got=%d", http.StatusUnauthorized, w.Code)
	}
	if code := errorCode(t, w.Body.Bytes()); code != "missing_token" {
		t.Fatalf("error code: want=missing_token got=%s", code)
	}
}

func TestRequireAuthInvalidToken(t *testing.T) {
	verifier := &fakeVerifier{err: errors.New("signature mismatch")}
	router := authTestRouter(t, verifier, &fakeAuthService{}, okHandler)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer not-a-real-token")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status: want=%d got=%d", http.StatusUnauthorized, w.Code)
	}
	if code := errorCode(t, w.Body.Bytes()); code != "invalid_token" {
		t.Fatalf("error code: want=invalid_token got=%s", code)
	}
	if verifier.lastToken != "not-a-real-token" {
		t.Fatalf("verifier token: want=not-a-real-token got=%s", verifier.lastToken)
	}
}

func TestRequireAuthQueryTokenFallback(t *testing.T) {
	verifier := &fakeVerifier{identity: &requestdata.Identity{Subject: "auth0|u1"}}
	authService := &fakeAuthService{user: &types.User{ID: uuid.New(), Subject: "auth0|u1"}}
	router := authTestRouter(t, verifier, authService, okHandler)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected?token=from-query", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status: want=%d got=%d", http.StatusOK, w.Code)
	}
	if verifier.lastToken != "from-query" {
		t.Fatalf("verifier token: want=from-query got=%s", verifier.lastToken)
	}
}

func TestResolveUserAttachesUser(t *testing.T) {
	userID := uuid.New()
	verifier := &fakeVerifier{identity: &requestdata.Identity{Subject: "auth0|u1", Email: "a@b.c"}}
	authService := &fakeAuthService{user: &types.User{ID: userID, Subject: "auth0|u1", Premium: true}}

	var seen *requestdata.RequestData
	router := authTestRouter(t, verifier, authService, func(c *gin.Context) {
		seen = requestdata.GetRequestData(c.Request.Context())
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer token-abc")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status: want=%d got=%d", http.StatusOK, w.Code)
	}
	if seen == nil {
		t.Fatal("request data not attached")
	}
	if seen.UserID != userID {
		t.Fatalf("user id: want=%s got=%s", userID, seen.UserID)
	}
	if !seen.Premium {
		t.Fatal("premium flag not carried from user row")
	}
	if seen.TokenString != "token-abc" {
		t.Fatalf("token string: want=token-abc got=%s", seen.TokenString)
	}
	if authService.calls != 1 {
		t.Fatalf("sync calls: want=1 got=%d", authService.calls)
	}
}

func TestResolveUserSyncFailure(t *testing.T) {
	verifier := &fakeVerifier{identity: &requestdata.Identity{Subject: "auth0|u1"}}
	authService := &fakeAuthService{err: errors.New("db down")}
	router := authTestRouter(t, verifier, authService, okHandler)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer token-abc")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status: want=%d got=%d", http.StatusInternalServerError, w.Code)
	}
	if code := errorCode(t, w.Body.Bytes()); code != "internal" {
		t.Fatalf("error code: want=internal got=%s", code)
	}
}

func TestExtractTokenHeaderCaseInsensitive(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		name   string
		header string
		query  string
		want   string
	}{
		{name: "standard bearer", header: "Bearer abc.def.ghi", want: "abc.def.ghi"},
		{name: "lowercase scheme", header: "bearer abc.def.ghi", want: "abc.def.ghi"},
		{name: "header wins over query", header: "Bearer from-header", query: "from-query", want: "from-header"},
		{name: "query only", query: "from-query", want: "from-query"},
		{name: "wrong scheme ignored", header: "Basic dXNlcjpwYXNz", want: ""},
		{name: "empty", want: ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			target := "/x"
			if tc.query != "" {
				target += "?token=" + tc.query
			}
			req := httptest.NewRequest(http.MethodGet, target, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = req
			if got := extractToken(c); got != tc.want {
				t.Fatalf("token: want=%q got=%q", tc.want, got)
			}
		})
	}
}
