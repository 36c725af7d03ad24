package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/inkpost/apiserver/internal/services"
	"github.com/inkpost/apiserver/internal/store"
	"github.com/inkpost/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testAPI struct {
	router http.Handler
}

func newTestAPI(t *testing.T) testAPI {
	t.Helper()
	bdb, err := store.OpenBadger("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = bdb.Close() })

	tokens, err := services.NewTokenService("test-secret", time.Hour)
	require.NoError(t, err)

	authService := services.NewAuthService(bdb.Users(), tokens, nil)
	postService := services.NewPostService(bdb.Posts(), nil, "", nil)
	authMiddleware := RequireAuth(tokens)

	router := chi.NewRouter()
	router.Get("/healthz", Healthz)
	router.Route("/api/v1/auth", func(r chi.Router) {
		AuthRouter(r, authService, authMiddleware, nil)
	})
	router.Route("/api/v1/post", func(r chi.Router) {
		PostRouter(r, postService, authMiddleware, nil)
	})
	return testAPI{router: router}
}

type envelope struct {
	Success bool               `json:"success"`
	Message string             `json:"message"`
	Meta    *services.PageMeta `json:"meta"`
	Data    json.RawMessage    `json:"data"`
}

func (a testAPI) do(t *testing.T, method, path, token string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set(AccessTokenHeader, token)
	}
	rr := httptest.NewRecorder()
	a.router.ServeHTTP(rr, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env), rr.Body.String())
	return rr, env
}

func (a testAPI) registerAndLogin(t *testing.T, name, email string) services.LoginResult {
	t.Helper()
	rr, _ := a.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"name":            name,
		"email":           email,
		"password":        "hunter22",
		"confirmPassword": "hunter22",
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr, env := a.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email":    email,
		"password": "hunter22",
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var result services.LoginResult
	require.NoError(t, json.Unmarshal(env.Data, &result))
	return result
}

func TestHealthz(t *testing.T) {
	api := newTestAPI(t)
	rr, env := api.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, env.Success)
}

func TestRegisterResponses(t *testing.T) {
	api := newTestAPI(t)
	valid := map[string]string{
		"name":            "Ada",
		"email":           "ada@example.com",
		"password":        "hunter22",
		"confirmPassword": "hunter22",
	}

	rr, env := api.do(t, http.MethodPost, "/api/v1/auth/register", "", valid)
	require.Equal(t, http.StatusCreated, rr.Code)
	assert.True(t, env.Success)
	assert.Equal(t, "Account registered successfully, now login to continue", env.Message)
	assert.Empty(t, env.Data)

	rr, env = api.do(t, http.MethodPost, "/api/v1/auth/register", "", valid)
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.False(t, env.Success)
	assert.Equal(t, "User already exists with this email", env.Message)

	rr, env = api.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"name":  "Ada",
		"email": "ada2@example.com",
	})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "All fields are required", env.Message)

	rr, env = api.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"name":            "Ada",
		"email":           "ada3@example.com",
		"password":        "hunter22",
		"confirmPassword": "hunter23",
	})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "Password and confirm password do not match", env.Message)

	rr, env = api.do(t, http.MethodPost, "/api/v1/auth/register", "", "{not json")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "Invalid request body", env.Message)
}

func TestLoginResponses(t *testing.T) {
	api := newTestAPI(t)
	login := api.registerAndLogin(t, "Ada", "ada@example.com")
	assert.NotEmpty(t, login.Token)
	assert.Equal(t, "Ada", login.Name)

	rr, env := api.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email":    "ada@example.com",
		"password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "Invalid credentials", env.Message)

	rr, env = api.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email":    "nobody@example.com",
		"password": "hunter22",
	})
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "User not found", env.Message)

	rr, env = api.do(t, http.MethodGet, "/api/v1/auth/me", login.Token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var me types.User
	require.NoError(t, json.Unmarshal(env.Data, &me))
	assert.Equal(t, login.ID, me.ID)
	assert.NotContains(t, string(env.Data), "password")
}

func TestAccessGate(t *testing.T) {
	api := newTestAPI(t)

	rr, env := api.do(t, http.MethodGet, "/api/v1/post/user-posts", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "Unauthorized", env.Message)

	rr, env = api.do(t, http.MethodGet, "/api/v1/post/user-posts", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "Invalid token", env.Message)

	expired, err := services.NewTokenService("test-secret", time.Millisecond)
	require.NoError(t, err)
	token, err := expired.Issue(types.Identity{UserID: types.NewUserID(), Email: "ada@example.com"})
	require.NoError(t, err)
	time.Sleep(1100 * time.Millisecond)

	rr, env = api.do(t, http.MethodPost, "/api/v1/post/create", token, map[string]string{
		"title":   "Hello",
		"content": "World",
	})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "Token expired", env.Message)
}

func TestPostEndpoints(t *testing.T) {
	api := newTestAPI(t)
	ada := api.registerAndLogin(t, "Ada", "ada@example.com")
	bob := api.registerAndLogin(t, "Bob", "bob@example.com")

	rr, env := api.do(t, http.MethodPost, "/api/v1/post/create", ada.Token, map[string]string{"title": "Hello"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "Please fill all the fields", env.Message)

	rr, env = api.do(t, http.MethodPost, "/api/v1/post/create", ada.Token, map[string]string{
		"title":   "Hello",
		"content": "World",
	})
	require.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, "Post created", env.Message)

	var created struct {
		ID     string `json:"_id"`
		Title  string `json:"title"`
		Author struct {
			ID    string `json:"_id"`
			Name  string `json:"name"`
			Email string `json:"email"`
		} `json:"author_id"`
		CreatedAt time.Time `json:"createdAt"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.Equal(t, ada.ID.String(), created.Author.ID)
	assert.Equal(t, "Ada", created.Author.Name)
	assert.False(t, created.CreatedAt.IsZero())

	rr, env = api.do(t, http.MethodGet, "/api/v1/post/details/"+created.ID, "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, env.Success)
	assert.Contains(t, string(env.Data), `"title":"Hello"`)

	rr, env = api.do(t, http.MethodGet, "/api/v1/post/details/not-a-uuid", "", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "Post not found", env.Message)

	rr, env = api.do(t, http.MethodPut, "/api/v1/post/update/"+created.ID, bob.Token, map[string]string{"title": "Stolen"})
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.False(t, env.Success)

	rr, env = api.do(t, http.MethodPut, "/api/v1/post/update/"+created.ID, ada.Token, map[string]string{"content": "Everyone"})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Post updated", env.Message)
	assert.Contains(t, string(env.Data), `"title":"Hello"`)
	assert.Contains(t, string(env.Data), `"content":"Everyone"`)

	rr, env = api.do(t, http.MethodGet, "/api/v1/post/list?page=1&limit=5", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Posts fetched successfully", env.Message)
	require.NotNil(t, env.Meta)
	assert.Equal(t, services.PageMeta{Total: 1, Page: 1, Limit: 5, TotalPages: 1}, *env.Meta)

	rr, env = api.do(t, http.MethodGet, "/api/v1/post/user-posts", bob.Token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.NotNil(t, env.Meta)
	assert.Zero(t, env.Meta.Total)
	assert.JSONEq(t, `[]`, string(env.Data))

	rr, _ = api.do(t, http.MethodDelete, "/api/v1/post/remove/"+created.ID, bob.Token, nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr, env = api.do(t, http.MethodDelete, "/api/v1/post/remove/"+created.ID, ada.Token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Post deleted successfully", env.Message)

	rr, _ = api.do(t, http.MethodGet, "/api/v1/post/details/"+created.ID, "", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestListDefaultsOnMalformedQuery(t *testing.T) {
	api := newTestAPI(t)

	rr, env := api.do(t, http.MethodGet, "/api/v1/post/list?page=abc&limit=-4", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.NotNil(t, env.Meta)
	assert.Equal(t, 1, env.Meta.Page)
	assert.Equal(t, 10, env.Meta.Limit)
	assert.JSONEq(t, `[]`, string(env.Data))

	ada := api.registerAndLogin(t, "Ada", "ada@example.com")
	rr, _ = api.do(t, http.MethodPost, "/api/v1/post/create", ada.Token, map[string]string{
		"title":   "Hello",
		"content": "World",
	})
	require.Equal(t, http.StatusCreated, rr.Code)

	rr, env = api.do(t, http.MethodGet, "/api/v1/post/list?page=9223372036854775807&limit=10", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.NotNil(t, env.Meta)
	assert.Equal(t, 1, env.Meta.Total)
	assert.Greater(t, env.Meta.Page, env.Meta.TotalPages)
	assert.JSONEq(t, `[]`, string(env.Data))
}

func TestIdentityFromContext(t *testing.T) {
	_, ok := IdentityFromContext(context.Background())
	assert.False(t, ok)

	identity := types.Identity{UserID: types.NewUserID(), Email: "ada@example.com"}
	got, ok := IdentityFromContext(WithIdentity(context.Background(), identity))
	require.True(t, ok)
	assert.Equal(t, identity, got)
}
