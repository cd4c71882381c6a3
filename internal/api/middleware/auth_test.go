package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/phrazzld/taskd/internal/api/shared"
	"github.com/phrazzld/taskd/internal/domain"
	"github.com/phrazzld/taskd/internal/mocks"
	"github.com/phrazzld/taskd/internal/service/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingRecorder struct{ n int }

func (r *countingRecorder) AuthRejected() { r.n++ }

func seedUser(t *testing.T, mem *mocks.MemoryStore, token string) *domain.User {
	t.Helper()

	user, err := domain.NewUser("Ada", "ada@example.com", "s3cret!!", 30)
	require.NoError(t, err)
	user.HashedPassword = "hash"
	user.Password = ""

	users := mem.Users()
	require.NoError(t, users.Create(context.Background(), user))
	require.NoError(t, users.AddToken(context.Background(), user.ID, token))
	return user
}

func validatingJWT(userID uuid.UUID, good string) *mocks.MockJWTService {
	return &mocks.MockJWTService{
		ValidateTokenFn: func(ctx context.Context, token string) (*auth.Claims, error) {
			if token != good && token != "revoked" {
				return nil, auth.ErrInvalidToken
			}
			return &auth.Claims{UserID: userID}, nil
		},
	}
}

func TestAuthenticate(t *testing.T) {
	mem := mocks.NewMemoryStore()
	user := seedUser(t, mem, "good")

	tests := []struct {
		name       string
		header     string
		users      func() *mocks.MemoryUserStore
		wantStatus int
	}{
		{name: "valid token", header: "Bearer good", wantStatus: http.StatusOK},
		{name: "missing header", header: "", wantStatus: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic good", wantStatus: http.StatusUnauthorized},
		{name: "empty bearer", header: "Bearer ", wantStatus: http.StatusUnauthorized},
		{name: "bad signature", header: "Bearer forged", wantStatus: http.StatusUnauthorized},
		{name: "signed but logged out", header: "Bearer revoked", wantStatus: http.StatusUnauthorized},
		{
			name:   "store failure",
			header: "Bearer good",
			users: func() *mocks.MemoryUserStore {
				u := mem.Users()
				u.Err = errors.New("connection refused")
				return u
			},
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			users := mem.Users()
			if tc.users != nil {
				users = tc.users()
			}
			recorder := &countingRecorder{}
			mw := NewAuthMiddleware(validatingJWT(user.ID, "good"), users, recorder)

			var gotUser *domain.User
			var gotToken string
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotUser, _ = shared.UserFromContext(r.Context())
				gotToken, _ = shared.TokenFromContext(r.Context())
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rr := httptest.NewRecorder()
			mw.Authenticate(next).ServeHTTP(rr, req)

			require.Equal(t, tc.wantStatus, rr.Code)
			if tc.wantStatus == http.StatusOK {
				require.NotNil(t, gotUser)
				assert.Equal(t, user.ID, gotUser.ID)
				assert.Equal(t, "good", gotToken)
				assert.Zero(t, recorder.n)
				return
			}

			assert.Nil(t, gotUser)
			assert.Equal(t, 1, recorder.n)

			var body map[string]string
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
			assert.Equal(t, map[string]string{"error": UnauthenticatedMessage}, body)
		})
	}
}

func TestAuthenticate_NilRecorder(t *testing.T) {
	mw := NewAuthMiddleware(&mocks.MockJWTService{ValidateErr: auth.ErrInvalidToken}, mocks.NewMemoryStore().Users(), nil)

	req := httptest.NewRequest(http.MethodGet, "/tasks", nil)
	req.Header.Set("Authorization", "Bearer x")
	rr := httptest.NewRecorder()
	mw.Authenticate(http.NotFoundHandler()).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header  string
		want    string
		wantErr bool
	}{
		{"Bearer abc.def.ghi", "abc.def.ghi", false},
		{"Bearer   abc  ", "abc", false},
		{"bearer abc", "", true},
		{"Bearer", "", true},
		{"Bearer a b", "", true},
		{"", "", true},
	}

	for _, tc := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", tc.header)

		got, err := BearerToken(req)
		if tc.wantErr {
			assert.ErrorIs(t, err, auth.ErrMissingToken, "header %q", tc.header)
			continue
		}
		require.NoError(t, err, "header %q", tc.header)
		assert.Equal(t, tc.want, got)
	}
}
