package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/SscSPs/shope_lite/internal/apperrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	"google.golang.org/api/idtoken"
)

func newTokenServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		if r.Form.Get("code") != "good-code" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"at","token_type":"Bearer","expires_in":3600,"id_token":"raw-id-token"}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestGoogleOAuth_ExchangeAndValidate(t *testing.T) {
	srv := newTokenServer(t)
	var gotAudience string
	svc := newGoogleOAuthService(&oauth2.Config{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		Endpoint:     oauth2.Endpoint{TokenURL: srv.URL, AuthStyle: oauth2.AuthStyleInParams},
	}, func(ctx context.Context, idToken, audience string) (*idtoken.Payload, error) {
		gotAudience = audience
		require.Equal(t, "raw-id-token", idToken)
		return &idtoken.Payload{
			Subject: "google-sub",
			Claims: map[string]interface{}{
				"email":          "jane@gmail.com",
				"name":           "Jane",
				"email_verified": true,
			},
		}, nil
	})
	ctx := context.Background()

	token, err := svc.ExchangeCodeForToken(ctx, "good-code")
	require.NoError(t, err)

	info, err := svc.ValidateIDToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "client-id", gotAudience)
	assert.Equal(t, "google-sub", info.Subject)
	assert.Equal(t, "jane@gmail.com", info.Email)
	assert.Equal(t, "Jane", info.Name)
	assert.True(t, info.EmailVerified)
}

func TestGoogleOAuth_BadCodeIsUnauthorized(t *testing.T) {
	srv := newTokenServer(t)
	svc := newGoogleOAuthService(&oauth2.Config{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		Endpoint:     oauth2.Endpoint{TokenURL: srv.URL, AuthStyle: oauth2.AuthStyleInParams},
	}, nil)

	_, err := svc.ExchangeCodeForToken(context.Background(), "bad-code")
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestGoogleOAuth_InvalidIDToken(t *testing.T) {
	svc := newGoogleOAuthService(&oauth2.Config{ClientID: "id", ClientSecret: "secret"},
		func(ctx context.Context, idToken, audience string) (*idtoken.Payload, error) {
			return nil, errors.New("idtoken: token expired")
		})
	token := (&oauth2.Token{AccessToken: "at"}).WithExtra(map[string]interface{}{"id_token": "x"})

	_, err := svc.ValidateIDToken(context.Background(), token)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)

	_, err = svc.ValidateIDToken(context.Background(), &oauth2.Token{AccessToken: "at"})
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestGoogleOAuth_NotConfigured(t *testing.T) {
	svc := newGoogleOAuthService(&oauth2.Config{}, nil)
	assert.False(t, svc.IsConfigured())

	_, err := svc.ExchangeCodeForToken(context.Background(), "code")
	assert.ErrorIs(t, err, apperrors.ErrUnavailable)
}
