package helpers

import (
	"context"
	"net/http"

	"golang.org/x/oauth2"
)

// NewBearerClient returns an HTTP client that adds "Authorization: Bearer <token>" to every request.
// A nil base falls back to http.DefaultClient.
func NewBearerClient(ctx context.Context, token string, base *http.Client) *http.Client {
	if base != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, base)
	}
	return oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: token,
		TokenType:   "Bearer",
	}))
}
