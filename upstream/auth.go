package upstream

import (
	"context"
	"fmt"

	"github.com/chainhr/payportal/internal/types"
)

type LoginResult struct {
	Token string     `json:"token"`
	User  types.User `json:"user"`
}

// Login exchanges credentials for an upstream session token. The password
// is hashed client side before it leaves the process.
func (c *Client) Login(ctx context.Context, loginID string, password string) (*LoginResult, error) {
	req := map[string]string{
		"login_id": loginID,
		"password": HashPassword(password),
	}
	var result LoginResult
	if err := c.post(ctx, "/portal/login", req, &result); err != nil {
		return nil, fmt.Errorf("fail to login, err: %w", err)
	}
	if result.Token == "" {
		return nil, fmt.Errorf("login succeeded but no token returned")
	}
	return &result, nil
}
