package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/odyssey-erp/storefront-admin/internal/liststate"
)

// Admin is the signed-in administrator as the backend describes it.
type Admin struct {
	ID          string   `json:"_id"`
	Name        string   `json:"name"`
	Username    string   `json:"username"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
}

// Login is the reply of a successful sign in.
type Login struct {
	Token string
	Admin Admin
}

type loginBody struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login exchanges credentials for a token. Wrong credentials come back as a
// *liststate.RejectedError carrying the backend message.
func (c *Client) Login(ctx context.Context, username, password string) (Login, error) {
	env, err := c.do(ctx, "", http.MethodPut, "/api/admin/login", nil, loginBody{Username: username, Password: password})
	if err != nil {
		return Login{}, err
	}
	if !env.Success || env.Token == "" {
		return Login{}, &liststate.RejectedError{Op: "login", Message: env.Message}
	}
	var admin Admin
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &admin); err != nil {
			return Login{}, fmt.Errorf("backend: decode login: %w", err)
		}
	}
	return Login{Token: env.Token, Admin: admin}, nil
}

// Profile reloads the admin behind token, including current permissions.
func (c *Client) Profile(ctx context.Context, token string) (Admin, error) {
	env, err := c.do(ctx, token, http.MethodGet, "/api/admin/get-logged-in-admin-data", nil, nil)
	if err != nil {
		return Admin{}, err
	}
	if !env.Success {
		return Admin{}, &liststate.RejectedError{Op: "profile", Message: env.Message}
	}
	var admin Admin
	if err := json.Unmarshal(env.Data, &admin); err != nil {
		return Admin{}, fmt.Errorf("backend: decode profile: %w", err)
	}
	return admin, nil
}
