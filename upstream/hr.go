package upstream

import (
	"context"

	"github.com/chainhr/payportal/internal/types"
)

type CreateDepartmentRequest struct {
	Name string `json:"name"`
	Desc string `json:"desc"`
}

type UpdateDepartmentRequest struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Desc string `json:"desc"`
}

func (c *Client) DepartmentList(ctx context.Context) ([]types.Department, error) {
	var data struct {
		Departments []types.Department `json:"portal_depts"`
	}
	if err := c.get(ctx, "/portal/dept/list", &data); err != nil {
		return nil, err
	}
	return data.Departments, nil
}

func (c *Client) CreateDepartment(ctx context.Context, req CreateDepartmentRequest) error {
	return c.post(ctx, "/portal/dept/create", req, nil)
}

func (c *Client) UpdateDepartment(ctx context.Context, req UpdateDepartmentRequest) error {
	return c.post(ctx, "/portal/dept/update", req, nil)
}

// DeleteDepartment is a soft delete on the backend side.
func (c *Client) DeleteDepartment(ctx context.Context, id int64) error {
	return c.post(ctx, "/portal/dept/delete", map[string]int64{"id": id}, nil)
}

type CreateUserRequest struct {
	Name     string  `json:"name"`
	LoginID  string  `json:"login_id"`
	Email    string  `json:"email"`
	Location string  `json:"location"`
	DeptIDs  []int64 `json:"dept_ids"`
}

type UpdateUserRequest struct {
	ID       int64   `json:"id"`
	Name     string  `json:"name"`
	LoginID  string  `json:"login_id"`
	Email    string  `json:"email"`
	Location string  `json:"location"`
	DeptIDs  []int64 `json:"dept_ids"`
}

func (c *Client) UserList(ctx context.Context) ([]types.User, error) {
	var data struct {
		Users []types.User `json:"users"`
	}
	if err := c.get(ctx, "/portal/user/list", &data); err != nil {
		return nil, err
	}
	return data.Users, nil
}

func (c *Client) CreateUser(ctx context.Context, req CreateUserRequest) error {
	return c.post(ctx, "/portal/user/add", req, nil)
}

func (c *Client) UpdateUser(ctx context.Context, req UpdateUserRequest) error {
	return c.post(ctx, "/portal/user/update", req, nil)
}
