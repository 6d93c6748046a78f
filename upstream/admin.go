package upstream

import (
	"context"
	"fmt"

	"github.com/chainhr/payportal/internal/types"
)

type CreateRoleRequest struct {
	Name string `json:"name"`
	Desc string `json:"desc,omitempty"`
}

type UpdateRoleRequest struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Desc string `json:"desc,omitempty"`
}

func (c *Client) RoleList(ctx context.Context) ([]types.Role, error) {
	var data struct {
		Roles []types.Role `json:"portal_roles"`
	}
	if err := c.get(ctx, "/portal/rbac/role/list", &data); err != nil {
		return nil, err
	}
	return data.Roles, nil
}

func (c *Client) CreateRole(ctx context.Context, req CreateRoleRequest) error {
	return c.post(ctx, "/portal/rbac/role/create", req, nil)
}

func (c *Client) UpdateRole(ctx context.Context, req UpdateRoleRequest) error {
	return c.post(ctx, "/portal/rbac/role/update", req, nil)
}

func (c *Client) DeleteRole(ctx context.Context, id int64) error {
	return c.post(ctx, "/portal/rbac/role/delete", map[string]int64{"id": id}, nil)
}

func (c *Client) FuncList(ctx context.Context) ([]types.Func, error) {
	var data struct {
		Funcs []types.Func `json:"portal_funcs"`
	}
	if err := c.get(ctx, "/portal/rbac/func/list", &data); err != nil {
		return nil, err
	}
	return data.Funcs, nil
}

func (c *Client) RoleFuncList(ctx context.Context, roleID int64) ([]types.Func, error) {
	var data struct {
		Funcs []types.Func `json:"portal_funcs"`
	}
	if err := c.get(ctx, fmt.Sprintf("/portal/rbac/role/func/list/%d", roleID), &data); err != nil {
		return nil, err
	}
	return data.Funcs, nil
}

func (c *Client) RoleUserList(ctx context.Context, roleID int64) ([]types.User, error) {
	var data struct {
		Users []types.User `json:"portal_users"`
	}
	if err := c.get(ctx, fmt.Sprintf("/portal/rbac/role/user/list/%d", roleID), &data); err != nil {
		return nil, err
	}
	return data.Users, nil
}

func (c *Client) BindRoleFunc(ctx context.Context, roleID int64, funcID int64) error {
	return c.post(ctx, fmt.Sprintf("/portal/rbac/role/permission/func/bind/%d/%d", roleID, funcID), nil, nil)
}

func (c *Client) UnbindRoleFunc(ctx context.Context, roleID int64, funcID int64) error {
	return c.post(ctx, fmt.Sprintf("/portal/rbac/role/permission/func/unbind/%d/%d", roleID, funcID), nil, nil)
}

func (c *Client) BindRoleUser(ctx context.Context, roleID int64, userID int64) error {
	return c.post(ctx, fmt.Sprintf("/portal/rbac/role/permission/user/bind/%d/%d", roleID, userID), nil, nil)
}

func (c *Client) UnbindRoleUser(ctx context.Context, roleID int64, userID int64) error {
	return c.post(ctx, fmt.Sprintf("/portal/rbac/role/permission/user/unbind/%d/%d", roleID, userID), nil, nil)
}

// UserMenus returns the permission entries the authenticated user may see.
// Menu rendering is the caller's concern; this returns every type.
func (c *Client) UserMenus(ctx context.Context) ([]types.Func, error) {
	var data struct {
		Funcs []types.Func `json:"portal_funcs"`
	}
	if err := c.get(ctx, "/portal/rbac/user/menus", &data); err != nil {
		return nil, err
	}
	return data.Funcs, nil
}

type CreateTenantRequest struct {
	UniqueID string `json:"unique_id"`
	Name     string `json:"name"`
	Desc     string `json:"desc,omitempty"`
	Callback string `json:"callback,omitempty"`
}

type UpdateTenantRequest struct {
	ID       int64  `json:"id"`
	UniqueID string `json:"unique_id"`
	Name     string `json:"name"`
	Desc     string `json:"desc,omitempty"`
	Callback string `json:"callback,omitempty"`
}

type TenantDetail struct {
	Tenant types.Tenant               `json:"tenant"`
	API    types.TenantAPICredentials `json:"api"`
}

func (c *Client) TenantList(ctx context.Context) ([]types.Tenant, error) {
	var data struct {
		Tenants []types.Tenant `json:"tenants"`
	}
	if err := c.get(ctx, "/portal/tenant/list", &data); err != nil {
		return nil, err
	}
	return data.Tenants, nil
}

func (c *Client) CreateTenant(ctx context.Context, req CreateTenantRequest) error {
	return c.post(ctx, "/portal/tenant/create", req, nil)
}

func (c *Client) UpdateTenant(ctx context.Context, req UpdateTenantRequest) error {
	return c.post(ctx, "/portal/tenant/update", req, nil)
}

func (c *Client) DeleteTenant(ctx context.Context, id int64) error {
	return c.post(ctx, "/portal/tenant/delete", map[string]int64{"id": id}, nil)
}

func (c *Client) TenantDetail(ctx context.Context, id int64) (*TenantDetail, error) {
	var detail TenantDetail
	if err := c.get(ctx, fmt.Sprintf("/portal/tenant/detail/%d", id), &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

func (c *Client) PayrollSettings(ctx context.Context) (*types.SettingsCatalog, error) {
	var catalog types.SettingsCatalog
	if err := c.get(ctx, "/portal/sys/payroll/settings", &catalog); err != nil {
		return nil, err
	}
	return &catalog, nil
}

func (c *Client) SavePayrollSettings(ctx context.Context, settings types.PayrollSettings) error {
	return c.post(ctx, "/portal/sys/payroll/settings/save", settings, nil)
}
