package api

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/chainhr/payportal/internal/types"
	"github.com/chainhr/payportal/upstream"
)

func (s *Server) DepartmentList(c echo.Context) error {
	client, err := s.sessionClient(c)
	if err != nil {
		return err
	}
	depts, err := client.DepartmentList(c.Request().Context())
	if err != nil {
		return s.upstreamError(c, err)
	}
	return ok(c, depts)
}

func (s *Server) CreateDepartment(c echo.Context) error {
	var req upstream.CreateDepartmentRequest
	if err := c.Bind(&req); err != nil {
		return fmt.Errorf("fail to parse request, err: %w", err)
	}
	client, err := s.sessionClient(c)
	if err != nil {
		return err
	}
	if err := client.CreateDepartment(c.Request().Context(), req); err != nil {
		return s.upstreamError(c, err)
	}
	return ok(c, nil)
}

func (s *Server) UpdateDepartment(c echo.Context) error {
	var req upstream.UpdateDepartmentRequest
	if err := c.Bind(&req); err != nil {
		return fmt.Errorf("fail to parse request, err: %w", err)
	}
	client, err := s.sessionClient(c)
	if err != nil {
		return err
	}
	if err := client.UpdateDepartment(c.Request().Context(), req); err != nil {
		return s.upstreamError(c, err)
	}
	return ok(c, nil)
}

func (s *Server) DeleteDepartment(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorEnvelope(http.StatusBadRequest, err.Error()))
	}
	client, err := s.sessionClient(c)
	if err != nil {
		return err
	}
	if err := client.DeleteDepartment(c.Request().Context(), id); err != nil {
		return s.upstreamError(c, err)
	}
	return ok(c, nil)
}

func (s *Server) UserList(c echo.Context) error {
	client, err := s.sessionClient(c)
	if err != nil {
		return err
	}
	users, err := client.UserList(c.Request().Context())
	if err != nil {
		return s.upstreamError(c, err)
	}
	return ok(c, users)
}

func (s *Server) CreateUser(c echo.Context) error {
	var req upstream.CreateUserRequest
	if err := c.Bind(&req); err != nil {
		return fmt.Errorf("fail to parse request, err: %w", err)
	}
	client, err := s.sessionClient(c)
	if err != nil {
		return err
	}
	if err := client.CreateUser(c.Request().Context(), req); err != nil {
		return s.upstreamError(c, err)
	}
	return ok(c, nil)
}

func (s *Server) UpdateUser(c echo.Context) error {
	var req upstream.UpdateUserRequest
	if err := c.Bind(&req); err != nil {
		return fmt.Errorf("fail to parse request, err: %w", err)
	}
	client, err := s.sessionClient(c)
	if err != nil {
		return err
	}
	if err := client.UpdateUser(c.Request().Context(), req); err != nil {
		return s.upstreamError(c, err)
	}
	return ok(c, nil)
}

func (s *Server) RoleList(c echo.Context) error {
	client, err := s.sessionClient(c)
	if err != nil {
		return err
	}
	roles, err := client.RoleList(c.Request().Context())
	if err != nil {
		return s.upstreamError(c, err)
	}
	return ok(c, roles)
}

func (s *Server) CreateRole(c echo.Context) error {
	var req upstream.CreateRoleRequest
	if err := c.Bind(&req); err != nil {
		return fmt.Errorf("fail to parse request, err: %w", err)
	}
	client, err := s.sessionClient(c)
	if err != nil {
		return err
	}
	if err := client.CreateRole(c.Request().Context(), req); err != nil {
		return s.upstreamError(c, err)
	}
	return ok(c, nil)
}

func (s *Server) UpdateRole(c echo.Context) error {
	var req upstream.UpdateRoleRequest
	if err := c.Bind(&req); err != nil {
		return fmt.Errorf("fail to parse request, err: %w", err)
	}
	client, err := s.sessionClient(c)
	if err != nil {
		return err
	}
	if err := client.UpdateRole(c.Request().Context(), req); err != nil {
		return s.upstreamError(c, err)
	}
	return ok(c, nil)
}

func (s *Server) DeleteRole(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorEnvelope(http.StatusBadRequest, err.Error()))
	}
	client, err := s.sessionClient(c)
	if err != nil {
		return err
	}
	if err := client.DeleteRole(c.Request().Context(), id); err != nil {
		return s.upstreamError(c, err)
	}
	return ok(c, nil)
}

func (s *Server) FuncList(c echo.Context) error {
	client, err := s.sessionClient(c)
	if err != nil {
		return err
	}
	funcs, err := client.FuncList(c.Request().Context())
	if err != nil {
		return s.upstreamError(c, err)
	}
	return ok(c, funcs)
}

func (s *Server) RoleFuncList(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorEnvelope(http.StatusBadRequest, err.Error()))
	}
	client, err := s.sessionClient(c)
	if err != nil {
		return err
	}
	funcs, err := client.RoleFuncList(c.Request().Context(), id)
	if err != nil {
		return s.upstreamError(c, err)
	}
	return ok(c, funcs)
}

func (s *Server) RoleUserList(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorEnvelope(http.StatusBadRequest, err.Error()))
	}
	client, err := s.sessionClient(c)
	if err != nil {
		return err
	}
	users, err := client.RoleUserList(c.Request().Context(), id)
	if err != nil {
		return s.upstreamError(c, err)
	}
	return ok(c, users)
}

type bindRequest struct {
	RoleID int64 `json:"role_id"`
	FuncID int64 `json:"func_id"`
	UserID int64 `json:"user_id"`
}

func (s *Server) BindRoleFunc(c echo.Context) error {
	var req bindRequest
	if err := c.Bind(&req); err != nil {
		return fmt.Errorf("fail to parse request, err: %w", err)
	}
	client, err := s.sessionClient(c)
	if err != nil {
		return err
	}
	if err := client.BindRoleFunc(c.Request().Context(), req.RoleID, req.FuncID); err != nil {
		return s.upstreamError(c, err)
	}
	return ok(c, nil)
}

func (s *Server) UnbindRoleFunc(c echo.Context) error {
	var req bindRequest
	if err := c.Bind(&req); err != nil {
		return fmt.Errorf("fail to parse request, err: %w", err)
	}
	client, err := s.sessionClient(c)
	if err != nil {
		return err
	}
	if err := client.UnbindRoleFunc(c.Request().Context(), req.RoleID, req.FuncID); err != nil {
		return s.upstreamError(c, err)
	}
	return ok(c, nil)
}

func (s *Server) BindRoleUser(c echo.Context) error {
	var req bindRequest
	if err := c.Bind(&req); err != nil {
		return fmt.Errorf("fail to parse request, err: %w", err)
	}
	client, err := s.sessionClient(c)
	if err != nil {
		return err
	}
	if err := client.BindRoleUser(c.Request().Context(), req.RoleID, req.UserID); err != nil {
		return s.upstreamError(c, err)
	}
	return ok(c, nil)
}

func (s *Server) UnbindRoleUser(c echo.Context) error {
	var req bindRequest
	if err := c.Bind(&req); err != nil {
		return fmt.Errorf("fail to parse request, err: %w", err)
	}
	client, err := s.sessionClient(c)
	if err != nil {
		return err
	}
	if err := client.UnbindRoleUser(c.Request().Context(), req.RoleID, req.UserID); err != nil {
		return s.upstreamError(c, err)
	}
	return ok(c, nil)
}

func (s *Server) UserMenus(c echo.Context) error {
	client, err := s.sessionClient(c)
	if err != nil {
		return err
	}
	menus, err := client.UserMenus(c.Request().Context())
	if err != nil {
		return s.upstreamError(c, err)
	}
	return ok(c, menus)
}

func (s *Server) TenantList(c echo.Context) error {
	client, err := s.sessionClient(c)
	if err != nil {
		return err
	}
	tenants, err := client.TenantList(c.Request().Context())
	if err != nil {
		return s.upstreamError(c, err)
	}
	return ok(c, tenants)
}

func (s *Server) GetTenantDetail(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorEnvelope(http.StatusBadRequest, err.Error()))
	}
	client, err := s.sessionClient(c)
	if err != nil {
		return err
	}
	detail, err := client.TenantDetail(c.Request().Context(), id)
	if err != nil {
		return s.upstreamError(c, err)
	}
	return ok(c, detail)
}

func (s *Server) CreateTenant(c echo.Context) error {
	var req upstream.CreateTenantRequest
	if err := c.Bind(&req); err != nil {
		return fmt.Errorf("fail to parse request, err: %w", err)
	}
	client, err := s.sessionClient(c)
	if err != nil {
		return err
	}
	if err := client.CreateTenant(c.Request().Context(), req); err != nil {
		return s.upstreamError(c, err)
	}
	return ok(c, nil)
}

func (s *Server) UpdateTenant(c echo.Context) error {
	var req upstream.UpdateTenantRequest
	if err := c.Bind(&req); err != nil {
		return fmt.Errorf("fail to parse request, err: %w", err)
	}
	client, err := s.sessionClient(c)
	if err != nil {
		return err
	}
	if err := client.UpdateTenant(c.Request().Context(), req); err != nil {
		return s.upstreamError(c, err)
	}
	return ok(c, nil)
}

func (s *Server) DeleteTenant(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorEnvelope(http.StatusBadRequest, err.Error()))
	}
	client, err := s.sessionClient(c)
	if err != nil {
		return err
	}
	if err := client.DeleteTenant(c.Request().Context(), id); err != nil {
		return s.upstreamError(c, err)
	}
	return ok(c, nil)
}

func (s *Server) PayrollSettings(c echo.Context) error {
	client, err := s.sessionClient(c)
	if err != nil {
		return err
	}
	catalog, err := client.PayrollSettings(c.Request().Context())
	if err != nil {
		return s.upstreamError(c, err)
	}
	return ok(c, catalog)
}

func (s *Server) SavePayrollSettings(c echo.Context) error {
	var req types.PayrollSettings
	if err := c.Bind(&req); err != nil {
		return fmt.Errorf("fail to parse request, err: %w", err)
	}
	client, err := s.sessionClient(c)
	if err != nil {
		return err
	}
	if err := client.SavePayrollSettings(c.Request().Context(), req); err != nil {
		return s.upstreamError(c, err)
	}
	return ok(c, nil)
}
