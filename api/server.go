package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/DataDog/datadog-go/statsd"
	"github.com/hibiken/asynq"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/sirupsen/logrus"

	"github.com/chainhr/payportal/chain"
	"github.com/chainhr/payportal/config"
	"github.com/chainhr/payportal/internal/tasks"
	"github.com/chainhr/payportal/payment"
	"github.com/chainhr/payportal/storage"
	"github.com/chainhr/payportal/upstream"
)

type Server struct {
	cfg      config.Config
	port     int64
	redis    *storage.RedisStorage
	client   *asynq.Client
	sdClient *statsd.Client
	logger   *logrus.Logger
	upstream *upstream.Client
	wallet   chain.Wallet
	db       storage.DatabaseStorage
	receipts *storage.ReceiptStorage
}

// NewServer returns a new server.
func NewServer(cfg config.Config,
	redis *storage.RedisStorage,
	client *asynq.Client,
	sdClient *statsd.Client,
	upstreamClient *upstream.Client,
	wallet chain.Wallet,
	db storage.DatabaseStorage,
	receipts *storage.ReceiptStorage) *Server {
	logger := logrus.WithField("service", "api").Logger

	logger.Info("Initializing new server...")

	return &Server{
		cfg:      cfg,
		port:     cfg.Server.Port,
		redis:    redis,
		client:   client,
		sdClient: sdClient,
		logger:   logger,
		upstream: upstreamClient,
		wallet:   wallet,
		db:       db,
		receipts: receipts,
	}
}

func (s *Server) StartServer() error {
	e := echo.New()
	e.Logger.SetLevel(log.DEBUG)
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit("2M")) // set maximum allowed size for a request body to 2M
	e.Use(s.statsdMiddleware)
	e.Use(middleware.CORS())
	limiterStore := middleware.NewRateLimiterMemoryStoreWithConfig(
		middleware.RateLimiterMemoryStoreConfig{Rate: 5, Burst: 30, ExpiresIn: 5 * time.Minute},
	)
	e.Use(middleware.RateLimiter(limiterStore))
	e.GET("/ping", s.Ping)
	e.POST("/portal/login", s.Login)

	grp := e.Group("/portal", s.sessionMiddleware)
	grp.POST("/logout", s.Logout)
	grp.GET("/user/menus", s.UserMenus)

	payrollGrp := grp.Group("/payroll")
	payrollGrp.GET("/list", s.PayrollList)
	payrollGrp.GET("/detail/:id", s.PayrollDetail)
	payrollGrp.POST("/create", s.CreatePayroll)
	payrollGrp.POST("/update", s.UpdatePayroll)
	payrollGrp.POST("/delete/:id", s.DeletePayroll)
	payrollGrp.POST("/submit/:id", s.SubmitPayroll)
	payrollGrp.POST("/audit", s.AuditPayroll)
	payrollGrp.POST("/staff/set", s.SetPayrollStaff)
	payrollGrp.GET("/staff/list", s.PayrollStaffList)
	payrollGrp.POST("/staff/wallet", s.SetStaffWallet)
	payrollGrp.POST("/pay/:id", s.Pay)
	payrollGrp.GET("/pay/status/:id", s.PayStatus)
	payrollGrp.POST("/pay/recheck/:id", s.RecheckPayment)
	payrollGrp.GET("/pay/receipt/:id", s.PaymentReceipt)
	payrollGrp.GET("/pay/history/:id", s.PaymentHistory)

	grp.GET("/payslip/list", s.PayslipList)

	deptGrp := grp.Group("/dept")
	deptGrp.GET("/list", s.DepartmentList)
	deptGrp.POST("/create", s.CreateDepartment)
	deptGrp.POST("/update", s.UpdateDepartment)
	deptGrp.POST("/delete/:id", s.DeleteDepartment)

	userGrp := grp.Group("/user")
	userGrp.GET("/list", s.UserList)
	userGrp.POST("/create", s.CreateUser)
	userGrp.POST("/update", s.UpdateUser)

	rbacGrp := grp.Group("/rbac")
	rbacGrp.GET("/role/list", s.RoleList)
	rbacGrp.POST("/role/create", s.CreateRole)
	rbacGrp.POST("/role/update", s.UpdateRole)
	rbacGrp.POST("/role/delete/:id", s.DeleteRole)
	rbacGrp.GET("/func/list", s.FuncList)
	rbacGrp.GET("/role/funcs/:id", s.RoleFuncList)
	rbacGrp.GET("/role/users/:id", s.RoleUserList)
	rbacGrp.POST("/role/func/bind", s.BindRoleFunc)
	rbacGrp.POST("/role/func/unbind", s.UnbindRoleFunc)
	rbacGrp.POST("/role/user/bind", s.BindRoleUser)
	rbacGrp.POST("/role/user/unbind", s.UnbindRoleUser)

	tenantGrp := grp.Group("/tenant")
	tenantGrp.GET("/list", s.TenantList)
	tenantGrp.GET("/detail/:id", s.GetTenantDetail)
	tenantGrp.POST("/create", s.CreateTenant)
	tenantGrp.POST("/update", s.UpdateTenant)
	tenantGrp.POST("/delete/:id", s.DeleteTenant)

	sysGrp := grp.Group("/sys")
	sysGrp.GET("/payroll/settings", s.PayrollSettings)
	sysGrp.POST("/payroll/settings/save", s.SavePayrollSettings)

	return e.Start(fmt.Sprintf(":%d", s.port))
}

func (s *Server) Ping(c echo.Context) error {
	return c.String(http.StatusOK, "Payportal is running")
}

// sessionClient returns an upstream client bound to the caller's XAUTH
// token. Must be called after sessionMiddleware has run.
func (s *Server) sessionClient(c echo.Context) (*upstream.Client, error) {
	session := currentSession(c)
	if session == nil {
		return nil, fmt.Errorf("no session on request")
	}
	return s.upstream.WithToken(session.UpstreamToken), nil
}

// orchestrator builds a payment flow bound to the caller's upstream
// credentials. The wallet, lock store and journal are shared; only the
// backend view is per session.
func (s *Server) orchestrator(backend payment.Backend) *payment.Orchestrator {
	return payment.NewOrchestrator(
		backend,
		s.wallet,
		s.redis,
		s.db,
		tasks.NewEnqueuer(s.client),
		s.receipts,
		s.sdClient,
		s.logger,
	)
}
