package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/chainhr/payportal/internal/types"
	"github.com/chainhr/payportal/payment"
	"github.com/chainhr/payportal/upstream"
)

func pathID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q", c.Param("id"))
	}
	return id, nil
}

func (s *Server) PayrollList(c echo.Context) error {
	client, err := s.sessionClient(c)
	if err != nil {
		return err
	}
	payrolls, err := client.PayrollList(c.Request().Context())
	if err != nil {
		return s.upstreamError(c, err)
	}
	return ok(c, payrolls)
}

func (s *Server) PayrollDetail(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorEnvelope(http.StatusBadRequest, err.Error()))
	}
	client, err := s.sessionClient(c)
	if err != nil {
		return err
	}
	detail, err := client.PayrollDetail(c.Request().Context(), id)
	if err != nil {
		return s.upstreamError(c, err)
	}
	return ok(c, detail)
}

func (s *Server) CreatePayroll(c echo.Context) error {
	var req upstream.CreatePayrollRequest
	if err := c.Bind(&req); err != nil {
		return fmt.Errorf("fail to parse request, err: %w", err)
	}
	client, err := s.sessionClient(c)
	if err != nil {
		return err
	}
	if err := client.CreatePayroll(c.Request().Context(), req); err != nil {
		return s.upstreamError(c, err)
	}
	return ok(c, nil)
}

func (s *Server) UpdatePayroll(c echo.Context) error {
	var req upstream.UpdatePayrollRequest
	if err := c.Bind(&req); err != nil {
		return fmt.Errorf("fail to parse request, err: %w", err)
	}
	client, err := s.sessionClient(c)
	if err != nil {
		return err
	}
	if err := client.UpdatePayroll(c.Request().Context(), req); err != nil {
		return s.upstreamError(c, err)
	}
	return ok(c, nil)
}

func (s *Server) DeletePayroll(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorEnvelope(http.StatusBadRequest, err.Error()))
	}
	client, err := s.sessionClient(c)
	if err != nil {
		return err
	}
	if err := client.DeletePayroll(c.Request().Context(), id); err != nil {
		return s.upstreamError(c, err)
	}
	return ok(c, nil)
}

func (s *Server) SubmitPayroll(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorEnvelope(http.StatusBadRequest, err.Error()))
	}
	client, err := s.sessionClient(c)
	if err != nil {
		return err
	}

	// Refuse submission while any line item still has no wallet; the
	// backend would accept it and the payment would later fail on an
	// incomplete recipient list.
	detail, err := client.PayrollDetail(c.Request().Context(), id)
	if err != nil {
		return s.upstreamError(c, err)
	}
	for _, item := range detail.Items {
		if !item.Payable() {
			return c.JSON(http.StatusUnprocessableEntity,
				errorEnvelope(http.StatusUnprocessableEntity,
					fmt.Sprintf("staff %d has no wallet address", item.UserID)))
		}
	}

	if err := client.SubmitPayroll(c.Request().Context(), id); err != nil {
		return s.upstreamError(c, err)
	}
	return ok(c, nil)
}

type auditRequest struct {
	PayrollID int64  `json:"payroll_id"`
	Status    string `json:"status"`
	Reason    string `json:"reason"`
}

func (s *Server) AuditPayroll(c echo.Context) error {
	var req auditRequest
	if err := c.Bind(&req); err != nil {
		return fmt.Errorf("fail to parse request, err: %w", err)
	}
	client, err := s.sessionClient(c)
	if err != nil {
		return err
	}
	if err := client.AuditPayroll(c.Request().Context(), req.PayrollID, req.Status, req.Reason); err != nil {
		return s.upstreamError(c, err)
	}
	return ok(c, nil)
}

type setStaffRequest struct {
	PayrollID int64                `json:"payroll_id"`
	StaffList []upstream.StaffItem `json:"staff_list"`
}

func (s *Server) SetPayrollStaff(c echo.Context) error {
	var req setStaffRequest
	if err := c.Bind(&req); err != nil {
		return fmt.Errorf("fail to parse request, err: %w", err)
	}
	client, err := s.sessionClient(c)
	if err != nil {
		return err
	}
	if err := client.SetPayrollStaff(c.Request().Context(), req.PayrollID, req.StaffList); err != nil {
		return s.upstreamError(c, err)
	}
	return ok(c, nil)
}

func (s *Server) PayrollStaffList(c echo.Context) error {
	client, err := s.sessionClient(c)
	if err != nil {
		return err
	}
	staff, err := client.PayrollStaffList(c.Request().Context())
	if err != nil {
		return s.upstreamError(c, err)
	}
	return ok(c, staff)
}

type setWalletRequest struct {
	UserID        int64  `json:"user_id"`
	WalletAddress string `json:"wallet_address"`
}

func (s *Server) SetStaffWallet(c echo.Context) error {
	var req setWalletRequest
	if err := c.Bind(&req); err != nil {
		return fmt.Errorf("fail to parse request, err: %w", err)
	}
	client, err := s.sessionClient(c)
	if err != nil {
		return err
	}
	if err := client.SetStaffWallet(c.Request().Context(), req.UserID, req.WalletAddress); err != nil {
		return s.upstreamError(c, err)
	}
	return ok(c, nil)
}

func (s *Server) PayslipList(c echo.Context) error {
	client, err := s.sessionClient(c)
	if err != nil {
		return err
	}
	payslips, err := client.PayslipList(c.Request().Context())
	if err != nil {
		return s.upstreamError(c, err)
	}
	return ok(c, payslips)
}

// Pay runs the full payment flow for an approved payroll. Failures come
// back as one of the fixed failure kinds so the UI can react without
// parsing raw chain errors.
func (s *Server) Pay(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorEnvelope(http.StatusBadRequest, err.Error()))
	}
	client, err := s.sessionClient(c)
	if err != nil {
		return err
	}
	if err := s.sdClient.Count("payroll.pay", 1, nil, 1); err != nil {
		s.logger.Errorf("fail to count metric, err: %v", err)
	}

	receipt, err := s.orchestrator(client).Pay(c.Request().Context(), id)
	if err != nil {
		return s.paymentError(c, err)
	}
	return ok(c, receipt)
}

type paymentFailure struct {
	Kind      string `json:"kind"`
	Retryable bool   `json:"retryable"`
	Detail    string `json:"detail"`
}

func (s *Server) paymentError(c echo.Context, err error) error {
	if errors.Is(err, payment.ErrPaymentInProgress) {
		return c.JSON(http.StatusConflict, errorEnvelope(http.StatusConflict, err.Error()))
	}
	if errors.Is(err, payment.ErrWrongStatus) {
		return c.JSON(http.StatusConflict, errorEnvelope(http.StatusConflict, err.Error()))
	}
	kind, ok := payment.KindOf(err)
	if !ok {
		return err
	}
	s.logger.WithError(err).WithField("kind", kind.String()).Error("payment flow failed")
	status := http.StatusBadGateway
	switch kind {
	case payment.KindPermissionDenied:
		status = http.StatusForbidden
	case payment.KindNoPayableRecipients, payment.KindUnsupportedChain:
		status = http.StatusUnprocessableEntity
	}
	resp := errorEnvelope(status, kind.String())
	resp.Data = paymentFailure{Kind: kind.String(), Retryable: kind.Retryable(), Detail: err.Error()}
	return c.JSON(status, resp)
}

type payStatusResponse struct {
	PayrollID int64       `json:"payroll_id"`
	Status    string      `json:"status"`
	Attempt   interface{} `json:"attempt,omitempty"`
}

// PayStatus reports the payroll's backend status together with the local
// journal view, so a stuck BROADCAST attempt is visible to the operator.
func (s *Server) PayStatus(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorEnvelope(http.StatusBadRequest, err.Error()))
	}
	client, err := s.sessionClient(c)
	if err != nil {
		return err
	}
	detail, err := client.PayrollDetail(c.Request().Context(), id)
	if err != nil {
		return s.upstreamError(c, err)
	}
	resp := payStatusResponse{PayrollID: id, Status: detail.Payroll.Status().String()}
	attempt, err := s.db.LatestAttempt(c.Request().Context(), id)
	if err != nil {
		s.logger.Errorf("fail to read payment journal, err: %v", err)
	} else if attempt != nil {
		resp.Attempt = attempt
	}
	return ok(c, resp)
}

// RecheckPayment forces the reconciliation path: the backend re-derives the
// payroll status from chain state, and an acknowledged result clears the
// local journal.
func (s *Server) RecheckPayment(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorEnvelope(http.StatusBadRequest, err.Error()))
	}
	client, err := s.sessionClient(c)
	if err != nil {
		return err
	}
	status, err := client.RecheckPayment(c.Request().Context(), id)
	if err != nil {
		return s.upstreamError(c, err)
	}
	if status.Terminal() {
		attempt, jErr := s.db.LatestAttempt(c.Request().Context(), id)
		if jErr == nil && attempt != nil && attempt.State != types.AttemptAcknowledged {
			if err := s.db.MarkAcknowledged(c.Request().Context(), attempt.ID); err != nil {
				s.logger.Errorf("fail to acknowledge attempt %s, err: %v", attempt.ID, err)
			}
		}
	}
	return ok(c, map[string]string{"status": status.String()})
}

func (s *Server) PaymentReceipt(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorEnvelope(http.StatusBadRequest, err.Error()))
	}
	receipt, err := s.receipts.GetReceipt(c.Request().Context(), id)
	if err != nil {
		return c.JSON(http.StatusNotFound, errorEnvelope(http.StatusNotFound, "no receipt for payroll"))
	}
	return ok(c, receipt)
}

func (s *Server) PaymentHistory(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorEnvelope(http.StatusBadRequest, err.Error()))
	}
	take, err := strconv.Atoi(c.QueryParam("take"))
	if err != nil || take <= 0 || take > 100 {
		take = 20
	}
	skip, err := strconv.Atoi(c.QueryParam("skip"))
	if err != nil || skip < 0 {
		skip = 0
	}
	attempts, err := s.db.AttemptHistory(c.Request().Context(), id, take, skip)
	if err != nil {
		return fmt.Errorf("fail to read payment history, err: %w", err)
	}
	return ok(c, attempts)
}

// upstreamError translates backend application errors into the shared
// envelope; anything else bubbles up to echo's error handler.
func (s *Server) upstreamError(c echo.Context, err error) error {
	var apiErr *upstream.APIError
	if errors.As(err, &apiErr) {
		status := http.StatusBadRequest
		if upstream.IsPermissionDenied(err) {
			status = http.StatusForbidden
		}
		return c.JSON(status, errorEnvelope(apiErr.Code, apiErr.Msg))
	}
	return err
}
