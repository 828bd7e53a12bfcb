package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/avelikov/quorum-vault/internal/auth"
	"github.com/avelikov/quorum-vault/internal/model"
	"github.com/avelikov/quorum-vault/internal/service"
	"github.com/avelikov/quorum-vault/pkg/logger"
)

type Handler struct {
	teams     *service.TeamService
	txs       *service.TransactionService
	approvals *service.ApprovalService

	healthChecker HealthChecker

	logger *zap.Logger
}

func NewHandler(logger *zap.Logger) *Handler {
	return &Handler{
		logger: logger,
	}
}

func (h *Handler) WithHealthChecker(c HealthChecker) *Handler {
	h.healthChecker = c
	return h
}

func (h *Handler) WithTeamService(teams *service.TeamService) *Handler {
	h.teams = teams
	return h
}

func (h *Handler) WithTransactionService(txs *service.TransactionService) *Handler {
	h.txs = txs
	return h
}

func (h *Handler) WithApprovalService(approvals *service.ApprovalService) *Handler {
	h.approvals = approvals
	return h
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.Validator = NewValidator()
	e.Use(middleware.RequestID())
	e.Use(ZapLoggerMiddleware(h.logger))
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	if h.healthChecker != nil {
		e.GET("/health", h.healthChecker.HealthCheck())
	}

	memberSecurity := e.Group("/api", AuthMiddleware(auth.TokenTypeMember, auth.TokenTypeAdmin))

	memberSecurity.GET("/teams/get", h.GetTeam)
	memberSecurity.POST("/transactions/create", h.CreateTransaction)
	memberSecurity.GET("/transactions/pending/:teamId", h.ListPendingTransactions)
	memberSecurity.GET("/transactions/:transactionId", h.GetTransaction)
	memberSecurity.POST("/transactions/:transactionId/approve", h.ApproveTransaction)

	adminSecurity := e.Group("/api", AuthMiddleware(auth.TokenTypeAdmin))

	adminSecurity.POST("/teams/create", h.CreateTeam)
	adminSecurity.POST("/members/setIsActive", h.SetMemberIsActive)
	adminSecurity.POST("/transactions/:transactionId/cancel", h.CancelTransaction)
}

func (h *Handler) CreateTeam(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	team := &model.Team{}

	if err := h.decodeRequest(e, team); err != nil {
		l.Error("invalid request", zap.Any("error", err))
		return h.transportError(e, err)
	}

	l.Info("creating team", zap.String("team_name", team.Name), zap.Int("quorum", team.Quorum))

	created, err := h.teams.AddTeam(e.Request().Context(), team)
	if err != nil {
		l.Error("failed to create team", zap.String("team_name", team.Name), zap.Any("error", err))
		return h.transportError(e, err)
	}

	return e.JSON(http.StatusCreated, created)
}

func (h *Handler) GetTeam(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	teamID := e.QueryParam("team_id")

	l.Info("getting team", zap.String("team_id", teamID))

	team, err := h.teams.GetTeam(e.Request().Context(), teamID)
	if err != nil {
		l.Error("failed to get team", zap.String("team_id", teamID), zap.Any("error", err))
		return h.transportError(e, err)
	}

	return e.JSON(http.StatusOK, team)
}

func (h *Handler) SetMemberIsActive(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	var req struct {
		UserID   string `json:"user_id" validate:"required"`
		IsActive bool   `json:"is_active"`
	}

	if err := h.decodeRequest(e, &req); err != nil {
		l.Error("invalid request", zap.Any("error", err))
		return h.transportError(e, err)
	}

	l.Info("setting member active status",
		zap.String("user_id", req.UserID),
		zap.Bool("is_active", req.IsActive))

	member, err := h.teams.SetMemberIsActive(e.Request().Context(), req.UserID, req.IsActive)
	if err != nil {
		l.Error("failed to set member active status",
			zap.String("user_id", req.UserID),
			zap.Any("error", err))
		return h.transportError(e, err)
	}

	return e.JSON(http.StatusOK, member)
}

func (h *Handler) CreateTransaction(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	caller, ok := CallerFromContext(e.Request().Context())
	if !ok {
		return h.transportError(e, service.NewError(service.ErrorCodeUnauthorized, "missing caller identity"))
	}

	draft := &service.TransactionDraft{}

	if err := h.decodeRequest(e, draft); err != nil {
		l.Error("invalid request", zap.Any("error", err))
		return h.transportError(e, err)
	}

	l.Info("creating transaction",
		zap.String("team_id", draft.TeamID),
		zap.String("created_by", caller.UserID))

	tx, err := h.txs.CreateTransaction(e.Request().Context(), draft, caller.UserID)
	if err != nil {
		l.Error("failed to create transaction",
			zap.String("team_id", draft.TeamID),
			zap.Any("error", err))
		return h.transportError(e, err)
	}

	return e.JSON(http.StatusCreated, tx)
}

func (h *Handler) GetTransaction(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	txID := e.Param("transactionId")

	tx, err := h.txs.GetTransaction(e.Request().Context(), txID)
	if err != nil {
		l.Error("failed to get transaction", zap.String("transaction_id", txID), zap.Any("error", err))
		return h.transportError(e, err)
	}

	return e.JSON(http.StatusOK, tx)
}

func (h *Handler) ListPendingTransactions(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	teamID := e.Param("teamId")

	l.Info("listing pending transactions", zap.String("team_id", teamID))

	txs, err := h.txs.ListPending(e.Request().Context(), teamID)
	if err != nil {
		l.Error("failed to list pending transactions", zap.String("team_id", teamID), zap.Any("error", err))
		return h.transportError(e, err)
	}

	return e.JSON(http.StatusOK, txs)
}

// ApproveTransaction submits an approval. The approver identity is the
// token subject; the body carries only the shard value.
func (h *Handler) ApproveTransaction(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	caller, ok := CallerFromContext(e.Request().Context())
	if !ok {
		return h.transportError(e, service.NewError(service.ErrorCodeUnauthorized, "missing caller identity"))
	}

	txID := e.Param("transactionId")

	var req struct {
		ShardValue string `json:"shard_value" validate:"required"`
	}

	if err := h.decodeRequest(e, &req); err != nil {
		l.Error("invalid request", zap.Any("error", err))
		return h.transportError(e, err)
	}

	l.Info("approving transaction",
		zap.String("transaction_id", txID),
		zap.String("approver_id", caller.UserID))

	tx, err := h.approvals.SubmitApproval(e.Request().Context(), txID, caller.UserID, req.ShardValue)
	if err != nil {
		l.Error("failed to approve transaction",
			zap.String("transaction_id", txID),
			zap.String("approver_id", caller.UserID),
			zap.Any("error", err))
		return h.transportError(e, err)
	}

	return e.JSON(http.StatusOK, tx)
}

func (h *Handler) CancelTransaction(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	txID := e.Param("transactionId")

	l.Info("cancelling transaction", zap.String("transaction_id", txID))

	tx, err := h.txs.CancelTransaction(e.Request().Context(), txID)
	if err != nil {
		l.Error("failed to cancel transaction", zap.String("transaction_id", txID), zap.Any("error", err))
		return h.transportError(e, err)
	}

	return e.JSON(http.StatusOK, tx)
}

func (h *Handler) decodeRequest(e echo.Context, req any) *service.Error {
	if err := e.Bind(req); err != nil {
		return service.NewError(service.ErrorCodeInvalidBody, "invalid request body")
	}

	if err := e.Validate(req); err != nil {
		return service.NewError(service.ErrorCodeInvalidBody, errors.Wrap(err, "request validation failed").Error())
	}
	return nil
}

func (h *Handler) transportError(e echo.Context, err *service.Error) error {
	response := struct {
		Error *service.Error `json:"error"`
	}{Error: err}

	switch err.Code {
	case service.ErrorCodeNotFound:
		return e.JSON(http.StatusNotFound, response)
	case service.ErrorCodeInvalidBody, service.ErrorCodeQuorumInvalid, service.ErrorCodeTeamExists:
		return e.JSON(http.StatusBadRequest, response)
	case service.ErrorCodeUnauthorized:
		return e.JSON(http.StatusUnauthorized, response)
	case service.ErrorCodeNotMember, service.ErrorCodeMemberInactive:
		return e.JSON(http.StatusForbidden, response)
	case service.ErrorCodeShardRejected:
		return e.JSON(http.StatusUnprocessableEntity, response)
	case service.ErrorCodeAlreadyTerminal, service.ErrorCodeTransactionExists:
		return e.JSON(http.StatusConflict, response)
	case service.ErrorCodeConcurrencyConflict:
		return e.JSON(http.StatusServiceUnavailable, response)
	default:
		return e.JSON(http.StatusInternalServerError, response)
	}
}
