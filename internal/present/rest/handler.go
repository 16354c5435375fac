package rest

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	mediflow "github.com/singhaditya73/MediFlow"
	"github.com/singhaditya73/MediFlow/internal/domain"
	"github.com/singhaditya73/MediFlow/internal/expiry"
	"github.com/singhaditya73/MediFlow/internal/present/rest/presenter"
	"github.com/singhaditya73/MediFlow/internal/service"
	"github.com/singhaditya73/MediFlow/internal/usecase"
)

type Handler struct {
	access *usecase.AccessUsecase
	audit  *usecase.AuditUsecase
	record *usecase.RecordUsecase
	signal *service.SignalService
}

func NewHandler(
	access *usecase.AccessUsecase,
	audit *usecase.AuditUsecase,
	record *usecase.RecordUsecase,
	signal *service.SignalService,
) *Handler {
	return &Handler{
		access: access,
		audit:  audit,
		record: record,
		signal: signal,
	}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/access-control", h.handleListOwnedGrants)
	e.POST("/access-control", h.handleGrant)
	e.PATCH("/access-control/:id", h.handleUpdateGrant)
	e.GET("/access-control/received", h.handleListReceivedGrants)
	e.GET("/audit-logs", h.handleAuditLogs)
	e.POST("/records", h.handleRegisterRecord)
	e.GET("/records", h.handleListRecords)
	e.GET("/records/:id", h.handleFetchRecord)
	e.DELETE("/records/:id", h.handleDeleteRecord)
	e.GET("/records/:id/audit-trail", h.handleAuditTrail)
	e.GET("/records/:id/access/:address", h.handleCheckAccess)
	e.GET("/realtime", h.handleRealtime)
}

func requester(c echo.Context) string {
	addr, _ := c.Request().Context().Value(domain.RequesterAddrCtxKey).(string)
	return addr
}

// present maps the failure taxonomy onto HTTP statuses. Unmapped errors stay
// internal.
func present(c echo.Context, err error) error {
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		return presenter.Unauthorized(c, domain.UserMessage(err))
	case errors.Is(err, domain.ErrNotOwner):
		return presenter.Forbidden(c, domain.UserMessage(err))
	case errors.Is(err, domain.ErrNotFound):
		return presenter.NotFound(c, domain.UserMessage(err))
	case errors.Is(err, domain.ErrInvalidPrincipal),
		errors.Is(err, domain.ErrInvalidInput):
		return presenter.BadRequestMessage(c, err.Error())
	case errors.Is(err, domain.ErrUserCancelled),
		errors.Is(err, domain.ErrInsufficientFunds),
		errors.Is(err, domain.ErrWrongNetwork):
		return presenter.BadRequestMessage(c, domain.UserMessage(err))
	case errors.Is(err, domain.ErrNetworkUnavailable):
		return presenter.BadGateway(c, domain.UserMessage(err))
	default:
		return presenter.InternalError(c, err)
	}
}

type grantRequest struct {
	RecordID        string `json:"recordId"`
	ReceiverAddress string `json:"receiverAddress"`
	AccessLevel     string `json:"accessLevel"`
	ExpiresAt       int64  `json:"expiresAt"`
}

func (h *Handler) handleGrant(c echo.Context) error {
	ctx := c.Request().Context()

	var req grantRequest
	if err := c.Bind(&req); err != nil {
		return presenter.BadRequest(c, err)
	}

	level, err := mediflow.ParseAccessLevel(req.AccessLevel)
	if err != nil {
		return presenter.BadRequest(c, err)
	}

	result, err := h.access.Grant(ctx, requester(c), usecase.GrantInput{
		RecordID:  req.RecordID,
		Receiver:  req.ReceiverAddress,
		Level:     level,
		ExpiresAt: req.ExpiresAt,
	})
	if err != nil {
		return present(c, err)
	}
	if result.Pending {
		return presenter.Accepted(c, result)
	}
	return presenter.OK(c, result)
}

type updateGrantRequest struct {
	IsActive    *bool   `json:"isActive"`
	AccessLevel *string `json:"accessLevel"`
	ExpiresAt   *int64  `json:"expiresAt"`
}

func (h *Handler) handleUpdateGrant(c echo.Context) error {
	ctx := c.Request().Context()

	var req updateGrantRequest
	if err := c.Bind(&req); err != nil {
		return presenter.BadRequest(c, err)
	}

	var input usecase.UpdateInput
	input.IsActive = req.IsActive
	input.ExpiresAt = req.ExpiresAt
	if req.AccessLevel != nil {
		level, err := mediflow.ParseAccessLevel(*req.AccessLevel)
		if err != nil {
			return presenter.BadRequest(c, err)
		}
		input.Level = &level
	}

	result, err := h.access.Toggle(ctx, requester(c), c.Param("id"), input)
	if err != nil {
		return present(c, err)
	}
	if result.Pending {
		return presenter.Accepted(c, result)
	}
	return presenter.OK(c, result)
}

type grantPresentation struct {
	domain.GrantView
	// Countdown is set while the grant is active and bounded, e.g. "2d 03:04:05".
	Countdown string `json:"countdown,omitempty"`
}

func withCountdown(views []domain.GrantView) []grantPresentation {
	now := time.Now()
	out := make([]grantPresentation, 0, len(views))
	for _, v := range views {
		p := grantPresentation{GrantView: v}
		if status := expiry.Evaluate(v.ExpiresAt, now); status.State == expiry.Active && v.IsActive {
			p.Countdown = status.Remaining.String()
		}
		out = append(out, p)
	}
	return out
}

func (h *Handler) handleListOwnedGrants(c echo.Context) error {
	ctx := c.Request().Context()

	views, err := h.access.ListOwned(ctx, requester(c))
	if err != nil {
		return present(c, err)
	}
	return presenter.OK(c, echo.Map{"grants": withCountdown(views)})
}

func (h *Handler) handleListReceivedGrants(c echo.Context) error {
	ctx := c.Request().Context()

	views, err := h.access.ListReceived(ctx, requester(c))
	if err != nil {
		return present(c, err)
	}
	return presenter.OK(c, echo.Map{"grants": withCountdown(views)})
}

func (h *Handler) handleAuditLogs(c echo.Context) error {
	ctx := c.Request().Context()

	filter := domain.AuditFilter{
		RecordID: c.QueryParam("recordId"),
		Action:   mediflow.AuditAction(c.QueryParam("action")),
	}

	if pageStr := c.QueryParam("page"); pageStr != "" {
		page, err := strconv.Atoi(pageStr)
		if err != nil {
			return presenter.BadRequestMessage(c, "invalid page parameter")
		}
		filter.Page = page
	}
	if limitStr := c.QueryParam("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil {
			return presenter.BadRequestMessage(c, "invalid limit parameter")
		}
		filter.Limit = limit
	}

	page, err := h.audit.Logs(ctx, requester(c), filter)
	if err != nil {
		return present(c, err)
	}
	return presenter.OK(c, page)
}

type registerRecordRequest struct {
	ID           string `json:"id"`
	ContentHash  string `json:"contentHash"`
	ResourceType string `json:"resourceType"`
}

func (h *Handler) handleRegisterRecord(c echo.Context) error {
	ctx := c.Request().Context()

	var req registerRecordRequest
	if err := c.Bind(&req); err != nil {
		return presenter.BadRequest(c, err)
	}

	result, err := h.record.Register(ctx, requester(c), usecase.RegisterInput{
		ID:           req.ID,
		ContentHash:  req.ContentHash,
		ResourceType: req.ResourceType,
	})
	if err != nil {
		return present(c, err)
	}
	if result.Pending {
		return presenter.Accepted(c, result)
	}
	return presenter.OK(c, result)
}

func (h *Handler) handleListRecords(c echo.Context) error {
	ctx := c.Request().Context()

	records, err := h.record.ListOwned(ctx, requester(c))
	if err != nil {
		return present(c, err)
	}
	return presenter.OK(c, echo.Map{"records": records})
}

func (h *Handler) handleFetchRecord(c echo.Context) error {
	ctx := c.Request().Context()

	record, content, err := h.record.Fetch(ctx, requester(c), c.Param("id"))
	if err != nil {
		return present(c, err)
	}
	return presenter.OK(c, echo.Map{
		"record":  record,
		"content": string(content),
	})
}

func (h *Handler) handleDeleteRecord(c echo.Context) error {
	ctx := c.Request().Context()

	if err := h.record.Delete(ctx, requester(c), c.Param("id")); err != nil {
		return present(c, err)
	}
	return presenter.OK(c, echo.Map{"status": "ok"})
}

func (h *Handler) handleAuditTrail(c echo.Context) error {
	ctx := c.Request().Context()

	entries, err := h.audit.Trail(ctx, requester(c), c.Param("id"))
	if err != nil {
		return present(c, err)
	}
	return presenter.OK(c, echo.Map{"entries": entries})
}

func (h *Handler) handleCheckAccess(c echo.Context) error {
	ctx := c.Request().Context()

	usable, access, err := h.record.HasAccess(ctx, c.Param("id"), c.Param("address"))
	if err != nil {
		return present(c, err)
	}
	return presenter.OK(c, echo.Map{
		"hasAccess": usable,
		"access":    access,
	})
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type realtimeRequest struct {
	Type      string   `json:"type"`
	RecordIDs []string `json:"recordIds"`
}

// handleRealtime streams access events over a websocket. A "listen" message
// narrows the stream to the named records; without one every event passes.
func (h *Handler) handleRealtime(c echo.Context) error {
	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		slog.Error(
			"Failed to upgrade WebSocket",
			slog.String("error", err.Error()),
			slog.String("module", "socket"),
		)
		return err
	}
	defer func() {
		ws.Close()
	}()

	ctx := c.Request().Context()

	events, unsubscribe := h.signal.Subscribe(ctx)
	defer unsubscribe()

	filter := make(chan []string, 1)
	quit := make(chan struct{})

	go func() {
		for {
			var req realtimeRequest
			err := ws.ReadJSON(&req)
			if err != nil {

				wsErr, ok := err.(*websocket.CloseError)
				if ok {
					if !(wsErr.Code == websocket.CloseNormalClosure || wsErr.Code == websocket.CloseGoingAway) {
						slog.DebugContext(
							ctx, "WebSocket closed",
							slog.String("error", wsErr.Error()),
							slog.String("module", "socket"),
						)
					}
				} else {
					slog.ErrorContext(
						ctx, "Error reading message",
						slog.String("error", err.Error()),
						slog.String("module", "socket"),
					)
				}

				close(quit)
				break
			}

			switch req.Type {
			case "listen":
				filter <- req.RecordIDs
			case "h": // heartbeat
				// do nothing
			default:
				slog.InfoContext(
					ctx, "Unknown request type",
					slog.String("type", req.Type),
					slog.String("module", "socket"),
				)
			}
		}
	}()

	listening := map[string]bool{}

	for {
		select {
		case <-quit:
			return nil
		case recordIDs := <-filter:
			listening = map[string]bool{}
			for _, id := range recordIDs {
				listening[id] = true
			}
		case event, ok := <-events:
			if !ok {
				return nil
			}
			if len(listening) > 0 && !listening[event.RecordID] {
				continue
			}
			err := ws.WriteJSON(event)
			if err != nil {
				slog.ErrorContext(
					ctx, "Error writing message",
					slog.String("error", err.Error()),
					slog.String("module", "socket"),
				)
				return nil
			}
		}
	}
}
