package http

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/webgradeuz/fuelbonus/internal/application/port"
	"github.com/webgradeuz/fuelbonus/internal/application/service"
	"github.com/webgradeuz/fuelbonus/internal/domain/entity"
)

const excelContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Handlers contains all HTTP request handlers
type Handlers struct {
	checkService        service.CheckService
	customerService     service.CustomerService
	stationService      service.StationService
	exportService       service.ExportService
	notificationService service.NotificationService
	logger              Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(
	checkService service.CheckService,
	customerService service.CustomerService,
	stationService service.StationService,
	exportService service.ExportService,
	notificationService service.NotificationService,
	logger Logger,
) *Handlers {
	return &Handlers{
		checkService:        checkService,
		customerService:     customerService,
		stationService:      stationService,
		exportService:       exportService,
		notificationService: notificationService,
		logger:              logger,
	}
}

// respondError maps domain errors to HTTP status codes
func (h *Handlers) respondError(c *gin.Context, err error) {
	var stateErr *entity.InvalidStateError

	status := http.StatusInternalServerError
	message := "internal error"

	switch {
	case errors.Is(err, entity.ErrCheckNotFound),
		errors.Is(err, entity.ErrCustomerNotFound),
		errors.Is(err, entity.ErrStationNotFound):
		status, message = http.StatusNotFound, err.Error()
	case errors.As(err, &stateErr):
		status, message = http.StatusBadRequest, stateErr.Error()
	case errors.Is(err, entity.ErrCheckExpired),
		errors.Is(err, entity.ErrNoLinkedCustomer):
		status, message = http.StatusBadRequest, err.Error()
	case errors.Is(err, entity.ErrNotAuthorized):
		status, message = http.StatusForbidden, err.Error()
	case errors.Is(err, entity.ErrConflict):
		status, message = http.StatusConflict, err.Error()
	default:
		h.logger.Error("Request failed", "error", err)
	}

	c.JSON(status, Response{Success: false, Error: message})
}

func (h *Handlers) badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, Response{Success: false, Error: message})
}

func pathID(c *gin.Context) (int64, error) {
	return strconv.ParseInt(c.Param("id"), 10, 64)
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: gin.H{
			"status":    "healthy",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		},
	})
}

// IssueCheck handles POST /api/checks
func (h *Handlers) IssueCheck(c *gin.Context) {
	var req IssueCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body")
		return
	}

	amount, err := decimal.NewFromString(req.AmountLiters)
	if err != nil || amount.Sign() <= 0 {
		h.badRequest(c, "amount_liters must be a positive decimal")
		return
	}

	check, err := h.checkService.Issue(c.Request.Context(), service.IssueInput{
		AmountLiters:    amount,
		OperatorID:      req.OperatorID,
		StationID:       req.StationID,
		CustomerName:    req.CustomerName,
		CustomerPhone:   req.CustomerPhone,
		CustomerAddress: req.CustomerAddress,
		AutoUse:         req.AutoUse,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: toCheckResponse(check)})
}

// ListChecks handles GET /api/checks
func (h *Handlers) ListChecks(c *gin.Context) {
	var req ListChecksRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.badRequest(c, "invalid query parameters")
		return
	}
	if req.Limit <= 0 || req.Limit > 100 {
		req.Limit = 20
	}
	if req.Offset < 0 {
		req.Offset = 0
	}

	filter := port.CheckFilter{
		StationID:  req.StationID,
		OperatorID: req.OperatorID,
		IsPrinted:  req.Printed,
		Limit:      req.Limit,
		Offset:     req.Offset,
	}
	if req.Status != nil {
		status := entity.CheckStatus(*req.Status)
		if !status.IsValid() {
			h.badRequest(c, "invalid status filter")
			return
		}
		filter.Status = &status
	}

	checks, total, err := h.checkService.List(c.Request.Context(), filter)
	if err != nil {
		h.respondError(c, err)
		return
	}

	items := make([]CheckResponse, 0, len(checks))
	for _, check := range checks {
		items = append(items, toCheckResponse(check))
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: ListData{Items: items, Total: total}})
}

// GetCheck handles GET /api/checks/:id
func (h *Handlers) GetCheck(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		h.badRequest(c, "invalid check ID")
		return
	}

	check, err := h.checkService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: toCheckResponse(check)})
}

// GetCheckByCode handles GET /api/checks/code/:code
func (h *Handlers) GetCheckByCode(c *gin.Context) {
	check, err := h.checkService.GetByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: toCheckResponse(check)})
}

// UseCheck handles POST /api/checks/use
func (h *Handlers) UseCheck(c *gin.Context) {
	var req UseCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body")
		return
	}

	result, err := h.checkService.Redeem(c.Request.Context(), req.Code, req.CustomerID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: RedeemResponse{
		Check:            toCheckResponse(result.Check),
		AmountLiters:     entity.CentilitersToLiters(result.AmountCentiliters).StringFixed(2),
		NewBalanceLiters: entity.CentilitersToLiters(result.NewBalanceCentiliters).StringFixed(2),
		StationName:      result.StationName,
	}})
}

// CancelCheck handles POST /api/checks/:id/cancel
func (h *Handlers) CancelCheck(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		h.badRequest(c, "invalid check ID")
		return
	}

	check, err := h.checkService.Cancel(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: toCheckResponse(check)})
}

// ReactivateCheck handles POST /api/checks/:id/reactivate
func (h *Handlers) ReactivateCheck(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		h.badRequest(c, "invalid check ID")
		return
	}

	var req ReactivateCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body")
		return
	}
	amount, err := decimal.NewFromString(req.AmountLiters)
	if err != nil || amount.Sign() <= 0 {
		h.badRequest(c, "amount_liters must be a positive decimal")
		return
	}

	check, err := h.checkService.Reactivate(c.Request.Context(), id, amount, req.OperatorID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, Response{Success: true, Data: toCheckResponse(check)})
}

// DeleteCheck handles DELETE /api/checks/:id
func (h *Handlers) DeleteCheck(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		h.badRequest(c, "invalid check ID")
		return
	}

	if err := h.checkService.Delete(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true})
}

// PrintCheck handles POST /api/checks/:id/print
func (h *Handlers) PrintCheck(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		h.badRequest(c, "invalid check ID")
		return
	}

	if err := h.checkService.MarkPrinted(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true})
}

// GetCheckQR handles GET /api/checks/:id/qr
func (h *Handlers) GetCheckQR(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		h.badRequest(c, "invalid check ID")
		return
	}

	check, err := h.checkService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: QRResponse{
		Code:   check.Code,
		QRCode: check.QRCode,
	}})
}

// GetCheckQRImage handles GET /api/checks/:id/qr/image
func (h *Handlers) GetCheckQRImage(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		h.badRequest(c, "invalid check ID")
		return
	}

	check, err := h.checkService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	png, err := base64.StdEncoding.DecodeString(check.QRCode)
	if err != nil {
		h.respondError(c, fmt.Errorf("decode stored qr: %w", err))
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

// OperatorStats handles GET /api/checks/operator/:id/stats
func (h *Handlers) OperatorStats(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		h.badRequest(c, "invalid operator ID")
		return
	}

	stats, err := h.checkService.OperatorDailyStats(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: OperatorStatsResponse{
		TodayChecks: stats.TodayChecks,
		TodayLiters: entity.CentilitersToLiters(stats.TodayCentiliters).StringFixed(2),
		TotalChecks: stats.TotalChecks,
	}})
}

// ExportChecks handles GET /api/checks/export/excel
func (h *Handlers) ExportChecks(c *gin.Context) {
	now := time.Now()
	from := now.AddDate(0, -1, 0)
	to := now

	var err error
	if raw := c.Query("from"); raw != "" {
		if from, err = time.Parse("2006-01-02", raw); err != nil {
			h.badRequest(c, "from must be YYYY-MM-DD")
			return
		}
	}
	if raw := c.Query("to"); raw != "" {
		if to, err = time.Parse("2006-01-02", raw); err != nil {
			h.badRequest(c, "to must be YYYY-MM-DD")
			return
		}
		to = to.AddDate(0, 0, 1).Add(-time.Second)
	}

	f, err := h.exportService.ChecksWorkbook(c.Request.Context(), from, to)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="checks.xlsx"`)
	c.Header("Content-Type", excelContentType)
	if err := f.Write(c.Writer); err != nil {
		h.logger.Error("Failed to stream workbook", "error", err)
	}
}

// CreateCustomer handles POST /api/customers
func (h *Handlers) CreateCustomer(c *gin.Context) {
	var req CreateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body")
		return
	}

	role := entity.Role(req.Role)
	if req.Role != "" && !role.IsValid() {
		h.badRequest(c, "invalid role")
		return
	}

	customer, err := h.customerService.Create(c.Request.Context(), service.CreateCustomerInput{
		Username:  req.Username,
		Password:  req.Password,
		FullName:  req.FullName,
		Phone:     req.Phone,
		Role:      role,
		StationID: req.StationID,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, Response{Success: true, Data: toCustomerResponse(customer)})
}

// ListCustomers handles GET /api/customers
func (h *Handlers) ListCustomers(c *gin.Context) {
	var req ListCustomersRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.badRequest(c, "invalid query parameters")
		return
	}
	if req.Limit <= 0 || req.Limit > 100 {
		req.Limit = 20
	}
	if req.Offset < 0 {
		req.Offset = 0
	}

	filter := port.CustomerListFilter{Limit: req.Limit, Offset: req.Offset}
	if req.Role != nil {
		role := entity.Role(*req.Role)
		if !role.IsValid() {
			h.badRequest(c, "invalid role filter")
			return
		}
		filter.Role = &role
	}

	customers, total, err := h.customerService.List(c.Request.Context(), filter)
	if err != nil {
		h.respondError(c, err)
		return
	}

	items := make([]CustomerResponse, 0, len(customers))
	for _, customer := range customers {
		items = append(items, toCustomerResponse(customer))
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: ListData{Items: items, Total: total}})
}

// GetCustomer handles GET /api/customers/:id
func (h *Handlers) GetCustomer(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		h.badRequest(c, "invalid customer ID")
		return
	}

	customer, err := h.customerService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: toCustomerResponse(customer)})
}

// UpdateCustomer handles PUT /api/customers/:id
func (h *Handlers) UpdateCustomer(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		h.badRequest(c, "invalid customer ID")
		return
	}

	var req UpdateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body")
		return
	}

	input := service.UpdateCustomerInput{
		Password:  req.Password,
		FullName:  req.FullName,
		Phone:     req.Phone,
		StationID: req.StationID,
		IsActive:  req.IsActive,
	}
	if req.Role != nil {
		role := entity.Role(*req.Role)
		if !role.IsValid() {
			h.badRequest(c, "invalid role")
			return
		}
		input.Role = &role
	}

	customer, err := h.customerService.Update(c.Request.Context(), id, input)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: toCustomerResponse(customer)})
}

// DeleteCustomer handles DELETE /api/customers/:id
func (h *Handlers) DeleteCustomer(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		h.badRequest(c, "invalid customer ID")
		return
	}

	if err := h.customerService.Delete(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true})
}

// CustomerRanking handles GET /api/customers/ranking
func (h *Handlers) CustomerRanking(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if limit <= 0 || limit > 100 {
		limit = 10
	}

	ranked, err := h.customerService.Ranking(c.Request.Context(), limit)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: toRankedResponses(ranked)})
}

// CustomerTop handles GET /api/customers/top
func (h *Handlers) CustomerTop(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	ascending := c.Query("order") == "asc"

	ranked, err := h.customerService.TopByBalance(c.Request.Context(), ascending, limit)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: toRankedResponses(ranked)})
}

// CustomerRank handles GET /api/customers/:id/rank
func (h *Handlers) CustomerRank(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		h.badRequest(c, "invalid customer ID")
		return
	}

	rank, err := h.customerService.RankOf(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: gin.H{"rank": rank}})
}

// StationCustomers handles GET /api/customers/station/:id
func (h *Handlers) StationCustomers(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		h.badRequest(c, "invalid station ID")
		return
	}

	ranked, err := h.customerService.StationCustomers(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: toRankedResponses(ranked)})
}

// ExportCustomers handles GET /api/customers/export/excel
func (h *Handlers) ExportCustomers(c *gin.Context) {
	f, err := h.exportService.CustomersWorkbook(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="customers.xlsx"`)
	c.Header("Content-Type", excelContentType)
	if err := f.Write(c.Writer); err != nil {
		h.logger.Error("Failed to stream workbook", "error", err)
	}
}

// CreateStation handles POST /api/stations
func (h *Handlers) CreateStation(c *gin.Context) {
	var req CreateStationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body")
		return
	}

	station, err := h.stationService.Create(c.Request.Context(), req.Name, req.Address)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, Response{Success: true, Data: toStationResponse(station)})
}

// ListStations handles GET /api/stations
func (h *Handlers) ListStations(c *gin.Context) {
	stations, err := h.stationService.List(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}

	items := make([]StationResponse, 0, len(stations))
	for _, station := range stations {
		items = append(items, toStationResponse(station))
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: items})
}

// GetStation handles GET /api/stations/:id
func (h *Handlers) GetStation(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		h.badRequest(c, "invalid station ID")
		return
	}

	station, err := h.stationService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: toStationResponse(station)})
}

// Broadcast handles POST /api/broadcast
func (h *Handlers) Broadcast(c *gin.Context) {
	var req BroadcastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body")
		return
	}

	result, err := h.notificationService.Broadcast(c.Request.Context(), req.Title, req.Content)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: result})
}
