package http

import (
	"time"

	"github.com/webgradeuz/fuelbonus/internal/application/port"
	"github.com/webgradeuz/fuelbonus/internal/domain/entity"
)

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// ListData wraps a page of items with the unfiltered total
type ListData struct {
	Items interface{} `json:"items"`
	Total int         `json:"total"`
}

// IssueCheckRequest is the body for POST /api/checks
type IssueCheckRequest struct {
	AmountLiters    string `json:"amount_liters" binding:"required"`
	OperatorID      int64  `json:"operator_id" binding:"required"`
	StationID       int64  `json:"station_id" binding:"required"`
	CustomerName    string `json:"customer_name"`
	CustomerPhone   string `json:"customer_phone"`
	CustomerAddress string `json:"customer_address"`
	AutoUse         bool   `json:"auto_use"`
}

// UseCheckRequest is the body for POST /api/checks/use
type UseCheckRequest struct {
	Code       string `json:"code" binding:"required"`
	CustomerID int64  `json:"customer_id" binding:"required"`
}

// ReactivateCheckRequest is the body for POST /api/checks/:id/reactivate
type ReactivateCheckRequest struct {
	AmountLiters string `json:"amount_liters" binding:"required"`
	OperatorID   int64  `json:"operator_id" binding:"required"`
}

// ListChecksRequest holds query parameters for GET /api/checks
type ListChecksRequest struct {
	StationID  *int64  `form:"station_id"`
	OperatorID *int64  `form:"operator_id"`
	Status     *string `form:"status"`
	Printed    *bool   `form:"printed"`
	Limit      int     `form:"limit"`
	Offset     int     `form:"offset"`
}

// CheckResponse represents a check in API responses
type CheckResponse struct {
	ID              int64   `json:"id"`
	Code            string  `json:"code"`
	AmountLiters    string  `json:"amount_liters"`
	Status          string  `json:"status"`
	IsPrinted       bool    `json:"is_printed"`
	OperatorID      int64   `json:"operator_id"`
	OperatorName    string  `json:"operator_name,omitempty"`
	StationID       int64   `json:"station_id"`
	StationName     string  `json:"station_name,omitempty"`
	CustomerID      *int64  `json:"customer_id,omitempty"`
	CustomerName    string  `json:"customer_name,omitempty"`
	CustomerPhone   string  `json:"customer_phone,omitempty"`
	CustomerAddress string  `json:"customer_address,omitempty"`
	ExpiresAt       string  `json:"expires_at"`
	UsedAt          *string `json:"used_at,omitempty"`
	CreatedAt       string  `json:"created_at"`
}

func toCheckResponse(check *entity.Check) CheckResponse {
	resp := CheckResponse{
		ID:              check.ID,
		Code:            check.Code,
		AmountLiters:    check.AmountLiters().StringFixed(2),
		Status:          check.Status.String(),
		IsPrinted:       check.IsPrinted,
		OperatorID:      check.OperatorID,
		OperatorName:    check.OperatorName,
		StationID:       check.StationID,
		StationName:     check.StationName,
		CustomerID:      check.CustomerID,
		CustomerName:    check.CustomerName,
		CustomerPhone:   check.CustomerPhone,
		CustomerAddress: check.CustomerAddress,
		ExpiresAt:       check.ExpiresAt.Format(time.RFC3339),
		CreatedAt:       check.CreatedAt.Format(time.RFC3339),
	}
	if check.UsedAt != nil {
		usedAt := check.UsedAt.Format(time.RFC3339)
		resp.UsedAt = &usedAt
	}
	return resp
}

// RedeemResponse reports a successful redemption
type RedeemResponse struct {
	Check           CheckResponse `json:"check"`
	AmountLiters    string        `json:"amount_liters"`
	NewBalanceLiters string       `json:"new_balance_liters"`
	StationName     string        `json:"station_name,omitempty"`
}

// QRResponse carries the base64 PNG for a check
type QRResponse struct {
	Code   string `json:"code"`
	QRCode string `json:"qr_code"`
}

// OperatorStatsResponse reports an operator's issuance activity
type OperatorStatsResponse struct {
	TodayChecks int    `json:"today_checks"`
	TodayLiters string `json:"today_liters"`
	TotalChecks int    `json:"total_checks"`
}

// CreateCustomerRequest is the body for POST /api/customers
type CreateCustomerRequest struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	FullName  string `json:"full_name" binding:"required"`
	Phone     string `json:"phone"`
	Role      string `json:"role"`
	StationID *int64 `json:"station_id"`
}

// UpdateCustomerRequest is the body for PUT /api/customers/:id.
// Omitted fields are left unchanged.
type UpdateCustomerRequest struct {
	Password  *string `json:"password"`
	FullName  *string `json:"full_name"`
	Phone     *string `json:"phone"`
	Role      *string `json:"role"`
	StationID *int64  `json:"station_id"`
	IsActive  *bool   `json:"is_active"`
}

// ListCustomersRequest holds query parameters for GET /api/customers
type ListCustomersRequest struct {
	Role   *string `form:"role"`
	Limit  int     `form:"limit"`
	Offset int     `form:"offset"`
}

// CustomerResponse represents a customer in API responses
type CustomerResponse struct {
	ID               int64  `json:"id"`
	Username         string `json:"username,omitempty"`
	FullName         string `json:"full_name"`
	Phone            string `json:"phone"`
	TelegramID       string `json:"telegram_id,omitempty"`
	TelegramUsername string `json:"telegram_username,omitempty"`
	Role             string `json:"role"`
	BalanceLiters    string `json:"balance_liters"`
	StationID        *int64 `json:"station_id,omitempty"`
	IsActive         bool   `json:"is_active"`
	CreatedAt        string `json:"created_at"`
}

func toCustomerResponse(customer *entity.Customer) CustomerResponse {
	return CustomerResponse{
		ID:               customer.ID,
		Username:         customer.Username,
		FullName:         customer.FullName,
		Phone:            customer.Phone,
		TelegramID:       customer.TelegramID,
		TelegramUsername: customer.TelegramUsername,
		Role:             string(customer.Role),
		BalanceLiters:    customer.BalanceLiters().StringFixed(2),
		StationID:        customer.StationID,
		IsActive:         customer.IsActive,
		CreatedAt:        customer.CreatedAt.Format(time.RFC3339),
	}
}

// RankedCustomerResponse represents a ranking or report row
type RankedCustomerResponse struct {
	ID               int64  `json:"id"`
	FullName         string `json:"full_name"`
	Phone            string `json:"phone"`
	TelegramUsername string `json:"telegram_username,omitempty"`
	BalanceLiters    string `json:"balance_liters"`
	UsedChecks       int    `json:"used_checks"`
	IsActive         bool   `json:"is_active"`
	CreatedAt        string `json:"created_at"`
}

func toRankedResponses(ranked []*port.RankedCustomer) []RankedCustomerResponse {
	responses := make([]RankedCustomerResponse, 0, len(ranked))
	for _, rc := range ranked {
		responses = append(responses, RankedCustomerResponse{
			ID:               rc.ID,
			FullName:         rc.FullName,
			Phone:            rc.Phone,
			TelegramUsername: rc.TelegramUsername,
			BalanceLiters:    entity.CentilitersToLiters(rc.BalanceCentiliters).StringFixed(2),
			UsedChecks:       rc.UsedChecks,
			IsActive:         rc.IsActive,
			CreatedAt:        rc.CreatedAt.Format(time.RFC3339),
		})
	}
	return responses
}

// CreateStationRequest is the body for POST /api/stations
type CreateStationRequest struct {
	Name    string `json:"name" binding:"required"`
	Address string `json:"address"`
}

// StationResponse represents a station in API responses
type StationResponse struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Address   string `json:"address"`
	CreatedAt string `json:"created_at"`
}

func toStationResponse(station *entity.Station) StationResponse {
	return StationResponse{
		ID:        station.ID,
		Name:      station.Name,
		Address:   station.Address,
		CreatedAt: station.CreatedAt.Format(time.RFC3339),
	}
}

// BroadcastRequest is the body for POST /api/broadcast
type BroadcastRequest struct {
	Title   string `json:"title" binding:"required"`
	Content string `json:"content" binding:"required"`
}
