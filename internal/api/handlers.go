package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/NgigiN/paywallet/internal/engine"
	"github.com/NgigiN/paywallet/internal/history"
	"github.com/NgigiN/paywallet/internal/logger"
	"github.com/NgigiN/paywallet/internal/wallet"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const idempotencyHeader = "Idempotency-Key"

type registerRequest struct {
	Owner string `json:"owner" binding:"required"`
	Name  string `json:"name" binding:"required"`
}

type depositRequest struct {
	Amount    json.Number `json:"amount" binding:"required"`
	Reference string      `json:"reference"`
}

type transferRequest struct {
	ReceiverHandle string      `json:"receiverHandle" binding:"required"`
	Amount         json.Number `json:"amount" binding:"required"`
}

type accountResponse struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Handle  string `json:"handle"`
	Balance string `json:"balance"`
}

type receiptResponse struct {
	TransactionID string    `json:"transactionId"`
	Status        string    `json:"status"`
	Flagged       bool      `json:"flagged"`
	Balance       string    `json:"walletBalance"`
	CreatedAt     time.Time `json:"createdAt"`
}

type historyItem struct {
	TransactionID      string    `json:"transactionId"`
	CounterpartyHandle string    `json:"counterpartyHandle"`
	CounterpartyName   string    `json:"counterpartyName"`
	Amount             string    `json:"amount"`
	Direction          string    `json:"direction"`
	Status             string    `json:"status"`
	Flagged            bool      `json:"flagged"`
	Description        string    `json:"description"`
	Timestamp          time.Time `json:"timestamp"`
}

func (h *Handler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_BODY", "message": "Invalid body"})
		return
	}
	acc, err := h.Engine.Register(c.Request.Context(), req.Owner, req.Name)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, toAccountResponse(acc))
}

func (h *Handler) account(c *gin.Context) {
	id, ok := accountID(c)
	if !ok {
		return
	}
	acc, err := h.Engine.Account(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toAccountResponse(acc))
}

func (h *Handler) deposit(c *gin.Context) {
	id, ok := accountID(c)
	if !ok {
		return
	}
	var req depositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_BODY", "message": "Invalid body"})
		return
	}
	amount, err := wallet.ParseAmount(req.Amount.String())
	if err != nil {
		h.fail(c, err)
		return
	}

	ctx := c.Request.Context()
	key := c.GetHeader(idempotencyHeader)
	scope := "deposit:" + id.String()
	if err := h.Guard.Claim(ctx, scope, key); err != nil {
		h.fail(c, err)
		return
	}
	receipt, err := h.Engine.Deposit(ctx, engine.DepositRequest{
		AccountID: id,
		Amount:    amount,
		Reference: req.Reference,
	})
	if err != nil {
		h.release(ctx, scope, key)
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toReceiptResponse(receipt))
}

func (h *Handler) transfer(c *gin.Context) {
	id, ok := accountID(c)
	if !ok {
		return
	}
	var req transferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_BODY", "message": "Invalid body"})
		return
	}
	amount, err := wallet.ParseAmount(req.Amount.String())
	if err != nil {
		h.fail(c, err)
		return
	}

	ctx := c.Request.Context()
	key := c.GetHeader(idempotencyHeader)
	scope := "transfer:" + id.String()
	if err := h.Guard.Claim(ctx, scope, key); err != nil {
		h.fail(c, err)
		return
	}
	receipt, err := h.Engine.Transfer(ctx, engine.TransferRequest{
		SenderID:       id,
		ReceiverHandle: req.ReceiverHandle,
		Amount:         amount,
	})
	if err != nil {
		// A recorded failure keeps its key: resubmitting it is a new
		// transfer and needs a new key.
		if !wallet.Recorded(err) {
			h.release(ctx, scope, key)
		}
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toReceiptResponse(receipt))
}

func (h *Handler) history(c *gin.Context) {
	id, ok := accountID(c)
	if !ok {
		return
	}
	filter := history.Filter{
		Status:    wallet.Status(strings.ToUpper(c.Query("status"))),
		Direction: history.Direction(strings.ToUpper(c.Query("direction"))),
		Search:    c.Query("q"),
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_LIMIT", "message": "Invalid limit"})
			return
		}
		filter.Limit = limit
	}

	items, err := h.History.History(c.Request.Context(), id, filter)
	if err != nil {
		h.fail(c, err)
		return
	}
	out := make([]historyItem, len(items))
	for i, s := range items {
		out[i] = historyItem{
			TransactionID:      s.TransactionID,
			CounterpartyHandle: s.CounterpartyHandle,
			CounterpartyName:   s.CounterpartyName,
			Amount:             s.Amount.String(),
			Direction:          string(s.Direction),
			Status:             string(s.Status),
			Flagged:            s.Flagged,
			Description:        s.Description,
			Timestamp:          s.Timestamp,
		}
	}
	c.JSON(http.StatusOK, gin.H{"transactions": out})
}

// release hands an idempotency key back after a request that left no trace.
func (h *Handler) release(ctx context.Context, scope, key string) {
	if err := h.Guard.Release(ctx, scope, key); err != nil {
		logger.FromContext(ctx, h.Log).Error("failed to release idempotency key",
			zap.String("scope", scope),
			zap.String("key", key),
			zap.Error(err),
		)
	}
}

func accountID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_ACCOUNT_ID", "message": "Invalid Account ID"})
		return uuid.Nil, false
	}
	return id, true
}

// fail renders err. A recorded failure carries its transaction id so the
// caller can tell it apart from a request where nothing happened.
func (h *Handler) fail(c *gin.Context, err error) {
	code := wallet.Code(err)
	status := statusFor(code)
	body := gin.H{"code": code, "message": err.Error(), "recorded": false}

	var sf *wallet.SimulatedFailureError
	if errors.As(err, &sf) {
		body["transactionId"] = sf.TransactionID
		body["recorded"] = true
	}
	if status >= http.StatusInternalServerError {
		h.Log.Error("request failed", zap.Error(err))
		body["message"] = "Server error"
	}
	c.JSON(status, body)
}

func statusFor(code string) int {
	switch code {
	case "INVALID_AMOUNT", "INVALID_NAME", "SELF_TRANSFER", "INSUFFICIENT_FUNDS", "SIMULATED_FAILURE":
		return http.StatusBadRequest
	case "ACCOUNT_NOT_FOUND", "SENDER_NOT_FOUND", "RECEIVER_NOT_FOUND", "TRANSACTION_NOT_FOUND":
		return http.StatusNotFound
	case "DUPLICATE_HANDLE", "DUPLICATE_IDENTITY", "DUPLICATE_REQUEST", "DUPLICATE_TRANSACTION_ID":
		return http.StatusConflict
	case "ENGINE_UNAVAILABLE":
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func toAccountResponse(acc *wallet.Account) accountResponse {
	return accountResponse{
		ID:      acc.ID.String(),
		Name:    acc.Name,
		Handle:  acc.Handle,
		Balance: acc.Balance.String(),
	}
}

func toReceiptResponse(r *engine.Receipt) receiptResponse {
	return receiptResponse{
		TransactionID: r.TransactionID,
		Status:        string(r.Status),
		Flagged:       r.Flagged,
		Balance:       r.NewBalance.String(),
		CreatedAt:     r.CreatedAt,
	}
}
