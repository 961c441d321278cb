package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/vanshika/txwebhook/internal/domain"
	"github.com/vanshika/txwebhook/internal/service"
)

const maxBodyBytes = 1 << 20

// TransactionService is the core the handlers delegate to.
type TransactionService interface {
	Submit(ctx context.Context, n domain.Notification) (service.Ack, error)
	Get(ctx context.Context, id string) (domain.Transaction, bool, error)
}

// APIHandlers exposes HTTP handlers for the REST API.
type APIHandlers struct {
	logger        *slog.Logger
	service       TransactionService
	ingestTimeout time.Duration
}

// NewAPIHandlers constructs an APIHandlers instance. ingestTimeout bounds how
// long a submission may wait on the store before it is answered.
func NewAPIHandlers(logger *slog.Logger, svc TransactionService, ingestTimeout time.Duration) *APIHandlers {
	return &APIHandlers{
		logger:        logger,
		service:       svc,
		ingestTimeout: ingestTimeout,
	}
}

func (h *APIHandlers) register(r *mux.Router) {
	r.HandleFunc("/v1/webhooks/transactions", h.receiveWebhook).Methods(http.MethodPost)
	// Processor ids may contain "/", so the id spans the rest of the path.
	r.HandleFunc("/v1/transactions/{transaction_id:.+}", h.getTransaction).Methods(http.MethodGet)
}

type webhookRequest struct {
	TransactionID      string          `json:"transaction_id"`
	SourceAccount      string          `json:"source_account"`
	DestinationAccount string          `json:"destination_account"`
	Amount             decimal.Decimal `json:"amount"`
	Currency           string          `json:"currency"`
}

type webhookAckResponse struct {
	Message       string `json:"message"`
	TransactionID string `json:"transaction_id"`
}

type transactionResponse struct {
	TransactionID      string      `json:"transaction_id"`
	SourceAccount      string      `json:"source_account"`
	DestinationAccount string      `json:"destination_account"`
	Amount             json.Number `json:"amount"`
	Currency           string      `json:"currency"`
	Status             string      `json:"status"`
	CreatedAt          time.Time   `json:"created_at"`
	ProcessedAt        *time.Time  `json:"processed_at"`
}

func (h *APIHandlers) receiveWebhook(w http.ResponseWriter, r *http.Request) {
	var payload webhookRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON body: %v", err))
		return
	}

	ctx := r.Context()
	if h.ingestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.ingestTimeout)
		defer cancel()
	}

	ack, err := h.service.Submit(ctx, payload.toNotification())
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			writeError(w, http.StatusUnprocessableEntity, err.Error())
		case errors.Is(err, service.ErrStoreUnavailable):
			h.logger.Error("webhook ingestion failed", "error", err, "transaction_id", payload.TransactionID, "request_id", RequestID(r.Context()))
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusServiceUnavailable, "transaction store unavailable, retry later")
		default:
			h.logger.Error("webhook ingestion failed", "error", err, "transaction_id", payload.TransactionID, "request_id", RequestID(r.Context()))
			writeError(w, http.StatusInternalServerError, "failed to accept webhook")
		}
		return
	}

	respondJSON(w, http.StatusAccepted, webhookAckResponse{
		Message:       ack.Message,
		TransactionID: ack.TransactionID,
	})
}

func (h *APIHandlers) getTransaction(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["transaction_id"]

	tx, found, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to fetch transaction", "error", err, "transaction_id", id)
		writeError(w, http.StatusServiceUnavailable, "transaction store unavailable, retry later")
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, fmt.Sprintf("Transaction %s not found", id))
		return
	}

	respondJSON(w, http.StatusOK, toTransactionResponse(tx))
}

func (req webhookRequest) toNotification() domain.Notification {
	return domain.Notification{
		TransactionID:      req.TransactionID,
		SourceAccount:      req.SourceAccount,
		DestinationAccount: req.DestinationAccount,
		Amount:             req.Amount,
		Currency:           req.Currency,
	}
}

func toTransactionResponse(tx domain.Transaction) transactionResponse {
	resp := transactionResponse{
		TransactionID:      tx.ID,
		SourceAccount:      tx.SourceAccount,
		DestinationAccount: tx.DestinationAccount,
		Amount:             json.Number(tx.Amount.String()),
		Currency:           tx.Currency,
		Status:             string(tx.Status),
		CreatedAt:          tx.CreatedAt.UTC(),
	}
	if tx.ProcessedAt != nil {
		ts := tx.ProcessedAt.UTC()
		resp.ProcessedAt = &ts
	}
	return resp
}

func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return errors.New("request body is required")
	}
	defer r.Body.Close()

	return json.NewDecoder(r.Body).Decode(dst)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{
		"error": msg,
	})
}
