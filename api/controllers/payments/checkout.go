package payments

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hirelocal/hirelocal-backend/api/middleware"
	"github.com/hirelocal/hirelocal-backend/api/responses"
	"github.com/hirelocal/hirelocal-backend/api/validators"
	"github.com/hirelocal/hirelocal-backend/internal/checkout"
	"github.com/hirelocal/hirelocal-backend/pkg/db/models"
	"github.com/hirelocal/hirelocal-backend/pkg/enums"
	pkgerrors "github.com/hirelocal/hirelocal-backend/pkg/errors"
	"github.com/hirelocal/hirelocal-backend/pkg/logger"
)

// CheckoutService is the checkout surface the routing layer consumes.
type CheckoutService interface {
	PayBooking(ctx context.Context, params checkout.PayBookingParams) (*checkout.PayBookingResult, error)
	ListTransactions(ctx context.Context, params checkout.ListTransactionsParams) (*checkout.TransactionPage, error)
	ListProviderTransactions(ctx context.Context, params checkout.ListProviderTransactionsParams) (*checkout.TransactionPage, error)
	GetTransaction(ctx context.Context, customerID, transactionID uuid.UUID) (*models.BookingTransaction, error)
}

type payBookingRequest struct {
	BookingID       string `json:"booking_id" validate:"required,uuid"`
	PaymentMethodID string `json:"payment_method_id" validate:"required"`
}

type transactionResponse struct {
	ID               string     `json:"id"`
	BookingID        string     `json:"booking_id"`
	Status           string     `json:"status"`
	ChargeID         string     `json:"charge_id,omitempty"`
	GrossAmountCents int64      `json:"gross_amount_cents"`
	PlatformFeeCents int64      `json:"platform_fee_cents"`
	Currency         string     `json:"currency"`
	FailureReason    *string    `json:"failure_reason,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	FinalizedAt      *time.Time `json:"finalized_at,omitempty"`
}

type transactionListResponse struct {
	Transactions []transactionResponse `json:"transactions"`
	Cursor       string                `json:"cursor"`
}

// resolveCustomerID pulls the caller identity from the access token claims.
// Customer sessions carry the customer row id as the user id.
func resolveCustomerID(r *http.Request) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid subject")
	}
	return id, nil
}

func PayBooking(svc CheckoutService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		customerID, err := resolveCustomerID(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var body payBookingRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		bookingID, err := uuid.Parse(body.BookingID)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid booking id"))
			return
		}

		result, err := svc.PayBooking(ctx, checkout.PayBookingParams{
			BookingID:       bookingID,
			CustomerID:      customerID,
			PaymentMethodID: body.PaymentMethodID,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusAccepted, transactionResponse{
			ID:               result.TransactionID.String(),
			BookingID:        result.BookingID.String(),
			Status:           string(result.Status),
			ChargeID:         result.ChargeID,
			GrossAmountCents: result.GrossAmountCents,
			PlatformFeeCents: result.PlatformFeeCents,
			Currency:         result.Currency,
		})
	}
}

func ListTransactions(svc CheckoutService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		customerID, err := resolveCustomerID(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 0, 1, 100)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		status, err := parseStatusFilter(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		page, err := svc.ListTransactions(ctx, checkout.ListTransactionsParams{
			CustomerID: customerID,
			Limit:      limit,
			Cursor:     strings.TrimSpace(r.URL.Query().Get("cursor")),
			Status:     status,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, toTransactionListResponse(page))
	}
}

// ProviderTransactions lists payments destined for the authenticated provider.
func ProviderTransactions(svc CheckoutService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		providerID, err := resolveProviderID(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 0, 1, 100)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		status, err := parseStatusFilter(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		page, err := svc.ListProviderTransactions(ctx, checkout.ListProviderTransactionsParams{
			ProviderID: providerID,
			Limit:      limit,
			Cursor:     strings.TrimSpace(r.URL.Query().Get("cursor")),
			Status:     status,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, toTransactionListResponse(page))
	}
}

func GetTransaction(svc CheckoutService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		customerID, err := resolveCustomerID(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		transactionID, err := uuid.Parse(chi.URLParam(r, "transactionID"))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid transaction id"))
			return
		}

		row, err := svc.GetTransaction(ctx, customerID, transactionID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, toTransactionResponse(*row))
	}
}

func parseStatusFilter(r *http.Request) (*enums.TransactionStatus, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("status"))
	if raw == "" {
		return nil, nil
	}
	parsed, err := enums.ParseTransactionStatus(raw)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status")
	}
	return &parsed, nil
}

func toTransactionListResponse(page *checkout.TransactionPage) transactionListResponse {
	payload := transactionListResponse{
		Transactions: make([]transactionResponse, len(page.Items)),
		Cursor:       page.Cursor,
	}
	for i, row := range page.Items {
		payload.Transactions[i] = toTransactionResponse(row)
	}
	return payload
}

func toTransactionResponse(row models.BookingTransaction) transactionResponse {
	resp := transactionResponse{
		ID:               row.ID.String(),
		BookingID:        row.BookingID.String(),
		Status:           string(row.Status),
		GrossAmountCents: row.GrossAmountCents,
		PlatformFeeCents: row.PlatformFeeCents,
		Currency:         row.Currency,
		FailureReason:    row.FailureReason,
		CreatedAt:        row.CreatedAt,
		FinalizedAt:      row.FinalizedAt,
	}
	if row.ProcessorChargeID != nil {
		resp.ChargeID = *row.ProcessorChargeID
	}
	return resp
}
