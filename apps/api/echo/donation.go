package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/afyafund/afyafund/core"
	"github.com/afyafund/afyafund/core/donation"
)

type donationApi struct {
	svc      *donation.Service
	validate *validator.Validate
}

func registerDonationAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *donation.Service, validate *validator.Validate) {
	api := donationApi{
		svc:      svc,
		validate: validate,
	}

	dg := g.Group("/donations")

	// public endpoints; donors do not need an account to give
	dg.POST("", api.create)
	dg.GET("/:id", api.retrieve)

	// gateway callback
	g.POST("/webhooks/midtrans", api.midtransWebhook)

	// authed endpoints
	ag := dg.Group("", jwt)
	ag.GET("", api.queryByCause, adminMiddleware())
	ag.POST("/:id/refund", api.refund, adminMiddleware())
}

// Handlers

func (api *donationApi) create(ctx echo.Context) error {
	var data donation.NewDonation
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewDonation")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	d, intent, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, NewDonationResponse{Donation: d, Payment: intent})
}

func (api *donationApi) retrieve(ctx echo.Context) error {
	d, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, d)
}

func (api *donationApi) queryByCause(ctx echo.Context) error {
	var query DonationQueryRequest
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to DonationQueryRequest")
	}
	if query.CauseID == "" {
		return core.NewValidationError(nil, core.FieldError{Field: "cause_id", Error: "this field is required"})
	}

	donations, err := api.svc.QueryByCause(ctx.Request().Context(), query.CauseID, query.Statuses...)
	if err != nil {
		return errors.Wrap(err, "querying donations")
	}
	if donations == nil {
		donations = []donation.Donation{}
	}
	return ctx.JSON(http.StatusOK, donations)
}

// midtransWebhook handles the gateway's payment notification. The posted
// status is only a hint; ProcessPayment re-verifies the intent with the
// gateway before any state changes.
func (api *donationApi) midtransWebhook(ctx echo.Context) error {
	var notification MidtransNotification
	if err := ctx.Bind(&notification); err != nil {
		return errors.Wrap(err, "binding to MidtransNotification")
	}
	if notification.OrderID == "" {
		return core.NewValidationError(errors.New("invalid notification format"))
	}

	// the gateway retries on anything but a 2xx; a payment still in flight
	// is acknowledged untouched
	if notification.TransactionStatus == "pending" || notification.TransactionStatus == "authorize" {
		return ctx.JSON(http.StatusOK, WebhookResponse{Status: "ok (not settled)"})
	}

	d, err := api.svc.GetByPaymentIntentID(ctx.Request().Context(), notification.OrderID)
	if err != nil {
		return err
	}

	d, err = api.svc.ProcessPayment(ctx.Request().Context(), d.ID, notification.OrderID)
	if err != nil {
		return errors.Wrap(err, "processing payment")
	}
	return ctx.JSON(http.StatusOK, WebhookResponse{Status: "ok", DonationStatus: d.Status})
}

func (api *donationApi) refund(ctx echo.Context) error {
	d, err := api.svc.MarkRefunded(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, d)
}

type (
	NewDonationResponse struct {
		Donation donation.Donation  `json:"donation"`
		Payment  core.PaymentIntent `json:"payment"`
	}

	DonationQueryRequest struct {
		CauseID  string   `query:"cause_id"`
		Statuses []string `query:"status"`
	}

	MidtransNotification struct {
		OrderID           string `json:"order_id"`
		TransactionStatus string `json:"transaction_status"`
		FraudStatus       string `json:"fraud_status"`
	}

	WebhookResponse struct {
		Status         string `json:"status"`
		DonationStatus string `json:"donation_status,omitempty"`
	}
)
