package echoapi

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/afyafund/afyafund/core"
	"github.com/afyafund/afyafund/core/cause"
	"github.com/afyafund/afyafund/core/donation"
	testutil "github.com/afyafund/afyafund/tests"
)

func Test_donationApi_create(t *testing.T) {
	server, deps := newTestServer(t)

	active := testutil.CreateCause(t, deps.causeRepo, "org1", "Heart surgery", 500_00, cause.StatusActive)
	draft := testutil.CreateCause(t, deps.causeRepo, "org1", "Draft cause", 500_00, cause.StatusDraft)

	tests := []httpTest{
		{
			name: "empty payload", wantCode: http.StatusBadRequest,
			body: marchallObj(t, donation.NewDonation{}),
			wantData: marchallObj(t, map[string]string{
				"cause_id": "this field is required",
				"amount":   "this field is required",
			}),
		},
		{
			name: "unknown cause", wantCode: http.StatusNotFound,
			body:     marchallObj(t, donation.NewDonation{CauseID: "nope", Amount: 10_00}),
			wantData: marchallObj(t, httpErr{Error: "cause not found"}),
		},
		{
			name: "cause not active", wantCode: http.StatusConflict,
			body:     marchallObj(t, donation.NewDonation{CauseID: draft.ID, Amount: 10_00}),
			wantData: marchallObj(t, httpErr{Error: "cause is not accepting donations"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/v1/donations", tt.body)
			server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("ok without auth", func(t *testing.T) {
		body := marchallObj(t, donation.NewDonation{
			CauseID:    active.ID,
			DonorName:  "Neema",
			DonorEmail: "neema@test.cd",
			Amount:     50_00,
		})
		req, rec := newRequest(http.MethodPost, "/v1/donations", body)
		server.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("code = %d; want %d: %s", rec.Code, http.StatusCreated, rec.Body.String())
		}

		var got NewDonationResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
			t.Fatalf("unmarshalling response: %v", err)
		}
		if got.Donation.Status != donation.StatusPendingPayment {
			t.Errorf("Status = %s; want %s", got.Donation.Status, donation.StatusPendingPayment)
		}
		if got.Payment.RedirectURL == "" {
			t.Error("Payment.RedirectURL is empty")
		}
	})
}

func Test_donationApi_midtransWebhook(t *testing.T) {
	server, deps := newTestServer(t)
	ctx := context.Background()

	c := testutil.CreateCause(t, deps.causeRepo, "org1", "Burn treatment", 500_00, cause.StatusActive)
	_, intent, err := deps.donationSvc.Create(ctx, donation.NewDonation{
		CauseID: c.ID,
		DonorID: "donor1",
		Amount:  75_00,
	})
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	notify := func(t *testing.T, orderID, txStatus string) (*http.Response, []byte) {
		body := marchallObj(t, MidtransNotification{OrderID: orderID, TransactionStatus: txStatus})
		req, rec := newRequest(http.MethodPost, "/v1/webhooks/midtrans", body)
		server.ServeHTTP(rec, req)
		return rec.Result(), rec.Body.Bytes()
	}

	t.Run("unknown order", func(t *testing.T) {
		res, _ := notify(t, "nope", "settlement")
		if res.StatusCode != http.StatusNotFound {
			t.Errorf("code = %d; want %d", res.StatusCode, http.StatusNotFound)
		}
	})

	t.Run("pending notification is acknowledged untouched", func(t *testing.T) {
		res, body := notify(t, intent.ID, "pending")
		if res.StatusCode != http.StatusOK {
			t.Fatalf("code = %d; want %d", res.StatusCode, http.StatusOK)
		}
		var got WebhookResponse
		if err := json.Unmarshal(body, &got); err != nil {
			t.Fatalf("unmarshalling response: %v", err)
		}
		if got.Status != "ok (not settled)" {
			t.Errorf("Status = %q; want %q", got.Status, "ok (not settled)")
		}
	})

	t.Run("settlement settles once", func(t *testing.T) {
		// the posted status is a hint; the gateway-side status decides
		deps.gateway.ResolveIntent(intent.ID, core.IntentStatusCompleted)

		res, body := notify(t, intent.ID, "settlement")
		if res.StatusCode != http.StatusOK {
			t.Fatalf("code = %d; want %d", res.StatusCode, http.StatusOK)
		}
		var got WebhookResponse
		if err := json.Unmarshal(body, &got); err != nil {
			t.Fatalf("unmarshalling response: %v", err)
		}
		if got.DonationStatus != donation.StatusCompleted {
			t.Errorf("DonationStatus = %s; want %s", got.DonationStatus, donation.StatusCompleted)
		}

		cs, _ := deps.causeRepo.GetCauseByID(ctx, c.ID)
		if cs.CurrentAmount != 75_00 || cs.DonorCount != 1 {
			t.Errorf("totals = %d/%d; want 7500/1", cs.CurrentAmount, cs.DonorCount)
		}

		// redelivery does not double count
		if res, _ = notify(t, intent.ID, "settlement"); res.StatusCode != http.StatusOK {
			t.Fatalf("code = %d; want %d", res.StatusCode, http.StatusOK)
		}
		cs, _ = deps.causeRepo.GetCauseByID(ctx, c.ID)
		if cs.CurrentAmount != 75_00 || cs.DonorCount != 1 {
			t.Errorf("redelivery double counted: %d/%d", cs.CurrentAmount, cs.DonorCount)
		}
	})
}

func Test_donationApi_refund(t *testing.T) {
	server, deps := newTestServer(t)
	ctx := context.Background()

	orgToken := getToken(t, "org1", "org1@test.cd", false)
	adminToken := getToken(t, "admin1", "admin@test.cd", true)

	c := testutil.CreateCause(t, deps.causeRepo, "org1", "Maternity care", 500_00, cause.StatusActive)
	d := testutil.CreateDonation(t, deps.donationRepo, c.ID, "donor1", 40_00, donation.StatusCompleted)
	if _, err := deps.ledger.Recompute(ctx, c.ID); err != nil {
		t.Fatalf("Recompute() failed: %v", err)
	}

	t.Run("admin only", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/donations/"+d.ID+"/refund", orgToken)
		server.ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Errorf("code = %d; want %d", rec.Code, http.StatusForbidden)
		}
	})

	t.Run("ok", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/donations/"+d.ID+"/refund", adminToken)
		server.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %d; want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
		}

		cs, _ := deps.causeRepo.GetCauseByID(ctx, c.ID)
		if cs.CurrentAmount != 0 {
			t.Errorf("CurrentAmount = %d; want 0", cs.CurrentAmount)
		}
	})

	t.Run("refunding twice conflicts", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/donations/"+d.ID+"/refund", adminToken)
		server.ServeHTTP(rec, req)
		if rec.Code != http.StatusConflict {
			t.Errorf("code = %d; want %d", rec.Code, http.StatusConflict)
		}
	})
}
