package echoapi

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/afyafund/afyafund/core/cause"
	"github.com/afyafund/afyafund/core/disbursement"
	"github.com/afyafund/afyafund/core/donation"
	testutil "github.com/afyafund/afyafund/tests"
)

func newDisbursementBody(t *testing.T, causeID string, amount int64) []byte {
	return marchallObj(t, disbursement.NewDisbursement{
		CauseID: causeID,
		Amount:  amount,
		Purpose: "Hospital invoice",
		BankDetails: disbursement.BankDetails{
			AccountName:   "Clinic Ltd",
			AccountNumber: "0123456789",
			BankName:      "Test Bank",
		},
	})
}

func Test_disbursementApi_request(t *testing.T) {
	server, deps := newTestServer(t)
	ctx := context.Background()

	orgToken := getToken(t, "org1", "org1@test.cd", false)

	c := testutil.CreateCause(t, deps.causeRepo, "org1", "Kidney transplant", 500_00, cause.StatusActive)
	testutil.CreateDonation(t, deps.donationRepo, c.ID, "donor1", 100_00, donation.StatusCompleted)
	if _, err := deps.ledger.Recompute(ctx, c.ID); err != nil {
		t.Fatalf("Recompute() failed: %v", err)
	}

	tests := []httpTest{
		{
			name: "auth required", wantCode: http.StatusUnauthorized,
			body: newDisbursementBody(t, c.ID, 60_00), wantData: marchallObj(t, errMissingToken),
		},
		{
			name: "over available", token: orgToken, wantCode: http.StatusUnprocessableEntity,
			body:     newDisbursementBody(t, c.ID, 150_00),
			wantData: marchallObj(t, httpErr{Error: "amount exceeds the funds available for withdrawal"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, "/v1/disbursements", tt.token, tt.body)
			server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("ok", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/disbursements", orgToken, newDisbursementBody(t, c.ID, 60_00))
		server.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("code = %d; want %d: %s", rec.Code, http.StatusCreated, rec.Body.String())
		}

		var got disbursement.Disbursement
		if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
			t.Fatalf("unmarshalling response: %v", err)
		}
		if got.RequestedBy != "org1" {
			t.Errorf("RequestedBy = %s; want org1 (from token)", got.RequestedBy)
		}
		if got.Status != disbursement.StatusPending {
			t.Errorf("Status = %s; want %s", got.Status, disbursement.StatusPending)
		}
	})
}

func Test_disbursementApi_process(t *testing.T) {
	server, deps := newTestServer(t)
	ctx := context.Background()

	orgToken := getToken(t, "org1", "org1@test.cd", false)
	adminToken := getToken(t, "admin1", "admin@test.cd", true)

	c := testutil.CreateCause(t, deps.causeRepo, "org1", "Oncology fund", 500_00, cause.StatusActive)
	testutil.CreateDonation(t, deps.donationRepo, c.ID, "donor1", 100_00, donation.StatusCompleted)
	if _, err := deps.ledger.Recompute(ctx, c.ID); err != nil {
		t.Fatalf("Recompute() failed: %v", err)
	}

	d, err := deps.disbursements.Request(ctx, disbursement.NewDisbursement{
		CauseID:     c.ID,
		Amount:      60_00,
		Purpose:     "Hospital invoice",
		RequestedBy: "org1",
		BankDetails: disbursement.BankDetails{AccountName: "Clinic Ltd", AccountNumber: "0123456789", BankName: "Test Bank"},
	})
	if err != nil {
		t.Fatalf("Request() failed: %v", err)
	}

	t.Run("admin only", func(t *testing.T) {
		body := marchallObj(t, disbursement.ProcessDisbursement{Action: disbursement.ActionApprove})
		req, rec := newAuthRequest(http.MethodPost, "/v1/disbursements/"+d.ID+"/process", orgToken, body)
		server.ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Errorf("code = %d; want %d", rec.Code, http.StatusForbidden)
		}
	})

	t.Run("reject needs a reason", func(t *testing.T) {
		body := marchallObj(t, disbursement.ProcessDisbursement{Action: disbursement.ActionReject})
		req, rec := newAuthRequest(http.MethodPost, "/v1/disbursements/"+d.ID+"/process", adminToken, body)
		server.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("code = %d; want %d", rec.Code, http.StatusBadRequest)
		}
	})

	t.Run("approve pays out", func(t *testing.T) {
		body := marchallObj(t, disbursement.ProcessDisbursement{
			Action:               disbursement.ActionApprove,
			TransactionReference: "TRX-001",
		})
		req, rec := newAuthRequest(http.MethodPost, "/v1/disbursements/"+d.ID+"/process", adminToken, body)
		server.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %d; want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
		}

		var got disbursement.Disbursement
		if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
			t.Fatalf("unmarshalling response: %v", err)
		}
		if got.Status != disbursement.StatusDisbursed {
			t.Errorf("Status = %s; want %s", got.Status, disbursement.StatusDisbursed)
		}
		if got.ProcessedBy != "admin1" {
			t.Errorf("ProcessedBy = %s; want admin1 (from token)", got.ProcessedBy)
		}

		cs, _ := deps.causeRepo.GetCauseByID(ctx, c.ID)
		if cs.WithdrawnAmount != 60_00 || cs.AvailableForWithdrawal != 40_00 {
			t.Errorf("totals = withdrawn %d available %d; want 6000/4000", cs.WithdrawnAmount, cs.AvailableForWithdrawal)
		}
	})

	t.Run("processing twice conflicts", func(t *testing.T) {
		body := marchallObj(t, disbursement.ProcessDisbursement{Action: disbursement.ActionApprove})
		req, rec := newAuthRequest(http.MethodPost, "/v1/disbursements/"+d.ID+"/process", adminToken, body)
		server.ServeHTTP(rec, req)
		if rec.Code != http.StatusConflict {
			t.Errorf("code = %d; want %d", rec.Code, http.StatusConflict)
		}
	})
}
