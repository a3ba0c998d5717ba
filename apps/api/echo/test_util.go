package echoapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"

	"github.com/afyafund/afyafund/core"
	"github.com/afyafund/afyafund/core/cause"
	"github.com/afyafund/afyafund/core/disbursement"
	"github.com/afyafund/afyafund/core/donation"
	"github.com/afyafund/afyafund/core/ledger"
	notifsvc "github.com/afyafund/afyafund/services/notification"
	paymentsvc "github.com/afyafund/afyafund/services/payment"
	streamsvc "github.com/afyafund/afyafund/services/stream"
	inmemdb "github.com/afyafund/afyafund/storage/database/inmem"
	testutil "github.com/afyafund/afyafund/tests"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
	extra    interface{}
}

type serverDeps struct {
	causeRepo     cause.Repository
	donationRepo  donation.Repository
	ledger        *ledger.Ledger
	gateway       *paymentsvc.DummyGateway
	notifSvc      *notifsvc.DummyService
	donationSvc   *donation.Service
	disbursements *disbursement.Service
}

func newTestConfig() *core.Config {
	return &core.Config{
		Env:        "TEST",
		TestMode:   true,
		AppName:    "AfyaFund",
		SecretKey:  "secret",
		AdminEmail: "admin@test.cd",
		Server: core.ServerConfig{
			Host:               "localhost",
			Addr:               ":0",
			JWTExpirationDelta: 10 * time.Minute,
		},
	}
}

func newTestServer(t *testing.T) (*Server, serverDeps) {
	db, err := inmemdb.Open()
	if err != nil {
		t.Fatalf("newTestServer() failed: %v", err)
	}
	causeRepo := inmemdb.NewCauseRepository(db)
	donationRepo := inmemdb.NewDonationRepository(db)
	disbursementRepo := inmemdb.NewDisbursementRepository(db)

	conf := newTestConfig()
	logger := testutil.NopLogger{}
	gateway := paymentsvc.NewDummyGateway()
	notifSvc := notifsvc.NewDummyService()
	ldgr := ledger.New(causeRepo, donationRepo)
	hub := streamsvc.NewHub(logger)
	go hub.Run()

	causeSvc := cause.NewService(causeRepo, donationRepo, notifSvc, logger)
	disbursementSvc := disbursement.NewService(disbursementRepo, causeRepo, ldgr, notifSvc, logger, conf.AdminEmail)
	donationSvc := donation.NewService(donationRepo, causeRepo, gateway, ldgr, disbursementSvc, notifSvc, logger)

	validate := validator.New()
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	core.InitValidators(validate, translator)

	server := NewServer(ServerDeps{
		Conf:            conf,
		Logger:          logger,
		CauseSvc:        causeSvc,
		DonationSvc:     donationSvc,
		DisbursementSvc: disbursementSvc,
		Hub:             hub,
		Validate:        validate,
		Translator:      translator,
	})
	return server, serverDeps{
		causeRepo:     causeRepo,
		donationRepo:  donationRepo,
		ledger:        ldgr,
		gateway:       gateway,
		notifSvc:      notifSvc,
		donationSvc:   donationSvc,
		disbursements: disbursementSvc,
	}
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func getToken(t *testing.T, id, email string, isAdmin bool) string {
	claims := GetAccountClaims(id, "Account "+id, email, isAdmin)
	token, err := GenerateToken(claims)
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
