package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stripe/stripe-go/v76/webhook"
)

type recordedRequest struct {
	method string
	path   string
	form   map[string]string
	header http.Header
}

func newStripeTestServer(t *testing.T, routes map[string]func(w http.ResponseWriter, r *http.Request)) (*httptest.Server, *[]recordedRequest) {
	t.Helper()

	var requests []recordedRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		form := make(map[string]string, len(r.Form))
		for k := range r.Form {
			form[k] = r.Form.Get(k)
		}
		requests = append(requests, recordedRequest{
			method: r.Method,
			path:   r.URL.Path,
			form:   form,
			header: r.Header.Clone(),
		})

		handler, ok := routes[r.Method+" "+r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":{"type":"invalid_request_error","code":"resource_missing","message":"unrouted"}}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		handler(w, r)
	}))
	t.Cleanup(server.Close)
	return server, &requests
}

func newTestStripeProvider(baseURL string) *StripeProvider {
	return NewStripeProvider(StripeConfig{
		SecretKey:            "sk_test_123",
		WebhookSecret:        "whsec_test",
		OnboardingRefreshURL: "https://market.example.com/onboarding/refresh",
		OnboardingReturnURL:  "https://market.example.com/onboarding/return",
		HTTPTimeout:          2 * time.Second,
		APIBaseURL:           baseURL,
	}, nil)
}

func TestStripeCreateAuthorizationUsesManualCaptureAndDestination(t *testing.T) {
	server, requests := newStripeTestServer(t, map[string]func(http.ResponseWriter, *http.Request){
		"POST /v1/payment_intents": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"id":"pi_123","object":"payment_intent","client_secret":"pi_123_secret_abc","status":"requires_payment_method","amount":10000,"currency":"usd"}`))
		},
	})
	p := newTestStripeProvider(server.URL)

	auth, err := p.CreateAuthorization(context.Background(), &AuthorizationInput{
		OrderID:            "order-1",
		Amount:             10000,
		Currency:           "USD",
		PlatformFee:        500,
		DestinationAccount: "acct_seller",
		Description:        "Vintage lamp",
		IdempotencyKey:     "escrow-create-order-1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if auth.ID != "pi_123" || auth.ClientSecret != "pi_123_secret_abc" {
		t.Fatalf("unexpected authorization: %+v", auth)
	}
	if auth.State != StateAwaitingBuyer {
		t.Fatalf("expected awaiting buyer state, got %v", auth.State)
	}

	if len(*requests) != 1 {
		t.Fatalf("expected exactly one request, got %d", len(*requests))
	}
	req := (*requests)[0]
	checks := map[string]string{
		"capture_method":             "manual",
		"amount":                     "10000",
		"currency":                   "usd",
		"application_fee_amount":     "500",
		"transfer_data[destination]": "acct_seller",
		"transfer_group":             "order-1",
		"metadata[order_id]":         "order-1",
	}
	for key, want := range checks {
		if got := req.form[key]; got != want {
			t.Fatalf("expected %s=%q, got %q", key, want, got)
		}
	}
	if got := req.header.Get("Idempotency-Key"); got != "escrow-create-order-1" {
		t.Fatalf("expected idempotency key header, got %q", got)
	}
}

func TestStripeCreateAuthorizationWithoutDestinationOmitsRouting(t *testing.T) {
	server, requests := newStripeTestServer(t, map[string]func(http.ResponseWriter, *http.Request){
		"POST /v1/payment_intents": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"id":"pi_124","object":"payment_intent","client_secret":"s","status":"requires_capture"}`))
		},
	})
	p := newTestStripeProvider(server.URL)

	auth, err := p.CreateAuthorization(context.Background(), &AuthorizationInput{
		OrderID:     "order-2",
		Amount:      2500,
		Currency:    "EUR",
		PlatformFee: 125,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if auth.State != StateAuthorized {
		t.Fatalf("expected authorized, got %v", auth.State)
	}
	req := (*requests)[0]
	if _, ok := req.form["transfer_data[destination]"]; ok {
		t.Fatal("did not expect destination routing")
	}
	if _, ok := req.form["application_fee_amount"]; ok {
		t.Fatal("did not expect an application fee without destination")
	}
}

func TestStripeGetPaymentMapsChargeAndTransfer(t *testing.T) {
	server, requests := newStripeTestServer(t, map[string]func(http.ResponseWriter, *http.Request){
		"GET /v1/payment_intents/pi_123": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{
				"id":"pi_123","object":"payment_intent","status":"succeeded","amount":10000,"amount_received":10000,"currency":"usd",
				"transfer_data":{"destination":"acct_seller"},
				"metadata":{"escrow_release_transfer":"tr_release"},
				"latest_charge":{"id":"ch_1","object":"charge","amount_refunded":2500,
					"transfer":{"id":"tr_dest","object":"transfer","amount":9500,"amount_reversed":2500}}
			}`))
		},
	})
	p := newTestStripeProvider(server.URL)

	view, err := p.GetPayment(context.Background(), "pi_123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if view.State != StateCaptured {
		t.Fatalf("expected captured state, got %v", view.State)
	}
	if view.Currency != "USD" || view.Amount != 10000 || view.CapturedAmount != 10000 || view.RefundedAmount != 2500 {
		t.Fatalf("unexpected amounts: %+v", view)
	}
	if view.Destination != "acct_seller" || view.ChargeID != "ch_1" {
		t.Fatalf("unexpected routing: %+v", view)
	}
	if view.TransferID != "tr_dest" || view.TransferAmount != 9500 || view.TransferReversedAmount != 2500 {
		t.Fatalf("unexpected transfer: %+v", view)
	}
	if view.ReleaseTransferID != "tr_release" {
		t.Fatalf("expected release transfer from metadata, got %q", view.ReleaseTransferID)
	}
	if got := (*requests)[0].form["expand[0]"]; got != "latest_charge.transfer" {
		t.Fatalf("expected latest_charge.transfer expansion, got %q", got)
	}
}

func TestStripeErrorsMapToProcessorCodes(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   ErrorCode
	}{
		{"missing", http.StatusNotFound, `{"error":{"type":"invalid_request_error","code":"resource_missing","message":"No such payment_intent"}}`, CodeNotFound},
		{"state", http.StatusBadRequest, `{"error":{"type":"invalid_request_error","code":"payment_intent_unexpected_state","message":"already canceled"}}`, CodeInvalidState},
		{"amount", http.StatusBadRequest, `{"error":{"type":"invalid_request_error","code":"amount_too_large","message":"too much"}}`, CodeInvalidAmount},
		{"funds", http.StatusBadRequest, `{"error":{"type":"invalid_request_error","code":"balance_insufficient","message":"no funds"}}`, CodeInsufficientFunds},
		{"destination", http.StatusBadRequest, `{"error":{"type":"invalid_request_error","code":"resource_missing","param":"transfer_data[destination]","message":"No such destination"}}`, CodeInvalidAccount},
		{"other", http.StatusPaymentRequired, `{"error":{"type":"card_error","code":"card_declined","message":"declined"}}`, CodeRejected},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server, _ := newStripeTestServer(t, map[string]func(http.ResponseWriter, *http.Request){
				"POST /v1/payment_intents/pi_1/capture": func(w http.ResponseWriter, r *http.Request) {
					w.WriteHeader(tc.status)
					_, _ = w.Write([]byte(tc.body))
				},
			})
			p := newTestStripeProvider(server.URL)

			_, err := p.CapturePayment(context.Background(), "pi_1")
			perr, ok := AsError(err)
			if !ok {
				t.Fatalf("expected processor error, got %v", err)
			}
			if perr.Code != tc.want {
				t.Fatalf("expected code %s, got %s", tc.want, perr.Code)
			}
			if perr.Message == "" {
				t.Fatal("expected processor message to be preserved")
			}
		})
	}
}

func TestStripeTransportFailureIsNotProcessorError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	baseURL := server.URL
	server.Close()

	p := newTestStripeProvider(baseURL)
	_, err := p.GetPayment(context.Background(), "pi_1")
	if err == nil {
		t.Fatal("expected transport error")
	}
	if _, ok := AsError(err); ok {
		t.Fatal("did not expect transport failure to map to a processor error")
	}
}

func TestStripeCreateTransferRecordsReleaseOnIntent(t *testing.T) {
	server, requests := newStripeTestServer(t, map[string]func(http.ResponseWriter, *http.Request){
		"POST /v1/transfers": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"id":"tr_777","object":"transfer","amount":9500}`))
		},
		"POST /v1/payment_intents/pi_123": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"id":"pi_123","object":"payment_intent","status":"succeeded"}`))
		},
	})
	p := newTestStripeProvider(server.URL)

	tr, err := p.CreateTransfer(context.Background(), &TransferInput{
		PaymentID:          "pi_123",
		ChargeID:           "ch_1",
		DestinationAccount: "acct_seller",
		Amount:             9500,
		Currency:           "USD",
		OrderID:            "order-1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tr.ID != "tr_777" || tr.Amount != 9500 {
		t.Fatalf("unexpected transfer: %+v", tr)
	}
	if len(*requests) != 2 {
		t.Fatalf("expected transfer and intent update, got %d requests", len(*requests))
	}
	transferReq := (*requests)[0]
	if transferReq.form["source_transaction"] != "ch_1" || transferReq.form["transfer_group"] != "order-1" {
		t.Fatalf("unexpected transfer form: %v", transferReq.form)
	}
	if got := (*requests)[1].form["metadata[escrow_release_transfer]"]; got != "tr_777" {
		t.Fatalf("expected release metadata on intent, got %q", got)
	}
}

func TestStripeCreateTransferSurvivesFailedIntentUpdate(t *testing.T) {
	transfers := map[string]string{}
	server, requests := newStripeTestServer(t, map[string]func(http.ResponseWriter, *http.Request){
		"POST /v1/transfers": func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("Idempotency-Key")
			if _, ok := transfers[key]; !ok {
				transfers[key] = "tr_" + strconv.Itoa(len(transfers)+1)
			}
			_, _ = w.Write([]byte(`{"id":"` + transfers[key] + `","object":"transfer","amount":9500}`))
		},
		"POST /v1/payment_intents/pi_123": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":{"type":"api_error","message":"internal"}}`))
		},
		"GET /v1/payment_intents/pi_123": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"id":"pi_123","object":"payment_intent","status":"succeeded","amount":10000,"amount_received":10000,"currency":"usd",
				"transfer_group":"order-1","metadata":{"order_id":"order-1"},
				"latest_charge":{"id":"ch_1","object":"charge","amount_refunded":0}}`))
		},
		"GET /v1/transfers": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"object":"list","url":"/v1/transfers","has_more":false,"data":[
				{"id":"tr_other","object":"transfer","amount":100,"metadata":{"payment_reference_id":"pi_other"}},
				{"id":"tr_1","object":"transfer","amount":9500,"metadata":{"payment_reference_id":"pi_123"}}]}`))
		},
		"GET /v1/transfers/tr_1": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"id":"tr_1","object":"transfer","amount":9500,"amount_reversed":0}`))
		},
	})
	p := newTestStripeProvider(server.URL)

	input := &TransferInput{
		PaymentID:          "pi_123",
		ChargeID:           "ch_1",
		DestinationAccount: "acct_seller",
		Amount:             9500,
		Currency:           "USD",
		OrderID:            "order-1",
	}
	first, err := p.CreateTransfer(context.Background(), input)
	if err != nil {
		t.Fatalf("expected transfer despite failed intent update, got %v", err)
	}
	second, err := p.CreateTransfer(context.Background(), input)
	if err != nil {
		t.Fatalf("unexpected error on retry: %v", err)
	}
	if first.ID != "tr_1" || second.ID != first.ID {
		t.Fatalf("expected retry to return the same transfer, got %q and %q", first.ID, second.ID)
	}
	if len(transfers) != 1 {
		t.Fatalf("expected a single transfer, got %d", len(transfers))
	}
	if got := (*requests)[0].header.Get("Idempotency-Key"); got != "escrow-release-pi_123" {
		t.Fatalf("expected release idempotency key, got %q", got)
	}

	view, err := p.GetPayment(context.Background(), "pi_123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if view.ReleaseTransferID != "tr_1" || view.TransferID != "tr_1" || view.TransferAmount != 9500 {
		t.Fatalf("expected release transfer found by group, got %+v", view)
	}
	var listed bool
	for _, req := range *requests {
		if req.method == http.MethodGet && req.path == "/v1/transfers" {
			listed = true
			if req.form["transfer_group"] != "order-1" {
				t.Fatalf("expected transfer_group filter, got %v", req.form)
			}
		}
	}
	if !listed {
		t.Fatal("expected transfers to be listed by group")
	}
}

func TestStripeGetPaymentWithoutReleaseTransfer(t *testing.T) {
	server, _ := newStripeTestServer(t, map[string]func(http.ResponseWriter, *http.Request){
		"GET /v1/payment_intents/pi_held": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"id":"pi_held","object":"payment_intent","status":"succeeded","amount":4000,"amount_received":4000,"currency":"usd",
				"transfer_group":"order-9","latest_charge":{"id":"ch_9","object":"charge","amount_refunded":0}}`))
		},
		"GET /v1/transfers": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"object":"list","url":"/v1/transfers","has_more":false,"data":[]}`))
		},
	})
	p := newTestStripeProvider(server.URL)

	view, err := p.GetPayment(context.Background(), "pi_held")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if view.ReleaseTransferID != "" || view.TransferID != "" {
		t.Fatalf("expected no release transfer, got %+v", view)
	}
}

func TestStripeReverseTransfer(t *testing.T) {
	server, requests := newStripeTestServer(t, map[string]func(http.ResponseWriter, *http.Request){
		"POST /v1/transfers/tr_dest/reversals": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"id":"trr_1","object":"transfer_reversal","amount":2500}`))
		},
	})
	p := newTestStripeProvider(server.URL)

	rev, err := p.ReverseTransfer(context.Background(), "tr_dest", 2500, "order-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rev.ID != "trr_1" || rev.Amount != 2500 {
		t.Fatalf("unexpected reversal: %+v", rev)
	}
	if got := (*requests)[0].form["amount"]; got != "2500" {
		t.Fatalf("expected reversal amount, got %q", got)
	}
}

func TestStripeCreateRefundMapsReason(t *testing.T) {
	server, requests := newStripeTestServer(t, map[string]func(http.ResponseWriter, *http.Request){
		"POST /v1/refunds": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"id":"re_1","object":"refund","amount":2500,"status":"succeeded"}`))
		},
	})
	p := newTestStripeProvider(server.URL)

	refund, err := p.CreateRefund(context.Background(), &RefundInput{
		PaymentID: "pi_123",
		Amount:    2500,
		Reason:    "item arrived damaged",
		OrderID:   "order-1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if refund.ID != "re_1" || refund.Status != "succeeded" {
		t.Fatalf("unexpected refund: %+v", refund)
	}
	form := (*requests)[0].form
	if form["reason"] != "requested_by_customer" {
		t.Fatalf("expected free-form reason to map to requested_by_customer, got %q", form["reason"])
	}
	if form["metadata[refund_reason]"] != "item arrived damaged" {
		t.Fatalf("expected original reason in metadata, got %q", form["metadata[refund_reason]"])
	}
}

func TestStripeAccountLifecycle(t *testing.T) {
	server, requests := newStripeTestServer(t, map[string]func(http.ResponseWriter, *http.Request){
		"POST /v1/accounts": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"id":"acct_new","object":"account","charges_enabled":false,"payouts_enabled":false}`))
		},
		"GET /v1/accounts/acct_new": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"id":"acct_new","object":"account","charges_enabled":true,"payouts_enabled":true,"details_submitted":true}`))
		},
		"POST /v1/account_links": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"object":"account_link","url":"https://connect.stripe.com/setup/e/acct_new/abc"}`))
		},
	})
	p := newTestStripeProvider(server.URL)
	ctx := context.Background()

	acct, err := p.CreateAccount(ctx, &AccountInput{UserID: "user-1", Email: "seller@example.com", Country: "us"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if acct.ID != "acct_new" || acct.ChargesEnabled {
		t.Fatalf("unexpected account: %+v", acct)
	}
	createForm := (*requests)[0].form
	if createForm["type"] != "express" || createForm["country"] != "US" {
		t.Fatalf("unexpected account form: %v", createForm)
	}
	if createForm["capabilities[card_payments][requested]"] != "true" || createForm["capabilities[transfers][requested]"] != "true" {
		t.Fatalf("expected capabilities to be requested: %v", createForm)
	}

	link, err := p.CreateOnboardingLink(ctx, "acct_new")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if link != "https://connect.stripe.com/setup/e/acct_new/abc" {
		t.Fatalf("unexpected link: %s", link)
	}
	if (*requests)[1].form["type"] != "account_onboarding" {
		t.Fatalf("expected account_onboarding link type")
	}

	got, err := p.GetAccount(ctx, "acct_new")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.ChargesEnabled || !got.PayoutsEnabled || !got.DetailsSubmitted {
		t.Fatalf("unexpected account status: %+v", got)
	}
}

func TestStripeGetBalanceSumsEntriesForConnectedAccount(t *testing.T) {
	server, requests := newStripeTestServer(t, map[string]func(http.ResponseWriter, *http.Request){
		"GET /v1/balance": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"object":"balance","available":[{"amount":1200,"currency":"usd"},{"amount":300,"currency":"usd"}],"pending":[{"amount":-50,"currency":"usd"}]}`))
		},
	})
	p := newTestStripeProvider(server.URL)

	balance, err := p.GetBalance(context.Background(), "acct_seller")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if balance.Available != 1500 || balance.Pending != -50 {
		t.Fatalf("unexpected balance: %+v", balance)
	}
	if got := (*requests)[0].header.Get("Stripe-Account"); got != "acct_seller" {
		t.Fatalf("expected Stripe-Account header, got %q", got)
	}
}

func TestStripeParseWebhook(t *testing.T) {
	p := newTestStripeProvider("")
	payload := []byte(`{"id":"evt_1","object":"event","type":"account.updated","account":"acct_1","data":{"object":{"id":"acct_1","object":"account","charges_enabled":true,"payouts_enabled":false,"details_submitted":true}}}`)

	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload: payload,
		Secret:  "whsec_test",
	})

	event, err := p.ParseWebhook(payload, signed.Header)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if event.ID != "evt_1" || event.Type != "account.updated" {
		t.Fatalf("unexpected event: %+v", event)
	}
	if event.Account == nil || !event.Account.ChargesEnabled || event.Account.PayoutsEnabled {
		t.Fatalf("unexpected account snapshot: %+v", event.Account)
	}

	wrong := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload: payload,
		Secret:  "whsec_other",
	})
	if _, err := p.ParseWebhook(payload, wrong.Header); err == nil {
		t.Fatal("expected signature with wrong secret to fail")
	}
}

func TestStripeParseWebhookChargeEventResolvesPayment(t *testing.T) {
	p := newTestStripeProvider("")
	payload := []byte(`{"id":"evt_2","object":"event","type":"charge.refunded","data":{"object":{"id":"ch_1","object":"charge","payment_intent":"pi_123"}}}`)
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{Payload: payload, Secret: "whsec_test"})

	event, err := p.ParseWebhook(payload, signed.Header)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if event.ObjectID != "ch_1" || event.PaymentID != "pi_123" {
		t.Fatalf("unexpected event: %+v", event)
	}
}

func TestStripeGetPaymentLoadsReleaseTransfer(t *testing.T) {
	server, requests := newStripeTestServer(t, map[string]func(http.ResponseWriter, *http.Request){
		"GET /v1/payment_intents/pi_manual": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"id":"pi_manual","object":"payment_intent","status":"succeeded","amount":4000,"amount_received":4000,"currency":"usd",
				"metadata":{"escrow_release_transfer":"tr_release"},
				"latest_charge":{"id":"ch_9","object":"charge","amount_refunded":0}}`))
		},
		"GET /v1/transfers/tr_release": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"id":"tr_release","object":"transfer","amount":3800,"amount_reversed":100}`))
		},
	})
	p := newTestStripeProvider(server.URL)

	view, err := p.GetPayment(context.Background(), "pi_manual")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if view.Destination != "" {
		t.Fatalf("expected no destination routing, got %q", view.Destination)
	}
	if view.TransferID != "tr_release" || view.TransferAmount != 3800 || view.TransferReversedAmount != 100 {
		t.Fatalf("unexpected release transfer: %+v", view)
	}
	if len(*requests) != 2 {
		t.Fatalf("expected intent and transfer reads, got %d", len(*requests))
	}
}
