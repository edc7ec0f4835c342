package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/vibast-solutions/ms-go-escrow/app/entity"
	"github.com/vibast-solutions/ms-go-escrow/app/provider"
	"github.com/vibast-solutions/ms-go-escrow/app/types"
	"github.com/vibast-solutions/ms-go-escrow/config"
)

// fakeProcessor keeps payments and accounts in memory and applies mutations
// the way the processor would, without enforcing any escrow rule itself.
type fakeProcessor struct {
	payments map[string]*provider.PaymentView
	fees     map[string]int64
	accounts map[string]*provider.Account
	balances map[string]*provider.Balance
	nextID   int

	calls     []string
	lastAuth  *provider.AuthorizationInput
	transfers []*provider.TransferInput
	reversals []int64
	refunds   []*provider.RefundInput

	// initialState is the state new authorizations start in.
	initialState provider.PaymentState
	// captureRace makes CapturePayment lose to a concurrent capture.
	captureRace bool

	getErr     error
	captureErr error
	reverseErr error
	linkErr    error
	webhookErr error
	webhookEvt *provider.WebhookEvent
}

func newFakeProcessor() *fakeProcessor {
	return &fakeProcessor{
		payments:     map[string]*provider.PaymentView{},
		fees:         map[string]int64{},
		accounts:     map[string]*provider.Account{},
		balances:     map[string]*provider.Balance{},
		initialState: provider.StateAuthorized,
	}
}

func (p *fakeProcessor) id(prefix string) string {
	p.nextID++
	return fmt.Sprintf("%s_%d", prefix, p.nextID)
}

func (p *fakeProcessor) count(method string) int {
	n := 0
	for _, call := range p.calls {
		if call == method {
			n++
		}
	}
	return n
}

func (p *fakeProcessor) Name() string {
	return "stripe"
}

func (p *fakeProcessor) CreateAuthorization(_ context.Context, input *provider.AuthorizationInput) (*provider.Authorization, error) {
	p.calls = append(p.calls, "CreateAuthorization")
	p.lastAuth = input

	id := p.id("pi")
	state := p.initialState
	p.payments[id] = &provider.PaymentView{
		ID:          id,
		Currency:    input.Currency,
		State:       state,
		Amount:      input.Amount,
		Destination: input.DestinationAccount,
	}
	p.fees[id] = input.PlatformFee

	auth := &provider.Authorization{ID: id, ClientSecret: id + "_secret", State: state}
	if state == provider.StateFailed {
		auth.FailureMsg = "card declined"
	}
	return auth, nil
}

func (p *fakeProcessor) GetPayment(_ context.Context, paymentID string) (*provider.PaymentView, error) {
	p.calls = append(p.calls, "GetPayment")
	if p.getErr != nil {
		return nil, p.getErr
	}
	view, ok := p.payments[paymentID]
	if !ok {
		return nil, &provider.Error{Code: provider.CodeNotFound, Message: "No such payment_intent: '" + paymentID + "'"}
	}
	copyView := *view
	return &copyView, nil
}

func (p *fakeProcessor) CapturePayment(_ context.Context, paymentID string) (*provider.PaymentView, error) {
	p.calls = append(p.calls, "CapturePayment")
	if p.captureErr != nil {
		return nil, p.captureErr
	}
	view := p.payments[paymentID]
	if p.captureRace {
		view.State = provider.StateCaptured
		view.CapturedAmount = view.Amount
		return nil, &provider.Error{Code: provider.CodeInvalidState, Message: "This PaymentIntent has already been captured."}
	}
	view.State = provider.StateCaptured
	view.CapturedAmount = view.Amount
	view.ChargeID = "ch_" + paymentID
	if view.Destination != "" {
		view.TransferID = "tr_dest_" + paymentID
		view.TransferAmount = view.Amount - p.fees[paymentID]
	}
	copyView := *view
	return &copyView, nil
}

func (p *fakeProcessor) CancelPayment(_ context.Context, paymentID, _ string) (*provider.PaymentView, error) {
	p.calls = append(p.calls, "CancelPayment")
	view := p.payments[paymentID]
	view.State = provider.StateCanceled
	copyView := *view
	return &copyView, nil
}

func (p *fakeProcessor) CreateTransfer(_ context.Context, input *provider.TransferInput) (*provider.Transfer, error) {
	p.calls = append(p.calls, "CreateTransfer")
	p.transfers = append(p.transfers, input)

	id := p.id("tr")
	view := p.payments[input.PaymentID]
	view.ReleaseTransferID = id
	view.TransferID = id
	view.TransferAmount = input.Amount
	return &provider.Transfer{ID: id, Amount: input.Amount}, nil
}

func (p *fakeProcessor) ReverseTransfer(_ context.Context, transferID string, amount int64, _ string) (*provider.TransferReversal, error) {
	p.calls = append(p.calls, "ReverseTransfer")
	if p.reverseErr != nil {
		return nil, p.reverseErr
	}
	p.reversals = append(p.reversals, amount)
	for _, view := range p.payments {
		if view.TransferID == transferID {
			view.TransferReversedAmount += amount
		}
	}
	return &provider.TransferReversal{ID: p.id("trr"), Amount: amount}, nil
}

func (p *fakeProcessor) CreateRefund(_ context.Context, input *provider.RefundInput) (*provider.Refund, error) {
	p.calls = append(p.calls, "CreateRefund")
	p.refunds = append(p.refunds, input)
	view := p.payments[input.PaymentID]
	view.RefundedAmount += input.Amount
	return &provider.Refund{ID: p.id("re"), Amount: input.Amount, Status: "succeeded"}, nil
}

func (p *fakeProcessor) CreateAccount(_ context.Context, _ *provider.AccountInput) (*provider.Account, error) {
	p.calls = append(p.calls, "CreateAccount")
	account := &provider.Account{ID: p.id("acct")}
	p.accounts[account.ID] = account
	copyAccount := *account
	return &copyAccount, nil
}

func (p *fakeProcessor) GetAccount(_ context.Context, accountID string) (*provider.Account, error) {
	p.calls = append(p.calls, "GetAccount")
	account, ok := p.accounts[accountID]
	if !ok {
		return nil, &provider.Error{Code: provider.CodeNotFound, Message: "No such account: '" + accountID + "'"}
	}
	copyAccount := *account
	return &copyAccount, nil
}

func (p *fakeProcessor) CreateOnboardingLink(_ context.Context, accountID string) (string, error) {
	p.calls = append(p.calls, "CreateOnboardingLink")
	if p.linkErr != nil {
		return "", p.linkErr
	}
	return "https://connect.example.test/setup/" + accountID, nil
}

func (p *fakeProcessor) GetBalance(_ context.Context, accountID string) (*provider.Balance, error) {
	p.calls = append(p.calls, "GetBalance")
	balance, ok := p.balances[accountID]
	if !ok {
		return nil, &provider.Error{Code: provider.CodeNotFound, Message: "No such account: '" + accountID + "'"}
	}
	copyBalance := *balance
	return &copyBalance, nil
}

func (p *fakeProcessor) ParseWebhook(_ []byte, _ string) (*provider.WebhookEvent, error) {
	p.calls = append(p.calls, "ParseWebhook")
	if p.webhookErr != nil {
		return nil, p.webhookErr
	}
	return p.webhookEvt, nil
}

func (p *fakeProcessor) addAccount(id string, charges, payouts bool) {
	p.accounts[id] = &provider.Account{ID: id, ChargesEnabled: charges, PayoutsEnabled: payouts, DetailsSubmitted: charges && payouts}
}

type fakeEventRepo struct {
	events   []*entity.EscrowEvent
	listed   []*entity.EscrowEvent
	listErr  error
	createFn func(event *entity.EscrowEvent) error

	lastBefore time.Time
	lastLimit  int32
}

func (r *fakeEventRepo) Create(_ context.Context, event *entity.EscrowEvent) error {
	if r.createFn != nil {
		if err := r.createFn(event); err != nil {
			return err
		}
	}
	copyEvent := *event
	r.events = append(r.events, &copyEvent)
	return nil
}

func (r *fakeEventRepo) ListLatestNonTerminal(_ context.Context, before time.Time, limit int32) ([]*entity.EscrowEvent, error) {
	r.lastBefore = before
	r.lastLimit = limit
	if r.listErr != nil {
		return nil, r.listErr
	}
	return r.listed, nil
}

func (r *fakeEventRepo) last() *entity.EscrowEvent {
	if len(r.events) == 0 {
		return nil
	}
	return r.events[len(r.events)-1]
}

type fakeCallbackRepo struct {
	callbacks []*entity.ProviderCallback
	processed map[string]bool
	createErr error
	existsErr error
}

func newFakeCallbackRepo() *fakeCallbackRepo {
	return &fakeCallbackRepo{processed: map[string]bool{}}
}

func (r *fakeCallbackRepo) Create(_ context.Context, callback *entity.ProviderCallback) error {
	if r.createErr != nil {
		return r.createErr
	}
	copyCallback := *callback
	r.callbacks = append(r.callbacks, &copyCallback)
	if callback.Status == entity.ProviderCallbackStatusProcessed && callback.ProviderEventID != nil {
		r.processed[callback.Provider+"/"+*callback.ProviderEventID] = true
	}
	return nil
}

func (r *fakeCallbackRepo) ExistsProcessed(_ context.Context, providerName, providerEventID string) (bool, error) {
	if r.existsErr != nil {
		return false, r.existsErr
	}
	return r.processed[providerName+"/"+providerEventID], nil
}

func liveConfig() config.EscrowConfig {
	return config.EscrowConfig{
		Mode:                config.ProcessorModeLive,
		ReconcileStaleAfter: 15 * time.Minute,
		JobBatchSize:        50,
	}
}

func newLiveService(t *testing.T) (*EscrowService, *fakeProcessor, *fakeEventRepo) {
	t.Helper()
	processor := newFakeProcessor()
	events := &fakeEventRepo{}
	return NewEscrowService(processor, events, liveConfig()), processor, events
}

func newCreateRequest(orderID string, amount int64) *types.CreateEscrowPaymentRequest {
	return &types.CreateEscrowPaymentRequest{
		Amount:       amount,
		Currency:     "usd",
		BuyerId:      "buyer-1",
		SellerId:     "seller-1",
		OrderId:      orderID,
		ListingTitle: "Vintage lamp",
	}
}

func percent(v float64) *float64 {
	return &v
}
