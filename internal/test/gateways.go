package test

import (
	"context"
	"sync/atomic"

	"github.com/polkiloo/gophercheckout/internal/adapter/gateway"
	"github.com/polkiloo/gophercheckout/internal/domain/model"
)

// GatewayStub is a synchronous adapter driven by function overrides.
type GatewayStub struct {
	MethodVal  model.PaymentMethod
	ValidateFn func(model.PaymentRequest) error
	ExecuteFn  func(context.Context, gateway.Request) (gateway.Result, error)

	executions atomic.Int32
}

// Method returns the configured payment method, CARD by default.
func (g *GatewayStub) Method() model.PaymentMethod {
	if g.MethodVal == "" {
		return model.PaymentMethodCard
	}
	return g.MethodVal
}

// Validate delegates to ValidateFn when set.
func (g *GatewayStub) Validate(req model.PaymentRequest) error {
	if g.ValidateFn != nil {
		return g.ValidateFn(req)
	}
	return nil
}

// Execute counts the call and completes the payment unless ExecuteFn says otherwise.
func (g *GatewayStub) Execute(ctx context.Context, req gateway.Request) (gateway.Result, error) {
	g.executions.Add(1)
	if g.ExecuteFn != nil {
		return g.ExecuteFn(ctx, req)
	}
	return gateway.Result{Reference: "ref-" + req.TransactionID, Status: model.PaymentStatusCompleted}, nil
}

// Executions reports how many times Execute ran.
func (g *GatewayStub) Executions() int {
	return int(g.executions.Load())
}

// RefundingGatewayStub adds a refund api to GatewayStub.
type RefundingGatewayStub struct {
	GatewayStub
	RefundFn func(context.Context, gateway.RefundRequest) (gateway.Result, error)

	refunds atomic.Int32
}

// Refund counts the call and succeeds unless RefundFn says otherwise.
func (g *RefundingGatewayStub) Refund(ctx context.Context, req gateway.RefundRequest) (gateway.Result, error) {
	g.refunds.Add(1)
	if g.RefundFn != nil {
		return g.RefundFn(ctx, req)
	}
	return gateway.Result{Reference: "rf-" + req.RefundID, Status: model.PaymentStatusRefunded}, nil
}

// Refunds reports how many times Refund ran.
func (g *RefundingGatewayStub) Refunds() int {
	return int(g.refunds.Load())
}

// AsyncGatewayStub is an asynchronous adapter that settles through polls or callbacks.
type AsyncGatewayStub struct {
	GatewayStub
	CheckFn func(context.Context, string) (gateway.Result, error)
	ParseFn func([]byte) (gateway.Result, error)

	checks atomic.Int32
}

// NewAsyncGatewayStub returns a stub whose Execute leaves payments PROCESSING
// under the given reference.
func NewAsyncGatewayStub(method model.PaymentMethod, reference string) *AsyncGatewayStub {
	return &AsyncGatewayStub{GatewayStub: GatewayStub{
		MethodVal: method,
		ExecuteFn: func(context.Context, gateway.Request) (gateway.Result, error) {
			return gateway.Result{Reference: reference, Status: model.PaymentStatusProcessing}, nil
		},
	}}
}

// CheckStatus reports PROCESSING unless CheckFn says otherwise.
func (g *AsyncGatewayStub) CheckStatus(ctx context.Context, reference string) (gateway.Result, error) {
	g.checks.Add(1)
	if g.CheckFn != nil {
		return g.CheckFn(ctx, reference)
	}
	return gateway.Result{Reference: reference, Status: model.PaymentStatusProcessing}, nil
}

// ParseCallback delegates to ParseFn, which must be set.
func (g *AsyncGatewayStub) ParseCallback(body []byte) (gateway.Result, error) {
	return g.ParseFn(body)
}

// Checks reports how many times CheckStatus ran.
func (g *AsyncGatewayStub) Checks() int {
	return int(g.checks.Load())
}

var (
	_ gateway.Adapter        = (*GatewayStub)(nil)
	_ gateway.Refunder       = (*RefundingGatewayStub)(nil)
	_ gateway.StatusChecker  = (*AsyncGatewayStub)(nil)
	_ gateway.CallbackParser = (*AsyncGatewayStub)(nil)
)
