package test

import (
	pkgAuth "github.com/polkiloo/gophercheckout/internal/pkg/auth"
)

// TokenParserStub implements middleware token parsing contract.
type TokenParserStub struct {
	Principal pkgAuth.Principal
	Err       error
	ParseFn   func(string) (pkgAuth.Principal, error)
}

// ParseToken either delegates to override or returns predefined result.
// Without configuration it authenticates user 1 as a customer.
func (s TokenParserStub) ParseToken(token string) (pkgAuth.Principal, error) {
	if s.ParseFn != nil {
		return s.ParseFn(token)
	}
	if s.Err != nil {
		return pkgAuth.Principal{}, s.Err
	}
	if s.Principal.UserID == 0 {
		return pkgAuth.Principal{UserID: 1, Roles: []string{pkgAuth.RoleCustomer}}, nil
	}
	return s.Principal, nil
}
