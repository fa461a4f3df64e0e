package controllers

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCreatePaymentLinkRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     CreatePaymentLinkRequest
		wantErr bool
	}{
		{name: "empty body is fine", req: CreatePaymentLinkRequest{}},
		{name: "email only", req: CreatePaymentLinkRequest{Email: "user@example.com"}},
		{name: "email and name", req: CreatePaymentLinkRequest{Email: "user@example.com", Name: "Alex"}},
		{name: "bad email", req: CreatePaymentLinkRequest{Email: "not-an-email"}, wantErr: true},
		{name: "email too long", req: CreatePaymentLinkRequest{Email: strings.Repeat("a", 195) + "@x.com"}, wantErr: true},
		{name: "name too long", req: CreatePaymentLinkRequest{Name: strings.Repeat("n", 151)}, wantErr: true},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			err := tc.req.Validate()
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
