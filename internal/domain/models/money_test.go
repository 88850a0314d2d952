package models

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseMoney(t *testing.T) {
	tests := []struct {
		in      string
		want    Money
		wantErr error
	}{
		{"10", 1000, nil},
		{"10.5", 1050, nil},
		{"10.50", 1050, nil},
		{"0.01", 1, nil},
		{"0", 0, nil},
		{"-3.25", -325, nil},
		{"1e2", 10000, nil},
		{"10.505", 0, ErrMoneyPrecision},
		{"0.001", 0, ErrMoneyPrecision},
		{"abc", 0, ErrMoneyFormat},
		{"", 0, ErrMoneyFormat},
		{"NaN", 0, ErrMoneyFormat},
		{"1000000001", 0, ErrMoneyRange},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMoney(tt.in)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ParseMoney(%q) err = %v, want %v", tt.in, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseMoney(%q) unexpected error: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseMoney(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestMoney_String(t *testing.T) {
	tests := []struct {
		m    Money
		want string
	}{
		{0, "0.00"},
		{1, "0.01"},
		{1050, "10.50"},
		{-325, "-3.25"},
		{123456789, "1234567.89"},
	}
	for _, tt := range tests {
		if got := tt.m.String(); got != tt.want {
			t.Errorf("Money(%d).String() = %q, want %q", int64(tt.m), got, tt.want)
		}
	}
}

func TestMoney_JSON(t *testing.T) {
	var v struct {
		Amount Money `json:"amount"`
	}

	if err := json.Unmarshal([]byte(`{"amount": 12.5}`), &v); err != nil {
		t.Fatalf("unmarshal number: %v", err)
	}
	if v.Amount != 1250 {
		t.Errorf("number: got %d, want 1250", v.Amount)
	}

	if err := json.Unmarshal([]byte(`{"amount": "7.25"}`), &v); err != nil {
		t.Fatalf("unmarshal string: %v", err)
	}
	if v.Amount != 725 {
		t.Errorf("string: got %d, want 725", v.Amount)
	}

	if err := json.Unmarshal([]byte(`{"amount": 1.234}`), &v); err == nil {
		t.Error("expected error for sub-cent amount")
	}

	out, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != `{"amount":7.25}` {
		t.Errorf("marshal: got %s", out)
	}
}

func TestCanTransitionWithdrawal(t *testing.T) {
	tests := []struct {
		from, to string
		want     bool
	}{
		{WithdrawalPending, WithdrawalApproved, true},
		{WithdrawalPending, WithdrawalRejected, true},
		{WithdrawalPending, WithdrawalCompleted, true},
		{WithdrawalApproved, WithdrawalCompleted, true},
		{WithdrawalApproved, WithdrawalRejected, true},
		{WithdrawalApproved, WithdrawalPending, false},
		{WithdrawalRejected, WithdrawalApproved, false},
		{WithdrawalCompleted, WithdrawalPending, false},
		{WithdrawalPending, WithdrawalPending, false},
		{"bogus", WithdrawalApproved, false},
	}
	for _, tt := range tests {
		t.Run(tt.from+"->"+tt.to, func(t *testing.T) {
			if got := CanTransitionWithdrawal(tt.from, tt.to); got != tt.want {
				t.Errorf("CanTransitionWithdrawal(%q, %q) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestCampaignStatusHelpers(t *testing.T) {
	for _, s := range []string{CampaignActive, CampaignApproved, CampaignHidden, CampaignReported} {
		if !IsValidCampaignStatus(s) {
			t.Errorf("IsValidCampaignStatus(%q) = false", s)
		}
	}
	if IsValidCampaignStatus("archived") {
		t.Error("IsValidCampaignStatus(archived) = true")
	}
	if IsPubliclyListed(CampaignHidden) || IsPubliclyListed(CampaignReported) {
		t.Error("hidden and reported campaigns must not be publicly listed")
	}
	if !IsPubliclyListed(CampaignActive) || !IsPubliclyListed(CampaignApproved) {
		t.Error("active and approved campaigns must be publicly listed")
	}
}

func TestDisplayName(t *testing.T) {
	if got := DisplayName("Ana", true); got != AnonymousDonorName {
		t.Errorf("anonymous: got %q", got)
	}
	if got := DisplayName("", false); got != AnonymousDonorName {
		t.Errorf("empty: got %q", got)
	}
	if got := DisplayName("Ana", false); got != "Ana" {
		t.Errorf("named: got %q", got)
	}
}
