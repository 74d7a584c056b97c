package model

import (
	"errors"
	"fmt"
	"testing"
)

func TestSeverityForScore(t *testing.T) {
	cases := []struct {
		score float64
		want  Severity
	}{
		{0, SeverityLow},
		{40, SeverityLow},
		{40.01, SeverityMedium},
		{70, SeverityMedium},
		{70.5, SeverityHigh},
		{99.9, SeverityHigh},
	}
	for _, tc := range cases {
		if got := SeverityForScore(tc.score); got != tc.want {
			t.Fatalf("score %v: expected %q, got %q", tc.score, tc.want, got)
		}
	}
}

func TestCode_WrappedErrors(t *testing.T) {
	err := fmt.Errorf("register: %w", ErrDuplicateEmail)
	if Code(err) != "DuplicateEmail" {
		t.Fatalf("expected DuplicateEmail, got %q", Code(err))
	}
	if Code(errors.New("boom")) != "OperationFailed" {
		t.Fatalf("expected OperationFailed for unknown error")
	}
	if !errors.Is(ErrorForCode("InvalidToken"), ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken")
	}
	if !errors.Is(ErrorForCode("nope"), ErrOperationFailed) {
		t.Fatalf("expected ErrOperationFailed for unknown code")
	}
}

func TestUserRecord_PublicDropsSecrets(t *testing.T) {
	rec := UserRecord{ID: "u1", Email: "a@b.c", Name: "A", FederatedID: "sub", PasswordHash: "hash"}
	pub := rec.Public()
	if pub.ID != "u1" || pub.Email != "a@b.c" || pub.Name != "A" {
		t.Fatalf("unexpected public user: %+v", pub)
	}
}
