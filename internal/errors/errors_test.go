// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package errors

import (
	"errors"
	"testing"
)

func TestError(t *testing.T) {
	err := New(KindValidation, "invalid port")
	if err.Error() != "invalid port" {
		t.Errorf("expected 'invalid port', got '%s'", err.Error())
	}

	wrapped := Wrap(err, KindInternal, "decode failed")
	if wrapped.Error() != "decode failed: invalid port" {
		t.Errorf("expected 'decode failed: invalid port', got '%s'", wrapped.Error())
	}

	if Wrap(nil, KindInternal, "noop") != nil {
		t.Error("expected Wrap(nil) to return nil")
	}
}

func TestGetKind(t *testing.T) {
	err := New(KindValidation, "invalid input")
	if GetKind(err) != KindValidation {
		t.Errorf("expected KindValidation, got %v", GetKind(err))
	}

	wrapped := Wrap(err, KindUnavailable, "iptables")
	if GetKind(wrapped) != KindUnavailable {
		t.Errorf("expected KindUnavailable, got %v", GetKind(wrapped))
	}

	if GetKind(errors.New("std error")) != KindUnknown {
		t.Errorf("expected KindUnknown, got %v", GetKind(errors.New("std error")))
	}
}

func TestAttributes(t *testing.T) {
	err := New(KindValidation, "invalid address")
	err = Attr(err, "field", "00000000")
	err = Attr(err, "line", 3)

	attrs := GetAttributes(err)
	if attrs["field"] != "00000000" {
		t.Errorf("expected 00000000, got %v", attrs["field"])
	}
	if attrs["line"] != 3 {
		t.Errorf("expected 3, got %v", attrs["line"])
	}

	wrapped := Wrap(err, KindInternal, "cycle")
	wrapped = Attr(wrapped, "operation", "decode")

	allAttrs := GetAttributes(wrapped)
	if allAttrs["field"] != "00000000" || allAttrs["operation"] != "decode" {
		t.Errorf("missing attributes: %v", allAttrs)
	}
}

func TestAttrDoesNotMutateSentinel(t *testing.T) {
	sentinel := New(KindValidation, "invalid")

	tagged := Attr(sentinel, "raw", "ZZZZ")
	if len(GetAttributes(sentinel)) != 0 {
		t.Errorf("sentinel was mutated: %v", GetAttributes(sentinel))
	}
	if GetAttributes(tagged)["raw"] != "ZZZZ" {
		t.Errorf("expected raw attribute on copy, got %v", GetAttributes(tagged))
	}

	if !Is(tagged, sentinel) {
		t.Error("expected attributed copy to match sentinel")
	}
	if Is(tagged, New(KindValidation, "invalid")) {
		t.Error("expected distinct sentinel not to match")
	}

	wrapped := Attr(Wrap(sentinel, KindValidation, "decode"), "raw", "0000")
	if !Is(wrapped, sentinel) {
		t.Error("expected wrapped error to match sentinel")
	}
}

func TestAttrPlainError(t *testing.T) {
	err := Attr(errors.New("boom"), "k", "v")
	if GetKind(err) != KindInternal {
		t.Errorf("expected KindInternal, got %v", GetKind(err))
	}
}

func TestAppend(t *testing.T) {
	if Append(nil) != nil {
		t.Error("expected nil for no errors")
	}
	if Append(nil, nil, nil) != nil {
		t.Error("expected nil when all inputs are nil")
	}

	a := New(KindUnavailable, "webhook down")
	b := New(KindTimeout, "ntfy timeout")
	err := Append(a, nil, b)
	if err == nil {
		t.Fatal("expected combined error")
	}
	if !Is(err, a) || !Is(err, b) {
		t.Errorf("expected combined error to contain both inputs: %v", err)
	}
}
