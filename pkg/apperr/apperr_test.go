package apperr

import (
	"errors"
	"testing"
)

func TestConstructors_SetKindAndMessage(t *testing.T) {
	err := ValidationError("bad field %s", "revenue")
	if err.Kind != KindValidationError {
		t.Fatalf("expected %s, got %s", KindValidationError, err.Kind)
	}
	if err.Message != "bad field revenue" {
		t.Fatalf("unexpected message: %s", err.Message)
	}
	if err.CorrelationID == "" {
		t.Fatal("expected a non-empty correlation id")
	}
}

func TestError_WrapsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := StoreTransient(cause, "upsert record")
	if !errors.Is(err, cause) {
		t.Fatal("expected errors.Is to find the wrapped cause")
	}
	if got := err.Error(); got == "" {
		t.Fatal("expected a non-empty error string")
	}
}

func TestKindOf_UnwrapsAppErr(t *testing.T) {
	err := DataNotFound("account %q", "acct-1")
	if KindOf(err) != KindDataNotFound {
		t.Fatalf("expected %s, got %s", KindDataNotFound, KindOf(err))
	}
}

func TestKindOf_DefaultsToInternalForForeignErrors(t *testing.T) {
	if KindOf(errors.New("boom")) != KindInternal {
		t.Fatal("expected foreign errors to default to InternalError")
	}
}

func TestHTTPStatus_Mapping(t *testing.T) {
	cases := map[Kind]int{
		KindValidationError:  400,
		KindDataNotFound:     404,
		KindConflictError:    409,
		KindParseError:       422,
		KindLLMUnavailable:   503,
		KindStoreTransient:   503,
		KindInternal:         500,
		KindConfigurationErr: 500,
	}
	for kind, want := range cases {
		if got := HTTPStatus(kind); got != want {
			t.Errorf("HTTPStatus(%s) = %d, want %d", kind, got, want)
		}
	}
}

func TestError_IsComparesKindNotMessage(t *testing.T) {
	a := ValidationError("field a missing")
	b := ValidationError("field b missing")
	if !errors.Is(a, b) {
		t.Fatal("expected two ValidationErrors to match via errors.Is regardless of message")
	}

	c := DataNotFound("not found")
	if errors.Is(a, c) {
		t.Fatal("expected errors of different kinds not to match")
	}
}
