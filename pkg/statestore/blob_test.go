package statestore

import (
	"testing"

	"github.com/aws/smithy-go"
)

func TestIsNotFoundRecognizesNoSuchKey(t *testing.T) {
	err := &smithy.GenericAPIError{Code: "NoSuchKey", Message: "not found"}
	if !isNotFound(err) {
		t.Errorf("expected NoSuchKey to be recognized as not-found")
	}
	if isNotFound(&smithy.GenericAPIError{Code: "AccessDenied"}) {
		t.Errorf("AccessDenied should not be treated as not-found")
	}
}

func TestIsPreconditionFailedRecognizesConflict(t *testing.T) {
	err := &smithy.GenericAPIError{Code: "PreconditionFailed"}
	if !isPreconditionFailed(err) {
		t.Errorf("expected PreconditionFailed to be recognized")
	}
	if isPreconditionFailed(&smithy.GenericAPIError{Code: "AccessDenied"}) {
		t.Errorf("AccessDenied should not be treated as precondition failure")
	}
}
