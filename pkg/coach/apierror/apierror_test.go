package apierror

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/vango-go/asana-coach/pkg/coach/catalog"
)

func TestFromError(t *testing.T) {
	_, poseErr := catalog.ResolveSequence("single", []int{42})
	_, modeErr := catalog.ResolveSequence("jog", nil)

	cases := []struct {
		name   string
		err    error
		status int
		typ    ErrorType
		param  string
	}{
		{"deadline", fmt.Errorf("wrap: %w", context.DeadlineExceeded), http.StatusGatewayTimeout, ErrAPI, ""},
		{"canceled", context.Canceled, http.StatusRequestTimeout, ErrAPI, ""},
		{"canonical", &Error{Type: ErrNotFound, Message: "nope"}, http.StatusNotFound, ErrNotFound, ""},
		{"unknown pose", poseErr, http.StatusBadRequest, ErrInvalidRequest, "asana_ids"},
		{"invalid mode", modeErr, http.StatusBadRequest, ErrInvalidRequest, "mode"},
		{"other", fmt.Errorf("disk on fire"), http.StatusInternalServerError, ErrAPI, ""},
	}
	for _, tc := range cases {
		got, status := FromError(tc.err, "req_1")
		if status != tc.status || got.Type != tc.typ || got.Param != tc.param || got.RequestID != "req_1" {
			t.Fatalf("%s: got=%+v status=%d", tc.name, got, status)
		}
	}

	if got, status := FromError(nil, "req_1"); got != nil || status != http.StatusOK {
		t.Fatalf("nil error: got=%+v status=%d", got, status)
	}
}

func TestWrite_FillsRequestID(t *testing.T) {
	rr := httptest.NewRecorder()
	Write(rr, http.StatusNotFound, "req_9", &Error{Type: ErrNotFound, Message: "not found"})

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status=%d", rr.Code)
	}
	var env Envelope
	if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if env.Error == nil || env.Error.RequestID != "req_9" || env.Error.Type != ErrNotFound {
		t.Fatalf("env=%+v", env.Error)
	}
}
