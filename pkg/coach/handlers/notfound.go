package handlers

import (
	"net/http"

	"github.com/vango-go/asana-coach/pkg/coach/apierror"
	"github.com/vango-go/asana-coach/pkg/coach/mw"
)

type NotFoundHandler struct{}

func (h NotFoundHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	reqID, _ := mw.RequestIDFrom(r.Context())
	apierror.Write(w, http.StatusNotFound, reqID, &apierror.Error{Type: apierror.ErrNotFound, Message: "not found"})
}
