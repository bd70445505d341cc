package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/getmockd/soapdemo/pkg/httputil"
	"github.com/getmockd/soapdemo/pkg/soap"
)

// handleSOAP runs POST /soap. Business faults from the service are 400 with a
// soap:Client fault. Interpreter failures, body read errors and panics are 500
// with a soap:Server fault carrying the error text.
func (s *Server) handleSOAP(w http.ResponseWriter, r *http.Request) {
	defer func() {
		if rec := recover(); rec != nil {
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			s.log.Error("panic handling SOAP request",
				"request_id", RequestIDFromContext(r.Context()),
				"panic", rec,
			)
			writeSOAP(w, http.StatusInternalServerError, soap.WrapFault(soap.FaultServer, panicMessage(rec)))
		}
	}()

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.cfg.Server.MaxBodyBytes))
	if err != nil {
		setOperation(r, "invalid")
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			err = fmt.Errorf("request body exceeds %d bytes", tooLarge.Limit)
		}
		writeSOAP(w, http.StatusInternalServerError, soap.WrapFault(soap.FaultServer, err.Error()))
		return
	}

	op, err := soap.Parse(string(body))
	if err != nil {
		setOperation(r, "invalid")
		s.log.Debug("rejected SOAP request", "error", err)
		writeSOAP(w, http.StatusInternalServerError, soap.WrapFault(soap.FaultServer, err.Error()))
		return
	}
	setOperation(r, op.Name())

	res := s.dispatch(op)
	status := http.StatusOK
	if !res.Success {
		status = http.StatusBadRequest
	}
	writeSOAP(w, status, res.Body)
}

func writeSOAP(w http.ResponseWriter, status int, envelope string) {
	httputil.WriteBody(w, status, soap.ContentType, envelope)
}

func panicMessage(rec any) string {
	if err, ok := rec.(error); ok {
		return err.Error()
	}
	return fmt.Sprint(rec)
}
