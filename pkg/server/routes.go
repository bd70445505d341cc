package server

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/getmockd/soapdemo/pkg/httputil"
	"github.com/getmockd/soapdemo/pkg/soap"
)

// CORS header values sent on every recognised route.
const (
	corsAllowOrigin  = "*"
	corsAllowMethods = "GET, POST, OPTIONS"
	corsAllowHeaders = "Content-Type, SOAPAction"
)

// WSDLContentType is the Content-Type of the service description.
const WSDLContentType = "application/xml"

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(requestID)
	r.Use(s.instrument)
	r.Use(preflight)
	r.Use(middleware.GetHead)

	r.NotFound(notFound)
	r.MethodNotAllowed(notFound)

	// GET /soap is only the WSDL alias; without ?wsdl it is a plain 404.
	r.Get("/soap", func(w http.ResponseWriter, r *http.Request) {
		if !wantsWSDL(r) {
			notFound(w, r)
			return
		}
		setCORS(w.Header())
		s.handleWSDL(w, r)
	})

	r.Group(func(r chi.Router) {
		r.Use(cors)
		r.Post("/soap", s.handleSOAP)
		r.Get("/wsdl", s.handleWSDL)
		r.Get("/", s.handleDocs)
		r.Get("/docs", s.handleDocs)
	})

	return r
}

func setCORS(h http.Header) {
	h.Set("Access-Control-Allow-Origin", corsAllowOrigin)
	h.Set("Access-Control-Allow-Methods", corsAllowMethods)
	h.Set("Access-Control-Allow-Headers", corsAllowHeaders)
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setCORS(w.Header())
		next.ServeHTTP(w, r)
	})
}

// preflight answers OPTIONS on any path with an empty 200.
func preflight(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}
		setOperation(r, "preflight")
		setCORS(w.Header())
		w.WriteHeader(http.StatusOK)
	})
}

func notFound(w http.ResponseWriter, r *http.Request) {
	setOperation(r, "not_found")
	httputil.WriteText(w, http.StatusNotFound, "Not Found")
}

// wantsWSDL reports a wsdl query key, in any case, with or without a value.
func wantsWSDL(r *http.Request) bool {
	for key := range r.URL.Query() {
		if strings.EqualFold(key, "wsdl") {
			return true
		}
	}
	return false
}

func (s *Server) handleWSDL(w http.ResponseWriter, r *http.Request) {
	setOperation(r, "wsdl")
	httputil.WriteBody(w, http.StatusOK, WSDLContentType, soap.GenerateWSDL(s.baseURL(r)))
}

// baseURL is the configured public URL, or the scheme and host the request
// arrived on. X-Forwarded-Proto is honoured only for http and https.
func (s *Server) baseURL(r *http.Request) string {
	if u := s.cfg.Server.PublicURL; u != "" {
		return strings.TrimRight(u, "/")
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	proto, _, _ := strings.Cut(r.Header.Get("X-Forwarded-Proto"), ",")
	switch proto = strings.ToLower(strings.TrimSpace(proto)); proto {
	case "http", "https":
		scheme = proto
	}
	return scheme + "://" + r.Host
}
