package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getmockd/soapdemo/pkg/config"
	"github.com/getmockd/soapdemo/pkg/metrics"
	"github.com/getmockd/soapdemo/pkg/service"
	"github.com/getmockd/soapdemo/pkg/soap"
	"github.com/getmockd/soapdemo/pkg/users"
)

func envelope(body string) string {
	return `<?xml version="1.0"?><soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/" xmlns:user="http://example.com/userservice"><soap:Body>` +
		body + `</soap:Body></soap:Envelope>`
}

func registerBody(username, email string) string {
	return envelope("<user:RegisterUser><user:username>" + username + "</user:username><user:email>" + email + "</user:email></user:RegisterUser>")
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	return New(config.Default(), users.NewStore(), nil, nil)
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	req.Host = "svc.test"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func postSOAP(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	return do(t, h, http.MethodPost, "/soap", body)
}

// parseBody checks the response is one well-formed envelope and returns the
// element inside soap:Body.
func parseBody(t *testing.T, rec *httptest.ResponseRecorder) *etree.Element {
	t.Helper()
	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromBytes(rec.Body.Bytes()), rec.Body.String())

	root := doc.Root()
	require.NotNil(t, root)
	assert.Equal(t, "Envelope", root.Tag)
	assert.Equal(t, soap.EnvelopeNamespace, root.SelectAttrValue("xmlns:soap", ""))
	assert.Equal(t, soap.ServiceNamespace, root.SelectAttrValue("xmlns:user", ""))

	body := root.FindElement("Body")
	require.NotNil(t, body)
	children := body.ChildElements()
	require.Len(t, children, 1)
	return children[0]
}

func faultOf(t *testing.T, rec *httptest.ResponseRecorder) (code, message string) {
	t.Helper()
	f := parseBody(t, rec)
	require.Equal(t, "Fault", f.Tag, rec.Body.String())
	return f.FindElement("faultcode").Text(), f.FindElement("faultstring").Text()
}

func assertCORS(t *testing.T, rec *httptest.ResponseRecorder) {
	t.Helper()
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "GET, POST, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "Content-Type, SOAPAction", rec.Header().Get("Access-Control-Allow-Headers"))
}

func TestSOAP_Scenario(t *testing.T) {
	s := newTestServer(t)
	h := s.Handler()

	rec := postSOAP(t, h, registerBody("alice", "alice@example.com"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, soap.ContentType, rec.Header().Get("Content-Type"))
	assertCORS(t, rec)
	resp := parseBody(t, rec)
	assert.Equal(t, "RegisterUserResponse", resp.Tag)
	assert.Equal(t, "2", resp.FindElement("result/user/id").Text())

	rec = postSOAP(t, h, registerBody("alice", "alice2@example.com"))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assertCORS(t, rec)
	code, msg := faultOf(t, rec)
	assert.Equal(t, soap.FaultClient, code)
	assert.Equal(t, "User 'alice' already exists", msg)
	assert.Equal(t, 2, s.Store().Count())

	rec = postSOAP(t, h, envelope("<user:GetUsers/>"))
	require.Equal(t, http.StatusOK, rec.Code)
	resp = parseBody(t, rec)
	assert.Equal(t, "2", resp.FindElement("result/totalCount").Text())
	assert.Len(t, resp.FindElements("result/users/user"), 2)

	rec = postSOAP(t, h, envelope("<user:GetUser><user:id>999</user:id></user:GetUser>"))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	code, msg = faultOf(t, rec)
	assert.Equal(t, soap.FaultClient, code)
	assert.Equal(t, "User with id 999 not found", msg)

	rec = postSOAP(t, h, envelope("<user:GetUser><user:id>2</user:id></user:GetUser>"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alice@example.com", parseBody(t, rec).FindElement("result/user/email").Text())
}

func TestSOAP_InterpreterFailures(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"no body element", "<foo/>", "Invalid SOAP request: Body not found"},
		{"empty request", "", "Invalid SOAP request: Body not found"},
		{"unknown operation", envelope("<user:DeleteUser/>"), "Unknown SOAP operation"},
		{"register missing email", envelope("<user:RegisterUser><user:username>a</user:username></user:RegisterUser>"), "RegisterUser requires username and email"},
		{"get missing id", envelope("<user:GetUser/>"), "GetUser requires id"},
		{"get non-numeric id", envelope("<user:GetUser><user:id>abc</user:id></user:GetUser>"), "GetUser requires id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)
			rec := postSOAP(t, s.Handler(), tt.body)

			require.Equal(t, http.StatusInternalServerError, rec.Code)
			assert.Equal(t, soap.ContentType, rec.Header().Get("Content-Type"))
			assertCORS(t, rec)
			code, msg := faultOf(t, rec)
			assert.Equal(t, soap.FaultServer, code)
			assert.Equal(t, tt.want, msg)
			assert.Equal(t, 1, s.Store().Count())
		})
	}
}

func TestSOAP_EscapesUserText(t *testing.T) {
	s := newTestServer(t)

	// The interpreter does not decode entities, so &amp; arrives as five
	// literal characters and must be escaped again on the way out.
	rec := postSOAP(t, s.Handler(), registerBody("o'brien&amp;co", "o@x.io"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "o&apos;brien&amp;amp;co")
	assert.Equal(t, "o'brien&amp;co", parseBody(t, rec).FindElement("result/user/username").Text())

	rec = postSOAP(t, s.Handler(), registerBody("o'brien&amp;co", "o@x.io"))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	_, msg := faultOf(t, rec)
	assert.Equal(t, "User 'o'brien&amp;co' already exists", msg)
}

func TestSOAP_StoresEntitiesVerbatim(t *testing.T) {
	s := newTestServer(t)

	rec := postSOAP(t, s.Handler(), registerBody("a&amp;b", "a&lt;b@x.io"))
	require.Equal(t, http.StatusOK, rec.Code)

	u, ok := s.Store().Get(2)
	require.True(t, ok)
	assert.Equal(t, "a&amp;b", u.Username)
	assert.Equal(t, "a&lt;b@x.io", u.Email)

	// A raw ampersand is taken as-is too.
	rec = postSOAP(t, s.Handler(), registerBody("a&b", "ab@x.io"))
	require.Equal(t, http.StatusOK, rec.Code)
	u, _ = s.Store().Get(3)
	assert.Equal(t, "a&b", u.Username)
}

func TestSOAP_GetUserIDOutOfRange(t *testing.T) {
	s := newTestServer(t)

	rec := postSOAP(t, s.Handler(), envelope("<user:GetUser><user:id>99999999999999999999</user:id></user:GetUser>"))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	code, msg := faultOf(t, rec)
	assert.Equal(t, soap.FaultClient, code)
	assert.Equal(t, "User with id "+strconv.Itoa(math.MaxInt)+" not found", msg)
}

func TestSOAP_BodyTooLarge(t *testing.T) {
	cfg := config.Default()
	cfg.Server.MaxBodyBytes = 64
	s := New(cfg, users.NewStore(), nil, nil)

	rec := postSOAP(t, s.Handler(), registerBody(strings.Repeat("a", 100), "a@x.io"))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	code, msg := faultOf(t, rec)
	assert.Equal(t, soap.FaultServer, code)
	assert.Equal(t, "request body exceeds 64 bytes", msg)
	assert.Equal(t, 1, s.Store().Count())
}

func TestSOAP_PanicBecomesServerFault(t *testing.T) {
	s := newTestServer(t)
	s.dispatch = func(soap.Operation) service.Result { panic("store exploded <boom>") }

	rec := postSOAP(t, s.Handler(), envelope("<user:GetUsers/>"))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, soap.ContentType, rec.Header().Get("Content-Type"))
	code, msg := faultOf(t, rec)
	assert.Equal(t, soap.FaultServer, code)
	assert.Equal(t, "store exploded <boom>", msg)
}

func TestWSDL(t *testing.T) {
	s := newTestServer(t)

	for _, target := range []string{"/wsdl", "/soap?wsdl", "/soap?WSDL", "/soap?wsdl=1"} {
		t.Run(target, func(t *testing.T) {
			rec := do(t, s.Handler(), http.MethodGet, target, "")
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "application/xml", rec.Header().Get("Content-Type"))
			assertCORS(t, rec)
			assert.Contains(t, rec.Body.String(), `targetNamespace="http://example.com/userservice"`)

			summary, err := soap.ValidateWSDL(rec.Body.Bytes())
			require.NoError(t, err)
			assert.Equal(t, "http://svc.test/soap", summary.Address)
		})
	}
}

func TestWSDL_BaseURL(t *testing.T) {
	t.Run("forwarded proto", func(t *testing.T) {
		s := newTestServer(t)
		req := httptest.NewRequest(http.MethodGet, "/wsdl", nil)
		req.Host = "users.example.com"
		req.Header.Set("X-Forwarded-Proto", "https, http")
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, req)

		assert.Contains(t, rec.Body.String(), `location="https://users.example.com/soap"`)
	})

	t.Run("unsupported forwarded proto", func(t *testing.T) {
		s := newTestServer(t)
		for _, proto := range []string{"foo", "javascript", ""} {
			req := httptest.NewRequest(http.MethodGet, "/wsdl", nil)
			req.Host = "users.example.com"
			req.Header.Set("X-Forwarded-Proto", proto)
			rec := httptest.NewRecorder()
			s.Handler().ServeHTTP(rec, req)

			assert.Contains(t, rec.Body.String(), `location="http://users.example.com/soap"`, proto)
		}
	})

	t.Run("public url", func(t *testing.T) {
		cfg := config.Default()
		cfg.Server.PublicURL = "https://api.example.com/"
		s := New(cfg, nil, nil, nil)

		rec := do(t, s.Handler(), http.MethodGet, "/wsdl", "")
		assert.Contains(t, rec.Body.String(), `location="https://api.example.com/soap"`)
	})
}

func TestDocs(t *testing.T) {
	s := newTestServer(t)

	for _, target := range []string{"/", "/docs"} {
		rec := do(t, s.Handler(), http.MethodGet, target, "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/html"))
		assertCORS(t, rec)

		body := rec.Body.String()
		assert.Contains(t, body, "<title>SOAP API Demo - User Service</title>")
		assert.Contains(t, body, `href="http://svc.test/wsdl"`)
		assert.Contains(t, body, "curl -X POST http://svc.test/soap")
		for _, op := range soap.Operations {
			assert.Contains(t, body, op)
		}
		assert.Contains(t, body, "&lt;user:username&gt;john_doe&lt;/user:username&gt;")
	}
}

func TestDocs_EscapesHost(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/docs", nil)
	req.Host = `evil"><script>alert(1)</script>`
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.NotContains(t, rec.Body.String(), "<script>alert(1)</script>")
}

func TestHead(t *testing.T) {
	s := newTestServer(t)

	for _, target := range []string{"/wsdl", "/soap?wsdl", "/", "/docs"} {
		rec := do(t, s.Handler(), http.MethodHead, target, "")
		assert.Equal(t, http.StatusOK, rec.Code, target)
		assertCORS(t, rec)
	}

	rec := do(t, s.Handler(), http.MethodHead, "/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPreflight(t *testing.T) {
	s := newTestServer(t)

	for _, target := range []string{"/soap", "/wsdl", "/anything/else"} {
		rec := do(t, s.Handler(), http.MethodOptions, target, "")
		assert.Equal(t, http.StatusOK, rec.Code, target)
		assert.Empty(t, rec.Body.String())
		assertCORS(t, rec)
	}
}

func TestNotFound(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		method string
		target string
	}{
		{http.MethodGet, "/missing"},
		{http.MethodGet, "/soap"},
		{http.MethodPost, "/wsdl"},
		{http.MethodPut, "/soap"},
		{http.MethodDelete, "/"},
		{http.MethodPost, "/soap/extra"},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.target, func(t *testing.T) {
			rec := do(t, s.Handler(), tt.method, tt.target, "")
			assert.Equal(t, http.StatusNotFound, rec.Code)
			assert.Equal(t, "Not Found", rec.Body.String())
			assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}

func TestRequestID(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s.Handler(), http.MethodGet, "/wsdl", "")
	assert.Len(t, rec.Header().Get(RequestIDHeader), 36)

	req := httptest.NewRequest(http.MethodGet, "/wsdl", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get(RequestIDHeader))
}

func TestAccessLog(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	s := New(config.Default(), users.NewStore(), logger, nil)

	postSOAP(t, s.Handler(), envelope("<user:GetUser><user:id>1</user:id></user:GetUser>"))

	var entry map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var e map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &e))
		if e["msg"] == "request" {
			entry = e
		}
	}
	require.NotNil(t, entry, buf.String())
	assert.Equal(t, "POST", entry["method"])
	assert.Equal(t, "/soap", entry["path"])
	assert.Equal(t, "GetUser", entry["operation"])
	assert.EqualValues(t, 200, entry["status"])
	assert.NotEmpty(t, entry["request_id"])
}

func TestMetrics(t *testing.T) {
	registry := metrics.NewRegistry()
	s := New(config.Default(), users.NewStore(), nil, registry)
	h := s.Handler()

	postSOAP(t, h, registerBody("bob", "b@x.io"))
	postSOAP(t, h, registerBody("bob", "b@x.io"))
	postSOAP(t, h, "<foo/>")
	do(t, h, http.MethodGet, "/nope", "")

	rec := do(t, s.AdminHandler(), http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	out := rec.Body.String()
	for _, want := range []string{
		`soapdemo_requests_total{operation="RegisterUser",status="200"} 1`,
		`soapdemo_requests_total{operation="RegisterUser",status="400"} 1`,
		`soapdemo_requests_total{operation="invalid",status="500"} 1`,
		`soapdemo_requests_total{operation="not_found",status="404"} 1`,
		"soapdemo_users 2\n",
		"go_goroutines ",
	} {
		assert.Contains(t, out, want)
	}
}

func TestAdmin(t *testing.T) {
	s := newTestServer(t)
	_, err := s.Store().Create("carol", "c@x.io")
	require.NoError(t, err)
	h := s.AdminHandler()

	rec := do(t, h, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var health HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, 2, health.Users)

	rec = do(t, h, http.MethodGet, "/users", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list UsersResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, 2, list.Total)
	assert.Equal(t, "carol", list.Users[1].Username)

	rec = do(t, h, http.MethodGet, "/users/2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var u users.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &u))
	assert.Equal(t, "carol", u.Username)

	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/users/42", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/users/abc", "").Code)

	s.draining.Store(true)
	assert.Equal(t, http.StatusServiceUnavailable, do(t, h, http.MethodGet, "/health", "").Code)
}

func TestStartStop(t *testing.T) {
	cfg := config.Default()
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 0
	cfg.Server.AdminPort = 0
	s := New(cfg, users.NewStore(), nil, nil)

	require.NoError(t, s.Start())
	assert.Error(t, s.Start())
	assert.Empty(t, s.AdminAddr())

	client := soap.NewClient("http://"+s.Addr(), nil)
	ctx := context.Background()
	u, err := client.RegisterUser(ctx, "dave", "d@x.io")
	require.NoError(t, err)
	assert.Equal(t, 2, u.ID)

	stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(stopCtx))

	_, err = client.GetUser(ctx, 2)
	assert.Error(t, err)
}

func TestStart_AdminListener(t *testing.T) {
	// Grab a free port for the admin listener, then release it.
	probe := httptest.NewServer(http.NotFoundHandler())
	addr := probe.Listener.Addr().String()
	probe.Close()
	_, portStr, _ := strings.Cut(addr, ":")

	cfg := config.Default()
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 0
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	cfg.Server.AdminPort = port
	s := New(cfg, nil, nil, nil)

	require.NoError(t, s.Start())
	defer func() { _ = s.Stop(context.Background()) }()

	resp, err := http.Get("http://" + s.AdminAddr() + "/health")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
