package soap_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getmockd/soapdemo/pkg/service"
	"github.com/getmockd/soapdemo/pkg/soap"
	"github.com/getmockd/soapdemo/pkg/users"
)

// newBackend serves /soap and /wsdl with the real interpreter and service.
func newBackend(t *testing.T) (*httptest.Server, func() []string) {
	t.Helper()
	svc := service.New(users.NewStore())
	var (
		mu      sync.Mutex
		actions []string
	)

	mux := http.NewServeMux()
	mux.HandleFunc("/soap", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		actions = append(actions, r.Header.Get("SOAPAction"))
		mu.Unlock()
		raw, _ := io.ReadAll(r.Body)
		w.Header().Set("Content-Type", soap.ContentType)

		op, err := soap.Parse(string(raw))
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = io.WriteString(w, soap.WrapFault(soap.FaultServer, err.Error()))
			return
		}
		res := svc.Dispatch(op)
		if !res.Success {
			w.WriteHeader(http.StatusBadRequest)
		}
		_, _ = io.WriteString(w, res.Body)
	})
	mux.HandleFunc("/wsdl", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, soap.GenerateWSDL("http://"+r.Host))
	})

	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts, func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), actions...)
	}
}

func TestClient_RegisterUser(t *testing.T) {
	ts, actions := newBackend(t)
	c := soap.NewClient(ts.URL+"/", nil)
	ctx := context.Background()

	u, err := c.RegisterUser(ctx, "alice", "a@x.io")
	require.NoError(t, err)
	assert.Equal(t, 2, u.ID)
	assert.Equal(t, "alice", u.Username)
	assert.Equal(t, "a@x.io", u.Email)
	assert.WithinDuration(t, time.Now(), u.CreatedAt, time.Minute)

	assert.Equal(t, []string{`"http://example.com/userservice/RegisterUser"`}, actions())
}

func TestClient_RegisterUser_Fault(t *testing.T) {
	ts, _ := newBackend(t)
	c := soap.NewClient(ts.URL, nil)

	_, err := c.RegisterUser(context.Background(), "admin", "x@x.io")
	require.Error(t, err)

	var f *soap.Fault
	require.True(t, errors.As(err, &f))
	assert.Equal(t, soap.FaultClient, f.Code)
	assert.Equal(t, "User 'admin' already exists", f.Message)
}

func TestClient_GetUsers(t *testing.T) {
	ts, _ := newBackend(t)
	c := soap.NewClient(ts.URL, nil)
	ctx := context.Background()

	_, err := c.RegisterUser(ctx, "a&b", "ab@x.io")
	require.NoError(t, err)

	list, total, err := c.GetUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, list, 2)
	assert.Equal(t, "admin", list[0].Username)
	// The request escapes &, the server stores what it received.
	assert.Equal(t, "a&amp;b", list[1].Username)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), list[0].CreatedAt)
}

func TestClient_GetUser(t *testing.T) {
	ts, _ := newBackend(t)
	c := soap.NewClient(ts.URL, nil)
	ctx := context.Background()

	u, err := c.GetUser(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "admin", u.Username)

	_, err = c.GetUser(ctx, 999)
	var f *soap.Fault
	require.ErrorAs(t, err, &f)
	assert.Equal(t, "User with id 999 not found", f.Message)
}

func TestClient_Call_RawResponse(t *testing.T) {
	ts, _ := newBackend(t)
	c := soap.NewClient(ts.URL, nil)

	resp, err := c.Call(context.Background(), soap.GetUser{ID: 42})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.NotNil(t, resp.Fault)
	assert.Equal(t, soap.FaultClient, resp.Fault.Code)
	assert.Contains(t, string(resp.Body), "<soap:Fault>")
}

func TestClient_UnexpectedResponse(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not xml", "not xml <<<"},
		{"no body", "<html><p>hi</p></html>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, tt.body)
			}))
			defer ts.Close()

			resp, err := soap.NewClient(ts.URL, nil).Call(context.Background(), soap.GetUsers{})
			assert.ErrorIs(t, err, soap.ErrUnexpectedResponse)
			require.NotNil(t, resp)
			assert.Equal(t, tt.body, string(resp.Body))
		})
	}
}

func TestClient_FetchWSDL(t *testing.T) {
	ts, _ := newBackend(t)
	c := soap.NewClient(ts.URL, nil)

	data, err := c.FetchWSDL(context.Background())
	require.NoError(t, err)

	summary, err := soap.ValidateWSDL(data)
	require.NoError(t, err)
	assert.Equal(t, ts.URL+"/soap", summary.Address)
}

func TestBuildRequest_RoundTrip(t *testing.T) {
	ops := []soap.Operation{
		soap.RegisterUser{Username: "o'neil <x>", Email: "o@x.io"},
		soap.GetUsers{},
		soap.GetUser{ID: 7},
	}
	for _, op := range ops {
		t.Run(op.Name(), func(t *testing.T) {
			got, err := soap.Parse(soap.BuildRequest(op))
			require.NoError(t, err)
			if r, ok := op.(soap.RegisterUser); ok {
				// The interpreter does not decode entities.
				assert.Equal(t, soap.RegisterUser{Username: "o&apos;neil &lt;x&gt;", Email: r.Email}, got)
				return
			}
			assert.Equal(t, op, got)
		})
	}
}
