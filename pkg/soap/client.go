package soap

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/getmockd/soapdemo/pkg/users"
)

// maxResponseSize bounds how much of a response the client reads.
const maxResponseSize = 10 << 20 // 10MB

// ErrUnexpectedResponse is returned when a response is neither a fault nor the
// expected result element.
var ErrUnexpectedResponse = errors.New("unexpected SOAP response")

// BuildRequest renders the request envelope for op.
func BuildRequest(op Operation) string {
	switch op := op.(type) {
	case RegisterUser:
		return WrapEnvelope(Wrap("user:RegisterUser",
			Element("user:username", op.Username),
			Element("user:email", op.Email),
		))
	case GetUsers:
		return WrapEnvelope("<user:GetUsers/>")
	case GetUser:
		return WrapEnvelope(Wrap("user:GetUser", IntElement("user:id", op.ID)))
	default:
		return WrapEnvelope("")
	}
}

// Client calls a running user service.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the service rooted at baseURL
// (e.g. http://localhost:8787). A nil httpClient uses a 30s timeout client.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// Response is a raw SOAP response plus its decoded Body.
type Response struct {
	StatusCode int
	Body       []byte
	// Fault is set when the Body carries a soap:Fault.
	Fault *Fault

	body *etree.Element
}

// Call posts op to /soap and decodes the envelope. A fault is not an error at
// this level; it is reported through Response.Fault.
func (c *Client) Call(ctx context.Context, op Operation) (*Response, error) {
	payload := BuildRequest(op)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/soap", strings.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", ContentType)
	req.Header.Set("SOAPAction", `"`+ServiceNamespace+"/"+op.Name()+`"`)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	out := &Response{StatusCode: resp.StatusCode, Body: data}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return out, fmt.Errorf("%w: status %d: invalid XML: %v", ErrUnexpectedResponse, resp.StatusCode, err)
	}
	out.body = findBody(doc)
	if out.body == nil {
		return out, fmt.Errorf("%w: status %d: no Body element", ErrUnexpectedResponse, resp.StatusCode)
	}
	if f := findLocal(out.body, "Fault"); f != nil {
		out.Fault = &Fault{
			Code:    childText(f, "faultcode"),
			Message: childText(f, "faultstring"),
		}
	}
	return out, nil
}

// result returns the <result> element of the named response wrapper.
func (r *Response) result(wrapper string) (*etree.Element, error) {
	if r.Fault != nil {
		return nil, r.Fault
	}
	w := findLocal(r.body, wrapper)
	if w == nil {
		return nil, fmt.Errorf("%w: missing %s", ErrUnexpectedResponse, wrapper)
	}
	res := findLocal(w, "result")
	if res == nil {
		return nil, fmt.Errorf("%w: missing %s result", ErrUnexpectedResponse, wrapper)
	}
	return res, nil
}

// RegisterUser registers a user and returns the stored record. A fault from
// the service is returned as a *Fault error.
//
// The request escapes &, <, >, " and ' and the service does not decode
// entities, so such values are stored and returned entity-escaped: a&b comes
// back as a&amp;b.
func (c *Client) RegisterUser(ctx context.Context, username, email string) (users.User, error) {
	resp, err := c.Call(ctx, RegisterUser{Username: username, Email: email})
	if err != nil {
		return users.User{}, err
	}
	res, err := resp.result("RegisterUserResponse")
	if err != nil {
		return users.User{}, err
	}
	return decodeUser(findLocal(res, "user"))
}

// GetUsers returns every user and the reported total count.
func (c *Client) GetUsers(ctx context.Context) ([]users.User, int, error) {
	resp, err := c.Call(ctx, GetUsers{})
	if err != nil {
		return nil, 0, err
	}
	res, err := resp.result("GetUsersResponse")
	if err != nil {
		return nil, 0, err
	}

	total, err := strconv.Atoi(childText(res, "totalCount"))
	if err != nil {
		return nil, 0, fmt.Errorf("%w: bad totalCount: %v", ErrUnexpectedResponse, err)
	}

	var list []users.User
	if container := findLocal(res, "users"); container != nil {
		for _, e := range container.ChildElements() {
			if e.Tag != "user" {
				continue
			}
			u, err := decodeUser(e)
			if err != nil {
				return nil, 0, err
			}
			list = append(list, u)
		}
	}
	return list, total, nil
}

// GetUser fetches a single user by id.
func (c *Client) GetUser(ctx context.Context, id int) (users.User, error) {
	resp, err := c.Call(ctx, GetUser{ID: id})
	if err != nil {
		return users.User{}, err
	}
	res, err := resp.result("GetUserResponse")
	if err != nil {
		return users.User{}, err
	}
	return decodeUser(findLocal(res, "user"))
}

// FetchWSDL downloads the service description from /wsdl.
func (c *Client) FetchWSDL(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/wsdl", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, io.LimitReader(resp.Body, maxResponseSize)); err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return buf.Bytes(), nil
}

func decodeUser(e *etree.Element) (users.User, error) {
	if e == nil {
		return users.User{}, fmt.Errorf("%w: missing user element", ErrUnexpectedResponse)
	}
	id, err := strconv.Atoi(childText(e, "id"))
	if err != nil {
		return users.User{}, fmt.Errorf("%w: bad user id: %v", ErrUnexpectedResponse, err)
	}
	createdAt, err := time.Parse(time.RFC3339, childText(e, "createdAt"))
	if err != nil {
		return users.User{}, fmt.Errorf("%w: bad createdAt: %v", ErrUnexpectedResponse, err)
	}
	return users.User{
		ID:        id,
		Username:  childText(e, "username"),
		Email:     childText(e, "email"),
		CreatedAt: createdAt,
	}, nil
}
