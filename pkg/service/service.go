// Package service implements the user operations behind the SOAP endpoint.
//
// Every handler returns a Result whose Body is a complete SOAP document:
// a response envelope on success, a soap:Client fault envelope when a business
// rule rejects the call. Interpreter failures never reach this package.
package service

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/getmockd/soapdemo/pkg/soap"
	"github.com/getmockd/soapdemo/pkg/users"
)

// Result is the outcome of one operation.
type Result struct {
	// Success is false for business rule violations, which map to HTTP 400.
	Success bool
	// Body is the full SOAP envelope to send back.
	Body string
	// Fault is the fault carried in Body, if any.
	Fault *soap.Fault
}

// Service dispatches operations against a user store.
type Service struct {
	store *users.Store
}

// New creates a Service backed by store.
func New(store *users.Store) *Service {
	return &Service{store: store}
}

// Store returns the backing store.
func (s *Service) Store() *users.Store {
	return s.store
}

// Dispatch runs the handler for op.
func (s *Service) Dispatch(op soap.Operation) Result {
	switch op := op.(type) {
	case soap.RegisterUser:
		return s.RegisterUser(op.Username, op.Email)
	case soap.GetUsers:
		return s.GetUsers()
	case soap.GetUser:
		return s.GetUser(op.ID)
	default:
		return fault(soap.FaultClient, "Unknown operation")
	}
}

// RegisterUser creates a user unless the username is taken. Either a record is
// fully committed or the store is left unchanged.
func (s *Service) RegisterUser(username, email string) Result {
	u, err := s.store.Create(username, email)
	if errors.Is(err, users.ErrUsernameTaken) {
		return fault(soap.FaultClient, fmt.Sprintf("User '%s' already exists", username))
	}
	if err != nil {
		return fault(soap.FaultServer, err.Error())
	}

	return success(soap.Wrap("user:RegisterUserResponse",
		soap.Wrap("user:result",
			soap.Element("user:success", strconv.FormatBool(true)),
			soap.Element("user:message", "User registered successfully"),
			userElement(u),
		),
	))
}

// GetUsers lists every user in store order. It always succeeds.
func (s *Service) GetUsers() Result {
	list := s.store.List()

	items := make([]string, 0, len(list))
	for _, u := range list {
		items = append(items, userElement(u))
	}

	return success(soap.Wrap("user:GetUsersResponse",
		soap.Wrap("user:result",
			soap.IntElement("user:totalCount", len(list)),
			soap.Wrap("user:users", items...),
		),
	))
}

// GetUser returns the user with the given id, or a soap:Client fault.
func (s *Service) GetUser(id int) Result {
	u, ok := s.store.Get(id)
	if !ok {
		return fault(soap.FaultClient, fmt.Sprintf("User with id %d not found", id))
	}

	return success(soap.Wrap("user:GetUserResponse",
		soap.Wrap("user:result", userElement(u)),
	))
}

func userElement(u users.User) string {
	return soap.Wrap("user:user",
		soap.IntElement("user:id", u.ID),
		soap.Element("user:username", u.Username),
		soap.Element("user:email", u.Email),
		soap.Element("user:createdAt", u.CreatedAtString()),
	)
}

func success(fragment string) Result {
	return Result{Success: true, Body: soap.WrapEnvelope(fragment)}
}

func fault(code, message string) Result {
	f := &soap.Fault{Code: code, Message: message}
	return Result{Success: false, Body: f.Envelope(), Fault: f}
}
