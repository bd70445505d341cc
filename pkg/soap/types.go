package soap

// Namespace URIs and wire constants.
const (
	// EnvelopeNamespace is the SOAP 1.1 envelope namespace, bound to the soap prefix.
	EnvelopeNamespace = "http://schemas.xmlsoap.org/soap/envelope/"
	// ServiceNamespace is the application namespace, bound to the user prefix.
	ServiceNamespace = "http://example.com/userservice"

	// ContentType is the Content-Type of every /soap response.
	ContentType = "text/xml; charset=utf-8"
)

// Fault codes
const (
	FaultClient = "soap:Client"
	FaultServer = "soap:Server"
)

// Operation names
const (
	OpRegisterUser = "RegisterUser"
	OpGetUsers     = "GetUsers"
	OpGetUser      = "GetUser"
)

// Operation is a parsed, classified SOAP request. It is implemented only by
// RegisterUser, GetUsers and GetUser.
type Operation interface {
	// Name returns the canonical operation name.
	Name() string
	operation()
}

// RegisterUser asks for a new account. Values are whitespace-trimmed and
// otherwise unvalidated.
type RegisterUser struct {
	Username string
	Email    string
}

// GetUsers asks for the full user list.
type GetUsers struct{}

// GetUser asks for a single user by id.
type GetUser struct {
	ID int
}

func (RegisterUser) Name() string { return OpRegisterUser }
func (GetUsers) Name() string     { return OpGetUsers }
func (GetUser) Name() string      { return OpGetUser }

func (RegisterUser) operation() {}
func (GetUsers) operation()     {}
func (GetUser) operation()      {}

// Fault is a SOAP fault as carried in a response body.
type Fault struct {
	Code    string `json:"code" yaml:"code"`       // soap:Client, soap:Server
	Message string `json:"message" yaml:"message"` // faultstring
}

func (f *Fault) Error() string {
	if f == nil {
		return ""
	}
	return f.Code + ": " + f.Message
}
