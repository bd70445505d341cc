package soap

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"text/template"

	"github.com/beevik/etree"
)

// wsdlTemplate mirrors the three operations by hand. A new operation has to be
// added here as well as to the interpreter and the handlers.
var wsdlTemplate = template.Must(template.New("wsdl").Funcs(template.FuncMap{
	"xml": EscapeXML,
}).Parse(`<?xml version="1.0" encoding="UTF-8"?>
<definitions name="UserService"
  targetNamespace="{{xml .Namespace}}"
  xmlns="http://schemas.xmlsoap.org/wsdl/"
  xmlns:soap="http://schemas.xmlsoap.org/wsdl/soap/"
  xmlns:tns="{{xml .Namespace}}"
  xmlns:xsd="http://www.w3.org/2001/XMLSchema">

  <types>
    <xsd:schema targetNamespace="{{xml .Namespace}}">
      <xsd:complexType name="User">
        <xsd:sequence>
          <xsd:element name="id" type="xsd:int"/>
          <xsd:element name="username" type="xsd:string"/>
          <xsd:element name="email" type="xsd:string"/>
          <xsd:element name="createdAt" type="xsd:dateTime"/>
        </xsd:sequence>
      </xsd:complexType>

      <xsd:element name="RegisterUserRequest">
        <xsd:complexType>
          <xsd:sequence>
            <xsd:element name="username" type="xsd:string"/>
            <xsd:element name="email" type="xsd:string"/>
          </xsd:sequence>
        </xsd:complexType>
      </xsd:element>

      <xsd:element name="RegisterUserResponse">
        <xsd:complexType>
          <xsd:sequence>
            <xsd:element name="success" type="xsd:boolean"/>
            <xsd:element name="message" type="xsd:string"/>
            <xsd:element name="user" type="tns:User" minOccurs="0"/>
          </xsd:sequence>
        </xsd:complexType>
      </xsd:element>

      <xsd:element name="GetUsersRequest">
        <xsd:complexType/>
      </xsd:element>

      <xsd:element name="GetUsersResponse">
        <xsd:complexType>
          <xsd:sequence>
            <xsd:element name="totalCount" type="xsd:int"/>
            <xsd:element name="users">
              <xsd:complexType>
                <xsd:sequence>
                  <xsd:element name="user" type="tns:User" maxOccurs="unbounded"/>
                </xsd:sequence>
              </xsd:complexType>
            </xsd:element>
          </xsd:sequence>
        </xsd:complexType>
      </xsd:element>

      <xsd:element name="GetUserRequest">
        <xsd:complexType>
          <xsd:sequence>
            <xsd:element name="id" type="xsd:int"/>
          </xsd:sequence>
        </xsd:complexType>
      </xsd:element>

      <xsd:element name="GetUserResponse">
        <xsd:complexType>
          <xsd:sequence>
            <xsd:element name="user" type="tns:User"/>
          </xsd:sequence>
        </xsd:complexType>
      </xsd:element>
    </xsd:schema>
  </types>
{{range .Operations}}
  <message name="{{.}}Input">
    <part name="parameters" element="tns:{{.}}Request"/>
  </message>
  <message name="{{.}}Output">
    <part name="parameters" element="tns:{{.}}Response"/>
  </message>
{{end}}
  <portType name="UserServicePortType">
{{- range .Operations}}
    <operation name="{{.}}">
      <input message="tns:{{.}}Input"/>
      <output message="tns:{{.}}Output"/>
    </operation>
{{- end}}
  </portType>

  <binding name="UserServiceBinding" type="tns:UserServicePortType">
    <soap:binding style="document" transport="http://schemas.xmlsoap.org/soap/http"/>
{{- range .Operations}}
    <operation name="{{.}}">
      <soap:operation soapAction="{{xml $.Namespace}}/{{.}}"/>
      <input><soap:body use="literal"/></input>
      <output><soap:body use="literal"/></output>
    </operation>
{{- end}}
  </binding>

  <service name="UserService">
    <documentation>SOAP API for User Management</documentation>
    <port name="UserServicePort" binding="tns:UserServiceBinding">
      <soap:address location="{{xml .BaseURL}}/soap"/>
    </port>
  </service>
</definitions>
`))

// Operations lists the operations published in the WSDL, in binding order.
var Operations = []string{OpRegisterUser, OpGetUsers, OpGetUser}

// GenerateWSDL renders the service description. baseURL is substituted into
// the service address; nothing else varies.
func GenerateWSDL(baseURL string) string {
	var b strings.Builder
	err := wsdlTemplate.Execute(&b, struct {
		Namespace  string
		BaseURL    string
		Operations []string
	}{
		Namespace:  ServiceNamespace,
		BaseURL:    strings.TrimRight(baseURL, "/"),
		Operations: Operations,
	})
	if err != nil {
		// The template and its data are fixed; a failure here is a programming error.
		panic(fmt.Sprintf("soap: rendering WSDL: %v", err))
	}
	return b.String()
}

// WSDLSummary describes the structure found by ValidateWSDL.
type WSDLSummary struct {
	TargetNamespace string   `json:"targetNamespace"`
	Services        []string `json:"services"`
	Operations      []string `json:"operations"`
	PortTypes       int      `json:"portTypes"`
	Bindings        int      `json:"bindings"`
	Messages        int      `json:"messages"`
	Address         string   `json:"address,omitempty"`
}

// ValidateWSDL checks that data is a WSDL 1.1 (or 2.0) document with at least
// one service and one portType, and summarizes what it declares.
func ValidateWSDL(data []byte) (*WSDLSummary, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.New("empty document")
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("invalid XML: %w", err)
	}

	root := doc.Root()
	if root == nil {
		return nil, errors.New("empty document")
	}
	if root.Tag != "definitions" && root.Tag != "description" {
		return nil, fmt.Errorf("root element must be 'definitions' (WSDL 1.1) or 'description' (WSDL 2.0), got '%s'", root.Tag)
	}

	wsdlNS := false
	for _, attr := range root.Attr {
		if (attr.Space == "xmlns" || attr.Key == "xmlns") && strings.Contains(attr.Value, "schemas.xmlsoap.org/wsdl") {
			wsdlNS = true
			break
		}
	}
	if !wsdlNS {
		return nil, errors.New("missing WSDL namespace declaration")
	}

	summary := &WSDLSummary{
		TargetNamespace: root.SelectAttrValue("targetNamespace", ""),
		PortTypes:       len(childElements(root, "portType")),
		Bindings:        len(childElements(root, "binding")),
		Messages:        len(childElements(root, "message")),
	}

	services := childElements(root, "service")
	if len(services) == 0 {
		return nil, errors.New("no service element found")
	}
	for _, svc := range services {
		summary.Services = append(summary.Services, svc.SelectAttrValue("name", "unnamed"))
	}
	if addr := findLocal(services[0], "address"); addr != nil {
		summary.Address = addr.SelectAttrValue("location", "")
	}

	portTypes := childElements(root, "portType")
	if len(portTypes) == 0 {
		return nil, errors.New("no portType element found")
	}
	for _, pt := range portTypes {
		for _, op := range childElements(pt, "operation") {
			summary.Operations = append(summary.Operations, op.SelectAttrValue("name", "unnamed"))
		}
	}

	return summary, nil
}
