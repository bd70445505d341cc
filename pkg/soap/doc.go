// Package soap implements the wire side of the user service: it interprets
// inbound SOAP 1.1 envelopes, renders response and fault envelopes, and
// publishes the WSDL description.
//
// # Request interpretation
//
// Parse does not run a real XML parser. It locates the SOAP Body with a
// pattern, classifies the operation by substring, and pulls the fields it needs
// with per-field patterns:
//
//	op, err := soap.Parse(body)
//	switch op := op.(type) {
//	case soap.RegisterUser:
//	    // op.Username, op.Email
//	case soap.GetUsers:
//	case soap.GetUser:
//	    // op.ID
//	}
//
// The following are known constraints of the interpreter, not bugs:
//   - field elements cannot contain nested markup (the first '<' ends the value)
//   - attributes are ignored, only namespace prefixes on tag names are tolerated
//   - entities inside field values are not decoded
//
// Only Parse knows about these patterns; swapping it for a real XML decoder
// does not touch the handlers.
//
// # Responses
//
// WrapEnvelope and WrapFault produce a complete document with the soap and user
// namespace bindings:
//
//	<?xml version="1.0" encoding="UTF-8"?>
//	<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/" xmlns:user="http://example.com/userservice">
//	  <soap:Header/>
//	  <soap:Body>
//	    ...
//	  </soap:Body>
//	</soap:Envelope>
//
// Element is the only way free text enters a fragment, so every interpolated
// value is escaped for the five reserved XML characters.
//
// # Fault codes
//
//   - soap:Client for business rule violations (duplicate username, unknown id)
//   - soap:Server for interpreter failures and unexpected errors
//
// # Client
//
// Client calls a running service and decodes its responses with etree. It backs
// the `soapdemo call` commands.
package soap
