package server

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"strings"

	"github.com/getmockd/soapdemo/pkg/httputil"
	"github.com/getmockd/soapdemo/pkg/soap"
)

// DocsContentType is the Content-Type of the documentation page.
const DocsContentType = "text/html; charset=utf-8"

//go:embed templates/docs.html
var templateFS embed.FS

var docsTemplate = template.Must(template.ParseFS(templateFS, "templates/docs.html"))

type docsOperation struct {
	Index   int
	Name    string
	Summary string
	Request string
	Compact string
}

type docsData struct {
	Origin     string
	Namespace  string
	Operations []docsOperation
}

var docsExamples = []struct {
	op      soap.Operation
	summary string
}{
	{soap.RegisterUser{Username: "john_doe", Email: "john@example.com"}, "Register a new user"},
	{soap.GetUsers{}, "Get all registered users"},
	{soap.GetUser{ID: 1}, "Get a specific user by ID"},
}

func (s *Server) handleDocs(w http.ResponseWriter, r *http.Request) {
	setOperation(r, "docs")

	data := docsData{
		Origin:    s.baseURL(r),
		Namespace: soap.ServiceNamespace,
	}
	for i, ex := range docsExamples {
		req := soap.BuildRequest(ex.op)
		data.Operations = append(data.Operations, docsOperation{
			Index:   i + 1,
			Name:    ex.op.Name(),
			Summary: ex.summary,
			Request: req,
			Compact: compact(req),
		})
	}

	var buf bytes.Buffer
	if err := docsTemplate.Execute(&buf, data); err != nil {
		s.log.Error("failed to render docs", "error", err)
		httputil.WriteText(w, http.StatusInternalServerError, "failed to render docs")
		return
	}
	httputil.WriteBody(w, http.StatusOK, DocsContentType, buf.String())
}

// compact joins an indented document onto one line for shell examples.
func compact(doc string) string {
	lines := strings.Split(doc, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
	}
	return strings.Join(lines, "")
}
