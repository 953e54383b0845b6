package errors

import (
	"encoding/json"
	"net/http"
)

// ProblemDetails stores details about a certain problem according to RFC7807
// See https://tools.ietf.org/html/rfc7807
type ProblemDetails interface {
	ContentType() string
	Type() string
	Title() string
	Detail() string
	MarshalJSON() ([]byte, error)
	WriteResponse(w http.ResponseWriter)
}

type ProblemDetailsImpl struct {
	typ    string
	title  string
	detail string
	code   int
}

const (
	// ProblemReportContentType as required by https://tools.ietf.org/html/rfc7807
	ProblemReportContentType string = "application/problem+json"
)

// BadRequestData reports that the request includes input data which does not
// meet the requirements of the operation
type BadRequestData struct {
	ProblemDetailsImpl
}

func NewBadRequestData(detail string) *BadRequestData {
	return &BadRequestData{
		ProblemDetailsImpl: ProblemDetailsImpl{
			typ:    "urn:diwise:county-lookup:errors:BadRequestData",
			title:  "Bad Request Data",
			detail: detail,
			code:   http.StatusBadRequest,
		},
	}
}

// ReportNewBadRequestData creates a BadRequestData instance and sends it to the supplied http.ResponseWriter
func ReportNewBadRequestData(w http.ResponseWriter, detail string) {
	brd := NewBadRequestData(detail)
	brd.WriteResponse(w)
}

// InvalidRequest reports that the request associated to the operation is
// syntactically invalid or includes wrong content
type InvalidRequest struct {
	ProblemDetailsImpl
}

func NewInvalidRequest(detail string) *InvalidRequest {
	return &InvalidRequest{
		ProblemDetailsImpl: ProblemDetailsImpl{
			typ:    "urn:diwise:county-lookup:errors:InvalidRequest",
			title:  "Invalid Request",
			detail: detail,
			code:   http.StatusBadRequest,
		},
	}
}

// ReportNewInvalidRequest creates an InvalidRequest instance and sends it to the supplied http.ResponseWriter
func ReportNewInvalidRequest(w http.ResponseWriter, detail string) {
	ir := NewInvalidRequest(detail)
	ir.WriteResponse(w)
}

// InternalError reports that there has been an error during the operation execution
type InternalError struct {
	ProblemDetailsImpl
}

func NewInternalError(detail string) *InternalError {
	return &InternalError{
		ProblemDetailsImpl: ProblemDetailsImpl{
			typ:    "urn:diwise:county-lookup:errors:InternalError",
			title:  "Internal Error",
			detail: detail,
			code:   http.StatusInternalServerError,
		},
	}
}

// ReportNewInternalError creates an InternalError instance and sends it to the supplied http.ResponseWriter
func ReportNewInternalError(w http.ResponseWriter, detail string) {
	ie := NewInternalError(detail)
	ie.WriteResponse(w)
}

// AccessDenied reports that the caller is not allowed to perform the operation
type AccessDenied struct {
	ProblemDetailsImpl
}

func NewAccessDenied(detail string) *AccessDenied {
	return &AccessDenied{
		ProblemDetailsImpl: ProblemDetailsImpl{
			typ:    "urn:diwise:county-lookup:errors:AccessDenied",
			title:  "Access Denied",
			detail: detail,
			code:   http.StatusUnauthorized,
		},
	}
}

// ReportNewAccessDenied creates an AccessDenied instance and sends it to the supplied http.ResponseWriter
func ReportNewAccessDenied(w http.ResponseWriter, detail string) {
	ad := NewAccessDenied(detail)
	ad.WriteResponse(w)
}

// ContentType returns the ContentType to be used when returning this problem
func (p *ProblemDetailsImpl) ContentType() string {
	return ProblemReportContentType
}

// MarshalJSON is called when a ProblemDetailsImpl instance should be serialized to JSON
func (p *ProblemDetailsImpl) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type   string `json:"type"`
		Title  string `json:"title"`
		Detail string `json:"detail"`
	}{
		Type:   p.typ,
		Title:  p.title,
		Detail: p.detail,
	})
}

// ResponseCode returns the HTTP response code to be used when returning a specific problem
func (p *ProblemDetailsImpl) ResponseCode() int {
	if p.code != 0 {
		return p.code
	}

	return http.StatusBadRequest
}

func (p *ProblemDetailsImpl) Type() string {
	return p.typ
}

func (p *ProblemDetailsImpl) Title() string {
	return p.title
}

func (p *ProblemDetailsImpl) Detail() string {
	return p.detail
}

// WriteResponse writes the problem to the supplied http.ResponseWriter
func (p *ProblemDetailsImpl) WriteResponse(w http.ResponseWriter) {
	w.Header().Add("Content-Type", p.ContentType())
	w.WriteHeader(p.ResponseCode())

	body, err := json.Marshal(p)
	if err == nil {
		w.Write(body)
	}
}
