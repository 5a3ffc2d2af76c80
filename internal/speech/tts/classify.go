package tts

import (
	"encoding/json"
	"net/http"
)

// NoStatus stands for "no response was received".
const NoStatus = 0

// ErrorKind is the closed set of voice service failure classes.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindAuthentication
	KindQuotaExceeded
	KindValidation
	KindRateLimited
	KindNetwork
	KindServerFault
)

const quotaExceededStatus = "quota_exceeded"

var kindNames = map[ErrorKind]string{
	KindUnknown:        "unknown",
	KindAuthentication: "authentication",
	KindQuotaExceeded:  "quota_exceeded",
	KindValidation:     "validation",
	KindRateLimited:    "rate_limited",
	KindNetwork:        "network",
	KindServerFault:    "server_fault",
}

func (k ErrorKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return kindNames[KindUnknown]
}

// Retryable reports whether the kind is transient.
func (k ErrorKind) Retryable() bool {
	switch k {
	case KindRateLimited, KindNetwork, KindServerFault:
		return true
	default:
		return false
	}
}

// Sentinel returns the package error matching the kind.
func (k ErrorKind) Sentinel() error {
	switch k {
	case KindAuthentication:
		return ErrAuthentication
	case KindQuotaExceeded:
		return ErrQuotaExceeded
	case KindValidation:
		return ErrValidation
	case KindRateLimited:
		return ErrRateLimited
	case KindNetwork:
		return ErrNetwork
	case KindServerFault:
		return ErrServerFault
	default:
		return ErrUnknownService
	}
}

// errorDetail is the optional structured part of an error body:
//
//	{"detail": {"status": "quota_exceeded", "message": "..."}}
//
// Some responses carry a plain string or a list as detail instead.
type errorDetail struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func parseDetail(body []byte) errorDetail {
	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}
	if len(body) == 0 || json.Unmarshal(body, &envelope) != nil || len(envelope.Detail) == 0 {
		return errorDetail{}
	}

	var d errorDetail
	if json.Unmarshal(envelope.Detail, &d) == nil {
		return d
	}
	var msg string
	if json.Unmarshal(envelope.Detail, &msg) == nil {
		return errorDetail{Message: msg}
	}
	return errorDetail{Message: string(envelope.Detail)}
}

// Classify maps a voice service response to an ErrorKind. statusCode is
// NoStatus when the request never got a response; body is the raw error body.
func Classify(statusCode int, body []byte) ErrorKind {
	return classify(statusCode, parseDetail(body))
}

func classify(statusCode int, d errorDetail) ErrorKind {
	switch {
	case statusCode == NoStatus:
		return KindNetwork
	case statusCode == http.StatusUnauthorized:
		if d.Status == quotaExceededStatus {
			return KindQuotaExceeded
		}
		return KindAuthentication
	case statusCode == http.StatusUnprocessableEntity:
		return KindValidation
	case statusCode == http.StatusTooManyRequests:
		return KindRateLimited
	case statusCode >= http.StatusInternalServerError && statusCode <= 599:
		return KindServerFault
	default:
		return KindUnknown
	}
}
