package metricsserver

import (
	"net/http"
	"strconv"
)

const (
	// ContentType is the Prometheus text exposition format, version 0.0.4.
	ContentType = "text/plain; version=0.0.4; charset=utf-8"

	// FallbackBody is served when the telemetry snapshot cannot be read.
	FallbackBody = "# error reading telemetry\n"
)

// BuildResponse frames body as a complete HTTP/1.1 response with exactly
// three headers: Content-Type, Content-Length and Connection: close.
// Content-Length is the byte length of body.
func BuildResponse(status int, body string) []byte {
	reason := http.StatusText(status)
	if reason == "" {
		reason = "status code " + strconv.Itoa(status)
	}

	b := make([]byte, 0, len(body)+128)
	b = append(b, "HTTP/1.1 "...)
	b = strconv.AppendInt(b, int64(status), 10)
	b = append(b, ' ')
	b = append(b, reason...)
	b = append(b, "\r\nContent-Type: "...)
	b = append(b, ContentType...)
	b = append(b, "\r\nContent-Length: "...)
	b = strconv.AppendInt(b, int64(len(body)), 10)
	b = append(b, "\r\nConnection: close\r\n\r\n"...)
	b = append(b, body...)
	return b
}
