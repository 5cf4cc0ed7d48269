package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
)

type ContextKey string

const (
	RequestIDPrefix         string     = "r"
	RequestIDContextKey     ContextKey = "request.id"
	RequestNumberContextKey ContextKey = "request.number"

	// maxBookBodySize bounds the size of a create or update request body.
	maxBookBodySize int64 = 1 << 20
)

var ErrInvalidBookID = errors.New("invalid book id")

// GetValueFromContext returns the value of a given key in the context
// if this key is not available, it returns an empty string.
func GetValueFromContext(ctx context.Context, contextKey ContextKey) string {
	if val, ok := ctx.Value(contextKey).(string); ok {
		return val
	}
	return ""
}

// GetRequestNumberFromContext returns the request number set in
// the context. if not previously set then it returns 0.
func GetRequestNumberFromContext(ctx context.Context) uint64 {
	if val, ok := ctx.Value(RequestNumberContextKey).(uint64); ok {
		return val
	}
	return 0
}

// DecodeBookRequestBody is a helper function to read the content of a book creation or update request.
// Unknown fields are ignored and the id, if any, is left for the caller to override.
func DecodeBookRequestBody(w http.ResponseWriter, r *http.Request, book *Book) error {
	if r.Body == nil || r.Body == http.NoBody {
		return errors.New("empty request body")
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBookBodySize)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(book); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("body must only contain a single json object")
	}
	if _, err := dec.Token(); err != io.EOF {
		return errors.New("body must only contain a single json object")
	}
	return nil
}

// ParseBookID converts the raw path parameter into a valid book id.
func ParseBookID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("%w: %s", ErrInvalidBookID, raw)
	}
	return id, nil
}

// ReadIntQuery reads an integer query parameter. It returns 0 when the
// key is absent or not a valid integer so the service applies defaults.
func ReadIntQuery(qs url.Values, key string) int {
	s := qs.Get(key)
	if s == "" {
		return 0
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return i
}

// PageOffset returns the number of records to skip before the given page.
// The boolean is false when the offset does not fit into an int64.
func PageOffset(page, limit int) (int64, bool) {
	if page < 1 || limit < 1 {
		return 0, false
	}
	p, l := int64(page-1), int64(limit)
	if p > 0 && p > math.MaxInt64/l {
		return 0, false
	}
	return p * l, true
}

// GetRequestSourceIP helps find the source IP of the caller.
func GetRequestSourceIP(r *http.Request) string {
	// Get IP from the X-REAL-IP header
	ip := r.Header.Get("X-REAL-IP")
	netIP := net.ParseIP(ip)
	if netIP != nil {
		return ip
	}

	// Get IP from X-FORWARDED-FOR header
	ips := r.Header.Get("X-FORWARDED-FOR")
	splitIps := strings.Split(ips, ",")
	for _, ip := range splitIps {
		ip = strings.TrimSpace(ip)
		netIP = net.ParseIP(ip)
		if netIP != nil {
			return ip
		}
	}

	// Get IP from RemoteAddr
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return ""
	}
	netIP = net.ParseIP(ip)
	if netIP != nil {
		return ip
	}
	return ""
}

// GetRequestRemoteIP returns the ip of the direct peer, ignoring any
// client supplied forwarding header.
func GetRequestRemoteIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// IsAppRunningInDocker checks the existence of the .dockerenv
// file at the root directory and returns a boolean result.
func IsAppRunningInDocker() bool {
	if _, err := os.Stat("/.dockerenv"); err == nil {
		return true
	}
	return false
}
