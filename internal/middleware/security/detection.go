package security

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
)

// DetectionMetrics tracks security detection events
type DetectionMetrics struct {
	SuspiciousRequests int64 `json:"suspiciousRequests"`
}

// Detector flags probing requests and resolves client addresses.
type Detector struct {
	suspicious atomic.Int64

	mu             sync.RWMutex
	trustedProxies []*net.IPNet
}

var (
	suspiciousPatterns = []string{
		"../", "..\\", ".env", ".git", ".ssh", "wp-admin", "phpmyadmin",
		"<script", "javascript:", "union select", "etc/passwd", "cmd.exe",
	}
	unusualMethods = map[string]bool{"TRACE": true, "TRACK": true, "DEBUG": true, "CONNECT": true}
)

// NewDetector trusts loopback and private networks as proxies.
func NewDetector() *Detector {
	d := &Detector{}
	for _, cidr := range []string{"127.0.0.0/8", "::1/128", "10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16"} {
		if err := d.AddTrustedProxy(cidr); err != nil {
			panic(err)
		}
	}
	return d
}

// DetectSuspiciousRequest reports whether r looks like a scan or an injection
// attempt.
func (d *Detector) DetectSuspiciousRequest(r *http.Request) bool {
	suspicious := unusualMethods[r.Method] || len(r.URL.String()) > 2048
	if !suspicious {
		target := strings.ToLower(r.URL.Path + "?" + r.URL.RawQuery)
		for _, pattern := range suspiciousPatterns {
			if strings.Contains(target, pattern) {
				suspicious = true
				break
			}
		}
	}
	if suspicious {
		d.suspicious.Add(1)
	}
	return suspicious
}

// Middleware rejects suspicious requests with 400.
func (d *Detector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if d.DetectSuspiciousRequest(r) {
			http.Error(w, "Bad request", http.StatusBadRequest)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ExtractClientIP returns the connecting address, or the first forwarded
// address when the connection comes from a trusted proxy.
func (d *Detector) ExtractClientIP(r *http.Request) string {
	directIP, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		directIP = r.RemoteAddr
	}

	parsed := net.ParseIP(directIP)
	if parsed == nil || !d.isTrustedProxy(parsed) {
		return directIP
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		first = strings.TrimSpace(first)
		if net.ParseIP(first) != nil {
			return first
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); net.ParseIP(xri) != nil {
		return xri
	}
	return directIP
}

func (d *Detector) isTrustedProxy(ip net.IP) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, network := range d.trustedProxies {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

func (d *Detector) GetMetrics() DetectionMetrics {
	return DetectionMetrics{SuspiciousRequests: d.suspicious.Load()}
}

// AddTrustedProxy adds a trusted proxy network
func (d *Detector) AddTrustedProxy(cidr string) error {
	_, network, err := net.ParseCIDR(cidr)
	if err != nil {
		return fmt.Errorf("invalid CIDR %s: %w", cidr, err)
	}
	d.mu.Lock()
	d.trustedProxies = append(d.trustedProxies, network)
	d.mu.Unlock()
	return nil
}
