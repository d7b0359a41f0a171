package subscription

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/idna"
)

// MXLookup reports whether a domain can receive mail.
type MXLookup interface {
	HasMailExchanger(ctx context.Context, domain string) bool
}

// MXResolver is the part of net.Resolver used for MX checks.
type MXResolver interface {
	LookupMX(ctx context.Context, name string) ([]*net.MX, error)
}

// DNSLookup checks MX records through the system resolver.
// A resolver failure counts as "no mail exchanger" and is logged so it can be told apart.
type DNSLookup struct {
	resolver MXResolver
	timeout  time.Duration
	logger   *zap.Logger
}

func NewDNSLookup(timeout time.Duration, logger *zap.Logger) *DNSLookup {
	return NewDNSLookupWith(&net.Resolver{}, timeout, logger)
}

func NewDNSLookupWith(resolver MXResolver, timeout time.Duration, logger *zap.Logger) *DNSLookup {
	return &DNSLookup{resolver: resolver, timeout: timeout, logger: logger.Named("MXLookup")}
}

func (d *DNSLookup) HasMailExchanger(ctx context.Context, domain string) bool {
	ascii, err := idna.Lookup.ToASCII(strings.TrimSuffix(domain, "."))
	if err != nil {
		d.logger.Debug("domain is not a valid hostname", zap.String("domain", domain), zap.Error(err))
		return false
	}

	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	records, err := d.resolver.LookupMX(ctx, ascii)
	if err != nil {
		var dnsErr *net.DNSError
		if errors.As(err, &dnsErr) && dnsErr.IsNotFound {
			return false
		}
		d.logger.Warn("mx lookup failed, treating address as invalid", zap.String("domain", ascii), zap.Error(err))
		return false
	}
	for _, mx := range records {
		// "." is a null MX: the domain explicitly accepts no mail.
		if mx.Host != "." && mx.Host != "" {
			return true
		}
	}
	return false
}
