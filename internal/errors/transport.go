package errors

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"net"
	"strconv"
	"syscall"
)

// TransportStatus is the sub-status carried by a transport-layer failure
type TransportStatus int

const (
	StatusSuccess TransportStatus = iota
	StatusNameResolutionFailure
	StatusConnectFailure
	StatusReceiveFailure
	StatusSendFailure
	StatusPipelineFailure
	StatusRequestCanceled
	StatusProtocolError
	StatusConnectionClosed
	StatusTrustFailure
	StatusSecureChannelFailure
	StatusServerProtocolViolation
	StatusKeepAliveFailure
	StatusPending
	StatusTimeout
	StatusProxyNameResolutionFailure
	StatusUnknownError
	StatusMessageLengthLimitExceeded
	StatusCacheEntryNotFound
	StatusRequestProhibitedByCachePolicy
	StatusRequestProhibitedByProxy
)

var statusNames = map[TransportStatus]string{
	StatusSuccess:                        "Success",
	StatusNameResolutionFailure:          "NameResolutionFailure",
	StatusConnectFailure:                 "ConnectFailure",
	StatusReceiveFailure:                 "ReceiveFailure",
	StatusSendFailure:                    "SendFailure",
	StatusPipelineFailure:                "PipelineFailure",
	StatusRequestCanceled:                "RequestCanceled",
	StatusProtocolError:                  "ProtocolError",
	StatusConnectionClosed:               "ConnectionClosed",
	StatusTrustFailure:                   "TrustFailure",
	StatusSecureChannelFailure:           "SecureChannelFailure",
	StatusServerProtocolViolation:        "ServerProtocolViolation",
	StatusKeepAliveFailure:               "KeepAliveFailure",
	StatusPending:                        "Pending",
	StatusTimeout:                        "Timeout",
	StatusProxyNameResolutionFailure:     "ProxyNameResolutionFailure",
	StatusUnknownError:                   "UnknownError",
	StatusMessageLengthLimitExceeded:     "MessageLengthLimitExceeded",
	StatusCacheEntryNotFound:             "CacheEntryNotFound",
	StatusRequestProhibitedByCachePolicy: "RequestProhibitedByCachePolicy",
	StatusRequestProhibitedByProxy:       "RequestProhibitedByProxy",
}

func (s TransportStatus) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}

	return "TransportStatus(" + strconv.Itoa(int(s)) + ")"
}

// TransportStatusOf derives a transport status from err's chain.
// The second result is false when nothing in the chain looks like a transport failure.
func TransportStatusOf(err error) (TransportStatus, bool) {
	if err == nil {
		return StatusSuccess, false
	}

	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		if transportErr == nil {
			return StatusSuccess, true
		}
		return transportErr.Status, true
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "proxyconnect" {
		var dnsErr *net.DNSError
		if errors.As(opErr.Err, &dnsErr) {
			return StatusProxyNameResolutionFailure, true
		}
		return StatusRequestProhibitedByProxy, true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return StatusNameResolutionFailure, true
	}

	if status, ok := tlsStatus(err); ok {
		return status, true
	}

	switch {
	case errors.Is(err, net.ErrClosed):
		return StatusConnectionClosed, true
	case errors.Is(err, syscall.ECONNREFUSED):
		return StatusConnectFailure, true
	case errors.Is(err, syscall.ECONNRESET):
		return StatusReceiveFailure, true
	case errors.Is(err, syscall.EPIPE):
		return StatusSendFailure, true
	}

	if opErr != nil {
		switch opErr.Op {
		case "dial":
			return StatusConnectFailure, true
		case "read":
			return StatusReceiveFailure, true
		case "write":
			return StatusSendFailure, true
		case "close":
			return StatusConnectionClosed, true
		default:
			return StatusConnectFailure, true
		}
	}

	return StatusSuccess, false
}

func tlsStatus(err error) (TransportStatus, bool) {
	var (
		unknownAuthority x509.UnknownAuthorityError
		hostnameErr      x509.HostnameError
		invalidCert      x509.CertificateInvalidError
		verifyErr        *tls.CertificateVerificationError
		recordErr        tls.RecordHeaderError
		alertErr         tls.AlertError
	)

	switch {
	case errors.As(err, &verifyErr),
		errors.As(err, &unknownAuthority),
		errors.As(err, &hostnameErr),
		errors.As(err, &invalidCert):
		return StatusTrustFailure, true
	case errors.As(err, &recordErr), errors.As(err, &alertErr):
		return StatusSecureChannelFailure, true
	}

	return StatusSuccess, false
}
