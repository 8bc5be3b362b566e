// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package procnet

import (
	"encoding/hex"
	"net"
	"regexp"
	"strconv"
	"strings"

	"grimm.is/scanwall/internal/errors"
)

var (
	ErrInvalidAddress = errors.New(errors.KindValidation, "invalid address")
	ErrInvalidPort    = errors.New(errors.KindValidation, "invalid port")
	ErrInvalidNetAddr = errors.New(errors.KindValidation, "invalid net address")
)

var (
	addrPattern    = regexp.MustCompile(`^[0-9a-fA-F]{8}$`)
	portPattern    = regexp.MustCompile(`^[0-9a-fA-F]{4}$`)
	netAddrPattern = regexp.MustCompile(`^[0-9a-fA-F]{8}:[0-9a-fA-F]{4}$`)
)

// Endpoint is a decoded IPv4 socket.
type Endpoint struct {
	IP   string
	Port uint16
}

func (e Endpoint) String() string {
	return net.JoinHostPort(e.IP, strconv.Itoa(int(e.Port)))
}

// invalid wraps sentinel with the offending raw field.
func invalid(sentinel error, raw string) error {
	return errors.Attr(errors.Wrapf(sentinel, errors.KindValidation, "decode %q", raw), "raw", raw)
}

// DecodeAddress decodes an 8 digit little-endian hex IPv4 address as the
// kernel prints it. The unspecified and all-ones addresses are rejected.
func DecodeAddress(s string) (string, error) {
	if !addrPattern.MatchString(s) {
		return "", invalid(ErrInvalidAddress, s)
	}
	if s == "00000000" || strings.EqualFold(s, "FFFFFFFF") {
		return "", invalid(ErrInvalidAddress, s)
	}

	b, err := hex.DecodeString(s)
	if err != nil {
		return "", invalid(ErrInvalidAddress, s)
	}
	return net.IPv4(b[3], b[2], b[1], b[0]).String(), nil
}

// DecodePort decodes a 4 digit big-endian hex port in [1, 65535].
func DecodePort(s string) (uint16, error) {
	if !portPattern.MatchString(s) {
		return 0, invalid(ErrInvalidPort, s)
	}
	p, err := strconv.ParseUint(s, 16, 16)
	if err != nil || p == 0 {
		return 0, invalid(ErrInvalidPort, s)
	}
	return uint16(p), nil
}

// DecodeNetAddr decodes "hex8:hex4". Any failure is reported as ErrInvalidNetAddr.
func DecodeNetAddr(s string) (Endpoint, error) {
	if !netAddrPattern.MatchString(s) {
		return Endpoint{}, invalid(ErrInvalidNetAddr, s)
	}
	hexAddr, hexPort, _ := strings.Cut(s, ":")

	ip, err := DecodeAddress(hexAddr)
	if err != nil {
		return Endpoint{}, errors.Attr(invalid(ErrInvalidNetAddr, s), "cause", err.Error())
	}
	port, err := DecodePort(hexPort)
	if err != nil {
		return Endpoint{}, errors.Attr(invalid(ErrInvalidNetAddr, s), "cause", err.Error())
	}
	return Endpoint{IP: ip, Port: port}, nil
}

// IsLoopback reports whether raw decodes to an address in 127.0.0.0/8.
// Invalid input returns its decode error.
func IsLoopback(raw string) (bool, error) {
	ep, err := DecodeNetAddr(raw)
	if err != nil {
		return false, err
	}
	return isLoopbackIP(ep.IP), nil
}

func isLoopbackIP(ip string) bool {
	return strings.HasPrefix(ip, "127.")
}
