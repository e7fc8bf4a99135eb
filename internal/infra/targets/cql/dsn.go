package cql

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	Scheme      = "cql://"
	DefaultPort = 9042
)

// DSN is a parsed cql://[user:pass@]host1[,host2...][:port][/keyspace] string.
// The scheme is optional. A port on the last host only applies to every host.
type DSN struct {
	Hosts    []string
	Port     int
	Username string
	Password string
	Keyspace string
}

func ParseDSN(raw string) (*DSN, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil, fmt.Errorf("empty cql dsn")
	}
	if strings.Contains(s, "://") {
		if !strings.HasPrefix(s, Scheme) {
			return nil, fmt.Errorf("cql dsn must use the %s scheme: %s", Scheme, raw)
		}
		s = strings.TrimPrefix(s, Scheme)
	}

	d := &DSN{Port: DefaultPort}

	if i := strings.LastIndex(s, "@"); i >= 0 {
		userinfo := s[:i]
		s = s[i+1:]
		user, pass, _ := strings.Cut(userinfo, ":")
		d.Username = user
		d.Password = pass
	}
	if i := strings.Index(s, "/"); i >= 0 {
		d.Keyspace = strings.Trim(s[i+1:], "/")
		s = s[:i]
	}

	hosts := strings.Split(s, ",")
	withPort := 0
	for i, h := range hosts {
		h = strings.TrimSpace(h)
		if h == "" {
			return nil, fmt.Errorf("empty host in cql dsn: %s", raw)
		}
		if host, port, ok := splitHostPort(h); ok {
			if _, err := strconv.Atoi(port); err != nil {
				return nil, fmt.Errorf("invalid port %q in cql dsn", port)
			}
			if host == "" {
				return nil, fmt.Errorf("empty host in cql dsn: %s", raw)
			}
			withPort++
		}
		hosts[i] = h
	}

	last := len(hosts) - 1
	if withPort == 1 {
		if host, port, ok := splitHostPort(hosts[last]); ok {
			p, _ := strconv.Atoi(port)
			d.Port = p
			hosts[last] = host
		}
	}
	d.Hosts = hosts
	return d, nil
}

// splitHostPort handles bracketed IPv6 literals; a bare IPv6 address has no
// port.
func splitHostPort(h string) (string, string, bool) {
	if strings.HasPrefix(h, "[") {
		end := strings.Index(h, "]")
		if end < 0 || end == len(h)-1 || h[end+1] != ':' {
			return h, "", false
		}
		return h[:end+1], h[end+2:], true
	}
	if strings.Count(h, ":") != 1 {
		return h, "", false
	}
	host, port, _ := strings.Cut(h, ":")
	return host, port, true
}

// Redacted renders the DSN with the password masked.
func (d *DSN) Redacted() string {
	var b strings.Builder
	b.WriteString(Scheme)
	if d.Username != "" {
		b.WriteString(d.Username)
		if d.Password != "" {
			b.WriteString(":****")
		}
		b.WriteString("@")
	}
	b.WriteString(strings.Join(d.Hosts, ","))
	if d.Port != DefaultPort {
		fmt.Fprintf(&b, ":%d", d.Port)
	}
	if d.Keyspace != "" {
		b.WriteString("/" + d.Keyspace)
	}
	return b.String()
}
