package certs

import (
	"crypto/tls"
	"crypto/x509"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func leaf(t *testing.T, cert tls.Certificate) *x509.Certificate {
	t.Helper()

	require.Len(t, cert.Certificate, 1)
	parsed, err := x509.ParseCertificate(cert.Certificate[0])
	require.NoError(t, err)
	return parsed
}

func TestStore_Certificate(t *testing.T) {
	tests := []struct {
		setup    func(t *testing.T, s *Store)
		name     string
		hosts    []string
		wantSame bool
	}{
		{
			name: "generates when missing",
		},
		{
			name: "reuses a current certificate",
			setup: func(t *testing.T, s *Store) {
				t.Helper()
				_, err := s.Certificate()
				require.NoError(t, err)
			},
			wantSame: true,
		},
		{
			name: "regenerates for a new host",
			setup: func(t *testing.T, s *Store) {
				t.Helper()
				_, err := s.Certificate()
				require.NoError(t, err)
			},
			hosts: []string{"twin.internal"},
		},
		{
			name: "regenerates an expired certificate",
			setup: func(t *testing.T, s *Store) {
				t.Helper()
				s.now = func() time.Time { return time.Now().Add(-2 * Validity) }
				_, err := s.Certificate()
				require.NoError(t, err)
				s.now = time.Now
			},
		},
		{
			name: "regenerates garbage files",
			setup: func(t *testing.T, s *Store) {
				t.Helper()
				require.NoError(t, os.MkdirAll(s.dir, 0o700))
				require.NoError(t, os.WriteFile(s.certFile, []byte("not a cert"), 0o600))
				require.NoError(t, os.WriteFile(s.keyFile, []byte("not a key"), 0o600))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStore(filepath.Join(t.TempDir(), "certs"))

			var before []byte
			if tt.setup != nil {
				tt.setup(t, s)
				before, _ = os.ReadFile(s.certFile)
			}

			cert, err := s.Certificate(tt.hosts...)
			require.NoError(t, err)

			x := leaf(t, cert)
			assert.Equal(t, "Digital Twin Simulator", x.Subject.Organization[0])
			require.NoError(t, x.VerifyHostname("localhost"))
			require.NoError(t, x.VerifyHostname("127.0.0.1"))
			for _, h := range tt.hosts {
				require.NoError(t, x.VerifyHostname(h))
			}
			assert.True(t, time.Now().Before(x.NotAfter))

			after, err := os.ReadFile(s.certFile)
			require.NoError(t, err)
			if tt.wantSame {
				assert.Equal(t, before, after)
			} else {
				assert.NotEqual(t, before, after)
			}
		})
	}
}

func TestStore_FilePermissions(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "certs"))
	_, err := s.Certificate()
	require.NoError(t, err)

	certFile, keyFile := s.Paths()
	for _, path := range []string{certFile, keyFile} {
		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o600), info.Mode().Perm(), path)
	}
}

func TestStore_TLSConfig(t *testing.T) {
	s := NewStore(t.TempDir())

	cfg, err := s.TLSConfig("10.0.0.5")
	require.NoError(t, err)
	assert.Equal(t, uint16(tls.VersionTLS12), cfg.MinVersion)
	require.Len(t, cfg.Certificates, 1)

	x := leaf(t, cfg.Certificates[0])
	assert.True(t, slicesContainIP(x.IPAddresses, net.ParseIP("10.0.0.5")))
}

func TestWithLoopback(t *testing.T) {
	assert.Equal(t, []string{"localhost", "127.0.0.1", "::1"}, withLoopback(nil))
	assert.Equal(t, []string{"localhost", "127.0.0.1", "::1", "example.test"},
		withLoopback([]string{"", "localhost", "example.test", "example.test"}))
}

func slicesContainIP(ips []net.IP, want net.IP) bool {
	for _, ip := range ips {
		if ip.Equal(want) {
			return true
		}
	}
	return false
}
