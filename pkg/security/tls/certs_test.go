package tls

import (
	"crypto/tls"
	"testing"
	"time"
)

func TestValidateCertificate(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name      string
		notBefore time.Time
		notAfter  time.Time
		wantErr   bool
	}{
		{name: "valid", notBefore: now.Add(-time.Hour), notAfter: now.Add(time.Hour)},
		{name: "expired", notBefore: now.Add(-2 * time.Hour), notAfter: now.Add(-time.Hour), wantErr: true},
		{name: "not yet valid", notBefore: now.Add(time.Hour), notAfter: now.Add(2 * time.Hour), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			certFile, keyFile, _ := writeCertPair(t, t.TempDir(), "relay", tt.notBefore, tt.notAfter)
			cert, err := tls.LoadX509KeyPair(certFile, keyFile)
			if err != nil {
				t.Fatalf("LoadX509KeyPair() error = %v", err)
			}

			err = ValidateCertificate(&cert, now)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateCertificate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateCertificate_Empty(t *testing.T) {
	if err := ValidateCertificate(nil, time.Now()); err == nil {
		t.Error("expected error for nil certificate")
	}
	if err := ValidateCertificate(&tls.Certificate{}, time.Now()); err == nil {
		t.Error("expected error for empty chain")
	}
}

func TestExpiresSoon(t *testing.T) {
	now := time.Now()
	dir := t.TempDir()

	_, _, leaf := writeCertPair(t, dir, "relay", now.Add(-time.Hour), now.Add(10*24*time.Hour+time.Hour))
	days, soon := ExpiresSoon(leaf, now)
	if !soon {
		t.Error("expected certificate expiring in 10 days to warn")
	}
	if days != 10 {
		t.Errorf("days = %d, want 10", days)
	}

	_, _, leaf = writeCertPair(t, dir, "relay", now.Add(-time.Hour), now.Add(90*24*time.Hour))
	if _, soon := ExpiresSoon(leaf, now); soon {
		t.Error("certificate expiring in 90 days should not warn")
	}
}
