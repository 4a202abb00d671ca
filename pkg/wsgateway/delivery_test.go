package wsgateway

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type scriptedPusher struct {
	mu       sync.Mutex
	getErrs  []error
	postErrs []error
	gets     int
	posts    [][]byte
}

func (p *scriptedPusher) GetConnection(_ context.Context, _, id string) (ConnectionInfo, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.gets++
	if len(p.getErrs) > 0 {
		err := p.getErrs[0]
		p.getErrs = p.getErrs[1:]
		if err != nil {
			return ConnectionInfo{}, err
		}
	}
	return ConnectionInfo{ConnectionID: id}, nil
}

func (p *scriptedPusher) PostToConnection(_ context.Context, _, _ string, data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.postErrs) > 0 {
		err := p.postErrs[0]
		p.postErrs = p.postErrs[1:]
		if err != nil {
			return err
		}
	}
	p.posts = append(p.posts, data)
	return nil
}

func TestDelivery_RetriesWithLinearWaits(t *testing.T) {
	transient := errors.New("throttled")
	p := &scriptedPusher{postErrs: []error{transient, transient}}

	var waits []time.Duration
	d := NewDelivery(p, DeliveryOptions{
		OnRetry: func(_ string, _ int, _ error, wait time.Duration) {
			waits = append(waits, wait)
		},
	})

	require.NoError(t, d.Send(context.Background(), "", "c1", []byte("x")))
	require.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}, waits)
	require.Equal(t, 3, p.gets, "liveness is checked before every attempt")
	require.Len(t, p.posts, 1)
}

func TestDelivery_ExhaustsAttempts(t *testing.T) {
	transient := errors.New("throttled")
	p := &scriptedPusher{postErrs: []error{transient, transient, transient, transient}}
	d := NewDelivery(p, DeliveryOptions{BaseDelay: time.Millisecond})

	err := d.Send(context.Background(), "", "c1", []byte("x"))
	var derr *DeliveryError
	require.ErrorAs(t, err, &derr)
	require.Equal(t, 3, derr.Attempts)
	require.ErrorIs(t, err, transient)
	require.False(t, IsGone(err))
}

func TestDelivery_GoneStopsImmediately(t *testing.T) {
	tests := []struct {
		name     string
		pusher   *scriptedPusher
		wantGets int
	}{
		{
			name:     "gone on liveness check",
			pusher:   &scriptedPusher{getErrs: []error{&GoneError{ConnectionID: "c1"}}},
			wantGets: 1,
		},
		{
			name: "gone on post after a transient failure",
			pusher: &scriptedPusher{postErrs: []error{
				errors.New("throttled"),
				&GoneError{ConnectionID: "c1"},
			}},
			wantGets: 2,
		},
		{
			name: "gone on the last attempt",
			pusher: &scriptedPusher{postErrs: []error{
				errors.New("throttled"),
				errors.New("throttled"),
				&GoneError{ConnectionID: "c1"},
			}},
			wantGets: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDelivery(tt.pusher, DeliveryOptions{BaseDelay: time.Millisecond})
			err := d.Send(context.Background(), "", "c1", []byte("x"))

			var gone *GoneError
			require.ErrorAs(t, err, &gone)
			require.Equal(t, "c1", gone.ConnectionID)
			require.Equal(t, tt.wantGets, tt.pusher.gets)
			require.Empty(t, tt.pusher.posts)
		})
	}
}

func TestDelivery_ContextCancelled(t *testing.T) {
	p := &scriptedPusher{postErrs: []error{errors.New("throttled"), errors.New("throttled")}}
	d := NewDelivery(p, DeliveryOptions{BaseDelay: time.Hour})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := d.Send(ctx, "", "c1", []byte("x"))
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestEndpoint(t *testing.T) {
	require.Equal(t, "https://abc.example.com/prod", Endpoint("abc.example.com", "prod"))
	require.Equal(t, "http://127.0.0.1:8080", Endpoint("http://127.0.0.1:8080/", ""))
	require.Equal(t, "http://localhost/dev", Endpoint("http://localhost", "/dev/"))
}
