package reactor

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatchDispatchesOnReadiness(t *testing.T) {
	r, err := New()
	require.NoError(t, err)

	pr, pw, err := os.Pipe()
	require.NoError(t, err)
	defer pr.Close()
	defer pw.Close()

	fired := make(chan struct{}, 1)
	err = r.Watch(int(pr.Fd()), func(fd int, mask Mask, _ any) {
		var buf [1]byte
		pr.Read(buf[:])
		fired <- struct{}{}
		r.Stop()
	}, nil)
	require.NoError(t, err)

	go func() {
		time.Sleep(10 * time.Millisecond)
		pw.Write([]byte{1})
	}()

	done := make(chan error, 1)
	go func() { done <- r.Run() }()

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("callback never fired")
	}

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("reactor never stopped")
	}
}

func TestStopUnblocksRunWithNoOtherActivity(t *testing.T) {
	r, err := New()
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- r.Run() }()

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, r.Stop())

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("reactor never stopped")
	}
}

func TestFireRearmsRegisteredFD(t *testing.T) {
	r, err := New()
	require.NoError(t, err)

	pr, pw, err := os.Pipe()
	require.NoError(t, err)
	defer pr.Close()
	defer pw.Close()

	reads := 0
	err = r.Watch(int(pr.Fd()), func(fd int, mask Mask, _ any) {
		var buf [1]byte
		pr.Read(buf[:])
		reads++
		r.Stop()
	}, nil)
	require.NoError(t, err)

	require.NoError(t, r.Fire(int(pr.Fd()), MaskRead, func(fd int, mask Mask, data any) {
		var buf [1]byte
		pr.Read(buf[:])
		reads++
		r.Stop()
	}, nil))

	pw.Write([]byte{1})
	done := make(chan error, 1)
	go func() { done <- r.Run() }()

	select {
	case err := <-done:
		assert.NoError(t, err)
		assert.Equal(t, 1, reads)
	case <-time.After(2 * time.Second):
		t.Fatal("reactor never stopped")
	}
}

func TestRegisterCronFiresRepeatedly(t *testing.T) {
	r, err := New()
	require.NoError(t, err)

	ticks := make(chan struct{}, 8)
	err = r.RegisterCron(func(fd int, mask Mask, _ any) {
		ticks <- struct{}{}
	}, nil, 0, 20_000_000)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- r.Run() }()
	defer func() {
		r.Stop()
		<-done
	}()

	for i := 0; i < 3; i++ {
		select {
		case <-ticks:
		case <-time.After(2 * time.Second):
			t.Fatalf("cron did not fire %d time(s)", i+1)
		}
	}
}
