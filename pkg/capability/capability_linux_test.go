package capability

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"kernel.org/pub/linux/libs/security/libcap/cap"

	"github.com/zqzqsb/pwait/pkg/log"
)

// fakeSet 模拟进程能力集合，SetProc 会把 Effective 写回 proc
type fakeSet struct {
	proc      *fakeProc
	effective bool
	permitted bool

	getErr    error
	setErr    error
	setProcOK bool
}

type fakeProc struct {
	effective bool
	permitted bool
	reads     int
	nilAfter  int
}

func (f *fakeSet) GetFlag(vec cap.Flag, _ cap.Value) (bool, error) {
	if f.getErr != nil {
		return false, f.getErr
	}
	if vec == cap.Effective {
		return f.effective, nil
	}
	return f.permitted, nil
}

func (f *fakeSet) SetFlag(vec cap.Flag, enable bool, _ ...cap.Value) error {
	if f.setErr != nil {
		return f.setErr
	}
	if vec == cap.Effective {
		f.effective = enable
	}
	return nil
}

func (f *fakeSet) SetProc() error {
	if !f.setProcOK {
		return errors.New("operation not permitted")
	}
	f.proc.effective = f.effective
	return nil
}

func newNegotiator(p *fakeProc, tweak func(*fakeSet)) *Negotiator {
	return &Negotiator{
		Logger: log.Discard(),
		Value:  cap.SYS_PTRACE,
		getProc: func() Set {
			p.reads++
			if p.nilAfter > 0 && p.reads > p.nilAfter {
				return nil
			}
			s := &fakeSet{proc: p, effective: p.effective, permitted: p.permitted, setProcOK: true}
			if tweak != nil {
				tweak(s)
			}
			return s
		},
		maxBits: func() cap.Value { return cap.SYS_PTRACE + 1 },
	}
}

func TestEnsure(t *testing.T) {
	tests := []struct {
		name  string
		proc  fakeProc
		tweak func(*fakeSet)
		want  bool
		state State
	}{
		{name: "already held", proc: fakeProc{effective: true, permitted: true}, want: true, state: StateHeld},
		{name: "raisable", proc: fakeProc{permitted: true}, want: true, state: StateRaisable},
		{name: "not permitted", proc: fakeProc{}, want: false, state: StateUnavailable},
		{
			name:  "set flag fails",
			proc:  fakeProc{permitted: true},
			tweak: func(s *fakeSet) { s.setErr = errors.New("bad") },
			want:  false,
			state: StateRaisable,
		},
		{
			name:  "set proc fails",
			proc:  fakeProc{permitted: true},
			tweak: func(s *fakeSet) { s.setProcOK = false },
			want:  false,
			state: StateRaisable,
		},
		{
			name:  "reread fails",
			proc:  fakeProc{permitted: true, nilAfter: 1},
			want:  false,
			state: StateRaisable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := tt.proc
			n := newNegotiator(&p, tt.tweak)
			state, _, err := n.Probe()
			assert.NoError(t, err)
			assert.Equal(t, tt.state, state)

			p.reads = 0
			assert.Equal(t, tt.want, n.Ensure())
		})
	}
}

func TestEnsureQueryError(t *testing.T) {
	p := fakeProc{}
	n := newNegotiator(&p, func(s *fakeSet) { s.getErr = errors.New("EINVAL") })
	state, _, err := n.Probe()
	assert.Error(t, err)
	assert.Equal(t, StateUnavailable, state)
	assert.False(t, n.Ensure())
}

func TestEnsureUnsupported(t *testing.T) {
	p := fakeProc{effective: true}
	n := newNegotiator(&p, nil)
	n.maxBits = func() cap.Value { return cap.SYS_PTRACE }
	assert.False(t, n.Ensure())
	assert.Zero(t, p.reads, "unsupported capability must not read the process set")
}

func TestEnsureGetProcFails(t *testing.T) {
	p := fakeProc{effective: true}
	n := newNegotiator(&p, nil)
	n.getProc = func() Set { return nil }
	assert.False(t, n.Ensure())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "held", StateHeld.String())
	assert.Equal(t, "raisable", StateRaisable.String())
	assert.Equal(t, "unavailable", StateUnavailable.String())
}
