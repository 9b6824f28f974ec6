package errcode

import (
	"errors"
	"fmt"
	"testing"
)

func TestOf(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want Code
	}{
		{"nil", nil, OK},
		{"bare code", Duplicate, Duplicate},
		{"wrapper", &E{C: NotFound, Op: "sink"}, NotFound},
		{"wrapper with cause", &E{C: SinkRejected, Op: "sink", Err: errors.New("400")}, SinkRejected},
		{"fmt-wrapped wrapper", fmt.Errorf("submit: %w", &E{C: Timeout, Op: "sink"}), Timeout},
		{"fmt-wrapped code", fmt.Errorf("collect: %w", NotReady), NotReady},
		{"doubly wrapped", fmt.Errorf("run: %w", fmt.Errorf("frame: %w", &E{C: ParseFailed})), ParseFailed},
		{"foreign error", errors.New("dial tcp: refused"), Error},
	}
	for _, tc := range cases {
		if got := Of(tc.err); got != tc.want {
			t.Errorf("%s: Of() = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestE_Unwrap(t *testing.T) {
	cause := errors.New("i2c nack")
	err := &E{C: NotReady, Op: "shtc3", Err: cause}
	if !errors.Is(err, cause) {
		t.Error("wrapped cause must be reachable through errors.Is")
	}
}
