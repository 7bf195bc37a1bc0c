package daemon

import (
	"errors"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestMapRPCError(t *testing.T) {
	cases := []struct {
		name string
		code codes.Code
		want error
	}{
		{"unavailable", codes.Unavailable, ErrUnreachable},
		{"deadline", codes.DeadlineExceeded, ErrUnreachable},
		{"canceled", codes.Canceled, ErrUnreachable},
		{"not found", codes.NotFound, ErrNotFound},
		{"resource exhausted", codes.ResourceExhausted, ErrRejected},
		{"internal", codes.Internal, ErrRejected},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := mapRPCError(status.Error(tc.code, "daemon says no"))
			if !errors.Is(err, tc.want) {
				t.Fatalf("code %v mapped to %v, want %v", tc.code, err, tc.want)
			}
		})
	}
}

func TestMapRPCErrorNonStatus(t *testing.T) {
	err := mapRPCError(errors.New("plain failure"))
	if err == nil {
		t.Fatal("expected an error")
	}
}
