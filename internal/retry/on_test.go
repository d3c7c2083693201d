package retry_test

import (
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"runtime"
	"testing"

	"layout-snapshot/internal/retry"

	"github.com/google/go-cmp/cmp"
)

func mustOn(s string) *retry.On {
	o, err := retry.NewOnFromString(s)
	if err != nil {
		panic(err)
	}
	return o
}

func TestCheckResponse(t *testing.T) {
	type in struct {
		first *http.Response
	}

	type want struct {
		first bool
	}

	tests := []struct {
		name     string
		receiver *retry.On
		in       in
		want     want
	}{
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			mustOn("5xx"),
			in{&http.Response{StatusCode: 500}},
			want{true},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			mustOn("5xx"),
			in{&http.Response{StatusCode: 404}},
			want{false},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			mustOn("gateway-error"),
			in{&http.Response{StatusCode: 503}},
			want{true},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			mustOn("gateway-error"),
			in{&http.Response{StatusCode: 500}},
			want{false},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			mustOn("retriable-4xx"),
			in{&http.Response{StatusCode: 409}},
			want{true},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			mustOn("rate-limited"),
			in{&http.Response{StatusCode: 429}},
			want{true},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			mustOn("retriable-4xx"),
			in{&http.Response{StatusCode: 429}},
			want{false},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			mustOn("500, 418"),
			in{&http.Response{StatusCode: 418}},
			want{true},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			retry.NewDefaultOn(),
			in{&http.Response{StatusCode: 200}},
			want{false},
		},
	}
	for _, tt := range tests {
		name := tt.name
		receiver := tt.receiver
		in := tt.in
		want := tt.want
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got := receiver.CheckResponse(in.first)
			if diff := cmp.Diff(want.first, got); diff != "" {
				t.Errorf("(-want +got):\n%s", diff)
			}
		})
	}
}

func TestCheckError(t *testing.T) {
	type in struct {
		first error
	}

	type want struct {
		first bool
	}

	tests := []struct {
		name     string
		receiver *retry.On
		in       in
		want     want
	}{
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			mustOn("connect-failure"),
			in{io.EOF},
			want{true},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			mustOn("5xx"),
			in{&net.DNSError{IsTemporary: true}},
			want{true},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			mustOn("connect-failure"),
			in{errors.New("fake")},
			want{false},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			mustOn("gateway-error"),
			in{io.EOF},
			want{false},
		},
	}
	for _, tt := range tests {
		name := tt.name
		receiver := tt.receiver
		in := tt.in
		want := tt.want
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got := receiver.CheckError(in.first)
			if diff := cmp.Diff(want.first, got); diff != "" {
				t.Errorf("(-want +got):\n%s", diff)
			}
		})
	}
}

func TestNewOnFromString_Invalid(t *testing.T) {
	t.Parallel()

	for _, s := range []string{"5xxx", "99", "600", "gateway"} {
		if _, err := retry.NewOnFromString(s); err == nil {
			t.Errorf("expected error for %q", s)
		}
	}
}
