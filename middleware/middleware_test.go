package middleware

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// mockContext implements Context for tests.
type mockContext struct {
	ctx      context.Context
	cancel   context.CancelFunc
	args     []string
	command  *mockCommand
	values   map[string]any
	metadata map[string]any
	mu       sync.Mutex
}

func newMockContext() *mockContext {
	ctx, cancel := context.WithCancel(context.Background())
	return &mockContext{
		ctx:      ctx,
		cancel:   cancel,
		command:  &mockCommand{name: "test", description: "test command"},
		values:   make(map[string]any),
		metadata: make(map[string]any),
	}
}

func (m *mockContext) Context() context.Context { return m.ctx }
func (m *mockContext) Done() <-chan struct{}     { return m.ctx.Done() }
func (m *mockContext) Cancel()                   { m.cancel() }
func (m *mockContext) Args() []string            { return m.args }
func (m *mockContext) Command() Command          { return m.command }

func (m *mockContext) Lookup(name string) (any, bool) {
	v, ok := m.values[name]
	return v, ok
}

func (m *mockContext) Set(key string, value any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.metadata[key] = value
}

func (m *mockContext) Get(key string) any {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.metadata[key]
}

type mockCommand struct {
	name        string
	description string
}

func (m *mockCommand) Name() string        { return m.name }
func (m *mockCommand) Description() string { return m.description }

func successAction(ctx Context) error { return nil }
func errorAction(ctx Context) error   { return errors.New("test error") }
func panicAction(ctx Context) error   { panic("test panic") }

func slowAction(ctx Context) error {
	select {
	case <-time.After(time.Second):
		return nil
	case <-ctx.Done():
		return ctx.Context().Err()
	}
}

func TestMiddlewareChain(t *testing.T) {
	var order []string
	mark := func(name string) Middleware {
		return func(next ActionFunc) ActionFunc {
			return func(ctx Context) error {
				order = append(order, name+":before")
				err := next(ctx)
				order = append(order, name+":after")
				return err
			}
		}
	}

	chain := Chain(mark("outer")).Use(mark("inner"))
	err := chain.Apply(func(ctx Context) error {
		order = append(order, "action")
		return nil
	})(newMockContext())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"outer:before", "inner:before", "action", "inner:after", "outer:after"}
	if strings.Join(order, ",") != strings.Join(want, ",") {
		t.Errorf("order = %v, want %v", order, want)
	}
}

func TestLoggerText(t *testing.T) {
	var buf bytes.Buffer
	ctx := newMockContext()
	ctx.args = []string{"-v", "file.txt"}

	if err := LoggerWithWriter(&buf)(successAction)(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"SUCCESS", "command=test", "args=-v file.txt"} {
		if !strings.Contains(out, want) {
			t.Errorf("log %q missing %q", out, want)
		}
	}
	if strings.Contains(out, "START") {
		t.Errorf("info level logged START: %q", out)
	}
}

func TestLoggerError(t *testing.T) {
	var buf bytes.Buffer
	err := LoggerWithWriter(&buf, WithLogLevel(LogLevelError), WithArgs(false))(errorAction)(newMockContext())
	if err == nil || err.Error() != "test error" {
		t.Fatalf("err = %v, want test error", err)
	}
	if out := buf.String(); !strings.Contains(out, `ERROR command=test`) || !strings.Contains(out, `error="test error"`) {
		t.Errorf("unexpected log: %q", out)
	}
}

func TestLoggerDebugLogsStart(t *testing.T) {
	var buf bytes.Buffer
	if err := LoggerWithWriter(&buf, WithLogLevel(LogLevelDebug))(successAction)(newMockContext()); err != nil {
		t.Fatal(err)
	}
	if got := strings.Count(buf.String(), "\n"); got != 2 {
		t.Errorf("got %d lines, want 2: %q", got, buf.String())
	}
}

func TestLoggerNone(t *testing.T) {
	var buf bytes.Buffer
	if err := LoggerWithWriter(&buf, WithLogLevel(LogLevelNone))(successAction)(newMockContext()); err != nil {
		t.Fatal(err)
	}
	if buf.Len() != 0 {
		t.Errorf("LogLevelNone wrote %q", buf.String())
	}
	if err := SilentLogger()(successAction)(newMockContext()); err != nil {
		t.Fatal(err)
	}
}

func TestRecovery(t *testing.T) {
	var buf bytes.Buffer
	err := RecoveryTo(&buf)(panicAction)(newMockContext())

	var rerr *RecoveryError
	if !errors.As(err, &rerr) {
		t.Fatalf("err = %v, want *RecoveryError", err)
	}
	if rerr.Panic != "test panic" || rerr.Command != "test" {
		t.Errorf("RecoveryError = %+v", rerr)
	}
	if len(rerr.Stack) == 0 || !strings.Contains(buf.String(), "PANIC in command 'test'") {
		t.Errorf("stack not captured or printed: %q", buf.String())
	}
}

func TestRecoveryToErrorIsQuiet(t *testing.T) {
	err := RecoveryToError()(panicAction)(newMockContext())
	var rerr *RecoveryError
	if !errors.As(err, &rerr) {
		t.Fatalf("err = %v, want *RecoveryError", err)
	}
	if rerr.Stack != nil {
		t.Errorf("stack captured with stack traces disabled")
	}
}

func TestRecoveryWithHandler(t *testing.T) {
	sentinel := errors.New("handled")
	var gotCommand string
	mw := RecoveryWithHandler(func(v any, command string, stack []byte) error {
		gotCommand = command
		return sentinel
	}, WithStackTrace(false))

	if err := mw(panicAction)(newMockContext()); !errors.Is(err, sentinel) {
		t.Errorf("err = %v, want sentinel", err)
	}
	if gotCommand != "test" {
		t.Errorf("command = %q", gotCommand)
	}
}

func TestSafeRecoveryStoresPanic(t *testing.T) {
	ctx := newMockContext()
	if err := SafeRecovery()(panicAction)(ctx); err == nil {
		t.Fatal("expected error")
	}
	if ctx.Get("panic_value") != "test panic" {
		t.Errorf("panic_value = %v", ctx.Get("panic_value"))
	}
}

func TestRecoveryWithStats(t *testing.T) {
	stats := NewRecoveryStats()
	mw := RecoveryWithStats(stats, WithStackTrace(false))
	for range 3 {
		_ = mw(panicAction)(newMockContext())
	}
	total, last := stats.Snapshot()
	if total != 3 || last == nil || stats.CommandPanics["test"] != 3 {
		t.Errorf("stats = %d %v %v", total, last, stats.CommandPanics)
	}
}

func TestNoopRecovery(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("NoopRecovery swallowed the panic")
		}
	}()
	_ = NoopRecovery()(panicAction)(newMockContext())
}

func TestTimeout(t *testing.T) {
	ctx := newMockContext()
	err := Timeout(20 * time.Millisecond)(slowAction)(ctx)

	var terr *TimeoutError
	if !errors.As(err, &terr) {
		t.Fatalf("err = %v, want *TimeoutError", err)
	}
	if terr.Command != "test" || terr.Duration != 20*time.Millisecond {
		t.Errorf("TimeoutError = %+v", terr)
	}
	select {
	case <-ctx.Done():
	default:
		t.Error("context not canceled after timeout")
	}
}

func TestTimeoutSuccessAndPanic(t *testing.T) {
	if err := Timeout(time.Second)(successAction)(newMockContext()); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	var rerr *RecoveryError
	if err := Timeout(time.Second)(panicAction)(newMockContext()); !errors.As(err, &rerr) {
		t.Errorf("err = %v, want *RecoveryError", err)
	}
}

func TestTimeoutVariants(t *testing.T) {
	var called string
	mw := TimeoutWithCallback(10*time.Millisecond, func(command string, d time.Duration) { called = command })
	if err := mw(slowAction)(newMockContext()); err == nil {
		t.Error("expected timeout")
	}
	if called != "test" {
		t.Errorf("callback got %q", called)
	}

	per := TimeoutPerCommand(map[string]time.Duration{"test": 10 * time.Millisecond}, time.Hour)
	var terr *TimeoutError
	if err := per(slowAction)(newMockContext()); !errors.As(err, &terr) || terr.Duration != 10*time.Millisecond {
		t.Errorf("TimeoutPerCommand err = %v", err)
	}

	var attempts atomic.Int32
	retry := TimeoutWithRetry(10*time.Millisecond, 2)
	err := retry(func(ctx Context) error {
		attempts.Add(1)
		time.Sleep(50 * time.Millisecond)
		return nil
	})(newMockContext())
	if !errors.As(err, &terr) {
		t.Errorf("TimeoutWithRetry err = %v", err)
	}
	if got := attempts.Load(); got != 3 {
		t.Errorf("attempts = %d, want 3", got)
	}

	if err := NoTimeout()(successAction)(newMockContext()); err != nil {
		t.Error(err)
	}
}

func TestTimeoutFromArg(t *testing.T) {
	ctx := newMockContext()
	ctx.values["timeout"] = 10 * time.Millisecond

	var terr *TimeoutError
	if err := TimeoutFromArg("timeout", time.Hour)(slowAction)(ctx); !errors.As(err, &terr) {
		t.Fatalf("err = %v, want *TimeoutError", err)
	}

	// a non-positive duration disables the deadline
	ctx = newMockContext()
	ctx.values["timeout"] = time.Duration(0)
	if err := TimeoutFromArg("timeout", time.Hour)(successAction)(ctx); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidate(t *testing.T) {
	calls := 0
	pass := Custom("pass", func(ctx Context) error { calls++; return nil })
	fail := Custom("port_range", func(ctx Context) error { return errors.New("port out of range") })

	err := Validate(pass, fail, pass)(successAction)(newMockContext())
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want *ValidationError", err)
	}
	if verr.Field != "port_range" || verr.Cause == nil {
		t.Errorf("ValidationError = %+v", verr)
	}
	if calls != 1 {
		t.Errorf("validators after the failure ran: calls = %d", calls)
	}

	custom := Validator(WithCustomValidators(map[string]ValidatorFunc{
		"always": func(ctx Context) error { return &ValidationError{Field: "x", Message: "bad x"} },
	}))
	if err := custom(successAction)(newMockContext()); err == nil || err.Error() != "bad x" {
		t.Errorf("err = %v, want bad x", err)
	}

	if err := NoopValidator()(successAction)(newMockContext()); err != nil {
		t.Error(err)
	}
}

func TestFileAndDirectoryValidators(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(file, []byte("a: 1\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		values  map[string]any
		v       NamedValidator
		wantErr bool
	}{
		{"file exists", map[string]any{"config": file}, File("config"), false},
		{"file is dir", map[string]any{"config": dir}, File("config"), true},
		{"file missing", map[string]any{"config": filepath.Join(dir, "nope")}, File("config"), true},
		{"file absent", map[string]any{}, File("config"), false},
		{"dir exists", map[string]any{"out": dir}, Dir("out"), false},
		{"dir is file", map[string]any{"out": file}, Dir("out"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := newMockContext()
			ctx.values = tt.values
			err := Validate(tt.v)(successAction)(ctx)
			if (err != nil) != tt.wantErr {
				t.Errorf("err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConditionalRequired(t *testing.T) {
	deploying := func(ctx Context) error {
		if v, ok := ctx.Lookup("deploy"); ok && v == true {
			return nil
		}
		return errors.New("not deploying")
	}
	v := ConditionalRequired(deploying, "target", "token")

	ctx := newMockContext()
	if err := v(ctx); err != nil {
		t.Errorf("condition not met: err = %v", err)
	}

	ctx.values["deploy"] = true
	ctx.values["target"] = "prod"
	err := v(ctx)
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Field != "token" {
		t.Fatalf("err = %v, want missing token", err)
	}

	ctx.values["token"] = "s3cret"
	if err := v(ctx); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestErrorPropagation(t *testing.T) {
	chain := Chain(RecoveryToError(), LoggerWithWriter(&bytes.Buffer{}), Validate())
	if err := chain.Apply(errorAction)(newMockContext()); err == nil || err.Error() != "test error" {
		t.Errorf("err = %v, want test error", err)
	}
}
