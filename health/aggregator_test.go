package health

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fixed(name string, r Result) Checker {
	return NewCheckerFunc(name, func(context.Context) Result { return r })
}

func TestAggregator_CheckAll(t *testing.T) {
	agg := NewAggregator(AggregatorConfig{})
	for _, c := range []Checker{
		fixed("a", Healthy("ok")),
		fixed("b", Degraded("slow")),
	} {
		if err := agg.Register(c); err != nil {
			t.Fatalf("Register() error = %v", err)
		}
	}

	results := agg.CheckAll(context.Background())
	if len(results) != 2 {
		t.Fatalf("len(results) = %d, want 2", len(results))
	}
	if results["b"].Status != StatusDegraded {
		t.Errorf("b = %v, want degraded", results["b"].Status)
	}
	if results["a"].Timestamp.IsZero() {
		t.Error("Timestamp not set")
	}
	if got := Overall(results); got != StatusDegraded {
		t.Errorf("Overall() = %v, want degraded", got)
	}
}

func TestAggregator_Timeout(t *testing.T) {
	agg := NewAggregator(AggregatorConfig{Timeout: 20 * time.Millisecond})
	release := make(chan struct{})
	defer close(release)

	_ = agg.Register(NewCheckerFunc("stuck", func(context.Context) Result {
		<-release
		return Healthy("late")
	}))

	res := agg.CheckAll(context.Background())["stuck"]
	if res.Status != StatusUnhealthy || !errors.Is(res.Error, ErrCheckTimeout) {
		t.Errorf("result = %+v, want unhealthy timeout", res)
	}
}

func TestAggregator_Check(t *testing.T) {
	agg := NewAggregator(AggregatorConfig{})
	_ = agg.Register(fixed("a", Healthy("ok")))

	if _, err := agg.Check(context.Background(), "missing"); !errors.Is(err, ErrCheckerNotFound) {
		t.Errorf("Check(missing) error = %v, want ErrCheckerNotFound", err)
	}
	res, err := agg.Check(context.Background(), "a")
	if err != nil || res.Status != StatusHealthy {
		t.Errorf("Check(a) = %+v, %v", res, err)
	}
}

func TestAggregator_Register(t *testing.T) {
	agg := NewAggregator(AggregatorConfig{})
	if err := agg.Register(nil); !errors.Is(err, ErrNilChecker) {
		t.Errorf("Register(nil) error = %v, want ErrNilChecker", err)
	}

	_ = agg.Register(fixed("b", Healthy("")))
	_ = agg.Register(fixed("a", Healthy("")))
	_ = agg.Register(fixed("b", Unhealthy("replaced", nil)))

	names := agg.Names()
	if len(names) != 2 || names[0] != "b" || names[1] != "a" {
		t.Errorf("Names() = %v, want [b a]", names)
	}
	if res, _ := agg.Check(context.Background(), "b"); res.Status != StatusUnhealthy {
		t.Errorf("replaced checker status = %v, want unhealthy", res.Status)
	}
}

func TestOverall(t *testing.T) {
	tests := []struct {
		name    string
		results map[string]Result
		want    Status
	}{
		{"empty", nil, StatusHealthy},
		{"healthy", map[string]Result{"a": Healthy("")}, StatusHealthy},
		{"degraded", map[string]Result{"a": Healthy(""), "b": Degraded("")}, StatusDegraded},
		{"unhealthy wins", map[string]Result{"a": Degraded(""), "b": Unhealthy("", nil)}, StatusUnhealthy},
	}
	for _, tt := range tests {
		if got := Overall(tt.results); got != tt.want {
			t.Errorf("%s: Overall() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestStatus_String(t *testing.T) {
	tests := map[Status]string{
		StatusHealthy:   "healthy",
		StatusDegraded:  "degraded",
		StatusUnhealthy: "unhealthy",
		Status(7):       "unknown",
	}
	for s, want := range tests {
		if got := s.String(); got != want {
			t.Errorf("Status(%d).String() = %q, want %q", int(s), got, want)
		}
	}
}
