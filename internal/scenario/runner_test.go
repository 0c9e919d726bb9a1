package scenario

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/wondertwin-ai/twin-serverest/internal/fixture"
	"github.com/wondertwin-ai/twin-serverest/internal/twin/twintest"
)

func quietRunner(apiURL string) *Runner {
	return NewRunner(apiURL,
		WithGenerator(fixture.New(0)),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
}

func failures(res *Result) string {
	var b strings.Builder
	for _, sr := range res.Steps {
		if !sr.Passed {
			b.WriteString("\n  " + sr.Name + ": " + sr.Error)
		}
	}
	return b.String()
}

// The checked-in scenarios must pass against the twin.
func TestShippedScenariosPassAgainstTwin(t *testing.T) {
	scenarios, err := LoadPath("../../scenarios")
	if err != nil {
		t.Fatalf("LoadPath: %v", err)
	}
	if len(scenarios) == 0 {
		t.Fatal("no scenarios found")
	}

	tw := twintest.New(t)
	r := quietRunner(tw.URL())
	for _, s := range scenarios {
		t.Run(s.Name, func(t *testing.T) {
			res, err := r.Run(context.Background(), s)
			if err != nil {
				t.Fatalf("Run: %v", err)
			}
			if !res.Passed {
				t.Errorf("scenario failed:%s", failures(res))
			}
		})
	}
}

func TestRunnerCapturesAndReportsFailures(t *testing.T) {
	tw := twintest.New(t)
	s := &Scenario{
		Name:      "capture",
		Variables: map[string]string{"email": "{{fake.email}}", "url": "{{config.api_url}}"},
		Steps: []Step{
			{
				Name: "register",
				Request: Request{Method: "POST", Path: "/usuarios", Body: map[string]any{
					"nome": "Fulano", "email": "{{email}}", "password": "teste", "administrador": "false",
				}},
				Capture: map[string]string{"user": "$._id"},
				Assert:  &Assert{Status: 201},
			},
			{
				Name:    "absolute url with captured id",
				Request: Request{Method: "GET", Path: "{{url}}/usuarios/{{user}}"},
				Assert:  &Assert{Status: 200, Body: map[string]any{"$.email": "{{email}}"}, BodyContains: "Fulano"},
			},
			{
				Name:    "wrong expectation",
				Request: Request{Method: "GET", Path: "/usuarios/{{user}}"},
				Assert:  &Assert{Status: 404},
			},
			{
				Name:    "unknown variable",
				Request: Request{Method: "GET", Path: "/usuarios/{{nobody}}"},
			},
		},
	}

	res, err := quietRunner(tw.URL()).Run(context.Background(), s)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Passed {
		t.Fatal("expected the scenario to fail")
	}
	got := []bool{res.Steps[0].Passed, res.Steps[1].Passed, res.Steps[2].Passed, res.Steps[3].Passed}
	want := []bool{true, true, false, false}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("step %d passed=%v, want %v (%s)", i, got[i], want[i], res.Steps[i].Error)
		}
	}
	if res.Steps[2].Status != 200 || !strings.Contains(res.Steps[2].Error, "expected status 404") {
		t.Errorf("unexpected failure detail %+v", res.Steps[2])
	}
}

func TestRunnerHeaderAssertion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"auth": "` + r.Header.Get("Authorization") + `"}`))
	}))
	defer srv.Close()

	s := &Scenario{
		Name: "headers",
		Steps: []Step{{
			Name:    "echo",
			Request: Request{Method: "GET", Path: "/", Headers: map[string]string{"Authorization": "Bearer {{env.SCENARIO_AUTH}}"}},
			Assert:  &Assert{Headers: map[string]string{"Content-Type": "application/json"}, Body: map[string]any{"$.auth": "Bearer xyz"}},
		}},
	}
	t.Setenv("SCENARIO_AUTH", "xyz")

	res, err := quietRunner(srv.URL).Run(context.Background(), s)
	if err != nil || !res.Passed {
		t.Errorf("expected pass, got err=%v%s", err, failures(res))
	}
}

func TestRunnerSetupFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	s := &Scenario{Name: "setup", Setup: &Setup{Reset: true}, Steps: []Step{{Name: "x", Request: Request{Method: "GET", Path: "/"}}}}
	if _, err := quietRunner(srv.URL).Run(context.Background(), s); err == nil {
		t.Error("expected setup error when /admin is missing")
	}
}
