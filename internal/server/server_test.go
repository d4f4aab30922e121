package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/thomaskoefod/digestr/internal/database"
	"github.com/thomaskoefod/digestr/internal/scheduler"
	"github.com/thomaskoefod/digestr/pkg/models"
)

type fakeJobs struct {
	triggered []string
	err       error
}

func (f *fakeJobs) Trigger(name string) error {
	if f.err != nil {
		return f.err
	}
	f.triggered = append(f.triggered, name)
	return nil
}

func (f *fakeJobs) Status() []scheduler.TaskStatus {
	return []scheduler.TaskStatus{{Name: "ingest", Description: "poll feeds"}}
}

func newTestServer(t *testing.T, jobs *fakeJobs) (*Server, *database.DB) {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "server.db"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return New(":0", db, jobs, zerolog.Nop()), db
}

func do(s *Server, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func TestRegister(t *testing.T) {
	s, db := newTestServer(t, &fakeJobs{})

	rec := do(s, http.MethodPost, "/register",
		`{"email":"Dev <dev@example.com>","interests":["docker"," kubernetes ",""],"frequency":"Weekly"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp registerResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("Bad response body: %v", err)
	}
	if resp.ID == 0 || resp.Email != "dev@example.com" || resp.Frequency != "weekly" {
		t.Errorf("Unexpected response %+v", resp)
	}

	interests, err := db.GetInterests(context.Background(), resp.ID)
	if err != nil {
		t.Fatalf("GetInterests failed: %v", err)
	}
	if strings.Join(interests, ",") != "docker,kubernetes" {
		t.Errorf("Unexpected stored interests %v", interests)
	}
}

func TestRegisterValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"email":`},
		{"bad email", `{"email":"not-an-email","interests":["go"],"frequency":"daily"}`},
		{"bad frequency", `{"email":"a@example.com","interests":["go"],"frequency":"hourly"}`},
		{"no interests", `{"email":"a@example.com","interests":[" "],"frequency":"daily"}`},
		{"non-string interests", `{"email":"a@example.com","interests":[42,null,{"k":"v"}],"frequency":"daily"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestServer(t, &fakeJobs{})
			if rec := do(s, http.MethodPost, "/register", tt.body); rec.Code != http.StatusBadRequest {
				t.Errorf("Expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestRegisterDefaultsAndLooseInterests(t *testing.T) {
	s, db := newTestServer(t, &fakeJobs{})

	rec := do(s, http.MethodPost, "/register", `{"email":"ops@example.com","interests":["<b>docker</b>",7,"ci/cd"]}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp registerResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("Bad response body: %v", err)
	}
	if resp.Frequency != models.Daily {
		t.Errorf("Expected omitted frequency to default to daily, got %q", resp.Frequency)
	}

	interests, err := db.GetInterests(context.Background(), resp.ID)
	if err != nil {
		t.Fatalf("GetInterests failed: %v", err)
	}
	if strings.Join(interests, ",") != "docker,ci/cd" {
		t.Errorf("Unexpected stored interests %v", interests)
	}
}

func TestRegisterDuplicateIgnoresCase(t *testing.T) {
	s, _ := newTestServer(t, &fakeJobs{})

	if rec := do(s, http.MethodPost, "/register", `{"email":"Dev@Example.com","interests":["go"]}`); rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d", rec.Code)
	}
	if rec := do(s, http.MethodPost, "/register", `{"email":"dev@example.com","interests":["rust"]}`); rec.Code != http.StatusConflict {
		t.Errorf("Expected 409 for the same address in another case, got %d", rec.Code)
	}
}

func TestRegisterDuplicate(t *testing.T) {
	s, _ := newTestServer(t, &fakeJobs{})
	body := `{"email":"dup@example.com","interests":["go"],"frequency":"daily"}`

	if rec := do(s, http.MethodPost, "/register", body); rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d", rec.Code)
	}
	if rec := do(s, http.MethodPost, "/register", body); rec.Code != http.StatusConflict {
		t.Errorf("Expected 409, got %d", rec.Code)
	}
}

func TestRunJob(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"started", nil, http.StatusAccepted},
		{"running", scheduler.ErrTaskRunning, http.StatusConflict},
		{"unknown", scheduler.ErrUnknownTask, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			jobs := &fakeJobs{err: tt.err}
			s, _ := newTestServer(t, jobs)

			rec := do(s, http.MethodPost, "/jobs/weekly/run", "")
			if rec.Code != tt.want {
				t.Errorf("Expected %d, got %d", tt.want, rec.Code)
			}
			if tt.err == nil && (len(jobs.triggered) != 1 || jobs.triggered[0] != "weekly") {
				t.Errorf("Expected weekly to be triggered, got %v", jobs.triggered)
			}
		})
	}
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t, &fakeJobs{})

	rec := do(s, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"name":"ingest"`) {
		t.Errorf("Expected job status in body, got %s", rec.Body.String())
	}
}
