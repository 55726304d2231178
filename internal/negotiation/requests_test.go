package negotiation

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/servigo/servigo/internal/models"
	"github.com/servigo/servigo/internal/storage"
)

// fakeStore is an in-memory stand-in for the postgres store. AcceptRequest
// mirrors the production semantics: guarded by one lock, the request is
// accepted, siblings declined, and the service moved open -> accepted as a
// single step.
type fakeStore struct {
	mu       sync.Mutex
	services map[string]models.Service
	requests map[string]models.ServiceRequest
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		services: map[string]models.Service{},
		requests: map[string]models.ServiceRequest{},
	}
}

func (f *fakeStore) CreateService(_ context.Context, svc models.Service) (models.Service, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	svc.Status = models.ServiceOpen
	f.services[svc.ID] = svc
	return svc, nil
}

func (f *fakeStore) GetService(_ context.Context, id string) (models.Service, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	svc, ok := f.services[id]
	if !ok {
		return models.Service{}, fmt.Errorf("service %s: %w", id, storage.ErrNotFound)
	}
	return svc, nil
}

func (f *fakeStore) ListServices(_ context.Context) ([]models.Service, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Service
	for _, svc := range f.services {
		out = append(out, svc)
	}
	return out, nil
}

func (f *fakeStore) UpdateServiceDetails(_ context.Context, id string, det storage.ServiceDetails) (models.Service, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	svc, ok := f.services[id]
	if !ok {
		return models.Service{}, fmt.Errorf("service %s: %w", id, storage.ErrNotFound)
	}
	if det.Name != nil {
		svc.Name = *det.Name
	}
	if det.Description != nil {
		svc.Description = *det.Description
	}
	if det.Value != nil {
		svc.Value = *det.Value
	}
	f.services[id] = svc
	return svc, nil
}

func (f *fakeStore) TransitionService(_ context.Context, id string, from, to models.ServiceStatus, acceptedBy *string) (models.Service, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	svc, ok := f.services[id]
	if !ok {
		return models.Service{}, fmt.Errorf("service %s: %w", id, storage.ErrNotFound)
	}
	if svc.Status != from {
		return models.Service{}, fmt.Errorf("service %s no longer %s: %w", id, from, storage.ErrConflict)
	}
	svc.Status = to
	switch to {
	case models.ServiceAccepted:
		svc.AcceptedBy = acceptedBy
	case models.ServiceCanceled:
		svc.AcceptedBy = nil
	}
	f.services[id] = svc
	return svc, nil
}

func (f *fakeStore) CreateRequest(_ context.Context, req models.ServiceRequest) (models.ServiceRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	svc, ok := f.services[req.Service]
	if !ok {
		return models.ServiceRequest{}, fmt.Errorf("service %s: %w", req.Service, storage.ErrNotFound)
	}
	if svc.Status != models.ServiceOpen {
		return models.ServiceRequest{}, fmt.Errorf("service %s not open: %w", req.Service, storage.ErrConflict)
	}
	req.Status = models.RequestPending
	f.requests[req.ID] = req
	return req, nil
}

func (f *fakeStore) GetRequest(_ context.Context, id string) (models.ServiceRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	req, ok := f.requests[id]
	if !ok {
		return models.ServiceRequest{}, fmt.Errorf("request %s: %w", id, storage.ErrNotFound)
	}
	return req, nil
}

func (f *fakeStore) ListRequestsByService(_ context.Context, serviceID string) ([]models.ServiceRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.ServiceRequest
	for _, req := range f.requests {
		if req.Service == serviceID {
			out = append(out, req)
		}
	}
	return out, nil
}

func (f *fakeStore) FindPendingRequest(_ context.Context, serviceID, proposerID string) (models.ServiceRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, req := range f.requests {
		if req.Service == serviceID && req.Proposer == proposerID && req.Status == models.RequestPending {
			return req, nil
		}
	}
	return models.ServiceRequest{}, fmt.Errorf("no pending request: %w", storage.ErrNotFound)
}

func (f *fakeStore) AcceptRequest(_ context.Context, id string) (models.ServiceRequest, models.Service, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	req, ok := f.requests[id]
	if !ok {
		return models.ServiceRequest{}, models.Service{}, fmt.Errorf("request %s: %w", id, storage.ErrNotFound)
	}
	if req.Status != models.RequestPending {
		return models.ServiceRequest{}, models.Service{},
			fmt.Errorf("request %s already %s: %w", id, req.Status, storage.ErrConflict)
	}
	svc, ok := f.services[req.Service]
	if !ok {
		return models.ServiceRequest{}, models.Service{}, fmt.Errorf("service %s: %w", req.Service, storage.ErrNotFound)
	}
	if svc.Status != models.ServiceOpen {
		return models.ServiceRequest{}, models.Service{},
			fmt.Errorf("service %s not open: %w", req.Service, storage.ErrConflict)
	}

	proposer := req.Proposer
	svc.Status = models.ServiceAccepted
	svc.AcceptedBy = &proposer
	svc.ProposedValue = &req.ProposedValue
	f.services[svc.ID] = svc

	req.Status = models.RequestAccepted
	f.requests[id] = req
	for rid, sibling := range f.requests {
		if rid != id && sibling.Service == req.Service && sibling.Status == models.RequestPending {
			sibling.Status = models.RequestDeclined
			f.requests[rid] = sibling
		}
	}
	return req, svc, nil
}

func (f *fakeStore) DeclineRequest(_ context.Context, id string) (models.ServiceRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	req, ok := f.requests[id]
	if !ok {
		return models.ServiceRequest{}, fmt.Errorf("request %s: %w", id, storage.ErrNotFound)
	}
	if req.Status != models.RequestPending {
		return models.ServiceRequest{}, fmt.Errorf("request %s not pending: %w", id, storage.ErrConflict)
	}
	req.Status = models.RequestDeclined
	f.requests[id] = req
	return req, nil
}

func newTestHandler(store *fakeStore) *Handler {
	return NewHandler(store, store, zap.NewNop())
}

func seedService(store *fakeStore, id, creator string) models.Service {
	svc, _ := store.CreateService(context.Background(), models.Service{
		ID: id, Name: "fix sink", Description: "kitchen sink leaking",
		Value: 120, ServiceType: "plumber", Creator: creator,
	})
	return svc
}

func seedRequest(store *fakeStore, id, serviceID, proposer string) models.ServiceRequest {
	req, _ := store.CreateRequest(context.Background(), models.ServiceRequest{
		ID: id, Service: serviceID, Proposer: proposer,
		ProposedValue: 100, ProposedDate: time.Now().Add(48 * time.Hour),
	})
	return req
}

func doCreate(t *testing.T, h *Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/service-requests/request", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	if err := h.Create(e.NewContext(req, rec)); err != nil {
		t.Fatalf("create handler returned error: %v", err)
	}
	return rec
}

func doResolve(t *testing.T, h *Handler, requestID, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath("/service-requests/:id/resolve")
	c.SetParamNames("id")
	c.SetParamValues(requestID)
	if err := h.Resolve(c); err != nil {
		t.Fatalf("resolve handler returned error: %v", err)
	}
	return rec
}

func futureDate() string {
	return time.Now().Add(72 * time.Hour).Format(time.RFC3339)
}

func TestCreateRequestValidation(t *testing.T) {
	store := newFakeStore()
	seedService(store, "svc-1", "creator-1")
	h := newTestHandler(store)

	cases := []struct {
		name string
		body string
		want int
	}{
		{"zero value", `{"service":"svc-1","proposer":"user-2","proposedValue":0,"proposedDate":"` + futureDate() + `"}`, http.StatusBadRequest},
		{"past date", `{"service":"svc-1","proposer":"user-2","proposedValue":90,"proposedDate":"2020-01-01T00:00:00Z"}`, http.StatusBadRequest},
		{"missing service", `{"service":"svc-missing","proposer":"user-2","proposedValue":90,"proposedDate":"` + futureDate() + `"}`, http.StatusNotFound},
		{"creator proposes on own service", `{"service":"svc-1","proposer":"creator-1","proposedValue":90,"proposedDate":"` + futureDate() + `"}`, http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doCreate(t, h, tc.body)
			if rec.Code != tc.want {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tc.want, rec.Body.String())
			}
		})
	}
}

func TestCreateRequestAgainstClosedService(t *testing.T) {
	store := newFakeStore()
	svc := seedService(store, "svc-1", "creator-1")
	_, err := store.TransitionService(context.Background(), svc.ID,
		models.ServiceOpen, models.ServiceCanceled, nil)
	if err != nil {
		t.Fatalf("seed cancel: %v", err)
	}

	h := newTestHandler(store)
	rec := doCreate(t, h,
		`{"service":"svc-1","proposer":"user-2","proposedValue":90,"proposedDate":"`+futureDate()+`"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
}

func TestCreateRequestSuccess(t *testing.T) {
	store := newFakeStore()
	seedService(store, "svc-1", "creator-1")
	h := newTestHandler(store)

	rec := doCreate(t, h,
		`{"service":"svc-1","proposer":"user-2","proposedValue":95.5,"proposedDate":"`+futureDate()+`"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (body %s)", rec.Code, rec.Body.String())
	}

	var created models.ServiceRequest
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if created.Status != models.RequestPending {
		t.Fatalf("new request status = %s, want pending", created.Status)
	}
	if created.Service != "svc-1" || created.Proposer != "user-2" {
		t.Fatalf("unexpected request: %+v", created)
	}
}

func TestResolveAcceptDeclinesSiblings(t *testing.T) {
	store := newFakeStore()
	seedService(store, "svc-1", "creator-1")
	r1 := seedRequest(store, "req-1", "svc-1", "user-a")
	seedRequest(store, "req-2", "svc-1", "user-b")
	h := newTestHandler(store)

	rec := doResolve(t, h, r1.ID, `{"decision":"accept","actorId":"creator-1"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}

	var out struct {
		Request models.ServiceRequest `json:"request"`
		Service models.Service        `json:"service"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if out.Request.Status != models.RequestAccepted {
		t.Fatalf("r1 status = %s, want accepted", out.Request.Status)
	}
	if out.Service.Status != models.ServiceAccepted {
		t.Fatalf("service status = %s, want accepted", out.Service.Status)
	}
	if out.Service.AcceptedBy == nil || *out.Service.AcceptedBy != "user-a" {
		t.Fatalf("service acceptedBy = %v, want user-a", out.Service.AcceptedBy)
	}

	r2, err := store.GetRequest(context.Background(), "req-2")
	if err != nil {
		t.Fatalf("fetch sibling: %v", err)
	}
	if r2.Status != models.RequestDeclined {
		t.Fatalf("sibling status = %s, want declined", r2.Status)
	}
}

func TestResolveAcceptAfterAccepted(t *testing.T) {
	store := newFakeStore()
	seedService(store, "svc-1", "creator-1")
	r1 := seedRequest(store, "req-1", "svc-1", "user-a")
	r2 := seedRequest(store, "req-2", "svc-1", "user-b")
	h := newTestHandler(store)

	if rec := doResolve(t, h, r1.ID, `{"decision":"accept","actorId":"creator-1"}`); rec.Code != http.StatusOK {
		t.Fatalf("first accept status = %d", rec.Code)
	}
	rec := doResolve(t, h, r2.ID, `{"decision":"accept","actorId":"creator-1"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("second accept status = %d, want 409", rec.Code)
	}

	got, _ := store.GetRequest(context.Background(), r2.ID)
	if got.Status != models.RequestDeclined {
		t.Fatalf("r2 status = %s, want declined (unchanged by failed accept)", got.Status)
	}
}

func TestResolveDecline(t *testing.T) {
	store := newFakeStore()
	seedService(store, "svc-1", "creator-1")
	r1 := seedRequest(store, "req-1", "svc-1", "user-a")
	h := newTestHandler(store)

	rec := doResolve(t, h, r1.ID, `{"decision":"decline","actorId":"creator-1"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	svc, _ := store.GetService(context.Background(), "svc-1")
	if svc.Status != models.ServiceOpen {
		t.Fatalf("service status = %s, decline must not touch the service", svc.Status)
	}
	got, _ := store.GetRequest(context.Background(), r1.ID)
	if got.Status != models.RequestDeclined {
		t.Fatalf("request status = %s, want declined", got.Status)
	}
}

func TestResolveAuthorization(t *testing.T) {
	store := newFakeStore()
	seedService(store, "svc-1", "creator-1")
	r1 := seedRequest(store, "req-1", "svc-1", "user-a")
	h := newTestHandler(store)

	if rec := doResolve(t, h, r1.ID, `{"decision":"accept","actorId":"user-a"}`); rec.Code != http.StatusForbidden {
		t.Fatalf("non-creator resolve status = %d, want 403", rec.Code)
	}
	if rec := doResolve(t, h, "req-missing", `{"decision":"accept","actorId":"creator-1"}`); rec.Code != http.StatusNotFound {
		t.Fatalf("missing request status = %d, want 404", rec.Code)
	}
	if rec := doResolve(t, h, r1.ID, `{"decision":"maybe","actorId":"creator-1"}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad decision status = %d, want 400", rec.Code)
	}
}

// Two accepts racing for the same open service: exactly one wins.
func TestConcurrentAccepts(t *testing.T) {
	store := newFakeStore()
	seedService(store, "svc-1", "creator-1")
	r1 := seedRequest(store, "req-1", "svc-1", "user-a")
	r2 := seedRequest(store, "req-2", "svc-1", "user-b")
	h := newTestHandler(store)

	codes := make(chan int, 2)
	var wg sync.WaitGroup
	for _, id := range []string{r1.ID, r2.ID} {
		wg.Add(1)
		go func(requestID string) {
			defer wg.Done()
			rec := doResolve(t, h, requestID, `{"decision":"accept","actorId":"creator-1"}`)
			codes <- rec.Code
		}(id)
	}
	wg.Wait()
	close(codes)

	var ok, conflict int
	for code := range codes {
		switch code {
		case http.StatusOK:
			ok++
		case http.StatusConflict:
			conflict++
		default:
			t.Fatalf("unexpected status %d", code)
		}
	}
	if ok != 1 || conflict != 1 {
		t.Fatalf("got %d accepts and %d conflicts, want exactly one of each", ok, conflict)
	}

	svc, _ := store.GetService(context.Background(), "svc-1")
	if svc.Status != models.ServiceAccepted || svc.AcceptedBy == nil {
		t.Fatalf("service not consistently accepted: %+v", svc)
	}
	accepted := 0
	reqs, _ := store.ListRequestsByService(context.Background(), "svc-1")
	for _, r := range reqs {
		if r.Status == models.RequestAccepted {
			accepted++
			if r.Proposer != *svc.AcceptedBy {
				t.Fatalf("acceptedBy %s does not match accepted request proposer %s",
					*svc.AcceptedBy, r.Proposer)
			}
		}
	}
	if accepted != 1 {
		t.Fatalf("%d accepted requests, want exactly 1", accepted)
	}
}
