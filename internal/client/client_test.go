package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/foxzi/reachgate/internal/money"
	"github.com/foxzi/reachgate/internal/segment"
)

func TestCountSegment(t *testing.T) {
	var gotAuth string
	var gotRules []segment.Rule

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/segments/count" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotRules); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Write([]byte(`{"count": 42}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", "secret", Options{})
	rules := []segment.Rule{{Field: segment.FieldTags, Operator: segment.OpIn, Value: segment.ListValue("vip")}}

	n, err := c.CountSegment(context.Background(), rules)
	if err != nil {
		t.Fatalf("CountSegment: %v", err)
	}
	if n != 42 {
		t.Errorf("count = %d, want 42", n)
	}
	if gotAuth != "Bearer secret" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if len(gotRules) != 1 || !gotRules[0].Value.Equal(segment.ListValue("vip")) {
		t.Errorf("server got rules %v", gotRules)
	}
}

func TestErrorMapping(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/segments/missing":
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":"segment not found"}`))
		default:
			w.WriteHeader(http.StatusBadGateway)
			w.Write([]byte("upstream down"))
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", Options{})

	_, err := c.GetSegment(context.Background(), "missing")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Message != "segment not found" {
		t.Fatalf("GetSegment error = %v", err)
	}
	if !IsNotFound(err) {
		t.Error("IsNotFound = false for 404")
	}

	_, err = c.GetBalance(context.Background())
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusBadGateway {
		t.Fatalf("GetBalance error = %v", err)
	}
	if err.Error() != "HTTP 502" {
		t.Errorf("error text = %q, want HTTP 502", err.Error())
	}
}

func TestSegmentRoundTrip(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /segments/", func(w http.ResponseWriter, r *http.Request) {
		var p segment.Payload
		json.NewDecoder(r.Body).Decode(&p)
		seg := p.Segment()
		seg.ID = "seg-1"
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(seg)
	})
	mux.HandleFunc("PUT /segments/{id}", func(w http.ResponseWriter, r *http.Request) {
		var p segment.Payload
		json.NewDecoder(r.Body).Decode(&p)
		seg := p.Segment()
		seg.ID = r.PathValue("id")
		json.NewEncoder(w).Encode(seg)
	})
	mux.HandleFunc("GET /segments/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"segments":[{"id":"seg-1","name":"VIP","type":"dynamic","rules":[{"field":"tags","operator":"in","value":["vip"]}]}]}`))
	})
	mux.HandleFunc("DELETE /segments/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := NewClient(srv.URL, "k", Options{Timeout: 5 * time.Second})
	ctx := context.Background()

	payload := &segment.Payload{
		Name:  "VIP",
		Type:  segment.TypeDynamic,
		Rules: []segment.Rule{{Field: segment.FieldTags, Operator: segment.OpIn, Value: segment.ListValue("vip")}},
	}
	created, err := c.CreateSegment(ctx, payload)
	if err != nil {
		t.Fatalf("CreateSegment: %v", err)
	}
	if created.ID != "seg-1" || created.Name != "VIP" {
		t.Errorf("created = %+v", created)
	}

	updated, err := c.UpdateSegment(ctx, "seg-1", payload)
	if err != nil || updated.ID != "seg-1" {
		t.Errorf("UpdateSegment = %+v, %v", updated, err)
	}

	list, err := c.ListSegments(ctx)
	if err != nil || len(list) != 1 || list[0].Rules[0].Field != segment.FieldTags {
		t.Errorf("ListSegments = %v, %v", list, err)
	}

	if err := c.DeleteSegment(ctx, "seg-1"); err != nil {
		t.Errorf("DeleteSegment: %v", err)
	}
}

func TestWalletAndEstimate(t *testing.T) {
	var gotEstimate EstimateRequest
	var gotTopUp TopUpRequest

	mux := http.NewServeMux()
	mux.HandleFunc("GET /wallet/balance", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"balance": 12.30}`))
	})
	mux.HandleFunc("POST /wallet/topup", func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotTopUp)
		w.Write([]byte(`{"balance": 20.00}`))
	})
	mux.HandleFunc("GET /reboost/credits", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"credits": 20}`))
	})
	mux.HandleFunc("POST /campaigns/estimate", func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotEstimate)
		w.Write([]byte(`{"estimate":{"recipient_count":10,"total_cost":18.00,"admitted":false,"shortfall":8.00},"budget":{"allowed":true,"max_additional":3}}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := NewClient(srv.URL, "", Options{})
	ctx := context.Background()

	balance, err := c.GetBalance(ctx)
	if err != nil || balance != money.FromCents(1230) {
		t.Errorf("GetBalance = %v, %v", balance, err)
	}

	balance, err = c.TopUp(ctx, money.MustParse("7.70"))
	if err != nil || balance != money.FromCents(2000) {
		t.Errorf("TopUp = %v, %v", balance, err)
	}
	if gotTopUp.Amount != money.FromCents(770) {
		t.Errorf("server got top-up %v", gotTopUp.Amount)
	}

	credits, err := c.GetCredits(ctx)
	if err != nil || credits != 20 {
		t.Errorf("GetCredits = %d, %v", credits, err)
	}

	budgetCap := money.MustParse("10.00")
	resp, err := c.Estimate(ctx, &EstimateRequest{RecipientCount: 10, BudgetCap: &budgetCap, Additional: 3})
	if err != nil {
		t.Fatalf("Estimate: %v", err)
	}
	if resp.Estimate.TotalCost != money.FromCents(1800) || resp.Estimate.Admitted {
		t.Errorf("estimate = %+v", resp.Estimate)
	}
	if resp.Budget == nil || resp.Budget.MaxAdditional != 3 {
		t.Errorf("budget = %+v", resp.Budget)
	}
	if gotEstimate.BudgetCap == nil || *gotEstimate.BudgetCap != budgetCap {
		t.Errorf("server got budget cap %v", gotEstimate.BudgetCap)
	}
}

func TestContacts(t *testing.T) {
	var gotQuery string
	mux := http.NewServeMux()
	mux.HandleFunc("POST /contacts", func(w http.ResponseWriter, r *http.Request) {
		var req ImportContactsRequest
		json.NewDecoder(r.Body).Decode(&req)
		json.NewEncoder(w).Encode(ImportContactsResponse{Created: len(req.Contacts)})
	})
	mux.HandleFunc("GET /contacts", func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Write([]byte(`{"contacts":[{"id":"c1","name":"Ann","phone":"+1555"}]}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := NewClient(srv.URL, "", Options{})
	ctx := context.Background()

	res, err := c.ImportContacts(ctx, []*segment.Contact{{Name: "Ann", Phone: "+1555"}, {Name: "Bob", Phone: "+1556"}})
	if err != nil || res.Created != 2 {
		t.Errorf("ImportContacts = %+v, %v", res, err)
	}

	contacts, err := c.ListContacts(ctx, 10, 5)
	if err != nil || len(contacts) != 1 || contacts[0].ID != "c1" {
		t.Errorf("ListContacts = %v, %v", contacts, err)
	}
	if gotQuery != "limit=10&offset=5" {
		t.Errorf("query = %q", gotQuery)
	}
}

func TestCountSegmentHonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := c.CountSegment(ctx, nil); !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestClientSatisfiesSegmentInterfaces(t *testing.T) {
	var _ segment.Counter = (*Client)(nil)
	var _ segment.Store = (*Client)(nil)
}
