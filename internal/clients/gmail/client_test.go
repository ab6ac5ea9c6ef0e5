package gmail

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rbhatta/kosha/internal/interfaces"
)

func TestListMessages(t *testing.T) {
	var gotQuery, gotMax, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/users/me/messages" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		gotQuery = r.URL.Query().Get("q")
		gotMax = r.URL.Query().Get("maxResults")
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(map[string]any{
			"messages": []map[string]string{
				{"id": "m1", "threadId": "t1"},
				{"id": "m2", "threadId": "t2"},
			},
		})
	}))
	defer srv.Close()

	client := NewClient("cid", "secret", WithBaseURL(srv.URL))
	creds := interfaces.MailCredentials{AccessToken: "tok-1"}

	refs, err := client.ListMessages(context.Background(), creds, "is:unread subject:debited", 50)
	if err != nil {
		t.Fatalf("ListMessages failed: %v", err)
	}
	if len(refs) != 2 {
		t.Fatalf("expected 2 refs, got %d", len(refs))
	}
	if refs[0].ID != "m1" {
		t.Errorf("expected first ref m1, got %s", refs[0].ID)
	}
	if gotQuery != "is:unread subject:debited" {
		t.Errorf("unexpected query %q", gotQuery)
	}
	if gotMax != "50" {
		t.Errorf("unexpected maxResults %q", gotMax)
	}
	if gotAuth != "Bearer tok-1" {
		t.Errorf("unexpected auth header %q", gotAuth)
	}
}

func TestListMessagesEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// no messages field at all when the query matches nothing
		w.Write([]byte(`{"resultSizeEstimate": 0}`))
	}))
	defer srv.Close()

	client := NewClient("cid", "secret", WithBaseURL(srv.URL))
	refs, err := client.ListMessages(context.Background(), interfaces.MailCredentials{AccessToken: "tok"}, "is:unread", 10)
	if err != nil {
		t.Fatalf("ListMessages failed: %v", err)
	}
	if len(refs) != 0 {
		t.Errorf("expected no refs, got %d", len(refs))
	}
}

func TestGetMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/users/me/messages/m1" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("format") != "full" {
			t.Errorf("expected format=full, got %q", r.URL.Query().Get("format"))
		}
		json.NewEncoder(w).Encode(map[string]any{
			"id":      "m1",
			"snippet": "Rs 500 debited",
			"payload": map[string]any{
				"mimeType": "text/plain",
				"body":     map[string]any{"size": 10, "data": "UnMgNTAwIGRlYml0ZWQ"},
			},
		})
	}))
	defer srv.Close()

	client := NewClient("cid", "secret", WithBaseURL(srv.URL))
	msg, err := client.GetMessage(context.Background(), interfaces.MailCredentials{AccessToken: "tok"}, "m1")
	if err != nil {
		t.Fatalf("GetMessage failed: %v", err)
	}
	if msg.ID != "m1" {
		t.Errorf("expected id m1, got %s", msg.ID)
	}
	if msg.Payload == nil || msg.Payload.MimeType != "text/plain" {
		t.Errorf("payload not decoded: %+v", msg.Payload)
	}
}

func TestMarkRead(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/users/me/messages/m1/modify" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte(`{"id": "m1"}`))
	}))
	defer srv.Close()

	client := NewClient("cid", "secret", WithBaseURL(srv.URL))
	if err := client.MarkRead(context.Background(), interfaces.MailCredentials{AccessToken: "tok"}, "m1"); err != nil {
		t.Fatalf("MarkRead failed: %v", err)
	}
	labels, ok := gotBody["removeLabelIds"].([]any)
	if !ok || len(labels) != 1 || labels[0] != "UNREAD" {
		t.Errorf("unexpected modify body: %v", gotBody)
	}
}

func TestTokenRefreshOn401(t *testing.T) {
	calls := 0
	var tokenCalled bool

	mux := http.NewServeMux()
	mux.HandleFunc("/users/me/messages", func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.Header.Get("Authorization") == "Bearer stale" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error": {"code": 401}}`))
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"messages": []map[string]string{{"id": "m1"}}})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenCalled = true
		if r.FormValue("grant_type") != "refresh_token" {
			t.Errorf("unexpected grant_type %q", r.FormValue("grant_type"))
		}
		if r.FormValue("refresh_token") != "refresh-1" {
			t.Errorf("unexpected refresh_token %q", r.FormValue("refresh_token"))
		}
		json.NewEncoder(w).Encode(map[string]string{"access_token": "fresh"})
	}))
	defer tokenSrv.Close()

	client := NewClient("cid", "secret", WithBaseURL(srv.URL), WithTokenURL(tokenSrv.URL))
	creds := interfaces.MailCredentials{AccessToken: "stale", RefreshToken: "refresh-1"}

	refs, err := client.ListMessages(context.Background(), creds, "is:unread", 10)
	if err != nil {
		t.Fatalf("ListMessages failed: %v", err)
	}
	if !tokenCalled {
		t.Error("expected token endpoint to be called")
	}
	if calls != 2 {
		t.Errorf("expected 2 API calls, got %d", calls)
	}
	if len(refs) != 1 {
		t.Errorf("expected 1 ref after retry, got %d", len(refs))
	}
}

func TestMarkReadResendsBodyAfterRefresh(t *testing.T) {
	var bodies []string

	mux := http.NewServeMux()
	mux.HandleFunc("/users/me/messages/m1/modify", func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		bodies = append(bodies, string(b))
		if r.Header.Get("Authorization") == "Bearer stale" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error": {"code": 401}}`))
			return
		}
		w.Write([]byte(`{"id": "m1"}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"access_token": "fresh"})
	}))
	defer tokenSrv.Close()

	client := NewClient("cid", "secret", WithBaseURL(srv.URL), WithTokenURL(tokenSrv.URL))
	creds := interfaces.MailCredentials{AccessToken: "stale", RefreshToken: "refresh-1"}

	if err := client.MarkRead(context.Background(), creds, "m1"); err != nil {
		t.Fatalf("MarkRead failed: %v", err)
	}
	if len(bodies) != 2 {
		t.Fatalf("expected 2 modify attempts, got %d", len(bodies))
	}
	// The retried request must carry the same payload as the first attempt,
	// or the UNREAD label survives and the message is refetched forever.
	for i, body := range bodies {
		var decoded map[string]any
		if err := json.Unmarshal([]byte(body), &decoded); err != nil {
			t.Fatalf("attempt %d body is not valid JSON: %q", i+1, body)
		}
		labels, ok := decoded["removeLabelIds"].([]any)
		if !ok || len(labels) != 1 || labels[0] != "UNREAD" {
			t.Errorf("attempt %d has wrong body: %q", i+1, body)
		}
	}
}

func TestAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error": {"code": 403, "message": "insufficient scope"}}`))
	}))
	defer srv.Close()

	client := NewClient("cid", "secret", WithBaseURL(srv.URL))
	_, err := client.ListMessages(context.Background(), interfaces.MailCredentials{AccessToken: "tok"}, "is:unread", 10)
	if err == nil {
		t.Fatal("expected error for 403 response")
	}
	apiErr, ok := err.(*APIError)
	if !ok {
		t.Fatalf("expected *APIError, got %T", err)
	}
	if apiErr.StatusCode != http.StatusForbidden {
		t.Errorf("expected status 403, got %d", apiErr.StatusCode)
	}
}
