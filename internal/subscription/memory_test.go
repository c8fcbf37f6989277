package subscription

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"
)

func TestRegisterValidation(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		events  []string
		wantErr bool
	}{
		{
			name:    "valid registration",
			url:     "https://example.com/hook",
			events:  []string{"order.created"},
			wantErr: false,
		},
		{
			name:    "empty url",
			url:     "",
			events:  []string{"order.created"},
			wantErr: true,
		},
		{
			name:    "unparseable url",
			url:     "not a url",
			events:  []string{"order.created"},
			wantErr: true,
		},
		{
			name:    "empty events",
			url:     "https://example.com/hook",
			events:  nil,
			wantErr: true,
		},
		{
			name:    "blank event name",
			url:     "https://example.com/hook",
			events:  []string{"order.created", ""},
			wantErr: true,
		},
	}

	store := NewMemoryStore()
	ctx := context.Background()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := store.Register(ctx, tt.url, tt.events, "", true)
			if tt.wantErr {
				var ve *ValidationError
				if !errors.As(err, &ve) {
					t.Errorf("Register() error = %v, want *ValidationError", err)
				}
				return
			}
			if err != nil {
				t.Errorf("Register() error = %v, want nil", err)
			}
		})
	}
}

func TestRegisterGetRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	sub, err := store.Register(ctx, "https://example.com/hook", []string{"order.created", "order.paid"}, "s3cret", true)
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if sub.ID == "" {
		t.Error("Register() returned empty ID")
	}
	if sub.CreatedAt.IsZero() {
		t.Error("Register() returned zero CreatedAt")
	}
	if !sub.Enabled {
		t.Error("Register() returned Enabled = false, want true")
	}

	got, err := store.Get(ctx, sub.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !reflect.DeepEqual(got, sub) {
		t.Errorf("Get() = %+v, want %+v", got, sub)
	}
}

func TestGetNotFound(t *testing.T) {
	store := NewMemoryStore()
	_, err := store.Get(context.Background(), "missing")
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Errorf("Get() error = %v, want *NotFoundError", err)
	}
}

func TestListInsertionOrder(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	var ids []string
	for i := 0; i < 5; i++ {
		sub, err := store.Register(ctx, fmt.Sprintf("https://example.com/hook/%d", i), []string{"e"}, "", true)
		if err != nil {
			t.Fatalf("Register() error = %v", err)
		}
		ids = append(ids, sub.ID)
	}

	subs, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(subs) != len(ids) {
		t.Fatalf("List() returned %d subscriptions, want %d", len(subs), len(ids))
	}
	for i, sub := range subs {
		if sub.ID != ids[i] {
			t.Errorf("List()[%d].ID = %q, want %q", i, sub.ID, ids[i])
		}
	}
}

func TestDelete(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	sub, _ := store.Register(ctx, "https://example.com/hook", []string{"e"}, "", true)

	deleted, err := store.Delete(ctx, sub.ID)
	if err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if !deleted {
		t.Error("Delete() = false, want true")
	}

	deleted, err = store.Delete(ctx, sub.ID)
	if err != nil {
		t.Fatalf("Delete() second call error = %v", err)
	}
	if deleted {
		t.Error("Delete() second call = true, want false")
	}

	var nf *NotFoundError
	if _, err := store.Get(ctx, sub.ID); !errors.As(err, &nf) {
		t.Errorf("Get() after delete error = %v, want *NotFoundError", err)
	}
}

func TestSetEnabled(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	sub, _ := store.Register(ctx, "https://example.com/hook", []string{"e"}, "", true)

	updated, err := store.SetEnabled(ctx, sub.ID, false)
	if err != nil {
		t.Fatalf("SetEnabled() error = %v", err)
	}
	if updated.Enabled {
		t.Error("SetEnabled(false) returned Enabled = true")
	}

	got, _ := store.Get(ctx, sub.ID)
	if got.Enabled {
		t.Error("Get() after disable returned Enabled = true")
	}

	var nf *NotFoundError
	if _, err := store.SetEnabled(ctx, "missing", true); !errors.As(err, &nf) {
		t.Errorf("SetEnabled() unknown ID error = %v, want *NotFoundError", err)
	}
}

func TestMatches(t *testing.T) {
	tests := []struct {
		name  string
		sub   Subscription
		event string
		want  bool
	}{
		{
			name:  "exact match",
			sub:   Subscription{Enabled: true, Events: []string{"order.created"}},
			event: "order.created",
			want:  true,
		},
		{
			name:  "case sensitive",
			sub:   Subscription{Enabled: true, Events: []string{"order.created"}},
			event: "Order.Created",
			want:  false,
		},
		{
			name:  "no substring match",
			sub:   Subscription{Enabled: true, Events: []string{"order.created"}},
			event: "order",
			want:  false,
		},
		{
			name:  "disabled never matches",
			sub:   Subscription{Enabled: false, Events: []string{"order.created"}},
			event: "order.created",
			want:  false,
		},
		{
			name:  "second event in set",
			sub:   Subscription{Enabled: true, Events: []string{"a", "b"}},
			event: "b",
			want:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.sub.Matches(tt.event); got != tt.want {
				t.Errorf("Matches(%q) = %v, want %v", tt.event, got, tt.want)
			}
		})
	}
}

func TestReturnedCopiesAreDetached(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	sub, _ := store.Register(ctx, "https://example.com/hook", []string{"a", "b"}, "", true)
	sub.Events[0] = "mutated"

	got, _ := store.Get(ctx, sub.ID)
	if got.Events[0] != "a" {
		t.Errorf("store state mutated through returned copy: Events[0] = %q", got.Events[0])
	}
}

func TestConcurrentAccess(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				sub, err := store.Register(ctx, "https://example.com/hook", []string{"e"}, "", true)
				if err != nil {
					t.Errorf("Register() error = %v", err)
					return
				}
				if _, err := store.Get(ctx, sub.ID); err != nil {
					t.Errorf("Get() error = %v", err)
				}
				if _, err := store.List(ctx); err != nil {
					t.Errorf("List() error = %v", err)
				}
				if i%2 == 0 {
					if _, err := store.Delete(ctx, sub.ID); err != nil {
						t.Errorf("Delete() error = %v", err)
					}
				}
			}
		}(i)
	}
	wg.Wait()
}
