package progress

import "testing"

func TestConstructors(t *testing.T) {
	tests := []struct {
		name string
		ev   Event
		want Event
	}{
		{
			name: "Status",
			ev:   Status("Planning research"),
			want: Event{Type: EventStatus, Title: "Planning research"},
		},
		{
			name: "Thinking",
			ev:   Thinking("Considering angles"),
			want: Event{Type: EventThinking, Content: "Considering angles"},
		},
		{
			name: "SearchQuery",
			ev:   SearchQuery("id-1", "golang scheduler"),
			want: Event{Type: EventSearchQuery, ID: "id-1", Query: "golang scheduler"},
		},
		{
			name: "Source",
			ev:   Source("id-2", "A title", "https://a.com"),
			want: Event{Type: EventSource, ID: "id-2", Title: "A title", URL: "https://a.com"},
		},
		{
			name: "ContentEvent",
			ev:   ContentEvent("id-3", "A title", "https://a.com", "excerpt"),
			want: Event{Type: EventContent, ID: "id-3", Title: "A title", URL: "https://a.com", Excerpt: "excerpt"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.ev != tt.want {
				t.Errorf("got %+v, want %+v", tt.ev, tt.want)
			}
		})
	}
}

func TestChannelDelivery(t *testing.T) {
	ch := NewChannel(4)
	ch.Emit(Status("one"))
	ch.Emit(Status("two"))
	ch.Close()

	var got []Event
	for ev := range ch.Events() {
		got = append(got, ev)
	}
	if len(got) != 2 || got[0].Title != "one" || got[1].Title != "two" {
		t.Errorf("unexpected events: %+v", got)
	}
}

// Emit must never block the producer, even with no consumer attached.
func TestChannelDropsWhenFull(t *testing.T) {
	ch := NewChannel(1)
	ch.Emit(Status("kept"))
	ch.Emit(Status("dropped"))
	ch.Close()

	var got []Event
	for ev := range ch.Events() {
		got = append(got, ev)
	}
	if len(got) != 1 || got[0].Title != "kept" {
		t.Errorf("unexpected events: %+v", got)
	}
}

func TestEmitterFunc(t *testing.T) {
	var captured Event
	f := EmitterFunc(func(ev Event) { captured = ev })
	f.Emit(Status("hello"))
	if captured.Title != "hello" {
		t.Errorf("captured = %+v", captured)
	}
}
