package search

import "testing"

func TestParseDuckDuckGoOutput(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []Result
	}{
		{
			name: "Two complete blocks",
			raw: "Title: First result\nDescription: A description\nURL: https://a.com/1\n\n" +
				"Title: Second result\nDescription: Another one\nURL: https://b.com/2",
			want: []Result{
				{Title: "First result", Content: "A description", URL: "https://a.com/1"},
				{Title: "Second result", Content: "Another one", URL: "https://b.com/2"},
			},
		},
		{
			name: "Block without URL dropped",
			raw:  "Title: No link here\nDescription: orphaned\n\nTitle: Linked\nURL: https://a.com/1",
			want: []Result{
				{Title: "Linked", URL: "https://a.com/1"},
			},
		},
		{
			name: "Empty input",
			raw:  "",
			want: nil,
		},
		{
			name: "Whitespace trimmed",
			raw:  "Title: Padded title  \nURL: https://a.com/1  ",
			want: []Result{
				{Title: "Padded title", URL: "https://a.com/1"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseDuckDuckGoOutput(tt.raw)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d results, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("result %d = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}
