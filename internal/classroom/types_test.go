package classroom_test

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/p-n-ai/pai-classroom/internal/classroom"
)

func TestResourceItem_MarshalJSON_MirrorsPayload(t *testing.T) {
	item := classroom.ResourceItem{ID: "r1", Kind: classroom.KindText, Name: "Intro", Payload: "hello"}

	data, err := json.Marshal(item)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var got map[string]string
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	want := map[string]string{
		"_id":     "r1",
		"kind":    "text",
		"name":    "Intro",
		"payload": "hello",
		"text":    "hello",
		"url":     "hello",
		"testId":  "hello",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("wire form mismatch (-want +got):\n%s", diff)
	}
}

func TestResourceItem_UnmarshalJSON_Precedence(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"payload-only", `{"kind":"text","name":"a","payload":"p"}`, "p"},
		{"text-over-payload", `{"kind":"text","name":"a","payload":"p","text":"t"}`, "t"},
		{"url-over-text", `{"kind":"video","name":"a","text":"t","url":"u"}`, "u"},
		{"testId-over-all", `{"kind":"test","name":"a","text":"t","url":"u","testId":"x","payload":"p"}`, "x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var item classroom.ResourceItem
			if err := json.Unmarshal([]byte(tt.body), &item); err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}
			if item.Payload != tt.want {
				t.Errorf("Payload = %q, want %q", item.Payload, tt.want)
			}
		})
	}
}

func TestResourceItem_Accessors(t *testing.T) {
	tests := []struct {
		kind                        classroom.ResourceKind
		wantText, wantURL, wantTest string
	}{
		{classroom.KindText, "x", "", ""},
		{classroom.KindVideo, "", "x", ""},
		{classroom.KindTest, "", "", "x"},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			item := classroom.ResourceItem{Kind: tt.kind, Payload: "x"}
			if item.Text() != tt.wantText {
				t.Errorf("Text() = %q, want %q", item.Text(), tt.wantText)
			}
			if item.URL() != tt.wantURL {
				t.Errorf("URL() = %q, want %q", item.URL(), tt.wantURL)
			}
			if item.TestID() != tt.wantTest {
				t.Errorf("TestID() = %q, want %q", item.TestID(), tt.wantTest)
			}
		})
	}
}

func TestNewID(t *testing.T) {
	id := classroom.NewID()
	if len(id) != 24 {
		t.Errorf("len(NewID()) = %d, want 24", len(id))
	}
	if classroom.NewID() == id {
		t.Error("NewID() returned the same id twice")
	}
}

func TestCourseProgress_Done(t *testing.T) {
	p := classroom.CourseProgress{TopicStatus: map[string][]string{
		"t1": {"a", "b"},
		"t2": {"c"},
	}}
	if got := p.Done(); got != 3 {
		t.Errorf("Done() = %d, want 3", got)
	}
}
