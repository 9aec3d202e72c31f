// Package classroom implements courses, topics, tests, comments and per-student
// progress on top of a document store, together with the role guards that
// protect every mutation.
package classroom

import (
	"encoding/json"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Store sentinels. Services translate them into apperr kinds.
var (
	ErrNotFound        = errors.New("not found")
	ErrAlreadyLiked    = errors.New("comment already liked")
	ErrNotLiked        = errors.New("comment not liked")
	ErrAlreadyEnrolled = errors.New("already enrolled")
)

// NewID returns a fresh 24-hex document id.
func NewID() string {
	return primitive.NewObjectID().Hex()
}

// Course is owned by exactly one instructor.
type Course struct {
	ID          string    `json:"_id" bson:"_id"`
	Name        string    `json:"name" bson:"name"`
	Description string    `json:"description" bson:"description"`
	Instructor  string    `json:"instructor" bson:"instructor"`
	Topics      []string  `json:"topics" bson:"topics"`
	Discussion  []string  `json:"discussion" bson:"discussion"`
	CreatedAt   time.Time `json:"createdAt" bson:"createdAt"`
}

// Topic belongs to a course and holds its ordered core resources and two
// comment lists.
type Topic struct {
	ID            string         `json:"_id" bson:"_id"`
	Course        string         `json:"course" bson:"course"`
	Name          string         `json:"name" bson:"name"`
	Description   string         `json:"description" bson:"description"`
	CoreResources []ResourceItem `json:"coreResources" bson:"coreResources"`
	Doubt         []string       `json:"doubt" bson:"doubt"`
	ResourceDump  []string       `json:"resourceDump" bson:"resourceDump"`
	CreatedAt     time.Time      `json:"createdAt" bson:"createdAt"`
}

// ResourceKind is the variant of a ResourceItem.
type ResourceKind string

const (
	KindText  ResourceKind = "text"
	KindVideo ResourceKind = "video"
	KindTest  ResourceKind = "test"
)

// Valid reports whether k is a known kind.
func (k ResourceKind) Valid() bool {
	switch k {
	case KindText, KindVideo, KindTest:
		return true
	}
	return false
}

// ResourceItem is one entry of a topic's core resources. Payload holds the
// text body, the video URL or the referenced test id depending on Kind.
type ResourceItem struct {
	ID      string       `bson:"_id"`
	Kind    ResourceKind `bson:"kind"`
	Name    string       `bson:"name"`
	Payload string       `bson:"payload"`
}

// Text returns the body of a text resource.
func (r ResourceItem) Text() string {
	if r.Kind == KindText {
		return r.Payload
	}
	return ""
}

// URL returns the link of a video resource.
func (r ResourceItem) URL() string {
	if r.Kind == KindVideo {
		return r.Payload
	}
	return ""
}

// TestID returns the referenced test of a test resource.
func (r ResourceItem) TestID() string {
	if r.Kind == KindTest {
		return r.Payload
	}
	return ""
}

// ResourceInput is the wire form of a resource item. Clients may send the
// payload under any of text, url, testId or payload.
type ResourceInput struct {
	ID      string       `json:"_id,omitempty"`
	Kind    ResourceKind `json:"kind"`
	Name    string       `json:"name"`
	Payload string       `json:"payload,omitempty"`
	Text    string       `json:"text,omitempty"`
	URL     string       `json:"url,omitempty"`
	TestID  string       `json:"testId,omitempty"`
}

// resolvedPayload applies testId > url > text > payload precedence.
func (in ResourceInput) resolvedPayload() string {
	switch {
	case in.TestID != "":
		return in.TestID
	case in.URL != "":
		return in.URL
	case in.Text != "":
		return in.Text
	default:
		return in.Payload
	}
}

// valid reports whether the input can be stored as a ResourceItem.
func (in ResourceInput) valid() bool {
	return in.Kind.Valid() && in.Name != "" && in.resolvedPayload() != ""
}

// item normalizes the input, generating an id when absent.
func (in ResourceInput) item() ResourceItem {
	id := in.ID
	if id == "" {
		id = NewID()
	}
	return ResourceItem{ID: id, Kind: in.Kind, Name: in.Name, Payload: in.resolvedPayload()}
}

type resourceWire struct {
	ID      string       `json:"_id"`
	Kind    ResourceKind `json:"kind"`
	Name    string       `json:"name"`
	Payload string       `json:"payload"`
	Text    string       `json:"text"`
	URL     string       `json:"url"`
	TestID  string       `json:"testId"`
}

// MarshalJSON mirrors the payload into text, url and testId.
func (r ResourceItem) MarshalJSON() ([]byte, error) {
	return json.Marshal(resourceWire{
		ID:      r.ID,
		Kind:    r.Kind,
		Name:    r.Name,
		Payload: r.Payload,
		Text:    r.Payload,
		URL:     r.Payload,
		TestID:  r.Payload,
	})
}

// UnmarshalJSON accepts the mirrored wire form.
func (r *ResourceItem) UnmarshalJSON(data []byte) error {
	var in ResourceInput
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*r = ResourceItem{ID: in.ID, Kind: in.Kind, Name: in.Name, Payload: in.resolvedPayload()}
	return nil
}

// Question is a single multiple choice question.
type Question struct {
	Question string   `json:"question" bson:"question"`
	Options  []string `json:"options" bson:"options"`
	Answer   string   `json:"answer" bson:"answer"`
}

// Test is a quiz referenced from a topic's core resources.
type Test struct {
	ID        string     `json:"_id" bson:"_id"`
	Topic     string     `json:"topic" bson:"topic"`
	Name      string     `json:"name" bson:"name"`
	Questions []Question `json:"questions" bson:"questions"`
	CreatedAt time.Time  `json:"createdAt" bson:"createdAt"`
}

// Reply is appended to a comment's reply thread.
type Reply struct {
	UserID    string    `json:"userId" bson:"userId"`
	Text      string    `json:"text" bson:"text"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}

// Comment is a doubt, a resource dump entry or a course discussion post.
// Topic is empty for course discussion.
type Comment struct {
	ID        string    `json:"_id" bson:"_id"`
	User      string    `json:"user" bson:"user"`
	Topic     string    `json:"topic,omitempty" bson:"topic,omitempty"`
	Course    string    `json:"course" bson:"course"`
	Text      string    `json:"text" bson:"text"`
	Likes     []string  `json:"likes" bson:"likes"`
	Reply     []Reply   `json:"reply" bson:"reply"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}

// CommentList names one of a topic's comment lists.
type CommentList string

const (
	ListDoubt        CommentList = "doubt"
	ListResourceDump CommentList = "resourceDump"
)

// Valid reports whether l names a topic comment list.
func (l CommentList) Valid() bool {
	return l == ListDoubt || l == ListResourceDump
}

// CourseProgress is the enrollment record of a student in a course.
// TopicStatus maps a topic id to the resource ids the student finished.
type CourseProgress struct {
	ID          string              `json:"_id" bson:"_id"`
	User        string              `json:"user" bson:"user"`
	Course      string              `json:"course" bson:"course"`
	TopicStatus map[string][]string `json:"topicStatus" bson:"topicStatus"`
	CreatedAt   time.Time           `json:"createdAt" bson:"createdAt"`
}

// Done counts finished resources across all topics.
func (p CourseProgress) Done() int {
	n := 0
	for _, ids := range p.TopicStatus {
		n += len(ids)
	}
	return n
}
