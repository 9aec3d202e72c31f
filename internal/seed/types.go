package seed

// CourseFile is one *.course.yaml document.
type CourseFile struct {
	Name        string      `yaml:"name"`
	Description string      `yaml:"description"`
	Instructor  Instructor  `yaml:"instructor"`
	Topics      []TopicFile `yaml:"topics"`

	path string
}

// Instructor identifies the seeded course owner. The account is created
// verified and without a password when it does not exist.
type Instructor struct {
	Name  string `yaml:"name"`
	Email string `yaml:"email"`
}

// TopicFile describes a topic with its ordered core resources and tests.
type TopicFile struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Resources   []ResourceFile `yaml:"resources"`
	Tests       []TestFile     `yaml:"tests"`
}

// ResourceFile is a text or video core resource.
type ResourceFile struct {
	Kind string `yaml:"kind"`
	Name string `yaml:"name"`
	Text string `yaml:"text"`
	URL  string `yaml:"url"`
}

// TestFile is a test appended after the topic's resources.
type TestFile struct {
	Name      string         `yaml:"name"`
	Questions []QuestionFile `yaml:"questions"`
}

// QuestionFile is a multiple choice question.
type QuestionFile struct {
	Question string   `yaml:"question"`
	Options  []string `yaml:"options"`
	Answer   string   `yaml:"answer"`
}
