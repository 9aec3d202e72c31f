// Package seed imports demo courses from YAML files on startup.
package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/p-n-ai/pai-classroom/internal/account"
	"github.com/p-n-ai/pai-classroom/internal/classroom"
)

const fileSuffix = ".course.yaml"

// Load walks rootDir and parses every *.course.yaml file. Invalid files are
// logged and skipped.
func Load(rootDir string) ([]CourseFile, error) {
	var files []CourseFile
	err := filepath.WalkDir(rootDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, fileSuffix) {
			return nil
		}

		cf, err := loadFile(path)
		if err != nil {
			slog.Warn("skipping invalid course YAML", "path", path, "error", err)
			return nil
		}
		files = append(files, *cf)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk seed dir: %w", err)
	}

	slices.SortFunc(files, func(a, b CourseFile) int { return strings.Compare(a.path, b.path) })
	return files, nil
}

func loadFile(path string) (*CourseFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cf CourseFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, err
	}
	if cf.Name == "" {
		return nil, errors.New("course name is empty")
	}
	if cf.Instructor.Email == "" {
		return nil, errors.New("instructor email is empty")
	}
	cf.path = path
	return &cf, nil
}

// Importer writes parsed course files through the classroom service.
type Importer struct {
	users     account.Store
	classroom *classroom.Service
}

// NewImporter creates an importer.
func NewImporter(users account.Store, svc *classroom.Service) *Importer {
	return &Importer{users: users, classroom: svc}
}

// Import creates every course whose instructor does not already own a
// course of the same name. It returns the number of courses created.
func (im *Importer) Import(ctx context.Context, files []CourseFile) (int, error) {
	created := 0
	for _, cf := range files {
		ok, err := im.importCourse(ctx, cf)
		if err != nil {
			return created, fmt.Errorf("seed %s: %w", cf.Name, err)
		}
		if ok {
			created++
		}
	}
	slog.Info("seed courses imported", "files", len(files), "created", created)
	return created, nil
}

func (im *Importer) importCourse(ctx context.Context, cf CourseFile) (bool, error) {
	owner, err := im.instructor(ctx, cf.Instructor)
	if err != nil {
		return false, err
	}

	existing, err := im.classroom.Store().ListCoursesByInstructor(ctx, owner)
	if err != nil {
		return false, err
	}
	for _, c := range existing {
		if c.Name == cf.Name {
			slog.Debug("seed course exists", "course", cf.Name)
			return false, nil
		}
	}

	course, err := im.classroom.CreateCourse(ctx, owner, cf.Name, cf.Description)
	if err != nil {
		return false, err
	}
	for _, tf := range cf.Topics {
		if err := im.importTopic(ctx, owner, course.ID, tf); err != nil {
			return false, fmt.Errorf("topic %s: %w", tf.Name, err)
		}
	}
	return true, nil
}

func (im *Importer) importTopic(ctx context.Context, owner, courseID string, tf TopicFile) error {
	topic, err := im.classroom.AddTopic(ctx, owner, courseID, tf.Name, tf.Description)
	if err != nil {
		return err
	}

	items := make([]classroom.ResourceInput, 0, len(tf.Resources))
	for _, r := range tf.Resources {
		items = append(items, classroom.ResourceInput{
			Kind: classroom.ResourceKind(r.Kind),
			Name: r.Name,
			Text: r.Text,
			URL:  r.URL,
		})
	}
	if _, err := im.classroom.ReplaceCoreResources(ctx, owner, topic.ID, items); err != nil {
		return err
	}

	for _, test := range tf.Tests {
		questions := make([]classroom.Question, 0, len(test.Questions))
		for _, q := range test.Questions {
			questions = append(questions, classroom.Question{Question: q.Question, Options: q.Options, Answer: q.Answer})
		}
		if _, err := im.classroom.AddTest(ctx, owner, topic.ID, classroom.TestInput{Name: test.Name, Questions: questions}); err != nil {
			return fmt.Errorf("test %s: %w", test.Name, err)
		}
	}
	return nil
}

func (im *Importer) instructor(ctx context.Context, in Instructor) (string, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	u, err := im.users.GetUserByEmail(ctx, email)
	if err == nil {
		return u.ID, nil
	}
	if !errors.Is(err, account.ErrNotFound) {
		return "", err
	}

	name := in.Name
	if name == "" {
		name = email
	}
	u, err = im.users.CreateUser(ctx, account.User{Name: name, Email: email, EmailVerified: true})
	if err != nil {
		return "", fmt.Errorf("create instructor: %w", err)
	}
	return u.ID, nil
}
